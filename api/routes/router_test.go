package routes

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/shoplane/shoplane-backend/internal/notifications"
	"github.com/shoplane/shoplane-backend/internal/orderreview"
	pkgauth "github.com/shoplane/shoplane-backend/pkg/auth"
	"github.com/shoplane/shoplane-backend/pkg/config"
	"github.com/shoplane/shoplane-backend/pkg/db/models"
	"github.com/shoplane/shoplane-backend/pkg/enums"
	pkgerrors "github.com/shoplane/shoplane-backend/pkg/errors"
	"github.com/shoplane/shoplane-backend/pkg/logger"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error { return nil }

type stubReviewService struct {
	lastSubmit  *orderreview.SubmitInput
	lastConfirm struct {
		orderID uuid.UUID
		token   string
	}
	order *models.Order
}

func (s *stubReviewService) SubmitForReview(ctx context.Context, input orderreview.SubmitInput) (*orderreview.SubmitResult, error) {
	s.lastSubmit = &input
	return &orderreview.SubmitResult{
		OrderID:   uuid.New(),
		Reference: "SL-0BADF00D",
		Status:    enums.OrderStatusPendingReview,
	}, nil
}

func (s *stubReviewService) SetShippingAndFinalPrice(ctx context.Context, input orderreview.PricingInput) (*models.Order, error) {
	return s.order, nil
}

func (s *stubReviewService) ConfirmByCustomer(ctx context.Context, orderID uuid.UUID, token string) (*models.Order, error) {
	s.lastConfirm.orderID = orderID
	s.lastConfirm.token = token
	if token == "expired" {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return s.order, nil
}

func (s *stubReviewService) CancelByCustomer(ctx context.Context, orderID uuid.UUID, token string, reason *string) (*models.Order, error) {
	return s.order, nil
}

func (s *stubReviewService) RequestCancel(ctx context.Context, orderID, customerID uuid.UUID, reason *string) error {
	return nil
}

func (s *stubReviewService) ConfirmByAccount(ctx context.Context, orderID, customerID uuid.UUID) (*models.Order, error) {
	return s.order, nil
}

func (s *stubReviewService) CancelByAccount(ctx context.Context, orderID, customerID uuid.UUID, reason *string) (*models.Order, error) {
	return s.order, nil
}

func (s *stubReviewService) GetOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	return s.order, nil
}

func (s *stubReviewService) ListOrders(ctx context.Context, params orderreview.ListParams) (*orderreview.OrderList, error) {
	return &orderreview.OrderList{Items: []models.Order{*s.order}}, nil
}

type stubNotificationsService struct{}

func (stubNotificationsService) List(ctx context.Context, params notifications.ListParams) (*notifications.ListResult, error) {
	return &notifications.ListResult{}, nil
}

func (stubNotificationsService) MarkRead(ctx context.Context, userID, notificationID uuid.UUID) error {
	return nil
}

func (stubNotificationsService) MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	return 0, nil
}

var routerJWT = config.JWTConfig{
	Secret:            "router-test-secret",
	Issuer:            "shoplane-test",
	ExpirationMinutes: 5,
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{
			Env:           "dev",
			Port:          "8080",
			PublicBaseURL: "https://shop.test",
		},
		JWT: routerJWT,
	}
}

func bearerFor(t *testing.T, userID uuid.UUID, role enums.MemberRole) string {
	t.Helper()
	token, err := pkgauth.MintAccessToken(routerJWT, time.Now(), pkgauth.AccessTokenPayload{
		UserID: userID,
		Role:   role,
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return "Bearer " + token
}

func testOrder(ownerID uuid.UUID) *models.Order {
	return &models.Order{
		ID:            uuid.New(),
		Reference:     "SL-0BADF00D",
		CustomerID:    &ownerID,
		PaymentMethod: enums.PaymentMethodCard,
		SubtotalCents: 5000,
		Status:        enums.OrderStatusAwaitingConfirmation,
	}
}

func newTestRouter(t *testing.T, svc *stubReviewService) http.Handler {
	t.Helper()
	logg := logger.New(logger.Options{ServiceName: "router-test", Level: logger.ParseLevel("error")})
	return NewRouter(Deps{
		Config:        testConfig(),
		Logger:        logg,
		DB:            stubPinger{},
		ReviewService: svc,
		Notifications: stubNotificationsService{},
	})
}

const submitBody = `{
	"guest_name": "Dana",
	"guest_email": "dana@customer.dev",
	"payment_method": "card",
	"subtotal_cents": 5000,
	"items": [{"product_id": "7b4f8f3e-30aa-4be1-b9e6-6df0c2dcb901", "product_name": "Widget", "qty": 2, "unit_price_cents": 2500}],
	"shipping_address": {"name": "Dana", "line1": "1 Main St", "city": "Springfield", "postal_code": "12345", "country": "US"}
}`

func TestHealthLive(t *testing.T) {
	owner := uuid.New()
	router := newTestRouter(t, &stubReviewService{order: testOrder(owner)})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got := rec.Header().Get("X-Shoplane-Env"); got != "dev" {
		t.Fatalf("unexpected env header %q", got)
	}
}

func TestGuestSubmitReturns201(t *testing.T) {
	svc := &stubReviewService{order: testOrder(uuid.New())}
	router := newTestRouter(t, svc)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/order-review/", strings.NewReader(submitBody))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if svc.lastSubmit == nil {
		t.Fatal("submit never reached the service")
	}
	if svc.lastSubmit.CustomerID != nil {
		t.Fatal("guest submit must not carry a customer id")
	}

	var envelope struct {
		Data struct {
			Reference string `json:"reference"`
			Status    string `json:"order_status"`
		} `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.Reference != "SL-0BADF00D" {
		t.Fatalf("unexpected reference %q", envelope.Data.Reference)
	}
	if envelope.Data.Status != string(enums.OrderStatusPendingReview) {
		t.Fatalf("unexpected status %q", envelope.Data.Status)
	}
}

func TestAuthenticatedSubmitAttachesCustomer(t *testing.T) {
	svc := &stubReviewService{order: testOrder(uuid.New())}
	router := newTestRouter(t, svc)
	customerID := uuid.New()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/order-review/", strings.NewReader(submitBody))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", bearerFor(t, customerID, enums.MemberRoleCustomer))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if svc.lastSubmit == nil || svc.lastSubmit.CustomerID == nil {
		t.Fatal("authenticated submit must carry the customer id")
	}
	if *svc.lastSubmit.CustomerID != customerID {
		t.Fatalf("wrong customer id: %s", svc.lastSubmit.CustomerID)
	}
}

func TestSubmitChecksDeclaredSubtotal(t *testing.T) {
	svc := &stubReviewService{order: testOrder(uuid.New())}
	router := newTestRouter(t, svc)

	for name, body := range map[string]string{
		"mismatch": strings.Replace(submitBody, `"subtotal_cents": 5000`, `"subtotal_cents": 4999`, 1),
		"missing":  strings.Replace(submitBody, `"subtotal_cents": 5000,`, ``, 1),
	} {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/order-review/", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d: %s", name, rec.Code, rec.Body.String())
		}
	}
	if svc.lastSubmit != nil {
		t.Fatal("invalid subtotal must not reach the service")
	}
}

func TestCustomerConfirmIsPublic(t *testing.T) {
	owner := uuid.New()
	svc := &stubReviewService{order: testOrder(owner)}
	router := newTestRouter(t, svc)
	orderID := uuid.New()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/order-review/customer-confirm/"+orderID.String()+"/sometoken", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if svc.lastConfirm.orderID != orderID || svc.lastConfirm.token != "sometoken" {
		t.Fatalf("confirm params not passed through: %+v", svc.lastConfirm)
	}
}

func TestCustomerConfirmMalformedOrderIDReads404(t *testing.T) {
	router := newTestRouter(t, &stubReviewService{order: testOrder(uuid.New())})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/order-review/customer-confirm/not-a-uuid/sometoken", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestSetShippingRequiresAdmin(t *testing.T) {
	owner := uuid.New()
	router := newTestRouter(t, &stubReviewService{order: testOrder(owner)})
	orderID := uuid.New()
	body := `{"shipping_cents": 500, "final_price_cents": 5500}`

	req := httptest.NewRequest(http.MethodPut, "/api/v1/order-review/"+orderID.String()+"/set-shipping", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without credentials, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodPut, "/api/v1/order-review/"+orderID.String()+"/set-shipping", strings.NewReader(body))
	req.Header.Set("Authorization", bearerFor(t, uuid.New(), enums.MemberRoleCustomer))
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for customer role, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodPut, "/api/v1/order-review/"+orderID.String()+"/set-shipping", strings.NewReader(body))
	req.Header.Set("Authorization", bearerFor(t, uuid.New(), enums.MemberRoleAdmin))
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for admin, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestSetShippingRequiresBothAmounts(t *testing.T) {
	owner := uuid.New()
	router := newTestRouter(t, &stubReviewService{order: testOrder(owner)})
	orderID := uuid.New()

	for _, body := range []string{
		`{"shipping_cents": 500}`,
		`{"final_price_cents": 5500}`,
		`{}`,
	} {
		req := httptest.NewRequest(http.MethodPut, "/api/v1/order-review/"+orderID.String()+"/set-shipping", strings.NewReader(body))
		req.Header.Set("Authorization", bearerFor(t, uuid.New(), enums.MemberRoleAdmin))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400 for body %s, got %d: %s", body, rec.Code, rec.Body.String())
		}
	}
}

func TestDetailHidesForeignOrders(t *testing.T) {
	owner := uuid.New()
	svc := &stubReviewService{order: testOrder(owner)}
	router := newTestRouter(t, svc)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/order-review/"+svc.order.ID.String(), nil)
	req.Header.Set("Authorization", bearerFor(t, owner, enums.MemberRoleCustomer))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for owner, got %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "confirmation_token") {
		t.Fatal("order payload must never include the confirmation token")
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/order-review/"+svc.order.ID.String(), nil)
	req.Header.Set("Authorization", bearerFor(t, uuid.New(), enums.MemberRoleCustomer))
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for a stranger, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/order-review/"+svc.order.ID.String(), nil)
	req.Header.Set("Authorization", bearerFor(t, uuid.New(), enums.MemberRoleAdmin))
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for admin, got %d", rec.Code)
	}
}

func TestAdminListRequiresAdminRole(t *testing.T) {
	router := newTestRouter(t, &stubReviewService{order: testOrder(uuid.New())})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/order-review", nil)
	req.Header.Set("Authorization", bearerFor(t, uuid.New(), enums.MemberRoleCustomer))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/admin/order-review?limit=10", nil)
	req.Header.Set("Authorization", bearerFor(t, uuid.New(), enums.MemberRoleAdmin))
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestAdminNotificationsRoutes(t *testing.T) {
	router := newTestRouter(t, &stubReviewService{order: testOrder(uuid.New())})
	auth := bearerFor(t, uuid.New(), enums.MemberRoleAdmin)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/notifications/", nil)
	req.Header.Set("Authorization", auth)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 listing notifications, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/v1/admin/notifications/read-all", nil)
	req.Header.Set("Authorization", auth)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 marking all read, got %d", rec.Code)
	}
}
