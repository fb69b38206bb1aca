package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shoplane/shoplane-backend/api/controllers"
	reviewcontrollers "github.com/shoplane/shoplane-backend/api/controllers/orderreview"
	"github.com/shoplane/shoplane-backend/api/middleware"
	"github.com/shoplane/shoplane-backend/internal/notifications"
	"github.com/shoplane/shoplane-backend/internal/orderreview"
	"github.com/shoplane/shoplane-backend/pkg/config"
	"github.com/shoplane/shoplane-backend/pkg/enums"
	"github.com/shoplane/shoplane-backend/pkg/logger"
	"github.com/shoplane/shoplane-backend/pkg/redis"
)

// Deps carries everything the router wires into handlers.
type Deps struct {
	Config        *config.Config
	Logger        *logger.Logger
	DB            controllers.Pinger
	Redis         *redis.Client
	ReviewService orderreview.Service
	Notifications notifications.Service
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.PublicBaseURL),
	)

	tokenPolicy := middleware.NewTokenRateLimitPolicy(
		"order-token",
		cfg.RateLimit.TokenWindow,
		cfg.RateLimit.TokenIPLimit,
		cfg.RateLimit.TokenOrderLimit,
	)
	tokenLimiter := func(next http.Handler) http.Handler { return next }
	if deps.Redis != nil {
		tokenLimiter = middleware.TokenRateLimit(tokenPolicy, deps.Redis, logg)
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, map[string]controllers.Pinger{
			"db":    deps.DB,
			"redis": redisPinger(deps.Redis),
		}))
	})

	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1/order-review", func(r chi.Router) {
		// Storefront intake: guests submit anonymously, signed-in
		// customers get the order attached to their account.
		r.With(middleware.OptionalAuth(cfg.JWT, logg)).
			Post("/", reviewcontrollers.Submit(deps.ReviewService, logg))

		// Emailed one-time links. Unauthenticated by design, throttled
		// to blunt token guessing.
		r.Group(func(r chi.Router) {
			r.Use(tokenLimiter)
			r.Post("/customer-confirm/{orderID}/{token}", reviewcontrollers.CustomerConfirm(deps.ReviewService, logg))
			r.Post("/customer-cancel/{orderID}/{token}", reviewcontrollers.CustomerCancel(deps.ReviewService, logg))
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, logg))
			r.Get("/{orderID}", reviewcontrollers.Detail(deps.ReviewService, logg))
			r.Post("/{orderID}/cancel-request", reviewcontrollers.CancelRequest(deps.ReviewService, logg))
			r.Post("/{orderID}/confirm", reviewcontrollers.AccountConfirm(deps.ReviewService, logg))
			r.Post("/{orderID}/cancel", reviewcontrollers.AccountCancel(deps.ReviewService, logg))

			r.With(middleware.RequireRole(string(enums.MemberRoleAdmin), logg)).
				Put("/{orderID}/set-shipping", reviewcontrollers.SetShipping(deps.ReviewService, logg))
		})
	})

	r.Route("/api/v1/admin", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RequireRole(string(enums.MemberRoleAdmin), logg))

		r.Get("/order-review", reviewcontrollers.AdminList(deps.ReviewService, logg))

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", controllers.ListNotifications(deps.Notifications, logg))
			r.Post("/{notificationID}/read", controllers.MarkNotificationRead(deps.Notifications, logg))
			r.Post("/read-all", controllers.MarkAllNotificationsRead(deps.Notifications, logg))
		})
	})

	return r
}

// redisPinger keeps a typed-nil *redis.Client out of the Pinger interface.
func redisPinger(client *redis.Client) controllers.Pinger {
	if client == nil {
		return nil
	}
	return client
}
