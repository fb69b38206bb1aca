package orderreview

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"
)

const (
	confirmationTokenBytes = 32
	referenceBytes         = 4
	referencePrefix        = "SL-"
)

// publicOrderIDSpan covers the six-digit range 100000..999999.
var publicOrderIDSpan = big.NewInt(900000)

// newConfirmationToken mints the unguessable single-use token embedded in
// confirm/cancel links. Bound 1:1 to an order row; overwritten on repricing
// and cleared by the first successful confirm or cancel.
func newConfirmationToken() (string, error) {
	buf := make([]byte, confirmationTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating confirmation token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// newReference builds the placeholder identifier handed back at submission,
// before a public order number exists.
func newReference() (string, error) {
	buf := make([]byte, referenceBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating order reference: %w", err)
	}
	return referencePrefix + strings.ToUpper(hex.EncodeToString(buf)), nil
}

// newPublicOrderID draws a random six-digit order number. Uniqueness is the
// caller's problem: candidates are checked against existing rows and the
// insert still races behind a unique index.
func newPublicOrderID() (string, error) {
	n, err := rand.Int(rand.Reader, publicOrderIDSpan)
	if err != nil {
		return "", fmt.Errorf("generating public order id: %w", err)
	}
	return fmt.Sprintf("%d", n.Int64()+100000), nil
}
