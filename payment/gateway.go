/*
gateway.go - External payment gateway boundary

PURPOSE:
  The orchestrator never speaks the gateway's wire protocol. It opens an
  order, hands the order id to the client, and later verifies the signed
  callback. Gateway is that boundary; HMACGateway implements the common
  order-id|payment-id HMAC-SHA256 signature scheme.

VERIFICATION:
  signature == hex(HMAC-SHA256(orderID + "|" + paymentID, secret))

  Comparison is constant-time. A failed verification leaves the booking
  PENDING; nothing is reserved or debited before verification passes.
*/
package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"

	"github.com/google/uuid"

	"github.com/skyfare/booking-engine/money"
)

// Order is an open payment intent at the gateway.
type Order struct {
	ID       string
	Amount   money.Amount
	Currency string
	Receipt  string // booking reference
}

// Gateway creates orders and verifies signed callbacks.
type Gateway interface {
	CreateOrder(ctx context.Context, amount money.Amount, receipt string) (*Order, error)
	Verify(orderID, paymentID, signature string) error
}

// HMACGateway verifies callbacks with a shared-secret HMAC. Order creation
// is local: the order id is minted here and echoed back by the callback.
type HMACGateway struct {
	secret   []byte
	currency string
}

func NewHMACGateway(secret, currency string) *HMACGateway {
	return &HMACGateway{secret: []byte(secret), currency: currency}
}

func (g *HMACGateway) CreateOrder(_ context.Context, amount money.Amount, receipt string) (*Order, error) {
	return &Order{
		ID:       "order_" + uuid.NewString(),
		Amount:   amount,
		Currency: g.currency,
		Receipt:  receipt,
	}, nil
}

func (g *HMACGateway) Verify(orderID, paymentID, signature string) error {
	mac := hmac.New(sha256.New, g.secret)
	mac.Write([]byte(orderID + "|" + paymentID))
	expected := hex.EncodeToString(mac.Sum(nil))
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return ErrPaymentVerificationFailed
	}
	return nil
}

// Sign produces the signature a legitimate callback would carry. Exposed
// for tests and local development tooling.
func (g *HMACGateway) Sign(orderID, paymentID string) string {
	mac := hmac.New(sha256.New, g.secret)
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}
