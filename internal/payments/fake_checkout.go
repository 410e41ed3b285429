package payments

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/wolfman30/medibook-client/internal/api"
	"github.com/wolfman30/medibook-client/pkg/logging"
)

// FakeBehavior selects how FakeWidget ends each checkout.
type FakeBehavior int

const (
	FakeSucceed FakeBehavior = iota
	FakeDismiss
)

// FakeWidget is a dev/test widget that settles every checkout immediately
// without contacting a real gateway.
//
// This MUST be gated by configuration (MEDIBOOK_ALLOW_FAKE_PAYMENTS) and should
// never be enabled against a production API.
type FakeWidget struct {
	secret   string
	behavior FakeBehavior
	logger   *logging.Logger
}

func NewFakeWidget(secret string, behavior FakeBehavior, logger *logging.Logger) *FakeWidget {
	if logger == nil {
		logger = logging.Default()
	}
	return &FakeWidget{
		secret:   strings.TrimSpace(secret),
		behavior: behavior,
		logger:   logger,
	}
}

func (w *FakeWidget) Open(ctx context.Context, checkout Checkout, onSuccess func(api.PaymentProof), onDismiss func()) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("payments: fake checkout: %w", err)
	}
	if w.behavior == FakeDismiss {
		w.logger.Info("fake checkout dismissed", "order_id", checkout.OrderID)
		onDismiss()
		return nil
	}
	if w.secret == "" {
		return fmt.Errorf("payments: fake checkout requires a signing secret")
	}
	paymentID := "pay_fake_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:14]
	w.logger.Info("fake checkout completed", "order_id", checkout.OrderID, "payment_id", paymentID)
	onSuccess(api.PaymentProof{
		OrderID:   checkout.OrderID,
		PaymentID: paymentID,
		Signature: Sign(w.secret, checkout.OrderID, paymentID),
	})
	return nil
}

// Sign computes the gateway signature for a settled order: hex HMAC-SHA256 of
// "orderID|paymentID" keyed by the merchant secret.
func Sign(secret, orderID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature reports whether signature matches Sign(secret, orderID, paymentID).
func VerifySignature(secret, orderID, paymentID, signature string) bool {
	want, err := hex.DecodeString(Sign(secret, orderID, paymentID))
	if err != nil {
		return false
	}
	got, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}
	return hmac.Equal(want, got)
}
