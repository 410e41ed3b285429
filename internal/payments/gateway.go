package payments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/wolfman30/medibook-client/internal/api"
	"github.com/wolfman30/medibook-client/pkg/logging"
)

// ErrCheckoutTimeout is returned when the widget reports neither success nor
// dismissal within the configured bound. The widget session is abandoned.
var ErrCheckoutTimeout = errors.New("payments: checkout timed out")

// Prefill seeds the payer fields shown by the checkout widget.
type Prefill struct {
	Name    string
	Email   string
	Contact string
}

// Checkout describes one widget invocation for a server-issued order.
type Checkout struct {
	Key          string
	Amount       decimal.Decimal
	Currency     string
	OrderID      string
	MerchantName string
	Description  string
	Image        string
	Prefill      Prefill
}

// OutcomeKind distinguishes the two ways a checkout ends.
type OutcomeKind int

const (
	OutcomeDismissed OutcomeKind = iota
	OutcomeSucceeded
)

func (k OutcomeKind) String() string {
	if k == OutcomeSucceeded {
		return "succeeded"
	}
	return "dismissed"
}

// Outcome is the single result of a checkout. Proof is set only when Kind is OutcomeSucceeded.
type Outcome struct {
	Kind  OutcomeKind
	Proof api.PaymentProof
}

// Succeeded reports a settled payment.
func Succeeded(proof api.PaymentProof) Outcome {
	return Outcome{Kind: OutcomeSucceeded, Proof: proof}
}

// Dismissed reports that the payer closed the widget.
func Dismissed() Outcome {
	return Outcome{Kind: OutcomeDismissed}
}

// Gateway runs a checkout to completion.
type Gateway interface {
	BeginCheckout(ctx context.Context, checkout Checkout) (Outcome, error)
}

// Widget is a callback-style checkout UI. Open displays the checkout and later
// invokes onSuccess or onDismiss. The callbacks may fire from any goroutine,
// including synchronously from inside Open. ctx is cancelled once the caller
// stops waiting; the widget should release the session then.
type Widget interface {
	Open(ctx context.Context, checkout Checkout, onSuccess func(api.PaymentProof), onDismiss func()) error
}

// CallbackGateway adapts a Widget to the blocking Gateway interface.
type CallbackGateway struct {
	widget  Widget
	timeout time.Duration
	logger  *logging.Logger
}

// NewCallbackGateway wraps widget. A non-positive timeout leaves the wait bounded only by ctx.
func NewCallbackGateway(widget Widget, timeout time.Duration, logger *logging.Logger) *CallbackGateway {
	if logger == nil {
		logger = logging.Default()
	}
	return &CallbackGateway{widget: widget, timeout: timeout, logger: logger}
}

// BeginCheckout opens the widget and blocks until its first callback, the timeout, or ctx.
// Exactly one outcome is accepted per call; later callbacks are logged and dropped.
func (g *CallbackGateway) BeginCheckout(ctx context.Context, checkout Checkout) (Outcome, error) {
	if strings.TrimSpace(checkout.OrderID) == "" {
		return Outcome{}, fmt.Errorf("payments: checkout requires order id")
	}
	if !checkout.Amount.IsPositive() {
		return Outcome{}, fmt.Errorf("payments: checkout amount must be positive")
	}

	waitCtx, cancel := ctx, context.CancelFunc(func() {})
	if g.timeout > 0 {
		waitCtx, cancel = context.WithTimeout(ctx, g.timeout)
	}
	defer cancel()

	results := make(chan Outcome, 1)
	var (
		mu        sync.Mutex
		delivered bool
		abandoned bool
	)
	deliver := func(outcome Outcome) {
		mu.Lock()
		defer mu.Unlock()
		switch {
		case delivered:
			g.logger.Warn("duplicate checkout callback dropped", "order_id", checkout.OrderID, "outcome", outcome.Kind.String())
		case abandoned:
			delivered = true
			g.logger.Error("checkout callback arrived after abandonment",
				"order_id", checkout.OrderID,
				"outcome", outcome.Kind.String(),
				"payment_id", outcome.Proof.PaymentID,
			)
		default:
			delivered = true
			results <- outcome
		}
	}

	err := g.widget.Open(waitCtx, checkout,
		func(proof api.PaymentProof) { deliver(Succeeded(proof)) },
		func() { deliver(Dismissed()) },
	)
	if err != nil {
		return Outcome{}, fmt.Errorf("payments: open checkout: %w", err)
	}

	select {
	case outcome := <-results:
		g.logger.Info("checkout finished", "order_id", checkout.OrderID, "outcome", outcome.Kind.String())
		return outcome, nil
	case <-waitCtx.Done():
		mu.Lock()
		raced := delivered
		abandoned = true
		mu.Unlock()
		if raced {
			return <-results, nil
		}
		if ctx.Err() != nil {
			return Outcome{}, ctx.Err()
		}
		g.logger.Warn("checkout abandoned after timeout", "order_id", checkout.OrderID, "timeout", g.timeout.String())
		return Outcome{}, ErrCheckoutTimeout
	}
}
