package payments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/medibook-client/internal/api"
	"github.com/wolfman30/medibook-client/internal/http/middleware"
	"github.com/wolfman30/medibook-client/pkg/logging"
)

// HostedWidget serves a local checkout page that loads the gateway's browser
// widget and relays its callbacks back to the waiting checkout.
// Announce is called with the page URL each time a checkout opens.
type HostedWidget struct {
	baseURL  string
	announce func(checkoutURL string)
	logger   *logging.Logger

	mu       sync.Mutex
	sessions map[string]*hostedSession
}

type hostedSession struct {
	checkout  Checkout
	onSuccess func(api.PaymentProof)
	onDismiss func()
}

func NewHostedWidget(baseURL string, announce func(checkoutURL string), logger *logging.Logger) *HostedWidget {
	if logger == nil {
		logger = logging.Default()
	}
	if announce == nil {
		announce = func(string) {}
	}
	return &HostedWidget{
		baseURL:  strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		announce: announce,
		logger:   logger,
		sessions: make(map[string]*hostedSession),
	}
}

// Open registers the checkout and announces its page. The session is released when ctx ends.
func (w *HostedWidget) Open(ctx context.Context, checkout Checkout, onSuccess func(api.PaymentProof), onDismiss func()) error {
	if strings.TrimSpace(checkout.Key) == "" {
		return fmt.Errorf("payments: hosted checkout requires a gateway key")
	}
	w.mu.Lock()
	if _, exists := w.sessions[checkout.OrderID]; exists {
		w.mu.Unlock()
		return fmt.Errorf("payments: checkout already open for order %s", checkout.OrderID)
	}
	w.sessions[checkout.OrderID] = &hostedSession{checkout: checkout, onSuccess: onSuccess, onDismiss: onDismiss}
	w.mu.Unlock()

	go func() {
		<-ctx.Done()
		w.release(checkout.OrderID)
	}()

	w.announce(fmt.Sprintf("%s/checkout/%s", w.baseURL, checkout.OrderID))
	return nil
}

func (w *HostedWidget) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestLogger(w.logger))
	r.Get("/checkout/{orderID}", w.HandleCheckout)
	r.Post("/checkout/{orderID}/pay", w.HandlePay)
	r.Post("/checkout/{orderID}/dismiss", w.HandleDismiss)
	return r
}

func (w *HostedWidget) HandleCheckout(rw http.ResponseWriter, r *http.Request) {
	orderID := strings.TrimSpace(chi.URLParam(r, "orderID"))
	w.mu.Lock()
	sess, ok := w.sessions[orderID]
	w.mu.Unlock()
	if !ok {
		http.Error(rw, "checkout not found", http.StatusNotFound)
		return
	}

	c := sess.checkout
	page := checkoutPage{
		Key:          c.Key,
		Amount:       template.JS(c.Amount.String()),
		Currency:     c.Currency,
		OrderID:      c.OrderID,
		MerchantName: c.MerchantName,
		Description:  c.Description,
		Image:        c.Image,
		Prefill:      c.Prefill,
	}
	rw.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := checkoutTemplate.Execute(rw, page); err != nil {
		w.logger.Error("render checkout page failed", "error", err, "order_id", orderID)
	}
}

func (w *HostedWidget) HandlePay(rw http.ResponseWriter, r *http.Request) {
	orderID := strings.TrimSpace(chi.URLParam(r, "orderID"))
	var proof api.PaymentProof
	if err := json.NewDecoder(http.MaxBytesReader(rw, r.Body, 4096)).Decode(&proof); err != nil {
		http.Error(rw, "invalid payment response", http.StatusBadRequest)
		return
	}
	if proof.OrderID != orderID || proof.PaymentID == "" || proof.Signature == "" {
		http.Error(rw, "incomplete payment response", http.StatusBadRequest)
		return
	}
	sess, ok := w.take(orderID)
	if !ok {
		w.logger.Error("payment reported for closed checkout", "order_id", orderID, "payment_id", proof.PaymentID)
		http.Error(rw, "checkout is no longer open", http.StatusGone)
		return
	}
	sess.onSuccess(proof)
	rw.WriteHeader(http.StatusNoContent)
}

func (w *HostedWidget) HandleDismiss(rw http.ResponseWriter, r *http.Request) {
	orderID := strings.TrimSpace(chi.URLParam(r, "orderID"))
	sess, ok := w.take(orderID)
	if !ok {
		http.Error(rw, "checkout is no longer open", http.StatusGone)
		return
	}
	sess.onDismiss()
	rw.WriteHeader(http.StatusNoContent)
}

// take removes the session so that only the first callback for an order is relayed.
func (w *HostedWidget) take(orderID string) (*hostedSession, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	sess, ok := w.sessions[orderID]
	if ok {
		delete(w.sessions, orderID)
	}
	return sess, ok
}

func (w *HostedWidget) release(orderID string) {
	if _, ok := w.take(orderID); ok {
		w.logger.Debug("checkout session released", "order_id", orderID)
	}
}

// ServeHostedCheckout listens on addr and serves a HostedWidget until ctx ends.
// The returned widget announces URLs rooted at the bound address.
func ServeHostedCheckout(ctx context.Context, addr string, announce func(string), logger *logging.Logger) (*HostedWidget, error) {
	if logger == nil {
		logger = logging.Default()
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("payments: listen for checkout page: %w", err)
	}
	widget := NewHostedWidget("http://"+ln.Addr().String(), announce, logger)
	srv := &http.Server{
		Handler:           widget.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("checkout page server stopped", "error", err)
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	logger.Info("checkout page listening", "addr", ln.Addr().String())
	return widget, nil
}

type checkoutPage struct {
	Key          string
	Amount       template.JS
	Currency     string
	OrderID      string
	MerchantName string
	Description  string
	Image        string
	Prefill      Prefill
}

var checkoutTemplate = template.Must(template.New("checkout").Parse(`<!doctype html>
<html>
  <head>
    <meta charset="utf-8" />
    <meta name="viewport" content="width=device-width, initial-scale=1" />
    <title>{{.MerchantName}} Checkout</title>
    <style>
      body{font-family:system-ui,-apple-system,Segoe UI,Roboto,Ubuntu,Cantarell,Noto Sans,sans-serif;max-width:680px;margin:40px auto;padding:0 16px;}
      .card{border:1px solid #e5e7eb;border-radius:12px;padding:18px;}
      .btn{display:inline-block;background:#111827;color:#fff;padding:12px 16px;border-radius:10px;border:0;cursor:pointer;}
      .muted{color:#6b7280;font-size:14px;}
      code{background:#f3f4f6;padding:2px 6px;border-radius:6px;}
    </style>
    <script src="https://checkout.razorpay.com/v1/checkout.js"></script>
  </head>
  <body>
    <h1>{{.MerchantName}}</h1>
    <div class="card">
      <p><strong>{{.Description}}</strong></p>
      <button class="btn" id="pay">Pay now</button>
      <p class="muted" id="status"></p>
      <p class="muted">Order ID: <code>{{.OrderID}}</code></p>
    </div>
    <script>
      const orderId = {{.OrderID}};
      const report = (path, body) => fetch("/checkout/" + encodeURIComponent(orderId) + path, {
        method: "POST",
        headers: {"Content-Type": "application/json"},
        body: JSON.stringify(body || {})
      });
      const done = (msg) => {
        document.getElementById("status").textContent = msg;
        document.getElementById("pay").disabled = true;
      };
      const rzp = new Razorpay({
        key: {{.Key}},
        amount: {{.Amount}},
        currency: {{.Currency}},
        name: {{.MerchantName}},
        description: {{.Description}},
        image: {{.Image}},
        order_id: orderId,
        handler: (resp) => report("/pay", resp).then(() => done("Payment received. You can close this tab.")),
        prefill: {name: {{.Prefill.Name}}, email: {{.Prefill.Email}}, contact: {{.Prefill.Contact}}},
        modal: {ondismiss: () => report("/dismiss").then(() => done("Checkout cancelled. You can close this tab."))}
      });
      document.getElementById("pay").onclick = () => rzp.open();
      rzp.open();
    </script>
  </body>
</html>`))
