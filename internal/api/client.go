package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/wolfman30/medibook-client/pkg/logging"
)

const defaultTimeout = 15 * time.Second

// TokenSource yields the persisted session token, or "" when there is none.
type TokenSource interface {
	Load(ctx context.Context) (string, error)
}

// Client wraps the REST calls the MediBook web client makes.
type Client struct {
	httpClient *http.Client
	baseURL    string
	tokens     TokenSource
	logger     *logging.Logger
}

// NewClient constructs an API client. tokens may be nil for anonymous use.
func NewClient(baseURL string, tokens TokenSource, timeout time.Duration, logger *logging.Logger) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		tokens:     tokens,
		logger:     logger,
	}
}

// Login exchanges credentials for an identity and token.
func (c *Client) Login(ctx context.Context, creds Credentials) (*User, error) {
	var out User
	if err := c.doJSON(ctx, http.MethodPost, "/auth/login", creds, &out); err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	return &out, nil
}

// Register creates a patient account.
func (c *Client) Register(ctx context.Context, reg Registration) (*User, error) {
	var out User
	if err := c.doJSON(ctx, http.MethodPost, "/auth/register", reg, &out); err != nil {
		return nil, fmt.Errorf("register: %w", err)
	}
	return &out, nil
}

// RegisterDoctor creates a doctor account.
func (c *Client) RegisterDoctor(ctx context.Context, reg DoctorRegistration) (*User, error) {
	var out User
	if err := c.doJSON(ctx, http.MethodPost, "/auth/register/doctor", reg, &out); err != nil {
		return nil, fmt.Errorf("register doctor: %w", err)
	}
	return &out, nil
}

// Me returns the identity bound to the current token.
func (c *Client) Me(ctx context.Context) (*User, error) {
	var out User
	if err := c.doJSON(ctx, http.MethodGet, "/auth/me", nil, &out); err != nil {
		return nil, fmt.Errorf("get me: %w", err)
	}
	return &out, nil
}

// Doctors lists the doctor directory.
func (c *Client) Doctors(ctx context.Context) ([]Doctor, error) {
	var out []Doctor
	if err := c.doJSON(ctx, http.MethodGet, "/doctors", nil, &out); err != nil {
		return nil, fmt.Errorf("get doctors: %w", err)
	}
	return out, nil
}

// Services lists the offered services.
func (c *Client) Services(ctx context.Context) ([]Service, error) {
	var out []Service
	if err := c.doJSON(ctx, http.MethodGet, "/services", nil, &out); err != nil {
		return nil, fmt.Errorf("get services: %w", err)
	}
	return out, nil
}

// Testimonials lists patient testimonials.
func (c *Client) Testimonials(ctx context.Context) ([]Testimonial, error) {
	var out []Testimonial
	if err := c.doJSON(ctx, http.MethodGet, "/testimonials", nil, &out); err != nil {
		return nil, fmt.Errorf("get testimonials: %w", err)
	}
	return out, nil
}

// CreateOrder requests a payment order for amount.
func (c *Client) CreateOrder(ctx context.Context, amount decimal.Decimal) (*Order, error) {
	body := struct {
		Amount json.Number `json:"amount"`
	}{Amount: json.Number(amount.String())}
	var out Order
	if err := c.doJSON(ctx, http.MethodPost, "/payment/create-order", body, &out); err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}
	if strings.TrimSpace(out.ID) == "" {
		return nil, fmt.Errorf("create order: response missing order id")
	}
	return &out, nil
}

// VerifyPayment asks the server to check the gateway's proof.
func (c *Client) VerifyPayment(ctx context.Context, proof PaymentProof) error {
	var out struct {
		Success *bool `json:"success"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/payment/verify", proof, &out); err != nil {
		return fmt.Errorf("verify payment: %w", err)
	}
	if out.Success != nil && !*out.Success {
		return ErrPaymentNotVerified
	}
	return nil
}

// BookAppointment persists an appointment.
func (c *Client) BookAppointment(ctx context.Context, req AppointmentRequest) (*Appointment, error) {
	var out Appointment
	if err := c.doJSON(ctx, http.MethodPost, "/appointments", req, &out); err != nil {
		return nil, fmt.Errorf("book appointment: %w", err)
	}
	return &out, nil
}

// PatientAppointments lists a patient's appointments.
func (c *Client) PatientAppointments(ctx context.Context, patientID int64) ([]Appointment, error) {
	var out []Appointment
	path := "/appointments/patient/" + strconv.FormatInt(patientID, 10)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, fmt.Errorf("get patient appointments: %w", err)
	}
	return out, nil
}

// DoctorAppointments lists a doctor's appointments.
func (c *Client) DoctorAppointments(ctx context.Context, doctorID int64) ([]Appointment, error) {
	var out []Appointment
	path := "/appointments/doctor/" + strconv.FormatInt(doctorID, 10)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, fmt.Errorf("get doctor appointments: %w", err)
	}
	return out, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, body interface{}, out interface{}) error {
	endpoint := c.baseURL + path

	var bodyReader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, bodyReader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	reqID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", reqID)
	if c.tokens != nil {
		token, err := c.tokens.Load(ctx)
		if err != nil {
			c.logger.Warn("session token unavailable", "error", err, "path", path)
		} else if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	c.logger.Debug("api request completed",
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"request_id", reqID,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := newError(resp.StatusCode, path, respBody)
		c.logger.Warn("medibook API non-2xx response", "status", resp.StatusCode, "path", path, "request_id", reqID, "body", apiErr.Message)
		return apiErr
	}

	if len(respBody) == 0 || out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
