package booking

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/medibook-client/internal/api"
	"github.com/wolfman30/medibook-client/internal/observability/metrics"
	"github.com/wolfman30/medibook-client/internal/payments"
	"github.com/wolfman30/medibook-client/pkg/logging"
)

type fakeBackend struct {
	mu          sync.Mutex
	calls       []string
	doctors     []api.Doctor
	doctorsErr  error
	orderErr    error
	order       *api.Order
	verifyErr   error
	bookErr     error
	orderAmount decimal.Decimal
	verified    []api.PaymentProof
	booked      []api.AppointmentRequest
}

func (f *fakeBackend) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeBackend) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeBackend) Doctors(ctx context.Context) ([]api.Doctor, error) {
	f.record("doctors")
	return f.doctors, f.doctorsErr
}

func (f *fakeBackend) CreateOrder(ctx context.Context, amount decimal.Decimal) (*api.Order, error) {
	f.record("create_order")
	f.orderAmount = amount
	if f.orderErr != nil {
		return nil, f.orderErr
	}
	if f.order != nil {
		return f.order, nil
	}
	return &api.Order{ID: "order_1", Amount: amount.Shift(2), Currency: "INR"}, nil
}

func (f *fakeBackend) VerifyPayment(ctx context.Context, proof api.PaymentProof) error {
	f.record("verify")
	f.verified = append(f.verified, proof)
	return f.verifyErr
}

func (f *fakeBackend) BookAppointment(ctx context.Context, req api.AppointmentRequest) (*api.Appointment, error) {
	f.record("book")
	f.booked = append(f.booked, req)
	if f.bookErr != nil {
		return nil, f.bookErr
	}
	return &api.Appointment{ID: 99, PatientID: req.PatientID, DoctorID: req.DoctorID, Date: req.Date, Time: req.Time, Status: req.Status, PaymentID: req.PaymentID}, nil
}

type fakeIdentity struct{ user *api.User }

func (f fakeIdentity) User() *api.User { return f.user }

// fakeGateway records checkouts and returns a scripted result.
type fakeGateway struct {
	backend   *fakeBackend
	outcome   payments.Outcome
	err       error
	block     chan struct{}
	checkouts []payments.Checkout
}

func (g *fakeGateway) BeginCheckout(ctx context.Context, c payments.Checkout) (payments.Outcome, error) {
	if g.backend != nil {
		g.backend.record("checkout")
	}
	g.checkouts = append(g.checkouts, c)
	if g.block != nil {
		select {
		case <-g.block:
		case <-ctx.Done():
			return payments.Outcome{}, ctx.Err()
		}
	}
	if g.err != nil {
		return payments.Outcome{}, g.err
	}
	return g.outcome, nil
}

var patient = &api.User{ID: 7, Name: "Priya", Email: "priya@example.com", Phone: "9800000000", Role: api.RolePatient}

// fixedNow is 14 Oct 2026, 10:30 local.
func fixedNow() time.Time {
	return time.Date(2026, time.October, 14, 10, 30, 0, 0, time.Local)
}

func successProof() payments.Outcome {
	return payments.Succeeded(api.PaymentProof{OrderID: "order_1", PaymentID: "pay_1", Signature: "sig_1"})
}

type harness struct {
	wizard  *Wizard
	backend *fakeBackend
	gateway *fakeGateway
}

func newHarness(t *testing.T, user *api.User) *harness {
	t.Helper()
	backend := &fakeBackend{doctors: []api.Doctor{
		{ID: 1, Name: "Dr. Anita Rao", Specialty: "Cardiology", Fee: decimal.NewFromInt(500)},
		{ID: 2, Name: "Dr. Vikram Shah", Specialty: "Dermatology", Fee: decimal.NewFromInt(400)},
	}}
	gateway := &fakeGateway{backend: backend, outcome: successProof()}
	w := New(backend, fakeIdentity{user: user}, gateway, Config{
		GatewayKey:     "rzp_test_key",
		MerchantName:   "MediBook Healthcare",
		MerchantLogo:   "/images/logo.png",
		ConfirmTimeout: time.Minute,
		Metrics:        metrics.NewBookingMetrics(prometheus.NewRegistry()),
		Now:            fixedNow,
	}, logging.Discard())
	return &harness{wizard: w, backend: backend, gateway: gateway}
}

// toConfirming mounts and walks to the confirmation step with doctor 1, tomorrow, 10:00 AM.
func (h *harness) toConfirming(t *testing.T) {
	t.Helper()
	h.wizard.Mount(context.Background(), 0)
	require.NoError(t, h.wizard.SelectDoctor(1))
	require.NoError(t, h.wizard.Next())
	require.NoError(t, h.wizard.SelectDate(DateOf(fixedNow()).AddDays(1)))
	require.NoError(t, h.wizard.SelectTime("10:00 AM"))
	require.NoError(t, h.wizard.Next())
	require.Equal(t, StepConfirming, h.wizard.State().Step)
}

func TestWizard_HappyPath(t *testing.T) {
	h := newHarness(t, patient)
	h.toConfirming(t)
	require.True(t, h.wizard.ConfirmEnabled())

	require.NoError(t, h.wizard.Confirm(context.Background()))

	assert.Equal(t, []string{"doctors", "create_order", "checkout", "verify", "book"}, h.backend.Calls())
	assert.True(t, decimal.NewFromInt(500).Equal(h.backend.orderAmount))

	require.Len(t, h.gateway.checkouts, 1)
	c := h.gateway.checkouts[0]
	assert.Equal(t, "order_1", c.OrderID)
	assert.Equal(t, "rzp_test_key", c.Key)
	assert.Equal(t, "INR", c.Currency)
	assert.True(t, decimal.NewFromInt(50000).Equal(c.Amount))
	assert.Equal(t, "Consultation with Dr. Anita Rao", c.Description)
	assert.Equal(t, payments.Prefill{Name: "Priya", Email: "priya@example.com", Contact: "9800000000"}, c.Prefill)

	require.Len(t, h.backend.verified, 1)
	assert.Equal(t, api.PaymentProof{OrderID: "order_1", PaymentID: "pay_1", Signature: "sig_1"}, h.backend.verified[0])
	require.Len(t, h.backend.booked, 1)
	assert.Equal(t, api.AppointmentRequest{
		PatientID: 7,
		DoctorID:  1,
		Date:      "2026-10-15",
		Time:      "10:00 AM",
		Status:    api.StatusUpcoming,
		PaymentID: "pay_1",
	}, h.backend.booked[0])

	st := h.wizard.State()
	assert.Equal(t, StepBooked, st.Step)
	assert.False(t, st.Submitting)
	assert.Nil(t, st.Failure)
	require.NotNil(t, st.Booked)
	assert.Equal(t, "Dr. Anita Rao", st.Booked.Doctor.Name)
	assert.Equal(t, "10:00 AM", st.Booked.Time)
	assert.Equal(t, int64(99), st.Booked.Appointment.ID)

	assert.ErrorIs(t, h.wizard.Confirm(context.Background()), ErrBooked)
	assert.ErrorIs(t, h.wizard.Back(), ErrBooked)
}

func TestWizard_VerifyFailureIsPartialAndSkipsPersist(t *testing.T) {
	h := newHarness(t, patient)
	h.backend.verifyErr = errors.New("signature mismatch")
	h.toConfirming(t)

	err := h.wizard.Confirm(context.Background())
	var failure *Failure
	require.ErrorAs(t, err, &failure)
	assert.Equal(t, FailurePartial, failure.Kind)
	assert.Equal(t, "pay_1", failure.PaymentID)

	assert.Empty(t, h.backend.booked)
	assert.NotContains(t, h.backend.Calls(), "book")

	st := h.wizard.State()
	assert.Equal(t, StepConfirming, st.Step)
	require.NotNil(t, st.Failure)
	assert.Equal(t, "Payment successful but booking failed. Please contact support.", st.Failure.Message)
	assert.False(t, h.wizard.ConfirmEnabled())
	assert.ErrorIs(t, h.wizard.Confirm(context.Background()), ErrContactSupport)
	assert.Equal(t, 1, countCalls(h.backend.Calls(), "create_order"))
}

func TestWizard_PersistFailureIsPartial(t *testing.T) {
	h := newHarness(t, patient)
	h.backend.bookErr = &api.Error{StatusCode: 500, Path: "/appointments", Message: "db down"}
	h.toConfirming(t)

	err := h.wizard.Confirm(context.Background())
	var failure *Failure
	require.ErrorAs(t, err, &failure)
	assert.Equal(t, FailurePartial, failure.Kind)
	assert.Equal(t, MsgPartialFailure, h.wizard.State().Failure.Message)
	assert.Equal(t, []string{"doctors", "create_order", "checkout", "verify", "book"}, h.backend.Calls())

	// Going back keeps the partial failure visible and confirm locked.
	require.NoError(t, h.wizard.Back())
	require.NoError(t, h.wizard.Next())
	assert.NotNil(t, h.wizard.State().Failure)
	assert.False(t, h.wizard.ConfirmEnabled())
}

func TestWizard_ProofForOtherOrderNeverVerified(t *testing.T) {
	h := newHarness(t, patient)
	h.gateway.outcome = payments.Succeeded(api.PaymentProof{OrderID: "order_other", PaymentID: "pay_1", Signature: "sig"})
	h.toConfirming(t)

	var failure *Failure
	require.ErrorAs(t, h.wizard.Confirm(context.Background()), &failure)
	assert.Equal(t, FailurePartial, failure.Kind)
	assert.Empty(t, h.backend.verified)
	assert.Empty(t, h.backend.booked)
}

func TestWizard_OrderFailureIsRetryable(t *testing.T) {
	h := newHarness(t, patient)
	h.backend.orderErr = errors.New("gateway unreachable")
	h.toConfirming(t)

	var failure *Failure
	require.ErrorAs(t, h.wizard.Confirm(context.Background()), &failure)
	assert.Equal(t, FailureInitiate, failure.Kind)
	assert.Equal(t, "Failed to initiate booking. Please try again.", h.wizard.State().Failure.Message)
	assert.Empty(t, h.gateway.checkouts)
	assert.True(t, h.wizard.ConfirmEnabled())

	h.backend.orderErr = nil
	require.NoError(t, h.wizard.Confirm(context.Background()))
	assert.Equal(t, StepBooked, h.wizard.State().Step)
	assert.Equal(t, 2, countCalls(h.backend.Calls(), "create_order"))
}

func TestWizard_DismissReenablesWithoutError(t *testing.T) {
	h := newHarness(t, patient)
	h.gateway.outcome = payments.Dismissed()
	h.toConfirming(t)

	require.NoError(t, h.wizard.Confirm(context.Background()))
	st := h.wizard.State()
	assert.Equal(t, StepConfirming, st.Step)
	assert.Nil(t, st.Failure)
	assert.False(t, st.Submitting)
	assert.True(t, h.wizard.ConfirmEnabled())
	assert.Empty(t, h.backend.verified)
}

func TestWizard_CheckoutTimeout(t *testing.T) {
	h := newHarness(t, patient)
	h.gateway.err = payments.ErrCheckoutTimeout
	h.toConfirming(t)

	var failure *Failure
	require.ErrorAs(t, h.wizard.Confirm(context.Background()), &failure)
	assert.Equal(t, FailureCheckoutTimeout, failure.Kind)
	assert.Equal(t, MsgCheckoutTimeout, h.wizard.State().Failure.Message)
	assert.Empty(t, h.backend.verified)
	assert.True(t, h.wizard.ConfirmEnabled())
}

func TestWizard_ConfirmTimeoutBoundsCheckout(t *testing.T) {
	h := newHarness(t, patient)
	h.gateway.block = make(chan struct{})
	h.wizard.cfg.ConfirmTimeout = 20 * time.Millisecond
	h.toConfirming(t)

	var failure *Failure
	require.ErrorAs(t, h.wizard.Confirm(context.Background()), &failure)
	assert.Equal(t, FailureCheckoutTimeout, failure.Kind)
	assert.ErrorIs(t, failure, context.DeadlineExceeded)
}

func TestWizard_GatewayOpenErrorIsInitiateFailure(t *testing.T) {
	h := newHarness(t, patient)
	h.gateway.err = errors.New("payments: open checkout: address in use")
	h.toConfirming(t)

	var failure *Failure
	require.ErrorAs(t, h.wizard.Confirm(context.Background()), &failure)
	assert.Equal(t, FailureInitiate, failure.Kind)
}

func TestWizard_UnauthenticatedConfirmMakesNoCalls(t *testing.T) {
	h := newHarness(t, nil)
	h.toConfirming(t)
	before := h.backend.Calls()

	assert.ErrorIs(t, h.wizard.Confirm(context.Background()), ErrLoginRequired)
	assert.Equal(t, before, h.backend.Calls())
	assert.Equal(t, []string{"doctors"}, before)
	assert.Empty(t, h.gateway.checkouts)
	assert.Equal(t, StepConfirming, h.wizard.State().Step)
}

func TestWizard_SingleConfirmInFlight(t *testing.T) {
	h := newHarness(t, patient)
	h.gateway.block = make(chan struct{})
	h.toConfirming(t)

	done := make(chan error, 1)
	go func() { done <- h.wizard.Confirm(context.Background()) }()

	require.Eventually(t, func() bool { return h.wizard.State().Submitting }, time.Second, time.Millisecond)
	assert.False(t, h.wizard.ConfirmEnabled())
	assert.ErrorIs(t, h.wizard.Confirm(context.Background()), ErrConfirmInFlight)
	assert.ErrorIs(t, h.wizard.Back(), ErrConfirmInFlight)
	assert.ErrorIs(t, h.wizard.SelectTime("11:00 AM"), ErrConfirmInFlight)

	close(h.gateway.block)
	require.NoError(t, <-done)
	assert.Equal(t, StepBooked, h.wizard.State().Step)
	assert.Equal(t, 1, countCalls(h.backend.Calls(), "create_order"))
}

func TestWizard_PastDateRejectedAtSelection(t *testing.T) {
	h := newHarness(t, patient)
	h.wizard.Mount(context.Background(), 1)
	today := DateOf(fixedNow())

	for _, d := range []Date{today.AddDays(-1), today.AddDays(-365), {}} {
		assert.ErrorIs(t, h.wizard.SelectDate(d), ErrPastDate)
		assert.Equal(t, today, h.wizard.State().Draft.Date)
	}
	require.NoError(t, h.wizard.SelectDate(today))
	require.NoError(t, h.wizard.SelectDate(today.AddDays(3)))
	assert.Equal(t, today.AddDays(3), h.wizard.State().Draft.Date)
}

func TestWizard_StaleDateRecheckedOnConfirm(t *testing.T) {
	now := fixedNow()
	h := newHarness(t, patient)
	h.wizard.now = func() time.Time { return now }
	h.toConfirming(t)

	// The draft was for tomorrow; two days pass before confirm is pressed.
	now = now.Add(48 * time.Hour)
	var failure *Failure
	require.ErrorAs(t, h.wizard.Confirm(context.Background()), &failure)
	assert.Equal(t, FailureInvalidDate, failure.Kind)
	assert.Equal(t, "Please select a valid future date.", h.wizard.State().Failure.Message)
	assert.Equal(t, []string{"doctors"}, h.backend.Calls())
	assert.True(t, h.wizard.ConfirmEnabled())
}

func TestWizard_DateChangeClearsPassedSlot(t *testing.T) {
	h := newHarness(t, patient)
	h.wizard.Mount(context.Background(), 1)
	today := DateOf(fixedNow())

	require.NoError(t, h.wizard.SelectDate(today.AddDays(1)))
	require.NoError(t, h.wizard.SelectTime("09:00 AM"))
	require.NoError(t, h.wizard.SelectDate(today))

	assert.Empty(t, h.wizard.State().Draft.Time)
	assert.False(t, h.wizard.CanProceed())
	assert.ErrorIs(t, h.wizard.Next(), ErrStepBlocked)

	// A slot still open on the new day survives the change.
	require.NoError(t, h.wizard.SelectDate(today.AddDays(2)))
	require.NoError(t, h.wizard.SelectTime("03:00 PM"))
	require.NoError(t, h.wizard.SelectDate(today))
	assert.Equal(t, "03:00 PM", h.wizard.State().Draft.Time)
}

func TestWizard_PassedSlotRecheckedOnConfirm(t *testing.T) {
	now := fixedNow()
	h := newHarness(t, patient)
	h.wizard.now = func() time.Time { return now }
	h.wizard.Mount(context.Background(), 1)
	require.NoError(t, h.wizard.SelectTime("11:00 AM"))
	require.NoError(t, h.wizard.Next())

	now = time.Date(2026, time.October, 14, 11, 5, 0, 0, time.Local)
	var failure *Failure
	require.ErrorAs(t, h.wizard.Confirm(context.Background()), &failure)
	assert.Equal(t, FailureSlotPassed, failure.Kind)
	assert.Equal(t, MsgSlotPassed, h.wizard.State().Failure.Message)
	assert.Equal(t, []string{"doctors"}, h.backend.Calls())
	assert.Empty(t, h.backend.booked)

	require.NoError(t, h.wizard.Back())
	assert.Nil(t, h.wizard.State().Failure)
	assert.False(t, h.wizard.CanProceed())
}

func TestWizard_DoctorFixedAfterFirstStep(t *testing.T) {
	h := newHarness(t, patient)
	h.toConfirming(t)

	assert.ErrorIs(t, h.wizard.SelectDoctor(2), ErrStepBlocked)
	require.NoError(t, h.wizard.Back())
	assert.ErrorIs(t, h.wizard.SelectDoctor(2), ErrStepBlocked)
	require.NoError(t, h.wizard.Back())
	require.NoError(t, h.wizard.SelectDoctor(2))
	assert.Equal(t, int64(2), h.wizard.State().Draft.Doctor.ID)
}

func TestWizard_SlotsForToday(t *testing.T) {
	h := newHarness(t, patient)
	h.wizard.Mount(context.Background(), 1)

	avail := map[string]bool{}
	for _, s := range h.wizard.Slots() {
		avail[s.Label] = s.Available
	}
	assert.False(t, avail["09:00 AM"])
	assert.False(t, avail["10:00 AM"])
	assert.True(t, avail["11:00 AM"])
	assert.True(t, avail["05:00 PM"])

	assert.ErrorIs(t, h.wizard.SelectTime("09:00 AM"), ErrSlotUnavailable)
	assert.ErrorIs(t, h.wizard.SelectTime("01:00 PM"), ErrUnknownSlot)
	require.NoError(t, h.wizard.SelectTime("11:00 AM"))

	require.NoError(t, h.wizard.SelectDate(DateOf(fixedNow()).AddDays(1)))
	for _, s := range h.wizard.Slots() {
		assert.True(t, s.Available, s.Label)
		assert.Equal(t, s.Label == "11:00 AM", s.Selected)
	}
}

func TestWizard_SlotsRecomputeAsTimePasses(t *testing.T) {
	now := fixedNow()
	h := newHarness(t, patient)
	h.wizard.now = func() time.Time { return now }
	h.wizard.Mount(context.Background(), 1)

	isAvailable := func(label string) bool {
		for _, s := range h.wizard.Slots() {
			if s.Label == label {
				return s.Available
			}
		}
		return false
	}
	assert.True(t, isAvailable("11:00 AM"))
	now = time.Date(2026, time.October, 14, 11, 0, 0, 0, time.Local)
	assert.False(t, isAvailable("11:00 AM"))
	assert.True(t, isAvailable("12:00 PM"))
}

func TestWizard_StepGuards(t *testing.T) {
	h := newHarness(t, patient)
	h.wizard.Mount(context.Background(), 0)

	assert.Equal(t, StepSelectingDoctor, h.wizard.State().Step)
	assert.False(t, h.wizard.CanProceed())
	assert.ErrorIs(t, h.wizard.Next(), ErrStepBlocked)
	assert.ErrorIs(t, h.wizard.SelectDoctor(42), ErrUnknownDoctor)

	require.NoError(t, h.wizard.SelectDoctor(2))
	assert.True(t, h.wizard.CanProceed())
	require.NoError(t, h.wizard.Next())

	assert.Equal(t, StepSelectingDateTime, h.wizard.State().Step)
	assert.False(t, h.wizard.CanProceed(), "time not yet chosen")
	assert.ErrorIs(t, h.wizard.Next(), ErrStepBlocked)
	assert.ErrorIs(t, h.wizard.Confirm(context.Background()), ErrNotConfirming)

	require.NoError(t, h.wizard.SelectTime("04:00 PM"))
	assert.True(t, h.wizard.CanProceed())
	require.NoError(t, h.wizard.Next())
	assert.Equal(t, StepConfirming, h.wizard.State().Step)
	assert.ErrorIs(t, h.wizard.Next(), ErrStepBlocked)

	require.NoError(t, h.wizard.Back())
	require.NoError(t, h.wizard.Back())
	require.NoError(t, h.wizard.Back())
	assert.Equal(t, StepSelectingDoctor, h.wizard.State().Step)
	assert.Equal(t, int64(2), h.wizard.State().Draft.Doctor.ID)
}

func TestWizard_EntryDoctorPreselects(t *testing.T) {
	h := newHarness(t, patient)
	h.wizard.Mount(context.Background(), 2)

	st := h.wizard.State()
	assert.Equal(t, StepSelectingDateTime, st.Step)
	require.NotNil(t, st.Draft.Doctor)
	assert.Equal(t, "Dr. Vikram Shah", st.Draft.Doctor.Name)
	assert.Equal(t, DateOf(fixedNow()), st.Draft.Date)
}

func TestWizard_UnknownEntryDoctorStartsAtDoctorStep(t *testing.T) {
	h := newHarness(t, patient)
	h.wizard.Mount(context.Background(), 77)

	st := h.wizard.State()
	assert.Equal(t, StepSelectingDoctor, st.Step)
	assert.Nil(t, st.Draft.Doctor)
}

func TestWizard_DirectoryFetchedOncePerMount(t *testing.T) {
	h := newHarness(t, patient)
	h.wizard.Mount(context.Background(), 0)
	require.NoError(t, h.wizard.SelectDoctor(1))
	require.NoError(t, h.wizard.Next())
	require.NoError(t, h.wizard.Back())
	require.NoError(t, h.wizard.Next())
	h.wizard.Mount(context.Background(), 0)

	assert.Equal(t, 1, countCalls(h.backend.Calls(), "doctors"))
}

func TestWizard_DirectoryFailureLeavesEmptyList(t *testing.T) {
	h := newHarness(t, patient)
	h.backend.doctorsErr = errors.New("connection refused")
	h.wizard.Mount(context.Background(), 1)

	st := h.wizard.State()
	assert.Empty(t, st.Doctors)
	assert.Equal(t, StepSelectingDoctor, st.Step)
	assert.ErrorIs(t, h.wizard.SelectDoctor(1), ErrUnknownDoctor)
}

func TestWizard_ResultDiscardedAfterClose(t *testing.T) {
	h := newHarness(t, patient)
	h.gateway.block = make(chan struct{})
	h.toConfirming(t)

	done := make(chan error, 1)
	go func() { done <- h.wizard.Confirm(context.Background()) }()
	require.Eventually(t, func() bool { return h.wizard.State().Submitting }, time.Second, time.Millisecond)

	h.wizard.Close()
	close(h.gateway.block)
	assert.ErrorIs(t, <-done, ErrClosed)

	st := h.wizard.State()
	assert.Equal(t, StepConfirming, st.Step)
	assert.Nil(t, st.Booked)
	assert.ErrorIs(t, h.wizard.SelectDoctor(1), ErrClosed)
	assert.False(t, h.wizard.ConfirmEnabled())
}

func TestWizard_StateIsACopy(t *testing.T) {
	h := newHarness(t, patient)
	h.wizard.Mount(context.Background(), 1)

	st := h.wizard.State()
	st.Draft.Doctor.Name = "mutated"
	st.Doctors[0].Name = "mutated"

	again := h.wizard.State()
	assert.Equal(t, "Dr. Anita Rao", again.Draft.Doctor.Name)
	assert.Equal(t, "Dr. Anita Rao", again.Doctors[0].Name)
}

func TestStepAndFailureNames(t *testing.T) {
	assert.Equal(t, "confirming", StepConfirming.String())
	assert.Equal(t, "step(9)", Step(9).String())
	assert.Equal(t, "partial_failure", FailurePartial.String())
	assert.Equal(t, "slot_passed", FailureSlotPassed.String())

	f := &Failure{Kind: FailureInitiate, Err: errors.New("boom")}
	assert.EqualError(t, f, "booking: initiate_failed: boom")
}

func countCalls(calls []string, name string) int {
	n := 0
	for _, c := range calls {
		if c == name {
			n++
		}
	}
	return n
}
