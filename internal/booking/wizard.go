// Package booking implements the appointment booking wizard: doctor choice,
// date and time selection, and the paid confirmation chain
// (create order, checkout, verify payment, persist appointment).
package booking

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/wolfman30/medibook-client/internal/api"
	"github.com/wolfman30/medibook-client/internal/directory"
	"github.com/wolfman30/medibook-client/internal/observability/metrics"
	"github.com/wolfman30/medibook-client/internal/payments"
	"github.com/wolfman30/medibook-client/pkg/logging"
)

var bookingTracer = otel.Tracer("medibook.internal.booking")

// User-facing failure messages.
const (
	MsgInitiateFailed  = "Failed to initiate booking. Please try again."
	MsgPartialFailure  = "Payment successful but booking failed. Please contact support."
	MsgInvalidDate     = "Please select a valid future date."
	MsgCheckoutTimeout = "The payment window timed out. If you were charged, please contact support before retrying."
	MsgSlotPassed      = "The selected time slot has passed. Please choose another time."
)

var (
	ErrLoginRequired   = errors.New("booking: you must be logged in to confirm an appointment")
	ErrConfirmInFlight = errors.New("booking: a confirmation is already in progress")
	ErrContactSupport  = errors.New("booking: payment was taken but the booking failed; contact support instead of retrying")
	ErrNotConfirming   = errors.New("booking: confirm is only available on the confirmation step")
	ErrStepBlocked     = errors.New("booking: complete the current step first")
	ErrPastDate        = errors.New("booking: date is in the past")
	ErrUnknownDoctor   = errors.New("booking: doctor not found")
	ErrUnknownSlot     = errors.New("booking: unknown time slot")
	ErrSlotUnavailable = errors.New("booking: time slot is no longer available")
	ErrBooked          = errors.New("booking: appointment already booked")
	ErrClosed          = errors.New("booking: wizard closed")
)

// Step is the wizard's position.
type Step int

const (
	StepSelectingDoctor Step = iota
	StepSelectingDateTime
	StepConfirming
	StepBooked
)

func (s Step) String() string {
	switch s {
	case StepSelectingDoctor:
		return "selecting_doctor"
	case StepSelectingDateTime:
		return "selecting_date_time"
	case StepConfirming:
		return "confirming"
	case StepBooked:
		return "booked"
	default:
		return fmt.Sprintf("step(%d)", int(s))
	}
}

// FailureKind classifies a failed confirm attempt.
type FailureKind int

const (
	// FailureInitiate means nothing was charged; retrying is safe.
	FailureInitiate FailureKind = iota + 1
	// FailurePartial means payment settled but the appointment was not recorded.
	FailurePartial
	// FailureInvalidDate means the draft date went stale before ordering.
	FailureInvalidDate
	// FailureCheckoutTimeout means the payment widget never reported back.
	FailureCheckoutTimeout
	// FailureSlotPassed means the draft time slot went stale before ordering.
	FailureSlotPassed
)

func (k FailureKind) String() string {
	switch k {
	case FailureInitiate:
		return "initiate_failed"
	case FailurePartial:
		return "partial_failure"
	case FailureInvalidDate:
		return "invalid_date"
	case FailureCheckoutTimeout:
		return "checkout_timeout"
	case FailureSlotPassed:
		return "slot_passed"
	default:
		return "unknown"
	}
}

// Failure is the error payload shown on the confirmation step.
type Failure struct {
	Kind    FailureKind
	Message string
	// PaymentID is set for partial failures so support can trace the charge.
	PaymentID string
	Err       error
}

func (f *Failure) Error() string {
	if f.Err != nil {
		return fmt.Sprintf("booking: %s: %v", f.Kind, f.Err)
	}
	return "booking: " + f.Kind.String()
}

func (f *Failure) Unwrap() error { return f.Err }

// Draft is the in-progress selection.
type Draft struct {
	Doctor *api.Doctor
	Date   Date
	Time   string
}

// Confirmation is what a successful booking shows.
type Confirmation struct {
	Doctor      api.Doctor
	Date        Date
	Time        string
	Appointment *api.Appointment
}

// SlotView is a time slot as presented for the draft's date.
type SlotView struct {
	Label     string
	Available bool
	Selected  bool
}

// State is a snapshot of the wizard for rendering.
type State struct {
	Step       Step
	Draft      Draft
	Doctors    []api.Doctor
	Submitting bool
	Failure    *Failure
	Booked     *Confirmation
}

// Backend is the subset of the API the wizard calls.
type Backend interface {
	directory.DoctorSource
	CreateOrder(ctx context.Context, amount decimal.Decimal) (*api.Order, error)
	VerifyPayment(ctx context.Context, proof api.PaymentProof) error
	BookAppointment(ctx context.Context, req api.AppointmentRequest) (*api.Appointment, error)
}

// Identity reports the signed-in user, or nil.
type Identity interface {
	User() *api.User
}

// Config carries the merchant details shown in checkout and the confirm bound.
type Config struct {
	GatewayKey     string
	MerchantName   string
	MerchantLogo   string
	ConfirmTimeout time.Duration
	Metrics        *metrics.BookingMetrics
	// Now overrides the clock; defaults to time.Now.
	Now func() time.Time
}

// Wizard drives one booking. Create one per visit; it is safe for concurrent use.
type Wizard struct {
	backend   Backend
	directory *directory.Directory
	identity  Identity
	gateway   payments.Gateway
	cfg       Config
	logger    *logging.Logger
	metrics   *metrics.BookingMetrics
	now       func() time.Time

	mu         sync.Mutex
	mounted    bool
	closed     bool
	doctors    []api.Doctor
	step       Step
	draft      Draft
	submitting bool
	lockedOut  bool
	failure    *Failure
	booked     *Confirmation
}

func New(backend Backend, identity Identity, gateway payments.Gateway, cfg Config, logger *logging.Logger) *Wizard {
	if backend == nil || identity == nil || gateway == nil {
		panic("booking: backend, identity and gateway required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Wizard{
		backend:   backend,
		directory: directory.New(backend, logger, cfg.Metrics),
		identity:  identity,
		gateway:   gateway,
		cfg:       cfg,
		logger:    logger,
		metrics:   cfg.Metrics,
		now:       now,
		step:      StepSelectingDoctor,
		draft:     Draft{Date: DateOf(now())},
	}
}

// Mount loads the doctor directory. When entryDoctorID names a listed doctor it is
// preselected and the wizard starts on date and time selection. Pass 0 for none.
// A failed fetch leaves the directory empty; later calls never refetch.
func (w *Wizard) Mount(ctx context.Context, entryDoctorID int64) {
	doctors := w.directory.Doctors(ctx)

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.mounted || w.closed {
		return
	}
	w.mounted = true
	w.doctors = doctors
	if entryDoctorID == 0 {
		return
	}
	for i := range doctors {
		if doctors[i].ID == entryDoctorID {
			doc := doctors[i]
			w.draft.Doctor = &doc
			w.step = StepSelectingDateTime
			return
		}
	}
	w.logger.Warn("entry doctor not in directory", "doctor_id", entryDoctorID)
}

// SelectDoctor picks a doctor from the loaded directory. Only allowed on the doctor step.
func (w *Wizard) SelectDoctor(id int64) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.editableLocked(); err != nil {
		return err
	}
	if w.step != StepSelectingDoctor {
		return ErrStepBlocked
	}
	for i := range w.doctors {
		if w.doctors[i].ID == id {
			doc := w.doctors[i]
			w.draft.Doctor = &doc
			return nil
		}
	}
	return ErrUnknownDoctor
}

// SelectDate sets the appointment day. Days before today are rejected and the draft keeps its date.
// A chosen time that is no longer open on the new day is cleared.
func (w *Wizard) SelectDate(d Date) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.editableLocked(); err != nil {
		return err
	}
	now := w.now()
	if d.IsZero() || d.Before(DateOf(now)) {
		return ErrPastDate
	}
	w.draft.Date = d
	if w.draft.Time != "" && !w.draftSlotOpenLocked(now) {
		w.draft.Time = ""
	}
	return nil
}

func (w *Wizard) draftSlotOpenLocked(now time.Time) bool {
	slot, ok := LookupSlot(w.draft.Time)
	return ok && SlotAvailable(w.draft.Date, slot, now)
}

// SelectTime picks a slot by label. Slots that already passed today are rejected.
func (w *Wizard) SelectTime(label string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.editableLocked(); err != nil {
		return err
	}
	slot, ok := LookupSlot(label)
	if !ok {
		return ErrUnknownSlot
	}
	if !SlotAvailable(w.draft.Date, slot, w.now()) {
		return ErrSlotUnavailable
	}
	w.draft.Time = slot.Label
	return nil
}

// Slots lists every slot for the draft's date with availability as of now.
func (w *Wizard) Slots() []SlotView {
	w.mu.Lock()
	defer w.mu.Unlock()
	now := w.now()
	out := make([]SlotView, 0, len(TimeSlots))
	for _, s := range TimeSlots {
		out = append(out, SlotView{
			Label:     s.Label,
			Available: SlotAvailable(w.draft.Date, s, now),
			Selected:  s.Label == w.draft.Time,
		})
	}
	return out
}

// CanProceed reports whether Next would advance.
func (w *Wizard) CanProceed() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.canProceedLocked()
}

func (w *Wizard) canProceedLocked() bool {
	switch w.step {
	case StepSelectingDoctor:
		return w.draft.Doctor != nil
	case StepSelectingDateTime:
		return !w.draft.Date.IsZero() && w.draft.Time != "" && w.draftSlotOpenLocked(w.now())
	default:
		return false
	}
}

// Next advances one step when the current step is complete.
func (w *Wizard) Next() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.editableLocked(); err != nil {
		return err
	}
	if !w.canProceedLocked() {
		return ErrStepBlocked
	}
	w.step++
	return nil
}

// Back returns to the previous step. It is a no-op on the first step.
func (w *Wizard) Back() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.editableLocked(); err != nil {
		return err
	}
	if w.step > StepSelectingDoctor {
		w.step--
	}
	if w.failure != nil && w.failure.Kind != FailurePartial {
		w.failure = nil
	}
	return nil
}

// ConfirmEnabled reports whether the confirm control should be active.
func (w *Wizard) ConfirmEnabled() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return !w.closed && w.step == StepConfirming && !w.submitting && !w.lockedOut
}

// State returns a snapshot safe to keep.
func (w *Wizard) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	st := State{
		Step:       w.step,
		Draft:      w.draft,
		Doctors:    append([]api.Doctor(nil), w.doctors...),
		Submitting: w.submitting,
	}
	if w.draft.Doctor != nil {
		doc := *w.draft.Doctor
		st.Draft.Doctor = &doc
	}
	if w.failure != nil {
		f := *w.failure
		st.Failure = &f
	}
	if w.booked != nil {
		b := *w.booked
		st.Booked = &b
	}
	return st
}

// Close abandons the wizard. An in-flight confirm keeps running but its result is not applied.
func (w *Wizard) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
}

func (w *Wizard) editableLocked() error {
	switch {
	case w.closed:
		return ErrClosed
	case w.submitting:
		return ErrConfirmInFlight
	case w.step == StepBooked:
		return ErrBooked
	}
	return nil
}

// Confirm runs the paid confirmation chain for the current draft.
//
// Refusals (not signed in, already submitting, locked after a partial failure,
// wrong step) return a sentinel error and touch nothing. Otherwise the chain runs
// order, checkout, verify, persist strictly in that order. A dismissed checkout
// returns nil with the wizard still confirming; a failed step returns a *Failure
// that is also visible in State. Success moves the wizard to StepBooked.
func (w *Wizard) Confirm(ctx context.Context) error {
	w.mu.Lock()
	switch {
	case w.closed:
		w.mu.Unlock()
		return ErrClosed
	case w.step == StepBooked:
		w.mu.Unlock()
		return ErrBooked
	case w.step != StepConfirming:
		w.mu.Unlock()
		return ErrNotConfirming
	case w.submitting:
		w.mu.Unlock()
		return ErrConfirmInFlight
	case w.lockedOut:
		w.mu.Unlock()
		return ErrContactSupport
	}
	user := w.identity.User()
	if user == nil {
		w.mu.Unlock()
		w.metrics.ObserveConfirm("login_required")
		return ErrLoginRequired
	}
	if w.draft.Doctor == nil || w.draft.Time == "" {
		w.mu.Unlock()
		return ErrStepBlocked
	}
	draft := w.draft
	doctor := *w.draft.Doctor
	w.failure = nil
	now := w.now()
	switch {
	case draft.Date.Before(DateOf(now)):
		w.failure = &Failure{Kind: FailureInvalidDate, Message: MsgInvalidDate}
	case !w.draftSlotOpenLocked(now):
		w.failure = &Failure{Kind: FailureSlotPassed, Message: MsgSlotPassed}
	}
	if w.failure != nil {
		f := *w.failure
		w.mu.Unlock()
		w.metrics.ObserveConfirm(f.Kind.String())
		return &f
	}
	w.submitting = true
	w.mu.Unlock()

	if w.cfg.ConfirmTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.cfg.ConfirmTimeout)
		defer cancel()
	}

	ctx, span := bookingTracer.Start(ctx, "booking.confirm")
	defer span.End()
	span.SetAttributes(
		attribute.Int64("medibook.doctor_id", doctor.ID),
		attribute.Int64("medibook.patient_id", user.ID),
		attribute.String("medibook.date", draft.Date.String()),
		attribute.String("medibook.time", draft.Time),
	)

	result, failure := w.runChain(ctx, user, doctor, draft)
	if failure != nil {
		span.RecordError(failure)
		span.SetStatus(codes.Error, failure.Kind.String())
	}
	return w.finish(result, failure)
}

// chainResult is nil for a dismissed checkout.
type chainResult struct {
	confirmation *Confirmation
}

func (w *Wizard) runChain(ctx context.Context, user *api.User, doctor api.Doctor, draft Draft) (*chainResult, *Failure) {
	logger := w.logger.With("doctor_id", doctor.ID, "patient_id", user.ID)

	var order *api.Order
	err := w.runStep(ctx, "create_order", func(ctx context.Context) error {
		var err error
		order, err = w.backend.CreateOrder(ctx, doctor.Fee)
		return err
	})
	if err != nil {
		logger.Error("booking initiation failed", "error", err)
		return nil, &Failure{Kind: FailureInitiate, Message: MsgInitiateFailed, Err: err}
	}
	logger = logger.With("order_id", order.ID)

	var outcome payments.Outcome
	err = w.runStep(ctx, "checkout", func(ctx context.Context) error {
		var err error
		outcome, err = w.gateway.BeginCheckout(ctx, payments.Checkout{
			Key:          w.cfg.GatewayKey,
			Amount:       order.Amount,
			Currency:     order.Currency,
			OrderID:      order.ID,
			MerchantName: w.cfg.MerchantName,
			Description:  "Consultation with " + doctor.Name,
			Image:        w.cfg.MerchantLogo,
			Prefill:      payments.Prefill{Name: user.Name, Email: user.Email, Contact: user.Phone},
		})
		return err
	})
	switch {
	case errors.Is(err, payments.ErrCheckoutTimeout), errors.Is(err, context.DeadlineExceeded):
		logger.Error("checkout abandoned", "error", err)
		return nil, &Failure{Kind: FailureCheckoutTimeout, Message: MsgCheckoutTimeout, Err: err}
	case err != nil:
		logger.Error("booking initiation failed", "error", err)
		return nil, &Failure{Kind: FailureInitiate, Message: MsgInitiateFailed, Err: err}
	case outcome.Kind == payments.OutcomeDismissed:
		logger.Info("checkout dismissed")
		return nil, nil
	}

	proof := outcome.Proof
	logger = logger.With("payment_id", proof.PaymentID)
	partial := func(err error) *Failure {
		logger.Error("payment verification or booking failed", "error", err)
		return &Failure{Kind: FailurePartial, Message: MsgPartialFailure, PaymentID: proof.PaymentID, Err: err}
	}
	if proof.OrderID != order.ID {
		return nil, partial(fmt.Errorf("payment proof is for order %q, expected %q", proof.OrderID, order.ID))
	}

	if err := w.runStep(ctx, "verify_payment", func(ctx context.Context) error {
		return w.backend.VerifyPayment(ctx, proof)
	}); err != nil {
		return nil, partial(err)
	}

	var appt *api.Appointment
	if err := w.runStep(ctx, "persist_appointment", func(ctx context.Context) error {
		var err error
		appt, err = w.backend.BookAppointment(ctx, api.AppointmentRequest{
			PatientID: user.ID,
			DoctorID:  doctor.ID,
			Date:      draft.Date.String(),
			Time:      draft.Time,
			Status:    api.StatusUpcoming,
			PaymentID: proof.PaymentID,
		})
		return err
	}); err != nil {
		return nil, partial(err)
	}

	logger.Info("appointment booked", "appointment_id", appointmentID(appt))
	return &chainResult{confirmation: &Confirmation{
		Doctor:      doctor,
		Date:        draft.Date,
		Time:        draft.Time,
		Appointment: appt,
	}}, nil
}

// runStep runs one confirm step under its own span and records its latency.
func (w *Wizard) runStep(ctx context.Context, name string, fn func(context.Context) error) error {
	ctx, span := bookingTracer.Start(ctx, "booking."+name, trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	start := time.Now()
	err := fn(ctx)
	status := "ok"
	if err != nil {
		status = "error"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	w.metrics.ObserveStep(name, status, time.Since(start).Seconds())
	return err
}

func (w *Wizard) finish(result *chainResult, failure *Failure) error {
	outcome := "dismissed"
	switch {
	case failure != nil:
		outcome = failure.Kind.String()
	case result != nil:
		outcome = "booked"
	}
	w.metrics.ObserveConfirm(outcome)

	w.mu.Lock()
	defer w.mu.Unlock()
	w.submitting = false
	if w.closed {
		if failure != nil && failure.Kind == FailurePartial {
			w.logger.Error("partial booking failure after wizard closed", "payment_id", failure.PaymentID, "error", failure.Err)
		} else {
			w.logger.Warn("confirm finished after wizard closed", "outcome", outcome)
		}
		return ErrClosed
	}
	if failure != nil {
		if failure.Kind == FailurePartial {
			w.lockedOut = true
		}
		w.failure = failure
		f := *failure
		return &f
	}
	if result != nil {
		w.booked = result.confirmation
		w.step = StepBooked
	}
	return nil
}

func appointmentID(a *api.Appointment) int64 {
	if a == nil {
		return 0
	}
	return a.ID
}
