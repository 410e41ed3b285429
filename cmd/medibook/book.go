package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/wolfman30/medibook-client/internal/booking"
	"github.com/wolfman30/medibook-client/internal/payments"
)

type bookOptions struct {
	doctorID    int64
	date        string
	slot        string
	gateway     string
	fakeOutcome string
}

func bookCmd(current func() *app) *cobra.Command {
	opts := &bookOptions{}
	cmd := &cobra.Command{
		Use:   "book",
		Short: "Book and pay for an appointment",
		Long: "Walks through doctor, date and time selection, then pays through the gateway checkout.\n" +
			"Flags preselect answers; anything missing is asked for interactively.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBook(cmd.Context(), current(), opts)
		},
	}
	f := cmd.Flags()
	f.Int64Var(&opts.doctorID, "doctor", 0, "doctor id to preselect")
	f.StringVar(&opts.date, "date", "", "appointment date, YYYY-MM-DD")
	f.StringVar(&opts.slot, "time", "", `time slot label, e.g. "10:00 AM"`)
	f.StringVar(&opts.gateway, "gateway", "", "hosted or fake (overrides MEDIBOOK_GATEWAY)")
	f.StringVar(&opts.fakeOutcome, "fake-outcome", "success", "fake gateway result: success or dismiss")
	return cmd
}

func runBook(ctx context.Context, a *app, opts *bookOptions) error {
	cfg := a.cfg
	if opts.gateway != "" {
		cfg.Gateway = strings.ToLower(strings.TrimSpace(opts.gateway))
		if err := cfg.Validate(); err != nil {
			return err
		}
	}

	handler, bookingMetrics := setupBookingMetrics()
	if cfg.MetricsAddr != "" {
		srv := &http.Server{Addr: cfg.MetricsAddr, Handler: metricsMux(handler), ReadHeaderTimeout: 5 * time.Second}
		go func() {
			a.logger.Info("metrics listening", "addr", srv.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				a.logger.Error("metrics server error", "error", err)
			}
		}()
		defer srv.Close()
	}

	widget, err := newWidget(ctx, a, opts)
	if err != nil {
		return err
	}
	gateway := payments.NewCallbackGateway(widget, cfg.CheckoutTimeout, a.logger)

	wizard := booking.New(a.client, a.session, gateway, booking.Config{
		GatewayKey:     cfg.GatewayKey,
		MerchantName:   cfg.MerchantName,
		MerchantLogo:   cfg.MerchantLogo,
		ConfirmTimeout: cfg.ConfirmTimeout,
		Metrics:        bookingMetrics,
	}, a.logger)
	defer wizard.Close()

	wizard.Mount(ctx, opts.doctorID)
	if len(wizard.State().Doctors) == 0 {
		fmt.Fprintln(a.out, "No doctors are available right now. Please try again later.")
		return errSilent
	}

	for {
		st := wizard.State()
		switch st.Step {
		case booking.StepSelectingDoctor:
			if err := chooseDoctor(a, wizard, opts); err != nil {
				return err
			}
		case booking.StepSelectingDateTime:
			if err := chooseDateTime(a, wizard, opts); err != nil {
				return err
			}
		case booking.StepConfirming:
			done, err := confirm(ctx, a, wizard)
			if err != nil || done {
				return err
			}
		case booking.StepBooked:
			b := st.Booked
			fmt.Fprintf(a.out, "\nAppointment Booked!\nYour appointment with %s has been confirmed for %s at %s.\n",
				b.Doctor.Name, b.Date, b.Time)
			return nil
		}
	}
}

func newWidget(ctx context.Context, a *app, opts *bookOptions) (payments.Widget, error) {
	if a.cfg.Gateway == "fake" {
		behavior := payments.FakeSucceed
		if strings.EqualFold(opts.fakeOutcome, "dismiss") {
			behavior = payments.FakeDismiss
		}
		return payments.NewFakeWidget(a.cfg.GatewaySecret, behavior, a.logger), nil
	}
	announce := func(url string) {
		fmt.Fprintf(a.out, "\nOpen this page to pay: %s\nWaiting for the payment to finish...\n", url)
	}
	return payments.ServeHostedCheckout(ctx, a.cfg.CheckoutListenAddr, announce, a.logger)
}

func chooseDoctor(a *app, w *booking.Wizard, opts *bookOptions) error {
	st := w.State()
	fmt.Fprintln(a.out, "\nStep 1 of 3: Select Doctor")
	printDoctors(a.out, st.Doctors)
	for {
		raw, err := a.prompt("Doctor ID", "")
		if err != nil {
			return err
		}
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			fmt.Fprintln(a.out, "Enter a numeric doctor id.")
			continue
		}
		if err := w.SelectDoctor(id); err != nil {
			fmt.Fprintln(a.out, "No doctor with that id.")
			continue
		}
		opts.doctorID = id
		return w.Next()
	}
}

func chooseDateTime(a *app, w *booking.Wizard, opts *bookOptions) error {
	st := w.State()
	fmt.Fprintf(a.out, "\nStep 2 of 3: Date & Time with %s\n", st.Draft.Doctor.Name)

	for dateSet := false; !dateSet; {
		raw := opts.date
		opts.date = ""
		if raw == "" {
			var err error
			if raw, err = a.prompt("Date (YYYY-MM-DD, or \"back\")", st.Draft.Date.String()); err != nil {
				return err
			}
		}
		if strings.EqualFold(raw, "back") {
			return w.Back()
		}
		d, err := booking.ParseDate(raw)
		if err != nil {
			fmt.Fprintln(a.out, "Use the YYYY-MM-DD format.")
			continue
		}
		if err := w.SelectDate(d); err != nil {
			fmt.Fprintln(a.out, "Please select a valid future date.")
			continue
		}
		dateSet = true
	}

	for {
		label := opts.slot
		opts.slot = ""
		if label == "" {
			var open []string
			for _, s := range w.Slots() {
				if s.Available {
					open = append(open, s.Label)
				}
			}
			if len(open) == 0 {
				fmt.Fprintln(a.out, "No time slots left on that day. Pick another date.")
				return nil
			}
			fmt.Fprintf(a.out, "Available: %s\n", strings.Join(open, ", "))
			var err error
			if label, err = a.prompt("Time", open[0]); err != nil {
				return err
			}
		}
		if err := w.SelectTime(strings.ToUpper(label)); err != nil {
			fmt.Fprintln(a.out, "That time slot is not available.")
			continue
		}
		return w.Next()
	}
}

// confirm shows the summary and runs the payment chain. done reports that the command should exit.
func confirm(ctx context.Context, a *app, w *booking.Wizard) (done bool, err error) {
	st := w.State()
	d := st.Draft
	fmt.Fprintln(a.out, "\nStep 3 of 3: Confirm")
	fmt.Fprintf(a.out, "  Doctor:   %s (%s)\n  Hospital: %s\n  Date:     %s\n  Time:     %s\n  Fee:      %s\n",
		d.Doctor.Name, d.Doctor.Specialty, d.Doctor.Hospital, d.Date, d.Time, d.Doctor.Fee.String())
	if st.Failure != nil {
		fmt.Fprintf(a.out, "\n%s\n", st.Failure.Message)
	}

	if !w.ConfirmEnabled() {
		return true, errSilent
	}
	answer, err := a.prompt("Confirm and pay? (yes/back/quit)", "yes")
	if err != nil {
		return true, err
	}
	switch strings.ToLower(answer) {
	case "back", "b":
		return false, w.Back()
	case "quit", "q", "no", "n":
		return true, nil
	}

	err = w.Confirm(ctx)
	var failure *booking.Failure
	switch {
	case errors.Is(err, booking.ErrLoginRequired):
		fmt.Fprintln(a.out, "You must be logged in to confirm an appointment. Run `medibook login` and try again.")
		return true, errSilent
	case errors.As(err, &failure):
		if failure.Kind == booking.FailurePartial {
			fmt.Fprintf(a.out, "\n%s\nPayment reference: %s\n", failure.Message, failure.PaymentID)
			return true, errSilent
		}
		// Retryable; the next pass over the confirmation step shows the message.
		return false, nil
	case err != nil:
		return true, err
	}
	if w.State().Step != booking.StepBooked {
		fmt.Fprintln(a.out, "Payment cancelled. You can try again.")
	}
	return false, nil
}

func metricsMux(h http.Handler) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", h)
	return mux
}
