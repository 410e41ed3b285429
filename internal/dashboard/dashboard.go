// Package dashboard loads the signed-in user's appointments and summarises them.
package dashboard

import (
	"context"
	"errors"
	"fmt"

	"github.com/wolfman30/medibook-client/internal/api"
	"github.com/wolfman30/medibook-client/pkg/logging"
)

// ErrLoginRequired is returned when no identity is signed in.
var ErrLoginRequired = errors.New("dashboard: login required")

// Source lists appointments from either side of the booking.
type Source interface {
	PatientAppointments(ctx context.Context, patientID int64) ([]api.Appointment, error)
	DoctorAppointments(ctx context.Context, doctorID int64) ([]api.Appointment, error)
}

// Identity reports the signed-in user, or nil.
type Identity interface {
	User() *api.User
}

// Stats are the dashboard counters.
type Stats struct {
	Upcoming  int
	Completed int
	// Counterparts is distinct patients for a doctor, distinct doctors for a patient.
	Counterparts int
}

// View is what the dashboard shows.
type View struct {
	User         api.User
	Appointments []api.Appointment
	Stats        Stats
}

type Service struct {
	source   Source
	identity Identity
	logger   *logging.Logger
}

func NewService(source Source, identity Identity, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{source: source, identity: identity, logger: logger}
}

// Load fetches the appointments for the signed-in role. A failed fetch is logged
// and yields an empty list rather than an error.
func (s *Service) Load(ctx context.Context) (*View, error) {
	user := s.identity.User()
	if user == nil {
		return nil, ErrLoginRequired
	}

	var (
		appts []api.Appointment
		err   error
	)
	switch user.Role {
	case api.RoleDoctor:
		appts, err = s.source.DoctorAppointments(ctx, user.ID)
	case api.RolePatient:
		appts, err = s.source.PatientAppointments(ctx, user.ID)
	default:
		return nil, fmt.Errorf("dashboard: unsupported role %q", user.Role)
	}
	if err != nil {
		s.logger.Error("failed to fetch appointments", "error", err, "user_id", user.ID, "role", user.Role)
		appts = []api.Appointment{}
	}
	if appts == nil {
		appts = []api.Appointment{}
	}
	return &View{User: *user, Appointments: appts, Stats: Summarize(user.Role, appts)}, nil
}

// Summarize counts appointments by status and distinct counterparts for role.
func Summarize(role api.Role, appts []api.Appointment) Stats {
	var st Stats
	seen := make(map[int64]struct{})
	for _, a := range appts {
		switch a.Status {
		case api.StatusUpcoming:
			st.Upcoming++
		case api.StatusCompleted:
			st.Completed++
		}
		id := a.DoctorRef()
		if role == api.RoleDoctor {
			id = a.PatientRef()
		}
		if id != 0 {
			seen[id] = struct{}{}
		}
	}
	st.Counterparts = len(seen)
	return st
}
