package directory

import (
	"context"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/wolfman30/medibook-client/internal/api"
	"github.com/wolfman30/medibook-client/internal/observability/metrics"
	"github.com/wolfman30/medibook-client/pkg/logging"
)

// AllSpecialties is the filter value that matches every doctor.
const AllSpecialties = "All"

// DoctorSource lists doctors.
type DoctorSource interface {
	Doctors(ctx context.Context) ([]api.Doctor, error)
}

// Source is the subset of the API the home page reads from.
type Source interface {
	DoctorSource
	Services(ctx context.Context) ([]api.Service, error)
	Testimonials(ctx context.Context) ([]api.Testimonial, error)
}

// Directory caches one doctor listing. A failed fetch is cached as an empty list,
// so callers that re-enter a step never trigger a second request.
// Create one per wizard mount.
type Directory struct {
	source  DoctorSource
	logger  *logging.Logger
	metrics *metrics.BookingMetrics

	once    sync.Once
	doctors []api.Doctor
}

// New returns a Directory reading from source. metrics may be nil.
func New(source DoctorSource, logger *logging.Logger, m *metrics.BookingMetrics) *Directory {
	if logger == nil {
		logger = logging.Default()
	}
	return &Directory{source: source, logger: logger, metrics: m}
}

// Doctors returns the cached listing, fetching it on first use.
func (d *Directory) Doctors(ctx context.Context) []api.Doctor {
	d.once.Do(func() {
		doctors, err := d.source.Doctors(ctx)
		if err != nil {
			d.logger.Error("failed to fetch doctors", "error", err)
			d.metrics.ObserveDirectoryFailure()
			d.doctors = []api.Doctor{}
			return
		}
		if doctors == nil {
			doctors = []api.Doctor{}
		}
		d.doctors = doctors
		d.logger.Debug("doctors loaded", "count", len(doctors))
	})
	return d.doctors
}

// Find returns the doctor with id from the cached listing.
func (d *Directory) Find(ctx context.Context, id int64) (api.Doctor, bool) {
	for _, doc := range d.Doctors(ctx) {
		if doc.ID == id {
			return doc, true
		}
	}
	return api.Doctor{}, false
}

// Filter keeps doctors whose name or specialty contains query (case-insensitive)
// and, unless specialty is empty or AllSpecialties, whose specialty matches exactly.
func Filter(doctors []api.Doctor, query, specialty string) []api.Doctor {
	q := strings.ToLower(strings.TrimSpace(query))
	out := make([]api.Doctor, 0, len(doctors))
	for _, doc := range doctors {
		if q != "" &&
			!strings.Contains(strings.ToLower(doc.Name), q) &&
			!strings.Contains(strings.ToLower(doc.Specialty), q) {
			continue
		}
		if specialty != "" && specialty != AllSpecialties && doc.Specialty != specialty {
			continue
		}
		out = append(out, doc)
	}
	return out
}

// Specialties lists AllSpecialties then each distinct specialty in first-seen order.
func Specialties(doctors []api.Doctor) []string {
	seen := make(map[string]struct{}, len(doctors))
	out := []string{AllSpecialties}
	for _, doc := range doctors {
		if doc.Specialty == "" {
			continue
		}
		if _, ok := seen[doc.Specialty]; ok {
			continue
		}
		seen[doc.Specialty] = struct{}{}
		out = append(out, doc.Specialty)
	}
	return out
}

// Home is the landing page content.
type Home struct {
	Doctors      []api.Doctor
	Services     []api.Service
	Testimonials []api.Testimonial
}

// LoadHome fetches the landing page lists concurrently. If any fetch fails
// the error is logged and all three lists come back empty.
func LoadHome(ctx context.Context, source Source, logger *logging.Logger) Home {
	if logger == nil {
		logger = logging.Default()
	}
	var home Home
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		home.Doctors, err = source.Doctors(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		home.Services, err = source.Services(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		home.Testimonials, err = source.Testimonials(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		logger.Error("failed to load home page data", "error", err)
		return Home{Doctors: []api.Doctor{}, Services: []api.Service{}, Testimonials: []api.Testimonial{}}
	}
	if home.Doctors == nil {
		home.Doctors = []api.Doctor{}
	}
	if home.Services == nil {
		home.Services = []api.Service{}
	}
	if home.Testimonials == nil {
		home.Testimonials = []api.Testimonial{}
	}
	return home
}
