package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/medibook-client/internal/api"
	appconfig "github.com/wolfman30/medibook-client/internal/config"
	"github.com/wolfman30/medibook-client/internal/observability/metrics"
	"github.com/wolfman30/medibook-client/internal/session"
	"github.com/wolfman30/medibook-client/pkg/logging"
)

// app holds the wiring shared by every command.
type app struct {
	cfg     *appconfig.Config
	logger  *logging.Logger
	client  *api.Client
	store   session.TokenStore
	session *session.Session
	in      *bufio.Reader
	out     io.Writer

	redis *redis.Client
}

func newApp(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger, in io.Reader, out io.Writer) (*app, error) {
	a := &app{cfg: cfg, logger: logger, in: bufio.NewReader(in), out: out}

	switch cfg.TokenStore {
	case "redis":
		a.redis = session.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisTLS)
		if err := a.redis.Ping(ctx).Err(); err != nil {
			_ = a.redis.Close()
			return nil, fmt.Errorf("connect to redis token store: %w", err)
		}
		a.store = session.NewRedisStore(a.redis, cfg.Profile)
	default:
		a.store = session.NewFileStore(cfg.TokenFile)
	}

	a.client = api.NewClient(cfg.APIBaseURL, a.store, cfg.HTTPTimeout, logger)
	a.session = session.New(a.client, a.store, logger)
	if err := a.session.Restore(ctx); err != nil {
		a.Close()
		return nil, fmt.Errorf("restore session: %w", err)
	}
	return a, nil
}

func (a *app) Close() error {
	if a.redis != nil {
		return a.redis.Close()
	}
	return nil
}

// prompt asks for a line on the input stream. Empty answers return def.
func (a *app) prompt(label, def string) (string, error) {
	if def != "" {
		fmt.Fprintf(a.out, "%s [%s]: ", label, def)
	} else {
		fmt.Fprintf(a.out, "%s: ", label)
	}
	line, err := a.in.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", fmt.Errorf("read %s: %w", strings.ToLower(label), err)
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return def, nil
	}
	return line, nil
}

// setupBookingMetrics registers booking metrics on a private registry and returns its handler.
func setupBookingMetrics() (http.Handler, *metrics.BookingMetrics) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.NewBookingMetrics(reg)
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), m
}
