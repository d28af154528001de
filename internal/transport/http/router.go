// Package httptransport exposes the sponsorship core over JSON/HTTP. It only
// decodes requests, forwards them to the services and renders their results.
package httptransport

import (
	"log/slog"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"

	"parrainage/internal/platform/metrics"
	id "parrainage/pkg/domain"
	"parrainage/pkg/platform/middleware/caller"
	"parrainage/pkg/platform/middleware/metadata"
	"parrainage/pkg/platform/middleware/request"
	"parrainage/pkg/platform/middleware/requesttime"
)

const (
	defaultRequestTimeout = 30 * time.Second
	defaultMaxUploadBytes = 32 << 20
)

// Services groups the core operations the adapter forwards to.
type Services struct {
	Periods      PeriodService
	Sponsorships SponsorshipService
	Imports      ImportService
	Statistics   StatisticsService
}

// Handler holds the services and the transport settings shared by every route.
type Handler struct {
	svc            Services
	logger         *slog.Logger
	metrics        *metrics.Metrics
	gatherer       prometheus.Gatherer
	checks         []ReadinessCheck
	maxUploadBytes int64
	requestTimeout time.Duration
}

type Option func(*Handler)

func WithLogger(logger *slog.Logger) Option {
	return func(h *Handler) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// WithMetrics records per-route request metrics and serves gatherer on /metrics.
func WithMetrics(m *metrics.Metrics, gatherer prometheus.Gatherer) Option {
	return func(h *Handler) {
		h.metrics = m
		h.gatherer = gatherer
	}
}

// WithReadinessChecks adds dependencies pinged by /readyz.
func WithReadinessChecks(checks ...ReadinessCheck) Option {
	return func(h *Handler) {
		h.checks = append(h.checks, checks...)
	}
}

// WithMaxUploadBytes caps the size of an electoral roll upload.
func WithMaxUploadBytes(n int64) Option {
	return func(h *Handler) {
		if n > 0 {
			h.maxUploadBytes = n
		}
	}
}

func WithRequestTimeout(d time.Duration) Option {
	return func(h *Handler) {
		if d > 0 {
			h.requestTimeout = d
		}
	}
}

func New(svc Services, opts ...Option) *Handler {
	h := &Handler{
		svc:            svc,
		logger:         slog.Default(),
		gatherer:       prometheus.DefaultGatherer,
		maxUploadBytes: defaultMaxUploadBytes,
		requestTimeout: defaultRequestTimeout,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Router builds the chi router: ops endpoints unauthenticated, everything
// else behind the caller identity headers.
func (h *Handler) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(request.Recovery(h.logger))
	r.Use(request.RequestID)
	r.Use(metadata.ClientMetadata)
	r.Use(request.Logger(h.logger))
	r.Use(requesttime.Middleware)
	if h.metrics != nil {
		r.Use(h.metrics.Instrument)
	}

	h.registerOps(r)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(h.requestTimeout))
		r.Use(caller.Identify(h.logger))

		admin := caller.RequireRole(h.logger, id.RoleAdmin)
		voter := caller.RequireRole(h.logger, id.RoleVoter)

		r.Route("/periods", func(r chi.Router) {
			r.With(admin).Post("/", h.handleCreatePeriod)
			r.Get("/current", h.handleCurrentPeriod)
			r.Route("/{periodID}", func(r chi.Router) {
				r.Get("/", h.handleGetPeriod)
				r.Get("/window", h.handleWindow)
				r.With(admin).Post("/open", h.handleOpenPeriod)
				r.With(admin).Post("/close", h.handleClosePeriod)
				r.With(admin).Post("/terminate", h.handleTerminatePeriod)
				r.With(voter).Delete("/sponsorships/mine", h.handleWithdraw)
			})
		})

		r.Get("/eligibility", h.handleEligibility)
		r.Route("/sponsorships", func(r chi.Router) {
			r.With(voter).Post("/", h.handleCreateSponsorship)
			r.Get("/{code}", h.handleVerify)
			r.With(admin).Post("/{code}/validate", h.handleValidate)
		})

		r.Route("/imports", func(r chi.Router) {
			r.Use(admin)
			r.Post("/", h.handleStageImport)
			r.Get("/attempts", h.handleListAttempts)
			r.Get("/{batchID}", h.handleGetBatch)
			r.Post("/{batchID}/promote", h.handlePromoteImport)
			r.Post("/{batchID}/reject", h.handleRejectImport)
		})

		r.Get("/statistics/{scope}", h.handleStatistics)
	})
	return r
}
