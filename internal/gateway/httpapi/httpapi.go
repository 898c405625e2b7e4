// Package httpapi implements the HTTP API gateway for BrainstormX.
//
// The gateway exposes workshop lifecycle and navigation operations, plan
// management, timer state, and reconnect support. Authentication is left to
// the deployment (reverse proxy); the realtime WebSocket endpoint carries its
// own optional token check.
package httpapi

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/trace"

	"github.com/jkaninda/okapi"

	"github.com/broadcomms/brainstormx/internal/observability"
	"github.com/broadcomms/brainstormx/internal/orchestrator"
	"github.com/broadcomms/brainstormx/internal/plan"
	"github.com/broadcomms/brainstormx/internal/storage"
)

const defaultMaxRequestSize = 1 << 20 // 1 MB

// ErrorBody is the standard error response used in OpenAPI documentation.
type ErrorBody struct {
	Error string `json:"error"`
}

// Config configures the HTTP API gateway.
type Config struct {
	ListenAddr   string // e.g., ":8080"
	EnableDocs   bool
	ReadTimeout  time.Duration // Must cover LLM-backed phase generation.
	WriteTimeout time.Duration

	// Observability
	MetricsRegistry *prometheus.Registry            // Custom Prometheus registry for /metrics.
	MetricsPath     string                          // Path for metrics endpoint. Default: "/metrics".
	HealthChecker   *observability.HealthChecker    // Health checker for /readyz endpoint.
	Metrics         *observability.MetricsCollector // Metrics collector for HTTP middleware.
	Tracer          trace.Tracer                    // OTel tracer for HTTP middleware.
}

// Gateway is the HTTP API gateway.
type Gateway struct {
	config Config
	store  storage.Store
	plans  *plan.Store
	orch   *orchestrator.Orchestrator
	logger *slog.Logger
	server *http.Server

	// Extra handlers mounted on the HTTP mux (e.g., the WebSocket endpoint).
	extraRoutes []extraRoute

	okapi *okapi.Okapi
	group *okapi.Group
}

// extraRoute stores an additional handler to be mounted on the HTTP mux.
type extraRoute struct {
	pattern string
	handler http.Handler
}

// NewGateway creates an HTTP API gateway.
func NewGateway(cfg Config, store storage.Store, plans *plan.Store, orch *orchestrator.Orchestrator, logger *slog.Logger) *Gateway {
	return &Gateway{
		config: cfg,
		store:  store,
		plans:  plans,
		orch:   orch,
		logger: logger,
		okapi:  okapi.New(okapi.WithMaxMultipartMemory(defaultMaxRequestSize)),
	}
}

// WithHandler mounts an additional handler on the HTTP mux at the given
// pattern. Used for the WebSocket room endpoint alongside the API routes.
func (g *Gateway) WithHandler(pattern string, handler http.Handler) *Gateway {
	g.extraRoutes = append(g.extraRoutes, extraRoute{pattern: pattern, handler: handler})
	return g
}

func (g *Gateway) WithOpenAPIDocs() *Gateway {
	g.okapi.WithOpenAPIDocs(
		okapi.OpenAPI{
			Title:   "BrainstormX",
			Version: "v0.1.0",
		},
	)
	return g
}

// Start launches the HTTP server and blocks until it exits or ctx is canceled.
func (g *Gateway) Start(ctx context.Context) error {
	middlewares := []okapi.Middleware{}
	if g.config.Metrics != nil || g.config.Tracer != nil {
		middlewares = append(middlewares, observability.MetricsMiddleware(g.config.Metrics, g.config.Tracer))
	}

	g.group = g.okapi.Group("/v1", middlewares...)

	// Workshop lifecycle.
	g.group.Post("/workshops", g.handleWorkshopCreate,
		okapi.DocSummary("Create a workshop and seed its default plan"),
		okapi.DocTags("Workshops"),
		okapi.DocRequestBody(WorkshopCreateRequest{}),
		okapi.DocResponse(http.StatusCreated, WorkshopResponse{}),
		okapi.DocResponse(http.StatusBadRequest, ErrorBody{}),
	)
	g.group.Get("/workshops/{id}", g.handleWorkshopGet,
		okapi.DocSummary("Get a workshop by ID"),
		okapi.DocTags("Workshops"),
		okapi.DocPathParam("id", "integer", "Workshop ID"),
		okapi.DocResponse(WorkshopResponse{}),
		okapi.DocResponse(http.StatusNotFound, ErrorBody{}),
	)
	g.group.Post("/workshops/{id}/start", g.handleWorkshopStart,
		okapi.DocSummary("Start a scheduled workshop and activate its first phase"),
		okapi.DocTags("Lifecycle"),
		okapi.DocPathParam("id", "integer", "Workshop ID"),
		okapi.DocResponse(PhaseResponse{}),
		okapi.DocResponse(http.StatusConflict, ErrorBody{}),
	)
	g.group.Post("/workshops/{id}/pause", g.handleWorkshopPause,
		okapi.DocSummary("Pause the running phase timer"),
		okapi.DocTags("Lifecycle"),
		okapi.DocPathParam("id", "integer", "Workshop ID"),
		okapi.DocResponse(TimerResponse{}),
		okapi.DocResponse(http.StatusConflict, ErrorBody{}),
	)
	g.group.Post("/workshops/{id}/resume", g.handleWorkshopResume,
		okapi.DocSummary("Resume a paused phase timer"),
		okapi.DocTags("Lifecycle"),
		okapi.DocPathParam("id", "integer", "Workshop ID"),
		okapi.DocResponse(TimerResponse{}),
		okapi.DocResponse(http.StatusConflict, ErrorBody{}),
	)
	g.group.Post("/workshops/{id}/complete", g.handleWorkshopComplete,
		okapi.DocSummary("Complete a workshop"),
		okapi.DocTags("Lifecycle"),
		okapi.DocPathParam("id", "integer", "Workshop ID"),
		okapi.DocResponse(WorkshopResponse{}),
		okapi.DocResponse(http.StatusConflict, ErrorBody{}),
	)
	g.group.Post("/workshops/{id}/cancel", g.handleWorkshopCancel,
		okapi.DocSummary("Cancel a workshop"),
		okapi.DocTags("Lifecycle"),
		okapi.DocPathParam("id", "integer", "Workshop ID"),
		okapi.DocResponse(WorkshopResponse{}),
		okapi.DocResponse(http.StatusConflict, ErrorBody{}),
	)

	// Phase navigation.
	g.group.Post("/workshops/{id}/next", g.handleAdvance,
		okapi.DocSummary("Advance the workshop to the next runnable phase"),
		okapi.DocTags("Navigation"),
		okapi.DocPathParam("id", "integer", "Workshop ID"),
		okapi.DocResponse(PhaseResponse{}),
		okapi.DocResponse(http.StatusConflict, ErrorBody{}),
	)
	g.group.Post("/workshops/{id}/goto", g.handleGoTo,
		okapi.DocSummary("Jump to a specific plan index"),
		okapi.DocTags("Navigation"),
		okapi.DocPathParam("id", "integer", "Workshop ID"),
		okapi.DocRequestBody(GoToRequest{}),
		okapi.DocResponse(PhaseResponse{}),
		okapi.DocResponse(http.StatusBadRequest, ErrorBody{}),
	)

	// Plan management.
	g.group.Get("/workshops/{id}/plan", g.handlePlanGet,
		okapi.DocSummary("Get the effective phase plan"),
		okapi.DocTags("Plan"),
		okapi.DocPathParam("id", "integer", "Workshop ID"),
		okapi.DocResponse(PlanResponse{}),
		okapi.DocResponse(http.StatusNotFound, ErrorBody{}),
	)
	g.group.Put("/workshops/{id}/plan", g.handlePlanReplace,
		okapi.DocSummary("Validate and replace the phase plan"),
		okapi.DocTags("Plan"),
		okapi.DocPathParam("id", "integer", "Workshop ID"),
		okapi.DocRequestBody(PlanReplaceRequest{}),
		okapi.DocResponse(PlanResponse{}),
		okapi.DocResponse(http.StatusBadRequest, ErrorBody{}),
	)
	g.group.Get("/task-types", g.handleTaskTypes,
		okapi.DocSummary("List known phase task types"),
		okapi.DocTags("Plan"),
		okapi.DocResponse([]string{}),
	)

	// Timer and reconnect.
	g.group.Get("/workshops/{id}/timer", g.handleTimer,
		okapi.DocSummary("Get the authoritative timer state"),
		okapi.DocTags("Timer"),
		okapi.DocPathParam("id", "integer", "Workshop ID"),
		okapi.DocResponse(TimerResponse{}),
		okapi.DocResponse(http.StatusNotFound, ErrorBody{}),
	)
	g.group.Get("/workshops/{id}/current", g.handleCurrentPayload,
		okapi.DocSummary("Get the cached payload of the active phase (reconnect)"),
		okapi.DocTags("Timer"),
		okapi.DocPathParam("id", "integer", "Workshop ID"),
		okapi.DocResponse(map[string]any{}),
		okapi.DocResponse(http.StatusNotFound, ErrorBody{}),
	)

	// Participant contributions.
	g.group.Post("/workshops/{id}/ideas", g.handleIdeaSubmit,
		okapi.DocSummary("Submit an idea to the running brainstorming phase"),
		okapi.DocTags("Contributions"),
		okapi.DocPathParam("id", "integer", "Workshop ID"),
		okapi.DocRequestBody(IdeaRequest{}),
		okapi.DocResponse(http.StatusCreated, IdeaResponse{}),
		okapi.DocResponse(http.StatusConflict, ErrorBody{}),
	)
	g.group.Post("/clusters/{id}/vote", g.handleClusterVote,
		okapi.DocSummary("Cast a vote for an idea cluster"),
		okapi.DocTags("Contributions"),
		okapi.DocPathParam("id", "integer", "Cluster ID"),
		okapi.DocResponse(map[string]string{}),
		okapi.DocResponse(http.StatusNotFound, ErrorBody{}),
	)
	g.group.Get("/workshops/{id}/transcript", g.handleTranscript,
		okapi.DocSummary("List persisted facilitator narration"),
		okapi.DocTags("Contributions"),
		okapi.DocPathParam("id", "integer", "Workshop ID"),
		okapi.DocResponse([]TranscriptEntryResponse{}),
	)

	// Extra handlers (the WebSocket room endpoint).
	for _, er := range g.extraRoutes {
		g.okapi.HandleStd("GET", er.pattern, er.handler.ServeHTTP)
	}

	// Observability endpoints (unauthenticated).
	g.okapi.Get("/healthz", g.handleLiveness)
	g.okapi.Get("/readyz", g.handleReadiness)

	if g.config.MetricsRegistry != nil {
		path := g.config.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		g.okapi.HandleStd("GET", path, promhttp.HandlerFor(g.config.MetricsRegistry, promhttp.HandlerOpts{}).ServeHTTP)
	}
	if g.config.EnableDocs {
		g.WithOpenAPIDocs()
	}

	readTimeout := g.config.ReadTimeout
	if readTimeout == 0 {
		readTimeout = 30 * time.Second
	}
	writeTimeout := g.config.WriteTimeout
	if writeTimeout == 0 {
		writeTimeout = 60 * time.Second
	}

	g.server = &http.Server{
		Addr:              g.config.ListenAddr,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       120 * time.Second,
		BaseContext:       func(_ net.Listener) context.Context { return ctx },
	}

	g.logger.Info("http api gateway starting", slog.String("addr", g.config.ListenAddr))

	return g.okapi.StartServer(g.server)
}

// Stop gracefully shuts down the HTTP server.
func (g *Gateway) Stop(ctx context.Context) error {
	if g.server == nil {
		return nil
	}
	g.logger.Info("http api gateway stopping")
	return g.okapi.Shutdown(g.server)
}

// HealthResponse is the JSON response for health endpoints.
type HealthResponse struct {
	Status string `json:"status"`
}

// handleLiveness is the Kubernetes liveness probe.
func (g *Gateway) handleLiveness(c *okapi.Context) error {
	return c.OK(&HealthResponse{Status: "ok"})
}

// handleReadiness checks all registered dependencies and returns 200 or 503.
func (g *Gateway) handleReadiness(c *okapi.Context) error {
	if g.config.HealthChecker == nil {
		return c.OK(&HealthResponse{Status: "ok"})
	}

	status := g.config.HealthChecker.CheckReady(c.Context())
	code := http.StatusOK
	if status.Status != "ok" {
		code = http.StatusServiceUnavailable
	}
	return c.JSON(code, status)
}
