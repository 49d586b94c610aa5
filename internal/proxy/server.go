package proxy

import (
	"encoding/json"
	"time"

	"github.com/fasthttp/router"
	"github.com/valyala/fasthttp"

	"github.com/foamcold/gproxy/internal/metrics"
	"github.com/foamcold/gproxy/internal/orchestrator"
)

// RouteHandler is a fasthttp handler function.
type RouteHandler = fasthttp.RequestHandler

// ManagementRoutes holds optional management API handler functions
// registered alongside the orchestrator's routes.
type ManagementRoutes struct {
	Metrics RouteHandler
}

// Server is the HTTP front door: it wires the orchestrator's two public
// routes plus health/readiness/metrics behind the same middleware chain
// the teacher's gateway used.
type Server struct {
	orch        *orchestrator.Orchestrator
	corsOrigins []string
	ready       func() bool
	prom        *metrics.Registry
}

// New builds a Server around orch. ready, if non-nil, backs GET
// /readiness; when nil readiness always reports ok. prom, if non-nil,
// records per-request metrics through metricsMiddleware.
func New(orch *orchestrator.Orchestrator, corsOrigins []string, ready func() bool, prom *metrics.Registry) *Server {
	return &Server{orch: orch, corsOrigins: corsOrigins, ready: ready, prom: prom}
}

// Start starts the HTTP server on addr (e.g. ":8080").
func (s *Server) Start(addr string) error {
	return s.StartWithRoutes(addr, nil)
}

// StartWithRoutes starts the HTTP server with optional management routes.
func (s *Server) StartWithRoutes(addr string, mgmt *ManagementRoutes) error {
	r := router.New()

	r.POST("/v1/chat/completions", s.orch.HandleChatCompletions)
	r.GET("/v1/models", s.orch.HandleModels)
	r.GET("/health", s.handleHealth)
	r.GET("/readiness", s.handleReadiness)

	if mgmt != nil && mgmt.Metrics != nil {
		r.GET("/metrics", mgmt.Metrics)
	}

	mws := []func(fasthttp.RequestHandler) fasthttp.RequestHandler{
		recovery,
		requestID,
		timing,
		corsHandler(s.corsOrigins),
		securityHeaders,
	}
	if s.prom != nil {
		mws = append(mws, metricsMiddleware(s.prom))
	}
	handler := applyMiddleware(r.Handler, mws...)

	srv := &fasthttp.Server{
		Handler:      handler,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	return srv.ListenAndServe(addr)
}

func (s *Server) handleHealth(ctx *fasthttp.RequestCtx) {
	writeJSON(ctx, map[string]any{"status": "ok", "version": "0.1.0"})
}

func (s *Server) handleReadiness(ctx *fasthttp.RequestCtx) {
	if s.ready == nil || s.ready() {
		writeJSON(ctx, map[string]string{"status": "ok"})
		return
	}
	ctx.SetStatusCode(fasthttp.StatusServiceUnavailable)
	writeJSON(ctx, map[string]string{"status": "unavailable"})
}

func writeJSON(ctx *fasthttp.RequestCtx, v any) {
	ctx.SetContentType("application/json")
	data, _ := json.Marshal(v)
	ctx.SetBody(data)
}
