// Package api provides the HTTP surface of spec §6: agents, traces,
// evaluations, certificates (owner and public/registry views), sessions,
// and the two duplex endpoints, as echo v5 handlers.
package api

import (
	"context"
	"net"
	"net/http"
	"time"

	echo "github.com/labstack/echo/v5"
	"github.com/labstack/echo/v5/middleware"

	"github.com/trustfabric/agentca/internal/ca"
	"github.com/trustfabric/agentca/internal/database"
	"github.com/trustfabric/agentca/internal/eval"
	"github.com/trustfabric/agentca/internal/metrics"
	"github.com/trustfabric/agentca/internal/store"
	"github.com/trustfabric/agentca/internal/tacp"
	"github.com/trustfabric/agentca/internal/trace"
)

// Server is the HTTP API server wrapping every domain collaborator this
// module's endpoints dispatch into.
type Server struct {
	echo       *echo.Echo
	httpServer *http.Server

	dbClient *database.Client

	agents       *store.AgentStore
	certs        *ca.CA
	evaluations  *store.EvaluationStore
	evalEngine   *eval.Engine
	sessions     *tacp.Manager
	protocol     *tacp.Handler
	pipeline     *trace.Pipeline
	traces       *store.TraceStore
	streamer     *trace.Streamer
}

// Deps bundles every collaborator NewServer needs. DBClient may be nil, in
// which case GET /health omits the database check; every other field is
// required. Callers wire one of each from cmd/agentca's service construction.
type Deps struct {
	DBClient    *database.Client
	Agents      *store.AgentStore
	Certs       *ca.CA
	Evaluations *store.EvaluationStore
	EvalEngine  *eval.Engine
	Sessions    *tacp.Manager
	Protocol    *tacp.Handler
	Pipeline    *trace.Pipeline
	Traces      *store.TraceStore
	Streamer    *trace.Streamer
}

// NewServer creates a new API server with Echo v5.
func NewServer(deps Deps) *Server {
	e := echo.New()

	s := &Server{
		echo:        e,
		dbClient:    deps.DBClient,
		agents:      deps.Agents,
		certs:       deps.Certs,
		evaluations: deps.Evaluations,
		evalEngine:  deps.EvalEngine,
		sessions:    deps.Sessions,
		protocol:    deps.Protocol,
		pipeline:    deps.Pipeline,
		traces:      deps.Traces,
		streamer:    deps.Streamer,
	}

	s.setupRoutes()
	return s
}

// setupRoutes registers every route of spec §6.
func (s *Server) setupRoutes() {
	s.echo.Use(middleware.BodyLimit(4 * 1024 * 1024))
	s.echo.Use(securityHeaders())
	s.echo.Use(metrics.Instrument())

	s.echo.GET("/health", s.healthHandler)
	s.echo.GET("/metrics", metrics.Handler())

	v1 := s.echo.Group("/v1")

	v1.POST("/agents", s.registerAgentHandler)
	v1.GET("/agents", s.listAgentsHandler)
	v1.GET("/agents/:id", s.getAgentHandler)
	v1.PATCH("/agents/:id", s.patchAgentHandler)
	v1.DELETE("/agents/:id", s.deleteAgentHandler)

	v1.POST("/traces/batch", s.ingestTraceBatchHandler)
	v1.GET("/traces", s.listTracesHandler)
	v1.GET("/traces/:id", s.getTraceHandler)
	v1.GET("/traces/:id/spans", s.listTraceSpansHandler)
	v1.DELETE("/traces/:id", s.deleteTraceHandler)
	v1.GET("/trace_stream", s.traceStreamHandler)

	v1.POST("/evaluations", s.createEvaluationHandler)
	v1.GET("/evaluations", s.listEvaluationsHandler)
	v1.GET("/evaluations/:id", s.getEvaluationHandler)
	v1.POST("/evaluations/:id/cancel", s.cancelEvaluationHandler)
	v1.GET("/evaluations/:id/suites/:name", s.getEvaluationSuiteHandler)

	v1.POST("/certificates", s.issueCertificateHandler)
	v1.GET("/certificates", s.listCertificatesHandler)
	v1.GET("/certificates/:id", s.getCertificateHandler)
	v1.POST("/certificates/:id/revoke", s.revokeCertificateHandler)
	v1.GET("/certificates/:id/chain", s.getCertificateChainHandler)
	v1.GET("/certificates/:id/verify", s.verifyCertificateHandler)

	v1.GET("/registry/search", s.registrySearchHandler)
	v1.GET("/registry/verify/:id", s.registryVerifyHandler)
	v1.GET("/registry/crl", s.registryCRLHandler)
	v1.GET("/registry/capabilities", s.registryCapabilitiesHandler)
	v1.GET("/registry/grades", s.registryGradesHandler)

	v1.POST("/sessions", s.createSessionHandler)
	v1.GET("/sessions", s.listSessionsHandler)
	v1.GET("/sessions/:id", s.getSessionHandler)
	v1.POST("/sessions/:id/accept", s.acceptSessionHandler)
	v1.POST("/sessions/:id/reject", s.rejectSessionHandler)
	v1.DELETE("/sessions/:id", s.deleteSessionHandler)
	v1.POST("/sessions/:id/messages", s.postSessionMessageHandler)
	v1.GET("/sessions/:id/ws", s.sessionWSHandler)
}

// Start starts the HTTP server on the given address and blocks until the
// server stops.
func (s *Server) Start(addr string) error {
	s.httpServer = &http.Server{Addr: addr, Handler: s.echo}
	return s.httpServer.ListenAndServe()
}

// StartWithListener starts the HTTP server on a pre-created listener, used
// by tests that want a random OS-assigned port.
func (s *Server) StartWithListener(ln net.Listener) error {
	s.httpServer = &http.Server{Handler: s.echo}
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// healthHandler handles GET /health.
func (s *Server) healthHandler(c *echo.Context) error {
	resp := HealthResponse{Status: "healthy"}

	if s.dbClient != nil {
		reqCtx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
		defer cancel()
		dbHealth, err := database.Health(reqCtx, s.dbClient.DB())
		resp.Database = dbHealth
		if err != nil || (dbHealth != nil && dbHealth.Status != "healthy") {
			resp.Status = "degraded"
		}
	}

	status := http.StatusOK
	if resp.Status != "healthy" {
		status = http.StatusServiceUnavailable
	}
	return c.JSON(status, resp)
}
