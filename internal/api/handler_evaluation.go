package api

import (
	"context"
	"net/http"
	"sync"
	"time"

	echo "github.com/labstack/echo/v5"
	"github.com/google/uuid"

	"github.com/trustfabric/agentca/internal/apperr"
	"github.com/trustfabric/agentca/internal/models"
)

// runCancellations tracks the cancel func for every evaluation run currently
// executing, keyed by run id, so POST /v1/evaluations/{id}/cancel can stop
// an in-flight run (spec §4.2/§6). internal/eval.Engine.Run itself is
// ctx-driven but stateless between calls, so the API layer — the only
// caller that knows about a specific in-flight run's lifetime — owns this
// bookkeeping.
var runCancellations sync.Map // run id -> context.CancelFunc

// createEvaluationHandler handles POST /v1/evaluations. The run executes
// asynchronously; the initial pending record is returned immediately and
// its final state is fetched via GET /v1/evaluations/{id}.
func (s *Server) createEvaluationHandler(c *echo.Context) error {
	var req CreateEvaluationRequest
	if err := c.Bind(&req); err != nil {
		return badRequest("malformed request body")
	}
	if req.AgentID == "" {
		return badRequest("agent_id is required")
	}
	if len(req.Suites) == 0 {
		return badRequest("at least one suite is required")
	}
	if _, err := s.agents.Get(req.AgentID); err != nil {
		return mapError(err)
	}

	cfg := models.DefaultEvaluationConfig()
	if req.Config != nil {
		cfg = *req.Config
	}

	run := &models.EvaluationRun{
		ID:              uuid.NewString(),
		AgentID:         req.AgentID,
		RequestedSuites: req.Suites,
		Config:          cfg,
		Status:          models.EvaluationStatusPending,
		CreatedAt:       time.Now().UTC(),
	}
	s.evaluations.Put(run)

	ctx, cancel := context.WithCancel(context.Background())
	runCancellations.Store(run.ID, cancel)
	go func() {
		defer runCancellations.Delete(run.ID)
		defer cancel()
		s.evalEngine.Run(ctx, run, nil)
		// ctx.Err() is only non-nil here if cancelEvaluationHandler called
		// cancel() (the deferred cancel above hasn't fired yet), in which case
		// it already wrote the cancelled terminal state; don't clobber it with
		// whatever partial result Run produced while winding down.
		if ctx.Err() != nil {
			return
		}
		s.evaluations.Put(run)
	}()

	return c.JSON(http.StatusAccepted, run)
}

// listEvaluationsHandler handles GET /v1/evaluations?agent_id=.
func (s *Server) listEvaluationsHandler(c *echo.Context) error {
	agentID := c.QueryParam("agent_id")
	if agentID == "" {
		return badRequest("agent_id is required")
	}

	all := s.evaluations.ListByAgent(agentID)
	offset, limit := parsePagination(c)
	page, total := paginate(all, offset, limit)
	return c.JSON(http.StatusOK, PaginatedResponse[*models.EvaluationRun]{Items: page, Offset: offset, Limit: limit, Total: total})
}

// getEvaluationHandler handles GET /v1/evaluations/{id}.
func (s *Server) getEvaluationHandler(c *echo.Context) error {
	run, err := s.evaluations.Get(c.Param("id"))
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, run)
}

// cancelEvaluationHandler handles POST /v1/evaluations/{id}/cancel.
func (s *Server) cancelEvaluationHandler(c *echo.Context) error {
	id := c.Param("id")
	run, err := s.evaluations.Get(id)
	if err != nil {
		return mapError(err)
	}
	if run.Status != models.EvaluationStatusPending && run.Status != models.EvaluationStatusRunning {
		return mapError(apperr.New(apperr.KindPreconditionFailed, "evaluation is not cancellable", map[string]any{"status": run.Status}))
	}

	if cancel, ok := runCancellations.Load(id); ok {
		cancel.(context.CancelFunc)()
	}
	run.Status = models.EvaluationStatusCancelled
	completed := time.Now().UTC()
	run.CompletedAt = &completed
	s.evaluations.Put(run)
	return c.JSON(http.StatusOK, run)
}

// getEvaluationSuiteHandler handles GET /v1/evaluations/{id}/suites/{name}.
func (s *Server) getEvaluationSuiteHandler(c *echo.Context) error {
	run, err := s.evaluations.Get(c.Param("id"))
	if err != nil {
		return mapError(err)
	}

	suite := models.Suite(c.Param("name"))
	result, ok := run.SuiteResults[suite]
	if !ok {
		return mapError(apperr.ErrNotFound)
	}
	return c.JSON(http.StatusOK, result)
}
