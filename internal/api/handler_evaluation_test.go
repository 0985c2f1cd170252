package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	echo "github.com/labstack/echo/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trustfabric/agentca/internal/models"
	"github.com/trustfabric/agentca/internal/store"
)

func newEvaluationTestServer() *Server {
	return &Server{
		echo:        echo.New(),
		agents:      store.NewAgentStore(),
		evaluations: store.NewEvaluationStore(),
	}
}

func TestCreateEvaluationHandlerRejectsUnknownAgent(t *testing.T) {
	s := newEvaluationTestServer()

	body, _ := json.Marshal(CreateEvaluationRequest{AgentID: "missing", Suites: []models.Suite{models.SuiteCapability}})
	req := httptest.NewRequest(http.MethodPost, "/v1/evaluations", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	c := s.echo.NewContext(req, rec)

	err := s.createEvaluationHandler(c)
	require.Error(t, err)
	he := err.(*echo.HTTPError)
	assert.Equal(t, http.StatusNotFound, he.Code)
}

func TestCreateEvaluationHandlerRejectsEmptySuites(t *testing.T) {
	s := newEvaluationTestServer()
	s.agents.Put(&models.Agent{ID: "agent-1", OwnerOrganizationID: "org-1", Name: "scout"})

	body, _ := json.Marshal(CreateEvaluationRequest{AgentID: "agent-1"})
	req := httptest.NewRequest(http.MethodPost, "/v1/evaluations", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	c := s.echo.NewContext(req, rec)

	err := s.createEvaluationHandler(c)
	require.Error(t, err)
	he := err.(*echo.HTTPError)
	assert.Equal(t, http.StatusBadRequest, he.Code)
}

func TestCancelEvaluationHandlerRejectsTerminalRun(t *testing.T) {
	s := newEvaluationTestServer()
	completed := time.Now().UTC()
	s.evaluations.Put(&models.EvaluationRun{ID: "run-1", AgentID: "agent-1", Status: models.EvaluationStatusCompleted, CompletedAt: &completed})

	req := httptest.NewRequest(http.MethodPost, "/v1/evaluations/run-1/cancel", nil)
	rec := httptest.NewRecorder()
	c := s.echo.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("run-1")

	err := s.cancelEvaluationHandler(c)
	require.Error(t, err)
	he := err.(*echo.HTTPError)
	assert.Equal(t, http.StatusConflict, he.Code)
}

func TestCancelEvaluationHandlerCancelsPendingRun(t *testing.T) {
	s := newEvaluationTestServer()
	s.evaluations.Put(&models.EvaluationRun{ID: "run-1", AgentID: "agent-1", Status: models.EvaluationStatusPending})

	req := httptest.NewRequest(http.MethodPost, "/v1/evaluations/run-1/cancel", nil)
	rec := httptest.NewRecorder()
	c := s.echo.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("run-1")

	require.NoError(t, s.cancelEvaluationHandler(c))

	run, err := s.evaluations.Get("run-1")
	require.NoError(t, err)
	assert.Equal(t, models.EvaluationStatusCancelled, run.Status)
	assert.NotNil(t, run.CompletedAt)
}

func TestGetEvaluationSuiteHandlerReturnsNotFoundForMissingSuite(t *testing.T) {
	s := newEvaluationTestServer()
	s.evaluations.Put(&models.EvaluationRun{ID: "run-1", AgentID: "agent-1", Status: models.EvaluationStatusCompleted, SuiteResults: map[models.Suite]models.SuiteResult{}})

	req := httptest.NewRequest(http.MethodGet, "/v1/evaluations/run-1/suites/safety", nil)
	rec := httptest.NewRecorder()
	c := s.echo.NewContext(req, rec)
	c.SetParamNames("id", "name")
	c.SetParamValues("run-1", "safety")

	err := s.getEvaluationSuiteHandler(c)
	require.Error(t, err)
	he := err.(*echo.HTTPError)
	assert.Equal(t, http.StatusNotFound, he.Code)
}
