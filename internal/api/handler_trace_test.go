package api

import (
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

func newTraceTestServer() *Server {
	return &Server{echo: echo.New(), traces: store.NewTraceStore()}
}

func TestListTracesHandlerRequiresAgentID(t *testing.T) {
	s := newTraceTestServer()
	req := httptest.NewRequest(http.MethodGet, "/v1/traces", nil)
	rec := httptest.NewRecorder()
	c := s.echo.NewContext(req, rec)

	err := s.listTracesHandler(c)
	require.Error(t, err)
	he := err.(*echo.HTTPError)
	assert.Equal(t, http.StatusBadRequest, he.Code)
}

func TestGetTraceHandlerIncludesSpansOnRequest(t *testing.T) {
	s := newTraceTestServer()
	s.traces.PutTrace(&models.Trace{ID: "trace-1", AgentID: "agent-1", Status: models.TraceStatusOpen, StartedAt: time.Now().UTC()})
	s.traces.AppendSpan(&models.Span{ID: "span-1", TraceID: "trace-1", Kind: models.SpanKindToolCall, Name: "search"})

	req := httptest.NewRequest(http.MethodGet, "/v1/traces/trace-1?include_spans=true", nil)
	rec := httptest.NewRecorder()
	c := s.echo.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("trace-1")

	require.NoError(t, s.getTraceHandler(c))

	var out traceWithSpans
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.Len(t, out.Spans, 1)
	assert.Equal(t, "search", out.Spans[0].Name)
}

func TestDeleteTraceHandlerOnlyRemovesRequestedTrace(t *testing.T) {
	s := newTraceTestServer()
	s.traces.PutTrace(&models.Trace{ID: "trace-1", AgentID: "agent-1", Status: models.TraceStatusOpen, StartedAt: time.Now().UTC()})
	s.traces.PutTrace(&models.Trace{ID: "trace-2", AgentID: "agent-1", Status: models.TraceStatusOpen, StartedAt: time.Now().UTC()})

	req := httptest.NewRequest(http.MethodDelete, "/v1/traces/trace-1", nil)
	rec := httptest.NewRecorder()
	c := s.echo.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("trace-1")

	require.NoError(t, s.deleteTraceHandler(c))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	_, err := s.traces.GetTrace("trace-1")
	assert.Error(t, err)
	_, err = s.traces.GetTrace("trace-2")
	assert.NoError(t, err)
}

func TestGetTraceHandlerReturnsNotFound(t *testing.T) {
	s := newTraceTestServer()
	req := httptest.NewRequest(http.MethodGet, "/v1/traces/missing", nil)
	rec := httptest.NewRecorder()
	c := s.echo.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("missing")

	err := s.getTraceHandler(c)
	require.Error(t, err)
	he := err.(*echo.HTTPError)
	assert.Equal(t, http.StatusNotFound, he.Code)
}
