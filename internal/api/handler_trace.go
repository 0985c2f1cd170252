package api

import (
	"bufio"
	"encoding/json"
	"net/http"

	echo "github.com/labstack/echo/v5"

	"github.com/trustfabric/agentca/internal/models"
)

// ingestTraceBatchHandler handles POST /v1/traces/batch.
func (s *Server) ingestTraceBatchHandler(c *echo.Context) error {
	var req models.TraceIngestRequest
	if err := c.Bind(&req); err != nil {
		return badRequest("malformed request body")
	}
	if req.AgentID == "" {
		return badRequest("agent_id is required")
	}

	trace, err := s.pipeline.Ingest(req)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusAccepted, trace)
}

// listTracesHandler handles GET /v1/traces?agent_id=.
func (s *Server) listTracesHandler(c *echo.Context) error {
	agentID := c.QueryParam("agent_id")
	if agentID == "" {
		return badRequest("agent_id is required")
	}

	all := s.traces.ListTracesByAgent(agentID)
	offset, limit := parsePagination(c)
	page, total := paginate(all, offset, limit)
	return c.JSON(http.StatusOK, PaginatedResponse[*models.Trace]{Items: page, Offset: offset, Limit: limit, Total: total})
}

// traceWithSpans wraps a trace with its spans for the include-spans view.
type traceWithSpans struct {
	*models.Trace
	Spans []*models.Span `json:"spans"`
}

// getTraceHandler handles GET /v1/traces/{id}?include_spans=true.
func (s *Server) getTraceHandler(c *echo.Context) error {
	trace, err := s.traces.GetTrace(c.Param("id"))
	if err != nil {
		return mapError(err)
	}
	if c.QueryParam("include_spans") != "true" {
		return c.JSON(http.StatusOK, trace)
	}
	return c.JSON(http.StatusOK, traceWithSpans{Trace: trace, Spans: s.traces.ListSpans(trace.ID)})
}

// listTraceSpansHandler handles GET /v1/traces/{id}/spans.
func (s *Server) listTraceSpansHandler(c *echo.Context) error {
	id := c.Param("id")
	if _, err := s.traces.GetTrace(id); err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, s.traces.ListSpans(id))
}

// deleteTraceHandler handles DELETE /v1/traces/{id}. This is an
// owner-initiated action on one specific trace, distinct from
// internal/worker's retention sweep, which prunes completed traces past the
// retention window store-wide.
func (s *Server) deleteTraceHandler(c *echo.Context) error {
	id := c.Param("id")
	if _, err := s.traces.GetTrace(id); err != nil {
		return mapError(err)
	}
	s.traces.DeleteTrace(id)
	return c.NoContent(http.StatusNoContent)
}

// traceStreamHandler handles GET /v1/trace_stream: a server-sent-events
// stream of every trace-pipeline event (spec §4.4) for the caller's
// organisation, grounded on the teacher's events.ConnectionManager fan-out
// but rendered as one-directional SSE rather than a full-duplex socket,
// since this endpoint never receives client frames (unlike
// /v1/sessions/{id}/ws, which does and so uses gorilla/websocket).
func (s *Server) traceStreamHandler(c *echo.Context) error {
	orgID := extractOrgID(c)
	_, events, unsubscribe := s.streamer.Subscribe(orgID)
	defer unsubscribe()

	w := c.Response()
	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	bw := bufio.NewWriter(w)
	ctx := c.Request().Context()
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			payload, err := json.Marshal(ev)
			if err != nil {
				continue
			}
			if _, err := bw.Write([]byte("data: ")); err != nil {
				return err
			}
			if _, err := bw.Write(payload); err != nil {
				return err
			}
			if _, err := bw.Write([]byte("\n\n")); err != nil {
				return err
			}
			if err := bw.Flush(); err != nil {
				return err
			}
			w.Flush()
		case <-ctx.Done():
			return nil
		}
	}
}
