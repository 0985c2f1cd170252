package api

import (
	"net/http"

	"time"

	echo "github.com/labstack/echo/v5"
	"github.com/google/uuid"

	"github.com/trustfabric/agentca/internal/models"
)

// createSessionHandler handles POST /v1/sessions.
func (s *Server) createSessionHandler(c *echo.Context) error {
	var req CreateSessionRequest
	if err := c.Bind(&req); err != nil {
		return badRequest("malformed request body")
	}
	if req.InitiatorAgentID == "" || req.ResponderAgentID == "" {
		return badRequest("initiator_agent_id and responder_agent_id are required")
	}
	if _, err := s.agents.Get(req.InitiatorAgentID); err != nil {
		return mapError(err)
	}
	if _, err := s.agents.Get(req.ResponderAgentID); err != nil {
		return mapError(err)
	}

	session := s.sessions.Create(req.InitiatorAgentID, req.ResponderAgentID, req.Purpose, req.Constraints)
	return c.JSON(http.StatusCreated, session.Record)
}

// listSessionsHandler handles GET /v1/sessions.
func (s *Server) listSessionsHandler(c *echo.Context) error {
	all := s.sessions.List()
	offset, limit := parsePagination(c)
	page, total := paginate(all, offset, limit)
	return c.JSON(http.StatusOK, PaginatedResponse[models.TACPSession]{Items: page, Offset: offset, Limit: limit, Total: total})
}

// getSessionHandler handles GET /v1/sessions/{id}.
func (s *Server) getSessionHandler(c *echo.Context) error {
	session, err := s.sessions.Get(c.Param("id"))
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, session.Record)
}

// acceptSessionHandler handles POST /v1/sessions/{id}/accept.
func (s *Server) acceptSessionHandler(c *echo.Context) error {
	session, err := s.sessions.Accept(c.Param("id"))
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, session.Record)
}

// rejectSessionHandler handles POST /v1/sessions/{id}/reject.
func (s *Server) rejectSessionHandler(c *echo.Context) error {
	var req RejectSessionRequest
	if err := c.Bind(&req); err != nil {
		return badRequest("malformed request body")
	}

	session, err := s.sessions.Reject(c.Param("id"), req.Reason)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, session.Record)
}

// deleteSessionHandler handles DELETE /v1/sessions/{id}.
func (s *Server) deleteSessionHandler(c *echo.Context) error {
	id := c.Param("id")
	if _, err := s.sessions.Get(id); err != nil {
		return mapError(err)
	}
	s.sessions.Delete(id)
	return c.NoContent(http.StatusNoContent)
}

// postSessionMessageHandler handles POST /v1/sessions/{id}/messages: the
// plain-REST alternative to sending an envelope over
// /v1/sessions/{id}/ws, for callers that don't hold a persistent
// connection. Only request/reply message types (ping, trust_challenge,
// capability_query, task_request) yield a body here; task_progress,
// task_complete and task_failed are one-way notifications addressed to the
// other participant and are delivered through internal/tacp.Router to
// whichever websocket connection that participant holds, if any — this
// endpoint never echoes them back to the caller that posted them.
func (s *Server) postSessionMessageHandler(c *echo.Context) error {
	var req PostSessionMessageRequest
	if err := c.Bind(&req); err != nil {
		return badRequest("malformed request body")
	}
	if req.SenderID == "" || req.RecipientID == "" || req.Type == "" {
		return badRequest("sender_id, recipient_id and type are required")
	}

	env := models.MessageEnvelope{
		MessageID:   uuid.NewString(),
		SessionID:   c.Param("id"),
		SenderID:    req.SenderID,
		RecipientID: req.RecipientID,
		Type:        req.Type,
		Payload:     req.Payload,
		Timestamp:   time.Now().UTC(),
	}

	replies, err := s.protocol.Handle(env)
	if err != nil {
		return mapError(err)
	}
	if replies == nil {
		replies = []models.MessageEnvelope{}
	}
	return c.JSON(http.StatusOK, replies)
}
