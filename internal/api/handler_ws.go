package api

import (
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	echo "github.com/labstack/echo/v5"

	"github.com/trustfabric/agentca/internal/models"
)

// sessionUpgrader upgrades a session's duplex channel. Origin checking is
// left to a reverse proxy in front of this service, matching the rest of
// the module's out-of-scope authn/authz stance (spec §6).
var sessionUpgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// sessionWSHandler handles GET /v1/sessions/{id}/ws?agent_id=: the
// persistent duplex channel spec §6 requires, carrying TACP envelopes
// (models.MessageEnvelope) in both directions. Every inbound envelope is
// dispatched through the same internal/tacp.Handler.Handle REST's
// postSessionMessageHandler uses, so behaviour is identical regardless of
// transport; synchronous replies are pushed back over the same socket
// instead of returned as an HTTP response body. agent_id must name one of
// the session's two participants: it registers this connection with
// internal/tacp.Handler's router so task_progress/task_complete/task_failed
// notifications addressed to this agent — sent by the other participant,
// possibly over its own separate connection — are delivered here instead of
// only reaching whichever connection happened to submit them.
func (s *Server) sessionWSHandler(c *echo.Context) error {
	sessionID := c.Param("id")
	session, err := s.sessions.Get(sessionID)
	if err != nil {
		return mapError(err)
	}

	agentID := c.QueryParam("agent_id")
	if agentID == "" || (agentID != session.Record.InitiatorAgentID && agentID != session.Record.ResponderAgentID) {
		return badRequest("agent_id query parameter must identify a participant in this session")
	}

	conn, err := sessionUpgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	notifications, disconnect := s.protocol.Connect(sessionID, agentID)
	defer disconnect()

	var writeMu sync.Mutex
	writeJSON := func(v any) error {
		writeMu.Lock()
		defer writeMu.Unlock()
		return conn.WriteJSON(v)
	}

	go func() {
		for env := range notifications {
			if err := writeJSON(env); err != nil {
				return
			}
		}
	}()

	for {
		var env models.MessageEnvelope
		if err := conn.ReadJSON(&env); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Warn("session websocket closed unexpectedly", "session_id", sessionID, "error", err)
			}
			return nil
		}
		env.SessionID = sessionID
		env.SenderID = agentID

		replies, err := s.protocol.Handle(env)
		if err != nil {
			_ = writeJSON(map[string]string{"error": err.Error()})
			continue
		}
		for _, reply := range replies {
			if err := writeJSON(reply); err != nil {
				return nil
			}
		}
	}
}
