package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	echo "github.com/labstack/echo/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trustfabric/agentca/internal/models"
	"github.com/trustfabric/agentca/internal/store"
	"github.com/trustfabric/agentca/internal/tacp"
)

func newSessionTestServer() *Server {
	return &Server{
		echo:     echo.New(),
		agents:   store.NewAgentStore(),
		sessions: tacp.NewManager(),
	}
}

func TestCreateSessionHandlerRejectsUnknownResponder(t *testing.T) {
	s := newSessionTestServer()
	s.agents.Put(&models.Agent{ID: "agent-1", OwnerOrganizationID: "org-1", Name: "initiator"})

	body, _ := json.Marshal(CreateSessionRequest{InitiatorAgentID: "agent-1", ResponderAgentID: "missing", Purpose: "handoff"})
	req := httptest.NewRequest(http.MethodPost, "/v1/sessions", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	c := s.echo.NewContext(req, rec)

	err := s.createSessionHandler(c)
	require.Error(t, err)
	he := err.(*echo.HTTPError)
	assert.Equal(t, http.StatusNotFound, he.Code)
}

func TestCreateSessionHandlerCreatesPendingSession(t *testing.T) {
	s := newSessionTestServer()
	s.agents.Put(&models.Agent{ID: "agent-1", OwnerOrganizationID: "org-1", Name: "initiator"})
	s.agents.Put(&models.Agent{ID: "agent-2", OwnerOrganizationID: "org-2", Name: "responder"})

	body, _ := json.Marshal(CreateSessionRequest{InitiatorAgentID: "agent-1", ResponderAgentID: "agent-2", Purpose: "handoff"})
	req := httptest.NewRequest(http.MethodPost, "/v1/sessions", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	c := s.echo.NewContext(req, rec)

	require.NoError(t, s.createSessionHandler(c))
	assert.Equal(t, http.StatusCreated, rec.Code)

	var session models.TACPSession
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &session))
	assert.Equal(t, models.SessionStatusPending, session.Status)
}

func TestAcceptSessionHandlerActivatesSession(t *testing.T) {
	s := newSessionTestServer()
	session := s.sessions.Create("agent-1", "agent-2", "handoff", models.SessionConstraints{})

	req := httptest.NewRequest(http.MethodPost, "/v1/sessions/"+session.Record.ID+"/accept", nil)
	rec := httptest.NewRecorder()
	c := s.echo.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(session.Record.ID)

	require.NoError(t, s.acceptSessionHandler(c))

	var out models.TACPSession
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, models.SessionStatusActive, out.Status)
}

func TestDeleteSessionHandlerReturnsNotFoundForUnknownID(t *testing.T) {
	s := newSessionTestServer()

	req := httptest.NewRequest(http.MethodDelete, "/v1/sessions/missing", nil)
	rec := httptest.NewRecorder()
	c := s.echo.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("missing")

	err := s.deleteSessionHandler(c)
	require.Error(t, err)
	he := err.(*echo.HTTPError)
	assert.Equal(t, http.StatusNotFound, he.Code)
}
