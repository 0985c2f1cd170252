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
)

func newTestServer() *Server {
	return &Server{
		echo:   echo.New(),
		agents: store.NewAgentStore(),
	}
}

func TestRegisterAgentHandlerCreatesAgent(t *testing.T) {
	s := newTestServer()
	e := s.echo

	body, err := json.Marshal(RegisterAgentRequest{
		OwnerOrganizationID:  "org-1",
		Name:                 "scout",
		DeclaredCapabilities: []string{"web-search"},
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/v1/agents", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	require.NoError(t, s.registerAgentHandler(c))
	assert.Equal(t, http.StatusCreated, rec.Code)

	var agent models.Agent
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &agent))
	assert.Equal(t, "scout", agent.Name)
	assert.Equal(t, "org-1", agent.OwnerOrganizationID)
	assert.Equal(t, models.AgentStatusActive, agent.Status)
	assert.NotEmpty(t, agent.ID)
}

func TestRegisterAgentHandlerRejectsMissingName(t *testing.T) {
	s := newTestServer()
	e := s.echo

	body, _ := json.Marshal(RegisterAgentRequest{OwnerOrganizationID: "org-1"})
	req := httptest.NewRequest(http.MethodPost, "/v1/agents", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := s.registerAgentHandler(c)
	require.Error(t, err)
	he, ok := err.(*echo.HTTPError)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, he.Code)
}

func TestGetAgentHandlerReturnsNotFound(t *testing.T) {
	s := newTestServer()
	e := s.echo

	req := httptest.NewRequest(http.MethodGet, "/v1/agents/unknown", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("unknown")

	err := s.getAgentHandler(c)
	require.Error(t, err)
	he, ok := err.(*echo.HTTPError)
	require.True(t, ok)
	assert.Equal(t, http.StatusNotFound, he.Code)
}

func TestPatchAgentHandlerAppliesOnlyProvidedFields(t *testing.T) {
	s := newTestServer()
	e := s.echo

	s.agents.Put(&models.Agent{ID: "agent-1", OwnerOrganizationID: "org-1", Name: "old-name", Status: models.AgentStatusActive})

	newName := "new-name"
	body, _ := json.Marshal(PatchAgentRequest{Name: &newName})
	req := httptest.NewRequest(http.MethodPatch, "/v1/agents/agent-1", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("agent-1")

	require.NoError(t, s.patchAgentHandler(c))

	agent, err := s.agents.Get("agent-1")
	require.NoError(t, err)
	assert.Equal(t, "new-name", agent.Name)
	assert.Equal(t, models.AgentStatusActive, agent.Status)
}

func TestDeleteAgentHandlerRemovesAgent(t *testing.T) {
	s := newTestServer()
	e := s.echo

	s.agents.Put(&models.Agent{ID: "agent-1", OwnerOrganizationID: "org-1", Name: "scout"})

	req := httptest.NewRequest(http.MethodDelete, "/v1/agents/agent-1", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("agent-1")

	require.NoError(t, s.deleteAgentHandler(c))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.False(t, s.agents.Exists("agent-1"))
}

func TestListAgentsHandlerScopesToOrganizationByDefault(t *testing.T) {
	s := newTestServer()
	e := s.echo

	s.agents.Put(&models.Agent{ID: "agent-1", OwnerOrganizationID: "org-1", Name: "a"})
	s.agents.Put(&models.Agent{ID: "agent-2", OwnerOrganizationID: "org-2", Name: "b"})

	req := httptest.NewRequest(http.MethodGet, "/v1/agents", nil)
	req.Header.Set("X-Organization-ID", "org-1")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	require.NoError(t, s.listAgentsHandler(c))

	var page PaginatedResponse[*models.Agent]
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	require.Len(t, page.Items, 1)
	assert.Equal(t, "agent-1", page.Items[0].ID)
}
