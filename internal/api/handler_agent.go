package api

import (
	"net/http"
	"strconv"
	"time"

	echo "github.com/labstack/echo/v5"
	"github.com/google/uuid"

	"github.com/trustfabric/agentca/internal/apperr"
	"github.com/trustfabric/agentca/internal/models"
)

// registerAgentHandler handles POST /v1/agents.
func (s *Server) registerAgentHandler(c *echo.Context) error {
	var req RegisterAgentRequest
	if err := c.Bind(&req); err != nil {
		return badRequest("malformed request body")
	}
	if req.Name == "" {
		return badRequest("name is required")
	}
	orgID := req.OwnerOrganizationID
	if orgID == "" {
		orgID = extractOrgID(c)
	}

	now := time.Now().UTC()
	agent := &models.Agent{
		ID:                   uuid.NewString(),
		OwnerOrganizationID:  orgID,
		Name:                 req.Name,
		DeclaredCapabilities: req.DeclaredCapabilities,
		PublicVerifyKeyHex:   req.PublicVerifyKeyHex,
		Status:               models.AgentStatusActive,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	s.agents.Put(agent)
	return c.JSON(http.StatusCreated, agent)
}

// listAgentsHandler handles GET /v1/agents. Results are scoped to the
// caller's organisation unless ?all=true is passed (registry-wide admin
// view), paginated by offset/limit.
func (s *Server) listAgentsHandler(c *echo.Context) error {
	var all []*models.Agent
	if c.QueryParam("all") == "true" {
		all = s.agents.ListAll()
	} else {
		all = s.agents.ListByOrganization(extractOrgID(c))
	}

	offset, limit := parsePagination(c)
	page, total := paginate(all, offset, limit)
	return c.JSON(http.StatusOK, PaginatedResponse[*models.Agent]{Items: page, Offset: offset, Limit: limit, Total: total})
}

// getAgentHandler handles GET /v1/agents/{id}.
func (s *Server) getAgentHandler(c *echo.Context) error {
	agent, err := s.agents.Get(c.Param("id"))
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, agent)
}

// patchAgentHandler handles PATCH /v1/agents/{id}.
func (s *Server) patchAgentHandler(c *echo.Context) error {
	var req PatchAgentRequest
	if err := c.Bind(&req); err != nil {
		return badRequest("malformed request body")
	}

	agent, err := s.agents.Get(c.Param("id"))
	if err != nil {
		return mapError(err)
	}

	if req.Name != nil {
		agent.Name = *req.Name
	}
	if req.DeclaredCapabilities != nil {
		agent.DeclaredCapabilities = *req.DeclaredCapabilities
	}
	if req.Status != nil {
		agent.Status = *req.Status
	}
	agent.UpdatedAt = time.Now().UTC()

	s.agents.Put(agent)
	return c.JSON(http.StatusOK, agent)
}

// deleteAgentHandler handles DELETE /v1/agents/{id}.
func (s *Server) deleteAgentHandler(c *echo.Context) error {
	id := c.Param("id")
	if !s.agents.Exists(id) {
		return mapError(apperr.ErrNotFound)
	}
	s.agents.Delete(id)
	return c.NoContent(http.StatusNoContent)
}

// parsePagination reads ?offset= and ?limit= from the request, defaulting
// to offset 0 and limit 50, capping limit at 200.
func parsePagination(c *echo.Context) (offset, limit int) {
	limit = 50
	if v := c.QueryParam("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}
	if v := c.QueryParam("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
			if limit > 200 {
				limit = 200
			}
		}
	}
	return offset, limit
}

// paginate slices items[offset:offset+limit], returning the original length
// as total.
func paginate[T any](items []T, offset, limit int) ([]T, int) {
	total := len(items)
	if offset >= total {
		return []T{}, total
	}
	end := total
	if offset+limit < end {
		end = offset + limit
	}
	return items[offset:end], total
}
