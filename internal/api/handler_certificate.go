package api

import (
	"net/http"
	"time"

	echo "github.com/labstack/echo/v5"

	"github.com/trustfabric/agentca/internal/ca"
	"github.com/trustfabric/agentca/internal/models"
)

// defaultCertificateValidity is used when a caller omits validity_days.
const defaultCertificateValidity = 90 * 24 * time.Hour

// issueCertificateHandler handles POST /v1/certificates.
func (s *Server) issueCertificateHandler(c *echo.Context) error {
	var req IssueCertificateRequest
	if err := c.Bind(&req); err != nil {
		return badRequest("malformed request body")
	}
	if req.AgentID == "" || req.EvaluationID == "" {
		return badRequest("agent_id and evaluation_id are required")
	}

	validity := defaultCertificateValidity
	if req.ValidityDays > 0 {
		validity = time.Duration(req.ValidityDays) * 24 * time.Hour
	}

	cert, err := s.certs.Issue(req.AgentID, req.EvaluationID, validity)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusCreated, cert)
}

// listCertificatesHandler handles GET /v1/certificates?agent_id=&status=.
func (s *Server) listCertificatesHandler(c *echo.Context) error {
	offset, limit := parsePagination(c)
	filter := ca.ListFilter{
		AgentID: c.QueryParam("agent_id"),
		Status:  models.CertificateStatus(c.QueryParam("status")),
	}
	all := s.certs.List(filter)
	page, total := paginate(all, offset, limit)
	return c.JSON(http.StatusOK, PaginatedResponse[*models.Certificate]{Items: page, Offset: offset, Limit: limit, Total: total})
}

// getCertificateHandler handles GET /v1/certificates/{id}.
func (s *Server) getCertificateHandler(c *echo.Context) error {
	cert, err := s.certs.Get(c.Param("id"))
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, cert)
}

// revokeCertificateHandler handles POST /v1/certificates/{id}/revoke.
func (s *Server) revokeCertificateHandler(c *echo.Context) error {
	var req RevokeCertificateRequest
	if err := c.Bind(&req); err != nil {
		return badRequest("malformed request body")
	}
	if req.Reason == "" {
		return badRequest("reason is required")
	}

	cert, err := s.certs.Revoke(c.Param("id"), req.Reason, extractActor(c))
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, cert)
}

// getCertificateChainHandler handles GET /v1/certificates/{id}/chain.
func (s *Server) getCertificateChainHandler(c *echo.Context) error {
	chain, err := s.certs.GetChain(c.Param("id"))
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, chain)
}

// verifyCertificateHandler handles GET /v1/certificates/{id}/verify — the
// owner-scoped alias of GET /v1/registry/verify/{id}; both call the same
// CA.Verify so the result is identical regardless of which path a client used.
func (s *Server) verifyCertificateHandler(c *echo.Context) error {
	return s.verify(c)
}
