package api

import (
	"net/http"

	echo "github.com/labstack/echo/v5"

	"github.com/trustfabric/agentca/internal/ca"
	"github.com/trustfabric/agentca/internal/models"
	"github.com/trustfabric/agentca/internal/scoring"
)

// registrySearchHandler handles GET /v1/registry/search?capability=&grade=.
// This is the public view of the certificate catalogue: it only ever shows
// certificates in active status, unlike the owner-scoped
// GET /v1/certificates listing.
func (s *Server) registrySearchHandler(c *echo.Context) error {
	all := s.certs.List(ca.ListFilter{Status: models.CertificateStatusActive})

	capability := c.QueryParam("capability")
	grade := c.QueryParam("grade")
	filtered := all[:0:0]
	for _, cert := range all {
		if capability != "" && !containsCapability(cert.CertifiedCapabilities, capability) {
			continue
		}
		if grade != "" && cert.Grade != grade {
			continue
		}
		filtered = append(filtered, cert)
	}

	offset, limit := parsePagination(c)
	page, total := paginate(filtered, offset, limit)
	return c.JSON(http.StatusOK, PaginatedResponse[*models.Certificate]{Items: page, Offset: offset, Limit: limit, Total: total})
}

// registryVerifyHandler handles GET /v1/registry/verify/{id}.
func (s *Server) registryVerifyHandler(c *echo.Context) error {
	return s.verify(c)
}

// verify is the shared verification handler backing both
// GET /v1/certificates/{id}/verify and GET /v1/registry/verify/{id}.
func (s *Server) verify(c *echo.Context) error {
	result, err := s.certs.Verify(c.Param("id"))
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, result)
}

// registryCRLHandler handles GET /v1/registry/crl.
func (s *Server) registryCRLHandler(c *echo.Context) error {
	return c.JSON(http.StatusOK, s.certs.CRL())
}

// registryCapabilitiesHandler handles GET /v1/registry/capabilities: the
// fixed set of capability labels this CA can certify (spec §4.1's
// "fixed mapping from test name to canonical capability labels").
func (s *Server) registryCapabilitiesHandler(c *echo.Context) error {
	return c.JSON(http.StatusOK, ca.AllCapabilityLabels())
}

// registryGradesHandler handles GET /v1/registry/grades.
func (s *Server) registryGradesHandler(c *echo.Context) error {
	return c.JSON(http.StatusOK, scoring.AllGrades)
}

func containsCapability(capabilities []string, want string) bool {
	for _, c := range capabilities {
		if c == want {
			return true
		}
	}
	return false
}
