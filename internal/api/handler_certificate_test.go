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
)

func TestListCertificatesHandlerReportsTrueTotalAcrossPages(t *testing.T) {
	s, certStore := newRegistryTestServer(t)
	for i := 0; i < 5; i++ {
		certStore.Put(&models.Certificate{
			ID: "cert-" + string(rune('a'+i)), AgentID: "agent-shared", Status: models.CertificateStatusExpired,
			Grade: "A", ExpiresAt: time.Now().UTC().Add(-time.Hour),
		})
	}

	req := httptest.NewRequest(http.MethodGet, "/v1/certificates?status=expired&limit=2", nil)
	rec := httptest.NewRecorder()
	c := s.echo.NewContext(req, rec)

	require.NoError(t, s.listCertificatesHandler(c))

	var page PaginatedResponse[*models.Certificate]
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	assert.Len(t, page.Items, 2)
	assert.Equal(t, 5, page.Total)
}

func TestIssueCertificateHandlerRejectsMissingFields(t *testing.T) {
	s, _ := newRegistryTestServer(t)

	body, _ := json.Marshal(IssueCertificateRequest{AgentID: "agent-1"})
	req := httptest.NewRequest(http.MethodPost, "/v1/certificates", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	c := s.echo.NewContext(req, rec)

	err := s.issueCertificateHandler(c)
	require.Error(t, err)
	he := err.(*echo.HTTPError)
	assert.Equal(t, http.StatusBadRequest, he.Code)
}

func TestRevokeCertificateHandlerRequiresReason(t *testing.T) {
	s, certStore := newRegistryTestServer(t)
	certStore.Put(&models.Certificate{ID: "cert-1", AgentID: "agent-1", Status: models.CertificateStatusActive, ExpiresAt: time.Now().UTC().Add(time.Hour)})

	req := httptest.NewRequest(http.MethodPost, "/v1/certificates/cert-1/revoke", bytes.NewReader([]byte(`{}`)))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	c := s.echo.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("cert-1")

	err := s.revokeCertificateHandler(c)
	require.Error(t, err)
	he := err.(*echo.HTTPError)
	assert.Equal(t, http.StatusBadRequest, he.Code)
}

func TestCertificateAndRegistryVerifyShareOneImplementation(t *testing.T) {
	s, certStore := newRegistryTestServer(t)
	certStore.Put(&models.Certificate{ID: "cert-1", AgentID: "agent-1", Status: models.CertificateStatusRevoked, ExpiresAt: time.Now().UTC().Add(time.Hour)})

	reqOwner := httptest.NewRequest(http.MethodGet, "/v1/certificates/cert-1/verify", nil)
	recOwner := httptest.NewRecorder()
	cOwner := s.echo.NewContext(reqOwner, recOwner)
	cOwner.SetParamNames("id")
	cOwner.SetParamValues("cert-1")
	require.NoError(t, s.verifyCertificateHandler(cOwner))

	reqPublic := httptest.NewRequest(http.MethodGet, "/v1/registry/verify/cert-1", nil)
	recPublic := httptest.NewRecorder()
	cPublic := s.echo.NewContext(reqPublic, recPublic)
	cPublic.SetParamNames("id")
	cPublic.SetParamValues("cert-1")
	require.NoError(t, s.registryVerifyHandler(cPublic))

	assert.JSONEq(t, recOwner.Body.String(), recPublic.Body.String())
}
