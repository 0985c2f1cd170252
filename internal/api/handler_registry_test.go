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

	"github.com/trustfabric/agentca/internal/ca"
	"github.com/trustfabric/agentca/internal/keymanager"
	"github.com/trustfabric/agentca/internal/models"
	"github.com/trustfabric/agentca/internal/store"
)

// newRegistryTestServer builds a Server backed by a real CA over an
// in-memory certificate store; tests seed certificates directly into
// certStore (bypassing CA.Issue, which always mints a fresh one from a
// completed evaluation) so list/search behaviour can be exercised in
// isolation.
func newRegistryTestServer(t *testing.T) (*Server, *store.CertificateStore) {
	t.Helper()
	keys, err := keymanager.New(t.TempDir())
	require.NoError(t, err)
	certStore := store.NewCertificateStore()
	authority := ca.New(keys, certStore, store.NewEvaluationStore(), "agentca-root-test")
	return &Server{echo: echo.New(), certs: authority}, certStore
}

func TestRegistrySearchFiltersToActiveOnly(t *testing.T) {
	s, certStore := newRegistryTestServer(t)
	certStore.Put(&models.Certificate{ID: "cert-active", AgentID: "agent-1", Status: models.CertificateStatusActive, Grade: "A", CertifiedCapabilities: []string{"web-search"}, ExpiresAt: time.Now().UTC().Add(time.Hour)})
	certStore.Put(&models.Certificate{ID: "cert-revoked", AgentID: "agent-2", Status: models.CertificateStatusRevoked, Grade: "B", ExpiresAt: time.Now().UTC().Add(time.Hour)})

	req := httptest.NewRequest(http.MethodGet, "/v1/registry/search", nil)
	rec := httptest.NewRecorder()
	c := s.echo.NewContext(req, rec)

	require.NoError(t, s.registrySearchHandler(c))

	var page PaginatedResponse[*models.Certificate]
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	require.Len(t, page.Items, 1)
	assert.Equal(t, "cert-active", page.Items[0].ID)
	assert.Equal(t, 1, page.Total)
}

func TestRegistrySearchFiltersByCapabilityAcrossFullSetBeforePagination(t *testing.T) {
	s, certStore := newRegistryTestServer(t)
	for i := 0; i < 3; i++ {
		certStore.Put(&models.Certificate{
			ID: "cert-plain-" + string(rune('a'+i)), AgentID: "agent-x", Status: models.CertificateStatusActive,
			Grade: "A", CertifiedCapabilities: []string{"planning"}, ExpiresAt: time.Now().UTC().Add(time.Hour),
		})
	}
	certStore.Put(&models.Certificate{ID: "cert-match", AgentID: "agent-y", Status: models.CertificateStatusActive, Grade: "A", CertifiedCapabilities: []string{"web-search"}, ExpiresAt: time.Now().UTC().Add(time.Hour)})

	req := httptest.NewRequest(http.MethodGet, "/v1/registry/search?capability=web-search&limit=2", nil)
	rec := httptest.NewRecorder()
	c := s.echo.NewContext(req, rec)

	require.NoError(t, s.registrySearchHandler(c))

	var page PaginatedResponse[*models.Certificate]
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	require.Len(t, page.Items, 1)
	assert.Equal(t, "cert-match", page.Items[0].ID)
	assert.Equal(t, 1, page.Total)
}

func TestRegistryCapabilitiesAndGradesHandlers(t *testing.T) {
	s, _ := newRegistryTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/registry/capabilities", nil)
	rec := httptest.NewRecorder()
	c := s.echo.NewContext(req, rec)
	require.NoError(t, s.registryCapabilitiesHandler(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	req2 := httptest.NewRequest(http.MethodGet, "/v1/registry/grades", nil)
	rec2 := httptest.NewRecorder()
	c2 := s.echo.NewContext(req2, rec2)
	require.NoError(t, s.registryGradesHandler(c2))

	var grades []string
	require.NoError(t, json.Unmarshal(rec2.Body.Bytes(), &grades))
	assert.Equal(t, []string{"A", "B", "C", "D", "F"}, grades)
}
