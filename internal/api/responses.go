package api

import "github.com/trustfabric/agentca/internal/database"

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status   string                  `json:"status"`
	Database *database.HealthStatus `json:"database,omitempty"`
}

// PaginatedResponse wraps a page of items with the offset/limit that
// produced it, used by every list endpoint.
type PaginatedResponse[T any] struct {
	Items  []T `json:"items"`
	Offset int `json:"offset"`
	Limit  int `json:"limit"`
	Total  int `json:"total"`
}
