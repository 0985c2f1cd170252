package api

import (
	"log/slog"
	"net/http"

	echo "github.com/labstack/echo/v5"

	"github.com/trustfabric/agentca/internal/apperr"
)

// ErrorResponse is the stable JSON error body spec §7 requires: every
// response carries a stable error code identifier and a human-readable
// detail.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// mapError maps a domain error to an *echo.HTTPError carrying an
// ErrorResponse body, keyed off apperr's stable Kind taxonomy rather than
// string matching.
func mapError(err error) *echo.HTTPError {
	if apperr.IsValidationError(err) {
		return httpError(http.StatusBadRequest, apperr.KindInvalidArgument, err.Error())
	}

	kind := apperr.KindOf(err)
	switch kind {
	case apperr.KindNotFound:
		return httpError(http.StatusNotFound, kind, err.Error())
	case apperr.KindNotAuthorised:
		return httpError(http.StatusForbidden, kind, err.Error())
	case apperr.KindInvalidArgument:
		return httpError(http.StatusBadRequest, kind, err.Error())
	case apperr.KindPreconditionFailed:
		return httpError(http.StatusConflict, kind, err.Error())
	case apperr.KindNotEligible:
		return httpError(http.StatusUnprocessableEntity, kind, err.Error())
	case apperr.KindVerificationFailed, apperr.KindTrustVerificationError:
		return httpError(http.StatusUnprocessableEntity, kind, err.Error())
	case apperr.KindTimeout:
		return httpError(http.StatusGatewayTimeout, kind, err.Error())
	case apperr.KindRateLimited:
		return httpError(http.StatusTooManyRequests, kind, err.Error())
	case apperr.KindUpstreamError:
		return httpError(http.StatusBadGateway, kind, err.Error())
	case apperr.KindProtocolError:
		return httpError(http.StatusBadRequest, kind, err.Error())
	default:
		slog.Error("unexpected internal error", "error", err)
		return httpError(http.StatusInternalServerError, apperr.KindInternal, "internal error")
	}
}

func httpError(status int, kind apperr.Kind, message string) *echo.HTTPError {
	return echo.NewHTTPError(status, ErrorResponse{Code: string(kind), Message: message})
}

func badRequest(message string) *echo.HTTPError {
	return httpError(http.StatusBadRequest, apperr.KindInvalidArgument, message)
}
