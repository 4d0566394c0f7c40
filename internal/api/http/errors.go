package http

import (
	"context"
	"errors"
	"net/http"

	vaulterrors "github.com/arkilian/vaultquery/internal/errors"
)

// statusFor maps a service error to an HTTP status and the innermost error code.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, ""
	case errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable, ""
	}

	inner := vaulterrors.Innermost(err)
	if inner == nil {
		return http.StatusInternalServerError, ""
	}

	switch inner.Category {
	case vaulterrors.ErrCategoryCriteria, vaulterrors.ErrCategoryPaging, vaulterrors.ErrCategoryTypeResolution:
		return http.StatusBadRequest, inner.Code
	case vaulterrors.ErrCategoryStorage:
		return http.StatusServiceUnavailable, inner.Code
	case vaulterrors.ErrCategoryVault:
		if inner.Code == vaulterrors.CodeNotImplemented {
			return http.StatusNotImplemented, inner.Code
		}
	}
	return http.StatusInternalServerError, inner.Code
}
