package controllers

import (
	"net/http"

	"github.com/karimzem/fulfillment-backend/api/responses"
	"github.com/karimzem/fulfillment-backend/internal/shipping"
	pkgerrors "github.com/karimzem/fulfillment-backend/pkg/errors"
	"github.com/karimzem/fulfillment-backend/pkg/logger"
)

// RefreshShipping reconciles courier statuses into local orders on demand.
func RefreshShipping(svc shipping.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "shipping service unavailable"))
			return
		}
		result, err := svc.Refresh(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
