package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/karimzem/fulfillment-backend/api/responses"
	ordersync "github.com/karimzem/fulfillment-backend/internal/sync"
	"github.com/karimzem/fulfillment-backend/internal/syncpos"
	pkgerrors "github.com/karimzem/fulfillment-backend/pkg/errors"
	"github.com/karimzem/fulfillment-backend/pkg/logger"
)

// SyncAll triggers an ingestion run for every active store.
func SyncAll(svc ordersync.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "sync service unavailable"))
			return
		}
		results, err := svc.SyncAll(r.Context())
		if err != nil {
			// Partial progress still matters to the operator.
			typed := pkgerrors.As(err)
			if typed != nil {
				responses.WriteError(r.Context(), logg, w, typed.WithDetails(results))
				return
			}
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, results)
	}
}

// SyncStore triggers an ingestion run for one store.
func SyncStore(svc ordersync.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "sync service unavailable"))
			return
		}
		store := strings.TrimSpace(chi.URLParam(r, "store"))
		if store == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "store identifier is required"))
			return
		}

		result, err := svc.SyncStore(r.Context(), store)
		if err != nil {
			typed := pkgerrors.As(err)
			if typed != nil && result != nil {
				responses.WriteError(r.Context(), logg, w, typed.WithDetails(result))
				return
			}
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// SyncPositions reports the durability health of every store's feed position.
func SyncPositions(store *syncpos.Store, stores []string, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if store == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "position store unavailable"))
			return
		}
		responses.WriteSuccess(w, store.Statuses(r.Context(), stores))
	}
}
