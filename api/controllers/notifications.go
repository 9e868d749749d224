package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/karimzem/fulfillment-backend/api/responses"
	"github.com/karimzem/fulfillment-backend/api/validators"
	"github.com/karimzem/fulfillment-backend/internal/notifications"
	pkgerrors "github.com/karimzem/fulfillment-backend/pkg/errors"
	"github.com/karimzem/fulfillment-backend/pkg/logger"
)

const maxNotificationsPage = 100

// ListNotifications returns an agent's unread notifications.
func ListNotifications(repo notifications.Repository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if repo == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "notifications repository unavailable"))
			return
		}
		agentID, err := parseUUIDParam(r, "agentId", "agent id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", 20, 1, maxNotificationsPage)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := repo.ListUnread(r.Context(), agentID, limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list notifications"))
			return
		}
		responses.WriteSuccess(w, list)
	}
}

type markReadRequest struct {
	IDs []uuid.UUID `json:"ids" validate:"required,min=1,max=100"`
}

// MarkNotificationsRead flags the given notifications as read.
func MarkNotificationsRead(repo notifications.Repository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if repo == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "notifications repository unavailable"))
			return
		}
		agentID, err := parseUUIDParam(r, "agentId", "agent id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req markReadRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := repo.MarkRead(r.Context(), agentID, req.IDs); err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark notifications read"))
			return
		}
		responses.WriteSuccess(w, map[string]int{"marked": len(req.IDs)})
	}
}
