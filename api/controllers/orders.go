package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/courtside-app/courtside-backend/api/middleware"
	"github.com/courtside-app/courtside-backend/api/responses"
	"github.com/courtside-app/courtside-backend/api/validators"
	"github.com/courtside-app/courtside-backend/internal/orders"
	"github.com/courtside-app/courtside-backend/pkg/db/models"
	"github.com/courtside-app/courtside-backend/pkg/enums"
	pkgerrors "github.com/courtside-app/courtside-backend/pkg/errors"
	"github.com/courtside-app/courtside-backend/pkg/logger"
)

func orderRefFromURL(r *http.Request) (models.OrderRef, error) {
	kind, err := enums.ParseOrderKind(chi.URLParam(r, "kind"))
	if err != nil {
		return models.OrderRef{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order kind")
	}
	id, err := validators.UUIDParam(r, "orderId")
	if err != nil {
		return models.OrderRef{}, err
	}
	return models.OrderRef{Kind: kind, ID: id}, nil
}

// TransitionOrder moves an order to the requested lifecycle status.
func TransitionOrder(svc orders.Service, target enums.OrderStatus, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		ref, err := orderRefFromURL(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		err = svc.Transition(r.Context(), orders.TransitionInput{
			Ref:    ref,
			Target: target,
			Actor:  middleware.ActorFromContext(r.Context()),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": target.String()})
	}
}

// DeleteOrder hard-deletes a draft or cancelled order.
func DeleteOrder(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		ref, err := orderRefFromURL(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		err = svc.Delete(r.Context(), orders.DeleteInput{
			Ref:   ref,
			Actor: middleware.ActorFromContext(r.Context()),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}
