package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/courtside-app/courtside-backend/api/middleware"
	"github.com/courtside-app/courtside-backend/api/responses"
	"github.com/courtside-app/courtside-backend/api/validators"
	"github.com/courtside-app/courtside-backend/internal/payments"
	"github.com/courtside-app/courtside-backend/internal/reconcile"
	"github.com/courtside-app/courtside-backend/pkg/db/models"
	"github.com/courtside-app/courtside-backend/pkg/enums"
	pkgerrors "github.com/courtside-app/courtside-backend/pkg/errors"
	"github.com/courtside-app/courtside-backend/pkg/logger"
)

type createCheckoutRequest struct {
	OrderKind string `json:"order_kind" validate:"required,oneof=booking rental"`
	OrderID   string `json:"order_id" validate:"required,uuid"`
}

type verifyPaymentRequest struct {
	ProviderOrderID   string `json:"provider_order_id" validate:"required"`
	ProviderPaymentID string `json:"provider_payment_id" validate:"required"`
	Signature         string `json:"signature" validate:"required"`
}

// CreateCheckout opens a provider checkout for a draft order.
func CreateCheckout(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payments service unavailable"))
			return
		}

		var req createCheckoutRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		kind, err := enums.ParseOrderKind(req.OrderKind)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order kind"))
			return
		}
		orderID, err := uuid.Parse(req.OrderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order id"))
			return
		}

		checkout, err := svc.CreateCheckout(r.Context(), payments.CreateInput{
			Actor: middleware.ActorFromContext(r.Context()),
			Ref:   models.OrderRef{Kind: kind, ID: orderID},
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, checkout)
	}
}

// VerifyPayment accepts the client's post-checkout proof and reconciles it.
func VerifyPayment(svc reconcile.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "reconcile service unavailable"))
			return
		}

		var req verifyPaymentRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		payment, err := svc.VerifyPayment(r.Context(), reconcile.VerifyInput{
			Actor:             middleware.ActorFromContext(r.Context()),
			ProviderOrderID:   req.ProviderOrderID,
			ProviderPaymentID: req.ProviderPaymentID,
			Signature:         req.Signature,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{
			"verified": true,
			"payment":  payment,
		})
	}
}

// GetPayment returns one payment record visible to the caller.
func GetPayment(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payments service unavailable"))
			return
		}

		id, err := validators.UUIDParam(r, "paymentId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		payment, err := svc.Get(r.Context(), middleware.ActorFromContext(r.Context()), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, payment)
	}
}
