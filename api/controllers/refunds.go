package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/courtside-app/courtside-backend/api/middleware"
	"github.com/courtside-app/courtside-backend/api/responses"
	"github.com/courtside-app/courtside-backend/api/validators"
	"github.com/courtside-app/courtside-backend/internal/refunds"
	"github.com/courtside-app/courtside-backend/pkg/enums"
	pkgerrors "github.com/courtside-app/courtside-backend/pkg/errors"
	"github.com/courtside-app/courtside-backend/pkg/logger"
)

type createRefundRequest struct {
	PaymentID   string `json:"payment_id" validate:"required,uuid"`
	Type        string `json:"type" validate:"required,oneof=full partial"`
	AmountCents int64  `json:"amount_cents" validate:"omitempty,gt=0"`
	Reason      string `json:"reason" validate:"omitempty,max=500"`
}

// CreateRefund issues a full or partial refund against a completed payment.
func CreateRefund(svc refunds.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "refunds service unavailable"))
			return
		}

		var req createRefundRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		paymentID, err := uuid.Parse(req.PaymentID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment id"))
			return
		}

		refund, err := svc.Create(r.Context(), refunds.CreateInput{
			Actor:       middleware.ActorFromContext(r.Context()),
			PaymentID:   paymentID,
			Type:        enums.RefundType(req.Type),
			AmountCents: req.AmountCents,
			Reason:      req.Reason,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, refund)
	}
}
