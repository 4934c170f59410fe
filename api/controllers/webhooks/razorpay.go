package webhooks

import (
	"io"
	"net/http"

	"github.com/courtside-app/courtside-backend/api/responses"
	razorpaywebhook "github.com/courtside-app/courtside-backend/internal/webhooks/razorpay"
	pkgerrors "github.com/courtside-app/courtside-backend/pkg/errors"
	"github.com/courtside-app/courtside-backend/pkg/logger"
)

// RazorpayWebhook receives provider payment events. Signature checks,
// dedupe, and dispatch all happen in the webhook service; this handler only
// moves bytes and headers.
func RazorpayWebhook(svc razorpaywebhook.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook service unavailable"))
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read request body"))
			return
		}

		signature := r.Header.Get("X-Razorpay-Signature")
		if signature == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "razorpay signature missing"))
			return
		}
		eventID := r.Header.Get("X-Razorpay-Event-Id")

		if err := svc.Handle(ctx, body, signature, eventID); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]bool{"received": true})
	}
}
