package razorpay

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/courtside-app/courtside-backend/pkg/db/models"
	pkgerrors "github.com/courtside-app/courtside-backend/pkg/errors"
)

const testWebhookSecret = "whsec-test"

type captureCall struct {
	orderID   string
	paymentID string
}

type failureCall struct {
	orderID   string
	paymentID string
	reason    string
}

type stubReconciler struct {
	captures []captureCall
	failures []failureCall
	err      error
}

func (s *stubReconciler) HandleProviderCapture(ctx context.Context, providerOrderID, providerPaymentID string) error {
	s.captures = append(s.captures, captureCall{orderID: providerOrderID, paymentID: providerPaymentID})
	return s.err
}

func (s *stubReconciler) HandleProviderFailure(ctx context.Context, providerOrderID, providerPaymentID, reason string) error {
	s.failures = append(s.failures, failureCall{orderID: providerOrderID, paymentID: providerPaymentID, reason: reason})
	return s.err
}

type stubGuard struct {
	seen map[string]bool
}

func newStubGuard() *stubGuard {
	return &stubGuard{seen: map[string]bool{}}
}

func (s *stubGuard) CheckAndMark(ctx context.Context, eventID string) (bool, error) {
	if s.seen[eventID] {
		return false, nil
	}
	s.seen[eventID] = true
	return true, nil
}

func (s *stubGuard) Release(ctx context.Context, eventID string) error {
	delete(s.seen, eventID)
	return nil
}

type stubRepo struct {
	rows []*models.WebhookEvent
}

func (s *stubRepo) Insert(ctx context.Context, event *models.WebhookEvent) error {
	s.rows = append(s.rows, event)
	return nil
}

func signBody(body []byte) string {
	mac := hmac.New(sha256.New, []byte(testWebhookSecret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func newTestService(t *testing.T) (Service, *stubReconciler, *stubGuard, *stubRepo) {
	t.Helper()

	rec := &stubReconciler{}
	guard := newStubGuard()
	repo := &stubRepo{}
	svc, err := NewService(rec, guard, repo, testWebhookSecret, nil, nil)
	require.NoError(t, err)
	return svc, rec, guard, repo
}

func TestHandleCapturedEvent(t *testing.T) {
	ctx := context.Background()
	svc, rec, _, repo := newTestService(t)

	body := []byte(`{"event":"payment.captured","payload":{"payment":{"entity":{"id":"pay_1","order_id":"order_1"}}}}`)
	require.NoError(t, svc.Handle(ctx, body, signBody(body), "evt_1"))

	require.Len(t, rec.captures, 1)
	require.Equal(t, captureCall{orderID: "order_1", paymentID: "pay_1"}, rec.captures[0])

	require.Len(t, repo.rows, 1)
	require.True(t, repo.rows[0].Handled)
	require.Equal(t, EventPaymentCaptured, repo.rows[0].EventType)
	require.Equal(t, "evt_1", repo.rows[0].EventID)
}

func TestHandleFailedEvent(t *testing.T) {
	ctx := context.Background()
	svc, rec, _, _ := newTestService(t)

	body := []byte(`{"event":"payment.failed","payload":{"payment":{"entity":{"id":"pay_2","order_id":"order_2","error_description":"card declined"}}}}`)
	require.NoError(t, svc.Handle(ctx, body, signBody(body), "evt_2"))

	require.Len(t, rec.failures, 1)
	require.Equal(t, failureCall{orderID: "order_2", paymentID: "pay_2", reason: "card declined"}, rec.failures[0])
}

func TestHandleRejectsBadSignature(t *testing.T) {
	ctx := context.Background()
	svc, rec, _, repo := newTestService(t)

	body := []byte(`{"event":"payment.captured","payload":{"payment":{"entity":{"id":"pay_1","order_id":"order_1"}}}}`)
	err := svc.Handle(ctx, body, "deadbeef", "evt_3")
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))
	require.Empty(t, rec.captures)
	require.Empty(t, repo.rows)
}

func TestHandleDeduplicatesDeliveries(t *testing.T) {
	ctx := context.Background()
	svc, rec, _, repo := newTestService(t)

	body := []byte(`{"event":"payment.captured","payload":{"payment":{"entity":{"id":"pay_1","order_id":"order_1"}}}}`)
	sig := signBody(body)
	require.NoError(t, svc.Handle(ctx, body, sig, "evt_dup"))
	require.NoError(t, svc.Handle(ctx, body, sig, "evt_dup"))

	require.Len(t, rec.captures, 1)
	require.Len(t, repo.rows, 1)
}

func TestHandleReleasesGuardOnFailure(t *testing.T) {
	ctx := context.Background()
	svc, rec, guard, repo := newTestService(t)
	rec.err = pkgerrors.New(pkgerrors.CodeDependency, "db down")

	body := []byte(`{"event":"payment.captured","payload":{"payment":{"entity":{"id":"pay_1","order_id":"order_1"}}}}`)
	sig := signBody(body)

	// the provider still gets an ack, but the dedupe key is freed so a
	// redelivery is not swallowed as a duplicate
	require.NoError(t, svc.Handle(ctx, body, sig, "evt_retry"))
	require.False(t, guard.seen["evt_retry"])

	require.Len(t, repo.rows, 1)
	require.False(t, repo.rows[0].Handled)
	require.NotNil(t, repo.rows[0].HandleError)

	// the retry can go through once the dependency recovers
	rec.err = nil
	require.NoError(t, svc.Handle(ctx, body, sig, "evt_retry"))
	require.Len(t, rec.captures, 2)
}

func TestHandleAcksOrphanEvents(t *testing.T) {
	ctx := context.Background()
	svc, rec, guard, repo := newTestService(t)
	rec.err = pkgerrors.New(pkgerrors.CodeNotFound, "no payment for provider order")

	body := []byte(`{"event":"payment.captured","payload":{"payment":{"entity":{"id":"pay_x","order_id":"order_x"}}}}`)
	require.NoError(t, svc.Handle(ctx, body, signBody(body), "evt_orphan"))
	require.True(t, guard.seen["evt_orphan"])
	require.Len(t, repo.rows, 1)
	require.False(t, repo.rows[0].Handled)
}

func TestHandleAcksInformationalEvents(t *testing.T) {
	ctx := context.Background()
	svc, rec, _, repo := newTestService(t)

	// order.paid and refund lifecycle events are recognized but carry no
	// work: the capture event drives confirmation and refunds start locally
	bodies := map[string][]byte{
		"evt_paid":    []byte(`{"event":"order.paid","payload":{"payment":{"entity":{"id":"pay_1","order_id":"order_1"}}}}`),
		"evt_created": []byte(`{"event":"refund.created","payload":{"refund":{"entity":{"id":"rfnd_1","payment_id":"pay_1"}}}}`),
	}
	for eventID, body := range bodies {
		require.NoError(t, svc.Handle(ctx, body, signBody(body), eventID))
	}

	require.Empty(t, rec.captures)
	require.Empty(t, rec.failures)
	require.Len(t, repo.rows, 2)
	for _, row := range repo.rows {
		require.True(t, row.Handled)
	}
}

func TestHandleIgnoresUnknownEvents(t *testing.T) {
	ctx := context.Background()
	svc, rec, _, repo := newTestService(t)

	body := []byte(`{"event":"subscription.activated","payload":{}}`)
	require.NoError(t, svc.Handle(ctx, body, signBody(body), "evt_other"))
	require.Empty(t, rec.captures)
	require.Empty(t, rec.failures)
	require.Len(t, repo.rows, 1)
	require.True(t, repo.rows[0].Handled)
}

func TestHandleRejectsMalformedBody(t *testing.T) {
	ctx := context.Background()
	svc, _, _, _ := newTestService(t)

	body := []byte(`{"event":`)
	err := svc.Handle(ctx, body, signBody(body), "evt_bad")
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}
