package razorpay

import (
	"context"
	"time"

	redispkg "github.com/courtside-app/courtside-backend/pkg/redis"
)

const (
	guardScope = "webhook:razorpay"
	guardTTL   = 24 * time.Hour
)

// Guard dedupes webhook deliveries by their provider event id. Razorpay
// retries deliveries until it sees a 2xx, so replays are routine.
type Guard struct {
	store redispkg.IdempotencyStore
}

// NewGuard builds a dedupe guard on top of the shared Redis client.
func NewGuard(store redispkg.IdempotencyStore) *Guard {
	return &Guard{store: store}
}

// CheckAndMark claims the event id. The first delivery wins; replays within
// the TTL see false.
func (g *Guard) CheckAndMark(ctx context.Context, eventID string) (bool, error) {
	key := g.store.IdempotencyKey(guardScope, eventID)
	return g.store.SetNX(ctx, key, 1, guardTTL)
}

// Release drops the claim so a failed delivery can be reprocessed on retry.
func (g *Guard) Release(ctx context.Context, eventID string) error {
	return g.store.Del(ctx, g.store.IdempotencyKey(guardScope, eventID))
}
