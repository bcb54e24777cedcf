// Package slots projects slot availability for a date: the policy grid minus
// active bookings. The Redis cache here is a read optimization only; conflict
// decisions always go through the store's transactional checks.
package slots

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/barangay-bonliw/appointments/internal/civil"
	"github.com/barangay-bonliw/appointments/internal/slotpolicy"
	"github.com/barangay-bonliw/appointments/pkg/logging"
)

// BookedTimesLister returns the occupied times for a date; the appointments
// store implements it.
type BookedTimesLister interface {
	BookedTimes(ctx context.Context, d civil.Date) ([]civil.TimeOfDay, error)
}

// Availability computes and caches the free slots per date.
type Availability struct {
	store  BookedTimesLister
	policy slotpolicy.Policy
	redis  *redis.Client // optional
	ttl    time.Duration
	logger *logging.Logger
}

// NewAvailability constructs the projection. redis may be nil, in which case
// every call recomputes from the store.
func NewAvailability(store BookedTimesLister, policy slotpolicy.Policy, rdb *redis.Client, ttl time.Duration, logger *logging.Logger) *Availability {
	if logger == nil {
		logger = logging.Default()
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Availability{store: store, policy: policy, redis: rdb, ttl: ttl, logger: logger}
}

// Available returns the bookable times for d, most recently cached or freshly
// computed. A closed day yields an empty list.
func (a *Availability) Available(ctx context.Context, d civil.Date) ([]civil.TimeOfDay, error) {
	if cached, ok := a.fromCache(ctx, d); ok {
		return cached, nil
	}

	grid := a.policy.Slots(d)
	if len(grid) == 0 {
		return []civil.TimeOfDay{}, nil
	}

	booked, err := a.store.BookedTimes(ctx, d)
	if err != nil {
		return nil, err
	}
	taken := make(map[civil.TimeOfDay]bool, len(booked))
	for _, t := range booked {
		taken[t] = true
	}

	free := []civil.TimeOfDay{}
	for _, t := range grid {
		if !taken[t] {
			free = append(free, t)
		}
	}

	a.toCache(ctx, d, free)
	return free, nil
}

// Invalidate drops the cached availability for d. Called by the appointments
// service after any write touching the date.
func (a *Availability) Invalidate(ctx context.Context, d civil.Date) {
	if a.redis == nil {
		return
	}
	if err := a.redis.Del(ctx, cacheKey(d)).Err(); err != nil {
		a.logger.Warn("slot cache invalidation failed", "date", d.String(), "error", err)
	}
}

func (a *Availability) fromCache(ctx context.Context, d civil.Date) ([]civil.TimeOfDay, bool) {
	if a.redis == nil {
		return nil, false
	}
	raw, err := a.redis.Get(ctx, cacheKey(d)).Result()
	if err != nil {
		if err != redis.Nil {
			a.logger.Warn("slot cache read failed", "date", d.String(), "error", err)
		}
		return nil, false
	}
	var out []civil.TimeOfDay
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		a.logger.Warn("slot cache entry corrupt", "date", d.String(), "error", err)
		return nil, false
	}
	return out, true
}

func (a *Availability) toCache(ctx context.Context, d civil.Date, free []civil.TimeOfDay) {
	if a.redis == nil {
		return
	}
	raw, err := json.Marshal(free)
	if err != nil {
		return
	}
	if err := a.redis.Set(ctx, cacheKey(d), raw, a.ttl).Err(); err != nil {
		a.logger.Warn("slot cache write failed", "date", d.String(), "error", err)
	}
}

func cacheKey(d civil.Date) string {
	return "slots:" + d.String()
}
