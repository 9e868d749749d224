package assignment

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"

	pkgerrors "github.com/karimzem/fulfillment-backend/pkg/errors"
	"github.com/karimzem/fulfillment-backend/pkg/redis"
)

const (
	defaultLockTTL   = 5 * time.Second
	lockRetries      = 20
	lockRetryBackoff = 50 * time.Millisecond
)

// cursorStore is the redis surface the selector needs.
type cursorStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
	CursorKey(partition string) string
	LockKey(name string) string
}

// Selector implements deterministic rotation over a candidate list, with one
// persisted cursor per partition key. The read-modify-write is serialized per
// partition through a short-lived lock so concurrent callers keep drift
// bounded.
type Selector struct {
	store   cursorStore
	lockTTL time.Duration
}

// NewSelector builds a round-robin selector.
func NewSelector(store cursorStore, lockTTL time.Duration) (*Selector, error) {
	if store == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "cursor store required")
	}
	if lockTTL <= 0 {
		lockTTL = defaultLockTTL
	}
	return &Selector{store: store, lockTTL: lockTTL}, nil
}

// Select picks the next index in [0, n) for the given partition, advancing
// and persisting the partition cursor. A missing cursor starts at -1 so the
// first pick is index 0.
func (s *Selector) Select(ctx context.Context, partition string, n int) (int, error) {
	if n <= 0 {
		return 0, pkgerrors.New(pkgerrors.CodeNoEligible, "empty candidate list")
	}
	if partition == "" {
		partition = "default"
	}

	release, err := s.acquire(ctx, partition)
	if err != nil {
		return 0, err
	}
	defer release()

	cursorKey := s.store.CursorKey(partition)
	cursor := -1
	raw, err := s.store.Get(ctx, cursorKey)
	switch {
	case err == nil:
		parsed, parseErr := strconv.Atoi(raw)
		if parseErr == nil {
			cursor = parsed
		}
	case err == redis.Nil:
		// first selection for this partition
	default:
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read rotation cursor")
	}

	next := (cursor + 1) % n
	if err := s.store.Set(ctx, cursorKey, strconv.Itoa(next), 0); err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist rotation cursor")
	}
	return next, nil
}

func (s *Selector) acquire(ctx context.Context, partition string) (func(), error) {
	lockKey := s.store.LockKey("rr:" + partition)
	owner := uuid.NewString()
	for attempt := 0; attempt < lockRetries; attempt++ {
		ok, err := s.store.SetNX(ctx, lockKey, owner, s.lockTTL)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "acquire cursor lock")
		}
		if ok {
			return func() { _ = s.store.Del(context.WithoutCancel(ctx), lockKey) }, nil
		}
		select {
		case <-ctx.Done():
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, ctx.Err(), "cursor lock wait canceled")
		case <-time.After(lockRetryBackoff):
		}
	}
	return nil, pkgerrors.New(pkgerrors.CodeDependency, "cursor lock contention")
}
