package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"TradePulse/internal/domain/models"
	domrepo "TradePulse/internal/domain/repository"
	"TradePulse/internal/service/cache"
)

const snapshotKey = "tradepulse:latest_snapshot"

// RedisSnapshotStore persists the last published snapshot so a restarted
// process serves data immediately instead of waiting out the first
// refresh cycle.
type RedisSnapshotStore struct {
	store  cache.BytesStore
	closer func() error
}

var _ domrepo.SignalPublisher = (*RedisSnapshotStore)(nil)

func NewRedisSnapshotStore(rc *cache.RedisCache) *RedisSnapshotStore {
	return &RedisSnapshotStore{store: rc, closer: rc.Close}
}

// PublishSnapshot overwrites the persisted snapshot. No TTL: stale data
// on boot is still flagged stale by its own PublishedAt.
func (s *RedisSnapshotStore) PublishSnapshot(ctx context.Context, snap *models.MarketSnapshot) error {
	b, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	return s.store.SetBytes(snapshotKey, b, 0)
}

// Load returns the persisted snapshot, nil when none exists.
func (s *RedisSnapshotStore) Load(ctx context.Context) (*models.MarketSnapshot, error) {
	b, ok, err := s.store.GetBytes(snapshotKey)
	if err != nil || !ok {
		return nil, err
	}
	var snap models.MarketSnapshot
	if err := json.Unmarshal(b, &snap); err != nil {
		return nil, fmt.Errorf("decode persisted snapshot: %w", err)
	}
	return &snap, nil
}

func (s *RedisSnapshotStore) Close() error {
	if s.closer != nil {
		return s.closer()
	}
	return nil
}

// FanoutPublisher forwards one snapshot to several sinks, collecting the
// first error but always attempting every sink.
type FanoutPublisher []domrepo.SignalPublisher

func (f FanoutPublisher) PublishSnapshot(ctx context.Context, snap *models.MarketSnapshot) error {
	var first error
	for _, p := range f {
		if err := p.PublishSnapshot(ctx, snap); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (f FanoutPublisher) Close() error {
	var first error
	for _, p := range f {
		if err := p.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
