package stormsync

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"storm-sync/internal/models"
	"storm-sync/shared/logging"
)

// HistoryLister is the primary store's history query
type HistoryLister interface {
	ListSince(ctx context.Context, cutoff time.Time) ([]models.RawSensorRecord, error)
}

// CoveragePredicate reports whether batch is still usable at now
type CoveragePredicate func(batch models.RecentBatch, now time.Time) bool

// HourCovered returns a predicate that holds when some reading shares the
// current local hour of day.
func HourCovered(loc *time.Location) CoveragePredicate {
	return func(batch models.RecentBatch, now time.Time) bool {
		hour := now.In(loc).Hour()
		for _, r := range batch {
			if r.ObservedAt.In(loc).Hour() == hour {
				return true
			}
		}
		return false
	}
}

// RecentCache holds the last fetched batch of history. The batch is only
// ever replaced wholesale, never mutated.
type RecentCache struct {
	store      HistoryLister
	normalizer *Normalizer
	covered    CoveragePredicate
	window     time.Duration // 0 = all history
	now        func() time.Time
	log        *zap.SugaredLogger

	mu    sync.RWMutex
	batch models.RecentBatch
}

func NewRecentCache(store HistoryLister, normalizer *Normalizer, window time.Duration) *RecentCache {
	return &RecentCache{
		store:      store,
		normalizer: normalizer,
		covered:    HourCovered(normalizer.Location()),
		window:     window,
		now:        time.Now,
		log:        logging.Named("recent"),
	}
}

// Get returns the cached batch, refreshing it first when it has no reading
// for the current hour. If the refresh fails the previous batch is returned
// along with the error.
func (c *RecentCache) Get(ctx context.Context) (models.RecentBatch, error) {
	now := c.now()

	c.mu.RLock()
	batch := c.batch
	c.mu.RUnlock()

	if c.covered(batch, now) {
		return batch, nil
	}

	fresh, err := c.refresh(ctx, now)
	if err != nil {
		return batch, err
	}

	c.mu.Lock()
	c.batch = fresh
	c.mu.Unlock()

	c.log.Debugf("Recent batch refreshed: %d readings", len(fresh))
	return fresh, nil
}

func (c *RecentCache) refresh(ctx context.Context, now time.Time) (models.RecentBatch, error) {
	var cutoff time.Time
	if c.window > 0 {
		cutoff = now.Add(-c.window)
	}

	records, err := c.store.ListSince(ctx, cutoff)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to list recent readings: %v", ErrSourceUnavailable, err)
	}

	batch := make(models.RecentBatch, 0, len(records))
	for _, rec := range records {
		batch = append(batch, c.normalizer.FromSensor(rec))
	}
	sort.SliceStable(batch, func(i, j int) bool {
		return batch[i].ObservedAt.After(batch[j].ObservedAt)
	})
	return batch, nil
}
