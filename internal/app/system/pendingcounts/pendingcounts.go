// internal/app/system/pendingcounts/pendingcounts.go
package pendingcounts

import (
	"context"
	"sync"
	"time"

	moderationstore "github.com/dalemusser/recipehub/internal/app/store/moderation"
	"github.com/dalemusser/recipehub/internal/app/system/timeouts"
	"go.uber.org/zap"
)

// Counts is a point-in-time snapshot of the moderation backlog.
type Counts struct {
	Groups  int64 `json:"groups"`
	Recipes int64 `json:"recipes"`
	Total   int64 `json:"total"`
}

// Aggregator maintains a cached count of pending moderation items and
// refreshes it on a fixed interval. Reads never touch the database;
// callers that need an up-to-the-second figure can force a Refresh.
type Aggregator struct {
	groups   *moderationstore.Store
	recipes  *moderationstore.Store
	log      *zap.Logger
	interval time.Duration

	mu      sync.RWMutex
	current Counts

	subMu sync.Mutex
	subs  []chan Counts

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// New creates an aggregator over the group and recipe moderation stores.
func New(groups, recipes *moderationstore.Store, logger *zap.Logger, interval time.Duration) *Aggregator {
	return &Aggregator{
		groups:   groups,
		recipes:  recipes,
		log:      logger,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Counts returns the last computed snapshot without touching the database.
func (a *Aggregator) Counts() Counts {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.current
}

// Refresh recomputes the counts immediately and returns the fresh snapshot.
func (a *Aggregator) Refresh(ctx context.Context) (Counts, error) {
	groupCount, err := a.groups.CountPending(ctx)
	if err != nil {
		return Counts{}, err
	}
	recipeCount, err := a.recipes.CountPending(ctx)
	if err != nil {
		return Counts{}, err
	}

	counts := Counts{
		Groups:  groupCount,
		Recipes: recipeCount,
		Total:   groupCount + recipeCount,
	}

	a.mu.Lock()
	changed := counts != a.current
	a.current = counts
	a.mu.Unlock()

	if changed {
		a.notify(counts)
	}
	return counts, nil
}

// Subscribe returns a channel that receives a snapshot whenever the
// counts change. The channel is buffered; a slow receiver misses
// intermediate snapshots rather than blocking the refresh loop.
func (a *Aggregator) Subscribe() <-chan Counts {
	ch := make(chan Counts, 1)
	a.subMu.Lock()
	a.subs = append(a.subs, ch)
	a.subMu.Unlock()
	return ch
}

func (a *Aggregator) notify(counts Counts) {
	a.subMu.Lock()
	defer a.subMu.Unlock()
	for _, ch := range a.subs {
		select {
		case ch <- counts:
		default:
			// Drop the stale snapshot so the latest replaces it.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- counts:
			default:
			}
		}
	}
}

// Start begins the periodic refresh loop.
func (a *Aggregator) Start() {
	a.wg.Add(1)
	go a.run()
	a.log.Info("pending counts aggregator started", zap.Duration("interval", a.interval))
}

// Stop signals the loop to stop and waits for it to finish.
func (a *Aggregator) Stop() {
	close(a.stopCh)
	a.wg.Wait()
	a.log.Info("pending counts aggregator stopped")
}

func (a *Aggregator) run() {
	defer a.wg.Done()

	a.refreshOnce()

	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	for {
		select {
		case <-a.stopCh:
			return
		case <-ticker.C:
			a.refreshOnce()
		}
	}
}

func (a *Aggregator) refreshOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), timeouts.Medium())
	defer cancel()

	if _, err := a.Refresh(ctx); err != nil {
		a.log.Error("failed to refresh pending counts", zap.Error(err))
	}
}
