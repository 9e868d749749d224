package notifications

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/karimzem/fulfillment-backend/pkg/db/models"
	"github.com/karimzem/fulfillment-backend/pkg/logger"
)

const defaultDebounce = 5 * time.Second

// Debouncer coalesces assignment events per agent so a burst of assignments
// produces one "you received N orders" notification instead of N.
type Debouncer struct {
	logg     *logger.Logger
	repo     Repository
	debounce time.Duration
	clock    func() time.Time

	mu      sync.Mutex
	pending map[uuid.UUID]*pendingEntry
}

type pendingEntry struct {
	count    int
	deadline time.Time
}

// DebouncerParams configure the debounced notifier.
type DebouncerParams struct {
	Logger   *logger.Logger
	Repo     Repository
	Debounce time.Duration
}

// NewDebouncer builds the debounced notifier.
func NewDebouncer(params DebouncerParams) (*Debouncer, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Repo == nil {
		return nil, fmt.Errorf("repository required")
	}
	debounce := params.Debounce
	if debounce <= 0 {
		debounce = defaultDebounce
	}
	return &Debouncer{
		logg:     params.Logger,
		repo:     params.Repo,
		debounce: debounce,
		clock:    time.Now,
		pending:  make(map[uuid.UUID]*pendingEntry),
	}, nil
}

// Enqueue records one assignment for the agent. The flush deadline is set by
// the first event of a burst, so a steady stream still notifies periodically.
func (d *Debouncer) Enqueue(agentID uuid.UUID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	entry, ok := d.pending[agentID]
	if !ok {
		entry = &pendingEntry{deadline: d.clock().Add(d.debounce)}
		d.pending[agentID] = entry
	}
	entry.count++
}

// Run drains due entries until the context is canceled, then flushes whatever
// is left so no notification is lost on shutdown.
func (d *Debouncer) Run(ctx context.Context) {
	ticker := time.NewTicker(d.debounce / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			d.flush(context.WithoutCancel(ctx), true)
			return
		case <-ticker.C:
			d.flush(ctx, false)
		}
	}
}

func (d *Debouncer) flush(ctx context.Context, all bool) {
	now := d.clock()

	d.mu.Lock()
	due := make(map[uuid.UUID]int)
	for agentID, entry := range d.pending {
		if all || !entry.deadline.After(now) {
			due[agentID] = entry.count
			delete(d.pending, agentID)
		}
	}
	d.mu.Unlock()

	for agentID, count := range due {
		notification := &models.AgentNotification{
			AgentID:    agentID,
			OrderCount: count,
			Message:    notificationMessage(count),
		}
		if err := d.repo.Create(ctx, notification); err != nil {
			d.logg.Error(d.logg.WithAgentID(ctx, agentID.String()), "notification write failed", err)
		}
	}
}

func notificationMessage(count int) string {
	if count == 1 {
		return "You received 1 new order"
	}
	return fmt.Sprintf("You received %d new orders", count)
}
