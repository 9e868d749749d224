package syncpos

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/multierr"

	"github.com/karimzem/fulfillment-backend/pkg/config"
	"github.com/karimzem/fulfillment-backend/pkg/enums"
	pkgerrors "github.com/karimzem/fulfillment-backend/pkg/errors"
	"github.com/karimzem/fulfillment-backend/pkg/logger"
	"github.com/karimzem/fulfillment-backend/pkg/redis"
)

// cache is the redis surface the store needs.
type cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	PositionKey(store string) string
}

// Store resolves and persists each store's feed position through three tiers:
// redis, a JSON file backup, then recomputation from already-imported orders.
// A cache flush therefore degrades resolution, it never restarts ingestion.
type Store struct {
	logg          *logger.Logger
	cache         cache
	backup        *FileBackup
	repo          Repository
	ordersPerPage int
	ttl           time.Duration
	clock         func() time.Time
}

// StoreParams configure the position store.
type StoreParams struct {
	Logger *logger.Logger
	Cache  cache
	Backup *FileBackup
	Repo   Repository
	Config config.SyncConfig
}

// NewStore builds the three-tier position store.
func NewStore(params StoreParams) (*Store, error) {
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger required")
	}
	if params.Cache == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "cache required")
	}
	if params.Backup == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "file backup required")
	}
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "repository required")
	}
	perPage := params.Config.OrdersPerPage
	if perPage <= 0 {
		perPage = 20
	}
	return &Store{
		logg:          params.Logger,
		cache:         params.Cache,
		backup:        params.Backup,
		repo:          params.Repo,
		ordersPerPage: perPage,
		ttl:           params.Config.PositionTTL,
		clock:         time.Now,
	}, nil
}

// GetPosition resolves the store's position from the freshest available tier,
// hydrating the tiers above whichever one answered. A reset value (page one,
// nothing seen) found in a tier usually means the tier was flushed, not that
// ingestion never ran, so it is treated as a miss and the position is
// recomputed from imported orders instead of being returned as-is.
func (s *Store) GetPosition(ctx context.Context, store string) (*Position, error) {
	ctx = s.logg.WithStore(ctx, store)

	var reset *Position
	if position := s.fromCache(ctx, store); position != nil {
		if !position.IsReset() {
			return position, nil
		}
		reset = position
	}

	if position := s.fromBackup(ctx, store); position != nil {
		if !position.IsReset() {
			s.writeCache(ctx, *position)
			return position, nil
		}
		if reset == nil {
			reset = position
		}
	}

	position, err := s.recompute(ctx, store)
	if err != nil {
		if reset != nil {
			// Last tier is down; the stored reset value still lets the caller
			// make progress.
			s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "reset position recompute failed")
			return reset, nil
		}
		return nil, err
	}
	return position, nil
}

// UpdatePosition advances the position in both durable tiers. Partial tier
// failures are reported but do not abort the caller's sync run.
func (s *Store) UpdatePosition(ctx context.Context, position Position) error {
	ctx = s.logg.WithStore(ctx, position.Store)
	position.Timestamp = s.clock()
	position.Source = enums.PositionSourceCache

	var errs error
	if err := s.writeCache(ctx, position); err != nil {
		errs = multierr.Append(errs, err)
	}
	if err := s.backup.Save(position); err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "position backup write failed")
		errs = multierr.Append(errs, err)
	}
	if errs != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, errs, "persist sync position")
	}
	return nil
}

func (s *Store) fromCache(ctx context.Context, store string) *Position {
	raw, err := s.cache.Get(ctx, s.cache.PositionKey(store))
	if err != nil {
		if err != redis.Nil {
			s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "position cache read failed")
		}
		return nil
	}
	var position Position
	if err := json.Unmarshal([]byte(raw), &position); err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "position cache entry corrupt")
		return nil
	}
	position.Source = enums.PositionSourceCache
	return &position
}

func (s *Store) fromBackup(ctx context.Context, store string) *Position {
	position, err := s.backup.Load(store)
	if err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "position backup read failed")
		return nil
	}
	if position == nil {
		return nil
	}
	position.Source = enums.PositionSourceFileBackup
	s.logg.Info(ctx, "position restored from file backup")
	return position
}

// recompute rebuilds the position from the highest imported feed id, the tier
// of last resort after both cache and backup are gone.
func (s *Store) recompute(ctx context.Context, store string) (*Position, error) {
	lastID, err := s.repo.HighestExternalID(ctx, store)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "recompute sync position")
	}

	position := &Position{
		Store:     store,
		Page:      int(lastID)/s.ordersPerPage + 1,
		LastID:    lastID,
		Timestamp: s.clock(),
		Source:    enums.PositionSourceRecomputed,
	}
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"page":    position.Page,
		"last_id": position.LastID,
	}), "position recomputed from imported orders")

	s.writeCache(ctx, *position)
	if err := s.backup.Save(*position); err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "position backup write failed")
	}
	return position, nil
}

func (s *Store) writeCache(ctx context.Context, position Position) error {
	payload, err := json.Marshal(position)
	if err != nil {
		return err
	}
	if err := s.cache.Set(ctx, s.cache.PositionKey(position.Store), string(payload), s.ttl); err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "position cache write failed")
		return err
	}
	return nil
}
