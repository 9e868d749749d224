package sync

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/karimzem/fulfillment-backend/internal/syncpos"
	"github.com/karimzem/fulfillment-backend/pkg/config"
	"github.com/karimzem/fulfillment-backend/pkg/db/models"
	"github.com/karimzem/fulfillment-backend/pkg/ecomanager"
	"github.com/karimzem/fulfillment-backend/pkg/enums"
	pkgerrors "github.com/karimzem/fulfillment-backend/pkg/errors"
	"github.com/karimzem/fulfillment-backend/pkg/logger"
)

// feedClient is the slice of the EcoManager client ingestion uses.
type feedClient interface {
	FetchNewerThan(ctx context.Context, store string, lastID int64, limit int) ([]ecomanager.FeedOrder, error)
}

// positionStore resolves and advances per-store feed positions.
type positionStore interface {
	GetPosition(ctx context.Context, store string) (*syncpos.Position, error)
	UpdatePosition(ctx context.Context, position syncpos.Position) error
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Result reports one store's ingestion run.
type Result struct {
	Store    string `json:"store"`
	Fetched  int    `json:"fetched"`
	Imported int    `json:"imported"`
	Skipped  int    `json:"skipped"`
	Failed   int    `json:"failed"`
	LastID   int64  `json:"last_id"`
	Page     int    `json:"page"`
}

// Service drives incremental ingestion of the external order feed.
type Service interface {
	SyncStore(ctx context.Context, store string) (*Result, error)
	SyncAll(ctx context.Context) ([]Result, error)
}

// ServiceParams configure the ingestion orchestrator.
type ServiceParams struct {
	Logger    *logger.Logger
	DB        txRunner
	Repo      Repository
	Feed      feedClient
	Positions positionStore
	Config    config.SyncConfig
}

type service struct {
	logg      *logger.Logger
	db        txRunner
	repo      Repository
	feed      feedClient
	positions positionStore
	cfg       config.SyncConfig
	sleep     func(time.Duration)
}

// NewService builds the ingestion orchestrator.
func NewService(params ServiceParams) (Service, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Repo == nil {
		return nil, fmt.Errorf("repository required")
	}
	if params.Feed == nil {
		return nil, fmt.Errorf("feed client required")
	}
	if params.Positions == nil {
		return nil, fmt.Errorf("position store required")
	}
	cfg := params.Config
	if cfg.OrdersPerPage <= 0 {
		cfg.OrdersPerPage = 20
	}
	if cfg.MaxPagesPerRun <= 0 {
		cfg.MaxPagesPerRun = 10
	}
	return &service{
		logg:      params.Logger,
		db:        params.DB,
		repo:      params.Repo,
		feed:      params.Feed,
		positions: params.Positions,
		cfg:       cfg,
		sleep:     time.Sleep,
	}, nil
}

// SyncStore imports everything the feed has beyond the store's position,
// advancing the position after every batch so progress survives interruption.
func (s *service) SyncStore(ctx context.Context, store string) (*Result, error) {
	ctx = s.logg.WithStore(ctx, store)

	position, err := s.positions.GetPosition(ctx, store)
	if err != nil {
		return nil, err
	}

	result := &Result{Store: store, LastID: position.LastID, Page: position.Page}

	for batch := 0; batch < s.cfg.MaxPagesPerRun; batch++ {
		if ctx.Err() != nil {
			break
		}

		orders, err := s.feed.FetchNewerThan(ctx, store, result.LastID, s.cfg.OrdersPerPage)
		if err != nil {
			// Return what was already imported; the advanced position means
			// the next run resumes exactly here.
			return result, err
		}
		if len(orders) == 0 {
			break
		}
		result.Fetched += len(orders)

		ids := make([]int64, 0, len(orders))
		for _, order := range orders {
			ids = append(ids, order.ID)
		}
		existing, err := s.repo.ExistingExternalIDs(ctx, store, ids)
		if err != nil {
			return result, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check imported orders")
		}

		for _, feedOrder := range orders {
			if _, ok := existing[feedOrder.ID]; ok {
				result.Skipped++
			} else if err := s.importOrder(ctx, store, feedOrder); err != nil {
				// One bad order must not sink the batch.
				s.logg.Error(s.logg.WithField(ctx, "feed_order_id", feedOrder.ID), "order import failed", err)
				result.Failed++
			} else {
				result.Imported++
			}
			if feedOrder.ID > result.LastID {
				result.LastID = feedOrder.ID
			}
		}

		result.Page = int(result.LastID)/s.cfg.OrdersPerPage + 1
		if err := s.positions.UpdatePosition(ctx, syncpos.Position{
			Store:   store,
			Page:    result.Page,
			FirstID: orders[0].ID,
			LastID:  result.LastID,
		}); err != nil {
			s.logg.Error(ctx, "position update failed", err)
		}

		if len(orders) < s.cfg.OrdersPerPage {
			break
		}
		if s.cfg.BatchPause > 0 {
			s.sleep(s.cfg.BatchPause)
		}
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"fetched":  result.Fetched,
		"imported": result.Imported,
		"skipped":  result.Skipped,
		"failed":   result.Failed,
		"last_id":  result.LastID,
	}), "store sync finished")
	return result, nil
}

// SyncAll runs ingestion for every active store, collecting per-store results.
func (s *service) SyncAll(ctx context.Context) ([]Result, error) {
	results := make([]Result, 0, len(s.cfg.ActiveStores))
	var errs []string
	for _, store := range s.cfg.ActiveStores {
		if ctx.Err() != nil {
			break
		}
		result, err := s.SyncStore(ctx, store)
		if result != nil {
			results = append(results, *result)
		}
		if err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", store, err))
		}
	}
	if len(errs) > 0 {
		return results, pkgerrors.New(pkgerrors.CodeFeed, "sync incomplete: "+strings.Join(errs, "; "))
	}
	return results, nil
}

// importOrder writes one feed order and its customer in a single transaction.
func (s *service) importOrder(ctx context.Context, store string, feedOrder ecomanager.FeedOrder) error {
	return s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		customerID, err := s.resolveCustomer(ctx, repo, store, feedOrder.Customer)
		if err != nil {
			return err
		}

		externalID := feedOrder.ID
		order := &models.Order{
			EcoManagerID:    &externalID,
			Reference:       feedOrder.Reference,
			Status:          enums.OrderStatusPending,
			StoreIdentifier: store,
			CustomerID:      customerID,
			TotalAmount:     feedOrder.Total,
		}
		for _, item := range feedOrder.Items {
			quantity := item.Quantity
			if quantity <= 0 {
				quantity = 1
			}
			order.Items = append(order.Items, models.OrderItem{
				ProductID: item.ProductID,
				Title:     item.Title,
				Quantity:  quantity,
			})
		}
		return repo.CreateOrder(ctx, order)
	})
}

func (s *service) resolveCustomer(ctx context.Context, repo Repository, store string, feedCustomer ecomanager.FeedCustomer) (*uuid.UUID, error) {
	if feedCustomer.Phone == "" {
		return nil, nil
	}
	found, err := repo.FindCustomerByPhone(ctx, store, feedCustomer.Phone)
	if err == nil {
		return &found.ID, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	customer := &models.Customer{
		Name:            feedCustomer.Name,
		Phone:           feedCustomer.Phone,
		Wilaya:          feedCustomer.Wilaya,
		StoreIdentifier: store,
	}
	if err := repo.CreateCustomer(ctx, customer); err != nil {
		return nil, err
	}
	return &customer.ID, nil
}
