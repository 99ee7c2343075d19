package cron

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/tradepost-io/tradepost-backend/internal/inventory"
	"github.com/tradepost-io/tradepost-backend/internal/orders"
	"github.com/tradepost-io/tradepost-backend/pkg/db/models"
	"github.com/tradepost-io/tradepost-backend/pkg/enums"
	"github.com/tradepost-io/tradepost-backend/pkg/logger"
	"github.com/tradepost-io/tradepost-backend/pkg/metrics"
	"github.com/tradepost-io/tradepost-backend/pkg/outbox"
	"github.com/tradepost-io/tradepost-backend/pkg/outbox/payloads"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// GroupBuyJobParams configure the stock-exhaustion reconciler.
type GroupBuyJobParams struct {
	Logger  *logger.Logger
	DB      txRunner
	Catalog inventory.Repository
	Orders  orders.Repository
	Outbox  outboxEmitter
	Metrics *metrics.CronJobMetrics
}

// NewGroupBuyJob builds the sweep that confirms group-buy demand. Listings
// whose sale window already closed are skipped; they belong to a manual
// reconciliation path.
func NewGroupBuyJob(params GroupBuyJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Catalog == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	return &groupBuyJob{
		logg:    params.Logger,
		db:      params.DB,
		catalog: params.Catalog,
		orders:  params.Orders,
		outbox:  params.Outbox,
		metrics: params.Metrics,
		now:     time.Now,
	}, nil
}

type groupBuyJob struct {
	logg    *logger.Logger
	db      txRunner
	catalog inventory.Repository
	orders  orders.Repository
	outbox  outboxEmitter
	metrics *metrics.CronJobMetrics
	now     func() time.Time
}

func (j *groupBuyJob) Name() string { return "group-buy-reconcile" }

// Run sweeps every open group-buy listing. A failure on one listing is
// logged and the sweep moves on; the listing is retried on the next tick.
func (j *groupBuyJob) Run(ctx context.Context) error {
	now := j.now().UTC()
	listings, err := j.catalog.FindOpenGroupBuyListings(ctx, now)
	if err != nil {
		return fmt.Errorf("loading group-buy listings: %w", err)
	}

	var errs error
	promoted := 0
	for _, listing := range listings {
		confirmed, err := j.reconcile(ctx, listing, now)
		if err != nil {
			listingCtx := j.logg.WithField(ctx, "listing_id", listing.ID.String())
			j.logg.Error(listingCtx, "group-buy reconcile failed", err)
			errs = multierr.Append(errs, fmt.Errorf("listing %s: %w", listing.ID, err))
			continue
		}
		promoted += confirmed
	}

	if j.metrics != nil {
		j.metrics.AddProcessed(j.Name(), promoted)
	}
	if promoted > 0 {
		j.logg.Info(j.logg.WithField(ctx, "lines_confirmed", promoted), "group-buy sweep promoted line items")
	}
	return errs
}

// reconcile promotes one listing when aggregate non-terminal demand meets or
// exceeds its remaining stock. The check and the bulk promotion share a
// transaction; the promotion only touches PLACED items so it is safe against
// concurrent checkouts.
func (j *groupBuyJob) reconcile(ctx context.Context, listing models.Listing, now time.Time) (int, error) {
	var confirmed int64
	err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
		ordersRepo := j.orders.WithTx(tx)

		open, err := ordersRepo.SumOpenQuantityByListing(ctx, listing.ID)
		if err != nil {
			return err
		}
		if open == 0 || open < listing.Stock {
			return nil
		}

		confirmed, err = ordersRepo.PromotePlacedByListing(ctx, listing.ID)
		if err != nil {
			return err
		}
		if confirmed == 0 || j.outbox == nil {
			return nil
		}

		event := outbox.DomainEvent{
			EventType:     enums.EventGroupBuyConfirmed,
			AggregateType: enums.AggregateListing,
			AggregateID:   listing.ID,
			Data: payloads.GroupBuyConfirmedEvent{
				ListingID:      listing.ID,
				SellerID:       listing.SellerID,
				ConfirmedLines: int(confirmed),
				OccurredAt:     now,
			},
			Version: 1,
		}
		if err := j.outbox.Emit(ctx, tx, event); err != nil {
			j.logg.Warn(ctx, "emitting group-buy confirmed event failed")
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return int(confirmed), nil
}
