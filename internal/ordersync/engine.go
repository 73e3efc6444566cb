package ordersync

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/selleropsapp/sellerops-backend/internal/orders"
	"github.com/selleropsapp/sellerops-backend/pkg/db/models"
	"github.com/selleropsapp/sellerops-backend/pkg/enums"
	"github.com/selleropsapp/sellerops-backend/pkg/logger"
	"github.com/selleropsapp/sellerops-backend/pkg/meli"
	"github.com/selleropsapp/sellerops-backend/pkg/metrics"
	"github.com/selleropsapp/sellerops-backend/pkg/outbox"
	"github.com/selleropsapp/sellerops-backend/pkg/types"
)

const (
	defaultWindow       = 60 * time.Minute
	defaultPageLimit    = 50
	defaultFetchWorkers = 8
	maxFetchWorkers     = 50
)

// ErrSellerLookup marks a failed who-am-i resolution, which aborts the run.
var ErrSellerLookup = errors.New("seller lookup failed")

// TokenSource yields a valid marketplace access token.
type TokenSource interface {
	ValidAccessToken(ctx context.Context) (string, error)
}

// MarketplaceClient is the slice of the Mercado Livre API the engine uses.
type MarketplaceClient interface {
	WhoAmI(ctx context.Context, accessToken string) (*meli.Seller, error)
	SearchOrders(ctx context.Context, accessToken string, params meli.SearchParams) (*meli.SearchResult, error)
	GetOrder(ctx context.Context, accessToken string, orderID int64) (*meli.Order, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// EngineParams groups dependencies for the sync engine.
type EngineParams struct {
	Logger       *logger.Logger
	Tokens       TokenSource
	Marketplace  MarketplaceClient
	DB           txRunner
	Orders       orders.Repository
	Outbox       *outbox.Service
	Metrics      *metrics.SyncMetrics
	Window       time.Duration
	PageLimit    int
	FetchWorkers int
}

// Engine pulls recently updated marketplace orders into the local store.
type Engine struct {
	logg         *logger.Logger
	tokens       TokenSource
	marketplace  MarketplaceClient
	db           txRunner
	orders       orders.Repository
	outbox       *outbox.Service
	metrics      *metrics.SyncMetrics
	window       time.Duration
	pageLimit    int
	fetchWorkers int
	now          func() time.Time
}

// NewEngine builds a sync engine.
func NewEngine(params EngineParams) (*Engine, error) {
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if params.Tokens == nil {
		return nil, errors.New("token source is required")
	}
	if params.Marketplace == nil {
		return nil, errors.New("marketplace client is required")
	}
	if params.DB == nil {
		return nil, errors.New("db runner is required")
	}
	if params.Orders == nil {
		return nil, errors.New("orders repository is required")
	}
	if params.Outbox == nil {
		return nil, errors.New("outbox service is required")
	}

	window := params.Window
	if window <= 0 {
		window = defaultWindow
	}
	pageLimit := params.PageLimit
	if pageLimit <= 0 {
		pageLimit = defaultPageLimit
	}
	workers := params.FetchWorkers
	if workers <= 0 {
		workers = defaultFetchWorkers
	}
	if workers > maxFetchWorkers {
		workers = maxFetchWorkers
	}

	return &Engine{
		logg:         params.Logger,
		tokens:       params.Tokens,
		marketplace:  params.Marketplace,
		db:           params.DB,
		orders:       params.Orders,
		outbox:       params.Outbox,
		metrics:      params.Metrics,
		window:       window,
		pageLimit:    pageLimit,
		fetchWorkers: workers,
		now:          time.Now,
	}, nil
}

// Run executes one sync pass over the trailing update window and returns the
// number of orders merged. Per-order detail failures are logged and skipped;
// they never abort the batch.
func (e *Engine) Run(ctx context.Context) (int, error) {
	token, err := e.tokens.ValidAccessToken(ctx)
	if err != nil {
		return 0, fmt.Errorf("acquire access token: %w", err)
	}

	seller, err := e.marketplace.WhoAmI(ctx, token)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrSellerLookup, err)
	}

	to := e.now().UTC()
	from := to.Add(-e.window)
	result, err := e.marketplace.SearchOrders(ctx, token, meli.SearchParams{
		SellerID:    seller.ID,
		UpdatedFrom: from,
		UpdatedTo:   to,
		Limit:       e.pageLimit,
	})
	if err != nil {
		return 0, fmt.Errorf("search orders: %w", err)
	}
	if len(result.Results) == 0 {
		e.logg.Info(ctx, "no orders in sync window")
		return 0, nil
	}

	details := e.fetchDetails(ctx, token, result.Results)
	if len(details) == 0 {
		return 0, nil
	}

	mapped := make([]*models.Order, 0, len(details))
	for _, detail := range details {
		mapped = append(mapped, MapOrder(detail))
	}

	if err := e.merge(ctx, mapped); err != nil {
		return 0, err
	}

	e.logg.Info(e.logg.WithField(ctx, "count", len(mapped)), "orders merged")
	return len(mapped), nil
}

// fetchDetails fans out order detail fetches with a bounded worker count.
// A failed fetch drops that order from the run.
func (e *Engine) fetchDetails(ctx context.Context, token string, summaries []meli.OrderSummary) []*meli.Order {
	var mu sync.Mutex
	details := make([]*meli.Order, 0, len(summaries))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.fetchWorkers)
	for _, summary := range summaries {
		summary := summary
		g.Go(func() error {
			detail, err := e.marketplace.GetOrder(gctx, token, summary.ID)
			if err != nil {
				failCtx := e.logg.WithOrderID(gctx, strconv.FormatInt(summary.ID, 10))
				e.logg.Error(failCtx, "order detail fetch failed; skipping", err)
				if e.metrics != nil {
					e.metrics.IncFetchFailure()
				}
				return nil
			}
			mu.Lock()
			details = append(details, detail)
			mu.Unlock()
			return nil
		})
	}
	// Workers swallow their own errors, so Wait only observes ctx cancellation.
	_ = g.Wait()

	return details
}

// merge upserts the batch and emits outbox events in the same transaction.
func (e *Engine) merge(ctx context.Context, batch []*models.Order) error {
	ids := make([]string, 0, len(batch))
	for _, order := range batch {
		ids = append(ids, order.ID)
	}

	return e.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := e.orders.WithTx(tx)

		prior, err := repo.StatusesByIDs(ctx, ids)
		if err != nil {
			return fmt.Errorf("load prior statuses: %w", err)
		}

		for _, order := range batch {
			if err := repo.UpsertFromSync(ctx, order); err != nil {
				return fmt.Errorf("upsert order %s: %w", order.ID, err)
			}
			if e.metrics != nil {
				e.metrics.IncOrderUpserted(order.Status.String())
			}

			priorStatus, existed := prior[order.ID]
			if err := e.outbox.Emit(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventOrderSynced,
				AggregateType: enums.AggregateOrder,
				AggregateID:   order.ID,
				Actor:         &outbox.ActorRef{Source: "order-sync"},
				Data: outbox.OrderSyncedData{
					OrderID:   order.ID,
					MLOrderID: order.MLOrderID,
					Status:    order.Status.String(),
					IsNew:     !existed,
				},
			}); err != nil {
				return fmt.Errorf("emit synced event: %w", err)
			}

			if existed && priorStatus != order.Status {
				if err := e.outbox.Emit(ctx, tx, outbox.DomainEvent{
					EventType:     enums.EventOrderStatusChanged,
					AggregateType: enums.AggregateOrder,
					AggregateID:   order.ID,
					Actor:         &outbox.ActorRef{Source: "order-sync"},
					Data: outbox.OrderStatusChangedData{
						OrderID:    order.ID,
						MLOrderID:  order.MLOrderID,
						FromStatus: priorStatus.String(),
						ToStatus:   order.Status.String(),
					},
				}); err != nil {
					return fmt.Errorf("emit status change event: %w", err)
				}
			}
		}
		return nil
	})
}

// MapOrder converts a marketplace order detail into the canonical record.
func MapOrder(ml *meli.Order) *models.Order {
	order := &models.Order{
		ID:          strconv.FormatInt(ml.ID, 10),
		MLOrderID:   ml.ID,
		SellerID:    ml.Seller.ID,
		Status:      MapMeliStatus(ml.Status),
		StatusRaw:   ml.Status,
		TotalAmount: ml.TotalAmount,
		Customer: types.Customer{
			Name:  strings.TrimSpace(ml.Buyer.FirstName + " " + ml.Buyer.LastName),
			Email: valueOr(ml.Buyer.Email, "N/A"),
			Phone: "N/A",
		},
		PlacedAt: ml.DateCreated.UTC(),
	}
	if ml.Buyer.Phone != nil && ml.Buyer.Phone.Number != "" {
		order.Customer.Phone = ml.Buyer.Phone.Number
	}

	order.Items = make([]types.OrderItem, 0, len(ml.OrderItems))
	for _, item := range ml.OrderItems {
		order.Items = append(order.Items, types.OrderItem{
			ExternalItemID: item.Item.ID,
			Title:          item.Item.Title,
			CategoryID:     item.Item.CategoryID,
			Quantity:       item.Quantity,
			UnitPrice:      item.UnitPrice,
		})
	}

	if ml.Shipping != nil {
		order.Shipping = types.Shipping{
			TrackingNumber: ml.Shipping.TrackingNumber,
			LabelURL:       fmt.Sprintf("https://api.mercadolibre.com/shipments/%d/label", ml.Shipping.ID),
		}
		if ml.Shipping.ShippingOption != nil {
			order.Shipping.Carrier = ml.Shipping.ShippingOption.Name
		}
	}

	return order
}

func valueOr(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
