package shipping

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/selleropsapp/sellerops-backend/internal/orders"
	"github.com/selleropsapp/sellerops-backend/pkg/db/models"
	"github.com/selleropsapp/sellerops-backend/pkg/enums"
	pkgerrors "github.com/selleropsapp/sellerops-backend/pkg/errors"
	"github.com/selleropsapp/sellerops-backend/pkg/logger"
	"github.com/selleropsapp/sellerops-backend/pkg/metrics"
	"github.com/selleropsapp/sellerops-backend/pkg/outbox"
	"github.com/selleropsapp/sellerops-backend/pkg/types"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// ScanOutcome labels how a scan resolved.
type ScanOutcome string

const (
	ScanOutcomeUpdated      ScanOutcome = "updated"
	ScanOutcomeAlreadyReady ScanOutcome = "already_ready"
	ScanOutcomeRejected     ScanOutcome = "rejected"
)

// ScanResult reports the resolution of one barcode scan.
type ScanResult struct {
	Success bool        `json:"success"`
	Outcome ScanOutcome `json:"outcome"`
	OrderID string      `json:"orderId,omitempty"`
	Message string      `json:"message"`
}

// ServiceParams groups dependencies for the scan service.
type ServiceParams struct {
	Logger  *logger.Logger
	Orders  orders.Repository
	DB      txRunner
	Outbox  *outbox.Service
	Metrics *metrics.SyncMetrics
}

// Service resolves warehouse barcode scans against the order store.
type Service struct {
	logg    *logger.Logger
	orders  orders.Repository
	db      txRunner
	outbox  *outbox.Service
	metrics *metrics.SyncMetrics
	now     func() time.Time
}

// NewService builds a scan service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if params.Orders == nil {
		return nil, errors.New("orders repository is required")
	}
	if params.DB == nil {
		return nil, errors.New("db runner is required")
	}
	if params.Outbox == nil {
		return nil, errors.New("outbox service is required")
	}
	return &Service{
		logg:    params.Logger,
		orders:  params.Orders,
		db:      params.DB,
		outbox:  params.Outbox,
		metrics: params.Metrics,
		now:     time.Now,
	}, nil
}

// ProcessScan resolves a scanned value to an order through a three-tier lookup
// (document id, marketplace order id, tracking number) and marks the order
// ready to ship.
func (s *Service) ProcessScan(ctx context.Context, scannedValue, scannedBy string) (*ScanResult, error) {
	value := strings.TrimSpace(scannedValue)
	if value == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "no scanned value received")
	}
	if strings.TrimSpace(scannedBy) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "scanning operator is required")
	}

	order, err := s.resolve(ctx, value)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "resolving scanned value")
	}
	if order == nil {
		s.countOutcome("not_found")
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("code %s not found", value))
	}

	ctx = s.logg.WithOrderID(ctx, order.ID)

	switch {
	case order.Status == enums.OrderStatusReadyToShip:
		// Idempotent re-scan: the order keeps its original lastScan.
		s.countOutcome(string(ScanOutcomeAlreadyReady))
		return &ScanResult{
			Success: true,
			Outcome: ScanOutcomeAlreadyReady,
			OrderID: order.ID,
			Message: fmt.Sprintf("order %s was already ready to ship", order.ID),
		}, nil

	case order.Status.IsTerminal() || order.Status == enums.OrderStatusShipped:
		s.countOutcome(string(ScanOutcomeRejected))
		return &ScanResult{
			Success: false,
			Outcome: ScanOutcomeRejected,
			OrderID: order.ID,
			Message: fmt.Sprintf("order %s is already %s", order.ID, order.Status),
		}, nil
	}

	scan := &types.ScanRecord{
		ScannedBy: scannedBy,
		ScannedAt: s.now().UTC(),
		Value:     value,
	}
	// The guarded transition and its status-change event commit together.
	var applied bool
	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		var txErr error
		applied, txErr = s.orders.WithTx(tx).TransitionStatus(ctx, order.ID, order.Status, enums.OrderStatusReadyToShip, scan)
		if txErr != nil {
			return txErr
		}
		if !applied {
			return nil
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderStatusChanged,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         &outbox.ActorRef{Source: "shipping-scan", UserID: scannedBy},
			Data: outbox.OrderStatusChangedData{
				OrderID:    order.ID,
				MLOrderID:  order.MLOrderID,
				FromStatus: order.Status.String(),
				ToStatus:   enums.OrderStatusReadyToShip.String(),
			},
		})
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "updating scanned order")
	}
	if !applied {
		// Another writer moved the order between the read and the guarded
		// update. Re-read and report the state it actually landed in.
		current, err := s.orders.FindByID(ctx, order.ID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "re-reading contested order")
		}
		if current != nil && current.Status == enums.OrderStatusReadyToShip {
			s.countOutcome(string(ScanOutcomeAlreadyReady))
			return &ScanResult{
				Success: true,
				Outcome: ScanOutcomeAlreadyReady,
				OrderID: order.ID,
				Message: fmt.Sprintf("order %s was already ready to ship", order.ID),
			}, nil
		}
		status := enums.OrderStatus("unknown")
		if current != nil {
			status = current.Status
		}
		s.countOutcome(string(ScanOutcomeRejected))
		return &ScanResult{
			Success: false,
			Outcome: ScanOutcomeRejected,
			OrderID: order.ID,
			Message: fmt.Sprintf("order %s is already %s", order.ID, status),
		}, nil
	}

	s.logg.Info(ctx, "order marked ready to ship")
	s.countOutcome(string(ScanOutcomeUpdated))
	return &ScanResult{
		Success: true,
		Outcome: ScanOutcomeUpdated,
		OrderID: order.ID,
		Message: fmt.Sprintf("order %s marked ready to ship", order.ID),
	}, nil
}

func (s *Service) resolve(ctx context.Context, value string) (*models.Order, error) {
	order, err := s.orders.FindByID(ctx, value)
	if err != nil {
		return nil, err
	}
	if order != nil {
		return order, nil
	}

	if mlOrderID, convErr := strconv.ParseInt(value, 10, 64); convErr == nil {
		order, err = s.orders.FindByMLOrderID(ctx, mlOrderID)
		if err != nil {
			return nil, err
		}
		if order != nil {
			return order, nil
		}
	}

	return s.orders.FindByTrackingNumber(ctx, value)
}

func (s *Service) countOutcome(outcome string) {
	if s.metrics == nil {
		return
	}
	s.metrics.IncScanOutcome(outcome)
}
