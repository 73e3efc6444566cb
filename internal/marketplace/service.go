package marketplace

import (
	"context"
	"errors"
	"sync"

	"github.com/selleropsapp/sellerops-backend/pkg/db/models"
	"github.com/selleropsapp/sellerops-backend/pkg/enums"
	pkgerrors "github.com/selleropsapp/sellerops-backend/pkg/errors"
	"github.com/selleropsapp/sellerops-backend/pkg/logger"
	"github.com/selleropsapp/sellerops-backend/pkg/meli"
)

type tokenSource interface {
	ValidAccessToken(ctx context.Context) (string, error)
}

type credentialSource interface {
	Get(ctx context.Context, provider enums.IntegrationProvider) (*models.IntegrationCredential, error)
}

type marketplaceAPI interface {
	WhoAmI(ctx context.Context, accessToken string) (*meli.Seller, error)
	SellerReputation(ctx context.Context, accessToken string, sellerID int64) (meli.Reputation, error)
	AccountBalanceSummary(ctx context.Context, accessToken string, sellerID int64) (meli.AccountBalance, error)
	GetShippingPerformance(ctx context.Context, accessToken string, sellerID int64, mode string) (*meli.ShippingPerformance, error)
}

// shippingModes maps dashboard labels to the marketplace logistic types
// queried for the performance panel.
var shippingModes = []struct {
	label   string
	apiMode string
}{
	{label: "flex", apiMode: "self_service"},
	{label: "agency", apiMode: "cross_docking"},
}

// ModePerformance is one logistic mode's slice of the shipping panel.
// Applicable is false when the seller does not operate that mode.
type ModePerformance struct {
	Mode             string   `json:"mode"`
	Applicable       bool     `json:"applicable"`
	Status           string   `json:"status,omitempty"`
	LateShippingRate *float64 `json:"lateShippingRate,omitempty"`
	PreviousRate     *float64 `json:"previousRate,omitempty"`
}

// ShippingReport aggregates performance across the tracked logistic modes.
type ShippingReport struct {
	Modes []ModePerformance `json:"modes"`
}

// ServiceParams groups dependencies for the read-through proxies.
type ServiceParams struct {
	Logger      *logger.Logger
	Tokens      tokenSource
	Credentials credentialSource
	Marketplace marketplaceAPI
}

// Service proxies seller-facing Mercado Livre reads for the dashboard,
// resolving and caching the seller id behind the stored credential.
type Service struct {
	logg        *logger.Logger
	tokens      tokenSource
	credentials credentialSource
	marketplace marketplaceAPI

	mu       sync.Mutex
	sellerID int64
}

// NewService builds the marketplace proxy service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if params.Tokens == nil {
		return nil, errors.New("token source is required")
	}
	if params.Credentials == nil {
		return nil, errors.New("credential source is required")
	}
	if params.Marketplace == nil {
		return nil, errors.New("marketplace client is required")
	}
	return &Service{
		logg:        params.Logger,
		tokens:      params.Tokens,
		credentials: params.Credentials,
		marketplace: params.Marketplace,
	}, nil
}

// Reputation returns the raw seller reputation payload.
func (s *Service) Reputation(ctx context.Context) (meli.Reputation, error) {
	token, sellerID, err := s.session(ctx)
	if err != nil {
		return nil, err
	}
	payload, err := s.marketplace.SellerReputation(ctx, token, sellerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "fetching seller reputation")
	}
	return payload, nil
}

// AccountBalance returns the raw Mercado Pago balance summary.
func (s *Service) AccountBalance(ctx context.Context) (meli.AccountBalance, error) {
	token, sellerID, err := s.session(ctx)
	if err != nil {
		return nil, err
	}
	payload, err := s.marketplace.AccountBalanceSummary(ctx, token, sellerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "fetching account balance")
	}
	return payload, nil
}

// ShippingPerformance queries each tracked logistic mode. A mode the seller
// does not operate comes back 404 upstream and is reported as not applicable
// rather than failing the whole panel.
func (s *Service) ShippingPerformance(ctx context.Context) (*ShippingReport, error) {
	token, sellerID, err := s.session(ctx)
	if err != nil {
		return nil, err
	}

	report := &ShippingReport{Modes: make([]ModePerformance, 0, len(shippingModes))}
	for _, mode := range shippingModes {
		perf, err := s.marketplace.GetShippingPerformance(ctx, token, sellerID, mode.apiMode)
		if err != nil {
			if errors.Is(err, meli.ErrNotFound) {
				report.Modes = append(report.Modes, ModePerformance{Mode: mode.label, Applicable: false})
				continue
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "fetching shipping performance")
		}

		entry := ModePerformance{Mode: mode.label, Applicable: true, Status: perf.Status}
		if perf.Metrics != nil && perf.Metrics.LateShippingRate != nil {
			if current := perf.Metrics.LateShippingRate.CurrentPeriod; current != nil {
				entry.LateShippingRate = current.Rate
			}
			if previous := perf.Metrics.LateShippingRate.ComparisonPeriod; previous != nil {
				entry.PreviousRate = previous.Rate
			}
		}
		report.Modes = append(report.Modes, entry)
	}
	return report, nil
}

// session returns a live access token plus the resolved seller id.
func (s *Service) session(ctx context.Context) (string, int64, error) {
	token, err := s.tokens.ValidAccessToken(ctx)
	if err != nil {
		return "", 0, err
	}
	sellerID, err := s.resolveSellerID(ctx, token)
	if err != nil {
		return "", 0, err
	}
	return token, sellerID, nil
}

// resolveSellerID prefers the id captured with the stored credential and
// falls back to /users/me, caching whichever answered.
func (s *Service) resolveSellerID(ctx context.Context, token string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sellerID != 0 {
		return s.sellerID, nil
	}

	credential, err := s.credentials.Get(ctx, enums.ProviderMercadoLivre)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading credentials")
	}
	if credential != nil && credential.ExternalUser != nil && *credential.ExternalUser != 0 {
		s.sellerID = *credential.ExternalUser
		return s.sellerID, nil
	}

	seller, err := s.marketplace.WhoAmI(ctx, token)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolving seller identity")
	}
	s.sellerID = seller.ID
	return s.sellerID, nil
}
