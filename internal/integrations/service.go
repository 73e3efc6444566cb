package integrations

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/selleropsapp/sellerops-backend/pkg/db/models"
	"github.com/selleropsapp/sellerops-backend/pkg/enums"
	pkgerrors "github.com/selleropsapp/sellerops-backend/pkg/errors"
	"github.com/selleropsapp/sellerops-backend/pkg/logger"
	"github.com/selleropsapp/sellerops-backend/pkg/meli"
)

// tokenSafetyMargin treats tokens expiring inside the margin as already
// expired, so a long-running sync never starts with a dying token.
const tokenSafetyMargin = 5 * time.Minute

type oauthClient interface {
	AuthorizationURL() string
	ExchangeCode(ctx context.Context, code string) (*meli.TokenResponse, error)
	RefreshToken(ctx context.Context, refreshToken string) (*meli.TokenResponse, error)
}

// ServiceParams groups dependencies for the token manager.
type ServiceParams struct {
	Logger      *logger.Logger
	Credentials Repository
	OAuth       oauthClient
}

// Service manages the Mercado Livre OAuth credential: the callback exchange
// and transparent refresh for internal callers.
type Service struct {
	logg        *logger.Logger
	credentials Repository
	oauth       oauthClient
	now         func() time.Time

	// refreshMu serializes refreshes so concurrent callers don't burn the
	// single-use refresh token twice.
	refreshMu sync.Mutex
}

// NewService builds the integration service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if params.Credentials == nil {
		return nil, errors.New("credentials repository is required")
	}
	if params.OAuth == nil {
		return nil, errors.New("oauth client is required")
	}
	return &Service{
		logg:        params.Logger,
		credentials: params.Credentials,
		oauth:       params.OAuth,
		now:         time.Now,
	}, nil
}

// AuthorizationURL returns the Mercado Livre consent URL for the connect flow.
func (s *Service) AuthorizationURL() string {
	return s.oauth.AuthorizationURL()
}

// ExchangeCallback trades the OAuth callback code for a token pair and stores
// it as the single mercadolivre credential.
func (s *Service) ExchangeCallback(ctx context.Context, code string) error {
	if strings.TrimSpace(code) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "authorization code is required")
	}

	tokens, err := s.oauth.ExchangeCode(ctx, code)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "exchanging authorization code")
	}

	credential := &models.IntegrationCredential{
		Provider:     enums.ProviderMercadoLivre,
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
		ExpiresIn:    tokens.ExpiresIn,
		Status:       enums.IntegrationStatusActive,
	}
	if tokens.Scope != "" {
		credential.Scope = &tokens.Scope
	}
	if tokens.UserID != 0 {
		credential.ExternalUser = &tokens.UserID
	}

	if err := s.credentials.Save(ctx, credential); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "storing credentials")
	}

	s.logg.Info(ctx, "mercado livre account connected")
	return nil
}

// ValidAccessToken returns an access token with at least the safety margin of
// life left, refreshing the stored credential when needed.
func (s *Service) ValidAccessToken(ctx context.Context) (string, error) {
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	credential, err := s.credentials.Get(ctx, enums.ProviderMercadoLivre)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading credentials")
	}
	if credential == nil {
		return "", pkgerrors.New(pkgerrors.CodeNotFound, "mercado livre integration is not authorized")
	}

	if s.now().Before(credential.ExpiresAt().Add(-tokenSafetyMargin)) {
		return credential.AccessToken, nil
	}

	return s.refresh(ctx, credential)
}

func (s *Service) refresh(ctx context.Context, credential *models.IntegrationCredential) (string, error) {
	if strings.TrimSpace(credential.RefreshToken) == "" {
		return "", pkgerrors.New(pkgerrors.CodePrecondition, "stored credential has no refresh token; reconnect the account")
	}

	tokens, err := s.oauth.RefreshToken(ctx, credential.RefreshToken)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "refreshing access token")
	}

	credential.AccessToken = tokens.AccessToken
	credential.ExpiresIn = tokens.ExpiresIn
	// Mercado Livre rotates refresh tokens but may omit one; the stored
	// token stays valid in that case.
	if tokens.RefreshToken != "" {
		credential.RefreshToken = tokens.RefreshToken
	}
	if tokens.Scope != "" {
		credential.Scope = &tokens.Scope
	}
	if tokens.UserID != 0 {
		credential.ExternalUser = &tokens.UserID
	}

	if err := s.credentials.Save(ctx, credential); err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "storing refreshed credentials")
	}

	s.logg.Info(ctx, "mercado livre token refreshed")
	return credential.AccessToken, nil
}
