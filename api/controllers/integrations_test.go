package controllers

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"gorm.io/gorm"

	"github.com/selleropsapp/sellerops-backend/internal/integrations"
	"github.com/selleropsapp/sellerops-backend/pkg/config"
	"github.com/selleropsapp/sellerops-backend/pkg/db/models"
	"github.com/selleropsapp/sellerops-backend/pkg/enums"
	"github.com/selleropsapp/sellerops-backend/pkg/logger"
	"github.com/selleropsapp/sellerops-backend/pkg/meli"
)

type memCredentials struct {
	saved *models.IntegrationCredential
}

func (m *memCredentials) WithTx(*gorm.DB) integrations.Repository { return m }

func (m *memCredentials) Get(context.Context, enums.IntegrationProvider) (*models.IntegrationCredential, error) {
	return m.saved, nil
}

func (m *memCredentials) Save(_ context.Context, credential *models.IntegrationCredential) error {
	m.saved = credential
	return nil
}

type fakeOAuth struct {
	exchangeErr error
	exchanged   string
}

func (f *fakeOAuth) AuthorizationURL() string { return "https://auth.example/consent" }

func (f *fakeOAuth) ExchangeCode(_ context.Context, code string) (*meli.TokenResponse, error) {
	if f.exchangeErr != nil {
		return nil, f.exchangeErr
	}
	f.exchanged = code
	return &meli.TokenResponse{AccessToken: "at", RefreshToken: "rt", ExpiresIn: 21600}, nil
}

func (f *fakeOAuth) RefreshToken(context.Context, string) (*meli.TokenResponse, error) {
	return nil, errors.New("not implemented")
}

func newCallbackHandler(t *testing.T, oauth *fakeOAuth) (http.HandlerFunc, *memCredentials) {
	t.Helper()
	logg := logger.New(logger.Options{ServiceName: "test", Output: &bytes.Buffer{}})
	creds := &memCredentials{}
	svc, err := integrations.NewService(integrations.ServiceParams{Logger: logg, Credentials: creds, OAuth: oauth})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	frontend := config.FrontendConfig{BaseURL: "https://app.example"}
	return IntegrationCallback(svc, frontend, logg), creds
}

func TestIntegrationCallback_successRedirects(t *testing.T) {
	oauth := &fakeOAuth{}
	handler, creds := newCallbackHandler(t, oauth)

	req := httptest.NewRequest(http.MethodGet, "/integrations/mercadolivre/callback?code=abc123", nil)
	resp := httptest.NewRecorder()
	handler(resp, req)

	if resp.Code != http.StatusFound {
		t.Fatalf("expected 302 got %d", resp.Code)
	}
	if loc := resp.Header().Get("Location"); loc != "https://app.example/settings?status=ml-success" {
		t.Fatalf("wrong redirect: %s", loc)
	}
	if oauth.exchanged != "abc123" {
		t.Fatalf("code not exchanged: %q", oauth.exchanged)
	}
	if creds.saved == nil || creds.saved.AccessToken != "at" {
		t.Fatal("credential not stored")
	}
}

func TestIntegrationCallback_exchangeFailureStillRedirects(t *testing.T) {
	handler, _ := newCallbackHandler(t, &fakeOAuth{exchangeErr: errors.New("upstream down")})

	req := httptest.NewRequest(http.MethodGet, "/integrations/mercadolivre/callback?code=abc123", nil)
	resp := httptest.NewRecorder()
	handler(resp, req)

	if resp.Code != http.StatusFound {
		t.Fatalf("expected 302 got %d", resp.Code)
	}
	if loc := resp.Header().Get("Location"); loc != "https://app.example/settings?status=ml-error" {
		t.Fatalf("wrong redirect: %s", loc)
	}
}

func TestIntegrationCallback_providerDenialRedirects(t *testing.T) {
	oauth := &fakeOAuth{}
	handler, _ := newCallbackHandler(t, oauth)

	req := httptest.NewRequest(http.MethodGet, "/integrations/mercadolivre/callback?error=access_denied", nil)
	resp := httptest.NewRecorder()
	handler(resp, req)

	if loc := resp.Header().Get("Location"); loc != "https://app.example/settings?status=ml-error" {
		t.Fatalf("wrong redirect: %s", loc)
	}
	if oauth.exchanged != "" {
		t.Fatal("exchange should not run on provider denial")
	}
}

func TestIntegrationCallback_missingCodeRedirects(t *testing.T) {
	handler, _ := newCallbackHandler(t, &fakeOAuth{})

	req := httptest.NewRequest(http.MethodGet, "/integrations/mercadolivre/callback", nil)
	resp := httptest.NewRecorder()
	handler(resp, req)

	if loc := resp.Header().Get("Location"); loc != "https://app.example/settings?status=ml-error" {
		t.Fatalf("wrong redirect: %s", loc)
	}
}
