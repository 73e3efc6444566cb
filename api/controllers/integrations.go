package controllers

import (
	"net/http"
	"strings"

	"github.com/selleropsapp/sellerops-backend/api/responses"
	"github.com/selleropsapp/sellerops-backend/internal/integrations"
	"github.com/selleropsapp/sellerops-backend/pkg/config"
	pkgerrors "github.com/selleropsapp/sellerops-backend/pkg/errors"
	"github.com/selleropsapp/sellerops-backend/pkg/logger"
)

// IntegrationAuthURL hands the dashboard the Mercado Livre consent URL.
func IntegrationAuthURL(svc *integrations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "integration service unavailable"))
			return
		}

		responses.WriteSuccess(w, map[string]string{"authUrl": svc.AuthorizationURL()})
	}
}

// IntegrationCallback lands the OAuth redirect from Mercado Livre. The
// browser is mid-redirect here, so every outcome sends it back to the
// frontend settings page with a status flag, never a JSON body.
func IntegrationCallback(svc *integrations.Service, frontend config.FrontendConfig, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		redirect := func(status string) {
			http.Redirect(w, r, frontend.SettingsRedirect(status), http.StatusFound)
		}

		if svc == nil {
			redirect("ml-error")
			return
		}

		query := r.URL.Query()
		if denied := strings.TrimSpace(query.Get("error")); denied != "" {
			logg.Warn(logg.WithFields(r.Context(), map[string]any{"oauth_error": denied}), "mercado livre authorization denied")
			redirect("ml-error")
			return
		}

		code := strings.TrimSpace(query.Get("code"))
		if code == "" {
			redirect("ml-error")
			return
		}

		if err := svc.ExchangeCallback(r.Context(), code); err != nil {
			logg.Error(r.Context(), "mercado livre callback exchange failed", err)
			redirect("ml-error")
			return
		}

		redirect("ml-success")
	}
}
