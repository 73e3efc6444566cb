package controllers

import (
	"net/http"

	"github.com/selleropsapp/sellerops-backend/api/responses"
	"github.com/selleropsapp/sellerops-backend/internal/marketplace"
	pkgerrors "github.com/selleropsapp/sellerops-backend/pkg/errors"
	"github.com/selleropsapp/sellerops-backend/pkg/logger"
)

// MarketplaceReputation proxies the seller reputation panel.
func MarketplaceReputation(svc *marketplace.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "marketplace service unavailable"))
			return
		}

		payload, err := svc.Reputation(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, payload)
	}
}

// MarketplaceBalance proxies the Mercado Pago balance summary.
func MarketplaceBalance(svc *marketplace.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "marketplace service unavailable"))
			return
		}

		payload, err := svc.AccountBalance(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, payload)
	}
}

// MarketplaceShippingPerformance proxies the shipping performance panel
// across the tracked logistic modes.
func MarketplaceShippingPerformance(svc *marketplace.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "marketplace service unavailable"))
			return
		}

		report, err := svc.ShippingPerformance(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, report)
	}
}
