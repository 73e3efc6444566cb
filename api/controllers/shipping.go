package controllers

import (
	"net/http"

	"github.com/selleropsapp/sellerops-backend/api/middleware"
	"github.com/selleropsapp/sellerops-backend/api/responses"
	"github.com/selleropsapp/sellerops-backend/api/validators"
	"github.com/selleropsapp/sellerops-backend/internal/shipping"
	pkgerrors "github.com/selleropsapp/sellerops-backend/pkg/errors"
	"github.com/selleropsapp/sellerops-backend/pkg/logger"
)

type scanRequest struct {
	Value string `json:"value" validate:"required"`
}

// ShippingScan resolves a barcode scan and marks the order ready to ship.
// The response always carries the outcome; a scan the service rejects is a
// 200 with success=false, not an error.
func ShippingScan(svc *shipping.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "shipping service unavailable"))
			return
		}

		var body scanRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		scannedBy := middleware.EmailFromContext(r.Context())
		if scannedBy == "" {
			scannedBy = middleware.UserIDFromContext(r.Context())
		}

		result, err := svc.ProcessScan(r.Context(), body.Value, scannedBy)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}
