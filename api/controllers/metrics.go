package controllers

import (
	"net/http"
	"time"

	"github.com/selleropsapp/sellerops-backend/api/responses"
	"github.com/selleropsapp/sellerops-backend/api/validators"
	"github.com/selleropsapp/sellerops-backend/internal/salesmetrics"
	pkgerrors "github.com/selleropsapp/sellerops-backend/pkg/errors"
	"github.com/selleropsapp/sellerops-backend/pkg/logger"
)

const metricDateLayout = "2006-01-02"

// MetricsDaily returns the rolled-up daily snapshots for a date range.
// With no range it serves the trailing 30 days.
func MetricsDaily(repo salesmetrics.Repository, location *time.Location, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if repo == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "metrics repository unavailable"))
			return
		}

		loc := location
		if loc == nil {
			loc = time.UTC
		}

		from, err := validators.ParseQueryDate(r, "from", loc)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		to, err := validators.ParseQueryDate(r, "to", loc)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		today := time.Now().In(loc)
		if to.IsZero() {
			to = today
		}
		if from.IsZero() {
			from = to.AddDate(0, 0, -30)
		}
		if from.After(to) {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "from must not be after to"))
			return
		}

		list, err := repo.ListRange(r.Context(), from.Format(metricDateLayout), to.Format(metricDateLayout))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing daily metrics"))
			return
		}

		responses.WriteSuccess(w, newMetricViews(list))
	}
}
