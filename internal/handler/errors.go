package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/xenking/league-pricing/internal/domain/auth"
	"github.com/xenking/league-pricing/internal/domain/catalog"
	"github.com/xenking/league-pricing/internal/domain/discount"
	"github.com/xenking/league-pricing/internal/domain/plan"
	"github.com/xenking/league-pricing/internal/domain/pricing"
	"github.com/xenking/league-pricing/internal/domain/season"
)

// mapError converts domain errors to an HTTP status and client message.
// Anything unrecognized is a 500 with a generic message.
func mapError(err error) (int, string) {
	var (
		bre   *badRequestError
		verrs validator.ValidationErrors
		iqErr *pricing.InvalidQuantityError
		pnf   *pricing.ProgramNotFoundError
		load  *pricing.LoadError
		cErr  *discount.ConflictError
	)
	switch {
	case errors.As(err, &bre):
		return http.StatusBadRequest, bre.Error()
	case errors.As(err, &verrs):
		return http.StatusBadRequest, validationMessage(verrs)
	case errors.Is(err, pricing.ErrEmptyItems),
		errors.Is(err, catalog.ErrCodeRequired),
		errors.Is(err, catalog.ErrCodeUnsluggable),
		errors.Is(err, catalog.ErrDiscountIDRequired):
		return http.StatusBadRequest, err.Error()

	case errors.Is(err, auth.ErrUnauthorized):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, errForbidden):
		return http.StatusForbidden, "forbidden"

	case errors.As(err, &iqErr):
		return http.StatusUnprocessableEntity, iqErr.Error()
	case errors.As(err, &pnf):
		return http.StatusUnprocessableEntity, pnf.Error()
	case errors.Is(err, pricing.ErrCodeNotFound),
		errors.Is(err, pricing.ErrPlanNotFound),
		errors.Is(err, pricing.ErrPlanInactive),
		errors.Is(err, pricing.ErrPlanNotApplicable),
		errors.Is(err, catalog.ErrInvalidWindow):
		return http.StatusUnprocessableEntity, err.Error()

	case errors.As(err, &cErr):
		return http.StatusConflict, cErr.Error()

	case errors.Is(err, discount.ErrNotFound),
		errors.Is(err, season.ErrNotFound),
		errors.Is(err, season.ErrOverlayNotFound),
		errors.Is(err, plan.ErrNotFound):
		return http.StatusNotFound, notFoundMessage(err)

	case errors.As(err, &load):
		return http.StatusServiceUnavailable, "pricing data temporarily unavailable"
	}
	return http.StatusInternalServerError, "internal error"
}

func notFoundMessage(err error) string {
	for _, target := range []error{discount.ErrNotFound, season.ErrNotFound, season.ErrOverlayNotFound, plan.ErrNotFound} {
		if errors.Is(err, target) {
			return target.Error()
		}
	}
	return "not found"
}

// fail writes err as a {code, message} body. Server-side failures are logged
// with the cause; the client only sees the generic message.
func fail(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := mapError(err)
	if status >= http.StatusInternalServerError {
		zctx.From(r.Context()).Error("Request failed",
			zap.Int("status", status),
			zap.Error(err),
		)
	}
	writeError(w, status, msg)
}
