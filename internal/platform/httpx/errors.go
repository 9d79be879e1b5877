// Package httpx provides HTTP response utilities.
package httpx

import (
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/meridian-erp/meridian-erp/internal/finance"
)

// ErrUnauthorized is returned when no authenticated actor is present.
var ErrUnauthorized = errors.New("unauthorized")

// RespondError maps domain errors to HTTP responses using RFC7807.
func RespondError(w http.ResponseWriter, err error) {
	var (
		invalidState *finance.InvalidStateError
		forbidden    *finance.ForbiddenError
		crossBranch  *finance.CrossBranchError
		missingAcct  *finance.MissingAccountError
		overAlloc    *finance.OverAllocationError
		zeroAmount   *finance.ZeroAmountError
		validation   *finance.ValidationError
		fieldErrs    validator.ValidationErrors
	)
	switch {
	case errors.Is(err, finance.ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.As(err, &invalidState):
		Problem(w, http.StatusConflict, "Invalid State", err.Error())
	case errors.As(err, &forbidden):
		Problem(w, http.StatusForbidden, "Forbidden", err.Error())
	case errors.As(err, &crossBranch):
		Problem(w, http.StatusForbidden, "Cross Branch", err.Error())
	case errors.As(err, &missingAcct):
		Problem(w, http.StatusUnprocessableEntity, "Missing Account Mapping", err.Error())
	case errors.As(err, &overAlloc):
		Problem(w, http.StatusUnprocessableEntity, "Over Allocation", err.Error())
	case errors.As(err, &zeroAmount):
		Problem(w, http.StatusUnprocessableEntity, "Zero Amount", err.Error())
	case errors.As(err, &validation):
		Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.As(err, &fieldErrs):
		Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, ErrUnauthorized):
		Problem(w, http.StatusUnauthorized, "Unauthorized", err.Error())
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
