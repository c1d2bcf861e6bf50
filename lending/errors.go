package lending

import "errors"

// Error kinds reported by the lending core. Callers wrap them with detail via
// fmt.Errorf("%w: ...") and match with errors.Is.
var (
	ErrValidation               = errors.New("validation failed")
	ErrInvalidQuantity          = errors.New("invalid quantity")
	ErrInvalidQuantityReduction = errors.New("quantity below reserved units")
	ErrInvalidTransition        = errors.New("invalid status transition")
	ErrInsufficientAvailability = errors.New("insufficient equipment available")
	ErrForbidden                = errors.New("forbidden")
	ErrNotFound                 = errors.New("not found")
	ErrHasActiveRequests        = errors.New("equipment has active requests")
	ErrConflict                 = errors.New("conflict")
	ErrUnauthorized             = errors.New("unauthorized")
)

var kinds = []struct {
	err  error
	name string
}{
	{ErrValidation, "validation"},
	{ErrInvalidQuantity, "invalid_quantity"},
	{ErrInvalidQuantityReduction, "invalid_quantity_reduction"},
	{ErrInvalidTransition, "invalid_transition"},
	{ErrInsufficientAvailability, "insufficient_availability"},
	{ErrForbidden, "forbidden"},
	{ErrNotFound, "not_found"},
	{ErrHasActiveRequests, "has_active_requests"},
	{ErrConflict, "conflict"},
	{ErrUnauthorized, "unauthorized"},
}

// Kind names the error kind err wraps, "ok" for nil and "internal" for
// anything outside the taxonomy.
func Kind(err error) string {
	if err == nil {
		return "ok"
	}
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.name
		}
	}
	return "internal"
}
