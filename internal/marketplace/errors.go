package marketplace

import (
	"errors"

	"github.com/dukerupert/slotshare/internal/proof"
	"github.com/dukerupert/slotshare/internal/validate"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrForbidden         = errors.New("forbidden")
	ErrSlotUnavailable   = errors.New("no slots available, they might be sold out")
	ErrListingNotActive  = errors.New("listing is not active")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrKeyReused         = errors.New("idempotency key already used for another listing")
)

// Kind classifies a workflow error for callers that map it to a response.
type Kind string

const (
	KindValidation  Kind = "validation"
	KindConflict    Kind = "conflict"
	KindNotFound    Kind = "not_found"
	KindForbidden   Kind = "forbidden"
	KindTransient   Kind = "transient"
	// KindUnavailable means a dependency is not configured on this
	// deployment, so retrying will not help.
	KindUnavailable Kind = "unavailable"
)

// KindOf reports the kind of err. Unclassified errors are transient.
func KindOf(err error) Kind {
	var verr *validate.Error
	switch {
	case errors.As(err, &verr),
		errors.Is(err, proof.ErrTooLarge),
		errors.Is(err, proof.ErrUnsupportedType):
		return KindValidation
	case errors.Is(err, ErrSlotUnavailable),
		errors.Is(err, ErrListingNotActive),
		errors.Is(err, ErrInvalidTransition),
		errors.Is(err, ErrKeyReused):
		return KindConflict
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrForbidden):
		return KindForbidden
	case errors.Is(err, proof.ErrNotConfigured):
		return KindUnavailable
	}
	return KindTransient
}
