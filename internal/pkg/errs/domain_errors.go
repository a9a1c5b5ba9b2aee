package errs

import "errors"

// Engine error taxonomy. Use-case layers mark lower-level errors with one of
// these so callers can branch with errors.Is.
var (
	ErrInvalidOffer                 = errors.New("invalid offer")
	ErrOfferNotFound                = errors.New("offer not found")
	ErrOfferNotOpen                 = errors.New("offer not open")
	ErrNotOwner                     = errors.New("requester does not own offer")
	ErrSelfMatchNotAllowed          = errors.New("self match not allowed")
	ErrSettlementPersistenceFailure = errors.New("settlement persistence failure")

	ErrSizeVariantNotFound  = errors.New("size variant not found")
	ErrInvalidPaymentMethod = errors.New("invalid payment method")
	ErrTransactionNotFound  = errors.New("transaction not found")

	ErrDatabaseOperationFailed = errors.New("database operation failed")
)

type Class string

const (
	ClassInvalid     Class = "invalid"
	ClassNotFound    Class = "not_found"
	ClassForbidden   Class = "forbidden"
	ClassConflict    Class = "conflict"
	ClassUnavailable Class = "unavailable"
	ClassInternal    Class = "internal"
)

// Classify separates "your input was invalid" from "the other side moved
// first" so clients know whether resubmitting can help.
func Classify(err error) Class {
	switch {
	case err == nil:
		return ""
	case Is(err, ErrInvalidOffer), Is(err, ErrInvalidPaymentMethod):
		return ClassInvalid
	case Is(err, ErrOfferNotFound), Is(err, ErrSizeVariantNotFound), Is(err, ErrTransactionNotFound):
		return ClassNotFound
	case Is(err, ErrNotOwner):
		return ClassForbidden
	case Is(err, ErrOfferNotOpen), Is(err, ErrSelfMatchNotAllowed):
		return ClassConflict
	case Is(err, ErrSettlementPersistenceFailure):
		return ClassUnavailable
	default:
		return ClassInternal
	}
}

// Code returns the taxonomy name exposed to API clients.
func Code(err error) string {
	switch {
	case Is(err, ErrInvalidOffer):
		return "InvalidOffer"
	case Is(err, ErrInvalidPaymentMethod):
		return "InvalidPaymentMethod"
	case Is(err, ErrSizeVariantNotFound):
		return "SizeVariantNotFound"
	case Is(err, ErrOfferNotFound):
		return "OfferNotFound"
	case Is(err, ErrTransactionNotFound):
		return "TransactionNotFound"
	case Is(err, ErrOfferNotOpen):
		return "OfferNotOpen"
	case Is(err, ErrNotOwner):
		return "NotOwner"
	case Is(err, ErrSelfMatchNotAllowed):
		return "SelfMatchNotAllowed"
	case Is(err, ErrSettlementPersistenceFailure):
		return "SettlementPersistenceFailure"
	default:
		return "Internal"
	}
}

// Retryable reports whether the failure was caused by concurrent activity
// rather than by the request itself.
func Retryable(err error) bool {
	c := Classify(err)
	return c == ClassConflict || c == ClassUnavailable
}
