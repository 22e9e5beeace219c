package domain

import "errors"

var (
	// ErrInvalidQuantity is returned when a caller passes a zero or negative
	// quantity. Rejected before any store query is issued.
	ErrInvalidQuantity = errors.New("quantity must be a positive integer")

	// ErrInsufficientInventory is returned when the available remaining
	// quantity across all candidate lots cannot cover a request. The store
	// is left untouched.
	ErrInsufficientInventory = errors.New("insufficient inventory")

	// ErrRevisionConflict is returned by the lot store when a revision-gated
	// write finds the document changed underneath it. The allocator retries
	// the whole computation on this error.
	ErrRevisionConflict = errors.New("lot revision conflict")

	// ErrLotNotFound is returned for lookups of a lot id that does not exist
	ErrLotNotFound = errors.New("lot not found")

	// ErrPurchaseRunNotFound is returned when analytics are requested for a
	// purchase run with no lots
	ErrPurchaseRunNotFound = errors.New("purchase run not found")

	// ErrStoreUnavailable is returned when the underlying document store is
	// unreachable. Never retried by the engine; retry policy belongs to the
	// store client.
	ErrStoreUnavailable = errors.New("lot store unavailable")

	// ErrLotOverdraw is returned when a consume would push remainingQuantity
	// below zero
	ErrLotOverdraw = errors.New("cannot consume more than remaining quantity")
)
