package domain

import "errors"

// Validation errors: rejected before any state change.
var (
	ErrEmptyName         = errors.New("auction name cannot be empty")
	ErrEmptyURI          = errors.New("auction metadata uri cannot be empty")
	ErrInvalidDeadline   = errors.New("deadline offset must be greater than zero")
	ErrInvalidStartPrice = errors.New("start price must be greater than zero")
	ErrNilRegistry       = errors.New("deed registry is not wired")
)

// Authorization errors.
var (
	ErrNotOwner       = errors.New("caller is not the auction owner")
	ErrOwnerCannotBid = errors.New("owner cannot bid on their own auction")
)

// Precondition errors.
var (
	ErrAuctionNotFound    = errors.New("auction not found")
	ErrAuctionNotActive   = errors.New("auction is not active")
	ErrAuctionFinalized   = errors.New("auction is already finalized")
	ErrDeadlinePassed     = errors.New("auction deadline has passed")
	ErrDeadlineNotReached = errors.New("auction deadline has not been reached")
	ErrBidTooLow          = errors.New("bid amount is too low")
	ErrDeedNotInCustody   = errors.New("engine does not hold custody of the deed")
)

// ErrTransferFailed marks an aborted operation: an outbound value or
// custody transfer was rejected by the recipient or the registry. The
// enclosing operation left no partial state behind and is safe to retry.
var ErrTransferFailed = errors.New("outbound transfer failed")
