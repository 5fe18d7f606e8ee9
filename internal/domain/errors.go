package domain

import "errors"

// Every rejected operation surfaces one of these stable error kinds so that
// callers can branch on cause. Services wrap them with context via fmt.Errorf
// and %w; handlers map them to HTTP codes with errors.Is.

// Validation errors — bad input, recoverable by retry with corrected input.
var (
	ErrZeroPrice        = errors.New("price per second must be positive")
	ErrInvalidDuration  = errors.New("duration outside allowed range")
	ErrInvalidRecipient = errors.New("recipient must be a distinct, non-zero account")
	ErrZeroDeposit      = errors.New("deposit must be positive")
	ErrStartInPast      = errors.New("start time is in the past")
	ErrStopBeforeStart  = errors.New("stop time must be after start time")
	ErrInvalidAmount    = errors.New("amount must be positive")
)

// Authorization errors — caller is not permitted to perform the operation.
var (
	ErrNotOwner            = errors.New("caller does not own the asset")
	ErrNotListingOwner     = errors.New("caller is not the listing owner")
	ErrSelfRentalForbidden = errors.New("owner may not rent their own listing")
	ErrNotParticipant      = errors.New("caller is neither renter nor owner of the rental")
	ErrNotStreamParty      = errors.New("caller is neither sender nor recipient of the stream")
	ErrNotRecipient        = errors.New("only the stream recipient may withdraw")
	ErrNotResolver         = errors.New("caller is not the designated dispute resolver")
	ErrNotOperator         = errors.New("caller is not the protocol operator")
	ErrNotSessionManager   = errors.New("only the rental session manager may record outcomes")
)

// State errors — the entity exists but is in the wrong state.
var (
	ErrNotFound            = errors.New("not found")
	ErrListingInactive     = errors.New("listing is not active")
	ErrRentalInProgress    = errors.New("listing has an active rental")
	ErrRentalNotActive     = errors.New("rental is not active")
	ErrRentalNotDisputed   = errors.New("rental is not under dispute")
	ErrTooEarly            = errors.New("rental has not reached its end time")
	ErrDisputeWindowClosed = errors.New("dispute deadline has passed")
	ErrGracePeriodActive   = errors.New("recovery grace period has not elapsed")
	ErrStreamInactive      = errors.New("stream is not active")
)

// Economic errors — funds do not cover the operation.
var (
	ErrInsufficientPayment    = errors.New("payment does not cover the rental cost")
	ErrInsufficientCollateral = errors.New("funds cover the price but not the required collateral")
	ErrInsufficientVested     = errors.New("amount exceeds vested, unwithdrawn balance")
	ErrInsufficientBalance    = errors.New("insufficient balance")
)
