package betslip

import "errors"

var (
	ErrUnknownOutcome    = errors.New("unknown outcome")
	ErrInvalidOdds       = errors.New("invalid odds")
	ErrInvalidAmount     = errors.New("amount must be positive")
	ErrBetNotFound       = errors.New("bet not found")
	ErrEventNotFound     = errors.New("event not found")
	ErrInsufficientFunds = errors.New("insufficient funds")
)

// Motivos que bloqueiam o envio do slip (Gate.Check)
var (
	ErrSubmissionInProgress = errors.New("submission in progress")
	ErrEmptySlip            = errors.New("bet slip is empty")
	ErrStaleOdds            = errors.New("odds changed, accept current odds")
	ErrMarketSuspended      = errors.New("market suspended")
	ErrMarketClosed         = errors.New("market closed")
	ErrEventUnavailable     = errors.New("event data unavailable")
)
