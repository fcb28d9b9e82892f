package contract

import "errors"

var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidArguments  = errors.New("invalid arguments")
	ErrSlotConflict      = errors.New("slot conflict")
	ErrInvalidDateTime   = errors.New("invalid date or time")
	ErrUnknownAction     = errors.New("unknown action")
	ErrAlreadyCancelled  = errors.New("booking already cancelled")
	ErrCapabilityTimeout = errors.New("capability call timed out")
	ErrCapacityExceeded  = errors.New("session capacity exceeded")
	ErrOracleResponse    = errors.New("oracle response violates contract")
)
