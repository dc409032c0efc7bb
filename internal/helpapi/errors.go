package helpapi

import "errors"

// Engine error taxonomy. The engine never recovers semantically: everything
// except claim conflicts is surfaced to the caller with its code.
var (
	ErrNoEligibleReceiver = errors.New("NO_ELIGIBLE_RECEIVER")
	ErrClaimConflict      = errors.New("CLAIM_CONFLICT") // internal to the selector loop
	ErrInvalidAmount      = errors.New("INVALID_AMOUNT")
	ErrBlockedAccount     = errors.New("BLOCKED_ACCOUNT")
	ErrOnHold             = errors.New("ON_HOLD")
	ErrReceivingHeld      = errors.New("RECEIVING_HELD")
	ErrNotFound           = errors.New("NOT_FOUND")
	ErrBadTransition      = errors.New("BAD_TRANSITION")
	ErrNotYours           = errors.New("NOT_YOURS")
	ErrAlreadyActive      = errors.New("ALREADY_ACTIVE")
	ErrUpgradeNotOpen     = errors.New("UPGRADE_NOT_OPEN")
)
