package helpapi

// Exclusion reasons, mirrored by the diagnostics endpoint.
const (
	ReasonSameAsSender   = "same_as_sender"
	ReasonWrongLevel     = "wrong_level"
	ReasonNotActivated   = "not_activated"
	ReasonVisibilityOff  = "help_visibility_off"
	ReasonBlocked        = "blocked"
	ReasonReceivingHeld  = "receiving_held"
	ReasonSlotOccupied   = "slot_occupied"
	ReasonMatrixComplete = "matrix_complete"
)

// ReceiveExclusion returns the first reason the candidate cannot receive at
// the given level, or "" when eligible. Pure and side-effect free; the
// selector re-checks the same conditions inside the claim UPDATE because
// flags can flip between enumeration and claim.
func ReceiveExclusion(candidate *Member, level Level, excludeId uint) string {
	if candidate.Id == excludeId {
		return ReasonSameAsSender
	}
	if candidate.Level != level {
		return ReasonWrongLevel
	}
	if !candidate.IsActivated {
		return ReasonNotActivated
	}
	if !candidate.HelpVisibility {
		return ReasonVisibilityOff
	}
	if candidate.IsBlocked {
		return ReasonBlocked
	}
	if candidate.IsReceivingHeld {
		return ReasonReceivingHeld
	}
	if candidate.MatrixComplete {
		return ReasonMatrixComplete
	}
	if candidate.ActiveReceiveCount > 0 {
		return ReasonSlotOccupied
	}
	return ""
}

// IsEligibleReceiver is the boolean form of ReceiveExclusion.
func IsEligibleReceiver(candidate *Member, level Level, excludeId uint) bool {
	return ReceiveExclusion(candidate, level, excludeId) == ""
}

// SendVeto returns the error vetoing the member as a sender, or nil.
func SendVeto(sender *Member) error {
	if sender.IsBlocked {
		return ErrBlockedAccount
	}
	if !sender.IsActivated {
		return ErrBlockedAccount
	}
	if sender.IsOnHold {
		return ErrOnHold
	}
	return nil
}
