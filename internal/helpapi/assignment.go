package helpapi

import "time"

// Assignment statuses. pending -> assigned -> paid -> verified is the happy
// path; failed is terminal for timeouts, disputes and amount mismatches.
const (
	StatusPending  = "pending"
	StatusAssigned = "assigned"
	StatusPaid     = "paid"
	StatusVerified = "verified"
	StatusFailed   = "failed"
)

// Assignment kinds.
const (
	KindHelp    = "help"
	KindUpgrade = "upgrade"
)

// Assignment is one logical help transaction, the sendHelp/receiveHelp pair of
// the plan. The sender creates it pending; only the selector writes ReceiverId
// and the pending->assigned transition; only the receiver drives paid->verified.
type Assignment struct {
	Id        uint      `json:"id" gorm:"primarykey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	HelpId string `gorm:"uniqueIndex;not null" json:"help_id"` // correlation id shared by both views
	Kind   string `gorm:"index;not null;default:help" json:"kind"`

	// The partial unique index is the one-active-send rule at the schema
	// level: the pre-check in requestAssignment can be raced past, the
	// index cannot.
	SenderId   uint  `gorm:"not null;index;uniqueIndex:uix_assignments_active_send,where:status = 'pending' OR status = 'assigned' OR status = 'paid'" json:"sender_id"`
	ReceiverId *uint `gorm:"index" json:"receiver_id"` // nil until claimed

	Level  Level `gorm:"index;not null" json:"level"`
	Amount int64 `gorm:"not null" json:"amount"`

	Status     string `gorm:"index;not null;default:pending" json:"status"`
	Hidden     bool   `gorm:"index" json:"hidden"` // admin visibility flag, orthogonal to Status
	FailReason string `json:"fail_reason"`

	AssignedAt *time.Time `json:"assigned_at"`
	PaidAt     *time.Time `json:"paid_at"`
	VerifiedAt *time.Time `json:"verified_at"`
}

// Active reports whether the record still ties up a receiver slot.
func (a *Assignment) Active() bool {
	switch a.Status {
	case StatusPending, StatusAssigned, StatusPaid:
		return true
	}
	return false
}

// ActiveStatuses is the non-terminal status set, for queries.
var ActiveStatuses = []string{StatusPending, StatusAssigned, StatusPaid}

// ExpectedAmount is the exact amount this record must carry to ever verify.
func (a *Assignment) ExpectedAmount() int64 {
	if a.Kind == KindUpgrade {
		return a.Level.Config().UpgradeCost
	}
	return a.Level.Config().HelpAmount
}

// MatchLevel is the pool the receiver is drawn from: help stays in the
// sender's level, upgrade payments go to the next level up.
func (a *Assignment) MatchLevel() Level {
	if a.Kind == KindUpgrade {
		return a.Level.Config().Next
	}
	return a.Level
}

// HelpIdempotency makes requestHelp replays with the same key return the
// original record instead of creating a duplicate.
type HelpIdempotency struct {
	CreatedAt time.Time `json:"created_at"`
	SenderId  uint      `json:"sender_id" gorm:"primaryKey;autoIncrement:false"`
	Key       string    `json:"key" gorm:"primaryKey"`
	HelpId    string    `json:"help_id" gorm:"not null"`
}
