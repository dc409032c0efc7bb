package helpapi

import (
	"time"

	"gorm.io/gorm"
)

type Member struct {
	Id        uint           `json:"id" gorm:"primarykey"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"deleted_at" gorm:"index"`

	MemberId     string `gorm:"uniqueIndex;not null" json:"member_id"` // human-facing id, eg. HH7F3K2D
	Email        string `gorm:"index;not null" json:"email"`
	PasswordHash string `json:"-"`
	FullName     string `json:"full_name"`
	Phone        string `json:"phone"`
	Role         string `gorm:"not null;default:member" json:"role"` // "member" or "admin"

	Level          Level `gorm:"index;not null;default:Star" json:"level"`
	IsActivated    bool  `gorm:"index" json:"is_activated"`
	HelpVisibility bool  `gorm:"index" json:"help_visibility"` // opt-in to be selected as receiver

	// Suspension flags. Different triggers, different unblock authorities:
	// IsBlocked is administrative and vetoes both directions, IsOnHold is the
	// overdue-payment hold on sending, IsReceivingHeld suspends receiving only.
	IsBlocked       bool       `gorm:"index" json:"is_blocked"`
	IsOnHold        bool       `gorm:"index" json:"is_on_hold"`
	IsReceivingHeld bool       `gorm:"index" json:"is_receiving_held"`
	BlockedReason   string     `json:"blocked_reason"`
	BlockedAt       *time.Time `json:"blocked_at"`
	BlockedBySystem bool       `json:"blocked_by_system"`

	SponsorId     uint `gorm:"index" json:"sponsor_id"` // upline member
	ReferralCount uint `json:"referral_count"`

	VerifiedReceivedCount uint `json:"verified_received_count"`
	VerifiedSentCount     uint `json:"verified_sent_count"`
	// ActiveReceiveCount marks the claimed matrix slot: 0 when free, 1 while a
	// non-terminal assignment references this member as receiver.
	ActiveReceiveCount uint `gorm:"index" json:"active_receive_count"`

	UpgradeEligible bool `json:"upgrade_eligible"`
	// MatrixComplete is the explicit "completed" sub-state of a terminal-level
	// member whose matrix is full. Completed members keep sending but are out
	// of the receive pool.
	MatrixComplete bool `json:"matrix_complete"`
}

// MemberData is the trimmed view sent over websocket sync frames.
type MemberData struct {
	ID              uint   `json:"id"`
	MemberId        string `json:"member_id"`
	Level           Level  `json:"level"`
	Received        uint   `json:"verified_received_count"`
	Sent            uint   `json:"verified_sent_count"`
	UpgradeEligible bool   `json:"upgrade_eligible"`
	MatrixComplete  bool   `json:"matrix_complete"`
	ReferralCount   uint   `json:"referral_count"`
}

func (m *Member) Data() MemberData {
	return MemberData{
		ID:              m.Id,
		MemberId:        m.MemberId,
		Level:           m.Level,
		Received:        m.VerifiedReceivedCount,
		Sent:            m.VerifiedSentCount,
		UpgradeEligible: m.UpgradeEligible,
		MatrixComplete:  m.MatrixComplete,
		ReferralCount:   m.ReferralCount,
	}
}
