package helpapi

import (
	"time"

	"gorm.io/gorm"
)

// Audit actions.
const (
	AuditUnblock     = "unblock"
	AuditBulkUnlock  = "bulk_unlock"
	AuditForceAssign = "force_assign"
	AuditHide        = "hide"
	AuditAutoHold    = "auto_hold"
)

// AuditEntry is the append-only trail of every administrative override and
// system-initiated hold. Required because unblock trusts its caller.
type AuditEntry struct {
	Id           uint      `json:"id" gorm:"primarykey"`
	CreatedAt    time.Time `json:"created_at"`
	ActorId      uint      `json:"actor_id"` // 0 for the reconciler
	Action       string    `gorm:"index;not null" json:"action"`
	MemberId     uint      `gorm:"index" json:"member_id"`
	AssignmentId uint      `gorm:"index" json:"assignment_id"`
	Detail       string    `json:"detail"`
}

func WriteAudit(db *gorm.DB, entry AuditEntry) error {
	return db.Create(&entry).Error
}
