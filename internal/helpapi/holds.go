package helpapi

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

// All suspension flag writes funnel through this file. Nothing else in the
// engine mutates IsBlocked/IsOnHold/IsReceivingHeld directly.

// BlockMember applies the administrative punitive block: both sending and
// receiving stop.
func BlockMember(db *gorm.DB, memberId uint, reason string, bySystem bool) error {
	now := time.Now()
	res := db.Model(&Member{}).
		Where("id = ?", memberId).
		Updates(map[string]interface{}{
			"is_blocked":        true,
			"blocked_reason":    reason,
			"blocked_at":        now,
			"blocked_by_system": bySystem,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected != 1 {
		return ErrNotFound
	}
	return nil
}

// HoldSender sets the overdue-payment hold: sending stops until resolved,
// receiving is untouched.
func HoldSender(db *gorm.DB, memberId uint, reason string) error {
	now := time.Now()
	res := db.Model(&Member{}).
		Where("id = ?", memberId).
		Updates(map[string]interface{}{
			"is_on_hold":        true,
			"blocked_reason":    reason,
			"blocked_at":        now,
			"blocked_by_system": true,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected != 1 {
		return ErrNotFound
	}
	return nil
}

// HoldReceiving suspends the receive side while irregularities are reviewed.
func HoldReceiving(db *gorm.DB, memberId uint, reason string) error {
	res := db.Model(&Member{}).
		Where("id = ?", memberId).
		Updates(map[string]interface{}{
			"is_receiving_held": true,
			"blocked_reason":    reason,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected != 1 {
		return ErrNotFound
	}
	return nil
}

// ResumeBlockedReceives clears all three suspension flags and the block
// metadata in one idempotent shot. It performs NO verification of the
// underlying obligation; the caller is trusted to have checked it, which is
// why every call is audit-logged.
func ResumeBlockedReceives(db *gorm.DB, memberId uint, actorId uint) error {
	var member Member
	res := db.Where("id = ?", memberId).First(&member)
	if res.RowsAffected != 1 {
		return ErrNotFound
	}
	tx := db.Begin()
	if tx.Error != nil {
		return tx.Error
	}
	defer func() {
		tx.Rollback()
	}()
	res = tx.Model(&Member{}).
		Where("id = ?", memberId).
		Updates(map[string]interface{}{
			"is_blocked":        false,
			"is_on_hold":        false,
			"is_receiving_held": false,
			"blocked_reason":    "",
			"blocked_at":        nil,
			"blocked_by_system": false,
		})
	if res.Error != nil {
		return res.Error
	}
	if err := WriteAudit(tx, AuditEntry{
		ActorId:  actorId,
		Action:   AuditUnblock,
		MemberId: memberId,
		Detail:   "suspension flags cleared",
	}); err != nil {
		return err
	}
	return tx.Commit().Error
}

// BulkUnlockFilter narrows the amnesty set. Zero value matches every
// system-blocked member.
type BulkUnlockFilter struct {
	Level        Level      `json:"level"`
	BlockedSince *time.Time `json:"blocked_since"`
}

// BulkUnlock batch-clears the administrative block across the filtered set.
// Amnesty only: ordinary unblocking goes through ResumeBlockedReceives so the
// audit trail stays per-member. Each record update is independently
// idempotent, re-running after a crash converges on the same end state.
func BulkUnlock(db *gorm.DB, filter BulkUnlockFilter, actorId uint) (int64, error) {
	q := db.Model(&Member{}).
		Where("is_blocked = ? AND blocked_by_system = ?", true, true)
	if filter.Level != "" {
		q = q.Where("level = ?", filter.Level)
	}
	if filter.BlockedSince != nil {
		q = q.Where("blocked_at >= ?", *filter.BlockedSince)
	}
	res := q.Updates(map[string]interface{}{
		"is_blocked":        false,
		"blocked_reason":    "",
		"blocked_at":        nil,
		"blocked_by_system": false,
	})
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected > 0 {
		if err := WriteAudit(db, AuditEntry{
			ActorId: actorId,
			Action:  AuditBulkUnlock,
			Detail:  fmt.Sprintf("bulk unlock cleared %d members", res.RowsAffected),
		}); err != nil {
			return res.RowsAffected, err
		}
	}
	return res.RowsAffected, nil
}
