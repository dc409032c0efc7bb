package helpapi

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// receiveEligibleWhere is the receive-side predicate in SQL form. The claim
// UPDATE repeats it so a flag flipped after enumeration still vetoes the
// claim.
// Upgrade-eligible members stay in the pool until their upgrade payment
// verifies, so VerifiedReceivedCount can pass MatrixPositions in the
// meantime; the counter reset on advance absorbs the surplus.
const receiveEligibleWhere = "is_activated = ? AND help_visibility = ? AND is_blocked = ? AND is_receiving_held = ? AND matrix_complete = ? AND active_receive_count = 0"

// AssignReceiver finds and atomically claims exactly one eligible receiver
// for the given record. Candidates are enumerated first-come-first-served
// (registration time ascending, id ascending for total determinism) and each
// is tried with one short transaction. A lost race moves on to the NEXT
// candidate, never retries the same one. The attempt budget is bounded by
// ClaimAttempts; exhausting it returns ErrNoEligibleReceiver, which the
// caller must surface, an empty pool is a capacity problem, not a transient
// conflict.
func AssignReceiver(db *gorm.DB, record *Assignment) (uint, error) {
	if !record.Active() || record.Status != StatusPending {
		// Already claimed or terminal: idempotent no-op for the reconciler.
		if record.ReceiverId != nil {
			return *record.ReceiverId, nil
		}
		return 0, ErrBadTransition
	}
	level := record.MatchLevel()
	if !level.Valid() {
		return 0, ErrUpgradeNotOpen
	}

	var candidates []Member
	res := db.
		Where("level = ? AND id <> ? AND "+receiveEligibleWhere,
			level, record.SenderId, true, true, false, false, false).
		Order("created_at ASC, id ASC").
		Limit(ClaimAttempts()).
		Find(&candidates)
	if res.Error != nil {
		return 0, res.Error
	}

	for i := range candidates {
		candidate := &candidates[i]
		if !IsEligibleReceiver(candidate, level, record.SenderId) {
			continue
		}
		receiverId, err := tryClaim(db, record, candidate)
		if err == nil {
			return receiverId, nil
		}
		if errors.Is(err, ErrClaimConflict) {
			continue
		}
		return 0, err
	}
	fmt.Println("[Selector] pool exhausted for help", record.HelpId, "level", level)
	return 0, ErrNoEligibleReceiver
}

// tryClaim is the atomic read-modify-write at the heart of the engine: one
// transaction that occupies the candidate's slot and stamps the record, both
// through conditional updates checked by rows affected.
func tryClaim(db *gorm.DB, record *Assignment, candidate *Member) (uint, error) {
	tx := db.Begin()
	if tx.Error != nil {
		return 0, tx.Error
	}
	defer func() {
		tx.Rollback()
	}()

	res := tx.Model(&Member{}).
		Where("id = ? AND "+receiveEligibleWhere,
			candidate.Id, true, true, false, false, false).
		Update("active_receive_count", 1)
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected != 1 {
		return 0, ErrClaimConflict
	}

	now := time.Now()
	res = tx.Model(&Assignment{}).
		Where("id = ? AND status = ? AND receiver_id IS NULL", record.Id, StatusPending).
		Updates(map[string]interface{}{
			"receiver_id": candidate.Id,
			"status":      StatusAssigned,
			"assigned_at": now,
		})
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected != 1 {
		// The record itself raced away, a concurrent pass claimed it first.
		// Roll back the slot and report whatever won.
		tx.Rollback()
		var current Assignment
		if err := db.Where("id = ?", record.Id).First(&current).Error; err != nil {
			return 0, err
		}
		if current.ReceiverId != nil {
			*record = current
			return *current.ReceiverId, nil
		}
		return 0, ErrClaimConflict
	}

	if err := tx.Commit().Error; err != nil {
		return 0, err
	}
	receiverId := candidate.Id
	record.ReceiverId = &receiverId
	record.Status = StatusAssigned
	record.AssignedAt = &now
	return receiverId, nil
}

// ForceAssignReceiver is the administrative override: it skips the
// eligibility filter entirely but still goes through the conditional slot
// update, so the at-most-one-claim invariant cannot be broken even by an
// admin. Every call lands in the audit log.
func ForceAssignReceiver(db *gorm.DB, helpId string, receiverId uint, actorId uint) (*Assignment, error) {
	var record Assignment
	res := db.Where("help_id = ?", helpId).First(&record)
	if res.RowsAffected != 1 {
		return nil, ErrNotFound
	}
	if record.Status != StatusPending || record.ReceiverId != nil {
		return nil, ErrBadTransition
	}
	if receiverId == record.SenderId {
		return nil, ErrNotYours
	}
	var receiver Member
	res = db.Where("id = ?", receiverId).First(&receiver)
	if res.RowsAffected != 1 {
		return nil, ErrNotFound
	}

	tx := db.Begin()
	if tx.Error != nil {
		return nil, tx.Error
	}
	defer func() {
		tx.Rollback()
	}()

	res = tx.Model(&Member{}).
		Where("id = ? AND active_receive_count = 0", receiverId).
		Update("active_receive_count", 1)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected != 1 {
		return nil, ErrClaimConflict
	}
	now := time.Now()
	res = tx.Model(&Assignment{}).
		Where("id = ? AND status = ? AND receiver_id IS NULL", record.Id, StatusPending).
		Updates(map[string]interface{}{
			"receiver_id": receiverId,
			"status":      StatusAssigned,
			"assigned_at": now,
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected != 1 {
		return nil, ErrClaimConflict
	}
	if err := WriteAudit(tx, AuditEntry{
		ActorId:      actorId,
		Action:       AuditForceAssign,
		MemberId:     receiverId,
		AssignmentId: record.Id,
		Detail:       fmt.Sprintf("force-assigned receiver %d to help %s", receiverId, helpId),
	}); err != nil {
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	record.ReceiverId = &receiverId
	record.Status = StatusAssigned
	record.AssignedAt = &now
	return &record, nil
}
