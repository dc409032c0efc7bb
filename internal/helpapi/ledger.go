package helpapi

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

// ConfirmPayment is the sender-side assigned->paid transition. The amount is
// checked against the level config to the exact unit; a mismatch fails the
// record outright and releases the receiver slot, it is never retried.
func ConfirmPayment(db *gorm.DB, helpId string, senderId uint, amount int64) (*Assignment, error) {
	var record Assignment
	res := db.Where("help_id = ?", helpId).First(&record)
	if res.RowsAffected != 1 {
		return nil, ErrNotFound
	}
	if senderId != 0 && record.SenderId != senderId {
		return nil, ErrNotYours
	}
	if record.Status != StatusAssigned {
		return nil, ErrBadTransition
	}
	if amount != record.ExpectedAmount() || amount != record.Amount {
		if err := failAssignment(db, &record, "amount mismatch"); err != nil {
			return nil, err
		}
		fmt.Println("[Ledger] invalid amount on", record.HelpId, "got", amount, "want", record.ExpectedAmount())
		return &record, ErrInvalidAmount
	}

	now := time.Now()
	res = db.Model(&Assignment{}).
		Where("id = ? AND status = ?", record.Id, StatusAssigned).
		Updates(map[string]interface{}{
			"status":  StatusPaid,
			"paid_at": now,
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected != 1 {
		return nil, ErrBadTransition
	}
	record.Status = StatusPaid
	record.PaidAt = &now
	return &record, nil
}

// ConfirmReceipt is the receiver-side paid->verified transition. It requires
// the receiver's explicit acknowledgment, never a timeout. Verification bumps
// both counters, releases the slot and re-evaluates the receiver's
// progression; a verified upgrade payment additionally advances the sender.
func ConfirmReceipt(db *gorm.DB, helpId string, receiverId uint) (*Assignment, error) {
	var record Assignment
	res := db.Where("help_id = ?", helpId).First(&record)
	if res.RowsAffected != 1 {
		return nil, ErrNotFound
	}
	if record.ReceiverId == nil {
		return nil, ErrBadTransition
	}
	if receiverId != 0 && *record.ReceiverId != receiverId {
		return nil, ErrNotYours
	}
	if record.Status != StatusPaid {
		return nil, ErrBadTransition
	}
	var receiverMember Member
	res = db.Where("id = ?", *record.ReceiverId).First(&receiverMember)
	if res.RowsAffected != 1 {
		return nil, ErrNotFound
	}
	// A receive-side hold suspends verification too; the record waits in paid
	// until the hold clears.
	if receiverMember.IsReceivingHeld {
		return nil, ErrReceivingHeld
	}
	// Amount invariant holds at verification time too: the record carries the
	// amount frozen at creation, so a level upgrade mid-flight cannot bend it.
	if record.Amount != record.ExpectedAmount() {
		if err := failAssignment(db, &record, "amount drift at verification"); err != nil {
			return nil, err
		}
		return &record, ErrInvalidAmount
	}

	receiver := *record.ReceiverId
	now := time.Now()

	tx := db.Begin()
	if tx.Error != nil {
		return nil, tx.Error
	}
	defer func() {
		tx.Rollback()
	}()
	res = tx.Model(&Assignment{}).
		Where("id = ? AND status = ?", record.Id, StatusPaid).
		Updates(map[string]interface{}{
			"status":      StatusVerified,
			"verified_at": now,
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected != 1 {
		return nil, ErrBadTransition
	}
	res = tx.Model(&Member{}).
		Where("id = ?", receiver).
		Updates(map[string]interface{}{
			"verified_received_count": gorm.Expr("verified_received_count + 1"),
			"active_receive_count":    0,
		})
	if res.Error != nil {
		return nil, res.Error
	}
	res = tx.Model(&Member{}).
		Where("id = ?", record.SenderId).
		Update("verified_sent_count", gorm.Expr("verified_sent_count + 1"))
	if res.Error != nil {
		return nil, res.Error
	}
	// Progression and the upgrade advance ride the same transaction as the
	// verify: a verified upgrade record with an unadvanced sender cannot exist.
	if err := EvaluateProgression(tx, receiver); err != nil {
		return nil, err
	}
	if record.Kind == KindUpgrade {
		if err := ApplyUpgradePayment(tx, record.SenderId, record.Level); err != nil {
			return nil, err
		}
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	record.Status = StatusVerified
	record.VerifiedAt = &now
	return &record, nil
}

// failAssignment moves an active record to failed and frees the claimed slot.
// Conditional on the current status so concurrent repair passes stay
// idempotent.
func failAssignment(db *gorm.DB, record *Assignment, reason string) error {
	tx := db.Begin()
	if tx.Error != nil {
		return tx.Error
	}
	defer func() {
		tx.Rollback()
	}()
	if err := failAssignmentIn(tx, record, reason); err != nil {
		return err
	}
	if err := tx.Commit().Error; err != nil {
		return err
	}
	record.Status = StatusFailed
	record.FailReason = reason
	return nil
}

// failAssignmentIn applies the conditional fail and slot release on an open
// transaction, so callers can commit further writes atomically with it.
func failAssignmentIn(tx *gorm.DB, record *Assignment, reason string) error {
	res := tx.Model(&Assignment{}).
		Where("id = ? AND status IN ?", record.Id, ActiveStatuses).
		Updates(map[string]interface{}{
			"status":      StatusFailed,
			"fail_reason": reason,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected != 1 {
		return ErrBadTransition
	}
	if record.ReceiverId != nil {
		res = tx.Model(&Member{}).
			Where("id = ? AND active_receive_count > 0", *record.ReceiverId).
			Update("active_receive_count", gorm.Expr("active_receive_count - 1"))
		if res.Error != nil {
			return res.Error
		}
	}
	return nil
}

// HideAssignment flips the administrative visibility flag. Not a business
// state, the record keeps whatever status it has.
func HideAssignment(db *gorm.DB, helpId string, actorId uint) error {
	var record Assignment
	res := db.Where("help_id = ?", helpId).First(&record)
	if res.RowsAffected != 1 {
		return ErrNotFound
	}
	if record.Hidden {
		return nil
	}
	tx := db.Begin()
	if tx.Error != nil {
		return tx.Error
	}
	defer func() {
		tx.Rollback()
	}()
	if err := tx.Model(&Assignment{}).Where("id = ?", record.Id).Update("hidden", true).Error; err != nil {
		return err
	}
	if err := WriteAudit(tx, AuditEntry{
		ActorId:      actorId,
		Action:       AuditHide,
		AssignmentId: record.Id,
		Detail:       "assignment hidden",
	}); err != nil {
		return err
	}
	return tx.Commit().Error
}
