package helpapi

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"gorm.io/gorm"

	"hhfoundation/internal/worker"
)

// Asynq task types for the reconciliation queue.
const (
	TaskReassign = "reconcile:reassign"
	TaskExpire   = "reconcile:expire"
)

// RepairStats is what one reconciliation pass reports. Exhausted counts
// records that stayed unrepaired because the eligible pool was empty.
type RepairStats struct {
	Scanned   int64 `json:"scanned"`
	Repaired  int64 `json:"repaired"`
	Exhausted int64 `json:"exhausted"`
}

type reassignTask struct {
	db     *gorm.DB
	record Assignment
	stats  *RepairStats
}

func (t *reassignTask) Execute() {
	_, err := AssignReceiver(t.db, &t.record)
	if err == nil {
		atomic.AddInt64(&t.stats.Repaired, 1)
		return
	}
	if errors.Is(err, ErrNoEligibleReceiver) {
		atomic.AddInt64(&t.stats.Exhausted, 1)
		return
	}
	fmt.Println("[Reconcile] reassign failed for", t.record.HelpId, err.Error())
}

// ReassignMissingReceivers scans pending records that never got a receiver and
// runs each through the selector again. Safe to invoke repeatedly and
// concurrently with live traffic: the selector's conditional updates make a
// repair of an already-claimed record a no-op, so a second back-to-back run
// performs zero additional writes.
func ReassignMissingReceivers(db *gorm.DB, poolSize int) (RepairStats, error) {
	var stats RepairStats
	var orphans []Assignment
	res := db.Where("status = ? AND receiver_id IS NULL", StatusPending).
		Order("created_at ASC").
		Find(&orphans)
	if res.Error != nil {
		return stats, res.Error
	}
	stats.Scanned = int64(len(orphans))
	if len(orphans) == 0 {
		return stats, nil
	}

	pool := worker.NewPool(poolSize, len(orphans))
	for i := range orphans {
		pool.Exec(&reassignTask{db: db, record: orphans[i], stats: &stats})
	}
	pool.Close()
	pool.Wait()
	fmt.Println("[Reconcile] reassign pass:", stats.Scanned, "scanned,", stats.Repaired, "repaired,", stats.Exhausted, "exhausted")
	return stats, nil
}

// expireOverdueRecord fails one overdue record, holds its sender and writes
// the audit entry in a single transaction: a crash cannot leave a failed
// record whose sender escaped the hold.
func expireOverdueRecord(db *gorm.DB, record *Assignment) error {
	tx := db.Begin()
	if tx.Error != nil {
		return tx.Error
	}
	defer func() {
		tx.Rollback()
	}()
	if err := failAssignmentIn(tx, record, "payment window expired"); err != nil {
		return err
	}
	if err := HoldSender(tx, record.SenderId, "payment not completed within the payment window"); err != nil {
		return err
	}
	if err := WriteAudit(tx, AuditEntry{
		Action:       AuditAutoHold,
		MemberId:     record.SenderId,
		AssignmentId: record.Id,
		Detail:       fmt.Sprintf("help %s expired, sender put on hold", record.HelpId),
	}); err != nil {
		return err
	}
	if err := tx.Commit().Error; err != nil {
		return err
	}
	record.Status = StatusFailed
	record.FailReason = "payment window expired"
	return nil
}

// ExpireOverduePayments enforces the payment window: an assigned record whose
// sender did not pay within PaymentWindowHours of assignedAt fails, the
// sender goes on hold and the vacated receiver slot becomes claimable again.
// The window is evaluated lazily, enforcement lands within one scan interval
// of the deadline rather than at the 24h mark itself.
func ExpireOverduePayments(db *gorm.DB, now time.Time) (RepairStats, error) {
	var stats RepairStats
	cutoff := now.Add(-time.Duration(PaymentWindowHours()) * time.Hour)
	var overdue []Assignment
	res := db.Where("status = ? AND assigned_at < ?", StatusAssigned, cutoff).
		Find(&overdue)
	if res.Error != nil {
		return stats, res.Error
	}
	stats.Scanned = int64(len(overdue))

	for i := range overdue {
		record := &overdue[i]
		if err := expireOverdueRecord(db, record); err != nil {
			// Lost the race to a concurrent pass or a live payment; skip.
			if errors.Is(err, ErrBadTransition) {
				continue
			}
			return stats, err
		}
		stats.Repaired++
		msg := fmt.Sprintf(
			`PAYMENT WINDOW EXPIRED Help: %s
Sender: %d put on hold
Amount: %s`,
			EscapeMarkdownV2(record.HelpId),
			record.SenderId,
			EscapeMarkdownV2(fmt.Sprintf("%d", record.Amount)),
		)
		if err := SendTelegramMessage(msg, "ops"); err != nil {
			fmt.Println("[Reconcile] telegram notify failed:", err.Error())
		}
	}
	fmt.Println("[Reconcile] expire pass:", stats.Scanned, "scanned,", stats.Repaired, "expired")
	return stats, nil
}
