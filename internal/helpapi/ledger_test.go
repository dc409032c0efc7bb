package helpapi

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfirmPaymentAndReceipt(t *testing.T) {
	db := newTestDb(t)
	sender := seedMember(t, db, LevelStar)
	receiver := seedMember(t, db, LevelStar)

	record, err := RequestHelp(db, sender.Id, "pay-1")
	require.NoError(t, err)

	paid, err := ConfirmPayment(db, record.HelpId, sender.Id, 300)
	require.NoError(t, err)
	assert.Equal(t, StatusPaid, paid.Status)
	assert.NotNil(t, paid.PaidAt)

	verified, err := ConfirmReceipt(db, record.HelpId, receiver.Id)
	require.NoError(t, err)
	assert.Equal(t, StatusVerified, verified.Status)
	assert.NotNil(t, verified.VerifiedAt)

	r := reloadMember(t, db, receiver.Id)
	assert.Equal(t, uint(1), r.VerifiedReceivedCount)
	assert.Equal(t, uint(0), r.ActiveReceiveCount)
	s := reloadMember(t, db, sender.Id)
	assert.Equal(t, uint(1), s.VerifiedSentCount)

	// Slot released: the receiver can be matched again right away.
	next := seedMember(t, db, LevelStar)
	again, err := RequestHelp(db, next.Id, "pay-2")
	require.NoError(t, err)
	require.NotNil(t, again.ReceiverId)
}

func TestConfirmPaymentWrongAmountFailsRecord(t *testing.T) {
	db := newTestDb(t)
	sender := seedMember(t, db, LevelStar)
	receiver := seedMember(t, db, LevelStar)

	record, err := RequestHelp(db, sender.Id, "bad-1")
	require.NoError(t, err)

	_, err = ConfirmPayment(db, record.HelpId, sender.Id, 299)
	require.ErrorIs(t, err, ErrInvalidAmount)

	stored := reloadAssignment(t, db, record.HelpId)
	assert.Equal(t, StatusFailed, stored.Status)
	assert.Equal(t, "amount mismatch", stored.FailReason)
	assert.Equal(t, uint(0), reloadMember(t, db, receiver.Id).ActiveReceiveCount)

	// A failed record is terminal, not retried.
	_, err = ConfirmPayment(db, record.HelpId, sender.Id, 300)
	require.ErrorIs(t, err, ErrBadTransition)
}

func TestConfirmPaymentGuards(t *testing.T) {
	db := newTestDb(t)
	sender := seedMember(t, db, LevelStar)
	stranger := seedMember(t, db, LevelStar)
	seedMember(t, db, LevelStar)

	record, err := RequestHelp(db, sender.Id, "guard-1")
	require.NoError(t, err)

	_, err = ConfirmPayment(db, "HLPMISSING0000", sender.Id, 300)
	require.ErrorIs(t, err, ErrNotFound)

	_, err = ConfirmPayment(db, record.HelpId, stranger.Id, 300)
	require.ErrorIs(t, err, ErrNotYours)

	_, err = ConfirmPayment(db, record.HelpId, sender.Id, 300)
	require.NoError(t, err)

	// Double payment confirm.
	_, err = ConfirmPayment(db, record.HelpId, sender.Id, 300)
	require.ErrorIs(t, err, ErrBadTransition)
}

func TestConfirmReceiptGuards(t *testing.T) {
	db := newTestDb(t)
	sender := seedMember(t, db, LevelStar)
	receiver := seedMember(t, db, LevelStar)
	stranger := seedMember(t, db, LevelStar, func(m *Member) { m.HelpVisibility = false })

	record, err := RequestHelp(db, sender.Id, "rcpt-1")
	require.NoError(t, err)

	// Receipt before payment: verification needs the paid state, no timeout
	// or shortcut ever verifies on the receiver's behalf.
	_, err = ConfirmReceipt(db, record.HelpId, receiver.Id)
	require.ErrorIs(t, err, ErrBadTransition)

	_, err = ConfirmPayment(db, record.HelpId, sender.Id, 300)
	require.NoError(t, err)

	_, err = ConfirmReceipt(db, record.HelpId, stranger.Id)
	require.ErrorIs(t, err, ErrNotYours)

	_, err = ConfirmReceipt(db, record.HelpId, receiver.Id)
	require.NoError(t, err)

	// Double receipt.
	_, err = ConfirmReceipt(db, record.HelpId, receiver.Id)
	require.ErrorIs(t, err, ErrBadTransition)
}

func TestConfirmReceiptBlockedWhileReceivingHeld(t *testing.T) {
	db := newTestDb(t)
	admin := seedMember(t, db, LevelStar, func(m *Member) {
		m.Role = "admin"
		m.HelpVisibility = false
	})
	sender := seedMember(t, db, LevelStar)
	receiver := seedMember(t, db, LevelStar)

	record, err := RequestHelp(db, sender.Id, "held-1")
	require.NoError(t, err)
	_, err = ConfirmPayment(db, record.HelpId, sender.Id, 300)
	require.NoError(t, err)

	require.NoError(t, HoldReceiving(db, receiver.Id, "under review"))
	_, err = ConfirmReceipt(db, record.HelpId, receiver.Id)
	require.ErrorIs(t, err, ErrReceivingHeld)
	// The record waits in paid, nothing is lost.
	assert.Equal(t, StatusPaid, reloadAssignment(t, db, record.HelpId).Status)

	require.NoError(t, ResumeBlockedReceives(db, receiver.Id, admin.Id))
	_, err = ConfirmReceipt(db, record.HelpId, receiver.Id)
	require.NoError(t, err)
	assert.Equal(t, StatusVerified, reloadAssignment(t, db, record.HelpId).Status)
}

func TestConfirmReceiptAppliesProgressionInTheSameCall(t *testing.T) {
	db := newTestDb(t)
	sender := seedMember(t, db, LevelStar)
	receiver := seedMember(t, db, LevelStar, func(m *Member) {
		m.VerifiedReceivedCount = MatrixPositions - 1
	})

	record, err := RequestHelp(db, sender.Id, "prog-1")
	require.NoError(t, err)
	require.NotNil(t, record.ReceiverId)
	require.Equal(t, receiver.Id, *record.ReceiverId)

	_, err = ConfirmPayment(db, record.HelpId, sender.Id, 300)
	require.NoError(t, err)
	_, err = ConfirmReceipt(db, record.HelpId, receiver.Id)
	require.NoError(t, err)

	// The ninth verified receive opened the gate atomically with the verify.
	r := reloadMember(t, db, receiver.Id)
	assert.Equal(t, uint(MatrixPositions), r.VerifiedReceivedCount)
	assert.True(t, r.UpgradeEligible)
}

func TestHideAssignment(t *testing.T) {
	db := newTestDb(t)
	admin := seedMember(t, db, LevelStar, func(m *Member) { m.Role = "admin" })
	sender := seedMember(t, db, LevelStar)
	seedMember(t, db, LevelStar)

	record, err := RequestHelp(db, sender.Id, "hide-1")
	require.NoError(t, err)

	require.NoError(t, HideAssignment(db, record.HelpId, admin.Id))
	stored := reloadAssignment(t, db, record.HelpId)
	assert.True(t, stored.Hidden)
	// Hidden is bookkeeping only, the lifecycle state is untouched.
	assert.Equal(t, StatusAssigned, stored.Status)

	// Second hide is a no-op, no duplicate audit entry.
	require.NoError(t, HideAssignment(db, record.HelpId, admin.Id))
	var audits int64
	require.NoError(t, db.Model(&AuditEntry{}).Where("action = ?", AuditHide).Count(&audits).Error)
	assert.Equal(t, int64(1), audits)
}
