package helpapi

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestRequestHelpHappyPath(t *testing.T) {
	db := newTestDb(t)
	sender := seedMember(t, db, LevelStar)
	receiver := seedMember(t, db, LevelStar)

	record, err := RequestHelp(db, sender.Id, "key-1")
	require.NoError(t, err)
	assert.Equal(t, KindHelp, record.Kind)
	assert.Equal(t, LevelStar, record.Level)
	assert.Equal(t, int64(300), record.Amount)
	assert.Equal(t, StatusAssigned, record.Status)
	require.NotNil(t, record.ReceiverId)
	assert.Equal(t, receiver.Id, *record.ReceiverId)
}

func TestRequestHelpIdempotentReplay(t *testing.T) {
	db := newTestDb(t)
	sender := seedMember(t, db, LevelStar)
	seedMember(t, db, LevelStar)

	first, err := RequestHelp(db, sender.Id, "retry-key")
	require.NoError(t, err)
	replay, err := RequestHelp(db, sender.Id, "retry-key")
	require.NoError(t, err)
	assert.Equal(t, first.HelpId, replay.HelpId)

	var count int64
	require.NoError(t, db.Model(&Assignment{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestRequestHelpOneActiveSendAtATime(t *testing.T) {
	db := newTestDb(t)
	sender := seedMember(t, db, LevelStar)
	seedMember(t, db, LevelStar)
	seedMember(t, db, LevelStar)

	_, err := RequestHelp(db, sender.Id, "key-a")
	require.NoError(t, err)
	_, err = RequestHelp(db, sender.Id, "key-b")
	require.ErrorIs(t, err, ErrAlreadyActive)
}

func TestActiveSendBackedBySchemaConstraint(t *testing.T) {
	db := newTestDb(t)
	sender := seedMember(t, db, LevelStar)
	seedMember(t, db, LevelStar)

	record, err := RequestHelp(db, sender.Id, "con-1")
	require.NoError(t, err)

	// A concurrent request that raced past the count check still dies on the
	// partial unique index.
	dup := Assignment{
		HelpId:   newHelpId(),
		Kind:     KindHelp,
		SenderId: sender.Id,
		Level:    LevelStar,
		Status:   StatusPending,
	}
	dup.Amount = dup.ExpectedAmount()
	require.ErrorIs(t, db.Create(&dup).Error, gorm.ErrDuplicatedKey)

	// Terminal records do not occupy the slot.
	_, err = ConfirmPayment(db, record.HelpId, sender.Id, 299)
	require.ErrorIs(t, err, ErrInvalidAmount)
	next, err := RequestHelp(db, sender.Id, "con-2")
	require.NoError(t, err)
	assert.Equal(t, StatusAssigned, next.Status)
}

func TestRequestHelpEmptyPoolStaysQueued(t *testing.T) {
	db := newTestDb(t)
	sender := seedMember(t, db, LevelStar)

	record, err := RequestHelp(db, sender.Id, "key-q")
	require.ErrorIs(t, err, ErrNoEligibleReceiver)
	require.NotNil(t, record)
	assert.Equal(t, StatusPending, record.Status)
	assert.Nil(t, record.ReceiverId)

	// The queued record counts as the one active send.
	_, err = RequestHelp(db, sender.Id, "key-q2")
	require.ErrorIs(t, err, ErrAlreadyActive)
}

func TestRequestHelpSenderVetoes(t *testing.T) {
	db := newTestDb(t)
	seedMember(t, db, LevelStar)

	blocked := seedMember(t, db, LevelStar, func(m *Member) { m.IsBlocked = true })
	_, err := RequestHelp(db, blocked.Id, "k1")
	require.ErrorIs(t, err, ErrBlockedAccount)

	inactive := seedMember(t, db, LevelStar, func(m *Member) { m.IsActivated = false })
	_, err = RequestHelp(db, inactive.Id, "k2")
	require.ErrorIs(t, err, ErrBlockedAccount)

	held := seedMember(t, db, LevelStar, func(m *Member) { m.IsOnHold = true })
	_, err = RequestHelp(db, held.Id, "k3")
	require.ErrorIs(t, err, ErrOnHold)

	_, err = RequestHelp(db, 99999, "k4")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestRequestUpgradeGate(t *testing.T) {
	db := newTestDb(t)
	notReady := seedMember(t, db, LevelStar)
	_, err := RequestUpgrade(db, notReady.Id, "u1")
	require.ErrorIs(t, err, ErrUpgradeNotOpen)

	// Terminal level has nowhere to upgrade to, eligible or not.
	diamond := seedMember(t, db, LevelDiamond, func(m *Member) { m.UpgradeEligible = true })
	_, err = RequestUpgrade(db, diamond.Id, "u2")
	require.ErrorIs(t, err, ErrUpgradeNotOpen)
}

func TestRequestUpgradeMatchesNextLevelPool(t *testing.T) {
	db := newTestDb(t)
	sender := seedMember(t, db, LevelStar, func(m *Member) {
		m.UpgradeEligible = true
		m.VerifiedReceivedCount = MatrixPositions
	})
	seedMember(t, db, LevelStar) // same-level member must not be picked
	silver := seedMember(t, db, LevelSilver)

	record, err := RequestUpgrade(db, sender.Id, "u3")
	require.NoError(t, err)
	assert.Equal(t, KindUpgrade, record.Kind)
	assert.Equal(t, LevelStar, record.Level)
	assert.Equal(t, int64(600), record.Amount)
	require.NotNil(t, record.ReceiverId)
	assert.Equal(t, silver.Id, *record.ReceiverId)
}
