package helpapi

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func eligibleCandidate() *Member {
	return &Member{
		Id:             2,
		Level:          LevelStar,
		IsActivated:    true,
		HelpVisibility: true,
	}
}

func TestReceiveExclusion(t *testing.T) {
	cases := []struct {
		name   string
		mut    func(*Member)
		reason string
	}{
		{"eligible", func(m *Member) {}, ""},
		{"same as sender", func(m *Member) { m.Id = 1 }, ReasonSameAsSender},
		{"wrong level", func(m *Member) { m.Level = LevelGold }, ReasonWrongLevel},
		{"not activated", func(m *Member) { m.IsActivated = false }, ReasonNotActivated},
		{"visibility off", func(m *Member) { m.HelpVisibility = false }, ReasonVisibilityOff},
		{"blocked", func(m *Member) { m.IsBlocked = true }, ReasonBlocked},
		{"receiving held", func(m *Member) { m.IsReceivingHeld = true }, ReasonReceivingHeld},
		{"matrix complete", func(m *Member) { m.MatrixComplete = true }, ReasonMatrixComplete},
		{"slot occupied", func(m *Member) { m.ActiveReceiveCount = 1 }, ReasonSlotOccupied},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			m := eligibleCandidate()
			c.mut(m)
			assert.Equal(t, c.reason, ReceiveExclusion(m, LevelStar, 1))
			assert.Equal(t, c.reason == "", IsEligibleReceiver(m, LevelStar, 1))
		})
	}
}

func TestReceiveExclusionPrecedence(t *testing.T) {
	// A sender-candidate with every other problem still reports same_as_sender.
	m := eligibleCandidate()
	m.Id = 1
	m.IsBlocked = true
	m.ActiveReceiveCount = 1
	assert.Equal(t, ReasonSameAsSender, ReceiveExclusion(m, LevelStar, 1))
}

func TestSendVeto(t *testing.T) {
	ok := &Member{IsActivated: true}
	assert.NoError(t, SendVeto(ok))

	blocked := &Member{IsActivated: true, IsBlocked: true}
	assert.ErrorIs(t, SendVeto(blocked), ErrBlockedAccount)

	inactive := &Member{}
	assert.ErrorIs(t, SendVeto(inactive), ErrBlockedAccount)

	held := &Member{IsActivated: true, IsOnHold: true}
	assert.ErrorIs(t, SendVeto(held), ErrOnHold)

	// A receive-side hold does not stop sending.
	recvHeld := &Member{IsActivated: true, IsReceivingHeld: true}
	assert.NoError(t, SendVeto(recvHeld))
}
