package helpapi

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEligibilitySnapshot(t *testing.T) {
	db := newTestDb(t)
	seedMember(t, db, LevelStar)
	seedMember(t, db, LevelStar, func(m *Member) { m.HelpVisibility = false })
	seedMember(t, db, LevelStar, func(m *Member) { m.IsBlocked = true })
	seedMember(t, db, LevelSilver, func(m *Member) { m.ActiveReceiveCount = 1 })

	snapshot, err := EligibilitySnapshot(db)
	require.NoError(t, err)
	require.Len(t, snapshot, len(LevelOrder))

	byLevel := map[Level]LevelDiagnostics{}
	for _, d := range snapshot {
		byLevel[d.Level] = d
	}
	star := byLevel[LevelStar]
	assert.Equal(t, int64(3), star.Members)
	assert.Equal(t, int64(1), star.Eligible)
	assert.Equal(t, int64(1), star.Excluded[ReasonVisibilityOff])
	assert.Equal(t, int64(1), star.Excluded[ReasonBlocked])

	silver := byLevel[LevelSilver]
	assert.Equal(t, int64(1), silver.Members)
	assert.Equal(t, int64(0), silver.Eligible)
	assert.Equal(t, int64(1), silver.Excluded[ReasonSlotOccupied])

	assert.Equal(t, int64(0), byLevel[LevelDiamond].Members)
}

func TestGetReferralStats(t *testing.T) {
	db := newTestDb(t)
	sponsor := seedMember(t, db, LevelStar)
	seedMember(t, db, LevelStar, func(m *Member) { m.SponsorId = sponsor.Id })
	seedMember(t, db, LevelStar, func(m *Member) {
		m.SponsorId = sponsor.Id
		m.IsActivated = false
	})

	stats := GetReferralStats(db, *sponsor)
	assert.Equal(t, uint(2), stats.TotalCounter)
	assert.Equal(t, uint(1), stats.ActivatedCounter)
}

func TestSyncMemberStatsFrame(t *testing.T) {
	db := newTestDb(t)
	member := seedMember(t, db, LevelGold, func(m *Member) { m.VerifiedReceivedCount = 4 })

	raw := SyncMemberStats(db, *member)
	require.NotNil(t, raw)

	var frame WsResponseData
	require.NoError(t, json.Unmarshal(raw, &frame))
	assert.Equal(t, MessageTargetSync, frame.Target)
	assert.Equal(t, member.MemberId, frame.Member.MemberId)
	assert.Equal(t, LevelGold, frame.Member.Level)
	assert.Equal(t, uint(4), frame.Member.Received)
}
