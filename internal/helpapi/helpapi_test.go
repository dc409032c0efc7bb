package helpapi

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var memberSeq int

// newTestDb opens an in-memory database restricted to a single connection so
// transactions and plain queries share one view of the data.
func newTestDb(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	sqlDb, err := db.DB()
	require.NoError(t, err)
	sqlDb.SetMaxOpenConns(1)
	require.NoError(t, Migrate(db))
	return db
}

func seedMember(t *testing.T, db *gorm.DB, level Level, mut ...func(*Member)) *Member {
	t.Helper()
	memberSeq++
	m := &Member{
		MemberId:       fmt.Sprintf("HHTEST%04d", memberSeq),
		Email:          fmt.Sprintf("member%d@example.com", memberSeq),
		Role:           "member",
		Level:          level,
		IsActivated:    true,
		HelpVisibility: true,
	}
	for _, f := range mut {
		f(m)
	}
	require.NoError(t, db.Create(m).Error)
	return m
}

func reloadMember(t *testing.T, db *gorm.DB, id uint) *Member {
	t.Helper()
	var m Member
	require.NoError(t, db.Where("id = ?", id).First(&m).Error)
	return &m
}

func reloadAssignment(t *testing.T, db *gorm.DB, helpId string) *Assignment {
	t.Helper()
	var a Assignment
	require.NoError(t, db.Where("help_id = ?", helpId).First(&a).Error)
	return &a
}

func seedPendingHelp(t *testing.T, db *gorm.DB, sender *Member) *Assignment {
	t.Helper()
	record := &Assignment{
		HelpId:   newHelpId(),
		Kind:     KindHelp,
		SenderId: sender.Id,
		Level:    sender.Level,
		Status:   StatusPending,
	}
	record.Amount = record.ExpectedAmount()
	require.NoError(t, db.Create(record).Error)
	return record
}
