package helpapi

import (
	"errors"
	"fmt"

	"github.com/dchest/uniuri"
	"gorm.io/gorm"
)

func newHelpId() string {
	return "HLP" + uniuri.NewLen(12)
}

// RequestHelp creates a pending help record for the sender and synchronously
// attempts assignment. On NO_ELIGIBLE_RECEIVER the record stays pending with
// a nil receiver; the reconciler picks it up on its next pass, so the error
// is returned together with the record.
// idemKey makes retries safe: a replay with the same key returns the record
// created by the first call.
func RequestHelp(db *gorm.DB, senderId uint, idemKey string) (*Assignment, error) {
	return requestAssignment(db, senderId, idemKey, KindHelp)
}

// RequestUpgrade creates the separate upgrade-payment record required to
// advance a level. Only open to members whose matrix is complete
// (UpgradeEligible); the receiver is matched from the next level's pool.
func RequestUpgrade(db *gorm.DB, senderId uint, idemKey string) (*Assignment, error) {
	return requestAssignment(db, senderId, idemKey, KindUpgrade)
}

func requestAssignment(db *gorm.DB, senderId uint, idemKey string, kind string) (*Assignment, error) {
	var sender Member
	res := db.Where("id = ?", senderId).First(&sender)
	if res.RowsAffected != 1 {
		return nil, ErrNotFound
	}
	if err := SendVeto(&sender); err != nil {
		return nil, err
	}
	if kind == KindUpgrade {
		if !sender.UpgradeEligible || sender.Level.Terminal() {
			return nil, ErrUpgradeNotOpen
		}
	}

	if idemKey != "" {
		var idem HelpIdempotency
		res = db.Where("sender_id = ? AND key = ?", senderId, idemKey).First(&idem)
		if res.RowsAffected == 1 {
			var existing Assignment
			res = db.Where("help_id = ?", idem.HelpId).First(&existing)
			if res.RowsAffected == 1 {
				fmt.Println("[RequestHelp] idempotency hit", idem.HelpId)
				return &existing, nil
			}
		}
	}

	// One active send per member at a time, same as the original plan. The
	// count is a fast path for a clean error; the partial unique index on
	// sender_id enforces the rule against concurrent requests.
	var activeCount int64
	res = db.Model(&Assignment{}).
		Where("sender_id = ? AND status IN ?", senderId, ActiveStatuses).
		Count(&activeCount)
	if res.Error != nil {
		return nil, res.Error
	}
	if activeCount > 0 {
		return nil, ErrAlreadyActive
	}

	record := Assignment{
		HelpId:   newHelpId(),
		Kind:     kind,
		SenderId: senderId,
		Level:    sender.Level,
		Status:   StatusPending,
	}
	record.Amount = record.ExpectedAmount()

	tx := db.Begin()
	if tx.Error != nil {
		return nil, tx.Error
	}
	defer func() {
		tx.Rollback()
	}()
	if err := tx.Create(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrAlreadyActive
		}
		return nil, err
	}
	if idemKey != "" {
		if err := tx.Create(&HelpIdempotency{
			SenderId: senderId,
			Key:      idemKey,
			HelpId:   record.HelpId,
		}).Error; err != nil {
			return nil, err
		}
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	if _, err := AssignReceiver(db, &record); err != nil {
		return &record, err
	}
	return &record, nil
}
