package helpapi

import (
	"fmt"

	"gorm.io/gorm"
)

// EvaluateProgression re-reads the member after a verified receive and, when
// the matrix is full, opens the upgrade gate. The member stays at the current
// level and keeps full send/receive rights until the separate upgrade payment
// verifies; only reaching MatrixPositions triggers eligibility, nothing else.
// Terminal-level members go to the explicit completed sub-state instead.
func EvaluateProgression(db *gorm.DB, memberId uint) error {
	var member Member
	res := db.Where("id = ?", memberId).First(&member)
	if res.RowsAffected != 1 {
		return ErrNotFound
	}
	if member.VerifiedReceivedCount < MatrixPositions {
		return nil
	}
	if member.Level.Terminal() {
		if member.MatrixComplete {
			return nil
		}
		fmt.Println("[Progression] member", member.Id, "completed the terminal matrix")
		return db.Model(&Member{}).
			Where("id = ? AND matrix_complete = ?", member.Id, false).
			Update("matrix_complete", true).Error
	}
	if member.UpgradeEligible {
		return nil
	}
	fmt.Println("[Progression] member", member.Id, "matrix complete at", member.Level,
		"upgrade cost", member.Level.Config().UpgradeCost)
	return db.Model(&Member{}).
		Where("id = ? AND upgrade_eligible = ?", member.Id, false).
		Update("upgrade_eligible", true).Error
}

// ApplyUpgradePayment advances the member after their upgrade payment
// verified: level moves to the next tier, the received counter resets for the
// new matrix and the upgrade gate closes. Conditional on the level recorded
// on the payment so a replay cannot double-advance. The reset also absorbs
// any receives collected past MatrixPositions while the gate was open.
func ApplyUpgradePayment(db *gorm.DB, memberId uint, fromLevel Level) error {
	next := fromLevel.Config().Next
	if next == "" {
		return ErrUpgradeNotOpen
	}
	res := db.Model(&Member{}).
		Where("id = ? AND level = ?", memberId, fromLevel).
		Updates(map[string]interface{}{
			"level":                   next,
			"verified_received_count": 0,
			"upgrade_eligible":        false,
			"matrix_complete":         false,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 1 {
		fmt.Println("[Progression] member", memberId, "advanced", fromLevel, "->", next)
	}
	return nil
}

// RequiredUpgradeCost surfaces the open upgrade obligation, 0 when none.
func RequiredUpgradeCost(member *Member) int64 {
	if !member.UpgradeEligible || member.Level.Terminal() {
		return 0
	}
	return member.Level.Config().UpgradeCost
}
