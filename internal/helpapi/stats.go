package helpapi

import (
	"gorm.io/gorm"
)

// LevelDiagnostics is the per-level slice of the read-only operability
// surface: how many members could receive right now and, for everyone else,
// which predicate excluded them. An empty pool with a heavy breakdown is a
// capacity problem; an empty pool with zero members at the level is a data
// problem.
type LevelDiagnostics struct {
	Level    Level            `json:"level"`
	Members  int64            `json:"members"`
	Eligible int64            `json:"eligible"`
	Excluded map[string]int64 `json:"excluded"`
}

// EligibilitySnapshot re-evaluates every receive predicate independently for
// each member, mirroring what the selector would see with no sender excluded.
func EligibilitySnapshot(db *gorm.DB) ([]LevelDiagnostics, error) {
	out := make([]LevelDiagnostics, 0, len(LevelOrder))
	for _, level := range LevelOrder {
		diag := LevelDiagnostics{Level: level, Excluded: map[string]int64{}}
		var members []Member
		res := db.Where("level = ?", level).Find(&members)
		if res.Error != nil {
			return nil, res.Error
		}
		diag.Members = int64(len(members))
		for i := range members {
			reason := ReceiveExclusion(&members[i], level, 0)
			if reason == "" {
				diag.Eligible++
				continue
			}
			diag.Excluded[reason]++
		}
		out = append(out, diag)
	}
	return out, nil
}

// ReferralStats summarizes a member's direct downline.
type ReferralStats struct {
	TotalCounter     uint `json:"total_counter"`
	ActivatedCounter uint `json:"activated_counter"`
}

func GetReferralStats(db *gorm.DB, member Member) (refStats ReferralStats) {
	var downline []Member
	res := db.Where("sponsor_id = ?", member.Id).Find(&downline)
	if res.RowsAffected > 0 {
		for _, ref := range downline {
			refStats.TotalCounter++
			if ref.IsActivated {
				refStats.ActivatedCounter++
			}
		}
	}
	return refStats
}
