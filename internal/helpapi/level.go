package helpapi

// Level is the closed set of plan tiers. Persisted as a string so the
// stored value stays readable in the DB and in audit dumps.
type Level string

const (
	LevelStar     Level = "Star"
	LevelSilver   Level = "Silver"
	LevelGold     Level = "Gold"
	LevelPlatinum Level = "Platinum"
	LevelDiamond  Level = "Diamond"
)

// MatrixPositions is the fixed 3x3 matrix size shared by every level.
const MatrixPositions = 9

// LevelConfig carries the immutable money parameters of one level.
// HelpAmount and UpgradeCost must match exactly on every transaction,
// no partial or rounded amounts are ever accepted.
type LevelConfig struct {
	ActivationFee int64
	HelpAmount    int64
	UpgradeCost   int64 // 0 on the terminal level
	Next          Level // "" on the terminal level
}

var levelConfigs = map[Level]LevelConfig{
	LevelStar:     {ActivationFee: 300, HelpAmount: 300, UpgradeCost: 600, Next: LevelSilver},
	LevelSilver:   {ActivationFee: 600, HelpAmount: 600, UpgradeCost: 1800, Next: LevelGold},
	LevelGold:     {ActivationFee: 2000, HelpAmount: 2000, UpgradeCost: 20000, Next: LevelPlatinum},
	LevelPlatinum: {ActivationFee: 20000, HelpAmount: 20000, UpgradeCost: 200000, Next: LevelDiamond},
	LevelDiamond:  {ActivationFee: 200000, HelpAmount: 200000},
}

var LevelOrder = []Level{LevelStar, LevelSilver, LevelGold, LevelPlatinum, LevelDiamond}

func (l Level) Valid() bool {
	_, ok := levelConfigs[l]
	return ok
}

func (l Level) Config() LevelConfig {
	return levelConfigs[l]
}

// TotalEarning is the full matrix payout at this level.
func (l Level) TotalEarning() int64 {
	return int64(MatrixPositions) * levelConfigs[l].HelpAmount
}

func (l Level) Terminal() bool {
	return levelConfigs[l].Next == ""
}

// NormalizeLevel maps legacy numeric level values (1..5) and empty strings
// onto the enum. Unknown input falls back to Star, same as the historical data.
func NormalizeLevel(raw string) Level {
	switch raw {
	case "", "1":
		return LevelStar
	case "2":
		return LevelSilver
	case "3":
		return LevelGold
	case "4":
		return LevelPlatinum
	case "5":
		return LevelDiamond
	}
	if Level(raw).Valid() {
		return Level(raw)
	}
	return LevelStar
}
