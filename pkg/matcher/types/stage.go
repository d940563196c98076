package types

// StageLadder is the closed, ordered list of startup maturity stages used
// for stage-gap comparisons. Index position is the stage's numeric rank.
var StageLadder = []string{
	"فكرة",
	"MVP",
	"إطلاق",
	"تشغيل",
	"نمو مبكر",
	"نمو",
	"توسع",
}

// StageIndex returns the position of stage in StageLadder, or -1 if stage
// is not a recognized rung.
func StageIndex(stage string) int {
	for i, s := range StageLadder {
		if s == stage {
			return i
		}
	}
	return -1
}

// IsValidStage reports whether stage is a member of StageLadder.
func IsValidStage(stage string) bool {
	return StageIndex(stage) >= 0
}
