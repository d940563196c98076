// Package calibrate transforms a run's raw final scores into presentation
// scores. Calibration never changes rank order within a run; it only
// compresses or stretches the numeric range final_raw is shown in.
package calibrate

import (
	"math"

	"github.com/opportumatch/matcher/pkg/matcher/types"
)

// minMaxEpsilon is the tolerance below which max and min are treated as
// equal for relative_minmax, to avoid dividing by a near-zero spread.
const minMaxEpsilon = 1e-9

// Calibrate maps every result's Scores.FinalRaw to Scores.FinalCal in
// place, according to strategy. Results is mutated and returned for
// chaining convenience.
func Calibrate(results []types.RankedResult, strategy types.CalibrationStrategy) []types.RankedResult {
	switch strategy {
	case types.CalibrationRelativeMinMax:
		applyRelativeMinMax(results)
	case types.CalibrationAffineFloor:
		for i := range results {
			results[i].Scores.FinalCal = affineFloor(results[i].Scores.FinalRaw)
		}
	case types.CalibrationSigmoid:
		for i := range results {
			results[i].Scores.FinalCal = sigmoidCalibration(results[i].Scores.FinalRaw)
		}
	default:
		for i := range results {
			results[i].Scores.FinalCal = results[i].Scores.FinalRaw
		}
	}
	return results
}

func applyRelativeMinMax(results []types.RankedResult) {
	if len(results) == 0 {
		return
	}
	min, max := results[0].Scores.FinalRaw, results[0].Scores.FinalRaw
	for _, r := range results[1:] {
		if r.Scores.FinalRaw < min {
			min = r.Scores.FinalRaw
		}
		if r.Scores.FinalRaw > max {
			max = r.Scores.FinalRaw
		}
	}
	if max-min < minMaxEpsilon {
		for i := range results {
			results[i].Scores.FinalCal = 0.55
		}
		return
	}
	for i := range results {
		frac := (results[i].Scores.FinalRaw - min) / (max - min)
		results[i].Scores.FinalCal = 0.40 + 0.45*frac
	}
}

func affineFloor(v float64) float64 {
	return 0.6 + 0.4*clamp01(v)
}

func sigmoidCalibration(v float64) float64 {
	return 0.65 + 0.30*sigmoid(6*(v-0.5))
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
