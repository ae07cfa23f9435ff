package yield

import (
	"math"

	"github.com/mamadbah2/nogal/internal/domain/models"
)

// Tier classifies a deviation for display.
type Tier string

const (
	TierUnknown Tier = "unknown"
	TierGood    Tier = "good"
	TierWarning Tier = "warning"
	TierBad     Tier = "bad"
)

const (
	warningThreshold = -10.0
	badThreshold     = -30.0
)

// Age returns the plot age in the campaign year.
func Age(m models.Monte, campaignYear int) int {
	return campaignYear - m.PlantingYear
}

// Exists reports whether the plot was planted by the campaign year.
// Callers must skip estimation for plots that do not exist yet.
func Exists(m models.Monte, campaignYear int) bool {
	return campaignYear >= m.PlantingYear
}

// Estimate returns the expected kilograms for the plot in the campaign year:
// kg per tree at the plot's age times the number of trees, rounded half up.
func Estimate(m models.Monte, campaignYear int, curve []models.YieldCurvePoint) int64 {
	kgPerTree := ForAge(curve, Age(m, campaignYear))
	return round(kgPerTree * m.Trees())
}

// Deviation returns the percentage difference of actual against estimated
// production. ok is false when the estimate is zero and no comparison exists.
func Deviation(actual, estimated float64) (pct float64, ok bool) {
	if estimated == 0 {
		return 0, false
	}
	return ((actual - estimated) / estimated) * 100, true
}

// DeviationPtr is Deviation for JSON views, where nil means "no comparison".
func DeviationPtr(actual, estimated float64) *float64 {
	pct, ok := Deviation(actual, estimated)
	if !ok {
		return nil
	}
	return &pct
}

// Classify maps a deviation to its tier. Only under-performance is penalized:
// any deviation at or above -10% is good, however large.
func Classify(pct float64, ok bool) Tier {
	switch {
	case !ok:
		return TierUnknown
	case pct >= warningThreshold:
		return TierGood
	case pct >= badThreshold:
		return TierWarning
	default:
		return TierBad
	}
}

// ClassifyPtr is Classify for a nullable deviation.
func ClassifyPtr(pct *float64) Tier {
	if pct == nil {
		return TierUnknown
	}
	return Classify(*pct, true)
}

// round rounds half up, matching the dashboard's rounding of positive figures.
func round(x float64) int64 {
	return int64(math.Floor(x + 0.5))
}
