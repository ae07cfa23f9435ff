// Package yield implements the production estimation engine: yield curve
// lookup, per-plot estimates, deviation tiers and area-weighted allocation of
// bulk harvests. Every function is pure and cheap enough to call on each render.
package yield

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/mamadbah2/nogal/internal/domain/models"
)

// DefaultCurveRows is the number of rows of a freshly created curve.
const DefaultCurveRows = 20

// ErrInvalidCurve indicates a curve that cannot be saved.
var ErrInvalidCurve = errors.New("invalid yield curve")

// ForAge returns the expected kilograms per tree at the given age.
//
// An exact entry wins. Past the last entry the curve stays flat at the
// max-age value. Ages of zero or less, and gaps inside the curve, yield 0;
// there is no interpolation between points.
func ForAge(curve []models.YieldCurvePoint, age int) float64 {
	if len(curve) == 0 {
		return 0
	}

	for _, p := range curve {
		if p.Age == age {
			return p.Kg
		}
	}

	last := curve[0]
	for _, p := range curve[1:] {
		if p.Age > last.Age {
			last = p
		}
	}
	if age > last.Age {
		return last.Kg
	}

	return 0
}

// DefaultCurve returns the form's initial curve: ages 1..20 at 0 kg.
func DefaultCurve() []models.YieldCurvePoint {
	curve := make([]models.YieldCurvePoint, DefaultCurveRows)
	for i := range curve {
		curve[i] = models.YieldCurvePoint{Age: i + 1}
	}
	return curve
}

// MaxAge returns the highest age in the curve, or 0 for an empty curve.
func MaxAge(curve []models.YieldCurvePoint) int {
	maxAge := 0
	for i, p := range curve {
		if i == 0 || p.Age > maxAge {
			maxAge = p.Age
		}
	}
	return maxAge
}

// AppendAge returns a copy of the curve with a new row one year past the
// current maximum age.
func AppendAge(curve []models.YieldCurvePoint, kg float64) []models.YieldCurvePoint {
	next := 1
	if len(curve) > 0 {
		next = MaxAge(curve) + 1
	}
	out := make([]models.YieldCurvePoint, 0, len(curve)+1)
	out = append(out, curve...)
	return append(out, models.YieldCurvePoint{Age: next, Kg: kg})
}

// Normalize returns a copy of the curve sorted by ascending age.
func Normalize(curve []models.YieldCurvePoint) []models.YieldCurvePoint {
	out := make([]models.YieldCurvePoint, len(curve))
	copy(out, curve)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Age < out[j].Age })
	return out
}

// Validate checks that ages are non-negative and unique and that every kg
// value is a finite non-negative number.
func Validate(curve []models.YieldCurvePoint) error {
	seen := make(map[int]struct{}, len(curve))
	for _, p := range curve {
		if p.Age < 0 {
			return fmt.Errorf("%w: negative age %d", ErrInvalidCurve, p.Age)
		}
		if _, dup := seen[p.Age]; dup {
			return fmt.Errorf("%w: duplicate age %d", ErrInvalidCurve, p.Age)
		}
		seen[p.Age] = struct{}{}

		if p.Kg < 0 || math.IsNaN(p.Kg) || math.IsInf(p.Kg, 0) {
			return fmt.Errorf("%w: age %d has kg %v", ErrInvalidCurve, p.Age, p.Kg)
		}
	}
	return nil
}
