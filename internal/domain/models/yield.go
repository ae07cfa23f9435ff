package models

import (
	"encoding/json"
	"fmt"
)

// YieldCurvePoint is the expected kilograms of one tree at a given age in years.
type YieldCurvePoint struct {
	Age int     `json:"age"`
	Kg  float64 `json:"kg"`
}

// YieldModel attaches a yield curve to a project. Upstream stores the curve as
// a JSON-encoded list in Data.
type YieldModel struct {
	ID        string            `json:"id"`
	ProjectID string            `json:"project_id"`
	Variety   string            `json:"variety"`
	Curve     []YieldCurvePoint `json:"curve"`
}

// EncodeCurve serializes a curve into the upstream `data` field format.
func EncodeCurve(curve []YieldCurvePoint) (string, error) {
	if curve == nil {
		curve = []YieldCurvePoint{}
	}
	raw, err := json.Marshal(curve)
	if err != nil {
		return "", fmt.Errorf("encode yield curve: %w", err)
	}
	return string(raw), nil
}

// DecodeCurve parses the upstream `data` field. An empty string is an empty curve.
func DecodeCurve(data string) ([]YieldCurvePoint, error) {
	if data == "" {
		return nil, nil
	}
	var curve []YieldCurvePoint
	if err := json.Unmarshal([]byte(data), &curve); err != nil {
		return nil, fmt.Errorf("decode yield curve: %w", err)
	}
	return curve, nil
}
