package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAmount_LenientDecoding(t *testing.T) {
	tests := []struct {
		name string
		body string
		want Amount
	}{
		{name: "number", body: `{"amount": 1250.5}`, want: 1250.5},
		{name: "numeric string", body: `{"amount": "12.5"}`, want: 12.5},
		{name: "garbage string", body: `{"amount": "n/a"}`, want: 0},
		{name: "null", body: `{"amount": null}`, want: 0},
		{name: "missing", body: `{}`, want: 0},
		{name: "bool", body: `{"amount": true}`, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var cost Cost
			require.NoError(t, json.Unmarshal([]byte(tt.body), &cost))
			require.Equal(t, tt.want, cost.Amount)
		})
	}
}

func TestCurveEncoding(t *testing.T) {
	data, err := EncodeCurve([]YieldCurvePoint{{Age: 1, Kg: 0.5}, {Age: 10, Kg: 8}})
	require.NoError(t, err)
	require.JSONEq(t, `[{"age":1,"kg":0.5},{"age":10,"kg":8}]`, data)

	curve, err := DecodeCurve(data)
	require.NoError(t, err)
	require.Len(t, curve, 2)
	require.Equal(t, 8.0, curve[1].Kg)

	empty, err := EncodeCurve(nil)
	require.NoError(t, err)
	require.Equal(t, "[]", empty)

	curve, err = DecodeCurve("")
	require.NoError(t, err)
	require.Empty(t, curve)

	_, err = DecodeCurve("{broken")
	require.Error(t, err)
}

func TestMonteTrees(t *testing.T) {
	m := Monte{Hectares: 5, Density: 100}
	require.Equal(t, 500.0, m.Trees())
}
