package decimalx

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestSlope(t *testing.T) {
	testCases := []struct {
		name string
		ds   []decimal.Decimal
		want float64
	}{
		{
			name: "linear up",
			ds:   FromFloats([]float64{1, 2, 3, 4}),
			want: 1.0 / 3,
		},
		{
			name: "big num",
			ds:   FromFloats([]float64{100, 200, 300}),
			want: 0.5,
		},
		{
			name: "linear down",
			ds:   FromFloats([]float64{5, 4, 3, 2, 1}),
			want: -0.25,
		},
		{
			name: "flat",
			ds:   FromFloats([]float64{7, 7, 7}),
			want: 0,
		},
		{
			name: "single",
			ds:   FromFloats([]float64{7}),
			want: 0,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.InDelta(t, tc.want, Slope(tc.ds).InexactFloat64(), 1e-9)
		})
	}
}

func TestClamp(t *testing.T) {
	lo, hi := decimal.Zero, decimal.NewFromFloat(0.7)
	assert.True(t, Clamp(decimal.NewFromFloat(1.5), lo, hi).Equal(hi))
	assert.True(t, Clamp(decimal.NewFromFloat(-1), lo, hi).Equal(lo))
	assert.True(t, Clamp(decimal.NewFromFloat(0.3), lo, hi).Equal(decimal.NewFromFloat(0.3)))
	assert.Panics(t, func() { MustFromString("x") })
}
