package vendors

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestComputeSplit(t *testing.T) {
	cases := []struct {
		name       string
		gross      float64
		rate       float64
		commission float64
		payable    float64
	}{
		{"default rate", 200, 0.10, 20, 180},
		{"fifteen percent", 1000, 0.15, 150, 850},
		{"zero gross", 0, 0.10, 0, 0},
		{"zero rate", 500, 0, 0, 500},
		{"full rate", 99.99, 1, 99.99, 0},
		{"rounds to cents", 10.01, 0.333, 3.33, 6.68},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			split, err := ComputeSplit(tc.gross, tc.rate)
			require.NoError(t, err)
			require.InDelta(t, tc.commission, split.CommissionAmount, 1e-9)
			require.InDelta(t, tc.payable, split.NetPayable, 1e-9)
		})
	}
}

func TestComputeSplitConservesGross(t *testing.T) {
	grosses := []float64{0, 0.01, 1, 19.99, 123.45, 10000, 99999.99}
	rates := []float64{0, 0.05, 0.10, 0.125, 0.333, 0.5, 1}
	for _, g := range grosses {
		for _, r := range rates {
			split, err := ComputeSplit(g, r)
			require.NoError(t, err)
			require.InDelta(t, Round2(g), split.CommissionAmount+split.NetPayable, 1e-4)
			require.InDelta(t, Round2(g*r), split.CommissionAmount, 1e-9)
		}
	}
}

func TestComputeSplitRejectsInvalidInput(t *testing.T) {
	for _, tc := range []struct {
		gross float64
		rate  float64
	}{
		{-1, 0.10},
		{math.NaN(), 0.10},
		{math.Inf(1), 0.10},
		{100, -0.01},
		{100, 1.01},
		{100, math.NaN()},
	} {
		_, err := ComputeSplit(tc.gross, tc.rate)
		require.ErrorIs(t, err, ErrInvalidAmount)
	}
}
