package vendors

import "math"

// Split is the division of vendor-sourced gross sales into the company's
// retained commission and the net amount payable to the vendor.
type Split struct {
	CommissionAmount float64
	NetPayable       float64
}

// ComputeSplit calculates the commission split for a gross sales amount.
// Amounts are rounded to cents; commission + net payable always equals the
// rounded gross.
func ComputeSplit(gross, rate float64) (Split, error) {
	if math.IsNaN(gross) || math.IsInf(gross, 0) || gross < 0 {
		return Split{}, ErrInvalidAmount
	}
	if math.IsNaN(rate) || rate < 0 || rate > 1 {
		return Split{}, ErrInvalidAmount
	}
	commission := Round2(gross * rate)
	return Split{
		CommissionAmount: commission,
		NetPayable:       Round2(gross - commission),
	}, nil
}

// Round2 rounds a monetary amount to two decimal places.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
