package vendors

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

type memoryVendorRepo struct {
	vendors map[int64]Vendor
}

func (r *memoryVendorRepo) GetVendor(ctx context.Context, id int64) (Vendor, error) {
	v, ok := r.vendors[id]
	if !ok {
		return Vendor{}, ErrVendorNotFound
	}
	return v, nil
}

func (r *memoryVendorRepo) ListVendors(ctx context.Context) ([]Vendor, error) {
	out := make([]Vendor, 0, len(r.vendors))
	for _, v := range r.vendors {
		out = append(out, v)
	}
	return out, nil
}

func (r *memoryVendorRepo) UpdateVendorTerms(ctx context.Context, id int64, in UpdateVendorInput) (Vendor, error) {
	v, ok := r.vendors[id]
	if !ok {
		return Vendor{}, ErrVendorNotFound
	}
	if in.CommissionRate != nil {
		v.CommissionRate = *in.CommissionRate
	}
	if in.MonthlyFee != nil {
		v.MonthlyFee = *in.MonthlyFee
	}
	r.vendors[id] = v
	return v, nil
}

func TestUpdateTermsValidatesInput(t *testing.T) {
	repo := &memoryVendorRepo{vendors: map[int64]Vendor{
		1: {ID: 1, Name: "Acme", CommissionRate: 0.10, MonthlyFee: 20},
	}}
	svc := NewService(repo)

	rate := 0.25
	v, err := svc.UpdateTerms(context.Background(), 1, UpdateVendorInput{CommissionRate: &rate})
	require.NoError(t, err)
	require.InDelta(t, 0.25, v.CommissionRate, 1e-9)
	require.InDelta(t, 20, v.MonthlyFee, 1e-9)

	bad := 1.5
	_, err = svc.UpdateTerms(context.Background(), 1, UpdateVendorInput{CommissionRate: &bad})
	require.ErrorIs(t, err, ErrInvalidAmount)

	negFee := -1.0
	_, err = svc.UpdateTerms(context.Background(), 1, UpdateVendorInput{MonthlyFee: &negFee})
	require.ErrorIs(t, err, ErrInvalidAmount)

	fee := 30.0
	_, err = svc.UpdateTerms(context.Background(), 99, UpdateVendorInput{MonthlyFee: &fee})
	require.ErrorIs(t, err, ErrVendorNotFound)
}
