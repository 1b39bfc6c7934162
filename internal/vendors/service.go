package vendors

import (
	"context"
)

// RepositoryPort defines data access methods for vendor master data.
type RepositoryPort interface {
	GetVendor(ctx context.Context, id int64) (Vendor, error)
	ListVendors(ctx context.Context) ([]Vendor, error)
	UpdateVendorTerms(ctx context.Context, id int64, in UpdateVendorInput) (Vendor, error)
}

// Service handles vendor master data business logic.
type Service struct {
	repo RepositoryPort
}

// NewService builds Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// Get returns one vendor.
func (s *Service) Get(ctx context.Context, id int64) (Vendor, error) {
	return s.repo.GetVendor(ctx, id)
}

// List returns all vendors.
func (s *Service) List(ctx context.Context) ([]Vendor, error) {
	return s.repo.ListVendors(ctx)
}

// UpdateTerms applies admin edits to a vendor's commission rate and monthly fee.
func (s *Service) UpdateTerms(ctx context.Context, id int64, in UpdateVendorInput) (Vendor, error) {
	if err := in.Validate(); err != nil {
		return Vendor{}, err
	}
	return s.repo.UpdateVendorTerms(ctx, id, in)
}
