package suppliers

import (
	"context"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) List(ctx context.Context, filters ListFilters) ([]Supplier, int, error) {
	return s.repo.List(ctx, filters)
}

func (s *Service) Get(ctx context.Context, id int64) (Supplier, error) {
	if id <= 0 {
		return Supplier{}, ErrSupplierNotFound
	}
	return s.repo.Get(ctx, id)
}

// GetByUser resolves the supplier record behind a portal login.
func (s *Service) GetByUser(ctx context.Context, userID int64) (Supplier, error) {
	if userID <= 0 {
		return Supplier{}, ErrSupplierNotFound
	}
	return s.repo.GetByUser(ctx, userID)
}

// ResolveSupplier maps a portal login to its active supplier ID. Deactivated
// suppliers resolve to not-found so their portal access goes dark with them.
func (s *Service) ResolveSupplier(ctx context.Context, userID int64) (int64, error) {
	supplier, err := s.GetByUser(ctx, userID)
	if err != nil {
		return 0, err
	}
	if !supplier.IsActive {
		return 0, ErrSupplierNotFound
	}
	return supplier.ID, nil
}

func (s *Service) Create(ctx context.Context, supplier Supplier) (Supplier, error) {
	if err := s.validate(supplier); err != nil {
		return Supplier{}, err
	}
	return s.repo.Create(ctx, supplier)
}

func (s *Service) Update(ctx context.Context, id int64, supplier Supplier) error {
	if id <= 0 {
		return ErrSupplierNotFound
	}
	if err := s.validate(supplier); err != nil {
		return err
	}
	return s.repo.Update(ctx, id, supplier)
}

func (s *Service) Deactivate(ctx context.Context, id int64) error {
	if id <= 0 {
		return ErrSupplierNotFound
	}
	return s.repo.Deactivate(ctx, id)
}
