package suppliers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

type memoryRepo struct {
	suppliers map[int64]*Supplier
	nextID    int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{suppliers: make(map[int64]*Supplier)}
}

func (r *memoryRepo) List(ctx context.Context, filters ListFilters) ([]Supplier, int, error) {
	var out []Supplier
	for _, s := range r.suppliers {
		out = append(out, *s)
	}
	return out, len(out), nil
}

func (r *memoryRepo) Get(ctx context.Context, id int64) (Supplier, error) {
	s, ok := r.suppliers[id]
	if !ok {
		return Supplier{}, ErrSupplierNotFound
	}
	return *s, nil
}

func (r *memoryRepo) GetByUser(ctx context.Context, userID int64) (Supplier, error) {
	for _, s := range r.suppliers {
		if s.UserID == userID {
			return *s, nil
		}
	}
	return Supplier{}, ErrSupplierNotFound
}

func (r *memoryRepo) Create(ctx context.Context, supplier Supplier) (Supplier, error) {
	r.nextID++
	supplier.ID = r.nextID
	supplier.IsActive = true
	r.suppliers[supplier.ID] = &supplier
	return supplier, nil
}

func (r *memoryRepo) Update(ctx context.Context, id int64, supplier Supplier) error {
	s, ok := r.suppliers[id]
	if !ok {
		return ErrSupplierNotFound
	}
	supplier.ID = id
	supplier.IsActive = s.IsActive
	*s = supplier
	return nil
}

func (r *memoryRepo) Deactivate(ctx context.Context, id int64) error {
	s, ok := r.suppliers[id]
	if !ok {
		return ErrSupplierNotFound
	}
	s.IsActive = false
	return nil
}

func TestCreateRequiresCodeAndName(t *testing.T) {
	svc := NewService(newMemoryRepo())
	ctx := context.Background()

	_, err := svc.Create(ctx, Supplier{Name: "Fournisseur Nord"})
	require.Error(t, err)

	_, err = svc.Create(ctx, Supplier{Code: "SUP-01"})
	require.Error(t, err)

	created, err := svc.Create(ctx, Supplier{Code: "SUP-01", Name: "Fournisseur Nord", UserID: 12})
	require.NoError(t, err)
	require.True(t, created.IsActive)
}

func TestGetByUser(t *testing.T) {
	svc := NewService(newMemoryRepo())
	ctx := context.Background()

	created, err := svc.Create(ctx, Supplier{Code: "SUP-02", Name: "Agro Plus", UserID: 33})
	require.NoError(t, err)

	found, err := svc.GetByUser(ctx, 33)
	require.NoError(t, err)
	require.Equal(t, created.ID, found.ID)

	_, err = svc.GetByUser(ctx, 99)
	require.ErrorIs(t, err, ErrSupplierNotFound)
}

func TestDeactivateKeepsRecord(t *testing.T) {
	svc := NewService(newMemoryRepo())
	ctx := context.Background()

	created, err := svc.Create(ctx, Supplier{Code: "SUP-03", Name: "Centrale"})
	require.NoError(t, err)
	require.NoError(t, svc.Deactivate(ctx, created.ID))

	got, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	require.False(t, got.IsActive)

	require.ErrorIs(t, svc.Deactivate(ctx, 999), ErrSupplierNotFound)
}
