package catalog

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

type memoryRepo struct {
	products map[int64]*Product
	nextID   int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{products: make(map[int64]*Product)}
}

func (r *memoryRepo) List(ctx context.Context, filters ListFilters) ([]Product, int, error) {
	var out []Product
	for _, p := range r.products {
		if filters.Status != "" && p.Status != filters.Status {
			continue
		}
		out = append(out, *p)
	}
	return out, len(out), nil
}

func (r *memoryRepo) Get(ctx context.Context, id int64) (Product, error) {
	p, ok := r.products[id]
	if !ok {
		return Product{}, ErrProductNotFound
	}
	return *p, nil
}

func (r *memoryRepo) Create(ctx context.Context, product Product) (Product, error) {
	r.nextID++
	product.ID = r.nextID
	r.products[product.ID] = &product
	return product, nil
}

func (r *memoryRepo) Update(ctx context.Context, id int64, product Product) error {
	p, ok := r.products[id]
	if !ok {
		return ErrProductNotFound
	}
	product.ID = id
	product.Status = p.Status
	*p = product
	return nil
}

func (r *memoryRepo) UpdateStatus(ctx context.Context, id int64, status ProductStatus) error {
	p, ok := r.products[id]
	if !ok {
		return ErrProductNotFound
	}
	p.Status = status
	return nil
}

func TestCreateStartsPendingApproval(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, nil)
	ctx := context.Background()

	created, err := svc.Create(ctx, Product{Name: "Huile 1L", Price: 1200, WholesalePrice: 950}, 7)
	require.NoError(t, err)
	require.Equal(t, StatusPendingApproval, created.Status)
	require.Equal(t, int64(7), created.CreatedBy)

	live, _, err := svc.ListLive(ctx, ListFilters{})
	require.NoError(t, err)
	require.Empty(t, live)

	require.NoError(t, svc.Approve(ctx, created.ID, 1))
	live, total, err := svc.ListLive(ctx, ListFilters{})
	require.NoError(t, err)
	require.Len(t, live, 1)
	require.Equal(t, 1, total)
}

func TestCreateValidation(t *testing.T) {
	svc := NewService(newMemoryRepo(), nil, nil)
	ctx := context.Background()

	_, err := svc.Create(ctx, Product{Name: "  ", Price: 100}, 1)
	require.ErrorIs(t, err, ErrInvalidName)

	_, err = svc.Create(ctx, Product{Name: "Sucre", Price: 0}, 1)
	require.ErrorIs(t, err, ErrInvalidPrice)

	_, err = svc.Create(ctx, Product{Name: "Sucre", Price: 100, WholesalePrice: -1}, 1)
	require.ErrorIs(t, err, ErrInvalidPrice)
}

func TestArchiveHidesFromStorefront(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, nil)
	ctx := context.Background()

	created, err := svc.Create(ctx, Product{Name: "Lait", Price: 700}, 7)
	require.NoError(t, err)
	require.NoError(t, svc.Approve(ctx, created.ID, 1))
	require.NoError(t, svc.Archive(ctx, created.ID, 1))

	live, _, err := svc.ListLive(ctx, ListFilters{})
	require.NoError(t, err)
	require.Empty(t, live)

	got, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, StatusArchived, got.Status)
}

func TestGetUnknownProduct(t *testing.T) {
	svc := NewService(newMemoryRepo(), nil, nil)
	_, err := svc.Get(context.Background(), 42)
	require.ErrorIs(t, err, ErrProductNotFound)
	_, err = svc.Get(context.Background(), 0)
	require.ErrorIs(t, err, ErrProductNotFound)
}
