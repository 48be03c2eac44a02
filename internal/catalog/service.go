package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/sokoline/sokoline/internal/shared"
)

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

type Service struct {
	repo  Repository
	cache *Cache
	audit AuditPort
}

func NewService(repo Repository, cache *Cache, audit AuditPort) *Service {
	return &Service{repo: repo, cache: cache, audit: audit}
}

type cachedListing struct {
	Products []Product `json:"products"`
	Total    int       `json:"total"`
}

// List returns products, serving storefront listings from the cache.
func (s *Service) List(ctx context.Context, filters ListFilters) ([]Product, int, error) {
	key, err := s.cache.BuildKey(ctx, listingKey(filters))
	if err != nil {
		return s.repo.List(ctx, filters)
	}
	var listing cachedListing
	err = s.cache.FetchJSON(ctx, key, &listing, func(ctx context.Context) (interface{}, error) {
		products, total, err := s.repo.List(ctx, filters)
		if err != nil {
			return nil, err
		}
		return cachedListing{Products: products, Total: total}, nil
	})
	if err != nil {
		return nil, 0, err
	}
	return listing.Products, listing.Total, nil
}

// ListLive returns the storefront view: LIVE products only.
func (s *Service) ListLive(ctx context.Context, filters ListFilters) ([]Product, int, error) {
	filters.Status = StatusLive
	return s.List(ctx, filters)
}

func (s *Service) Get(ctx context.Context, id int64) (Product, error) {
	if id <= 0 {
		return Product{}, ErrProductNotFound
	}
	return s.repo.Get(ctx, id)
}

// Create registers a new product. Products enter the catalog pending
// approval; an admin publishes them with Approve.
func (s *Service) Create(ctx context.Context, product Product, actorID int64) (Product, error) {
	if err := s.validate(product); err != nil {
		return Product{}, err
	}
	product.Status = StatusPendingApproval
	product.CreatedBy = actorID
	created, err := s.repo.Create(ctx, product)
	if err != nil {
		return Product{}, err
	}
	_ = s.cache.Bump(ctx)
	s.recordAudit(ctx, actorID, "PRODUCT_CREATE", created.ID, map[string]any{"name": created.Name})
	return created, nil
}

func (s *Service) Update(ctx context.Context, id int64, product Product, actorID int64) error {
	if id <= 0 {
		return ErrProductNotFound
	}
	if err := s.validate(product); err != nil {
		return err
	}
	if err := s.repo.Update(ctx, id, product); err != nil {
		return err
	}
	_ = s.cache.Bump(ctx)
	s.recordAudit(ctx, actorID, "PRODUCT_UPDATE", id, map[string]any{"name": product.Name})
	return nil
}

// Approve publishes a pending product to the storefront.
func (s *Service) Approve(ctx context.Context, id int64, actorID int64) error {
	return s.setStatus(ctx, id, StatusLive, actorID)
}

// Archive removes a product from sale without deleting its history.
func (s *Service) Archive(ctx context.Context, id int64, actorID int64) error {
	return s.setStatus(ctx, id, StatusArchived, actorID)
}

func (s *Service) setStatus(ctx context.Context, id int64, status ProductStatus, actorID int64) error {
	if id <= 0 {
		return ErrProductNotFound
	}
	if !ValidStatus(status) {
		return ErrInvalidStatus
	}
	if err := s.repo.UpdateStatus(ctx, id, status); err != nil {
		return err
	}
	_ = s.cache.Bump(ctx)
	s.recordAudit(ctx, actorID, "PRODUCT_STATUS", id, map[string]any{"status": string(status)})
	return nil
}

func (s *Service) validate(product Product) error {
	if strings.TrimSpace(product.Name) == "" {
		return ErrInvalidName
	}
	if product.Price <= 0 || product.WholesalePrice < 0 {
		return ErrInvalidPrice
	}
	return nil
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action string, productID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "product",
		EntityID: fmt.Sprintf("%d", productID),
		Meta:     meta,
	})
}
