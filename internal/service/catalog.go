package service

import (
	"context"
	"database/sql"
	"fmt"

	"storefront/internal/models"
	"storefront/internal/store"
	"storefront/internal/util"

	"go.uber.org/zap"
)

// Sort keys accepted by the catalog listing. Anything else falls back to
// the default (newest first).
var catalogSortColumns = map[string]string{
	"name":  "title",
	"price": "(SELECT COALESCE(MIN(v.price), 0) FROM product_variants v WHERE v.product_id = products.id AND v.deleted = false)",
	"date":  "created_at",
}

// CatalogService serves product listings with role-dependent visibility:
// admins see soft-deleted records, end users never do.
type CatalogService struct {
	store       *store.Store
	maxPageSize int
	logger      *zap.Logger
}

// NewCatalogService creates a new catalog service
func NewCatalogService(store *store.Store, maxPageSize int) *CatalogService {
	return &CatalogService{
		store:       store,
		maxPageSize: maxPageSize,
		logger:      util.GetLogger(),
	}
}

// ListRequest is a catalog page request
type ListRequest struct {
	Page     int
	PageSize int
	Search   string
	SortKey  string
	SortDesc bool
	IsAdmin  bool
}

// ListResponse carries one catalog page plus the total for pagination UI
type ListResponse struct {
	Items []models.Product `json:"items"`
	Total int64            `json:"total"`
}

// List returns a paginated, optionally filtered and sorted product page
func (s *CatalogService) List(ctx context.Context, req ListRequest) (*ListResponse, error) {
	ctx, span := util.StartSpan(ctx, "CatalogService.List")
	defer span.End()

	q := s.buildQuery(req)
	items, total, err := s.store.ListProducts(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	if items == nil {
		items = []models.Product{}
	}
	return &ListResponse{Items: items, Total: total}, nil
}

func (s *CatalogService) buildQuery(req ListRequest) store.ProductQuery {
	page := req.Page
	if page < 1 {
		page = 1
	}
	pageSize := req.PageSize
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > s.maxPageSize {
		pageSize = s.maxPageSize
	}

	column, ok := catalogSortColumns[req.SortKey]
	desc := req.SortDesc
	if !ok {
		column = catalogSortColumns["date"]
		desc = true
	}

	return store.ProductQuery{
		Page:           page,
		PageSize:       pageSize,
		Search:         req.Search,
		SortColumn:     column,
		SortDescending: desc,
		IncludeDeleted: req.IsAdmin,
	}
}

// Get returns one product with its variants, honoring visibility
func (s *CatalogService) Get(ctx context.Context, id int64, isAdmin bool) (*models.Product, error) {
	return s.store.GetProductByID(ctx, id, isAdmin)
}

// Create inserts a product with its variants
func (s *CatalogService) Create(ctx context.Context, product *models.Product) error {
	if err := s.store.CreateProduct(ctx, product); err != nil {
		return fmt.Errorf("failed to create product: %w", err)
	}
	s.logger.Info("Product created",
		zap.Int64("product_id", product.ID),
		zap.Int("variants", len(product.Variants)))
	return nil
}

// Update changes a product's title and metadata
func (s *CatalogService) Update(ctx context.Context, id int64, title string, metadata sql.NullString) error {
	return s.store.UpdateProduct(ctx, id, title, metadata)
}

// SoftDelete flips the product's deleted flag, cascading to variants.
// Products are never hard-deleted.
func (s *CatalogService) SoftDelete(ctx context.Context, id int64) error {
	if err := s.store.SoftDeleteProduct(ctx, id); err != nil {
		return err
	}
	s.logger.Info("Product soft-deleted", zap.Int64("product_id", id))
	return nil
}

// UpdateVariant updates a variant's purchasable fields
func (s *CatalogService) UpdateVariant(ctx context.Context, variant *models.ProductVariant) error {
	return s.store.UpdateVariant(ctx, variant)
}

// ExportRows returns the whole catalog flattened to one row per variant
func (s *CatalogService) ExportRows(ctx context.Context) ([]store.ExportRow, error) {
	return s.store.ListExportRows(ctx)
}
