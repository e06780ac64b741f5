package store

import (
	"context"
	"database/sql"
	"fmt"

	"storefront/internal/models"

	"github.com/jmoiron/sqlx"
)

// ProductQuery describes a catalog page request. SortKey and SortDir are
// validated by the caller against the service whitelist before they reach
// this layer; OrderBy only interpolates the mapped column names.
type ProductQuery struct {
	Page           int
	PageSize       int
	Search         string
	SortColumn     string
	SortDescending bool
	IncludeDeleted bool
}

// ListProducts returns one catalog page plus the total match count.
func (s *Store) ListProducts(ctx context.Context, q ProductQuery) ([]models.Product, int64, error) {
	where := "WHERE 1=1"
	args := []interface{}{}

	if !q.IncludeDeleted {
		where += " AND deleted = false"
	}
	if q.Search != "" {
		args = append(args, "%"+q.Search+"%")
		where += fmt.Sprintf(" AND title ILIKE $%d", len(args))
	}

	var total int64
	if err := s.db.GetContext(ctx, &total,
		"SELECT COUNT(*) FROM products "+where, args...); err != nil {
		return nil, 0, err
	}

	dir := "ASC"
	if q.SortDescending {
		dir = "DESC"
	}
	args = append(args, q.PageSize, (q.Page-1)*q.PageSize)
	query := fmt.Sprintf("SELECT * FROM products %s ORDER BY %s %s, id ASC LIMIT $%d OFFSET $%d",
		where, q.SortColumn, dir, len(args)-1, len(args))

	var products []models.Product
	if err := s.db.SelectContext(ctx, &products, query, args...); err != nil {
		return nil, 0, err
	}

	if err := s.attachVariants(ctx, products, q.IncludeDeleted); err != nil {
		return nil, 0, err
	}
	return products, total, nil
}

func (s *Store) attachVariants(ctx context.Context, products []models.Product, includeDeleted bool) error {
	if len(products) == 0 {
		return nil
	}

	ids := make([]int64, len(products))
	index := make(map[int64]*models.Product, len(products))
	for i := range products {
		ids[i] = products[i].ID
		index[products[i].ID] = &products[i]
	}

	query := "SELECT * FROM product_variants WHERE product_id IN (?)"
	if !includeDeleted {
		query += " AND deleted = false"
	}
	query += " ORDER BY id"

	query, args, err := sqlx.In(query, ids)
	if err != nil {
		return err
	}
	query = s.db.Rebind(query)

	var variants []models.ProductVariant
	if err := s.db.SelectContext(ctx, &variants, query, args...); err != nil {
		return err
	}

	for _, v := range variants {
		p := index[v.ProductID]
		p.Variants = append(p.Variants, v)
	}
	return nil
}

// GetProductByID retrieves a product with its variants
func (s *Store) GetProductByID(ctx context.Context, id int64, includeDeleted bool) (*models.Product, error) {
	query := "SELECT * FROM products WHERE id = $1"
	if !includeDeleted {
		query += " AND deleted = false"
	}

	var product models.Product
	err := s.db.GetContext(ctx, &product, query, id)
	if err == sql.ErrNoRows {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	list := []models.Product{product}
	if err := s.attachVariants(ctx, list, includeDeleted); err != nil {
		return nil, err
	}
	return &list[0], nil
}

// GetVariantsByIDs retrieves variants with their product titles, keyed by
// variant id. Soft-deleted variants are excluded: they are never purchasable.
func (s *Store) GetVariantsByIDs(ctx context.Context, ids []int64) (map[int64]models.ProductVariant, map[int64]string, error) {
	if len(ids) == 0 {
		return map[int64]models.ProductVariant{}, map[int64]string{}, nil
	}

	query, args, err := sqlx.In(`
		SELECT v.id, v.product_id, v.color, v.color_code, v.size, v.price, v.stock, v.image, v.deleted, p.title
		FROM product_variants v
		JOIN products p ON p.id = v.product_id
		WHERE v.id IN (?) AND v.deleted = false AND p.deleted = false`, ids)
	if err != nil {
		return nil, nil, err
	}
	query = s.db.Rebind(query)

	rows, err := s.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	variants := make(map[int64]models.ProductVariant)
	titles := make(map[int64]string)
	for rows.Next() {
		var v models.ProductVariant
		var title string
		if err := rows.Scan(&v.ID, &v.ProductID, &v.Color, &v.ColorCode, &v.Size,
			&v.Price, &v.Stock, &v.Image, &v.Deleted, &title); err != nil {
			return nil, nil, err
		}
		variants[v.ID] = v
		titles[v.ID] = title
	}
	return variants, titles, rows.Err()
}

// CreateProduct inserts a product and its variants in one transaction
func (s *Store) CreateProduct(ctx context.Context, product *models.Product) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	err = tx.GetContext(ctx, product,
		"INSERT INTO products (title, metadata) VALUES ($1, $2) RETURNING id, created_at",
		product.Title, product.Metadata)
	if err != nil {
		return fmt.Errorf("failed to insert product: %w", err)
	}

	for i := range product.Variants {
		v := &product.Variants[i]
		v.ProductID = product.ID
		err = tx.GetContext(ctx, &v.ID, `
			INSERT INTO product_variants (product_id, color, color_code, size, price, stock, image)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING id`,
			v.ProductID, v.Color, v.ColorCode, v.Size, v.Price, v.Stock, v.Image)
		if err != nil {
			return fmt.Errorf("failed to insert variant: %w", err)
		}
	}

	return tx.Commit()
}

// UpdateProduct updates mutable product fields
func (s *Store) UpdateProduct(ctx context.Context, id int64, title string, metadata sql.NullString) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE products SET title = $1, metadata = $2 WHERE id = $3",
		title, metadata, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.ErrNotFound
	}
	return nil
}

// SoftDeleteProduct flips the product's deleted flag and cascades it to
// the variants. Rows are never removed.
func (s *Store) SoftDeleteProduct(ctx context.Context, id int64) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, "UPDATE products SET deleted = true WHERE id = $1", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.ErrNotFound
	}

	if _, err := tx.ExecContext(ctx,
		"UPDATE product_variants SET deleted = true WHERE product_id = $1", id); err != nil {
		return err
	}

	return tx.Commit()
}

// UpdateVariant updates mutable variant fields
func (s *Store) UpdateVariant(ctx context.Context, v *models.ProductVariant) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE product_variants
		SET color = $1, color_code = $2, size = $3, price = $4, stock = $5, image = $6, deleted = $7
		WHERE id = $8`,
		v.Color, v.ColorCode, v.Size, v.Price, v.Stock, v.Image, v.Deleted, v.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.ErrNotFound
	}
	return nil
}

// ExportRow is one line of the admin catalog export
type ExportRow struct {
	ProductID int64  `db:"product_id"`
	Title     string `db:"title"`
	VariantID int64  `db:"variant_id"`
	Color     string `db:"color"`
	Size      string `db:"size"`
	Price     int64  `db:"price"`
	Stock     int    `db:"stock"`
	Deleted   bool   `db:"deleted"`
}

// ListExportRows returns one row per variant across the whole catalog
func (s *Store) ListExportRows(ctx context.Context) ([]ExportRow, error) {
	var rows []ExportRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT p.id AS product_id, p.title, v.id AS variant_id,
		       v.color, v.size, v.price, v.stock, v.deleted
		FROM products p
		JOIN product_variants v ON v.product_id = p.id
		ORDER BY p.id, v.id`)
	return rows, err
}
