package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/inkstore/internal/domain/product"
)

const (
	getProductSQL = `SELECT id, slug, name, price, product_type, status
		FROM products WHERE id = $1`

	getActiveProductSQL = `SELECT id, slug, name, price, product_type, status
		FROM products WHERE id = $1 AND status = 'active'`

	getConstituentsSQL = `SELECT product_id FROM bundle_items
		WHERE bundle_id = $1 ORDER BY position`

	getFileSQL = `SELECT id, product_id, name, path
		FROM product_files WHERE id = $1`
)

var _ product.Repository = (*ProductRepository)(nil)

// ProductRepository implements product.Repository backed by PostgreSQL.
type ProductRepository struct {
	pool *pgxpool.Pool
}

// NewProductRepository returns a ProductRepository that uses the given pool.
func NewProductRepository(pool *pgxpool.Pool) *ProductRepository {
	return &ProductRepository{pool: pool}
}

// GetActiveByID returns an active product or product.ErrNotFound.
func (r *ProductRepository) GetActiveByID(ctx context.Context, id string) (*product.Product, error) {
	return r.get(ctx, getActiveProductSQL, id)
}

// GetByID returns a product in any status or product.ErrNotFound.
func (r *ProductRepository) GetByID(ctx context.Context, id string) (*product.Product, error) {
	return r.get(ctx, getProductSQL, id)
}

func (r *ProductRepository) get(ctx context.Context, query, id string) (*product.Product, error) {
	rows, err := r.pool.Query(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("finding product %q: %w", id, err)
	}

	p, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, product.ErrNotFound
		}
		return nil, fmt.Errorf("finding product %q: %w", id, err)
	}
	return &p, nil
}

// ConstituentIDs returns a bundle's constituent product ids in display order.
func (r *ProductRepository) ConstituentIDs(ctx context.Context, bundleID string) ([]string, error) {
	rows, err := r.pool.Query(ctx, getConstituentsSQL, bundleID)
	if err != nil {
		return nil, fmt.Errorf("listing constituents of %q: %w", bundleID, err)
	}

	ids, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (string, error) {
		var id string
		err := row.Scan(&id)
		return id, err
	})
	if err != nil {
		return nil, fmt.Errorf("listing constituents of %q: %w", bundleID, err)
	}
	return ids, nil
}

// GetFileByID returns a downloadable file record or product.ErrNotFound.
func (r *ProductRepository) GetFileByID(ctx context.Context, fileID string) (*product.File, error) {
	rows, err := r.pool.Query(ctx, getFileSQL, fileID)
	if err != nil {
		return nil, fmt.Errorf("finding file %q: %w", fileID, err)
	}

	f, err := pgx.CollectExactlyOneRow(rows, func(row pgx.CollectableRow) (product.File, error) {
		var f product.File
		err := row.Scan(&f.ID, &f.ProductID, &f.Name, &f.Path)
		return f, err
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, product.ErrNotFound
		}
		return nil, fmt.Errorf("finding file %q: %w", fileID, err)
	}
	return &f, nil
}

func scanProduct(row pgx.CollectableRow) (product.Product, error) {
	var (
		p     product.Product
		ptype string
		st    string
	)
	err := row.Scan(&p.ID, &p.Slug, &p.Name, &p.Price, &ptype, &st)
	p.Type = product.Type(ptype)
	p.Status = product.Status(st)
	return p, err
}
