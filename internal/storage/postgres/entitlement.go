package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/inkstore/internal/domain/entitlement"
)

const (
	insertAccessSQL = `INSERT INTO download_access (user_id, product_id, order_id)
		VALUES ($1, $2, $3)
		ON CONFLICT ON CONSTRAINT download_access_user_product_key DO NOTHING`

	accessExistsSQL = `SELECT EXISTS (
		SELECT 1 FROM download_access WHERE user_id = $1 AND product_id = $2)`

	recordDownloadSQL = `UPDATE download_access
		SET download_count = download_count + 1, last_downloaded_at = now()
		WHERE user_id = $1 AND product_id = $2`
)

var _ entitlement.Repository = (*AccessRepository)(nil)

// AccessRepository implements entitlement.Repository backed by PostgreSQL.
// The (user_id, product_id) unique constraint makes Insert safe under
// concurrent webhook retries without application-level locking.
type AccessRepository struct {
	pool *pgxpool.Pool
}

// NewAccessRepository returns an AccessRepository that uses the given pool.
func NewAccessRepository(pool *pgxpool.Pool) *AccessRepository {
	return &AccessRepository{pool: pool}
}

// Insert creates the access row unless one exists. ON CONFLICT DO NOTHING
// keeps the first grant's order id, so re-grants never rewrite provenance.
func (r *AccessRepository) Insert(ctx context.Context, a entitlement.Access) (bool, error) {
	tag, err := r.pool.Exec(ctx, insertAccessSQL, a.UserID, a.ProductID, a.OrderID)
	if err != nil {
		return false, fmt.Errorf("granting access to product %q for user %q: %w", a.ProductID, a.UserID, err)
	}
	return tag.RowsAffected() == 1, nil
}

// Exists reports whether the user holds access to the product.
func (r *AccessRepository) Exists(ctx context.Context, userID, productID string) (bool, error) {
	var exists bool
	if err := r.pool.QueryRow(ctx, accessExistsSQL, userID, productID).Scan(&exists); err != nil {
		return false, fmt.Errorf("checking access to product %q for user %q: %w", productID, userID, err)
	}
	return exists, nil
}

// RecordDownload increments the download counter and stamps the time.
func (r *AccessRepository) RecordDownload(ctx context.Context, userID, productID string) error {
	if _, err := r.pool.Exec(ctx, recordDownloadSQL, userID, productID); err != nil {
		return fmt.Errorf("recording download of product %q by user %q: %w", productID, userID, err)
	}
	return nil
}
