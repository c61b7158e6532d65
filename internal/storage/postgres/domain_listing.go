package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/inkstore/internal/domain/checkout"
)

const markDomainInactiveSQL = `UPDATE domain_listings SET active = FALSE WHERE name = $1`

var _ checkout.DomainSaleRepository = (*DomainListingRepository)(nil)

// DomainListingRepository handles the one-off domain-name sales that settle
// through the same payment provider as product purchases.
type DomainListingRepository struct {
	pool *pgxpool.Pool
}

// NewDomainListingRepository returns a DomainListingRepository that uses the
// given pool.
func NewDomainListingRepository(pool *pgxpool.Pool) *DomainListingRepository {
	return &DomainListingRepository{pool: pool}
}

// MarkInactive delists a sold domain. Already-inactive names are a no-op, so
// duplicate webhook deliveries are harmless here too.
func (r *DomainListingRepository) MarkInactive(ctx context.Context, name string) error {
	if _, err := r.pool.Exec(ctx, markDomainInactiveSQL, name); err != nil {
		return fmt.Errorf("marking domain %q inactive: %w", name, err)
	}
	return nil
}
