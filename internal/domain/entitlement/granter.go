package entitlement

import (
	"context"

	"github.com/go-faster/errors"

	"github.com/xenking/inkstore/internal/domain/product"
)

// Granter grants download access for purchased products, expanding bundles
// into their constituents. Granting is idempotent end to end: the repository
// refuses nothing and duplicates nothing, so a retried webhook or the
// reconcile job can call Grant again without side effects.
type Granter struct {
	products product.Repository
	access   Repository
}

// NewGranter creates a Granter over the product catalog and access store.
func NewGranter(products product.Repository, access Repository) *Granter {
	return &Granter{products: products, access: access}
}

// Grant ensures the user holds download access for every product in
// productIDs, expanding bundles one level. The bundle id itself gets no
// access row; only constituents are downloadable. Existing rows are left
// untouched, so a prior unrelated purchase keeps its originating order id.
func (g *Granter) Grant(ctx context.Context, userID, orderID string, productIDs []string) error {
	flat, err := g.expand(ctx, productIDs)
	if err != nil {
		return err
	}

	for _, id := range flat {
		if _, err := g.access.Insert(ctx, Access{
			UserID:    userID,
			ProductID: id,
			OrderID:   orderID,
		}); err != nil {
			return errors.Wrapf(err, "grant access to product %s", id)
		}
	}
	return nil
}

// Has reports whether the user already holds access to the product.
func (g *Granter) Has(ctx context.Context, userID, productID string) (bool, error) {
	return g.access.Exists(ctx, userID, productID)
}

// expand resolves bundles to their constituent product ids, deduplicating
// while preserving first-seen order.
func (g *Granter) expand(ctx context.Context, productIDs []string) ([]string, error) {
	var flat []string
	seen := make(map[string]struct{}, len(productIDs))

	add := func(id string) {
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		flat = append(flat, id)
	}

	for _, id := range productIDs {
		p, err := g.products.GetByID(ctx, id)
		if err != nil {
			return nil, errors.Wrapf(err, "load product %s", id)
		}

		if p.Type != product.TypeBundle {
			add(id)
			continue
		}

		constituents, err := g.products.ConstituentIDs(ctx, id)
		if err != nil {
			return nil, errors.Wrapf(err, "expand bundle %s", id)
		}
		for _, cid := range constituents {
			add(cid)
		}
	}
	return flat, nil
}
