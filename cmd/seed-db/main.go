// Command seed-db loads the catalog fixture (products, bundles, files,
// coupons, domain listings) into the database. Safe to run repeatedly:
// everything is upserted by primary key.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/xenking/inkstore/internal/storage/postgres"
)

type catalogJSON struct {
	Products []productJSON `json:"products"`
	Coupons  []couponJSON  `json:"coupons"`
	Domains  []domainJSON  `json:"domains"`
}

type productJSON struct {
	ID       string          `json:"id"`
	Slug     string          `json:"slug"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Type     string          `json:"type"`
	Status   string          `json:"status"`
	Contains []string        `json:"contains,omitempty"`
	Files    []fileJSON      `json:"files,omitempty"`
}

type fileJSON struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Path string `json:"path"`
}

type couponJSON struct {
	ID              string           `json:"id"`
	Code            string           `json:"code"`
	DiscountType    string           `json:"discountType"`
	DiscountValue   decimal.Decimal  `json:"discountValue"`
	Scope           string           `json:"scope"`
	ProductIDs      []string         `json:"productIds,omitempty"`
	MaxUses         *int32           `json:"maxUses,omitempty"`
	MaxUsesPerUser  int32            `json:"maxUsesPerUser"`
	StartsAt        *time.Time       `json:"startsAt,omitempty"`
	ExpiresAt       *time.Time       `json:"expiresAt,omitempty"`
	MinimumPurchase *decimal.Decimal `json:"minimumPurchase,omitempty"`
}

type domainJSON struct {
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
}

func main() {
	var (
		databaseURL string
		catalogFile string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&catalogFile, "catalog-file", "db/seed/catalog.json", "path to catalog JSON file")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, catalogFile); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, catalogFile string) error {
	slog.Info("reading catalog file", slog.String("path", catalogFile))

	data, err := os.ReadFile(catalogFile)
	if err != nil {
		return errors.Wrap(err, "read catalog file")
	}

	var catalog catalogJSON
	if err := json.Unmarshal(data, &catalog); err != nil {
		return errors.Wrap(err, "parse catalog JSON")
	}

	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	if err := seedProducts(ctx, pool, catalog.Products); err != nil {
		return errors.Wrap(err, "seed products")
	}
	if err := seedCoupons(ctx, pool, catalog.Coupons); err != nil {
		return errors.Wrap(err, "seed coupons")
	}
	if err := seedDomains(ctx, pool, catalog.Domains); err != nil {
		return errors.Wrap(err, "seed domain listings")
	}

	return nil
}

const upsertProductSQL = `
INSERT INTO products (id, slug, name, price, product_type, status)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (id) DO UPDATE SET
    slug = EXCLUDED.slug,
    name = EXCLUDED.name,
    price = EXCLUDED.price,
    product_type = EXCLUDED.product_type,
    status = EXCLUDED.status`

const upsertBundleItemSQL = `
INSERT INTO bundle_items (bundle_id, product_id, position)
VALUES ($1, $2, $3)
ON CONFLICT (bundle_id, product_id) DO UPDATE SET position = EXCLUDED.position`

const upsertProductFileSQL = `
INSERT INTO product_files (id, product_id, name, path)
VALUES ($1, $2, $3, $4)
ON CONFLICT (id) DO UPDATE SET
    product_id = EXCLUDED.product_id,
    name = EXCLUDED.name,
    path = EXCLUDED.path`

func seedProducts(ctx context.Context, pool *pgxpool.Pool, products []productJSON) error {
	slog.Info("upserting products", slog.Int("count", len(products)))

	for _, p := range products {
		typ := p.Type
		if typ == "" {
			typ = "single"
		}
		status := p.Status
		if status == "" {
			status = "active"
		}

		if _, err := pool.Exec(ctx, upsertProductSQL, p.ID, p.Slug, p.Name, p.Price, typ, status); err != nil {
			return errors.Wrapf(err, "upsert product %s", p.ID)
		}

		for pos, constituent := range p.Contains {
			if _, err := pool.Exec(ctx, upsertBundleItemSQL, p.ID, constituent, pos); err != nil {
				return errors.Wrapf(err, "upsert bundle item %s/%s", p.ID, constituent)
			}
		}

		for _, f := range p.Files {
			if _, err := pool.Exec(ctx, upsertProductFileSQL, f.ID, p.ID, f.Name, f.Path); err != nil {
				return errors.Wrapf(err, "upsert file %s", f.ID)
			}
		}

		slog.Info("upserted product", slog.String("id", p.ID), slog.String("name", p.Name))
	}

	return nil
}

const upsertCouponSQL = `
INSERT INTO coupons (id, code, discount_type, discount_value, scope,
                     max_uses, max_uses_per_user, starts_at, expires_at, minimum_purchase)
VALUES ($1, UPPER($2), $3, $4, $5, $6, $7, $8, $9, $10)
ON CONFLICT (id) DO UPDATE SET
    code = EXCLUDED.code,
    discount_type = EXCLUDED.discount_type,
    discount_value = EXCLUDED.discount_value,
    scope = EXCLUDED.scope,
    max_uses = EXCLUDED.max_uses,
    max_uses_per_user = EXCLUDED.max_uses_per_user,
    starts_at = EXCLUDED.starts_at,
    expires_at = EXCLUDED.expires_at,
    minimum_purchase = EXCLUDED.minimum_purchase`

const upsertCouponProductSQL = `
INSERT INTO coupon_products (coupon_id, product_id)
VALUES ($1, $2)
ON CONFLICT DO NOTHING`

func seedCoupons(ctx context.Context, pool *pgxpool.Pool, coupons []couponJSON) error {
	slog.Info("upserting coupons", slog.Int("count", len(coupons)))

	for _, c := range coupons {
		scope := c.Scope
		if scope == "" {
			scope = "all"
		}
		perUser := c.MaxUsesPerUser
		if perUser == 0 {
			perUser = 1
		}

		if _, err := pool.Exec(ctx, upsertCouponSQL,
			c.ID, c.Code, c.DiscountType, c.DiscountValue, scope,
			c.MaxUses, perUser, c.StartsAt, c.ExpiresAt, c.MinimumPurchase,
		); err != nil {
			return errors.Wrapf(err, "upsert coupon %s", c.Code)
		}

		for _, pid := range c.ProductIDs {
			if _, err := pool.Exec(ctx, upsertCouponProductSQL, c.ID, pid); err != nil {
				return errors.Wrapf(err, "bind coupon %s to product %s", c.Code, pid)
			}
		}

		slog.Info("upserted coupon", slog.String("code", c.Code))
	}

	return nil
}

const upsertDomainSQL = `
INSERT INTO domain_listings (id, name, price)
VALUES ($1, $2, $3)
ON CONFLICT (id) DO UPDATE SET
    name = EXCLUDED.name,
    price = EXCLUDED.price`

func seedDomains(ctx context.Context, pool *pgxpool.Pool, domains []domainJSON) error {
	slog.Info("upserting domain listings", slog.Int("count", len(domains)))

	for _, d := range domains {
		if _, err := pool.Exec(ctx, upsertDomainSQL, d.ID, d.Name, d.Price); err != nil {
			return errors.Wrapf(err, "upsert domain listing %s", d.Name)
		}

		slog.Info("upserted domain listing", slog.String("name", d.Name))
	}

	return nil
}
