package product

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested product does not exist or is not
// visible for the requested operation.
var ErrNotFound = errors.New("product not found")

// Type distinguishes standalone products from bundles.
type Type string

const (
	// TypeSingle is a standalone downloadable product.
	TypeSingle Type = "single"
	// TypeBundle is a product whose purchase entitles the buyer to a fixed
	// set of single products. Bundles are never nested.
	TypeBundle Type = "bundle"
)

// Status is the catalog lifecycle state of a product.
type Status string

const (
	StatusDraft    Status = "draft"
	StatusActive   Status = "active"
	StatusArchived Status = "archived"
)

// Product represents a digital good available for purchase. Completed orders
// snapshot the name and price, so later edits never rewrite purchase history.
type Product struct {
	ID     string
	Slug   string
	Name   string
	Price  decimal.Decimal
	Type   Type
	Status Status
}

// File is a downloadable asset attached to a product.
type File struct {
	ID        string
	ProductID string
	Name      string
	Path      string
}

// Repository defines read operations for the product catalog.
type Repository interface {
	// GetActiveByID returns the product only when its status is active.
	// Returns ErrNotFound for missing, draft, or archived products.
	GetActiveByID(ctx context.Context, id string) (*Product, error)
	// GetByID returns the product regardless of status. Fulfillment uses it:
	// an order completed yesterday must still expand even if the product was
	// archived today.
	GetByID(ctx context.Context, id string) (*Product, error)
	// ConstituentIDs returns the product ids a bundle consists of, in display
	// order. Empty for non-bundle ids.
	ConstituentIDs(ctx context.Context, bundleID string) ([]string, error)
	// GetFileByID returns a downloadable file record.
	GetFileByID(ctx context.Context, fileID string) (*File, error)
}
