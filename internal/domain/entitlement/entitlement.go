// Package entitlement grants and checks durable download access: a user who
// bought a product can retrieve its files indefinitely.
package entitlement

import (
	"context"
	"time"
)

// Access is a download entitlement, unique per (user, product). It carries
// the originating order (first grant wins) and download bookkeeping.
type Access struct {
	UserID           string
	ProductID        string
	OrderID          string
	DownloadCount    int
	LastDownloadedAt *time.Time
	CreatedAt        time.Time
}

// Repository defines persistence for download access rows.
type Repository interface {
	// Insert creates the access row unless one already exists for the
	// (user, product) pair. Returns false without error when the row was
	// already present: re-granting is a safe no-op.
	Insert(ctx context.Context, a Access) (created bool, err error)
	// Exists reports whether the user holds access to the product.
	Exists(ctx context.Context, userID, productID string) (bool, error)
	// RecordDownload increments the download counter and stamps the time.
	RecordDownload(ctx context.Context, userID, productID string) error
}
