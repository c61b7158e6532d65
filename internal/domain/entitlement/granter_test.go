package entitlement

import (
	"context"
	"testing"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/inkstore/internal/domain/product"
)

type mockProductRepo struct {
	byID    map[string]*product.Product
	bundles map[string][]string
}

func (m *mockProductRepo) GetActiveByID(ctx context.Context, id string) (*product.Product, error) {
	return m.GetByID(ctx, id)
}

func (m *mockProductRepo) GetByID(_ context.Context, id string) (*product.Product, error) {
	p, ok := m.byID[id]
	if !ok {
		return nil, product.ErrNotFound
	}
	return p, nil
}

func (m *mockProductRepo) ConstituentIDs(_ context.Context, bundleID string) ([]string, error) {
	return m.bundles[bundleID], nil
}

func (m *mockProductRepo) GetFileByID(_ context.Context, _ string) (*product.File, error) {
	return nil, product.ErrNotFound
}

type mockAccessRepo struct {
	rows      map[string]Access // key userID+"/"+productID
	inserts   int
	insertErr error
}

func newMockAccessRepo() *mockAccessRepo {
	return &mockAccessRepo{rows: make(map[string]Access)}
}

func (m *mockAccessRepo) Insert(_ context.Context, a Access) (bool, error) {
	if m.insertErr != nil {
		return false, m.insertErr
	}
	m.inserts++
	key := a.UserID + "/" + a.ProductID
	if _, ok := m.rows[key]; ok {
		return false, nil
	}
	m.rows[key] = a
	return true, nil
}

func (m *mockAccessRepo) Exists(_ context.Context, userID, productID string) (bool, error) {
	_, ok := m.rows[userID+"/"+productID]
	return ok, nil
}

func (m *mockAccessRepo) RecordDownload(_ context.Context, _, _ string) error { return nil }

func catalog() *mockProductRepo {
	price := decimal.RequireFromString("20.00")
	return &mockProductRepo{
		byID: map[string]*product.Product{
			"a":      {ID: "a", Name: "A", Price: price, Type: product.TypeSingle, Status: product.StatusActive},
			"b":      {ID: "b", Name: "B", Price: price, Type: product.TypeSingle, Status: product.StatusActive},
			"c":      {ID: "c", Name: "C", Price: price, Type: product.TypeSingle, Status: product.StatusActive},
			"bundle": {ID: "bundle", Name: "Bundle", Price: price, Type: product.TypeBundle, Status: product.StatusActive},
		},
		bundles: map[string][]string{"bundle": {"a", "b", "c"}},
	}
}

func TestGranter_SingleProduct(t *testing.T) {
	access := newMockAccessRepo()
	g := NewGranter(catalog(), access)

	require.NoError(t, g.Grant(context.Background(), "u1", "o1", []string{"a"}))

	assert.Len(t, access.rows, 1)
	assert.Equal(t, "o1", access.rows["u1/a"].OrderID)
}

func TestGranter_BundleFanOut(t *testing.T) {
	access := newMockAccessRepo()
	g := NewGranter(catalog(), access)

	require.NoError(t, g.Grant(context.Background(), "u1", "o1", []string{"bundle"}))

	// Constituents get rows; the bundle id itself does not.
	assert.Len(t, access.rows, 3)
	for _, id := range []string{"a", "b", "c"} {
		_, ok := access.rows["u1/"+id]
		assert.True(t, ok, "missing access for %s", id)
	}
	_, ok := access.rows["u1/bundle"]
	assert.False(t, ok)
}

func TestGranter_PriorAccessKeepsOriginatingOrder(t *testing.T) {
	access := newMockAccessRepo()
	g := NewGranter(catalog(), access)

	// User bought product b standalone earlier.
	require.NoError(t, g.Grant(context.Background(), "u1", "o1", []string{"b"}))
	// Then buys the bundle containing b.
	require.NoError(t, g.Grant(context.Background(), "u1", "o2", []string{"bundle"}))

	assert.Len(t, access.rows, 3)
	assert.Equal(t, "o1", access.rows["u1/b"].OrderID, "first grant wins")
	assert.Equal(t, "o2", access.rows["u1/a"].OrderID)
}

func TestGranter_Idempotent(t *testing.T) {
	access := newMockAccessRepo()
	g := NewGranter(catalog(), access)

	require.NoError(t, g.Grant(context.Background(), "u1", "o1", []string{"bundle"}))
	require.NoError(t, g.Grant(context.Background(), "u1", "o1", []string{"bundle"}))

	assert.Len(t, access.rows, 3)
}

func TestGranter_UnknownProduct(t *testing.T) {
	g := NewGranter(catalog(), newMockAccessRepo())

	err := g.Grant(context.Background(), "u1", "o1", []string{"nope"})
	require.ErrorIs(t, err, product.ErrNotFound)
}

func TestGranter_InsertError(t *testing.T) {
	access := newMockAccessRepo()
	access.insertErr = errors.New("db down")
	g := NewGranter(catalog(), access)

	err := g.Grant(context.Background(), "u1", "o1", []string{"a"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "grant access")
}
