package reconcile

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/inkstore/internal/domain/entitlement"
	"github.com/xenking/inkstore/internal/domain/product"
)

type mockStore struct {
	mismatches []CounterMismatch
	missing    []MissingGrant
	setUses    map[string]int
}

func (m *mockStore) CouponCounterMismatches(_ context.Context) ([]CounterMismatch, error) {
	return m.mismatches, nil
}

func (m *mockStore) SetCouponUses(_ context.Context, couponID string, uses int) error {
	if m.setUses == nil {
		m.setUses = make(map[string]int)
	}
	m.setUses[couponID] = uses
	return nil
}

func (m *mockStore) MissingGrants(_ context.Context) ([]MissingGrant, error) {
	return m.missing, nil
}

type mockProducts struct{}

func (mockProducts) GetActiveByID(ctx context.Context, id string) (*product.Product, error) {
	return mockProducts{}.GetByID(ctx, id)
}

func (mockProducts) GetByID(_ context.Context, id string) (*product.Product, error) {
	return &product.Product{ID: id, Name: id, Price: decimal.Zero,
		Type: product.TypeSingle, Status: product.StatusActive}, nil
}

func (mockProducts) ConstituentIDs(_ context.Context, _ string) ([]string, error) { return nil, nil }

func (mockProducts) GetFileByID(_ context.Context, _ string) (*product.File, error) {
	return nil, product.ErrNotFound
}

type mockAccess struct {
	inserted []entitlement.Access
}

func (m *mockAccess) Insert(_ context.Context, a entitlement.Access) (bool, error) {
	m.inserted = append(m.inserted, a)
	return true, nil
}

func (m *mockAccess) Exists(_ context.Context, _, _ string) (bool, error) { return false, nil }
func (m *mockAccess) RecordDownload(_ context.Context, _, _ string) error { return nil }

func TestRun_RepairsCounterDrift(t *testing.T) {
	store := &mockStore{
		mismatches: []CounterMismatch{{CouponID: "c1", Code: "SAVE10", Counter: 7, Logged: 5}},
	}
	access := &mockAccess{}
	svc := NewService(store, entitlement.NewGranter(mockProducts{}, access), false)

	rep, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, rep.CountersRepaired)
	assert.Equal(t, 5, store.setUses["c1"], "log is the source of truth")
}

func TestRun_RepairsMissingGrants(t *testing.T) {
	store := &mockStore{
		missing: []MissingGrant{{OrderID: "o1", UserID: "u1", ProductID: "p1"}},
	}
	access := &mockAccess{}
	svc := NewService(store, entitlement.NewGranter(mockProducts{}, access), false)

	rep, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, rep.GrantsRepaired)
	require.Len(t, access.inserted, 1)
	assert.Equal(t, "o1", access.inserted[0].OrderID)
}

func TestRun_DryRunChangesNothing(t *testing.T) {
	store := &mockStore{
		mismatches: []CounterMismatch{{CouponID: "c1", Code: "SAVE10", Counter: 7, Logged: 5}},
		missing:    []MissingGrant{{OrderID: "o1", UserID: "u1", ProductID: "p1"}},
	}
	access := &mockAccess{}
	svc := NewService(store, entitlement.NewGranter(mockProducts{}, access), true)

	rep, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, rep.CountersRepaired)
	assert.Zero(t, rep.GrantsRepaired)
	assert.Empty(t, store.setUses)
	assert.Empty(t, access.inserted)
}
