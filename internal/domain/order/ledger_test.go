package order

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockOrderRepo struct {
	created []*Order
	items   [][]Item
	errs    []error // consumed per call; nil-padded
	calls   int
}

func (m *mockOrderRepo) CreateCompleted(_ context.Context, o *Order, items []Item) error {
	m.calls++
	cp := *o
	m.created = append(m.created, &cp)
	m.items = append(m.items, items)
	if len(m.errs) > 0 {
		err := m.errs[0]
		m.errs = m.errs[1:]
		return err
	}
	return nil
}

func (m *mockOrderRepo) GetBySessionID(_ context.Context, _ string) (*Order, error) {
	return nil, ErrNotFound
}

func params() CreateParams {
	return CreateParams{
		UserID:         "u1",
		Email:          "buyer@example.com",
		Subtotal:       decimal.RequireFromString("20.00"),
		DiscountAmount: decimal.RequireFromString("5.00"),
		Items: []Item{
			{ProductID: "p1", ProductName: "Widget", PriceAtPurchase: decimal.RequireFromString("20.00")},
		},
	}
}

func TestLedger_CreateCompleted(t *testing.T) {
	repo := &mockOrderRepo{}
	l := NewLedger(repo)
	l.now = func() time.Time { return time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC) }

	o, err := l.CreateCompleted(context.Background(), params())
	require.NoError(t, err)

	assert.True(t, decimal.RequireFromString("15.00").Equal(o.Total))
	assert.True(t, o.Subtotal.Sub(o.DiscountAmount).Equal(o.Total))
	assert.True(t, strings.HasPrefix(o.OrderNumber, "INK-20250615-"), "order number %q", o.OrderNumber)
	assert.NotEmpty(t, o.ID)
	require.Len(t, repo.items, 1)
	assert.Equal(t, "Widget", repo.items[0][0].ProductName)
}

func TestLedger_TotalFlooredAtZero(t *testing.T) {
	repo := &mockOrderRepo{}
	l := NewLedger(repo)

	p := params()
	p.DiscountAmount = decimal.RequireFromString("999.00")

	o, err := l.CreateCompleted(context.Background(), p)
	require.NoError(t, err)
	assert.True(t, o.Total.IsZero())
}

func TestLedger_EmptyItems(t *testing.T) {
	l := NewLedger(&mockOrderRepo{})

	p := params()
	p.Items = nil

	_, err := l.CreateCompleted(context.Background(), p)
	require.Error(t, err)
}

func TestLedger_RegeneratesNumberOnCollision(t *testing.T) {
	repo := &mockOrderRepo{errs: []error{ErrDuplicateNumber}}
	l := NewLedger(repo)

	o, err := l.CreateCompleted(context.Background(), params())
	require.NoError(t, err)
	assert.Equal(t, 2, repo.calls)
	assert.NotEqual(t, repo.created[0].OrderNumber, o.OrderNumber)
}

func TestLedger_GivesUpAfterRepeatedCollisions(t *testing.T) {
	repo := &mockOrderRepo{errs: []error{ErrDuplicateNumber, ErrDuplicateNumber, ErrDuplicateNumber}}
	l := NewLedger(repo)

	_, err := l.CreateCompleted(context.Background(), params())
	require.Error(t, err)
	assert.Equal(t, maxNumberAttempts, repo.calls)
}

func TestLedger_DuplicateSessionPropagates(t *testing.T) {
	repo := &mockOrderRepo{errs: []error{ErrDuplicateSession}}
	l := NewLedger(repo)

	p := params()
	p.ProviderSessionID = "cs_123"

	_, err := l.CreateCompleted(context.Background(), p)
	require.ErrorIs(t, err, ErrDuplicateSession)
	assert.Equal(t, 1, repo.calls)
}

func TestLedger_RepoError(t *testing.T) {
	repo := &mockOrderRepo{errs: []error{errors.New("db write failed")}}
	l := NewLedger(repo)

	_, err := l.CreateCompleted(context.Background(), params())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "create order")
}

func TestNewNumber_Shape(t *testing.T) {
	now := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

	n := NewNumber(now)
	assert.True(t, strings.HasPrefix(n, "INK-20250102-"))
	assert.Len(t, n, len("INK-20250102-")+numberSuffixLen)

	// Two consecutive numbers should differ.
	assert.NotEqual(t, n, NewNumber(now))
}
