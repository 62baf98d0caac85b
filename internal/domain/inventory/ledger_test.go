package inventory

import (
	"context"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStock struct {
	units   map[string]StockUnit
	lockErr error
	setErr  error
}

func (f *fakeStock) GetForUpdate(_ context.Context, ids []string) ([]StockUnit, error) {
	if f.lockErr != nil {
		return nil, f.lockErr
	}
	out := make([]StockUnit, 0, len(ids))
	for _, id := range ids {
		if u, ok := f.units[id]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

func (f *fakeStock) SetQuantity(_ context.Context, id string, quantity decimal.Decimal) error {
	if f.setErr != nil {
		return f.setErr
	}
	u := f.units[id]
	u.Quantity = quantity
	f.units[id] = u
	return nil
}

func (f *fakeStock) List(_ context.Context) ([]StockUnit, error) { return nil, nil }

type fakeAudit struct {
	entries []AuditEntry
	err     error
}

func (f *fakeAudit) Append(_ context.Context, entry AuditEntry) error {
	if f.err != nil {
		return f.err
	}
	f.entries = append(f.entries, entry)
	return nil
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newTestLedger() *Ledger {
	l := NewLedger()
	n := 0
	l.newID = func() string { n++; return string(rune('a' + n - 1)) }
	l.now = func() time.Time { return time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC) }
	return l
}

func TestApplyDeltas_Empty(t *testing.T) {
	entries, err := newTestLedger().ApplyDeltas(context.Background(), &fakeStock{}, &fakeAudit{}, nil)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestApplyDeltas_DebitAndCredit(t *testing.T) {
	stock := &fakeStock{units: map[string]StockUnit{
		"flour": {ID: "flour", Name: "Flour", Quantity: dec("5000"), Unit: "g"},
		"sauce": {ID: "sauce", Name: "Sauce", Quantity: dec("300"), Unit: "g"},
	}}
	audit := &fakeAudit{}

	entries, err := newTestLedger().ApplyDeltas(context.Background(), stock, audit, []Delta{
		{StockUnitID: "flour", Quantity: dec("-600"), Reason: "add item", OrderID: "o1", LineItemID: "li1"},
		{StockUnitID: "sauce", Quantity: dec("30"), Reason: "remove item", OrderID: "o1", LineItemID: "li2"},
	})

	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, ActionDebit, entries[0].Action)
	assert.True(t, dec("5000").Equal(entries[0].Before))
	assert.True(t, dec("4400").Equal(entries[0].After))
	assert.Equal(t, "o1", entries[0].OrderID)
	assert.Equal(t, "li1", entries[0].LineItemID)

	assert.Equal(t, ActionCredit, entries[1].Action)
	assert.True(t, dec("330").Equal(entries[1].After))

	assert.True(t, dec("4400").Equal(stock.units["flour"].Quantity))
	assert.True(t, dec("330").Equal(stock.units["sauce"].Quantity))
	assert.Len(t, audit.entries, 2)
}

func TestApplyDeltas_FloorCheck(t *testing.T) {
	stock := &fakeStock{units: map[string]StockUnit{
		"flour": {ID: "flour", Name: "Flour", Quantity: dec("4000"), Unit: "g"},
	}}
	audit := &fakeAudit{}

	_, err := newTestLedger().ApplyDeltas(context.Background(), stock, audit, []Delta{
		{StockUnitID: "flour", Quantity: dec("-5000")},
	})

	var insErr *InsufficientStockError
	require.ErrorAs(t, err, &insErr)
	assert.Equal(t, "flour", insErr.StockUnitID)
	assert.Equal(t, "Flour", insErr.Name)
	assert.True(t, dec("5000").Equal(insErr.Required))
	assert.True(t, dec("4000").Equal(insErr.Available))

	// Nothing applied, nothing audited.
	assert.True(t, dec("4000").Equal(stock.units["flour"].Quantity))
	assert.Empty(t, audit.entries)
}

func TestApplyDeltas_DebitToExactlyZero(t *testing.T) {
	stock := &fakeStock{units: map[string]StockUnit{
		"flour": {ID: "flour", Name: "Flour", Quantity: dec("400"), Unit: "g"},
	}}

	entries, err := newTestLedger().ApplyDeltas(context.Background(), stock, &fakeAudit{}, []Delta{
		{StockUnitID: "flour", Quantity: dec("-400")},
	})

	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, stock.units["flour"].Quantity.IsZero())
}

func TestApplyDeltas_CreditNeverFails(t *testing.T) {
	stock := &fakeStock{units: map[string]StockUnit{
		"flour": {ID: "flour", Name: "Flour", Quantity: dec("0"), Unit: "g"},
	}}

	_, err := newTestLedger().ApplyDeltas(context.Background(), stock, &fakeAudit{}, []Delta{
		{StockUnitID: "flour", Quantity: dec("99999")},
	})

	require.NoError(t, err)
	assert.True(t, dec("99999").Equal(stock.units["flour"].Quantity))
}

func TestApplyDeltas_UnknownStockUnit(t *testing.T) {
	stock := &fakeStock{units: map[string]StockUnit{}}

	_, err := newTestLedger().ApplyDeltas(context.Background(), stock, &fakeAudit{}, []Delta{
		{StockUnitID: "ghost", Quantity: dec("-1")},
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "stock unit ghost not found")
}

func TestApplyDeltas_AuditWriteFailureAborts(t *testing.T) {
	stock := &fakeStock{units: map[string]StockUnit{
		"flour": {ID: "flour", Name: "Flour", Quantity: dec("1000"), Unit: "g"},
	}}
	audit := &fakeAudit{err: errors.New("audit table gone")}

	_, err := newTestLedger().ApplyDeltas(context.Background(), stock, audit, []Delta{
		{StockUnitID: "flour", Quantity: dec("-100")},
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "append audit entry")
}

func TestInsufficientStockError_Message(t *testing.T) {
	err := &InsufficientStockError{
		StockUnitID: "flour",
		Name:        "Flour",
		Required:    dec("6000"),
		Available:   dec("4000"),
	}
	assert.Equal(t, "insufficient stock of Flour: required 6000, available 4000", err.Error())
}
