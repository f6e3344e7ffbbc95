package cart_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stevemurr/storefront/cart"
	"github.com/stevemurr/storefront/fault"
	"github.com/stevemurr/storefront/store"
	"github.com/stevemurr/storefront/toast"
)

var (
	tshirt = cart.Item{ID: "PRD001", Name: "Cotton T-Shirt", Price: 10, Image: "tshirt.jpg"}
	jeans  = cart.Item{ID: "PRD002", Name: "Denim Jeans", Price: 5}
)

func newCart(t *testing.T) (*cart.Store, store.Store, *toast.Recorder) {
	t.Helper()
	medium := store.NewMemoryStore()
	rec := &toast.Recorder{}
	return cart.Open(medium, cart.Options{Toasts: rec}), medium, rec
}

func TestAddSameProductAndSizeMerges(t *testing.T) {
	c, _, rec := newCart(t)
	require.NoError(t, c.Add(tshirt, "M"))
	require.NoError(t, c.Add(tshirt, "M"))

	lines := c.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, 2, lines[0].Quantity)
	assert.Equal(t, []toast.Message{
		toast.Success("Added Cotton T-Shirt to cart"),
		toast.Success("Updated Cotton T-Shirt quantity"),
	}, rec.Messages())
}

func TestAddDifferentSizesKeepsSeparateLines(t *testing.T) {
	c, _, _ := newCart(t)
	require.NoError(t, c.Add(tshirt, "M"))
	require.NoError(t, c.Add(tshirt, "L"))
	require.NoError(t, c.Add(tshirt, ""))

	lines := c.Lines()
	require.Len(t, lines, 3)
	assert.Equal(t, cart.LineKey{ProductID: "PRD001", Size: "M"}, lines[0].Key())
	assert.Equal(t, cart.LineKey{ProductID: "PRD001", Size: "L"}, lines[1].Key())
	assert.Equal(t, cart.LineKey{ProductID: "PRD001"}, lines[2].Key())
}

func TestAddCopiesDisplayFields(t *testing.T) {
	c, _, _ := newCart(t)
	require.NoError(t, c.Add(tshirt, ""))
	line, ok := c.Line(cart.LineKey{ProductID: "PRD001"})
	require.True(t, ok)
	assert.Equal(t, cart.Line{ProductID: "PRD001", Name: "Cotton T-Shirt", Price: 10, Image: "tshirt.jpg", Quantity: 1}, line)
}

func TestAddRejectsInvalidItem(t *testing.T) {
	c, _, rec := newCart(t)
	err := c.Add(cart.Item{Name: "nameless"}, "")
	assert.ErrorIs(t, err, fault.ErrInvalidInput)
	assert.Empty(t, c.Lines())
	last, _ := rec.Last()
	assert.Equal(t, toast.LevelError, last.Level)
}

func TestTotalsAfterEveryMutation(t *testing.T) {
	c, _, _ := newCart(t)
	// [(10,2),(5,1)]
	require.NoError(t, c.Add(tshirt, ""))
	assert.True(t, decimal.NewFromInt(10).Equal(c.TotalAmount()))
	assert.Equal(t, 1, c.ItemCount())

	require.NoError(t, c.Add(tshirt, ""))
	require.NoError(t, c.Add(jeans, ""))
	assert.True(t, decimal.NewFromInt(25).Equal(c.TotalAmount()), c.TotalAmount().String())
	assert.Equal(t, 3, c.ItemCount())

	require.NoError(t, c.SetQuantity("PRD002", 0))
	assert.True(t, decimal.NewFromInt(20).Equal(c.TotalAmount()))
	assert.Equal(t, 2, c.ItemCount())
}

func TestDecimalTotalsAreExact(t *testing.T) {
	c, _, _ := newCart(t)
	item := cart.Item{ID: "P", Name: "Dime", Price: 0.1}
	for i := 0; i < 3; i++ {
		require.NoError(t, c.Add(item, ""))
	}
	assert.Equal(t, "0.3", c.TotalAmount().String())
}

func TestSetQuantityZeroRemovesLine(t *testing.T) {
	c, _, rec := newCart(t)
	require.NoError(t, c.Add(tshirt, ""))
	require.NoError(t, c.SetQuantity("PRD001", 0))
	assert.Empty(t, c.Lines())
	last, _ := rec.Last()
	assert.Equal(t, toast.Success("Removed Cotton T-Shirt from cart"), last)
}

func TestSetQuantityAppliesToAllSizes(t *testing.T) {
	c, _, rec := newCart(t)
	require.NoError(t, c.Add(tshirt, "M"))
	require.NoError(t, c.Add(tshirt, "L"))
	require.NoError(t, c.SetQuantity("PRD001", 4))
	for _, l := range c.Lines() {
		assert.Equal(t, 4, l.Quantity)
	}
	last, _ := rec.Last()
	assert.Equal(t, toast.Success("Updated Cotton T-Shirt quantity"), last)
	// Unknown product is a no-op.
	require.NoError(t, c.SetQuantity("PRD404", 2))
	assert.Len(t, c.Lines(), 2)
}

func TestRemoveProductDropsAllSizes(t *testing.T) {
	c, _, _ := newCart(t)
	require.NoError(t, c.Add(tshirt, "M"))
	require.NoError(t, c.Add(tshirt, "L"))
	require.NoError(t, c.Add(jeans, ""))
	require.NoError(t, c.RemoveProduct("PRD001"))
	lines := c.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, "PRD002", lines[0].ProductID)

	require.NoError(t, c.RemoveProduct("PRD001"), "absent product is a no-op")
}

func TestRemoveIsSizeAware(t *testing.T) {
	c, _, _ := newCart(t)
	require.NoError(t, c.Add(tshirt, "M"))
	require.NoError(t, c.Add(tshirt, "L"))

	require.NoError(t, c.Remove(cart.LineKey{ProductID: "PRD001", Size: "M"}))
	lines := c.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, "L", lines[0].Size)

	require.NoError(t, c.Remove(cart.LineKey{ProductID: "PRD001", Size: "M"}))
	assert.Len(t, c.Lines(), 1)
}

func TestSetLineQuantity(t *testing.T) {
	c, _, rec := newCart(t)
	require.NoError(t, c.Add(tshirt, "M"))
	require.NoError(t, c.Add(tshirt, "L"))

	m := cart.LineKey{ProductID: "PRD001", Size: "M"}
	require.NoError(t, c.SetLineQuantity(m, 3))
	line, _ := c.Line(m)
	assert.Equal(t, 3, line.Quantity)
	last, _ := rec.Last()
	assert.Equal(t, toast.Success("Updated Cotton T-Shirt quantity"), last)
	other, _ := c.Line(cart.LineKey{ProductID: "PRD001", Size: "L"})
	assert.Equal(t, 1, other.Quantity)

	require.NoError(t, c.SetLineQuantity(m, 0))
	_, ok := c.Line(m)
	assert.False(t, ok)

	err := c.SetLineQuantity(m, 2)
	assert.ErrorIs(t, err, fault.ErrNotFound)
	err = c.SetLineQuantity(m, 0)
	assert.ErrorIs(t, err, fault.ErrNotFound)
}

func TestClear(t *testing.T) {
	c, medium, rec := newCart(t)
	require.NoError(t, c.Add(tshirt, ""))
	require.NoError(t, c.Clear())
	assert.Empty(t, c.Lines())
	raw, _ := medium.Get(cart.Key)
	assert.JSONEq(t, `[]`, string(raw))
	last, _ := rec.Last()
	assert.Equal(t, toast.Success("Cart cleared"), last)
}

func TestPersistedFormat(t *testing.T) {
	c, medium, _ := newCart(t)
	require.NoError(t, c.Add(tshirt, "M"))
	require.NoError(t, c.Add(jeans, ""))
	raw, err := medium.Get(cart.Key)
	require.NoError(t, err)
	assert.JSONEq(t, `[
		{"id":"PRD001","name":"Cotton T-Shirt","price":10,"image":"tshirt.jpg","quantity":1,"selectedSize":"M"},
		{"id":"PRD002","name":"Denim Jeans","price":5,"image":"","quantity":1}
	]`, string(raw))
}

func TestReopenRoundTrip(t *testing.T) {
	c, medium, _ := newCart(t)
	require.NoError(t, c.Add(tshirt, "M"))
	require.NoError(t, c.Add(tshirt, "M"))
	require.NoError(t, c.Add(jeans, ""))

	again := cart.Open(medium, cart.Options{})
	assert.Equal(t, c.Lines(), again.Lines())
}

func TestCorruptValueOpensEmpty(t *testing.T) {
	medium := store.NewMemoryStore()
	require.NoError(t, medium.Put(cart.Key, []byte(`{"oops":`)))
	c := cart.Open(medium, cart.Options{})
	assert.Empty(t, c.Lines())
	assert.Equal(t, 0, c.ItemCount())
}

func TestSummary(t *testing.T) {
	c, _, _ := newCart(t)
	empty := c.Summary(cart.DefaultShippingFee)
	assert.True(t, empty.Total.IsZero())
	assert.True(t, empty.Shipping.IsZero())

	require.NoError(t, c.Add(tshirt, ""))
	require.NoError(t, c.Add(jeans, ""))
	sum := c.Summary(cart.DefaultShippingFee)
	assert.Equal(t, 2, sum.Items)
	assert.Equal(t, "15.00", sum.Subtotal.StringFixed(2))
	assert.Equal(t, "10.00", sum.Shipping.StringFixed(2))
	assert.Equal(t, "25.00", sum.Total.StringFixed(2))
}

func TestPersistFailureKeepsCartInMemory(t *testing.T) {
	medium, err := store.NewQuota(store.NewMemoryStore(), 16)
	require.NoError(t, err)
	rec := &toast.Recorder{}
	c := cart.Open(medium, cart.Options{Toasts: rec})

	var seen [][]cart.Line
	c.Subscribe(func(l []cart.Line) { seen = append(seen, l) })

	err = c.Add(tshirt, "")
	assert.ErrorIs(t, err, fault.ErrPersistence)
	assert.Len(t, c.Lines(), 1)
	require.Len(t, seen, 1)
	assert.Len(t, seen[0], 1)
	last, _ := rec.Last()
	assert.Equal(t, toast.Error("Cart could not be saved"), last)
}

func TestParseKey(t *testing.T) {
	assert.Equal(t, cart.LineKey{ProductID: "PRD001", Size: "M"}, cart.ParseKey("PRD001/M"))
	assert.Equal(t, cart.LineKey{ProductID: "PRD001"}, cart.ParseKey("PRD001"))
	k := cart.LineKey{ProductID: "PRD9", Size: "XL"}
	assert.Equal(t, k, cart.ParseKey(k.String()))
}
