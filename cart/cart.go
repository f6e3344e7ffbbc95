// Package cart holds the shopper's cart: one line per (product, size) with
// write-through persistence under the "cart" key.
package cart

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/stevemurr/storefront/entity"
	"github.com/stevemurr/storefront/fault"
	"github.com/stevemurr/storefront/store"
	"github.com/stevemurr/storefront/toast"
)

// Key is the durable key of the cart.
const Key = "cart"

// DefaultShippingFee is the flat fee shown on the cart page.
var DefaultShippingFee = decimal.RequireFromString("10.00")

// Line is one cart entry. Display fields are copied from the product when it
// is added, so the line survives the product's later removal from the catalog.
type Line struct {
	ProductID string  `json:"id"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	Image     string  `json:"image"`
	Quantity  int     `json:"quantity"`
	Size      string  `json:"selectedSize,omitempty"`
}

// Key returns the line's composite key.
func (l Line) Key() LineKey {
	return LineKey{ProductID: l.ProductID, Size: l.Size}
}

// Amount is price × quantity.
func (l Line) Amount() decimal.Decimal {
	return decimal.NewFromFloat(l.Price).Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// LineKey identifies a line: a product id plus an optional size.
type LineKey struct {
	ProductID string
	Size      string
}

// String formats the key as "PRD001" or "PRD001/M".
func (k LineKey) String() string {
	if k.Size == "" {
		return k.ProductID
	}
	return k.ProductID + "/" + k.Size
}

// ParseKey is the inverse of LineKey.String.
func ParseKey(s string) LineKey {
	id, size, _ := strings.Cut(s, "/")
	return LineKey{ProductID: id, Size: size}
}

// Item is the product data the cart needs to add a line.
type Item struct {
	ID    string
	Name  string
	Price float64
	Image string
}

// Summary is the cart total block: subtotal, shipping and total.
type Summary struct {
	Items    int             `json:"items"`
	Subtotal decimal.Decimal `json:"subtotal"`
	Shipping decimal.Decimal `json:"shipping"`
	Total    decimal.Decimal `json:"total"`
}

// Options carries a store's collaborators. Zero values are usable.
type Options struct {
	Logger          *slog.Logger
	Toasts          toast.Sink
	Instrumentation entity.Instrumentation
}

// Store is the cart. Safe for concurrent use.
type Store struct {
	lines  *entity.Store[[]Line]
	toasts toast.Sink
}

// Open loads the cart from medium. A missing or corrupt value yields an
// empty cart.
func Open(medium store.Store, opts Options) *Store {
	if opts.Toasts == nil {
		opts.Toasts = toast.Discard
	}
	return &Store{
		lines: entity.Open(medium, entity.Config[[]Line]{
			Key:             Key,
			Default:         func() []Line { return []Line{} },
			Clone:           func(l []Line) []Line { return slices.Clone(l) },
			Logger:          opts.Logger,
			Instrumentation: opts.Instrumentation,
		}),
		toasts: opts.Toasts,
	}
}

// Add puts one unit of item into the cart. An existing line with the same
// product and size has its quantity incremented; otherwise a new line with
// quantity 1 is appended.
func (s *Store) Add(item Item, size string) error {
	const op = "cart.add"
	if item.ID == "" || item.Price < 0 {
		err := fault.Invalid(op, fmt.Errorf("product id required and price must not be negative"))
		s.toasts.Show(toast.Error("Could not add item to cart"))
		return err
	}
	merged := false
	err := s.lines.Mutate(op, func(lines []Line) ([]Line, error) {
		key := LineKey{ProductID: item.ID, Size: size}
		if i := index(lines, key); i >= 0 {
			lines[i].Quantity++
			merged = true
			return lines, nil
		}
		return append(lines, Line{
			ProductID: item.ID,
			Name:      item.Name,
			Price:     item.Price,
			Image:     item.Image,
			Quantity:  1,
			Size:      size,
		}), nil
	})
	if merged {
		s.report(err, "Updated "+item.Name+" quantity")
	} else {
		s.report(err, "Added "+item.Name+" to cart")
	}
	return err
}

// RemoveProduct drops every line of productID, whatever its size. Removing
// an absent product is a no-op.
func (s *Store) RemoveProduct(productID string) error {
	name, ok := s.productName(productID)
	if !ok {
		return nil
	}
	err := s.lines.Mutate("cart.remove_product", func(lines []Line) ([]Line, error) {
		return slices.DeleteFunc(lines, func(l Line) bool { return l.ProductID == productID }), nil
	})
	s.report(err, "Removed "+name+" from cart")
	return err
}

// SetQuantity sets the quantity of every line of productID. n < 1 removes
// the product.
func (s *Store) SetQuantity(productID string, n int) error {
	if n < 1 {
		return s.RemoveProduct(productID)
	}
	name, ok := s.productName(productID)
	if !ok {
		return nil
	}
	err := s.lines.Mutate("cart.set_quantity", func(lines []Line) ([]Line, error) {
		for i := range lines {
			if lines[i].ProductID == productID {
				lines[i].Quantity = n
			}
		}
		return lines, nil
	})
	s.report(err, "Updated "+name+" quantity")
	return err
}

// Remove drops exactly the line identified by key. Removing an absent line
// is a no-op.
func (s *Store) Remove(key LineKey) error {
	line, ok := s.Line(key)
	if !ok {
		return nil
	}
	err := s.lines.Mutate("cart.remove", func(lines []Line) ([]Line, error) {
		return slices.DeleteFunc(lines, func(l Line) bool { return l.Key() == key }), nil
	})
	s.report(err, "Removed "+line.Name+" from cart")
	return err
}

// SetLineQuantity sets the quantity of the line identified by key. n < 1
// removes it. Fails with fault.KindNotFound if there is no such line.
func (s *Store) SetLineQuantity(key LineKey, n int) error {
	const op = "cart.set_line_quantity"
	if n < 1 {
		if _, ok := s.Line(key); !ok {
			return s.notFound(op, key)
		}
		return s.Remove(key)
	}
	var name string
	err := s.lines.Mutate(op, func(lines []Line) ([]Line, error) {
		i := index(lines, key)
		if i < 0 {
			return nil, fault.NotFound(op, key.String())
		}
		lines[i].Quantity = n
		name = lines[i].Name
		return lines, nil
	})
	s.report(err, "Updated "+name+" quantity")
	return err
}

// Clear empties the cart.
func (s *Store) Clear() error {
	err := s.lines.Mutate("cart.clear", func([]Line) ([]Line, error) {
		return []Line{}, nil
	})
	s.report(err, "Cart cleared")
	return err
}

// Lines returns a copy of the cart lines in insertion order.
func (s *Store) Lines() []Line {
	return s.lines.Snapshot()
}

// Line returns the line identified by key.
func (s *Store) Line(key LineKey) (Line, bool) {
	lines := s.lines.Snapshot()
	if i := index(lines, key); i >= 0 {
		return lines[i], true
	}
	return Line{}, false
}

// TotalAmount is the sum of price × quantity over all lines.
func (s *Store) TotalAmount() decimal.Decimal {
	return Total(s.lines.Snapshot())
}

// ItemCount is the sum of quantities over all lines.
func (s *Store) ItemCount() int {
	return Count(s.lines.Snapshot())
}

// Summary computes the cart total block. The shipping fee applies only to a
// non-empty cart.
func (s *Store) Summary(shippingFee decimal.Decimal) Summary {
	return Summarize(s.lines.Snapshot(), shippingFee)
}

// Subscribe registers fn for every cart change.
func (s *Store) Subscribe(fn func([]Line)) (unsubscribe func()) {
	return s.lines.Subscribe(fn)
}

// Total sums price × quantity over lines.
func Total(lines []Line) decimal.Decimal {
	sum := decimal.Zero
	for _, l := range lines {
		sum = sum.Add(l.Amount())
	}
	return sum
}

// Count sums quantities over lines.
func Count(lines []Line) int {
	n := 0
	for _, l := range lines {
		n += l.Quantity
	}
	return n
}

// Summarize builds a Summary from lines.
func Summarize(lines []Line, shippingFee decimal.Decimal) Summary {
	sum := Summary{Items: Count(lines), Subtotal: Total(lines), Shipping: decimal.Zero}
	if len(lines) > 0 {
		sum.Shipping = shippingFee
	}
	sum.Total = sum.Subtotal.Add(sum.Shipping)
	return sum
}

func index(lines []Line, key LineKey) int {
	return slices.IndexFunc(lines, func(l Line) bool { return l.Key() == key })
}

func (s *Store) productName(productID string) (string, bool) {
	for _, l := range s.lines.Snapshot() {
		if l.ProductID == productID {
			return l.Name, true
		}
	}
	return "", false
}

func (s *Store) notFound(op string, key LineKey) error {
	s.toasts.Show(toast.Error("Item not found in cart"))
	return fault.NotFound(op, key.String())
}

// report shows success on nil, and an error toast otherwise. A persistence
// failure still shows the error: the change is live but was not saved.
func (s *Store) report(err error, success string) {
	if err == nil {
		s.toasts.Show(toast.Success(success))
		return
	}
	s.reportFailure(err)
}

func (s *Store) reportFailure(err error) {
	if err == nil {
		return
	}
	switch fault.KindOf(err) {
	case fault.KindPersistence:
		s.toasts.Show(toast.Error("Cart could not be saved"))
	case fault.KindNotFound:
		s.toasts.Show(toast.Error("Item not found in cart"))
	default:
		s.toasts.Show(toast.Error("Something went wrong"))
	}
}
