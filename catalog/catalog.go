// Package catalog is the admin-managed product catalog, persisted under the
// "demo_products" key. New products are prepended, so the natural order is
// most recent first.
package catalog

import (
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/stevemurr/storefront/clock"
	"github.com/stevemurr/storefront/entity"
	"github.com/stevemurr/storefront/fault"
	"github.com/stevemurr/storefront/store"
	"github.com/stevemurr/storefront/toast"
)

// Key is the durable key of the catalog.
const Key = "demo_products"

// IDPrefix precedes the millisecond stamp in generated ids.
const IDPrefix = "PRD"

// Options carries a store's collaborators. Zero values are usable.
type Options struct {
	Clock           clock.Clock
	Logger          *slog.Logger
	Toasts          toast.Sink
	Instrumentation entity.Instrumentation
}

// Store is the product catalog. Safe for concurrent use.
type Store struct {
	products *entity.Store[[]Product]
	clock    clock.Clock
	ids      *clock.Sequence
	toasts   toast.Sink
}

// Open loads the catalog from medium. An absent or corrupt value yields the
// seed catalog; it is written out by the first mutation.
func Open(medium store.Store, opts Options) *Store {
	if opts.Clock == nil {
		opts.Clock = clock.System
	}
	if opts.Toasts == nil {
		opts.Toasts = toast.Discard
	}
	s := &Store{
		clock:  opts.Clock,
		ids:    clock.NewSequence(opts.Clock),
		toasts: opts.Toasts,
	}
	s.products = entity.Open(medium, entity.Config[[]Product]{
		Key:             Key,
		Default:         func() []Product { return Seed(opts.Clock.Now()) },
		Clone:           cloneAll,
		Logger:          opts.Logger,
		Instrumentation: opts.Instrumentation,
	})
	for _, p := range s.products.Snapshot() {
		if ms, ok := idStamp(p.ID); ok {
			s.ids.Observe(ms)
		}
	}
	return s
}

// idStamp extracts the millisecond stamp from a generated id.
func idStamp(id string) (int64, bool) {
	digits, ok := strings.CutPrefix(id, IDPrefix)
	if !ok {
		return 0, false
	}
	ms, err := strconv.ParseInt(digits, 10, 64)
	return ms, err == nil
}

// Add parses in, assigns a fresh id and timestamps, and prepends the
// product. Uploaded files become "temp_url_<stamp>_<name>" references, where
// stamp is the id's millisecond stamp.
func (s *Store) Add(in FormInput) (Product, error) {
	const op = "catalog.add"
	d, err := ParseForm(in)
	if err != nil {
		s.toasts.Show(toast.Error("Failed to add product"))
		return Product{}, fault.Invalid(op, err)
	}
	now := s.clock.Now()
	stamp := s.ids.Next()
	p := Product{
		ID:            IDPrefix + strconv.FormatInt(stamp, 10),
		Name:          d.Name,
		Description:   d.Description,
		Price:         d.Price,
		ComparePrice:  d.ComparePrice,
		Category:      d.Category,
		Stock:         d.Stock,
		LowStockAlert: d.LowStockAlert,
		Status:        d.Status,
		SKU:           d.SKU,
		Images:        make([]string, 0, len(d.Images)),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	for _, name := range d.Images {
		p.Images = append(p.Images, fmt.Sprintf("temp_url_%d_%s", stamp, name))
	}
	err = s.products.Mutate(op, func(ps []Product) ([]Product, error) {
		return append([]Product{p.Clone()}, ps...), nil
	})
	if err == nil {
		s.warnLowStock(p)
	}
	s.report(err, "Product added successfully")
	return p, err
}

// Update merges patch into product id. Fails with fault.KindNotFound when
// there is no such product and fault.KindInvalidInput when the patch breaks
// the form rules; the catalog is unchanged in both cases.
func (s *Store) Update(id string, patch Patch) (Product, error) {
	const op = "catalog.update"
	if err := patch.Validate(); err != nil {
		s.toasts.Show(toast.Error("Failed to update product"))
		return Product{}, fault.Invalid(op, err)
	}
	var updated Product
	err := s.products.Mutate(op, func(ps []Product) ([]Product, error) {
		i := slices.IndexFunc(ps, func(p Product) bool { return p.ID == id })
		if i < 0 {
			return nil, fault.NotFound(op, id)
		}
		patch.apply(&ps[i])
		ps[i].UpdatedAt = clock.Later(s.clock.Now(), ps[i].UpdatedAt)
		updated = ps[i].Clone()
		return ps, nil
	})
	if fault.KindOf(err) == fault.KindNotFound {
		s.toasts.Show(toast.Error("Product not found"))
		return Product{}, err
	}
	if err == nil {
		s.warnLowStock(updated)
	}
	s.report(err, "Product updated successfully")
	return updated, err
}

// Delete removes product id. Deleting an absent product succeeds.
func (s *Store) Delete(id string) error {
	err := s.products.Mutate("catalog.delete", func(ps []Product) ([]Product, error) {
		return slices.DeleteFunc(ps, func(p Product) bool { return p.ID == id }), nil
	})
	s.report(err, "Product deleted successfully")
	return err
}

// Get returns product id.
func (s *Store) Get(id string) (Product, bool) {
	for _, p := range s.products.Snapshot() {
		if p.ID == id {
			return p, true
		}
	}
	return Product{}, false
}

// Products returns every product, most recent first.
func (s *Store) Products() []Product {
	return s.products.Snapshot()
}

// Search returns products whose name contains term, ignoring case. An empty
// term matches everything.
func (s *Store) Search(term string) []Product {
	term = strings.ToLower(strings.TrimSpace(term))
	return s.filter(func(p Product) bool {
		return strings.Contains(strings.ToLower(p.Name), term)
	})
}

// ByStatus returns products with the given status.
func (s *Store) ByStatus(status Status) []Product {
	return s.filter(func(p Product) bool { return p.Status == status })
}

// LowStock returns products at or below their low-stock alert.
func (s *Store) LowStock() []Product {
	return s.filter(Product.LowOnStock)
}

// Count is the number of products.
func (s *Store) Count() int {
	return len(s.products.Snapshot())
}

// InventoryValue is the sum of price × stock.
func (s *Store) InventoryValue() decimal.Decimal {
	sum := decimal.Zero
	for _, p := range s.products.Snapshot() {
		sum = sum.Add(p.Value())
	}
	return sum
}

// Subscribe registers fn for every catalog change.
func (s *Store) Subscribe(fn func([]Product)) (unsubscribe func()) {
	return s.products.Subscribe(fn)
}

func (s *Store) filter(keep func(Product) bool) []Product {
	var out []Product
	for _, p := range s.products.Snapshot() {
		if keep(p) {
			out = append(out, p)
		}
	}
	return out
}

func (s *Store) warnLowStock(p Product) {
	if p.LowOnStock() {
		s.toasts.Show(toast.Warning(p.Name + " is low on stock"))
	}
}

func (s *Store) report(err error, success string) {
	if err == nil {
		s.toasts.Show(toast.Success(success))
		return
	}
	if fault.KindOf(err) == fault.KindPersistence {
		s.toasts.Show(toast.Error("Catalog could not be saved"))
		return
	}
	s.toasts.Show(toast.Error("Something went wrong"))
}
