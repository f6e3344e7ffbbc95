// Package orders records placed orders under the "demo_orders" key and lets
// admins move them through their fulfilment states.
package orders

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/stevemurr/storefront/clock"
	"github.com/stevemurr/storefront/entity"
	"github.com/stevemurr/storefront/fault"
	"github.com/stevemurr/storefront/store"
	"github.com/stevemurr/storefront/toast"
)

// Key is the durable key of the order list.
const Key = "demo_orders"

// IDPrefix precedes the millisecond stamp in order ids.
const IDPrefix = "ORD"

// Status is an order's fulfilment state.
type Status string

const (
	StatusPending    Status = "Pending"
	StatusProcessing Status = "Processing"
	StatusShipped    Status = "Shipped"
	StatusDelivered  Status = "Delivered"
)

// Statuses lists every valid status in fulfilment order.
var Statuses = []Status{StatusPending, StatusProcessing, StatusShipped, StatusDelivered}

// ParseStatus matches s against Statuses, ignoring case.
func ParseStatus(s string) (Status, error) {
	for _, st := range Statuses {
		if strings.EqualFold(string(st), strings.TrimSpace(s)) {
			return st, nil
		}
	}
	return "", fmt.Errorf("unknown order status %q", s)
}

// Item is one purchased line.
type Item struct {
	ProductID string  `json:"id"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	Quantity  int     `json:"quantity"`
	Size      string  `json:"size,omitempty"`
}

// Address is the checkout shipping form.
type Address struct {
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	Address  string `json:"address"`
	City     string `json:"city"`
	ZipCode  string `json:"zipCode"`
}

// Validate requires every field to be non-blank.
func (a Address) Validate() error {
	var missing []string
	for _, f := range []struct{ name, value string }{
		{"fullName", a.FullName},
		{"email", a.Email},
		{"address", a.Address},
		{"city", a.City},
		{"zipCode", a.ZipCode},
	} {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing shipping fields: %s", strings.Join(missing, ", "))
	}
	return nil
}

// Order is a placed order. Amounts are stored as JSON numbers; arithmetic
// on them goes through decimal.
type Order struct {
	ID           string    `json:"id"`
	CustomerID   string    `json:"customerId"`
	CustomerName string    `json:"customerName"`
	Email        string    `json:"email"`
	Items        []Item    `json:"items"`
	Subtotal     float64   `json:"subtotal"`
	Shipping     float64   `json:"shipping"`
	Amount       float64   `json:"amount"`
	Status       Status    `json:"status"`
	ShipTo       Address   `json:"shipTo"`
	CreatedAt    time.Time `json:"date"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func (o Order) clone() Order {
	o.Items = slices.Clone(o.Items)
	return o
}

// Draft is an order before it is placed.
type Draft struct {
	CustomerID   string
	CustomerName string
	Email        string
	Items        []Item
	Subtotal     decimal.Decimal
	Shipping     decimal.Decimal
	ShipTo       Address
}

func (d Draft) validate() error {
	var errs []error
	if len(d.Items) == 0 {
		errs = append(errs, errors.New("order has no items"))
	}
	for _, it := range d.Items {
		if it.ProductID == "" || it.Quantity < 1 {
			errs = append(errs, fmt.Errorf("invalid item %q", it.ProductID))
		}
	}
	if d.Subtotal.IsNegative() || d.Shipping.IsNegative() {
		errs = append(errs, errors.New("amounts must not be negative"))
	}
	if err := d.ShipTo.Validate(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Options carries a store's collaborators. Zero values are usable.
type Options struct {
	Clock           clock.Clock
	Logger          *slog.Logger
	Toasts          toast.Sink
	Instrumentation entity.Instrumentation
}

// Store is the order list, most recent first. Safe for concurrent use.
type Store struct {
	orders *entity.Store[[]Order]
	clock  clock.Clock
	ids    *clock.Sequence
	toasts toast.Sink
}

// Open loads the order list from medium.
func Open(medium store.Store, opts Options) *Store {
	if opts.Clock == nil {
		opts.Clock = clock.System
	}
	if opts.Toasts == nil {
		opts.Toasts = toast.Discard
	}
	s := &Store{
		orders: entity.Open(medium, entity.Config[[]Order]{
			Key:     Key,
			Default: func() []Order { return []Order{} },
			Clone: func(list []Order) []Order {
				out := make([]Order, len(list))
				for i, o := range list {
					out[i] = o.clone()
				}
				return out
			},
			Logger:          opts.Logger,
			Instrumentation: opts.Instrumentation,
		}),
		clock:  opts.Clock,
		ids:    clock.NewSequence(opts.Clock),
		toasts: opts.Toasts,
	}
	for _, o := range s.orders.Snapshot() {
		if ms, err := strconv.ParseInt(strings.TrimPrefix(o.ID, IDPrefix), 10, 64); err == nil {
			s.ids.Observe(ms)
		}
	}
	return s
}

// Place records d as a new pending order and returns it.
func (s *Store) Place(d Draft) (Order, error) {
	const op = "orders.place"
	if err := d.validate(); err != nil {
		s.toasts.Show(toast.Error("Order could not be placed"))
		return Order{}, fault.Invalid(op, err)
	}
	now := s.clock.Now()
	o := Order{
		ID:           IDPrefix + strconv.FormatInt(s.ids.Next(), 10),
		CustomerID:   d.CustomerID,
		CustomerName: d.CustomerName,
		Email:        d.Email,
		Items:        slices.Clone(d.Items),
		Subtotal:     d.Subtotal.InexactFloat64(),
		Shipping:     d.Shipping.InexactFloat64(),
		Amount:       d.Subtotal.Add(d.Shipping).InexactFloat64(),
		Status:       StatusPending,
		ShipTo:       d.ShipTo,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	err := s.orders.Mutate(op, func(list []Order) ([]Order, error) {
		return append([]Order{o.clone()}, list...), nil
	})
	if err != nil {
		s.toasts.Show(toast.Error("Order could not be saved"))
		return o, err
	}
	s.toasts.Show(toast.Success("Order " + o.ID + " placed"))
	return o, nil
}

// SetStatus moves order id to status.
func (s *Store) SetStatus(id string, status Status) (Order, error) {
	const op = "orders.set_status"
	if !slices.Contains(Statuses, status) {
		s.toasts.Show(toast.Error("Unknown order status"))
		return Order{}, fault.Invalid(op, fmt.Errorf("unknown order status %q", status))
	}
	var updated Order
	err := s.orders.Mutate(op, func(list []Order) ([]Order, error) {
		i := slices.IndexFunc(list, func(o Order) bool { return o.ID == id })
		if i < 0 {
			return nil, fault.NotFound(op, id)
		}
		list[i].Status = status
		list[i].UpdatedAt = clock.Later(s.clock.Now(), list[i].UpdatedAt)
		updated = list[i].clone()
		return list, nil
	})
	switch fault.KindOf(err) {
	case fault.KindNotFound:
		s.toasts.Show(toast.Error("Order not found"))
		return Order{}, err
	case fault.KindPersistence:
		s.toasts.Show(toast.Error("Order could not be saved"))
		return updated, err
	}
	s.toasts.Show(toast.Success("Order status updated"))
	return updated, nil
}

// Orders returns every order, most recent first.
func (s *Store) Orders() []Order {
	return s.orders.Snapshot()
}

// Get returns order id.
func (s *Store) Get(id string) (Order, bool) {
	for _, o := range s.orders.Snapshot() {
		if o.ID == id {
			return o, true
		}
	}
	return Order{}, false
}

// ByStatus returns orders in the given status.
func (s *Store) ByStatus(status Status) []Order {
	var out []Order
	for _, o := range s.orders.Snapshot() {
		if o.Status == status {
			out = append(out, o)
		}
	}
	return out
}

// ByCustomer returns the orders placed by customer id.
func (s *Store) ByCustomer(customerID string) []Order {
	var out []Order
	for _, o := range s.orders.Snapshot() {
		if o.CustomerID == customerID {
			out = append(out, o)
		}
	}
	return out
}

// Search matches term against customer names and order ids, ignoring case.
func (s *Store) Search(term string) []Order {
	term = strings.ToLower(strings.TrimSpace(term))
	var out []Order
	for _, o := range s.orders.Snapshot() {
		if strings.Contains(strings.ToLower(o.CustomerName), term) || strings.Contains(strings.ToLower(o.ID), term) {
			out = append(out, o)
		}
	}
	return out
}

// Revenue sums the amount of every order.
func (s *Store) Revenue() decimal.Decimal {
	sum := decimal.Zero
	for _, o := range s.orders.Snapshot() {
		sum = sum.Add(decimal.NewFromFloat(o.Amount))
	}
	return sum
}

// Count is the number of orders.
func (s *Store) Count() int {
	return len(s.orders.Snapshot())
}

// Subscribe registers fn for every order list change.
func (s *Store) Subscribe(fn func([]Order)) (unsubscribe func()) {
	return s.orders.Subscribe(fn)
}
