// Package storefront wires the medium and the entity stores together and
// enforces the rules that span more than one store: adding catalog products
// to the cart, checkout, and admin-only operations.
package storefront

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"

	"github.com/stevemurr/storefront/cart"
	"github.com/stevemurr/storefront/catalog"
	"github.com/stevemurr/storefront/clock"
	"github.com/stevemurr/storefront/config"
	"github.com/stevemurr/storefront/fault"
	"github.com/stevemurr/storefront/orders"
	"github.com/stevemurr/storefront/session"
	"github.com/stevemurr/storefront/store"
	"github.com/stevemurr/storefront/telemetry"
	"github.com/stevemurr/storefront/toast"
)

// ShippingInfo is the checkout form.
type ShippingInfo = orders.Address

// Option overrides a collaborator chosen by Open.
type Option func(*Storefront)

// WithMedium uses medium instead of building one from the config. Close
// still closes it.
func WithMedium(medium store.Store) Option {
	return func(s *Storefront) { s.medium = medium }
}

// WithClock sets the time source for ids and timestamps.
func WithClock(c clock.Clock) Option {
	return func(s *Storefront) { s.clock = c }
}

// WithToasts sets the toast sink.
func WithToasts(sink toast.Sink) Option {
	return func(s *Storefront) { s.toasts = sink }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Storefront) { s.log = logger }
}

// WithRegistry registers store metrics on reg. By default each Storefront
// gets a private registry, available from Gatherer.
func WithRegistry(reg prometheus.Registerer) Option {
	return func(s *Storefront) { s.registry = reg }
}

// Storefront owns the medium and every store built on it.
type Storefront struct {
	Catalog *catalog.Store
	Cart    *cart.Store
	Session *session.Store
	Orders  *orders.Store

	medium   store.Store
	clock    clock.Clock
	toasts   toast.Sink
	log      *slog.Logger
	registry prometheus.Registerer
	gatherer prometheus.Gatherer
	metrics  *telemetry.Recorder
	shipping decimal.Decimal
}

// Open builds the medium described by cfg (unless WithMedium is given) and
// loads every store from it.
func Open(ctx context.Context, cfg config.Config, opts ...Option) (*Storefront, error) {
	fee, err := cfg.ShippingFee()
	if err != nil {
		return nil, err
	}
	if err := cfg.Metrics.Validate(); err != nil {
		return nil, err
	}
	s := &Storefront{shipping: fee}
	for _, opt := range opts {
		opt(s)
	}
	if s.clock == nil {
		s.clock = clock.System
	}
	if s.toasts == nil {
		s.toasts = toast.Discard
	}
	if s.log == nil {
		s.log = slog.Default()
	}
	if s.registry == nil {
		reg := prometheus.NewRegistry()
		s.registry, s.gatherer = reg, reg
	} else if g, ok := s.registry.(prometheus.Gatherer); ok {
		s.gatherer = g
	}
	if s.medium == nil {
		s.medium, err = store.New(ctx, cfg.StoreOptions())
		if err != nil {
			return nil, fmt.Errorf("failed to create store (backend=%s): %w", cfg.Store.Backend, err)
		}
	}

	metricOpts := []telemetry.Option{
		telemetry.WithNamespace(cfg.Metrics.Namespace),
		telemetry.WithRegistry(s.registry),
		telemetry.WithTracerName(cfg.Metrics.TracerName),
	}
	if len(cfg.Metrics.Buckets) > 0 {
		metricOpts = append(metricOpts, telemetry.WithBuckets(cfg.Metrics.Buckets))
	}
	s.metrics = telemetry.New(metricOpts...)

	s.Catalog = catalog.Open(s.medium, catalog.Options{
		Clock: s.clock, Logger: s.log, Toasts: s.toasts, Instrumentation: s.metrics,
	})
	s.Cart = cart.Open(s.medium, cart.Options{
		Logger: s.log, Toasts: s.toasts, Instrumentation: s.metrics,
	})
	s.Orders = orders.Open(s.medium, orders.Options{
		Clock: s.clock, Logger: s.log, Toasts: s.toasts, Instrumentation: s.metrics,
	})
	s.Session, err = session.Open(s.medium, session.Options{
		AdminCode:            cfg.Admin.Code,
		DefaultAdminEmail:    cfg.Admin.Email,
		DefaultAdminPassword: cfg.Admin.Password,
		DefaultAdminName:     cfg.Admin.Name,
		Hasher:               session.Hasher{Cost: cfg.Admin.BcryptCost},
		Logger:               s.log,
		Toasts:               s.toasts,
		Instrumentation:      s.metrics,
	})
	if err != nil {
		s.medium.Close()
		return nil, err
	}
	s.log.Debug("storefront opened", "backend", cfg.Store.Backend)
	return s, nil
}

// Close closes the medium.
func (s *Storefront) Close() error {
	return s.medium.Close()
}

// Gatherer exposes the store metrics, or nil when the registry passed to
// WithRegistry cannot be gathered.
func (s *Storefront) Gatherer() prometheus.Gatherer {
	return s.gatherer
}

// ShippingFee is the flat fee added to non-empty carts.
func (s *Storefront) ShippingFee() decimal.Decimal {
	return s.shipping
}

// CartSummary totals the cart with the configured shipping fee.
func (s *Storefront) CartSummary() cart.Summary {
	return s.Cart.Summary(s.shipping)
}

// AddToCart adds one unit of a catalog product. Only active products can be
// bought; the line copies the product's name, price and first image.
func (s *Storefront) AddToCart(productID, size string) error {
	const op = "storefront.add_to_cart"
	p, ok := s.Catalog.Get(productID)
	if !ok {
		s.toasts.Show(toast.Error("Product not found"))
		return fault.NotFound(op, productID)
	}
	if p.Status != catalog.StatusActive {
		s.toasts.Show(toast.Error(p.Name + " is not available"))
		return fault.Invalid(op, fmt.Errorf("product %q is %s", productID, p.Status))
	}
	return s.Cart.Add(cart.Item{
		ID:    p.ID,
		Name:  p.Name,
		Price: p.Price,
		Image: p.FirstImage(),
	}, size)
}

// Checkout turns the cart into a pending order for the logged-in user and
// empties the cart. The cart is kept when the order is rejected. When the
// order is placed but cannot be persisted the cart is still emptied and the
// persistence error is returned with the order.
func (s *Storefront) Checkout(info ShippingInfo) (orders.Order, error) {
	const op = "storefront.checkout"
	user, err := s.Session.RequireUser(op)
	if err != nil {
		s.toasts.Show(toast.Error("Please log in to checkout"))
		return orders.Order{}, err
	}
	lines := s.Cart.Lines()
	if len(lines) == 0 {
		s.toasts.Show(toast.Error("Your cart is empty"))
		return orders.Order{}, fault.New(fault.KindEmptyCart, op, "cart is empty")
	}
	if err := info.Validate(); err != nil {
		s.toasts.Show(toast.Error("Please fill in all shipping fields"))
		return orders.Order{}, fault.Invalid(op, err)
	}

	sum := cart.Summarize(lines, s.shipping)
	items := make([]orders.Item, len(lines))
	for i, l := range lines {
		items[i] = orders.Item{
			ProductID: l.ProductID,
			Name:      l.Name,
			Price:     l.Price,
			Quantity:  l.Quantity,
			Size:      l.Size,
		}
	}
	name := user.Name
	if name == "" {
		name = info.FullName
	}
	order, err := s.Orders.Place(orders.Draft{
		CustomerID:   user.ID,
		CustomerName: name,
		Email:        info.Email,
		Items:        items,
		Subtotal:     sum.Subtotal,
		Shipping:     sum.Shipping,
		ShipTo:       info,
	})
	// A persistence failure still leaves the order placed in memory.
	if err != nil && fault.KindOf(err) != fault.KindPersistence {
		return order, err
	}
	placeErr := err
	if err := s.Cart.Clear(); err != nil && placeErr == nil {
		return order, err
	}
	s.log.Info("order placed", "order", order.ID, "customer", user.ID, "amount", order.Amount)
	if placeErr != nil {
		return order, placeErr
	}
	s.toasts.Show(toast.Success("Payment confirmed"))
	return order, nil
}

// MyOrders lists the logged-in user's orders.
func (s *Storefront) MyOrders() ([]orders.Order, error) {
	user, err := s.Session.RequireUser("storefront.my_orders")
	if err != nil {
		s.toasts.Show(toast.Error("Please log in to view your orders"))
		return nil, err
	}
	return s.Orders.ByCustomer(user.ID), nil
}

func (s *Storefront) requireAdmin(op string) error {
	err := s.Session.RequireAdmin(op)
	switch fault.KindOf(err) {
	case fault.KindUnauthenticated:
		s.toasts.Show(toast.Error("Please log in as an admin"))
	case fault.KindForbidden:
		s.toasts.Show(toast.Error("Admin access required"))
	}
	return err
}

// AddProduct adds a catalog product. Admin only.
func (s *Storefront) AddProduct(in catalog.FormInput) (catalog.Product, error) {
	if err := s.requireAdmin("storefront.add_product"); err != nil {
		return catalog.Product{}, err
	}
	return s.Catalog.Add(in)
}

// UpdateProduct patches catalog product id. Admin only.
func (s *Storefront) UpdateProduct(id string, patch catalog.Patch) (catalog.Product, error) {
	if err := s.requireAdmin("storefront.update_product"); err != nil {
		return catalog.Product{}, err
	}
	return s.Catalog.Update(id, patch)
}

// DeleteProduct removes catalog product id. Admin only.
func (s *Storefront) DeleteProduct(id string) error {
	if err := s.requireAdmin("storefront.delete_product"); err != nil {
		return err
	}
	return s.Catalog.Delete(id)
}

// SetOrderStatus moves order id to status. Admin only.
func (s *Storefront) SetOrderStatus(id string, status orders.Status) (orders.Order, error) {
	if err := s.requireAdmin("storefront.set_order_status"); err != nil {
		return orders.Order{}, err
	}
	return s.Orders.SetStatus(id, status)
}

// AllOrders lists every order. Admin only.
func (s *Storefront) AllOrders() ([]orders.Order, error) {
	if err := s.requireAdmin("storefront.orders"); err != nil {
		return nil, err
	}
	return s.Orders.Orders(), nil
}

// Stats is the admin dashboard summary.
type Stats struct {
	Products       int             `json:"products"`
	Orders         int             `json:"orders"`
	Customers      int             `json:"customers"`
	Revenue        decimal.Decimal `json:"revenue"`
	InventoryValue decimal.Decimal `json:"inventoryValue"`
	LowStock       int             `json:"lowStock"`
}

// Dashboard computes Stats. Admin only.
func (s *Storefront) Dashboard() (Stats, error) {
	if err := s.requireAdmin("storefront.dashboard"); err != nil {
		return Stats{}, err
	}
	return Stats{
		Products:       s.Catalog.Count(),
		Orders:         s.Orders.Count(),
		Customers:      len(s.Session.Accounts(session.RoleCustomer)),
		Revenue:        s.Orders.Revenue(),
		InventoryValue: s.Catalog.InventoryValue(),
		LowStock:       len(s.Catalog.LowStock()),
	}, nil
}
