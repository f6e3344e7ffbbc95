// Package session manages the two account registries (customers and admins)
// and the single authenticated-user slot.
//
// Persistence keys:
//
//	demo_users        customer accounts
//	demo_admin_users  admin accounts
//	demo_auth_user    the logged-in user's public projection; absent when
//	                  nobody is logged in
//
// The registries are independent: the same email may exist in both. Stored
// accounts carry a bcrypt hash, never the password itself, and the slot
// never carries either.
package session

import (
	"crypto/subtle"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/stevemurr/storefront/entity"
	"github.com/stevemurr/storefront/fault"
	"github.com/stevemurr/storefront/store"
	"github.com/stevemurr/storefront/toast"
)

// Persistence keys.
const (
	CustomersKey = "demo_users"
	AdminsKey    = "demo_admin_users"
	SlotKey      = "demo_auth_user"
)

// Role selects a registry. The customer role is stored as "user".
type Role string

const (
	RoleCustomer Role = "user"
	RoleAdmin    Role = "admin"
)

// ParseRole accepts "customer", "user" and "admin".
func ParseRole(s string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "customer", "user", "":
		return RoleCustomer, nil
	case "admin":
		return RoleAdmin, nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

// Label is the human name of the role.
func (r Role) Label() string {
	if r == RoleAdmin {
		return "admin"
	}
	return "customer"
}

// Defaults for Options.
const (
	DefaultAdminCode     = "SECURE_ADMIN_CODE"
	DefaultAdminEmail    = "admin@example.com"
	DefaultAdminPassword = "admin123"
	DefaultAdminName     = "Admin User"
	defaultAdminID       = "admin-1"
)

// Account is a stored registry entry.
type Account struct {
	ID           string `json:"id"`
	Email        string `json:"email"`
	PasswordHash string `json:"passwordHash"`
	Name         string `json:"name"`
	Role         Role   `json:"role"`
}

// User returns the public projection of a.
func (a Account) User() User {
	return User{ID: a.ID, Email: a.Email, Name: a.Name, Role: a.Role}
}

// User is what the session slot holds: an account without its secret.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  Role   `json:"role"`
}

// Registration is the register form.
type Registration struct {
	Email    string
	Password string
	Name     string
	// Code is the admin registration code; ignored for customers.
	Code string
}

// Options configures a Store. Zero values select the defaults above.
type Options struct {
	AdminCode            string
	DefaultAdminEmail    string
	DefaultAdminPassword string
	DefaultAdminName     string
	Hasher               Hasher

	Logger          *slog.Logger
	Toasts          toast.Sink
	Instrumentation entity.Instrumentation
}

func (o *Options) setDefaults() {
	if o.AdminCode == "" {
		o.AdminCode = DefaultAdminCode
	}
	if o.DefaultAdminEmail == "" {
		o.DefaultAdminEmail = DefaultAdminEmail
	}
	if o.DefaultAdminPassword == "" {
		o.DefaultAdminPassword = DefaultAdminPassword
	}
	if o.DefaultAdminName == "" {
		o.DefaultAdminName = DefaultAdminName
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.Toasts == nil {
		o.Toasts = toast.Discard
	}
}

// Store holds both registries and the session slot. Safe for concurrent use.
type Store struct {
	customers *entity.Store[[]Account]
	admins    *entity.Store[[]Account]
	slot      *entity.Store[*User]

	opts   Options
	log    *slog.Logger
	toasts toast.Sink
}

func registryConfig(key string, opts Options) entity.Config[[]Account] {
	return entity.Config[[]Account]{
		Key:             key,
		Default:         func() []Account { return []Account{} },
		Clone:           func(a []Account) []Account { return slices.Clone(a) },
		Logger:          opts.Logger,
		Instrumentation: opts.Instrumentation,
	}
}

// Open loads the registries and the session slot from medium.
//
// If the admin registry is empty a default admin is created. The slot is
// restored only if the account it names still exists; otherwise it is
// cleared. Open fails only if the default admin's password cannot be hashed.
func Open(medium store.Store, opts Options) (*Store, error) {
	opts.setDefaults()
	s := &Store{
		customers: entity.Open(medium, registryConfig(CustomersKey, opts)),
		admins:    entity.Open(medium, registryConfig(AdminsKey, opts)),
		slot: entity.Open(medium, entity.Config[*User]{
			Key: SlotKey,
			Clone: func(u *User) *User {
				if u == nil {
					return nil
				}
				c := *u
				return &c
			},
			Vacant:          func(u *User) bool { return u == nil },
			Logger:          opts.Logger,
			Instrumentation: opts.Instrumentation,
		}),
		opts:   opts,
		log:    opts.Logger,
		toasts: opts.Toasts,
	}
	if err := s.bootstrap(); err != nil {
		return nil, err
	}
	s.rehydrate()
	return s, nil
}

func (s *Store) bootstrap() error {
	if len(s.admins.Snapshot()) > 0 {
		return nil
	}
	hash, err := s.opts.Hasher.Hash(s.opts.DefaultAdminPassword)
	if err != nil {
		return fmt.Errorf("hash default admin password: %w", err)
	}
	admin := Account{
		ID:           defaultAdminID,
		Email:        s.opts.DefaultAdminEmail,
		PasswordHash: hash,
		Name:         s.opts.DefaultAdminName,
		Role:         RoleAdmin,
	}
	err = s.admins.Mutate("session.bootstrap", func(as []Account) ([]Account, error) {
		if len(as) > 0 {
			return as, nil
		}
		return []Account{admin}, nil
	})
	if err != nil {
		// The admin exists in memory; it is written again on the next
		// registry mutation.
		s.log.Warn("default admin not persisted", "err", err)
	}
	return nil
}

func (s *Store) rehydrate() {
	u := s.slot.Snapshot()
	if u == nil {
		return
	}
	for _, a := range s.registry(u.Role).Snapshot() {
		if a.ID == u.ID && a.Email == u.Email {
			return
		}
	}
	s.log.Info("clearing session for unknown account", "email", u.Email, "role", string(u.Role))
	if err := s.slot.Mutate("session.rehydrate", func(*User) (*User, error) { return nil, nil }); err != nil {
		s.log.Warn("stale session not cleared", "err", err)
	}
}

func (s *Store) registry(role Role) *entity.Store[[]Account] {
	if role == RoleAdmin {
		return s.admins
	}
	return s.customers
}

func newAccountID(role Role) string {
	return role.Label() + "-" + uuid.Must(uuid.NewV7()).String()
}

// Register adds an account to role's registry. It does not log the account
// in. Admin registration checks Code first.
func (s *Store) Register(role Role, r Registration) (User, error) {
	op := "session.register_" + role.Label()
	if role != RoleAdmin && role != RoleCustomer {
		return User{}, s.fail(fault.Invalid(op, fmt.Errorf("unknown role %q", role)), "Registration failed")
	}
	if role == RoleAdmin && subtle.ConstantTimeCompare([]byte(r.Code), []byte(s.opts.AdminCode)) != 1 {
		return User{}, s.fail(fault.New(fault.KindInvalidCode, op, "invalid admin registration code"), "Invalid admin registration code")
	}
	email := strings.TrimSpace(r.Email)
	if email == "" || r.Password == "" {
		return User{}, s.fail(fault.Invalid(op, fmt.Errorf("email and password are required")), "Email and password are required")
	}
	hash, err := s.opts.Hasher.Hash(r.Password)
	if err != nil {
		if isInputError(err) {
			return User{}, s.fail(fault.Invalid(op, err), "Password is too long")
		}
		return User{}, s.fail(fmt.Errorf("%s: %w", op, err), "Registration failed")
	}
	acct := Account{
		ID:           newAccountID(role),
		Email:        email,
		PasswordHash: hash,
		Name:         strings.TrimSpace(r.Name),
		Role:         role,
	}
	err = s.registry(role).Mutate(op, func(as []Account) ([]Account, error) {
		if slices.ContainsFunc(as, func(a Account) bool { return a.Email == email }) {
			return nil, &fault.Error{Kind: fault.KindDuplicateEmail, Op: op, Key: email, Msg: "email already exists"}
		}
		return append(as, acct), nil
	})
	if err == nil {
		if role == RoleAdmin {
			s.toasts.Show(toast.Success("Admin registration successful"))
		} else {
			s.toasts.Show(toast.Success("Registration successful"))
		}
		return acct.User(), nil
	}
	switch fault.KindOf(err) {
	case fault.KindDuplicateEmail:
		return User{}, s.fail(err, "Email already exists")
	case fault.KindPersistence:
		// The account is live in memory; report the failed save.
		return acct.User(), s.fail(err, "Account could not be saved")
	}
	return User{}, s.fail(err, "Registration failed")
}

// Login authenticates against role's registry and fills the session slot,
// replacing any previous user.
func (s *Store) Login(role Role, email, password string) (User, error) {
	op := "session.login_" + role.Label()
	failMsg := "Invalid email or password"
	okMsg := "Logged in successfully"
	if role == RoleAdmin {
		failMsg = "Invalid admin credentials"
		okMsg = "Admin logged in successfully"
	}
	email = strings.TrimSpace(email)
	var found *Account
	for _, a := range s.registry(role).Snapshot() {
		if a.Email == email && a.Role == role {
			found = &a
			break
		}
	}
	if found == nil || !s.opts.Hasher.Verify(found.PasswordHash, password) {
		return User{}, s.fail(&fault.Error{Kind: fault.KindInvalidCredentials, Op: op, Msg: "invalid credentials"}, failMsg)
	}
	u := found.User()
	err := s.slot.Mutate(op, func(*User) (*User, error) { return &u, nil })
	if err != nil {
		return u, s.fail(err, "Session could not be saved")
	}
	s.toasts.Show(toast.Success(okMsg))
	return u, nil
}

// Logout empties the session slot and removes its durable key.
// Logging out with nobody logged in still clears the key.
func (s *Store) Logout() error {
	var was *User
	err := s.slot.Mutate("session.logout", func(u *User) (*User, error) {
		was = u
		return nil, nil
	})
	if err != nil {
		return s.fail(err, "Session could not be saved")
	}
	if was == nil {
		s.toasts.Show(toast.Info("You are not logged in"))
		return nil
	}
	s.toasts.Show(toast.Success("Logged out successfully"))
	return nil
}

// Current returns the logged-in user.
func (s *Store) Current() (User, bool) {
	u := s.slot.Snapshot()
	if u == nil {
		return User{}, false
	}
	return *u, true
}

// IsAuthenticated reports whether anyone is logged in.
func (s *Store) IsAuthenticated() bool {
	_, ok := s.Current()
	return ok
}

// IsAdmin reports whether the logged-in user is an admin.
func (s *Store) IsAdmin() bool {
	u, ok := s.Current()
	return ok && u.Role == RoleAdmin
}

// RequireUser fails with fault.KindUnauthenticated when nobody is logged in.
func (s *Store) RequireUser(op string) (User, error) {
	u, ok := s.Current()
	if !ok {
		return User{}, fault.New(fault.KindUnauthenticated, op, "login required")
	}
	return u, nil
}

// RequireAdmin fails with fault.KindUnauthenticated when nobody is logged in
// and fault.KindForbidden when the user is not an admin.
func (s *Store) RequireAdmin(op string) error {
	u, err := s.RequireUser(op)
	if err != nil {
		return err
	}
	if u.Role != RoleAdmin {
		return fault.New(fault.KindForbidden, op, "admin role required")
	}
	return nil
}

// Accounts lists role's registry as public projections.
func (s *Store) Accounts(role Role) []User {
	as := s.registry(role).Snapshot()
	out := make([]User, len(as))
	for i, a := range as {
		out[i] = a.User()
	}
	return out
}

// Subscribe registers fn for session slot changes; fn receives nil on
// logout.
func (s *Store) Subscribe(fn func(*User)) (unsubscribe func()) {
	return s.slot.Subscribe(fn)
}

func (s *Store) fail(err error, msg string) error {
	s.toasts.Show(toast.Error(msg))
	return err
}
