// Package fault defines the failure kinds shared by the storefront stores.
//
// Every store operation that can fail returns an error whose kind can be
// recovered with KindOf or matched with errors.Is against the sentinels:
//
//	if errors.Is(err, fault.ErrNotFound) { ... }
//	switch fault.KindOf(err) { ... }
package fault

import (
	"errors"
	"fmt"
)

// Kind classifies a failure.
type Kind int

const (
	KindUnknown Kind = iota
	KindNotFound
	KindDuplicateEmail
	KindInvalidCredentials
	KindInvalidCode
	KindPersistence
	KindInvalidInput
	KindForbidden
	KindUnauthenticated
	KindEmptyCart
)

var kindNames = map[Kind]string{
	KindUnknown:            "unknown",
	KindNotFound:           "not_found",
	KindDuplicateEmail:     "duplicate_email",
	KindInvalidCredentials: "invalid_credentials",
	KindInvalidCode:        "invalid_code",
	KindPersistence:        "persistence_write_failure",
	KindInvalidInput:       "invalid_input",
	KindForbidden:          "forbidden",
	KindUnauthenticated:    "unauthenticated",
	KindEmptyCart:          "empty_cart",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Error is a store failure with its kind and the operation that produced it.
type Error struct {
	Kind Kind
	// Op is the store operation, e.g. "catalog.update".
	Op string
	// Key identifies the entity involved, if any.
	Key string
	// Msg is a short human-readable description.
	Msg string
	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" {
		msg = e.Kind.String()
	}
	if e.Key != "" {
		msg = fmt.Sprintf("%s %q", msg, e.Key)
	}
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is a *Error of the same kind. Sentinels carry
// only a kind, so errors.Is(err, ErrNotFound) matches any not-found failure.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// Sentinels for errors.Is.
var (
	ErrNotFound           = &Error{Kind: KindNotFound}
	ErrDuplicateEmail     = &Error{Kind: KindDuplicateEmail}
	ErrInvalidCredentials = &Error{Kind: KindInvalidCredentials}
	ErrInvalidCode        = &Error{Kind: KindInvalidCode}
	ErrPersistence        = &Error{Kind: KindPersistence}
	ErrInvalidInput       = &Error{Kind: KindInvalidInput}
	ErrForbidden          = &Error{Kind: KindForbidden}
	ErrUnauthenticated    = &Error{Kind: KindUnauthenticated}
	ErrEmptyCart          = &Error{Kind: KindEmptyCart}
)

// New builds an Error of the given kind.
func New(kind Kind, op, msg string) *Error {
	return &Error{Kind: kind, Op: op, Msg: msg}
}

// NotFound reports a missing entity.
func NotFound(op, key string) *Error {
	return &Error{Kind: KindNotFound, Op: op, Key: key, Msg: "not found"}
}

// Invalid reports rejected input.
func Invalid(op string, err error) *Error {
	return &Error{Kind: KindInvalidInput, Op: op, Msg: "invalid input", Err: err}
}

// Persistence reports a durable write that the medium rejected.
func Persistence(op, key string, err error) *Error {
	return &Error{Kind: KindPersistence, Op: op, Key: key, Msg: "persist", Err: err}
}

// KindOf returns the kind of the first *Error in err's chain, or KindUnknown.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return KindUnknown
}
