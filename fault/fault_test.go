package fault_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/stevemurr/storefront/fault"
)

func TestErrorMessage(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{fault.NotFound("catalog.update", "PRD9"), `catalog.update: not found "PRD9"`},
		{fault.New(fault.KindForbidden, "storefront.add_product", "admin role required"), "storefront.add_product: admin role required"},
		{fault.Persistence("cart.add", "cart", errors.New("disk full")), `cart.add: persist "cart": disk full`},
		{&fault.Error{Kind: fault.KindEmptyCart}, "empty_cart"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.err.Error())
	}
}

func TestIsMatchesKind(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", fault.NotFound("orders.set_status", "ORD1"))
	assert.ErrorIs(t, err, fault.ErrNotFound)
	assert.NotErrorIs(t, err, fault.ErrForbidden)
	assert.Equal(t, fault.KindNotFound, fault.KindOf(err))
}

func TestUnwrapCause(t *testing.T) {
	cause := errors.New("quota")
	err := fault.Persistence("catalog.add", "demo_products", cause)
	assert.ErrorIs(t, err, cause)
	assert.ErrorIs(t, err, fault.ErrPersistence)
}

func TestKindOfPlainError(t *testing.T) {
	assert.Equal(t, fault.KindUnknown, fault.KindOf(errors.New("boom")))
	assert.Equal(t, fault.KindUnknown, fault.KindOf(nil))
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "persistence_write_failure", fault.KindPersistence.String())
	assert.Equal(t, "invalid_code", fault.KindInvalidCode.String())
	assert.Equal(t, "kind(99)", fault.Kind(99).String())
}
