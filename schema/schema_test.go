package schema_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stevemurr/storefront/schema"
)

var product = schema.Schema{Fields: []schema.Field{
	{Name: "name", Type: schema.String, Required: true, MaxLength: 20},
	{Name: "price", Type: schema.Number, Default: 0.0, Minimum: schema.Min(0)},
	{Name: "comparePrice", Type: schema.Number, Minimum: schema.Min(0)},
	{Name: "stock", Type: schema.Integer, Default: 0, Minimum: schema.Min(0)},
	{Name: "status", Type: schema.String, Default: "active", Enum: []string{"active", "draft", "inactive"}},
}}

func TestCoerceParsesTypes(t *testing.T) {
	doc, err := product.Coerce(map[string]string{
		"name":         " Cotton T-Shirt ",
		"price":        "99.00",
		"comparePrice": "120",
		"stock":        "50",
		"status":       "draft",
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"name":         "Cotton T-Shirt",
		"price":        99.0,
		"comparePrice": 120.0,
		"stock":        50,
		"status":       "draft",
	}, doc)
}

func TestCoerceDefaults(t *testing.T) {
	doc, err := product.Coerce(map[string]string{"name": "Socks", "price": "  "})
	require.NoError(t, err)
	assert.Equal(t, 0.0, doc["price"])
	assert.Equal(t, 0, doc["stock"])
	assert.Equal(t, "active", doc["status"])
	assert.NotContains(t, doc, "comparePrice", "blank field without default stays absent")
}

func TestCoerceIgnoresUnknownFormKeys(t *testing.T) {
	doc, err := product.Coerce(map[string]string{"name": "Socks", "csrf": "x"})
	require.NoError(t, err)
	assert.NotContains(t, doc, "csrf")
}

func TestCoerceIntegerAcceptsWholeDecimal(t *testing.T) {
	doc, err := product.Coerce(map[string]string{"name": "Socks", "stock": "7.0"})
	require.NoError(t, err)
	assert.Equal(t, 7, doc["stock"])

	_, err = product.Coerce(map[string]string{"name": "Socks", "stock": "7.5"})
	assert.ErrorContains(t, err, `$.stock: "7.5" is not an integer`)
}

func TestCoerceReportsEveryBadField(t *testing.T) {
	_, err := product.Coerce(map[string]string{
		"price": "abc",
		"stock": "-1",
	})
	require.Error(t, err)
	assert.ErrorContains(t, err, `$: missing required field "name"`)
	assert.ErrorContains(t, err, `$.price: "abc" is not a number`)
}

func TestCoerceConstraints(t *testing.T) {
	tests := []struct {
		name string
		form map[string]string
		want string
	}{
		{"negative price", map[string]string{"name": "x", "price": "-1"}, "$.price: -1 is less than minimum 0"},
		{"negative stock", map[string]string{"name": "x", "stock": "-3"}, "$.stock: -3 is less than minimum 0"},
		{"unknown status", map[string]string{"name": "x", "status": "gone"}, `$.status: value "gone" not in enum`},
		{"long name", map[string]string{"name": "aaaaaaaaaaaaaaaaaaaaaaaaa"}, "$.name: string length 25 is greater than maxLength 20"},
		{"not a number", map[string]string{"name": "x", "price": "NaN"}, `$.price: "NaN" is not a number`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := product.Coerce(tt.form)
			assert.ErrorContains(t, err, tt.want)
		})
	}
}

func TestValidatePartial(t *testing.T) {
	assert.NoError(t, product.ValidatePartial(map[string]any{"price": 5.0}))
	assert.NoError(t, product.ValidatePartial(map[string]any{}))
	assert.ErrorContains(t, product.ValidatePartial(map[string]any{"price": "5"}), `$.price: expected type "number"`)
	assert.ErrorContains(t, product.ValidatePartial(map[string]any{"stock": 1.5}), `$.stock: expected type "integer"`)
	assert.ErrorContains(t, product.ValidatePartial(map[string]any{"sku": "X"}), `$: unknown field "sku"`)
}

func TestValidateRequired(t *testing.T) {
	assert.ErrorContains(t, product.Validate(map[string]any{"price": 1.0}), `missing required field "name"`)
	assert.NoError(t, product.Validate(map[string]any{"name": "Socks"}))
}

func TestCoercePartial(t *testing.T) {
	doc, err := product.CoercePartial(map[string]string{"price": "12.5", "comparePrice": ""})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"price": 12.5}, doc, "only submitted fields, blank without default dropped")

	doc, err = product.CoercePartial(map[string]string{"status": " "})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"status": "active"}, doc)

	_, err = product.CoercePartial(map[string]string{"sku": "X"})
	assert.ErrorContains(t, err, `$: unknown field "sku"`)

	_, err = product.CoercePartial(map[string]string{"stock": "-2"})
	assert.ErrorContains(t, err, "$.stock: -2 is less than minimum 0")
}
