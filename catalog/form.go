package catalog

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/stevemurr/storefront/schema"
)

// FormInput is the add-product form as submitted: every field is raw text.
type FormInput struct {
	Name          string
	Description   string
	Price         string
	ComparePrice  string
	Category      string
	Stock         string
	LowStockAlert string
	Status        string
	SKU           string
	// Images holds the uploaded file names.
	Images []string
}

// Draft is a parsed FormInput, ready to become a Product.
type Draft struct {
	Name          string
	Description   string
	Price         float64
	ComparePrice  *float64
	Category      string
	Stock         int
	LowStockAlert *int
	Status        Status
	SKU           string
	Images        []string
}

func statusNames() []string {
	out := make([]string, len(Statuses))
	for i, s := range Statuses {
		out[i] = string(s)
	}
	return out
}

// formSchema drives both the add form and patches.
var formSchema = schema.Schema{Fields: []schema.Field{
	{Name: "name", Type: schema.String, Required: true, MaxLength: 200},
	{Name: "description", Type: schema.String},
	{Name: "price", Type: schema.Number, Default: 0.0, Minimum: schema.Min(0)},
	{Name: "comparePrice", Type: schema.Number, Minimum: schema.Min(0)},
	{Name: "category", Type: schema.String},
	{Name: "stock", Type: schema.Integer, Default: 0, Minimum: schema.Min(0)},
	{Name: "lowStockAlert", Type: schema.Integer, Default: 0, Minimum: schema.Min(0)},
	{Name: "status", Type: schema.String, Default: string(StatusActive), Enum: statusNames()},
	{Name: "sku", Type: schema.String, MaxLength: 64},
}}

// ParseForm converts the raw form into typed fields. Blank price and stock
// become 0, a blank compare price stays unset, a blank low-stock alert
// becomes 0 and a blank status becomes active. Non-numeric or negative
// numbers fail.
func ParseForm(in FormInput) (Draft, error) {
	doc, err := formSchema.Coerce(map[string]string{
		"name":          in.Name,
		"description":   in.Description,
		"price":         in.Price,
		"comparePrice":  in.ComparePrice,
		"category":      in.Category,
		"stock":         in.Stock,
		"lowStockAlert": in.LowStockAlert,
		"status":        in.Status,
		"sku":           in.SKU,
	})
	if err != nil {
		return Draft{}, err
	}
	d := Draft{
		Name:        doc["name"].(string),
		Description: str(doc["description"]),
		Price:       doc["price"].(float64),
		Category:    str(doc["category"]),
		Stock:       doc["stock"].(int),
		Status:      Status(doc["status"].(string)),
		SKU:         str(doc["sku"]),
	}
	if v, ok := doc["comparePrice"].(float64); ok {
		d.ComparePrice = &v
	}
	if v, ok := doc["lowStockAlert"].(int); ok {
		d.LowStockAlert = &v
	}
	for _, name := range in.Images {
		base := filepath.Base(strings.TrimSpace(name))
		if base == "." || base == string(filepath.Separator) {
			return Draft{}, fmt.Errorf("$.images: invalid file name %q", name)
		}
		d.Images = append(d.Images, base)
	}
	return d, nil
}

// Patch is a partial product update. Nil fields are left unchanged. ID, SKU
// and CreatedAt are not patchable.
type Patch struct {
	Name          *string
	Description   *string
	Price         *float64
	ComparePrice  *float64
	Category      *string
	Stock         *int
	LowStockAlert *int
	Status        *Status
	// Images replaces the image references when non-nil.
	Images []string
}

// ParsePatch builds a Patch from raw text values keyed by form field name
// ("price", "stock", ...). Only the keys present are patched.
func ParsePatch(values map[string]string) (Patch, error) {
	doc, err := formSchema.CoercePartial(values)
	if err != nil {
		return Patch{}, err
	}
	var p Patch
	if v, ok := doc["name"].(string); ok {
		p.Name = &v
	}
	if v, ok := doc["description"].(string); ok {
		p.Description = &v
	}
	if v, ok := doc["price"].(float64); ok {
		p.Price = &v
	}
	if v, ok := doc["comparePrice"].(float64); ok {
		p.ComparePrice = &v
	}
	if v, ok := doc["category"].(string); ok {
		p.Category = &v
	}
	if v, ok := doc["stock"].(int); ok {
		p.Stock = &v
	}
	if v, ok := doc["lowStockAlert"].(int); ok {
		p.LowStockAlert = &v
	}
	if v, ok := doc["status"].(string); ok {
		st := Status(v)
		p.Status = &st
	}
	return p, nil
}

// Validate checks the patched values against the form rules.
func (p Patch) Validate() error {
	doc := map[string]any{}
	if p.Name != nil {
		if strings.TrimSpace(*p.Name) == "" {
			return fmt.Errorf(`$.name: must not be blank`)
		}
		doc["name"] = *p.Name
	}
	if p.Description != nil {
		doc["description"] = *p.Description
	}
	if p.Price != nil {
		doc["price"] = *p.Price
	}
	if p.ComparePrice != nil {
		doc["comparePrice"] = *p.ComparePrice
	}
	if p.Category != nil {
		doc["category"] = *p.Category
	}
	if p.Stock != nil {
		doc["stock"] = *p.Stock
	}
	if p.LowStockAlert != nil {
		doc["lowStockAlert"] = *p.LowStockAlert
	}
	if p.Status != nil {
		doc["status"] = string(*p.Status)
	}
	return formSchema.ValidatePartial(doc)
}

// Empty reports whether the patch changes nothing.
func (p Patch) Empty() bool {
	return p.Name == nil && p.Description == nil && p.Price == nil &&
		p.ComparePrice == nil && p.Category == nil && p.Stock == nil &&
		p.LowStockAlert == nil && p.Status == nil && p.Images == nil
}

func (p Patch) apply(dst *Product) {
	if p.Name != nil {
		dst.Name = *p.Name
	}
	if p.Description != nil {
		dst.Description = *p.Description
	}
	if p.Price != nil {
		dst.Price = *p.Price
	}
	if p.ComparePrice != nil {
		v := *p.ComparePrice
		dst.ComparePrice = &v
	}
	if p.Category != nil {
		dst.Category = *p.Category
	}
	if p.Stock != nil {
		dst.Stock = *p.Stock
	}
	if p.LowStockAlert != nil {
		v := *p.LowStockAlert
		dst.LowStockAlert = &v
	}
	if p.Status != nil {
		dst.Status = *p.Status
	}
	if p.Images != nil {
		dst.Images = append([]string{}, p.Images...)
	}
}

func str(v any) string {
	s, _ := v.(string)
	return s
}
