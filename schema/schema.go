// Package schema turns raw form values into typed document fields.
//
// A Schema lists the fields a form may carry. Coerce parses each submitted
// string according to its field type, substitutes defaults for blank values
// and then checks the constraints (minimum, maxLength, enum, required).
// Errors are path-prefixed ("$.price: ...") and joined, so a caller can
// report every bad field at once.
package schema

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
)

// Type is a field's target type.
type Type string

const (
	String  Type = "string"
	Number  Type = "number"  // float64
	Integer Type = "integer" // int
)

// Field describes one form field.
type Field struct {
	Name     string
	Type     Type
	Required bool // blank with no Default is an error
	// Default replaces a blank value. nil leaves the field absent.
	Default   any
	Minimum   *float64
	MaxLength int // 0 means unlimited
	Enum      []string
}

// Min is a helper for Field.Minimum.
func Min(v float64) *float64 { return &v }

// Schema is an ordered set of fields.
type Schema struct {
	Fields []Field
}

// Field returns the named field.
func (s Schema) Field(name string) (Field, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Coerce parses form into a document. Values are trimmed; a blank value takes
// the field's Default (or is left out). Form keys that the schema does not
// know are ignored.
//
// The result holds string, float64 or int values keyed by field name.
func (s Schema) Coerce(form map[string]string) (map[string]any, error) {
	doc := make(map[string]any, len(s.Fields))
	var errs []error
	for _, f := range s.Fields {
		raw := strings.TrimSpace(form[f.Name])
		if raw == "" {
			switch {
			case f.Default != nil:
				doc[f.Name] = f.Default
			case f.Required:
				errs = append(errs, fmt.Errorf("$: missing required field %q", f.Name))
			}
			continue
		}
		v, err := parse(f, raw)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		doc[f.Name] = v
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return doc, s.Validate(doc)
}

// CoercePartial parses only the keys present in form, for patches. Keys the
// schema does not define are rejected. A blank value takes the field's
// Default or is dropped.
func (s Schema) CoercePartial(form map[string]string) (map[string]any, error) {
	doc := make(map[string]any, len(form))
	var errs []error
	keys := make([]string, 0, len(form))
	for k := range form {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		f, ok := s.Field(k)
		if !ok {
			errs = append(errs, fmt.Errorf("$: unknown field %q", k))
			continue
		}
		raw := strings.TrimSpace(form[k])
		if raw == "" {
			if f.Default != nil {
				doc[k] = f.Default
			}
			continue
		}
		v, err := parse(f, raw)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		doc[k] = v
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return doc, s.ValidatePartial(doc)
}

func parse(f Field, raw string) (any, error) {
	path := "$." + f.Name
	switch f.Type {
	case Number:
		n, err := strconv.ParseFloat(raw, 64)
		if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
			return nil, fmt.Errorf("%s: %q is not a number", path, raw)
		}
		return n, nil
	case Integer:
		n, err := strconv.Atoi(raw)
		if err != nil {
			// Accept whole-number decimals such as "50.0".
			fl, ferr := strconv.ParseFloat(raw, 64)
			if ferr != nil || fl != math.Trunc(fl) || math.Abs(fl) > math.MaxInt32 {
				return nil, fmt.Errorf("%s: %q is not an integer", path, raw)
			}
			n = int(fl)
		}
		return n, nil
	default:
		return raw, nil
	}
}

// Validate checks a complete document: every required field must be present.
func (s Schema) Validate(doc map[string]any) error {
	var errs []error
	for _, f := range s.Fields {
		if _, ok := doc[f.Name]; !ok && f.Required {
			errs = append(errs, fmt.Errorf("$: missing required field %q", f.Name))
		}
	}
	if err := s.ValidatePartial(doc); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// ValidatePartial checks only the fields present in doc. Used for patches.
// Fields the schema does not define are rejected.
func (s Schema) ValidatePartial(doc map[string]any) error {
	var errs []error
	names := make([]string, 0, len(doc))
	for name := range doc {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		f, ok := s.Field(name)
		if !ok {
			errs = append(errs, fmt.Errorf("$: unknown field %q", name))
			continue
		}
		if err := checkValue(f, doc[name]); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func checkValue(f Field, value any) error {
	path := "$." + f.Name
	switch f.Type {
	case Number, Integer:
		n, ok := toFloat(value)
		if !ok {
			return fmt.Errorf("%s: expected type %q, got %T", path, f.Type, value)
		}
		if f.Type == Integer && n != math.Trunc(n) {
			return fmt.Errorf("%s: expected type %q, got %v", path, f.Type, n)
		}
		if f.Minimum != nil && n < *f.Minimum {
			return fmt.Errorf("%s: %v is less than minimum %v", path, n, *f.Minimum)
		}
	default:
		str, ok := value.(string)
		if !ok {
			return fmt.Errorf("%s: expected type %q, got %T", path, f.Type, value)
		}
		if f.MaxLength > 0 && len(str) > f.MaxLength {
			return fmt.Errorf("%s: string length %d is greater than maxLength %d", path, len(str), f.MaxLength)
		}
		if len(f.Enum) > 0 && !slices.Contains(f.Enum, str) {
			return fmt.Errorf("%s: value %q not in enum %v", path, str, f.Enum)
		}
	}
	return nil
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}
