package loan

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"ethoscore/internal/common/validation"
)

// ApplicationForm holds the values typed into one category's form. Keys are
// exactly the category's field names; an empty string marks a field the user
// has not filled yet.
type ApplicationForm struct {
	category LoanCategory
	values   map[string]interface{}
}

// NewApplicationForm returns an empty form keyed by the category's fields.
func NewApplicationForm(category LoanCategory) *ApplicationForm {
	fields := FieldsFor(category)
	values := make(map[string]interface{}, len(fields))
	for _, f := range fields {
		values[f.Name] = ""
	}
	return &ApplicationForm{category: category, values: values}
}

// FormFromValues builds a form from already-typed values, as received from a
// process variable or an API body. Keys outside the category's schema are
// rejected.
func FormFromValues(category LoanCategory, values map[string]interface{}) (*ApplicationForm, error) {
	if !category.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownCategory, int(category))
	}
	form := NewApplicationForm(category)
	for name, v := range values {
		if err := form.SetValue(name, v); err != nil {
			return nil, err
		}
	}
	return form, nil
}

func (f *ApplicationForm) Category() LoanCategory {
	return f.category
}

// Set records raw keyboard input. Number fields are parsed as floats; input
// that is empty or does not parse is kept as text so validation can mark it.
func (f *ApplicationForm) Set(name, raw string) error {
	spec, ok := lookupField(f.category, name)
	if !ok {
		return fmt.Errorf("%w: %s has no field %q", ErrUnknownField, f.category, name)
	}
	if spec.ValueType == Number {
		trimmed := strings.TrimSpace(raw)
		if trimmed != "" {
			if n, err := strconv.ParseFloat(trimmed, 64); err == nil && !math.IsNaN(n) && !math.IsInf(n, 0) {
				f.values[name] = n
				return nil
			}
		}
	}
	f.values[name] = raw
	return nil
}

// SetValue records an already-typed value. Integers are widened to float64 so
// the body sent to the prediction service is uniform.
func (f *ApplicationForm) SetValue(name string, v interface{}) error {
	if _, ok := lookupField(f.category, name); !ok {
		return fmt.Errorf("%w: %s has no field %q", ErrUnknownField, f.category, name)
	}
	switch n := v.(type) {
	case nil:
		f.values[name] = ""
	case int:
		f.values[name] = float64(n)
	case int32:
		f.values[name] = float64(n)
	case int64:
		f.values[name] = float64(n)
	case float32:
		f.values[name] = float64(n)
	case json.Number:
		if parsed, err := n.Float64(); err == nil {
			f.values[name] = parsed
		} else {
			f.values[name] = n.String()
		}
	default:
		f.values[name] = v
	}
	return nil
}

// Get returns the current value of a field.
func (f *ApplicationForm) Get(name string) (interface{}, bool) {
	v, ok := f.values[name]
	return v, ok
}

// Values returns a copy of the form content.
func (f *ApplicationForm) Values() map[string]interface{} {
	out := make(map[string]interface{}, len(f.values))
	for k, v := range f.values {
		out[k] = v
	}
	return out
}

// Clone returns an independent copy; the dispatcher works on a clone so later
// keystrokes cannot change an in-flight body.
func (f *ApplicationForm) Clone() *ApplicationForm {
	return &ApplicationForm{category: f.category, values: f.Values()}
}

func (f *ApplicationForm) MarshalJSON() ([]byte, error) {
	return json.Marshal(f.values)
}

// Validate checks every field is filled with a value of its declared type.
// It returns a *ValidationError listing the offending fields, or nil.
func (f *ApplicationForm) Validate() error {
	doc := make(map[string]interface{}, len(f.values))
	for k, v := range f.values {
		if s, ok := v.(string); ok && strings.TrimSpace(s) == "" {
			continue
		}
		doc[k] = v
	}

	result, err := validation.ValidateInput(doc, Schema(f.category))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if result.Valid {
		return nil
	}
	return newValidationError(f.category, result)
}

// Schema returns the JSON schema of a category's form: every field required,
// numbers typed as numbers, no extra keys.
func Schema(category LoanCategory) validation.JSONSchema {
	fields := FieldsFor(category)
	schema := validation.JSONSchema{
		Type:       "object",
		Properties: make(map[string]validation.Property, len(fields)),
		Required:   make([]string, 0, len(fields)),
	}
	for _, field := range fields {
		prop := validation.Property{Title: field.Label}
		if field.ValueType == Number {
			prop.Type = "number"
		} else {
			prop.Type = "string"
			prop.MinLength = validation.IntPtr(1)
		}
		schema.Properties[field.Name] = prop
		schema.Required = append(schema.Required, field.Name)
	}
	return schema
}
