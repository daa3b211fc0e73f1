// Package validation provides a table-driven field validator for the domain entities.
//
// A Schema is an ordered list of field rules. Validate evaluates every rule
// against a raw field map and returns all violations at once; it never stops
// at the first failing field.
package validation

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Kind is the primitive type a field must hold.
type Kind int

const (
	// String requires a Go string.
	String Kind = iota
	// Number requires a finite numeric value.
	Number
	// Integer requires a numeric value without a fractional part.
	Integer
)

// Rule declares the constraints of a single field.
type Rule struct {
	Required bool
	Kind     Kind

	// Min and Max are inclusive bounds, checked for numeric kinds only.
	Min *float64
	Max *float64

	// MaxDecimalPlaces caps the number of digits after the decimal point.
	MaxDecimalPlaces *int
}

// Field binds a rule to a field name.
type Field struct {
	Name string
	Rule Rule
}

// Schema is the ordered rule table of an entity.
type Schema []Field

// Violation describes one broken rule.
type Violation struct {
	Field   string
	Message string
}

// String implements fmt.Stringer.
func (v Violation) String() string {
	return v.Message
}

// Validate checks fields against the schema and returns every violation found.
// Unknown fields are reported after the declared ones, sorted by name.
func (s Schema) Validate(fields map[string]any) []Violation {
	var violations []Violation

	known := make(map[string]struct{}, len(s))
	for _, f := range s {
		known[f.Name] = struct{}{}
		violations = append(violations, f.check(fields)...)
	}

	var unknown []string
	for name := range fields {
		if _, ok := known[name]; !ok {
			unknown = append(unknown, name)
		}
	}
	sort.Strings(unknown)
	for _, name := range unknown {
		violations = append(violations, Violation{
			Field:   name,
			Message: fmt.Sprintf("property %s should not exist", name),
		})
	}

	return violations
}

func (f Field) check(fields map[string]any) []Violation {
	value, present := fields[f.Name]
	if !present || value == nil {
		if f.Rule.Required {
			return []Violation{f.violation("%s should not be null or undefined", f.Name)}
		}
		return nil
	}

	if f.Rule.Kind == String {
		if _, ok := value.(string); !ok {
			return []Violation{f.violation("%s must be a string", f.Name)}
		}
		return nil
	}

	number, ok := ToFloat(value)
	if !ok || math.IsNaN(number) || math.IsInf(number, 0) {
		if f.Rule.Kind == Integer {
			return []Violation{f.violation("%s must be an integer number", f.Name)}
		}
		return []Violation{f.violation("%s must be a number conforming to the specified constraints", f.Name)}
	}

	var violations []Violation
	if f.Rule.Kind == Integer && number != float64(int64(number)) {
		violations = append(violations, f.violation("%s must be an integer number", f.Name))
	}
	if f.Rule.MaxDecimalPlaces != nil && DecimalPlaces(number) > *f.Rule.MaxDecimalPlaces {
		violations = append(violations, f.violation("%s must be a number conforming to the specified constraints", f.Name))
	}
	if f.Rule.Min != nil && number < *f.Rule.Min {
		violations = append(violations, f.violation("%s must not be less than %s", f.Name, formatFloat(*f.Rule.Min)))
	}
	if f.Rule.Max != nil && number > *f.Rule.Max {
		violations = append(violations, f.violation("%s must not be greater than %s", f.Name, formatFloat(*f.Rule.Max)))
	}
	return violations
}

func (f Field) violation(format string, args ...any) Violation {
	return Violation{Field: f.Name, Message: fmt.Sprintf(format, args...)}
}

// Join renders violations as one aggregated message.
func Join(violations []Violation) string {
	messages := make([]string, len(violations))
	for i, v := range violations {
		messages[i] = v.Message
	}
	return strings.Join(messages, ", ")
}

// ToFloat converts any Go numeric value (and json.Number) to float64.
// Strings are never coerced.
func ToFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int8:
		return float64(v), true
	case int16:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint8:
		return float64(v), true
	case uint16:
		return float64(v), true
	case uint32:
		return float64(v), true
	case uint64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

// DecimalPlaces returns the number of digits after the decimal point in the
// shortest representation of v.
func DecimalPlaces(v float64) int {
	s := formatFloat(v)
	if i := strings.IndexByte(s, '.'); i >= 0 {
		return len(s) - i - 1
	}
	return 0
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Float returns a pointer to v, for use in rule literals.
func Float(v float64) *float64 {
	return &v
}

// Int returns a pointer to v, for use in rule literals.
func Int(v int) *int {
	return &v
}
