package action

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"slices"
	"sort"
	"unicode/utf8"
)

var namePattern = regexp.MustCompile(`^[a-z][a-z0-9_]{0,63}$`)

// JSONSchema renders the parameter list as a JSON schema object.
func (d Definition) JSONSchema() map[string]any {
	properties := make(map[string]any, len(d.Parameters))
	required := make([]string, 0)
	for _, f := range d.Parameters {
		prop := map[string]any{"type": string(f.Type)}
		if f.Description != "" {
			prop["description"] = f.Description
		}
		if len(f.Enum) > 0 {
			prop["enum"] = append([]string(nil), f.Enum...)
		}
		if f.Default != nil {
			prop["default"] = f.Default
		}
		if f.MaxLength > 0 {
			prop["maxLength"] = f.MaxLength
		}
		properties[f.Name] = prop
		if f.Required {
			required = append(required, f.Name)
		}
	}
	schema := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

// RequiredFields returns the names of required parameters in declaration order.
func (d Definition) RequiredFields() []string {
	var out []string
	for _, f := range d.Parameters {
		if f.Required {
			out = append(out, f.Name)
		}
	}
	return out
}

func (d Definition) check() error {
	if !namePattern.MatchString(d.Name) {
		return fmt.Errorf("%w: name %q must be snake_case", ErrInvalidDefinition, d.Name)
	}
	if d.Description == "" {
		return fmt.Errorf("%w: %s has no description", ErrInvalidDefinition, d.Name)
	}
	seen := make(map[string]struct{}, len(d.Parameters))
	for _, f := range d.Parameters {
		if f.Name == "" {
			return fmt.Errorf("%w: %s has an unnamed parameter", ErrInvalidDefinition, d.Name)
		}
		if _, dup := seen[f.Name]; dup {
			return fmt.Errorf("%w: %s declares %q twice", ErrInvalidDefinition, d.Name, f.Name)
		}
		seen[f.Name] = struct{}{}
		switch f.Type {
		case TypeString, TypeInteger, TypeNumber, TypeBoolean:
		default:
			return fmt.Errorf("%w: %s.%s has unsupported type %q", ErrInvalidDefinition, d.Name, f.Name, f.Type)
		}
		if len(f.Enum) > 0 && f.Type != TypeString {
			return fmt.Errorf("%w: %s.%s enum requires string type", ErrInvalidDefinition, d.Name, f.Name)
		}
		if f.Default != nil {
			if f.Required {
				return fmt.Errorf("%w: %s.%s is required and has a default", ErrInvalidDefinition, d.Name, f.Name)
			}
			if _, problem := checkValue(f, f.Default); problem != "" {
				return fmt.Errorf("%w: %s.%s default: %s", ErrInvalidDefinition, d.Name, f.Name, problem)
			}
		}
	}
	return nil
}

// validate checks raw arguments against the definition and returns normalised
// arguments with defaults applied. All problems are collected.
func (d Definition) validate(raw map[string]any) (Arguments, []FieldError) {
	args := make(Arguments, len(d.Parameters))
	var problems []FieldError
	declared := make(map[string]struct{}, len(d.Parameters))

	for _, f := range d.Parameters {
		declared[f.Name] = struct{}{}
		v, ok := raw[f.Name]
		if !ok || v == nil {
			if f.Required {
				problems = append(problems, FieldError{Field: f.Name, Problem: "required field is missing"})
			}
			continue
		}
		norm, problem := checkValue(f, v)
		if problem != "" {
			problems = append(problems, FieldError{Field: f.Name, Problem: problem, Value: v})
			continue
		}
		args[f.Name] = norm
	}

	var unexpected []string
	for name := range raw {
		if _, ok := declared[name]; !ok {
			unexpected = append(unexpected, name)
		}
	}
	sort.Strings(unexpected)
	for _, name := range unexpected {
		problems = append(problems, FieldError{Field: name, Problem: "unexpected field", Value: raw[name]})
	}

	if len(problems) > 0 {
		return nil, problems
	}
	for _, f := range d.Parameters {
		if _, ok := args[f.Name]; !ok && f.Default != nil {
			args[f.Name], _ = checkValue(f, f.Default)
		}
	}
	return args, nil
}

// checkValue returns the normalised value or a non-empty problem description.
func checkValue(f Field, v any) (any, string) {
	switch f.Type {
	case TypeString:
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Sprintf("expected string, got %s", jsonType(v))
		}
		if f.MaxLength > 0 && utf8.RuneCountInString(s) > f.MaxLength {
			return nil, fmt.Sprintf("exceeds maximum length %d", f.MaxLength)
		}
		if len(f.Enum) > 0 && !slices.Contains(f.Enum, s) {
			return nil, fmt.Sprintf("must be one of %v", f.Enum)
		}
		return s, ""
	case TypeInteger:
		n, ok := toFloat(v)
		if !ok || n != math.Trunc(n) || math.IsInf(n, 0) {
			return nil, fmt.Sprintf("expected integer, got %s", jsonType(v))
		}
		if n >= math.MaxInt || n < math.MinInt {
			return nil, "integer out of range"
		}
		return int(n), ""
	case TypeNumber:
		n, ok := toFloat(v)
		if !ok {
			return nil, fmt.Sprintf("expected number, got %s", jsonType(v))
		}
		return n, ""
	case TypeBoolean:
		b, ok := v.(bool)
		if !ok {
			return nil, fmt.Sprintf("expected boolean, got %s", jsonType(v))
		}
		return b, ""
	}
	return nil, fmt.Sprintf("unsupported type %q", f.Type)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64: // JSON decoding produces float64 for every number
		return n, true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

func jsonType(v any) string {
	switch v.(type) {
	case string:
		return "string"
	case bool:
		return "boolean"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	}
	if _, ok := toFloat(v); ok {
		return "number"
	}
	return fmt.Sprintf("%T", v)
}
