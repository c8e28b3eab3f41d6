package tool

import "fmt"

// Schema defines the argument contract for a tool using JSON-Schema-like
// conventions, the same shape the LLM function-calling surface expects.
type Schema struct {
	Type        string               `json:"type"`
	Properties  map[string]*Property `json:"properties,omitempty"`
	Required    []string             `json:"required,omitempty"`
	Description string               `json:"description,omitempty"`
}

// Property defines a single argument field.
type Property struct {
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
	Enum        []any  `json:"enum,omitempty"`
	Default     any    `json:"default,omitempty"`
	Format      string `json:"format,omitempty"`

	// Minimum/Maximum bound numeric properties. Nil means unbounded.
	Minimum *float64 `json:"minimum,omitempty"`
	Maximum *float64 `json:"maximum,omitempty"`
}

// Validate applies defaults, rejects unknown fields, and checks each
// required field's type/range/enum membership, returning a normalized copy
// of args. It aborts on the first structural problem, matching the
// pipeline's single-error-per-stage contract.
func Validate(schema *Schema, args map[string]any) (map[string]any, error) {
	if schema == nil || schema.Properties == nil {
		return cloneArgs(args), nil
	}

	normalized := make(map[string]any, len(schema.Properties))

	for name, value := range args {
		prop, known := schema.Properties[name]
		if !known {
			return nil, &ValidationError{
				Field:   name,
				Message: fmt.Sprintf("unknown field %q", name),
			}
		}
		checked, err := checkProperty(name, prop, value)
		if err != nil {
			return nil, err
		}
		normalized[name] = checked
	}

	for name, prop := range schema.Properties {
		if _, present := normalized[name]; present {
			continue
		}
		if prop.Default != nil {
			normalized[name] = prop.Default
		}
	}

	for _, required := range schema.Required {
		if _, present := normalized[required]; !present {
			return nil, &ValidationError{
				Field:   required,
				Message: "required field missing",
			}
		}
	}

	return normalized, nil
}

func checkProperty(field string, prop *Property, value any) (any, error) {
	if prop.Type != "" {
		if !typeMatches(prop.Type, value) {
			return nil, &ValidationError{
				Field:   field,
				Message: fmt.Sprintf("expected type %s, got %T", prop.Type, value),
			}
		}
	}

	if len(prop.Enum) > 0 {
		matched := false
		for _, allowed := range prop.Enum {
			if allowed == value {
				matched = true
				break
			}
		}
		if !matched {
			return nil, &ValidationError{
				Field:   field,
				Message: fmt.Sprintf("value %v not in enum %v", value, prop.Enum),
			}
		}
	}

	if num, ok := asFloat(value); ok {
		if prop.Minimum != nil && num < *prop.Minimum {
			return nil, &ValidationError{
				Field:   field,
				Message: fmt.Sprintf("value %v below minimum %v", value, *prop.Minimum),
			}
		}
		if prop.Maximum != nil && num > *prop.Maximum {
			return nil, &ValidationError{
				Field:   field,
				Message: fmt.Sprintf("value %v above maximum %v", value, *prop.Maximum),
			}
		}
	}

	return value, nil
}

func typeMatches(want string, value any) bool {
	switch want {
	case "string":
		_, ok := value.(string)
		return ok
	case "boolean":
		_, ok := value.(bool)
		return ok
	case "number":
		_, ok := asFloat(value)
		return ok
	case "integer":
		switch v := value.(type) {
		case int, int32, int64:
			return true
		case float64:
			return v == float64(int64(v))
		default:
			return false
		}
	case "array":
		_, ok := value.([]any)
		return ok
	case "object":
		_, ok := value.(map[string]any)
		return ok
	default:
		return true
	}
}

func asFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}

func cloneArgs(args map[string]any) map[string]any {
	if args == nil {
		return map[string]any{}
	}
	clone := make(map[string]any, len(args))
	for k, v := range args {
		clone[k] = v
	}
	return clone
}
