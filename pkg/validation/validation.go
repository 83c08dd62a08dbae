// Package validation derives per-field rules from normalized field
// definitions and applies them to raw submitted values.
package validation

import (
	"fmt"
	"net/mail"
	"strings"
	"unicode/utf8"

	"github.com/tentapress/forms/pkg/field"
)

// Maximum value lengths in characters. Multi-line fields get more room.
const (
	MaxTextLength     = 255
	MaxTextareaLength = 5000
)

// Errors maps a field key to the first validation message for that field.
type Errors map[string]string

// Validate checks raw submitted values against the rules derived from each
// field definition. On success it returns the typed value mapping: checkbox
// values collapse to booleans, everything else is a trimmed string falling
// back to the field's default when absent and optional. On failure it
// returns one message per invalid field; checks within a field stop at the
// first failure.
func Validate(defs []field.Definition, input map[string]any) (map[string]any, Errors) {
	values := make(map[string]any, len(defs))
	errs := Errors{}

	for _, def := range defs {
		raw, present := input[def.Key]

		if def.Type == field.TypeCheckbox {
			value, message := checkboxValue(def, raw, present)
			if message != "" {
				errs[def.Key] = message
				continue
			}
			values[def.Key] = value
			continue
		}

		value, message := textValue(def, raw, present)
		if message != "" {
			errs[def.Key] = message
			continue
		}
		values[def.Key] = value
	}

	if len(errs) > 0 {
		return nil, errs
	}
	return values, nil
}

func checkboxValue(def field.Definition, raw any, present bool) (bool, string) {
	if def.Required {
		if !field.Truthy(raw) {
			return false, fmt.Sprintf("The %s field must be accepted.", def.Label)
		}
		return true, ""
	}

	if !present {
		return false, ""
	}
	text := strings.ToLower(strings.TrimSpace(field.Text(raw)))
	switch text {
	case "", "1", "true", "yes", "on", "0", "false", "no", "off":
		return field.Truthy(raw), ""
	}
	if _, isBool := raw.(bool); isBool {
		return raw.(bool), ""
	}
	return false, fmt.Sprintf("The %s field must be true or false.", def.Label)
}

func textValue(def field.Definition, raw any, present bool) (string, string) {
	value := strings.TrimSpace(field.Text(raw))

	if value == "" {
		if def.Required {
			return "", fmt.Sprintf("The %s field is required.", def.Label)
		}
		return def.Default, ""
	}

	if def.Type == field.TypeEmail {
		if !validEmail(value) {
			return "", fmt.Sprintf("The %s field must be a valid email address.", def.Label)
		}
	}

	limit := MaxTextLength
	if def.Type == field.TypeTextarea {
		limit = MaxTextareaLength
	}
	if utf8.RuneCountInString(value) > limit {
		return "", fmt.Sprintf("The %s field may not be greater than %d characters.", def.Label, limit)
	}

	if def.Type == field.TypeSelect && len(def.Options) > 0 && !def.HasOption(value) {
		return "", fmt.Sprintf("The selected %s is invalid.", def.Label)
	}

	return value, ""
}

func validEmail(value string) bool {
	parsed, err := mail.ParseAddress(value)
	if err != nil {
		return false
	}
	// Reject display-name forms; the submitted value must be the address.
	return parsed.Address == value
}
