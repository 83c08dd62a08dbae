package field

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var (
	keyInvalidRunes = regexp.MustCompile(`[^a-zA-Z0-9_-]`)
	copyPolicy      = bluemonday.StrictPolicy()
)

var allowedTypes = map[Type]struct{}{
	TypeEmail:    {},
	TypeText:     {},
	TypeTextarea: {},
	TypeCheckbox: {},
	TypeSelect:   {},
	TypeHidden:   {},
}

// Normalize turns arbitrary, possibly JSON-encoded field definitions into
// their canonical form. Malformed entries are dropped, never reported as
// errors: a field without a usable key or label simply does not exist.
// Normalize is idempotent over its own output.
func Normalize(raw any) []Definition {
	if text, ok := raw.(string); ok {
		var decoded []any
		if err := json.Unmarshal([]byte(text), &decoded); err != nil {
			return nil
		}
		raw = decoded
	}

	items := listify(raw)
	if items == nil {
		return nil
	}

	out := make([]Definition, 0, len(items))
	for _, item := range items {
		def, ok := normalizeOne(item)
		if !ok {
			continue
		}
		out = append(out, def)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func listify(raw any) []any {
	switch v := raw.(type) {
	case nil:
		return nil
	case []any:
		return v
	case []Definition:
		items := make([]any, len(v))
		for i, def := range v {
			items[i] = def
		}
		return items
	case []map[string]any:
		items := make([]any, len(v))
		for i, entry := range v {
			items[i] = entry
		}
		return items
	default:
		return nil
	}
}

func normalizeOne(raw any) (Definition, bool) {
	var item map[string]any
	switch v := raw.(type) {
	case Definition:
		item = map[string]any{
			"key":         v.Key,
			"label":       v.Label,
			"type":        string(v.Type),
			"required":    v.Required,
			"placeholder": v.Placeholder,
			"default":     v.Default,
			"options":     optionsToAny(v.Options),
			"merge_tag":   v.MergeTag,
		}
	case map[string]any:
		item = v
	default:
		return Definition{}, false
	}

	key := SanitizeKey(Text(item["key"]))
	label := CleanCopy(Text(item["label"]))
	if key == "" || label == "" {
		return Definition{}, false
	}

	kind := Type(strings.ToLower(strings.TrimSpace(Text(item["type"]))))
	if _, ok := allowedTypes[kind]; !ok {
		kind = TypeText
	}

	return Definition{
		Key:         key,
		Label:       label,
		Type:        kind,
		Required:    Truthy(item["required"]),
		Placeholder: CleanCopy(Text(item["placeholder"])),
		Default:     Text(item["default"]),
		Options:     normalizeOptions(item["options"]),
		MergeTag:    strings.ToUpper(strings.TrimSpace(Text(item["merge_tag"]))),
	}, true
}

func optionsToAny(options []Option) []any {
	if len(options) == 0 {
		return nil
	}
	out := make([]any, len(options))
	for i, opt := range options {
		out[i] = map[string]any{"value": opt.Value, "label": opt.Label}
	}
	return out
}

// normalizeOptions accepts either a list of {value,label} entries (or bare
// scalars) or a newline-delimited "value|label" text block. Entries with an
// empty value are dropped; a repeated value keeps its first position but
// takes the latest label.
func normalizeOptions(raw any) []Option {
	if items := listify(raw); items != nil {
		return dedupeOptions(optionsFromList(items))
	}

	text := strings.TrimSpace(Text(raw))
	if text == "" {
		return nil
	}

	var out []Option
	for _, line := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		value, label, found := strings.Cut(line, "|")
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}
		// "a|" is an explicit empty label; only a missing separator
		// falls back to the value.
		if !found {
			label = value
		}
		out = append(out, Option{Value: value, Label: strings.TrimSpace(label)})
	}
	return dedupeOptions(out)
}

func optionsFromList(items []any) []Option {
	var out []Option
	for _, item := range items {
		var value, label string
		switch v := item.(type) {
		case Option:
			value = strings.TrimSpace(v.Value)
			label = strings.TrimSpace(v.Label)
		case map[string]any:
			value = strings.TrimSpace(Text(v["value"]))
			if raw, ok := v["label"]; ok {
				// A present label key is authoritative, even when empty.
				label = strings.TrimSpace(Text(raw))
			} else {
				label = value
			}
		default:
			value = strings.TrimSpace(Text(item))
			label = value
		}
		if value == "" {
			continue
		}
		out = append(out, Option{Value: value, Label: label})
	}
	return out
}

func dedupeOptions(options []Option) []Option {
	if len(options) == 0 {
		return nil
	}
	index := make(map[string]int, len(options))
	out := options[:0]
	for _, opt := range options {
		if at, seen := index[opt.Value]; seen {
			out[at].Label = opt.Label
			continue
		}
		index[opt.Value] = len(out)
		out = append(out, opt)
	}
	return out
}

// SanitizeKey reduces an authored key to [a-z0-9_-]: invalid runes become
// underscores, the result is lowercased and trimmed of leading and trailing
// separators. An unusable key sanitizes to "".
func SanitizeKey(raw string) string {
	key := keyInvalidRunes.ReplaceAllString(strings.TrimSpace(raw), "_")
	key = strings.ToLower(key)
	return strings.Trim(key, "_-")
}

// CleanCopy strips any markup from author-supplied copy so widget text can
// never inject HTML into a host page, then trims surrounding whitespace.
func CleanCopy(raw string) string {
	return strings.TrimSpace(copyPolicy.Sanitize(raw))
}

// Truthy applies the coercion rule used throughout the pipeline: boolean
// true, integer 1, or one of "1"/"true"/"yes"/"on" case-insensitively.
// Everything else, including nil, is false.
func Truthy(value any) bool {
	switch v := value.(type) {
	case bool:
		return v
	case int:
		return v == 1
	case int32:
		return v == 1
	case int64:
		return v == 1
	case float64:
		return v == 1
	case float32:
		return v == 1
	}
	switch strings.ToLower(strings.TrimSpace(Text(value))) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

// Text renders a loosely-typed scalar the way the submission wire format
// does: nil is empty, booleans become "1"/"", numbers use their shortest
// decimal form.
func Text(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		if v {
			return "1"
		}
		return ""
	case int:
		return strconv.Itoa(v)
	case int32:
		return strconv.FormatInt(int64(v), 10)
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case json.Number:
		return v.String()
	default:
		return ""
	}
}
