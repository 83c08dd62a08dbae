// Package provider carries the canonical provider keys and the rules for
// assembling a provider configuration from an authored form payload.
package provider

import (
	"encoding/json"
	"strings"

	"github.com/tentapress/forms/pkg/field"
)

// Canonical provider keys. These are the only values a destination registry
// is expected to know about.
const (
	Mailchimp  = "mailchimp"
	Kit        = "kit"
	TentaForms = "tentafor.ms"
)

// Normalize maps authored provider names, including historical aliases, onto
// their canonical keys. Unrecognized names fall back to Mailchimp rather than
// failing; the authoring surface has always treated it as the default.
func Normalize(raw any) string {
	switch strings.ToLower(strings.TrimSpace(field.Text(raw))) {
	case "tentaforms", "tentafor.ms":
		return TentaForms
	case "kit", "convertkit":
		return Kit
	default:
		return Mailchimp
	}
}

// Config is the opaque provider-specific configuration handed to a
// destination: credentials, target URLs, list/form/tag identifiers.
type Config map[string]any

// Text returns the trimmed string form of a config value, or "" when the key
// is absent.
func (c Config) Text(key string) string {
	return strings.TrimSpace(field.Text(c[key]))
}

// Has reports whether the key is present, regardless of its value.
func (c Config) Has(key string) bool {
	_, ok := c[key]
	return ok
}

// flatKeys maps provider-prefixed shorthand keys from the authored payload
// onto the config keys destinations read.
var flatKeys = []struct {
	payload string
	config  string
}{
	{"mailchimp_action_url", "action_url"},
	{"mailchimp_list_id", "list_id"},
	{"mailchimp_gdpr_tag", "gdpr_tag"},
	{"tentaforms_form_id", "form_id"},
	{"tentaforms_environment", "environment"},
	{"kit_api_key", "api_key"},
	{"kit_form_id", "form_id"},
	{"kit_tag_id", "tag_id"},
}

// NormalizeConfig builds the effective provider configuration for a payload.
// It starts from the explicit provider_config entry (JSON-decoded when given
// as text) and back-fills provider-prefixed flat keys, but only where the
// explicit map does not already define the target key: explicit configuration
// always wins over shorthand.
func NormalizeConfig(payload map[string]any) Config {
	base := Config{}

	switch v := payload["provider_config"].(type) {
	case string:
		var decoded map[string]any
		// json "null" decodes into a nil map without error; keep the
		// empty base so the flat-key backfill still has a map to write.
		if err := json.Unmarshal([]byte(v), &decoded); err == nil && decoded != nil {
			base = decoded
		}
	case map[string]any:
		base = Config{}
		for key, value := range v {
			base[key] = value
		}
	case Config:
		base = Config{}
		for key, value := range v {
			base[key] = value
		}
	}

	for _, flat := range flatKeys {
		value := strings.TrimSpace(field.Text(payload[flat.payload]))
		if value == "" || base.Has(flat.config) {
			continue
		}
		base[flat.config] = value
	}

	return base
}
