// Package destination defines the uniform contract between the submission
// pipeline and the external subscription providers that receive normalized
// field values.
package destination

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tentapress/forms/pkg/field"
	"github.com/tentapress/forms/pkg/provider"
)

// DefaultTimeout bounds every outbound provider call. Submissions run inline
// in a user-facing request, so a slow provider must not hold it longer.
const DefaultTimeout = 10 * time.Second

// Context carries ambient, non-field data some providers use for
// attribution: the originating form key and the referring page URL.
type Context struct {
	FormKey   string
	SourceURL string
}

// Result is what a destination reports back for one submission. Error is an
// internal diagnostic for logs; it is never shown to the end user.
type Result struct {
	OK         bool
	StatusCode int
	Error      string
}

// Destination submits one set of validated field values to an external
// provider. Implementations catch their own transport failures and express
// them through Result, never through a panic or returned error.
type Destination interface {
	Key() string
	Submit(ctx context.Context, config provider.Config, values map[string]any, defs []field.Definition, sub Context) Result
}

// NewHTTPClient returns the client destinations use for outbound calls.
func NewHTTPClient() *http.Client {
	return &http.Client{Timeout: DefaultTimeout}
}

// ValidHTTPURL reports whether raw parses as an absolute http or https URL
// with a host. Destinations refuse to call anything else.
func ValidHTTPURL(raw string) bool {
	parsed, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return false
	}
	if parsed.Host == "" {
		return false
	}
	switch strings.ToLower(parsed.Scheme) {
	case "http", "https":
		return true
	default:
		return false
	}
}

// EmailValue returns the lowercased value of the first email-typed field
// carrying a non-empty value, or "" when the submission has none.
func EmailValue(values map[string]any, defs []field.Definition) string {
	for _, def := range defs {
		if def.Type != field.TypeEmail {
			continue
		}
		email := strings.ToLower(strings.TrimSpace(field.Text(values[def.Key])))
		if email != "" {
			return email
		}
	}
	return ""
}
