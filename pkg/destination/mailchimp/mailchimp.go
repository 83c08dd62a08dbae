// Package mailchimp submits form values to a Mailchimp embedded-form action
// URL as a single form-encoded POST, mapping each field onto a merge tag.
package mailchimp

import (
	"context"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/tentapress/forms/pkg/destination"
	"github.com/tentapress/forms/pkg/field"
	"github.com/tentapress/forms/pkg/provider"
)

var mergeTagRunes = regexp.MustCompile(`[^A-Z0-9]`)

type Option func(*Destination)

// WithHTTPClient injects an alternate client, primarily for tests.
func WithHTTPClient(client *http.Client) Option {
	return func(d *Destination) {
		if client != nil {
			d.client = client
		}
	}
}

type Destination struct {
	client *http.Client
}

// New constructs the Mailchimp destination applying any provided options.
func New(options ...Option) *Destination {
	d := &Destination{client: destination.NewHTTPClient()}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(d)
	}
	return d
}

func (d *Destination) Key() string {
	return provider.Mailchimp
}

// Submit maps every field to a merge tag and posts the result to the
// configured action URL. Form-post endpoints report failures with redirects
// and error pages rather than status codes alone, so any status below 400
// counts as accepted.
func (d *Destination) Submit(ctx context.Context, config provider.Config, values map[string]any, defs []field.Definition, sub destination.Context) destination.Result {
	actionURL := config.Text("action_url")
	if !destination.ValidHTTPURL(actionURL) {
		return destination.Result{Error: "mailchimp action URL is invalid"}
	}

	payload := mapPayload(config, values, defs)
	if len(payload) == 0 {
		return destination.Result{Error: "no fields were mapped for mailchimp"}
	}

	if listID := config.Text("list_id"); listID != "" && !payload.Has("id") {
		payload.Set("id", listID)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, actionURL, strings.NewReader(payload.Encode()))
	if err != nil {
		return destination.Result{Error: err.Error()}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "*/*")

	resp, err := d.client.Do(req)
	if err != nil {
		return destination.Result{Error: err.Error()}
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 400 {
		return destination.Result{StatusCode: resp.StatusCode, Error: "mailchimp rejected the submission"}
	}
	return destination.Result{OK: true, StatusCode: resp.StatusCode}
}

func mapPayload(config provider.Config, values map[string]any, defs []field.Definition) url.Values {
	payload := url.Values{}

	for _, def := range defs {
		value, ok := values[def.Key]
		if !ok {
			continue
		}

		text := strings.TrimSpace(field.Text(value))
		if def.Type == field.TypeCheckbox {
			if !field.Truthy(value) {
				continue
			}
			text = "1"
		}

		tag := MergeTag(def)
		if tag == "" {
			continue
		}
		payload.Set(tag, text)
	}

	// A configured GDPR tag is forwarded as consent whenever any checkbox
	// field was affirmed, unless a field already mapped onto it.
	gdprTag := strings.ToUpper(config.Text("gdpr_tag"))
	if gdprTag != "" && !payload.Has(gdprTag) {
		for _, def := range defs {
			if def.Type != field.TypeCheckbox {
				continue
			}
			if field.Truthy(values[def.Key]) {
				payload.Set(gdprTag, "1")
				break
			}
		}
	}

	return payload
}

// MergeTag resolves the Mailchimp merge tag for a field. An explicit
// merge_tag always wins; otherwise well-known keys map to EMAIL/FNAME/LNAME
// and anything else becomes the key uppercased, stripped to [A-Z0-9] and
// truncated to Mailchimp's 10-character tag limit.
func MergeTag(def field.Definition) string {
	if explicit := strings.ToUpper(strings.TrimSpace(def.MergeTag)); explicit != "" {
		return explicit
	}

	switch strings.ToLower(strings.TrimSpace(def.Key)) {
	case "email", "email_address":
		return "EMAIL"
	case "first_name", "firstname", "fname":
		return "FNAME"
	case "last_name", "lastname", "lname":
		return "LNAME"
	}

	tag := mergeTagRunes.ReplaceAllString(strings.ToUpper(def.Key), "")
	if len(tag) > 10 {
		tag = tag[:10]
	}
	return tag
}
