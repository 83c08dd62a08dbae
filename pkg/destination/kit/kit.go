// Package kit submits form values to the Kit (formerly ConvertKit) v4 REST
// API: create-or-update the subscriber, attach it to a form, and optionally
// tag it. Each step must succeed; a failing step aborts the rest and reports
// which call was rejected.
package kit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/tentapress/forms/pkg/destination"
	"github.com/tentapress/forms/pkg/field"
	"github.com/tentapress/forms/pkg/provider"
)

const defaultBaseURL = "https://api.kit.com"

var firstNameKeys = []string{"first_name", "firstname", "fname"}

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

// New constructs the Kit destination applying any provided options.
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
	return provider.Kit
}

func (d *Destination) Submit(ctx context.Context, config provider.Config, values map[string]any, defs []field.Definition, sub destination.Context) destination.Result {
	apiKey := config.Text("api_key")
	if apiKey == "" {
		return destination.Result{Error: "kit api_key is required"}
	}

	formID := config.Text("form_id")
	if formID == "" {
		return destination.Result{Error: "kit form_id is required"}
	}

	email := destination.EmailValue(values, defs)
	if email == "" {
		return destination.Result{Error: "kit requires an email field"}
	}

	baseURL := strings.TrimRight(config.Text("base_url"), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if !destination.ValidHTTPURL(baseURL) {
		return destination.Result{Error: "kit base URL is invalid"}
	}

	createPayload := map[string]any{"email_address": email}
	if firstName := resolveFirstName(values); firstName != "" {
		createPayload["first_name"] = firstName
	}
	if custom := customFields(values, defs); len(custom) > 0 {
		createPayload["fields"] = custom
	}

	if result, ok := d.post(ctx, apiKey, baseURL+"/v4/subscribers", createPayload, "kit rejected subscriber creation"); !ok {
		return result
	}

	formPayload := map[string]any{"email_address": email}
	if referrer := strings.TrimSpace(sub.SourceURL); referrer != "" && destination.ValidHTTPURL(referrer) {
		formPayload["referrer"] = referrer
	}

	formResult, ok := d.post(ctx, apiKey, fmt.Sprintf("%s/v4/forms/%s/subscribers", baseURL, url.PathEscape(formID)), formPayload, "kit rejected adding subscriber to form")
	if !ok {
		return formResult
	}

	if tagID := config.Text("tag_id"); tagID != "" {
		tagPayload := map[string]any{"email_address": email}
		if result, ok := d.post(ctx, apiKey, fmt.Sprintf("%s/v4/tags/%s/subscribers", baseURL, url.PathEscape(tagID)), tagPayload, "kit rejected subscriber tagging"); !ok {
			return result
		}
	}

	return destination.Result{OK: true, StatusCode: formResult.StatusCode}
}

// post runs one API call. The second return value reports whether the
// pipeline should continue; on false the Result already carries the failure.
func (d *Destination) post(ctx context.Context, apiKey, endpoint string, payload map[string]any, rejection string) (destination.Result, bool) {
	body, err := json.Marshal(payload)
	if err != nil {
		return destination.Result{Error: err.Error()}, false
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return destination.Result{Error: err.Error()}, false
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Kit-Api-Key", apiKey)

	resp, err := d.client.Do(req)
	if err != nil {
		return destination.Result{Error: err.Error()}, false
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return destination.Result{StatusCode: resp.StatusCode, Error: rejection}, false
	}
	return destination.Result{OK: true, StatusCode: resp.StatusCode}, true
}

func resolveFirstName(values map[string]any) string {
	for _, key := range firstNameKeys {
		if value := strings.TrimSpace(field.Text(values[key])); value != "" {
			return value
		}
	}
	return ""
}

// customFields collects every non-email field carrying a non-empty trimmed
// value, keyed by the field key Kit matches against its custom field names.
func customFields(values map[string]any, defs []field.Definition) map[string]string {
	fields := make(map[string]string)
	for _, def := range defs {
		if def.Type == field.TypeEmail {
			continue
		}
		value, ok := values[def.Key]
		if !ok {
			continue
		}
		text := strings.TrimSpace(field.Text(value))
		if text == "" {
			continue
		}
		fields[def.Key] = text
	}
	return fields
}
