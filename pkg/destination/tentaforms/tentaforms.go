// Package tentaforms submits form values to the first-party TentaForms API.
// Outside production it defaults to a stub mode that reports success without
// touching the network, so authors can exercise forms in non-production
// environments.
package tentaforms

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

const (
	productionBaseURL = "https://api.tentaforms.com"
	stagingBaseURL    = "https://staging-api.tentaforms.com"

	// StubStatusCode marks results produced without a network call.
	StubStatusCode = http.StatusAccepted
)

type Option func(*Destination)

// WithHTTPClient injects an alternate client, primarily for tests.
func WithHTTPClient(client *http.Client) Option {
	return func(d *Destination) {
		if client != nil {
			d.client = client
		}
	}
}

// WithStubDefault sets whether submissions short-circuit to a stubbed
// success when the provider config does not say otherwise. Deployments
// enable it outside production.
func WithStubDefault(stub bool) Option {
	return func(d *Destination) {
		d.stubDefault = stub
	}
}

type Destination struct {
	client      *http.Client
	stubDefault bool
}

// New constructs the TentaForms destination applying any provided options.
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
	return provider.TentaForms
}

func (d *Destination) Submit(ctx context.Context, config provider.Config, values map[string]any, defs []field.Definition, sub destination.Context) destination.Result {
	formID := config.Text("form_id")
	if formID == "" {
		return destination.Result{Error: "tentaforms form_id is required"}
	}

	stub := d.stubDefault
	if config.Has("stub") {
		stub = field.Truthy(config["stub"])
	}
	if stub {
		return destination.Result{OK: true, StatusCode: StubStatusCode}
	}

	defaultBase := productionBaseURL
	if strings.ToLower(config.Text("environment")) == "staging" {
		defaultBase = stagingBaseURL
	}
	baseURL := strings.TrimRight(config.Text("base_url"), "/")
	if baseURL == "" {
		baseURL = defaultBase
	}
	if !destination.ValidHTTPURL(baseURL) {
		return destination.Result{Error: "tentaforms base URL is invalid"}
	}

	endpoint := fmt.Sprintf("%s/forms/%s/submissions", baseURL, url.PathEscape(formID))
	body, err := json.Marshal(map[string]any{
		"fields": values,
		"context": map[string]string{
			"form_key":   sub.FormKey,
			"source_url": sub.SourceURL,
		},
	})
	if err != nil {
		return destination.Result{Error: err.Error()}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return destination.Result{Error: err.Error()}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if apiKey := config.Text("api_key"); apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+apiKey)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return destination.Result{Error: err.Error()}
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return destination.Result{StatusCode: resp.StatusCode, Error: "tentaforms rejected the submission"}
	}
	return destination.Result{OK: true, StatusCode: resp.StatusCode}
}
