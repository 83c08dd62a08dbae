package submission_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/tentapress/forms/pkg/destination"
	"github.com/tentapress/forms/pkg/destination/kit"
	"github.com/tentapress/forms/pkg/destination/tentaforms"
	"github.com/tentapress/forms/pkg/field"
	"github.com/tentapress/forms/pkg/provider"
	"github.com/tentapress/forms/pkg/signer"
	"github.com/tentapress/forms/pkg/submission"
)

type capturingDestination struct {
	key    string
	result destination.Result

	config provider.Config
	values map[string]any
	sub    destination.Context
	calls  int
}

func (d *capturingDestination) Key() string { return d.key }

func (d *capturingDestination) Submit(_ context.Context, config provider.Config, values map[string]any, _ []field.Definition, sub destination.Context) destination.Result {
	d.calls++
	d.config = config
	d.values = values
	d.sub = sub
	return d.result
}

func testSigner(t *testing.T) *signer.Signer {
	t.Helper()
	s, err := signer.NewFromSecret("submission-test")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return s
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newService(t *testing.T, sig *signer.Signer, dests ...destination.Destination) *submission.Service {
	t.Helper()
	registry := destination.NewRegistry()
	for _, d := range dests {
		if err := registry.Register(d); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	return submission.New(sig, registry, submission.WithLogger(quietLogger()))
}

func signPayload(t *testing.T, sig *signer.Signer, payload map[string]any) string {
	t.Helper()
	token, err := sig.Sign(payload)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return token
}

func emailOnlyPayload(extra map[string]any) map[string]any {
	payload := map[string]any{
		"provider": "tentaforms",
		"fields": []any{
			map[string]any{"key": "email", "label": "Email", "type": "email", "required": true},
		},
		"provider_config": map[string]any{"form_id": "frm_1", "stub": true},
	}
	for key, value := range extra {
		payload[key] = value
	}
	return payload
}

func baseInput(token string, startedAt int64) map[string]any {
	return map[string]any{
		submission.PayloadKey:   token,
		submission.HoneypotKey:  "",
		submission.StartedAtKey: strconv.FormatInt(startedAt, 10),
		submission.ReturnURLKey: "https://host.example/page",
		"email":                 "user@example.com",
	}
}

// Scenario: a well-formed tentafor.ms submission started a few seconds ago.
func TestSubmitSuccess(t *testing.T) {
	sig := testSigner(t)
	svc := newService(t, sig, tentaforms.New())

	token := signPayload(t, sig, emailOnlyPayload(nil))
	outcome := svc.Submit(context.Background(), baseInput(token, time.Now().Unix()-3), "newsletter")

	if !outcome.OK {
		t.Fatalf("expected success, got %+v", outcome)
	}
	if outcome.Message != submission.MessageSubmissionReceived {
		t.Fatalf("unexpected message: %q", outcome.Message)
	}
	if outcome.RedirectURL != "" {
		t.Fatalf("expected no redirect, got %q", outcome.RedirectURL)
	}
}

func TestSubmitUsesConfiguredCopyAndRedirect(t *testing.T) {
	sig := testSigner(t)
	svc := newService(t, sig, tentaforms.New())

	token := signPayload(t, sig, emailOnlyPayload(map[string]any{
		"success_message": "<b>Signed up!</b>",
		"redirect_url":    " https://host.example/thanks ",
	}))
	outcome := svc.Submit(context.Background(), baseInput(token, time.Now().Unix()-10), "newsletter")

	if !outcome.OK {
		t.Fatalf("expected success, got %+v", outcome)
	}
	if outcome.Message != "Signed up!" {
		t.Fatalf("expected stripped configured message, got %q", outcome.Message)
	}
	if outcome.RedirectURL != "https://host.example/thanks" {
		t.Fatalf("unexpected redirect: %q", outcome.RedirectURL)
	}
}

// Scenario: same submission, but the start timestamp is "now".
func TestSubmitTooFast(t *testing.T) {
	sig := testSigner(t)
	dest := &capturingDestination{key: provider.TentaForms, result: destination.Result{OK: true}}
	svc := newService(t, sig, dest)

	token := signPayload(t, sig, emailOnlyPayload(nil))
	outcome := svc.Submit(context.Background(), baseInput(token, time.Now().Unix()), "newsletter")

	if outcome.OK {
		t.Fatal("expected failure")
	}
	if outcome.Message != "Please wait a moment before submitting." {
		t.Fatalf("unexpected message: %q", outcome.Message)
	}
	if dest.calls != 0 {
		t.Fatal("destination must not be contacted")
	}
}

func TestSubmitRejectsMissingOrTamperedPayload(t *testing.T) {
	sig := testSigner(t)
	svc := newService(t, sig, tentaforms.New())

	for _, token := range []string{"", "bogus-token"} {
		input := baseInput(token, time.Now().Unix()-5)
		outcome := svc.Submit(context.Background(), input, "newsletter")
		if outcome.OK || outcome.Message != submission.MessageInvalidConfig {
			t.Fatalf("unexpected outcome for token %q: %+v", token, outcome)
		}
	}
}

func TestSubmitHoneypot(t *testing.T) {
	sig := testSigner(t)
	svc := newService(t, sig, tentaforms.New())

	token := signPayload(t, sig, emailOnlyPayload(nil))
	input := baseInput(token, time.Now().Unix()-5)
	input[submission.HoneypotKey] = "filled by a bot"

	outcome := svc.Submit(context.Background(), input, "newsletter")
	if outcome.OK || outcome.Message != "We could not process your submission." {
		t.Fatalf("unexpected outcome: %+v", outcome)
	}
}

func TestSubmitNoFieldsConfigured(t *testing.T) {
	sig := testSigner(t)
	svc := newService(t, sig, tentaforms.New())

	token := signPayload(t, sig, map[string]any{
		"provider": "tentaforms",
		"fields":   []any{},
	})
	outcome := svc.Submit(context.Background(), baseInput(token, time.Now().Unix()-5), "newsletter")

	if outcome.OK || outcome.Message != submission.MessageNoFields {
		t.Fatalf("unexpected outcome: %+v", outcome)
	}
}

// Scenario: a select field restricted to a|Alpha, b|Beta receives "c". The
// provider must never be contacted.
func TestSubmitValidationFailure(t *testing.T) {
	sig := testSigner(t)
	dest := &capturingDestination{key: provider.TentaForms, result: destination.Result{OK: true}}
	svc := newService(t, sig, dest)

	token := signPayload(t, sig, map[string]any{
		"provider": "tentaforms",
		"fields": []any{
			map[string]any{"key": "plan", "label": "Plan", "type": "select", "options": "a|Alpha\nb|Beta"},
		},
		"provider_config": map[string]any{"form_id": "frm_1"},
	})
	input := baseInput(token, time.Now().Unix()-5)
	input["plan"] = "c"

	outcome := svc.Submit(context.Background(), input, "newsletter")

	if outcome.OK {
		t.Fatal("expected failure")
	}
	if outcome.FieldErrors["plan"] != "The selected Plan is invalid." {
		t.Fatalf("unexpected field errors: %+v", outcome.FieldErrors)
	}
	if dest.calls != 0 {
		t.Fatal("destination must not be contacted")
	}
}

func TestSubmitUnknownProvider(t *testing.T) {
	sig := testSigner(t)
	// Registry only knows kit; payload normalizes to mailchimp.
	svc := newService(t, sig, kit.New())

	token := signPayload(t, sig, map[string]any{
		"provider": "mailchimp",
		"fields": []any{
			map[string]any{"key": "email", "label": "Email", "type": "email"},
		},
	})
	outcome := svc.Submit(context.Background(), baseInput(token, time.Now().Unix()-5), "newsletter")

	if outcome.OK || outcome.Message != submission.MessageProviderMissing {
		t.Fatalf("unexpected outcome: %+v", outcome)
	}
}

// Scenario: Kit rejects the add-to-form call with a 400; the visitor sees
// the configured error copy, never the provider diagnostic.
func TestSubmitDestinationFailureUsesConfiguredErrorMessage(t *testing.T) {
	var paths []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		if r.URL.Path == "/v4/forms/frm_1/subscribers" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	sig := testSigner(t)
	svc := newService(t, sig, kit.New())

	token := signPayload(t, sig, map[string]any{
		"provider": "kit",
		"fields": []any{
			map[string]any{"key": "email", "label": "Email", "type": "email", "required": true},
		},
		"provider_config": map[string]any{
			"api_key":  "secret",
			"form_id":  "frm_1",
			"base_url": server.URL,
		},
		"error_message": "Signup is having a moment. Try again shortly.",
	})
	outcome := svc.Submit(context.Background(), baseInput(token, time.Now().Unix()-5), "newsletter")

	if outcome.OK {
		t.Fatal("expected failure")
	}
	if outcome.Message != "Signup is having a moment. Try again shortly." {
		t.Fatalf("unexpected message: %q", outcome.Message)
	}
	if len(paths) != 2 {
		t.Fatalf("expected the pipeline to stop after the failing step, got %v", paths)
	}
}

func TestSubmitDestinationFailureFallbackMessage(t *testing.T) {
	sig := testSigner(t)
	dest := &capturingDestination{key: provider.TentaForms, result: destination.Result{Error: "boom"}}
	svc := newService(t, sig, dest)

	token := signPayload(t, sig, emailOnlyPayload(nil))
	outcome := svc.Submit(context.Background(), baseInput(token, time.Now().Unix()-5), "newsletter")

	if outcome.OK || outcome.Message != submission.MessageSubmissionFailed {
		t.Fatalf("unexpected outcome: %+v", outcome)
	}
}

func TestSubmitPassesContextAndConfigToDestination(t *testing.T) {
	sig := testSigner(t)
	dest := &capturingDestination{key: provider.Kit, result: destination.Result{OK: true, StatusCode: 201}}
	svc := newService(t, sig, dest)

	token := signPayload(t, sig, map[string]any{
		"provider": "convertkit",
		"fields": []any{
			map[string]any{"key": "email", "label": "Email", "type": "email", "required": true},
			map[string]any{"key": "updates", "label": "Updates", "type": "checkbox"},
		},
		"kit_api_key": "flat-key",
		"kit_form_id": "flat-form",
	})
	input := baseInput(token, time.Now().Unix()-5)
	input["updates"] = "on"

	outcome := svc.Submit(context.Background(), input, "homepage")

	if !outcome.OK {
		t.Fatalf("expected success, got %+v", outcome)
	}
	if dest.sub.FormKey != "homepage" {
		t.Fatalf("unexpected form key: %q", dest.sub.FormKey)
	}
	if dest.sub.SourceURL != "https://host.example/page" {
		t.Fatalf("unexpected source url: %q", dest.sub.SourceURL)
	}
	if dest.config.Text("api_key") != "flat-key" || dest.config.Text("form_id") != "flat-form" {
		t.Fatalf("unexpected config: %+v", dest.config)
	}
	if dest.values["email"] != "user@example.com" {
		t.Fatalf("unexpected values: %+v", dest.values)
	}
	if dest.values["updates"] != true {
		t.Fatalf("expected checkbox collapsed to bool, got %T", dest.values["updates"])
	}
}

func TestFromForm(t *testing.T) {
	form := map[string][]string{
		"email": {"a@b.com", "second@ignored.com"},
		"name":  {"Ada"},
		"empty": {},
	}

	input := submission.FromForm(form)

	if input["email"] != "a@b.com" || input["name"] != "Ada" {
		t.Fatalf("unexpected input: %+v", input)
	}
	if _, ok := input["empty"]; ok {
		t.Fatal("expected empty slice to be dropped")
	}
}
