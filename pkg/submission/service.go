// Package submission composes payload verification, spam filtering, dynamic
// validation, and provider dispatch into the single submit operation the HTTP
// boundary calls. Nothing escapes Submit as a fault: every failure mode is
// reduced to a categorized Outcome.
package submission

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tentapress/forms/pkg/destination"
	"github.com/tentapress/forms/pkg/field"
	"github.com/tentapress/forms/pkg/provider"
	"github.com/tentapress/forms/pkg/signer"
	"github.com/tentapress/forms/pkg/spamguard"
	"github.com/tentapress/forms/pkg/validation"
)

// Option customises the service configuration.
type Option func(*Service)

// WithLogger injects the logger telemetry records are written to.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock overrides the time source used for spam-guard timing. Tests use
// it to pin "now".
func WithClock(clock func() time.Time) Option {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// Service orchestrates one submission attempt end to end. It holds no
// per-attempt state; the destination registry it reads is immutable after
// startup, so a single Service serves concurrent requests.
type Service struct {
	signer       *signer.Signer
	destinations *destination.Registry
	logger       *slog.Logger
	clock        func() time.Time
}

// New constructs the service. Signer and registry are the two hard
// dependencies; logging and clock default sensibly.
func New(sig *signer.Signer, destinations *destination.Registry, options ...Option) *Service {
	s := &Service{
		signer:       sig,
		destinations: destinations,
		logger:       slog.Default(),
		clock:        time.Now,
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(s)
	}
	return s
}

// FromForm flattens an HTTP form body into the loosely-typed input Submit
// expects, keeping the first value for repeated keys.
func FromForm(form url.Values) map[string]any {
	input := make(map[string]any, len(form))
	for key, values := range form {
		if len(values) == 0 {
			continue
		}
		input[key] = values[0]
	}
	return input
}

// Submit runs the pipeline for one raw submission, short-circuiting on the
// first failure: verify the signed payload, apply the spam guard,
// re-normalize the embedded fields, validate the submitted values, and
// dispatch to the payload's provider. One telemetry record is emitted no
// matter how the attempt ends.
func (s *Service) Submit(ctx context.Context, input map[string]any, formKey string) Outcome {
	attemptID := uuid.NewString()

	payload := s.signer.Verify(field.Text(input[PayloadKey]))
	if payload == nil {
		return s.finish(attemptID, formKey, "", CategoryConfig, destination.Result{Error: "signed payload missing or unverifiable"}, nil, failure(MessageInvalidConfig))
	}

	if message := spamguard.Evaluate(
		field.Text(input[HoneypotKey]),
		startedAt(input[StartedAtKey]),
		s.clock().Unix(),
	); message != "" {
		return s.finish(attemptID, formKey, "", CategorySpam, destination.Result{Error: "spam guard rejection"}, nil, failure(message))
	}

	defs := field.Normalize(payload["fields"])
	if len(defs) == 0 {
		return s.finish(attemptID, formKey, "", CategoryConfig, destination.Result{Error: "no fields configured"}, nil, failure(MessageNoFields))
	}

	values, fieldErrs := validation.Validate(defs, input)
	if fieldErrs != nil {
		outcome := failure(MessageCheckFields)
		outcome.FieldErrors = fieldErrs
		return s.finish(attemptID, formKey, "", CategoryValidation, destination.Result{Error: "field validation failed"}, nil, outcome)
	}

	providerKey := provider.Normalize(payload["provider"])
	providerConfig := provider.NormalizeConfig(payload)

	dest, err := s.destinations.Get(providerKey)
	if err != nil {
		return s.finish(attemptID, formKey, providerKey, CategoryConfig, destination.Result{Error: err.Error()}, nil, failure(MessageProviderMissing))
	}

	result := dest.Submit(ctx, providerConfig, values, defs, destination.Context{
		FormKey:   formKey,
		SourceURL: field.Text(input[ReturnURLKey]),
	})

	telemetry := telemetryExtras{
		fieldCount: len(values),
		emailHash:  emailHash(values, defs),
	}

	if !result.OK {
		message := field.CleanCopy(field.Text(payload["error_message"]))
		if message == "" {
			message = MessageSubmissionFailed
		}
		return s.finish(attemptID, formKey, providerKey, CategoryProvider, result, &telemetry, failure(message))
	}

	message := field.CleanCopy(field.Text(payload["success_message"]))
	if message == "" {
		message = MessageSubmissionReceived
	}

	return s.finish(attemptID, formKey, providerKey, CategoryOK, result, &telemetry, Outcome{
		OK:          true,
		Message:     message,
		RedirectURL: strings.TrimSpace(field.Text(payload["redirect_url"])),
	})
}

type telemetryExtras struct {
	fieldCount int
	emailHash  string
}

// finish emits the per-attempt telemetry record and metric, then hands the
// outcome back unchanged.
func (s *Service) finish(attemptID, formKey, providerKey, category string, result destination.Result, extras *telemetryExtras, outcome Outcome) Outcome {
	attrs := []any{
		slog.String("attempt_id", attemptID),
		slog.String("form_key", formKey),
		slog.String("provider", providerKey),
		slog.String("category", category),
		slog.Bool("ok", outcome.OK),
	}
	if result.StatusCode != 0 {
		attrs = append(attrs, slog.Int("status_code", result.StatusCode))
	}
	if result.Error != "" {
		attrs = append(attrs, slog.String("error", result.Error))
	}
	if extras != nil {
		attrs = append(attrs, slog.Int("field_count", extras.fieldCount))
		if extras.emailHash != "" {
			attrs = append(attrs, slog.String("email_hash", extras.emailHash))
		}
	}
	s.logger.Info("forms submission attempt", attrs...)

	submissionsTotal.WithLabelValues(providerKey, category).Inc()
	return outcome
}

func startedAt(raw any) int64 {
	value, err := strconv.ParseInt(strings.TrimSpace(field.Text(raw)), 10, 64)
	if err != nil {
		return 0
	}
	return value
}

// emailHash returns the one-way hash logged in place of a submitted email
// address: correlation without storing PII. It covers the first email-typed
// field with a non-empty value.
func emailHash(values map[string]any, defs []field.Definition) string {
	email := destination.EmailValue(values, defs)
	if email == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(email))
	return hex.EncodeToString(sum[:])
}
