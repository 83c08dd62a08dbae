package forms

import (
	"github.com/tentapress/forms/pkg/destination"
	"github.com/tentapress/forms/pkg/destination/kit"
	"github.com/tentapress/forms/pkg/destination/mailchimp"
	"github.com/tentapress/forms/pkg/destination/tentaforms"
	"github.com/tentapress/forms/pkg/field"
	"github.com/tentapress/forms/pkg/signer"
	"github.com/tentapress/forms/pkg/submission"
)

// Outcome is the result of handling a submission; aliased at the root for
// callers that only need the facade.
type Outcome = submission.Outcome

// FieldDefinition describes a single form field after normalization.
type FieldDefinition = field.Definition

// NewSigner derives a payload signer from a textual secret.
func NewSigner(secret string) (*signer.Signer, error) {
	return signer.NewFromSecret(secret)
}

// NewService wires a submission service with every built-in destination
// registered. It is the simplest entry point for callers embedding the
// pipeline instead of running the bundled server.
func NewService(sig *signer.Signer, options ...submission.Option) *Service {
	registry := destination.NewRegistry()
	registry.MustRegister(mailchimp.New())
	registry.MustRegister(kit.New())
	registry.MustRegister(tentaforms.New())
	return submission.New(sig, registry, options...)
}

// NewServiceWithRegistry builds a submission service around a caller-managed
// destination registry, for embedders that bring their own destinations.
func NewServiceWithRegistry(sig *signer.Signer, registry *destination.Registry, options ...submission.Option) *Service {
	return submission.New(sig, registry, options...)
}

// Service processes signed submissions end to end.
type Service = submission.Service
