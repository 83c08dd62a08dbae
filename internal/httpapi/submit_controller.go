// Package httpapi exposes the public submission endpoint and relays each
// outcome across the post-submit redirect through a one-time status cookie
// the host page renders as a banner.
package httpapi

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/tentapress/forms/internal/httpserver"
	"github.com/tentapress/forms/pkg/submission"
)

const statusCookiePrefix = "tp_forms.status."

var (
	formKeyPattern   = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)
	statusKeyInvalid = regexp.MustCompile(`[^a-z0-9_-]`)
)

// Submitter is the slice of the submission service this controller needs.
type Submitter interface {
	Submit(ctx context.Context, input map[string]any, formKey string) submission.Outcome
}

func NewSubmitFormController(submissions Submitter, limiter *httpserver.RateLimiter) *SubmitFormController {
	return &SubmitFormController{
		submissions: submissions,
		limiter:     limiter,
	}
}

var _ httpserver.Controller = &SubmitFormController{}

type SubmitFormController struct {
	submissions Submitter
	limiter     *httpserver.RateLimiter
}

func (c *SubmitFormController) AddRoutes(router *http.ServeMux) {
	router.Handle("POST /forms/submit/{formKey}", c.submit())
}

func (c *SubmitFormController) submit() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		formKey := r.PathValue("formKey")
		if !formKeyPattern.MatchString(formKey) {
			http.NotFound(w, r)
			return
		}

		if c.limiter != nil && !c.limiter.Allow(httpserver.ClientIP(r)+"|"+strings.ToLower(formKey)) {
			slog.Warn("submission rate limited", slog.String("form_key", formKey))
			http.Error(w, "Too many submissions. Please try again later.", http.StatusTooManyRequests)
			return
		}

		if err := r.ParseForm(); err != nil {
			http.Error(w, "invalid form body", http.StatusBadRequest)
			return
		}

		outcome := c.submissions.Submit(r.Context(), submission.FromForm(r.PostForm), formKey)

		setStatusCookie(w, formKey, outcome)

		if outcome.OK && outcome.RedirectURL != "" {
			http.Redirect(w, r, outcome.RedirectURL, http.StatusSeeOther)
			return
		}

		http.Redirect(w, r, c.returnTarget(r), http.StatusSeeOther)
	}
}

// returnTarget picks where the visitor lands after the redirect: the
// submitted return URL when it is relative or points at this host, else the
// referring page, else the site root. Off-host return URLs are ignored so
// the endpoint cannot be used as an open redirector.
func (c *SubmitFormController) returnTarget(r *http.Request) string {
	returnURL := strings.TrimSpace(r.PostFormValue(submission.ReturnURLKey))
	if returnURL != "" {
		if strings.HasPrefix(returnURL, "/") && !strings.HasPrefix(returnURL, "//") {
			return returnURL
		}
		if target, err := url.Parse(returnURL); err == nil && strings.EqualFold(target.Host, r.Host) && target.Host != "" {
			return returnURL
		}
	}

	if referer := strings.TrimSpace(r.Referer()); referer != "" {
		return referer
	}
	return "/"
}

// Status is the one-time banner payload the host page reads after the
// redirect.
type Status struct {
	Type    string `json:"type"`
	Message string `json:"message"`

	// Errors carries per-field validation messages so the page can
	// re-render inline errors next to the offending inputs.
	Errors map[string]string `json:"errors,omitempty"`
}

// StatusCookieName returns the per-form cookie the outcome travels in.
func StatusCookieName(formKey string) string {
	normalized := statusKeyInvalid.ReplaceAllString(strings.ToLower(strings.TrimSpace(formKey)), "")
	if normalized == "" {
		normalized = "form"
	}
	return statusCookiePrefix + normalized
}

func setStatusCookie(w http.ResponseWriter, formKey string, outcome submission.Outcome) {
	status := Status{Type: "success", Message: outcome.Message}
	if !outcome.OK {
		status.Type = "error"
		status.Errors = outcome.FieldErrors
	}

	encoded, err := json.Marshal(status)
	if err != nil {
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     StatusCookieName(formKey),
		Value:    base64.RawURLEncoding.EncodeToString(encoded),
		Path:     "/",
		MaxAge:   300,
		SameSite: http.SameSiteLaxMode,
	})
}

// DecodeStatusCookie reverses setStatusCookie; the rendering collaborator
// uses it to show the one-time banner and then expires the cookie.
func DecodeStatusCookie(value string) (Status, bool) {
	raw, err := base64.RawURLEncoding.DecodeString(value)
	if err != nil {
		return Status{}, false
	}
	var status Status
	if err := json.Unmarshal(raw, &status); err != nil {
		return Status{}, false
	}
	return status, true
}
