package fleetapi

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/fleetwave/fleetwave/internal/common/apperrors"
)

// Descriptor specifies one API request for the executor: the endpoint, the
// payload, and how the response should be handled. Descriptors are plain
// values; the executor never mutates them.
type Descriptor struct {
	Method  string            `json:"method" validate:"required,oneof=GET POST PUT PATCH DELETE"`
	Path    string            `json:"path" validate:"required,relativePath"`
	Query   map[string]string `json:"query,omitempty"`
	Headers map[string]string `json:"headers,omitempty"`
	Body    json.RawMessage   `json:"body,omitempty"`

	// Paginate follows the pagination envelope and aggregates all pages.
	Paginate bool `json:"paginate,omitempty"`
	// SkipPageLimit lifts the page cap for an explicitly unbounded listing.
	// Only meaningful with Paginate.
	SkipPageLimit bool `json:"skipPageLimit,omitempty"`

	// SkipSessionCheck runs the request without an active session. Used for
	// endpoints that do not require authentication, such as status and login.
	SkipSessionCheck bool `json:"-"`
	// DryRun renders the request instead of sending it.
	DryRun bool `json:"-"`
}

var (
	descValidator     *validator.Validate
	descValidatorOnce sync.Once
)

// requestValidator returns the descriptor validator, registering custom
// validations on first use.
func requestValidator() *validator.Validate {
	descValidatorOnce.Do(func() {
		descValidator = validator.New(validator.WithRequiredStructEnabled())
		descValidator.RegisterValidation("relativePath", relativePathValidator)
		descValidator.RegisterStructValidation(descriptorStructLevel, Descriptor{})
	})
	return descValidator
}

// relativePathValidator rejects absolute URLs; descriptors address endpoints
// relative to the configured server.
func relativePathValidator(fl validator.FieldLevel) bool {
	p := fl.Field().String()
	if strings.Contains(p, "://") {
		return false
	}
	return !strings.HasPrefix(p, "//")
}

// descriptorStructLevel enforces the cross-field rules: bodies are required
// on methods that write and forbidden on methods that don't, bodies must be
// valid JSON, and SkipPageLimit requires Paginate.
func descriptorStructLevel(sl validator.StructLevel) {
	d := sl.Current().Interface().(Descriptor)

	if len(d.Body) > 0 {
		switch d.Method {
		case http.MethodGet, http.MethodDelete:
			sl.ReportError(d.Body, "Body", "Body", "bodyNotAllowed", "")
		}
		if !json.Valid(d.Body) {
			sl.ReportError(d.Body, "Body", "Body", "bodyJSON", "")
		}
	} else {
		switch d.Method {
		case http.MethodPost, http.MethodPut, http.MethodPatch:
			sl.ReportError(d.Body, "Body", "Body", "bodyRequired", "")
		}
	}

	if d.SkipPageLimit && !d.Paginate {
		sl.ReportError(d.SkipPageLimit, "SkipPageLimit", "SkipPageLimit", "requiresPaginate", "")
	}
}

// ErrInvalidDescriptor is the base error for descriptor validation failures.
var ErrInvalidDescriptor = apperrors.New("invalid request descriptor").
	SetStatusCode(http.StatusBadRequest).
	SetCode(CodeInvalidRequest).
	SetExpandError(true)

// Validate checks the descriptor against the request rules. The returned
// error lists every violated rule, not just the first.
func (d Descriptor) Validate() apperrors.Error {
	err := requestValidator().Struct(d)
	if err == nil {
		return nil
	}

	validatorErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return ErrInvalidDescriptor.Msg(err.Error())
	}

	var msgs []string
	for _, e := range validatorErrors {
		switch e.Tag() {
		case "required":
			msgs = append(msgs, strings.ToLower(e.Field())+" is required")
		case "oneof":
			msgs = append(msgs, "method must be one of GET, POST, PUT, PATCH, DELETE")
		case "relativePath":
			msgs = append(msgs, "path must be relative to the server URL")
		case "bodyNotAllowed":
			msgs = append(msgs, "body is not allowed with method "+d.Method)
		case "bodyRequired":
			msgs = append(msgs, "body is required with method "+d.Method)
		case "bodyJSON":
			msgs = append(msgs, "body must be valid JSON")
		case "requiresPaginate":
			msgs = append(msgs, "skipPageLimit requires paginate")
		default:
			msgs = append(msgs, strings.ToLower(e.Field())+" is invalid")
		}
	}
	return ErrInvalidDescriptor.Msg(strings.Join(msgs, "; "))
}
