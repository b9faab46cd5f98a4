package fleetapi

import (
	"encoding/json"
	"time"
)

// OutcomeStatus identifies the terminal state of an executed request.
type OutcomeStatus string

const (
	// StatusComplete means the request succeeded and Payload holds the result.
	StatusComplete OutcomeStatus = "complete"
	// StatusPartialSuccess means a batch request succeeded for some items
	// only; Partial holds the per-item results.
	StatusPartialSuccess OutcomeStatus = "partial_success"
	// StatusFailed means the request failed; Failure holds the reason.
	StatusFailed OutcomeStatus = "failed"
	// StatusAuthentication means the request failed because credentials were
	// missing, expired beyond recovery, or rejected.
	StatusAuthentication OutcomeStatus = "authentication"
	// StatusCancelled means the caller canceled the request before it
	// reached a terminal server response.
	StatusCancelled OutcomeStatus = "cancelled"
	// StatusDryRun means the request was rendered instead of sent; Rendered
	// holds the rendering.
	StatusDryRun OutcomeStatus = "dry_run"
)

// Failure codes used across the engine. Server-provided error codes pass
// through unchanged; these cover failures the engine itself classifies.
const (
	CodeNoSession          = "no_session"
	CodeAuthFailed         = "auth_failed"
	CodeInvalidRequest     = "invalid_request"
	CodeRetriesExhausted   = "retries_exhausted"
	CodePaginationOverflow = "pagination_overflow"
	CodeCancelled          = "cancelled"
	CodeServerError        = "server_error"
)

// Failure describes why a request did not complete. Message carries the
// richest description available: the server's error message when one was
// returned, otherwise the transport or engine error.
type Failure struct {
	Code       string `json:"code"`                 // machine-readable failure code
	Message    string `json:"message"`              // human-readable description
	HTTPStatus int    `json:"httpStatus,omitempty"` // HTTP status, 0 when no response was received
}

// ItemResult is the per-item record of a batch operation.
type ItemResult struct {
	ID      string `json:"id"`
	Status  string `json:"status"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

// PartialResult reports a batch operation where some items failed.
type PartialResult struct {
	Succeeded int          `json:"succeeded"`
	Failed    int          `json:"failed"`
	Items     []ItemResult `json:"items"`
}

// RenderedRequest is the dry-run rendering of a request: exactly what would
// be sent, with credentials masked.
type RenderedRequest struct {
	Method  string            `json:"method"`
	URL     string            `json:"url"`
	Headers map[string]string `json:"headers"`
	Body    json.RawMessage   `json:"body,omitempty"`
}

// Outcome is the result of executing a descriptor. Status selects which
// variant field is set: Payload for Complete, Partial for PartialSuccess,
// Failure for Failed, Authentication and Cancelled, Rendered for DryRun.
// Reading a variant that does not match Status yields nil.
type Outcome struct {
	RequestID string           `json:"requestId"`
	Status    OutcomeStatus    `json:"status"`
	Payload   json.RawMessage  `json:"payload,omitempty"`
	Pages     int              `json:"pages,omitempty"` // pages fetched when the request paginated
	Attempts  int              `json:"attempts,omitempty"`
	Partial   *PartialResult   `json:"partial,omitempty"`
	Failure   *Failure         `json:"failure,omitempty"`
	Rendered  *RenderedRequest `json:"rendered,omitempty"`
	Duration  time.Duration    `json:"-"`
}

// Succeeded reports whether the request reached a success terminal state.
// Partial success counts as a failure here; callers that want to treat it
// differently check Status directly.
func (o Outcome) Succeeded() bool {
	return o.Status == StatusComplete || o.Status == StatusDryRun
}

func completeOutcome(id string, payload []byte, pages, attempts int) Outcome {
	return Outcome{
		RequestID: id,
		Status:    StatusComplete,
		Payload:   payload,
		Pages:     pages,
		Attempts:  attempts,
	}
}

func partialOutcome(id string, partial *PartialResult, payload []byte, attempts int) Outcome {
	return Outcome{
		RequestID: id,
		Status:    StatusPartialSuccess,
		Payload:   payload,
		Attempts:  attempts,
		Partial:   partial,
	}
}

func failedOutcome(id string, failure *Failure, attempts int) Outcome {
	return Outcome{
		RequestID: id,
		Status:    StatusFailed,
		Attempts:  attempts,
		Failure:   failure,
	}
}

func authOutcome(id string, failure *Failure, attempts int) Outcome {
	return Outcome{
		RequestID: id,
		Status:    StatusAuthentication,
		Attempts:  attempts,
		Failure:   failure,
	}
}

func cancelledOutcome(id string, failure *Failure, attempts int) Outcome {
	return Outcome{
		RequestID: id,
		Status:    StatusCancelled,
		Attempts:  attempts,
		Failure:   failure,
	}
}

func dryRunOutcome(id string, rendered *RenderedRequest) Outcome {
	return Outcome{
		RequestID: id,
		Status:    StatusDryRun,
		Rendered:  rendered,
	}
}
