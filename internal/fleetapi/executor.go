// Package fleetapi implements the request engine behind the CLI. It executes
// declarative request descriptors against the Fleetwave API: validating the
// descriptor, keeping the workspace session fresh, retrying transient
// failures with bounded backoff, walking paginated responses, and classifying
// every result into a single Outcome value. Commands describe requests;
// this package owns how they are carried out.
package fleetapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/fleetwave/fleetwave/internal/common/apperrors"
	"github.com/fleetwave/fleetwave/internal/common/httpclient"
	"github.com/fleetwave/fleetwave/internal/common/logtrace"
	"github.com/fleetwave/fleetwave/internal/common/uuid"
)

// ClientConfig adapts the CLI's server settings and the session store into
// the transport's Configurator. Token reads go through the store, so a
// refresh mid-request is visible to the very next attempt.
type ClientConfig struct {
	ServerURL string
	APIKey    string
	Store     *SessionStore
}

func (c *ClientConfig) GetServerURL() string {
	return c.ServerURL
}

func (c *ClientConfig) GetAPIKey() string {
	return c.APIKey
}

func (c *ClientConfig) GetToken() string {
	if c.Store == nil {
		return ""
	}
	return c.Store.Current().Token
}

func (c *ClientConfig) GetTokenExpiry() time.Time {
	if c.Store == nil {
		return time.Time{}
	}
	return c.Store.Current().Expiry
}

var _ httpclient.Configurator = &ClientConfig{}

// RequestRecord is the journal entry the executor emits for every executed
// request.
type RequestRecord struct {
	RequestID  string
	Method     string
	URL        string
	Status     OutcomeStatus
	Code       string
	HTTPStatus int
	Attempts   int
	Pages      int
	Duration   time.Duration
	Payload    []byte
}

// Recorder receives a record of each executed request. The journal package
// implements it with a tamper-evident log.
type Recorder interface {
	Record(ctx context.Context, rec RequestRecord) error
}

// Executor runs descriptors against the fleet API. It is safe for concurrent
// use; all request state lives on the stack of each Execute call.
type Executor struct {
	client   httpclient.Doer
	config   httpclient.Configurator
	sessions *SessionStore
	engine   EngineConfig
	diag     *Diagnostics
	recorder Recorder
}

// ExecutorOptions configures a new Executor. Client, Config and Sessions are
// required; a zero Engine uses DefaultEngineConfig.
type ExecutorOptions struct {
	Client   httpclient.Doer
	Config   httpclient.Configurator
	Sessions *SessionStore
	Engine   EngineConfig
	Recorder Recorder
}

// NewExecutor creates an executor from the given options.
func NewExecutor(opts ExecutorOptions) (*Executor, error) {
	if opts.Client == nil {
		return nil, apperrors.New("transport client is required")
	}
	if opts.Config == nil {
		return nil, apperrors.New("client configuration is required")
	}
	if opts.Sessions == nil {
		return nil, apperrors.New("session store is required")
	}
	engine := opts.Engine
	if engine == (EngineConfig{}) {
		engine = DefaultEngineConfig()
	}
	return &Executor{
		client:   opts.Client,
		config:   opts.Config,
		sessions: opts.Sessions,
		engine:   engine,
		diag:     newDiagnostics(),
		recorder: opts.Recorder,
	}, nil
}

// Diagnostics returns the executor's diagnostic state.
func (e *Executor) Diagnostics() *Diagnostics {
	return e.diag
}

// Execute runs one descriptor to a terminal outcome. It never returns an
// error; every way a request can end is a distinct Outcome status, so
// callers switch on the result instead of string-matching error text.
func (e *Executor) Execute(ctx context.Context, desc Descriptor) Outcome {
	id := uuid.New().String()
	start := time.Now()

	logger := log.With().
		Str("requestId", id).
		Str("method", desc.Method).
		Str("path", desc.Path).
		Logger()
	ctx = logtrace.WithRequestID(logger.WithContext(ctx), id)

	outcome := e.run(ctx, id, desc)
	outcome.Duration = time.Since(start)

	e.diag.record(desc, outcome)
	e.journal(ctx, desc, outcome)

	if outcome.Failure != nil {
		logger.Debug().
			Str("status", string(outcome.Status)).
			Str("code", outcome.Failure.Code).
			Int("attempts", outcome.Attempts).
			Msg("request did not complete")
	}
	return outcome
}

func (e *Executor) run(ctx context.Context, id string, desc Descriptor) Outcome {
	// Validation comes before everything else; an invalid descriptor fails
	// even in dry-run mode.
	if err := desc.Validate(); err != nil {
		return failedOutcome(id, failureFromAppError(err, CodeInvalidRequest), 0)
	}

	// Session check. A token expiring within the skew is refreshed here, at
	// most once per execution.
	if !desc.SkipSessionCheck {
		if _, err := e.sessions.Resolve(ctx); err != nil {
			if ctx.Err() != nil {
				return cancelledOutcome(id, &Failure{Code: CodeCancelled, Message: cancelMessage(ctx, err)}, 0)
			}
			return authOutcome(id, failureFromAppError(err, CodeAuthFailed), 0)
		}
	}

	// Dry run renders the request instead of sending it. No transport call
	// happens past this point in dry-run mode.
	if desc.DryRun {
		rendered, err := e.renderRequest(desc)
		if err != nil {
			return failedOutcome(id, &Failure{Code: CodeInvalidRequest, Message: err.Error()}, 0)
		}
		return dryRunOutcome(id, rendered)
	}

	opts := requestOptions(desc)
	refreshed := false

	if desc.Paginate {
		agg, attempts, pf := e.fetchPages(ctx, desc, opts, &refreshed)
		if pf != nil {
			return e.pageFailureOutcome(ctx, id, pf, attempts)
		}
		payload, err := agg.payload()
		if err != nil {
			return failedOutcome(id, &Failure{Code: CodeServerError, Message: "unable to assemble aggregated result: " + err.Error()}, attempts)
		}
		return completeOutcome(id, payload, agg.pages, attempts)
	}

	res, attempts, err := e.doAuthRetry(ctx, opts, desc.SkipSessionCheck, &refreshed)
	if err != nil {
		return e.errorOutcome(ctx, id, err, attempts)
	}
	return classifyResponse(id, res, attempts)
}

// classifyResponse maps a decisive server response onto an outcome.
func classifyResponse(id string, res *httpclient.RawResult, attempts int) Outcome {
	switch {
	case res.StatusCode == http.StatusPartialContent:
		return partialOutcome(id, parsePartial(res.Body), res.Body, attempts)
	case res.StatusCode >= 200 && res.StatusCode < 300:
		// An error envelope inside a 2xx is still a failure.
		if carriesError(res) {
			return failedOutcome(id, failureFromResponse(res), attempts)
		}
		return completeOutcome(id, res.Body, 0, attempts)
	case res.StatusCode == http.StatusUnauthorized || res.StatusCode == http.StatusForbidden:
		f := failureFromResponse(res)
		if f.Code == CodeServerError {
			f.Code = CodeAuthFailed
		}
		return authOutcome(id, f, attempts)
	default:
		return failedOutcome(id, failureFromResponse(res), attempts)
	}
}

// errorOutcome maps a terminal engine error, one with no decisive server
// response behind it, onto an outcome.
func (e *Executor) errorOutcome(ctx context.Context, id string, err error, attempts int) Outcome {
	if ctx.Err() != nil || errors.Is(err, context.Canceled) {
		return cancelledOutcome(id, &Failure{Code: CodeCancelled, Message: cancelMessage(ctx, err)}, attempts)
	}

	// Session refresh failures carry an application error and classify as
	// authentication failures.
	var ae apperrors.Error
	if errors.As(err, &ae) {
		return authOutcome(id, failureFromAppError(ae, CodeAuthFailed), attempts)
	}

	var at *attemptError
	if errors.As(err, &at) {
		return failedOutcome(id, &Failure{
			Code:       CodeRetriesExhausted,
			Message:    fmt.Sprintf("retries exhausted after %d attempts: %s", attempts, at.message),
			HTTPStatus: at.status,
		}, attempts)
	}

	return failedOutcome(id, &Failure{
		Code:    CodeRetriesExhausted,
		Message: err.Error(),
	}, attempts)
}

// pageFailureOutcome maps a failed pagination walk onto an outcome, naming
// the page position where the sequence broke.
func (e *Executor) pageFailureOutcome(ctx context.Context, id string, pf *pageFailure, attempts int) Outcome {
	if pf.err != nil {
		out := e.errorOutcome(ctx, id, pf.err, attempts)
		if out.Failure != nil && pf.pages > 0 {
			out.Failure.Message = fmt.Sprintf("page %d: %s", pf.pages+1, out.Failure.Message)
		}
		return out
	}
	if pf.overflow {
		return failedOutcome(id, pf.failure(e.engine.MaxPages), attempts)
	}
	if pf.res != nil && (pf.res.StatusCode == http.StatusUnauthorized || pf.res.StatusCode == http.StatusForbidden) {
		f := failureFromResponse(pf.res)
		if f.Code == CodeServerError {
			f.Code = CodeAuthFailed
		}
		f.Message = fmt.Sprintf("page %d: %s", pf.pages+1, f.Message)
		return authOutcome(id, f, attempts)
	}
	return failedOutcome(id, pf.failure(e.engine.MaxPages), attempts)
}

// journal hands the outcome to the recorder, if one is attached. Dry runs
// are not recorded; nothing was sent.
func (e *Executor) journal(ctx context.Context, desc Descriptor, o Outcome) {
	if e.recorder == nil || o.Status == StatusDryRun {
		return
	}

	reqURL, err := httpclient.BuildRequestURL(e.config.GetServerURL(), requestOptions(desc))
	if err != nil {
		reqURL = desc.Path
	}
	rec := RequestRecord{
		RequestID: o.RequestID,
		Method:    desc.Method,
		URL:       reqURL,
		Status:    o.Status,
		Attempts:  o.Attempts,
		Pages:     o.Pages,
		Duration:  o.Duration,
		Payload:   o.Payload,
	}
	if o.Failure != nil {
		rec.Code = o.Failure.Code
		rec.HTTPStatus = o.Failure.HTTPStatus
	}
	if err := e.recorder.Record(ctx, rec); err != nil {
		log.Ctx(ctx).Warn().Err(err).Msg("unable to record journal entry")
	}
}

// requestOptions maps a descriptor onto the transport request.
func requestOptions(desc Descriptor) httpclient.RequestOptions {
	return httpclient.RequestOptions{
		Method:      desc.Method,
		Path:        desc.Path,
		QueryParams: desc.Query,
		Headers:     desc.Headers,
		Body:        desc.Body,
	}
}

// failureFromAppError flattens an application error into a Failure, keeping
// the full wrapped message chain as the description.
func failureFromAppError(err error, fallbackCode string) *Failure {
	var ae apperrors.Error
	if !errors.As(err, &ae) {
		return &Failure{Code: fallbackCode, Message: err.Error()}
	}
	code := ae.Code()
	if code == "" {
		code = fallbackCode
	}
	return &Failure{
		Code:       code,
		Message:    ae.SetExpandError(true).ErrorAll(),
		HTTPStatus: ae.StatusCode(),
	}
}

func cancelMessage(ctx context.Context, err error) string {
	cause := ctx.Err()
	if cause == nil {
		cause = err
	}
	if errors.Is(cause, context.DeadlineExceeded) {
		return "request deadline exceeded"
	}
	return "request cancelled"
}
