package fleetapi

import (
	"context"
	"net/http"

	"github.com/avast/retry-go/v4"
	"github.com/rs/zerolog/log"

	"github.com/fleetwave/fleetwave/internal/common/httpclient"
)

// attemptError describes one failed transport attempt for the retry engine.
// A zero status means the failure happened below HTTP: connection refused,
// timeout, canceled context.
type attemptError struct {
	status  int
	message string
	code    string
	cause   error
}

func (e *attemptError) Error() string {
	return e.message
}

func (e *attemptError) Unwrap() error {
	return e.cause
}

// transient reports whether the attempt is worth retrying: transport
// failures, timeouts, rate limiting, and server-side errors. Everything else
// is decisive on the first response.
func (e *attemptError) transient() bool {
	if e.status == 0 {
		return true
	}
	switch {
	case e.status == http.StatusRequestTimeout:
		return true
	case e.status == http.StatusTooManyRequests:
		return true
	case e.status >= 500:
		return true
	}
	return false
}

// doWithRetry runs one exchange until it yields a decisive response.
// Transient failures are retried with exponential backoff and jitter, the
// delay capped at MaxDelay, up to MaxAttempts total attempts. Any response
// the server classified itself, 4xx included, comes back as the result; only
// exhausted retries and cancellation surface as errors. The returned count
// is the number of transport attempts made.
func (e *Executor) doWithRetry(ctx context.Context, opts httpclient.RequestOptions) (*httpclient.RawResult, int, error) {
	var res *httpclient.RawResult
	attempts := 0

	err := retry.Do(func() error {
		attempts++
		attemptCtx, cancel := context.WithTimeout(ctx, e.engine.AttemptTimeout)
		defer cancel()

		r, err := e.client.Do(attemptCtx, opts)
		if err != nil {
			if ctx.Err() != nil {
				// The caller's context ended; the per-attempt deadline did not.
				return retry.Unrecoverable(&attemptError{message: "request cancelled", cause: ctx.Err()})
			}
			return &attemptError{message: err.Error(), cause: err}
		}

		if r.StatusCode >= 400 {
			ae := &attemptError{
				status:  r.StatusCode,
				message: responseMessage(r),
				code:    responseCode(r),
			}
			if ae.transient() {
				return ae
			}
		}

		res = r
		return nil
	},
		retry.Attempts(uint(e.engine.MaxAttempts)),
		retry.Delay(e.engine.BaseDelay),
		retry.MaxDelay(e.engine.MaxDelay),
		retry.MaxJitter(e.engine.BaseDelay/2),
		retry.DelayType(retry.CombineDelay(retry.BackOffDelay, retry.RandomDelay)),
		retry.LastErrorOnly(true),
		retry.Context(ctx),
		retry.OnRetry(func(n uint, err error) {
			log.Ctx(ctx).Debug().
				Uint("attempt", n+1).
				Str("path", opts.Path).
				Err(err).
				Msg("retrying request")
		}),
	)
	if err != nil {
		return nil, attempts, err
	}
	return res, attempts, nil
}

// doAuthRetry runs one exchange and recovers from a stale token: on a 401 or
// 403 it refreshes the session once and repeats the request, which then
// carries the new token. The refreshed flag is shared across an execution so
// a request never refreshes twice, no matter how many pages it fetches.
func (e *Executor) doAuthRetry(ctx context.Context, opts httpclient.RequestOptions, skipSession bool, refreshed *bool) (*httpclient.RawResult, int, error) {
	attempts := 0
	for {
		res, n, err := e.doWithRetry(ctx, opts)
		attempts += n
		if err != nil {
			return nil, attempts, err
		}

		if res.StatusCode == http.StatusUnauthorized || res.StatusCode == http.StatusForbidden {
			if skipSession || *refreshed {
				return res, attempts, nil
			}
			log.Ctx(ctx).Debug().Int("status", res.StatusCode).Msg("token rejected, refreshing session")
			if _, rerr := e.sessions.Refresh(ctx); rerr != nil {
				return res, attempts, rerr
			}
			*refreshed = true
			continue
		}

		return res, attempts, nil
	}
}
