// Package httpclient provides the HTTP transport used by the request engine.
// It builds authenticated requests from a Configurator, executes them under
// the caller's context, and returns the raw response regardless of HTTP
// status. Classifying a status as success or failure is the caller's concern;
// this package reports an error only when no response was obtained at all.
package httpclient

import (
	"context"
)

// Doer is the transport abstraction the request engine builds on.
// HTTPClient implements it over the network; HandlerClient implements it
// against an in-process handler for tests.
type Doer interface {
	// Do executes one HTTP exchange. See HTTPClient.Do for the error contract.
	Do(ctx context.Context, opts RequestOptions) (*RawResult, error)
}

// Verify that the HTTPClient and HandlerClient implement the Doer interface.
// This is a compile-time check to ensure both implementations satisfy the interface.
var _ Doer = &HTTPClient{}
var _ Doer = &HandlerClient{}
