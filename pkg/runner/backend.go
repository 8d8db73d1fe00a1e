// Package runner is the client-side shim for the backend API. It mirrors
// the legacy front-end call style: configure success and failure
// callbacks, fire an action, and exactly one of the callbacks runs
// exactly once when the call settles. Missing callbacks are silent
// no-ops and there are no retries.
//
//	backend.
//		WithSuccessHandler(func(data json.RawMessage) { ... }).
//		WithFailureHandler(func(msg string) { ... }).
//		Invoke("warehouse.getStock", map[string]string{"sku": "X1"})
package runner

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// Header names the shim sends alongside each call.
const (
	headerShim = "X-Uchet-Shim"
)

const defaultTimeout = 30 * time.Second

// SuccessHandler receives the data document of a successful call. Data
// is json.RawMessage("null") when the server omitted it.
type SuccessHandler func(data json.RawMessage)

// FailureHandler receives the single failure string of a failed call.
type FailureHandler func(message string)

// Backend is a handle on one backend endpoint. It is safe for
// concurrent use; every chain started from it gets its own Call.
type Backend struct {
	endpoint string
	client   *http.Client
	token    string
	shim     string
	baseCtx  context.Context
}

// Option configures a Backend.
type Option func(*Backend)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(b *Backend) {
		if client != nil {
			b.client = client
		}
	}
}

// WithToken sets the bearer token sent with every call.
func WithToken(token string) Option {
	return func(b *Backend) {
		b.token = token
	}
}

// WithShimVersion sets the shim version reported to the server.
func WithShimVersion(version string) Option {
	return func(b *Backend) {
		b.shim = version
	}
}

// WithBaseContext sets the context each invocation runs under.
// Canceling it settles in-flight calls through their failure handler.
func WithBaseContext(ctx context.Context) Option {
	return func(b *Backend) {
		if ctx != nil {
			b.baseCtx = ctx
		}
	}
}

// New creates a Backend for the given endpoint URL.
func New(endpoint string, opts ...Option) *Backend {
	b := &Backend{
		endpoint: endpoint,
		client:   &http.Client{Timeout: defaultTimeout},
		baseCtx:  context.Background(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// WithSuccessHandler starts a new call chain with a success callback.
func (b *Backend) WithSuccessHandler(fn SuccessHandler) *Call {
	return b.newCall().WithSuccessHandler(fn)
}

// WithFailureHandler starts a new call chain with a failure callback.
func (b *Backend) WithFailureHandler(fn FailureHandler) *Call {
	return b.newCall().WithFailureHandler(fn)
}

// Invoke fires an action with no callbacks attached. The outcome is
// still available through Wait and Err on the returned Call.
func (b *Backend) Invoke(action string, params interface{}) *Call {
	return b.newCall().Invoke(action, params)
}

func (b *Backend) newCall() *Call {
	return &Call{
		backend: b,
		done:    make(chan struct{}),
	}
}
