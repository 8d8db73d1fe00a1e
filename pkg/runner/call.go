package runner

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
)

const logPrefix = "runner:call"

const maxResponseBytes = 4 << 20

type request struct {
	Action string      `json:"action"`
	Params interface{} `json:"params,omitempty"`
}

type response struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

// isEnvelope reports whether a decoded body is a real backend envelope.
// A success envelope asserts success; a failure envelope carries an
// error string. Anything else (an empty object, null) is not ours.
func (r *response) isEnvelope() bool {
	return r.Success || r.Error != ""
}

// Call is one invocation chain. Configure callbacks, then Invoke once;
// exactly one callback runs exactly once when the call settles.
// Callback setters apply only before Invoke: Invoke snapshots them.
type Call struct {
	backend *Backend

	mu        sync.Mutex
	onSuccess SuccessHandler
	onFailure FailureHandler
	invoked   bool
	err       error

	// Handler snapshot taken by Invoke. Written once before the request
	// goroutine starts, read only when the call settles.
	runSuccess SuccessHandler
	runFailure FailureHandler

	once sync.Once
	done chan struct{}
}

// WithSuccessHandler sets the success callback. Setting it again
// replaces the previous one; the last value before Invoke wins.
func (c *Call) WithSuccessHandler(fn SuccessHandler) *Call {
	c.mu.Lock()
	c.onSuccess = fn
	c.mu.Unlock()
	return c
}

// WithFailureHandler sets the failure callback. Setting it again
// replaces the previous one; the last value before Invoke wins.
func (c *Call) WithFailureHandler(fn FailureHandler) *Call {
	c.mu.Lock()
	c.onFailure = fn
	c.mu.Unlock()
	return c
}

// Invoke fires the action asynchronously and returns immediately. The
// params value is marshaled to JSON as the action's parameter document.
// Invoking an already-invoked Call is a no-op.
func (c *Call) Invoke(action string, params interface{}) *Call {
	c.mu.Lock()
	if c.invoked {
		c.mu.Unlock()
		return c
	}
	c.invoked = true
	c.runSuccess = c.onSuccess
	c.runFailure = c.onFailure
	c.mu.Unlock()

	body, err := json.Marshal(request{Action: action, Params: params})
	if err != nil {
		c.settleFailure(fmt.Sprintf("invalid params: %v", err))
		return c
	}
	go c.do(body)
	return c
}

// Wait blocks until the call settles. A Call that was never invoked
// returns immediately.
func (c *Call) Wait() {
	c.mu.Lock()
	invoked := c.invoked
	c.mu.Unlock()
	if !invoked {
		return
	}
	<-c.done
}

// Err returns the failure of a settled call, nil on success or while
// the call is still in flight.
func (c *Call) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

func (c *Call) do(body []byte) {
	req, err := http.NewRequestWithContext(c.backend.baseCtx, http.MethodPost, c.backend.endpoint, bytes.NewReader(body))
	if err != nil {
		c.settleFailure(fmt.Sprintf("request failed: %v", err))
		return
	}
	req.Header.Set("Content-Type", "application/json")
	if c.backend.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.backend.token)
	}
	if c.backend.shim != "" {
		req.Header.Set(headerShim, c.backend.shim)
	}

	httpResp, err := c.backend.client.Do(req)
	if err != nil {
		c.settleFailure(fmt.Sprintf("request failed: %v", err))
		return
	}
	defer httpResp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseBytes))
	if err != nil {
		c.settleFailure(fmt.Sprintf("request failed: %v", err))
		return
	}

	// Legacy deployments paired error envelopes with non-200 statuses,
	// so a decodable envelope wins over the status code.
	var envelope response
	if err := json.Unmarshal(raw, &envelope); err == nil && envelope.isEnvelope() {
		if envelope.Success {
			data := envelope.Data
			if len(data) == 0 {
				data = json.RawMessage("null")
			}
			c.settleSuccess(data)
			return
		}
		c.settleFailure(envelope.Error)
		return
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		c.settleFailure(fmt.Sprintf("unexpected status: %d", httpResp.StatusCode))
		return
	}
	c.settleFailure("invalid response")
}

func (c *Call) settleSuccess(data json.RawMessage) {
	c.once.Do(func() {
		c.mu.Lock()
		fn := c.runSuccess
		c.mu.Unlock()
		if fn != nil {
			runHandler(func() { fn(data) })
		}
		close(c.done)
	})
}

func (c *Call) settleFailure(message string) {
	c.once.Do(func() {
		c.mu.Lock()
		c.err = errors.New(message)
		fn := c.runFailure
		c.mu.Unlock()
		if fn != nil {
			runHandler(func() { fn(message) })
		}
		close(c.done)
	})
}

// runHandler shields the call from a panicking callback so the settle
// still completes and Wait returns.
func runHandler(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error(fmt.Sprintf("%s - callback panicked: %v", logPrefix, r))
		}
	}()
	fn()
}
