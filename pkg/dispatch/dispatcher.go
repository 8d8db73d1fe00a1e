package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/xotizwf-create/Uchet/pkg/action"
	"github.com/xotizwf-create/Uchet/pkg/events"
	"github.com/xotizwf-create/Uchet/pkg/session"
	"github.com/xotizwf-create/Uchet/pkg/shimver"
)

const logPrefix = "dispatch:dispatcher"

// HTTP header names recognized by ServeHTTP. Token and shim values may
// also arrive inside the request body ctx field; headers win.
const (
	HeaderToken = "X-Auth-Token"
	HeaderShim  = "X-Uchet-Shim"
)

const maxBodyBytes = 1 << 20

// Credentials are the transport-level caller credentials extracted
// before the body is parsed.
type Credentials struct {
	Token string
	Shim  string
}

// Opts carries the optional dispatcher collaborators.
type Opts struct {
	// Gate rejects calls from shim versions outside the supported
	// range. Nil accepts every version.
	Gate *shimver.Gate
	// Publisher receives an audit event for every mutating action
	// that reached its handler. Nil defaults to NoOpPublisher.
	Publisher events.Publisher
}

// Dispatcher executes backend calls: parse, gate, authenticate, route,
// invoke, and normalize the outcome into a Response. Every outcome is
// an envelope; Dispatch never returns an error and never panics.
type Dispatcher struct {
	actions *action.Registry
	auth    session.Authenticator
	gate    *shimver.Gate
	pub     events.Publisher
	now     func() time.Time
}

// New creates a dispatcher over the given action registry. auth is
// consulted on every call and must not be nil.
func New(actions *action.Registry, auth session.Authenticator, opts *Opts) *Dispatcher {
	d := &Dispatcher{
		actions: actions,
		auth:    auth,
		pub:     &events.NoOpPublisher{},
		now:     time.Now,
	}
	if opts != nil {
		d.gate = opts.Gate
		if opts.Publisher != nil {
			d.pub = opts.Publisher
		}
	}
	return d
}

// Dispatch runs one backend call from a raw request body. The steps
// are fixed: parse, shim gate, authenticate, route, invoke. The first
// failing step produces the error envelope and later steps never run.
func (d *Dispatcher) Dispatch(ctx context.Context, creds Credentials, body []byte) Response {
	started := d.now()

	var req Request
	if err := json.Unmarshal(body, &req); err != nil {
		slog.Warn(fmt.Sprintf("%s - rejected undecodable request: %v", logPrefix, err))
		return failResponse(errInvalidRequest)
	}
	if req.Ctx != nil {
		if creds.Token == "" {
			creds.Token = req.Ctx.Token
		}
		if creds.Shim == "" {
			creds.Shim = req.Ctx.Shim
		}
	}

	name := req.ActionName()
	if name == "" {
		slog.Warn(fmt.Sprintf("%s - rejected request without action name", logPrefix))
		return failResponse(errInvalidRequest)
	}

	if err := d.gate.Check(creds.Shim); err != nil {
		slog.Warn(fmt.Sprintf("%s - rejected %s: %v", logPrefix, name, err))
		return failResponse(errUnsupportedShim(creds.Shim))
	}

	caller, err := d.auth.Authenticate(ctx, creds.Token)
	if err != nil {
		slog.Warn(fmt.Sprintf("%s - rejected %s: %v", logPrefix, name, err))
		return failResponse(errUnauthorized)
	}

	spec, ok := d.actions.Lookup(name)
	if !ok {
		slog.Warn(fmt.Sprintf("%s - no handler for %s (user %s)", logPrefix, name, caller.UserID))
		return failResponse(errUnknownAction(name))
	}

	result, herr := d.invoke(ctx, spec.Handler, caller, req.ParamsDoc())
	var resp Response
	if herr != nil {
		resp = failFromError(herr)
	} else {
		resp = okResponse(result)
	}

	elapsed := d.now().Sub(started)
	if resp.Success {
		slog.Info(fmt.Sprintf("%s - %s succeeded for user %s in %dms", logPrefix, name, caller.UserID, elapsed.Milliseconds()))
	} else {
		slog.Info(fmt.Sprintf("%s - %s failed for user %s in %dms: %s", logPrefix, name, caller.UserID, elapsed.Milliseconds(), resp.Error))
	}
	if spec.Mutating {
		d.audit(ctx, name, caller, resp, elapsed)
	}
	return resp
}

// invoke runs a handler and converts panics into the internal boundary
// error so a faulting handler cannot take the endpoint down.
func (d *Dispatcher) invoke(ctx context.Context, h action.Handler, caller session.Identity, params json.RawMessage) (result interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error(fmt.Sprintf("%s - handler panicked: %v", logPrefix, r))
			result = nil
			err = errInternal
		}
	}()
	return h(ctx, caller, params)
}

func (d *Dispatcher) audit(ctx context.Context, name string, caller session.Identity, resp Response, elapsed time.Duration) {
	event := &events.AuditEvent{
		Action:    name,
		UserID:    caller.UserID,
		Ok:        resp.Success,
		Error:     resp.Error,
		ElapsedMs: elapsed.Milliseconds(),
		Timestamp: d.now().UTC().Format(time.RFC3339),
	}
	if err := d.pub.PublishAudit(ctx, event); err != nil {
		slog.Error(fmt.Sprintf("%s - failed to publish audit event for %s: %v", logPrefix, name, err))
	}
}

// failFromError maps an invoke failure onto the error envelope.
// Boundary errors contribute their message; handler errors pass
// through verbatim.
func failFromError(err error) Response {
	var derr *Error
	if errors.As(err, &derr) {
		return failResponse(derr)
	}
	return Response{Success: false, Error: err.Error()}
}

// ServeHTTP exposes the dispatcher on a single POST endpoint. Every
// parseable interaction answers 200 with a JSON envelope; only the
// method gate uses a bare HTTP status.
func (d *Dispatcher) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		slog.Warn(fmt.Sprintf("%s - failed to read request body: %v", logPrefix, err))
		writeResponse(w, failResponse(errInvalidRequest))
		return
	}

	creds := Credentials{
		Token: bearerToken(r),
		Shim:  r.Header.Get(HeaderShim),
	}
	writeResponse(w, d.Dispatch(r.Context(), creds, body))
}

func writeResponse(w http.ResponseWriter, resp Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error(fmt.Sprintf("%s - failed to write response: %v", logPrefix, err))
	}
}

// bearerToken extracts the caller token from the Authorization header,
// falling back to X-Auth-Token for legacy clients.
func bearerToken(r *http.Request) string {
	const prefix = "Bearer "
	if h := r.Header.Get("Authorization"); len(h) > len(prefix) && strings.EqualFold(h[:len(prefix)], prefix) {
		return strings.TrimSpace(h[len(prefix):])
	}
	return r.Header.Get(HeaderToken)
}
