// Package tests contains end-to-end tests for the uchet backend. These
// tests wire the real dispatcher to an HTTP test server and an embedded
// NATS server, then drive it through the client-side runner chain,
// simulating real front-end interactions without a database.
package tests

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	commsserver "github.com/nats-io/nats-server/v2/server"
	comms "github.com/nats-io/nats.go"

	"github.com/xotizwf-create/Uchet/pkg/action"
	"github.com/xotizwf-create/Uchet/pkg/dispatch"
	"github.com/xotizwf-create/Uchet/pkg/events"
	"github.com/xotizwf-create/Uchet/pkg/runner"
	"github.com/xotizwf-create/Uchet/pkg/session"
	"github.com/xotizwf-create/Uchet/pkg/shimver"
)

const (
	testBackendSubject = "uchet.test.backend.v1"
	testPort           = 14240
	testShimConstraint = ">=1.0.0 <2.0.0"
)

// testEnv holds the test environment for E2E tests: real dispatcher,
// spy handlers instead of the database-backed services.
type testEnv struct {
	ns    *commsserver.Server
	nc    *comms.Conn
	http  *httptest.Server
	token string

	mu      sync.Mutex
	audited []*events.AuditEvent
	invoked map[string]int
}

func (e *testEnv) noteInvoke(name string) {
	e.mu.Lock()
	e.invoked[name]++
	e.mu.Unlock()
}

func (e *testEnv) invocations(name string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.invoked[name]
}

func (e *testEnv) auditEvents() []*events.AuditEvent {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]*events.AuditEvent, len(e.audited))
	copy(out, e.audited)
	return out
}

// setupE2E starts an embedded NATS server and an HTTP test server, both
// bound to one dispatcher over spy handlers. The handlers stand in for
// the database-backed services and for external-collaborator modules
// the embedding application would register.
func setupE2E(t *testing.T) *testEnv {
	t.Helper()

	opts := &commsserver.Options{
		Host:   "127.0.0.1",
		Port:   testPort,
		NoLog:  true,
		NoSigs: true,
	}

	ns, err := commsserver.NewServer(opts)
	if err != nil {
		t.Fatalf("e2e_test - failed to create NATS server: %v", err)
	}

	go ns.Start()
	if !ns.ReadyForConnections(10 * time.Second) {
		t.Fatal("e2e_test - NATS server failed to start")
	}

	nc, err := comms.Connect(ns.ClientURL(), comms.Timeout(5*time.Second))
	if err != nil {
		ns.Shutdown()
		t.Fatalf("e2e_test - failed to connect: %v", err)
	}

	env := &testEnv{
		ns:      ns,
		nc:      nc,
		invoked: make(map[string]int),
	}

	actions := action.NewRegistry()
	actions.MustRegister("warehouse.getStock", action.Spec{
		Doc: "current stock level for one item",
		Handler: func(_ context.Context, _ session.Identity, params json.RawMessage) (interface{}, error) {
			env.noteInvoke("warehouse.getStock")
			var p struct {
				SKU string `json:"sku"`
			}
			json.Unmarshal(params, &p)
			if p.SKU != "X1" {
				return nil, fmt.Errorf("SKU not found")
			}
			return map[string]interface{}{"sku": "X1", "qty": 42}, nil
		},
	})
	actions.MustRegister("contracts.create", action.Spec{
		Doc:      "add a contract",
		Mutating: true,
		Handler: func(_ context.Context, _ session.Identity, params json.RawMessage) (interface{}, error) {
			env.noteInvoke("contracts.create")
			var p struct {
				Number string `json:"number"`
			}
			json.Unmarshal(params, &p)
			return map[string]string{"id": "c-1", "number": p.Number}, nil
		},
	})
	actions.MustRegister("commercials.build", action.Spec{
		Doc:      "build a commercial offer",
		Mutating: true,
		Handler: func(context.Context, session.Identity, json.RawMessage) (interface{}, error) {
			env.noteInvoke("commercials.build")
			return nil, fmt.Errorf("quota exceeded")
		},
	})
	actions.MustRegister("archive.zipMonth", action.Spec{
		Doc: "archive one month of documents",
		Handler: func(context.Context, session.Identity, json.RawMessage) (interface{}, error) {
			env.noteInvoke("archive.zipMonth")
			panic("zip writer exploded")
		},
	})

	tokens := session.NewTokenStore(time.Hour)
	token, err := tokens.Issue(session.Identity{UserID: "e2e-user"})
	if err != nil {
		nc.Close()
		ns.Shutdown()
		t.Fatalf("e2e_test - failed to issue token: %v", err)
	}
	env.token = token

	gate, err := shimver.NewGate(testShimConstraint)
	if err != nil {
		nc.Close()
		ns.Shutdown()
		t.Fatalf("e2e_test - failed to build gate: %v", err)
	}

	pub := events.NewCallbackPublisher(func(_ context.Context, event *events.AuditEvent) error {
		env.mu.Lock()
		env.audited = append(env.audited, event)
		env.mu.Unlock()
		return nil
	})

	disp := dispatch.New(actions, tokens, &dispatch.Opts{Gate: gate, Publisher: pub})

	// COMMS binding, same shape as the server subscription
	_, err = nc.Subscribe(testBackendSubject, func(msg *comms.Msg) {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		resp := disp.Dispatch(ctx, dispatch.Credentials{}, msg.Data)
		data, _ := json.Marshal(resp)
		msg.Respond(data)
	})
	if err != nil {
		nc.Close()
		ns.Shutdown()
		t.Fatalf("e2e_test - failed to subscribe: %v", err)
	}

	env.http = httptest.NewServer(disp)

	t.Cleanup(func() {
		env.http.Close()
		nc.Close()
		ns.Shutdown()
		ns.WaitForShutdown()
	})

	return env
}

// invokeOverRunner runs one call through the runner chain and returns
// what settled: the success data (nil if the failure handler ran) and
// the failure message ("" if the success handler ran).
func invokeOverRunner(t *testing.T, b *runner.Backend, actionName string, params interface{}) (json.RawMessage, string) {
	t.Helper()

	var data json.RawMessage
	var failure string
	successes, failures := 0, 0

	b.
		WithSuccessHandler(func(d json.RawMessage) {
			successes++
			data = d
		}).
		WithFailureHandler(func(msg string) {
			failures++
			failure = msg
		}).
		Invoke(actionName, params).
		Wait()

	if successes+failures != 1 {
		t.Fatalf("e2e_test - %s settled %d success / %d failure callbacks, want exactly one total",
			actionName, successes, failures)
	}
	return data, failure
}

func TestE2E_RunnerRoundTrip_Success(t *testing.T) {
	env := setupE2E(t)
	backend := runner.New(env.http.URL, runner.WithToken(env.token), runner.WithShimVersion("1.2.3"))

	data, failure := invokeOverRunner(t, backend, "warehouse.getStock", map[string]string{"sku": "X1"})
	if failure != "" {
		t.Fatalf("e2e_test - failure handler fired: %q", failure)
	}

	var got struct {
		SKU string  `json:"sku"`
		Qty float64 `json:"qty"`
	}
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("e2e_test - bad data document %s: %v", data, err)
	}
	if got.SKU != "X1" || got.Qty != 42 {
		t.Errorf("e2e_test - data = %s, want sku X1 qty 42", data)
	}
	if n := env.invocations("warehouse.getStock"); n != 1 {
		t.Errorf("e2e_test - handler invoked %d times, want 1", n)
	}
}

func TestE2E_RunnerRoundTrip_HandlerFailure(t *testing.T) {
	env := setupE2E(t)
	backend := runner.New(env.http.URL, runner.WithToken(env.token))

	data, failure := invokeOverRunner(t, backend, "warehouse.getStock", map[string]string{"sku": "GHOST"})
	if data != nil {
		t.Fatalf("e2e_test - success handler fired with %s", data)
	}
	if failure != "SKU not found" {
		t.Errorf("e2e_test - failure = %q, want %q", failure, "SKU not found")
	}
}

func TestE2E_UnknownAction_NeverInvokesHandlers(t *testing.T) {
	env := setupE2E(t)
	backend := runner.New(env.http.URL, runner.WithToken(env.token))

	_, failure := invokeOverRunner(t, backend, "warehouse.listItems", nil)
	if failure != "unknown action: warehouse.listItems" {
		t.Errorf("e2e_test - failure = %q, want unknown action message", failure)
	}

	env.mu.Lock()
	total := len(env.invoked)
	env.mu.Unlock()
	if total != 0 {
		t.Errorf("e2e_test - %d handlers invoked for an unknown action, want 0", total)
	}
}

func TestE2E_AuthenticationPrecedesRouting(t *testing.T) {
	env := setupE2E(t)
	backend := runner.New(env.http.URL, runner.WithToken("bogus-token"))

	// Unknown action with a bad token: the caller learns about the bad
	// token, not about the routing table.
	_, failure := invokeOverRunner(t, backend, "ghost.move", nil)
	if failure != "unauthorized" {
		t.Errorf("e2e_test - failure = %q, want %q", failure, "unauthorized")
	}

	// Known action with a bad token: handler stays cold.
	_, failure = invokeOverRunner(t, backend, "warehouse.getStock", map[string]string{"sku": "X1"})
	if failure != "unauthorized" {
		t.Errorf("e2e_test - failure = %q, want %q", failure, "unauthorized")
	}
	if n := env.invocations("warehouse.getStock"); n != 0 {
		t.Errorf("e2e_test - handler invoked %d times behind a bad token, want 0", n)
	}
}

func TestE2E_ShimGate(t *testing.T) {
	env := setupE2E(t)

	t.Run("version below constraint is rejected", func(t *testing.T) {
		backend := runner.New(env.http.URL, runner.WithToken(env.token), runner.WithShimVersion("0.9.0"))
		_, failure := invokeOverRunner(t, backend, "warehouse.getStock", map[string]string{"sku": "X1"})
		if failure != "unsupported shim version: 0.9.0" {
			t.Errorf("e2e_test - failure = %q, want unsupported shim message", failure)
		}
	})

	t.Run("gate precedes authentication", func(t *testing.T) {
		backend := runner.New(env.http.URL, runner.WithToken("bogus-token"), runner.WithShimVersion("0.9.0"))
		_, failure := invokeOverRunner(t, backend, "warehouse.getStock", nil)
		if failure != "unsupported shim version: 0.9.0" {
			t.Errorf("e2e_test - failure = %q, want the shim rejection before auth", failure)
		}
	})

	t.Run("version inside constraint passes", func(t *testing.T) {
		backend := runner.New(env.http.URL, runner.WithToken(env.token), runner.WithShimVersion("1.5.0"))
		data, failure := invokeOverRunner(t, backend, "warehouse.getStock", map[string]string{"sku": "X1"})
		if failure != "" || data == nil {
			t.Errorf("e2e_test - call failed: %q", failure)
		}
	})

	t.Run("absent version passes", func(t *testing.T) {
		backend := runner.New(env.http.URL, runner.WithToken(env.token))
		data, failure := invokeOverRunner(t, backend, "warehouse.getStock", map[string]string{"sku": "X1"})
		if failure != "" || data == nil {
			t.Errorf("e2e_test - call failed: %q", failure)
		}
	})
}

func TestE2E_HandlerPanicBecomesInternalError(t *testing.T) {
	env := setupE2E(t)
	backend := runner.New(env.http.URL, runner.WithToken(env.token))

	_, failure := invokeOverRunner(t, backend, "archive.zipMonth", nil)
	if failure != "internal error" {
		t.Errorf("e2e_test - failure = %q, want %q", failure, "internal error")
	}

	// The endpoint survived the panic.
	data, failure := invokeOverRunner(t, backend, "warehouse.getStock", map[string]string{"sku": "X1"})
	if failure != "" || data == nil {
		t.Errorf("e2e_test - call after panic failed: %q", failure)
	}
}

func TestE2E_AuditTrail_MutationsOnly(t *testing.T) {
	env := setupE2E(t)
	backend := runner.New(env.http.URL, runner.WithToken(env.token))

	invokeOverRunner(t, backend, "warehouse.getStock", map[string]string{"sku": "X1"})
	invokeOverRunner(t, backend, "contracts.create", map[string]string{"number": "D-9"})
	invokeOverRunner(t, backend, "commercials.build", nil)

	audited := env.auditEvents()
	if len(audited) != 2 {
		t.Fatalf("e2e_test - %d audit events, want 2 (mutations only)", len(audited))
	}

	create := audited[0]
	if create.Action != "contracts.create" || !create.Ok || create.UserID != "e2e-user" {
		t.Errorf("e2e_test - first event = %+v, want ok contracts.create by e2e-user", create)
	}
	if create.Timestamp == "" {
		t.Errorf("e2e_test - audit event has no timestamp")
	}

	build := audited[1]
	if build.Action != "commercials.build" || build.Ok || build.Error != "quota exceeded" {
		t.Errorf("e2e_test - second event = %+v, want failed commercials.build", build)
	}
}

func TestE2E_CommsRoundTrip(t *testing.T) {
	env := setupE2E(t)

	body := fmt.Sprintf(`{"action":"warehouse.getStock","params":{"sku":"X1"},"ctx":{"token":%q,"shim":"1.2.3"}}`, env.token)
	msg, err := env.nc.Request(testBackendSubject, []byte(body), 10*time.Second)
	if err != nil {
		t.Fatalf("e2e_test - request failed: %v", err)
	}

	var resp struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
		Error   string          `json:"error"`
	}
	if err := json.Unmarshal(msg.Data, &resp); err != nil {
		t.Fatalf("e2e_test - failed to unmarshal response: %v", err)
	}
	if !resp.Success {
		t.Fatalf("e2e_test - expected success, got error %q", resp.Error)
	}

	var got struct {
		Qty float64 `json:"qty"`
	}
	if err := json.Unmarshal(resp.Data, &got); err != nil {
		t.Fatalf("e2e_test - bad data document: %v", err)
	}
	if got.Qty != 42 {
		t.Errorf("e2e_test - qty = %v, want 42", got.Qty)
	}
}

func TestE2E_CommsInvalidJSON(t *testing.T) {
	env := setupE2E(t)

	msg, err := env.nc.Request(testBackendSubject, []byte(`{invalid json`), 10*time.Second)
	if err != nil {
		t.Fatalf("e2e_test - request failed: %v", err)
	}

	var resp struct {
		Success bool   `json:"success"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(msg.Data, &resp); err != nil {
		t.Fatalf("e2e_test - failed to unmarshal response: %v", err)
	}
	if resp.Success {
		t.Error("e2e_test - expected success=false for invalid JSON")
	}
	if resp.Error != "invalid request" {
		t.Errorf("e2e_test - error = %q, want %q", resp.Error, "invalid request")
	}
}

func TestE2E_LegacyRequestShape(t *testing.T) {
	env := setupE2E(t)

	// Old front-end shape: module + action + payload, token in the
	// X-Auth-Token header instead of Authorization.
	body := []byte(`{"module":"warehouse","action":"getStock","payload":{"sku":"X1"}}`)
	req, err := http.NewRequest(http.MethodPost, env.http.URL, bytes.NewReader(body))
	if err != nil {
		t.Fatalf("e2e_test - build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Auth-Token", env.token)

	httpResp, err := env.http.Client().Do(req)
	if err != nil {
		t.Fatalf("e2e_test - request failed: %v", err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		t.Fatalf("e2e_test - status = %d, want 200", httpResp.StatusCode)
	}
	raw, err := io.ReadAll(httpResp.Body)
	if err != nil {
		t.Fatalf("e2e_test - read body: %v", err)
	}

	var resp struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
		Error   string          `json:"error"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		t.Fatalf("e2e_test - failed to unmarshal %s: %v", raw, err)
	}
	if !resp.Success {
		t.Fatalf("e2e_test - expected success, got error %q", resp.Error)
	}
	if !bytes.Contains(resp.Data, []byte("42")) {
		t.Errorf("e2e_test - data = %s, want the stock answer", resp.Data)
	}
}

func TestE2E_ConcurrentRunnerCalls(t *testing.T) {
	env := setupE2E(t)
	backend := runner.New(env.http.URL, runner.WithToken(env.token))

	const numRequests = 20
	failures := make(chan string, numRequests)

	var wg sync.WaitGroup
	for i := 0; i < numRequests; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			call := backend.
				WithFailureHandler(func(msg string) { failures <- msg }).
				Invoke("warehouse.getStock", map[string]string{"sku": "X1"})
			call.Wait()
		}()
	}
	wg.Wait()
	close(failures)

	for msg := range failures {
		t.Errorf("e2e_test - concurrent call failed: %q", msg)
	}
	if n := env.invocations("warehouse.getStock"); n != numRequests {
		t.Errorf("e2e_test - handler invoked %d times, want %d", n, numRequests)
	}
}
