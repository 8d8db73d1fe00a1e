package runner

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
)

// envelopeServer answers every POST with the given status and body.
func envelopeServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		fmt.Fprint(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestInvoke_SuccessRunsHandlerExactlyOnce(t *testing.T) {
	srv := envelopeServer(t, http.StatusOK, `{"success":true,"data":{"sku":"X1","qty":42}}`)

	var successCount, failureCount int32
	var got json.RawMessage

	call := New(srv.URL).
		WithSuccessHandler(func(data json.RawMessage) {
			atomic.AddInt32(&successCount, 1)
			got = data
		}).
		WithFailureHandler(func(string) {
			atomic.AddInt32(&failureCount, 1)
		}).
		Invoke("warehouse.getStock", map[string]string{"sku": "X1"})
	call.Wait()

	if n := atomic.LoadInt32(&successCount); n != 1 {
		t.Fatalf("runner:call_test - success handler ran %d times, want 1", n)
	}
	if n := atomic.LoadInt32(&failureCount); n != 0 {
		t.Fatalf("runner:call_test - failure handler ran %d times, want 0", n)
	}
	var stock struct {
		SKU string  `json:"sku"`
		Qty float64 `json:"qty"`
	}
	if err := json.Unmarshal(got, &stock); err != nil {
		t.Fatalf("runner:call_test - failed to decode data: %v", err)
	}
	if stock.SKU != "X1" || stock.Qty != 42 {
		t.Errorf("runner:call_test - data = %+v, want sku X1 qty 42", stock)
	}
	if err := call.Err(); err != nil {
		t.Errorf("runner:call_test - Err() = %v, want nil", err)
	}
}

func TestInvoke_HandlerOrderDoesNotMatter(t *testing.T) {
	srv := envelopeServer(t, http.StatusOK, `{"success":true,"data":1}`)

	var ran int32
	// Failure handler first, success handler second.
	New(srv.URL).
		WithFailureHandler(func(msg string) {
			t.Errorf("runner:call_test - failure handler ran: %s", msg)
		}).
		WithSuccessHandler(func(json.RawMessage) {
			atomic.AddInt32(&ran, 1)
		}).
		Invoke("pricelist.list", nil).
		Wait()

	if atomic.LoadInt32(&ran) != 1 {
		t.Errorf("runner:call_test - success handler did not run")
	}
}

func TestInvoke_LastHandlerBeforeInvokeWins(t *testing.T) {
	srv := envelopeServer(t, http.StatusOK, `{"success":true,"data":1}`)

	var first, second int32
	New(srv.URL).
		WithSuccessHandler(func(json.RawMessage) { atomic.AddInt32(&first, 1) }).
		WithSuccessHandler(func(json.RawMessage) { atomic.AddInt32(&second, 1) }).
		Invoke("pricelist.list", nil).
		Wait()

	if atomic.LoadInt32(&first) != 0 {
		t.Errorf("runner:call_test - replaced handler still ran")
	}
	if atomic.LoadInt32(&second) != 1 {
		t.Errorf("runner:call_test - last handler did not run")
	}
}

func TestInvoke_FailureEnvelopePassesErrorVerbatim(t *testing.T) {
	// Legacy servers sometimes paired error envelopes with non-200
	// codes; the envelope must win over the status either way.
	for _, status := range []int{http.StatusOK, http.StatusInternalServerError} {
		t.Run(fmt.Sprintf("status_%d", status), func(t *testing.T) {
			srv := envelopeServer(t, status, `{"success":false,"error":"SKU not found"}`)

			var gotMsg string
			call := New(srv.URL).
				WithSuccessHandler(func(json.RawMessage) {
					t.Errorf("runner:call_test - success handler ran on failure envelope")
				}).
				WithFailureHandler(func(msg string) { gotMsg = msg }).
				Invoke("warehouse.getStock", map[string]string{"sku": "nope"})
			call.Wait()

			if gotMsg != "SKU not found" {
				t.Errorf("runner:call_test - failure message = %q, want %q", gotMsg, "SKU not found")
			}
			if call.Err() == nil || call.Err().Error() != "SKU not found" {
				t.Errorf("runner:call_test - Err() = %v, want SKU not found", call.Err())
			}
		})
	}
}

func TestInvoke_NonEnvelopeBodies(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantMsg string
	}{
		{"garbage with 200", http.StatusOK, `<html>proxy error</html>`, "invalid response"},
		{"empty body with 200", http.StatusOK, ``, "invalid response"},
		{"garbage with 500", http.StatusInternalServerError, `upstream timed out`, "unexpected status: 500"},
		{"empty body with 502", http.StatusBadGateway, ``, "unexpected status: 502"},
		{"json without success field", http.StatusOK, `{"data":1}`, "invalid response"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := envelopeServer(t, tt.status, tt.body)

			var gotMsg string
			New(srv.URL).
				WithFailureHandler(func(msg string) { gotMsg = msg }).
				Invoke("warehouse.getStock", nil).
				Wait()

			if gotMsg != tt.wantMsg {
				t.Errorf("runner:call_test - failure message = %q, want %q", gotMsg, tt.wantMsg)
			}
		})
	}
}

func TestInvoke_TransportFailure(t *testing.T) {
	srv := envelopeServer(t, http.StatusOK, `{"success":true}`)
	url := srv.URL
	srv.Close()

	var gotMsg string
	New(url).
		WithFailureHandler(func(msg string) { gotMsg = msg }).
		Invoke("warehouse.getStock", nil).
		Wait()

	if !strings.HasPrefix(gotMsg, "request failed: ") {
		t.Errorf("runner:call_test - failure message = %q, want request failed prefix", gotMsg)
	}
}

func TestInvoke_MissingHandlersAreSilent(t *testing.T) {
	okSrv := envelopeServer(t, http.StatusOK, `{"success":true,"data":7}`)
	failSrv := envelopeServer(t, http.StatusOK, `{"success":false,"error":"nope"}`)

	// Neither call has the matching handler attached. Both must settle
	// without panicking.
	okCall := New(okSrv.URL).
		WithFailureHandler(func(msg string) {
			t.Errorf("runner:call_test - failure handler ran on success: %s", msg)
		}).
		Invoke("pricelist.list", nil)
	failCall := New(failSrv.URL).
		WithSuccessHandler(func(json.RawMessage) {
			t.Errorf("runner:call_test - success handler ran on failure")
		}).
		Invoke("pricelist.list", nil)

	okCall.Wait()
	failCall.Wait()

	if okCall.Err() != nil {
		t.Errorf("runner:call_test - ok call Err() = %v", okCall.Err())
	}
	if failCall.Err() == nil {
		t.Errorf("runner:call_test - failed call Err() = nil")
	}
}

func TestInvoke_HandlersAfterInvokeAreIgnored(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
		fmt.Fprint(w, `{"success":true,"data":1}`)
	}))
	defer srv.Close()

	var late int32
	call := New(srv.URL).Invoke("pricelist.list", nil)
	call.WithSuccessHandler(func(json.RawMessage) { atomic.AddInt32(&late, 1) })
	close(release)
	call.Wait()

	if atomic.LoadInt32(&late) != 0 {
		t.Errorf("runner:call_test - handler attached after Invoke ran")
	}
	if call.Err() != nil {
		t.Errorf("runner:call_test - Err() = %v, want nil", call.Err())
	}
}

func TestInvoke_SecondInvokeIsNoOp(t *testing.T) {
	var requests int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
		fmt.Fprint(w, `{"success":true,"data":1}`)
	}))
	defer srv.Close()

	var ran int32
	call := New(srv.URL).
		WithSuccessHandler(func(json.RawMessage) { atomic.AddInt32(&ran, 1) }).
		Invoke("pricelist.list", nil)
	call.Invoke("pricelist.list", nil)
	call.Wait()

	if n := atomic.LoadInt32(&requests); n != 1 {
		t.Errorf("runner:call_test - server saw %d requests, want 1", n)
	}
	if n := atomic.LoadInt32(&ran); n != 1 {
		t.Errorf("runner:call_test - success handler ran %d times, want 1", n)
	}
}

func TestInvoke_PanicInHandlerStillSettles(t *testing.T) {
	srv := envelopeServer(t, http.StatusOK, `{"success":true,"data":1}`)

	call := New(srv.URL).
		WithSuccessHandler(func(json.RawMessage) { panic("handler exploded") }).
		Invoke("pricelist.list", nil)
	call.Wait() // must return despite the panic

	if call.Err() != nil {
		t.Errorf("runner:call_test - Err() = %v, want nil", call.Err())
	}
}

func TestInvoke_BaseContextCancelSettlesFailure(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(started)
		<-release
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	var gotMsg string
	call := New(srv.URL, WithBaseContext(ctx)).
		WithFailureHandler(func(msg string) { gotMsg = msg }).
		Invoke("warehouse.getStock", nil)

	<-started
	cancel()
	call.Wait()

	if !strings.HasPrefix(gotMsg, "request failed: ") {
		t.Errorf("runner:call_test - failure message = %q, want request failed prefix", gotMsg)
	}
}

func TestInvoke_SendsAuthAndShimHeaders(t *testing.T) {
	var gotAuth, gotShim, gotContentType string
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotShim = r.Header.Get("X-Uchet-Shim")
		gotContentType = r.Header.Get("Content-Type")
		gotBody, _ = io.ReadAll(r.Body)
		fmt.Fprint(w, `{"success":true}`)
	}))
	defer srv.Close()

	New(srv.URL, WithToken("tok-1"), WithShimVersion("1.4.2")).
		Invoke("contracts.list", map[string]string{"q": "steel"}).
		Wait()

	if gotAuth != "Bearer tok-1" {
		t.Errorf("runner:call_test - Authorization = %q, want Bearer tok-1", gotAuth)
	}
	if gotShim != "1.4.2" {
		t.Errorf("runner:call_test - X-Uchet-Shim = %q, want 1.4.2", gotShim)
	}
	if gotContentType != "application/json" {
		t.Errorf("runner:call_test - Content-Type = %q", gotContentType)
	}
	var req struct {
		Action string            `json:"action"`
		Params map[string]string `json:"params"`
	}
	if err := json.Unmarshal(gotBody, &req); err != nil {
		t.Fatalf("runner:call_test - failed to decode request body: %v", err)
	}
	if req.Action != "contracts.list" || req.Params["q"] != "steel" {
		t.Errorf("runner:call_test - request body = %+v", req)
	}
}

func TestInvoke_NullDataDeliveredAsNull(t *testing.T) {
	srv := envelopeServer(t, http.StatusOK, `{"success":true}`)

	var got json.RawMessage
	New(srv.URL).
		WithSuccessHandler(func(data json.RawMessage) { got = data }).
		Invoke("warehouse.deleteItem", map[string]string{"id": "w-1"}).
		Wait()

	if string(got) != "null" {
		t.Errorf("runner:call_test - data = %q, want null", got)
	}
}

func TestInvoke_ConcurrentCallsAreIndependent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Action string `json:"action"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if req.Action == "warehouse.getStock" {
			fmt.Fprint(w, `{"success":true,"data":{"qty":42}}`)
			return
		}
		fmt.Fprint(w, `{"success":false,"error":"unknown action: `+req.Action+`"}`)
	}))
	defer srv.Close()

	backend := New(srv.URL)

	const calls = 8
	results := make(chan error, calls)
	for i := 0; i < calls; i++ {
		action := "warehouse.getStock"
		if i%2 == 1 {
			action = "bogus.action"
		}
		go func(action string) {
			c := backend.Invoke(action, nil)
			c.Wait()
			results <- c.Err()
		}(action)
	}

	var failed int
	for i := 0; i < calls; i++ {
		if err := <-results; err != nil {
			failed++
		}
	}
	if failed != calls/2 {
		t.Errorf("runner:call_test - %d calls failed, want %d", failed, calls/2)
	}
}
