package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"registro/internal/core"
	applog "registro/internal/log"
	"registro/internal/services"
)

// fakeRunner records invocations so tests can assert the gate keeps
// unauthorized requests away from any processing.
type fakeRunner struct {
	calls  int
	report services.RunReport
	err    error
}

func (f *fakeRunner) ProcessDueRules(_ context.Context, _ core.Date) (services.RunReport, error) {
	f.calls++
	return f.report, f.err
}

func newTestServer(runner BatchRunner) *Server {
	gate := NewTriggerGate("super-secret-trigger-token")
	return NewServer(":0", gate, runner, applog.New(applog.DefaultConfig()))
}

func TestRunEndpointAuthorized(t *testing.T) {
	runner := &fakeRunner{report: services.RunReport{Results: []services.RuleResult{
		{RuleID: 1, Status: services.StatusFired},
		{RuleID: 2, Status: services.StatusCompleted},
		{RuleID: 3, Status: services.StatusWriteFailed},
	}}}
	srv := newTestServer(runner)

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/run/super-secret-trigger-token", nil)
	srv.Handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %s)", rr.Code, rr.Body.String())
	}
	if runner.calls != 1 {
		t.Fatalf("runner calls = %d, want 1", runner.calls)
	}

	var resp struct {
		Count int `json:"count"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal body: %v", err)
	}
	if resp.Count != 2 {
		t.Fatalf("count = %d, want 2 (write failures do not count)", resp.Count)
	}
}

func TestRunEndpointHeaderSecret(t *testing.T) {
	runner := &fakeRunner{}
	srv := newTestServer(runner)

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/run", nil)
	req.Header.Set("X-Trigger-Secret", "super-secret-trigger-token")
	srv.Handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %s)", rr.Code, rr.Body.String())
	}
	if runner.calls != 1 {
		t.Fatalf("runner calls = %d, want 1", runner.calls)
	}
}

func TestRunEndpointUnauthorized(t *testing.T) {
	runner := &fakeRunner{}
	srv := newTestServer(runner)

	for _, path := range []string{"/api/v1/run/wrong-secret", "/api/v1/run"} {
		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, path, nil)
		srv.Handler.ServeHTTP(rr, req)

		if rr.Code != http.StatusUnauthorized {
			t.Fatalf("%s: status = %d, want 401", path, rr.Code)
		}
		var resp struct {
			Error string `json:"error"`
		}
		if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
			t.Fatalf("unmarshal body: %v", err)
		}
		if resp.Error == "" {
			t.Fatalf("%s: missing error field in %s", path, rr.Body.String())
		}
	}

	// The whole point of the gate: no processing happened.
	if runner.calls != 0 {
		t.Fatalf("runner invoked %d times despite bad secret", runner.calls)
	}
}

func TestRunEndpointRunnerFailure(t *testing.T) {
	runner := &fakeRunner{err: errors.New("store unavailable")}
	srv := newTestServer(runner)

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/run/super-secret-trigger-token", nil)
	srv.Handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rr.Code)
	}
}

func TestRunEndpointWrongMethod(t *testing.T) {
	runner := &fakeRunner{}
	srv := newTestServer(runner)

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/run/super-secret-trigger-token", nil)
	srv.Handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", rr.Code)
	}
	if runner.calls != 0 {
		t.Fatal("runner invoked on GET")
	}
}

func TestHealthEndpoints(t *testing.T) {
	srv := newTestServer(&fakeRunner{})

	for _, path := range []string{"/healthz", "/readyz"} {
		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, path, nil)
		srv.Handler.ServeHTTP(rr, req)
		if rr.Code != http.StatusOK {
			t.Fatalf("%s status = %d, want 200", path, rr.Code)
		}
	}
}

func TestRedactRunPath(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"/api/v1/run/super-secret", "/api/v1/run/***"},
		{"/api/v1/run", "/api/v1/run"},
		{"/healthz", "/healthz"},
	}
	for _, tc := range cases {
		if got := redactRunPath(tc.in); got != tc.want {
			t.Errorf("redactRunPath(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
