package server_test

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"voice-mic/internal/domain"
	"voice-mic/internal/infra/server"
)

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

type fakeMic struct {
	state      domain.MicState
	interrupts atomic.Int32
}

func (f *fakeMic) State() domain.MicState { return f.state }
func (f *fakeMic) Interrupt()             { f.interrupts.Add(1) }

type fakeWaker struct {
	accept   bool
	triggers int
}

func (f *fakeWaker) Trigger() bool {
	f.triggers++
	return f.accept
}

func do(t *testing.T, h http.Handler, method, target string, header map[string]string) (*httptest.ResponseRecorder, map[string]string) {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	body := map[string]string{}
	if rec.Header().Get("Content-Type") == "application/json" {
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
			t.Fatalf("decoding body %q: %v", rec.Body.String(), err)
		}
	}
	return rec, body
}

func TestServer_HealthReportsState(t *testing.T) {
	mic := &fakeMic{state: domain.StateActiveListening}
	srv := server.New(server.Options{}, mic, nil, discardLogger)

	rec, body := do(t, srv.Handler(), http.MethodGet, "/health", nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d", rec.Code, http.StatusOK)
	}
	if body["state"] != "active_listening" {
		t.Errorf("state: got %q, want %q", body["state"], "active_listening")
	}
}

func TestServer_Wake(t *testing.T) {
	tests := []struct {
		name     string
		accept   bool
		wantCode int
		wantBody string
	}{
		{name: "queued", accept: true, wantCode: http.StatusAccepted, wantBody: "queued"},
		{name: "already pending", accept: false, wantCode: http.StatusConflict, wantBody: "already_pending"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			waker := &fakeWaker{accept: tt.accept}
			srv := server.New(server.Options{}, &fakeMic{}, waker, discardLogger)

			rec, body := do(t, srv.Handler(), http.MethodPost, "/wake", nil)

			if rec.Code != tt.wantCode {
				t.Errorf("status: got %d, want %d", rec.Code, tt.wantCode)
			}
			if body["status"] != tt.wantBody {
				t.Errorf("body status: got %q, want %q", body["status"], tt.wantBody)
			}
			if waker.triggers != 1 {
				t.Errorf("triggers: got %d, want 1", waker.triggers)
			}
		})
	}
}

func TestServer_WakeNotRegisteredWithoutWaker(t *testing.T) {
	srv := server.New(server.Options{}, &fakeMic{}, nil, discardLogger)

	rec, _ := do(t, srv.Handler(), http.MethodPost, "/wake", nil)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status: got %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestServer_Interrupt(t *testing.T) {
	mic := &fakeMic{state: domain.StateSpeaking}
	srv := server.New(server.Options{}, mic, nil, discardLogger)

	rec, body := do(t, srv.Handler(), http.MethodPost, "/interrupt", nil)

	if rec.Code != http.StatusAccepted {
		t.Errorf("status: got %d, want %d", rec.Code, http.StatusAccepted)
	}
	if body["state"] != "speaking" {
		t.Errorf("state: got %q, want %q", body["state"], "speaking")
	}
	if got := mic.interrupts.Load(); got != 1 {
		t.Errorf("interrupts: got %d, want 1", got)
	}
}

func TestServer_AuthToken(t *testing.T) {
	tests := []struct {
		name     string
		target   string
		header   map[string]string
		wantCode int
	}{
		{name: "missing", target: "/interrupt", wantCode: http.StatusUnauthorized},
		{name: "wrong header", target: "/interrupt", header: map[string]string{"X-Auth-Token": "nope"}, wantCode: http.StatusUnauthorized},
		{name: "header", target: "/interrupt", header: map[string]string{"X-Auth-Token": "secret"}, wantCode: http.StatusAccepted},
		{name: "query", target: "/interrupt?token=secret", wantCode: http.StatusAccepted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mic := &fakeMic{}
			srv := server.New(server.Options{AuthToken: "secret"}, mic, nil, discardLogger)

			rec, _ := do(t, srv.Handler(), http.MethodPost, tt.target, tt.header)

			if rec.Code != tt.wantCode {
				t.Errorf("status: got %d, want %d", rec.Code, tt.wantCode)
			}
			wantInterrupts := int32(0)
			if tt.wantCode == http.StatusAccepted {
				wantInterrupts = 1
			}
			if got := mic.interrupts.Load(); got != wantInterrupts {
				t.Errorf("interrupts: got %d, want %d", got, wantInterrupts)
			}
		})
	}
}

func TestServer_HealthNeedsNoToken(t *testing.T) {
	srv := server.New(server.Options{AuthToken: "secret"}, &fakeMic{}, nil, discardLogger)

	rec, _ := do(t, srv.Handler(), http.MethodGet, "/health", nil)

	if rec.Code != http.StatusOK {
		t.Errorf("status: got %d, want %d", rec.Code, http.StatusOK)
	}
}

func TestServer_RateLimited(t *testing.T) {
	srv := server.New(server.Options{RatePerMinute: 2}, &fakeMic{}, nil, discardLogger)
	h := srv.Handler()

	for i := 0; i < 2; i++ {
		if rec, _ := do(t, h, http.MethodPost, "/interrupt", nil); rec.Code != http.StatusAccepted {
			t.Fatalf("request %d: got %d, want %d", i, rec.Code, http.StatusAccepted)
		}
	}

	rec, _ := do(t, h, http.MethodPost, "/interrupt", nil)
	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("status: got %d, want %d", rec.Code, http.StatusTooManyRequests)
	}
}

func TestServer_SpoofedForwardingDoesNotEvadeLimit(t *testing.T) {
	srv := server.New(server.Options{RatePerMinute: 1}, &fakeMic{}, nil, discardLogger)
	h := srv.Handler()

	if rec, _ := do(t, h, http.MethodPost, "/interrupt", map[string]string{"X-Forwarded-For": "10.0.0.1"}); rec.Code != http.StatusAccepted {
		t.Fatalf("first request: got %d, want %d", rec.Code, http.StatusAccepted)
	}

	rec, _ := do(t, h, http.MethodPost, "/interrupt", map[string]string{"X-Forwarded-For": "10.0.0.2", "X-Real-IP": "10.0.0.3"})
	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("status: got %d, want %d", rec.Code, http.StatusTooManyRequests)
	}
}

func TestServer_TrustProxyKeysByForwardedClient(t *testing.T) {
	srv := server.New(server.Options{RatePerMinute: 1, TrustProxy: true}, &fakeMic{}, nil, discardLogger)
	h := srv.Handler()

	for _, ip := range []string{"10.0.0.1", "10.0.0.2"} {
		if rec, _ := do(t, h, http.MethodPost, "/interrupt", map[string]string{"X-Forwarded-For": ip}); rec.Code != http.StatusAccepted {
			t.Fatalf("client %s: got %d, want %d", ip, rec.Code, http.StatusAccepted)
		}
	}

	rec, _ := do(t, h, http.MethodPost, "/interrupt", map[string]string{"X-Forwarded-For": "10.0.0.1"})
	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("status: got %d, want %d", rec.Code, http.StatusTooManyRequests)
	}
}

func TestServer_Metrics(t *testing.T) {
	srv := server.New(server.Options{MetricsEnabled: true}, &fakeMic{}, nil, discardLogger)

	rec, _ := do(t, srv.Handler(), http.MethodGet, "/metrics", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("status: got %d, want %d", rec.Code, http.StatusOK)
	}

	off := server.New(server.Options{}, &fakeMic{}, nil, discardLogger)
	if rec, _ := do(t, off.Handler(), http.MethodGet, "/metrics", nil); rec.Code != http.StatusNotFound {
		t.Errorf("disabled metrics: got %d, want %d", rec.Code, http.StatusNotFound)
	}
}
