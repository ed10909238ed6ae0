package server

import (
	"net/http/httptest"
	"testing"
	"time"
)

func TestRateLimiter_WindowResets(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(2, time.Minute, false)
	rl.now = func() time.Time { return now }

	if !rl.Allow("a") || !rl.Allow("a") {
		t.Fatal("first two requests should pass")
	}
	if rl.Allow("a") {
		t.Error("third request in window should be limited")
	}
	if !rl.Allow("b") {
		t.Error("other clients have their own bucket")
	}

	now = now.Add(61 * time.Second)
	if !rl.Allow("a") {
		t.Error("bucket should refill after the window")
	}
}

func TestRateLimiter_EvictsIdleBuckets(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(1, time.Minute, false)
	rl.now = func() time.Time { return now }

	rl.Allow("a")
	now = now.Add(3 * time.Minute)
	rl.Allow("b")

	if _, ok := rl.buckets["a"]; ok {
		t.Error("idle bucket should have been evicted")
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name       string
		header     map[string]string
		remote     string
		trustProxy bool
		want       string
	}{
		{name: "forwarded ignored", header: map[string]string{"X-Forwarded-For": "10.0.0.1"}, remote: "1.2.3.4:5", want: "1.2.3.4"},
		{name: "real ip ignored", header: map[string]string{"X-Real-IP": "10.0.0.2"}, remote: "1.2.3.4:5", want: "1.2.3.4"},
		{name: "remote addr", remote: "1.2.3.4:5", want: "1.2.3.4"},
		{name: "trusted forwarded", header: map[string]string{"X-Forwarded-For": "10.0.0.1"}, remote: "1.2.3.4:5", trustProxy: true, want: "10.0.0.1"},
		{name: "trusted forwarded chain", header: map[string]string{"X-Forwarded-For": "6.6.6.6, 10.0.0.1"}, remote: "1.2.3.4:5", trustProxy: true, want: "10.0.0.1"},
		{name: "trusted real ip", header: map[string]string{"X-Real-IP": "10.0.0.2"}, remote: "1.2.3.4:5", trustProxy: true, want: "10.0.0.2"},
		{name: "trusted without headers", remote: "1.2.3.4:5", trustProxy: true, want: "1.2.3.4"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			req.RemoteAddr = tt.remote
			for k, v := range tt.header {
				req.Header.Set(k, v)
			}
			if got := clientIP(req, tt.trustProxy); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}
