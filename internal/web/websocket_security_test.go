package web

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func newOriginRequest(t *testing.T, host, origin string) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "http://"+host+"/api/ws", nil)
	req.Host = host
	if origin != "" {
		req.Header.Set("Origin", origin)
	}
	return req
}

func TestOriginCheckerSameOrigin(t *testing.T) {
	check := createOriginChecker(nil, nil)

	tests := []struct {
		name   string
		host   string
		origin string
		want   bool
	}{
		{"no origin header", "127.0.0.1:8580", "", true},
		{"same origin", "127.0.0.1:8580", "http://127.0.0.1:8580", true},
		{"different port", "127.0.0.1:8580", "http://127.0.0.1:9999", false},
		{"different host", "127.0.0.1:8580", "http://evil.example.com", false},
		{"case insensitive host", "LocalHost:8580", "http://localhost:8580", true},
		{"malformed origin", "127.0.0.1:8580", "://bad", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := newOriginRequest(t, tt.host, tt.origin)
			if got := check(req); got != tt.want {
				t.Errorf("check = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestOriginCheckerAllowlist(t *testing.T) {
	check := createOriginChecker([]string{"https://cal.example.com"}, nil)

	if !check(newOriginRequest(t, "127.0.0.1:8580", "https://cal.example.com")) {
		t.Error("allowlisted origin rejected")
	}
	if check(newOriginRequest(t, "127.0.0.1:8580", "https://other.example.com")) {
		t.Error("non-allowlisted origin accepted")
	}
}

func TestOriginCheckerAllowAll(t *testing.T) {
	check := createOriginChecker([]string{"*"}, nil)

	if !check(newOriginRequest(t, "127.0.0.1:8580", "https://anywhere.example.com")) {
		t.Error("wildcard config rejected origin")
	}
}

func TestOriginCheckerLogs(t *testing.T) {
	var gotReason string
	check := createOriginChecker(nil, func(origin, host string, allowed bool, reason string) {
		gotReason = reason
	})

	check(newOriginRequest(t, "127.0.0.1:8580", ""))
	if gotReason == "" {
		t.Error("logger not invoked")
	}
}

func TestConnectionTracker(t *testing.T) {
	ct := NewConnectionTracker(2)

	if !ct.TryAdd("1.2.3.4") || !ct.TryAdd("1.2.3.4") {
		t.Fatal("first two connections should be allowed")
	}
	if ct.TryAdd("1.2.3.4") {
		t.Error("third connection should be rejected")
	}
	if !ct.TryAdd("5.6.7.8") {
		t.Error("different IP should be allowed")
	}

	ct.Remove("1.2.3.4")
	if !ct.TryAdd("1.2.3.4") {
		t.Error("connection should be allowed after removal")
	}
	if got := ct.Count("1.2.3.4"); got != 2 {
		t.Errorf("Count = %d, want 2", got)
	}

	ct.Remove("5.6.7.8")
	if got := ct.Count("5.6.7.8"); got != 0 {
		t.Errorf("Count after full removal = %d, want 0", got)
	}
}
