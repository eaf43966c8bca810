package http

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestParseProxyList(t *testing.T) {
	list, err := parseProxyList([]string{"10.0.0.0/8", " 203.0.113.7 ", "", "2001:db8::1"})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("expected 3 networks, got %d", len(list))
	}

	for _, bad := range []string{"10.0.0.0/33", "proxy.local"} {
		if _, err := parseProxyList([]string{bad}); err == nil {
			t.Errorf("%q: expected error", bad)
		}
	}
}

func TestProxyListClientIP(t *testing.T) {
	proxies, err := parseProxyList([]string{"10.0.0.0/8"})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	tests := []struct {
		name    string
		proxies proxyList
		remote  string
		xff     string
		realIP  string
		want    string
	}{
		{name: "direct client", proxies: proxies, remote: "198.51.100.4:5000", want: "198.51.100.4"},
		{name: "untrusted peer cannot forward", proxies: proxies, remote: "198.51.100.4:5000", xff: "1.2.3.4", want: "198.51.100.4"},
		{name: "trusted peer forwards", proxies: proxies, remote: "10.0.0.2:80", xff: "1.2.3.4", want: "1.2.3.4"},
		{name: "spoofed leading entry is ignored", proxies: proxies, remote: "10.0.0.2:80", xff: "6.6.6.6, 1.2.3.4", want: "1.2.3.4"},
		{name: "trusted hops are skipped", proxies: proxies, remote: "10.0.0.2:80", xff: "1.2.3.4, 10.0.0.9", want: "1.2.3.4"},
		{name: "real ip fallback", proxies: proxies, remote: "10.0.0.2:80", realIP: "1.2.3.4", want: "1.2.3.4"},
		{name: "garbage header falls back to peer", proxies: proxies, remote: "10.0.0.2:80", xff: "nonsense", want: "10.0.0.2"},
		{name: "empty list trusts nobody", proxies: proxyList{}, remote: "127.0.0.1:80", xff: "1.2.3.4", want: "127.0.0.1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remote
			if tt.xff != "" {
				r.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.realIP != "" {
				r.Header.Set("X-Real-IP", tt.realIP)
			}
			if got := tt.proxies.clientIP(r); got != tt.want {
				t.Fatalf("clientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSuspicionOf(t *testing.T) {
	tests := []struct {
		name   string
		method string
		target string
		agent  string
		want   string
	}{
		{name: "ordinary page", method: http.MethodGet, target: "/ui/expenses?category=Food", want: ""},
		{name: "path traversal", method: http.MethodGet, target: "/static/../.env", want: "pattern"},
		{name: "attack pattern in query", method: http.MethodGet, target: "/api/view?file=/etc/passwd", want: "pattern"},
		{name: "scanner agent", method: http.MethodGet, target: "/", agent: "sqlmap/1.7", want: "user_agent"},
		{name: "trace method", method: "TRACE", target: "/", want: "method"},
		{name: "long url", method: http.MethodGet, target: "/?q=" + strings.Repeat("a", 2100), want: "url_length"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(tt.method, tt.target, nil)
			if tt.agent != "" {
				r.Header.Set("User-Agent", tt.agent)
			}
			if got := suspicionOf(r); got != tt.want {
				t.Fatalf("suspicionOf() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestServerUsesConfiguredProxies(t *testing.T) {
	srv, _ := newTestServer(t, Options{RateLimit: 1, TrustedProxies: []string{"192.0.2.10"}})

	post := func(xff string) int {
		r := httptest.NewRequest(http.MethodPost, "/budget", strings.NewReader("budget=5"))
		r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		r.RemoteAddr = "192.0.2.10:4000"
		r.Header.Set("X-Forwarded-For", xff)
		rr := httptest.NewRecorder()
		srv.Handler.ServeHTTP(rr, r)
		return rr.Code
	}

	if code := post("1.1.1.1"); code != http.StatusOK {
		t.Fatalf("first client: %d", code)
	}
	if code := post("2.2.2.2"); code != http.StatusOK {
		t.Fatalf("forwarded clients must be limited separately, got %d", code)
	}
	if code := post("1.1.1.1"); code != http.StatusTooManyRequests {
		t.Fatalf("expected the first client to be limited, got %d", code)
	}
}
