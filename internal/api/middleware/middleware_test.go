package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rohits-web03/estately/internal/config"
)

type stubParser struct{}

func (stubParser) Parse(tok string) (string, error) {
	if tok == "good" {
		return "user-1", nil
	}
	return "", errors.New("bad token")
}

func TestAuth(t *testing.T) {
	var seen string
	h := Auth(stubParser{})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = UserIDFrom(r.Context())
	}))

	tests := []struct {
		name   string
		cookie string
		want   int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"invalid", "bad", http.StatusForbidden},
		{"valid", "good", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = ""
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: SessionCookie, Value: tt.cookie})
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d", rec.Code, tt.want)
			}
			if tt.want == http.StatusOK && seen != "user-1" {
				t.Fatalf("user id = %q", seen)
			}
		})
	}
}

func TestRequestID(t *testing.T) {
	var inCtx string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		inCtx = RequestIDFrom(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if id := rec.Header().Get("X-Request-Id"); id == "" || id != inCtx {
		t.Fatalf("header %q, context %q", id, inCtx)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-Id", "abc")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Header().Get("X-Request-Id") != "abc" {
		t.Fatal("incoming request id should be kept")
	}
}

func TestRecover(t *testing.T) {
	h := Recover(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { panic("boom") }))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestHTTPMetricsSeesPattern(t *testing.T) {
	mux := http.NewServeMux()
	var pattern string
	mux.HandleFunc("GET /api/listing/get/{id}", func(w http.ResponseWriter, r *http.Request) {})
	h := HTTPMetrics(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mux.ServeHTTP(w, r)
		pattern = routePattern(r)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/listing/get/42", nil))
	if pattern != "GET /api/listing/get/{id}" {
		t.Fatalf("pattern = %q", pattern)
	}
}

func TestDisabledRedisMiddlewaresPassThrough(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusTeapot) })

	rl := RateLimit(config.RateLimitConfig{Enabled: true}, nil)(ok)
	rec := httptest.NewRecorder()
	rl.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/auth/sign-in", nil))
	if rec.Code != http.StatusTeapot {
		t.Fatalf("rate limit without redis: %d", rec.Code)
	}

	cache := NewResponseCache(config.CacheConfig{Enabled: true}, nil)
	cache.Invalidate(t.Context())
	rec = httptest.NewRecorder()
	cache.Middleware(ok).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/listing/search", nil))
	if rec.Code != http.StatusTeapot || rec.Header().Get("X-Cache") != "" {
		t.Fatalf("cache without redis: %d %q", rec.Code, rec.Header().Get("X-Cache"))
	}
}

func TestCachePayloadCodec(t *testing.T) {
	hdr := http.Header{"Content-Type": {"application/json"}}
	bs, err := encodePayload(200, hdr, []byte(`{"ok":true}`))
	if err != nil {
		t.Fatal(err)
	}
	status, got, body, ok := decodePayload(bs)
	if !ok || status != 200 || got.Get("Content-Type") != "application/json" || string(body) != `{"ok":true}` {
		t.Fatalf("decoded %d %v %q %v", status, got, body, ok)
	}
	if _, _, _, ok := decodePayload([]byte{0, 0, 0}); ok {
		t.Fatal("short payload should not decode")
	}
}

func TestClientIP(t *testing.T) {
	proxies := parseProxies([]string{"10.0.0.0/8", "192.0.2.7", "not-an-ip"})
	tests := []struct {
		name   string
		remote string
		xff    string
		want   string
	}{
		{"direct peer", "198.51.100.4:5555", "", "198.51.100.4"},
		{"untrusted peer cannot spoof", "198.51.100.4:5555", "203.0.113.9", "198.51.100.4"},
		{"trusted proxy", "10.0.0.1:5555", "203.0.113.9", "203.0.113.9"},
		{"client-supplied hops are skipped", "10.0.0.1:5555", "1.2.3.4, 203.0.113.9, 10.1.1.1", "203.0.113.9"},
		{"bare ip proxy", "192.0.2.7:80", "203.0.113.10", "203.0.113.10"},
		{"trusted proxy without header", "10.0.0.1:5555", "", "10.0.0.1"},
		{"garbage hop", "10.0.0.1:5555", "nonsense", "10.0.0.1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}
			if got := clientIP(req, proxies); got != tt.want {
				t.Fatalf("clientIP = %q, want %q", got, tt.want)
			}
		})
	}
	if len(proxies) != 2 {
		t.Fatalf("parsed proxies = %v", proxies)
	}
}
