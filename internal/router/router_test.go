package router

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"sciencebindu-backend/internal/catalog"
	"sciencebindu-backend/internal/handlers"
	"sciencebindu-backend/internal/middleware"
	"sciencebindu-backend/internal/websocket"
)

const testFrontend = "http://localhost:5173"

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	cat, err := catalog.Load()
	if err != nil {
		t.Fatalf("failed to load catalog: %v", err)
	}

	jwtAuth := middleware.NewJWTAuth("test-secret")
	h := Handlers{
		Auth:    handlers.NewAuthHandler(nil),
		Profile: handlers.NewProfileHandler(nil),
		Content: handlers.NewContentHandler(cat),
		Exam:    handlers.NewExamHandler(nil, nil),
		Chat:    handlers.NewChatHandler(nil),
		Video:   handlers.NewVideoHandler(nil),
		Quran:   handlers.NewQuranHandler(nil),
	}
	srv := httptest.NewServer(New(jwtAuth, h, websocket.NewHub(rdb, jwtAuth, testFrontend), testFrontend))
	t.Cleanup(srv.Close)
	return srv
}

func TestRouter_PublicAndProtectedRoutes(t *testing.T) {
	srv := newTestServer(t)

	tests := []struct {
		method     string
		path       string
		wantStatus int
	}{
		{http.MethodGet, "/health", http.StatusOK},
		{http.MethodGet, "/api/v1/academic/classes", http.StatusOK},
		{http.MethodGet, "/api/v1/quiz/categories", http.StatusOK},
		{http.MethodGet, "/api/v1/blog", http.StatusOK},
		{http.MethodGet, "/api/v1/academic/roadmap", http.StatusOK},
		{http.MethodGet, "/api/v1/tools/quranic-elements", http.StatusOK},
		{http.MethodGet, "/api/v1/tools/salah-benefits", http.StatusOK},
		{http.MethodGet, "/api/v1/tools/tasbeeh?seconds=10", http.StatusOK},
		{http.MethodGet, "/api/v1/profile", http.StatusUnauthorized},
		{http.MethodGet, "/api/v1/exam", http.StatusUnauthorized},
		{http.MethodPost, "/api/v1/chat/messages", http.StatusUnauthorized},
		{http.MethodPost, "/api/v1/auth/signout", http.StatusUnauthorized},
		{http.MethodGet, "/api/v1/ws", http.StatusUnauthorized},
		{http.MethodGet, "/api/v1/does-not-exist", http.StatusNotFound},
	}

	for _, tc := range tests {
		req, _ := http.NewRequest(tc.method, srv.URL+tc.path, nil)
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("%s %s: %v", tc.method, tc.path, err)
		}
		resp.Body.Close()
		if resp.StatusCode != tc.wantStatus {
			t.Fatalf("%s %s: expected status %d, got %d", tc.method, tc.path, tc.wantStatus, resp.StatusCode)
		}
		if resp.Header.Get("X-Request-ID") == "" {
			t.Fatalf("%s %s: missing X-Request-ID", tc.method, tc.path)
		}
	}
}

func TestRouter_PreflightAllowsFrontend(t *testing.T) {
	srv := newTestServer(t)

	req, _ := http.NewRequest(http.MethodOptions, srv.URL+"/api/v1/profile", nil)
	req.Header.Set("Origin", testFrontend)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("preflight failed: %v", err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("expected status %d, got %d", http.StatusNoContent, resp.StatusCode)
	}
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != testFrontend {
		t.Fatalf("expected allowed origin %q, got %q", testFrontend, got)
	}
}

func TestRouter_MetricsRecordRoutePattern(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/v1/blog")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()

	resp, err = http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("metrics request failed: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	if !strings.Contains(string(body), `http_requests_total{method="GET",route="/api/v1/blog",status="200"}`) {
		t.Fatalf("expected a counter for /api/v1/blog, got:\n%s", body)
	}
}
