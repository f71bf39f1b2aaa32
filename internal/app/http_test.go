package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"nagarconnect/api/internal/auth"
	"nagarconnect/api/internal/store"
)

func newTestServer(fs *fakeStore) (*HTTPServer, *testDeps) {
	svc, deps := newTestService(fs)
	return NewHTTPServer(svc, nil, nil, "issue-photos", "*"), deps
}

func tokenFor(t *testing.T, role string) string {
	t.Helper()
	token, err := auth.IssueToken([]byte("test-secret"), "user-1", "Asha Verma", role, "en", auth.NewJTI(), time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return token
}

func doRequest(t *testing.T, server *HTTPServer, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	server, _ := newTestServer(&fakeStore{})
	rec := doRequest(t, server, http.MethodGet, "/api/health", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestListIssuesIsPublic(t *testing.T) {
	server, _ := newTestServer(&fakeStore{})
	rec := doRequest(t, server, http.MethodGet, "/api/issues", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestCreateIssueRequiresAuth(t *testing.T) {
	server, _ := newTestServer(&fakeStore{})
	rec := doRequest(t, server, http.MethodPost, "/api/issues", "", `{"title":"x","category":"roads"}`)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestCreateIssueAuthenticated(t *testing.T) {
	server, _ := newTestServer(&fakeStore{})
	rec := doRequest(t, server, http.MethodPost, "/api/issues", tokenFor(t, "citizen"),
		`{"title":"Pothole on MG Road","category":"roads"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestStatusUpdateRoleGate(t *testing.T) {
	fs := &fakeStore{
		updateIssueStatusFn: func(ctx context.Context, issueID, status, actorID string) (store.Issue, error) {
			return store.Issue{ID: issueID, UserID: "owner-1", UserEmail: "asha@example.com", Title: "x", Status: status}, nil
		},
	}
	server, _ := newTestServer(fs)

	rec := doRequest(t, server, http.MethodPut, "/api/issues/issue-1/status", tokenFor(t, "citizen"), `{"status":"acknowledged"}`)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("citizen should be forbidden, got %d", rec.Code)
	}

	rec = doRequest(t, server, http.MethodPut, "/api/issues/issue-1/status", tokenFor(t, "staff"), `{"status":"acknowledged"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("staff should pass the gate, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestExpiredTokenRejected(t *testing.T) {
	server, _ := newTestServer(&fakeStore{})
	expired, err := auth.IssueToken([]byte("test-secret"), "user-1", "Asha", "citizen", "en", auth.NewJTI(), time.Now().Add(-time.Minute))
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	rec := doRequest(t, server, http.MethodGet, "/api/issues/mine", expired, "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestAdminRoutesForbidNonAdmins(t *testing.T) {
	server, _ := newTestServer(&fakeStore{})

	for _, tc := range []struct {
		method, path, body string
	}{
		{http.MethodPost, "/api/alerts", `{"titleEn":"Flood","messageEn":"Avoid underpass","severity":"high"}`},
		{http.MethodPost, "/api/events", `{"titleEn":"Cleanup","startDate":"2026-09-15T09:00:00Z"}`},
		{http.MethodPost, "/api/stalls", `{"name":"Tea Stall","category":"food"}`},
		{http.MethodGet, "/api/approvals", ""},
		{http.MethodDelete, "/api/alerts/alert-1", ""},
	} {
		rec := doRequest(t, server, tc.method, tc.path, tokenFor(t, "staff"), tc.body)
		if rec.Code != http.StatusForbidden {
			t.Errorf("%s %s: expected 403 for staff, got %d", tc.method, tc.path, rec.Code)
		}
	}

	rec := doRequest(t, server, http.MethodPost, "/api/alerts", tokenFor(t, "admin"),
		`{"titleEn":"Flood","messageEn":"Avoid underpass","severity":"high"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("admin should create alerts, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestRateLimitedIssueCreation(t *testing.T) {
	svc, _ := newTestService(&fakeStore{})
	limiter := &stubLimiter{allowed: false, retryAfter: 4 * time.Hour}
	server := NewHTTPServer(svc, limiter, nil, "issue-photos", "*")

	rec := doRequest(t, server, http.MethodPost, "/api/issues", tokenFor(t, "citizen"),
		`{"title":"x","category":"roads"}`)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Fatal("expected Retry-After header")
	}
}

func TestRateLimiterFailureFailsOpen(t *testing.T) {
	svc, _ := newTestService(&fakeStore{})
	limiter := &stubLimiter{err: context.DeadlineExceeded}
	server := NewHTTPServer(svc, limiter, nil, "issue-photos", "*")

	rec := doRequest(t, server, http.MethodPost, "/api/issues", tokenFor(t, "citizen"),
		`{"title":"x","category":"roads"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 when limiter is down, got %d", rec.Code)
	}
}

type stubLimiter struct {
	allowed    bool
	retryAfter time.Duration
	err        error
}

func (s *stubLimiter) Allow(ctx context.Context, userID string) (bool, time.Duration, error) {
	if s.err != nil {
		return false, 0, s.err
	}
	return s.allowed, s.retryAfter, nil
}

func TestSessionEndpoint(t *testing.T) {
	server, _ := newTestServer(&fakeStore{})

	rec := doRequest(t, server, http.MethodGet, "/api/session", "", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"authenticated":false`) {
		t.Fatalf("unexpected anonymous session response %d %s", rec.Code, rec.Body.String())
	}

	rec = doRequest(t, server, http.MethodGet, "/api/session", tokenFor(t, "citizen"), "")
	if !strings.Contains(rec.Body.String(), `"authenticated":true`) {
		t.Fatalf("expected authenticated session, got %s", rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"role":"citizen"`) {
		t.Fatalf("expected role in session payload, got %s", rec.Body.String())
	}
}

func TestUploadsUnavailableWithoutStorage(t *testing.T) {
	server, _ := newTestServer(&fakeStore{})
	rec := doRequest(t, server, http.MethodPost, "/api/uploads/photos", tokenFor(t, "citizen"), "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}

func TestUnknownRouteReturns404(t *testing.T) {
	server, _ := newTestServer(&fakeStore{})
	rec := doRequest(t, server, http.MethodGet, "/api/unknown", "", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestCORSHeadersOnEveryResponse(t *testing.T) {
	server, _ := newTestServer(&fakeStore{})
	rec := doRequest(t, server, http.MethodGet, "/api/issues", "", "")
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Fatal("expected CORS header")
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Fatal("expected request id header")
	}
}
