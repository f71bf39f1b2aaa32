package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"nagarconnect/api/internal/auth"
	"nagarconnect/api/internal/store"
)

const testSecret = "dispatcher-test-secret"

type fakeIssueStore struct {
	getIssue    func(ctx context.Context, issueID string) (store.Issue, error)
	isModerator func(ctx context.Context, userID string) (bool, error)
}

func (f *fakeIssueStore) GetIssue(ctx context.Context, issueID string) (store.Issue, error) {
	return f.getIssue(ctx, issueID)
}

func (f *fakeIssueStore) IsModerator(ctx context.Context, userID string) (bool, error) {
	return f.isModerator(ctx, userID)
}

type fakeSender struct {
	lastTo      string
	lastSubject string
	err         error
}

func (f *fakeSender) Send(ctx context.Context, to, subject, html string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.lastTo = to
	f.lastSubject = subject
	return "em_test_123", nil
}

func adminToken(t *testing.T, userID string) string {
	t.Helper()
	return signedToken(t, userID, "admin")
}

func signedToken(t *testing.T, userID, role string) string {
	t.Helper()
	token, err := auth.IssueToken([]byte(testSecret), userID, "Reviewer", role, "en", auth.NewJTI(), time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return token
}

func validPayload() StatusEmail {
	return StatusEmail{
		IssueID:    "issue-1",
		UserEmail:  "asha@example.com",
		UserName:   "Asha Verma",
		IssueTitle: "Broken streetlight",
		NewStatus:  "resolved",
		Language:   "en",
	}
}

func dispatch(t *testing.T, h *Handler, token string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/dispatch/status-email", bytes.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.Handler().ServeHTTP(rec, req)
	return rec
}

func newTestHandler(issues *fakeIssueStore, sender *fakeSender) *Handler {
	return NewHandler(issues, sender, testSecret, "*")
}

func TestDispatchRequiresToken(t *testing.T) {
	h := newTestHandler(&fakeIssueStore{}, &fakeSender{})

	rec := dispatch(t, h, "", validPayload())
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestDispatchRejectsInvalidToken(t *testing.T) {
	h := newTestHandler(&fakeIssueStore{}, &fakeSender{})

	rec := dispatch(t, h, "not-a-jwt", validPayload())
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestDispatchRejectsUnprivilegedCaller(t *testing.T) {
	issues := &fakeIssueStore{
		isModerator: func(ctx context.Context, userID string) (bool, error) { return false, nil },
	}
	h := newTestHandler(issues, &fakeSender{})

	rec := dispatch(t, h, signedToken(t, "user-1", "citizen"), validPayload())
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}

func TestDispatchAcceptsStaffCaller(t *testing.T) {
	issues := &fakeIssueStore{
		isModerator: func(ctx context.Context, userID string) (bool, error) { return true, nil },
		getIssue: func(ctx context.Context, issueID string) (store.Issue, error) {
			return store.Issue{ID: issueID, UserEmail: "asha@example.com"}, nil
		},
	}
	sender := &fakeSender{}
	h := newTestHandler(issues, sender)

	rec := dispatch(t, h, signedToken(t, "staff-1", "staff"), validPayload())
	if rec.Code != http.StatusOK {
		t.Fatalf("staff transitions must reach the citizen, got %d: %s", rec.Code, rec.Body.String())
	}
	if sender.lastTo != "asha@example.com" {
		t.Fatalf("expected email to issue owner, got %q", sender.lastTo)
	}
}

func TestDispatchValidatesPayload(t *testing.T) {
	issues := &fakeIssueStore{
		isModerator: func(ctx context.Context, userID string) (bool, error) { return true, nil },
	}
	h := newTestHandler(issues, &fakeSender{})

	payload := validPayload()
	payload.NewStatus = "closed"
	rec := dispatch(t, h, adminToken(t, "admin-1"), payload)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestDispatchAcceptsLegacyPayloadShape(t *testing.T) {
	issues := &fakeIssueStore{
		isModerator: func(ctx context.Context, userID string) (bool, error) { return true, nil },
		getIssue: func(ctx context.Context, issueID string) (store.Issue, error) {
			return store.Issue{ID: issueID, UserEmail: "asha@example.com"}, nil
		},
	}
	h := newTestHandler(issues, &fakeSender{})

	// oldStatus present, userName absent.
	payload := map[string]string{
		"issueId":    "issue-1",
		"userEmail":  "asha@example.com",
		"issueTitle": "Broken streetlight",
		"oldStatus":  "in_progress",
		"newStatus":  "resolved",
		"language":   "en",
	}
	rec := dispatch(t, h, adminToken(t, "admin-1"), payload)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestDispatchUnknownIssue(t *testing.T) {
	issues := &fakeIssueStore{
		isModerator: func(ctx context.Context, userID string) (bool, error) { return true, nil },
		getIssue: func(ctx context.Context, issueID string) (store.Issue, error) { return store.Issue{}, store.ErrNotFound },
	}
	h := newTestHandler(issues, &fakeSender{})

	rec := dispatch(t, h, adminToken(t, "admin-1"), validPayload())
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestDispatchIssueLookupFailure(t *testing.T) {
	issues := &fakeIssueStore{
		isModerator: func(ctx context.Context, userID string) (bool, error) { return true, nil },
		getIssue: func(ctx context.Context, issueID string) (store.Issue, error) {
			return store.Issue{}, errors.New("connection refused")
		},
	}
	h := newTestHandler(issues, &fakeSender{})

	rec := dispatch(t, h, adminToken(t, "admin-1"), validPayload())
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("store failure is not a missing issue, expected 500, got %d", rec.Code)
	}
}

func TestDispatchRejectsRecipientMismatch(t *testing.T) {
	issues := &fakeIssueStore{
		isModerator: func(ctx context.Context, userID string) (bool, error) { return true, nil },
		getIssue: func(ctx context.Context, issueID string) (store.Issue, error) {
			return store.Issue{ID: issueID, UserEmail: "owner@example.com"}, nil
		},
	}
	sender := &fakeSender{}
	h := newTestHandler(issues, sender)

	rec := dispatch(t, h, adminToken(t, "admin-1"), validPayload())
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "RECIPIENT_MISMATCH") {
		t.Fatalf("expected RECIPIENT_MISMATCH code, got %s", rec.Body.String())
	}
	if sender.lastTo != "" {
		t.Fatal("no email should be sent on mismatch")
	}
}

func TestDispatchSendsToIssueOwner(t *testing.T) {
	issues := &fakeIssueStore{
		isModerator: func(ctx context.Context, userID string) (bool, error) { return true, nil },
		getIssue: func(ctx context.Context, issueID string) (store.Issue, error) {
			return store.Issue{ID: issueID, UserEmail: "asha@example.com"}, nil
		},
	}
	sender := &fakeSender{}
	h := newTestHandler(issues, sender)

	rec := dispatch(t, h, adminToken(t, "admin-1"), validPayload())
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Success bool   `json:"success"`
		EmailID string `json:"emailId"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !resp.Success || resp.EmailID != "em_test_123" {
		t.Fatalf("unexpected response %+v", resp)
	}
	if sender.lastTo != "asha@example.com" {
		t.Fatalf("expected email to issue owner, got %q", sender.lastTo)
	}
	if !strings.Contains(sender.lastSubject, "Broken streetlight") {
		t.Fatalf("expected issue title in subject, got %q", sender.lastSubject)
	}
}

func TestDispatchSenderFailure(t *testing.T) {
	issues := &fakeIssueStore{
		isModerator: func(ctx context.Context, userID string) (bool, error) { return true, nil },
		getIssue: func(ctx context.Context, issueID string) (store.Issue, error) {
			return store.Issue{ID: issueID, UserEmail: "asha@example.com"}, nil
		},
	}
	h := newTestHandler(issues, &fakeSender{err: errors.New("provider down")})

	rec := dispatch(t, h, adminToken(t, "admin-1"), validPayload())
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "provider down") {
		t.Fatal("provider error must not leak to the response")
	}
}

func TestDispatchOptionsPreflight(t *testing.T) {
	h := newTestHandler(&fakeIssueStore{}, &fakeSender{})

	req := httptest.NewRequest(http.MethodOptions, "/dispatch/status-email", nil)
	rec := httptest.NewRecorder()
	h.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Fatal("expected CORS header on preflight")
	}
}

func TestClientDispatch(t *testing.T) {
	var gotAuth string
	var gotPayload StatusEmail
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&gotPayload)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	err := client.Dispatch(context.Background(), "token-abc", validPayload())
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if gotAuth != "Bearer token-abc" {
		t.Fatalf("expected bearer header, got %q", gotAuth)
	}
	if gotPayload.IssueID != "issue-1" {
		t.Fatalf("unexpected payload %+v", gotPayload)
	}
}

func TestClientDispatchNonOK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	if err := client.Dispatch(context.Background(), "token-abc", validPayload()); err == nil {
		t.Fatal("expected error for non-200 response")
	}
}
