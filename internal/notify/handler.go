// Package notify implements the status-email dispatcher: a small HTTP
// service that privileged callers invoke after a status transition, plus
// the client the portal uses to invoke it.
package notify

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"nagarconnect/api/internal/auth"
	"nagarconnect/api/internal/email"
	"nagarconnect/api/internal/i18n"
	"nagarconnect/api/internal/store"
)

// StatusEmail is the dispatch payload for one transition. OldStatus and
// UserName are accepted for caller convenience but not required; the
// rendered email is keyed on NewStatus alone.
type StatusEmail struct {
	IssueID    string `json:"issueId" validate:"required"`
	UserEmail  string `json:"userEmail" validate:"required,email"`
	UserName   string `json:"userName"`
	IssueTitle string `json:"issueTitle" validate:"required"`
	OldStatus  string `json:"oldStatus" validate:"omitempty,oneof=submitted acknowledged in_progress resolved"`
	NewStatus  string `json:"newStatus" validate:"required,oneof=submitted acknowledged in_progress resolved"`
	Language   string `json:"language" validate:"omitempty,oneof=en hi"`
}

// IssueStore is the storage surface the dispatcher needs.
type IssueStore interface {
	GetIssue(ctx context.Context, issueID string) (store.Issue, error)
	IsModerator(ctx context.Context, userID string) (bool, error)
}

// Handler serves the dispatch endpoint. Every request is re-authorized
// against the database: a valid token alone is not enough, the caller
// must hold a staff or admin role at dispatch time, the same set the
// status transition itself admits.
type Handler struct {
	store      IssueStore
	sender     email.Sender
	secret     []byte
	corsOrigin string
	validate   *validator.Validate
}

func NewHandler(issues IssueStore, sender email.Sender, tokenSecret, corsOrigin string) *Handler {
	return &Handler{
		store:      issues,
		sender:     sender,
		secret:     []byte(tokenSecret),
		corsOrigin: corsOrigin,
		validate:   validator.New(),
	}
}

func (h *Handler) Handler() http.Handler {
	return h.withMiddleware(http.HandlerFunc(h.handle))
}

func (h *Handler) handle(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		writeJSON(w, http.StatusNoContent, map[string]any{})
		return
	}

	if (r.Method == http.MethodGet || r.Method == http.MethodHead) && r.URL.Path == "/health" {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		return
	}

	if r.Method == http.MethodPost && r.URL.Path == "/dispatch/status-email" {
		h.handleDispatch(w, r)
		return
	}

	writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
}

func (h *Handler) handleDispatch(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)
	if token == "" {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Missing authorization header", nil)
		return
	}

	claims, err := auth.ParseToken(h.secret, token)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid token", nil)
		return
	}

	privileged, err := h.store.IsModerator(r.Context(), claims.Subject)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "SERVER_ERROR", "Server error", nil)
		return
	}
	if !privileged {
		writeError(w, http.StatusForbidden, "FORBIDDEN", "Staff or admin role required", nil)
		return
	}

	var payload StatusEmail
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", "Invalid JSON body", nil)
		return
	}
	if err := h.validate.Struct(payload); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", "Invalid dispatch payload", nil)
		return
	}

	issue, err := h.store.GetIssue(r.Context(), payload.IssueID)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Issue not found", nil)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "SERVER_ERROR", "Server error", nil)
		return
	}
	// The recipient must be the issue owner on record, not whatever
	// address the caller supplied.
	if !strings.EqualFold(issue.UserEmail, payload.UserEmail) {
		writeError(w, http.StatusBadRequest, "RECIPIENT_MISMATCH", "Recipient does not match issue owner", nil)
		return
	}

	subject, body, err := email.RenderStatusUpdate(email.StatusUpdate{
		IssueTitle: payload.IssueTitle,
		NewStatus:  payload.NewStatus,
		Language:   i18n.Normalize(payload.Language),
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "SERVER_ERROR", "Server error", nil)
		return
	}

	emailID, err := h.sender.Send(r.Context(), issue.UserEmail, subject, body)
	if err != nil {
		log.Printf(`{"event":"status_email_failed","issue_id":"%s","error":"%s"}`, payload.IssueID, err)
		writeError(w, http.StatusInternalServerError, "SERVER_ERROR", "Server error", nil)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"success": true, "emailId": emailID})
}

func (h *Handler) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = randomRequestID()
		}

		started := time.Now()
		writer := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		setCORSHeaders(writer.Header(), h.corsOrigin)
		writer.Header().Set("X-Request-ID", requestID)

		next.ServeHTTP(writer, r)

		log.Printf(`{"request_id":"%s","method":"%s","path":"%s","status":%d,"duration_ms":%d}`,
			requestID,
			r.Method,
			r.URL.Path,
			writer.status,
			time.Since(started).Milliseconds(),
		)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func randomRequestID() string {
	buf := make([]byte, 8)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}

func setCORSHeaders(header http.Header, corsOrigin string) {
	header.Set("Access-Control-Allow-Origin", corsOrigin)
	header.Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")
	header.Set("Access-Control-Allow-Methods", "POST,OPTIONS")
	header.Set("Cache-Control", "no-store")
	header.Set("Content-Type", "application/json")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string, details any) {
	response := map[string]any{
		"code":  code,
		"error": message,
	}
	if details != nil {
		response["details"] = details
	}
	writeJSON(w, status, response)
}

func bearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if !strings.HasPrefix(header, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
}
