package app

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"nagarconnect/api/internal/auth"
	"nagarconnect/api/internal/authpw"
	"nagarconnect/api/internal/rbac"
	"nagarconnect/api/internal/store"
)

const maxPhotoSize = 10 << 20

type rateLimiter interface {
	Allow(ctx context.Context, userID string) (bool, time.Duration, error)
}

type photoUploader interface {
	UploadPhoto(ctx context.Context, bucket, filename, contentType string, reader io.Reader, size int64) (string, error)
}

type HTTPServer struct {
	service     *Service
	limiter     rateLimiter
	uploads     photoUploader
	photoBucket string
	corsOrigin  string
}

func NewHTTPServer(service *Service, limiter rateLimiter, uploads photoUploader, photoBucket, corsOrigin string) *HTTPServer {
	return &HTTPServer{
		service:     service,
		limiter:     limiter,
		uploads:     uploads,
		photoBucket: photoBucket,
		corsOrigin:  corsOrigin,
	}
}

func (s *HTTPServer) Handler() http.Handler {
	return s.withMiddleware(http.HandlerFunc(s.handle))
}

func (s *HTTPServer) handle(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		writeJSON(w, http.StatusNoContent, map[string]any{})
		return
	}

	if (r.Method == http.MethodGet || r.Method == http.MethodHead) && r.URL.Path == "/api/health" {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		return
	}

	if (r.Method == http.MethodGet || r.Method == http.MethodHead) && r.URL.Path == "/api/ready" {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		status := "ready"
		statusCode := http.StatusOK
		checks := map[string]any{
			"database": map[string]any{"status": "ok"},
		}
		if err := s.service.Ping(ctx); err != nil {
			status = "not_ready"
			statusCode = http.StatusServiceUnavailable
			checks["database"] = map[string]any{"status": "error", "error": err.Error()}
		}
		writeJSON(w, statusCode, map[string]any{"ok": status == "ready", "status": status, "checks": checks})
		return
	}

	// Auth routes (no session required)
	if r.Method == http.MethodPost && r.URL.Path == "/api/auth/signup" {
		s.handleSignUp(w, r)
		return
	}
	if r.Method == http.MethodPost && r.URL.Path == "/api/auth/signin" {
		s.handleSignIn(w, r)
		return
	}
	if r.Method == http.MethodPost && r.URL.Path == "/api/auth/refresh" {
		s.handleRefresh(w, r)
		return
	}
	if r.Method == http.MethodPost && r.URL.Path == "/api/auth/logout" {
		s.handleLogout(w, r)
		return
	}

	if r.Method == http.MethodGet && r.URL.Path == "/api/session" {
		token := bearerToken(r)
		if token == "" {
			writeJSON(w, http.StatusOK, map[string]any{"authenticated": false})
			return
		}
		session, err := s.service.SessionFromToken(token)
		if err != nil {
			writeJSON(w, http.StatusOK, map[string]any{"authenticated": false})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"authenticated": true,
			"userId":        session.UserID,
			"userName":      session.UserName,
			"role":          session.Role,
			"language":      session.Language,
		})
		return
	}

	parts := splitPath(r.URL.Path)
	if len(parts) < 2 || parts[0] != "api" {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
		return
	}

	switch parts[1] {
	case "issues":
		s.routeIssues(w, r, parts)
	case "notifications":
		s.routeNotifications(w, r, parts)
	case "uploads":
		s.routeUploads(w, r, parts)
	case "approvals":
		s.routeApprovals(w, r, parts)
	case "donations":
		s.routeDonations(w, r, parts)
	case "volunteers":
		s.routeVolunteers(w, r, parts)
	case "stalls":
		s.routeStalls(w, r, parts)
	case "alerts":
		s.routeAlerts(w, r, parts)
	case "events":
		s.routeEvents(w, r, parts)
	case "registrations":
		s.routeRegistrations(w, r, parts)
	default:
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
	}
}

// --- auth handlers ---

func (s *HTTPServer) handleSignUp(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
		Phone    string `json:"phone"`
		Language string `json:"language"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", "Invalid JSON body", nil)
		return
	}

	session, err := s.service.SignUp(r.Context(), authpw.SignUpRequest{
		Name:     body.Name,
		Email:    body.Email,
		Password: body.Password,
		Phone:    body.Phone,
		Language: body.Language,
	})
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, sessionPayload(session))
}

func (s *HTTPServer) handleSignIn(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", "Invalid JSON body", nil)
		return
	}

	session, err := s.service.SignIn(r.Context(), authpw.SignInRequest{
		Email:    body.Email,
		Password: body.Password,
	})
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionPayload(session))
}

func (s *HTTPServer) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var body struct {
		RefreshToken string `json:"refreshToken"`
	}
	if err := decodeBody(r, &body); err != nil || body.RefreshToken == "" {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", "Refresh token required", nil)
		return
	}

	session, err := s.service.Refresh(r.Context(), body.RefreshToken)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionPayload(session))
}

func (s *HTTPServer) handleLogout(w http.ResponseWriter, r *http.Request) {
	var body struct {
		RefreshToken string `json:"refreshToken"`
	}
	_ = decodeBody(r, &body)
	if err := s.service.Logout(r.Context(), body.RefreshToken); err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func sessionPayload(session Session) map[string]any {
	return map[string]any{
		"token":        session.Token,
		"refreshToken": session.RefreshToken,
		"userId":       session.UserID,
		"userName":     session.UserName,
		"role":         session.Role,
		"language":     session.Language,
		"expiresAt":    session.ExpiresAt.UTC().Format(time.RFC3339),
	}
}

// --- issues ---

func (s *HTTPServer) routeIssues(w http.ResponseWriter, r *http.Request, parts []string) {
	switch {
	case r.Method == http.MethodGet && len(parts) == 2:
		issues, err := s.service.ListIssues(r.Context())
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"issues": issuePayloads(issues)})

	case r.Method == http.MethodGet && len(parts) == 3 && parts[2] == "mine":
		session, ok := s.requireSession(w, r)
		if !ok {
			return
		}
		issues, err := s.service.ListMyIssues(r.Context(), session)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"issues": issuePayloads(issues)})

	case r.Method == http.MethodGet && len(parts) == 3:
		issue, err := s.service.GetIssue(r.Context(), parts[2])
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, issuePayload(issue))

	case r.Method == http.MethodPost && len(parts) == 2:
		session, ok := s.requireSession(w, r)
		if !ok {
			return
		}
		if !s.allowReport(w, r, session) {
			return
		}
		var input CreateIssueInput
		if err := decodeBody(r, &input); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", "Invalid JSON body", nil)
			return
		}
		issue, err := s.service.CreateIssue(r.Context(), session, input)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, issuePayload(issue))

	case r.Method == http.MethodPost && len(parts) == 4 && parts[3] == "upvote":
		session, ok := s.requireSession(w, r)
		if !ok {
			return
		}
		result, err := s.service.ToggleUpvote(r.Context(), session, parts[2])
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, result)

	case r.Method == http.MethodPut && len(parts) == 4 && parts[3] == "status":
		session, ok := s.requireSession(w, r)
		if !ok {
			return
		}
		if !s.service.Can(session.Role, rbac.ActionModerate) {
			writeError(w, http.StatusForbidden, "FORBIDDEN", "Forbidden", nil)
			return
		}
		var input UpdateStatusInput
		if err := decodeBody(r, &input); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", "Invalid JSON body", nil)
			return
		}
		issue, err := s.service.UpdateIssueStatus(r.Context(), session, parts[2], input)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, issuePayload(issue))

	case r.Method == http.MethodPost && len(parts) == 4 && parts[3] == "feedback":
		session, ok := s.requireSession(w, r)
		if !ok {
			return
		}
		var input FeedbackInput
		if err := decodeBody(r, &input); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", "Invalid JSON body", nil)
			return
		}
		if err := s.service.SubmitFeedback(r.Context(), session, parts[2], input); err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"ok": true})

	default:
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
	}
}

// allowReport enforces the per-user submission rate limit. Limiter
// outages fail open: reporting a pothole should not depend on Redis.
func (s *HTTPServer) allowReport(w http.ResponseWriter, r *http.Request, session Session) bool {
	if s.limiter == nil {
		return true
	}
	allowed, retryAfter, err := s.limiter.Allow(r.Context(), session.UserID)
	if err != nil {
		log.Printf(`{"event":"ratelimit_check_failed","user_id":"%s","error":"%s"}`, session.UserID, err)
		return true
	}
	if !allowed {
		w.Header().Set("Retry-After", strconv.Itoa(int(retryAfter.Seconds())))
		writeError(w, http.StatusTooManyRequests, "RATE_LIMITED", "Too many reports, try again later", map[string]any{
			"retryAfterSeconds": int(retryAfter.Seconds()),
		})
		return false
	}
	return true
}

// --- notifications ---

func (s *HTTPServer) routeNotifications(w http.ResponseWriter, r *http.Request, parts []string) {
	session, ok := s.requireSession(w, r)
	if !ok {
		return
	}

	switch {
	case r.Method == http.MethodGet && len(parts) == 2:
		notifications, err := s.service.ListNotifications(r.Context(), session)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"notifications": notificationPayloads(notifications)})

	case r.Method == http.MethodPut && len(parts) == 4 && parts[3] == "read":
		if err := s.service.MarkNotificationRead(r.Context(), session, parts[2]); err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})

	default:
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
	}
}

// --- uploads ---

func (s *HTTPServer) routeUploads(w http.ResponseWriter, r *http.Request, parts []string) {
	if r.Method != http.MethodPost || len(parts) != 3 || parts[2] != "photos" {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
		return
	}
	if _, ok := s.requireSession(w, r); !ok {
		return
	}
	if s.uploads == nil {
		writeError(w, http.StatusServiceUnavailable, "UPLOADS_UNAVAILABLE", "Photo uploads not configured", nil)
		return
	}

	if err := r.ParseMultipartForm(maxPhotoSize); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_UPLOAD", "Invalid multipart body", nil)
		return
	}
	file, header, err := r.FormFile("photo")
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_UPLOAD", "A photo file is required", nil)
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		writeError(w, http.StatusBadRequest, "INVALID_UPLOAD", "Only image uploads are accepted", nil)
		return
	}

	url, err := s.uploads.UploadPhoto(r.Context(), s.photoBucket, filepath.Base(header.Filename), contentType, file, header.Size)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"url": url})
}

// --- approvals ---

func (s *HTTPServer) routeApprovals(w http.ResponseWriter, r *http.Request, parts []string) {
	session, ok := s.requireSession(w, r)
	if !ok {
		return
	}

	switch {
	case r.Method == http.MethodPost && len(parts) == 2:
		var input ApprovalRequestInput
		if err := decodeBody(r, &input); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", "Invalid JSON body", nil)
			return
		}
		request, err := s.service.CreateApprovalRequest(r.Context(), session, input)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, approvalPayload(request))

	case r.Method == http.MethodGet && len(parts) == 3 && parts[2] == "mine":
		requests, err := s.service.ListMyApprovalRequests(r.Context(), session)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"requests": approvalPayloads(requests)})

	case r.Method == http.MethodGet && len(parts) == 2:
		if !s.service.Can(session.Role, rbac.ActionAdmin) {
			writeError(w, http.StatusForbidden, "FORBIDDEN", "Forbidden", nil)
			return
		}
		requests, err := s.service.ListApprovalRequests(r.Context(), r.URL.Query().Get("status"))
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"requests": approvalPayloads(requests)})

	case r.Method == http.MethodPost && len(parts) == 4 && (parts[3] == "approve" || parts[3] == "reject"):
		if !s.service.Can(session.Role, rbac.ActionAdmin) {
			writeError(w, http.StatusForbidden, "FORBIDDEN", "Forbidden", nil)
			return
		}
		var input ReviewInput
		if err := decodeBody(r, &input); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", "Invalid JSON body", nil)
			return
		}
		var request store.ApprovalRequest
		var err error
		if parts[3] == "approve" {
			request, err = s.service.ApproveRequest(r.Context(), session, parts[2], input)
		} else {
			request, err = s.service.RejectRequest(r.Context(), session, parts[2], input)
		}
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, approvalPayload(request))

	default:
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
	}
}

// --- donations ---

func (s *HTTPServer) routeDonations(w http.ResponseWriter, r *http.Request, parts []string) {
	switch {
	case r.Method == http.MethodGet && len(parts) == 2:
		donations, err := s.service.ListDonations(r.Context())
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"donations": donationPayloads(donations)})

	case r.Method == http.MethodPost && len(parts) == 2:
		session, ok := s.requireSession(w, r)
		if !ok {
			return
		}
		var input DonationInput
		if err := decodeBody(r, &input); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", "Invalid JSON body", nil)
			return
		}
		donation, err := s.service.CreateDonation(r.Context(), session, input)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, donationPayload(donation))

	default:
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
	}
}

// --- volunteers ---

func (s *HTTPServer) routeVolunteers(w http.ResponseWriter, r *http.Request, parts []string) {
	session, ok := s.requireSession(w, r)
	if !ok {
		return
	}

	switch {
	case r.Method == http.MethodPost && len(parts) == 2:
		var input VolunteerInput
		if err := decodeBody(r, &input); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", "Invalid JSON body", nil)
			return
		}
		volunteer, err := s.service.RegisterVolunteer(r.Context(), session, input)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, volunteerPayload(volunteer))

	case r.Method == http.MethodGet && len(parts) == 2:
		if !s.service.Can(session.Role, rbac.ActionModerate) {
			writeError(w, http.StatusForbidden, "FORBIDDEN", "Forbidden", nil)
			return
		}
		volunteers, err := s.service.ListVolunteers(r.Context())
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"volunteers": volunteerPayloads(volunteers)})

	default:
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
	}
}

// --- stalls ---

func (s *HTTPServer) routeStalls(w http.ResponseWriter, r *http.Request, parts []string) {
	switch {
	case r.Method == http.MethodGet && len(parts) == 2:
		stalls, err := s.service.ListStalls(r.Context())
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"stalls": stallPayloads(stalls)})

	case r.Method == http.MethodPost && len(parts) == 2:
		if _, ok := s.requireAdmin(w, r); !ok {
			return
		}
		var input StallInput
		if err := decodeBody(r, &input); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", "Invalid JSON body", nil)
			return
		}
		stall, err := s.service.CreateStall(r.Context(), input)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, stallPayload(stall))

	case r.Method == http.MethodDelete && len(parts) == 3:
		if _, ok := s.requireAdmin(w, r); !ok {
			return
		}
		if err := s.service.DeactivateStall(r.Context(), parts[2]); err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})

	default:
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
	}
}

// --- alerts ---

func (s *HTTPServer) routeAlerts(w http.ResponseWriter, r *http.Request, parts []string) {
	switch {
	case r.Method == http.MethodGet && len(parts) == 2:
		alerts, err := s.service.ListActiveAlerts(r.Context())
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"alerts": alertPayloads(alerts)})

	case r.Method == http.MethodPost && len(parts) == 2:
		session, ok := s.requireAdmin(w, r)
		if !ok {
			return
		}
		var input AlertInput
		if err := decodeBody(r, &input); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", "Invalid JSON body", nil)
			return
		}
		alert, err := s.service.CreateAlert(r.Context(), session, input)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, alertPayload(alert))

	case r.Method == http.MethodDelete && len(parts) == 3:
		if _, ok := s.requireAdmin(w, r); !ok {
			return
		}
		if err := s.service.DeactivateAlert(r.Context(), parts[2]); err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})

	default:
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
	}
}

// --- events ---

func (s *HTTPServer) routeEvents(w http.ResponseWriter, r *http.Request, parts []string) {
	switch {
	case r.Method == http.MethodGet && len(parts) == 2:
		events, err := s.service.ListUpcomingEvents(r.Context())
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"events": eventPayloads(events)})

	case r.Method == http.MethodPost && len(parts) == 2:
		session, ok := s.requireAdmin(w, r)
		if !ok {
			return
		}
		var input EventInput
		if err := decodeBody(r, &input); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", "Invalid JSON body", nil)
			return
		}
		event, err := s.service.CreateEvent(r.Context(), session, input)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, eventPayload(event))

	case r.Method == http.MethodPost && len(parts) == 4 && parts[3] == "register":
		session, ok := s.requireSession(w, r)
		if !ok {
			return
		}
		registration, err := s.service.RegisterForEvent(r.Context(), session, parts[2])
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, registrationPayload(registration))

	case r.Method == http.MethodDelete && len(parts) == 3:
		if _, ok := s.requireAdmin(w, r); !ok {
			return
		}
		if err := s.service.DeactivateEvent(r.Context(), parts[2]); err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})

	default:
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
	}
}

// --- registrations ---

func (s *HTTPServer) routeRegistrations(w http.ResponseWriter, r *http.Request, parts []string) {
	if r.Method != http.MethodGet || len(parts) != 3 || parts[2] != "mine" {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
		return
	}
	session, ok := s.requireSession(w, r)
	if !ok {
		return
	}
	registrations, err := s.service.ListMyRegistrations(r.Context(), session)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"registrations": registrationPayloads(registrations)})
}

// --- session helpers ---

func (s *HTTPServer) requireSession(w http.ResponseWriter, r *http.Request) (Session, bool) {
	token := bearerToken(r)
	if token == "" {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil)
		return Session{}, false
	}
	session, err := s.service.SessionFromToken(token)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil)
		return Session{}, false
	}
	return session, true
}

func (s *HTTPServer) requireAdmin(w http.ResponseWriter, r *http.Request) (Session, bool) {
	session, ok := s.requireSession(w, r)
	if !ok {
		return Session{}, false
	}
	if !s.service.Can(session.Role, rbac.ActionAdmin) {
		writeError(w, http.StatusForbidden, "FORBIDDEN", "Forbidden", nil)
		return Session{}, false
	}
	return session, true
}

func (s *HTTPServer) writeServiceError(w http.ResponseWriter, err error) {
	status, code, message, details := mapError(err)
	if status == http.StatusInternalServerError {
		log.Printf(`{"event":"request_failed","error":"%s"}`, err)
	}
	writeError(w, status, code, message, details)
}

func mapError(err error) (status int, code, message string, details any) {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Status, domainErr.Code, domainErr.Message, domainErr.Details
	}
	if errors.Is(err, store.ErrNotFound) {
		return http.StatusNotFound, "NOT_FOUND", "Not found", nil
	}
	if errors.Is(err, store.ErrConflict) {
		return http.StatusConflict, "CONFLICT", "Conflict", nil
	}
	if errors.Is(err, auth.ErrInvalidToken) || errors.Is(err, auth.ErrExpiredToken) {
		return http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil
	}
	return http.StatusInternalServerError, "SERVER_ERROR", "Server error", nil
}

// --- middleware & plumbing ---

func (s *HTTPServer) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = randomRequestID()
		}
		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		r = r.WithContext(ctx)

		started := time.Now()
		writer := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		setCORSHeaders(writer.Header(), s.corsOrigin)
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

type requestIDKey struct{}

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
	header.Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
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

func decodeBody(r *http.Request, target any) error {
	if r.Body == nil {
		return nil
	}
	defer r.Body.Close()
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(target); err != nil {
		if errors.Is(err, http.ErrBodyReadAfterClose) {
			return nil
		}
		return fmt.Errorf("invalid JSON body")
	}
	return nil
}

func bearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if !strings.HasPrefix(header, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
}

func splitPath(path string) []string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}
