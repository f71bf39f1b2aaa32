package app

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"nagarconnect/api/internal/auth"
	"nagarconnect/api/internal/authpw"
	"nagarconnect/api/internal/certificate"
	"nagarconnect/api/internal/config"
	"nagarconnect/api/internal/i18n"
	"nagarconnect/api/internal/notify"
	"nagarconnect/api/internal/rbac"
	"nagarconnect/api/internal/realtime"
	"nagarconnect/api/internal/store"
)

// Session is the authenticated caller for one request.
type Session struct {
	Token        string
	RefreshToken string
	UserID       string
	UserName     string
	Role         string
	Language     string
	ExpiresAt    time.Time
}

type CreateIssueInput struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Category    string   `json:"category"`
	Address     string   `json:"address"`
	Latitude    *float64 `json:"latitude"`
	Longitude   *float64 `json:"longitude"`
	PhotoURL    string   `json:"photoUrl"`
}

type UpdateStatusInput struct {
	Status string `json:"status"`
}

type FeedbackInput struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

type dataStore interface {
	CreateUser(context.Context, store.User) (store.User, error)
	GetUserByEmail(context.Context, string) (store.User, error)
	GetUserByID(context.Context, string) (store.User, error)
	IsModerator(context.Context, string) (bool, error)
	CreateIssue(context.Context, store.Issue) (store.Issue, error)
	ListIssues(context.Context) ([]store.Issue, error)
	ListUserIssues(context.Context, string) ([]store.Issue, error)
	GetIssue(context.Context, string) (store.Issue, error)
	ToggleUpvote(context.Context, string, string) (bool, int, error)
	UpdateIssueStatusPrivileged(context.Context, string, string, string) (store.Issue, error)
	InsertNotification(context.Context, store.Notification) error
	ListNotifications(context.Context, string) ([]store.Notification, error)
	MarkNotificationRead(context.Context, string, string) (bool, error)
	InsertFeedback(context.Context, store.Feedback) error
	CreateApprovalRequest(context.Context, store.ApprovalRequest) (store.ApprovalRequest, error)
	GetApprovalRequest(context.Context, string) (store.ApprovalRequest, error)
	ListUserApprovalRequests(context.Context, string) ([]store.ApprovalRequest, error)
	ListApprovalRequests(context.Context, string) ([]store.ApprovalRequest, error)
	ApproveRequest(context.Context, string, string, *string, *string) (store.ApprovalRequest, error)
	RejectRequest(context.Context, string, string, *string) (store.ApprovalRequest, error)
	SetCertificateURL(context.Context, string, string) error
	NextCertificateNumber(context.Context, string) (string, error)
	CreateDonation(context.Context, store.Donation) (store.Donation, error)
	ListDonations(context.Context) ([]store.Donation, error)
	GetDonation(context.Context, string) (store.Donation, error)
	RegisterVolunteer(context.Context, store.Volunteer) (store.Volunteer, error)
	GetVolunteerByUser(context.Context, string) (store.Volunteer, error)
	ListVolunteers(context.Context) ([]store.Volunteer, error)
	CreateStall(context.Context, store.LocalStall) (store.LocalStall, error)
	ListStalls(context.Context) ([]store.LocalStall, error)
	DeactivateStall(context.Context, string) error
	CreateAlert(context.Context, store.EmergencyAlert) (store.EmergencyAlert, error)
	ListActiveAlerts(context.Context) ([]store.EmergencyAlert, error)
	DeactivateAlert(context.Context, string) error
	CreateEvent(context.Context, store.CommunityEvent) (store.CommunityEvent, error)
	ListUpcomingEvents(context.Context) ([]store.CommunityEvent, error)
	DeactivateEvent(context.Context, string) error
	GetEvent(context.Context, string) (store.CommunityEvent, error)
	RegisterForEvent(context.Context, string, string) (store.EventRegistration, error)
	ListUserRegistrations(context.Context, string) ([]store.EventRegistration, error)
	Ping(ctx context.Context) error
}

type refreshStore interface {
	Save(ctx context.Context, tokenHash, userID string, expiresAt time.Time) error
	Lookup(ctx context.Context, tokenHash string) (string, error)
	Revoke(ctx context.Context, tokenHash string) error
}

type eventBus interface {
	Publish(ctx context.Context, event realtime.Event) error
}

type dispatcher interface {
	DispatchAsync(token string, payload notify.StatusEmail)
}

type certGenerator interface {
	Generate(ctx context.Context, cert certificate.Certificate) (string, error)
}

type Service struct {
	cfg      config.Config
	store    dataStore
	sessions refreshStore
	bus      eventBus
	dispatch dispatcher
	certs    certGenerator
	accounts *authpw.Service
	issues   issueCache
}

func New(cfg config.Config, dataStore *store.PostgresStore, sessions refreshStore, bus eventBus, dispatch dispatcher, certs certGenerator) *Service {
	return &Service{
		cfg:      cfg,
		store:    dataStore,
		sessions: sessions,
		bus:      bus,
		dispatch: dispatch,
		certs:    certs,
		accounts: authpw.NewService(dataStore),
	}
}

func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// --- Auth & sessions ---

func (s *Service) SignUp(ctx context.Context, req authpw.SignUpRequest) (Session, error) {
	user, err := s.accounts.SignUp(ctx, req)
	if errors.Is(err, authpw.ErrEmailTaken) {
		return Session{}, domainError(http.StatusConflict, "EMAIL_TAKEN", "Email already registered", nil)
	}
	if err != nil {
		return Session{}, domainError(http.StatusBadRequest, "INVALID_SIGNUP", "Invalid sign-up details", nil)
	}
	return s.issueSession(ctx, user)
}

func (s *Service) SignIn(ctx context.Context, req authpw.SignInRequest) (Session, error) {
	user, err := s.accounts.SignIn(ctx, req)
	if err != nil {
		return Session{}, domainError(http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid email or password", nil)
	}
	return s.issueSession(ctx, user)
}

func (s *Service) Refresh(ctx context.Context, refreshToken string) (Session, error) {
	tokenHash := auth.HashToken(refreshToken)
	userID, err := s.sessions.Lookup(ctx, tokenHash)
	if err != nil {
		return Session{}, domainError(http.StatusUnauthorized, "INVALID_REFRESH", "Invalid refresh token", nil)
	}
	// Rotation: the presented token is spent whether or not a new one
	// gets issued.
	if err := s.sessions.Revoke(ctx, tokenHash); err != nil {
		return Session{}, err
	}
	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return Session{}, domainError(http.StatusUnauthorized, "INVALID_REFRESH", "Invalid refresh token", nil)
	}
	return s.issueSession(ctx, user)
}

func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	return s.sessions.Revoke(ctx, auth.HashToken(refreshToken))
}

func (s *Service) issueSession(ctx context.Context, user store.User) (Session, error) {
	now := time.Now()
	expiresAt := now.Add(s.cfg.AccessTTL)

	token, err := auth.IssueToken([]byte(s.cfg.JWTSecret), user.ID, user.Name, user.Role, user.Language, auth.NewJTI(), expiresAt)
	if err != nil {
		return Session{}, err
	}

	refresh := auth.NewRefreshToken()
	if err := s.sessions.Save(ctx, auth.HashToken(refresh), user.ID, now.Add(s.cfg.RefreshTTL)); err != nil {
		return Session{}, err
	}

	return Session{
		Token:        token,
		RefreshToken: refresh,
		UserID:       user.ID,
		UserName:     user.Name,
		Role:         user.Role,
		Language:     user.Language,
		ExpiresAt:    expiresAt,
	}, nil
}

func (s *Service) SessionFromToken(token string) (Session, error) {
	claims, err := auth.ParseToken([]byte(s.cfg.JWTSecret), token)
	if err != nil {
		return Session{}, err
	}
	return Session{
		Token:     token,
		UserID:    claims.Subject,
		UserName:  claims.Name,
		Role:      claims.Role,
		Language:  claims.Language,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

func (s *Service) Can(role string, action rbac.Action) bool {
	return rbac.Can(rbac.Normalize(role), action)
}

// --- Issues ---

func (s *Service) CreateIssue(ctx context.Context, session Session, input CreateIssueInput) (store.Issue, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return store.Issue{}, domainError(http.StatusBadRequest, "INVALID_ISSUE", "Title is required", nil)
	}
	if !store.ValidCategory(input.Category) {
		return store.Issue{}, domainError(http.StatusBadRequest, "INVALID_ISSUE", "Unknown category", map[string]any{"category": input.Category})
	}

	// The reporter's contact details are denormalized onto the issue row;
	// the status-email dispatcher later pins its recipient to this copy.
	reporter, err := s.store.GetUserByID(ctx, session.UserID)
	if err != nil {
		return store.Issue{}, err
	}

	issue := store.Issue{
		UserID:    session.UserID,
		UserEmail: reporter.Email,
		UserPhone: reporter.Phone,
		Title:     title,
		Category:  input.Category,
		Status:    store.StatusSubmitted,
	}
	if desc := strings.TrimSpace(input.Description); desc != "" {
		issue.Description = &desc
	}
	if addr := strings.TrimSpace(input.Address); addr != "" {
		issue.Address = &addr
	}
	issue.Latitude = input.Latitude
	issue.Longitude = input.Longitude
	if input.PhotoURL != "" {
		issue.PhotoURL = &input.PhotoURL
	}

	created, err := s.store.CreateIssue(ctx, issue)
	if err != nil {
		return store.Issue{}, err
	}

	s.insertNotice(ctx, session.UserID, &created.ID, i18n.SubmissionNotice(created.Title))
	s.publish(ctx, "issues", "insert")
	return created, nil
}

func (s *Service) ListIssues(ctx context.Context) ([]store.Issue, error) {
	if cached, ok := s.issues.get(); ok {
		return cached, nil
	}
	return s.store.ListIssues(ctx)
}

func (s *Service) ListMyIssues(ctx context.Context, session Session) ([]store.Issue, error) {
	return s.store.ListUserIssues(ctx, session.UserID)
}

func (s *Service) GetIssue(ctx context.Context, issueID string) (store.Issue, error) {
	issue, err := s.store.GetIssue(ctx, issueID)
	if errors.Is(err, store.ErrNotFound) {
		return store.Issue{}, domainError(http.StatusNotFound, "NOT_FOUND", "Issue not found", nil)
	}
	return issue, err
}

func (s *Service) ToggleUpvote(ctx context.Context, session Session, issueID string) (map[string]any, error) {
	added, upvotes, err := s.store.ToggleUpvote(ctx, issueID, session.UserID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, domainError(http.StatusNotFound, "NOT_FOUND", "Issue not found", nil)
	}
	if err != nil {
		return nil, err
	}
	s.publish(ctx, "issues", "update")
	return map[string]any{"upvoted": added, "upvotes": upvotes}, nil
}

// UpdateIssueStatus performs a privileged transition. The role check
// happens inside the store transaction so a stale token never grants a
// demoted moderator a write.
func (s *Service) UpdateIssueStatus(ctx context.Context, session Session, issueID string, input UpdateStatusInput) (store.Issue, error) {
	if !store.ValidStatus(input.Status) {
		return store.Issue{}, domainError(http.StatusBadRequest, "INVALID_STATUS", "Unknown status", map[string]any{"status": input.Status})
	}

	issue, err := s.store.UpdateIssueStatusPrivileged(ctx, issueID, input.Status, session.UserID)
	if errors.Is(err, store.ErrUnauthorized) {
		return store.Issue{}, domainError(http.StatusForbidden, "FORBIDDEN", "Moderator role required", nil)
	}
	if errors.Is(err, store.ErrNotFound) {
		return store.Issue{}, domainError(http.StatusNotFound, "NOT_FOUND", "Issue not found", nil)
	}
	if err != nil {
		return store.Issue{}, err
	}

	if notice, ok := i18n.StatusNotice(issue.Status); ok {
		s.insertNotice(ctx, issue.UserID, &issue.ID, notice)
	}

	owner, err := s.store.GetUserByID(ctx, issue.UserID)
	if err != nil {
		log.Printf(`{"event":"status_email_skipped","issue_id":"%s","error":"%s"}`, issue.ID, err)
	} else if s.dispatch != nil {
		s.dispatch.DispatchAsync(session.Token, notify.StatusEmail{
			IssueID:    issue.ID,
			UserEmail:  issue.UserEmail,
			UserName:   owner.Name,
			IssueTitle: issue.Title,
			NewStatus:  issue.Status,
			Language:   owner.Language,
		})
	}

	s.publish(ctx, "issues", "update")
	return issue, nil
}

// --- Notifications & feedback ---

func (s *Service) ListNotifications(ctx context.Context, session Session) ([]store.Notification, error) {
	return s.store.ListNotifications(ctx, session.UserID)
}

func (s *Service) MarkNotificationRead(ctx context.Context, session Session, notificationID string) error {
	updated, err := s.store.MarkNotificationRead(ctx, notificationID, session.UserID)
	if err != nil {
		return err
	}
	if !updated {
		return domainError(http.StatusNotFound, "NOT_FOUND", "Notification not found", nil)
	}
	return nil
}

func (s *Service) SubmitFeedback(ctx context.Context, session Session, issueID string, input FeedbackInput) error {
	if input.Rating < 1 || input.Rating > 5 {
		return domainError(http.StatusBadRequest, "INVALID_FEEDBACK", "Rating must be between 1 and 5", nil)
	}

	issue, err := s.GetIssue(ctx, issueID)
	if err != nil {
		return err
	}
	if issue.Status != store.StatusResolved {
		return domainError(http.StatusBadRequest, "INVALID_FEEDBACK", "Feedback is only accepted on resolved issues", nil)
	}
	if issue.UserID != session.UserID {
		return domainError(http.StatusForbidden, "FORBIDDEN", "Only the reporter can rate an issue", nil)
	}

	item := store.Feedback{
		IssueID: issueID,
		UserID:  session.UserID,
		Rating:  input.Rating,
	}
	if comment := strings.TrimSpace(input.Comment); comment != "" {
		item.Comment = &comment
	}

	err = s.store.InsertFeedback(ctx, item)
	if errors.Is(err, store.ErrConflict) {
		return domainError(http.StatusConflict, "ALREADY_RATED", "Feedback already submitted for this issue", nil)
	}
	return err
}

// --- helpers ---

func (s *Service) insertNotice(ctx context.Context, userID string, issueID *string, notice i18n.Notice) {
	err := s.store.InsertNotification(ctx, store.Notification{
		UserID:    userID,
		IssueID:   issueID,
		TitleEN:   notice.TitleEN,
		TitleHI:   notice.TitleHI,
		MessageEN: notice.MessageEN,
		MessageHI: notice.MessageHI,
	})
	if err != nil {
		log.Printf(`{"event":"notification_insert_failed","user_id":"%s","error":"%s"}`, userID, err)
	}
	s.publish(ctx, "notifications", "insert")
}

func (s *Service) publish(ctx context.Context, table, kind string) {
	if s.bus == nil {
		return
	}
	if err := s.bus.Publish(ctx, realtime.Event{Table: table, Kind: kind}); err != nil {
		log.Printf(`{"event":"change_publish_failed","table":"%s","error":"%s"}`, table, err)
	}
}
