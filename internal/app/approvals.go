package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"nagarconnect/api/internal/certificate"
	"nagarconnect/api/internal/i18n"
	"nagarconnect/api/internal/store"
)

type ApprovalRequestInput struct {
	RequestType              string     `json:"requestType"`
	ReferenceID              string     `json:"referenceId"`
	EventID                  string     `json:"eventId"`
	StallDescription         string     `json:"stallDescription"`
	ProposedEventTitle       string     `json:"proposedEventTitle"`
	ProposedEventDescription string     `json:"proposedEventDescription"`
	ProposedEventDate        *time.Time `json:"proposedEventDate"`
	ProposedEventLocation    string     `json:"proposedEventLocation"`
}

type ReviewInput struct {
	Notes string `json:"notes"`
}

func validRequestType(requestType string) bool {
	switch requestType {
	case store.RequestDonationCertificate, store.RequestVolunteerCertificate,
		store.RequestEventStall, store.RequestEventOrganizer:
		return true
	}
	return false
}

func (s *Service) CreateApprovalRequest(ctx context.Context, session Session, input ApprovalRequestInput) (store.ApprovalRequest, error) {
	if !validRequestType(input.RequestType) {
		return store.ApprovalRequest{}, domainError(http.StatusBadRequest, "INVALID_REQUEST", "Unknown request type", map[string]any{"requestType": input.RequestType})
	}

	item := store.ApprovalRequest{
		UserID:      session.UserID,
		RequestType: input.RequestType,
		Status:      store.ApprovalPending,
	}

	switch input.RequestType {
	case store.RequestDonationCertificate:
		if input.ReferenceID == "" {
			return store.ApprovalRequest{}, domainError(http.StatusBadRequest, "INVALID_REQUEST", "A donation reference is required", nil)
		}
		donation, err := s.store.GetDonation(ctx, input.ReferenceID)
		if errors.Is(err, store.ErrNotFound) {
			return store.ApprovalRequest{}, domainError(http.StatusNotFound, "NOT_FOUND", "Donation not found", nil)
		}
		if err != nil {
			return store.ApprovalRequest{}, err
		}
		if donation.UserID == nil || *donation.UserID != session.UserID {
			return store.ApprovalRequest{}, domainError(http.StatusForbidden, "FORBIDDEN", "Donation belongs to another user", nil)
		}
		item.ReferenceID = &input.ReferenceID

	case store.RequestVolunteerCertificate:
		if _, err := s.store.GetVolunteerByUser(ctx, session.UserID); err != nil {
			return store.ApprovalRequest{}, domainError(http.StatusBadRequest, "INVALID_REQUEST", "Register as a volunteer before requesting a certificate", nil)
		}

	case store.RequestEventStall:
		if input.EventID == "" || strings.TrimSpace(input.StallDescription) == "" {
			return store.ApprovalRequest{}, domainError(http.StatusBadRequest, "INVALID_REQUEST", "Event and stall description are required", nil)
		}
		if _, err := s.store.GetEvent(ctx, input.EventID); err != nil {
			return store.ApprovalRequest{}, domainError(http.StatusNotFound, "NOT_FOUND", "Event not found", nil)
		}
		item.EventID = &input.EventID
		desc := strings.TrimSpace(input.StallDescription)
		item.StallDescription = &desc

	case store.RequestEventOrganizer:
		title := strings.TrimSpace(input.ProposedEventTitle)
		if title == "" || input.ProposedEventDate == nil {
			return store.ApprovalRequest{}, domainError(http.StatusBadRequest, "INVALID_REQUEST", "Proposed event title and date are required", nil)
		}
		item.ProposedEventTitle = &title
		item.ProposedEventDate = input.ProposedEventDate
		if desc := strings.TrimSpace(input.ProposedEventDescription); desc != "" {
			item.ProposedEventDescription = &desc
		}
		if loc := strings.TrimSpace(input.ProposedEventLocation); loc != "" {
			item.ProposedEventLocation = &loc
		}
	}

	created, err := s.store.CreateApprovalRequest(ctx, item)
	if errors.Is(err, store.ErrConflict) {
		return store.ApprovalRequest{}, domainError(http.StatusConflict, "DUPLICATE_REQUEST", "A request of this type already exists", nil)
	}
	if err != nil {
		return store.ApprovalRequest{}, err
	}

	s.publish(ctx, "approval_requests", "insert")
	return created, nil
}

func (s *Service) ListMyApprovalRequests(ctx context.Context, session Session) ([]store.ApprovalRequest, error) {
	return s.store.ListUserApprovalRequests(ctx, session.UserID)
}

func (s *Service) ListApprovalRequests(ctx context.Context, status string) ([]store.ApprovalRequest, error) {
	if status != "" && status != store.ApprovalPending && status != store.ApprovalApproved && status != store.ApprovalRejected {
		return nil, domainError(http.StatusBadRequest, "INVALID_FILTER", "Unknown approval status", nil)
	}
	return s.store.ListApprovalRequests(ctx, status)
}

// ApproveRequest marks a pending request approved, issues the
// certificate and, for organizer requests, publishes the proposed event.
// Certificate rendering is best effort: the approval stands even when
// PDF generation fails.
func (s *Service) ApproveRequest(ctx context.Context, session Session, requestID string, input ReviewInput) (store.ApprovalRequest, error) {
	pending, err := s.store.GetApprovalRequest(ctx, requestID)
	if errors.Is(err, store.ErrNotFound) {
		return store.ApprovalRequest{}, domainError(http.StatusNotFound, "NOT_FOUND", "Request not found", nil)
	}
	if err != nil {
		return store.ApprovalRequest{}, err
	}

	certNumber, err := s.store.NextCertificateNumber(ctx, pending.RequestType)
	if err != nil {
		return store.ApprovalRequest{}, err
	}

	var notes *string
	if trimmed := strings.TrimSpace(input.Notes); trimmed != "" {
		notes = &trimmed
	}

	approved, err := s.store.ApproveRequest(ctx, requestID, session.UserID, notes, &certNumber)
	if errors.Is(err, store.ErrConflict) {
		return store.ApprovalRequest{}, domainError(http.StatusConflict, "ALREADY_REVIEWED", "Request has already been reviewed", nil)
	}
	if errors.Is(err, store.ErrNotFound) {
		return store.ApprovalRequest{}, domainError(http.StatusNotFound, "NOT_FOUND", "Request not found", nil)
	}
	if err != nil {
		return store.ApprovalRequest{}, err
	}

	if approved.RequestType == store.RequestEventOrganizer {
		if err := s.createApprovedEvent(ctx, approved); err != nil {
			log.Printf(`{"event":"organizer_event_create_failed","request_id":"%s","error":"%s"}`, approved.ID, err)
		} else {
			s.publish(ctx, "community_events", "insert")
		}
	}

	if url, err := s.generateCertificate(ctx, approved, certNumber); err != nil {
		log.Printf(`{"event":"certificate_generation_failed","request_id":"%s","error":"%s"}`, approved.ID, err)
	} else {
		if err := s.store.SetCertificateURL(ctx, approved.ID, url); err != nil {
			log.Printf(`{"event":"certificate_url_save_failed","request_id":"%s","error":"%s"}`, approved.ID, err)
		} else {
			approved.CertificateURL = &url
		}
	}

	s.insertNotice(ctx, approved.UserID, nil, i18n.ApprovalNotice(true))
	s.publish(ctx, "approval_requests", "update")
	return approved, nil
}

func (s *Service) RejectRequest(ctx context.Context, session Session, requestID string, input ReviewInput) (store.ApprovalRequest, error) {
	var notes *string
	if trimmed := strings.TrimSpace(input.Notes); trimmed != "" {
		notes = &trimmed
	}

	rejected, err := s.store.RejectRequest(ctx, requestID, session.UserID, notes)
	if errors.Is(err, store.ErrConflict) {
		return store.ApprovalRequest{}, domainError(http.StatusConflict, "ALREADY_REVIEWED", "Request has already been reviewed", nil)
	}
	if errors.Is(err, store.ErrNotFound) {
		return store.ApprovalRequest{}, domainError(http.StatusNotFound, "NOT_FOUND", "Request not found", nil)
	}
	if err != nil {
		return store.ApprovalRequest{}, err
	}

	s.insertNotice(ctx, rejected.UserID, nil, i18n.ApprovalNotice(false))
	s.publish(ctx, "approval_requests", "update")
	return rejected, nil
}

func (s *Service) createApprovedEvent(ctx context.Context, request store.ApprovalRequest) error {
	if request.ProposedEventTitle == nil || request.ProposedEventDate == nil {
		return errors.New("organizer request missing proposed event details")
	}
	event := store.CommunityEvent{
		TitleEN:       *request.ProposedEventTitle,
		TitleHI:       *request.ProposedEventTitle,
		DescriptionEN: request.ProposedEventDescription,
		EventType:     "community",
		Location:      request.ProposedEventLocation,
		StartDate:     *request.ProposedEventDate,
		CreatedBy:     &request.UserID,
	}
	_, err := s.store.CreateEvent(ctx, event)
	return err
}

func (s *Service) generateCertificate(ctx context.Context, request store.ApprovalRequest, certNumber string) (string, error) {
	if s.certs == nil {
		return "", errors.New("certificate service not configured")
	}

	user, err := s.store.GetUserByID(ctx, request.UserID)
	if err != nil {
		return "", fmt.Errorf("load recipient: %w", err)
	}

	details := certificateDetails(ctx, s.store, request)
	return s.certs.Generate(ctx, certificate.Certificate{
		Number:        certNumber,
		RecipientName: user.Name,
		RequestType:   request.RequestType,
		Details:       details,
		IssuedAt:      time.Now(),
	})
}

func certificateDetails(ctx context.Context, data dataStore, request store.ApprovalRequest) string {
	switch request.RequestType {
	case store.RequestDonationCertificate:
		if request.ReferenceID != nil {
			if donation, err := data.GetDonation(ctx, *request.ReferenceID); err == nil {
				return fmt.Sprintf("In grateful recognition of a donation of ₹%.2f toward community welfare.", donation.Amount)
			}
		}
		return "In grateful recognition of a donation toward community welfare."
	case store.RequestVolunteerCertificate:
		return "In appreciation of dedicated volunteer service to the community."
	case store.RequestEventStall:
		return "Permission is granted to operate a stall at the approved community event."
	case store.RequestEventOrganizer:
		if request.ProposedEventTitle != nil {
			return fmt.Sprintf("Permission is granted to organize the community event %q.", *request.ProposedEventTitle)
		}
		return "Permission is granted to organize the approved community event."
	}
	return "In recognition of valued contribution to the community."
}
