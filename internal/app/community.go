package app

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"nagarconnect/api/internal/store"
)

type DonationInput struct {
	DonorName   string  `json:"donorName"`
	DonorEmail  string  `json:"donorEmail"`
	DonorPhone  string  `json:"donorPhone"`
	Amount      float64 `json:"amount"`
	Purpose     string  `json:"purpose"`
	IsAnonymous bool    `json:"isAnonymous"`
}

type VolunteerInput struct {
	FullName     string `json:"fullName"`
	Email        string `json:"email"`
	Phone        string `json:"phone"`
	Skills       string `json:"skills"`
	Availability string `json:"availability"`
}

type StallInput struct {
	Name               string   `json:"name"`
	Category           string   `json:"category"`
	Description        string   `json:"description"`
	DiscountInfo       string   `json:"discountInfo"`
	DiscountPercentage *int     `json:"discountPercentage"`
	Address            string   `json:"address"`
	Phone              string   `json:"phone"`
	Latitude           *float64 `json:"latitude"`
	Longitude          *float64 `json:"longitude"`
	PhotoURL           string   `json:"photoUrl"`
}

type AlertInput struct {
	TitleEN   string     `json:"titleEn"`
	TitleHI   string     `json:"titleHi"`
	MessageEN string     `json:"messageEn"`
	MessageHI string     `json:"messageHi"`
	Severity  string     `json:"severity"`
	ExpiresAt *time.Time `json:"expiresAt"`
}

type EventInput struct {
	TitleEN         string     `json:"titleEn"`
	TitleHI         string     `json:"titleHi"`
	DescriptionEN   string     `json:"descriptionEn"`
	DescriptionHI   string     `json:"descriptionHi"`
	EventType       string     `json:"eventType"`
	Location        string     `json:"location"`
	Latitude        *float64   `json:"latitude"`
	Longitude       *float64   `json:"longitude"`
	StartDate       time.Time  `json:"startDate"`
	EndDate         *time.Time `json:"endDate"`
	MaxParticipants *int       `json:"maxParticipants"`
	PhotoURL        string     `json:"photoUrl"`
}

func optional(value string) *string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

// --- Donations ---

func (s *Service) CreateDonation(ctx context.Context, session Session, input DonationInput) (store.Donation, error) {
	if input.Amount <= 0 {
		return store.Donation{}, domainError(http.StatusBadRequest, "INVALID_DONATION", "Amount must be positive", nil)
	}
	donorName := strings.TrimSpace(input.DonorName)
	if donorName == "" {
		donorName = session.UserName
	}

	item := store.Donation{
		UserID:      &session.UserID,
		DonorName:   donorName,
		DonorEmail:  optional(input.DonorEmail),
		DonorPhone:  optional(input.DonorPhone),
		Amount:      input.Amount,
		Purpose:     optional(input.Purpose),
		IsAnonymous: input.IsAnonymous,
	}

	created, err := s.store.CreateDonation(ctx, item)
	if err != nil {
		return store.Donation{}, err
	}
	s.publish(ctx, "donations", "insert")
	return created, nil
}

func (s *Service) ListDonations(ctx context.Context) ([]store.Donation, error) {
	donations, err := s.store.ListDonations(ctx)
	if err != nil {
		return nil, err
	}
	// Anonymous donors stay anonymous on the public wall.
	for i := range donations {
		if donations[i].IsAnonymous {
			donations[i].DonorName = "Anonymous"
			donations[i].DonorEmail = nil
			donations[i].DonorPhone = nil
			donations[i].UserID = nil
		}
	}
	return donations, nil
}

// --- Volunteers ---

func (s *Service) RegisterVolunteer(ctx context.Context, session Session, input VolunteerInput) (store.Volunteer, error) {
	fullName := strings.TrimSpace(input.FullName)
	email := strings.TrimSpace(input.Email)
	if fullName == "" || email == "" {
		return store.Volunteer{}, domainError(http.StatusBadRequest, "INVALID_VOLUNTEER", "Name and email are required", nil)
	}

	item := store.Volunteer{
		UserID:       session.UserID,
		FullName:     fullName,
		Email:        email,
		Phone:        optional(input.Phone),
		Skills:       optional(input.Skills),
		Availability: optional(input.Availability),
	}

	created, err := s.store.RegisterVolunteer(ctx, item)
	if errors.Is(err, store.ErrConflict) {
		return store.Volunteer{}, domainError(http.StatusConflict, "ALREADY_REGISTERED", "Already registered as a volunteer", nil)
	}
	if err != nil {
		return store.Volunteer{}, err
	}
	s.publish(ctx, "volunteers", "insert")
	return created, nil
}

func (s *Service) ListVolunteers(ctx context.Context) ([]store.Volunteer, error) {
	return s.store.ListVolunteers(ctx)
}

// --- Local stalls ---

func (s *Service) CreateStall(ctx context.Context, input StallInput) (store.LocalStall, error) {
	name := strings.TrimSpace(input.Name)
	category := strings.TrimSpace(input.Category)
	if name == "" || category == "" {
		return store.LocalStall{}, domainError(http.StatusBadRequest, "INVALID_STALL", "Name and category are required", nil)
	}
	if input.DiscountPercentage != nil && (*input.DiscountPercentage < 0 || *input.DiscountPercentage > 100) {
		return store.LocalStall{}, domainError(http.StatusBadRequest, "INVALID_STALL", "Discount must be between 0 and 100", nil)
	}

	item := store.LocalStall{
		Name:               name,
		Category:           category,
		Description:        optional(input.Description),
		DiscountInfo:       optional(input.DiscountInfo),
		DiscountPercentage: input.DiscountPercentage,
		Address:            optional(input.Address),
		Phone:              optional(input.Phone),
		Latitude:           input.Latitude,
		Longitude:          input.Longitude,
		PhotoURL:           optional(input.PhotoURL),
	}

	created, err := s.store.CreateStall(ctx, item)
	if err != nil {
		return store.LocalStall{}, err
	}
	s.publish(ctx, "local_stalls", "insert")
	return created, nil
}

func (s *Service) ListStalls(ctx context.Context) ([]store.LocalStall, error) {
	return s.store.ListStalls(ctx)
}

func (s *Service) DeactivateStall(ctx context.Context, stallID string) error {
	err := s.store.DeactivateStall(ctx, stallID)
	if errors.Is(err, store.ErrNotFound) {
		return domainError(http.StatusNotFound, "NOT_FOUND", "Stall not found", nil)
	}
	if err == nil {
		s.publish(ctx, "local_stalls", "update")
	}
	return err
}

// --- Emergency alerts ---

func validSeverity(severity string) bool {
	switch severity {
	case store.SeverityLow, store.SeverityMedium, store.SeverityHigh, store.SeverityCritical:
		return true
	}
	return false
}

func (s *Service) CreateAlert(ctx context.Context, session Session, input AlertInput) (store.EmergencyAlert, error) {
	if strings.TrimSpace(input.TitleEN) == "" || strings.TrimSpace(input.MessageEN) == "" {
		return store.EmergencyAlert{}, domainError(http.StatusBadRequest, "INVALID_ALERT", "Title and message are required", nil)
	}
	if !validSeverity(input.Severity) {
		return store.EmergencyAlert{}, domainError(http.StatusBadRequest, "INVALID_ALERT", "Unknown severity", map[string]any{"severity": input.Severity})
	}

	titleHI := strings.TrimSpace(input.TitleHI)
	if titleHI == "" {
		titleHI = strings.TrimSpace(input.TitleEN)
	}
	messageHI := strings.TrimSpace(input.MessageHI)
	if messageHI == "" {
		messageHI = strings.TrimSpace(input.MessageEN)
	}

	item := store.EmergencyAlert{
		TitleEN:   strings.TrimSpace(input.TitleEN),
		TitleHI:   titleHI,
		MessageEN: strings.TrimSpace(input.MessageEN),
		MessageHI: messageHI,
		Severity:  input.Severity,
		ExpiresAt: input.ExpiresAt,
		CreatedBy: &session.UserID,
	}

	created, err := s.store.CreateAlert(ctx, item)
	if err != nil {
		return store.EmergencyAlert{}, err
	}
	s.publish(ctx, "emergency_alerts", "insert")
	return created, nil
}

func (s *Service) ListActiveAlerts(ctx context.Context) ([]store.EmergencyAlert, error) {
	return s.store.ListActiveAlerts(ctx)
}

func (s *Service) DeactivateAlert(ctx context.Context, alertID string) error {
	err := s.store.DeactivateAlert(ctx, alertID)
	if errors.Is(err, store.ErrNotFound) {
		return domainError(http.StatusNotFound, "NOT_FOUND", "Alert not found", nil)
	}
	if err == nil {
		s.publish(ctx, "emergency_alerts", "update")
	}
	return err
}

// --- Community events ---

func (s *Service) CreateEvent(ctx context.Context, session Session, input EventInput) (store.CommunityEvent, error) {
	titleEN := strings.TrimSpace(input.TitleEN)
	if titleEN == "" {
		return store.CommunityEvent{}, domainError(http.StatusBadRequest, "INVALID_EVENT", "Title is required", nil)
	}
	if input.StartDate.IsZero() {
		return store.CommunityEvent{}, domainError(http.StatusBadRequest, "INVALID_EVENT", "Start date is required", nil)
	}
	if input.EndDate != nil && input.EndDate.Before(input.StartDate) {
		return store.CommunityEvent{}, domainError(http.StatusBadRequest, "INVALID_EVENT", "End date precedes start date", nil)
	}

	titleHI := strings.TrimSpace(input.TitleHI)
	if titleHI == "" {
		titleHI = titleEN
	}
	eventType := strings.TrimSpace(input.EventType)
	if eventType == "" {
		eventType = "community"
	}

	item := store.CommunityEvent{
		TitleEN:         titleEN,
		TitleHI:         titleHI,
		DescriptionEN:   optional(input.DescriptionEN),
		DescriptionHI:   optional(input.DescriptionHI),
		EventType:       eventType,
		Location:        optional(input.Location),
		Latitude:        input.Latitude,
		Longitude:       input.Longitude,
		StartDate:       input.StartDate,
		EndDate:         input.EndDate,
		MaxParticipants: input.MaxParticipants,
		PhotoURL:        optional(input.PhotoURL),
		CreatedBy:       &session.UserID,
	}

	created, err := s.store.CreateEvent(ctx, item)
	if err != nil {
		return store.CommunityEvent{}, err
	}
	s.publish(ctx, "community_events", "insert")
	return created, nil
}

func (s *Service) ListUpcomingEvents(ctx context.Context) ([]store.CommunityEvent, error) {
	return s.store.ListUpcomingEvents(ctx)
}

func (s *Service) DeactivateEvent(ctx context.Context, eventID string) error {
	err := s.store.DeactivateEvent(ctx, eventID)
	if errors.Is(err, store.ErrNotFound) {
		return domainError(http.StatusNotFound, "NOT_FOUND", "Event not found", nil)
	}
	if err == nil {
		s.publish(ctx, "community_events", "update")
	}
	return err
}

func (s *Service) RegisterForEvent(ctx context.Context, session Session, eventID string) (store.EventRegistration, error) {
	event, err := s.store.GetEvent(ctx, eventID)
	if errors.Is(err, store.ErrNotFound) {
		return store.EventRegistration{}, domainError(http.StatusNotFound, "NOT_FOUND", "Event not found", nil)
	}
	if err != nil {
		return store.EventRegistration{}, err
	}
	if !event.IsActive {
		return store.EventRegistration{}, domainError(http.StatusBadRequest, "EVENT_INACTIVE", "Event is no longer active", nil)
	}

	registration, err := s.store.RegisterForEvent(ctx, eventID, session.UserID)
	if errors.Is(err, store.ErrConflict) {
		return store.EventRegistration{}, domainError(http.StatusConflict, "ALREADY_REGISTERED", "Already registered for this event", nil)
	}
	if err != nil {
		return store.EventRegistration{}, err
	}
	s.publish(ctx, "event_registrations", "insert")
	return registration, nil
}

func (s *Service) ListMyRegistrations(ctx context.Context, session Session) ([]store.EventRegistration, error) {
	return s.store.ListUserRegistrations(ctx, session.UserID)
}
