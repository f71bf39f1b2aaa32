package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

func (s *PostgresStore) CreateDonation(ctx context.Context, item Donation) (Donation, error) {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO donations (user_id, donor_name, donor_email, donor_phone, amount, purpose, is_anonymous)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at
	`, item.UserID, item.DonorName, item.DonorEmail, item.DonorPhone, item.Amount, item.Purpose, item.IsAnonymous).
		Scan(&item.ID, &item.CreatedAt)
	if err != nil {
		return Donation{}, fmt.Errorf("insert donation: %w", err)
	}
	return item, nil
}

func (s *PostgresStore) ListDonations(ctx context.Context) ([]Donation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, donor_name, donor_email, donor_phone, amount, purpose, is_anonymous, created_at
		FROM donations
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list donations: %w", err)
	}
	defer rows.Close()

	items := make([]Donation, 0)
	for rows.Next() {
		var item Donation
		if err := rows.Scan(&item.ID, &item.UserID, &item.DonorName, &item.DonorEmail, &item.DonorPhone,
			&item.Amount, &item.Purpose, &item.IsAnonymous, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan donation: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate donations: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) GetDonation(ctx context.Context, donationID string) (Donation, error) {
	var item Donation
	err := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, donor_name, donor_email, donor_phone, amount, purpose, is_anonymous, created_at
		FROM donations WHERE id=$1
	`, donationID).Scan(&item.ID, &item.UserID, &item.DonorName, &item.DonorEmail, &item.DonorPhone,
		&item.Amount, &item.Purpose, &item.IsAnonymous, &item.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Donation{}, ErrNotFound
	}
	if err != nil {
		return Donation{}, fmt.Errorf("get donation: %w", err)
	}
	return item, nil
}

// RegisterVolunteer enforces one profile per user via the unique constraint.
func (s *PostgresStore) RegisterVolunteer(ctx context.Context, item Volunteer) (Volunteer, error) {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO volunteers (user_id, full_name, email, phone, skills, availability)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, is_active, created_at, updated_at
	`, item.UserID, item.FullName, item.Email, item.Phone, item.Skills, item.Availability).
		Scan(&item.ID, &item.IsActive, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return Volunteer{}, conflictOr(err, "insert volunteer")
	}
	return item, nil
}

func (s *PostgresStore) GetVolunteerByUser(ctx context.Context, userID string) (Volunteer, error) {
	var item Volunteer
	err := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, full_name, email, phone, skills, availability, is_active, created_at, updated_at
		FROM volunteers WHERE user_id=$1
	`, userID).Scan(&item.ID, &item.UserID, &item.FullName, &item.Email, &item.Phone,
		&item.Skills, &item.Availability, &item.IsActive, &item.CreatedAt, &item.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Volunteer{}, ErrNotFound
	}
	if err != nil {
		return Volunteer{}, fmt.Errorf("get volunteer: %w", err)
	}
	return item, nil
}

func (s *PostgresStore) ListVolunteers(ctx context.Context) ([]Volunteer, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, full_name, email, phone, skills, availability, is_active, created_at, updated_at
		FROM volunteers
		WHERE is_active
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list volunteers: %w", err)
	}
	defer rows.Close()

	items := make([]Volunteer, 0)
	for rows.Next() {
		var item Volunteer
		if err := rows.Scan(&item.ID, &item.UserID, &item.FullName, &item.Email, &item.Phone,
			&item.Skills, &item.Availability, &item.IsActive, &item.CreatedAt, &item.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan volunteer: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate volunteers: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) CreateStall(ctx context.Context, item LocalStall) (LocalStall, error) {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO local_stalls (name, category, description, discount_info, discount_percentage,
			address, phone, latitude, longitude, photo_url)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, is_active, created_at, updated_at
	`, item.Name, item.Category, item.Description, item.DiscountInfo, item.DiscountPercentage,
		item.Address, item.Phone, item.Latitude, item.Longitude, item.PhotoURL).
		Scan(&item.ID, &item.IsActive, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return LocalStall{}, fmt.Errorf("insert stall: %w", err)
	}
	return item, nil
}

func (s *PostgresStore) ListStalls(ctx context.Context) ([]LocalStall, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, category, description, discount_info, discount_percentage,
			address, phone, latitude, longitude, photo_url, is_active, created_at, updated_at
		FROM local_stalls
		WHERE is_active
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list stalls: %w", err)
	}
	defer rows.Close()

	items := make([]LocalStall, 0)
	for rows.Next() {
		var item LocalStall
		if err := rows.Scan(&item.ID, &item.Name, &item.Category, &item.Description, &item.DiscountInfo,
			&item.DiscountPercentage, &item.Address, &item.Phone, &item.Latitude, &item.Longitude,
			&item.PhotoURL, &item.IsActive, &item.CreatedAt, &item.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan stall: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate stalls: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) DeactivateStall(ctx context.Context, stallID string) error {
	return s.deactivate(ctx, "local_stalls", stallID)
}

func (s *PostgresStore) CreateAlert(ctx context.Context, item EmergencyAlert) (EmergencyAlert, error) {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO emergency_alerts (title_en, title_hi, message_en, message_hi, severity, expires_at, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, is_active, created_at, updated_at
	`, item.TitleEN, item.TitleHI, item.MessageEN, item.MessageHI, item.Severity, item.ExpiresAt, item.CreatedBy).
		Scan(&item.ID, &item.IsActive, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return EmergencyAlert{}, fmt.Errorf("insert alert: %w", err)
	}
	return item, nil
}

func (s *PostgresStore) ListActiveAlerts(ctx context.Context) ([]EmergencyAlert, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title_en, title_hi, message_en, message_hi, severity, is_active, expires_at,
			created_by, created_at, updated_at
		FROM emergency_alerts
		WHERE is_active AND (expires_at IS NULL OR expires_at > NOW())
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list alerts: %w", err)
	}
	defer rows.Close()

	items := make([]EmergencyAlert, 0)
	for rows.Next() {
		var item EmergencyAlert
		if err := rows.Scan(&item.ID, &item.TitleEN, &item.TitleHI, &item.MessageEN, &item.MessageHI,
			&item.Severity, &item.IsActive, &item.ExpiresAt, &item.CreatedBy, &item.CreatedAt, &item.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan alert: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate alerts: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) DeactivateAlert(ctx context.Context, alertID string) error {
	return s.deactivate(ctx, "emergency_alerts", alertID)
}

func (s *PostgresStore) CreateEvent(ctx context.Context, item CommunityEvent) (CommunityEvent, error) {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO community_events (title_en, title_hi, description_en, description_hi, event_type,
			location, latitude, longitude, start_date, end_date, max_participants, photo_url, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id, is_active, created_at, updated_at
	`, item.TitleEN, item.TitleHI, item.DescriptionEN, item.DescriptionHI, item.EventType,
		item.Location, item.Latitude, item.Longitude, item.StartDate, item.EndDate,
		item.MaxParticipants, item.PhotoURL, item.CreatedBy).
		Scan(&item.ID, &item.IsActive, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return CommunityEvent{}, fmt.Errorf("insert event: %w", err)
	}
	return item, nil
}

func (s *PostgresStore) ListUpcomingEvents(ctx context.Context) ([]CommunityEvent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title_en, title_hi, description_en, description_hi, event_type, location,
			latitude, longitude, start_date, end_date, max_participants, photo_url, is_active,
			created_by, created_at, updated_at
		FROM community_events
		WHERE is_active AND start_date > NOW()
		ORDER BY start_date ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	items := make([]CommunityEvent, 0)
	for rows.Next() {
		var item CommunityEvent
		if err := rows.Scan(&item.ID, &item.TitleEN, &item.TitleHI, &item.DescriptionEN, &item.DescriptionHI,
			&item.EventType, &item.Location, &item.Latitude, &item.Longitude, &item.StartDate, &item.EndDate,
			&item.MaxParticipants, &item.PhotoURL, &item.IsActive, &item.CreatedBy,
			&item.CreatedAt, &item.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) DeactivateEvent(ctx context.Context, eventID string) error {
	return s.deactivate(ctx, "community_events", eventID)
}

// RegisterForEvent relies on the unique (event, user) constraint to stop
// duplicate registrations.
func (s *PostgresStore) RegisterForEvent(ctx context.Context, eventID, userID string) (EventRegistration, error) {
	var item EventRegistration
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO event_registrations (event_id, user_id)
		VALUES ($1, $2)
		RETURNING id, event_id, user_id, registered_at
	`, eventID, userID).Scan(&item.ID, &item.EventID, &item.UserID, &item.RegisteredAt)
	if err != nil {
		return EventRegistration{}, conflictOr(err, "insert registration")
	}
	return item, nil
}

func (s *PostgresStore) ListUserRegistrations(ctx context.Context, userID string) ([]EventRegistration, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, event_id, user_id, registered_at
		FROM event_registrations
		WHERE user_id=$1
		ORDER BY registered_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list registrations: %w", err)
	}
	defer rows.Close()

	items := make([]EventRegistration, 0)
	for rows.Next() {
		var item EventRegistration
		if err := rows.Scan(&item.ID, &item.EventID, &item.UserID, &item.RegisteredAt); err != nil {
			return nil, fmt.Errorf("scan registration: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate registrations: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) GetEvent(ctx context.Context, eventID string) (CommunityEvent, error) {
	var item CommunityEvent
	err := s.db.QueryRowContext(ctx, `
		SELECT id, title_en, title_hi, description_en, description_hi, event_type, location,
			latitude, longitude, start_date, end_date, max_participants, photo_url, is_active,
			created_by, created_at, updated_at
		FROM community_events WHERE id=$1
	`, eventID).Scan(&item.ID, &item.TitleEN, &item.TitleHI, &item.DescriptionEN, &item.DescriptionHI,
		&item.EventType, &item.Location, &item.Latitude, &item.Longitude, &item.StartDate, &item.EndDate,
		&item.MaxParticipants, &item.PhotoURL, &item.IsActive, &item.CreatedBy,
		&item.CreatedAt, &item.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return CommunityEvent{}, ErrNotFound
	}
	if err != nil {
		return CommunityEvent{}, fmt.Errorf("get event: %w", err)
	}
	return item, nil
}

func (s *PostgresStore) deactivate(ctx context.Context, table, id string) error {
	result, err := s.db.ExecContext(ctx, `UPDATE `+table+` SET is_active=FALSE, updated_at=NOW() WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("deactivate %s: %w", table, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("deactivate %s rows: %w", table, err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
