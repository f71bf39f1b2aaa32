package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const approvalColumns = `id, user_id, request_type, status, reference_id, event_id, stall_description,
	proposed_event_title, proposed_event_description, proposed_event_date, proposed_event_location,
	admin_notes, reviewed_by, reviewed_at, certificate_number, certificate_generated_at,
	certificate_url, created_at, updated_at`

func scanApproval(scan func(dest ...any) error) (ApprovalRequest, error) {
	var item ApprovalRequest
	err := scan(&item.ID, &item.UserID, &item.RequestType, &item.Status, &item.ReferenceID,
		&item.EventID, &item.StallDescription, &item.ProposedEventTitle, &item.ProposedEventDescription,
		&item.ProposedEventDate, &item.ProposedEventLocation, &item.AdminNotes, &item.ReviewedBy,
		&item.ReviewedAt, &item.CertificateNumber, &item.CertificateGeneratedAt, &item.CertificateURL,
		&item.CreatedAt, &item.UpdatedAt)
	return item, err
}

func (s *PostgresStore) CreateApprovalRequest(ctx context.Context, item ApprovalRequest) (ApprovalRequest, error) {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO approval_requests (user_id, request_type, reference_id, event_id, stall_description,
			proposed_event_title, proposed_event_description, proposed_event_date, proposed_event_location)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, status, created_at, updated_at
	`, item.UserID, item.RequestType, item.ReferenceID, item.EventID, item.StallDescription,
		item.ProposedEventTitle, item.ProposedEventDescription, item.ProposedEventDate, item.ProposedEventLocation).
		Scan(&item.ID, &item.Status, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return ApprovalRequest{}, conflictOr(err, "insert approval request")
	}
	return item, nil
}

func (s *PostgresStore) GetApprovalRequest(ctx context.Context, requestID string) (ApprovalRequest, error) {
	item, err := scanApproval(s.db.QueryRowContext(ctx,
		`SELECT `+approvalColumns+` FROM approval_requests WHERE id=$1`, requestID).Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return ApprovalRequest{}, ErrNotFound
	}
	if err != nil {
		return ApprovalRequest{}, fmt.Errorf("get approval request: %w", err)
	}
	return item, nil
}

func (s *PostgresStore) listApprovals(ctx context.Context, query string, args ...any) ([]ApprovalRequest, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list approval requests: %w", err)
	}
	defer rows.Close()

	items := make([]ApprovalRequest, 0)
	for rows.Next() {
		item, err := scanApproval(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan approval request: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate approval requests: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) ListUserApprovalRequests(ctx context.Context, userID string) ([]ApprovalRequest, error) {
	return s.listApprovals(ctx,
		`SELECT `+approvalColumns+` FROM approval_requests WHERE user_id=$1 ORDER BY created_at DESC`, userID)
}

func (s *PostgresStore) ListApprovalRequests(ctx context.Context, status string) ([]ApprovalRequest, error) {
	if status == "" {
		return s.listApprovals(ctx,
			`SELECT `+approvalColumns+` FROM approval_requests ORDER BY created_at DESC`)
	}
	return s.listApprovals(ctx,
		`SELECT `+approvalColumns+` FROM approval_requests WHERE status=$1 ORDER BY created_at DESC`, status)
}

// ApproveRequest moves a pending request to approved. The pending guard makes
// the transition one-shot: a second review attempt reports ErrConflict.
func (s *PostgresStore) ApproveRequest(ctx context.Context, requestID, reviewerID string, notes, certNumber *string) (ApprovalRequest, error) {
	item, err := scanApproval(s.db.QueryRowContext(ctx, `
		UPDATE approval_requests
		SET status='approved',
			reviewed_by=$2,
			reviewed_at=NOW(),
			admin_notes=$3,
			certificate_number=$4,
			certificate_generated_at = CASE WHEN $4::TEXT IS NULL THEN NULL ELSE NOW() END,
			updated_at=NOW()
		WHERE id=$1 AND status='pending'
		RETURNING `+approvalColumns+`
	`, requestID, reviewerID, notes, certNumber).Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return ApprovalRequest{}, s.approvalMissReason(ctx, requestID)
	}
	if err != nil {
		return ApprovalRequest{}, fmt.Errorf("approve request: %w", err)
	}
	return item, nil
}

func (s *PostgresStore) RejectRequest(ctx context.Context, requestID, reviewerID string, notes *string) (ApprovalRequest, error) {
	item, err := scanApproval(s.db.QueryRowContext(ctx, `
		UPDATE approval_requests
		SET status='rejected', reviewed_by=$2, reviewed_at=NOW(), admin_notes=$3, updated_at=NOW()
		WHERE id=$1 AND status='pending'
		RETURNING `+approvalColumns+`
	`, requestID, reviewerID, notes).Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return ApprovalRequest{}, s.approvalMissReason(ctx, requestID)
	}
	if err != nil {
		return ApprovalRequest{}, fmt.Errorf("reject request: %w", err)
	}
	return item, nil
}

// approvalMissReason distinguishes "no such request" from "already reviewed".
func (s *PostgresStore) approvalMissReason(ctx context.Context, requestID string) error {
	var exists bool
	if err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM approval_requests WHERE id=$1)`, requestID).Scan(&exists); err != nil {
		return fmt.Errorf("check approval request: %w", err)
	}
	if exists {
		return fmt.Errorf("request already reviewed: %w", ErrConflict)
	}
	return ErrNotFound
}

func (s *PostgresStore) SetCertificateURL(ctx context.Context, requestID, url string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE approval_requests SET certificate_url=$2, updated_at=NOW() WHERE id=$1
	`, requestID, url)
	if err != nil {
		return fmt.Errorf("set certificate url: %w", err)
	}
	return nil
}

var certTypeCodes = map[string]string{
	RequestDonationCertificate:  "DON",
	RequestVolunteerCertificate: "VOL",
	RequestEventStall:           "STL",
	RequestEventOrganizer:       "ORG",
}

// NextCertificateNumber draws from a shared sequence, e.g. NGC-DON-2026-000042.
func (s *PostgresStore) NextCertificateNumber(ctx context.Context, requestType string) (string, error) {
	code, ok := certTypeCodes[requestType]
	if !ok {
		return "", fmt.Errorf("unknown request type %q", requestType)
	}
	var seq int64
	if err := s.db.QueryRowContext(ctx, `SELECT nextval('certificate_number_seq')`).Scan(&seq); err != nil {
		return "", fmt.Errorf("next certificate number: %w", err)
	}
	return fmt.Sprintf("NGC-%s-%d-%06d", code, time.Now().Year(), seq), nil
}
