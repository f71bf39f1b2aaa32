package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

const issueColumns = `id, user_id, user_email, user_phone, title, description, category, status,
	address, latitude, longitude, photo_url, before_photo_url, after_photo_url,
	upvotes, created_at, updated_at, resolved_at`

func scanIssue(scan func(dest ...any) error) (Issue, error) {
	var item Issue
	err := scan(&item.ID, &item.UserID, &item.UserEmail, &item.UserPhone, &item.Title,
		&item.Description, &item.Category, &item.Status, &item.Address, &item.Latitude,
		&item.Longitude, &item.PhotoURL, &item.BeforePhotoURL, &item.AfterPhotoURL,
		&item.Upvotes, &item.CreatedAt, &item.UpdatedAt, &item.ResolvedAt)
	return item, err
}

func (s *PostgresStore) CreateIssue(ctx context.Context, issue Issue) (Issue, error) {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO issues (user_id, user_email, user_phone, title, description, category, status,
			address, latitude, longitude, photo_url)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, upvotes, created_at, updated_at
	`, issue.UserID, issue.UserEmail, issue.UserPhone, issue.Title, issue.Description,
		issue.Category, issue.Status, issue.Address, issue.Latitude, issue.Longitude, issue.PhotoURL).
		Scan(&issue.ID, &issue.Upvotes, &issue.CreatedAt, &issue.UpdatedAt)
	if err != nil {
		return Issue{}, fmt.Errorf("insert issue: %w", err)
	}
	return issue, nil
}

func (s *PostgresStore) listIssues(ctx context.Context, query string, args ...any) ([]Issue, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list issues: %w", err)
	}
	defer rows.Close()

	items := make([]Issue, 0)
	for rows.Next() {
		item, err := scanIssue(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan issue: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate issues: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) ListIssues(ctx context.Context) ([]Issue, error) {
	return s.listIssues(ctx, `SELECT `+issueColumns+` FROM issues ORDER BY created_at DESC`)
}

func (s *PostgresStore) ListUserIssues(ctx context.Context, userID string) ([]Issue, error) {
	return s.listIssues(ctx, `SELECT `+issueColumns+` FROM issues WHERE user_id=$1 ORDER BY created_at DESC`, userID)
}

func (s *PostgresStore) GetIssue(ctx context.Context, issueID string) (Issue, error) {
	item, err := scanIssue(s.db.QueryRowContext(ctx, `SELECT `+issueColumns+` FROM issues WHERE id=$1`, issueID).Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return Issue{}, ErrNotFound
	}
	if err != nil {
		return Issue{}, fmt.Errorf("get issue: %w", err)
	}
	return item, nil
}

// ToggleUpvote flips the (issue, user) upvote row and recomputes the cached
// counter from the relation count in the same transaction, so the counter
// cannot drift from the relation set.
func (s *PostgresStore) ToggleUpvote(ctx context.Context, issueID, userID string) (added bool, upvotes int, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, 0, fmt.Errorf("begin upvote tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var exists bool
	err = tx.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM issue_upvotes WHERE issue_id=$1 AND user_id=$2)
	`, issueID, userID).Scan(&exists)
	if err != nil {
		return false, 0, fmt.Errorf("lookup upvote: %w", err)
	}

	if exists {
		if _, err := tx.ExecContext(ctx, `
			DELETE FROM issue_upvotes WHERE issue_id=$1 AND user_id=$2
		`, issueID, userID); err != nil {
			return false, 0, fmt.Errorf("delete upvote: %w", err)
		}
	} else {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO issue_upvotes (issue_id, user_id) VALUES ($1, $2)
		`, issueID, userID); err != nil {
			return false, 0, conflictOr(err, "insert upvote")
		}
	}

	err = tx.QueryRowContext(ctx, `
		UPDATE issues
		SET upvotes = (SELECT COUNT(*) FROM issue_upvotes WHERE issue_id=$1)
		WHERE id=$1
		RETURNING upvotes
	`, issueID).Scan(&upvotes)
	if errors.Is(err, sql.ErrNoRows) {
		return false, 0, ErrNotFound
	}
	if err != nil {
		return false, 0, fmt.Errorf("update upvote count: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, 0, fmt.Errorf("commit upvote tx: %w", err)
	}
	return !exists, upvotes, nil
}

// UpdateIssueStatusPrivileged re-verifies the actor's role inside the
// transaction before writing. It is the only writer of status and
// resolved_at: resolved_at is set on entering resolved and cleared when the
// status moves anywhere else.
func (s *PostgresStore) UpdateIssueStatusPrivileged(ctx context.Context, issueID, status, actorID string) (Issue, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Issue{}, fmt.Errorf("begin status tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var role string
	err = tx.QueryRowContext(ctx, `SELECT role FROM users WHERE id=$1`, actorID).Scan(&role)
	if errors.Is(err, sql.ErrNoRows) {
		return Issue{}, ErrUnauthorized
	}
	if err != nil {
		return Issue{}, fmt.Errorf("check actor role: %w", err)
	}
	if role != "admin" && role != "staff" {
		return Issue{}, ErrUnauthorized
	}

	item, err := scanIssue(tx.QueryRowContext(ctx, `
		UPDATE issues
		SET status=$2,
			resolved_at = CASE WHEN $2 = 'resolved' THEN NOW() ELSE NULL END,
			updated_at = NOW()
		WHERE id=$1
		RETURNING `+issueColumns+`
	`, issueID, status).Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return Issue{}, ErrNotFound
	}
	if err != nil {
		return Issue{}, fmt.Errorf("update issue status: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return Issue{}, fmt.Errorf("commit status tx: %w", err)
	}
	return item, nil
}

func (s *PostgresStore) InsertNotification(ctx context.Context, item Notification) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO notifications (user_id, issue_id, title_en, title_hi, message_en, message_hi)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, item.UserID, item.IssueID, item.TitleEN, item.TitleHI, item.MessageEN, item.MessageHI)
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListNotifications(ctx context.Context, userID string) ([]Notification, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, issue_id, title_en, title_hi, message_en, message_hi, is_read, created_at
		FROM notifications
		WHERE user_id=$1
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	items := make([]Notification, 0)
	for rows.Next() {
		var item Notification
		if err := rows.Scan(&item.ID, &item.UserID, &item.IssueID, &item.TitleEN, &item.TitleHI,
			&item.MessageEN, &item.MessageHI, &item.IsRead, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate notifications: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) MarkNotificationRead(ctx context.Context, notificationID, userID string) (bool, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE notifications SET is_read=TRUE WHERE id=$1 AND user_id=$2
	`, notificationID, userID)
	if err != nil {
		return false, fmt.Errorf("mark notification read: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("mark notification rows: %w", err)
	}
	return affected > 0, nil
}

func (s *PostgresStore) InsertFeedback(ctx context.Context, item Feedback) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO feedback (issue_id, user_id, rating, comment)
		VALUES ($1, $2, $3, $4)
	`, item.IssueID, item.UserID, item.Rating, item.Comment)
	if err != nil {
		return conflictOr(err, "insert feedback")
	}
	return nil
}
