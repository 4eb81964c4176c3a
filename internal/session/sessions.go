package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Create inserts a new pending session and returns its id. The session
// expires at creation time plus the configured TTL.
func (s *Store) Create(ctx context.Context, contentRef, title string, estimatedDurationSeconds int) (string, error) {
	if contentRef == "" {
		return "", errors.New("content ref is required")
	}
	id := uuid.NewString()
	now := time.Now().UTC()
	timestamp := now.Format(time.RFC3339Nano)
	expires := now.Add(s.ttl).Format(time.RFC3339Nano)

	_, err := s.execWithRetry(
		ctx,
		`INSERT INTO sessions (
            id, status, content_ref, title, estimated_duration_seconds,
            stage, progress, created_at, updated_at, expires_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id,
		StatusPending,
		contentRef,
		title,
		estimatedDurationSeconds,
		StageQueued,
		0.0,
		timestamp,
		timestamp,
		expires,
	)
	if err != nil {
		return "", fmt.Errorf("insert session: %w", err)
	}
	return id, nil
}

// Get fetches a session by id. It returns (nil, nil) when the id is unknown
// or the session has expired; a non-nil error indicates the store itself
// failed and the caller should treat the condition as retryable.
func (s *Store) Get(ctx context.Context, id string) (*Session, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE id = ?`, id)
	sess, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	// An expired row that the sweeper has not removed yet reads as
	// not-found, matching TTL semantics.
	if !sess.ExpiresAt.After(time.Now().UTC()) {
		return nil, nil
	}
	return sess, nil
}

// List returns sessions filtered by status set (or all sessions when no
// status is provided), newest first. Expired sessions are excluded.
func (s *Store) List(ctx context.Context, statuses ...Status) ([]*Session, error) {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	baseQuery := `SELECT ` + sessionColumns + ` FROM sessions WHERE expires_at > ?`
	orderClause := ` ORDER BY created_at DESC`

	var (
		rows *sql.Rows
		err  error
	)
	if len(statuses) == 0 {
		rows, err = s.db.QueryContext(ctx, baseQuery+orderClause, now)
	} else {
		placeholders := makePlaceholders(len(statuses))
		args := make([]any, 0, len(statuses)+1)
		args = append(args, now)
		for _, status := range statuses {
			args = append(args, status)
		}
		query := baseQuery + ` AND status IN (` + placeholders + `)` + orderClause
		rows, err = s.db.QueryContext(ctx, query, args...)
	}
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}

const sessionColumns = "id, status, content_ref, title, estimated_duration_seconds, stage, progress, result_json, error_message, created_at, updated_at, expires_at"

func scanSession(scanner interface{ Scan(dest ...any) error }) (*Session, error) {
	var (
		id           string
		statusStr    string
		contentRef   string
		title        string
		estimate     int
		stage        sql.NullString
		progress     sql.NullFloat64
		resultJSON   sql.NullString
		errorMessage sql.NullString
		createdRaw   string
		updatedRaw   string
		expiresRaw   string
	)

	if err := scanner.Scan(
		&id,
		&statusStr,
		&contentRef,
		&title,
		&estimate,
		&stage,
		&progress,
		&resultJSON,
		&errorMessage,
		&createdRaw,
		&updatedRaw,
		&expiresRaw,
	); err != nil {
		return nil, err
	}

	sess := &Session{
		ID:                       id,
		Status:                   Status(statusStr),
		ContentRef:               contentRef,
		Title:                    title,
		EstimatedDurationSeconds: estimate,
		Stage:                    stage.String,
		Progress:                 progress.Float64,
		ErrorMessage:             errorMessage.String,
	}

	if resultJSON.Valid && resultJSON.String != "" {
		var result Result
		if err := json.Unmarshal([]byte(resultJSON.String), &result); err != nil {
			return nil, fmt.Errorf("decode session result: %w", err)
		}
		sess.Result = &result
	}

	created, err := parseTimeString(createdRaw)
	if err != nil {
		return nil, fmt.Errorf("parse session created_at: %w", err)
	}
	sess.CreatedAt = created
	updated, err := parseTimeString(updatedRaw)
	if err != nil {
		return nil, fmt.Errorf("parse session updated_at: %w", err)
	}
	sess.UpdatedAt = updated
	expires, err := parseTimeString(expiresRaw)
	if err != nil {
		return nil, fmt.Errorf("parse session expiry: %w", err)
	}
	sess.ExpiresAt = expires

	return sess, nil
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}
