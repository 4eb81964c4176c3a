package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"verifyd/internal/logging"
)

// The state machine is pending -> processing -> completed | failed. Each
// mark helper performs a single conditional UPDATE so the legality check
// and the write are one atomic statement at the store layer. Writes against
// a session already in a terminal state are logged no-ops: a slow worker
// racing a retriggered one must not corrupt a settled outcome.

// MarkProcessing transitions a pending session to processing.
func (s *Store) MarkProcessing(ctx context.Context, id string) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.execWithRetry(
		ctx,
		`UPDATE sessions SET status = ?, stage = ?, progress = 0, updated_at = ?
         WHERE id = ? AND status = ?`,
		StatusProcessing,
		StageFetching,
		now,
		id,
		StatusPending,
	)
	if err != nil {
		return fmt.Errorf("mark processing: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark processing rows: %w", err)
	}
	if affected == 0 {
		return s.explainRejectedTransition(ctx, id, StatusProcessing)
	}
	return nil
}

// MarkCompleted transitions a processing session to completed with its
// result. Result and error are mutually exclusive: completing clears any
// error message.
func (s *Store) MarkCompleted(ctx context.Context, id string, result Result) error {
	// Insights is an ordered list in the external shape; a verdict with none
	// serializes as [] rather than null.
	if result.Insights == nil {
		result.Insights = []string{}
	}
	encoded, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.execWithRetry(
		ctx,
		`UPDATE sessions SET status = ?, result_json = ?, error_message = NULL,
             stage = NULL, progress = 1, updated_at = ?
         WHERE id = ? AND status = ?`,
		StatusCompleted,
		string(encoded),
		now,
		id,
		StatusProcessing,
	)
	if err != nil {
		return fmt.Errorf("mark completed: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark completed rows: %w", err)
	}
	if affected == 0 {
		return s.explainRejectedTransition(ctx, id, StatusCompleted)
	}
	return nil
}

// MarkFailed transitions a processing session to failed with a message.
func (s *Store) MarkFailed(ctx context.Context, id, message string) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.execWithRetry(
		ctx,
		`UPDATE sessions SET status = ?, error_message = ?, result_json = NULL,
             stage = NULL, progress = 0, updated_at = ?
         WHERE id = ? AND status = ?`,
		StatusFailed,
		message,
		now,
		id,
		StatusProcessing,
	)
	if err != nil {
		return fmt.Errorf("mark failed: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark failed rows: %w", err)
	}
	if affected == 0 {
		return s.explainRejectedTransition(ctx, id, StatusFailed)
	}
	return nil
}

// SetStage records a coarse progress marker while a session is processing.
// Calls against non-processing sessions are silently ignored.
func (s *Store) SetStage(ctx context.Context, id, stage string, progress float64) error {
	if progress < 0 {
		progress = 0
	}
	if progress > 1 {
		progress = 1
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := s.execWithRetry(
		ctx,
		`UPDATE sessions SET stage = ?, progress = ?, updated_at = ?
         WHERE id = ? AND status = ?`,
		stage,
		progress,
		now,
		id,
		StatusProcessing,
	)
	if err != nil {
		return fmt.Errorf("set stage: %w", err)
	}
	return nil
}

// explainRejectedTransition classifies a conditional update that touched no
// rows. A missing or expired session surfaces as ErrNotFound; a terminal
// session is a logged no-op; anything else is an illegal transition that is
// logged and ignored rather than raised, since the worker may already have
// handled the same failure once.
func (s *Store) explainRejectedTransition(ctx context.Context, id string, attempted Status) error {
	current, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if current == nil {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if current.IsTerminal() {
		s.log().Info("ignoring transition on terminal session",
			logging.String("session_id", id),
			logging.String("current", string(current.Status)),
			logging.String("attempted", string(attempted)),
		)
		return nil
	}
	s.log().Warn("rejected illegal session transition",
		logging.String("session_id", id),
		logging.String("current", string(current.Status)),
		logging.String("attempted", string(attempted)),
	)
	return nil
}
