package verification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"verifyd/internal/config"
	"verifyd/internal/logging"
	"verifyd/internal/services/analysis"
	"verifyd/internal/services/fingerprint"
	"verifyd/internal/session"
)

// ContentFetcher retrieves an immutable blob by its opaque identifier.
type ContentFetcher interface {
	Fetch(ctx context.Context, blobID string) ([]byte, error)
}

// QualityChecker gates fetched audio before the paid pipeline stages run.
type QualityChecker interface {
	Inspect(audio []byte, format string, declared *AudioMetadata) QualityReport
}

// CopyrightChecker fingerprints audio and reports copyrighted matches.
type CopyrightChecker interface {
	Check(ctx context.Context, audio []byte, format string) (fingerprint.Report, error)
}

// Transcriber produces a transcript from raw audio.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, format string) (string, error)
}

// Analyzer evaluates a transcript and submission metadata.
type Analyzer interface {
	Evaluate(ctx context.Context, transcript string, sub analysis.Submission) (analysis.Verdict, error)
}

// Worker drains the dispatch queue and drives each session through the
// verification pipeline to a terminal state.
type Worker struct {
	store       *session.Store
	fetcher     ContentFetcher
	quality     QualityChecker
	copyright   CopyrightChecker
	transcriber Transcriber
	analyzer    Analyzer
	maxDuration time.Duration
	logger      *slog.Logger
}

// NewWorker constructs a worker over the given collaborators.
func NewWorker(store *session.Store, fetcher ContentFetcher, quality QualityChecker, copyright CopyrightChecker, transcriber Transcriber, analyzer Analyzer, cfg config.Worker, logger *slog.Logger) *Worker {
	return &Worker{
		store:       store,
		fetcher:     fetcher,
		quality:     quality,
		copyright:   copyright,
		transcriber: transcriber,
		analyzer:    analyzer,
		maxDuration: time.Duration(cfg.MaxPipelineSeconds) * time.Second,
		logger:      logging.NewComponentLogger(logger, "worker"),
	}
}

// Run consumes jobs until the context ends or the channel closes.
func (w *Worker) Run(ctx context.Context, jobs <-chan Job) {
	for {
		select {
		case <-ctx.Done():
			return
		case job, ok := <-jobs:
			if !ok {
				return
			}
			w.Process(ctx, job)
		}
	}
}

// Process runs one verification job to a terminal state. Pipeline errors
// are absorbed into the session's failed state; the only way a caller
// learns of them is by polling. A finishing guard makes a best-effort
// second attempt to fail the session if the primary path did not reach a
// terminal write, including after a panic. Duplicate terminal marking is
// idempotent at the store layer.
func (w *Worker) Process(ctx context.Context, job Job) {
	logger := w.logger.With(logging.String("session_id", job.SessionID))

	runCtx, cancel := context.WithTimeout(ctx, w.maxDuration)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			logger.Error("verification pipeline panicked", logging.Any("panic", r))
			w.failBestEffort(job.SessionID, fmt.Sprintf("internal error: %v", r), logger)
			return
		}
		w.ensureTerminal(job.SessionID, logger)
	}()

	start := time.Now()
	if err := w.runPipeline(runCtx, job, logger); err != nil {
		logger.Warn("verification pipeline failed",
			logging.Error(err),
			logging.Duration("elapsed", time.Since(start)),
		)
		w.failBestEffort(job.SessionID, err.Error(), logger)
		return
	}
	logger.Info("verification completed", logging.Duration("elapsed", time.Since(start)))
}

func (w *Worker) runPipeline(ctx context.Context, job Job, logger *slog.Logger) error {
	if err := validateJob(&job); err != nil {
		return err
	}
	if err := w.store.MarkProcessing(ctx, job.SessionID); err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return fmt.Errorf("session vanished before processing: %w", err)
		}
		return fmt.Errorf("mark processing: %w", err)
	}

	audio, err := w.fetcher.Fetch(ctx, job.WalrusBlobID)
	if err != nil {
		return fmt.Errorf("fetch content: %w", err)
	}
	logger.Debug("fetched content blob", logging.Int("bytes", len(audio)))

	format := ""
	if job.Audio != nil {
		format = job.Audio.Format
	}

	w.setStage(ctx, job.SessionID, session.StageQuality, 0.2, logger)
	qualityReport := w.quality.Inspect(audio, format, job.Audio)
	if !qualityReport.Passed {
		return fmt.Errorf("audio quality check failed: %s", strings.Join(qualityReport.Issues, "; "))
	}

	w.setStage(ctx, job.SessionID, session.StageCopyright, 0.35, logger)
	copyrightReport, err := w.copyright.Check(ctx, audio, format)
	if err != nil {
		// An unavailable detector leaves the check inconclusive; the session
		// proceeds and the gap is visible to operators.
		logger.Warn("copyright check unavailable", logging.Error(err))
		copyrightReport = fingerprint.Report{}
	}

	w.setStage(ctx, job.SessionID, session.StageTranscribing, 0.55, logger)
	transcript, err := w.transcriber.Transcribe(ctx, audio, format)
	if err != nil {
		return fmt.Errorf("transcribe content: %w", err)
	}

	w.setStage(ctx, job.SessionID, session.StageAnalyzing, 0.75, logger)
	verdict, err := w.analyzer.Evaluate(ctx, transcript, analysis.Submission{
		Title:       job.Metadata.Title,
		Description: job.Metadata.Description,
		Languages:   job.Metadata.Languages,
		Tags:        job.Metadata.Tags,
	})
	if err != nil {
		if !errors.Is(err, analysis.ErrMalformedVerdict) {
			return fmt.Errorf("analyze content: %w", err)
		}
		// A parse failure is not evidence the content is unsafe. Record
		// the neutral default and keep the session on the completed path,
		// but make the degradation visible to operators.
		logger.Warn("analysis payload unparseable, recording neutral verdict", logging.Error(err))
		verdict = analysis.NeutralVerdict()
	}

	result := session.Result{
		QualityScore:    verdict.QualityScore,
		SafetyPassed:    verdict.SafetyPassed,
		Insights:        verdict.Insights,
		Concerns:        verdict.Concerns,
		Recommendations: verdict.Recommendations,
	}
	applyCopyrightReport(&result, copyrightReport, logger)

	if err := w.store.MarkCompleted(ctx, job.SessionID, result); err != nil {
		return fmt.Errorf("mark completed: %w", err)
	}
	return nil
}

// applyCopyrightReport folds high-confidence copyright matches into the
// result: a detected match fails the safety check and surfaces each match
// as a concern. Low-confidence matches and inconclusive checks change
// nothing.
func applyCopyrightReport(result *session.Result, report fingerprint.Report, logger *slog.Logger) {
	if !report.Detected {
		return
	}
	result.SafetyPassed = false
	for _, match := range report.Matches {
		result.Concerns = append(result.Concerns, fmt.Sprintf(
			"copyright match: %q by %s (confidence %.2f)",
			match.Title, match.Artist, match.Confidence,
		))
	}
	logger.Warn("copyrighted content detected",
		logging.Float64("confidence", report.Confidence),
		logging.Int("matches", len(report.Matches)),
	)
}

func (w *Worker) setStage(ctx context.Context, id, stage string, progress float64, logger *slog.Logger) {
	if err := w.store.SetStage(ctx, id, stage, progress); err != nil {
		logger.Warn("failed to record stage", logging.Error(err))
	}
}

// failBestEffort marks the session failed without letting a store error
// escape. It runs on a fresh context so a cancelled pipeline can still
// record its outcome.
func (w *Worker) failBestEffort(id, message string, logger *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := w.store.MarkFailed(ctx, id, message); err != nil {
		logger.Error("failed to mark session failed", logging.Error(err))
	}
}

// ensureTerminal defends against a pipeline exit that skipped both the
// completed and failed writes. If the session is still non-terminal it is
// failed with a generic message.
func (w *Worker) ensureTerminal(id string, logger *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	sess, err := w.store.Get(ctx, id)
	if err != nil || sess == nil {
		return
	}
	if sess.IsTerminal() {
		return
	}
	logger.Warn("session left non-terminal after pipeline exit",
		logging.String("status", string(sess.Status)),
	)
	w.failBestEffort(id, "verification aborted before reaching a terminal state", logger)
}
