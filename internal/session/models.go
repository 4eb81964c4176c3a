package session

import (
	"strings"
	"time"
)

// Status represents the lifecycle of a verification session.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

var allStatuses = []Status{
	StatusPending,
	StatusProcessing,
	StatusCompleted,
	StatusFailed,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// IsTerminal reports whether a status permits no further transitions.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Stage labels recorded while a session is processing, in pipeline order.
const (
	StageQueued       = "queued"
	StageFetching     = "fetching"
	StageQuality      = "quality"
	StageCopyright    = "copyright"
	StageTranscribing = "transcribing"
	StageAnalyzing    = "analyzing"
)

// Result holds the analysis outcome for a completed session.
// QualityScore is always within [0, 1].
type Result struct {
	QualityScore    float64  `json:"quality_score"`
	SafetyPassed    bool     `json:"safety_passed"`
	Insights        []string `json:"insights"`
	Concerns        []string `json:"concerns,omitempty"`
	Recommendations []string `json:"recommendations,omitempty"`
}

// Session is the persistent record tracking one verification request.
// Exactly one of Result/ErrorMessage is populated, and only in the
// matching terminal state.
type Session struct {
	ID                       string
	Status                   Status
	ContentRef               string
	Title                    string
	EstimatedDurationSeconds int
	Stage                    string
	Progress                 float64
	Result                   *Result
	ErrorMessage             string
	CreatedAt                time.Time
	UpdatedAt                time.Time
	ExpiresAt                time.Time
}

// IsTerminal reports whether the session has reached a terminal state.
func (s *Session) IsTerminal() bool {
	return s.Status.IsTerminal()
}

// View is the externally visible projection of a session.
type View struct {
	VerificationID           string    `json:"verificationId"`
	State                    string    `json:"state"`
	Stage                    string    `json:"stage,omitempty"`
	Progress                 *float64  `json:"progress,omitempty"`
	EstimatedDurationSeconds int       `json:"estimatedDurationSeconds"`
	CreatedAt                time.Time `json:"createdAt"`
	Result                   *Result   `json:"result,omitempty"`
	Error                    string    `json:"error,omitempty"`
}

// View projects the session into its external result shape. Stage and
// progress are reported only while the session is non-terminal; terminal
// sessions expose either the result or the error message.
func (s *Session) View() View {
	view := View{
		VerificationID:           s.ID,
		State:                    string(s.Status),
		EstimatedDurationSeconds: s.EstimatedDurationSeconds,
		CreatedAt:                s.CreatedAt,
	}
	switch s.Status {
	case StatusCompleted:
		view.Result = s.Result
	case StatusFailed:
		view.Error = s.ErrorMessage
	default:
		view.Stage = s.Stage
		progress := s.Progress
		view.Progress = &progress
	}
	return view
}
