package verification

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
)

// Metadata describes the submission under verification.
type Metadata struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Languages   []string `json:"languages"`
	Tags        []string `json:"tags"`
}

// AudioMetadata carries optional details about the audio payload.
type AudioMetadata struct {
	DurationSeconds float64 `json:"durationSeconds"`
	SizeBytes       int64   `json:"sizeBytes"`
	Format          string  `json:"format"`
}

// Request is the input to the dispatcher.
type Request struct {
	WalrusBlobID string         `json:"walrusBlobId"`
	Metadata     Metadata       `json:"metadata"`
	Audio        *AudioMetadata `json:"audioMetadata,omitempty"`
}

// Job is the unit of work handed from the dispatcher to the worker. The
// worker does not re-derive these fields from the store.
type Job struct {
	SessionID    string         `json:"verificationId"`
	WalrusBlobID string         `json:"walrusBlobId"`
	Metadata     Metadata       `json:"metadata"`
	Audio        *AudioMetadata `json:"audioMetadata,omitempty"`
}

// ValidationError reports a client-caused input failure with a
// machine-readable field reference.
type ValidationError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Validate checks the request's required fields. It never creates state.
func (r *Request) Validate() error {
	if strings.TrimSpace(r.WalrusBlobID) == "" {
		return &ValidationError{Field: "walrusBlobId", Reason: "content reference is required"}
	}
	return r.Metadata.validate()
}

func (m *Metadata) validate() error {
	if strings.TrimSpace(m.Title) == "" {
		return &ValidationError{Field: "metadata.title", Reason: "title is required"}
	}
	if strings.TrimSpace(m.Description) == "" {
		return &ValidationError{Field: "metadata.description", Reason: "description is required"}
	}
	if len(m.Languages) == 0 {
		return &ValidationError{Field: "metadata.languages", Reason: "at least one language is required"}
	}
	for _, lang := range m.Languages {
		if _, err := language.Parse(strings.TrimSpace(lang)); err != nil {
			return &ValidationError{Field: "metadata.languages", Reason: fmt.Sprintf("unrecognized language tag %q", lang)}
		}
	}
	if len(m.Tags) == 0 {
		return &ValidationError{Field: "metadata.tags", Reason: "at least one tag is required"}
	}
	for _, tag := range m.Tags {
		if strings.TrimSpace(tag) == "" {
			return &ValidationError{Field: "metadata.tags", Reason: "tags must be non-empty"}
		}
	}
	return nil
}

// validateJob checks a worker trigger defensively. The run endpoint is
// reachable independently of the dispatcher, so it cannot trust its input.
func validateJob(job *Job) error {
	if strings.TrimSpace(job.SessionID) == "" {
		return &ValidationError{Field: "verificationId", Reason: "session id is required"}
	}
	if strings.TrimSpace(job.WalrusBlobID) == "" {
		return &ValidationError{Field: "walrusBlobId", Reason: "content reference is required"}
	}
	return job.Metadata.validate()
}
