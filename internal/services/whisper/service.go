package whisper

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// DefaultModel is used when no transcription model is configured.
const DefaultModel = "large-v3-turbo"

// Service runs the external transcription binary against audio samples.
type Service struct {
	binary        string
	model         string
	commandRunner func(ctx context.Context, name string, args ...string) error
}

// NewService creates a transcription service around the given binary.
func NewService(binary, model string) *Service {
	if binary == "" {
		binary = "whisperx"
	}
	return &Service{binary: binary, model: model}
}

// WithCommandRunner sets a custom command runner (for testing).
func (s *Service) WithCommandRunner(runner func(ctx context.Context, name string, args ...string) error) {
	s.commandRunner = runner
}

// Model returns the configured model name for logging.
func (s *Service) Model() string {
	if s.model != "" {
		return s.model
	}
	return DefaultModel
}

// Transcribe writes the audio bytes to a scratch file, invokes the
// transcription binary, and returns the plain-text transcript. The scratch
// directory is removed when the call returns.
func (s *Service) Transcribe(ctx context.Context, audio []byte, format string) (string, error) {
	if len(audio) == 0 {
		return "", fmt.Errorf("transcribe: audio payload required")
	}

	workDir, err := os.MkdirTemp("", "verifyd-transcribe-")
	if err != nil {
		return "", fmt.Errorf("transcribe: scratch dir: %w", err)
	}
	defer os.RemoveAll(workDir)

	source := filepath.Join(workDir, "input"+extensionForFormat(format))
	if err := os.WriteFile(source, audio, 0o644); err != nil {
		return "", fmt.Errorf("transcribe: write audio: %w", err)
	}

	args := []string{
		source,
		"--model", s.Model(),
		"--output_format", "txt",
		"--output_dir", workDir,
	}
	if err := s.run(ctx, s.binary, args...); err != nil {
		return "", fmt.Errorf("transcribe: %w", err)
	}

	transcriptPath := strings.TrimSuffix(source, filepath.Ext(source)) + ".txt"
	data, err := os.ReadFile(transcriptPath)
	if err != nil {
		return "", fmt.Errorf("transcribe: read transcript: %w", err)
	}
	transcript := strings.TrimSpace(string(data))
	if transcript == "" {
		return "", fmt.Errorf("transcribe: empty transcript")
	}
	return transcript, nil
}

func (s *Service) run(ctx context.Context, name string, args ...string) error {
	if s.commandRunner != nil {
		return s.commandRunner(ctx, name, args...)
	}
	cmd := exec.CommandContext(ctx, name, args...)
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(string(output)))
	}
	return nil
}

func extensionForFormat(format string) string {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "audio/mpeg", "audio/mp3", "mp3":
		return ".mp3"
	case "audio/flac", "flac":
		return ".flac"
	case "audio/ogg", "ogg":
		return ".ogg"
	case "audio/mp4", "audio/m4a", "m4a":
		return ".m4a"
	default:
		return ".wav"
	}
}
