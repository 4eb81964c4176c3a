package whisper

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
)

func TestTranscribeReadsGeneratedTranscript(t *testing.T) {
	svc := NewService("whisperx", "large-v3-turbo")

	var gotArgs []string
	svc.WithCommandRunner(func(ctx context.Context, name string, args ...string) error {
		if name != "whisperx" {
			t.Errorf("unexpected binary %q", name)
		}
		gotArgs = args
		source := args[0]
		transcript := strings.TrimSuffix(source, filepath.Ext(source)) + ".txt"
		return os.WriteFile(transcript, []byte("a wren sings at dawn\n"), 0o644)
	})

	text, err := svc.Transcribe(context.Background(), []byte("audio"), "audio/mpeg")
	if err != nil {
		t.Fatalf("Transcribe failed: %v", err)
	}
	if text != "a wren sings at dawn" {
		t.Fatalf("unexpected transcript %q", text)
	}

	if !strings.HasSuffix(gotArgs[0], ".mp3") {
		t.Fatalf("expected mp3 source for audio/mpeg, got %q", gotArgs[0])
	}
	modelIdx := slices.Index(gotArgs, "--model")
	if modelIdx < 0 || modelIdx+1 >= len(gotArgs) || gotArgs[modelIdx+1] != "large-v3-turbo" {
		t.Fatalf("expected model flag in args, got %v", gotArgs)
	}
}

func TestTranscribeCommandFailure(t *testing.T) {
	svc := NewService("whisperx", "")
	svc.WithCommandRunner(func(ctx context.Context, name string, args ...string) error {
		return errors.New("cuda device unavailable")
	})

	if _, err := svc.Transcribe(context.Background(), []byte("audio"), "wav"); err == nil {
		t.Fatal("expected error when the binary fails")
	}
}

func TestTranscribeEmptyOutputIsError(t *testing.T) {
	svc := NewService("whisperx", "")
	svc.WithCommandRunner(func(ctx context.Context, name string, args ...string) error {
		source := args[0]
		transcript := strings.TrimSuffix(source, filepath.Ext(source)) + ".txt"
		return os.WriteFile(transcript, []byte("   \n"), 0o644)
	})

	if _, err := svc.Transcribe(context.Background(), []byte("audio"), "wav"); err == nil {
		t.Fatal("expected error for empty transcript")
	}
}

func TestTranscribeRequiresAudio(t *testing.T) {
	svc := NewService("", "")
	if _, err := svc.Transcribe(context.Background(), nil, ""); err == nil {
		t.Fatal("expected error for empty audio payload")
	}
}

func TestExtensionForFormat(t *testing.T) {
	tests := map[string]string{
		"audio/mpeg": ".mp3",
		"mp3":        ".mp3",
		"audio/flac": ".flac",
		"audio/ogg":  ".ogg",
		"m4a":        ".m4a",
		"":           ".wav",
		"unknown":    ".wav",
	}
	for format, want := range tests {
		if got := extensionForFormat(format); got != want {
			t.Errorf("extensionForFormat(%q) = %q, want %q", format, got, want)
		}
	}
}
