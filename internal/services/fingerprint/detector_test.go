package fingerprint_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"verifyd/internal/services/fingerprint"
)

const fpcalcOutput = `{"duration": 134.6, "fingerprint": "AQABz0qUkZK4oOfhL-CPc4e5C_wW2H2QH9uDL4cvoT8UNQ"}`

func stubRunner(output string, err error) func(ctx context.Context, name string, args ...string) ([]byte, error) {
	return func(ctx context.Context, name string, args ...string) ([]byte, error) {
		if err != nil {
			return nil, err
		}
		return []byte(output), nil
	}
}

// lookupServer returns a test AcoustID endpoint serving the given body and
// records the query it received.
func lookupServer(t *testing.T, body string) (*httptest.Server, *http.Request) {
	t.Helper()
	captured := &http.Request{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*captured = *r.Clone(r.Context())
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, body)
	}))
	t.Cleanup(server.Close)
	return server, captured
}

func newTestDetector(baseURL string, runner func(ctx context.Context, name string, args ...string) ([]byte, error)) *fingerprint.Detector {
	return fingerprint.NewDetector(
		fingerprint.Config{APIKey: "test-key", BaseURL: baseURL},
		fingerprint.WithCommandRunner(runner),
	)
}

func TestCheckDetectsHighConfidenceMatch(t *testing.T) {
	server, captured := lookupServer(t, `{
		"status": "ok",
		"results": [{
			"score": 0.94567,
			"recordings": [{"id": "rec-1", "title": "Some Song", "artists": [{"name": "Some Artist"}]}]
		}]
	}`)
	detector := newTestDetector(server.URL, stubRunner(fpcalcOutput, nil))

	report, err := detector.Check(context.Background(), []byte("audio"), "mp3")
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	if !report.Checked || !report.Detected || report.Passed {
		t.Fatalf("expected a detected match, got %+v", report)
	}
	if report.Confidence != 0.946 {
		t.Fatalf("expected confidence rounded to 0.946, got %v", report.Confidence)
	}
	if len(report.Matches) != 1 {
		t.Fatalf("expected one match, got %d", len(report.Matches))
	}
	match := report.Matches[0]
	if match.RecordingID != "rec-1" || match.Title != "Some Song" || match.Artist != "Some Artist" {
		t.Fatalf("unexpected match: %+v", match)
	}

	query := captured.URL.Query()
	if query.Get("client") != "test-key" {
		t.Fatalf("expected the API key as client, got %q", query.Get("client"))
	}
	if query.Get("meta") != "recordings" {
		t.Fatalf("expected meta=recordings, got %q", query.Get("meta"))
	}
	if query.Get("duration") != "134" {
		t.Fatalf("expected truncated duration 134, got %q", query.Get("duration"))
	}
	if query.Get("fingerprint") == "" {
		t.Fatal("expected the fingerprint in the query")
	}
}

func TestCheckIgnoresLowConfidenceResults(t *testing.T) {
	server, _ := lookupServer(t, `{
		"status": "ok",
		"results": [{
			"score": 0.79,
			"recordings": [{"id": "rec-1", "title": "Near Miss", "artists": [{"name": "Someone"}]}]
		}]
	}`)
	detector := newTestDetector(server.URL, stubRunner(fpcalcOutput, nil))

	report, err := detector.Check(context.Background(), []byte("audio"), "mp3")
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	if report.Detected || !report.Passed {
		t.Fatalf("a sub-threshold score must not detect: %+v", report)
	}
	if report.Confidence != 0.79 {
		t.Fatalf("near misses should still record confidence, got %v", report.Confidence)
	}
	if len(report.Matches) != 0 {
		t.Fatalf("expected no matches, got %d", len(report.Matches))
	}
}

func TestCheckThresholdIsInclusive(t *testing.T) {
	server, _ := lookupServer(t, `{
		"status": "ok",
		"results": [{"score": 0.8, "recordings": [{"id": "rec-1", "title": "Borderline", "artists": [{"name": "Someone"}]}]}]
	}`)
	detector := newTestDetector(server.URL, stubRunner(fpcalcOutput, nil))

	report, err := detector.Check(context.Background(), []byte("audio"), "mp3")
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	if !report.Detected {
		t.Fatalf("a score exactly at the threshold must detect: %+v", report)
	}
}

func TestCheckCapsMatches(t *testing.T) {
	var results []string
	for i := 0; i < 8; i++ {
		results = append(results, fmt.Sprintf(
			`{"score": 0.9, "recordings": [{"id": "rec-%d", "title": "Song %d", "artists": [{"name": "Artist"}]}]}`, i, i))
	}
	server, _ := lookupServer(t, `{"status": "ok", "results": [`+strings.Join(results, ",")+`]}`)
	detector := newTestDetector(server.URL, stubRunner(fpcalcOutput, nil))

	report, err := detector.Check(context.Background(), []byte("audio"), "mp3")
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	if len(report.Matches) != 5 {
		t.Fatalf("expected the match list capped at 5, got %d", len(report.Matches))
	}
}

func TestCheckDefaultsMissingRecordingFields(t *testing.T) {
	server, _ := lookupServer(t, `{"status": "ok", "results": [{"score": 0.9}]}`)
	detector := newTestDetector(server.URL, stubRunner(fpcalcOutput, nil))

	report, err := detector.Check(context.Background(), []byte("audio"), "mp3")
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	if len(report.Matches) != 1 {
		t.Fatalf("expected one match, got %d", len(report.Matches))
	}
	match := report.Matches[0]
	if match.Title != "Unknown" || match.Artist != "Unknown" {
		t.Fatalf("expected Unknown defaults, got %+v", match)
	}
}

func TestCheckCleanLookupPasses(t *testing.T) {
	server, _ := lookupServer(t, `{"status": "ok", "results": []}`)
	detector := newTestDetector(server.URL, stubRunner(fpcalcOutput, nil))

	report, err := detector.Check(context.Background(), []byte("audio"), "wav")
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	if !report.Checked || report.Detected || !report.Passed {
		t.Fatalf("expected a clean pass, got %+v", report)
	}
}

func TestCheckReportsServiceError(t *testing.T) {
	server, _ := lookupServer(t, `{"status": "error", "error": {"message": "invalid API key"}}`)
	detector := newTestDetector(server.URL, stubRunner(fpcalcOutput, nil))

	_, err := detector.Check(context.Background(), []byte("audio"), "mp3")
	if err == nil || !strings.Contains(err.Error(), "invalid API key") {
		t.Fatalf("expected the service error surfaced, got %v", err)
	}
}

func TestCheckReportsFingerprintFailure(t *testing.T) {
	server, _ := lookupServer(t, `{"status": "ok", "results": []}`)
	detector := newTestDetector(server.URL, stubRunner("", errors.New("fpcalc: executable file not found")))

	_, err := detector.Check(context.Background(), []byte("audio"), "mp3")
	if err == nil || !strings.Contains(err.Error(), "fingerprint") {
		t.Fatalf("expected a fingerprint error, got %v", err)
	}
}

func TestCheckRejectsEmptyAudio(t *testing.T) {
	detector := newTestDetector("http://unused.invalid", stubRunner(fpcalcOutput, nil))

	_, err := detector.Check(context.Background(), nil, "mp3")
	if err == nil {
		t.Fatal("expected an error for an empty payload")
	}
}
