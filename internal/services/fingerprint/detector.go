package fingerprint

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	// ConfidenceThreshold is the minimum lookup score treated as a real
	// copyright match. Scores below it are reported but never block.
	ConfidenceThreshold = 0.8

	maxMatches         = 5
	defaultHTTPTimeout = 15 * time.Second
)

// Config captures the runtime settings for copyright detection.
type Config struct {
	APIKey         string
	BaseURL        string
	Binary         string
	TimeoutSeconds int
}

// Match describes one recording the lookup service matched against the
// submitted audio.
type Match struct {
	RecordingID string  `json:"recording_id"`
	Title       string  `json:"title"`
	Artist      string  `json:"artist"`
	Confidence  float64 `json:"confidence"`
}

// Report is the outcome of a copyright check. Checked is false when the
// fingerprint could not be generated or the lookup failed; in that case
// the check is inconclusive rather than passed or failed.
type Report struct {
	Checked    bool
	Detected   bool
	Passed     bool
	Confidence float64
	Matches    []Match
}

// Detector fingerprints audio with an external Chromaprint binary and looks
// the fingerprint up against the AcoustID service.
type Detector struct {
	cfg           Config
	httpClient    *http.Client
	commandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)
}

// Option customizes the detector.
type Option func(*Detector)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(d *Detector) {
		if client != nil {
			d.httpClient = client
		}
	}
}

// WithBaseURL overrides the configured lookup endpoint (useful for tests).
func WithBaseURL(base string) Option {
	return func(d *Detector) {
		base = strings.TrimSpace(base)
		if base != "" {
			d.cfg.BaseURL = strings.TrimRight(base, "/")
		}
	}
}

// WithCommandRunner sets a custom fingerprint command runner (for testing).
func WithCommandRunner(runner func(ctx context.Context, name string, args ...string) ([]byte, error)) Option {
	return func(d *Detector) {
		d.commandRunner = runner
	}
}

// NewDetector constructs a copyright detector.
func NewDetector(cfg Config, opts ...Option) *Detector {
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	detector := &Detector{
		cfg: Config{
			APIKey:         strings.TrimSpace(cfg.APIKey),
			BaseURL:        strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
			Binary:         strings.TrimSpace(cfg.Binary),
			TimeoutSeconds: cfg.TimeoutSeconds,
		},
		httpClient: &http.Client{Timeout: timeout},
	}
	if detector.cfg.Binary == "" {
		detector.cfg.Binary = "fpcalc"
	}
	if detector.cfg.APIKey == "" {
		detector.cfg.APIKey = "test"
	}
	for _, opt := range opts {
		opt(detector)
	}
	if detector.httpClient == nil {
		detector.httpClient = &http.Client{Timeout: timeout}
	}
	return detector
}

// Check fingerprints the audio and queries the lookup service. An error
// means the check could not run; the caller decides whether that blocks.
func (d *Detector) Check(ctx context.Context, audio []byte, format string) (Report, error) {
	var report Report
	if len(audio) == 0 {
		return report, fmt.Errorf("copyright check: audio payload required")
	}

	duration, fp, err := d.fingerprintAudio(ctx, audio, format)
	if err != nil {
		return report, fmt.Errorf("copyright check: fingerprint: %w", err)
	}

	results, err := d.lookup(ctx, duration, fp)
	if err != nil {
		return report, fmt.Errorf("copyright check: lookup: %w", err)
	}

	return buildReport(results), nil
}

// fingerprintAudio stages the audio in a scratch file and runs the
// Chromaprint binary over it.
func (d *Detector) fingerprintAudio(ctx context.Context, audio []byte, format string) (int, string, error) {
	workDir, err := os.MkdirTemp("", "verifyd-fingerprint-")
	if err != nil {
		return 0, "", fmt.Errorf("scratch dir: %w", err)
	}
	defer os.RemoveAll(workDir)

	source := filepath.Join(workDir, "input"+extensionForFormat(format))
	if err := os.WriteFile(source, audio, 0o644); err != nil {
		return 0, "", fmt.Errorf("write audio: %w", err)
	}

	output, err := d.run(ctx, d.cfg.Binary, "-json", source)
	if err != nil {
		return 0, "", err
	}

	var parsed struct {
		Duration    float64 `json:"duration"`
		Fingerprint string  `json:"fingerprint"`
	}
	if err := json.Unmarshal(output, &parsed); err != nil {
		return 0, "", fmt.Errorf("decode %s output: %w", d.cfg.Binary, err)
	}
	if parsed.Fingerprint == "" {
		return 0, "", fmt.Errorf("%s produced no fingerprint", d.cfg.Binary)
	}
	return int(parsed.Duration), parsed.Fingerprint, nil
}

func (d *Detector) run(ctx context.Context, name string, args ...string) ([]byte, error) {
	if d.commandRunner != nil {
		return d.commandRunner(ctx, name, args...)
	}
	cmd := exec.CommandContext(ctx, name, args...)
	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return output, nil
}

type lookupResult struct {
	Score      float64 `json:"score"`
	Recordings []struct {
		ID      string `json:"id"`
		Title   string `json:"title"`
		Artists []struct {
			Name string `json:"name"`
		} `json:"artists"`
	} `json:"recordings"`
}

// lookup queries the AcoustID v2 lookup endpoint with the fingerprint.
func (d *Detector) lookup(ctx context.Context, duration int, fp string) ([]lookupResult, error) {
	if d.cfg.BaseURL == "" {
		return nil, fmt.Errorf("base url required")
	}
	endpoint, err := url.JoinPath(d.cfg.BaseURL, "/v2/lookup")
	if err != nil {
		return nil, fmt.Errorf("build url: %w", err)
	}

	params := url.Values{}
	params.Set("client", d.cfg.APIKey)
	params.Set("meta", "recordings")
	params.Set("duration", strconv.Itoa(duration))
	params.Set("fingerprint", fp)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("http %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var parsed struct {
		Status  string         `json:"status"`
		Results []lookupResult `json:"results"`
		Error   *struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if parsed.Status != "ok" {
		message := parsed.Status
		if parsed.Error != nil {
			message = parsed.Error.Message
		}
		return nil, fmt.Errorf("service error: %s", message)
	}
	return parsed.Results, nil
}

// buildReport applies the confidence threshold. Detected means at least one
// match scored at or above the threshold; the overall confidence is the
// best score seen either way, so operators can observe near misses.
func buildReport(results []lookupResult) Report {
	report := Report{Checked: true, Passed: true}

	for _, result := range results {
		score := round3(result.Score)
		if score > report.Confidence {
			report.Confidence = score
		}
		if score < ConfidenceThreshold {
			continue
		}
		title, artist, recordingID := "Unknown", "Unknown", ""
		if len(result.Recordings) > 0 {
			rec := result.Recordings[0]
			recordingID = rec.ID
			if rec.Title != "" {
				title = rec.Title
			}
			if len(rec.Artists) > 0 && rec.Artists[0].Name != "" {
				artist = rec.Artists[0].Name
			}
		}
		report.Matches = append(report.Matches, Match{
			RecordingID: recordingID,
			Title:       title,
			Artist:      artist,
			Confidence:  score,
		})
	}

	if len(report.Matches) > maxMatches {
		report.Matches = report.Matches[:maxMatches]
	}
	if len(report.Matches) > 0 {
		report.Detected = true
		report.Passed = false
	}
	return report
}

func round3(value float64) float64 {
	return math.Round(value*1000) / 1000
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
