package analysis_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"verifyd/internal/services/analysis"
)

func newEngine(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *analysis.Client) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	client := analysis.NewClient(analysis.Config{
		APIKey: "test-key",
		Model:  "deepseek-chat",
	}, analysis.WithBaseURL(server.URL))
	return server, client
}

func completionBody(content string) string {
	resp := map[string]any{
		"choices": []map[string]any{
			{"message": map[string]any{"content": content}},
		},
	}
	encoded, _ := json.Marshal(resp)
	return string(encoded)
}

func testSubmission() analysis.Submission {
	return analysis.Submission{
		Title:       "Dawn chorus",
		Description: "Field recording from the wetland boardwalk",
		Languages:   []string{"en"},
		Tags:        []string{"birds"},
	}
}

func TestEvaluateParsesVerdict(t *testing.T) {
	_, client := newEngine(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("unexpected authorization header %q", got)
		}
		var req struct {
			Model          string            `json:"model"`
			ResponseFormat map[string]string `json:"response_format"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.Model != "deepseek-chat" {
			t.Errorf("unexpected model %q", req.Model)
		}
		if req.ResponseFormat["type"] != "json_object" {
			t.Errorf("expected json_object response format, got %v", req.ResponseFormat)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(completionBody(`{"quality_score": 0.75, "safety_passed": true, "insights": ["matches description"]}`)))
	})

	verdict, err := client.Evaluate(context.Background(), "a wren sings", testSubmission())
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if verdict.QualityScore != 0.75 || !verdict.SafetyPassed {
		t.Fatalf("unexpected verdict: %#v", verdict)
	}
}

func TestEvaluateHandlesCodeFencedContent(t *testing.T) {
	_, client := newEngine(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(completionBody("```json\n{\"quality_score\": 0.5, \"safety_passed\": true}\n```")))
	})

	verdict, err := client.Evaluate(context.Background(), "some speech", testSubmission())
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if verdict.QualityScore != 0.5 {
		t.Fatalf("unexpected verdict: %#v", verdict)
	}
}

func TestEvaluateReturnsMalformedVerdict(t *testing.T) {
	_, client := newEngine(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(completionBody("I cannot produce JSON today")))
	})

	_, err := client.Evaluate(context.Background(), "some speech", testSubmission())
	if !errors.Is(err, analysis.ErrMalformedVerdict) {
		t.Fatalf("expected ErrMalformedVerdict, got %v", err)
	}
}

func TestEvaluateEmptyChoicesIsMalformed(t *testing.T) {
	_, client := newEngine(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices": []}`))
	})

	_, err := client.Evaluate(context.Background(), "some speech", testSubmission())
	if !errors.Is(err, analysis.ErrMalformedVerdict) {
		t.Fatalf("expected ErrMalformedVerdict, got %v", err)
	}
}

func TestEvaluateHTTPErrorIsNotMalformed(t *testing.T) {
	_, client := newEngine(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	})

	_, err := client.Evaluate(context.Background(), "some speech", testSubmission())
	if err == nil {
		t.Fatal("expected error")
	}
	if errors.Is(err, analysis.ErrMalformedVerdict) {
		t.Fatal("transport-level failures must not downgrade to a neutral verdict")
	}
	if !strings.Contains(err.Error(), "429") {
		t.Fatalf("expected status code in error, got %v", err)
	}
}

func TestEvaluateRequiresTranscript(t *testing.T) {
	client := analysis.NewClient(analysis.Config{APIKey: "k", BaseURL: "http://127.0.0.1:9"})
	if _, err := client.Evaluate(context.Background(), "   ", testSubmission()); err == nil {
		t.Fatal("expected error for empty transcript")
	}
}
