package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"verifyd/internal/logging"
	"verifyd/internal/server"
	"verifyd/internal/session"
	"verifyd/internal/testsupport"
	"verifyd/internal/verification"
)

type testAPI struct {
	store   *session.Store
	handler http.Handler
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	dispatcher := verification.NewDispatcher(store, cfg.Worker, logging.NewNop())
	srv := server.New(cfg, store, dispatcher, logging.NewNop())
	return &testAPI{store: store, handler: srv.Handler()}
}

func (a *testAPI) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body == "" {
		reader = bytes.NewReader(nil)
	} else {
		reader = bytes.NewReader([]byte(body))
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	return rec
}

const createBody = `{
	"walrusBlobId": "blob-123",
	"metadata": {
		"title": "Dawn chorus",
		"description": "Field recording from the wetland boardwalk",
		"languages": ["en"],
		"tags": ["birds"]
	}
}`

func TestCreateVerification(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodPost, "/api/verifications", createBody)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var result verification.CreateResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if result.VerificationID == "" {
		t.Fatal("expected a verification id")
	}
	if result.State != "pending" {
		t.Fatalf("expected pending, got %q", result.State)
	}
	if result.EstimatedDurationSeconds != 120 {
		t.Fatalf("expected estimate 120, got %d", result.EstimatedDurationSeconds)
	}
}

func TestCreateVerificationValidation(t *testing.T) {
	api := newTestAPI(t)

	body := `{"walrusBlobId": "blob-123", "metadata": {"title": "t", "languages": ["en"], "tags": ["x"]}}`
	rec := api.do(t, http.MethodPost, "/api/verifications", body)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}

	var payload map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload["field"] != "metadata.description" {
		t.Fatalf("expected field reference in error, got %#v", payload)
	}
}

func TestCreateVerificationBadJSON(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodPost, "/api/verifications", "{not json")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestCreateVerificationMethodNotAllowed(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodGet, "/api/verifications", "")
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
}

func TestStatusPendingIsNotCacheable(t *testing.T) {
	api := newTestAPI(t)
	id := testsupport.NewSession(t, api.store, "blob-123", "Dawn chorus")

	rec := api.do(t, http.MethodGet, "/api/verifications/"+id, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if got := rec.Header().Get("Cache-Control"); got != "no-store" {
		t.Fatalf("expected no-store for a polling response, got %q", got)
	}

	var view session.View
	if err := json.Unmarshal(rec.Body.Bytes(), &view); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if view.State != "pending" {
		t.Fatalf("expected pending, got %q", view.State)
	}
	if view.Stage != session.StageQueued {
		t.Fatalf("expected queued stage, got %q", view.Stage)
	}
	if view.Result != nil || view.Error != "" {
		t.Fatalf("pending view must not expose outcome fields: %#v", view)
	}
}

func TestStatusTerminalIsCacheable(t *testing.T) {
	api := newTestAPI(t)
	ctx := context.Background()
	id := testsupport.NewSession(t, api.store, "blob-123", "Dawn chorus")
	if err := api.store.MarkProcessing(ctx, id); err != nil {
		t.Fatalf("MarkProcessing failed: %v", err)
	}
	if err := api.store.MarkCompleted(ctx, id, session.Result{QualityScore: 0.8, SafetyPassed: true}); err != nil {
		t.Fatalf("MarkCompleted failed: %v", err)
	}

	rec := api.do(t, http.MethodGet, "/api/verifications/"+id, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if got := rec.Header().Get("Cache-Control"); got != "public, max-age=300" {
		t.Fatalf("expected cacheable terminal response, got %q", got)
	}

	var view session.View
	if err := json.Unmarshal(rec.Body.Bytes(), &view); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if view.State != "completed" || view.Result == nil {
		t.Fatalf("unexpected view: %#v", view)
	}
	if view.Result.QualityScore != 0.8 {
		t.Fatalf("unexpected result: %#v", view.Result)
	}
}

func TestStatusUnknownIDHintsAtExpiry(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodGet, "/api/verifications/no-such-id", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "expired") {
		t.Fatalf("expected expiry hint in message, got %s", rec.Body.String())
	}
	if got := rec.Header().Get("Cache-Control"); got != "no-store" {
		t.Fatalf("a not-found may become found after resubmission; got %q", got)
	}
}

func TestRunEndpointAcceptsTrigger(t *testing.T) {
	api := newTestAPI(t)
	id := testsupport.NewSession(t, api.store, "blob-123", "Dawn chorus")

	body := `{
		"verificationId": "` + id + `",
		"walrusBlobId": "blob-123",
		"metadata": {
			"title": "Dawn chorus",
			"description": "Field recording from the wetland boardwalk",
			"languages": ["en"],
			"tags": ["birds"]
		}
	}`
	rec := api.do(t, http.MethodPost, "/api/verifications/run", body)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
	}

	var payload map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload["verificationId"] != id {
		t.Fatalf("unexpected payload: %#v", payload)
	}
}

func TestRunEndpointValidatesTrigger(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodPost, "/api/verifications/run", `{"walrusBlobId": "blob-123"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestHealthEndpoint(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodGet, "/api/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var payload map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload["healthy"] != true {
		t.Fatalf("expected healthy true, got %#v", payload)
	}
}
