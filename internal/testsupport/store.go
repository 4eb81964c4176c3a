package testsupport

import (
	"context"
	"testing"

	"verifyd/internal/config"
	"verifyd/internal/logging"
	"verifyd/internal/session"
)

// MustOpenStore opens a session.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *session.Store {
	t.Helper()

	store, err := session.Open(cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("session.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// NewSession creates a pending session for tests using the provided store.
func NewSession(t testing.TB, store *session.Store, contentRef, title string) string {
	t.Helper()

	id, err := store.Create(context.Background(), contentRef, title, 120)
	if err != nil {
		t.Fatalf("store.Create: %v", err)
	}
	return id
}
