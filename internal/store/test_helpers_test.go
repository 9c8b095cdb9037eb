package store

import (
	"context"
	"path/filepath"
	"testing"
)

// createTestStore creates a new store in a temp directory for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestSession inserts a session with minimal required fields.
func createTestSession(t *testing.T, s *Store, id string) Session {
	t.Helper()
	sess, err := s.CreateSession(context.Background(), Session{
		ID:          id,
		Game:        "Sample",
		RuleSetHash: "test-hash",
		RuleSetPath: "testdata/sample.json",
	})
	if err != nil {
		t.Fatalf("CreateSession() failed: %v", err)
	}
	return sess
}
