// Package testutil provides small testing helpers shared across packages,
// in particular the temp-file harness internal/storage/sqlite's tests open
// a throwaway repository against.
package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// TempDBPath returns a path to a non-existent SQLite file inside a fresh
// t.TempDir(), suitable for sqlite.Open. The directory (and the file, once
// created) are removed when the test completes.
func TempDBPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "test.db")
}

// TempDir creates a temporary directory for testing, cleaned up
// automatically after the test completes.
func TempDir(t *testing.T) string {
	t.Helper()
	return t.TempDir()
}

// TempFile writes content to name inside a fresh temp directory and
// returns its path.
func TempFile(t *testing.T, name string, content []byte) string {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	return path
}

// AssertNoError fails the test if err is not nil.
func AssertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertError fails the test if err is nil.
func AssertError(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}

// AssertEqual fails the test if got != want.
func AssertEqual(t *testing.T, got, want interface{}) {
	t.Helper()
	if got != want {
		t.Errorf("got %v, want %v", got, want)
	}
}
