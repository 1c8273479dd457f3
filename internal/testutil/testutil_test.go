package testutil

import (
	"os"
	"testing"
)

func TestTempDBPath(t *testing.T) {
	path := TempDBPath(t)
	if path == "" {
		t.Fatal("TempDBPath returned empty string")
	}
	if _, err := os.Stat(path); err == nil {
		t.Error("TempDBPath should name a file that does not yet exist")
	}
}

func TestTempDir(t *testing.T) {
	dir := TempDir(t)

	info, err := os.Stat(dir)
	if err != nil {
		t.Fatalf("temp directory doesn't exist: %v", err)
	}
	if !info.IsDir() {
		t.Error("path is not a directory")
	}
}

func TestTempFile(t *testing.T) {
	content := []byte("test content")
	path := TempFile(t, "test.txt", content)

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read temp file: %v", err)
	}
	if string(data) != string(content) {
		t.Errorf("content = %q, want %q", string(data), string(content))
	}
}

func TestAssertNoError(t *testing.T) {
	AssertNoError(t, nil)
}

func TestAssertEqual(t *testing.T) {
	AssertEqual(t, 1, 1)
	AssertEqual(t, "test", "test")
	AssertEqual(t, true, true)
}
