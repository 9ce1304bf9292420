package fileutil

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestWriteAtomic(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested")
	var tee bytes.Buffer

	path, n, err := WriteAtomic(dir, "out.mp3", strings.NewReader("hello world"), &tee)
	if err != nil {
		t.Fatal(err)
	}
	if path != filepath.Join(dir, "out.mp3") || n != 11 {
		t.Fatalf("unexpected result path=%q n=%d", path, n)
	}
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "hello world" || tee.String() != "hello world" {
		t.Fatalf("content mismatch: file=%q tee=%q", got, tee.String())
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("connection reset") }

func TestWriteAtomicLeavesNothingOnFailure(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "out.mp3"), []byte("old"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, _, err := WriteAtomic(dir, "out.mp3", failingReader{}, nil); err == nil {
		t.Fatal("expected error")
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected temp file cleanup, found %d entries", len(entries))
	}
	got, _ := os.ReadFile(filepath.Join(dir, "out.mp3"))
	if string(got) != "old" {
		t.Fatalf("existing file clobbered: %q", got)
	}
}

func TestSanitizeFileName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Economy 101", "Economy 101"},
		{"AC/DC live", "AC-DC live"},
		{`What? "Now" <here>`, "What Now here"},
		{"a:b*c|d", "a-b-cd"},
		{"  spaced  ", "spaced"},
		{"..", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := SanitizeFileName(tt.input); got != tt.expected {
			t.Errorf("SanitizeFileName(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestSanitizeToken(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"p1", "p1"},
		{"Podcast 42", "podcast_42"},
		{"../etc", "etc"},
		{"", "unknown"},
		{"///", "unknown"},
	}
	for _, tt := range tests {
		if got := SanitizeToken(tt.input); got != tt.expected {
			t.Errorf("SanitizeToken(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}
