package fingerprint_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"ocrcache/internal/fingerprint"
)

// sha256("abc")
const abcDigest = "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"

func TestBytesKnownDigest(t *testing.T) {
	if got := fingerprint.Bytes([]byte("abc")); got != abcDigest {
		t.Fatalf("unexpected digest %s", got)
	}
}

func TestReaderMatchesBytes(t *testing.T) {
	got, err := fingerprint.Reader(strings.NewReader("abc"))
	if err != nil {
		t.Fatalf("Reader returned error: %v", err)
	}
	if got != abcDigest {
		t.Fatalf("unexpected digest %s", got)
	}
}

func TestFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.txt")
	if err := os.WriteFile(path, []byte("abc"), 0o644); err != nil {
		t.Fatal(err)
	}
	got, err := fingerprint.File(path)
	if err != nil {
		t.Fatalf("File returned error: %v", err)
	}
	if got != abcDigest {
		t.Fatalf("unexpected digest %s", got)
	}

	if _, err := fingerprint.File(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
