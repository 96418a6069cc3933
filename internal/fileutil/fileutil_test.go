package fileutil

import (
	"os"
	"path/filepath"
	"testing"
)

func TestWriteFileAtomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "artifact.json")

	if err := WriteFileAtomic(path, []byte(`{"ok":true}`), 0o644); err != nil {
		t.Fatalf("WriteFileAtomic failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back failed: %v", err)
	}
	if string(data) != `{"ok":true}` {
		t.Fatalf("unexpected content %q", data)
	}

	// Overwrite replaces the previous content wholesale.
	if err := WriteFileAtomic(path, []byte(`{"ok":false}`), 0o644); err != nil {
		t.Fatalf("overwrite failed: %v", err)
	}
	data, _ = os.ReadFile(path)
	if string(data) != `{"ok":false}` {
		t.Fatalf("unexpected content after overwrite %q", data)
	}

	// No temp files left behind.
	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatalf("read dir failed: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected only the target file, found %d entries", len(entries))
	}
}

func TestSHA256Hex(t *testing.T) {
	digest := SHA256Hex([]byte("loom"))
	if len(digest) != 64 {
		t.Fatalf("unexpected digest length %d", len(digest))
	}
	if digest != SHA256Hex([]byte("loom")) {
		t.Fatal("digest not deterministic")
	}
	if digest == SHA256Hex([]byte("other")) {
		t.Fatal("different inputs must differ")
	}
}
