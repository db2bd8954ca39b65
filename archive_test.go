package cardkit

import (
	"archive/zip"
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

// buildZip assembles an in-memory zip archive from a path→content map.
func buildZip(t *testing.T, files map[string][]byte) []byte {
	t.Helper()

	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, content := range files {
		f, err := w.Create(name)
		if err != nil {
			t.Fatalf("create %s: %v", name, err)
		}
		if _, err := f.Write(content); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	return buf.Bytes()
}

func TestZipArchiveIndexAndExtract(t *testing.T) {
	data := buildZip(t, map[string][]byte{
		"index.html":     []byte("<html></html>"),
		"img/logo.png":   []byte("png-bytes"),
		"img/icons/a.svg": []byte("<svg/>"),
	})

	a, err := NewZipArchive(data)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer a.Close()

	byPath := make(map[string]ArchiveEntry)
	for _, e := range a.Entries() {
		byPath[e.Path] = e
	}

	if e, ok := byPath["index.html"]; !ok || e.IsDir {
		t.Errorf("index.html missing or misclassified: %+v", e)
	}
	if e, ok := byPath["img/logo.png"]; !ok || e.Size != int64(len("png-bytes")) {
		t.Errorf("img/logo.png size = %+v, want %d", e, len("png-bytes"))
	}
	// Parent directories are synthesized into the index.
	if e, ok := byPath["img"]; !ok || !e.IsDir {
		t.Error("parent directory img not synthesized")
	}
	if e, ok := byPath["img/icons"]; !ok || !e.IsDir {
		t.Error("nested parent directory img/icons not synthesized")
	}

	content, err := a.Extract("img/logo.png")
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if !bytes.Equal(content, []byte("png-bytes")) {
		t.Errorf("extracted %q, want %q", content, "png-bytes")
	}

	if _, err := a.Extract("missing.txt"); !errors.Is(err, ErrResourceNotFound) {
		t.Errorf("missing entry: got %v, want ErrResourceNotFound", err)
	}
}

func TestZipArchiveEntriesSorted(t *testing.T) {
	data := buildZip(t, map[string][]byte{
		"c.txt": []byte("c"),
		"a.txt": []byte("a"),
		"b.txt": []byte("b"),
	})

	a, err := NewZipArchive(data)
	if err != nil {
		t.Fatal(err)
	}
	defer a.Close()

	entries := a.Entries()
	for i := 1; i < len(entries); i++ {
		if entries[i-1].Path >= entries[i].Path {
			t.Fatalf("entries not sorted: %q before %q", entries[i-1].Path, entries[i].Path)
		}
	}
}

func TestZipArchiveCorruptPayload(t *testing.T) {
	if _, err := NewZipArchive([]byte("this is not a zip")); !errors.Is(err, ErrMountFailed) {
		t.Errorf("corrupt payload: got %v, want ErrMountFailed", err)
	}
}

func TestOpenZipFileMissing(t *testing.T) {
	if _, err := OpenZipFile(filepath.Join(t.TempDir(), "nope.zip")); !errors.Is(err, ErrMountFailed) {
		t.Errorf("missing file: got %v, want ErrMountFailed", err)
	}
}

func writeTestTree(t *testing.T, root string, files map[string][]byte) {
	t.Helper()
	for name, content := range files {
		full := filepath.Join(root, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(full, content, 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func TestDirArchiveIndexAndExtract(t *testing.T) {
	root := t.TempDir()
	writeTestTree(t, root, map[string][]byte{
		"readme.md":    []byte("# hi"),
		"data/cfg.json": []byte(`{"k":1}`),
	})

	a, err := NewDirArchive(root)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer a.Close()

	byPath := make(map[string]ArchiveEntry)
	for _, e := range a.Entries() {
		byPath[e.Path] = e
	}

	if e, ok := byPath["readme.md"]; !ok || e.IsDir || e.Size != 4 {
		t.Errorf("readme.md entry wrong: %+v", e)
	}
	if e, ok := byPath["data"]; !ok || !e.IsDir {
		t.Errorf("data directory entry wrong: %+v", e)
	}

	content, err := a.Extract("data/cfg.json")
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if !bytes.Equal(content, []byte(`{"k":1}`)) {
		t.Errorf("extracted %q", content)
	}

	// Directories are not extractable resources.
	if _, err := a.Extract("data"); !errors.Is(err, ErrResourceNotFound) {
		t.Errorf("extract dir: got %v, want ErrResourceNotFound", err)
	}
}

func TestDirArchiveRejectsTraversal(t *testing.T) {
	root := t.TempDir()
	writeTestTree(t, root, map[string][]byte{"a.txt": []byte("a")})

	a, err := NewDirArchive(root)
	if err != nil {
		t.Fatal(err)
	}
	defer a.Close()

	if _, err := a.Extract("../../etc/passwd"); err == nil {
		t.Error("traversal path must be rejected")
	}
}

func TestDirArchiveNotADirectory(t *testing.T) {
	root := t.TempDir()
	file := filepath.Join(root, "plain.txt")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := NewDirArchive(file); !errors.Is(err, ErrMountFailed) {
		t.Errorf("file as root: got %v, want ErrMountFailed", err)
	}
	if _, err := NewDirArchive(filepath.Join(root, "missing")); !errors.Is(err, ErrMountFailed) {
		t.Errorf("missing root: got %v, want ErrMountFailed", err)
	}
}

func TestNormalizeResourcePath(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{".", ""},
		{"/", ""},
		{"a.txt", "a.txt"},
		{"/a.txt", "a.txt"},
		{"dir/", "dir"},
		{"/dir/sub/f.css", "dir/sub/f.css"},
		{"dir//f.css", "dir/f.css"},
	}
	for _, tt := range tests {
		if got := normalizeResourcePath(tt.in); got != tt.want {
			t.Errorf("normalizeResourcePath(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
