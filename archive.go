package cardkit

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
)

// ArchiveEntry is one file or directory inside a mounted bundle.
type ArchiveEntry struct {
	Path  string
	Size  int64
	IsDir bool
}

// ArchiveReader is the capability the mount layer needs from an archive
// backend: an entry listing built once, and per-entry extraction on
// demand. Any backend satisfies it — the zip decoder, the directory
// walker, or a test double.
type ArchiveReader interface {
	// Entries returns the full entry index. The slice is built at open
	// time and never mutated afterwards.
	Entries() []ArchiveEntry

	// Extract returns the raw bytes of a single entry.
	Extract(path string) ([]byte, error)

	// Close releases the backend. Extract must not be called afterwards.
	Close() error
}

// ============================================================================
// Zip Archive Backend
// ============================================================================

// zipArchive serves entries from a zip payload held fully in memory.
// The index is immutable once built, so concurrent Extract calls need
// no locking.
type zipArchive struct {
	reader  *zip.Reader
	files   map[string]*zip.File
	entries []ArchiveEntry
}

// NewZipArchive opens a zip archive from an in-memory payload.
func NewZipArchive(data []byte) (ArchiveReader, error) {
	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMountFailed, err)
	}

	a := &zipArchive{
		reader: reader,
		files:  make(map[string]*zip.File),
	}

	dirs := make(map[string]bool)
	for _, f := range reader.File {
		name := normalizeResourcePath(f.Name)
		if name == "" {
			continue
		}
		if f.FileInfo().IsDir() {
			dirs[name] = true
		} else {
			a.files[name] = f
			a.entries = append(a.entries, ArchiveEntry{
				Path: name,
				Size: int64(f.UncompressedSize64),
			})
		}
		// Synthesize parent directories so the index lists every level.
		for dir := path.Dir(name); dir != "" && dir != "." && dir != "/"; dir = path.Dir(dir) {
			dirs[dir] = true
		}
	}

	for dir := range dirs {
		a.entries = append(a.entries, ArchiveEntry{Path: dir, IsDir: true})
	}
	sort.Slice(a.entries, func(i, j int) bool {
		return a.entries[i].Path < a.entries[j].Path
	})

	return a, nil
}

// OpenZipFile opens a zip archive from disk, buffering the whole file.
// This bounds usable archive size to available memory.
func OpenZipFile(zipPath string) (ArchiveReader, error) {
	data, err := os.ReadFile(zipPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMountFailed, err)
	}
	return NewZipArchive(data)
}

func (a *zipArchive) Entries() []ArchiveEntry {
	return a.entries
}

func (a *zipArchive) Extract(resourcePath string) ([]byte, error) {
	resourcePath = normalizeResourcePath(resourcePath)

	f, ok := a.files[resourcePath]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrResourceNotFound, resourcePath)
	}

	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("extract %s: %w", resourcePath, err)
	}
	defer rc.Close()

	return io.ReadAll(rc)
}

func (a *zipArchive) Close() error {
	// The payload is garbage collected with the struct.
	return nil
}

// ============================================================================
// Directory Backend
// ============================================================================

// dirArchive serves entries straight from a directory tree. The index
// snapshot is taken at open time; file bytes are read from disk on every
// Extract so the backing files are never buffered.
type dirArchive struct {
	root    string
	index   map[string]ArchiveEntry
	entries []ArchiveEntry
}

// NewDirArchive walks a directory tree and indexes it as an archive.
func NewDirArchive(root string) (ArchiveReader, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMountFailed, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", ErrMountFailed, root)
	}

	a := &dirArchive{
		root:  root,
		index: make(map[string]ArchiveEntry),
	}

	err = filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if p == root {
			return nil
		}

		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		name := normalizeResourcePath(filepath.ToSlash(rel))

		entry := ArchiveEntry{Path: name, IsDir: d.IsDir()}
		if !d.IsDir() {
			fi, err := d.Info()
			if err != nil {
				return err
			}
			entry.Size = fi.Size()
		}

		a.index[name] = entry
		a.entries = append(a.entries, entry)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMountFailed, err)
	}

	sort.Slice(a.entries, func(i, j int) bool {
		return a.entries[i].Path < a.entries[j].Path
	})

	return a, nil
}

func (a *dirArchive) Entries() []ArchiveEntry {
	return a.entries
}

func (a *dirArchive) Extract(resourcePath string) ([]byte, error) {
	resourcePath = normalizeResourcePath(resourcePath)
	if !isValidResourcePath(resourcePath) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidPath, resourcePath)
	}

	entry, ok := a.index[resourcePath]
	if !ok || entry.IsDir {
		return nil, fmt.Errorf("%w: %s", ErrResourceNotFound, resourcePath)
	}

	data, err := os.ReadFile(filepath.Join(a.root, filepath.FromSlash(resourcePath)))
	if err != nil {
		return nil, fmt.Errorf("extract %s: %w", resourcePath, err)
	}
	return data, nil
}

func (a *dirArchive) Close() error {
	return nil
}

// ============================================================================
// Network Fetch
// ============================================================================

// FetchArchive downloads an archive payload over HTTP. The fetch happens
// once, at mount time; the result is then treated like an in-memory zip.
func FetchArchive(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMountFailed, err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMountFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: fetch %s: %s", ErrMountFailed, url, resp.Status)
	}

	return io.ReadAll(resp.Body)
}

// ============================================================================
// Path Helpers
// ============================================================================

// normalizeResourcePath cleans a bundle-relative path: forward slashes,
// no leading or trailing slash, "" for the bundle root.
func normalizeResourcePath(p string) string {
	p = strings.TrimPrefix(p, "/")
	p = strings.TrimSuffix(p, "/")
	if p == "" || p == "." {
		return ""
	}
	return path.Clean(p)
}

// isValidResourcePath rejects paths that could escape the bundle root.
func isValidResourcePath(p string) bool {
	return !strings.Contains(p, "..")
}
