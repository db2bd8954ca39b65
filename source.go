package cardkit

import "fmt"

// SourceKind identifies the variant of a MountSource.
type SourceKind string

const (
	// SourceZipPath is a zip archive on the local filesystem
	SourceZipPath SourceKind = "zip-path"
	// SourceZipData is a zip archive held entirely in memory
	SourceZipData SourceKind = "zip-data"
	// SourceDirectory is a plain directory tree on the local filesystem
	SourceDirectory SourceKind = "directory"
	// SourceNetwork is a zip archive fetched once over HTTP at mount time
	SourceNetwork SourceKind = "network"
)

// MountSource describes where a card bundle's bytes come from.
// It is a closed union: the four variants below are the only
// implementations, so kind dispatch is exhaustive by construction.
type MountSource interface {
	// Kind returns the source variant.
	Kind() SourceKind

	// Recoverable reports whether a mount backed by this source can be
	// rebuilt from its persisted record after a restart. In-memory
	// payloads are scrubbed before persistence and are therefore
	// non-recoverable by construction.
	Recoverable() bool

	isMountSource()
}

// ZipPathSource mounts a zip archive from a filesystem path.
type ZipPathSource struct {
	Path string
}

// ZipDataSource mounts a zip archive from an in-memory payload.
type ZipDataSource struct {
	Data []byte
}

// DirectorySource mounts a directory tree in place, without copying.
type DirectorySource struct {
	Path string
}

// NetworkSource mounts a zip archive fetched from a URL.
type NetworkSource struct {
	URL string
}

// ZipPath returns a MountSource for a zip archive on disk.
func ZipPath(path string) MountSource { return ZipPathSource{Path: path} }

// ZipData returns a MountSource for an in-memory zip payload.
func ZipData(data []byte) MountSource { return ZipDataSource{Data: data} }

// DirectoryPath returns a MountSource for a directory tree.
func DirectoryPath(path string) MountSource { return DirectorySource{Path: path} }

// NetworkURL returns a MountSource for a zip archive behind a URL.
func NetworkURL(url string) MountSource { return NetworkSource{URL: url} }

func (ZipPathSource) Kind() SourceKind   { return SourceZipPath }
func (ZipDataSource) Kind() SourceKind   { return SourceZipData }
func (DirectorySource) Kind() SourceKind { return SourceDirectory }
func (NetworkSource) Kind() SourceKind   { return SourceNetwork }

func (ZipPathSource) Recoverable() bool   { return true }
func (ZipDataSource) Recoverable() bool   { return false }
func (DirectorySource) Recoverable() bool { return true }
func (NetworkSource) Recoverable() bool   { return false }

func (ZipPathSource) isMountSource()   {}
func (ZipDataSource) isMountSource()   {}
func (DirectorySource) isMountSource() {}
func (NetworkSource) isMountSource()   {}

// SourceRecord is the persisted form of a MountSource. Binary payloads
// are never written: EncodeSource drops the bytes of a ZipData source,
// which is what makes those mounts non-recoverable across restarts.
type SourceRecord struct {
	Kind SourceKind `json:"kind"`
	Path string     `json:"path,omitempty"`
	URL  string     `json:"url,omitempty"`
	Data []byte     `json:"data,omitempty"`
}

// EncodeSource converts a MountSource to its persisted form, scrubbing
// any in-memory payload.
func EncodeSource(src MountSource) SourceRecord {
	switch s := src.(type) {
	case ZipPathSource:
		return SourceRecord{Kind: SourceZipPath, Path: s.Path}
	case ZipDataSource:
		return SourceRecord{Kind: SourceZipData, Data: []byte{}}
	case DirectorySource:
		return SourceRecord{Kind: SourceDirectory, Path: s.Path}
	case NetworkSource:
		return SourceRecord{Kind: SourceNetwork, URL: s.URL}
	}
	// Unreachable for the closed union above.
	return SourceRecord{}
}

// DecodeSource converts a persisted SourceRecord back into a MountSource.
func DecodeSource(rec SourceRecord) (MountSource, error) {
	switch rec.Kind {
	case SourceZipPath:
		return ZipPathSource{Path: rec.Path}, nil
	case SourceZipData:
		return ZipDataSource{Data: rec.Data}, nil
	case SourceDirectory:
		return DirectorySource{Path: rec.Path}, nil
	case SourceNetwork:
		return NetworkSource{URL: rec.URL}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedSource, rec.Kind)
}
