package output

import (
	"context"

	"opfs-inspector/internal/domain/entity"
)

// StoragePort opens fresh OPFS sessions for one inspected tab.
type StoragePort interface {
	Open(ctx context.Context) (StorageSession, error)
}

// StorageSession scopes every handle resolved during one probe invocation.
// Handles must not be used after Close.
type StorageSession interface {
	Root(ctx context.Context) (DirectoryHandle, error)
	// SyncWrite writes data at path from a dedicated worker using a
	// synchronous access handle. Intermediate directories are created.
	SyncWrite(ctx context.Context, path entity.PathSpecifier, data []byte) error
	Close() error
}

type DirectoryHandle interface {
	Name() string
	Entries(ctx context.Context) ([]entity.Entry, error)
	Directory(ctx context.Context, name string, create bool) (DirectoryHandle, error)
	File(ctx context.Context, name string, create bool) (FileHandle, error)
	Remove(ctx context.Context, name string, recursive bool) error
}

// FileHandle moves content as Base64 text, the only encoding the page
// boundary accepts.
type FileHandle interface {
	Name() string
	Size(ctx context.Context) (int64, error)
	ReadBase64(ctx context.Context) (string, error)
	// WriteBase64 opens a fresh writable stream (truncating the file),
	// decodes content and writes it.
	WriteBase64(ctx context.Context, content string) error
}
