package download

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"opfs-inspector/internal/application/port/output"
	"opfs-inspector/internal/domain/entity"
)

var _ output.DownloadPort = (*FileDownloader)(nil)

// Chooser picks the destination of a save-as. Returning
// entity.ErrDownloadCancelled aborts the download.
type Chooser interface {
	Choose(ctx context.Context, suggested string) (string, error)
}

type ChooserFunc func(ctx context.Context, suggested string) (string, error)

func (f ChooserFunc) Choose(ctx context.Context, suggested string) (string, error) {
	return f(ctx, suggested)
}

// FixedDir saves every download under dir without asking.
func FixedDir(dir string) Chooser {
	return ChooserFunc(func(_ context.Context, suggested string) (string, error) {
		return filepath.Join(dir, suggested), nil
	})
}

type FileDownloader struct {
	chooser Chooser
	logger  output.LoggerPort
}

func NewFileDownloader(chooser Chooser, logger output.LoggerPort) *FileDownloader {
	if logger == nil {
		logger = output.NopLogger{}
	}
	return &FileDownloader{chooser: chooser, logger: logger}
}

// SaveAs always goes through the chooser, then writes data to a temp file in
// the destination directory and renames it into place.
func (d *FileDownloader) SaveAs(ctx context.Context, fileName string, data []byte) (string, error) {
	suggested := SuggestedName(fileName)

	dest, err := d.chooser.Choose(ctx, suggested)
	if err != nil {
		return "", err
	}
	if dest == "" {
		return "", entity.ErrDownloadCancelled
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	dir := filepath.Dir(dest)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create download dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".download-*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return "", fmt.Errorf("write %s: %w", dest, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close %s: %w", dest, err)
	}
	if err := os.Rename(tmpName, dest); err != nil {
		return "", fmt.Errorf("rename %s: %w", dest, err)
	}

	d.logger.Info("download saved", "file", fileName, "dest", dest, "bytes", len(data))
	return dest, nil
}

// SuggestedName is the last path segment of fileName, the browser's default
// for a save-as dialog.
func SuggestedName(fileName string) string {
	name := fileName
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}
	if name == "" || name == "." || name == ".." {
		return "download"
	}
	return name
}
