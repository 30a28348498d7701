package export

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/afero"

	"github.com/rileyhilliard/statwatch/internal/errors"
	"github.com/rileyhilliard/statwatch/internal/telemetry"
)

// FileName returns the export file name for t: system-stats-<unix ms>.csv.
func FileName(t time.Time) string {
	return fmt.Sprintf("system-stats-%d.csv", t.UnixMilli())
}

// Writer writes export documents to a filesystem.
type Writer struct {
	fs afero.Fs
}

// NewWriter returns a Writer backed by fs. A nil fs means the OS filesystem.
func NewWriter(fs afero.Fs) *Writer {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &Writer{fs: fs}
}

// WriteFile renders history and writes it to dir. It returns the written path,
// or "" with a nil error when history is empty (nothing is written).
func (w *Writer) WriteFile(dir string, history []telemetry.Snapshot, now time.Time) (string, error) {
	doc := CSV(history)
	if doc == nil {
		return "", nil
	}

	if dir == "" {
		dir = "."
	}
	if err := w.fs.MkdirAll(dir, 0o755); err != nil {
		return "", errors.WrapWithCode(err, errors.ErrExport,
			fmt.Sprintf("Can't create export directory %s", dir),
			"Check the directory path and permissions, or pass --dir")
	}

	path := filepath.Join(dir, FileName(now))
	if err := afero.WriteFile(w.fs, path, doc, 0o644); err != nil {
		return "", errors.WrapWithCode(err, errors.ErrExport,
			fmt.Sprintf("Can't write %s", path),
			"Check that the directory is writable")
	}
	return path, nil
}
