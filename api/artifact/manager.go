package artifact

import (
	"errors"
	"fmt"
	"io/fs"
	"mime"
	"os"
	"path/filepath"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const defaultPrefix = "temp_image_"

var extensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/jpg":  ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
	"image/bmp":  ".bmp",
	"image/tiff": ".tiff",
}

// StorageError reports that an upload could not be written to disk.
type StorageError struct {
	Path string
	Err  error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("store artifact %s: %v", e.Path, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

type Stats struct {
	Created int64
	Removed int64
}

// Manager owns the temporary copies of uploads handed to the worker.
type Manager struct {
	dir     string
	prefix  string
	logger  *zap.Logger
	created atomic.Int64
	removed atomic.Int64
}

func NewManager(dir string, logger *zap.Logger) (*Manager, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve artifact dir: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create artifact dir: %w", err)
	}
	return &Manager{dir: abs, prefix: defaultPrefix, logger: logger}, nil
}

func (m *Manager) Dir() string { return m.dir }

// Acquire writes data to a fresh file and returns its absolute path. The file
// is opened with O_EXCL, so a returned path is never shared with another
// request.
func (m *Manager) Acquire(data []byte, contentType string) (string, error) {
	path := filepath.Join(m.dir, m.newName(contentType))

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return "", &StorageError{Path: path, Err: err}
	}
	m.created.Add(1)

	_, werr := f.Write(data)
	cerr := f.Close()
	if err := errors.Join(werr, cerr); err != nil {
		m.Release(path)
		return "", &StorageError{Path: path, Err: err}
	}

	m.logger.Debug("Artifact created",
		zap.String("path", path),
		zap.Int("bytes", len(data)),
	)
	return path, nil
}

// Release deletes an acquired artifact. Calling it for a path that is
// already gone is not an error.
func (m *Manager) Release(path string) error {
	err := os.Remove(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		m.logger.Error("Failed to remove artifact",
			zap.String("path", path),
			zap.Error(err),
		)
		return err
	}
	if err == nil {
		m.removed.Add(1)
		m.logger.Debug("Artifact removed", zap.String("path", path))
	}
	return nil
}

// Scoped acquires an artifact, runs fn with its path and releases it once fn
// returns or panics.
func (m *Manager) Scoped(data []byte, contentType string, fn func(path string) error) error {
	path, err := m.Acquire(data, contentType)
	if err != nil {
		return err
	}
	defer m.Release(path)
	return fn(path)
}

func (m *Manager) Stats() Stats {
	return Stats{Created: m.created.Load(), Removed: m.removed.Load()}
}

func (m *Manager) newName(contentType string) string {
	mediaType, _, _ := mime.ParseMediaType(contentType)
	ext, ok := extensions[mediaType]
	if !ok {
		ext = ".jpg"
	}
	return m.prefix + strconv.FormatInt(time.Now().UnixNano(), 10) + "_" + uuid.NewString() + ext
}
