// Package tempfile materializes in-memory audio as a scoped file on disk.
package tempfile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// ErrStorage wraps local filesystem failures.
var ErrStorage = errors.New("temporary storage failed")

const (
	filePrefix = "vscribe-"
	fileSuffix = ".wav"
)

// Manager creates transient audio files under Dir.
type Manager struct {
	// Dir is the parent directory; empty means os.TempDir().
	Dir string
}

// New returns a Manager rooted at dir.
func New(dir string) *Manager {
	return &Manager{Dir: dir}
}

// Root returns the directory temporary files are created in.
func (m *Manager) Root() string {
	if m.Dir == "" {
		return os.TempDir()
	}
	return m.Dir
}

// Do writes blob to a uniquely named file, calls body with its path and
// removes the file before returning, whatever body does.
func (m *Manager) Do(blob []byte, body func(path string) error) error {
	_, err := WithMaterializedAudio(m.Root(), blob, func(path string) (struct{}, error) {
		return struct{}{}, body(path)
	})
	return err
}

// Leftovers lists files created by a Manager that still exist in Dir.
func (m *Manager) Leftovers() ([]string, error) {
	entries, err := os.ReadDir(m.Root())
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		name := e.Name()
		if !e.IsDir() && strings.HasPrefix(name, filePrefix) && strings.HasSuffix(name, fileSuffix) {
			names = append(names, filepath.Join(m.Root(), name))
		}
	}
	return names, nil
}

// WithMaterializedAudio writes blob to dir/vscribe-<uuid>.wav, invokes body
// with the path and deletes the file on every exit path, panics included.
// Create, write and remove failures are wrapped with ErrStorage. An error
// returned by body is passed through unchanged.
func WithMaterializedAudio[R any](dir string, blob []byte, body func(path string) (R, error)) (result R, err error) {
	path := filepath.Join(dir, filePrefix+uuid.NewString()+fileSuffix)

	if err := write(path, blob); err != nil {
		// write may have left a partial file behind
		_ = os.Remove(path)
		return result, fmt.Errorf("%w: %v", ErrStorage, err)
	}

	defer func() {
		rmErr := os.Remove(path)
		if rmErr == nil || errors.Is(rmErr, os.ErrNotExist) {
			return
		}
		if err == nil {
			var zero R
			result = zero
			err = fmt.Errorf("%w: failed to remove %s: %v", ErrStorage, path, rmErr)
		}
	}()

	return body(path)
}

func write(path string, blob []byte) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	if _, err := f.Write(blob); err != nil {
		f.Close()
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	return nil
}
