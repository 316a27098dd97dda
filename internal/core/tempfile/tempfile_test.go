package tempfile

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestWithMaterializedAudio(t *testing.T) {
	dir := t.TempDir()
	blob := []byte("RIFF....WAVE")

	var seen string
	got, err := WithMaterializedAudio(dir, blob, func(path string) (int, error) {
		seen = path
		data, err := os.ReadFile(path)
		if err != nil {
			return 0, err
		}
		if string(data) != string(blob) {
			t.Errorf("file content = %q; want %q", data, blob)
		}
		info, err := os.Stat(path)
		if err != nil {
			return 0, err
		}
		if info.Mode().Perm() != 0600 {
			t.Errorf("mode = %v; want 0600", info.Mode().Perm())
		}
		return len(data), nil
	})
	if err != nil {
		t.Fatalf("WithMaterializedAudio: %v", err)
	}
	if got != len(blob) {
		t.Errorf("result = %d; want %d", got, len(blob))
	}
	if filepath.Dir(seen) != dir || !strings.HasPrefix(filepath.Base(seen), filePrefix) || filepath.Ext(seen) != fileSuffix {
		t.Errorf("unexpected path %q", seen)
	}
	if _, err := os.Stat(seen); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("file %s still exists after return", seen)
	}
}

func TestWithMaterializedAudioBodyError(t *testing.T) {
	dir := t.TempDir()
	bodyErr := errors.New("engine exploded")

	_, err := WithMaterializedAudio(dir, []byte("x"), func(path string) (string, error) {
		return "partial", bodyErr
	})
	if !errors.Is(err, bodyErr) {
		t.Fatalf("err = %v; want body error", err)
	}
	if errors.Is(err, ErrStorage) {
		t.Error("body error must not be classified as storage failure")
	}
	assertNoLeftovers(t, dir)
}

func TestWithMaterializedAudioPanic(t *testing.T) {
	dir := t.TempDir()

	func() {
		defer func() {
			if recover() == nil {
				t.Error("expected panic to propagate")
			}
		}()
		_, _ = WithMaterializedAudio(dir, []byte("x"), func(path string) (int, error) {
			panic("boom")
		})
	}()

	assertNoLeftovers(t, dir)
}

func TestWithMaterializedAudioStorageFailure(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "missing")

	called := false
	_, err := WithMaterializedAudio(dir, []byte("x"), func(path string) (int, error) {
		called = true
		return 0, nil
	})
	if !errors.Is(err, ErrStorage) {
		t.Fatalf("err = %v; want ErrStorage", err)
	}
	if called {
		t.Error("body must not run when the file cannot be created")
	}
}

func TestWithMaterializedAudioBodyRemovesFile(t *testing.T) {
	dir := t.TempDir()

	_, err := WithMaterializedAudio(dir, []byte("x"), func(path string) (int, error) {
		return 1, os.Remove(path)
	})
	if err != nil {
		t.Fatalf("already-removed file should not be an error: %v", err)
	}
}

func TestManagerDo(t *testing.T) {
	m := New(t.TempDir())

	err := m.Do([]byte("abc"), func(path string) error {
		left, err := m.Leftovers()
		if err != nil {
			return err
		}
		if len(left) != 1 || left[0] != path {
			t.Errorf("Leftovers during body = %v; want [%s]", left, path)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	assertNoLeftovers(t, m.Dir)
}

func assertNoLeftovers(t *testing.T, dir string) {
	t.Helper()
	left, err := New(dir).Leftovers()
	if err != nil {
		t.Fatal(err)
	}
	if len(left) != 0 {
		t.Errorf("leftover temp files: %v", left)
	}
}
