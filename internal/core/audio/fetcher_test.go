package audio

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/guiyumin/vscribe/internal/core/config"
)

// fakeYtdlp writes a shell script that mimics yt-dlp: it finds the -o
// template and runs body with $dir set to the template's directory.
func fakeYtdlp(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script fake needs a POSIX shell")
	}

	script := `#!/bin/sh
out=""
while [ $# -gt 0 ]; do
  case "$1" in
    -o) out="$2"; shift ;;
  esac
  shift
done
dir=$(dirname "$out")
` + body + "\n"

	path := filepath.Join(t.TempDir(), "yt-dlp")
	if err := os.WriteFile(path, []byte(script), 0755); err != nil {
		t.Fatal(err)
	}
	return path
}

func newTestFetcher(t *testing.T, ytdlp, tempDir string) *YtdlpFetcher {
	t.Helper()
	return NewYtdlpFetcher(config.FetcherConfig{YtdlpPath: ytdlp}, tempDir, zerolog.Nop())
}

func assertEmptyDir(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		var names []string
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Errorf("temp dir not cleaned up, found: %v", names)
	}
}

func TestYtdlpFetcherSuccess(t *testing.T) {
	fixture := filepath.Join(t.TempDir(), "fixture.wav")
	if err := WriteWAV(fixture, make([]float32, 3*TargetSampleRate), TargetSampleRate); err != nil {
		t.Fatal(err)
	}
	want, err := os.ReadFile(fixture)
	if err != nil {
		t.Fatal(err)
	}

	ytdlp := fakeYtdlp(t, `echo partial > "$dir/audio.webm.part"
cp "`+fixture+`" "$dir/audio.wav"`)
	tempDir := t.TempDir()

	got, err := newTestFetcher(t, ytdlp, tempDir).Fetch(context.Background(), "abc123")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if string(got) != string(want) {
		t.Error("fetched bytes differ from the fixture WAV")
	}
	assertEmptyDir(t, tempDir)
}

func TestYtdlpFetcherFailure(t *testing.T) {
	ytdlp := fakeYtdlp(t, `echo "ERROR: [youtube] bad-id: Video unavailable" >&2
exit 1`)
	tempDir := t.TempDir()

	_, err := newTestFetcher(t, ytdlp, tempDir).Fetch(context.Background(), "bad-id")
	if !errors.Is(err, ErrAcquisition) {
		t.Fatalf("err = %v; want ErrAcquisition", err)
	}
	if !strings.Contains(err.Error(), "Video unavailable") {
		t.Errorf("err = %q; want the yt-dlp reason", err)
	}
	assertEmptyDir(t, tempDir)
}

func TestYtdlpFetcherNoOutput(t *testing.T) {
	ytdlp := fakeYtdlp(t, `touch "$dir/unrelated.wav"
exit 0`)
	tempDir := t.TempDir()

	_, err := newTestFetcher(t, ytdlp, tempDir).Fetch(context.Background(), "abc123")
	if !errors.Is(err, ErrAcquisition) {
		t.Fatalf("err = %v; want ErrAcquisition", err)
	}
	if !strings.Contains(err.Error(), "no audio file") {
		t.Errorf("err = %q; want missing output reason", err)
	}
	assertEmptyDir(t, tempDir)
}

func TestYtdlpFetcherMissingBinary(t *testing.T) {
	tempDir := t.TempDir()
	f := newTestFetcher(t, filepath.Join(t.TempDir(), "does-not-exist"), tempDir)

	_, err := f.Fetch(context.Background(), "abc123")
	if !errors.Is(err, ErrAcquisition) {
		t.Fatalf("err = %v; want ErrAcquisition", err)
	}
	assertEmptyDir(t, tempDir)
}

func TestYtdlpFetcherRejectsInvalidID(t *testing.T) {
	tempDir := t.TempDir()
	f := newTestFetcher(t, "yt-dlp", tempDir)

	if _, err := f.Fetch(context.Background(), "a b"); !errors.Is(err, ErrAcquisition) {
		t.Fatalf("err = %v; want ErrAcquisition", err)
	}
	assertEmptyDir(t, tempDir)
}

func TestBuildArgs(t *testing.T) {
	f := NewYtdlpFetcher(config.FetcherConfig{ExtraArgs: []string{"--cookies", "c.txt"}}, "", zerolog.Nop())
	f.ffmpegPath = ""

	args := f.buildArgs(f.URL("abc123"), "/work")
	joined := strings.Join(args, " ")

	for _, want := range []string{
		"-f bestaudio/best",
		"--no-playlist",
		"-o " + filepath.Join("/work", "audio.%(ext)s"),
		"--cookies c.txt",
		"-- https://www.youtube.com/watch?v=abc123",
	} {
		if !strings.Contains(joined, want) {
			t.Errorf("args %q missing %q", joined, want)
		}
	}
	if strings.Contains(joined, "--audio-format") {
		t.Error("audio extraction requested without ffmpeg")
	}

	f.ffmpegPath = "/usr/bin/ffmpeg"
	joined = strings.Join(f.buildArgs(f.URL("abc123"), "/work"), " ")
	if !strings.Contains(joined, "-x --audio-format wav --ffmpeg-location /usr/bin/ffmpeg") {
		t.Errorf("args %q missing wav extraction", joined)
	}
	if !strings.HasSuffix(joined, "-- https://www.youtube.com/watch?v=abc123") {
		t.Errorf("url must be the last argument after --: %q", joined)
	}
}

func TestDescribeFailure(t *testing.T) {
	err := errors.New("exit status 1")
	if got := describeFailure(err, ""); got != "exit status 1" {
		t.Errorf("empty stderr: got %q", got)
	}

	stderr := "line1\n\nline2\nline3\nline4\nline5\nERROR: Video unavailable\n"
	got := describeFailure(err, stderr)
	if strings.Contains(got, "line1") {
		t.Errorf("expected only the last lines, got %q", got)
	}
	if !strings.HasSuffix(got, "ERROR: Video unavailable") {
		t.Errorf("got %q", got)
	}
}
