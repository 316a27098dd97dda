package output

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/guiyumin/vscribe/internal/core/ai/transcriber"
)

func TestMarkdown(t *testing.T) {
	res := &transcriber.Result{
		Segments: []transcriber.Segment{
			{Start: 0, End: 2, Text: " Hello "},
			{Start: 3725, End: 3726, Text: "Later"},
		},
		Language: "en",
		Duration: 62*time.Minute + 6*time.Second,
	}
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	got := Markdown("abc123", "https://www.youtube.com/watch?v=abc123", res, at)

	for _, want := range []string{
		"# Transcript: abc123\n",
		"**Source:** https://www.youtube.com/watch?v=abc123\n",
		"**Duration:** 1h 2m 6s\n",
		"**Language:** en\n",
		"**Transcribed:** 2026-01-02 03:04:05\n",
		"[00:00] Hello\n\n",
		"[01:02:05] Later\n\n",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("markdown lacks %q:\n%s", want, got)
		}
	}
}

func TestMarkdownSilence(t *testing.T) {
	got := Markdown("abc123", "", &transcriber.Result{Language: "unknown"}, time.Now())
	if !strings.Contains(got, "No speech detected") {
		t.Errorf("markdown = %q", got)
	}
	if strings.Contains(got, "**Source:**") {
		t.Error("empty source should be omitted")
	}
}

func TestWriteTranscript(t *testing.T) {
	path := filepath.Join(t.TempDir(), "abc123.md")
	if err := WriteTranscript(path, "abc123", "", &transcriber.Result{Language: "en"}); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(data), "# Transcript: abc123") {
		t.Errorf("file = %q", data)
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{5 * time.Second, "5s"},
		{65 * time.Second, "1m 5s"},
		{time.Hour + time.Second, "1h 0m 1s"},
	}
	for _, tt := range tests {
		if got := formatDuration(tt.d); got != tt.want {
			t.Errorf("formatDuration(%v) = %q; want %q", tt.d, got, tt.want)
		}
	}
}
