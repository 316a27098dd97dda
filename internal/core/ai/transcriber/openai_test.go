package transcriber

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/guiyumin/vscribe/internal/core/config"
)

func TestNewOpenAIRequiresKey(t *testing.T) {
	if _, err := NewOpenAI(config.OpenAIConfig{}); err == nil {
		t.Fatal("want error without API key")
	}
}

func TestOpenAITranscribe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/audio/transcriptions") {
			http.NotFound(w, r)
			return
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Errorf("Authorization = %q", got)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("multipart: %v", err)
		}
		if got := r.FormValue("response_format"); got != "verbose_json" {
			t.Errorf("response_format = %q; want verbose_json", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
  "task": "transcribe",
  "language": "english",
  "duration": 3.0,
  "text": "Hello world",
  "segments": [
    {"id": 0, "seek": 0, "start": 0.0, "end": 1.4, "text": " Hello", "tokens": [], "temperature": 0, "avg_logprob": 0, "compression_ratio": 0, "no_speech_prob": 0, "transient": false},
    {"id": 1, "seek": 0, "start": 1.4, "end": 3.0, "text": " world", "tokens": [], "temperature": 0, "avg_logprob": 0, "compression_ratio": 0, "no_speech_prob": 0, "transient": false}
  ]
}`))
	}))
	defer srv.Close()

	o, err := NewOpenAI(config.OpenAIConfig{APIKey: "sk-test", BaseURL: srv.URL + "/v1"})
	if err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(t.TempDir(), "audio.wav")
	if err := os.WriteFile(path, []byte("RIFF"), 0600); err != nil {
		t.Fatal(err)
	}

	res, err := o.Transcribe(context.Background(), path, Options{BeamSize: 5})
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if res.Language != "english" {
		t.Errorf("Language = %q", res.Language)
	}
	if len(res.Segments) != 2 || res.Segments[1].Start != 1.4 || res.Segments[1].Text != " world" {
		t.Errorf("Segments = %+v", res.Segments)
	}
}
