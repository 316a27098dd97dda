// Package transcriber provides speech-to-text transcription.
package transcriber

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/guiyumin/vscribe/internal/core/config"
)

// ErrTranscription wraps every failure raised by a recognition engine.
var ErrTranscription = errors.New("transcription failed")

// DefaultBeamSize is the decoder beam width used when none is given.
const DefaultBeamSize = 5

// UnknownLanguage is reported when the engine does not detect a language.
const UnknownLanguage = "unknown"

// Segment represents a timestamped portion of transcript, in seconds.
type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// Result contains the transcription output.
type Result struct {
	Segments []Segment     `json:"segments"`
	Language string        `json:"language"`
	Duration time.Duration `json:"-"` // Audio duration, when known
}

// Options tune a single Transcribe call.
type Options struct {
	// BeamSize is the decoder beam width; values <= 0 mean DefaultBeamSize.
	BeamSize int

	// Language forces the spoken language; "" or "auto" detects it.
	Language string
}

// Transcriber converts audio to text.
type Transcriber interface {
	// Transcribe converts a 16 kHz mono WAV file to segments. The returned
	// Result is fully materialized and independent of the engine.
	Transcribe(ctx context.Context, audioPath string, opts Options) (*Result, error)

	// Name returns the provider name.
	Name() string

	// Close releases the engine.
	Close() error
}

// New creates the process-wide engine selected by cfg.ASR.Engine, already
// wrapped so that calls are serialized.
func New(cfg *config.Config, log zerolog.Logger) (*Serialized, error) {
	var (
		t   Transcriber
		err error
	)

	switch cfg.ASR.Engine {
	case config.EngineOpenAI:
		t, err = NewOpenAI(cfg.OpenAI)
	case config.EngineWhisper, "":
		t, err = NewLocal(cfg.ASR, log)
	default:
		return nil, fmt.Errorf("unsupported transcription engine: %s", cfg.ASR.Engine)
	}
	if err != nil {
		return nil, err
	}

	return NewSerialized(t, log), nil
}

// FormattedText returns the transcript with timestamps in format [HH:MM:SS] Text
func (r *Result) FormattedText() string {
	var b strings.Builder
	for _, seg := range r.Segments {
		fmt.Fprintf(&b, "[%s] %s\n", formatTimestamp(seg.Start), seg.Text)
	}
	return b.String()
}

// SRT renders the segments as a SubRip subtitle file.
func (r *Result) SRT() string {
	var b strings.Builder
	for i, seg := range r.Segments {
		fmt.Fprintf(&b, "%d\n%s --> %s\n%s\n\n", i+1, formatSRTTime(seg.Start), formatSRTTime(seg.End), seg.Text)
	}
	return b.String()
}

// formatTimestamp converts seconds to HH:MM:SS format
func formatTimestamp(sec float64) string {
	d := time.Duration(sec * float64(time.Second))
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

func formatSRTTime(sec float64) string {
	ms := int64(sec*1000 + 0.5)
	h := ms / 3600000
	m := (ms / 60000) % 60
	s := (ms / 1000) % 60
	return fmt.Sprintf("%02d:%02d:%02d,%03d", h, m, s, ms%1000)
}

// finalize normalizes engine output: trimmed non-empty text, End >= Start,
// chronological order, a non-nil slice and a non-empty language.
func finalize(res *Result) *Result {
	out := &Result{
		Segments: make([]Segment, 0, len(res.Segments)),
		Language: strings.TrimSpace(res.Language),
		Duration: res.Duration,
	}
	if out.Language == "" || out.Language == "auto" {
		out.Language = UnknownLanguage
	}

	for _, seg := range res.Segments {
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			continue
		}
		if seg.Start < 0 {
			seg.Start = 0
		}
		if seg.End < seg.Start {
			seg.End = seg.Start
		}
		seg.Text = text
		out.Segments = append(out.Segments, seg)
	}

	sort.SliceStable(out.Segments, func(i, j int) bool {
		return out.Segments[i].Start < out.Segments[j].Start
	})

	return out
}

// threadCount returns configured threads or NumCPU capped at 8.
func threadCount(configured int) int {
	if configured > 0 {
		return configured
	}
	n := runtime.NumCPU()
	if n > 8 {
		n = 8
	}
	return n
}

func beamSize(n int) int {
	if n <= 0 {
		return DefaultBeamSize
	}
	return n
}
