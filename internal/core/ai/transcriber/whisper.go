//go:build cgo

package transcriber

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"
	"github.com/rs/zerolog"

	"github.com/guiyumin/vscribe/internal/core/audio"
	"github.com/guiyumin/vscribe/internal/core/config"
	"github.com/guiyumin/vscribe/internal/core/logging"
)

// WhisperTranscriber implements Transcriber using whisper.cpp.
type WhisperTranscriber struct {
	model     whisper.Model
	modelPath string
	threads   uint
	log       zerolog.Logger
}

// NewWhisperTranscriber loads the model at modelPath.
func NewWhisperTranscriber(modelPath string, threads int, log zerolog.Logger) (*WhisperTranscriber, error) {
	if _, err := os.Stat(modelPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("whisper model not found: %s", modelPath)
	}

	model, err := whisper.New(modelPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load whisper model: %w", err)
	}

	return &WhisperTranscriber{
		model:     model,
		modelPath: modelPath,
		threads:   uint(threadCount(threads)),
		log:       logging.Component(log, "engine"),
	}, nil
}

// NewLocal loads the configured whisper.cpp model, downloading it first
// when it is a known model that is not yet on disk.
func NewLocal(cfg config.ASRConfig, log zerolog.Logger) (Transcriber, error) {
	modelPath, err := NewModelManager(cfg.ModelsDir).EnsureModel(context.Background(), cfg.Model)
	if err != nil {
		return nil, err
	}
	return NewWhisperTranscriber(modelPath, cfg.Threads, log)
}

// Name returns the provider name.
func (w *WhisperTranscriber) Name() string {
	return "whisper.cpp"
}

// Transcribe runs whisper.cpp on a 16 kHz mono WAV file. Segments are
// drained from the whisper context before it goes out of scope.
func (w *WhisperTranscriber) Transcribe(ctx context.Context, audioPath string, opts Options) (*Result, error) {
	samples, sampleRate, err := audio.ReadWAV(audioPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read audio: %w", err)
	}
	samples = audio.ResampleTo16kHz(samples, sampleRate)

	wctx, err := w.model.NewContext()
	if err != nil {
		return nil, fmt.Errorf("failed to create whisper context: %w", err)
	}

	language := opts.Language
	if language == "" {
		language = "auto"
	}
	if err := wctx.SetLanguage(language); err != nil {
		return nil, fmt.Errorf("failed to set language: %w", err)
	}
	wctx.SetBeamSize(beamSize(opts.BeamSize))
	wctx.SetThreads(w.threads)

	w.log.Debug().
		Str("model", w.modelPath).
		Int("beam_size", beamSize(opts.BeamSize)).
		Int("samples", len(samples)).
		Msg("processing audio")

	// Process audio (callbacks: encoder begin, segment, progress)
	if err := wctx.Process(samples, nil, nil, nil); err != nil {
		return nil, fmt.Errorf("failed to process audio: %w", err)
	}

	segments := make([]Segment, 0)
	for {
		segment, err := wctx.NextSegment()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to get segment: %w", err)
		}

		segments = append(segments, Segment{
			Start: segment.Start.Seconds(),
			End:   segment.End.Seconds(),
			Text:  segment.Text,
		})
	}

	detected := wctx.DetectedLanguage()
	if detected == "" {
		detected = language
	}

	return &Result{
		Segments: segments,
		Language: detected,
		Duration: time.Duration(float64(len(samples)) / audio.TargetSampleRate * float64(time.Second)),
	}, nil
}

// Close releases the model resources.
func (w *WhisperTranscriber) Close() error {
	if w.model != nil {
		return w.model.Close()
	}
	return nil
}
