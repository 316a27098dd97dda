//go:build !cgo

package transcriber

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/guiyumin/vscribe/internal/core/config"
	"github.com/guiyumin/vscribe/internal/core/logging"
)

// WhisperRunner transcribes audio using the whisper.cpp CLI binary.
// This is used when CGO is disabled (CGO_ENABLED=0).
type WhisperRunner struct {
	binaryPath string
	modelPath  string
	threads    int
	log        zerolog.Logger
}

// NewWhisperRunner creates a new whisper runner.
func NewWhisperRunner(binary, modelPath string, threads int, log zerolog.Logger) (*WhisperRunner, error) {
	if _, err := os.Stat(modelPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("whisper model not found: %s", modelPath)
	}

	if binary == "" {
		binary = "whisper-cli"
	}
	binaryPath, err := exec.LookPath(binary)
	if err != nil {
		return nil, fmt.Errorf("whisper.cpp binary %q not found: %w", binary, err)
	}

	return &WhisperRunner{
		binaryPath: binaryPath,
		modelPath:  modelPath,
		threads:    threadCount(threads),
		log:        logging.Component(log, "engine"),
	}, nil
}

// NewLocal resolves the configured model and the whisper.cpp binary.
func NewLocal(cfg config.ASRConfig, log zerolog.Logger) (Transcriber, error) {
	modelPath, err := NewModelManager(cfg.ModelsDir).EnsureModel(context.Background(), cfg.Model)
	if err != nil {
		return nil, err
	}
	return NewWhisperRunner(cfg.WhisperCLI, modelPath, cfg.Threads, log)
}

// Name returns the provider name.
func (w *WhisperRunner) Name() string {
	return "whisper.cpp"
}

// Transcribe converts an audio file to text using whisper.cpp CLI.
func (w *WhisperRunner) Transcribe(ctx context.Context, audioPath string, opts Options) (*Result, error) {
	tmpDir, err := os.MkdirTemp("", "whisper-output-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp directory: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	outputBase := filepath.Join(tmpDir, "output")
	args := w.buildArgs(audioPath, outputBase, opts)

	w.log.Debug().Str("command", w.binaryPath+" "+strings.Join(args, " ")).Msg("running whisper.cpp")

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, w.binaryPath, args...)
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("whisper failed: %w: %s", err, strings.TrimSpace(lastLines(stderr.String(), 3)))
	}

	content, err := os.ReadFile(outputBase + ".json")
	if err != nil {
		return nil, fmt.Errorf("failed to read output: %w", err)
	}

	return parseWhisperJSON(content)
}

func (w *WhisperRunner) buildArgs(audioPath, outputBase string, opts Options) []string {
	language := opts.Language
	if language == "" {
		language = "auto"
	}
	return []string{
		"-m", w.modelPath,
		"-f", audioPath,
		"-bs", strconv.Itoa(beamSize(opts.BeamSize)),
		"-t", strconv.Itoa(w.threads),
		"-l", language,
		"-oj",
		"-of", outputBase,
		"-np",
	}
}

// Close is a no-op for the runner.
func (w *WhisperRunner) Close() error {
	return nil
}

func lastLines(s string, n int) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}
