// Package audio resolves a video id to normalized 16 kHz mono WAV bytes.
package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/guiyumin/vscribe/internal/core/config"
	"github.com/guiyumin/vscribe/internal/core/logging"
)

// ErrAcquisition wraps every retrieval or transcoding failure.
var ErrAcquisition = errors.New("audio acquisition failed")

// outputStem is the fixed base name yt-dlp writes to inside the work dir.
const outputStem = "audio"

var videoIDRe = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// ValidVideoID reports whether id can be safely substituted into the URL
// template and passed to yt-dlp.
func ValidVideoID(id string) bool {
	return videoIDRe.MatchString(id)
}

// Fetcher resolves a video id to decoded audio.
type Fetcher interface {
	// Fetch returns 16 kHz mono 16-bit PCM WAV bytes for id.
	Fetch(ctx context.Context, id string) ([]byte, error)
}

// YtdlpFetcher fetches audio with yt-dlp into a per-call work directory.
type YtdlpFetcher struct {
	ytdlpPath   string
	ffmpegPath  string
	urlTemplate string
	format      string
	extraArgs   []string
	tempDir     string
	log         zerolog.Logger
}

// NewYtdlpFetcher creates a fetcher from config. tempDir may be empty
// for the system default.
func NewYtdlpFetcher(cfg config.FetcherConfig, tempDir string, log zerolog.Logger) *YtdlpFetcher {
	ytdlp := cfg.YtdlpPath
	if ytdlp == "" {
		ytdlp = "yt-dlp"
	}
	tmpl := cfg.URLTemplate
	if tmpl == "" {
		tmpl = config.DefaultURLTemplate
	}
	format := cfg.Format
	if format == "" {
		format = config.DefaultAudioFormat
	}

	return &YtdlpFetcher{
		ytdlpPath:   ytdlp,
		ffmpegPath:  ResolveFFmpeg(cfg.FFmpegPath),
		urlTemplate: tmpl,
		format:      format,
		extraArgs:   cfg.ExtraArgs,
		tempDir:     tempDir,
		log:         logging.Component(log, "fetcher"),
	}
}

// URL returns the remote URL for id.
func (f *YtdlpFetcher) URL(id string) string {
	return fmt.Sprintf(f.urlTemplate, id)
}

// Fetch downloads the best audio-only stream for id and normalizes it.
// The work directory and any partial downloads are removed before return.
func (f *YtdlpFetcher) Fetch(ctx context.Context, id string) ([]byte, error) {
	if !ValidVideoID(id) {
		return nil, fmt.Errorf("%w: invalid video id %q", ErrAcquisition, id)
	}

	workDir, err := os.MkdirTemp(f.tempDir, "vscribe-fetch-*")
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create work directory: %v", ErrAcquisition, err)
	}
	defer func() {
		if err := os.RemoveAll(workDir); err != nil {
			f.log.Warn().Err(err).Str("dir", workDir).Msg("could not remove work directory")
		}
	}()

	url := f.URL(id)
	args := f.buildArgs(url, workDir)
	f.log.Debug().Str(logging.FieldVideoID, id).Str("command", f.ytdlpPath+" "+strings.Join(args, " ")).Msg("running yt-dlp")

	start := time.Now()
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, f.ytdlpPath, args...)
	cmd.Stdout = io.Discard
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("%w: yt-dlp: %s", ErrAcquisition, describeFailure(err, stderr.String()))
	}

	outPath, err := findOutput(workDir)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAcquisition, err)
	}

	data, err := Normalize(ctx, outPath, workDir, f.ffmpegPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAcquisition, err)
	}

	f.log.Debug().
		Str(logging.FieldVideoID, id).
		Str("source", filepath.Ext(outPath)).
		Int("bytes", len(data)).
		Dur("elapsed", time.Since(start)).
		Msg("audio normalized")

	return data, nil
}

func (f *YtdlpFetcher) buildArgs(url, workDir string) []string {
	args := []string{
		"-f", f.format,
		"--no-playlist",
		"--no-progress",
		"--quiet",
		"--no-warnings",
		"-o", filepath.Join(workDir, outputStem+".%(ext)s"),
	}

	// With ffmpeg on hand yt-dlp extracts straight to 16 kHz mono WAV;
	// otherwise the raw stream is normalized in-process.
	if f.ffmpegPath != "" {
		args = append(args,
			"-x",
			"--audio-format", "wav",
			"--ffmpeg-location", f.ffmpegPath,
			"--postprocessor-args", "ExtractAudio+ffmpeg_o:-ar 16000 -ac 1 -c:a pcm_s16le",
		)
	}

	args = append(args, f.extraArgs...)
	return append(args, "--", url)
}

// findOutput returns the single finished file yt-dlp wrote for outputStem.
func findOutput(workDir string) (string, error) {
	entries, err := os.ReadDir(workDir)
	if err != nil {
		return "", fmt.Errorf("failed to read work directory: %w", err)
	}

	var candidates []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, outputStem+".") {
			continue
		}
		switch strings.ToLower(filepath.Ext(name)) {
		case ".part", ".ytdl", ".temp", ".tmp":
			continue
		}
		candidates = append(candidates, name)
	}

	if len(candidates) == 0 {
		return "", fmt.Errorf("yt-dlp finished but produced no audio file")
	}

	sort.Strings(candidates)
	for _, name := range candidates {
		if strings.EqualFold(filepath.Ext(name), ".wav") {
			return filepath.Join(workDir, name), nil
		}
	}
	return filepath.Join(workDir, candidates[0]), nil
}

// describeFailure keeps the tail of yt-dlp's stderr, which carries the
// human-readable reason (e.g. "ERROR: [youtube] x: Video unavailable").
func describeFailure(err error, stderr string) string {
	var lines []string
	for _, line := range strings.Split(stderr, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	if len(lines) == 0 {
		return err.Error()
	}
	if len(lines) > 5 {
		lines = lines[len(lines)-5:]
	}
	return strings.Join(lines, "; ")
}
