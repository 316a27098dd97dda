package audio

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"path/filepath"
	"strings"

	"codeberg.org/gruf/go-ffmpreg/ffmpreg"
	"codeberg.org/gruf/go-ffmpreg/wasm"
	"github.com/tetratelabs/wazero"
)

// ResolveFFmpeg returns the configured ffmpeg binary, or the one on PATH,
// or "" when neither is usable.
func ResolveFFmpeg(configured string) string {
	name := configured
	if name == "" {
		name = "ffmpeg"
	}
	path, err := exec.LookPath(name)
	if err != nil {
		return ""
	}
	return path
}

// ffmpegArgs converts any input to 16 kHz mono 16-bit PCM WAV.
func ffmpegArgs(input, output string) []string {
	return []string{
		"-nostdin",
		"-i", input,
		"-vn",
		"-ar", "16000",
		"-ac", "1",
		"-c:a", "pcm_s16le",
		"-y",
		output,
	}
}

// convertWithFFmpeg runs the system ffmpeg.
func convertWithFFmpeg(ctx context.Context, ffmpegPath, input, output string) error {
	cmd := exec.CommandContext(ctx, ffmpegPath, ffmpegArgs(input, output)...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("ffmpeg conversion failed: %w\n%s", err, string(out))
	}
	return nil
}

// convertWithWASM uses the embedded ffmpeg WASM build.
func convertWithWASM(ctx context.Context, input, output string) error {
	absInput, err := filepath.Abs(input)
	if err != nil {
		return err
	}
	absOutput, err := filepath.Abs(output)
	if err != nil {
		return err
	}

	inputDir := filepath.Dir(absInput)
	outputDir := filepath.Dir(absOutput)

	var stderr bytes.Buffer
	args := wasm.Args{
		Stderr: &stderr,
		Stdout: io.Discard,
		Args:   ffmpegArgs(absInput, absOutput),
		Config: func(cfg wazero.ModuleConfig) wazero.ModuleConfig {
			fsCfg := wazero.NewFSConfig().WithDirMount(inputDir, inputDir)
			if outputDir != inputDir {
				fsCfg = fsCfg.WithDirMount(outputDir, outputDir)
			}
			return cfg.WithFSConfig(fsCfg)
		},
	}

	rc, err := ffmpreg.Ffmpeg(ctx, args)
	if err != nil {
		return fmt.Errorf("embedded ffmpeg failed: %w", err)
	}
	if rc != 0 {
		return fmt.Errorf("embedded ffmpeg exited with code %d: %s", rc, lastLine(stderr.String()))
	}
	return nil
}

func lastLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}
