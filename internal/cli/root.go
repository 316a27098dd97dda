package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/guiyumin/vscribe/internal/core/ai/transcriber"
	"github.com/guiyumin/vscribe/internal/core/config"
	"github.com/guiyumin/vscribe/internal/core/logging"
	"github.com/guiyumin/vscribe/internal/core/version"
)

// Output formats for the one-shot command.
const (
	FormatJSON     = "json"
	FormatText     = "text"
	FormatSRT      = "srt"
	FormatMarkdown = "md"
)

var (
	configFile string
	logLevel   string

	format     string
	language   string
	outputFile string
	noTUI      bool
)

var rootCmd = &cobra.Command{
	Use:   "vscribe <video-id>",
	Short: "Transcribe the audio of online videos with whisper",
	Long: `vscribe downloads the audio track of a video, runs speech recognition
over it and prints a time-aligned transcript.

Examples:
  vscribe dQw4w9WgXcQ                 # JSON transcript
  vscribe dQw4w9WgXcQ --format srt    # SubRip subtitles
  vscribe dQw4w9WgXcQ -f md -o t.md   # Markdown transcript file
  vscribe serve                       # HTTP API on 127.0.0.1:8000`,
	Version:       version.Version,
	Args:          cobra.MaximumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if configFile != "" {
			return os.Setenv(config.EnvConfigPath, configFile)
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			return cmd.Help()
		}
		return runTranscribe(cmd.Context(), args[0], cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default: ~/.config/vscribe/config.yml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")

	rootCmd.Flags().StringVarP(&format, "format", "f", FormatJSON, "output format: json, text, srt or md")
	rootCmd.Flags().StringVarP(&outputFile, "output", "o", "", "write the transcript to a file instead of stdout")
	rootCmd.Flags().StringVarP(&language, "language", "l", "", "spoken language code (default: auto-detect)")
	rootCmd.Flags().BoolVar(&noTUI, "plain", false, "disable the progress spinner")
}

// Execute runs the root command and reports errors on stderr.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("Error: %v", err))
	}
	return err
}

func runTranscribe(ctx context.Context, videoID string, out io.Writer) error {
	if err := checkFormat(format); err != nil {
		return err
	}

	cfg, err := loadConfig(func(cfg *config.Config) {
		if language != "" {
			cfg.ASR.Language = language
		}
	})
	if err != nil {
		return err
	}

	interactive := !noTUI && term.IsTerminal(int(os.Stderr.Fd()))

	// The spinner owns the terminal; logs would tear it.
	log := zerolog.Nop()
	if !interactive {
		log = logging.Setup(cfg.Log)
	}

	if !config.Exists() {
		fmt.Fprintln(os.Stderr, color.YellowString("No config file found, using defaults. Run 'vscribe init' to create one."))
	}

	a, err := newApp(cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	var res *transcriber.Result
	if interactive {
		res, err = runTranscribeWithSpinner(ctx, a.pipeline, videoID)
	} else {
		fmt.Fprintln(os.Stderr, color.CyanString("Transcribing %s with %s...", videoID, a.engine.Name()))
		res, err = a.pipeline.Handle(ctx, videoID)
	}
	if err != nil {
		return err
	}
	if res == nil {
		return errors.New("transcription cancelled")
	}

	meta := transcriptMeta{VideoID: videoID, URL: a.fetcher.URL(videoID)}
	if outputFile == "" {
		return writeResult(out, res, format, meta)
	}

	f, err := os.Create(outputFile)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	if err := writeResult(f, res, format, meta); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Fprintln(os.Stderr, color.GreenString("Saved %s", outputFile))
	return nil
}

func checkFormat(f string) error {
	switch f {
	case FormatJSON, FormatText, FormatSRT, FormatMarkdown:
		return nil
	default:
		return fmt.Errorf("unknown format %q (want json, text, srt or md)", f)
	}
}
