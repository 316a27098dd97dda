package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/guiyumin/vscribe/internal/core/config"
	"github.com/guiyumin/vscribe/internal/core/logging"
	"github.com/guiyumin/vscribe/internal/server"
)

var (
	servePort int
	serveHost string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the transcription HTTP server",
	Long: `Start an HTTP server that transcribes videos on request.

Examples:
  vscribe serve                  # Listen on 127.0.0.1:8000
  vscribe serve -p 9000          # Listen on port 9000
  vscribe serve --host 0.0.0.0   # Listen on all interfaces

API Endpoints:
  GET  /health                   # Liveness probe
  POST /transcribe/:video_id     # Transcribe a video
  GET  /jobs                     # In-flight transcriptions`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe()
	},
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, fmt.Sprintf("HTTP listen port (default: %d)", config.DefaultPort))
	serveCmd.Flags().StringVar(&serveHost, "host", "", fmt.Sprintf("HTTP listen address (default: %s)", config.DefaultHost))

	rootCmd.AddCommand(serveCmd)
}

func runServe() error {
	cfg, err := loadConfig(func(cfg *config.Config) {
		if servePort > 0 {
			cfg.Server.Port = servePort
		}
		if serveHost != "" {
			cfg.Server.Host = serveHost
		}
	})
	if err != nil {
		return err
	}

	log := logging.Setup(cfg.Log)
	if !config.Exists() {
		log.Warn().Msg("no config file found, using defaults; run 'vscribe init' to create one")
	}

	// The model is loaded once here and shared by every request.
	a, err := newApp(cfg, log)
	if err != nil {
		return err
	}

	srv := server.NewServer(cfg.Server, a.pipeline, log)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.Info().Msg("shutting down server")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Stop(ctx); err != nil {
			log.Error().Err(err).Msg("server shutdown")
		}
	}()

	fmt.Fprintln(os.Stderr, color.GreenString("vscribe listening on http://%s (engine: %s)", srv.Addr(), a.engine.Name()))

	serveErr := srv.Start()
	if err := a.Close(); err != nil {
		log.Error().Err(err).Msg("engine close")
	}
	return serveErr
}
