package cli

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/guiyumin/vscribe/internal/core/ai/transcriber"
)

var modelsRemote bool

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List and download whisper models",
	Long: `List downloaded whisper.cpp models, or every model vscribe knows how to
download with -r/--remote.

Examples:
  vscribe models                  # Downloaded models
  vscribe models -r               # Models available for download
  vscribe models download small   # Fetch ggml-small.bin`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(nil)
		if err != nil {
			return err
		}
		mm := transcriber.NewModelManager(cfg.ASR.ModelsDir)
		out := cmd.OutOrStdout()
		hintStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("214"))

		if modelsRemote {
			fmt.Fprintln(out, "Available models:")
			fmt.Fprintln(out)
			for _, m := range mm.ListAvailableModels() {
				downloaded := ""
				if m.Downloaded {
					downloaded = " [downloaded]"
				}
				fmt.Fprintf(out, "  %-16s %8s  %s%s\n", m.Name, m.Size, m.Description, downloaded)
			}
			fmt.Fprintln(out)
			fmt.Fprintln(out, hintStyle.Render("Download one with: vscribe models download <name>"))
			return nil
		}

		downloaded := mm.ListDownloadedModels()
		if len(downloaded) == 0 {
			fmt.Fprintf(out, "No models in %s\n\n", cfg.ASR.ModelsDir)
			fmt.Fprintln(out, hintStyle.Render("See available models with: vscribe models -r"))
			return nil
		}

		fmt.Fprintln(out, "Downloaded models:")
		fmt.Fprintln(out)
		for _, name := range downloaded {
			fmt.Fprintf(out, "  %s\n", name)
		}
		return nil
	},
}

var modelsDownloadCmd = &cobra.Command{
	Use:   "download <model>",
	Short: "Download a whisper model",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(nil)
		if err != nil {
			return err
		}
		if transcriber.GetModel(args[0]) == nil {
			return fmt.Errorf("unknown model %q; run 'vscribe models -r' to list models", args[0])
		}

		mm := transcriber.NewModelManager(cfg.ASR.ModelsDir)
		if mm.IsModelDownloaded(args[0]) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s is already downloaded: %s\n", args[0], mm.ModelPath(args[0]))
			return nil
		}

		fmt.Fprintln(cmd.ErrOrStderr(), color.CyanString("Downloading %s...", args[0]))
		path, err := mm.EnsureModel(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), color.GreenString("Saved %s", path))
		return nil
	},
}

func init() {
	modelsCmd.Flags().BoolVarP(&modelsRemote, "remote", "r", false, "list models available for download")
	modelsCmd.AddCommand(modelsDownloadCmd)
	rootCmd.AddCommand(modelsCmd)
}
