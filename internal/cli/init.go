package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/guiyumin/vscribe/internal/core/config"
)

var initDefaults bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create vscribe config file",
	Long: `Create the vscribe config file. On a terminal an interactive wizard asks
for the engine, model and server port; use --defaults to skip it.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if config.Exists() {
			return fmt.Errorf("%s already exists", config.SavePath())
		}

		cfg := config.DefaultConfig()
		if !initDefaults && term.IsTerminal(int(os.Stdin.Fd())) {
			var err error
			if cfg, err = runInitWizard(cfg); err != nil {
				return err
			}
		}

		if err := config.Save(cfg); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Saved %s\n", config.SavePath())
		return nil
	},
}

func init() {
	initCmd.Flags().BoolVar(&initDefaults, "defaults", false, "write defaults without asking")
	rootCmd.AddCommand(initCmd)
}
