package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/OpenTraceLab/schedit/internal/config"
	"github.com/OpenTraceLab/schedit/internal/logging"
	"github.com/OpenTraceLab/schedit/pkg/kicad/editor"
)

const version = "0.1.0"

var (
	// Global flags
	verbose    bool
	configPath string
	jsonOutput bool

	cfg    *config.Config
	logger *zap.Logger
	ed     *editor.Editor
)

var rootCmd = &cobra.Command{
	Use:   "schedit",
	Short: "schedit - Edit KiCad schematics from the command line",
	Long: `schedit edits KiCad schematic files (.kicad_sch) in place:
  - place library symbols at exact, grid, relative or group positions
  - delete symbols, wires, junctions and labels
  - draw wires and labels, and generate small circuits
  - export through kicad-cli, or serve every operation over MCP

Examples:
  schedit new amp --dir ./hw                                  # Create an empty schematic
  schedit add hw/amp.kicad_sch --lib Device:R --ref R1 --value 10k --x 100 --y 50
  schedit add-relative hw/amp.kicad_sch --lib Device:C --ref C1 --value 100n --anchor R1 --direction below
  schedit delete hw/amp.kicad_sch R1 C1                        # Delete symbols
  schedit serve                                               # MCP server on stdio`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		logger, err = logging.New(logging.Options{
			Level:   cfg.Logging.Level,
			Format:  cfg.Logging.Format,
			Verbose: verbose,
		})
		if err != nil {
			return err
		}
		ed = editor.New(cfg.EditorOptions(), logger)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

// Execute runs the root command
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", defaultConfigPath(), "config file")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "print results as JSON")
}

// defaultConfigPath is $XDG_CONFIG_HOME/schedit/config.yaml or its
// platform equivalent. A missing file means defaults.
func defaultConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "schedit", "config.yaml")
}
