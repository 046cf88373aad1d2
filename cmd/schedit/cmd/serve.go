package cmd

import (
	"github.com/spf13/cobra"

	"github.com/OpenTraceLab/schedit/internal/mcpserver"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve every operation as MCP tools on stdio",
	Long: `Run an MCP server on stdin/stdout. Each editor operation is one tool;
replies are JSON results. Logs go to stderr.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return mcpserver.New(ed, version, logger.Named("mcp")).Run(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
