package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"reposcope/internal/config"
	"reposcope/internal/logging"
	"reposcope/internal/mcp"
	"reposcope/internal/version"
)

var toolsJSONFlag bool

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "List the MCP tools this server exposes",
	Args:  cobra.NoArgs,
	RunE:  runTools,
}

func init() {
	toolsCmd.Flags().BoolVar(&toolsJSONFlag, "json", false, "Output as JSON")
	rootCmd.AddCommand(toolsCmd)
}

func runTools(cmd *cobra.Command, args []string) error {
	// Tool definitions are static; no database needed.
	server := mcp.NewMCPServer(version.Version, config.DefaultConfig(), "", nil, logging.NewDiscardLogger())
	tools := server.ToolDefinitions()

	if toolsJSONFlag {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(tools)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tDESCRIPTION")
	for _, tool := range tools {
		fmt.Fprintf(w, "%s\t%s\n", tool.Name, tool.Description)
	}
	return w.Flush()
}
