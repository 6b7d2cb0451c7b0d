package main

import (
	"os"

	"github.com/spf13/cobra"

	"reposcope/internal/logging"
	"reposcope/internal/mcp"
	"reposcope/internal/version"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server on stdio",
	Long: `Start the Model Context Protocol (MCP) server.

The server communicates via stdio using JSON-RPC 2.0. All tool
responses go to stdout; logs go to stderr. This command is typically
invoked by an MCP client, not directly by users.

Example client registration:
  reposcope serve`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.close()

	// stdout carries the protocol, so logs go to a file under the
	// instance home, falling back to stderr.
	level := logging.LevelFromVerbosity(verboseFlag, quietFlag)
	logger, logFile, err := logging.NewFileLogger(e.home, "mcp", level, "json")
	if err != nil {
		logger = logging.New(os.Stderr, level, "json")
	} else {
		defer logFile.Close()
	}

	server := mcp.NewMCPServer(version.Version, e.cfg, e.home, e.db, logger)

	if err := server.Start(); err != nil {
		logger.Error("MCP server error", "error", err.Error())
		return err
	}
	return nil
}
