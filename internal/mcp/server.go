package mcp

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"

	"reposcope/internal/audit"
	"reposcope/internal/config"
	"reposcope/internal/project"
	"reposcope/internal/scope"
	"reposcope/internal/storage"
)

// MCPServer speaks JSON-RPC 2.0 over stdio and dispatches tool calls.
// All responses go to stdout; logging must never touch it.
type MCPServer struct {
	stdin   io.Reader
	stdout  io.Writer
	scanner *bufio.Scanner
	logger  *slog.Logger
	version string
	cfg     *config.Config

	projects *project.Store
	scopes   *scope.Store
	trail    *audit.Trail

	tools map[string]ToolHandler
}

// NewMCPServer creates an MCP server wired to the instance database and
// the per-project scope store under home.
func NewMCPServer(version string, cfg *config.Config, home string, db *storage.DB, logger *slog.Logger) *MCPServer {
	server := &MCPServer{
		stdin:    os.Stdin,
		stdout:   os.Stdout,
		logger:   logger,
		version:  version,
		cfg:      cfg,
		projects: project.NewStore(db),
		scopes:   scope.NewStore(home),
		trail:    audit.NewTrail(db, logger, cfg.Audit.Enabled),
	}

	server.RegisterTools()

	return server
}

// Trail exposes the audit trail of this server run.
func (s *MCPServer) Trail() *audit.Trail {
	return s.trail
}

// Start starts the MCP server and begins processing messages
func (s *MCPServer) Start() error {
	s.logger.Info("MCP server starting",
		"version", s.version,
		"runId", s.trail.RunID(),
	)

	if s.cfg.Audit.Enabled {
		if err := s.trail.Purge(s.cfg.Audit.RetentionDays); err != nil {
			s.logger.Warn("audit purge failed", "error", err.Error())
		}
	}

	// Main message loop
	for {
		msg, err := s.readMessage()
		if err != nil {
			if err == io.EOF {
				s.logger.Info("MCP server shutting down (EOF)")
				return nil
			}
			s.logger.Error("Error reading message",
				"error", err.Error(),
			)

			// Try to send error response if we can extract an ID
			if msg != nil && msg.Id != nil {
				_ = s.writeError(msg.Id, ParseError, fmt.Sprintf("Failed to parse message: %v", err))
			}
			continue
		}

		response := s.handleMessage(msg)

		// Notifications don't generate responses
		if response != nil {
			if err := s.writeMessage(response); err != nil {
				s.logger.Error("Error writing response",
					"error", err.Error(),
				)
			}
		}
	}
}

// SetStdin sets the input stream (for testing)
func (s *MCPServer) SetStdin(r io.Reader) {
	s.stdin = r
	s.scanner = nil // Reset scanner so it will be recreated with new reader
}

// SetStdout sets the output stream (for testing)
func (s *MCPServer) SetStdout(w io.Writer) {
	s.stdout = w
}
