package mcp

import (
	"bufio"
	"context"
	"io"
	"log/slog"
	"os"
	"sort"
	"sync"

	"subagents/internal/config"
	"subagents/internal/research"
	"subagents/internal/version"
)

// MCPServer serves the research tools over newline-delimited JSON-RPC.
// Messages are handled one at a time in arrival order.
type MCPServer struct {
	stdin   io.Reader
	stdout  io.Writer
	scanner *bufio.Scanner
	writeMu sync.Mutex
	logger  *slog.Logger
	version string

	cfg      *config.Config
	research *research.Service
	tools    map[string]*tool
}

// NewMCPServer creates a server over os.Stdin and os.Stdout.
func NewMCPServer(cfg *config.Config, svc *research.Service, logger *slog.Logger) *MCPServer {
	server := &MCPServer{
		stdin:    os.Stdin,
		stdout:   os.Stdout,
		logger:   logger,
		version:  version.Version,
		cfg:      cfg,
		research: svc,
	}
	server.registerTools()
	return server
}

// SetStdin sets the input stream (for testing)
func (s *MCPServer) SetStdin(r io.Reader) {
	s.stdin = r
	s.scanner = nil
}

// SetStdout sets the output stream (for testing)
func (s *MCPServer) SetStdout(w io.Writer) {
	s.stdout = w
}

// ToolNames returns the registered tool names, sorted.
func (s *MCPServer) ToolNames() []string {
	names := make([]string, 0, len(s.tools))
	for name := range s.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// inbound is one line read from stdin, or the error that ended reading.
type inbound struct {
	line []byte
	err  error
}

// Start processes messages until stdin is exhausted or ctx is done. Reading
// happens on its own goroutine so a canceled ctx does not wait for input; a
// tool call still running sees the cancellation through its context.
func (s *MCPServer) Start(ctx context.Context) error {
	s.logger.Info("MCP server starting",
		"version", version.Short(),
		"tools", s.ToolNames(),
		"roots", len(s.cfg.Roots),
	)

	if ctx.Err() != nil {
		s.logger.Info("MCP server shutting down", "reason", context.Cause(ctx).Error())
		return nil
	}

	lines := make(chan inbound)
	go func() {
		for {
			line, err := s.readLine()
			select {
			case lines <- inbound{line: line, err: err}:
			case <-ctx.Done():
				return
			}
			if err != nil {
				return
			}
		}
	}()

	for {
		var in inbound
		select {
		case <-ctx.Done():
			s.logger.Info("MCP server shutting down", "reason", context.Cause(ctx).Error())
			return nil
		case in = <-lines:
		}

		if in.err != nil {
			if in.err == io.EOF {
				s.logger.Info("MCP server shutting down (EOF)")
				return nil
			}
			s.logger.Error("Error reading message", "error", in.err.Error())
			return in.err
		}

		msg, errResp := decodeMessage(in.line)
		response := errResp
		if msg != nil {
			response = s.handleMessage(ctx, msg)
		}

		// Notifications don't generate responses
		if response != nil {
			if err := s.writeMessage(response); err != nil {
				s.logger.Error("Error writing response", "error", err.Error())
			}
		}
	}
}
