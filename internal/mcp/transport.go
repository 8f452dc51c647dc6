package mcp

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
)

// MaxMessageSize is the maximum size for a single MCP message (1MB).
const MaxMessageSize = 1024 * 1024

// readLine returns the next non-blank line from the input stream.
func (s *MCPServer) readLine() ([]byte, error) {
	// Lazily initialize the scanner on first use
	if s.scanner == nil {
		s.scanner = bufio.NewScanner(s.stdin)
		s.scanner.Buffer(make([]byte, 0, 64*1024), MaxMessageSize)
	}

	for s.scanner.Scan() {
		line := bytes.TrimSpace(s.scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		s.logger.Debug("Received message", "bytes", len(line))
		return append([]byte(nil), line...), nil
	}
	if err := s.scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading from stdin: %w", err)
	}
	return nil, io.EOF
}

// decodeMessage parses one line. Invalid JSON yields a parse error; valid
// JSON that is not an object yields an invalid request.
func decodeMessage(line []byte) (*MCPMessage, *MCPMessage) {
	if !json.Valid(line) {
		return nil, NewErrorMessage(nil, ParseError, "Parse error", nil)
	}
	var msg MCPMessage
	if err := json.Unmarshal(line, &msg); err != nil {
		return nil, NewErrorMessage(nil, InvalidRequest, "Invalid Request", nil)
	}
	return &msg, nil
}

// writeMessage writes a JSON-RPC message to the output stream
func (s *MCPServer) writeMessage(msg *MCPMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("error marshaling JSON-RPC message: %w", err)
	}

	s.logger.Debug("Sending message", "bytes", len(data))

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if _, err := fmt.Fprintf(s.stdout, "%s\n", data); err != nil {
		return fmt.Errorf("error writing to stdout: %w", err)
	}

	return nil
}
