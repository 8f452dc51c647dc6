package mcp

import (
	"context"
	"fmt"
	"strings"

	"subagents/internal/errors"
	"subagents/internal/version"
)

// handleMessage processes an incoming MCP message and returns a response,
// or nil for notifications.
func (s *MCPServer) handleMessage(ctx context.Context, msg *MCPMessage) *MCPMessage {
	if msg.Jsonrpc != JSONRPCVersion {
		return NewErrorMessage(msg.Id, InvalidRequest, "Invalid Request", nil)
	}

	if msg.IsNotification() {
		s.handleNotification(msg)
		return nil
	}

	if !msg.IsRequest() {
		return NewErrorMessage(msg.Id, InvalidRequest, "Invalid Request", nil)
	}
	return s.handleRequest(ctx, msg)
}

// handleRequest handles a JSON-RPC request
func (s *MCPServer) handleRequest(ctx context.Context, msg *MCPMessage) *MCPMessage {
	s.logger.Debug("Handling request",
		"method", msg.Method,
		"id", msg.Id,
	)

	switch msg.Method {
	case "initialize":
		return s.handleInitializeRequest(msg)
	case "tools/list":
		return NewResultMessage(msg.Id, map[string]interface{}{"tools": s.listTools()})
	case "tools/call":
		return s.handleCallToolRequest(ctx, msg)
	default:
		return NewErrorMessage(msg.Id, MethodNotFound, fmt.Sprintf("Method not found: %s", msg.Method), nil)
	}
}

// handleNotification handles a JSON-RPC notification
func (s *MCPServer) handleNotification(msg *MCPMessage) {
	switch msg.Method {
	case "notifications/initialized":
		s.logger.Info("Client initialized")
	default:
		s.logger.Debug("Ignoring notification",
			"method", msg.Method,
		)
	}
}

// handleInitializeRequest handles the initialize request
func (s *MCPServer) handleInitializeRequest(msg *MCPMessage) *MCPMessage {
	if _, ok := msg.Params.(map[string]interface{}); !ok {
		return NewErrorMessage(msg.Id, InvalidParams, "Invalid params: expected object", nil)
	}

	return NewResultMessage(msg.Id, map[string]interface{}{
		"protocolVersion": ProtocolVersion,
		"serverInfo":      version.ServerInfo{Name: version.Name, Version: s.version},
		"capabilities": map[string]interface{}{
			"tools": map[string]interface{}{},
		},
	})
}

// handleCallToolRequest handles the tools/call request
func (s *MCPServer) handleCallToolRequest(ctx context.Context, msg *MCPMessage) *MCPMessage {
	params, ok := msg.Params.(map[string]interface{})
	if !ok {
		return NewErrorMessage(msg.Id, InvalidParams, "Invalid params: expected object", nil)
	}

	name, _ := params["name"].(string)
	if strings.TrimSpace(name) == "" {
		return NewErrorMessage(msg.Id, InvalidParams, "Invalid params: missing tool name", nil)
	}

	t, exists := s.tools[name]
	if !exists {
		return NewErrorMessage(msg.Id, MethodNotFound, fmt.Sprintf("Tool not found: %s", name), nil)
	}

	s.logger.Info("Calling tool", "tool", name)

	result, err := t.handler(ctx, params["arguments"])
	if err != nil {
		return s.toolError(msg, name, err)
	}
	return NewResultMessage(msg.Id, result)
}

// toolError maps a handler failure onto a JSON-RPC error. Input errors
// carry their message; anything else is reported as an internal error.
func (s *MCPServer) toolError(msg *MCPMessage, name string, err error) *MCPMessage {
	if errors.IsInputError(err) {
		s.logger.Warn("Tool rejected input", "tool", name, "error", err.Error())
		return NewErrorMessage(msg.Id, InvalidParams, "Invalid params: "+errors.MessageOf(err), map[string]string{
			"code": string(errors.CodeOf(err)),
		})
	}
	s.logger.Error("Tool failed", "tool", name, "error", err.Error())
	return NewErrorMessage(msg.Id, InternalError, "Internal error", nil)
}
