package mcp

import (
	"encoding/json"
	"fmt"
	"time"

	"reposcope/internal/envelope"
)

// ServerCapabilities represents the capabilities exposed by the server
type ServerCapabilities struct {
	Tools *ToolsCapability `json:"tools,omitempty"`
}

// ToolsCapability represents the tools capability
type ToolsCapability struct {
	ListChanged bool `json:"listChanged,omitempty"`
}

// ServerInfo identifies the server to the client
type ServerInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// InitializeResult represents the result of the initialize request
type InitializeResult struct {
	ProtocolVersion string             `json:"protocolVersion"`
	Capabilities    ServerCapabilities `json:"capabilities"`
	ServerInfo      ServerInfo         `json:"serverInfo"`
}

// handleMessage processes an incoming MCP message and returns a response
func (s *MCPServer) handleMessage(msg *MCPMessage) *MCPMessage {
	if msg.IsRequest() {
		return s.handleRequest(msg)
	}

	// Notifications need no response
	if msg.IsNotification() {
		s.handleNotification(msg)
		return nil
	}

	if msg.IsResponse() {
		// We never issue client-bound requests, so responses are noise
		s.logger.Debug("Ignoring response message", "id", msg.Id)
		return nil
	}

	return NewErrorMessage(msg.Id, InvalidRequest, "Invalid message: not a request or notification", nil)
}

// handleRequest handles a JSON-RPC request
func (s *MCPServer) handleRequest(msg *MCPMessage) *MCPMessage {
	s.logger.Debug("Handling request",
		"method", msg.Method,
		"id", msg.Id,
	)

	switch msg.Method {
	case "initialize":
		return s.handleInitializeRequest(msg)
	case "tools/list":
		return s.handleListToolsRequest(msg)
	case "tools/call":
		return s.handleCallToolRequest(msg)
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
		s.logger.Debug("Unknown notification",
			"method", msg.Method,
		)
	}
}

// handleInitializeRequest handles the initialize request
func (s *MCPServer) handleInitializeRequest(msg *MCPMessage) *MCPMessage {
	params, ok := msg.Params.(map[string]interface{})
	if !ok {
		params = make(map[string]interface{})
	}

	s.logger.Info("MCP server initializing",
		"clientInfo", params["clientInfo"],
	)

	result := &InitializeResult{
		ProtocolVersion: "2024-11-05",
		Capabilities: ServerCapabilities{
			Tools: &ToolsCapability{
				ListChanged: false,
			},
		},
		ServerInfo: ServerInfo{
			Name:    "reposcope",
			Version: s.version,
		},
	}

	return NewResultMessage(msg.Id, result)
}

// handleListToolsRequest handles the tools/list request
func (s *MCPServer) handleListToolsRequest(msg *MCPMessage) *MCPMessage {
	return NewResultMessage(msg.Id, map[string]interface{}{
		"tools": s.ToolDefinitions(),
	})
}

// handleCallToolRequest handles the tools/call request. Handler
// failures are encoded as envelope errors in a normal result; JSON-RPC
// errors are reserved for protocol-level problems.
func (s *MCPServer) handleCallToolRequest(msg *MCPMessage) *MCPMessage {
	params, ok := msg.Params.(map[string]interface{})
	if !ok {
		return NewErrorMessage(msg.Id, InvalidParams, "Invalid params: expected object", nil)
	}

	toolName, ok := params["name"].(string)
	if !ok {
		return NewErrorMessage(msg.Id, InvalidParams, "Invalid params: missing tool name", nil)
	}

	toolParams, ok := params["arguments"].(map[string]interface{})
	if !ok {
		toolParams = make(map[string]interface{})
	}

	handler, exists := s.tools[toolName]
	if !exists {
		return NewErrorMessage(msg.Id, MethodNotFound, fmt.Sprintf("Unknown tool: %s", toolName), nil)
	}

	s.logger.Info("Calling tool",
		"tool", toolName,
	)

	start := time.Now()
	resp, err := handler(toolParams)
	if err != nil {
		resp = envelope.Failure(err)
	}
	duration := time.Since(start)
	resp.WithDuration(duration.Milliseconds())

	errorCode := ""
	if resp.Error != nil {
		errorCode = resp.Error.Code
	}
	s.trail.Record(projectIDOf(toolParams), toolName, toolParams, resp.Error == nil, errorCode, duration)

	jsonBytes, err := json.Marshal(resp)
	if err != nil {
		return NewErrorMessage(msg.Id, InternalError, fmt.Sprintf("Failed to marshal response: %v", err), nil)
	}

	return NewResultMessage(msg.Id, map[string]interface{}{
		"content": []map[string]interface{}{
			{
				"type": "text",
				"text": string(jsonBytes),
			},
		},
	})
}
