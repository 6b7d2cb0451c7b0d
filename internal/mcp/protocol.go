// Package mcp implements the JSON-RPC 2.0 stdio transport and the tool
// registry the agent talks to. One request line in, one response line
// out; tool failures travel inside the envelope, protocol failures use
// JSON-RPC error responses.
package mcp

// MCPMessage represents a JSON-RPC 2.0 message
type MCPMessage struct {
	Jsonrpc string      `json:"jsonrpc"`
	Id      interface{} `json:"id,omitempty"`
	Method  string      `json:"method,omitempty"`
	Params  interface{} `json:"params,omitempty"`
	Result  interface{} `json:"result,omitempty"`
	Error   *MCPError   `json:"error,omitempty"`
}

// MCPError represents a JSON-RPC 2.0 error
type MCPError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// Standard JSON-RPC 2.0 error codes
const (
	ParseError     = -32700
	InvalidRequest = -32600
	MethodNotFound = -32601
	InvalidParams  = -32602
	InternalError  = -32603
)

// NewErrorMessage creates an error response message
func NewErrorMessage(id interface{}, code int, message string, data interface{}) *MCPMessage {
	return &MCPMessage{
		Jsonrpc: "2.0",
		Id:      id,
		Error: &MCPError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
}

// NewResultMessage creates a success response message
func NewResultMessage(id interface{}, result interface{}) *MCPMessage {
	return &MCPMessage{
		Jsonrpc: "2.0",
		Id:      id,
		Result:  result,
	}
}

// NewNotificationMessage creates a notification message (no id)
func NewNotificationMessage(method string, params interface{}) *MCPMessage {
	return &MCPMessage{
		Jsonrpc: "2.0",
		Method:  method,
		Params:  params,
	}
}

// IsRequest returns true if the message is a request (has method and id)
func (m *MCPMessage) IsRequest() bool {
	return m.Method != "" && m.Id != nil
}

// IsNotification returns true if the message is a notification (method, no id)
func (m *MCPMessage) IsNotification() bool {
	return m.Method != "" && m.Id == nil
}

// IsResponse returns true if the message is a response (no method)
func (m *MCPMessage) IsResponse() bool {
	return m.Method == "" && (m.Result != nil || m.Error != nil)
}
