package a2a

import (
	"encoding/json"
)

// ============================================================================
// JSON-RPC ENVELOPE
// The invocation wire format: a JSON-RPC 2.0 shaped request carrying a task,
// answered by a result or error object on the same envelope.
// ============================================================================

const (
	// JSONRPCVersion is the only accepted protocol version.
	JSONRPCVersion = "2.0"

	// MethodInvoke is the only method the invoke endpoint serves.
	MethodInvoke = "invoke"
)

// JSON-RPC error codes.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
	CodeExecutionError = -32000
)

// TaskOptions carries invocation options inside the envelope.
type TaskOptions struct {
	Stream     bool   `json:"stream"`
	WebhookURL string `json:"webhookUrl,omitempty"`
}

// TaskRequest names the skill to invoke and its parameters.
type TaskRequest struct {
	ID         string                 `json:"id"`
	Skill      string                 `json:"skill"`
	Parameters map[string]interface{} `json:"parameters,omitempty"`
	Options    TaskOptions            `json:"options"`
}

// InvokeParams wraps the task for the params field.
type InvokeParams struct {
	Task *TaskRequest `json:"task"`
}

// InvokeRequest is the full JSON-RPC request envelope.
type InvokeRequest struct {
	JSONRPC string       `json:"jsonrpc"`
	Method  string       `json:"method"`
	Params  InvokeParams `json:"params"`
	ID      string       `json:"id"`
}

// NewInvokeRequest builds a request envelope for a skill invocation.
func NewInvokeRequest(requestID string, task *TaskRequest) *InvokeRequest {
	return &InvokeRequest{
		JSONRPC: JSONRPCVersion,
		Method:  MethodInvoke,
		Params:  InvokeParams{Task: task},
		ID:      requestID,
	}
}

// Validate checks the envelope shape. Each violation carries a descriptive
// message so the server can answer with a useful 400.
func (r *InvokeRequest) Validate() error {
	if r.JSONRPC != JSONRPCVersion {
		return NewValidationError("jsonrpc", "jsonrpc must be %q, got %q", JSONRPCVersion, r.JSONRPC)
	}
	if r.Method != MethodInvoke {
		return NewValidationError("method", "method must be %q, got %q", MethodInvoke, r.Method)
	}
	if r.Params.Task == nil {
		return NewValidationError("params.task", "params.task is required")
	}
	if r.ID == "" {
		return NewValidationError("id", "request id is required")
	}
	if r.Params.Task.Skill == "" {
		return NewValidationError("params.task.skill", "task skill is required")
	}
	return nil
}

// RPCError is the JSON-RPC error object.
type RPCError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// InvocationResult is the result object of a completed invocation.
type InvocationResult struct {
	Status    string                 `json:"status"`
	Result    map[string]interface{} `json:"result,omitempty"`
	Artifacts []Artifact             `json:"artifacts,omitempty"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

func (r *InvocationResult) UnmarshalJSON(data []byte) error {
	var wire struct {
		Status    string                 `json:"status"`
		Result    map[string]interface{} `json:"result"`
		Artifacts []json.RawMessage      `json:"artifacts"`
		Metadata  map[string]interface{} `json:"metadata"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return &ProtocolError{Message: "decode invocation result", Err: err}
	}
	artifacts, err := UnmarshalArtifacts(wire.Artifacts)
	if err != nil {
		return err
	}
	r.Status = wire.Status
	r.Result = wire.Result
	r.Artifacts = artifacts
	r.Metadata = wire.Metadata
	return nil
}

// InvokeResponse is the full JSON-RPC response envelope.
type InvokeResponse struct {
	JSONRPC string            `json:"jsonrpc"`
	Result  *InvocationResult `json:"result,omitempty"`
	Error   *RPCError         `json:"error,omitempty"`
	ID      string            `json:"id"`
}

// ============================================================================
// STREAMING EVENTS
// SSE frames of the form "event: <name>\ndata: <json>\n\n". The state
// machine is STARTED -> TASK_RUNNING* -> COMPLETED|FAILED on both sides.
// ============================================================================

// StreamEventType names an SSE event in a streaming invocation.
type StreamEventType string

const (
	StreamEventStart        StreamEventType = "start"
	StreamEventTaskStart    StreamEventType = "task_start"
	StreamEventTaskComplete StreamEventType = "task_complete"
	StreamEventComplete     StreamEventType = "complete"
	StreamEventError        StreamEventType = "error"
)

// IsTerminal reports whether the event ends the stream.
func (t StreamEventType) IsTerminal() bool {
	return t == StreamEventComplete || t == StreamEventError
}

// StreamEvent is a single parsed SSE frame.
type StreamEvent struct {
	Type StreamEventType
	ID   string
	Data map[string]interface{}
}
