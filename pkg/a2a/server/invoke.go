package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/weftworks/weft/pkg/a2a"
	"github.com/weftworks/weft/pkg/observability"
	"github.com/weftworks/weft/pkg/workflow"
)

// ============================================================================
// INVOKE HANDLER
// ============================================================================

// handleInvoke serves the JSON-RPC invoke endpoint.
//
// Protocol-level problems (wrong method, malformed envelope, unknown
// skill) map to HTTP status codes. Execution failures are not protocol
// problems: they ride back as a JSON-RPC error object over HTTP 200.
func (s *Server) handleInvoke(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeJSONError(w, http.StatusMethodNotAllowed, "invoke requires POST")
		return
	}

	var envelope a2a.InvokeRequest
	if err := json.NewDecoder(r.Body).Decode(&envelope); err != nil {
		writeBadRequest(w, "request body is not valid JSON: "+err.Error())
		return
	}

	if err := envelope.Validate(); err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	task := envelope.Params.Task
	exec, ok := s.registry.Get(task.Skill)
	if !ok {
		// Unknown skill is a caller mistake against an advertised card,
		// not a missing route: 400, naming the skill and what exists.
		err := &a2a.SkillNotFoundError{Skill: task.Skill, Available: s.registry.Names()}
		writeBadRequest(w, err.Error())
		return
	}

	wantsStream := task.Options.Stream || strings.Contains(r.Header.Get("Accept"), "text/event-stream")
	if wantsStream {
		s.streamInvocation(w, r, &envelope, exec)
		return
	}

	start := time.Now()
	ec := workflow.NewContext(task.Parameters)
	result, err := s.engine.Execute(r.Context(), exec, ec)

	if m := observability.GetGlobalMetrics(); m != nil {
		m.RecordInvocation(r.Context(), task.Skill, time.Since(start), err)
	}

	if err != nil || result == nil || result.Status == workflow.StatusFailed {
		execErr := err
		if execErr == nil && result != nil {
			execErr = result.Err
		}
		slog.Error("Skill execution failed", "skill", task.Skill, "task_id", task.ID, "error", execErr)
		writeRPCError(w, http.StatusOK, envelope.ID, a2a.CodeExecutionError, executionErrorMessage(execErr))
		return
	}

	payload := s.buildResult(exec, result)
	writeRPCResult(w, envelope.ID, payload)
}

func executionErrorMessage(err error) string {
	if err == nil {
		return "execution failed"
	}
	return err.Error()
}

// buildResult assembles the invocation result: the public execution
// context, artifacts derived from oversized or structured values, and
// execution metadata.
func (s *Server) buildResult(exec workflow.Executable, result *workflow.Result) *a2a.InvocationResult {
	public := result.Context.Public()
	artifacts, inline := deriveArtifacts(public)

	return &a2a.InvocationResult{
		Status:    string(result.Status),
		Result:    inline,
		Artifacts: artifacts,
		Metadata: map[string]interface{}{
			"executor":  exec.Name(),
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		},
	}
}

func writeRPCResult(w http.ResponseWriter, id string, result *a2a.InvocationResult) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(a2a.InvokeResponse{
		JSONRPC: a2a.JSONRPCVersion,
		Result:  result,
		ID:      id,
	})
}

// writeBadRequest rejects a request the handler could not even resolve
// to an execution: malformed JSON, a broken envelope, or an unknown
// skill. These are plain HTTP errors, not JSON-RPC ones.
func writeBadRequest(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadRequest)
	json.NewEncoder(w).Encode(map[string]string{
		"error": message,
		"code":  "bad_request",
	})
}

func writeRPCError(w http.ResponseWriter, status int, id string, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(a2a.InvokeResponse{
		JSONRPC: a2a.JSONRPCVersion,
		Error:   &a2a.RPCError{Code: code, Message: message},
		ID:      id,
	})
}
