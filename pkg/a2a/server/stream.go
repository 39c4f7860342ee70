package server

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/weftworks/weft/pkg/a2a"
	"github.com/weftworks/weft/pkg/observability"
	"github.com/weftworks/weft/pkg/workflow"
)

// streamInvocation runs a skill and reports progress over SSE. The frame
// sequence is start, then task_start/task_complete pairs as the engine
// reports steps, closed by exactly one complete or error frame.
func (s *Server) streamInvocation(w http.ResponseWriter, r *http.Request, envelope *a2a.InvokeRequest, exec workflow.Executable) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSONError(w, http.StatusInternalServerError, "streaming not supported by this connection")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	task := envelope.Params.Task
	send := func(eventType a2a.StreamEventType, data map[string]interface{}) {
		writeSSEFrame(w, eventType, data)
		flusher.Flush()
		if m := observability.GetGlobalMetrics(); m != nil {
			m.RecordStreamEvent(r.Context(), string(eventType))
		}
	}

	send(a2a.StreamEventStart, map[string]interface{}{
		"task_id": task.ID,
		"skill":   task.Skill,
	})

	start := time.Now()
	ec := workflow.NewContext(task.Parameters)

	events, err := s.executeStreaming(r, exec, ec)
	if err != nil {
		send(a2a.StreamEventError, map[string]interface{}{
			"task_id": task.ID,
			"code":    a2a.CodeExecutionError,
			"message": err.Error(),
		})
		return
	}

	var failed error
	for event := range events {
		switch event.Type {
		case workflow.EventTaskStarted:
			send(a2a.StreamEventTaskStart, map[string]interface{}{
				"task_id": task.ID,
				"task":    event.Task,
			})
		case workflow.EventTaskCompleted:
			send(a2a.StreamEventTaskComplete, map[string]interface{}{
				"task_id": task.ID,
				"task":    event.Task,
				"result":  event.Payload,
			})
		case workflow.EventFailed:
			failed = fmt.Errorf("%s", event.Err)
		}
	}

	if m := observability.GetGlobalMetrics(); m != nil {
		m.RecordInvocation(r.Context(), task.Skill, time.Since(start), failed)
	}

	if failed != nil {
		slog.Error("Streaming skill execution failed", "skill", task.Skill, "task_id", task.ID, "error", failed)
		send(a2a.StreamEventError, map[string]interface{}{
			"task_id": task.ID,
			"code":    a2a.CodeExecutionError,
			"message": failed.Error(),
		})
		return
	}

	result := s.buildResult(exec, &workflow.Result{Status: workflow.StatusCompleted, Context: ec})
	send(a2a.StreamEventComplete, map[string]interface{}{
		"task_id":   task.ID,
		"status":    result.Status,
		"result":    result.Result,
		"artifacts": result.Artifacts,
		"metadata":  result.Metadata,
	})
}

// executeStreaming prefers the engine's native streaming; engines without
// it are wrapped so the blocking Execute call shows up as one task.
func (s *Server) executeStreaming(r *http.Request, exec workflow.Executable, ec *workflow.Context) (<-chan workflow.Event, error) {
	if streamer, ok := s.engine.(workflow.StreamingEngine); ok {
		return streamer.ExecuteStreaming(r.Context(), exec, ec)
	}

	events := make(chan workflow.Event, 4)
	go func() {
		defer close(events)
		events <- workflow.Event{Type: workflow.EventTaskStarted, Task: exec.Name()}
		result, err := s.engine.Execute(r.Context(), exec, ec)
		if err != nil {
			events <- workflow.Event{Type: workflow.EventFailed, Err: err.Error()}
			return
		}
		// Engines may report failure through the status alone, with no
		// error attached, or hand back no result at all.
		if result == nil || result.Status == workflow.StatusFailed {
			var rerr error
			if result != nil {
				rerr = result.Err
			}
			events <- workflow.Event{Type: workflow.EventFailed, Err: executionErrorMessage(rerr)}
			return
		}
		events <- workflow.Event{Type: workflow.EventTaskCompleted, Task: exec.Name(), Payload: ec.Public()}
	}()
	return events, nil
}

func writeSSEFrame(w http.ResponseWriter, eventType a2a.StreamEventType, data map[string]interface{}) {
	payload, err := json.Marshal(data)
	if err != nil {
		payload = []byte("{}")
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", eventType, payload)
}
