package client

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/weftworks/weft/pkg/a2a"
)

// ============================================================================
// BLOCKING INVOCATION
// ============================================================================

// InvokeSkill invokes a skill and blocks until the result arrives. The
// skill is checked against the agent card before any invoke request is
// sent; an unknown skill costs zero network calls beyond discovery.
func (c *Client) InvokeSkill(ctx context.Context, agentURL, skill string, params map[string]interface{}) (*a2a.InvocationResult, error) {
	return c.InvokeSkillWithOptions(ctx, agentURL, skill, params, a2a.TaskOptions{})
}

// InvokeSkillWithOptions is InvokeSkill with explicit task options, for
// callers that want completion delivered to a webhook.
func (c *Client) InvokeSkillWithOptions(ctx context.Context, agentURL, skill string, params map[string]interface{}, opts a2a.TaskOptions) (*a2a.InvocationResult, error) {
	card, err := c.FetchAgentCard(ctx, agentURL, false)
	if err != nil {
		return nil, err
	}
	if !card.HasCapability(skill) {
		return nil, &a2a.SkillNotFoundError{Skill: skill, Available: card.CapabilityNames()}
	}

	envelope := a2a.NewInvokeRequest(uuid.New().String(), &a2a.TaskRequest{
		ID:         uuid.New().String(),
		Skill:      skill,
		Parameters: params,
		Options:    opts,
	})

	var result *a2a.InvocationResult
	err = c.retryer.Do(ctx, "invoke_skill", func() error {
		var ierr error
		result, ierr = c.doInvoke(ctx, agentURL, envelope)
		return ierr
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (c *Client) doInvoke(ctx context.Context, agentURL string, envelope *a2a.InvokeRequest) (*a2a.InvocationResult, error) {
	body, err := json.Marshal(envelope)
	if err != nil {
		return nil, &a2a.ProtocolError{Message: "encode invoke request", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, normalizeBaseURL(agentURL)+invokePath, bytes.NewReader(body))
	if err != nil {
		return nil, a2a.Classify("invoke_skill", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	c.setCommonHeaders(req)

	var resp *http.Response
	err = c.pool.With(ctx, func() error {
		var derr error
		resp, derr = c.httpc.Do(req)
		return derr
	})
	if err != nil {
		return nil, a2a.Classify("invoke_skill", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, a2a.Classify("invoke_skill", err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, &a2a.AuthenticationError{Message: fmt.Sprintf("invoke rejected with status %d", resp.StatusCode)}
	case resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted:
		return nil, invocationErrorFromBody(resp.StatusCode, respBody)
	}

	var rpcResp a2a.InvokeResponse
	if err := json.Unmarshal(respBody, &rpcResp); err != nil {
		return nil, &a2a.ProtocolError{Message: "decode invoke response", Err: err}
	}

	// Execution failures ride the envelope over HTTP 200.
	if rpcResp.Error != nil {
		return nil, &a2a.InvocationError{
			Code:    rpcResp.Error.Code,
			Message: rpcResp.Error.Message,
			Status:  resp.StatusCode,
		}
	}
	if rpcResp.Result == nil {
		return nil, &a2a.ProtocolError{Message: "invoke response carries neither result nor error"}
	}
	return rpcResp.Result, nil
}

// invocationErrorFromBody maps a non-200 invoke response. Bodies that
// carry a JSON-RPC error object keep their code and message.
func invocationErrorFromBody(status int, body []byte) error {
	var rpcResp a2a.InvokeResponse
	if err := json.Unmarshal(body, &rpcResp); err == nil && rpcResp.Error != nil {
		return &a2a.InvocationError{
			Code:    rpcResp.Error.Code,
			Message: rpcResp.Error.Message,
			Status:  status,
		}
	}
	return &a2a.InvocationError{
		Message: fmt.Sprintf("invoke returned status %d", status),
		Status:  status,
	}
}

// ============================================================================
// STREAMING INVOCATION
// ============================================================================

// InvokeSkillStreaming invokes a skill and returns a channel of progress
// events. The channel closes when the stream ends; a stream that closes
// without a terminal complete or error event was cut off mid-flight, which
// CollectStream surfaces as a network failure.
func (c *Client) InvokeSkillStreaming(ctx context.Context, agentURL, skill string, params map[string]interface{}) (<-chan a2a.StreamEvent, error) {
	card, err := c.FetchAgentCard(ctx, agentURL, false)
	if err != nil {
		return nil, err
	}
	if !card.HasCapability(skill) {
		return nil, &a2a.SkillNotFoundError{Skill: skill, Available: card.CapabilityNames()}
	}

	envelope := a2a.NewInvokeRequest(uuid.New().String(), &a2a.TaskRequest{
		ID:         uuid.New().String(),
		Skill:      skill,
		Parameters: params,
		Options:    a2a.TaskOptions{Stream: true},
	})

	body, err := json.Marshal(envelope)
	if err != nil {
		return nil, &a2a.ProtocolError{Message: "encode invoke request", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, normalizeBaseURL(agentURL)+invokePath, bytes.NewReader(body))
	if err != nil {
		return nil, a2a.Classify("invoke_skill_streaming", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	c.setCommonHeaders(req)

	release, err := c.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		release()
		return nil, a2a.Classify("invoke_skill_streaming", err)
	}

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		release()
		return nil, invocationErrorFromBody(resp.StatusCode, respBody)
	}

	return c.parseSSEStream(resp, release), nil
}

// parseSSEStream reads "event:"/"data:" frames off the response body and
// delivers them in order. The pool slot stays held for the life of the
// stream.
func (c *Client) parseSSEStream(resp *http.Response, release func()) <-chan a2a.StreamEvent {
	eventCh := make(chan a2a.StreamEvent, 10)

	go func() {
		defer close(eventCh)
		defer release()
		defer resp.Body.Close()

		scanner := bufio.NewScanner(resp.Body)
		var eventType string
		var eventData string
		var eventID string

		for scanner.Scan() {
			line := scanner.Text()

			if strings.HasPrefix(line, "event: ") {
				eventType = strings.TrimPrefix(line, "event: ")
			} else if strings.HasPrefix(line, "data: ") {
				eventData = strings.TrimPrefix(line, "data: ")
			} else if strings.HasPrefix(line, "id: ") {
				eventID = strings.TrimPrefix(line, "id: ")
			} else if line == "" && eventType != "" {
				event := a2a.StreamEvent{Type: a2a.StreamEventType(eventType), ID: eventID}
				if eventData != "" {
					var data map[string]interface{}
					if err := json.Unmarshal([]byte(eventData), &data); err == nil {
						event.Data = data
						if id, ok := data["task_id"].(string); ok && event.ID == "" {
							event.ID = id
						}
					}
				}
				eventCh <- event
				eventType = ""
				eventData = ""
				eventID = ""
			}
		}
	}()

	return eventCh
}

// CollectStream drains a streaming invocation into its final result,
// merging intermediate task payloads. Any error event fails the whole
// invocation as an InvocationError, even when a complete event follows
// it; a stream that ends without a terminal event becomes a
// NetworkError.
func CollectStream(events <-chan a2a.StreamEvent) (*a2a.InvocationResult, error) {
	merged := make(map[string]interface{})
	var complete *a2a.StreamEvent
	var failures []a2a.StreamEvent

	for event := range events {
		switch event.Type {
		case a2a.StreamEventTaskComplete:
			if partial, ok := event.Data["result"].(map[string]interface{}); ok {
				for k, v := range partial {
					merged[k] = v
				}
			}
		case a2a.StreamEventComplete:
			e := event
			complete = &e
		case a2a.StreamEventError:
			failures = append(failures, event)
		}
	}

	// Error events are terminal no matter what came after them.
	if len(failures) > 0 {
		first := failures[0]
		code := 0
		if v, ok := first.Data["code"].(float64); ok {
			code = int(v)
		}
		message := "stream reported an error"
		if v, ok := first.Data["message"].(string); ok {
			message = v
		}
		if extra := len(failures) - 1; extra > 0 {
			message = fmt.Sprintf("%s (and %d more error events)", message, extra)
		}
		return nil, &a2a.InvocationError{Code: code, Message: message}
	}

	if complete == nil {
		return nil, &a2a.NetworkError{
			Op:  "invoke_skill_streaming",
			Err: io.ErrUnexpectedEOF,
		}
	}

	// Decode the complete payload, then overlay anything only the
	// intermediate events carried.
	result := &a2a.InvocationResult{Status: "completed", Result: merged}
	if raw, err := json.Marshal(complete.Data); err == nil {
		var final a2a.InvocationResult
		if err := json.Unmarshal(raw, &final); err == nil {
			if final.Status != "" {
				result.Status = final.Status
			}
			for k, v := range final.Result {
				merged[k] = v
			}
			result.Artifacts = final.Artifacts
			result.Metadata = final.Metadata
		}
	}
	return result, nil
}
