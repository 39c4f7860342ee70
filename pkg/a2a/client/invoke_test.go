package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weftworks/weft/pkg/a2a"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func jsonResponse(status int, body []byte) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(bytes.NewReader(body)),
	}
}

func TestInvokeSkillSuccess(t *testing.T) {
	var captured a2a.InvokeRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/.well-known/agent.json":
			writeCard(t, w)
		case "/invoke":
			require.Equal(t, http.MethodPost, r.Method)
			require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
			resp := a2a.InvokeResponse{
				JSONRPC: a2a.JSONRPCVersion,
				Result: &a2a.InvocationResult{
					Status: "completed",
					Result: map[string]interface{}{"echo": "hello"},
				},
				ID: captured.ID,
			}
			json.NewEncoder(w).Encode(resp)
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	c := New(WithSleep(instantSleep))
	result, err := c.InvokeSkill(context.Background(), srv.URL, "echo", map[string]interface{}{"message": "hello"})
	require.NoError(t, err)

	assert.Equal(t, "completed", result.Status)
	assert.Equal(t, "hello", result.Result["echo"])

	assert.Equal(t, a2a.JSONRPCVersion, captured.JSONRPC)
	assert.Equal(t, a2a.MethodInvoke, captured.Method)
	assert.Equal(t, "echo", captured.Params.Task.Skill)
	assert.Equal(t, "hello", captured.Params.Task.Parameters["message"])
	assert.NotEmpty(t, captured.Params.Task.ID)
}

func TestInvokeSkillUnknownSkillSendsNothing(t *testing.T) {
	var invokeHits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/invoke" {
			atomic.AddInt32(&invokeHits, 1)
		}
		writeCard(t, w)
	}))
	defer srv.Close()

	c := New(WithSleep(instantSleep))
	_, err := c.InvokeSkill(context.Background(), srv.URL, "summarize", nil)

	var notFound *a2a.SkillNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "summarize", notFound.Skill)
	assert.Equal(t, []string{"echo", "text_analysis"}, notFound.Available)
	assert.Contains(t, err.Error(), "summarize")
	assert.Equal(t, int32(0), atomic.LoadInt32(&invokeHits), "unknown skill must not reach the wire")
}

func TestInvokeSkillExecutionErrorOverHTTP200(t *testing.T) {
	var invokeHits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/.well-known/agent.json" {
			writeCard(t, w)
			return
		}
		atomic.AddInt32(&invokeHits, 1)
		json.NewEncoder(w).Encode(a2a.InvokeResponse{
			JSONRPC: a2a.JSONRPCVersion,
			Error:   &a2a.RPCError{Code: a2a.CodeExecutionError, Message: "division by zero"},
			ID:      "1",
		})
	}))
	defer srv.Close()

	c := New(WithSleep(instantSleep))
	_, err := c.InvokeSkill(context.Background(), srv.URL, "echo", nil)

	var invErr *a2a.InvocationError
	require.ErrorAs(t, err, &invErr)
	assert.Equal(t, a2a.CodeExecutionError, invErr.Code)
	assert.Equal(t, "division by zero", invErr.Message)
	assert.Equal(t, http.StatusOK, invErr.Status)
	assert.Equal(t, int32(1), atomic.LoadInt32(&invokeHits), "execution failures are not transient")
}

func TestInvokeSkillRetriesTransientFailures(t *testing.T) {
	var attempts int32
	cardBody := testCardJSON(t, "http://agent.test")

	httpc := &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
		if r.URL.Path == "/.well-known/agent.json" {
			return jsonResponse(http.StatusOK, cardBody), nil
		}
		if atomic.AddInt32(&attempts, 1) < 3 {
			return nil, &net.OpError{Op: "dial", Net: "tcp", Err: fmt.Errorf("connection refused")}
		}
		resp := a2a.InvokeResponse{
			JSONRPC: a2a.JSONRPCVersion,
			Result:  &a2a.InvocationResult{Status: "completed"},
			ID:      "1",
		}
		body, _ := json.Marshal(resp)
		return jsonResponse(http.StatusOK, body), nil
	})}

	c := New(WithHTTPClient(httpc), WithSleep(instantSleep))
	result, err := c.InvokeSkill(context.Background(), "http://agent.test", "echo", nil)
	require.NoError(t, err)
	assert.Equal(t, "completed", result.Status)
	assert.Equal(t, int32(3), atomic.LoadInt32(&attempts))
}

func TestInvokeSkillRetryBudgetIsTotalAttempts(t *testing.T) {
	var attempts int32
	cardBody := testCardJSON(t, "http://agent.test")

	httpc := &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
		if r.URL.Path == "/.well-known/agent.json" {
			return jsonResponse(http.StatusOK, cardBody), nil
		}
		atomic.AddInt32(&attempts, 1)
		return nil, &net.OpError{Op: "dial", Net: "tcp", Err: fmt.Errorf("connection refused")}
	})}

	c := New(WithHTTPClient(httpc), WithMaxRetries(2), WithSleep(instantSleep))
	_, err := c.InvokeSkill(context.Background(), "http://agent.test", "echo", nil)

	var netErr *a2a.NetworkError
	require.ErrorAs(t, err, &netErr, "the last attempt's error comes back as-is")
	assert.Equal(t, int32(2), atomic.LoadInt32(&attempts), "a budget of two means two attempts, first try included")
}

func TestInvokeSkillWithOptionsCarriesWebhook(t *testing.T) {
	var captured a2a.InvokeRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/.well-known/agent.json" {
			writeCard(t, w)
			return
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		json.NewEncoder(w).Encode(a2a.InvokeResponse{
			JSONRPC: a2a.JSONRPCVersion,
			Result:  &a2a.InvocationResult{Status: "completed"},
			ID:      captured.ID,
		})
	}))
	defer srv.Close()

	c := New(WithSleep(instantSleep))
	_, err := c.InvokeSkillWithOptions(context.Background(), srv.URL, "echo", nil, a2a.TaskOptions{
		WebhookURL: "https://hooks.example.com/done",
	})
	require.NoError(t, err)
	assert.Equal(t, "https://hooks.example.com/done", captured.Params.Task.Options.WebhookURL)
}

func TestInvokeSkillUnauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/.well-known/agent.json" {
			writeCard(t, w)
			return
		}
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	c := New(WithSleep(instantSleep))
	_, err := c.InvokeSkill(context.Background(), srv.URL, "echo", nil)

	var authErr *a2a.AuthenticationError
	require.ErrorAs(t, err, &authErr)
}

// ============================================================================
// STREAMING
// ============================================================================

func sseHandler(t *testing.T, frames []string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/.well-known/agent.json" {
			writeCard(t, w)
			return
		}
		assert.Equal(t, "text/event-stream", r.Header.Get("Accept"))

		var envelope a2a.InvokeRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&envelope))
		assert.True(t, envelope.Params.Task.Options.Stream)

		w.Header().Set("Content-Type", "text/event-stream")
		flusher, ok := w.(http.Flusher)
		require.True(t, ok)
		for _, frame := range frames {
			fmt.Fprint(w, frame)
			flusher.Flush()
		}
	}
}

func TestInvokeSkillStreamingEventSequence(t *testing.T) {
	frames := []string{
		"event: start\ndata: {\"task_id\":\"t1\",\"skill\":\"echo\"}\n\n",
		"event: task_start\ndata: {\"task_id\":\"t1\"}\n\n",
		"event: task_complete\ndata: {\"task_id\":\"t1\",\"result\":{\"echo\":\"hi\"}}\n\n",
		"event: complete\ndata: {\"task_id\":\"t1\",\"status\":\"completed\",\"result\":{\"echo\":\"hi\"}}\n\n",
	}
	srv := httptest.NewServer(sseHandler(t, frames))
	defer srv.Close()

	c := New(WithSleep(instantSleep))
	events, err := c.InvokeSkillStreaming(context.Background(), srv.URL, "echo", map[string]interface{}{"message": "hi"})
	require.NoError(t, err)

	var types []a2a.StreamEventType
	for event := range events {
		types = append(types, event.Type)
		assert.Equal(t, "t1", event.ID)
	}
	assert.Equal(t, []a2a.StreamEventType{
		a2a.StreamEventStart,
		a2a.StreamEventTaskStart,
		a2a.StreamEventTaskComplete,
		a2a.StreamEventComplete,
	}, types)
}

func TestCollectStreamMergesResults(t *testing.T) {
	frames := []string{
		"event: start\ndata: {\"task_id\":\"t1\"}\n\n",
		"event: task_complete\ndata: {\"task_id\":\"t1\",\"result\":{\"word_count\":3}}\n\n",
		"event: task_complete\ndata: {\"task_id\":\"t1\",\"result\":{\"sentiment\":\"positive\"}}\n\n",
		"event: complete\ndata: {\"task_id\":\"t1\",\"status\":\"completed\"}\n\n",
	}
	srv := httptest.NewServer(sseHandler(t, frames))
	defer srv.Close()

	c := New(WithSleep(instantSleep))
	events, err := c.InvokeSkillStreaming(context.Background(), srv.URL, "text_analysis", nil)
	require.NoError(t, err)

	result, err := CollectStream(events)
	require.NoError(t, err)
	assert.Equal(t, "completed", result.Status)
	assert.Equal(t, float64(3), result.Result["word_count"])
	assert.Equal(t, "positive", result.Result["sentiment"])
}

func TestCollectStreamErrorEvent(t *testing.T) {
	frames := []string{
		"event: start\ndata: {\"task_id\":\"t1\"}\n\n",
		"event: error\ndata: {\"task_id\":\"t1\",\"code\":-32000,\"message\":\"model exploded\"}\n\n",
	}
	srv := httptest.NewServer(sseHandler(t, frames))
	defer srv.Close()

	c := New(WithSleep(instantSleep))
	events, err := c.InvokeSkillStreaming(context.Background(), srv.URL, "echo", nil)
	require.NoError(t, err)

	_, err = CollectStream(events)
	var invErr *a2a.InvocationError
	require.ErrorAs(t, err, &invErr)
	assert.Equal(t, a2a.CodeExecutionError, invErr.Code)
	assert.Equal(t, "model exploded", invErr.Message)
}

func TestCollectStreamErrorThenComplete(t *testing.T) {
	// A complete frame after an error must not resurrect the invocation.
	frames := []string{
		"event: start\ndata: {\"task_id\":\"t1\"}\n\n",
		"event: error\ndata: {\"task_id\":\"t1\",\"code\":-32000,\"message\":\"boom\"}\n\n",
		"event: complete\ndata: {\"task_id\":\"t1\",\"status\":\"completed\"}\n\n",
	}
	srv := httptest.NewServer(sseHandler(t, frames))
	defer srv.Close()

	c := New(WithSleep(instantSleep))
	events, err := c.InvokeSkillStreaming(context.Background(), srv.URL, "echo", nil)
	require.NoError(t, err)

	result, err := CollectStream(events)
	assert.Nil(t, result)
	var invErr *a2a.InvocationError
	require.ErrorAs(t, err, &invErr)
	assert.Equal(t, a2a.CodeExecutionError, invErr.Code)
	assert.Equal(t, "boom", invErr.Message)
}

func TestInvokeSkillStreamingIDLines(t *testing.T) {
	frames := []string{
		"event: start\nid: evt-1\ndata: {\"skill\":\"echo\"}\n\n",
		"event: complete\nid: evt-2\ndata: {\"task_id\":\"t1\",\"status\":\"completed\"}\n\n",
	}
	srv := httptest.NewServer(sseHandler(t, frames))
	defer srv.Close()

	c := New(WithSleep(instantSleep))
	events, err := c.InvokeSkillStreaming(context.Background(), srv.URL, "echo", nil)
	require.NoError(t, err)

	var ids []string
	for event := range events {
		ids = append(ids, event.ID)
	}
	// id: lines win over the task_id embedded in the payload.
	assert.Equal(t, []string{"evt-1", "evt-2"}, ids)
}

func TestCollectStreamSilentEOF(t *testing.T) {
	// The stream dies after the start frame with no terminal event.
	frames := []string{
		"event: start\ndata: {\"task_id\":\"t1\"}\n\n",
		"event: task_start\ndata: {\"task_id\":\"t1\"}\n\n",
	}
	srv := httptest.NewServer(sseHandler(t, frames))
	defer srv.Close()

	c := New(WithSleep(instantSleep))
	events, err := c.InvokeSkillStreaming(context.Background(), srv.URL, "echo", nil)
	require.NoError(t, err)

	_, err = CollectStream(events)
	var netErr *a2a.NetworkError
	require.ErrorAs(t, err, &netErr)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestInvokeSkillStreamingRejectedStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/.well-known/agent.json" {
			writeCard(t, w)
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(a2a.InvokeResponse{
			JSONRPC: a2a.JSONRPCVersion,
			Error:   &a2a.RPCError{Code: a2a.CodeInternalError, Message: "broken"},
		})
	}))
	defer srv.Close()

	c := New(WithSleep(instantSleep))
	_, err := c.InvokeSkillStreaming(context.Background(), srv.URL, "echo", nil)

	var invErr *a2a.InvocationError
	require.ErrorAs(t, err, &invErr)
	assert.Equal(t, http.StatusInternalServerError, invErr.Status)
	assert.Equal(t, "broken", invErr.Message)
}
