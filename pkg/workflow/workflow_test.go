package workflow

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContextPublicHidesInternalKeys(t *testing.T) {
	ec := NewContext(map[string]interface{}{
		"visible":   "yes",
		"_internal": "no",
	})
	ec.Set("_secret", 42)
	ec.Set("result", "ok")

	public := ec.Public()
	assert.Equal(t, map[string]interface{}{
		"visible": "yes",
		"result":  "ok",
	}, public)
}

func TestContextGetSet(t *testing.T) {
	ec := NewContext(nil)

	_, ok := ec.Get("missing")
	assert.False(t, ok)

	ec.Set("k", "v")
	v, ok := ec.Get("k")
	assert.True(t, ok)
	assert.Equal(t, "v", v)
}

func TestFuncExecutableMetadata(t *testing.T) {
	exec := NewFuncExecutable("analyze", "Analyze input.", func(ctx context.Context, ec *Context) error {
		return nil
	}).
		WithInputs(InputSpec{Name: "text", Type: "string", Required: true}).
		WithCategory(CategoryData)

	assert.Equal(t, "analyze", exec.Name())
	assert.Equal(t, "Analyze input.", exec.Description())
	assert.Len(t, exec.Inputs(), 1)
	assert.Equal(t, CategoryData, exec.Category())
}

func TestLocalEngineExecute(t *testing.T) {
	engine := NewLocalEngine()
	exec := NewFuncExecutable("double", "Double a number.", func(ctx context.Context, ec *Context) error {
		raw, _ := ec.Get("n")
		n, _ := raw.(int)
		ec.Set("doubled", n*2)
		return nil
	})

	ec := NewContext(map[string]interface{}{"n": 21})
	result, err := engine.Execute(context.Background(), exec, ec)
	require.NoError(t, err)

	assert.Equal(t, StatusCompleted, result.Status)
	v, _ := ec.Get("doubled")
	assert.Equal(t, 42, v)
}

func TestLocalEngineExecuteFailure(t *testing.T) {
	engine := NewLocalEngine()
	boom := errors.New("boom")
	exec := NewFuncExecutable("fail", "Always fails.", func(ctx context.Context, ec *Context) error {
		return boom
	})

	result, err := engine.Execute(context.Background(), exec, NewContext(nil))
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, StatusFailed, result.Status)
	assert.ErrorIs(t, result.Err, boom)
}

func TestLocalEngineExecuteStreaming(t *testing.T) {
	engine := NewLocalEngine()
	exec := NewFuncExecutable("step", "One step.", func(ctx context.Context, ec *Context) error {
		ec.Set("done", true)
		return nil
	})

	events, err := engine.ExecuteStreaming(context.Background(), exec, NewContext(nil))
	require.NoError(t, err)

	var types []EventType
	for e := range events {
		types = append(types, e.Type)
	}
	assert.Equal(t, []EventType{EventTaskStarted, EventTaskCompleted, EventCompleted}, types)
}

func TestLocalEngineStreamingFailure(t *testing.T) {
	engine := NewLocalEngine()
	exec := NewFuncExecutable("fail", "Always fails.", func(ctx context.Context, ec *Context) error {
		return errors.New("boom")
	})

	events, err := engine.ExecuteStreaming(context.Background(), exec, NewContext(nil))
	require.NoError(t, err)

	var last Event
	for e := range events {
		last = e
	}
	assert.Equal(t, EventFailed, last.Type)
	assert.Contains(t, last.Err, "boom")
}

func TestRegistryHoldsExecutables(t *testing.T) {
	reg := NewRegistry()
	exec := NewFuncExecutable("a", "A.", func(ctx context.Context, ec *Context) error { return nil })

	require.NoError(t, reg.Register(exec.Name(), exec))
	got, ok := reg.Get("a")
	assert.True(t, ok)
	assert.Equal(t, "a", got.Name())
}
