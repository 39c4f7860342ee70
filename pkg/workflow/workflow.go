// Package workflow defines the boundary to the workflow execution engine.
// The engine itself is external; this package carries only the contract the
// A2A layer needs: executables with declared inputs, an execution context,
// and a typed result.
package workflow

import (
	"context"
	"strings"
	"sync"

	"github.com/weftworks/weft/pkg/registry"
)

// Category classifies an executable for capability tag inference.
type Category string

const (
	CategoryAI           Category = "ai"
	CategoryData         Category = "data"
	CategoryExternal     Category = "external"
	CategoryNotification Category = "notification"
	CategoryGeneral      Category = "general"
)

// InputSpec declares one required or optional input of an executable.
type InputSpec struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
	Required    bool   `json:"required"`
}

// Executable is a single invocable unit of work. An empty Inputs slice
// means the executable accepts dynamic parameters.
type Executable interface {
	Name() string
	Description() string
	Inputs() []InputSpec
	Category() Category
}

// Engine executes an executable against a context. Implementations wrap
// the external workflow engine; this package ships LocalEngine for
// func-backed executables.
type Engine interface {
	Execute(ctx context.Context, exec Executable, ec *Context) (*Result, error)
}

// EventType names a streaming execution event.
type EventType string

const (
	EventTaskStarted   EventType = "task_started"
	EventTaskCompleted EventType = "task_completed"
	EventCompleted     EventType = "completed"
	EventFailed        EventType = "failed"
)

// Event is a single step-level execution event.
type Event struct {
	Type    EventType              `json:"type"`
	Task    string                 `json:"task,omitempty"`
	Payload map[string]interface{} `json:"payload,omitempty"`
	Err     string                 `json:"error,omitempty"`
}

// StreamingEngine is implemented by engines that can report step-level
// progress. Engines without it are adapted by the server: one synthetic
// task wraps the blocking Execute call.
type StreamingEngine interface {
	Engine
	ExecuteStreaming(ctx context.Context, exec Executable, ec *Context) (<-chan Event, error)
}

// ============================================================================
// CONTEXT
// ============================================================================

// internalKeyPrefix marks context keys that never cross the wire.
const internalKeyPrefix = "_"

// Context is the mutable key/value state an execution reads and writes.
// Safe for concurrent use.
type Context struct {
	mu     sync.RWMutex
	values map[string]interface{}
}

// NewContext creates a context seeded with initial data.
func NewContext(initial map[string]interface{}) *Context {
	values := make(map[string]interface{}, len(initial))
	for k, v := range initial {
		values[k] = v
	}
	return &Context{values: values}
}

// Get returns a value by key.
func (c *Context) Get(key string) (interface{}, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.values[key]
	return v, ok
}

// Set stores a value.
func (c *Context) Set(key string, value interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[key] = value
}

// Public returns a copy of the context without internal keys. These are
// the values that make it into the invocation result.
func (c *Context) Public() map[string]interface{} {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]interface{}, len(c.values))
	for k, v := range c.values {
		if strings.HasPrefix(k, internalKeyPrefix) {
			continue
		}
		out[k] = v
	}
	return out
}

// ============================================================================
// RESULT
// ============================================================================

// Status is the terminal state of an execution.
type Status string

const (
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Result is the outcome of one execution.
type Result struct {
	Status  Status
	Context *Context
	Err     error
}

// ============================================================================
// REGISTRY
// ============================================================================

// Registry holds the executables an agent exposes as skills. Registration
// order is preserved so derived agent cards are deterministic.
type Registry = registry.BaseRegistry[Executable]

// NewRegistry creates an empty executable registry.
func NewRegistry() *Registry {
	return registry.NewBaseRegistry[Executable]()
}

// ============================================================================
// FUNC-BACKED EXECUTABLES
// ============================================================================

// Func is the signature of a func-backed executable.
type Func func(ctx context.Context, ec *Context) error

// FuncExecutable adapts a plain function into an Executable.
type FuncExecutable struct {
	name        string
	description string
	inputs      []InputSpec
	category    Category
	fn          Func
}

// NewFuncExecutable creates a func-backed executable.
func NewFuncExecutable(name, description string, fn Func) *FuncExecutable {
	return &FuncExecutable{
		name:        name,
		description: description,
		category:    CategoryGeneral,
		fn:          fn,
	}
}

// WithInputs declares the executable's inputs.
func (e *FuncExecutable) WithInputs(inputs ...InputSpec) *FuncExecutable {
	e.inputs = inputs
	return e
}

// WithCategory sets the executable's category.
func (e *FuncExecutable) WithCategory(category Category) *FuncExecutable {
	e.category = category
	return e
}

func (e *FuncExecutable) Name() string        { return e.name }
func (e *FuncExecutable) Description() string { return e.description }
func (e *FuncExecutable) Inputs() []InputSpec { return e.inputs }
func (e *FuncExecutable) Category() Category  { return e.category }

// Run executes the underlying function.
func (e *FuncExecutable) Run(ctx context.Context, ec *Context) error {
	return e.fn(ctx, ec)
}

// ============================================================================
// LOCAL ENGINE
// ============================================================================

// LocalEngine executes func-backed executables in-process. It stands in
// for the external engine in tests and in the example server.
type LocalEngine struct{}

// NewLocalEngine creates a LocalEngine.
func NewLocalEngine() *LocalEngine {
	return &LocalEngine{}
}

// Execute runs a func-backed executable to completion.
func (e *LocalEngine) Execute(ctx context.Context, exec Executable, ec *Context) (*Result, error) {
	fe, ok := exec.(*FuncExecutable)
	if !ok {
		return &Result{Status: StatusFailed, Context: ec}, &UnsupportedExecutableError{Name: exec.Name()}
	}
	if err := fe.Run(ctx, ec); err != nil {
		return &Result{Status: StatusFailed, Context: ec, Err: err}, err
	}
	return &Result{Status: StatusCompleted, Context: ec}, nil
}

// ExecuteStreaming runs the executable, emitting a task_started and
// task_completed pair around it.
func (e *LocalEngine) ExecuteStreaming(ctx context.Context, exec Executable, ec *Context) (<-chan Event, error) {
	events := make(chan Event, 4)
	go func() {
		defer close(events)
		events <- Event{Type: EventTaskStarted, Task: exec.Name()}
		result, err := e.Execute(ctx, exec, ec)
		if err != nil {
			events <- Event{Type: EventFailed, Task: exec.Name(), Err: err.Error()}
			return
		}
		events <- Event{Type: EventTaskCompleted, Task: exec.Name(), Payload: result.Context.Public()}
		events <- Event{Type: EventCompleted, Payload: result.Context.Public()}
	}()
	return events, nil
}

// UnsupportedExecutableError reports an executable the engine cannot run.
type UnsupportedExecutableError struct {
	Name string
}

func (e *UnsupportedExecutableError) Error() string {
	return "engine cannot execute " + e.Name
}
