package a2a

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ============================================================================
// MESSAGE - Ordered sequence of parts
// ============================================================================

// MessageRole identifies the sender of a message.
type MessageRole string

const (
	MessageRoleUser   MessageRole = "user"
	MessageRoleAgent  MessageRole = "agent"
	MessageRoleSystem MessageRole = "system"
)

// Message is an ordered sequence of parts with identity and a timestamp
// that is refreshed on any mutation.
type Message struct {
	ID        string                 `json:"id"`
	Role      MessageRole            `json:"role"`
	Parts     []Part                 `json:"parts"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

// NewMessage creates a message with a generated ID and current timestamp.
func NewMessage(role MessageRole, parts ...Part) (*Message, error) {
	m := &Message{
		ID:        uuid.New().String(),
		Role:      role,
		Parts:     parts,
		Timestamp: time.Now().UTC(),
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// NewTextMessage creates a message holding a single text part.
func NewTextMessage(role MessageRole, text string) (*Message, error) {
	part, err := NewTextPart(text)
	if err != nil {
		return nil, err
	}
	return NewMessage(role, part)
}

// Validate checks the role and every part. Invalid membership is a
// ValidationError, not a runtime crash.
func (m *Message) Validate() error {
	switch m.Role {
	case MessageRoleUser, MessageRoleAgent, MessageRoleSystem:
	default:
		return NewValidationError("role", "unknown role %q", m.Role)
	}
	for i, part := range m.Parts {
		if part == nil {
			return NewValidationError("parts", "part %d is nil", i)
		}
		if err := part.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// AddPart appends a part and refreshes the timestamp.
func (m *Message) AddPart(part Part) error {
	if part == nil {
		return NewValidationError("parts", "part is nil")
	}
	if err := part.Validate(); err != nil {
		return err
	}
	m.Parts = append(m.Parts, part)
	m.Timestamp = time.Now().UTC()
	return nil
}

// TextContent concatenates all text parts, newline-separated.
func (m *Message) TextContent() string {
	var out string
	for _, part := range m.Parts {
		if tp, ok := part.(*TextPart); ok {
			if out != "" {
				out += "\n"
			}
			out += tp.Content
		}
	}
	return out
}

func (m *Message) UnmarshalJSON(data []byte) error {
	var wire struct {
		ID        string                 `json:"id"`
		Role      MessageRole            `json:"role"`
		Parts     []json.RawMessage      `json:"parts"`
		Metadata  map[string]interface{} `json:"metadata"`
		Timestamp time.Time              `json:"timestamp"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return &ProtocolError{Message: "decode message", Err: err}
	}

	parts := make([]Part, 0, len(wire.Parts))
	for _, raw := range wire.Parts {
		part, err := UnmarshalPart(raw)
		if err != nil {
			return err
		}
		parts = append(parts, part)
	}

	m.ID = wire.ID
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	m.Role = wire.Role
	m.Parts = parts
	m.Metadata = wire.Metadata
	m.Timestamp = wire.Timestamp
	return m.Validate()
}
