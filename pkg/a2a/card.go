package a2a

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/url"
	"time"

	"github.com/google/uuid"
)

// ============================================================================
// AGENT CARD - Agent Discovery & Capability Advertisement
// The machine-readable discovery document served at /.well-known/agent.json.
// ============================================================================

// DefaultVersion is the card version used when none is supplied.
const DefaultVersion = "1.0.0"

// Parameter describes a single capability parameter.
type Parameter struct {
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
	Required    bool   `json:"required"`
}

// Example pairs an input with the output it produces.
type Example struct {
	Description string                 `json:"description,omitempty"`
	Input       map[string]interface{} `json:"input"`
	Output      map[string]interface{} `json:"output,omitempty"`
}

// Capability is a single named, invocable operation an agent exposes.
type Capability struct {
	Name                string                 `json:"name"`
	Description         string                 `json:"description"`
	Parameters          map[string]Parameter   `json:"parameters,omitempty"`
	Returns             map[string]interface{} `json:"returns,omitempty"`
	Examples            []Example              `json:"examples,omitempty"`
	Tags                []string               `json:"tags,omitempty"`
	RequiredPermissions []string               `json:"requiredPermissions,omitempty"`
}

// Validate checks the required capability fields.
func (c *Capability) Validate() error {
	if c.Name == "" {
		return NewValidationError("name", "capability requires a name")
	}
	if c.Description == "" {
		return NewValidationError("description", "capability %q requires a description", c.Name)
	}
	return nil
}

// AgentCard is the discovery document describing an agent's identity,
// supported modalities, authentication requirements, and capabilities.
type AgentCard struct {
	ID                         string                 `json:"id"`
	Name                       string                 `json:"name"`
	Description                string                 `json:"description,omitempty"`
	Version                    string                 `json:"version"`
	ServiceEndpointURL         string                 `json:"serviceEndpointURL"`
	SupportedModalities        []string               `json:"supportedModalities"`
	AuthenticationRequirements map[string]interface{} `json:"authenticationRequirements,omitempty"`
	Capabilities               []Capability           `json:"capabilities"`
	Metadata                   map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt                  time.Time              `json:"createdAt"`
	UpdatedAt                  time.Time              `json:"updatedAt"`
}

// NewAgentCard creates a card with generated identity and defaults applied.
func NewAgentCard(name, endpointURL string, capabilities []Capability) (*AgentCard, error) {
	now := time.Now().UTC()
	card := &AgentCard{
		ID:                  uuid.New().String(),
		Name:                name,
		Version:             DefaultVersion,
		ServiceEndpointURL:  endpointURL,
		SupportedModalities: []string{"text", "json"},
		Capabilities:        capabilities,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	if err := card.Validate(); err != nil {
		return nil, err
	}
	return card, nil
}

// Validate enforces the card invariants: a name, a well-formed absolute
// endpoint URL, and a non-empty list of valid capabilities.
func (c *AgentCard) Validate() error {
	if c.Name == "" {
		return NewValidationError("name", "agent card requires a name")
	}
	u, err := url.Parse(c.ServiceEndpointURL)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return NewValidationError("serviceEndpointURL", "%q is not an absolute URL", c.ServiceEndpointURL)
	}
	if len(c.Capabilities) == 0 {
		return NewValidationError("capabilities", "agent card requires at least one capability")
	}
	for i := range c.Capabilities {
		if err := c.Capabilities[i].Validate(); err != nil {
			return NewValidationError("capabilities", "capability %d: %v", i, err)
		}
	}
	return nil
}

// HasCapability reports whether the card advertises the named capability.
func (c *AgentCard) HasCapability(name string) bool {
	for i := range c.Capabilities {
		if c.Capabilities[i].Name == name {
			return true
		}
	}
	return false
}

// CapabilityNames returns the advertised names in card order.
func (c *AgentCard) CapabilityNames() []string {
	names := make([]string, len(c.Capabilities))
	for i := range c.Capabilities {
		names[i] = c.Capabilities[i].Name
	}
	return names
}

// ETag returns a content hash suitable for conditional requests. The same
// card content always yields the same tag.
func (c *AgentCard) ETag() (string, error) {
	data, err := json.Marshal(c)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return `"` + hex.EncodeToString(sum[:16]) + `"`, nil
}

// ParseAgentCard decodes and validates a card from the wire. Malformed JSON
// is a ProtocolError; a structurally valid document that violates the card
// invariants is a ValidationError.
func ParseAgentCard(data []byte) (*AgentCard, error) {
	var card AgentCard
	if err := json.Unmarshal(data, &card); err != nil {
		return nil, &ProtocolError{Message: "decode agent card", Err: err}
	}
	if card.Version == "" {
		card.Version = DefaultVersion
	}
	if len(card.SupportedModalities) == 0 {
		card.SupportedModalities = []string{"text", "json"}
	}
	if err := card.Validate(); err != nil {
		return nil, err
	}
	return &card, nil
}
