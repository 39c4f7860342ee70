package server

import (
	"encoding/json"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/invopop/jsonschema"

	"github.com/weftworks/weft/pkg/a2a"
	"github.com/weftworks/weft/pkg/config"
	"github.com/weftworks/weft/pkg/observability"
	"github.com/weftworks/weft/pkg/workflow"
)

// ============================================================================
// CARD DERIVATION
// ============================================================================

// resultShape mirrors the result object of a completed invocation; its
// reflected schema is advertised as the return shape of every capability.
type resultShape struct {
	Status    string                 `json:"status"`
	Result    map[string]interface{} `json:"result,omitempty"`
	Artifacts []interface{}          `json:"artifacts,omitempty"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

var returnsSchema = reflectReturnsSchema()

func reflectReturnsSchema() map[string]interface{} {
	reflector := jsonschema.Reflector{DoNotReference: true}
	schema := reflector.Reflect(&resultShape{})

	raw, err := json.Marshal(schema)
	if err != nil {
		return nil
	}
	var out map[string]interface{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil
	}
	return out
}

// BuildAgentCard derives the discovery document from the registry. The
// capability list follows registration order, so identical registries
// always produce identical cards (and identical ETags).
func BuildAgentCard(agent config.AgentConfig, baseURL string, reg *workflow.Registry) (*a2a.AgentCard, error) {
	executables := reg.List()
	capabilities := make([]a2a.Capability, 0, len(executables))
	for _, exec := range executables {
		capabilities = append(capabilities, capabilityFromExecutable(exec))
	}

	card, err := a2a.NewAgentCard(agent.Name, baseURL, capabilities)
	if err != nil {
		return nil, err
	}

	card.Description = agent.Description
	if agent.Version != "" {
		card.Version = agent.Version
	}
	if len(agent.InputModes) > 0 || len(agent.OutputModes) > 0 {
		modalities := append([]string{}, agent.InputModes...)
		for _, m := range agent.OutputModes {
			if !contains(modalities, m) {
				modalities = append(modalities, m)
			}
		}
		card.SupportedModalities = modalities
	}
	if agent.Provider != "" || agent.DocsURL != "" {
		card.Metadata = map[string]interface{}{}
		if agent.Provider != "" {
			card.Metadata["provider"] = agent.Provider
		}
		if agent.DocsURL != "" {
			card.Metadata["documentationUrl"] = agent.DocsURL
		}
	}

	return card, nil
}

// BuildGatewayCard merges several registries into one discovery document,
// namespacing each capability as "<registry>/<name>". Namespaces are
// visited in sorted order so identical registry sets always produce
// identical cards.
func BuildGatewayCard(agent config.AgentConfig, baseURL string, registries map[string]*workflow.Registry) (*a2a.AgentCard, error) {
	namespaces := make([]string, 0, len(registries))
	for ns := range registries {
		namespaces = append(namespaces, ns)
	}
	sort.Strings(namespaces)

	var capabilities []a2a.Capability
	for _, ns := range namespaces {
		for _, exec := range registries[ns].List() {
			capability := capabilityFromExecutable(exec)
			capability.Name = ns + "/" + capability.Name
			capabilities = append(capabilities, capability)
		}
	}

	card, err := a2a.NewAgentCard(agent.Name, baseURL, capabilities)
	if err != nil {
		return nil, err
	}
	card.Description = agent.Description
	if agent.Version != "" {
		card.Version = agent.Version
	}
	return card, nil
}

func capabilityFromExecutable(exec workflow.Executable) a2a.Capability {
	capability := a2a.Capability{
		Name:        exec.Name(),
		Description: exec.Description(),
		Returns:     returnsSchema,
		Tags:        []string{string(exec.Category())},
	}

	inputs := exec.Inputs()
	if len(inputs) == 0 {
		// No declared inputs means the executable accepts arbitrary
		// parameters.
		capability.Parameters = map[string]a2a.Parameter{
			"parameters": {
				Type:        "object",
				Description: "Dynamic parameters passed through to the executable",
			},
		}
		return capability
	}

	capability.Parameters = make(map[string]a2a.Parameter, len(inputs))
	for _, in := range inputs {
		capability.Parameters[in.Name] = a2a.Parameter{
			Type:        in.Type,
			Description: in.Description,
			Required:    in.Required,
		}
	}
	return capability
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// ============================================================================
// CARD HANDLER
// ============================================================================

// handleAgentCard serves the discovery document with cache validators.
// The card is re-derived from the live registry on every request, so
// skills registered or removed after startup are always advertised.
// Conditional requests that match the current ETag or modification time
// get a body-less 304.
func (s *Server) handleAgentCard(w http.ResponseWriter, r *http.Request) {
	card, etag, modified, err := s.refreshCard()
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to build agent card")
		return
	}

	maxAge := int(s.cfg.CardMaxAge / time.Second)
	w.Header().Set("Cache-Control", "public, max-age="+strconv.Itoa(maxAge))
	w.Header().Set("ETag", etag)
	w.Header().Set("Last-Modified", modified.Format(http.TimeFormat))

	if cardNotModified(r, etag, modified) {
		if m := observability.GetGlobalMetrics(); m != nil {
			m.RecordCardRequest(r.Context(), true)
		}
		w.WriteHeader(http.StatusNotModified)
		return
	}

	body, err := json.Marshal(card)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to serialize agent card")
		return
	}

	if m := observability.GetGlobalMetrics(); m != nil {
		m.RecordCardRequest(r.Context(), false)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}

// refreshCard rebuilds the card from the registry. Card identity and
// timestamps carry over from the previous build so the ETag moves only
// when the advertised content does, which keeps conditional requests
// working across rebuilds.
func (s *Server) refreshCard() (*a2a.AgentCard, string, time.Time, error) {
	s.cardMu.Lock()
	defer s.cardMu.Unlock()

	fresh, err := BuildAgentCard(s.agent, s.cfg.BaseURL, s.registry)
	if err != nil {
		return nil, "", time.Time{}, err
	}
	fresh.ID = s.card.ID
	fresh.CreatedAt = s.card.CreatedAt
	fresh.UpdatedAt = s.card.UpdatedAt

	etag, err := fresh.ETag()
	if err != nil {
		return nil, "", time.Time{}, err
	}
	if etag != s.cardETag {
		now := time.Now().UTC()
		fresh.UpdatedAt = now
		if etag, err = fresh.ETag(); err != nil {
			return nil, "", time.Time{}, err
		}
		s.card = fresh
		s.cardETag = etag
		s.cardModified = now.Truncate(time.Second)
	}
	return s.card, s.cardETag, s.cardModified, nil
}

// cardNotModified answers conditional requests. If-None-Match may carry
// a comma-separated list of validators, weak ones included.
func cardNotModified(r *http.Request, etag string, modified time.Time) bool {
	if match := r.Header.Get("If-None-Match"); match != "" {
		for _, candidate := range strings.Split(match, ",") {
			candidate = strings.TrimPrefix(strings.TrimSpace(candidate), "W/")
			if candidate == etag {
				return true
			}
		}
		return false
	}
	if since := r.Header.Get("If-Modified-Since"); since != "" {
		t, err := http.ParseTime(since)
		if err == nil && !modified.After(t) {
			return true
		}
	}
	return false
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
