package a2a

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ============================================================================
// ARTIFACT - Typed invocation outputs
// Closed union: Document | Image | Data | Code. The checksum invariant is
// owned by ArtifactCore: any content mutation recomputes size and checksum
// together, never one without the other.
// ============================================================================

// ArtifactType discriminates the artifact union.
type ArtifactType string

const (
	ArtifactTypeDocument ArtifactType = "document"
	ArtifactTypeImage    ArtifactType = "image"
	ArtifactTypeData     ArtifactType = "data"
	ArtifactTypeCode     ArtifactType = "code"
)

// Artifact is a named, typed unit of output produced by an invocation.
type Artifact interface {
	ArtifactType() ArtifactType
	Core() *ArtifactCore
	Validate() error
}

// ArtifactCore holds the attributes shared by all artifact variants.
type ArtifactCore struct {
	ID          string                 `json:"id"`
	Name        string                 `json:"name"`
	Description string                 `json:"description,omitempty"`
	Content     interface{}            `json:"content"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt   time.Time              `json:"createdAt"`
	UpdatedAt   time.Time              `json:"updatedAt"`
	Size        int64                  `json:"size"`
	Checksum    string                 `json:"checksum"`
}

func newArtifactCore(name string, content interface{}) (ArtifactCore, error) {
	now := time.Now().UTC()
	core := ArtifactCore{
		ID:        uuid.New().String(),
		Name:      name,
		CreatedAt: now,
	}
	if err := core.UpdateContent(content); err != nil {
		return ArtifactCore{}, err
	}
	return core, nil
}

// Core returns the shared attributes.
func (c *ArtifactCore) Core() *ArtifactCore { return c }

// UpdateContent replaces the content and recomputes size and checksum
// atomically, refreshing the update timestamp.
func (c *ArtifactCore) UpdateContent(content interface{}) error {
	data, err := SerializeContent(content)
	if err != nil {
		return err
	}
	sum := sha256.Sum256(data)
	c.Content = content
	c.Size = int64(len(data))
	c.Checksum = hex.EncodeToString(sum[:])
	c.UpdatedAt = time.Now().UTC()
	return nil
}

// VerifyChecksum recomputes the checksum and reports whether the stored
// value still matches the content.
func (c *ArtifactCore) VerifyChecksum() bool {
	data, err := SerializeContent(c.Content)
	if err != nil {
		return false
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]) == c.Checksum
}

func (c *ArtifactCore) validateCore() error {
	if c.Name == "" {
		return NewValidationError("name", "artifact requires a name")
	}
	return nil
}

// ContentText returns the content as a string when it is one.
func (c *ArtifactCore) ContentText() string {
	s, _ := c.Content.(string)
	return s
}

// SerializeContent renders artifact content to bytes: strings pass through
// as raw bytes, everything else is JSON-encoded.
func SerializeContent(content interface{}) ([]byte, error) {
	switch v := content.(type) {
	case nil:
		return nil, nil
	case string:
		return []byte(v), nil
	case []byte:
		return v, nil
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return nil, NewValidationError("content", "content is not serializable: %v", err)
		}
		return data, nil
	}
}

// ----------------------------------------------------------------------------
// DocumentArtifact
// ----------------------------------------------------------------------------

var headingPattern = regexp.MustCompile(`(?m)^#{1,6}\s+(.+)$`)

// DocumentArtifact is textual output: reports, summaries, rendered prose.
type DocumentArtifact struct {
	ArtifactCore
}

// NewDocumentArtifact creates a document artifact from text content.
func NewDocumentArtifact(name, content string) (*DocumentArtifact, error) {
	core, err := newArtifactCore(name, content)
	if err != nil {
		return nil, err
	}
	a := &DocumentArtifact{ArtifactCore: core}
	if err := a.Validate(); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *DocumentArtifact) ArtifactType() ArtifactType { return ArtifactTypeDocument }

func (a *DocumentArtifact) Validate() error { return a.validateCore() }

// WordCount returns the number of whitespace-separated words.
func (a *DocumentArtifact) WordCount() int {
	return len(strings.Fields(a.ContentText()))
}

// LineCount returns the number of lines.
func (a *DocumentArtifact) LineCount() int {
	text := a.ContentText()
	if text == "" {
		return 0
	}
	return strings.Count(text, "\n") + 1
}

// ParagraphCount returns the number of blank-line separated paragraphs.
func (a *DocumentArtifact) ParagraphCount() int {
	count := 0
	for _, block := range strings.Split(a.ContentText(), "\n\n") {
		if strings.TrimSpace(block) != "" {
			count++
		}
	}
	return count
}

// ReadingTime estimates reading time at 200 words per minute.
func (a *DocumentArtifact) ReadingTime() time.Duration {
	words := a.WordCount()
	minutes := float64(words) / 200.0
	return time.Duration(minutes * float64(time.Minute))
}

// Headings extracts markdown headings from the content.
func (a *DocumentArtifact) Headings() []string {
	matches := headingPattern.FindAllStringSubmatch(a.ContentText(), -1)
	headings := make([]string, 0, len(matches))
	for _, m := range matches {
		headings = append(headings, strings.TrimSpace(m[1]))
	}
	return headings
}

func (a *DocumentArtifact) MarshalJSON() ([]byte, error) {
	return marshalArtifact(ArtifactTypeDocument, &a.ArtifactCore, nil)
}

// ----------------------------------------------------------------------------
// ImageArtifact
// ----------------------------------------------------------------------------

// ImageArtifact is binary image output. Content holds the raw bytes as a
// base64 string on the wire.
type ImageArtifact struct {
	ArtifactCore
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
	Format string `json:"format,omitempty"`
}

// NewImageArtifact creates an image artifact from raw bytes.
func NewImageArtifact(name string, data []byte, format string) (*ImageArtifact, error) {
	core, err := newArtifactCore(name, base64.StdEncoding.EncodeToString(data))
	if err != nil {
		return nil, err
	}
	a := &ImageArtifact{ArtifactCore: core, Format: format}
	if err := a.Validate(); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *ImageArtifact) ArtifactType() ArtifactType { return ArtifactTypeImage }

func (a *ImageArtifact) Validate() error {
	if err := a.validateCore(); err != nil {
		return err
	}
	if a.Width < 0 || a.Height < 0 {
		return NewValidationError("dimensions", "negative image dimensions")
	}
	return nil
}

// DataURL renders the image as a data: URL for embedding.
func (a *ImageArtifact) DataURL() string {
	format := a.Format
	if format == "" {
		format = "png"
	}
	return fmt.Sprintf("data:image/%s;base64,%s", format, a.ContentText())
}

// AspectRatio returns width/height, or 0 when unknown.
func (a *ImageArtifact) AspectRatio() float64 {
	if a.Height == 0 {
		return 0
	}
	return float64(a.Width) / float64(a.Height)
}

func (a *ImageArtifact) MarshalJSON() ([]byte, error) {
	return marshalArtifact(ArtifactTypeImage, &a.ArtifactCore, map[string]interface{}{
		"width":  a.Width,
		"height": a.Height,
		"format": a.Format,
	})
}

// ----------------------------------------------------------------------------
// DataArtifact
// ----------------------------------------------------------------------------

// DataArtifact is structured output with an optional schema.
type DataArtifact struct {
	ArtifactCore
	Schema   map[string]interface{} `json:"schema,omitempty"`
	Encoding DataEncoding           `json:"encoding,omitempty"`
}

// NewDataArtifact creates a data artifact from a structured value.
func NewDataArtifact(name string, data interface{}) (*DataArtifact, error) {
	core, err := newArtifactCore(name, data)
	if err != nil {
		return nil, err
	}
	a := &DataArtifact{ArtifactCore: core, Encoding: EncodingJSON}
	if err := a.Validate(); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *DataArtifact) ArtifactType() ArtifactType { return ArtifactTypeData }

func (a *DataArtifact) Validate() error { return a.validateCore() }

// Keys returns the top-level keys when the content is an object.
func (a *DataArtifact) Keys() []string {
	obj, ok := a.Content.(map[string]interface{})
	if !ok {
		return nil
	}
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	return keys
}

// Value returns a top-level value by key.
func (a *DataArtifact) Value(key string) (interface{}, bool) {
	obj, ok := a.Content.(map[string]interface{})
	if !ok {
		return nil, false
	}
	v, present := obj[key]
	return v, present
}

// Parsed returns the content decoded into a structured value. String
// content is parsed as JSON; structured content is returned as-is.
func (a *DataArtifact) Parsed() (interface{}, error) {
	if s, ok := a.Content.(string); ok {
		var out interface{}
		if err := json.Unmarshal([]byte(s), &out); err != nil {
			return nil, &ProtocolError{Message: "parse data artifact content", Err: err}
		}
		return out, nil
	}
	return a.Content, nil
}

func (a *DataArtifact) MarshalJSON() ([]byte, error) {
	extra := map[string]interface{}{}
	if a.Schema != nil {
		extra["schema"] = a.Schema
	}
	if a.Encoding != "" {
		extra["encoding"] = a.Encoding
	}
	return marshalArtifact(ArtifactTypeData, &a.ArtifactCore, extra)
}

// ----------------------------------------------------------------------------
// CodeArtifact
// ----------------------------------------------------------------------------

var (
	funcPattern  = regexp.MustCompile(`(?m)^\s*(?:func|def|function)\s+([A-Za-z_][A-Za-z0-9_]*)`)
	classPattern = regexp.MustCompile(`(?m)^\s*(?:class|type)\s+([A-Za-z_][A-Za-z0-9_]*)`)
)

// CodeArtifact is source-code output.
type CodeArtifact struct {
	ArtifactCore
	Language string `json:"language,omitempty"`
}

// NewCodeArtifact creates a code artifact, detecting the language from
// content when none is given.
func NewCodeArtifact(name, content, language string) (*CodeArtifact, error) {
	core, err := newArtifactCore(name, content)
	if err != nil {
		return nil, err
	}
	a := &CodeArtifact{ArtifactCore: core, Language: language}
	if a.Language == "" {
		a.Language = a.DetectLanguage()
	}
	if err := a.Validate(); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *CodeArtifact) ArtifactType() ArtifactType { return ArtifactTypeCode }

func (a *CodeArtifact) Validate() error { return a.validateCore() }

// DetectLanguage guesses the language from content markers.
func (a *CodeArtifact) DetectLanguage() string {
	text := a.ContentText()
	switch {
	case strings.Contains(text, "package ") && strings.Contains(text, "func "):
		return "go"
	case strings.Contains(text, "def ") && strings.Contains(text, ":"):
		return "python"
	case strings.Contains(text, "function ") || strings.Contains(text, "=>"):
		return "javascript"
	case strings.Contains(text, "class ") && strings.Contains(text, "end"):
		return "ruby"
	default:
		return "text"
	}
}

// Functions extracts function names from the content.
func (a *CodeArtifact) Functions() []string {
	return submatches(funcPattern, a.ContentText())
}

// Classes extracts class/type names from the content.
func (a *CodeArtifact) Classes() []string {
	return submatches(classPattern, a.ContentText())
}

// Rendered returns the content with line numbers, for display.
func (a *CodeArtifact) Rendered() string {
	lines := strings.Split(a.ContentText(), "\n")
	var b strings.Builder
	for i, line := range lines {
		fmt.Fprintf(&b, "%4d | %s\n", i+1, line)
	}
	return b.String()
}

func (a *CodeArtifact) MarshalJSON() ([]byte, error) {
	extra := map[string]interface{}{}
	if a.Language != "" {
		extra["language"] = a.Language
	}
	return marshalArtifact(ArtifactTypeCode, &a.ArtifactCore, extra)
}

func submatches(pattern *regexp.Regexp, text string) []string {
	matches := pattern.FindAllStringSubmatch(text, -1)
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		names = append(names, m[1])
	}
	return names
}

// ----------------------------------------------------------------------------
// WIRE DISPATCH
// ----------------------------------------------------------------------------

func marshalArtifact(t ArtifactType, core *ArtifactCore, extra map[string]interface{}) ([]byte, error) {
	out := map[string]interface{}{
		"type":      t,
		"id":        core.ID,
		"name":      core.Name,
		"content":   core.Content,
		"createdAt": core.CreatedAt,
		"updatedAt": core.UpdatedAt,
		"size":      core.Size,
		"checksum":  core.Checksum,
	}
	if core.Description != "" {
		out["description"] = core.Description
	}
	if core.Metadata != nil {
		out["metadata"] = core.Metadata
	}
	for k, v := range extra {
		out[k] = v
	}
	return json.Marshal(out)
}

// UnmarshalArtifact decodes a single artifact, dispatching on the "type"
// discriminator. Unknown types fail with a ValidationError.
func UnmarshalArtifact(raw json.RawMessage) (Artifact, error) {
	var head struct {
		Type ArtifactType `json:"type"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return nil, &ProtocolError{Message: "decode artifact", Err: err}
	}

	switch head.Type {
	case ArtifactTypeDocument:
		var a DocumentArtifact
		if err := json.Unmarshal(raw, &a.ArtifactCore); err != nil {
			return nil, &ProtocolError{Message: "decode document artifact", Err: err}
		}
		if err := a.Validate(); err != nil {
			return nil, err
		}
		return &a, nil
	case ArtifactTypeImage:
		var a ImageArtifact
		if err := json.Unmarshal(raw, &a); err != nil {
			return nil, &ProtocolError{Message: "decode image artifact", Err: err}
		}
		if err := a.Validate(); err != nil {
			return nil, err
		}
		return &a, nil
	case ArtifactTypeData:
		var a DataArtifact
		if err := json.Unmarshal(raw, &a); err != nil {
			return nil, &ProtocolError{Message: "decode data artifact", Err: err}
		}
		if err := a.Validate(); err != nil {
			return nil, err
		}
		return &a, nil
	case ArtifactTypeCode:
		var a CodeArtifact
		if err := json.Unmarshal(raw, &a); err != nil {
			return nil, &ProtocolError{Message: "decode code artifact", Err: err}
		}
		if err := a.Validate(); err != nil {
			return nil, err
		}
		return &a, nil
	case "":
		return nil, NewValidationError("type", "artifact is missing a type discriminator")
	default:
		return nil, NewValidationError("type", "unknown artifact type %q", head.Type)
	}
}

// UnmarshalArtifacts decodes a list of artifacts.
func UnmarshalArtifacts(raws []json.RawMessage) ([]Artifact, error) {
	artifacts := make([]Artifact, 0, len(raws))
	for _, raw := range raws {
		a, err := UnmarshalArtifact(raw)
		if err != nil {
			return nil, err
		}
		artifacts = append(artifacts, a)
	}
	return artifacts, nil
}
