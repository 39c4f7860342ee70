package a2a

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ============================================================================
// PART - Message Content Parts
// Closed union: TextPart | FilePart | DataPart. Every wire boundary
// dispatches on the "type" discriminator; unknown types are a
// ValidationError, never a silent default.
// ============================================================================

// PartType discriminates the part union.
type PartType string

const (
	PartTypeText PartType = "text"
	PartTypeFile PartType = "file"
	PartTypeData PartType = "data"
)

// DataEncoding names the serialization of a DataPart payload.
type DataEncoding string

const (
	EncodingJSON DataEncoding = "json"
	EncodingYAML DataEncoding = "yaml"
	EncodingXML  DataEncoding = "xml"
	EncodingCSV  DataEncoding = "csv"
)

// Part is a single content unit inside a Message.
type Part interface {
	PartType() PartType
	Validate() error
}

// ----------------------------------------------------------------------------
// TextPart
// ----------------------------------------------------------------------------

// TextPart carries plain text content.
type TextPart struct {
	Content  string                 `json:"content"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// NewTextPart creates a validated text part.
func NewTextPart(content string) (*TextPart, error) {
	p := &TextPart{Content: content}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *TextPart) PartType() PartType { return PartTypeText }

func (p *TextPart) Validate() error {
	if p.Content == "" {
		return NewValidationError("content", "text part requires content")
	}
	return nil
}

// WordCount returns the number of whitespace-separated words.
func (p *TextPart) WordCount() int {
	return len(strings.Fields(p.Content))
}

// LineCount returns the number of lines.
func (p *TextPart) LineCount() int {
	if p.Content == "" {
		return 0
	}
	return strings.Count(p.Content, "\n") + 1
}

// CharCount returns the number of runes.
func (p *TextPart) CharCount() int {
	return len([]rune(p.Content))
}

// Truncate returns the content cut to at most n runes, with an ellipsis
// when anything was removed.
func (p *TextPart) Truncate(n int) string {
	runes := []rune(p.Content)
	if len(runes) <= n {
		return p.Content
	}
	return string(runes[:n]) + "..."
}

func (p *TextPart) MarshalJSON() ([]byte, error) {
	type alias TextPart
	return json.Marshal(struct {
		Type PartType `json:"type"`
		*alias
	}{Type: PartTypeText, alias: (*alias)(p)})
}

// ----------------------------------------------------------------------------
// FilePart
// ----------------------------------------------------------------------------

// FilePart references a file on disk. The only I/O in the part model lives
// here: existence checks and base64 encoding read from FilePath.
type FilePart struct {
	FilePath    string                 `json:"filePath"`
	ContentType string                 `json:"contentType,omitempty"`
	Size        int64                  `json:"size,omitempty"`
	Filename    string                 `json:"filename,omitempty"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
}

// NewFilePart creates a file part, deriving content type, size, and
// filename from the path when the file exists.
func NewFilePart(path string) (*FilePart, error) {
	p := &FilePart{
		FilePath: path,
		Filename: filepath.Base(path),
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if ct := mime.TypeByExtension(filepath.Ext(path)); ct != "" {
		p.ContentType = ct
	} else {
		p.ContentType = "application/octet-stream"
	}
	if info, err := os.Stat(path); err == nil {
		p.Size = info.Size()
	}
	return p, nil
}

func (p *FilePart) PartType() PartType { return PartTypeFile }

func (p *FilePart) Validate() error {
	if p.FilePath == "" {
		return NewValidationError("filePath", "file part requires a file path")
	}
	return nil
}

// Exists reports whether the referenced file is present on disk.
func (p *FilePart) Exists() bool {
	info, err := os.Stat(p.FilePath)
	return err == nil && !info.IsDir()
}

// IsImage classifies by content type.
func (p *FilePart) IsImage() bool {
	return strings.HasPrefix(p.ContentType, "image/")
}

// IsText classifies by content type.
func (p *FilePart) IsText() bool {
	return strings.HasPrefix(p.ContentType, "text/") ||
		strings.Contains(p.ContentType, "json") ||
		strings.Contains(p.ContentType, "xml") ||
		strings.Contains(p.ContentType, "yaml")
}

// IsDocument classifies by content type.
func (p *FilePart) IsDocument() bool {
	switch {
	case strings.Contains(p.ContentType, "pdf"),
		strings.Contains(p.ContentType, "msword"),
		strings.Contains(p.ContentType, "officedocument"),
		strings.Contains(p.ContentType, "opendocument"):
		return true
	}
	return false
}

// IsBinary is the complement of IsText.
func (p *FilePart) IsBinary() bool {
	return !p.IsText()
}

// EncodeBase64 reads the file and returns its content base64-encoded.
func (p *FilePart) EncodeBase64() (string, error) {
	data, err := os.ReadFile(p.FilePath)
	if err != nil {
		return "", fmt.Errorf("failed to read file %s: %w", p.FilePath, err)
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

func (p *FilePart) MarshalJSON() ([]byte, error) {
	type alias FilePart
	return json.Marshal(struct {
		Type PartType `json:"type"`
		*alias
	}{Type: PartTypeFile, alias: (*alias)(p)})
}

// ----------------------------------------------------------------------------
// DataPart
// ----------------------------------------------------------------------------

// DataPart carries a structured value with an optional schema description.
type DataPart struct {
	Data     interface{}            `json:"data"`
	Schema   map[string]interface{} `json:"schema,omitempty"`
	Encoding DataEncoding           `json:"encoding,omitempty"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// NewDataPart creates a validated data part. Encoding defaults to json.
func NewDataPart(data interface{}) (*DataPart, error) {
	p := &DataPart{Data: data, Encoding: EncodingJSON}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *DataPart) PartType() PartType { return PartTypeData }

func (p *DataPart) Validate() error {
	if p.Data == nil {
		return NewValidationError("data", "data part requires data")
	}
	switch p.Encoding {
	case "", EncodingJSON, EncodingYAML, EncodingXML, EncodingCSV:
		return nil
	}
	return NewValidationError("encoding", "unsupported encoding %q", p.Encoding)
}

// Serialize renders the data in the part's encoding.
func (p *DataPart) Serialize() ([]byte, error) {
	switch p.Encoding {
	case "", EncodingJSON:
		return json.Marshal(p.Data)
	case EncodingYAML:
		return yaml.Marshal(p.Data)
	default:
		// XML and CSV payloads are treated as pre-serialized strings.
		if s, ok := p.Data.(string); ok {
			return []byte(s), nil
		}
		return nil, NewValidationError("encoding", "%s encoding requires string data", p.Encoding)
	}
}

// ValidateSchema performs a basic type-shape check of Data against the
// part's schema (a JSON-Schema-like {"properties": {...}, "required": [...]}
// description). Nil schema always passes.
func (p *DataPart) ValidateSchema() error {
	if p.Schema == nil {
		return nil
	}
	obj, ok := p.Data.(map[string]interface{})
	if !ok {
		if _, hasProps := p.Schema["properties"]; hasProps {
			return NewValidationError("data", "schema describes an object, data is %T", p.Data)
		}
		return nil
	}
	if required, ok := p.Schema["required"].([]interface{}); ok {
		for _, field := range required {
			name, _ := field.(string)
			if _, present := obj[name]; !present {
				return NewValidationError("data", "missing required field %q", name)
			}
		}
	}
	props, _ := p.Schema["properties"].(map[string]interface{})
	for name, raw := range props {
		spec, _ := raw.(map[string]interface{})
		want, _ := spec["type"].(string)
		value, present := obj[name]
		if !present || want == "" {
			continue
		}
		if !matchesJSONType(value, want) {
			return NewValidationError("data", "field %q is not of type %s", name, want)
		}
	}
	return nil
}

func matchesJSONType(value interface{}, want string) bool {
	switch want {
	case "string":
		_, ok := value.(string)
		return ok
	case "number", "integer":
		switch value.(type) {
		case int, int32, int64, float32, float64, json.Number:
			return true
		}
		return false
	case "boolean":
		_, ok := value.(bool)
		return ok
	case "object":
		_, ok := value.(map[string]interface{})
		return ok
	case "array":
		_, ok := value.([]interface{})
		return ok
	case "null":
		return value == nil
	}
	return true
}

func (p *DataPart) MarshalJSON() ([]byte, error) {
	type alias DataPart
	return json.Marshal(struct {
		Type PartType `json:"type"`
		*alias
	}{Type: PartTypeData, alias: (*alias)(p)})
}

// ----------------------------------------------------------------------------
// WIRE DISPATCH
// ----------------------------------------------------------------------------

// UnmarshalPart decodes a single part, dispatching on the "type"
// discriminator. Unknown types fail with a ValidationError.
func UnmarshalPart(raw json.RawMessage) (Part, error) {
	var head struct {
		Type PartType `json:"type"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return nil, &ProtocolError{Message: "decode part", Err: err}
	}

	switch head.Type {
	case PartTypeText:
		var p TextPart
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, &ProtocolError{Message: "decode text part", Err: err}
		}
		if err := p.Validate(); err != nil {
			return nil, err
		}
		return &p, nil
	case PartTypeFile:
		var p FilePart
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, &ProtocolError{Message: "decode file part", Err: err}
		}
		if err := p.Validate(); err != nil {
			return nil, err
		}
		return &p, nil
	case PartTypeData:
		var p DataPart
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, &ProtocolError{Message: "decode data part", Err: err}
		}
		if err := p.Validate(); err != nil {
			return nil, err
		}
		return &p, nil
	case "":
		return nil, NewValidationError("type", "part is missing a type discriminator")
	default:
		return nil, NewValidationError("type", "unknown part type %q", head.Type)
	}
}
