package a2a

import (
	"encoding/json"
	"testing"
)

func TestArtifactChecksumTracksContent(t *testing.T) {
	doc, err := NewDocumentArtifact("report", "first version")
	if err != nil {
		t.Fatalf("NewDocumentArtifact failed: %v", err)
	}

	if !doc.VerifyChecksum() {
		t.Fatal("fresh artifact fails checksum verification")
	}
	firstChecksum := doc.Checksum
	firstSize := doc.Size

	if err := doc.UpdateContent("a much longer second version of the document"); err != nil {
		t.Fatalf("UpdateContent failed: %v", err)
	}

	if doc.Checksum == firstChecksum {
		t.Error("checksum unchanged after content update")
	}
	if doc.Size == firstSize {
		t.Error("size unchanged after content update")
	}
	if !doc.VerifyChecksum() {
		t.Error("updated artifact fails checksum verification")
	}
}

func TestDocumentArtifactAnalysis(t *testing.T) {
	content := "# Title\n\nSome words here.\n\n## Section\n\nMore words."
	doc, _ := NewDocumentArtifact("doc", content)

	if got := doc.WordCount(); got != 8 {
		t.Errorf("WordCount = %d, want 8", got)
	}
	headings := doc.Headings()
	if len(headings) != 2 || headings[0] != "Title" || headings[1] != "Section" {
		t.Errorf("Headings = %v", headings)
	}
	if doc.ParagraphCount() < 2 {
		t.Errorf("ParagraphCount = %d", doc.ParagraphCount())
	}
	if doc.ReadingTime() <= 0 {
		t.Error("ReadingTime should be positive")
	}
}

func TestDataArtifactKeys(t *testing.T) {
	data, err := NewDataArtifact("results", map[string]interface{}{
		"alpha": 1,
		"beta":  2,
	})
	if err != nil {
		t.Fatalf("NewDataArtifact failed: %v", err)
	}

	keys := data.Keys()
	if len(keys) != 2 {
		t.Fatalf("Keys = %v", keys)
	}
	if v, ok := data.Value("alpha"); !ok || v != 1 {
		t.Errorf("Value(alpha) = %v, %v", v, ok)
	}
}

func TestCodeArtifactDetectLanguage(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"go", "package main\n\nfunc main() {}", "go"},
		{"python", "def main():\n    pass", "python"},
		{"javascript", "function main() { const x = 1; }", "javascript"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, err := NewCodeArtifact("snippet", tt.content, "")
			if err != nil {
				t.Fatalf("NewCodeArtifact failed: %v", err)
			}
			if got := code.DetectLanguage(); got != tt.want {
				t.Errorf("DetectLanguage = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestUnmarshalArtifactDispatch(t *testing.T) {
	doc, _ := NewDocumentArtifact("doc", "content body")
	raw, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	decoded, err := UnmarshalArtifact(raw)
	if err != nil {
		t.Fatalf("UnmarshalArtifact failed: %v", err)
	}
	if decoded.ArtifactType() != ArtifactTypeDocument {
		t.Errorf("ArtifactType = %q", decoded.ArtifactType())
	}
	if decoded.Core().ID != doc.ID {
		t.Errorf("ID = %q, want %q", decoded.Core().ID, doc.ID)
	}
}

func TestUnmarshalArtifactValidationFailure(t *testing.T) {
	raw := `{"type":"document","id":"d1","content":"body"}`
	a, err := UnmarshalArtifact(json.RawMessage(raw))
	if err == nil {
		t.Fatal("expected validation error for nameless artifact")
	}
	if a != nil {
		t.Errorf("artifact = %v, want nil alongside the error", a)
	}
}

func TestUnmarshalArtifactUnknownType(t *testing.T) {
	raw := `{"type":"hologram","id":"x","name":"n","content":"c"}`
	if _, err := UnmarshalArtifact(json.RawMessage(raw)); err == nil {
		t.Fatal("expected error for unknown artifact type")
	}
}
