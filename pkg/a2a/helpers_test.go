package a2a

import (
	"strings"
	"testing"
)

func TestTextParts(t *testing.T) {
	msg, _ := NewTextMessage(MessageRoleUser, "first")
	data, _ := NewDataPart(map[string]interface{}{"k": "v"})
	msg.AddPart(data)
	second, _ := NewTextPart("second")
	msg.AddPart(second)

	got := TextParts(msg)
	if len(got) != 2 || got[0] != "first" || got[1] != "second" {
		t.Errorf("TextParts = %v", got)
	}
}

func TestHasTextContent(t *testing.T) {
	withText, _ := NewTextMessage(MessageRoleUser, "hi")
	if !HasTextContent(withText) {
		t.Error("message with text reported as empty")
	}

	data, _ := NewDataPart(map[string]interface{}{"k": "v"})
	dataOnly, _ := NewMessage(MessageRoleUser, data)
	if HasTextContent(dataOnly) {
		t.Error("data-only message reported as having text")
	}
}

func TestMessageSummary(t *testing.T) {
	msg, _ := NewTextMessage(MessageRoleUser, "short note")
	if got := MessageSummary(msg); got != "[user: short note]" {
		t.Errorf("MessageSummary = %q", got)
	}

	long, _ := NewTextMessage(MessageRoleAgent, strings.Repeat("x", 150))
	if got := MessageSummary(long); !strings.HasSuffix(got, "...]") {
		t.Errorf("long summary not truncated: %q", got)
	}

	data, _ := NewDataPart(map[string]interface{}{"k": "v"})
	dataOnly, _ := NewMessage(MessageRoleSystem, data)
	if got := MessageSummary(dataOnly); got != "[system: <no text>]" {
		t.Errorf("MessageSummary = %q", got)
	}
}
