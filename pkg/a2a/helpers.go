package a2a

import (
	"fmt"
)

// ============================================================================
// MESSAGE HELPER FUNCTIONS
// ============================================================================

// TextParts returns the content of every text part in a message.
func TextParts(msg *Message) []string {
	var texts []string
	for _, part := range msg.Parts {
		if tp, ok := part.(*TextPart); ok {
			texts = append(texts, tp.Content)
		}
	}
	return texts
}

// HasTextContent checks whether a message contains any non-empty text part.
func HasTextContent(msg *Message) bool {
	for _, part := range msg.Parts {
		if tp, ok := part.(*TextPart); ok && tp.Content != "" {
			return true
		}
	}
	return false
}

// MessageSummary renders a message as a short single line for logging.
func MessageSummary(msg *Message) string {
	text := msg.TextContent()
	if text == "" {
		return fmt.Sprintf("[%s: <no text>]", msg.Role)
	}
	if len(text) > 100 {
		return fmt.Sprintf("[%s: %s...]", msg.Role, text[:100])
	}
	return fmt.Sprintf("[%s: %s]", msg.Role, text)
}

// FilterMessagesByRole filters messages by role.
func FilterMessagesByRole(messages []*Message, role MessageRole) []*Message {
	var filtered []*Message
	for _, msg := range messages {
		if msg.Role == role {
			filtered = append(filtered, msg)
		}
	}
	return filtered
}
