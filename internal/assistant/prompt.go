package assistant

import (
	"fmt"
	"strings"

	"github.com/gluk-w/aiterm/internal/config"
	"github.com/gluk-w/aiterm/internal/history"
)

// FormatHistory renders a message window as prompt context. Conversation
// continuity is achieved purely by re-sending this on every call; the
// backend itself is stateless.
func FormatHistory(msgs []history.Message) string {
	if len(msgs) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("\nPrevious conversation context:\n")
	for _, m := range msgs {
		label := "User"
		if m.Role == history.RoleAssistant {
			label = "Assistant"
		}
		fmt.Fprintf(&b, "%s: %s\n", label, m.Content)
	}
	return b.String()
}

func buildChatPrompt(persona config.Persona, msgs []history.Message, prompt string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are %s, a %s.\n", persona.Name, persona.Role)
	b.WriteString(FormatHistory(msgs))
	fmt.Fprintf(&b, "\nUser: %s\nAssistant:", prompt)
	return b.String()
}

func buildCommandPrompt(persona config.Persona, msgs []history.Message, description string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are %s, a %s. Translate the user's request into exactly one shell command.\n", persona.Name, persona.Role)
	b.WriteString("Respond with a single line containing only the command to run.\n")
	b.WriteString("Do not add explanations, code fences, or any other text.\n")
	b.WriteString(FormatHistory(msgs))
	fmt.Fprintf(&b, "\nRequest: %s\nCommand:", description)
	return b.String()
}

// commandPrefixes are conversational wrappers some models prepend despite the
// instructions. Stripping them is best-effort normalization, not a guarantee.
var commandPrefixes = []string{
	"generated command:",
	"command:",
	"here is the command:",
	"$",
}

// NormalizeCommand extracts a bare shell command from a model reply: code
// fence markers and known prefixes are stripped and the first non-empty line
// wins. An empty result means the reply was unusable.
func NormalizeCommand(raw string) string {
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "```") {
			continue
		}
		lower := strings.ToLower(line)
		for _, prefix := range commandPrefixes {
			if strings.HasPrefix(lower, prefix) {
				line = strings.TrimSpace(line[len(prefix):])
				lower = strings.ToLower(line)
			}
		}
		line = strings.Trim(line, "`")
		line = strings.TrimSpace(line)
		if line != "" {
			return line
		}
	}
	return ""
}
