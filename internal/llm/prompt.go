package llm

import "strings"

// ExtractPrompt returns the text of the most recent user message. Earlier
// turns are never folded in. The boolean is false when there is no user
// message or the latest one carries no text.
func ExtractPrompt(messages []Message) (string, bool) {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role != RoleUser {
			continue
		}

		text := messages[i].Content.String()
		return text, strings.TrimSpace(text) != ""
	}

	return "", false
}

// CountWords is the informal token count used for usage reporting.
func CountWords(text string) int {
	return len(strings.Fields(text))
}
