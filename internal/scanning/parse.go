package scanning

import (
	"strings"
)

// cleanTranscript strips markdown fences and surrounding whitespace that
// models add despite the prompt. Inner line breaks are kept as recognized.
func cleanTranscript(text string) (string, error) {
	text = strings.TrimSpace(text)

	if strings.HasPrefix(text, "```") {
		// Drop the opening fence and its language tag
		if nl := strings.IndexByte(text, '\n'); nl >= 0 {
			text = text[nl+1:]
		} else {
			text = strings.TrimPrefix(text, "```")
		}
		text = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(text), "```"))
	}

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t\r")
	}
	text = strings.Join(lines, "\n")

	if strings.TrimSpace(text) == "" {
		return "", ErrNoText
	}
	return text, nil
}
