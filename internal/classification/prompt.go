package classification

import (
	"strings"

	"readscape/internal/library"
)

// systemPrompt instructs the model to emit exactly one JSON object with the
// eight descriptor keys, listing the preferred vocabulary per attribute.
const systemPromptHeader = `You classify passages of narrative fiction for ambient audio selection.
Respond with a single JSON object and nothing else. The object must contain
exactly these keys, all with lowercase string values:`

const systemPromptFooter = `For dominant_elements, pick one to three tags as a comma-separated list.
If an attribute cannot be determined from the text, use "unknown" where the
vocabulary allows it, otherwise pick the closest listed value.`

// SystemPrompt renders the classification instructions.
func SystemPrompt() string {
	var b strings.Builder
	b.WriteString(systemPromptHeader)
	b.WriteString("\n\n")
	for _, key := range library.AttributeKeys {
		b.WriteString("- ")
		b.WriteString(key)
		b.WriteString(": one of ")
		b.WriteString(strings.Join(vocabulary[key], ", "))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(systemPromptFooter)
	return b.String()
}

// UserPrompt renders the page text for classification, truncated to the
// configured maximum.
func UserPrompt(text string, maxChars int) string {
	text = strings.TrimSpace(text)
	if maxChars > 0 {
		runes := []rune(text)
		if len(runes) > maxChars {
			text = string(runes[:maxChars])
		}
	}
	return "Classify this passage:\n\n" + text
}
