package llm

import (
	"strings"
)

const answerFormat = `Provide a response in this format:

# Error Analysis
[One line explanation of the error]

# Solution
[2-3 bullet points with clear steps]

# Code Fix
` + "```[language]\n[only the relevant code fix]\n```" + `

Keep the response focused and concise.`

// BuildUserPrompt renders the error, earlier turns of the conversation and any
// knowledge base matches into a single user message.
func BuildUserPrompt(errorMessage string, matches []string, messageHistory []string) string {
	var b strings.Builder
	b.WriteString("Error: ")
	b.WriteString(strings.TrimSpace(errorMessage))
	b.WriteString("\n\n")
	b.WriteString(answerFormat)

	if len(messageHistory) > 0 {
		b.WriteString("\n\nMessage History (earlier questions, your answers and their sources):\n")
		b.WriteString(strings.Join(messageHistory, "\n"))
	}
	if len(matches) > 0 {
		b.WriteString("\n\nInternal Knowledge Base Context:\n")
		b.WriteString(strings.Join(matches, "\n\n"))
		b.WriteString("\n\nIncorporate this information if relevant.")
	}
	return b.String()
}
