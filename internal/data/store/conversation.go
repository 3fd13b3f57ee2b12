package store

import (
	"fmt"
	"strings"

	"github.com/Kar2410/FLOW-FIX/internal/domain/jobModel"
)

// formatTurn renders one answered question for the llm prompt. Empty
// placeholder turns report false.
func formatTurn(p jobModel.JobPayload) (string, bool) {
	if p.ErrorMessage == "" && p.Solution == "" {
		return "", false
	}
	line := fmt.Sprintf("Question: %s\nAnswer: %s", p.ErrorMessage, p.Solution)
	if len(p.Sources) > 0 {
		line += "\nSources: " + strings.Join(p.Sources, ", ")
	}
	return line, true
}
