package assistant

import (
	"fmt"
	"strings"

	"github.com/JoseDiazCodes/LibertyLM/internal/platform/storage"
)

// maxContextBytes caps how much source code goes into one prompt. Files
// past the cap are listed by name only so the model still sees the
// project shape.
const maxContextBytes = 48 * 1024

const systemPrompt = `You are an onboarding assistant for a software project.
Answer questions about the codebase below. Ground every answer in the
provided files; when the answer is not in the files, say so instead of
guessing. Prefer short, direct explanations with file references.`

// buildSystemMessage renders the project's files into the system prompt.
func buildSystemMessage(project *storage.Project) string {
	if project == nil || len(project.Files) == 0 {
		return systemPrompt + "\n\n(No project files were provided.)"
	}

	var b strings.Builder
	b.WriteString(systemPrompt)
	b.WriteString("\n\nProject: ")
	b.WriteString(project.Name)
	if project.Description != "" {
		b.WriteString("\n")
		b.WriteString(project.Description)
	}

	budget := maxContextBytes
	var omitted []string
	for _, file := range project.Files {
		header := fmt.Sprintf("\n\n--- %s (%s) ---\n", file.Name, file.Language)
		cost := len(header) + len(file.Content)
		if cost > budget {
			omitted = append(omitted, file.Name)
			continue
		}
		budget -= cost
		b.WriteString(header)
		b.WriteString(file.Content)
	}

	if len(omitted) > 0 {
		b.WriteString("\n\nFiles omitted for length: ")
		b.WriteString(strings.Join(omitted, ", "))
	}
	return b.String()
}
