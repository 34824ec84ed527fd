// Package prompt renders the grounded question-answering prompt.
package prompt

import (
	"fmt"
	"strings"

	"github.com/mfenderov/ragchat/pkg/models"
)

// HistoryWindow is the number of most recent turns carried into a prompt.
const HistoryWindow = 10

// NoContext stands in for an empty grounding context.
const NoContext = "NO_MATCHING_CONTEXT"

// NoHistory stands in for an empty conversation.
const NoHistory = "None"

// Input holds everything a prompt is rendered from.
type Input struct {
	Message       string
	History       []models.ChatTurn
	FocusID       string
	FocusName     string
	GroundingText string
}

// Build renders the prompt. Sections appear in fixed order: instructions
// (including the focus directive), context, conversation, question.
func Build(in Input) string {
	focusLine := "Use any relevant information from the uploaded collection."
	if in.FocusID != "" {
		descriptor := in.FocusName
		if descriptor == "" {
			descriptor = in.FocusID
		}
		focusLine = fmt.Sprintf("Focus strictly on the document named '%s'.", descriptor)
	}

	groundingText := in.GroundingText
	if groundingText == "" {
		groundingText = NoContext
	}

	return fmt.Sprintf(`You are a precise assistant that answers questions using provided document excerpts only.

Instructions:
- %s
- If the context does not contain enough information, say so explicitly and suggest reviewing the source document.
- Keep answers concise, structured, and cite the referenced document title when possible.

Context:
%s

Conversation:
%s

Question:
%s
`, focusLine, groundingText, RenderHistory(in.History), in.Message)
}

// RenderHistory renders the last HistoryWindow turns oldest first, one per
// line, skipping turns without content.
func RenderHistory(history []models.ChatTurn) string {
	if len(history) > HistoryWindow {
		history = history[len(history)-HistoryWindow:]
	}

	lines := make([]string, 0, len(history))
	for _, turn := range history {
		content := strings.TrimSpace(turn.Content)
		if content == "" {
			continue
		}
		prefix := "Assistant"
		if turn.Role == "user" {
			prefix = "User"
		}
		lines = append(lines, prefix+": "+content)
	}

	if len(lines) == 0 {
		return NoHistory
	}
	return strings.Join(lines, "\n")
}
