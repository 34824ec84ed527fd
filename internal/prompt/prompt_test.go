package prompt

import (
	"fmt"
	"strings"
	"testing"

	"github.com/mfenderov/ragchat/pkg/models"
)

func TestRenderHistory_Window(t *testing.T) {
	var history []models.ChatTurn
	for i := 0; i < 15; i++ {
		role := "user"
		if i%2 == 1 {
			role = "assistant"
		}
		history = append(history, models.ChatTurn{Role: role, Content: fmt.Sprintf("turn %d", i)})
	}

	got := RenderHistory(history)
	lines := strings.Split(got, "\n")

	if len(lines) != HistoryWindow {
		t.Fatalf("rendered %d turns, want %d", len(lines), HistoryWindow)
	}
	if lines[0] != "Assistant: turn 5" {
		t.Errorf("first line = %q, want oldest retained turn", lines[0])
	}
	if lines[9] != "User: turn 14" {
		t.Errorf("last line = %q, want newest turn", lines[9])
	}
}

func TestRenderHistory_SkipsEmptyAndUnknownRoles(t *testing.T) {
	history := []models.ChatTurn{
		{Role: "user", Content: "  hi  "},
		{Role: "assistant", Content: "   "},
		{Role: "system", Content: "odd"},
	}

	got := RenderHistory(history)

	if got != "User: hi\nAssistant: odd" {
		t.Errorf("RenderHistory() = %q", got)
	}
}

func TestRenderHistory_Empty(t *testing.T) {
	if got := RenderHistory(nil); got != NoHistory {
		t.Errorf("RenderHistory(nil) = %q", got)
	}
	if got := RenderHistory([]models.ChatTurn{{Role: "user", Content: ""}}); got != NoHistory {
		t.Errorf("RenderHistory(blank) = %q", got)
	}
}

func TestBuild_Sections(t *testing.T) {
	got := Build(Input{
		Message:       "What is the refund policy?",
		History:       []models.ChatTurn{{Role: "user", Content: "hello"}},
		GroundingText: "Document: Policy\nRefunds within 30 days.",
	})

	sections := []string{
		"Use any relevant information from the uploaded collection.",
		"Context:\nDocument: Policy\nRefunds within 30 days.\n",
		"Conversation:\nUser: hello\n",
		"Question:\nWhat is the refund policy?\n",
	}
	last := -1
	for _, s := range sections {
		idx := strings.Index(got, s)
		if idx < 0 {
			t.Fatalf("prompt missing section %q:\n%s", s, got)
		}
		if idx < last {
			t.Errorf("section %q out of order", s)
		}
		last = idx
	}
}

func TestBuild_FocusAndSentinels(t *testing.T) {
	got := Build(Input{
		Message: "Summarise",
		FocusID: "documents/u1/ab12cd34-policy.pdf",
	})

	if !strings.Contains(got, "Focus strictly on the document named 'documents/u1/ab12cd34-policy.pdf'.") {
		t.Errorf("focus directive should fall back to the id:\n%s", got)
	}
	if !strings.Contains(got, "Context:\n"+NoContext+"\n") {
		t.Errorf("empty context should render the sentinel:\n%s", got)
	}
	if !strings.Contains(got, "Conversation:\n"+NoHistory+"\n") {
		t.Errorf("empty history should render None:\n%s", got)
	}

	named := Build(Input{Message: "x", FocusID: "id", FocusName: "policy.pdf"})
	if !strings.Contains(named, "'policy.pdf'") {
		t.Errorf("focus directive should prefer the name:\n%s", named)
	}
}
