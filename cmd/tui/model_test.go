package main

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	chatModel "github.com/zhouzirui/medassist/backend/internal/model/chat"
	"github.com/zhouzirui/medassist/backend/internal/model/persona"
	"github.com/zhouzirui/medassist/backend/internal/service/chat"
)

type stubController struct {
	turns     []chatModel.Turn
	busy      bool
	draft     string
	submitted []string
	result    chat.SubmitResult
}

func (s *stubController) Submit(text string) (<-chan chatModel.Turn, chat.SubmitResult) {
	s.submitted = append(s.submitted, text)
	return nil, s.result
}

func (s *stubController) SetDraft(text string)         { s.draft = text }
func (s *stubController) Transcript() []chatModel.Turn { return s.turns }
func (s *stubController) Busy() bool                   { return s.busy }

func testPersona() persona.Persona {
	for _, p := range persona.Seed() {
		if p.ID == persona.DefaultID {
			return p
		}
	}
	return persona.Persona{ID: persona.DefaultID, Name: "Assistant"}
}

func sized(m model) model {
	next, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	return next.(model)
}

func TestModelRendersGreeting(t *testing.T) {
	ctrl := &stubController{turns: []chatModel.Turn{chatModel.AssistantTurn("Hello! How can I help?")}}
	m := sized(newModel(ctrl, testPersona(), nil))

	if !strings.Contains(m.View(), "Hello! How can I help?") {
		t.Fatalf("greeting missing from view:\n%s", m.View())
	}
}

func TestModelEnterSubmitsAndClearsInput(t *testing.T) {
	ctrl := &stubController{result: chat.SubmitAccepted}
	m := sized(newModel(ctrl, testPersona(), nil))
	m.input.SetValue("I have a headache")

	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(model)

	if len(ctrl.submitted) != 1 || ctrl.submitted[0] != "I have a headache" {
		t.Fatalf("unexpected submissions %v", ctrl.submitted)
	}
	if m.input.Value() != "" {
		t.Fatalf("input should be cleared, got %q", m.input.Value())
	}
}

func TestModelDroppedKeepsInput(t *testing.T) {
	ctrl := &stubController{result: chat.SubmitDropped}
	m := sized(newModel(ctrl, testPersona(), nil))
	m.input.SetValue("second question")

	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(model)

	if m.input.Value() != "second question" {
		t.Fatalf("input should be kept when dropped")
	}
	if !strings.Contains(m.View(), "still waiting") {
		t.Fatalf("expected notice in view")
	}
}

func TestModelTypingUpdatesDraft(t *testing.T) {
	ctrl := &stubController{}
	m := sized(newModel(ctrl, testPersona(), nil))

	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("a")})
	m = next.(model)
	if ctrl.draft != "a" {
		t.Fatalf("expected draft a, got %q", ctrl.draft)
	}
}

func TestModelBusyAndTurnEvents(t *testing.T) {
	ctrl := &stubController{}
	m := sized(newModel(ctrl, testPersona(), nil))

	next, _ := m.Update(busyMsg(true))
	m = next.(model)
	if !strings.Contains(m.View(), "Typing...") {
		t.Fatalf("expected typing indicator")
	}

	next, _ = m.Update(turnMsg{index: 0, turn: chatModel.AssistantError("Sorry, there was an error: network issue. Please try again.")})
	m = next.(model)
	next, _ = m.Update(busyMsg(false))
	m = next.(model)

	if len(m.turns) != 1 {
		t.Fatalf("expected 1 turn, got %d", len(m.turns))
	}
	view := m.View()
	if strings.Contains(view, "Typing...") {
		t.Fatalf("typing indicator should be gone")
	}
	if !strings.Contains(view, "network issue") {
		t.Fatalf("error turn missing from view:\n%s", view)
	}

	// duplicate index is ignored
	next, _ = m.Update(turnMsg{index: 0, turn: chatModel.UserTurn("dup")})
	if len(next.(model).turns) != 1 {
		t.Fatalf("duplicate turn appended")
	}
}
