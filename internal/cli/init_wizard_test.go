package cli

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/guiyumin/vscribe/internal/core/config"
)

func press(t *testing.T, m wizardModel, keys ...tea.KeyMsg) (wizardModel, tea.Cmd) {
	t.Helper()
	var cmd tea.Cmd
	for _, k := range keys {
		var next tea.Model
		next, cmd = m.Update(k)
		m = next.(wizardModel)
	}
	return m, cmd
}

var (
	keyEnter     = tea.KeyMsg{Type: tea.KeyEnter}
	keyDown      = tea.KeyMsg{Type: tea.KeyDown}
	keyBackspace = tea.KeyMsg{Type: tea.KeyBackspace}
	keyEsc       = tea.KeyMsg{Type: tea.KeyEsc}
)

func runes(s string) []tea.KeyMsg {
	keys := make([]tea.KeyMsg, 0, len(s))
	for _, r := range s {
		keys = append(keys, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	return keys
}

func TestWizardSelectsModelAndPort(t *testing.T) {
	m := newWizardModel(config.DefaultConfig())

	m, _ = press(t, m, keyEnter) // engine: whisper.cpp
	if m.currentStep != stepModel {
		t.Fatalf("step = %d; want model step", m.currentStep)
	}
	if m.cursor != 0 {
		t.Errorf("cursor = %d; want the configured tiny model", m.cursor)
	}

	m, _ = press(t, m, keyDown, keyEnter) // model: base
	if m.config.ASR.Model != "whisper-base" {
		t.Errorf("model = %q; want whisper-base", m.config.ASR.Model)
	}

	keys := []tea.KeyMsg{keyBackspace, keyBackspace, keyBackspace, keyBackspace}
	keys = append(keys, runes("9x001")...)
	m, _ = press(t, m, keys...)
	if m.inputBuffer != "9001" {
		t.Errorf("input = %q; want 9001 with non-digits ignored", m.inputBuffer)
	}

	m, _ = press(t, m, keyEnter)
	if m.config.Server.Port != 9001 || m.currentStep != stepConfirm {
		t.Fatalf("port = %d, step = %d", m.config.Server.Port, m.currentStep)
	}

	m, cmd := press(t, m, keyEnter)
	if !m.confirmed || cmd == nil {
		t.Error("want confirmation and quit on Yes")
	}
}

func TestWizardRejectsInvalidPort(t *testing.T) {
	m := newWizardModel(config.DefaultConfig())
	m, _ = press(t, m, keyEnter, keyEnter)

	keys := []tea.KeyMsg{keyBackspace, keyBackspace, keyBackspace, keyBackspace}
	keys = append(keys, runes("70000")...)
	keys = append(keys, keyEnter)
	m, _ = press(t, m, keys...)

	if m.currentStep != stepPort {
		t.Errorf("step = %d; want to stay on the port step", m.currentStep)
	}
	if m.inputErr == "" {
		t.Error("want an input error")
	}
	if m.config.Server.Port != config.DefaultPort {
		t.Errorf("port = %d; want unchanged", m.config.Server.Port)
	}
}

func TestWizardOpenAIModel(t *testing.T) {
	m := newWizardModel(config.DefaultConfig())
	m, _ = press(t, m, keyDown, keyEnter)

	if m.config.ASR.Engine != config.EngineOpenAI {
		t.Fatalf("engine = %q", m.config.ASR.Engine)
	}
	if opts := m.options(); len(opts) != 1 || opts[0].value != "whisper-1" {
		t.Errorf("options = %+v", opts)
	}
}

func TestWizardCancel(t *testing.T) {
	m, cmd := press(t, newWizardModel(config.DefaultConfig()), keyEsc)
	if !m.cancelled || cmd == nil {
		t.Error("esc should cancel and quit")
	}
}
