package cli

import (
	"fmt"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/guiyumin/vscribe/internal/core/ai/transcriber"
	"github.com/guiyumin/vscribe/internal/core/config"
)

var (
	titleStyle       = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	stepStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("248"))
	selectedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("86")).Bold(true)
	unselectedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	cursorStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
	helpStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	inputStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	inputCursorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("86")).Bold(true)
	labelStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("248")).Width(14)
	valueStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
	containerStyle   = lipgloss.NewStyle().Padding(1, 2)
)

// Wizard steps.
const (
	stepEngine = iota
	stepModel
	stepPort
	stepConfirm
	stepCount
)

type option struct{ label, value string }

type wizardModel struct {
	currentStep int
	cursor      int
	config      *config.Config
	confirmed   bool
	cancelled   bool
	inputBuffer string
	inputErr    string
}

func newWizardModel(cfg *config.Config) wizardModel {
	m := wizardModel{config: cfg}
	m.setCursorFromConfig()
	return m
}

func (m *wizardModel) stepTitle() string {
	switch m.currentStep {
	case stepEngine:
		return "Transcription engine"
	case stepModel:
		return "Model"
	case stepPort:
		return "Server port"
	case stepConfirm:
		return "Save configuration?"
	}
	return ""
}

func (m *wizardModel) stepDescription() string {
	switch m.currentStep {
	case stepEngine:
		return "Run whisper.cpp locally or call the OpenAI API"
	case stepModel:
		if m.config.ASR.Engine == config.EngineOpenAI {
			return "Hosted model used for every request"
		}
		return "Downloaded on first use to " + m.config.ASR.ModelsDir
	case stepPort:
		return "Port for 'vscribe serve'"
	case stepConfirm:
		return config.SavePath()
	}
	return ""
}

func (m *wizardModel) options() []option {
	switch m.currentStep {
	case stepEngine:
		return []option{
			{"whisper.cpp (local)", config.EngineWhisper},
			{"OpenAI API", config.EngineOpenAI},
		}
	case stepModel:
		if m.config.ASR.Engine == config.EngineOpenAI {
			return []option{{"whisper-1", "whisper-1"}}
		}
		opts := make([]option, len(transcriber.WhisperModels))
		for i, wm := range transcriber.WhisperModels {
			opts[i] = option{fmt.Sprintf("%-16s %7s  %s", wm.Name, wm.Size, wm.Description), "whisper-" + wm.Name}
		}
		return opts
	case stepConfirm:
		return []option{
			{"Yes, save", "yes"},
			{"No, cancel", "no"},
		}
	}
	return nil
}

func (m *wizardModel) isInputStep() bool {
	return m.currentStep == stepPort
}

func (m *wizardModel) setCursorFromConfig() {
	m.cursor = 0
	if m.isInputStep() {
		m.inputBuffer = strconv.Itoa(m.config.Server.Port)
		return
	}

	var current string
	switch m.currentStep {
	case stepEngine:
		current = m.config.ASR.Engine
	case stepModel:
		if m.config.ASR.Engine == config.EngineOpenAI {
			current = m.config.OpenAI.Model
		} else if wm := transcriber.GetModel(m.config.ASR.Model); wm != nil {
			current = "whisper-" + wm.Name
		}
	}

	for i, opt := range m.options() {
		if opt.value == current {
			m.cursor = i
			break
		}
	}
}

// saveCurrentValue stores the current step's answer. It reports false when
// the input is invalid and the wizard must stay on this step.
func (m *wizardModel) saveCurrentValue() bool {
	if m.isInputStep() {
		port, err := strconv.Atoi(strings.TrimSpace(m.inputBuffer))
		if err != nil || port < 1 || port > 65535 {
			m.inputErr = "enter a port between 1 and 65535"
			return false
		}
		m.inputErr = ""
		m.config.Server.Port = port
		return true
	}

	opts := m.options()
	if m.cursor >= len(opts) {
		return true
	}
	value := opts[m.cursor].value
	switch m.currentStep {
	case stepEngine:
		m.config.ASR.Engine = value
	case stepModel:
		if m.config.ASR.Engine == config.EngineOpenAI {
			m.config.OpenAI.Model = value
		} else {
			m.config.ASR.Model = value
		}
	}
	return true
}

func (m wizardModel) Init() tea.Cmd {
	return nil
}

func (m wizardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch key.String() {
	case "ctrl+c", "esc":
		m.cancelled = true
		return m, tea.Quit

	case "left":
		if m.currentStep > 0 {
			m.currentStep--
			m.inputErr = ""
			m.setCursorFromConfig()
		}
		return m, nil

	case "right", "enter":
		if !m.saveCurrentValue() {
			return m, nil
		}
		if m.currentStep == stepConfirm {
			if m.cursor == 0 {
				m.confirmed = true
			} else {
				m.cancelled = true
			}
			return m, tea.Quit
		}
		m.currentStep++
		m.setCursorFromConfig()
		return m, nil

	case "up", "k":
		if !m.isInputStep() {
			if m.cursor > 0 {
				m.cursor--
			} else {
				m.cursor = len(m.options()) - 1
			}
		}
		return m, nil

	case "down", "j":
		if !m.isInputStep() {
			if m.cursor < len(m.options())-1 {
				m.cursor++
			} else {
				m.cursor = 0
			}
		}
		return m, nil

	case "backspace":
		if m.isInputStep() && len(m.inputBuffer) > 0 {
			m.inputBuffer = m.inputBuffer[:len(m.inputBuffer)-1]
		}
		return m, nil

	default:
		if s := key.String(); m.isInputStep() && len(s) == 1 && s[0] >= '0' && s[0] <= '9' {
			m.inputBuffer += s
		}
		return m, nil
	}
}

func (m wizardModel) View() string {
	var b strings.Builder

	b.WriteString(stepStyle.Render(fmt.Sprintf("Step %d of %d", m.currentStep+1, stepCount)))
	b.WriteString("\n\n")
	b.WriteString(titleStyle.Render(m.stepTitle()))
	b.WriteString("\n")
	b.WriteString(stepStyle.Render(m.stepDescription()))
	b.WriteString("\n\n")

	if m.currentStep == stepConfirm {
		b.WriteString(m.renderReview())
		b.WriteString("\n")
	}

	if m.isInputStep() {
		b.WriteString(inputCursorStyle.Render("> "))
		b.WriteString(inputStyle.Render(m.inputBuffer))
		b.WriteString(inputCursorStyle.Render("█"))
		b.WriteString("\n")
		if m.inputErr != "" {
			b.WriteString(tuiErrStyle.Render(m.inputErr))
			b.WriteString("\n")
		}
	} else {
		for i, opt := range m.options() {
			cursor := "  "
			style := unselectedStyle
			if i == m.cursor {
				cursor = cursorStyle.Render("> ")
				style = selectedStyle
			}
			b.WriteString(cursor)
			b.WriteString(style.Render(opt.label))
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	b.WriteString(helpStyle.Render("← back • → next • ↑↓ select • enter confirm • esc quit"))

	return containerStyle.Render(b.String())
}

func (m wizardModel) renderReview() string {
	var b strings.Builder

	model := m.config.ASR.Model
	if m.config.ASR.Engine == config.EngineOpenAI {
		model = m.config.OpenAI.Model
	}

	lines := []struct{ label, value string }{
		{"Engine", m.config.ASR.Engine},
		{"Model", model},
		{"Listen", fmt.Sprintf("%s:%d", m.config.Server.Host, m.config.Server.Port)},
	}
	for _, line := range lines {
		b.WriteString(labelStyle.Render(line.label + ":"))
		b.WriteString(valueStyle.Render(line.value))
		b.WriteString("\n")
	}
	if m.config.ASR.Engine == config.EngineOpenAI && m.config.OpenAI.APIKey == "" {
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("Set OPENAI_API_KEY or openai.api_key before running vscribe."))
		b.WriteString("\n")
	}

	return b.String()
}

// runInitWizard asks for the main settings, starting from cfg.
func runInitWizard(cfg *config.Config) (*config.Config, error) {
	finalModel, err := tea.NewProgram(newWizardModel(cfg)).Run()
	if err != nil {
		return nil, err
	}

	result := finalModel.(wizardModel)
	if result.cancelled || !result.confirmed {
		return nil, fmt.Errorf("configuration cancelled")
	}
	return result.config, nil
}
