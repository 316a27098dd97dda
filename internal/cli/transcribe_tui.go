package cli

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/guiyumin/vscribe/internal/core/ai/transcriber"
	"github.com/guiyumin/vscribe/internal/core/pipeline"
)

var (
	tuiInfoStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
	tuiDoneStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	tuiErrStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	tuiHintStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("248"))
)

// transcribeState is shared between the pipeline goroutine and the TUI.
type transcribeState struct {
	mu     sync.RWMutex
	done   bool
	err    error
	result *transcriber.Result
}

func (s *transcribeState) finish(res *transcriber.Result, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.done = true
	s.result = res
	s.err = err
}

func (s *transcribeState) get() (bool, *transcriber.Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.done, s.result, s.err
}

// jobLister reports in-flight pipeline runs.
type jobLister interface {
	Jobs() []pipeline.Job
}

type transcribeTickMsg time.Time

type transcribeModel struct {
	spinner spinner.Model
	videoID string
	jobs    jobLister
	phase   pipeline.State
	started time.Time
	state   *transcribeState
}

func newTranscribeModel(videoID string, jobs jobLister, state *transcribeState) transcribeModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	return transcribeModel{
		spinner: s,
		videoID: videoID,
		jobs:    jobs,
		phase:   pipeline.StateReceived,
		started: time.Now(),
		state:   state,
	}
}

func transcribeTickCmd() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return transcribeTickMsg(t)
	})
}

func (m transcribeModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, transcribeTickCmd())
}

func (m transcribeModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case transcribeTickMsg:
		if done, _, _ := m.state.get(); done {
			return m, tea.Quit
		}
		for _, job := range m.jobs.Jobs() {
			if job.VideoID == m.videoID {
				m.phase = job.State
				break
			}
		}
		return m, transcribeTickCmd()
	}

	return m, nil
}

func (m transcribeModel) View() string {
	done, res, err := m.state.get()

	if err != nil {
		return fmt.Sprintf("\n  %s %s: %v\n\n", tuiErrStyle.Render("✗"), m.videoID, err)
	}

	if done && res != nil {
		return fmt.Sprintf("\n  %s %s  %s\n\n",
			tuiDoneStyle.Render("✓"),
			tuiInfoStyle.Render(m.videoID),
			tuiHintStyle.Render(fmt.Sprintf("%d segments, language %s, %s",
				len(res.Segments), res.Language, time.Since(m.started).Round(time.Second))),
		)
	}

	return fmt.Sprintf("\n  %s %s %s  %s\n\n",
		m.spinner.View(),
		phaseLabel(m.phase),
		tuiInfoStyle.Render(m.videoID),
		tuiHintStyle.Render(time.Since(m.started).Round(time.Second).String()),
	)
}

func phaseLabel(s pipeline.State) string {
	switch s {
	case pipeline.StateFetching:
		return "Downloading audio"
	case pipeline.StateFetched, pipeline.StateTranscribing:
		return "Transcribing"
	case pipeline.StateReceived:
		return "Waiting for a worker"
	default:
		return "Working on"
	}
}

// handler is the part of the pipeline the spinner drives.
type handler interface {
	jobLister
	Handle(ctx context.Context, videoID string) (*transcriber.Result, error)
}

// runTranscribeWithSpinner runs the pipeline with a spinner TUI. Quitting
// the TUI cancels the wait.
func runTranscribeWithSpinner(ctx context.Context, p handler, videoID string) (*transcriber.Result, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	state := &transcribeState{}
	go func() {
		state.finish(p.Handle(ctx, videoID))
	}()

	prog := tea.NewProgram(newTranscribeModel(videoID, p, state), tea.WithContext(ctx))
	if _, err := prog.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return nil, err
	}

	done, res, err := state.get()
	if err != nil {
		return nil, err
	}
	if !done {
		return nil, fmt.Errorf("transcription cancelled")
	}
	return res, nil
}
