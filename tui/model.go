package tui

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/hako/durafmt"

	"midi-synth/theme"
)

var shortUnits, _ = durafmt.DefaultUnitsCoder.Decode("y:yrs,wk:wks,d:d,h:h,m:m,s:s,ms:ms,us:us")

const barWidth = 40

// Clock formats d with its two leading units, e.g. "1m 30s"
func Clock(d time.Duration) string {
	return durafmt.Parse(d.Round(time.Millisecond)).LimitFirstN(2).Format(shortUnits)
}

// ProgressMsg reports samples handed to the device so far
type ProgressMsg struct {
	Played, Total int
}

// DoneMsg ends the view; Err is the playback result
type DoneMsg struct {
	Err error
}

type Model struct {
	Theme      *theme.Theme
	Title      string
	SampleRate int

	bar      progress.Model
	played   int
	total    int
	cancel   context.CancelFunc
	stopped  bool // user asked to stop
	done     bool
	err      error
	quitting bool
}

// NewModel builds the playback view. cancel is invoked when the user quits
// before playback finishes.
func NewModel(th *theme.Theme, title string, sampleRate int, cancel context.CancelFunc) Model {
	from, to := th.Gradient()
	bar := progress.New(
		progress.WithGradient(from, to),
		progress.WithoutPercentage(),
	)
	bar.Width = barWidth
	return Model{
		Theme:      th,
		Title:      title,
		SampleRate: sampleRate,
		bar:        bar,
		cancel:     cancel,
	}
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			// wait for DoneMsg so the device is released before we exit
			if !m.stopped && m.cancel != nil {
				m.cancel()
			}
			m.stopped = true
		}

	case ProgressMsg:
		m.played, m.total = msg.Played, msg.Total

	case DoneMsg:
		m.done = true
		m.err = msg.Err
		m.quitting = true
		return m, tea.Quit
	}

	return m, nil
}

// Fraction is the played share of the buffer, 0-1
func (m Model) Fraction() float64 {
	if m.total <= 0 {
		return 0
	}
	return float64(m.played) / float64(m.total)
}

// Err returns the playback result once DoneMsg arrived
func (m Model) Err() error { return m.err }

// Stopped reports whether the user cut playback short
func (m Model) Stopped() bool { return m.stopped }

func (m Model) seconds(samples int) time.Duration {
	if m.SampleRate <= 0 {
		return 0
	}
	return time.Duration(float64(samples) / float64(m.SampleRate) * float64(time.Second))
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var out strings.Builder
	out.WriteString("\n")
	out.WriteString(m.Theme.HeaderStyle().Render("midi-synth  " + m.Title))
	out.WriteString("\n\n")
	out.WriteString(m.bar.ViewAs(m.Fraction()))
	out.WriteString(" ")
	out.WriteString(m.Theme.DimStyle().Render(fmt.Sprintf("%s / %s", Clock(m.seconds(m.played)), Clock(m.seconds(m.total)))))
	out.WriteString("\n\n")
	if m.stopped {
		out.WriteString(m.Theme.DimStyle().Render("stopping..."))
	} else {
		out.WriteString(m.Theme.DimStyle().Render("q:stop"))
	}
	out.WriteString("\n")
	return out.String()
}

// PlayFunc performs playback, reporting progress until ctx is cancelled
type PlayFunc func(ctx context.Context, progress func(played, total int)) error

// Run shows the playback view while play runs. It returns play's error;
// a user stop is reported as context.Canceled.
func Run(ctx context.Context, in io.Reader, out io.Writer, th *theme.Theme, title string, sampleRate int, play PlayFunc) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	m := NewModel(th, title, sampleRate, cancel)
	p := tea.NewProgram(m, tea.WithInput(in), tea.WithOutput(out))

	errc := make(chan error, 1)
	go func() {
		err := play(ctx, func(played, total int) {
			p.Send(ProgressMsg{Played: played, Total: total})
		})
		errc <- err
		p.Send(DoneMsg{Err: err})
	}()

	final, runErr := p.Run()
	playErr := <-errc
	if fm, ok := final.(Model); ok && fm.done {
		return fm.Err()
	}
	if playErr != nil {
		return playErr
	}
	if runErr != nil {
		return fmt.Errorf("playback view: %w", runErr)
	}
	return nil
}
