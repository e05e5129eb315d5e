package cmd

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

var (
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	badStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	valStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("14"))
	labelStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("8"))
)

// spinner renders a rotating indicator with a label and a detail line
// that updates in-place while work is running.
type spinner struct {
	out     io.Writer
	mu      sync.Mutex
	label   string
	detail  string
	done    chan struct{}
	stopped chan struct{}
}

func newSpinner(out io.Writer) *spinner {
	return &spinner{out: out, done: make(chan struct{}), stopped: make(chan struct{})}
}

func (s *spinner) setLabel(l string) {
	s.mu.Lock()
	s.label = l
	s.detail = ""
	s.mu.Unlock()
}

const detailWidth = 72

func (s *spinner) setDetail(d string) {
	s.mu.Lock()
	// keep package manager lines to one terminal line
	s.detail = ansi.Truncate(d, detailWidth, "...")
	s.mu.Unlock()
}

// onStep adapts the spinner to installer.Installer.OnStep.
func (s *spinner) onStep(step, total int, label string) {
	s.setLabel(fmt.Sprintf("[%d/%d] %s", step, total, label))
}

// start launches the render loop in a goroutine.
func (s *spinner) start() {
	frames := []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

	go func() {
		defer close(s.stopped)
		ticker := time.NewTicker(80 * time.Millisecond)
		defer ticker.Stop()
		for i := 0; ; i++ {
			select {
			case <-s.done:
				return
			case <-ticker.C:
				s.mu.Lock()
				label, detail := s.label, s.detail
				s.mu.Unlock()

				// \r returns to column 0; \033[K clears to end of line.
				fmt.Fprintf(s.out, "\r\033[K  %s %s\n\r\033[K    %s",
					frames[i%len(frames)],
					label,
					dimStyle.Render(detail),
				)
				// Move cursor up one line so next tick overwrites both lines.
				fmt.Fprint(s.out, "\033[1A")
			}
		}
	}()
}

// stop halts the spinner and prints a final status line.
func (s *spinner) stop(err error) {
	close(s.done)
	<-s.stopped

	s.mu.Lock()
	label := s.label
	s.mu.Unlock()

	// Clear both lines used by the spinner.
	fmt.Fprint(s.out, "\r\033[K\033[1B\r\033[K\033[1A")

	if err == nil {
		fmt.Fprintf(s.out, "  %s %s\n", okStyle.Render("✓"), label)
	} else {
		fmt.Fprintf(s.out, "  %s %s\n", badStyle.Render("✗"), label)
	}
}
