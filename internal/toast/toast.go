// Package toast delivers short-lived user-facing notices, the terminal
// counterpart of the pop-up toasts a browser client would show.
package toast

import (
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/lipgloss"
)

// Level classifies a toast.
type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

// Toast is one notice.
type Toast struct {
	Level   Level
	Message string
}

// Notifier shows toasts to the user.
type Notifier interface {
	Notify(t Toast)
}

// Nop drops every toast.
type Nop struct{}

func (Nop) Notify(Toast) {}

// Terminal renders toasts as coloured lines on a writer.
type Terminal struct {
	mu sync.Mutex
	w  io.Writer

	info    lipgloss.Style
	success lipgloss.Style
	failure lipgloss.Style
}

// NewTerminal writes toasts to w.
func NewTerminal(w io.Writer) *Terminal {
	return &Terminal{
		w:       w,
		info:    lipgloss.NewStyle().Foreground(lipgloss.Color("39")),
		success: lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		failure: lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),
	}
}

// Notify writes one line for n.
func (t *Terminal) Notify(n Toast) {
	t.mu.Lock()
	defer t.mu.Unlock()

	style := t.info
	mark := "●"
	switch n.Level {
	case LevelSuccess:
		style = t.success
		mark = "✔"
	case LevelError:
		style = t.failure
		mark = "✖"
	}
	fmt.Fprintf(t.w, "%s %s\n", style.Render(mark), n.Message)
}

// Recorder keeps every toast it receives.
type Recorder struct {
	mu     sync.Mutex
	toasts []Toast
}

// Notify records t.
func (r *Recorder) Notify(t Toast) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.toasts = append(r.toasts, t)
}

// Toasts returns a copy of what was recorded so far.
func (r *Recorder) Toasts() []Toast {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Toast, len(r.toasts))
	copy(out, r.toasts)
	return out
}
