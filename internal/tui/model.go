// Package tui hosts a lookup screen in the terminal using bubbletea.
package tui

import (
	"context"
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/busfinder/busfinder/internal/render"
	"github.com/busfinder/busfinder/internal/schedule"
	"github.com/busfinder/busfinder/internal/screen"
)

type focus int

const (
	focusStart focus = iota
	focusDestination
	focusHours
	focusMinutes
	focusCount
)

// header lines drawn above the result list
const headerHeight = 9

type fetchedMsg struct {
	req   screen.Request
	trips []schedule.Trip
	err   error
}

type toastExpiredMsg struct {
	id int
}

// inbox collects screen notifications until the next Update drains them.
type inbox struct {
	mu       sync.Mutex
	messages []string
}

func (in *inbox) Notify(message string) {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.messages = append(in.messages, message)
}

func (in *inbox) drain() []string {
	in.mu.Lock()
	defer in.mu.Unlock()
	out := in.messages
	in.messages = nil
	return out
}

// Model is the bubbletea model for one lookup screen.
type Model struct {
	ctx           context.Context
	screen        *screen.Screen
	inbox         *inbox
	toastDuration time.Duration

	focus  focus
	offset int
	width  int
	height int

	toast   string
	toastID int
}

// OpenFunc opens a screen that reports to the given notifier.
// app.Application.NewScreen satisfies it.
type OpenFunc func(screen.Notifier) *screen.Screen

// New opens a screen through open and returns a model driving it. Fetches
// run with ctx.
func New(ctx context.Context, open OpenFunc, toastDuration time.Duration) Model {
	in := &inbox{}
	return Model{
		ctx:           ctx,
		screen:        open(in),
		inbox:         in,
		toastDuration: toastDuration,
	}
}

// Screen returns the screen the model drives.
func (m Model) Screen() *screen.Screen {
	return m.screen
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.offset = m.clampOffset(m.offset)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case fetchedMsg:
		if m.screen.Complete(msg.req, msg.trips, msg.err) && msg.err == nil {
			m.offset = 0
		}
		return m, nil

	case toastExpiredMsg:
		if msg.id == m.toastID {
			m.toast = ""
		}
		return m, nil
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC, tea.KeyEsc:
		m.screen.Close()
		return m, tea.Quit

	case tea.KeyTab:
		m.focus = (m.focus + 1) % focusCount
	case tea.KeyShiftTab:
		m.focus = (m.focus + focusCount - 1) % focusCount

	case tea.KeyUp:
		m.offset = m.clampOffset(m.offset - 1)
	case tea.KeyDown:
		m.offset = m.clampOffset(m.offset + 1)

	case tea.KeyEnter:
		if m.focus == focusHours || m.focus == focusMinutes {
			_ = m.screen.Confirm()
			return m.showNotifications()
		}
		return m, m.submit()
	case tea.KeyCtrlS:
		return m, m.submit()

	case tea.KeyBackspace:
		m.edit(func(v string) string {
			r := []rune(v)
			if len(r) == 0 {
				return v
			}
			return string(r[:len(r)-1])
		})
	case tea.KeyRunes, tea.KeySpace:
		m.edit(func(v string) string {
			return v + string(msg.Runes)
		})
	}

	return m, nil
}

// edit applies fn to the focused field. Rejected time edits are ignored.
func (m Model) edit(fn func(string) string) {
	form := m.screen.Snapshot().Form
	switch m.focus {
	case focusStart:
		m.screen.SetStart(fn(form.Start))
	case focusDestination:
		m.screen.SetDestination(fn(form.Destination))
	case focusHours:
		m.screen.SetHour(fn(form.Hours))
	case focusMinutes:
		m.screen.SetMinute(fn(form.Minutes))
	}
}

// submit begins a request and returns the command that performs it.
func (m Model) submit() tea.Cmd {
	req, err := m.screen.Begin()
	if err != nil {
		return nil
	}
	s, ctx := m.screen, m.ctx
	return func() tea.Msg {
		trips, err := s.Fetch(ctx, req)
		return fetchedMsg{req: req, trips: trips, err: err}
	}
}

// showNotifications moves pending notifications to the status line and
// schedules their removal.
func (m Model) showNotifications() (tea.Model, tea.Cmd) {
	messages := m.inbox.drain()
	if len(messages) == 0 {
		return m, nil
	}

	m.toast = messages[len(messages)-1]
	m.toastID++
	id := m.toastID
	return m, tea.Tick(m.toastDuration, func(time.Time) tea.Msg {
		return toastExpiredMsg{id: id}
	})
}

// resultLines renders the stored trips as text lines.
func (m Model) resultLines() []string {
	var lines []string
	for i, c := range render.Cards(m.screen.Snapshot().Trips) {
		if i > 0 {
			lines = append(lines, "")
		}
		lines = append(lines, render.CardLines(c)...)
	}
	return lines
}

func (m Model) viewport() int {
	if m.height == 0 {
		return 0
	}
	return max(m.height-headerHeight, 1)
}

func (m Model) clampOffset(offset int) int {
	vp := m.viewport()
	if vp == 0 {
		return 0
	}
	limit := max(len(m.resultLines())-vp, 0)
	return min(max(offset, 0), limit)
}

func (m Model) View() string {
	snap := m.screen.Snapshot()
	var b strings.Builder

	b.WriteString(m.fieldLine("Start", snap.Form.Start, focusStart))
	b.WriteString(m.fieldLine("Destination", snap.Form.Destination, focusDestination))

	b.WriteString(m.marker(focusHours))
	b.WriteString("Time         [" + snap.Form.Hours + "]:[" + snap.Form.Minutes + "]")
	if m.focus == focusMinutes {
		b.WriteString(" <")
	}
	b.WriteString("\n")

	b.WriteString(render.SelectedTime(snap.Form.ConfirmedTime) + "\n")

	switch {
	case snap.Pending:
		b.WriteString("Loading...\n")
	case snap.FetchError != "":
		b.WriteString(snap.FetchError + "\n")
	default:
		b.WriteString("\n")
	}
	b.WriteString(m.toast + "\n")
	b.WriteString("\n")

	lines := m.resultLines()
	if vp := m.viewport(); vp > 0 {
		end := min(m.offset+vp, len(lines))
		lines = lines[min(m.offset, end):end]
	}
	for _, line := range lines {
		b.WriteString(line + "\n")
	}

	b.WriteString("\ntab: next field  enter: confirm/search  ctrl+s: search  up/down: scroll  esc: quit\n")
	return b.String()
}

func (m Model) marker(f focus) string {
	if m.focus == f {
		return "> "
	}
	return "  "
}

func (m Model) fieldLine(label, value string, f focus) string {
	return m.marker(f) + label + strings.Repeat(" ", 13-len(label)) + "[" + value + "]\n"
}
