package ui

import (
	tea "github.com/charmbracelet/bubbletea"
)

// Screen is one page of the TUI.
type Screen interface {
	Init() tea.Cmd
	Update(msg tea.Msg) (Screen, tea.Cmd)
	View() string
	SetSize(width, height int)
}

type pushMsg struct{ screen Screen }

type popMsg struct{}

func push(s Screen) tea.Cmd { return func() tea.Msg { return pushMsg{screen: s} } }

func pop() tea.Msg { return popMsg{} }

// Router is the root tea.Model: a stack of screens. Key presses go to the
// top screen; every other message is broadcast so background results reach
// screens that are not on top.
type Router struct {
	stack  []Screen
	width  int
	height int
}

// NewRouter starts with root as the only screen.
func NewRouter(root Screen) *Router {
	return &Router{stack: []Screen{root}}
}

// Init initialises the root screen.
func (r *Router) Init() tea.Cmd {
	return r.top().Init()
}

// Update routes msg.
func (r *Router) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		r.width, r.height = msg.Width, msg.Height
		for _, s := range r.stack {
			s.SetSize(msg.Width, msg.Height)
		}
		return r, nil

	case pushMsg:
		msg.screen.SetSize(r.width, r.height)
		r.stack = append(r.stack, msg.screen)
		return r, msg.screen.Init()

	case popMsg:
		if len(r.stack) > 1 {
			r.stack = r.stack[:len(r.stack)-1]
		}
		return r, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return r, tea.Quit
		}
		next, cmd := r.top().Update(msg)
		r.stack[len(r.stack)-1] = next
		return r, cmd
	}

	cmds := make([]tea.Cmd, 0, len(r.stack))
	for i, s := range r.stack {
		next, cmd := s.Update(msg)
		r.stack[i] = next
		cmds = append(cmds, cmd)
	}
	return r, tea.Batch(cmds...)
}

// View renders the top screen.
func (r *Router) View() string {
	return r.top().View()
}

// Depth reports how many screens are stacked.
func (r *Router) Depth() int { return len(r.stack) }

func (r *Router) top() Screen { return r.stack[len(r.stack)-1] }
