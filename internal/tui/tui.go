// Package tui is the terminal chat client. It follows the Elm architecture:
// a single Model, messages for every asynchronous result, and a pure View.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"

	"github.com/normanking/attrangi/internal/engine"
	"github.com/normanking/attrangi/internal/generation"
	"github.com/normanking/attrangi/internal/report"
	"github.com/normanking/attrangi/internal/store"
)

// chatMessage is one rendered transcript entry.
type chatMessage struct {
	role       engine.Role
	text       string
	expression engine.Expression
}

// replyMsg delivers a completed turn.
type replyMsg struct {
	reply *generation.Reply
	res   *engine.TurnResult
}

// reportMsg delivers a generated report.
type reportMsg struct {
	content string
	err     error
}

// Model is the Bubble Tea model for the chat client.
type Model struct {
	engine    *engine.Engine
	generator *generation.Generator
	reporter  *report.Generator
	store     *store.Store
	session   *engine.Session

	viewport viewport.Model
	input    textinput.Model
	spinner  spinner.Model
	renderer *glamour.TermRenderer

	messages []chatMessage
	status   *engine.TurnResult
	waiting  bool
	ready    bool
	err      error
}

// New creates the chat model. store and reporter may be nil.
func New(eng *engine.Engine, gen *generation.Generator, rep *report.Generator, st *store.Store, sess *engine.Session) *Model {
	input := textinput.New()
	input.Placeholder = "Share what's on your mind... (/report, /reset, /quit)"
	input.Focus()
	input.CharLimit = 2000

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	renderer, _ := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(76),
	)

	return &Model{
		engine:    eng,
		generator: gen,
		reporter:  rep,
		store:     st,
		session:   sess,
		input:     input,
		spinner:   sp,
		renderer:  renderer,
	}
}

// Init starts the input cursor blink.
func (m *Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles all incoming messages.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		headerHeight := 1
		footerHeight := 4
		m.viewport = viewport.New(msg.Width, msg.Height-headerHeight-footerHeight)
		m.input.Width = msg.Width - 6
		m.ready = true
		m.refreshViewport()
		return m, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			if m.waiting {
				return m, nil
			}
			text := strings.TrimSpace(m.input.Value())
			if text == "" {
				return m, nil
			}
			m.input.Reset()
			return m.submit(text)
		}

	case replyMsg:
		m.waiting = false
		m.status = msg.res
		m.messages = append(m.messages, chatMessage{
			role:       engine.RoleAssistant,
			text:       msg.reply.Text,
			expression: msg.reply.Expression,
		})
		m.persist()
		m.refreshViewport()
		return m, nil

	case reportMsg:
		m.waiting = false
		if msg.err != nil {
			m.err = msg.err
		} else {
			m.messages = append(m.messages, chatMessage{
				role:       engine.RoleAssistant,
				text:       msg.content,
				expression: engine.ExpressionNeutral,
			})
		}
		m.refreshViewport()
		return m, nil

	case spinner.TickMsg:
		if m.waiting {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
		return m, nil
	}

	var cmds []tea.Cmd
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

// submit dispatches user input, handling slash commands locally.
func (m *Model) submit(text string) (tea.Model, tea.Cmd) {
	switch text {
	case "/quit":
		return m, tea.Quit

	case "/reset":
		m.session.Reset()
		m.messages = nil
		m.status = nil
		m.err = nil
		m.persist()
		m.refreshViewport()
		return m, nil

	case "/report":
		if m.reporter == nil {
			m.err = fmt.Errorf("reports are not configured")
			return m, nil
		}
		m.waiting = true
		return m, tea.Batch(m.spinner.Tick, m.generateReport())
	}

	m.messages = append(m.messages, chatMessage{role: engine.RoleUser, text: text})
	m.waiting = true
	m.err = nil
	m.refreshViewport()
	return m, tea.Batch(m.spinner.Tick, m.processTurn(text))
}

// processTurn runs the engine and generator off the UI goroutine.
func (m *Model) processTurn(text string) tea.Cmd {
	return func() tea.Msg {
		ctx := context.Background()
		res := m.engine.ProcessTurn(ctx, m.session, text)
		reply := m.generator.Generate(ctx, m.session, res, text)
		m.session.Append(engine.RoleAssistant, reply.Text)
		return replyMsg{reply: reply, res: res}
	}
}

func (m *Model) generateReport() tea.Cmd {
	return func() tea.Msg {
		ctx := context.Background()
		content, err := m.reporter.Generate(ctx, m.session)
		if err != nil {
			return reportMsg{err: err}
		}
		if m.store != nil {
			if _, err := m.store.SaveSummary(ctx, m.session.ID, content); err != nil {
				return reportMsg{content: content, err: nil}
			}
		}
		return reportMsg{content: content}
	}
}

func (m *Model) persist() {
	if m.store == nil {
		return
	}
	m.store.SaveSession(context.Background(), m.session)
}

func (m *Model) refreshViewport() {
	if !m.ready {
		return
	}
	m.viewport.SetContent(m.renderMessages())
	m.viewport.GotoBottom()
}

func (m *Model) renderMessages() string {
	var sb strings.Builder
	for _, msg := range m.messages {
		if msg.role == engine.RoleUser {
			sb.WriteString(userStyle.Render("you") + "  " + msg.text + "\n\n")
			continue
		}
		body := msg.text
		if m.renderer != nil {
			if rendered, err := m.renderer.Render(msg.text); err == nil {
				body = strings.TrimSpace(rendered)
			}
		}
		label := botStyle.Render("attrangi")
		if msg.expression != "" {
			label += " " + expressionStyle(string(msg.expression)).Render("["+string(msg.expression)+"]")
		}
		sb.WriteString(label + "\n" + body + "\n\n")
	}
	return sb.String()
}

// View renders the full frame.
func (m *Model) View() string {
	if !m.ready {
		return "starting..."
	}

	var footer strings.Builder
	footer.WriteString(m.statusLine() + "\n")
	if m.err != nil {
		footer.WriteString(safetyStyle.Render("error: "+m.err.Error()) + "\n")
	}
	if m.waiting {
		footer.WriteString(m.spinner.View() + " thinking...\n")
	}
	footer.WriteString(inputStyle.Render(m.input.View()))

	return m.viewport.View() + "\n" + footer.String()
}

// statusLine summarizes the engine's view of the conversation.
func (m *Model) statusLine() string {
	if m.status == nil {
		return statusStyle.Render("stage: opening")
	}
	line := fmt.Sprintf("stage: %s | mode: %s | turn: %s | mass: %.2f",
		m.status.Stage, m.status.Mode, m.status.TurnState, m.status.Signals.Total())
	if m.status.Stage == engine.StageSafety {
		return safetyStyle.Render(line)
	}
	if m.status.OfferReport {
		line += "  " + offerStyle.Render("(report available: /report)")
	}
	return statusStyle.Render(line)
}
