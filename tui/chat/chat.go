package chat

import (
	"context"
	"strings"
	"time"

	"pdfqa/llm"
	"pdfqa/llm/rag"
	"pdfqa/pubsub"
	"pdfqa/tui/component"
	"pdfqa/tui/component/renderer"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// StatusCleared /clear 之后显示的状态
const StatusCleared = "Chat cleared. You can continue asking questions."

// Options 界面依赖的控制器和事件源
type Options struct {
	Session *rag.Session
	Ingest  *rag.IngestionController
	Query   *rag.QueryController
	Events  <-chan pubsub.Event[rag.IngestEvent]
	Watch   <-chan string // documents to ingest as they appear, may be nil
	Path    string        // document to ingest at startup, may be empty
}

type ingestDoneMsg struct {
	path   string
	result rag.IngestResult
}

type queryDoneMsg struct {
	reply   string
	history llm.History
	elapsed time.Duration
}

type watchMsg struct {
	path string
	ok   bool
}

type startupMsg struct {
	path string
}

type eventsClosedMsg struct{}

// Model 聊天界面模型
type Model struct {
	list   component.ListModel
	edit   component.EditModel
	status component.StatusModel

	opts    Options
	ctx     context.Context
	history llm.History
	busy    bool
	pending string // path waiting for the current request to finish

	width  int
	height int
}

// InitialModel 创建初始模型
func InitialModel(ctx context.Context, opts Options) Model {
	m := Model{
		list:   component.NewListModel(),
		edit:   component.NewEditModel(),
		status: component.NewStatusModel(),
		opts:   opts,
		ctx:    ctx,
	}
	if opts.Session != nil {
		m.list.SetDocument(opts.Session.Document())
	}
	return m
}

func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		m.list.Init(),
		m.edit.Init(),
		m.status.Init(),
		m.waitForEvent(),
		m.waitForWatch(),
	}
	if m.opts.Path != "" {
		path := m.opts.Path
		cmds = append(cmds, func() tea.Msg { return startupMsg{path: path} })
	}
	return tea.Batch(cmds...)
}

func (m Model) waitForEvent() tea.Cmd {
	if m.opts.Events == nil {
		return nil
	}
	return func() tea.Msg {
		event, ok := <-m.opts.Events
		if !ok {
			return eventsClosedMsg{}
		}
		return event
	}
}

func (m Model) waitForWatch() tea.Cmd {
	if m.opts.Watch == nil {
		return nil
	}
	return func() tea.Msg {
		path, ok := <-m.opts.Watch
		return watchMsg{path: path, ok: ok}
	}
}

func (m Model) runIngest(path string) tea.Cmd {
	ingest := m.opts.Ingest
	ctx := m.ctx
	return func() tea.Msg {
		return ingestDoneMsg{path: path, result: ingest.Ingest(ctx, path)}
	}
}

func (m Model) runQuery(message string) tea.Cmd {
	query := m.opts.Query
	ctx := m.ctx
	history := m.history
	return func() tea.Msg {
		start := time.Now()
		reply, updated := query.Query(ctx, message, history)
		return queryDoneMsg{reply: reply, history: updated, elapsed: time.Since(start)}
	}
}

// startIngest 开始导入 path；已有请求在运行时排队，只保留最新的一个
func (m Model) startIngest(path string) (Model, tea.Cmd) {
	if m.busy {
		m.pending = path
		m.status.SetText("Queued " + renderer.Truncate(path, 60))
		return m, nil
	}
	m.busy = true
	return m, tea.Batch(
		m.status.Start("Processing "+renderer.Truncate(path, 60)+"..."),
		m.runIngest(path),
	)
}

// nextPending 在当前请求结束后导入排队的文档
func (m Model) nextPending() (Model, tea.Cmd) {
	if m.pending == "" {
		return m, nil
	}
	path := m.pending
	m.pending = ""
	return m.startIngest(path)
}

func (m Model) handleSubmit(value string) (Model, tea.Cmd) {
	cmd := ParseCommand(value)

	switch cmd.Kind {
	case CommandQuit:
		return m, tea.Quit
	case CommandHelp:
		m.list.ShowHelp()
		return m, nil
	case CommandClear:
		m.history = nil
		m.list.SetHistory(nil)
		m.status.SetText(StatusCleared)
		return m, nil
	case CommandLoad:
		if cmd.Arg == "" {
			m.history = nil
			m.list.SetHistory(nil)
			m.status.SetText(rag.StatusNoInput)
			return m, nil
		}
		return m.startIngest(cmd.Arg)
	}

	if m.busy {
		m.status.SetText("Busy, try again when the current request finishes")
		return m, nil
	}

	// 先显示问题，完整历史由 QueryController 返回
	m.busy = true
	m.list.SetHistory(append(append(llm.History{}, m.history...), llm.UserTurn(value)))
	return m, tea.Batch(m.status.Start("Thinking..."), m.runQuery(value))
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		statusHeight := lipgloss.Height(m.status.View())
		editHeight := m.edit.Height()
		listHeight := m.height - statusHeight - editHeight

		m.list.SetSize(m.width, listHeight)
		m.edit.SetWidth(m.width)
		m.status.SetWidth(m.width)

	case component.EditorSubmitMsg:
		var cmd tea.Cmd
		m, cmd = m.handleSubmit(msg.Value)
		return m, cmd

	case ingestDoneMsg:
		m.busy = false
		m.status.Stop(msg.result.Status)
		// 新文档开始新的对话
		m.history = nil
		if msg.result.Welcome != nil {
			m.history = llm.History{*msg.result.Welcome}
		}
		if m.opts.Session != nil {
			m.list.SetDocument(m.opts.Session.Document())
		}
		m.list.SetHistory(m.history)
		return m.nextPending()

	case queryDoneMsg:
		m.busy = false
		m.history = msg.history
		m.list.SetHistory(m.history)
		m.status.Stop("Answered in " + renderer.FormatDuration(msg.elapsed))
		return m.nextPending()

	case startupMsg:
		return m.startIngest(msg.path)

	case watchMsg:
		if !msg.ok {
			return m, nil
		}
		var cmd tea.Cmd
		m, cmd = m.startIngest(msg.path)
		return m, tea.Batch(cmd, m.waitForWatch())

	case pubsub.Event[rag.IngestEvent]:
		cmds = append(cmds, m.waitForEvent())

	case eventsClosedMsg:
		return m, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		}
	}

	var cmd tea.Cmd

	m.list, cmd = m.list.Update(msg)
	cmds = append(cmds, cmd)

	m.edit, cmd = m.edit.Update(msg)
	cmds = append(cmds, cmd)

	m.status, cmd = m.status.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

func (m Model) View() string {
	return lipgloss.JoinVertical(
		lipgloss.Left,
		m.list.View(),
		m.status.View(),
		m.edit.View(),
	)
}

// History 返回当前对话
func (m Model) History() llm.History {
	return m.history
}

// CommandKind 斜杠命令类型
type CommandKind int

const (
	CommandNone CommandKind = iota
	CommandLoad
	CommandClear
	CommandHelp
	CommandQuit
)

// Command 解析后的一行输入
type Command struct {
	Kind CommandKind
	Arg  string
}

// ParseCommand 识别 /load、/clear、/help、/quit，其余输入都是问题
func ParseCommand(input string) Command {
	input = strings.TrimSpace(input)
	if !strings.HasPrefix(input, "/") {
		return Command{Kind: CommandNone}
	}

	name, arg, _ := strings.Cut(input, " ")
	arg = strings.Trim(strings.TrimSpace(arg), `"'`)

	switch strings.ToLower(name) {
	case "/load", "/open":
		return Command{Kind: CommandLoad, Arg: arg}
	case "/clear":
		return Command{Kind: CommandClear}
	case "/help", "/?":
		return Command{Kind: CommandHelp}
	case "/quit", "/exit":
		return Command{Kind: CommandQuit}
	}
	return Command{Kind: CommandNone}
}
