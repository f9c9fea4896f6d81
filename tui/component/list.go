package component

import (
	"pdfqa/llm"
	"pdfqa/tui/component/renderer"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
)

// ListModel 封装消息列表组件
// 负责历史记录和 viewport 管理，渲染逻辑委托给 MessageRenderer
type ListModel struct {
	viewport viewport.Model
	history  llm.History
	document string
	width    int
	height   int

	renderer *renderer.MessageRenderer
}

// NewListModel 创建新的消息列表组件
func NewListModel() ListModel {
	vp := viewport.New(30, 30)

	m := ListModel{
		viewport: vp,
		renderer: renderer.NewMessageRenderer(nil),
		width:    30,
		height:   5,
	}
	m.updateViewportContent()
	return m
}

// Init 初始化组件
func (m ListModel) Init() tea.Cmd {
	return nil
}

// Update 处理鼠标滚轮
func (m ListModel) Update(msg tea.Msg) (ListModel, tea.Cmd) {
	var cmd tea.Cmd

	if mouse, ok := msg.(tea.MouseMsg); ok {
		switch mouse.Button {
		case tea.MouseButtonWheelUp:
			m.viewport.ScrollUp(3)
		case tea.MouseButtonWheelDown:
			m.viewport.ScrollDown(3)
		}
	}

	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// View 渲染组件视图
func (m ListModel) View() string {
	return m.viewport.View()
}

// SetHistory 替换显示的对话
func (m *ListModel) SetHistory(history llm.History) {
	if len(history) < len(m.history) {
		m.renderer.Reset()
	}
	m.history = history
	m.updateViewportContent()
	m.viewport.GotoBottom()
}

// SetDocument 设置欢迎页显示的文档名
func (m *ListModel) SetDocument(document string) {
	m.document = document
	if len(m.history) == 0 {
		m.updateViewportContent()
	}
}

// ShowHelp 显示欢迎页，不修改对话
func (m *ListModel) ShowHelp() {
	m.viewport.SetContent(m.renderer.RenderWelcome(m.document))
	m.viewport.GotoTop()
}

// SetSize 设置组件尺寸
func (m *ListModel) SetSize(width, height int) {
	m.width = width
	m.height = height

	// 确保高度至少为 1
	if height < 1 {
		height = 1
	}

	m.viewport.Width = width
	m.viewport.Height = height
	m.renderer.SetViewportWidth(width)
	m.renderer.Reset()

	m.updateViewportContent()
	m.viewport.GotoBottom()
}

func (m *ListModel) updateViewportContent() {
	if len(m.history) == 0 {
		m.viewport.SetContent(m.renderer.RenderWelcome(m.document))
		return
	}
	m.viewport.SetContent(m.renderer.RenderHistory(m.history))
}
