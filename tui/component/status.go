package component

import (
	"fmt"

	"pdfqa/llm/rag"
	"pdfqa/pubsub"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// StatusModel 封装状态显示组件（spinner + 状态文本）
type StatusModel struct {
	spinner spinner.Model
	running bool
	text    string
	width   int
}

// NewStatusModel 创建新的状态组件
func NewStatusModel() StatusModel {
	s := spinner.New()
	s.Spinner = spinner.Jump
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	return StatusModel{
		spinner: s,
		text:    "Ready to upload PDF...",
	}
}

// Init 初始化组件，不自动启动 spinner
func (m StatusModel) Init() tea.Cmd {
	return nil
}

// Update 跟踪导入进度并更新 spinner
func (m StatusModel) Update(msg tea.Msg) (StatusModel, tea.Cmd) {
	if ev, ok := msg.(pubsub.Event[rag.IngestEvent]); ok {
		// 导入结束后到达的事件不能覆盖最终状态
		if !m.running {
			return m, nil
		}
		switch ev.Type {
		case pubsub.StartedEvent, pubsub.ProgressEvent:
			m.text = ev.Payload.Message + "..."
		case pubsub.FallbackEvent:
			m.text = "Could not read document, using demo content..."
		}
		return m, nil
	}

	if m.running {
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

// View 渲染组件视图
func (m StatusModel) View() string {
	style := lipgloss.NewStyle().Padding(1, 0)
	if m.width > 0 {
		style = style.Width(m.width)
	}
	content := m.text
	if m.running {
		content = fmt.Sprintf("%s %s", m.spinner.View(), m.text)
	}
	return style.Render(content)
}

// Start 启动 spinner
func (m *StatusModel) Start(text string) tea.Cmd {
	m.running = true
	m.text = text
	return m.spinner.Tick
}

// Stop 停止 spinner
func (m *StatusModel) Stop(text string) {
	m.running = false
	m.text = text
}

// SetText 设置状态文本
func (m *StatusModel) SetText(text string) {
	m.text = text
}

// Text 返回状态文本
func (m StatusModel) Text() string {
	return m.text
}

// SetWidth 设置组件宽度
func (m *StatusModel) SetWidth(width int) {
	m.width = width
}
