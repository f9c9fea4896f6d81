package renderer

import (
	"github.com/charmbracelet/lipgloss"
)

// MessageStyles configures how conversation turns are drawn
type MessageStyles struct {
	User      lipgloss.Style
	Assistant lipgloss.Style
	System    lipgloss.Style
	Error     lipgloss.Style

	Title   lipgloss.Style
	Example lipgloss.Style
	Indent  lipgloss.Style
}

// DefaultMessageStyles returns the default message styles
func DefaultMessageStyles() *MessageStyles {
	return &MessageStyles{
		User:      lipgloss.NewStyle().Foreground(lipgloss.Color("#7dcfff")).Bold(true),
		Assistant: lipgloss.NewStyle().Foreground(lipgloss.Color("#bb9af7")).Bold(true),
		System:    lipgloss.NewStyle().Foreground(lipgloss.Color("#565f89")).Italic(true),
		Error:     lipgloss.NewStyle().Foreground(lipgloss.Color("#f7768e")),
		Title:     lipgloss.NewStyle().Foreground(lipgloss.Color("#e0af68")).Bold(true),
		Example:   lipgloss.NewStyle().Foreground(lipgloss.Color("#9ece6a")),
		Indent:    lipgloss.NewStyle().PaddingLeft(2),
	}
}
