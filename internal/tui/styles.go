package tui

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/leapstack-labs/leapcurate/pkg/core"
)

type styles struct {
	Title    lipgloss.Style
	Card     lipgloss.Style
	Label    lipgloss.Style
	Question lipgloss.Style
	Muted    lipgloss.Style
	Info     lipgloss.Style
	Warn     lipgloss.Style
	Error    lipgloss.Style
}

func defaultStyles() styles {
	return styles{
		Title:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")),
		Card:     lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("8")).Padding(0, 1),
		Label:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("14")),
		Question: lipgloss.NewStyle().Bold(true),
		Muted:    lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
		Info:     lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
		Warn:     lipgloss.NewStyle().Foreground(lipgloss.Color("11")),
		Error:    lipgloss.NewStyle().Foreground(lipgloss.Color("9")),
	}
}

func (s styles) notice(level core.NoticeLevel) lipgloss.Style {
	switch level {
	case core.NoticeError:
		return s.Error
	case core.NoticeWarn:
		return s.Warn
	}
	return s.Info
}
