package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var baseStyle = lipgloss.NewStyle().
	BorderStyle(lipgloss.NormalBorder()).
	BorderForeground(lipgloss.Color("240"))

var headerStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(lipgloss.Color("#FAFAFA")).
	Background(lipgloss.Color("#7D56F4")).
	Padding(0, 1)

var (
	statusDone = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	statusWIP  = lipgloss.NewStyle().Foreground(lipgloss.Color("208"))
	statusErr  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	hintStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	labelStyle = lipgloss.NewStyle().Bold(true)
)

// progressBar draws pct (0-100) as a fixed width bar.
func progressBar(pct, width int) string {
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	filled := (pct*width + 50) / 100
	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
	return fmt.Sprintf("%s %3d%%", statusDone.Render(bar), pct)
}

func check(done bool) string {
	if done {
		return statusDone.Render("[x]")
	}
	return statusWIP.Render("[ ]")
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
