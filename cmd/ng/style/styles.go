// Package style centralizes the terminal rendering of the ng CLI.
package style

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var ColorYellow = lipgloss.Color("#e9a015")
var ColorGreen = lipgloss.Color("#00aa00")
var ColorDarkRed = lipgloss.Color("#aa0000")
var ColorGray = lipgloss.Color("#888888")
var ColorBlack = lipgloss.Color("#111111")

var H1Style = lipgloss.NewStyle().Background(ColorYellow).Foreground(ColorBlack).Bold(true)
var H2Style = lipgloss.NewStyle().Foreground(ColorYellow).Bold(true)
var BlockStyle = lipgloss.NewStyle().MarginLeft(4)
var SubtitleStyle = lipgloss.NewStyle().Foreground(ColorGray).Italic(true)
var SuccessStyle = lipgloss.NewStyle().Foreground(ColorGreen).Bold(true)
var ErrorStyle = lipgloss.NewStyle().Foreground(ColorDarkRed).Bold(true)

func Title(in string) string {
	in = fmt.Sprintf(" %s ", in)
	return fmt.Sprintf("\n%s\n", H1Style.Render(in))
}

func BlockTitle(in string) string {
	in = fmt.Sprintf("→ %s:", in)
	return fmt.Sprintf("\n%s\n", H2Style.Render(in))
}

func Block(in string) string {
	return BlockStyle.Render(strings.Trim(in, "\n"))
}

func Subtitle(in string) string {
	return fmt.Sprintf("\n%s\n", SubtitleStyle.Render(in))
}

func Item(in string) string {
	return fmt.Sprintf(" • %s\n", in)
}

func RenderSuccess(in string) string {
	return SuccessStyle.Render(in)
}

func RenderError(in string) string {
	return ErrorStyle.Render(in)
}
