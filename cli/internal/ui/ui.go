// Package ui renders CLI output.
package ui

import (
	"fmt"
	"os"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/fatih/color"
	"github.com/pterm/pterm"
)

var (
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#00FF88")).Bold(true)
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4444")).Bold(true)
)

// Success prints a success line.
func Success(format string, args ...interface{}) {
	fmt.Println(successStyle.Render("✔ " + fmt.Sprintf(format, args...)))
}

// Error prints an error line to stderr.
func Error(format string, args ...interface{}) {
	fmt.Fprintln(os.Stderr, errorStyle.Render("✘ "+fmt.Sprintf(format, args...)))
}

// Info prints an informational line.
func Info(format string, args ...interface{}) {
	color.Cyan(fmt.Sprintf(format, args...))
}

// Warn prints a warning line.
func Warn(format string, args ...interface{}) {
	color.Yellow(fmt.Sprintf(format, args...))
}

// StatusTable prints rows as a two-column status table.
func StatusTable(rows [][]string) {
	data := pterm.TableData{{"Migration", "Status"}}
	data = append(data, rows...)
	_ = pterm.DefaultTable.WithHasHeader().WithData(data).Render()
}

// Spinner starts a progress spinner.
func Spinner(text string) (*pterm.SpinnerPrinter, error) {
	return pterm.DefaultSpinner.Start(text)
}

// Markdown renders a markdown document for the terminal.
func Markdown(source string) (string, error) {
	renderer, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(100))
	if err != nil {
		return "", err
	}
	return renderer.Render(source)
}
