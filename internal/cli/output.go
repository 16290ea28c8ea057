package cli

import (
	"fmt"
	"io"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/lipgloss"

	"github.com/RichardoC/dehost/internal/deploy"
	"github.com/RichardoC/dehost/internal/domainlink"
)

var (
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#15803D", Dark: "#4ADE80"}).Bold(true)
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#B91C1C", Dark: "#F87171"}).Bold(true)
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#B45309", Dark: "#FBBF24"}).Bold(true)
	urlStyle     = lipgloss.NewStyle().Underline(true)
	hintStyle    = lipgloss.NewStyle().Faint(true)

	recordStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Padding(0, 1)
	labelStyle = lipgloss.NewStyle().Bold(true).Width(7)
)

var levelStyles = map[deploy.Level]lipgloss.Style{
	deploy.LevelSuccess: successStyle,
	deploy.LevelError:   errorStyle,
	deploy.LevelWarning: warningStyle,
}

// terminalNotifier prints action notifications in place of browser toasts.
type terminalNotifier struct {
	w io.Writer
}

func newTerminalNotifier(w io.Writer) *terminalNotifier {
	return &terminalNotifier{w: w}
}

func (t *terminalNotifier) Notify(n deploy.Notification) {
	style, ok := levelStyles[n.Level]
	if !ok {
		style = lipgloss.NewStyle()
	}
	fmt.Fprintln(t.w, style.Render(n.Message))
	if n.URL != "" {
		fmt.Fprintln(t.w, urlStyle.Render(n.URL))
	}
	if n.DomainLinkCID != "" {
		fmt.Fprintln(t.w, hintStyle.Render("Link a custom domain with: dehost link --cid "+n.DomainLinkCID))
	}
}

// renderRecord formats one DNS record as a bordered box.
func renderRecord(r domainlink.Record) string {
	body := lipgloss.JoinVertical(lipgloss.Left,
		labelStyle.Render("Type")+r.Type,
		labelStyle.Render("Name")+r.Name,
		labelStyle.Render("Value")+r.Value,
	)
	return recordStyle.Render(body)
}

// copyToClipboard copies text, reporting the outcome without failing the command.
func copyToClipboard(w io.Writer, text string) {
	if err := clipboard.WriteAll(text); err != nil {
		fmt.Fprintln(w, warningStyle.Render("Could not copy to clipboard: "+err.Error()))
		return
	}
	fmt.Fprintln(w, hintStyle.Render("Copied to clipboard"))
}
