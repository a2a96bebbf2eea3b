// Package clipboard hands a verification key to the rater, through the system
// clipboard when one is reachable and as a selectable box otherwise.
package clipboard

import (
	"fmt"
	"io"

	"authenticity-survey/internal/models"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/lipgloss"
)

// Package-level variables to allow mocking in tests.
var (
	clipboardWriteAll    = clipboard.WriteAll
	clipboardUnsupported = func() bool { return clipboard.Unsupported }
)

// Outcome reports how the key reached the rater
type Outcome string

const (
	Copied Outcome = "copied"
	Manual Outcome = "manual"
)

var (
	copiedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	noticeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	keyBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("205")).
			Padding(0, 2).
			Bold(true)
)

// CopyKey copies key to the clipboard. When the clipboard is unsupported or
// refuses the write, the key is printed to out for manual copy instead.
// The key is always presented; CopyKey does not return an error.
func CopyKey(key models.VerificationKey, out io.Writer) (outcome Outcome) {
	defer func() {
		if r := recover(); r != nil {
			outcome = presentManually(key, out, fmt.Sprint(r))
		}
	}()

	if clipboardUnsupported() {
		return presentManually(key, out, "no clipboard available")
	}
	if err := clipboardWriteAll(string(key)); err != nil {
		return presentManually(key, out, err.Error())
	}

	fmt.Fprintln(out, copiedStyle.Render(fmt.Sprintf("Key %s copied to clipboard", key)))
	return Copied
}

func presentManually(key models.VerificationKey, out io.Writer, reason string) Outcome {
	fmt.Fprintln(out, noticeStyle.Render(fmt.Sprintf("Could not copy automatically (%s). Select and copy your key:", reason)))
	fmt.Fprintln(out, keyBoxStyle.Render(string(key)))
	return Manual
}
