/*-------------------------------------------------------------------------
 *
 * kdb+/q Console
 *
 * Portions copyright (c) 2025, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

package console

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// Color codes for terminal output
const (
	ColorReset  = "\033[0m"
	ColorRed    = "\033[31m"
	ColorGreen  = "\033[32m"
	ColorYellow = "\033[33m"
	ColorCyan   = "\033[36m"
	ColorGray   = "\033[90m"
	ColorBold   = "\033[1m"
)

// UI handles terminal output
type UI struct {
	noColor bool
	out     io.Writer
}

// NewUI creates a UI writing to out
func NewUI(out io.Writer, noColor bool) *UI {
	return &UI{noColor: noColor, out: out}
}

// SetNoColor switches colored output off or on
func (ui *UI) SetNoColor(noColor bool) {
	ui.noColor = noColor
}

// colorize applies color if colors are enabled
func (ui *UI) colorize(color, text string) string {
	if ui.noColor {
		return text
	}
	return color + text + ColorReset
}

// PrintWelcome prints the banner
func (ui *UI) PrintWelcome(version string) {
	fmt.Fprintln(ui.out, ui.colorize(ColorCyan, "kdb+/q console "+version))
	fmt.Fprintln(ui.out, ui.colorize(ColorGray, "Type q expressions to evaluate them, /help for commands, /quit to leave"))
}

// GetPrompt returns the readline prompt, showing the connected server
func (ui *UI) GetPrompt(server string) string {
	if server == "" {
		return ui.colorize(ColorGray, "(disconnected) ") + ui.colorize(ColorGreen+ColorBold, "q) ")
	}
	return ui.colorize(ColorCyan, server) + " " + ui.colorize(ColorGreen+ColorBold, "q) ")
}

// PrintResult prints rendered query output
func (ui *UI) PrintResult(text string) {
	if text == "" {
		return
	}
	fmt.Fprint(ui.out, text)
	if !strings.HasSuffix(text, "\n") {
		fmt.Fprintln(ui.out)
	}
}

// PrintQueryError prints a failed result with the q error marker
func (ui *UI) PrintQueryError(text string) {
	fmt.Fprintln(ui.out, ui.colorize(ColorRed, text))
}

// PrintStatus prints the line shown after each query
func (ui *UI) PrintStatus(text string) {
	fmt.Fprintln(ui.out, ui.colorize(ColorGray, text))
}

// PrintSystemMessage prints an informational message
func (ui *UI) PrintSystemMessage(text string) {
	fmt.Fprintln(ui.out, ui.colorize(ColorYellow, "System: ")+text)
}

// PrintError prints an error message
func (ui *UI) PrintError(text string) {
	fmt.Fprintln(ui.out, ui.colorize(ColorRed, "Error: ")+text)
}

// PrintText prints text without decoration
func (ui *UI) PrintText(text string) {
	fmt.Fprint(ui.out, text)
}

// PrintHelp prints the command help
func (ui *UI) PrintHelp() {
	help := `
Enter any q expression to evaluate it on the connected server.

Commands:
  /connect <server>              Connect to a server by index, host:port or
                                 connection string host:port[:user[:password]]
  /disconnect                    Close the current connection
  /servers                       List configured servers
  /namespaces [refresh]          Show namespaces and their globals
  /view <console|grid|document>  Choose how results are shown
  /last                          Show the last result again in the current view
  /show settings                 Show current settings
  /help                          Show this help message
  /quit                          Exit the console

History navigation:
  Up/Down   - Navigate through command history
  Ctrl+R    - Reverse search history
  Tab       - Complete q keywords and globals of the connected server
`
	fmt.Fprintln(ui.out, ui.colorize(ColorCyan, help))
}

// TerminalWidth returns the width of stdout, or 80 when it is not a
// terminal
func TerminalWidth() int {
	if width, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && width > 2 {
		// Leave a small margin to prevent awkward wrapping at terminal edge
		return width - 2
	}
	return 80
}

// IsTerminal reports whether stdin is interactive
func IsTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// PromptForPassword prompts the user to enter a password (hidden input)
// Returns an error if the input is interrupted
func (ui *UI) PromptForPassword(ctx context.Context, user string) (string, error) {
	fmt.Fprint(ui.out, ui.colorize(ColorYellow, "Password for "+user+": "))

	type result struct {
		password string
		err      error
	}
	resultChan := make(chan result, 1)

	go func() {
		password, err := term.ReadPassword(int(os.Stdin.Fd()))
		resultChan <- result{password: strings.TrimSpace(string(password)), err: err}
	}()

	select {
	case <-ctx.Done():
		fmt.Fprintln(ui.out)
		return "", ctx.Err()
	case res := <-resultChan:
		fmt.Fprintln(ui.out)
		if res.err != nil {
			return "", res.err
		}
		return res.password, nil
	}
}
