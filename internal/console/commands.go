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
	"strings"

	"kdb-q-console/internal/render"
	"kdb-q-console/internal/servers"
)

// SlashCommand represents a parsed slash command
type SlashCommand struct {
	Command string
	Args    []string
}

// slashCommands lists the commands offered by completion
var slashCommands = []string{
	"/connect", "/disconnect", "/servers", "/namespaces", "/view",
	"/last", "/show", "/help", "/quit",
}

// ParseSlashCommand parses a slash command from user input
func ParseSlashCommand(input string) *SlashCommand {
	if !strings.HasPrefix(input, "/") {
		return nil
	}

	parts := parseQuotedArgs(strings.TrimPrefix(input, "/"))
	if len(parts) == 0 {
		return nil
	}

	return &SlashCommand{
		Command: strings.ToLower(parts[0]),
		Args:    parts[1:],
	}
}

// parseQuotedArgs splits a string into arguments, respecting quoted strings
func parseQuotedArgs(input string) []string {
	var args []string
	var current strings.Builder
	inQuote := false
	quoteChar := rune(0)

	runes := []rune(input)
	for i := 0; i < len(runes); i++ {
		r := runes[i]

		switch {
		case (r == '"' || r == '\'') && !inQuote:
			inQuote = true
			quoteChar = r
		case r == quoteChar && inQuote:
			inQuote = false
			quoteChar = 0
		case (r == ' ' || r == '\t') && !inQuote:
			if current.Len() > 0 {
				args = append(args, current.String())
				current.Reset()
			}
		case r == '\\' && inQuote && i+1 < len(runes) && (runes[i+1] == quoteChar || runes[i+1] == '\\'):
			current.WriteRune(runes[i+1])
			i++
		default:
			current.WriteRune(r)
		}
	}

	if current.Len() > 0 {
		args = append(args, current.String())
	}
	return args
}

// HandleSlashCommand processes a slash command. It reports whether the
// console should exit.
func (c *Console) HandleSlashCommand(ctx context.Context, cmd *SlashCommand) (quit bool) {
	switch cmd.Command {
	case "help":
		c.ui.PrintHelp()

	case "quit", "exit":
		return true

	case "connect":
		if len(cmd.Args) != 1 {
			c.ui.PrintError("Usage: /connect <index|host:port[:user[:password]]>")
			return false
		}
		if err := c.Connect(ctx, cmd.Args[0]); err != nil {
			c.ui.PrintError(err.Error())
		}

	case "disconnect":
		c.disconnect()

	case "servers":
		c.printServers()

	case "namespaces", "ns":
		refresh := len(cmd.Args) > 0 && cmd.Args[0] == "refresh"
		c.printNamespaces(ctx, refresh)

	case "view":
		c.handleViewCommand(cmd.Args)

	case "last":
		c.showLast()

	case "show":
		if len(cmd.Args) == 0 || cmd.Args[0] != "settings" {
			c.ui.PrintError("Usage: /show settings")
			return false
		}
		c.printSettings()

	default:
		c.ui.PrintError(fmt.Sprintf("Unknown command: /%s (type /help for available commands)", cmd.Command))
	}
	return false
}

func (c *Console) handleViewCommand(args []string) {
	if len(args) == 0 {
		c.ui.PrintSystemMessage(fmt.Sprintf("Current view: %s", c.View()))
		return
	}
	view, err := render.ParseView(args[0])
	if err != nil {
		c.ui.PrintError(err.Error())
		return
	}
	c.SetView(view)
	c.ui.PrintSystemMessage(fmt.Sprintf("View set to: %s", view))
}

func (c *Console) printServers() {
	cfg := c.cfg.Get()
	list := cfg.ServerList()
	if len(list) == 0 {
		c.ui.PrintSystemMessage("No servers configured")
		return
	}
	var sb strings.Builder
	if err := servers.RenderTree(&sb, servers.BuildTree(list, cfg.GroupMode())); err != nil {
		c.ui.PrintError(err.Error())
		return
	}
	c.ui.PrintText(sb.String())
}

func (c *Console) printNamespaces(ctx context.Context, refresh bool) {
	s, err := c.manager.Current()
	if err != nil {
		c.ui.PrintError(err.Error())
		return
	}
	tree, err := s.Namespaces(ctx, refresh)
	if err != nil {
		c.ui.PrintError(err.Error())
		return
	}
	var sb strings.Builder
	if err := tree.Render(&sb); err != nil {
		c.ui.PrintError(err.Error())
		return
	}
	if sb.Len() == 0 {
		c.ui.PrintSystemMessage("No globals defined")
		return
	}
	c.ui.PrintText(sb.String())
}

func (c *Console) printSettings() {
	cfg := c.cfg.Get()
	server := "(none)"
	if s, err := c.manager.Current(); err == nil {
		server = s.Server().Label()
	}
	maxRows := "all"
	if cfg.Display.MaxRows > 0 {
		maxRows = fmt.Sprintf("%d", cfg.Display.MaxRows)
	}

	fmt.Fprintf(c.out, "\nSettings:\n")
	fmt.Fprintf(c.out, "  Config file:       %s\n", valueOr(c.cfg.GetPath(), "(none)"))
	fmt.Fprintf(c.out, "  Connected to:      %s\n", server)
	fmt.Fprintf(c.out, "  View:              %s\n", c.View())
	fmt.Fprintf(c.out, "  Max rows:          %s\n", maxRows)
	fmt.Fprintf(c.out, "  Column separator:  %q\n", cfg.Display.ColumnSeparator)
	fmt.Fprintf(c.out, "  Server grouping:   %s\n", cfg.GroupMode())
	fmt.Fprintf(c.out, "  Servers:           %d configured\n", len(cfg.Servers))
	fmt.Fprintf(c.out, "  Color:             %s\n", onOff(!cfg.Display.NoColor))
	fmt.Fprintln(c.out)
}

func valueOr(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}
