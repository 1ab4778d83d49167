/*-------------------------------------------------------------------------
 *
 * kdb+/q Console
 *
 * Portions copyright (c) 2025, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

// Package console implements the interactive q console: a readline loop
// that evaluates q expressions on the connected server and renders the
// results, plus slash commands for managing connections and views.
package console

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/chzyer/readline"

	"kdb-q-console/internal/config"
	"kdb-q-console/internal/ipc"
	"kdb-q-console/internal/kdb"
	"kdb-q-console/internal/logging"
	"kdb-q-console/internal/render"
	"kdb-q-console/internal/servers"
	"kdb-q-console/internal/session"
)

// namespaceTimeout bounds the namespace listing loaded after connecting
const namespaceTimeout = 5 * time.Second

// PasswordPrompter asks for the password of a user
type PasswordPrompter func(ctx context.Context, user string) (string, error)

// Options configures a Console
type Options struct {
	Config  *config.ReloadableConfig
	Manager *session.Manager
	Out     io.Writer
	Version string

	// View overrides the configured and remembered view when set
	View string

	// PrefsPath is where the last server and view are remembered; empty
	// disables preferences
	PrefsPath string

	// PromptPassword is used when a server has a user but no password;
	// nil never prompts
	PromptPassword PasswordPrompter
}

// Console is the interactive session with a user
type Console struct {
	cfg            *config.ReloadableConfig
	manager        *session.Manager
	ui             *UI
	out            io.Writer
	version        string
	prefsPath      string
	promptPassword PasswordPrompter

	mu    sync.Mutex
	view  render.View
	prefs *config.Preferences
	rl    *readline.Instance
}

// New creates a console
func New(opts Options) (*Console, error) {
	cfg := opts.Config.Get()

	c := &Console{
		cfg:            opts.Config,
		manager:        opts.Manager,
		ui:             NewUI(opts.Out, cfg.Display.NoColor),
		out:            opts.Out,
		version:        opts.Version,
		prefsPath:      opts.PrefsPath,
		promptPassword: opts.PromptPassword,
		prefs:          &config.Preferences{},
	}

	if c.prefsPath != "" {
		prefs, err := config.LoadPreferences(c.prefsPath)
		if err != nil {
			logging.Warn("preferences_load_failed", "path", c.prefsPath, "error", err)
		} else {
			c.prefs = prefs
		}
	}

	viewName := cfg.Display.View
	if c.prefs.View != "" {
		viewName = c.prefs.View
	}
	if opts.View != "" {
		viewName = opts.View
	}
	view, err := render.ParseView(viewName)
	if err != nil {
		return nil, err
	}
	c.view = view

	opts.Config.OnReload(c.applyConfig)
	return c, nil
}

// applyConfig picks up a reloaded configuration
func (c *Console) applyConfig(cfg *config.Config) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ui.SetNoColor(cfg.Display.NoColor)
	logging.Info("console_config_applied", "servers", len(cfg.Servers))
}

// View returns the current result view
func (c *Console) View() render.View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.view
}

// SetView changes the result view and remembers it
func (c *Console) SetView(view render.View) {
	c.mu.Lock()
	c.view = view
	c.prefs.View = string(view)
	c.mu.Unlock()
	c.savePreferences()
}

func (c *Console) savePreferences() {
	if c.prefsPath == "" {
		return
	}
	c.mu.Lock()
	prefs := *c.prefs
	c.mu.Unlock()
	if err := config.SavePreferences(c.prefsPath, &prefs); err != nil {
		logging.Warn("preferences_save_failed", "path", c.prefsPath, "error", err)
	}
}

// StartupServer returns the server to connect to at startup: the
// configured default, else the last server used if it is still configured.
func (c *Console) StartupServer() string {
	cfg := c.cfg.Get()
	if cfg.DefaultServer != "" {
		return cfg.DefaultServer
	}
	c.mu.Lock()
	last := c.prefs.LastServer
	c.mu.Unlock()
	if _, ok := servers.Select(cfg.ServerList(), last); ok {
		return last
	}
	return ""
}

// resolveServer finds a configured server by index or label, or parses
// key as a connection string.
func (c *Console) resolveServer(key string) (servers.Server, bool, error) {
	if s, ok := servers.Select(c.cfg.Get().ServerList(), key); ok {
		return s, true, nil
	}
	s, err := servers.Parse(key)
	return s, false, err
}

// Connect closes any open session and connects to the server named by key
func (c *Console) Connect(ctx context.Context, key string) error {
	server, configured, err := c.resolveServer(key)
	if err != nil {
		return err
	}

	if server.User != "" && server.Password == "" && c.promptPassword != nil {
		password, err := c.promptPassword(ctx, server.User)
		if err != nil {
			return err
		}
		server.Password = password
	}

	c.ui.PrintSystemMessage(fmt.Sprintf("Connecting to %s...", server.Label()))
	s, err := c.manager.Connect(ctx, server)
	if err != nil {
		c.updatePrompt()
		return err
	}
	c.ui.PrintSystemMessage(fmt.Sprintf("Connected to %s", server.Label()))
	c.updatePrompt()

	if configured {
		c.mu.Lock()
		c.prefs.LastServer = server.Label()
		c.mu.Unlock()
		c.savePreferences()
	}

	// Globals feed completion; a failure here is not fatal
	nsCtx, cancel := context.WithTimeout(ctx, namespaceTimeout)
	defer cancel()
	if _, err := s.Namespaces(nsCtx, false); err != nil {
		logging.Debug("namespaces_unavailable", "server", server.Label(), "error", err)
	}
	return nil
}

func (c *Console) disconnect() {
	s, err := c.manager.Current()
	if err != nil {
		c.ui.PrintSystemMessage("Not connected")
		return
	}
	label := s.Server().Label()
	if err := c.manager.Disconnect(); err != nil {
		c.ui.PrintError(err.Error())
	}
	c.ui.PrintSystemMessage(fmt.Sprintf("Disconnected from %s", label))
	c.updatePrompt()
}

// prompt is the readline prompt for the current connection
func (c *Console) prompt() string {
	label := ""
	if s, err := c.manager.Current(); err == nil {
		label = s.Server().Label()
	}
	return c.ui.GetPrompt(label)
}

func (c *Console) updatePrompt() {
	c.mu.Lock()
	rl := c.rl
	c.mu.Unlock()
	if rl != nil {
		rl.SetPrompt(c.prompt())
	}
}

// HandleLine processes one line of input. It reports whether the console
// should exit.
func (c *Console) HandleLine(ctx context.Context, line string) (quit bool) {
	input := strings.TrimSpace(line)
	if input == "" {
		return false
	}

	if cmd := ParseSlashCommand(input); cmd != nil {
		return c.HandleSlashCommand(ctx, cmd)
	}

	c.runQuery(ctx, input)
	return false
}

func (c *Console) runQuery(ctx context.Context, text string) {
	s, err := c.manager.Current()
	if err != nil {
		c.ui.PrintError("Not connected (use /connect <server>)")
		return
	}

	exec, err := s.Execute(ctx, text)
	if err != nil {
		c.ui.PrintError(err.Error())
		if errors.Is(err, ipc.ErrClosed) {
			// The server went away; drop the dead session
			_ = c.manager.Disconnect()
			c.updatePrompt()
		}
		return
	}
	c.show(exec)
}

// show renders an execution in the current view with its status line
func (c *Console) show(exec *session.Execution) {
	cfg := c.cfg.Get()
	res := kdb.Classify(exec.Envelope)
	opts := render.Options{
		Separator:     cfg.Display.ColumnSeparator,
		MaxRows:       cfg.Display.MaxRows,
		NoColor:       cfg.Display.NoColor,
		MarkdownStyle: cfg.Display.MarkdownStyle,
		Width:         TerminalWidth(),
	}

	out, err := render.Render(c.View(), exec.Query, res, opts)
	if err != nil {
		c.ui.PrintError(err.Error())
		return
	}

	if res.Kind() == kdb.KindError && c.View() == render.ViewConsole {
		c.ui.PrintQueryError(out)
	} else {
		c.ui.PrintResult(out)
	}
	received := 0
	if exec.Envelope != nil {
		received = exec.Envelope.Received
	}
	c.ui.PrintStatus(Status(res, exec.Elapsed, received))
}

func (c *Console) showLast() {
	s, err := c.manager.Current()
	if err != nil {
		c.ui.PrintError(err.Error())
		return
	}
	last := s.Last()
	if last == nil {
		c.ui.PrintSystemMessage("No result yet")
		return
	}
	c.show(last)
}

// completionWords returns the candidates for tab completion
func (c *Console) completionWords() []string {
	words := append([]string{}, qKeywords...)
	if s, err := c.manager.Current(); err == nil {
		words = append(words, s.CachedNamespaces().Names()...)
	}
	return words
}

// Run starts the interactive loop and returns when the user quits or ctx
// is canceled
func (c *Console) Run(ctx context.Context) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:            c.prompt(),
		HistoryFile:       c.cfg.Get().HistoryFile,
		HistoryLimit:      1000,
		InterruptPrompt:   "^C",
		EOFPrompt:         "/quit",
		HistorySearchFold: true,
		AutoComplete:      &Completer{Words: c.completionWords},
	})
	if err != nil {
		return fmt.Errorf("failed to initialize readline: %w", err)
	}
	defer rl.Close()

	c.mu.Lock()
	c.rl = rl
	c.mu.Unlock()

	// Closing readline will cause Readline() to return an error
	go func() {
		<-ctx.Done()
		_ = rl.Close()
	}()

	c.ui.PrintWelcome(c.version)

	for {
		line, err := rl.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) {
				// Ctrl+C clears the line; an empty line exits
				if line != "" {
					continue
				}
			} else if !errors.Is(err, io.EOF) && ctx.Err() == nil {
				return fmt.Errorf("readline error: %w", err)
			}
			c.ui.PrintSystemMessage("Goodbye!")
			return c.manager.Disconnect()
		}

		if c.HandleLine(ctx, line) {
			return c.manager.Disconnect()
		}
	}
}
