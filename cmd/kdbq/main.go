/*-------------------------------------------------------------------------
 *
 * kdb+/q Console
 *
 * Portions copyright (c) 2025, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"kdb-q-console/internal/config"
	"kdb-q-console/internal/console"
	"kdb-q-console/internal/crypto"
	"kdb-q-console/internal/logging"
	"kdb-q-console/internal/session"
)

const version = "1.0.0-alpha1"

var (
	configFile string
	serverFlag string
	viewFlag   string
	noColor    bool
)

var rootCmd = &cobra.Command{
	Use:   "kdbq",
	Short: "kdb+/q console - evaluate q expressions on kdb+ servers",
	Long: `kdbq is an interactive console for kdb+ servers. It connects over the
kdb+ IPC protocol, evaluates q expressions and shows the results as q
console text, grid JSON or a rendered markdown document.

Servers are configured as connection strings host:port[:user[:password]];
passwords may be stored encrypted (see the keygen and encrypt commands).`,
	Version: version,
	Args:    cobra.NoArgs,
	RunE:    runConsole,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "",
		"Path to configuration file (default: .kdbq.yaml, ~/.kdbq.yaml, /etc/kdbq/config.yaml)")
	rootCmd.PersistentFlags().StringVarP(&serverFlag, "server", "s", "",
		"Server to connect to (index, host:port or host:port[:user[:password]])")
	rootCmd.PersistentFlags().StringVar(&viewFlag, "view", "",
		"Result view: console, grid or document")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false,
		"Disable colored output")

	rootCmd.AddCommand(queryCmd, serversCmd, namespacesCmd, keygenCmd, encryptCmd)
}

func main() {
	// Usage is shown for flag parse errors, but suppressed for runtime
	// errors (via cmd.SilenceUsage in each command)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig resolves the configuration file and applies the flags that
// were set on cmd
func loadConfig(cmd *cobra.Command) (*config.ReloadableConfig, error) {
	flags := config.CLIFlags{
		ConfigFileSet: cmd.Flags().Changed("config"),
		ConfigFile:    configFile,
		Server:        serverFlag,
		ServerSet:     cmd.Flags().Changed("server"),
		View:          viewFlag,
		ViewSet:       cmd.Flags().Changed("view"),
		NoColor:       noColor,
		NoColorSet:    cmd.Flags().Changed("no-color"),
	}

	path := config.FindConfigFile(configFile)
	cfg, err := config.LoadConfig(path, flags)
	if err != nil {
		return nil, err
	}
	if path != "" {
		logging.Info("config_loaded", "path", path)
	}
	return config.NewReloadableConfig(cfg, path, flags), nil
}

// sessionOptions builds connection options from the configuration. The
// secret is only loaded when the file exists.
func sessionOptions(cfg *config.Config) (session.Options, error) {
	timeout, err := cfg.Timeout()
	if err != nil {
		return session.Options{}, err
	}
	opts := session.Options{
		Timeout:    timeout,
		Capability: byte(cfg.Connection.Capability),
	}

	if cfg.SecretFile != "" && config.ConfigFileExists(cfg.SecretFile) {
		key, err := crypto.LoadKeyFromFile(cfg.SecretFile)
		if err != nil {
			return session.Options{}, err
		}
		opts.Decrypter = key
	}
	return opts, nil
}

// signalContext returns a context canceled on SIGINT or SIGTERM
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func runConsole(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true

	rc, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	cfg := rc.Get()

	opts, err := sessionOptions(cfg)
	if err != nil {
		return err
	}
	manager := session.NewManager(opts)

	// Connection settings apply to the next /connect after a reload
	rc.OnReload(func(newCfg *config.Config) {
		newOpts, err := sessionOptions(newCfg)
		if err != nil {
			logging.Warn("session_options_not_reloaded", "error", err)
			return
		}
		manager.SetOptions(newOpts)
	})

	if rc.GetPath() != "" {
		watcher, err := config.WatchConfig(rc)
		if err != nil {
			logging.Warn("config_watch_failed", "path", rc.GetPath(), "error", err)
		} else {
			defer watcher.Stop()
		}
	}

	ui := console.NewUI(os.Stdout, cfg.Display.NoColor)
	consoleOpts := console.Options{
		Config:    rc,
		Manager:   manager,
		Out:       os.Stdout,
		Version:   version,
		PrefsPath: config.GetPreferencesPath(),
	}
	if cmd.Flags().Changed("view") {
		consoleOpts.View = viewFlag
	}
	if console.IsTerminal() {
		consoleOpts.PromptPassword = ui.PromptForPassword
	}

	c, err := console.New(consoleOpts)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	if server := c.StartupServer(); server != "" {
		if err := c.Connect(ctx, server); err != nil {
			ui.PrintError(err.Error())
		}
	}

	return c.Run(ctx)
}
