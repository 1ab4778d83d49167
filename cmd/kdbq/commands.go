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
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"kdb-q-console/internal/config"
	"kdb-q-console/internal/console"
	"kdb-q-console/internal/crypto"
	"kdb-q-console/internal/kdb"
	"kdb-q-console/internal/render"
	"kdb-q-console/internal/servers"
	"kdb-q-console/internal/session"
)

// errQueryFailed is returned after a query error has been printed
var errQueryFailed = errors.New("query failed")

var queryCmd = &cobra.Command{
	Use:   "query [q expression]",
	Short: "Evaluate one q expression and print the result",
	Long: `Evaluate one q expression on a server and print the result in the
selected view. The expression is read from standard input when no
argument is given.`,
	RunE: runQuery,
}

var serversCmd = &cobra.Command{
	Use:   "servers",
	Short: "List configured servers",
	Args:  cobra.NoArgs,
	RunE:  runServers,
}

var namespacesCmd = &cobra.Command{
	Use:   "namespaces",
	Short: "List the namespaces and globals of a server",
	Args:  cobra.NoArgs,
	RunE:  runNamespaces,
}

var (
	keygenForce bool
)

var keygenCmd = &cobra.Command{
	Use:   "keygen",
	Short: "Create the secret file used to encrypt stored passwords",
	Args:  cobra.NoArgs,
	RunE:  runKeygen,
}

var encryptCmd = &cobra.Command{
	Use:   "encrypt [password]",
	Short: "Encrypt a password for use in a connection string",
	Long: `Encrypt a password with the secret file and print it as an enc: value
to use in place of the password of a configured connection string. The
password is prompted for when no argument is given.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runEncrypt,
}

func init() {
	keygenCmd.Flags().BoolVarP(&keygenForce, "force", "f", false,
		"Overwrite an existing secret file")
}

// openSession connects to the server named by --server or the configured
// default
func openSession(ctx context.Context, cfg *config.Config) (*session.Session, error) {
	key := cfg.DefaultServer
	if key == "" {
		return nil, fmt.Errorf("no server given (use --server or set default_server)")
	}

	server, ok := servers.Select(cfg.ServerList(), key)
	if !ok {
		var err error
		if server, err = servers.Parse(key); err != nil {
			return nil, err
		}
	}

	opts, err := sessionOptions(cfg)
	if err != nil {
		return nil, err
	}
	return session.Open(ctx, server, opts)
}

func readQuery(args []string, stdin io.Reader) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	data, err := io.ReadAll(stdin)
	if err != nil {
		return "", fmt.Errorf("failed to read query: %w", err)
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return "", fmt.Errorf("no query given")
	}
	return text, nil
}

func runQuery(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true

	rc, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	cfg := rc.Get()

	text, err := readQuery(args, cmd.InOrStdin())
	if err != nil {
		return err
	}
	view, err := render.ParseView(cfg.Display.View)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	s, err := openSession(ctx, cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	exec, err := s.Execute(ctx, text)
	if err != nil {
		return err
	}

	res := kdb.Classify(exec.Envelope)
	out, err := render.Render(view, text, res, render.Options{
		Separator:     cfg.Display.ColumnSeparator,
		MaxRows:       cfg.Display.MaxRows,
		NoColor:       cfg.Display.NoColor || !console.IsTerminal(),
		MarkdownStyle: cfg.Display.MarkdownStyle,
		Width:         console.TerminalWidth(),
	})
	if err != nil {
		return err
	}

	console.NewUI(cmd.OutOrStdout(), true).PrintResult(out)
	if res.Kind() == kdb.KindError {
		return errQueryFailed
	}
	return nil
}

func runServers(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true

	rc, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	cfg := rc.Get()

	list := cfg.ServerList()
	if len(list) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No servers configured")
		return nil
	}
	return servers.RenderTree(cmd.OutOrStdout(), servers.BuildTree(list, cfg.GroupMode()))
}

func runNamespaces(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true

	rc, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	s, err := openSession(ctx, rc.Get())
	if err != nil {
		return err
	}
	defer s.Close()

	tree, err := s.Namespaces(ctx, false)
	if err != nil {
		return err
	}
	return tree.Render(cmd.OutOrStdout())
}

func runKeygen(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true

	rc, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	path := rc.Get().SecretFile

	if config.ConfigFileExists(path) && !keygenForce {
		return fmt.Errorf("secret file %s already exists (use --force to replace it; existing enc: passwords become unreadable)", path)
	}

	key, err := crypto.GenerateKey()
	if err != nil {
		return err
	}
	if err := key.SaveToFile(path); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Secret written to %s\n", path)
	return nil
}

func runEncrypt(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true

	rc, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	key, err := crypto.LoadKeyFromFile(rc.Get().SecretFile)
	if err != nil {
		return fmt.Errorf("%w (create one with kdbq keygen)", err)
	}

	var password string
	if len(args) > 0 {
		password = args[0]
	} else if console.IsTerminal() {
		ctx, cancel := signalContext()
		defer cancel()
		if password, err = console.NewUI(os.Stderr, false).PromptForPassword(ctx, "connection"); err != nil {
			return err
		}
	} else {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("failed to read password: %w", err)
		}
		password = strings.TrimRight(string(data), "\r\n")
	}
	if password == "" {
		return fmt.Errorf("password is empty")
	}

	encrypted, err := key.Encrypt(password)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), servers.EncryptedPrefix+encrypted)
	return nil
}
