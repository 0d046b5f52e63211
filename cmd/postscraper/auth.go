package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"postscraper/pkg/auth"
	"postscraper/pkg/config"
	"postscraper/pkg/ui"
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage stored auth tokens",
	Long: `Manage the session tokens postscraper sets as a cookie in each browser.

Tokens are kept in the system keychain when available, otherwise in an
encrypted file under the postscraper config directory. POSTSCRAPER_AUTH_TOKEN
is always honoured and never written anywhere.`,
}

var loginCmd = &cobra.Command{
	Use:   "login [name]",
	Short: "Store a token under a name (default \"default\")",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runLogin,
}

var logoutCmd = &cobra.Command{
	Use:   "logout <name>",
	Short: "Remove a stored token",
	Args:  cobra.ExactArgs(1),
	RunE:  runLogout,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored tokens with their values masked",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

var guideCmd = &cobra.Command{
	Use:   "guide",
	Short: "Explain how to copy the token out of a browser",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := config.DefaultConfig()
		auth.WriteTokenGuide(os.Stdout, cfg.Auth.CookieName, cfg.Auth.CookieDomain)
	},
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(loginCmd, logoutCmd, listCmd, guideCmd)
}

func runLogin(cmd *cobra.Command, args []string) error {
	name := auth.DefaultAccount
	if len(args) > 0 {
		name = strings.TrimSpace(args[0])
	}

	manager, err := auth.NewManager()
	if err != nil {
		return fmt.Errorf("failed to open token store: %w", err)
	}
	if _, err := manager.Retrieve(name); err == nil {
		ui.PrintWarning("A token named " + name + " exists and will be replaced")
	}

	cfg := config.DefaultConfig()
	auth.WriteTokenGuide(os.Stderr, cfg.Auth.CookieName, cfg.Auth.CookieDomain)
	fmt.Fprint(os.Stderr, "\nToken: ")
	token, err := readSecret()
	if err != nil {
		return fmt.Errorf("failed to read token: %w", err)
	}
	if token == "" {
		return errors.New("no token entered")
	}

	if err := manager.Store(&auth.Account{Name: name, Token: token, LastModified: time.Now()}); err != nil {
		return err
	}
	ui.PrintSuccess("Stored token " + name)
	return nil
}

func runLogout(cmd *cobra.Command, args []string) error {
	manager, err := auth.NewManager()
	if err != nil {
		return fmt.Errorf("failed to open token store: %w", err)
	}
	if err := manager.Delete(args[0]); err != nil {
		return err
	}
	ui.PrintSuccess("Removed token " + args[0])
	return nil
}

func runList(cmd *cobra.Command, args []string) error {
	manager, err := auth.NewManager()
	if err != nil {
		return fmt.Errorf("failed to open token store: %w", err)
	}
	accounts, err := manager.List()
	if err != nil {
		return err
	}
	if len(accounts) == 0 {
		ui.PrintWarning("No stored tokens. Run 'postscraper auth login'.")
		return nil
	}
	for _, acc := range accounts {
		m := auth.Masked(acc)
		fmt.Printf("%-16s %-14s %s\n", m.Name, m.Token, m.LastModified.Format(time.RFC3339))
	}
	return nil
}

// readSecret reads a line without echo when stdin is a terminal
func readSecret() (string, error) {
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		b, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(b)), nil
	}

	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
