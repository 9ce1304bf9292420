package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"lingocast/internal/app"
	"lingocast/internal/services/backend"
)

func newLoginCommand(ctx *commandContext) *cobra.Command {
	var email string
	var password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in to the podcast service",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd, func(runCtx context.Context, a *app.App) error {
				out := cmd.OutOrStdout()
				route, err := a.Router.Enter(runCtx, app.PathLogin)
				if err != nil {
					return err
				}
				if route.Name == app.RouteDashboard {
					user, _ := a.Session.User(runCtx)
					fmt.Fprintf(out, "Already logged in as %s\n", displayName(user))
					return nil
				}
				if from, ok := app.ForcedLogoutFrom(runCtx, a.Store); ok && from != "" && from != app.PathLogin {
					fmt.Fprintf(cmd.ErrOrStderr(), "Your session expired while on %s. Please log in again.\n", from)
				}

				reader := bufio.NewReader(cmd.InOrStdin())
				if strings.TrimSpace(email) == "" {
					email, err = prompt(reader, out, "Email: ")
					if err != nil {
						return err
					}
				}
				if password == "" {
					password, err = promptPassword(reader, cmd.InOrStdin(), out)
					if err != nil {
						return err
					}
				}

				if _, err := a.Session.Login(runCtx, backend.Credentials{Email: strings.TrimSpace(email), Password: password}); err != nil {
					return err
				}
				if err := a.Router.Navigate(runCtx, app.PathDashboard); err != nil {
					return err
				}
				user, _ := a.Session.User(runCtx)
				if ctx.jsonOutput() {
					return writeJSON(cmd, user)
				}
				fmt.Fprintf(out, "Logged in as %s\n", displayName(user))
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&email, "email", "e", "", "Account email")
	cmd.Flags().StringVar(&password, "password", "", "Account password (prompted when omitted)")
	return cmd
}

func newLogoutCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and clear the local session",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd, func(runCtx context.Context, a *app.App) error {
				if !a.Session.IsAuthenticated(runCtx) {
					fmt.Fprintln(cmd.OutOrStdout(), "Not logged in")
					return nil
				}
				if err := a.Session.Logout(runCtx); err != nil {
					return err
				}
				if err := a.Router.Navigate(runCtx, app.PathLogin); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
				return nil
			})
		},
	}
}

func newProfileCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "profile",
		Short: "Show the signed-in user",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRoute(cmd, app.PathProfile, func(runCtx context.Context, a *app.App, _ app.Route) error {
				user, ok := a.Session.User(runCtx)
				if !ok {
					return errors.New("no user profile stored; log in again to refresh it")
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, user)
				}
				rows := [][]string{
					{"Name", displayName(user)},
					{"Email", user.Email},
					{"ID", user.ID.String()},
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Field", "Value"}, rows, nil))
				return nil
			})
		},
	}
}

func displayName(user backend.User) string {
	if name := strings.TrimSpace(user.Name); name != "" {
		return name
	}
	if email := strings.TrimSpace(user.Email); email != "" {
		return email
	}
	return "unknown user"
}

func prompt(reader *bufio.Reader, out io.Writer, label string) (string, error) {
	fmt.Fprint(out, label)
	line, err := reader.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", fmt.Errorf("read %s: %w", strings.TrimSuffix(strings.ToLower(label), ": "), err)
	}
	return strings.TrimSpace(line), nil
}

// promptPassword reads without echo on a terminal and falls back to a plain
// line read otherwise.
func promptPassword(reader *bufio.Reader, in io.Reader, out io.Writer) (string, error) {
	if file, ok := in.(*os.File); ok && term.IsTerminal(int(file.Fd())) {
		fmt.Fprint(out, "Password: ")
		secret, err := term.ReadPassword(int(file.Fd()))
		fmt.Fprintln(out)
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		return string(secret), nil
	}
	line, err := prompt(reader, out, "Password: ")
	if err != nil {
		return "", err
	}
	return line, nil
}
