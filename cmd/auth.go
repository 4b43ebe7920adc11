package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/joescharf/revu/internal/client"
	"github.com/joescharf/revu/internal/output"
)

var (
	authUsername string
	authEmail    string
	authPassword string
)

// passwordInput is where a password is read from when --password is unset.
var passwordInput io.Reader = os.Stdin

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Register, log in, and log out",
	Long: `Manage your account on the review backend.

While logged in, new reviews are also saved to the server and session
commands read the server history instead of the local one.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return whoamiRun(cmdContext(cmd))
	},
}

var authRegisterCmd = &cobra.Command{
	Use:   "register",
	Short: "Create an account",
	RunE: func(cmd *cobra.Command, args []string) error {
		return registerRun(cmdContext(cmd))
	},
}

var authLoginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in and remember the token",
	Long: `Log in with username and password. Without --password the password is
read from the first line of stdin.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return loginRun(cmdContext(cmd))
	},
}

var authLogoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the stored token",
	RunE: func(cmd *cobra.Command, args []string) error {
		return logoutRun(cmdContext(cmd))
	},
}

var authWhoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the logged-in user",
	RunE: func(cmd *cobra.Command, args []string) error {
		return whoamiRun(cmdContext(cmd))
	},
}

func init() {
	authRegisterCmd.Flags().StringVar(&authUsername, "username", "", "Username (required)")
	authRegisterCmd.Flags().StringVar(&authEmail, "email", "", "Email address (required)")
	authRegisterCmd.Flags().StringVar(&authPassword, "password", "", "Password (default: read from stdin)")
	_ = authRegisterCmd.MarkFlagRequired("username")
	_ = authRegisterCmd.MarkFlagRequired("email")

	authLoginCmd.Flags().StringVar(&authUsername, "username", "", "Username (required)")
	authLoginCmd.Flags().StringVar(&authPassword, "password", "", "Password (default: read from stdin)")
	_ = authLoginCmd.MarkFlagRequired("username")

	authCmd.AddCommand(authRegisterCmd)
	authCmd.AddCommand(authLoginCmd)
	authCmd.AddCommand(authLogoutCmd)
	authCmd.AddCommand(authWhoamiCmd)
	rootCmd.AddCommand(authCmd)
}

func readPassword() (string, error) {
	if authPassword != "" {
		return authPassword, nil
	}
	line, err := bufio.NewReader(passwordInput).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read password: %w", err)
	}
	pw := strings.TrimRight(line, "\r\n")
	if pw == "" {
		return "", fmt.Errorf("password is required (use --password or pipe it on stdin)")
	}
	return pw, nil
}

func registerRun(ctx context.Context) error {
	pw, err := readPassword()
	if err != nil {
		return err
	}
	s, err := getServices(ctx)
	if err != nil {
		return err
	}

	if dryRun {
		ui.DryRunMsg("Would register user %s <%s>", authUsername, authEmail)
		return nil
	}

	resp, err := s.client.Register(ctx, client.RegisterRequest{Username: authUsername, Email: authEmail, Password: pw})
	if err != nil {
		return fmt.Errorf("server not reachable or registration failed: %w", err)
	}
	if resp.UserID == nil {
		detail := string(resp.Detail)
		if detail == "" {
			detail = "failed to register"
		}
		return errors.New(detail)
	}

	ui.Success("Account created (user id %d). Log in with: revu auth login --username %s", *resp.UserID, authUsername)
	return nil
}

func loginRun(ctx context.Context) error {
	pw, err := readPassword()
	if err != nil {
		return err
	}
	s, err := getServices(ctx)
	if err != nil {
		return err
	}
	if dryRun {
		ui.DryRunMsg("Would log in as %s and store the token", authUsername)
		return nil
	}

	resp, err := s.client.LoginUser(ctx, client.LoginRequest{Username: authUsername, Password: pw})
	if err != nil {
		return fmt.Errorf("server not reachable or invalid credentials: %w", err)
	}
	if resp.AccessToken == "" {
		detail := string(resp.Detail)
		if detail == "" {
			detail = "invalid credentials"
		}
		return errors.New(detail)
	}

	if err := s.auth.Login(ctx, resp.AccessToken); err != nil {
		return fmt.Errorf("login: %w", err)
	}
	user := s.auth.State().User
	ui.Success("Logged in as %s", output.Cyan(user.Username))
	return nil
}

func logoutRun(ctx context.Context) error {
	s, err := getServices(ctx)
	if err != nil {
		return err
	}
	if dryRun {
		ui.DryRunMsg("Would log out and forget the stored token")
		return nil
	}
	s.auth.Logout()
	ui.Success("Logged out")
	return nil
}

func whoamiRun(ctx context.Context) error {
	s, err := getServices(ctx)
	if err != nil {
		return err
	}
	st := s.auth.State()
	if !st.LoggedIn() {
		ui.Info("Not logged in. Reviews are stored locally only.")
		return nil
	}
	fmt.Fprintf(ui.Out, "%s (%s), user id %d\n", output.Cyan(st.User.Username), st.User.Email, st.User.ID)
	return nil
}
