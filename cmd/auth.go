package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"

	"github.com/khanhnv2901/seca-suite/internal/application"
	gateapp "github.com/khanhnv2901/seca-suite/internal/application/gate"
	"github.com/khanhnv2901/seca-suite/internal/domain/session"
	"github.com/khanhnv2901/seca-suite/internal/infrastructure/auth"
)

const passwordEnvVar = "SECA_PASSWORD"

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Log in, log out and inspect the session gate",
}

var authLoginCmd = &cobra.Command{
	Use:   "login",
	Short: "Open a session (password from --password or SECA_PASSWORD)",
	RunE: func(cmd *cobra.Command, args []string) error {
		appCtx := getAppContext(cmd)
		username, _ := cmd.Flags().GetString("username")
		password, _ := cmd.Flags().GetString("password")
		if password == "" {
			password = os.Getenv(passwordEnvVar)
		}

		c, err := appCtx.Container(commandContext(cmd))
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		sess, err := c.GateService.CheckCredentials(commandContext(cmd), username, password)
		if err != nil {
			var invalid *session.InvalidCredentialsError
			var locked *session.LockedError
			switch {
			case errors.As(err, &locked):
				fmt.Fprintf(out, "%s Too many failed attempts. Try again in %s\n", colorError("✗"), locked.Remaining.Round(time.Second))
			case errors.As(err, &invalid):
				fmt.Fprintf(out, "%s Invalid credentials. %d attempt(s) remaining\n", colorError("✗"), invalid.AttemptsRemaining)
			}
			return err
		}

		fmt.Fprintf(out, "%s Logged in as %s (role %s)\n", colorSuccess("✓"), sess.Username(), sess.Role())
		fmt.Fprintf(out, "%s Session expires %s\n", colorInfo("→"), sess.ExpiresAt().Local().Format(time.RFC1123))
		return nil
	},
}

var authLogoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Discard the stored session",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := getAppContext(cmd).Container(commandContext(cmd))
		if err != nil {
			return err
		}
		if err := c.GateService.Logout(commandContext(cmd)); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s Logged out\n", colorSuccess("✓"))
		return nil
	},
}

var authStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the current session and lockout state",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := getAppContext(cmd).Container(commandContext(cmd))
		if err != nil {
			return err
		}
		status, err := c.GateService.Status(commandContext(cmd))
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		asJSON, _ := cmd.Flags().GetBool("json")
		if asJSON {
			return encodeJSON(out, status)
		}
		printGateStatus(cmd, status)
		return nil
	},
}

var authHashPasswordCmd = &cobra.Command{
	Use:   "hash-password [password]",
	Short: "Print a bcrypt hash for gate.users[].password_hash",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		password := os.Getenv(passwordEnvVar)
		if len(args) == 1 {
			password = args[0]
		}
		if strings.TrimSpace(password) == "" {
			return fmt.Errorf("password is required (argument or %s)", passwordEnvVar)
		}

		cost, _ := cmd.Flags().GetInt("cost")
		hash, err := auth.HashPassword(password, cost)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), hash)
		return nil
	},
}

// currentSession returns the stored session or a NotAuthenticatedError
func currentSession(cmd *cobra.Command, c *application.Container, action string) (*session.Session, error) {
	sess, err := c.GateService.RestoreSession(commandContext(cmd))
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, &NotAuthenticatedError{Action: action}
	}
	return sess, nil
}

func printGateStatus(cmd *cobra.Command, status *gateapp.Status) {
	out := cmd.OutOrStdout()
	if status.Authenticated && status.Session != nil {
		fmt.Fprintf(out, "Session:  %s as %s (%s), expires %s\n",
			colorSuccess("active"), status.Session.Username, status.Session.Role,
			status.Session.ExpiresAt.Local().Format(time.RFC1123))
	} else {
		fmt.Fprintf(out, "Session:  %s\n", colorWarn("none"))
	}

	if status.Locked {
		remaining := time.Duration(status.RemainingMS) * time.Millisecond
		fmt.Fprintf(out, "Gate:     %s for %s\n", colorError("locked"), remaining.Round(time.Second))
		return
	}
	fmt.Fprintf(out, "Gate:     open, %d failed attempt(s), %d remaining\n", status.Failures, status.AttemptsRemaining)
}

func init() {
	authLoginCmd.Flags().StringP("username", "u", "", "gate username")
	authLoginCmd.Flags().StringP("password", "p", "", "gate password (prefer "+passwordEnvVar+")")
	authStatusCmd.Flags().Bool("json", false, "print status as JSON")
	authHashPasswordCmd.Flags().Int("cost", bcrypt.DefaultCost, "bcrypt cost")

	authCmd.AddCommand(authLoginCmd)
	authCmd.AddCommand(authLogoutCmd)
	authCmd.AddCommand(authStatusCmd)
	authCmd.AddCommand(authHashPasswordCmd)
}
