package cli

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/pzaremba/sprintdesk/internal/api"
	"github.com/pzaremba/sprintdesk/internal/cli/formatter"
	"github.com/pzaremba/sprintdesk/internal/domain"
	"github.com/spf13/cobra"
)

func newLoginCmd(app *App) *cobra.Command {
	var creds domain.Credentials

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Authenticate against the backend and start a session",
		RunE: func(cmd *cobra.Command, args []string) error {
			if (creds.Email == "" || creds.Password == "") && app.interactive() {
				if err := loginForm(&creds).Run(); err != nil {
					return err
				}
			}
			if creds.Email == "" || creds.Password == "" {
				return fmt.Errorf("email and password are required (use --email/--password or run interactively)")
			}

			err := app.Session.Login(cmd.Context(), creds)
			if errors.Is(err, api.ErrInvalidCredentials) {
				// Deliberately vague: never reveal which part was wrong.
				fmt.Fprintln(cmd.OutOrStdout(), formatter.StyleRed.Render("Incorrect credentials."))
				return nil
			}
			if err != nil {
				return err
			}

			greeting := creds.Email
			if err := app.Session.FetchProfile(cmd.Context()); err == nil {
				if p := app.Session.Profile(); p.FirstName != "" {
					greeting = p.FirstName
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s.\n", formatter.StyleGreen.Render(greeting))
			return nil
		},
	}

	cmd.Flags().StringVar(&creds.Email, "email", "", "account email")
	cmd.Flags().StringVar(&creds.Password, "password", "", "account password")
	return cmd
}

func newSignupCmd(app *App) *cobra.Command {
	var reg domain.Registration

	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create a new account (does not log you in)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if reg.Email == "" && app.interactive() {
				if err := signupForm(&reg).Run(); err != nil {
					return err
				}
			}
			if reg.Email == "" || reg.Password == "" {
				return fmt.Errorf("email and password are required")
			}

			err := app.Session.Signup(cmd.Context(), reg)
			var fieldErrs api.ValidationErrors
			if errors.As(err, &fieldErrs) {
				printFieldErrors(cmd, fieldErrs)
				return fmt.Errorf("signup rejected")
			}
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), "Account created. Run 'sprintdesk login' to sign in.")
			return nil
		},
	}

	cmd.Flags().StringVar(&reg.FirstName, "first-name", "", "first name")
	cmd.Flags().StringVar(&reg.LastName, "last-name", "", "last name")
	cmd.Flags().StringVar(&reg.Email, "email", "", "account email")
	cmd.Flags().StringVar(&reg.Password, "password", "", "account password")
	return cmd
}

// printFieldErrors renders backend validation errors grouped by form field.
func printFieldErrors(cmd *cobra.Command, errs api.ValidationErrors) {
	fields := make([]string, 0, len(errs))
	for f := range errs {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	for _, f := range fields {
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n",
			formatter.StyleRed.Render(f+":"),
			strings.Join(errs[f], "; "))
	}
}

func newLogoutCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the session and forget stored tokens",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.Session.Logout(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out.")
			return nil
		},
	}
}

func newWhoamiCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the profile of the signed-in user",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.requireSession(); err != nil {
				return err
			}
			if err := app.Session.FetchProfile(cmd.Context()); err != nil {
				return err
			}
			p := app.Session.Profile()
			fmt.Fprintln(cmd.OutOrStdout(), formatter.Header("Profile"))
			fmt.Fprintf(cmd.OutOrStdout(), "Name:  %s %s\n", p.FirstName, p.LastName)
			fmt.Fprintf(cmd.OutOrStdout(), "Email: %s\n", p.Email)
			if id := app.Session.Identity(); id != nil && !id.ExpiresAt.IsZero() {
				fmt.Fprintf(cmd.OutOrStdout(), "Token: %s\n",
					formatter.StyleDim.Render("expires "+id.ExpiresAt.Format("2006-01-02 15:04")))
			}
			return nil
		},
	}
}
