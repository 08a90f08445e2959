// Package cli is the presentation layer: cobra commands and the board TUI.
// It owns no data; everything it renders comes from the session and project
// stores, and every mutation goes back through them.
package cli

import (
	"context"
	"fmt"

	"github.com/pzaremba/sprintdesk/internal/session"
	"github.com/pzaremba/sprintdesk/internal/store"
	"github.com/spf13/cobra"
)

// App holds the core stores the commands operate on.
type App struct {
	Session *session.Store
	Store   *store.Store

	// IsInteractive reports whether stdin is a terminal; forms and the
	// board TUI are only offered on a tty.
	IsInteractive func() bool
}

func (a *App) interactive() bool {
	return a.IsInteractive != nil && a.IsInteractive()
}

// requireSession fails fast when the caller is not authenticated.
func (a *App) requireSession() error {
	if a.Session.Phase() != session.PhaseAuthenticated {
		return fmt.Errorf("not logged in (run 'sprintdesk login')")
	}
	return nil
}

// syncStore brings the project store up to date before a read-only command
// renders it.
func (a *App) syncStore(ctx context.Context) error {
	if err := a.requireSession(); err != nil {
		return err
	}
	return a.Store.Sync(ctx)
}

// NewRootCmd creates the top-level "sprintdesk" command and registers all
// subcommands against the provided App.
func NewRootCmd(app *App) *cobra.Command {
	root := &cobra.Command{
		Use:           "sprintdesk",
		Short:         "Terminal client for the sprintdesk backlog backend",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	root.AddCommand(
		newLoginCmd(app),
		newSignupCmd(app),
		newLogoutCmd(app),
		newWhoamiCmd(app),
		newProjectCmd(app),
		newEpicCmd(app),
		newSprintCmd(app),
		newItemCmd(app),
		newBoardCmd(app),
	)

	return root
}
