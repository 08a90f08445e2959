package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/pzaremba/sprintdesk/internal/api"
	"github.com/pzaremba/sprintdesk/internal/cli"
	"github.com/pzaremba/sprintdesk/internal/session"
	"github.com/pzaremba/sprintdesk/internal/state"
	"github.com/pzaremba/sprintdesk/internal/store"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Determine state path: env var or default ~/.sprintdesk/state.db
	statePath := os.Getenv("SPRINTDESK_STATE")
	if statePath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("finding home directory: %w", err)
		}
		statePath = filepath.Join(home, ".sprintdesk", "state.db")
	}

	st, err := state.Open(statePath)
	if err != nil {
		return fmt.Errorf("opening state store: %w", err)
	}
	defer st.Close()

	cfg := api.LoadConfig()
	var observer api.Observer = api.NoopObserver{}
	if cfg.LogCalls {
		observer = api.NewLogObserver(os.Stderr)
	}
	client := api.NewClient(cfg, observer)

	sess := session.New(client, st, time.Duration(cfg.RefreshEveryMin)*time.Minute)
	projects := store.New(client, sess, st)

	// Restore any persisted session before the command runs. Garbage tokens
	// are purged here and the command simply sees an anonymous session.
	if err := sess.Hydrate(context.Background()); err != nil {
		return fmt.Errorf("restoring session: %w", err)
	}

	app := &cli.App{
		Session: sess,
		Store:   projects,
	}
	app.IsInteractive = func() bool {
		return isatty.IsTerminal(os.Stdin.Fd()) || isatty.IsCygwinTerminal(os.Stdin.Fd())
	}

	return cli.NewRootCmd(app).Execute()
}
