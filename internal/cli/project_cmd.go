package cli

import (
	"fmt"
	"strings"

	"github.com/pzaremba/sprintdesk/internal/cli/formatter"
	"github.com/pzaremba/sprintdesk/internal/domain"
	"github.com/spf13/cobra"
)

func newProjectCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "project",
		Short: "List, select, and manage projects",
	}
	cmd.AddCommand(
		newProjectListCmd(app),
		newProjectSelectCmd(app),
		newProjectAddCmd(app),
		newProjectRmCmd(app),
	)
	return cmd
}

func newProjectListCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all projects",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.syncStore(cmd.Context()); err != nil {
				return err
			}
			projects, _ := app.Store.Projects()
			if len(projects) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), formatter.StyleDim.Render("No projects yet."))
				return nil
			}

			current := app.Store.Current()
			rows := make([][]string, 0, len(projects))
			for _, p := range projects {
				marker := " "
				if current != nil && current.ID == p.ID {
					marker = formatter.StyleGreen.Render("*")
				}
				rows = append(rows, []string{marker, formatter.ShortID(p.ID), p.Name, p.Description})
			}
			fmt.Fprintln(cmd.OutOrStdout(), formatter.RenderTable(
				[]string{"", "ID", "Name", "Description"}, rows))
			return nil
		},
	}
}

func newProjectSelectCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "select <id>",
		Short: "Make a project the active one",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.syncStore(cmd.Context()); err != nil {
				return err
			}
			if err := app.Store.Select(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Selected project %s.\n",
				formatter.StyleGreen.Render(app.Store.Current().Name))
			return nil
		},
	}
}

func newProjectAddCmd(app *App) *cobra.Command {
	var description string

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Create a project",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.syncStore(cmd.Context()); err != nil {
				return err
			}
			p := &domain.Project{Name: strings.Join(args, " "), Description: description}
			if err := app.Store.CreateProject(cmd.Context(), p); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created project %s.\n", formatter.StyleGreen.Render(p.Name))
			return nil
		},
	}

	cmd.Flags().StringVarP(&description, "description", "d", "", "project description")
	return cmd
}

func newProjectRmCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <id>",
		Short: "Delete a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.syncStore(cmd.Context()); err != nil {
				return err
			}
			if err := app.Store.DeleteProject(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted project %s.\n", formatter.ShortID(args[0]))
			return nil
		},
	}
}
