package cli

import (
	"fmt"
	"strings"

	"github.com/pzaremba/sprintdesk/internal/cli/formatter"
	"github.com/pzaremba/sprintdesk/internal/domain"
	"github.com/spf13/cobra"
)

func newEpicCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "epic",
		Short: "Manage epics of the active project",
	}
	cmd.AddCommand(
		newEpicListCmd(app),
		newEpicAddCmd(app),
		newEpicRmCmd(app),
	)
	return cmd
}

func newEpicListCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List epics of the active project",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.syncStore(cmd.Context()); err != nil {
				return err
			}
			if app.Store.Current() == nil {
				return fmt.Errorf("no project selected")
			}
			epics, _ := app.Store.Epics()
			if len(epics) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), formatter.StyleDim.Render("No epics yet."))
				return nil
			}

			rows := make([][]string, 0, len(epics))
			for _, e := range epics {
				rows = append(rows, []string{formatter.ShortID(e.ID), e.Name, e.Description})
			}
			fmt.Fprintln(cmd.OutOrStdout(), formatter.RenderTable(
				[]string{"ID", "Name", "Description"}, rows))
			return nil
		},
	}
}

func newEpicAddCmd(app *App) *cobra.Command {
	var description string

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Create an epic in the active project",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.syncStore(cmd.Context()); err != nil {
				return err
			}
			e := &domain.Epic{Name: strings.Join(args, " "), Description: description}
			if err := app.Store.CreateEpic(cmd.Context(), e); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created epic %s.\n", formatter.StyleGreen.Render(e.Name))
			return nil
		},
	}

	cmd.Flags().StringVarP(&description, "description", "d", "", "epic description")
	return cmd
}

func newEpicRmCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <id>",
		Short: "Delete an epic",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.syncStore(cmd.Context()); err != nil {
				return err
			}
			if err := app.Store.DeleteEpic(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted epic %s.\n", formatter.ShortID(args[0]))
			return nil
		},
	}
}
