package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/pzaremba/sprintdesk/internal/cli/formatter"
	"github.com/pzaremba/sprintdesk/internal/domain"
	"github.com/spf13/cobra"
)

func newSprintCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sprint",
		Short: "Manage sprints of the active project",
	}
	cmd.AddCommand(
		newSprintListCmd(app),
		newSprintAddCmd(app),
		newSprintRmCmd(app),
	)
	return cmd
}

func newSprintListCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List sprints of the active project",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.syncStore(cmd.Context()); err != nil {
				return err
			}
			if app.Store.Current() == nil {
				return fmt.Errorf("no project selected")
			}
			sprints, _ := app.Store.Sprints()
			if len(sprints) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), formatter.StyleDim.Render("No sprints yet."))
				return nil
			}

			rows := make([][]string, 0, len(sprints))
			for _, sp := range sprints {
				window := sp.StartDate
				if sp.EndDate != "" {
					window += " .. " + sp.EndDate
				}
				rows = append(rows, []string{formatter.ShortID(sp.ID), sp.Name, sp.Goal, window})
			}
			fmt.Fprintln(cmd.OutOrStdout(), formatter.RenderTable(
				[]string{"ID", "Name", "Goal", "Window"}, rows))
			return nil
		},
	}
}

func validateDate(v string) error {
	if v == "" {
		return nil
	}
	if _, err := time.Parse("2006-01-02", v); err != nil {
		return fmt.Errorf("expected YYYY-MM-DD, got %q", v)
	}
	return nil
}

func newSprintAddCmd(app *App) *cobra.Command {
	var goal, start, end string

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Create a sprint in the active project",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateDate(start); err != nil {
				return err
			}
			if err := validateDate(end); err != nil {
				return err
			}
			if err := app.syncStore(cmd.Context()); err != nil {
				return err
			}
			sp := &domain.Sprint{
				Name:      strings.Join(args, " "),
				Goal:      goal,
				StartDate: start,
				EndDate:   end,
			}
			if err := app.Store.CreateSprint(cmd.Context(), sp); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created sprint %s.\n", formatter.StyleGreen.Render(sp.Name))
			return nil
		},
	}

	cmd.Flags().StringVarP(&goal, "goal", "g", "", "sprint goal")
	cmd.Flags().StringVar(&start, "start", "", "start date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&end, "end", "", "end date (YYYY-MM-DD)")
	return cmd
}

func newSprintRmCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <id>",
		Short: "Delete a sprint",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.syncStore(cmd.Context()); err != nil {
				return err
			}
			if err := app.Store.DeleteSprint(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted sprint %s.\n", formatter.ShortID(args[0]))
			return nil
		},
	}
}
