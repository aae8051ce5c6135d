package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"workflow/internal/models"
	"workflow/internal/task"
)

func newTasksCommand(opts *rootOptions) *cobra.Command {
	var status, query, projectID string
	cmd := &cobra.Command{
		Use:   "tasks",
		Short: "List the tasks visible to the signed-in account",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, _, _, err := opts.open(ctx, cmd.ErrOrStderr(), true)
			if err != nil {
				return err
			}
			defer a.Close()
			user, err := currentUser(ctx, a)
			if err != nil {
				return err
			}
			tasks, err := a.Services.Tasks.List(ctx, user, task.Filter{
				Status:    models.TaskStatus(status),
				Query:     query,
				ProjectID: projectID,
			})
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tTITLE\tSTATUS\tPROGRESS\tDEADLINE")
			for _, t := range tasks {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d%%\t%s\n", t.ID, t.Title, t.Status, t.Progress, t.Deadline.Format("2006-01-02"))
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "only tasks in this status")
	cmd.Flags().StringVarP(&query, "query", "q", "", "case-insensitive title filter")
	cmd.Flags().StringVar(&projectID, "project", "", "only tasks of this project")
	return cmd
}
