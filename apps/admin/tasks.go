package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var nowFunc = time.Now // mockable

func (cli *commandLine) tasksCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tasks",
		Short: "Manage follow-up tasks",
		RunE:  helpRunE,
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "sweep",
		Short: "Mark open tasks past their due date as overdue",
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := cli.taskSvc.MarkOverdue(cmd.Context(), nowFunc())
			if err != nil {
				return err
			}
			fmt.Fprintln(cli.out, successStyle.Render(fmt.Sprintf("%d task(s) marked overdue.", n)))
			return nil
		},
	})
	return cmd
}
