package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/parallelvirtualcluster/pvc/pkg/types"
)

var taskCmd = &cobra.Command{
	Use:   "task",
	Short: "Inspect dispatched tasks",
}

func init() {
	taskCmd.AddCommand(taskListCmd, taskGetCmd)
}

var taskListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tasks",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var tasks []types.Task
		if err := newAPIClient(cmd).get("/api/v1/tasks", &tasks); err != nil {
			return err
		}
		tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tNAME\tRUN_ON\tSTATE")
		for _, t := range tasks {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", t.ID, t.Name, t.RoutingKey, t.State)
		}
		return tw.Flush()
	},
}

var taskGetCmd = &cobra.Command{
	Use:   "get ID",
	Short: "Show a task's current progress",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var resp map[string]any
		if err := newAPIClient(cmd).get("/api/v1/tasks/"+args[0], &resp); err != nil {
			return err
		}
		fmt.Printf("state:   %v\n", resp["state"])
		fmt.Printf("status:  %v\n", resp["status"])
		fmt.Printf("progress: %v/%v\n", resp["current"], resp["total"])
		if result, ok := resp["result"]; ok {
			fmt.Printf("result:  %v\n", result)
		}
		return nil
	},
}
