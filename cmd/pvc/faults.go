package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/parallelvirtualcluster/pvc/pkg/types"
)

var faultCmd = &cobra.Command{
	Use:   "fault",
	Short: "Inspect and acknowledge cluster faults",
}

func init() {
	faultCmd.AddCommand(faultListCmd, faultGetCmd, faultAckCmd, faultDeleteCmd)
}

var faultListCmd = &cobra.Command{
	Use:   "list",
	Short: "List faults, most recently reported first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var faults []types.Fault
		if err := newAPIClient(cmd).get("/api/v1/faults", &faults); err != nil {
			return err
		}
		tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tSTATUS\tSUBJECT\tDELTA\tMESSAGE")
		for _, f := range faults {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n", f.ID, f.Status, f.Subject, f.HealthDelta, f.Message)
		}
		return tw.Flush()
	},
}

var faultGetCmd = &cobra.Command{
	Use:   "get ID",
	Short: "Show a single fault",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var f types.Fault
		if err := newAPIClient(cmd).get("/api/v1/faults/"+args[0], &f); err != nil {
			return err
		}
		fmt.Printf("id:            %s\n", f.ID)
		fmt.Printf("kind:          %s\n", f.Kind)
		fmt.Printf("subject:       %s\n", f.Subject)
		fmt.Printf("status:        %s\n", f.Status)
		fmt.Printf("health_delta:  %d\n", f.HealthDelta)
		fmt.Printf("message:       %s\n", f.Message)
		fmt.Printf("first_reported: %s\n", f.FirstReported)
		fmt.Printf("last_reported:  %s\n", f.LastReported)
		return nil
	},
}

var faultAckCmd = &cobra.Command{
	Use:   "ack ID",
	Short: "Acknowledge a fault",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var f types.Fault
		if err := newAPIClient(cmd).put("/api/v1/faults/"+args[0], nil, &f); err != nil {
			return err
		}
		fmt.Printf("fault %s acknowledged\n", f.ID)
		return nil
	},
}

var faultDeleteCmd = &cobra.Command{
	Use:   "delete ID",
	Short: "Delete a fault record",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := newAPIClient(cmd).delete("/api/v1/faults/" + args[0]); err != nil {
			return err
		}
		fmt.Printf("fault %s deleted\n", args[0])
		return nil
	},
}
