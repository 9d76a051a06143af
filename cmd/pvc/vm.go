package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/parallelvirtualcluster/pvc/pkg/types"
)

var vmCmd = &cobra.Command{
	Use:   "vm",
	Short: "Manage virtual machine domains",
}

func init() {
	vmDefineCmd.Flags().String("xml", "", "path to a libvirt domain XML file (required)")
	vmDefineCmd.Flags().String("node", "", "node to define the domain on (required)")
	vmDefineCmd.Flags().StringSlice("node-limit", nil, "nodes this domain may run on (default: any)")
	vmDefineCmd.Flags().String("node-selector", "", "placement selector: mem, memprov, vcpus, load, vms, or none")
	vmDefineCmd.Flags().Bool("node-autostart", false, "start the domain once, the first time its node comes up ready")
	vmDefineCmd.Flags().String("profile", "", "provisioning profile name")
	_ = vmDefineCmd.MarkFlagRequired("xml")
	_ = vmDefineCmd.MarkFlagRequired("node")

	vmNodeCmd.Flags().String("target-node", "", "destination node (required for move/migrate)")
	vmNodeCmd.Flags().Bool("force", false, "override migration_method=none")
	vmNodeCmd.Flags().Bool("force-live", false, "fail instead of falling back to shutdown+restart when live migration fails")
	vmNodeCmd.Flags().Bool("wait", true, "block until the move completes")

	vmCmd.AddCommand(vmDefineCmd, vmListCmd, vmGetCmd, vmStateCmd, vmNodeCmd, vmLocksCmd)
}

var vmDefineCmd = &cobra.Command{
	Use:   "define NAME",
	Short: "Define a new domain",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		xmlPath, _ := cmd.Flags().GetString("xml")
		node, _ := cmd.Flags().GetString("node")
		nodeLimit, _ := cmd.Flags().GetStringSlice("node-limit")
		selector, _ := cmd.Flags().GetString("node-selector")
		autostart, _ := cmd.Flags().GetBool("node-autostart")
		profile, _ := cmd.Flags().GetString("profile")

		xml, err := os.ReadFile(xmlPath)
		if err != nil {
			return fmt.Errorf("reading %s: %w", xmlPath, err)
		}

		req := map[string]any{
			"name":           args[0],
			"xml":            string(xml),
			"node":           node,
			"node_limit":     nodeLimit,
			"node_selector":  selector,
			"node_autostart": autostart,
			"profile":        profile,
		}
		var d types.Domain
		if err := newAPIClient(cmd).post("/api/v1/vm", req, &d); err != nil {
			return err
		}
		fmt.Printf("defined vm %s (uuid %s) on %s\n", d.Name, d.UUID, d.Node)
		return nil
	},
}

var vmListCmd = &cobra.Command{
	Use:   "list",
	Short: "List domains",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var domains []types.Domain
		if err := newAPIClient(cmd).get("/api/v1/vm", &domains); err != nil {
			return err
		}
		tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "NAME\tSTATE\tNODE\tUUID")
		for _, d := range domains {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", d.Name, d.State, d.Node, d.UUID)
		}
		return tw.Flush()
	},
}

var vmGetCmd = &cobra.Command{
	Use:   "get NAME",
	Short: "Show a single domain",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var d types.Domain
		if err := newAPIClient(cmd).get("/api/v1/vm/"+args[0], &d); err != nil {
			return err
		}
		fmt.Printf("name:      %s\n", d.Name)
		fmt.Printf("uuid:      %s\n", d.UUID)
		fmt.Printf("state:     %s\n", d.State)
		fmt.Printf("node:      %s\n", d.Node)
		if d.LastNode != "" {
			fmt.Printf("last_node: %s\n", d.LastNode)
		}
		if d.FailedReason != "" {
			fmt.Printf("failed:    %s\n", d.FailedReason)
		}
		return nil
	},
}

var vmStateCmd = &cobra.Command{
	Use:   "state NAME {start|stop|shutdown|restart|disable}",
	Short: "Set a domain's target lifecycle state",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		req := map[string]any{"state": args[1]}
		var d types.Domain
		if err := newAPIClient(cmd).post("/api/v1/vm/"+args[0]+"/state", req, &d); err != nil {
			return err
		}
		fmt.Printf("vm %s -> %s\n", d.Name, d.State)
		return nil
	},
}

var vmNodeCmd = &cobra.Command{
	Use:   "node NAME {move|migrate|unmigrate}",
	Short: "Move, migrate, or unmigrate a domain",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		targetNode, _ := cmd.Flags().GetString("target-node")
		force, _ := cmd.Flags().GetBool("force")
		forceLive, _ := cmd.Flags().GetBool("force-live")
		wait, _ := cmd.Flags().GetBool("wait")
		req := map[string]any{
			"action":     args[1],
			"node":       targetNode,
			"force":      force,
			"force_live": forceLive,
			"wait":       wait,
		}
		var d types.Domain
		if err := newAPIClient(cmd).post("/api/v1/vm/"+args[0]+"/node", req, &d); err != nil {
			return err
		}
		fmt.Printf("vm %s now on %s (state %s)\n", d.Name, d.Node, d.State)
		return nil
	},
}

var vmLocksCmd = &cobra.Command{
	Use:   "flush-locks NAME",
	Short: "Release and reclaim a stuck domain's storage locks",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var resp map[string]string
		if err := newAPIClient(cmd).post("/api/v1/vm/"+args[0]+"/locks", nil, &resp); err != nil {
			return err
		}
		fmt.Printf("task %s enqueued on %s\n", resp["task_id"], resp["run_on"])
		return nil
	},
}
