package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/parallelvirtualcluster/pvc/pkg/types"
)

var nodeCmd = &cobra.Command{
	Use:   "node",
	Short: "Manage cluster nodes",
}

func init() {
	nodeFlushCmd.Flags().Bool("wait", false, "block until every domain has migrated off")
	nodeReadyCmd.Flags().Bool("wait", false, "block until every domain has migrated back")

	nodeCmd.AddCommand(nodeListCmd, nodeGetCmd, nodeFlushCmd, nodeReadyCmd, nodeResignCmd)
}

var nodeListCmd = &cobra.Command{
	Use:   "list",
	Short: "List nodes",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var nodes []types.Node
		if err := newAPIClient(cmd).get("/api/v1/node", &nodes); err != nil {
			return err
		}
		tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "NAME\tDAEMON\tCOORDINATOR\tDOMAIN\tHEALTH")
		for _, n := range nodes {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d%%\n", n.Name, n.DaemonState, n.CoordinatorState, n.DomainState, n.OverallHealth())
		}
		return tw.Flush()
	},
}

var nodeGetCmd = &cobra.Command{
	Use:   "get NAME",
	Short: "Show a single node",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var n types.Node
		if err := newAPIClient(cmd).get("/api/v1/node/"+args[0], &n); err != nil {
			return err
		}
		fmt.Printf("name:        %s\n", n.Name)
		fmt.Printf("daemon:      %s\n", n.DaemonState)
		fmt.Printf("coordinator: %s\n", n.CoordinatorState)
		fmt.Printf("domain:      %s\n", n.DomainState)
		fmt.Printf("health:      %d%%\n", n.OverallHealth())
		fmt.Printf("running:     %d domains\n", len(n.RunningDomains))
		return nil
	},
}

var nodeFlushCmd = &cobra.Command{
	Use:   "flush NAME",
	Short: "Migrate every domain off NAME",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		wait, _ := cmd.Flags().GetBool("wait")
		req := map[string]any{"state": string(types.DomainStateFlush), "wait": wait}
		var n types.Node
		if err := newAPIClient(cmd).post("/api/v1/node/"+args[0]+"/domain-state", req, &n); err != nil {
			return err
		}
		fmt.Printf("node %s domain-state -> %s\n", n.Name, n.DomainState)
		return nil
	},
}

var nodeReadyCmd = &cobra.Command{
	Use:   "ready NAME",
	Short: "Migrate NAME's previously-flushed domains back",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		wait, _ := cmd.Flags().GetBool("wait")
		req := map[string]any{"state": string(types.DomainStateReady), "wait": wait}
		var n types.Node
		if err := newAPIClient(cmd).post("/api/v1/node/"+args[0]+"/domain-state", req, &n); err != nil {
			return err
		}
		fmt.Printf("node %s domain-state -> %s\n", n.Name, n.DomainState)
		return nil
	},
}

var nodeResignCmd = &cobra.Command{
	Use:   "resign NAME",
	Short: "Ask NAME's own daemon to step down as coordinator primary",
	Long: `resign only works when pointed at the node's own pvcd address
(--api-addr), since ZooKeeper's election recipe has no remote "make X
win" primitive -- only the current holder can voluntarily step aside.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		req := map[string]any{"state": string(types.CoordinatorStateSecondary)}
		var resp map[string]string
		if err := newAPIClient(cmd).post("/api/v1/node/"+args[0]+"/coordinator-state", req, &resp); err != nil {
			return err
		}
		fmt.Println(resp["status"])
		return nil
	},
}
