package main

import (
	"fmt"
	"os"

	"github.com/parallelvirtualcluster/pvc/pkg/log"
	"github.com/spf13/cobra"
)

var (
	// Version information (set via ldflags during build)
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "pvc",
	Short: "Parallel Virtual Cluster control plane",
	Long: `pvc drives a ZooKeeper-coordinated fleet of libvirt hypervisors
sharing Ceph storage: node daemon, CLI, and everything in between.`,
	Version: Version,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"pvc version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))

	rootCmd.PersistentFlags().String("api-addr", "http://127.0.0.1:7370", "pvcd HTTP API address this CLI talks to")
	rootCmd.PersistentFlags().String("api-key", "", "X-Api-Key header value, if the target pvcd requires auth")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Output logs in JSON format")

	cobra.OnInitialize(initLogging)

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(vmCmd)
	rootCmd.AddCommand(nodeCmd)
	rootCmd.AddCommand(faultCmd)
	rootCmd.AddCommand(taskCmd)
	rootCmd.AddCommand(storageCmd)
}

func initLogging() {
	logLevel, _ := rootCmd.PersistentFlags().GetString("log-level")
	logJSON, _ := rootCmd.PersistentFlags().GetBool("log-json")

	log.Init(log.Config{
		Level:      log.Level(logLevel),
		JSONOutput: logJSON,
	})
}
