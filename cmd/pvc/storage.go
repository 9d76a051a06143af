package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var storageCmd = &cobra.Command{
	Use:   "storage",
	Short: "Manage shared Ceph storage",
}

func init() {
	storageOSDAddCmd.Flags().String("data-device", "", "block device for the OSD's data (required)")
	storageOSDAddCmd.Flags().String("db-device", "", "optional separate block device for the OSD's WAL/DB")
	_ = storageOSDAddCmd.MarkFlagRequired("data-device")

	storageCmd.AddCommand(storageOSDAddCmd)
}

var storageOSDAddCmd = &cobra.Command{
	Use:   "osd-add NODE",
	Short: "Add a new Ceph OSD on NODE",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dataDevice, _ := cmd.Flags().GetString("data-device")
		dbDevice, _ := cmd.Flags().GetString("db-device")
		req := map[string]any{
			"node":        args[0],
			"data_device": dataDevice,
			"db_device":   dbDevice,
		}
		var resp map[string]string
		if err := newAPIClient(cmd).post("/api/v1/storage/ceph/osd", req, &resp); err != nil {
			return err
		}
		fmt.Printf("task %s enqueued on %s\n", resp["task_id"], resp["run_on"])
		return nil
	},
}
