package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var resumeCmd = &cobra.Command{
	Use:   "resume [id]",
	Short: "Resume a paused or errored download",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if port := activeDaemonPort(); port != 0 {
			var resp taskResponse
			if err := daemonRequest(port, "POST", "/tasks/"+args[0]+"/resume", nil, &resp); err != nil {
				return err
			}
			fmt.Printf("resumed %s (%s)\n", resp.Filename, shortID(resp.ID))
			return nil
		}

		mgr, closeStore, err := openManager()
		if err != nil {
			return err
		}
		defer closeStore()

		task, err := resolveID(mgr, args[0])
		if err != nil {
			return err
		}
		if err := mgr.QueueForStart(task.ID); err != nil {
			return err
		}
		fmt.Printf("queued %s (%s) — will start when 'segdl serve' is running\n", task.Filename, shortID(task.ID))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(resumeCmd)
}
