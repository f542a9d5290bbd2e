package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var pauseCmd = &cobra.Command{
	Use:   "pause [id]",
	Short: "Pause a running download",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if port := activeDaemonPort(); port != 0 {
			var resp taskResponse
			if err := daemonRequest(port, "POST", "/tasks/"+args[0]+"/pause", nil, &resp); err != nil {
				return err
			}
			fmt.Printf("paused %s (%s)\n", resp.Filename, shortID(resp.ID))
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
		if err := mgr.Pause(task.ID); err != nil {
			return err
		}
		fmt.Printf("paused %s (%s)\n", task.Filename, shortID(task.ID))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(pauseCmd)
}
