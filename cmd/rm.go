package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var rmCmd = &cobra.Command{
	Use:     "rm [id]",
	Aliases: []string{"remove"},
	Short:   "Remove a download and its partial data",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if port := activeDaemonPort(); port != 0 {
			if err := daemonRequest(port, "DELETE", "/tasks/"+args[0], nil, nil); err != nil {
				return err
			}
			fmt.Printf("removed %s\n", args[0])
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
		id, filename := task.ID, task.Filename
		if err := mgr.Remove(id); err != nil {
			return err
		}
		fmt.Printf("removed %s (%s)\n", filename, shortID(id))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(rmCmd)
}
