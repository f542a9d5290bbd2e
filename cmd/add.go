package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nahidn4p/segdl/internal/manager"
)

var addCmd = &cobra.Command{
	Use:     "add [url]...",
	Aliases: []string{"get"},
	Short:   "Add one or more downloads",
	Long:    "Add one or more URLs as new download tasks. A running 'segdl serve' picks them up and starts them immediately, unless --no-start is given.",
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, closeStore, err := openManager()
		if err != nil {
			return err
		}
		defer closeStore()

		output, _ := cmd.Flags().GetString("output")
		threads, _ := cmd.Flags().GetInt("threads")
		noStart, _ := cmd.Flags().GetBool("no-start")
		if output == "" {
			output = defaultDownloadFolder()
		}

		added := 0
		for _, url := range args {
			task, err := mgr.Add(url, output, manager.AddOptions{
				Threads:     threads,
				StartPaused: noStart,
			})
			if err != nil {
				fmt.Fprintf(os.Stderr, "skipping %s: %v\n", url, err)
				continue
			}
			fmt.Printf("added %s -> %s (%s)\n", url, task.Filename, task.ID[:8])
			added++
		}

		if added == 0 {
			return fmt.Errorf("no downloads were added")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(addCmd)
	addCmd.Flags().StringP("output", "o", "", "Destination folder (default: ~/Downloads)")
	addCmd.Flags().IntP("threads", "t", 0, "Number of segment workers (default: 4)")
	addCmd.Flags().Bool("no-start", false, "Add the task without starting it")
}
