package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/nahidn4p/segdl/internal/types"
	"github.com/nahidn4p/segdl/internal/utils"
)

var lsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List downloads",
	Long:  "List the unfinished tasks in the task store, newest first. Tasks stored as completed are not listed.",
	RunE: func(cmd *cobra.Command, args []string) error {
		jsonOutput, _ := cmd.Flags().GetBool("json")
		watch, _ := cmd.Flags().GetBool("watch")

		if !watch {
			return printTasks(jsonOutput)
		}
		for {
			fmt.Print("\033[H\033[2J")
			if err := printTasks(jsonOutput); err != nil {
				return err
			}
			time.Sleep(1 * time.Second)
		}
	},
}

func printTasks(jsonOutput bool) error {
	mgr, closeStore, err := openManager()
	if err != nil {
		return err
	}
	defer closeStore()

	tasks := mgr.List()
	sort.Slice(tasks, func(i, j int) bool { return tasks[i].CreatedAt.After(tasks[j].CreatedAt) })

	if len(tasks) == 0 {
		if jsonOutput {
			fmt.Println("[]")
		} else {
			fmt.Println("No downloads found.")
		}
		return nil
	}

	if jsonOutput {
		data, err := json.MarshalIndent(tasks, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tFILENAME\tSTATUS\tPROGRESS\tSIZE")
	fmt.Fprintln(w, "--\t--------\t------\t--------\t----")
	for _, t := range tasks {
		id := t.ID
		if len(id) > 8 {
			id = id[:8]
		}
		filename := t.Filename
		if len(filename) > 25 {
			filename = filename[:22] + "..."
		}
		progress := "-"
		if t.TotalSize > 0 {
			progress = fmt.Sprintf("%.1f%%", float64(t.Downloaded)*100/float64(t.TotalSize))
		} else if t.IsMedia() && t.MediaState != nil && t.MediaState.SegmentsTotal > 0 {
			progress = fmt.Sprintf("%d/%d segs", t.MediaState.SegmentsDone, t.MediaState.SegmentsTotal)
		}
		size := "-"
		if t.TotalSize > 0 {
			size = utils.ConvertBytesToHumanReadable(t.TotalSize)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", id, filename, statusLabel(t), progress, size)
	}
	return w.Flush()
}

func statusLabel(t *types.Task) string {
	if t.Status == types.StatusError && t.Error != "" {
		return fmt.Sprintf("error: %s", t.Error)
	}
	return string(t.Status)
}

func init() {
	rootCmd.AddCommand(lsCmd)
	lsCmd.Flags().Bool("json", false, "Output in JSON format")
	lsCmd.Flags().Bool("watch", false, "Refresh every second")
}
