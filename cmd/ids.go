package cmd

import (
	"fmt"
	"strings"

	"github.com/nahidn4p/segdl/internal/manager"
	"github.com/nahidn4p/segdl/internal/types"
)

// resolveID finds the task whose ID starts with prefix (the CLI only
// ever prints/accepts 8-char short IDs), erroring if zero or more than
// one task matches.
func resolveID(mgr *manager.Manager, prefix string) (*types.Task, error) {
	var match *types.Task
	for _, t := range mgr.List() {
		if t.ID == prefix {
			return t, nil
		}
		if strings.HasPrefix(t.ID, prefix) {
			if match != nil {
				return nil, fmt.Errorf("ambiguous task ID prefix %q", prefix)
			}
			match = t
		}
	}
	if match == nil {
		return nil, types.ErrNotFound
	}
	return match, nil
}

// shortID truncates id to the 8-character form the CLI prints and
// accepts back as a prefix.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// taskResponse is the JSON shape the daemon's HTTP bridge returns for a
// single task.
type taskResponse struct {
	ID       string `json:"id"`
	Filename string `json:"filename"`
	Status   string `json:"status"`
}
