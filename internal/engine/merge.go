package engine

import (
	"fmt"
	"io"
	"os"

	"github.com/nahidn4p/segdl/internal/types"
)

// mergeParts concatenates part files in ascending index order into the
// task's destination file, then deletes each part (SPEC_FULL.md §4.4
// step 8).
func mergeParts(task *types.Task, ranges []segmentRange) error {
	dest := destPath(task)
	out, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("create destination: %w", err)
	}
	defer out.Close()

	for _, rng := range ranges {
		p := partPath(task, rng.Index)
		if err := appendPart(out, p); err != nil {
			return fmt.Errorf("merge part %d: %w", rng.Index, err)
		}
	}

	for _, rng := range ranges {
		_ = os.Remove(partPath(task, rng.Index))
	}
	_ = os.Remove(partsDir(task))

	return nil
}

func appendPart(out *os.File, partFile string) error {
	in, err := os.Open(partFile)
	if err != nil {
		return err
	}
	defer in.Close()

	buf := make([]byte, 64*types.KB)
	_, err = io.CopyBuffer(out, in, buf)
	return err
}
