//go:build linux

package proctitle

import (
	"fmt"
	"os"
	"unsafe"

	"golang.org/x/sys/unix"
)

// The kernel keeps 15 bytes plus the terminating NUL.
const commLen = 16

// Set renames the process for ps and top.
func Set(title string) error {
	title, err := clean(title)
	if err != nil {
		return err
	}
	os.Args[0] = title

	var comm [commLen]byte
	copy(comm[:commLen-1], title)
	if err := unix.Prctl(unix.PR_SET_NAME, uintptr(unsafe.Pointer(&comm[0])), 0, 0, 0); err != nil {
		return fmt.Errorf("prctl PR_SET_NAME: %w", err)
	}
	return nil
}
