//go:build !linux

package proctitle

import "os"

// Set only rewrites os.Args[0]; the kernel name is left alone.
func Set(title string) error {
	title, err := clean(title)
	if err != nil {
		return err
	}
	os.Args[0] = title
	return nil
}
