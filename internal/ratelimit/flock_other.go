//go:build !unix

package ratelimit

import "os"

// Without flock the store is only safe for a single process.
func lockFile(f *os.File) error {
	if f == nil {
		return os.ErrClosed
	}
	return nil
}

func unlockFile(*os.File) error { return nil }
