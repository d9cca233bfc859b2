//go:build !unix

package storage

import "os"

// O_EXCL already guarantees a single writer per path here.
func lockFile(*os.File) error { return nil }

func unlockFile(*os.File) {}
