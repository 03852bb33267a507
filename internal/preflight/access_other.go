//go:build !unix

package preflight

import (
	"os"
)

// checkAccess probes with a temp file where access(2) is unavailable.
func checkAccess(path string) error {
	f, err := os.CreateTemp(path, ".mirrorvault-access-*")
	if err != nil {
		return err
	}
	name := f.Name()
	_ = f.Close()
	return os.Remove(name)
}
