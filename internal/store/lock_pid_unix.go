//go:build !windows

package store

import "syscall"

// processAlive sends the null signal to pid: delivery succeeds iff a
// process with that pid exists and is in our signal namespace.
func processAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	return syscall.Kill(pid, 0) == nil
}
