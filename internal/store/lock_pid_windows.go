//go:build windows

package store

import "golang.org/x/sys/windows"

// processAlive opens pid with the minimal query right and checks its exit
// code: STILL_ACTIVE means the process has not exited. Mirrors
// lock_pid_unix.go's null-signal probe, the closest Windows equivalent
// available without administrative rights.
func processAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	h, err := windows.OpenProcess(windows.PROCESS_QUERY_LIMITED_INFORMATION, false, uint32(pid))
	if err != nil {
		return false
	}
	defer windows.CloseHandle(h)

	var exitCode uint32
	if err := windows.GetExitCodeProcess(h, &exitCode); err != nil {
		return false
	}
	return exitCode == windows.STILL_ACTIVE
}
