//go:build unix

package interp

import "golang.org/x/sys/unix"

// execReplace implements POSIX `exec`'s process-image replacement using
// unix.Exec directly: unlike os/exec, which always forks, this call
// never returns on success — the calling process becomes path's image.
// On failure it returns a best-effort exit status instead (127: command
// not found never reaches here, lookPath already handled that case; any
// other Exec error reads as "cannot execute").
func execReplace(path string, args []string, env []string) int {
	unix.Exec(path, args, env)
	return 126
}
