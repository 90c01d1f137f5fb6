package interp

import (
	"fmt"
	"os"
	"os/exec"
	"syscall"

	"github.com/luckboy/rsush-sub000/syntax"
	"golang.org/x/sys/unix"
)

// runExternal resolves args[0] via PATH and spawns it as a child
// process, applying the given transient environment assignments on
// top of the shell's exported variables.
func (i *Interp) runExternal(args []string, assigns []*syntax.Assignment, io stdio) int {
	extra, err := i.assignEnvStrings(assigns)
	if err != nil {
		fmt.Fprintln(io.err, err)
		return 1
	}

	path, err := lookPath(i.Env.Get("PATH").Value, args[0])
	if err != nil {
		fmt.Fprintf(io.err, "%s: command not found\n", args[0])
		return 127
	}

	cmd := exec.Command(path, args[1:]...)
	cmd.Args[0] = args[0]
	cmd.Dir = i.Dir
	cmd.Stdin = io.in
	cmd.Stdout = io.out
	cmd.Stderr = io.err
	cmd.Env = append(append([]string(nil), i.Env.ExportStrings()...), extra...)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	if err := cmd.Start(); err != nil {
		fmt.Fprintf(io.err, "%s: %v\n", args[0], err)
		if os.IsNotExist(err) {
			return 127
		}
		return 126
	}
	err = cmd.Wait()
	i.Env.LastBgPid = 0
	return exitStatusOf(err)
}

// exitStatusOf converts the error returned by (*exec.Cmd).Wait into a
// POSIX-style exit status: 128+signal for a process killed by a
// signal, the raw exit code otherwise.
func exitStatusOf(err error) int {
	if err == nil {
		return 0
	}
	if exitErr, ok := err.(*exec.ExitError); ok {
		if ws, ok := exitErr.Sys().(syscall.WaitStatus); ok {
			if ws.Signaled() {
				return 128 + int(ws.Signal())
			}
			return ws.ExitStatus()
		}
		return exitErr.ExitCode()
	}
	return 1
}

// assignEnvStrings evaluates a simple command's prefix assignments
// into "name=value" strings for an external process's environment,
// without touching the shell's own variable table (POSIX's rule that a
// prefix assignment on an external command's line is visible only to
// that command).
func (i *Interp) assignEnvStrings(assigns []*syntax.Assignment) ([]string, error) {
	var out []string
	for _, a := range assigns {
		val, err := i.expander.Literal(a.Value)
		if err != nil {
			return nil, err
		}
		out = append(out, a.Name+"="+val)
	}
	return out, nil
}

func signalName(sig int) string {
	s := unix.Signal(sig)
	return s.String()
}
