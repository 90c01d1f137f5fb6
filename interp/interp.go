// Package interp implements the interpreter façade, plus the
// reference execution engine behind it: process spawning over
// os/exec, pipelines and redirection, a background job table, and the
// handful of built-ins treated as external collaborators of the shell
// proper. Control-flow signalling uses typed sentinel state rather
// than Go errors/panics.
package interp

import (
	"io"
	"os"

	"github.com/luckboy/rsush-sub000/expand"
	"github.com/luckboy/rsush-sub000/syntax"
)

// Interp is the reference implementation of the interpreter façade.
// It owns the shell's variable environment, function table, pending
// control-flow state, and background job table; the driver only ever
// reads LastStatus/the control predicates and calls ClearReturnState.
type Interp struct {
	Env *expand.Environ

	Dir    string
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	// Notify gates whether reapJobs prints a "[done] ..." line for
	// each background job it reaps, mirroring the shell's `notify`
	// option (set -o notify).
	Notify bool

	ctrl  control
	funcs map[string]*syntax.FuncDef
	jobs  *jobTable

	expander *expand.Expander
}

// New creates an Interp ready to run logical commands against env,
// reading/writing the given standard streams.
func New(env *expand.Environ, stdin io.Reader, stdout, stderr io.Writer) *Interp {
	i := &Interp{
		Env:    env,
		Dir:    mustGetwd(),
		Stdin:  stdin,
		Stdout: stdout,
		Stderr: stderr,
		funcs:  make(map[string]*syntax.FuncDef),
		jobs:   newJobTable(),
	}
	i.expander = &expand.Expander{Env: env, Run: i.runCommandSubstitution}
	return i
}

func mustGetwd() string {
	d, err := os.Getwd()
	if err != nil {
		return "."
	}
	return d
}

// InterpretLogicalCommands executes one batch of top-level logical
// commands and returns the exit status of the last one run. A pending
// break/continue left over from a previous batch never happens at the
// driver level (ClearReturnState is called between batches); a
// pending exit short-circuits immediately.
func (i *Interp) InterpretLogicalCommands(cmds []*syntax.LogicalCommand) int {
	status := i.Env.LastStatus
	for _, lc := range cmds {
		if i.ctrl.isExit() {
			break
		}
		status = i.runLogical(lc)
		i.Env.LastStatus = status
		if !i.ctrl.isNone() {
			break
		}
	}
	i.reapJobs()
	return status
}

// LastStatus reports the exit status of the most recently run command.
func (i *Interp) LastStatus() int { return i.Env.LastStatus }

// HasBreakOrContinueOrReturnOrExit reports whether any control-flow
// signal is pending.
func (i *Interp) HasBreakOrContinueOrReturnOrExit() bool {
	return i.ctrl.isBreakContinueReturnOrExit()
}

// HasExit reports whether the pending signal is a shell exit.
func (i *Interp) HasExit() bool { return i.ctrl.isExit() }

// HasExitWithInteractive reports whether the pending exit was requested
// from an interactive top-level prompt, as opposed to `exit` run inside
// a script or function body.
func (i *Interp) HasExitWithInteractive() bool {
	return i.ctrl.isExit() && i.ctrl.interactiveExit
}

// HasNone reports that no control-flow signal is pending.
func (i *Interp) HasNone() bool { return i.ctrl.isNone() }

// ClearReturnState drops any pending break/continue/return, preserving
// LastStatus; called by the driver between batches so a stray
// top-level `break`/`continue`/`return` has no effect beyond its own
// exit status.
func (i *Interp) ClearReturnState() {
	if i.ctrl.kind != controlExit {
		i.ctrl.clear()
	}
}

// Exit records a pending shell exit with the given status and returns
// it, so callers (built-ins, the driver) can propagate it directly.
func (i *Interp) Exit(status int, isInteractiveExit bool) int {
	i.ctrl.setExit(status, isInteractiveExit)
	i.Env.LastStatus = status
	return status
}

// SignalString renders sig as a human-readable description for
// job-completion notices, appending "(core dumped)" when isCore is
// set.
func (i *Interp) SignalString(sig int, isCore bool) string {
	s := signalName(sig)
	if isCore {
		s += " (core dumped)"
	}
	return s
}

// runCommandSubstitution is wired as the expand package's CommandRunner
// callback, closing the loop the expand package documents: expand knows
// how to recognize $(...)/`...`, interp knows how to run its contents
// (in a variable-isolated subshell, capturing stdout).
func (i *Interp) runCommandSubstitution(cmds []*syntax.LogicalCommand) (string, error) {
	sub := i.subshell()
	r, w, err := os.Pipe()
	if err != nil {
		return "", err
	}
	sub.Stdout = w
	done := make(chan struct{})
	var out []byte
	go func() {
		out, _ = io.ReadAll(r)
		close(done)
	}()
	sub.InterpretLogicalCommands(cmds)
	w.Close()
	<-done
	r.Close()
	i.Env.LastStatus = sub.Env.LastStatus
	return trimTrailingNewlines(string(out)), nil
}

func trimTrailingNewlines(s string) string {
	n := len(s)
	for n > 0 && s[n-1] == '\n' {
		n--
	}
	return s[:n]
}

// subshell forks a child Interp sharing this one's streams and job
// table but an isolated variable environment and function table, the
// shape every pipeline component and `( list )` subshell runs in.
func (i *Interp) subshell() *Interp {
	c := &Interp{
		Env:    i.Env.Clone(),
		Dir:    i.Dir,
		Stdin:  i.Stdin,
		Stdout: i.Stdout,
		Stderr: i.Stderr,
		Notify: i.Notify,
		funcs:  cloneFuncs(i.funcs),
		jobs:   i.jobs,
	}
	c.expander = &expand.Expander{Env: c.Env, Run: c.runCommandSubstitution}
	return c
}

func cloneFuncs(m map[string]*syntax.FuncDef) map[string]*syntax.FuncDef {
	c := make(map[string]*syntax.FuncDef, len(m))
	for k, v := range m {
		c[k] = v
	}
	return c
}

