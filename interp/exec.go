package interp

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/luckboy/rsush-sub000/pattern"
	"github.com/luckboy/rsush-sub000/syntax"
)

// stdio bundles the three standard streams a command stage runs with;
// redirections and pipeline plumbing only ever rewrite these three
// (no general fd-juggling beyond 0/1/2).
type stdio struct {
	in  io.Reader
	out io.Writer
	err io.Writer
}

func (i *Interp) baseStdio() stdio {
	return stdio{in: i.Stdin, out: i.Stdout, err: i.Stderr}
}

// runLogical runs one `pipe && pipe || pipe ...` chain, short-circuiting
// on the && / || operators, and backgrounds the whole chain if it ends
// in `&`.
func (i *Interp) runLogical(lc *syntax.LogicalCommand) int {
	if lc.Background {
		i.startBackground(lc)
		return 0
	}
	status := i.runPipe(lc.First)
	i.Env.LastStatus = status
	for _, pair := range lc.Pairs {
		if !i.ctrl.isNone() {
			break
		}
		switch pair.Op {
		case syntax.OpAnd:
			if status != 0 {
				continue
			}
		case syntax.OpOr:
			if status == 0 {
				continue
			}
		}
		status = i.runPipe(pair.Pipe)
		i.Env.LastStatus = status
	}
	return status
}

// runPipe executes one pipeline (one or more commands joined by `|`),
// applying negation to the last stage's status.
func (i *Interp) runPipe(pc *syntax.PipeCommand) int {
	var status int
	if len(pc.Commands) == 1 {
		status = i.runCommand(pc.Commands[0], i.baseStdio())
	} else {
		status = i.runMultiStagePipe(pc.Commands)
	}
	if pc.Negate {
		return boolStatus(status != 0)
	}
	return status
}

// runMultiStagePipe wires os.Pipe() between each consecutive stage and
// runs every stage concurrently, each in its own variable-isolated
// subshell, per POSIX.
func (i *Interp) runMultiStagePipe(cmds []syntax.Command) int {
	n := len(cmds)
	stages := make([]*Interp, n)
	ios := make([]stdio, n)
	var closers []io.Closer
	for k := range cmds {
		stages[k] = i.subshell()
		ios[k] = i.baseStdio()
	}
	for k := 0; k < n-1; k++ {
		r, w, err := os.Pipe()
		if err != nil {
			fmt.Fprintln(i.Stderr, err)
			return 1
		}
		ios[k].out = w
		ios[k+1].in = r
		closers = append(closers, r, w)
	}

	results := make([]int, n)
	done := make(chan struct{}, n)
	for k := range cmds {
		k := k
		go func() {
			results[k] = stages[k].runCommand(cmds[k], ios[k])
			if w, ok := ios[k].out.(io.Closer); ok && k < n-1 {
				w.Close()
			}
			if r, ok := ios[k].in.(io.Closer); ok && k > 0 {
				r.Close()
			}
			done <- struct{}{}
		}()
	}
	for range cmds {
		<-done
	}
	for _, c := range closers {
		c.Close()
	}
	return results[n-1]
}

// runCommand dispatches one pipeline stage: a simple command, a
// compound command, or a function definition.
func (i *Interp) runCommand(cmd syntax.Command, io stdio) int {
	switch c := cmd.(type) {
	case *syntax.SimpleCmd:
		return i.runSimple(&c.Simple, io)
	case *syntax.CompoundCmd:
		s2, closers, err := i.applyRedirects(io, c.Redirs)
		defer closeAll(closers)
		if err != nil {
			fmt.Fprintln(io.err, err)
			return 1
		}
		return i.runCompound(c.Compound, s2)
	case *syntax.FuncDef:
		i.funcs[c.Name] = c
		return 0
	}
	return 0
}

// runCompound dispatches over the seven compound-command shapes.
func (i *Interp) runCompound(cc syntax.CompoundCommand, io stdio) int {
	switch c := cc.(type) {
	case *syntax.BraceGroup:
		return i.runList(c.Commands, io)
	case *syntax.Subshell:
		sub := i.subshell()
		sub.Stdin, sub.Stdout, sub.Stderr = io.in, io.out, io.err
		status := sub.runList(c.Commands, io)
		if sub.ctrl.isExit() {
			i.ctrl = sub.ctrl
		}
		return status
	case *syntax.ForClause:
		return i.runFor(c, io)
	case *syntax.CaseClause:
		return i.runCase(c, io)
	case *syntax.IfClause:
		return i.runIf(c, io)
	case *syntax.WhileClause:
		return i.runWhileUntil(c.Cond, c.Body, false, io)
	case *syntax.UntilClause:
		return i.runWhileUntil(c.Cond, c.Body, true, io)
	}
	return 0
}

// runList runs a list of logical commands in sequence (the body every
// compound construct shares), stopping early on any pending
// control-flow signal.
func (i *Interp) runList(cmds []*syntax.LogicalCommand, io stdio) int {
	old := i.swapStdio(io)
	defer i.restoreStdio(old)
	status := i.Env.LastStatus
	for _, lc := range cmds {
		status = i.runLogical(lc)
		i.Env.LastStatus = status
		if !i.ctrl.isNone() {
			break
		}
	}
	return status
}

func (i *Interp) swapStdio(s stdio) stdio {
	old := i.baseStdio()
	i.Stdin, i.Stdout, i.Stderr = s.in, s.out, s.err
	return old
}

func (i *Interp) restoreStdio(s stdio) {
	i.Stdin, i.Stdout, i.Stderr = s.in, s.out, s.err
}

func (i *Interp) runIf(c *syntax.IfClause, io stdio) int {
	if i.runList(c.Cond, io) == 0 {
		return i.runList(c.Then, io)
	}
	for _, elif := range c.Elifs {
		if i.runList(elif.Cond, io) == 0 {
			return i.runList(elif.Then, io)
		}
	}
	if c.HasElse {
		return i.runList(c.Else, io)
	}
	return 0
}

func (i *Interp) runWhileUntil(cond, body []*syntax.LogicalCommand, isUntil bool, io stdio) int {
	status := 0
	for {
		condStatus := i.runList(cond, io)
		if !i.ctrl.isNone() {
			return status
		}
		stop := condStatus == 0
		if isUntil {
			stop = !stop
		}
		if stop {
			return status
		}
		status = i.runList(body, io)
		if brk, cont := i.ctrl.loopConsume(); brk {
			return status
		} else if cont {
			continue
		} else if !i.ctrl.isNone() {
			return status
		}
	}
}

func (i *Interp) runFor(c *syntax.ForClause, io stdio) int {
	var words []string
	if c.HasWordList {
		fs, err := i.expander.ExpandWords(c.Words)
		if err != nil {
			fmt.Fprintln(io.err, err)
			return 1
		}
		words = fs
	} else {
		words = append([]string(nil), i.Env.Positional...)
	}
	status := 0
	for _, w := range words {
		if err := i.Env.Set(c.Var, w); err != nil {
			fmt.Fprintln(io.err, err)
			return 1
		}
		status = i.runList(c.Body, io)
		if brk, cont := i.ctrl.loopConsume(); brk {
			return status
		} else if cont {
			continue
		} else if !i.ctrl.isNone() {
			return status
		}
	}
	return status
}

func (i *Interp) runCase(c *syntax.CaseClause, io stdio) int {
	subject, err := i.expander.Literal(c.Word)
	if err != nil {
		fmt.Fprintln(io.err, err)
		return 1
	}
	for _, item := range c.Items {
		for _, pw := range item.Patterns {
			pat, err := i.expander.Literal(pw)
			if err != nil {
				fmt.Fprintln(io.err, err)
				return 1
			}
			ok, err := pattern.Match(pat, subject)
			if err != nil {
				fmt.Fprintln(io.err, err)
				return 1
			}
			if ok {
				return i.runList(item.Body, io)
			}
		}
	}
	return 0
}

// runSimple expands a simple command's assignments and words, then
// dispatches to a built-in, a declared function, or an external
// process, in that precedence order (POSIX command search order).
func (i *Interp) runSimple(sc *syntax.SimpleCommand, io stdio) int {
	s2, closers, err := i.applyRedirects(io, sc.Redirs)
	defer func() { closeAll(closers) }()
	if err != nil {
		fmt.Fprintln(io.err, err)
		return 1
	}

	if len(sc.Words) == 0 {
		// a bare assignment, e.g. `FOO=bar`: applies to the current
		// environment, no command runs.
		return i.applyAssigns(sc.Assigns, false)
	}

	args, err := i.expander.ExpandWords(sc.Words)
	if err != nil {
		fmt.Fprintln(s2.err, err)
		return 1
	}
	if len(args) == 0 {
		return 0
	}

	if bi, ok := builtins[args[0]]; ok {
		// built-ins run against the current environment: the POSIX
		// distinction between "special" built-ins (temporary prefix
		// assignments) and ordinary ones is not modeled separately;
		// treat them as ordinary (permanent) assignments, matching
		// `export`/`:`.
		if st := i.applyAssigns(sc.Assigns, false); st != 0 {
			return st
		}
		if args[0] == "exec" && len(args) == 1 {
			// builtinExec keeps these streams as the shell's own.
			closers = nil
		}
		return bi(i, args[1:], s2)
	}
	if fn, ok := i.funcs[args[0]]; ok {
		return i.callFunc(fn, args, s2)
	}

	// external command: assignments are exported into its environment
	// only, not the shell's own.
	return i.runExternal(args, sc.Assigns, s2)
}

func (i *Interp) callFunc(fn *syntax.FuncDef, args []string, io stdio) int {
	savedPositional := i.Env.Positional
	i.Env.Positional = args[1:]
	defer func() { i.Env.Positional = savedPositional }()

	status := i.runCompound(fn.Body.Compound, io)
	if i.ctrl.kind == controlReturn {
		status = i.ctrl.status
		i.ctrl.clear()
	}
	return status
}

// applyAssigns evaluates NAME=word assignments into the current
// environment; exportOnly additionally marks each one exported. An
// external command's transient environment does not go through here:
// runExternal builds it with assignEnvStrings.
func (i *Interp) applyAssigns(assigns []*syntax.Assignment, exportOnly bool) int {
	for _, a := range assigns {
		val, err := i.expander.Literal(a.Value)
		if err != nil {
			fmt.Fprintln(i.Stderr, err)
			return 1
		}
		if err := i.Env.Set(a.Name, val); err != nil {
			fmt.Fprintln(i.Stderr, err)
			return 1
		}
		if exportOnly {
			i.Env.Export(a.Name)
		}
	}
	return 0
}

func closeAll(cs []io.Closer) {
	for _, c := range cs {
		c.Close()
	}
}

func boolStatus(b bool) int {
	if b {
		return 0
	}
	return 1
}

func defaultFd(kind syntax.RedirKind) int {
	switch kind {
	case syntax.RedirOutput, syntax.RedirAppend, syntax.RedirOutputDup:
		return 1
	default:
		return 0
	}
}

func getFd(s *stdio, fd int) any {
	switch fd {
	case 0:
		return s.in
	case 1:
		return s.out
	case 2:
		return s.err
	}
	return nil
}

func setFd(s *stdio, fd int, v any) {
	switch fd {
	case 0:
		if r, ok := v.(io.Reader); ok {
			s.in = r
		}
	case 1:
		if w, ok := v.(io.Writer); ok {
			s.out = w
		}
	case 2:
		if w, ok := v.(io.Writer); ok {
			s.err = w
		}
	}
}

// applyRedirects evaluates redirections left-to-right against base,
// returning the resulting stream set plus any opened files the caller
// must close once the command finishes.
func (i *Interp) applyRedirects(base stdio, redirs []*syntax.Redirect) (stdio, []io.Closer, error) {
	s := base
	var closers []io.Closer
	for _, r := range redirs {
		fd := defaultFd(r.Kind)
		if r.Fd != nil {
			fd = *r.Fd
		}
		switch r.Kind {
		case syntax.RedirInput, syntax.RedirOutput, syntax.RedirAppend, syntax.RedirInputOutput:
			path, err := i.expander.Literal(r.Word)
			if err != nil {
				return s, closers, err
			}
			flags := os.O_RDONLY
			switch r.Kind {
			case syntax.RedirOutput:
				flags = os.O_WRONLY | os.O_CREATE | os.O_TRUNC
			case syntax.RedirAppend:
				flags = os.O_WRONLY | os.O_CREATE | os.O_APPEND
			case syntax.RedirInputOutput:
				flags = os.O_RDWR | os.O_CREATE
			}
			f, err := os.OpenFile(path, flags, 0o644)
			if err != nil {
				return s, closers, err
			}
			closers = append(closers, f)
			setFd(&s, fd, any(f))
		case syntax.RedirInputDup, syntax.RedirOutputDup:
			lit, _ := r.Word.Lit()
			if lit == "-" {
				if r.Kind == syntax.RedirInputDup {
					setFd(&s, fd, io.Reader(strings.NewReader("")))
				} else {
					setFd(&s, fd, io.Writer(io.Discard))
				}
				continue
			}
			n, err := strconv.Atoi(lit)
			if err != nil {
				return s, closers, fmt.Errorf("bad file descriptor %q", lit)
			}
			setFd(&s, fd, getFd(&s, n))
		case syntax.RedirHereDoc:
			text, err := i.expander.Parts(r.HereDoc.Body)
			if err != nil {
				return s, closers, err
			}
			s.in = strings.NewReader(text)
		}
	}
	return s, closers, nil
}
