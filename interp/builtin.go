package interp

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/luckboy/rsush-sub000/expand"
	"github.com/luckboy/rsush-sub000/getopt"
	"github.com/luckboy/rsush-sub000/internal/reader"
	"github.com/luckboy/rsush-sub000/syntax"
)

// builtinFunc implements one of the shell's built-in commands; it
// runs directly against the calling Interp's environment, never a
// subshell, since these are exactly the commands POSIX requires to
// affect the invoking shell itself.
type builtinFunc func(i *Interp, args []string, io stdio) int

var builtins map[string]builtinFunc

// builtins is filled in init: several built-ins run commands, which in
// turn look names up in builtins.
func init() {
	builtins = map[string]builtinFunc{
	".":        builtinDot,
	"source":   builtinDot,
	":":        builtinColon,
	"break":    builtinBreak,
	"continue": builtinContinue,
	"eval":     builtinEval,
	"exec":     builtinExec,
	"exit":     builtinExit,
	"export":   builtinExport,
	"readonly": builtinReadonly,
	"return":   builtinReturn,
	"shift":    builtinShift,
	"unset":    builtinUnset,
	}
}

func builtinColon(i *Interp, args []string, io stdio) int { return 0 }

func levelArg(args []string) int {
	if len(args) == 0 {
		return 1
	}
	n, err := strconv.Atoi(args[0])
	if err != nil || n < 1 {
		return 1
	}
	return n
}

func builtinBreak(i *Interp, args []string, io stdio) int {
	i.ctrl.setBreak(levelArg(args))
	return 0
}

func builtinContinue(i *Interp, args []string, io stdio) int {
	i.ctrl.setContinue(levelArg(args))
	return 0
}

func statusArg(args []string, fallback int) int {
	if len(args) == 0 {
		return fallback
	}
	n, err := strconv.Atoi(args[0])
	if err != nil {
		return fallback
	}
	return n
}

func builtinExit(i *Interp, args []string, io stdio) int {
	status := statusArg(args, i.Env.LastStatus)
	return i.Exit(status, false)
}

func builtinReturn(i *Interp, args []string, io stdio) int {
	status := statusArg(args, i.Env.LastStatus)
	i.ctrl.setReturn(status)
	return status
}

// builtinExec replaces the current process image when given a command
// (POSIX `exec cmd args...`), or applies its redirections permanently
// to the shell itself when given none. Process replacement uses
// golang.org/x/sys/unix.Exec directly rather than os/exec, since
// os/exec always forks a child — there is no portable way to get a
// true in-place exec() through it.
func builtinExec(i *Interp, args []string, io stdio) int {
	if len(args) == 0 {
		// Redirection-only `exec >file` etc.: the caller already
		// applied sc.Redirs to io before calling us, but those changes
		// were scoped to this call. Promote them to the shell's own
		// streams so they persist.
		i.Stdin, i.Stdout, i.Stderr = io.in, io.out, io.err
		return 0
	}
	path, err := lookPath(i.Env.Get("PATH").Value, args[0])
	if err != nil {
		fmt.Fprintf(io.err, "exec: %s: %v\n", args[0], err)
		return 127
	}
	if f, ok := io.in.(*os.File); ok {
		os.Stdin = f
	}
	if f, ok := io.out.(*os.File); ok {
		os.Stdout = f
	}
	if f, ok := io.err.(*os.File); ok {
		os.Stderr = f
	}
	env := i.Env.ExportStrings()
	return i.Exit(execReplace(path, args, env), false)
}

// quoteValue renders val the way `export -p`/`readonly -p` print a
// variable's value: single-quoted, with embedded single quotes broken
// out and re-quoted.
func quoteValue(val string) string {
	return "'" + strings.ReplaceAll(val, "'", `'\''`) + "'"
}

func builtinExport(i *Interp, args []string, io stdio) int {
	p := getopt.NewParser()
	p.SetArgs(args)
	printOnly := false
	for {
		res, err := p.GetOption("p")
		if err != nil {
			fmt.Fprintf(io.err, "export: %v\n", err)
			return 1
		}
		if res.Done {
			break
		}
		if res.Opt == 'p' {
			printOnly = true
		}
	}
	rest := args[p.OwnIndex():]

	if printOnly || len(rest) == 0 {
		i.Env.Each(func(name string, v expand.Variable) {
			if !v.Exported {
				return
			}
			if v.Set {
				fmt.Fprintf(io.out, "export %s=%s\n", name, quoteValue(v.Value))
			} else {
				fmt.Fprintf(io.out, "export %s\n", name)
			}
		})
		return 0
	}

	for _, a := range rest {
		name, val, hasVal := strings.Cut(a, "=")
		if hasVal {
			if err := i.Env.Set(name, val); err != nil {
				fmt.Fprintln(io.err, err)
				return 1
			}
		}
		i.Env.Export(name)
	}
	return 0
}

func builtinReadonly(i *Interp, args []string, io stdio) int {
	p := getopt.NewParser()
	p.SetArgs(args)
	printOnly := false
	for {
		res, err := p.GetOption("p")
		if err != nil {
			fmt.Fprintf(io.err, "readonly: %v\n", err)
			return 1
		}
		if res.Done {
			break
		}
		if res.Opt == 'p' {
			printOnly = true
		}
	}
	rest := args[p.OwnIndex():]

	if printOnly || len(rest) == 0 {
		i.Env.Each(func(name string, v expand.Variable) {
			if !v.ReadOnly {
				return
			}
			if v.Set {
				fmt.Fprintf(io.out, "readonly %s=%s\n", name, quoteValue(v.Value))
			} else {
				fmt.Fprintf(io.out, "readonly %s\n", name)
			}
		})
		return 0
	}

	for _, a := range rest {
		name, val, hasVal := strings.Cut(a, "=")
		if hasVal {
			if err := i.Env.Set(name, val); err != nil {
				fmt.Fprintln(io.err, err)
				return 1
			}
		}
		i.Env.MarkReadOnly(name)
	}
	return 0
}

func builtinShift(i *Interp, args []string, io stdio) int {
	n := levelArg(args)
	if n > len(i.Env.Positional) {
		fmt.Fprintln(io.err, "shift: shift count out of range")
		return 1
	}
	i.Env.Positional = i.Env.Positional[n:]
	return 0
}

// builtinUnset implements `unset [-f|-v] name...`: bare names fall back
// to removing whichever of a variable or a function matches (variable
// first), while -f/-v pin the removal to just functions or just
// variables. A readonly variable refuses removal in every case.
func builtinUnset(i *Interp, args []string, io stdio) int {
	p := getopt.NewParser()
	p.SetArgs(args)
	var funFlag, varFlag bool
	for {
		res, err := p.GetOption("fv")
		if err != nil {
			fmt.Fprintf(io.err, "unset: %v\n", err)
			return 1
		}
		if res.Done {
			break
		}
		switch res.Opt {
		case 'f':
			funFlag = true
		case 'v':
			varFlag = true
		}
	}
	names := args[p.OwnIndex():]

	unsetVar := func(name string) bool {
		if i.Env.Get(name).ReadOnly {
			fmt.Fprintf(io.err, "unset: %s: readonly variable\n", name)
			return false
		}
		i.Env.Unset(name)
		return true
	}
	unsetFun := func(name string) { delete(i.funcs, name) }

	status := 0
	for _, name := range names {
		switch {
		case funFlag && varFlag:
			if !unsetVar(name) {
				status = 1
				continue
			}
			unsetFun(name)
		case funFlag:
			unsetFun(name)
		case varFlag:
			if !unsetVar(name) {
				status = 1
			}
		default:
			if i.Env.Get(name).Set {
				if !unsetVar(name) {
					status = 1
				}
			} else {
				unsetFun(name)
			}
		}
	}
	return status
}

// builtinEval re-parses its arguments, joined by a single space, as
// shell input and runs the result against the current environment —
// no subshell, matching POSIX `eval`.
func builtinEval(i *Interp, args []string, io stdio) int {
	src := strings.Join(args, " ")
	cmds, err := parseSource(src, "eval")
	if err != nil {
		fmt.Fprintln(io.err, err)
		return 2
	}
	return i.runList(cmds, io)
}

// builtinDot implements `. file` / `source file`: reads file relative
// to PATH, parses it, and runs it against the current environment, no
// subshell.
func builtinDot(i *Interp, args []string, io stdio) int {
	if len(args) == 0 {
		fmt.Fprintln(io.err, ".: filename argument required")
		return 2
	}
	path := args[0]
	if !strings.Contains(path, "/") {
		if p, err := lookPath(i.Env.Get("PATH").Value, path); err == nil {
			path = p
		}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(io.err, ".: %v\n", err)
		return 1
	}
	cmds, err := parseSource(string(data), path)
	if err != nil {
		fmt.Fprintln(io.err, err)
		return 2
	}
	savedPositional := i.Env.Positional
	if len(args) > 1 {
		i.Env.Positional = args[1:]
		defer func() { i.Env.Positional = savedPositional }()
	}
	return i.runList(cmds, io)
}

func parseSource(src, path string) ([]*syntax.LogicalCommand, error) {
	p := syntax.NewParser(reader.New(strings.NewReader(src)), path)
	return p.ParseLogicalCommands()
}

// lookPath searches path (a colon-separated $PATH value) for an
// executable named name, mirroring the search exec.LookPath performs
// against os.Getenv("PATH") but over an explicit string so it honors
// the shell's own $PATH rather than the process's.
func lookPath(path, name string) (string, error) {
	if strings.Contains(name, "/") {
		if isExecutable(name) {
			return name, nil
		}
		return "", os.ErrNotExist
	}
	for _, dir := range strings.Split(path, ":") {
		if dir == "" {
			dir = "."
		}
		candidate := dir + "/" + name
		if isExecutable(candidate) {
			return candidate, nil
		}
	}
	return "", os.ErrNotExist
}

func isExecutable(path string) bool {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return false
	}
	return info.Mode()&0o111 != 0
}
