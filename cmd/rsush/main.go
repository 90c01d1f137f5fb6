// Command rsush is the shell entry point: flag parsing, startup-file
// sourcing, and the wiring that turns a -c string / file path / stdin
// into a driver.Driver run against a reference interp.Interp.
package main

import (
	"fmt"
	"os"

	"github.com/luckboy/rsush-sub000/driver"
	"github.com/luckboy/rsush-sub000/expand"
	"github.com/luckboy/rsush-sub000/getopt"
	"github.com/luckboy/rsush-sub000/interp"
)

// setOptions collects the POSIX `set -x`-style flags the CLI accepts.
// Most of their runtime effect belongs to the execution engine's
// runtime settings, external to this front-end; this CLI only has to
// recognize and store them (Notify is the one consulted directly, by
// the job table's reaper).
type setOptions struct {
	allExport  bool
	errExit    bool
	verbose    bool
	noExec     bool
	xTrace     bool
	noUnset    bool
	monitor    bool
	noClobber  bool
	vi, emacs  bool
	ignoreEOF  bool
	notify     bool
	noLog      bool
}

func (s *setOptions) applyLetter(plus bool, c rune) bool {
	v := !plus
	switch c {
	case 'a':
		s.allExport = v
	case 'e':
		s.errExit = v
	case 'v':
		s.verbose = v
	case 'n':
		s.noExec = v
	case 'x':
		s.xTrace = v
	case 'u':
		s.noUnset = v
	case 'm':
		s.monitor = v
	case 'C':
		s.noClobber = v
	default:
		return false
	}
	return true
}

func (s *setOptions) applyName(plus bool, name string) bool {
	v := !plus
	switch name {
	case "vi":
		s.vi, s.emacs = v, false
	case "emacs":
		s.emacs, s.vi = v, false
	case "ignoreeof":
		s.ignoreEOF = v
	case "notify":
		s.notify = v
	case "nolog":
		s.noLog = v
	case "allexport":
		s.allExport = v
	case "errexit":
		s.errExit = v
	case "verbose":
		s.verbose = v
	case "noexec":
		s.noExec = v
	case "xtrace":
		s.xTrace = v
	case "nounset":
		s.noUnset = v
	case "monitor":
		s.monitor = v
	case "noclobber":
		s.noClobber = v
	default:
		return false
	}
	return true
}

func (s *setOptions) driverSettings() driver.Settings {
	return driver.Settings{
		Vi:        s.vi,
		Emacs:     s.emacs,
		NoLog:     s.noLog,
		Verbose:   s.verbose,
		IgnoreEOF: s.ignoreEOF,
	}
}

type cliOptions struct {
	commandString bool
	fromStdin     bool
	forceInteractive   *bool
	set           setOptions
}

// parseArgs walks argv (after argv[0]):
// -c/-s/-i/+i are recognized directly; every other single-letter
// option (Minus or Plus) is handed to the set-option table, including
// the long "-o NAME"/"+o NAME" form. The first non-option argument or a
// lone "--" ends option scanning; -c only sets a flag, so options that
// follow it are still scanned. The first non-option argument and
// everything after it are returned as the remaining arguments.
func parseArgs(argv []string) (cliOptions, []string, error) {
	var opts cliOptions
	i := 0
	for i < len(argv) {
		arg := argv[i]
		if arg == "--" {
			i++
			break
		}
		if len(arg) < 2 || (arg[0] != '-' && arg[0] != '+') {
			break
		}
		plus := arg[0] == '+'
		body := arg[1:]
		if body == "o" {
			i++
			if i >= len(argv) {
				return opts, nil, fmt.Errorf("rsush: -o: option requires an argument")
			}
			if !opts.set.applyName(plus, argv[i]) {
				return opts, nil, fmt.Errorf("rsush: -o: unknown option name %q", argv[i])
			}
			i++
			continue
		}
		for _, c := range body {
			switch {
			case !plus && c == 'c':
				opts.commandString = true
			case !plus && c == 's':
				opts.fromStdin = true
			case c == 'i':
				v := !plus
				opts.forceInteractive = &v
			default:
				if !opts.set.applyLetter(plus, c) {
					return opts, nil, &getopt.OptionError{Unknown: true, Opt: c}
				}
			}
		}
		i++
	}
	return opts, argv[i:], nil
}

func defaultPS1() string {
	if os.Geteuid() == 0 {
		return "# "
	}
	return "$ "
}

func sourceStartupFile(path string, run *interp.Interp, d *driver.Driver) (exit bool, status int) {
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "%s: %v\n", path, err)
		}
		return false, 0
	}
	status = d.RunString(string(data), path)
	return run.HasExit(), status
}

func main() {
	os.Exit(realMain())
}

func realMain() int {
	argv := os.Args
	arg0 := "rsush"
	if len(argv) > 0 {
		arg0 = argv[0]
	}
	opts, rest, err := parseArgs(argv[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	env := expand.NewEnviron()
	env.Arg0 = arg0
	run := interp.New(env, os.Stdin, os.Stdout, os.Stderr)
	run.Notify = opts.set.notify
	d := driver.New(run, opts.set.driverSettings(), os.Stderr)

	switch {
	case opts.commandString:
		if len(rest) == 0 {
			fmt.Fprintln(os.Stderr, "rsush: -c: option requires a command string")
			return 1
		}
		cmd := rest[0]
		if len(rest) > 1 {
			env.Arg0 = rest[1]
		}
		if len(rest) > 2 {
			env.Positional = rest[2:]
		}
		return d.RunString(cmd, "-c")

	case opts.fromStdin:
		env.Positional = rest
		return runStdinOrInteractive(opts, run, d)

	default:
		if len(rest) > 0 {
			env.Arg0 = rest[0]
			if len(rest) > 1 {
				env.Positional = rest[1:]
			}
			f, err := os.Open(rest[0])
			if err != nil {
				fmt.Fprintf(os.Stderr, "%s: %v\n", rest[0], err)
				return 1
			}
			defer f.Close()
			return d.RunFile(f, rest[0])
		}
		env.Positional = nil
		return runStdinOrInteractive(opts, run, d)
	}
}

func runStdinOrInteractive(opts cliOptions, run *interp.Interp, d *driver.Driver) int {
	interactive := driver.IsInteractive(os.Stdin)
	if opts.forceInteractive != nil {
		interactive = *opts.forceInteractive
	}
	if !interactive {
		return d.RunFile(os.Stdin, "")
	}

	if exit, status := sourceStartupFile("/etc/rsushrc", run, d); exit {
		return status
	}
	home := run.Env.Get("HOME").Value
	if home == "" {
		home = "/"
	}
	if exit, status := sourceStartupFile(home+"/.rsushrc", run, d); exit {
		return status
	}

	ed := driver.NewLineReaderEditor(os.Stdin, os.Stdout)
	ps1 := func() string {
		if v := run.Env.Get("PS1"); v.Set {
			return v.Value
		}
		return defaultPS1()
	}
	ps2 := func() string {
		if v := run.Env.Get("PS2"); v.Set {
			return v.Value
		}
		return "> "
	}
	return d.RunInteractive(ed, ps1, ps2)
}
