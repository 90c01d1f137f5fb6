// Package driver implements the evaluation driver: whole-file/
// whole-string batch evaluation, and an interactive line-at-a-time
// loop with PS1/PS2 prompting, continuation detection, and the
// ignoreeof/verbose option set.
package driver

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/luckboy/rsush-sub000/internal/reader"
	"github.com/luckboy/rsush-sub000/syntax"
)

// Interp is the subset of the interpreter façade the driver depends
// on; expressed as an interface here so tests can swap
// in a fake without pulling in the reference engine's process-spawning
// machinery.
type Interp interface {
	InterpretLogicalCommands(cmds []*syntax.LogicalCommand) int
	LastStatus() int
	HasBreakOrContinueOrReturnOrExit() bool
	HasExit() bool
	HasExitWithInteractive() bool
	HasNone() bool
	ClearReturnState()
	Exit(status int, isInteractiveExit bool) int
}

// LineEditor is the seam a real readline/line-editing integration hooks
// into: ReadLine is given the prompt to display and
// returns the line read plus whether input is exhausted. A
// configuration-only AddHistory call lets an editor skip logging when
// Settings.NoLog is set.
type LineEditor interface {
	ReadLine(prompt string) (line string, eof bool, err error)
	AddHistory(line string)
}

// Settings bundles the driver's config-driven behavior.
type Settings struct {
	Vi        bool
	Emacs     bool
	NoLog     bool
	Verbose   bool
	IgnoreEOF bool
}

// Driver runs logical-command batches against an Interp, either in one
// shot (RunFile/RunString) or interactively (RunInteractive).
type Driver struct {
	Interp   Interp
	Settings Settings
	Stderr   io.Writer
}

// New creates a Driver over interp with the given settings; stderr
// receives `verbose` echoing and error reports.
func New(interp Interp, settings Settings, stderr io.Writer) *Driver {
	return &Driver{Interp: interp, Settings: settings, Stderr: stderr}
}

// RunString parses and interprets src as one batch in whole-string
// mode, returning the last command's exit status.
func (d *Driver) RunString(src, path string) int {
	return d.runBatchSource(strings.NewReader(src), path)
}

// RunFile parses and interprets the contents of r as one batch.
func (d *Driver) RunFile(r io.Reader, path string) int {
	return d.runBatchSource(r, path)
}

func (d *Driver) runBatchSource(r io.Reader, path string) int {
	p := syntax.NewParser(reader.New(r), path)
	cmds, err := p.ParseLogicalCommands()
	if err != nil {
		fmt.Fprintln(d.Stderr, err)
		return 2
	}
	return d.runBatch(cmds)
}

func isContinuation(err error) bool {
	var serr *syntax.SyntaxError
	return errors.As(err, &serr) && serr.IsContinuation
}

// runBatch forwards cmds to the interpreter and applies the pending
// control inspection: a pending exit returns immediately, a stray
// top-level break/continue/return is cleared.
func (d *Driver) runBatch(cmds []*syntax.LogicalCommand) int {
	status := d.Interp.InterpretLogicalCommands(cmds)
	if d.Interp.HasExit() {
		return d.Interp.LastStatus()
	}
	if d.Interp.HasBreakOrContinueOrReturnOrExit() {
		d.Interp.ClearReturnState()
	}
	return status
}

// RunInteractive implements the line-at-a-time loop: read a
// line with PS1/PS2, accumulate it, try to parse; on a continuable
// syntax error prompt again with PS2, on a hard error or EOF stop
// according to ignoreeof.
func (d *Driver) RunInteractive(ed LineEditor, ps1, ps2 func() string) int {
	var buf strings.Builder
	status := d.Interp.LastStatus()
	prompt := ps1
	for {
		if d.Interp.HasExit() {
			return d.Interp.LastStatus()
		}
		line, eof, err := ed.ReadLine(prompt())
		if err != nil {
			fmt.Fprintln(d.Stderr, err)
			continue
		}
		if eof {
			if d.Settings.IgnoreEOF && buf.Len() == 0 {
				continue
			}
			if buf.Len() == 0 {
				return status
			}
			// fall through: try to parse whatever has accumulated so
			// far, since EOF mid-construct is a real syntax error.
		} else {
			if !d.Settings.NoLog {
				ed.AddHistory(line)
			}
			buf.WriteString(line)
			buf.WriteByte('\n')
		}

		p := syntax.NewParser(reader.New(strings.NewReader(buf.String())), "<stdin>")
		cmds, empty, err := p.ParseLogicalCommandsForLine()
		switch {
		case err == nil && !empty:
			// outcome 1: Ok(Some(cmds)).
			if d.Settings.Verbose {
				fmt.Fprint(d.Stderr, buf.String())
			}
			status = d.runBatch(cmds)
			buf.Reset()
			prompt = ps1
		case err != nil && isContinuation(err) && !eof:
			// outcome 2: Err(Syntax(.., true)) — read more and retry.
			prompt = ps2
		default:
			// outcome 3: Err(Syntax(.., false)), or Ok(None)/buffer
			// empty, or the underlying read itself hit EOF.
			if err != nil {
				fmt.Fprintln(d.Stderr, err)
			}
			buf.Reset()
			prompt = ps1
			if eof {
				return status
			}
		}
	}
}
