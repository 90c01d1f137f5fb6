package driver_test

import (
	"bytes"
	"testing"

	"github.com/luckboy/rsush-sub000/driver"
	"github.com/luckboy/rsush-sub000/syntax"
)

// fakeInterp is a minimal driver.Interp double that just counts how many
// batches it was handed and lets a test script pending control-flow
// state, so the driver's own dispatch logic can be tested without
// pulling in process spawning.
type fakeInterp struct {
	batches  [][]*syntax.LogicalCommand
	status   int
	exit     bool
	exitInt  bool
	pending  bool
}

func (f *fakeInterp) InterpretLogicalCommands(cmds []*syntax.LogicalCommand) int {
	f.batches = append(f.batches, cmds)
	return f.status
}
func (f *fakeInterp) LastStatus() int                        { return f.status }
func (f *fakeInterp) HasBreakOrContinueOrReturnOrExit() bool { return f.pending || f.exit }
func (f *fakeInterp) HasExit() bool                          { return f.exit }
func (f *fakeInterp) HasExitWithInteractive() bool           { return f.exit && f.exitInt }
func (f *fakeInterp) HasNone() bool                          { return !f.pending && !f.exit }
func (f *fakeInterp) ClearReturnState()                      { f.pending = false }
func (f *fakeInterp) Exit(status int, isInteractive bool) int {
	f.status, f.exit, f.exitInt = status, true, isInteractive
	return status
}

func TestRunStringReturnsLastStatus(t *testing.T) {
	fi := &fakeInterp{status: 0}
	d := driver.New(fi, driver.Settings{}, &bytes.Buffer{})
	status := d.RunString("echo hi\n", "<test>")
	if status != 0 {
		t.Errorf("status = %d, want 0", status)
	}
	if len(fi.batches) != 1 {
		t.Fatalf("got %d batches, want 1", len(fi.batches))
	}
}

func TestRunStringReportsParseError(t *testing.T) {
	fi := &fakeInterp{}
	var stderr bytes.Buffer
	d := driver.New(fi, driver.Settings{}, &stderr)
	status := d.RunString("{ echo unterminated", "<test>")
	if status == 0 {
		t.Error("expected a non-zero status for a syntax error")
	}
	if stderr.Len() == 0 {
		t.Error("expected the parse error to be reported to stderr")
	}
}

func TestRunStringStopsImmediatelyOnExit(t *testing.T) {
	fi := &fakeInterp{}
	fi.status = 5
	fi.exit = true
	d := driver.New(fi, driver.Settings{}, &bytes.Buffer{})
	status := d.RunString("echo hi\n", "<test>")
	if status != 5 {
		t.Errorf("status = %d, want 5 (the pending exit's status)", status)
	}
}

// scriptedEditor feeds a fixed sequence of lines to RunInteractive, then
// reports EOF.
type scriptedEditor struct {
	lines   []string
	i       int
	history []string
}

func (e *scriptedEditor) ReadLine(prompt string) (string, bool, error) {
	if e.i >= len(e.lines) {
		return "", true, nil
	}
	line := e.lines[e.i]
	e.i++
	return line, false, nil
}

func (e *scriptedEditor) AddHistory(line string) { e.history = append(e.history, line) }

func ps1() string { return "$ " }
func ps2() string { return "> " }

func TestRunInteractiveRunsEachCompleteLine(t *testing.T) {
	fi := &fakeInterp{}
	ed := &scriptedEditor{lines: []string{"echo a", "echo b"}}
	d := driver.New(fi, driver.Settings{}, &bytes.Buffer{})
	d.RunInteractive(ed, ps1, ps2)
	if len(fi.batches) != 2 {
		t.Fatalf("got %d batches, want 2", len(fi.batches))
	}
}

func TestRunInteractiveAccumulatesContinuationAcrossLines(t *testing.T) {
	fi := &fakeInterp{}
	ed := &scriptedEditor{lines: []string{"if true; then", "echo yes", "fi"}}
	d := driver.New(fi, driver.Settings{}, &bytes.Buffer{})
	d.RunInteractive(ed, ps1, ps2)
	if len(fi.batches) != 1 {
		t.Fatalf("got %d batches, want 1 (continuation should merge the three lines)", len(fi.batches))
	}
}

func TestRunInteractiveStopsOnExit(t *testing.T) {
	fi := &fakeInterp{}
	ed := &scriptedEditor{lines: []string{"exit 9", "echo should-not-run"}}
	// InterpretLogicalCommands on a fake never actually sets fi.exit;
	// simulate the `exit` builtin's effect directly.
	callCount := 0
	wrapped := &hookedInterp{fakeInterp: fi, onInterpret: func() {
		callCount++
		if callCount == 1 {
			fi.Exit(9, false)
		}
	}}
	d := driver.New(wrapped, driver.Settings{}, &bytes.Buffer{})
	status := d.RunInteractive(ed, ps1, ps2)
	if status != 9 {
		t.Errorf("status = %d, want 9", status)
	}
	if callCount != 1 {
		t.Errorf("InterpretLogicalCommands called %d times, want 1 (exit should stop the loop)", callCount)
	}
}

// hookedInterp wraps fakeInterp to run an extra hook on every
// InterpretLogicalCommands call, letting a test simulate a built-in's
// side effect (like `exit`) without a real interpreter.
type hookedInterp struct {
	*fakeInterp
	onInterpret func()
}

func (h *hookedInterp) InterpretLogicalCommands(cmds []*syntax.LogicalCommand) int {
	status := h.fakeInterp.InterpretLogicalCommands(cmds)
	h.onInterpret()
	return status
}
