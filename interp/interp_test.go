package interp_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/luckboy/rsush-sub000/expand"
	"github.com/luckboy/rsush-sub000/interp"
	"github.com/luckboy/rsush-sub000/internal/reader"
	"github.com/luckboy/rsush-sub000/syntax"
)

func run(t *testing.T, src string) (stdout string, status int, run *interp.Interp) {
	t.Helper()
	p := syntax.NewParser(reader.New(strings.NewReader(src)), "<test>")
	cmds, err := p.ParseLogicalCommands()
	if err != nil {
		t.Fatalf("parse(%q): %v", src, err)
	}
	var out bytes.Buffer
	env := expand.NewEnviron()
	i := interp.New(env, strings.NewReader(""), &out, &out)
	status = i.InterpretLogicalCommands(cmds)
	return out.String(), status, i
}

func TestIfElse(t *testing.T) {
	out, status, _ := run(t, "if false; then echo yes; else echo no; fi")
	if status != 0 {
		t.Errorf("status = %d, want 0", status)
	}
	if strings.TrimSpace(out) != "no" {
		t.Errorf("output = %q, want %q", out, "no")
	}
}

func TestForLoopOverWordList(t *testing.T) {
	out, _, _ := run(t, "for x in a b c; do echo $x; done")
	if got, want := out, "a\nb\nc\n"; got != want {
		t.Errorf("output = %q, want %q", got, want)
	}
}

func TestAndOrShortCircuit(t *testing.T) {
	out, status, _ := run(t, "false && echo a; true || echo b")
	if status != 0 {
		t.Errorf("status = %d, want 0", status)
	}
	if out != "" {
		t.Errorf("output = %q, want empty (both sides should be skipped)", out)
	}
}

func TestExitPropagatesStatus(t *testing.T) {
	out, status, i := run(t, "echo before; exit 3; echo after")
	if status != 3 {
		t.Errorf("status = %d, want 3", status)
	}
	if strings.TrimSpace(out) != "before" {
		t.Errorf("output = %q, want only %q", out, "before")
	}
	if !i.HasExit() {
		t.Error("HasExit() should be true after `exit`")
	}
}

func TestCaseClauseMatchesFirstPattern(t *testing.T) {
	out, _, _ := run(t, `case abc in a*) echo first ;; *) echo second ;; esac`)
	if strings.TrimSpace(out) != "first" {
		t.Errorf("output = %q, want %q", out, "first")
	}
}

func TestForLoopBreakViaCase(t *testing.T) {
	out, _, _ := run(t, `for i in 1 2 3 4 5; do echo $i; case $i in 3) break ;; esac; done`)
	if got, want := out, "1\n2\n3\n"; got != want {
		t.Errorf("output = %q, want %q", got, want)
	}
}

func TestVariableAssignmentAndExpansion(t *testing.T) {
	out, _, _ := run(t, "FOO=bar; echo $FOO")
	if strings.TrimSpace(out) != "bar" {
		t.Errorf("output = %q, want %q", out, "bar")
	}
}

func TestBraceGroupRunsInCurrentEnvironment(t *testing.T) {
	out, _, _ := run(t, "{ FOO=bar; }; echo $FOO")
	if strings.TrimSpace(out) != "bar" {
		t.Errorf("output = %q, want %q", out, "bar")
	}
}

func TestShiftBuiltin(t *testing.T) {
	p := syntax.NewParser(reader.New(strings.NewReader("shift; echo $1 $2")), "<test>")
	cmds, err := p.ParseLogicalCommands()
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	var out bytes.Buffer
	env := expand.NewEnviron()
	env.Positional = []string{"a", "b", "c"}
	i := interp.New(env, strings.NewReader(""), &out, &out)
	i.InterpretLogicalCommands(cmds)
	if strings.TrimSpace(out.String()) != "b c" {
		t.Errorf("output = %q, want %q", out.String(), "b c")
	}
}

func TestReadonlyRejectsReassignment(t *testing.T) {
	_, status, _ := run(t, "readonly FOO=bar; FOO=baz")
	if status == 0 {
		t.Error("assigning to a readonly variable should fail")
	}
}

func TestEvalReparsesAndRuns(t *testing.T) {
	out, _, _ := run(t, `eval "echo hi"`)
	if strings.TrimSpace(out) != "hi" {
		t.Errorf("output = %q, want %q", out, "hi")
	}
}

func TestColonBuiltinIsNoOp(t *testing.T) {
	_, status, _ := run(t, ": ignored args")
	if status != 0 {
		t.Errorf("status = %d, want 0", status)
	}
}

func TestSubshellDoesNotLeakAssignments(t *testing.T) {
	out, _, _ := run(t, "(FOO=bar); echo $FOO")
	if strings.TrimSpace(out) != "" {
		t.Errorf("output = %q, want empty (subshell assignment must not leak)", out)
	}
}
