package syntax_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/frankban/quicktest"
	"github.com/google/go-cmp/cmp"
	"github.com/pkg/diff"

	"github.com/luckboy/rsush-sub000/internal/reader"
	"github.com/luckboy/rsush-sub000/syntax"
)

// ignorePosition treats every syntax.Position value as equal, so a
// structural cmp.Diff compares tree shape and literal content only —
// the idempotence property (spec §8) is stated modulo source position.
var ignorePosition = cmp.Comparer(func(syntax.Position, syntax.Position) bool { return true })

// printRoundTrip prints cmds, re-parses the result, and returns both the
// printed text and the reparsed tree, failing the test on any print or
// parse error.
func printRoundTrip(t *testing.T, cmds []*syntax.LogicalCommand) (string, []*syntax.LogicalCommand) {
	t.Helper()
	var buf bytes.Buffer
	if err := syntax.Fprint(&buf, cmds); err != nil {
		t.Fatalf("Fprint: %v", err)
	}
	printed := buf.String()
	p := syntax.NewParser(reader.New(strings.NewReader(printed)), "<src>")
	reparsed, err := p.ParseLogicalCommands()
	if err != nil {
		t.Fatalf("reparsing printed output %q: %v", printed, err)
	}
	return printed, reparsed
}

// assertIdempotent parses src, prints it, reparses the printed form, and
// checks the two ASTs agree structurally (ignoring position). On
// mismatch it renders a line-oriented diff of the two printed forms
// (original source vs. the printer's own output re-printed from the
// reparsed tree) so a failure is readable without a debugger.
func assertIdempotent(t *testing.T, src string) {
	t.Helper()
	c := quicktest.New(t)

	p := syntax.NewParser(reader.New(strings.NewReader(src)), "<src>")
	cmds, err := p.ParseLogicalCommands()
	c.Assert(err, quicktest.IsNil, quicktest.Commentf("parsing %q", src))

	printed, reparsed := printRoundTrip(t, cmds)
	c.Assert(len(reparsed), quicktest.Equals, len(cmds),
		quicktest.Commentf("printed form %q reparsed into a different number of commands", printed))

	if diffStr := cmp.Diff(cmds, reparsed, ignorePosition); diffStr != "" {
		var rendered bytes.Buffer
		rePrinted, _ := printRoundTrip(t, reparsed)
		if derr := diff.Text("original", "reprinted", strings.NewReader(printed), strings.NewReader(rePrinted), &rendered); derr != nil {
			t.Fatalf("diff.Text: %v", derr)
		}
		t.Errorf("round-trip of %q is not idempotent (-orig +reparsed):\n%s\ntext diff:\n%s", src, diffStr, rendered.String())
	}
}

func TestPrinterIdempotenceSimpleAndPipelines(t *testing.T) {
	cases := []string{
		"echo abc def",
		"echo abc; echo def",
		"! echo abc | cat",
		"echo abc && echo def || echo ghi",
		"echo a | grep b | wc -l",
		"echo abc &\necho def\n",
	}
	for _, src := range cases {
		assertIdempotent(t, src)
	}
}

func TestPrinterIdempotenceCompoundCommands(t *testing.T) {
	cases := []string{
		"if true; then echo yes; else echo no; fi",
		"if true; then echo a; elif false; then echo b; else echo c; fi",
		"for x in a b c; do echo $x; done",
		"while false; do echo loop; done",
		"until true; do echo loop; done",
		"{ echo a; echo b; }",
		"( echo a; echo b )",
		"case $x in a) echo a ;; b|c) echo bc ;; *) echo other ;; esac",
		"foo() { echo body; }",
	}
	for _, src := range cases {
		assertIdempotent(t, src)
	}
}

func TestPrinterIdempotenceRedirectsAndHereDocs(t *testing.T) {
	cases := []string{
		"echo abc > out.txt",
		"cat < in.txt >> out.txt 2>&1",
		"cat << EOT\nabc\ndef\nEOT\n",
		"cat <<- EOT\n\tabc\n\tEOT\n",
	}
	for _, src := range cases {
		assertIdempotent(t, src)
	}
}

func TestPrinterIdempotenceExpansionsAndSubstitutions(t *testing.T) {
	cases := []string{
		`echo "$FOO bar"`,
		"echo ${FOO:-default}",
		"echo ${FOO:=default}",
		"echo ${#FOO}",
		"echo $(echo nested)",
		"echo `echo nested`",
		"echo $((1 + 2 * 3))",
		"echo 'single $quoted'",
	}
	for _, src := range cases {
		assertIdempotent(t, src)
	}
}
