package syntax_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/luckboy/rsush-sub000/internal/reader"
	"github.com/luckboy/rsush-sub000/syntax"
)

func parse(t *testing.T, src string) []*syntax.LogicalCommand {
	t.Helper()
	p := syntax.NewParser(reader.New(strings.NewReader(src)), "<test>")
	cmds, err := p.ParseLogicalCommands()
	if err != nil {
		t.Fatalf("parse(%q): %v", src, err)
	}
	return cmds
}

func word(t *testing.T, w *syntax.Word) string {
	t.Helper()
	lit, ok := w.Lit()
	if !ok {
		t.Fatalf("word %v has no literal form", w)
	}
	return lit
}

func simpleCmdWords(t *testing.T, cmd syntax.Command) []*syntax.Word {
	t.Helper()
	sc, ok := cmd.(*syntax.SimpleCmd)
	if !ok {
		t.Fatalf("command %v is not a SimpleCmd", cmd)
	}
	return sc.Simple.Words
}

func TestCanonicalSimpleCommand(t *testing.T) {
	cmds := parse(t, "echo abc def")
	if len(cmds) != 1 {
		t.Fatalf("got %d logical commands, want 1", len(cmds))
	}
	lc := cmds[0]
	if lc.Background {
		t.Fatal("is_in_background should be false")
	}
	if len(lc.Pairs) != 0 {
		t.Fatalf("got %d pairs, want 0", len(lc.Pairs))
	}
	if len(lc.First.Commands) != 1 {
		t.Fatalf("got %d commands in pipeline, want 1", len(lc.First.Commands))
	}
	words := simpleCmdWords(t, lc.First.Commands[0])
	if len(words) != 3 {
		t.Fatalf("got %d words, want 3", len(words))
	}
	wantTexts := []string{"echo", "abc", "def"}
	wantCols := []uint64{1, 6, 10}
	for i, w := range words {
		if got := word(t, w); got != wantTexts[i] {
			t.Errorf("word %d = %q, want %q", i, got, wantTexts[i])
		}
		if w.Position.Line != 1 || w.Position.Column != wantCols[i] {
			t.Errorf("word %d position = %v, want line 1 col %d", i, w.Position, wantCols[i])
		}
	}
}

func TestCanonicalTwoLogicalCommands(t *testing.T) {
	cmds := parse(t, "echo abc; echo def")
	if len(cmds) != 2 {
		t.Fatalf("got %d logical commands, want 2", len(cmds))
	}
	if cmds[0].Position.Column != 1 {
		t.Errorf("first command column = %d, want 1", cmds[0].Position.Column)
	}
	if cmds[1].Position.Column != 11 {
		t.Errorf("second command column = %d, want 11", cmds[1].Position.Column)
	}
}

func TestCanonicalBackground(t *testing.T) {
	cmds := parse(t, "echo abc &\necho def\n")
	if len(cmds) != 2 {
		t.Fatalf("got %d logical commands, want 2", len(cmds))
	}
	if !cmds[0].Background {
		t.Error("first command should be backgrounded")
	}
	if cmds[1].Background {
		t.Error("second command should not be backgrounded")
	}
}

func TestCanonicalNegatedPipeline(t *testing.T) {
	cmds := parse(t, "! echo abc | cat")
	if len(cmds) != 1 {
		t.Fatalf("got %d logical commands, want 1", len(cmds))
	}
	pipe := cmds[0].First
	if !pipe.Negate {
		t.Error("is_negative should be true")
	}
	if len(pipe.Commands) != 2 {
		t.Fatalf("got %d commands in pipeline, want 2", len(pipe.Commands))
	}
}

func TestCanonicalHereDocument(t *testing.T) {
	cmds := parse(t, "cat << EOT\nabcdef\nghijkl\nEOT\n")
	if len(cmds) != 1 {
		t.Fatalf("got %d logical commands, want 1", len(cmds))
	}
	sc := cmds[0].First.Commands[0].(*syntax.SimpleCmd)
	if len(sc.Simple.Words) != 1 || word(t, sc.Simple.Words[0]) != "cat" {
		t.Fatalf("unexpected words: %v", sc.Simple.Words)
	}
	if len(sc.Simple.Redirs) != 1 {
		t.Fatalf("got %d redirects, want 1", len(sc.Simple.Redirs))
	}
	r := sc.Simple.Redirs[0]
	if r.Kind != syntax.RedirHereDoc {
		t.Fatalf("redirect kind = %v, want RedirHereDoc", r.Kind)
	}
	if r.HereDoc.HasMinus {
		t.Error("has_minus should be false")
	}
	if len(r.HereDoc.Body) != 2 {
		t.Fatalf("got %d body elements, want 2", len(r.HereDoc.Body))
	}
	want := []string{"abcdef\n", "ghijkl\n"}
	for i, e := range r.HereDoc.Body {
		lit, ok := e.(*syntax.StringLit)
		if !ok {
			t.Fatalf("body element %d is %T, not *StringLit", i, e)
		}
		if lit.Value != want[i] {
			t.Errorf("body element %d = %q, want %q", i, lit.Value, want[i])
		}
	}
}

func TestCanonicalHereDocumentStripsTabs(t *testing.T) {
	cmds := parse(t, "cat <<- EOT\n\tabc\n\tEOT\n")
	sc := cmds[0].First.Commands[0].(*syntax.SimpleCmd)
	r := sc.Simple.Redirs[0]
	if !r.HereDoc.HasMinus {
		t.Error("has_minus should be true")
	}
	if len(r.HereDoc.Body) != 1 {
		t.Fatalf("got %d body elements, want 1", len(r.HereDoc.Body))
	}
	lit := r.HereDoc.Body[0].(*syntax.StringLit)
	if lit.Value != "abc\n" {
		t.Errorf("body = %q, want %q (tabs stripped)", lit.Value, "abc\n")
	}
}

// arithOf extracts the lone ArithmeticSubstitution's Expr out of a
// single-word command like ": $((...))" — the form used to drive the
// arithmetic parser through the public command grammar rather than
// reaching into the lexer's mode stack directly.
func arithOf(t *testing.T, src string) syntax.ArithExpr {
	t.Helper()
	cmds := parse(t, src)
	sc := cmds[0].First.Commands[0].(*syntax.SimpleCmd)
	w := sc.Simple.Words[len(sc.Simple.Words)-1]
	simple, ok := w.Elems[0].(*syntax.Simple)
	if !ok {
		t.Fatalf("word %v has no Simple element", w)
	}
	as, ok := simple.Elem.(*syntax.ArithmeticSubstitution)
	if !ok {
		t.Fatalf("word %v has no ArithmeticSubstitution", w)
	}
	return as.Expr
}

func TestArithBinaryAdd(t *testing.T) {
	got := arithOf(t, ": $((1 + 2))")
	want := &syntax.ArithBinary{
		Op: syntax.ArithAdd,
		X:  &syntax.ArithNumber{Value: 1},
		Y:  &syntax.ArithNumber{Value: 2},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestArithPrecedence(t *testing.T) {
	got := arithOf(t, ": $((1 * 2 + 4 / 3))")
	want := &syntax.ArithBinary{
		Op: syntax.ArithAdd,
		X: &syntax.ArithBinary{
			Op: syntax.ArithMul,
			X:  &syntax.ArithNumber{Value: 1},
			Y:  &syntax.ArithNumber{Value: 2},
		},
		Y: &syntax.ArithBinary{
			Op: syntax.ArithDiv,
			X:  &syntax.ArithNumber{Value: 4},
			Y:  &syntax.ArithNumber{Value: 3},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestArithParensOverridePrecedence(t *testing.T) {
	got := arithOf(t, ": $(((1 + 2) * (4 - 3)))")
	want := &syntax.ArithBinary{
		Op: syntax.ArithMul,
		X: &syntax.ArithBinary{
			Op: syntax.ArithAdd,
			X:  &syntax.ArithNumber{Value: 1},
			Y:  &syntax.ArithNumber{Value: 2},
		},
		Y: &syntax.ArithBinary{
			Op: syntax.ArithSub,
			X:  &syntax.ArithNumber{Value: 4},
			Y:  &syntax.ArithNumber{Value: 3},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestArithConditionalRightAssociative(t *testing.T) {
	got := arithOf(t, ": $((1 ? 2 ? 3 : 4 : 5 ? 6 : 7))")
	want := &syntax.ArithConditional{
		Cond: &syntax.ArithNumber{Value: 1},
		Then: &syntax.ArithConditional{
			Cond: &syntax.ArithNumber{Value: 2},
			Then: &syntax.ArithNumber{Value: 3},
			Else: &syntax.ArithNumber{Value: 4},
		},
		Else: &syntax.ArithConditional{
			Cond: &syntax.ArithNumber{Value: 5},
			Then: &syntax.ArithNumber{Value: 6},
			Else: &syntax.ArithNumber{Value: 7},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestArithEmptyExpressionIsSyntaxError(t *testing.T) {
	p := syntax.NewParser(reader.New(strings.NewReader(": $(( ))")), "<test>")
	_, err := p.ParseLogicalCommands()
	if err == nil {
		t.Fatal("expected a syntax error for an empty arithmetic expression")
	}
}

func TestContinuationProperty(t *testing.T) {
	openInputs := []string{"{ echo a", "( echo a", "echo \"a", "cat << EOT\nabc\n"}
	for _, src := range openInputs {
		p := syntax.NewParser(reader.New(strings.NewReader(src)), "<test>")
		_, _, err := p.ParseLogicalCommandsForLine()
		var serr *syntax.SyntaxError
		if err == nil {
			t.Errorf("%q: expected a continuation error, got none", src)
			continue
		}
		if !asSyntaxError(err, &serr) || !serr.IsContinuation {
			t.Errorf("%q: expected IsContinuation error, got %v", src, err)
		}
	}
}

func asSyntaxError(err error, target **syntax.SyntaxError) bool {
	if se, ok := err.(*syntax.SyntaxError); ok {
		*target = se
		return true
	}
	return false
}

func TestContinuationPropertyBlankLine(t *testing.T) {
	p := syntax.NewParser(reader.New(strings.NewReader("\n")), "<test>")
	cmds, eof, err := p.ParseLogicalCommandsForLine()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if eof {
		t.Fatal("blank line should not report eof")
	}
	if len(cmds) != 0 {
		t.Fatalf("got %d commands, want 0", len(cmds))
	}
}

func TestContinuationPropertyEOF(t *testing.T) {
	p := syntax.NewParser(reader.New(strings.NewReader("")), "<test>")
	cmds, eof, err := p.ParseLogicalCommandsForLine()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !eof {
		t.Fatal("empty buffer should report eof")
	}
	if cmds != nil {
		t.Fatalf("got %v, want nil", cmds)
	}
}

func idempotenceCheck(t *testing.T, src string) {
	t.Helper()
	cmds := parse(t, src)
	var buf bytes.Buffer
	if err := syntax.Fprint(&buf, cmds); err != nil {
		t.Fatalf("Fprint: %v", err)
	}
	reparsed := parse(t, buf.String())
	if len(cmds) != len(reparsed) {
		t.Fatalf("printed form %q reparsed into %d commands, want %d", buf.String(), len(reparsed), len(cmds))
	}
	for i := range cmds {
		origWords := collectWords(t, cmds[i])
		gotWords := collectWords(t, reparsed[i])
		if diff := cmp.Diff(origWords, gotWords); diff != "" {
			t.Errorf("round-trip of %q mismatch (-want +got):\n%s", src, diff)
		}
	}
}

// collectWords flattens every literal word a logical command contains,
// in source order; used as a structural fingerprint that is insensitive
// to position but sensitive to the tree's actual word content.
func collectWords(t *testing.T, lc *syntax.LogicalCommand) []string {
	t.Helper()
	var out []string
	var walkCmd func(c syntax.Command)
	walkCmd = func(c syntax.Command) {
		sc, ok := c.(*syntax.SimpleCmd)
		if !ok {
			return
		}
		for _, w := range sc.Simple.Words {
			if lit, ok := w.Lit(); ok {
				out = append(out, lit)
			}
		}
	}
	walkCmd(lc.First.Commands[0])
	for _, cmd := range lc.First.Commands[1:] {
		walkCmd(cmd)
	}
	for _, pair := range lc.Pairs {
		for _, cmd := range pair.Pipe.Commands {
			walkCmd(cmd)
		}
	}
	return out
}

func TestIdempotence(t *testing.T) {
	cases := []string{
		"echo abc def",
		"echo abc; echo def",
		"! echo abc | cat",
		"echo abc && echo def || echo ghi",
	}
	for _, src := range cases {
		idempotenceCheck(t, src)
	}
}
