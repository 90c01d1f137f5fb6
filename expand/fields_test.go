package expand_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/luckboy/rsush-sub000/expand"
	"github.com/luckboy/rsush-sub000/syntax"
)

func litWord(s string) *syntax.Word {
	return &syntax.Word{Elems: []syntax.WordElement{
		&syntax.Simple{Elem: &syntax.StringLit{Value: s}},
	}}
}

func TestFieldsSplitsUnquotedText(t *testing.T) {
	env := expand.NewEnviron()
	env.Set("IFS", " ")
	x := &expand.Expander{Env: env}
	got, err := x.Fields(litWord("abc def  ghi"))
	if err != nil {
		t.Fatalf("Fields: %v", err)
	}
	want := []string{"abc", "def", "ghi"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestFieldsDoesNotSplitQuotedText(t *testing.T) {
	env := expand.NewEnviron()
	env.Set("IFS", " ")
	x := &expand.Expander{Env: env}
	w := &syntax.Word{Elems: []syntax.WordElement{
		&syntax.DoubleQuoted{Parts: []syntax.SimpleWordElement{&syntax.StringLit{Value: "a b c"}}},
	}}
	got, err := x.Fields(w)
	if err != nil {
		t.Fatalf("Fields: %v", err)
	}
	want := []string{"a b c"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestLiteralConcatenatesWithoutSplitting(t *testing.T) {
	env := expand.NewEnviron()
	x := &expand.Expander{Env: env}
	w := &syntax.Word{Elems: []syntax.WordElement{
		&syntax.Simple{Elem: &syntax.StringLit{Value: "abc "}},
		&syntax.SingleQuoted{Value: "def"},
	}}
	got, err := x.Literal(w)
	if err != nil {
		t.Fatalf("Literal: %v", err)
	}
	if got != "abc def" {
		t.Errorf("Literal = %q, want %q", got, "abc def")
	}
}

func TestParamExpUseDefault(t *testing.T) {
	env := expand.NewEnviron()
	x := &expand.Expander{Env: env}
	w := &syntax.Word{Elems: []syntax.WordElement{
		&syntax.Simple{Elem: &syntax.ParamExp{
			Name: syntax.VarName("UNSET"),
			Mod: &syntax.ParamModifier{
				Kind:  syntax.ModUseDefault,
				Colon: true,
				Word:  litWord("fallback"),
			},
		}},
	}}
	got, err := x.Literal(w)
	if err != nil {
		t.Fatalf("Literal: %v", err)
	}
	if got != "fallback" {
		t.Errorf("${UNSET:-fallback} = %q, want %q", got, "fallback")
	}
}

func TestParamExpErrorIfUnset(t *testing.T) {
	env := expand.NewEnviron()
	x := &expand.Expander{Env: env}
	w := &syntax.Word{Elems: []syntax.WordElement{
		&syntax.Simple{Elem: &syntax.ParamExp{
			Name: syntax.VarName("UNSET"),
			Mod: &syntax.ParamModifier{
				Kind:  syntax.ModErrorIfUnset,
				Colon: true,
				Word:  litWord("must be set"),
			},
		}},
	}}
	if _, err := x.Literal(w); err == nil {
		t.Error("expected an error for ${UNSET:?must be set}")
	}
}
