package expand_test

import (
	"testing"

	"github.com/luckboy/rsush-sub000/expand"
)

func TestSetAndGet(t *testing.T) {
	e := expand.NewEnviron()
	if err := e.Set("FOO", "bar"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	v := e.Get("FOO")
	if !v.Set || v.Value != "bar" {
		t.Errorf("Get(FOO) = %+v, want Set=true Value=bar", v)
	}
}

func TestReadOnlyRejectsSet(t *testing.T) {
	e := expand.NewEnviron()
	if err := e.Set("FOO", "bar"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	e.MarkReadOnly("FOO")
	if err := e.Set("FOO", "baz"); err == nil {
		t.Error("expected an error assigning to a readonly variable")
	}
	if err := e.Unset("FOO"); err == nil {
		t.Error("expected an error unsetting a readonly variable")
	}
}

func TestIFSDefault(t *testing.T) {
	e := expand.NewEnviron()
	if got := e.IFS(); got != " \t\n" {
		t.Errorf("IFS() = %q, want default whitespace set", got)
	}
	e.Set("IFS", ",")
	if got := e.IFS(); got != "," {
		t.Errorf("IFS() = %q, want %q", got, ",")
	}
}

func TestCloneIsolatesAssignments(t *testing.T) {
	e := expand.NewEnviron()
	e.Set("FOO", "orig")
	clone := e.Clone()
	clone.Set("FOO", "changed")
	if got := e.Get("FOO").Value; got != "orig" {
		t.Errorf("parent FOO = %q, want unaffected %q", got, "orig")
	}
	if got := clone.Get("FOO").Value; got != "changed" {
		t.Errorf("clone FOO = %q, want %q", got, "changed")
	}
}

func TestSpecialParameters(t *testing.T) {
	e := &expand.Environ{Positional: []string{"a", "b"}, LastStatus: 3, Arg0: "sh"}
	if got := e.Special('#'); got != "2" {
		t.Errorf("$# = %q, want 2", got)
	}
	if got := e.Special('?'); got != "3" {
		t.Errorf("$? = %q, want 3", got)
	}
	if got := e.Special('0'); got != "sh" {
		t.Errorf("$0 = %q, want sh", got)
	}
	if got := e.Special('@'); got != "a b" {
		t.Errorf("$@ = %q, want %q", got, "a b")
	}
}
