package reader_test

import (
	"strings"
	"testing"

	"github.com/luckboy/rsush-sub000/internal/reader"
)

func TestNextTracksLineAndColumn(t *testing.T) {
	r := reader.New(strings.NewReader("ab\ncd"))

	type want struct {
		c    rune
		line uint64
		col  uint64
	}
	wants := []want{
		{'a', 1, 1},
		{'b', 1, 2},
		{'\n', 1, 3},
		{'c', 2, 1},
		{'d', 2, 2},
	}
	for _, w := range wants {
		c, pos, ok := r.Next()
		if !ok {
			t.Fatalf("Next() returned ok=false early, want %q", w.c)
		}
		if c != w.c || pos.Line != w.line || pos.Column != w.col {
			t.Fatalf("Next() = %q @ (%d,%d); want %q @ (%d,%d)", c, pos.Line, pos.Column, w.c, w.line, w.col)
		}
	}
	if _, _, ok := r.Next(); ok {
		t.Fatalf("Next() at EOF returned ok=true")
	}
	if r.Err() != nil {
		t.Fatalf("Err() = %v, want nil at clean EOF", r.Err())
	}
}

func TestUndoReplaysExactPair(t *testing.T) {
	r := reader.New(strings.NewReader("xy"))
	c, pos, ok := r.Next()
	if !ok || c != 'x' {
		t.Fatalf("Next() = %q, %v; want 'x', true", c, ok)
	}
	r.Undo(c, pos)

	c2, pos2, ok := r.Next()
	if !ok || c2 != c || pos2 != pos {
		t.Fatalf("Next() after Undo = %q @ %+v; want %q @ %+v", c2, pos2, c, pos)
	}

	c3, _, ok := r.Next()
	if !ok || c3 != 'y' {
		t.Fatalf("Next() after replay = %q, %v; want 'y', true", c3, ok)
	}
}

func TestNonUTF8BytesPreserved(t *testing.T) {
	r := reader.New(strings.NewReader("a\xffb"))
	var got []rune
	for {
		c, _, ok := r.Next()
		if !ok {
			break
		}
		got = append(got, c)
	}
	if len(got) != 3 || got[0] != 'a' || got[2] != 'b' {
		t.Fatalf("got %q, want 3 runes with invalid byte preserved as its own rune", got)
	}
}
