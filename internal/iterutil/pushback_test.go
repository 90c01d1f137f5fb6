package iterutil_test

import (
	"testing"

	"github.com/luckboy/rsush-sub000/internal/iterutil"
)

func TestPushbackPassthrough(t *testing.T) {
	vals := []int{1, 2, 3}
	i := 0
	src := iterutil.SourceFunc[int](func() (int, bool) {
		if i >= len(vals) {
			return 0, false
		}
		v := vals[i]
		i++
		return v, true
	})
	pb := iterutil.New[int](src)
	for _, want := range vals {
		got, ok := pb.Next()
		if !ok || got != want {
			t.Fatalf("Next() = %d, %v; want %d, true", got, ok, want)
		}
	}
	if _, ok := pb.Next(); ok {
		t.Fatalf("Next() at exhaustion returned ok=true")
	}
}

func TestPushbackUndoLIFO(t *testing.T) {
	i := 0
	src := iterutil.SourceFunc[int](func() (int, bool) {
		i++
		return i, true
	})
	pb := iterutil.New[int](src)

	v1, _ := pb.Next() // 1
	v2, _ := pb.Next() // 2
	pb.Undo(v2)
	pb.Undo(v1)
	if pb.Buffered() != 2 {
		t.Fatalf("Buffered() = %d, want 2", pb.Buffered())
	}

	got, _ := pb.Next()
	if got != v1 {
		t.Fatalf("Next() after double Undo = %d, want %d (LIFO order)", got, v1)
	}
	got, _ = pb.Next()
	if got != v2 {
		t.Fatalf("Next() after double Undo = %d, want %d (LIFO order)", got, v2)
	}
	if pb.Buffered() != 0 {
		t.Fatalf("Buffered() = %d, want 0", pb.Buffered())
	}

	got, _ = pb.Next()
	if got != 3 {
		t.Fatalf("Next() after drain = %d, want 3 (resumed from source)", got)
	}
}
