// Package iterutil provides a small generic pushback layer over any
// pull-style producer. The lexer uses it for two-codepoint lookahead and
// the parser uses it for two-token lookahead; both keep their own bounded
// stack so that a deep pushback in one never perturbs the other.
package iterutil

// Source is anything that can be pulled from one item at a time. Ok is
// false once the source is exhausted; after that, further calls must keep
// returning ok == false.
type Source[T any] interface {
	Next() (v T, ok bool)
}

// SourceFunc adapts a plain function into a Source.
type SourceFunc[T any] func() (T, bool)

func (f SourceFunc[T]) Next() (T, bool) { return f() }

// Pushback wraps a Source with a LIFO stack of items pushed back onto it.
// It is not safe for concurrent use.
type Pushback[T any] struct {
	src    Source[T]
	pushed []T
}

// New wraps src in a Pushback reader.
func New[T any](src Source[T]) *Pushback[T] {
	return &Pushback[T]{src: src}
}

// Next returns the next pushed-back item if any, otherwise pulls from the
// wrapped source.
func (p *Pushback[T]) Next() (T, bool) {
	if n := len(p.pushed); n > 0 {
		v := p.pushed[n-1]
		p.pushed = p.pushed[:n-1]
		return v, true
	}
	return p.src.Next()
}

// Undo pushes v back so that the next call to Next returns it again. Undo
// may be called more than once in a row; items are returned in LIFO order.
func (p *Pushback[T]) Undo(v T) {
	p.pushed = append(p.pushed, v)
}

// Buffered reports how many items are currently pushed back and unread.
func (p *Pushback[T]) Buffered() int {
	return len(p.pushed)
}
