// Package reader implements the decoded-codepoint byte stream that the
// lexer scans: one rune at a time, with a one-rune pushback and (line,
// column) position tracking.
package reader

import (
	"bufio"
	"io"

	"github.com/luckboy/rsush-sub000/internal/iterutil"
)

// Position is a 1-based (line, column) pair. Column counts runes within
// the line, not bytes.
type Position struct {
	Line   uint64
	Column uint64
}

// Reader decodes UTF-8 runes from an underlying io.Reader, tracking
// position and offering one rune of pushback. Non-UTF-8 bytes are
// preserved as the Unicode replacement character is not substituted;
// instead each invalid byte surfaces as its own rune via bufio's decoding,
// matching the "non-UTF-8 bytes are preserved in word literals" guarantee
// from the spec.
type Reader struct {
	br  *bufio.Reader
	pb  *iterutil.Pushback[item]
	pos Position
	err error
}

type item struct {
	r   rune
	pos Position
}

// New creates a Reader over src.
func New(src io.Reader) *Reader {
	r := &Reader{
		br:  bufio.NewReader(src),
		pos: Position{Line: 1, Column: 1},
	}
	r.pb = iterutil.New[item](iterutil.SourceFunc[item](r.pull))
	return r
}

func (r *Reader) pull() (item, bool) {
	if r.err != nil {
		return item{}, false
	}
	c, _, err := r.br.ReadRune()
	if err != nil {
		if err != io.EOF {
			r.err = err
		}
		return item{}, false
	}
	it := item{r: c, pos: r.pos}
	if c == '\n' {
		r.pos.Line++
		r.pos.Column = 1
	} else {
		r.pos.Column++
	}
	return it, true
}

// Next returns the next rune and the position it started at. ok is false
// at EOF; call Err to distinguish EOF from an I/O failure.
func (r *Reader) Next() (c rune, pos Position, ok bool) {
	it, ok := r.pb.Next()
	if !ok {
		return 0, r.pos, false
	}
	return it.r, it.pos, true
}

// Undo pushes (c, pos) back so the next call to Next returns exactly that
// pair again. Callers that look ahead by more than one rune must re-push
// them in reverse (most-recently-read first) order, since this is a LIFO
// stack, not a queue.
func (r *Reader) Undo(c rune, pos Position) {
	r.pb.Undo(item{r: c, pos: pos})
}

// Pos returns the position the next call to Next would start scanning
// from.
func (r *Reader) Pos() Position { return r.pos }

// Err returns the first non-EOF I/O error encountered, if any.
func (r *Reader) Err() error { return r.err }
