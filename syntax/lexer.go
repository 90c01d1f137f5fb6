package syntax

import (
	"fmt"
	"strings"

	"github.com/luckboy/rsush-sub000/internal/iterutil"
	"github.com/luckboy/rsush-sub000/internal/reader"
	"github.com/luckboy/rsush-sub000/token"
)

// lexMode is one entry on the lexer's mode stack. $(...) recursion
// pushes modeCommand, since it lexes like top-level command text;
// backticks, double quotes, ${...} and $((...)) each push their own
// mode. Next consults the stack only for modeArithmetic, which switches
// it to the arithmetic tokenizer.
type lexMode int

const (
	modeCommand lexMode = iota
	modeDoubleQuotes
	modeParameter
	modeArithmetic
	modeBacktick
)

type runePos struct {
	r  rune
	p  Position
	ok bool
}

func toPosition(p reader.Position) Position {
	return Position{Line: p.Line, Column: p.Column}
}

// Lexer is a context-stacked tokenizer. It is driven by Parser, which
// also supplies the ParseNested and ParseArith hooks used to recursively
// parse $(...) / `...` command substitutions and $((...)) expressions
// out of the same rune stream. Here-doc bodies are scanned by the lexer
// itself (see drainHeredocs).
type Lexer struct {
	rd *reader.Reader
	pb *iterutil.Pushback[runePos]

	modes []lexMode

	// pending here-docs, registered by the parser in left-to-right
	// order on the current line and drained here once a real Newline
	// is reached.
	heredocs []*HereDoc

	// ParseNested parses a sequence of LogicalCommands from this same
	// Lexer's stream until it reaches a terminator appropriate to
	// backtick (stopBacktick) or $(...) (!stopBacktick) substitutions.
	// Set by the Parser that owns this Lexer.
	ParseNested func(l *Lexer, stopBacktick bool) ([]*LogicalCommand, error)

	// ParseArith parses one arithmetic expression from this same
	// Lexer's stream, up to but not including the closing "))".
	ParseArith func(l *Lexer) (ArithExpr, error)

	// arithDepth counts unmatched '(' seen since the current modeArithmetic
	// was pushed. A ')' at depth 0 is the first half of the "))" that
	// terminates $((...)) and is left unconsumed (see nextArith) rather
	// than tokenized, so the raw rune is still there for scanArithSubst's
	// direct rune-level read of the closing "))".
	arithDepth int

	path string
	err  *SyntaxError
}

// NewLexer creates a Lexer reading from rd. path is used only to annotate
// error positions.
func NewLexer(rd *reader.Reader, path string) *Lexer {
	l := &Lexer{rd: rd, path: path, modes: []lexMode{modeCommand}}
	l.pb = iterutil.New[runePos](iterutil.SourceFunc[runePos](l.pull))
	return l
}

func (l *Lexer) pull() (runePos, bool) {
	c, p, ok := l.rd.Next()
	if !ok {
		return runePos{}, false
	}
	return runePos{r: c, p: toPosition(p), ok: true}, true
}

func (l *Lexer) read() (runePos, bool) { return l.pb.Next() }
func (l *Lexer) unread(rp runePos)     { l.pb.Undo(rp) }

func (l *Lexer) peek() (runePos, bool) {
	rp, ok := l.read()
	if ok {
		l.unread(rp)
	}
	return rp, ok
}

func (l *Lexer) curMode() lexMode { return l.modes[len(l.modes)-1] }
func (l *Lexer) pushMode(m lexMode) { l.modes = append(l.modes, m) }
func (l *Lexer) popMode() {
	if len(l.modes) > 1 {
		l.modes = l.modes[:len(l.modes)-1]
	}
}

// RegisterHeredoc enqueues hd to have its body filled the next time the
// lexer drains pending here-docs.
func (l *Lexer) RegisterHeredoc(hd *HereDoc) {
	hd.Pending = true
	l.heredocs = append(l.heredocs, hd)
}

// PendingHeredocs reports how many here-docs are still awaiting a body.
func (l *Lexer) PendingHeredocs() int { return len(l.heredocs) }

// SyntaxError reports a lexer or parser failure.
type SyntaxError struct {
	Path            string
	Pos             Position
	Message         string
	IsContinuation  bool
}

func (e *SyntaxError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s: %s", e.Path, e.Pos, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Pos, e.Message)
}

func (l *Lexer) errorf(pos Position, isCont bool, format string, args ...any) *SyntaxError {
	e := &SyntaxError{Path: l.path, Pos: pos, Message: fmt.Sprintf(format, args...), IsContinuation: isCont}
	l.err = e
	return e
}

// ---- character classification ---------------------------------------

func isBlank(r rune) bool { return r == ' ' || r == '\t' }

func isWordBreak(r rune) bool {
	switch r {
	case ' ', '\t', '\n', ';', '&', '>', '<', '|', '(', ')':
		return true
	}
	return false
}

func isNameStart(r rune) bool {
	return r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

func isNameCont(r rune) bool {
	return isNameStart(r) || (r >= '0' && r <= '9')
}

func isDigit(r rune) bool { return r >= '0' && r <= '9' }

func isSpecialParam(r rune) bool {
	switch r {
	case '@', '*', '#', '?', '$', '!', '-', '0':
		return true
	}
	return false
}

// Lexeme is one token returned by the Lexer: an operator/keyword/newline,
// or a fully-built Word for WORD/HEREDOC_WORD.
type Lexeme struct {
	Tok  token.Token
	Pos  Position
	Word *Word // set iff Tok == token.WORD or token.HEREDOC_WORD
	Fd   *int  // set for redirection operators with an explicit IO-number prefix
	Num  int64 // set iff Tok == token.ARITH_NUMBER

	// ArithTerm is set on a Tok == token.EOF lexeme that was produced by
	// hitting the depth-0 ')' that begins the "))" terminating an
	// arithmetic substitution, as opposed to true end of input. The
	// arithmetic parser needs the distinction to report "syntax error"
	// (not continuable) for input like "))" alone, while still reporting
	// a continuable error for arithmetic text that is genuinely
	// unterminated.
	ArithTerm bool
}

// Next scans and returns the next lexeme. In modeArithmetic it defers to
// nextArith; otherwise it scans command text. ${...} bodies are scanned
// from inside the word they appear in (scanDollar/scanBracedParam), and
// pending here-doc bodies are filled by drainHeredocs when Next reaches
// a newline.
func (l *Lexer) Next() (Lexeme, error) {
	if l.curMode() == modeArithmetic {
		return l.nextArith()
	}
	l.skipBlanksAndComments()
	rp, ok := l.peek()
	if !ok {
		return Lexeme{Tok: token.EOF, Pos: l.curPos()}, nil
	}
	pos := rp.p

	if isDigit(rp.r) {
		if fd, isRedir, ok2 := l.tryIONumber(); ok2 {
			if isRedir {
				lx, err := l.scanRedirOp(pos)
				if err != nil {
					return Lexeme{}, err
				}
				lx.Fd = &fd
				return lx, nil
			}
		}
	}

	switch rp.r {
	case '\n':
		l.read()
		if len(l.heredocs) > 0 {
			if err := l.drainHeredocs(); err != nil {
				return Lexeme{}, err
			}
		}
		return Lexeme{Tok: token.NEWLINE, Pos: pos}, nil
	case ';':
		l.read()
		if r2, ok2 := l.peek(); ok2 && r2.r == ';' {
			l.read()
			return Lexeme{Tok: token.DSEMI, Pos: pos}, nil
		}
		return Lexeme{Tok: token.SEMICOLON, Pos: pos}, nil
	case '&':
		l.read()
		if r2, ok2 := l.peek(); ok2 && r2.r == '&' {
			l.read()
			return Lexeme{Tok: token.ANDAND, Pos: pos}, nil
		}
		return Lexeme{Tok: token.AMP, Pos: pos}, nil
	case '|':
		l.read()
		if r2, ok2 := l.peek(); ok2 && r2.r == '|' {
			l.read()
			return Lexeme{Tok: token.OROR, Pos: pos}, nil
		}
		return Lexeme{Tok: token.PIPE, Pos: pos}, nil
	case '(':
		l.read()
		return Lexeme{Tok: token.LPAREN, Pos: pos}, nil
	case ')':
		l.read()
		return Lexeme{Tok: token.RPAREN, Pos: pos}, nil
	case '{':
		l.read()
		return Lexeme{Tok: token.LBRACE, Pos: pos}, nil
	case '}':
		l.read()
		return Lexeme{Tok: token.RBRACE, Pos: pos}, nil
	case '!':
		l.read()
		return Lexeme{Tok: token.BANG, Pos: pos}, nil
	case '<', '>':
		return l.scanRedirOp(pos)
	}

	w, err := l.scanWord()
	if err != nil {
		return Lexeme{}, err
	}
	return Lexeme{Tok: token.WORD, Pos: pos, Word: w}, nil
}

func (l *Lexer) curPos() Position {
	if rp, ok := l.peek(); ok {
		return rp.p
	}
	return toPosition(l.rd.Pos())
}

// tryIONumber consumes a run of digits if, and only if, it is immediately
// followed (no blank in between) by a redirection operator; otherwise it
// is pushed back untouched so the digits can become a plain word. It
// returns the parsed fd and whether a redirection operator followed.
func (l *Lexer) tryIONumber() (fd int, isRedir bool, matched bool) {
	var digits []runePos
	for {
		rp, ok := l.read()
		if !ok {
			break
		}
		if !isDigit(rp.r) {
			l.unread(rp)
			break
		}
		digits = append(digits, rp)
	}
	next, ok := l.peek()
	if ok && (next.r == '<' || next.r == '>') {
		var n int
		for _, d := range digits {
			n = n*10 + int(d.r-'0')
		}
		return n, true, true
	}
	for i := len(digits) - 1; i >= 0; i-- {
		l.unread(digits[i])
	}
	return 0, false, false
}

func (l *Lexer) scanRedirOp(pos Position) (Lexeme, error) {
	first, _ := l.read()
	switch first.r {
	case '<':
		n, ok := l.peek()
		switch {
		case ok && n.r == '<':
			l.read()
			n2, ok2 := l.peek()
			if ok2 && n2.r == '-' {
				l.read()
				return Lexeme{Tok: token.LESSLESSMINUS, Pos: pos}, nil
			}
			return Lexeme{Tok: token.LESSLESS, Pos: pos}, nil
		case ok && n.r == '&':
			l.read()
			return Lexeme{Tok: token.LESSAMP, Pos: pos}, nil
		case ok && n.r == '>':
			l.read()
			return Lexeme{Tok: token.LESSGREAT, Pos: pos}, nil
		default:
			return Lexeme{Tok: token.LESS, Pos: pos}, nil
		}
	default: // '>'
		n, ok := l.peek()
		switch {
		case ok && n.r == '>':
			l.read()
			return Lexeme{Tok: token.GREATGREAT, Pos: pos}, nil
		case ok && n.r == '&':
			l.read()
			return Lexeme{Tok: token.GREATAMP, Pos: pos}, nil
		case ok && n.r == '|':
			l.read()
			return Lexeme{Tok: token.GREATPIPE, Pos: pos}, nil
		default:
			return Lexeme{Tok: token.GREAT, Pos: pos}, nil
		}
	}
}

func (l *Lexer) skipBlanksAndComments() {
	for {
		rp, ok := l.peek()
		if !ok {
			return
		}
		switch {
		case isBlank(rp.r):
			l.read()
		case rp.r == '\\':
			// line continuation outside a word: "\\\n" disappears.
			l.read()
			r2, ok2 := l.peek()
			if ok2 && r2.r == '\n' {
				l.read()
				continue
			}
			l.unread(rp)
			return
		case rp.r == '#':
			l.read()
			for {
				r2, ok2 := l.read()
				if !ok2 || r2.r == '\n' {
					if ok2 {
						l.unread(r2)
					}
					break
				}
			}
		default:
			return
		}
	}
}

// ---- word scanning ----------------------------------------------------

// scanWord scans a full Word in modeCommand: a sequence of word elements
// terminated by an unquoted word-break character.
func (l *Lexer) scanWord() (*Word, error) {
	pos := l.curPos()
	w := &Word{Path: l.path, Position: pos}
	var lit strings.Builder
	flush := func() {
		if lit.Len() > 0 {
			p := pos
			w.Elems = append(w.Elems, &Simple{Position: p, Elem: &StringLit{Position: p, Value: lit.String()}})
			lit.Reset()
		}
	}
	first := true
	for {
		rp, ok := l.peek()
		if !ok {
			break
		}
		if !first && isWordBreak(rp.r) {
			break
		}
		first = false
		switch rp.r {
		case '\\':
			l.read()
			r2, ok2 := l.read()
			if !ok2 {
				lit.WriteByte('\\')
				break
			}
			if r2.r == '\n' {
				continue
			}
			lit.WriteRune(r2.r)
		case '\'':
			flush()
			sq, err := l.scanSingleQuoted()
			if err != nil {
				return nil, err
			}
			w.Elems = append(w.Elems, sq)
		case '"':
			flush()
			dq, err := l.scanDoubleQuoted()
			if err != nil {
				return nil, err
			}
			w.Elems = append(w.Elems, dq)
		case '`':
			flush()
			e, err := l.scanBacktick()
			if err != nil {
				return nil, err
			}
			w.Elems = append(w.Elems, &Simple{Position: e.Pos(), Elem: e})
		case '$':
			e, consumed, err := l.scanDollar(false)
			if err != nil {
				return nil, err
			}
			if !consumed {
				l.read()
				lit.WriteByte('$')
				continue
			}
			flush()
			w.Elems = append(w.Elems, &Simple{Position: e.Pos(), Elem: e})
		default:
			l.read()
			lit.WriteRune(rp.r)
		}
	}
	flush()
	if len(w.Elems) == 0 {
		return nil, l.errorf(pos, false, "syntax error: empty word")
	}
	return w, nil
}

func (l *Lexer) scanSingleQuoted() (*SingleQuoted, error) {
	pos := l.curPos()
	l.read() // consume opening '
	var b strings.Builder
	for {
		rp, ok := l.read()
		if !ok {
			return nil, l.errorf(pos, true, "unterminated single-quoted string")
		}
		if rp.r == '\'' {
			break
		}
		b.WriteRune(rp.r)
	}
	return &SingleQuoted{Position: pos, Value: b.String()}, nil
}

func (l *Lexer) scanDoubleQuoted() (*DoubleQuoted, error) {
	pos := l.curPos()
	l.read() // consume opening "
	l.pushMode(modeDoubleQuotes)
	defer l.popMode()
	parts, err := l.scanQuotedParts(func(r rune) bool { return r == '"' }, true)
	if err != nil {
		return nil, err
	}
	rp, ok := l.read()
	if !ok || rp.r != '"' {
		return nil, l.errorf(pos, true, "unterminated double-quoted string")
	}
	return &DoubleQuoted{Position: pos, Parts: parts}, nil
}

// scanQuotedParts scans SimpleWordElements until stop(rune) reports true
// for an unescaped rune (which is left unread), handling backslash (which
// in double-quote context only escapes $ ` " \ and newline), $ expansions,
// and backtick command substitution.
func (l *Lexer) scanQuotedParts(stop func(rune) bool, dquoteEscapes bool) ([]SimpleWordElement, error) {
	var parts []SimpleWordElement
	var lit strings.Builder
	startPos := l.curPos()
	flush := func() {
		if lit.Len() > 0 {
			parts = append(parts, &StringLit{Position: startPos, Value: lit.String()})
			lit.Reset()
		}
	}
	for {
		rp, ok := l.peek()
		if !ok {
			break
		}
		if stop(rp.r) {
			break
		}
		switch rp.r {
		case '\\':
			l.read()
			r2, ok2 := l.read()
			if !ok2 {
				lit.WriteByte('\\')
				break
			}
			if dquoteEscapes {
				switch r2.r {
				case '$', '`', '"', '\\':
					lit.WriteRune(r2.r)
				case '\n':
					// line continuation, produces nothing
				default:
					lit.WriteByte('\\')
					lit.WriteRune(r2.r)
				}
			} else {
				if r2.r == '\n' {
					continue
				}
				lit.WriteRune(r2.r)
			}
		case '`':
			flush()
			e, err := l.scanBacktick()
			if err != nil {
				return nil, err
			}
			parts = append(parts, e)
			startPos = l.curPos()
		case '$':
			e, consumed, err := l.scanDollar(true)
			if err != nil {
				return nil, err
			}
			if !consumed {
				l.read()
				lit.WriteByte('$')
				continue
			}
			flush()
			parts = append(parts, e)
			startPos = l.curPos()
		default:
			l.read()
			lit.WriteRune(rp.r)
		}
	}
	flush()
	return parts, nil
}

func (l *Lexer) scanBacktick() (SimpleWordElement, error) {
	pos := l.curPos()
	l.read() // consume opening `
	l.pushMode(modeBacktick)
	defer l.popMode()
	if l.ParseNested == nil {
		return nil, l.errorf(pos, false, "command substitution not supported in this context")
	}
	cmds, err := l.ParseNested(l, true)
	if err != nil {
		return nil, err
	}
	rp, ok := l.read()
	if !ok || rp.r != '`' {
		return nil, l.errorf(pos, true, "unterminated command substitution")
	}
	return &CommandSubstitution{Position: pos, Backtick: true, Commands: cmds}, nil
}

// scanDollar attempts to scan a $-introduced construct. It reports
// consumed=false (without consuming the '$') when the following
// character cannot start any recognized form, so the caller can treat
// '$' as a literal.
func (l *Lexer) scanDollar(inDquote bool) (SimpleWordElement, bool, error) {
	pos := l.curPos()
	dollar, _ := l.read() // consume '$'; pushed back on any "not a construct" exit below
	n, ok := l.peek()
	if !ok {
		l.unread(dollar)
		return nil, false, nil
	}
	switch {
	case n.r == '(':
		l.read()
		n2, ok2 := l.peek()
		if ok2 && n2.r == '(' {
			l.read()
			return l.scanArithSubst(pos)
		}
		return l.scanCommandSubstParen(pos)
	case n.r == '{':
		l.read()
		return l.scanBracedParam(pos)
	case isDigit(n.r) && n.r != '0':
		l.read()
		return &ParamExp{Position: pos, Name: Positional(n.r - '0')}, true, nil
	case isSpecialParam(n.r):
		l.read()
		return &ParamExp{Position: pos, Name: Special(n.r)}, true, nil
	case isNameStart(n.r):
		var b strings.Builder
		for {
			rp, ok2 := l.peek()
			if !ok2 || !isNameCont(rp.r) {
				break
			}
			l.read()
			b.WriteRune(rp.r)
		}
		return &ParamExp{Position: pos, Name: VarName(b.String())}, true, nil
	default:
		l.unread(dollar)
		return nil, false, nil
	}
}

func (l *Lexer) scanCommandSubstParen(pos Position) (SimpleWordElement, bool, error) {
	l.pushMode(modeCommand)
	defer l.popMode()
	if l.ParseNested == nil {
		return nil, true, l.errorf(pos, false, "command substitution not supported in this context")
	}
	cmds, err := l.ParseNested(l, false)
	if err != nil {
		return nil, true, err
	}
	rp, ok := l.read()
	if !ok || rp.r != ')' {
		return nil, true, l.errorf(pos, true, "unterminated command substitution")
	}
	return &CommandSubstitution{Position: pos, Backtick: false, Commands: cmds}, true, nil
}

func (l *Lexer) scanArithSubst(pos Position) (SimpleWordElement, bool, error) {
	savedDepth := l.arithDepth
	l.arithDepth = 0
	l.pushMode(modeArithmetic)
	defer func() {
		l.popMode()
		l.arithDepth = savedDepth
	}()
	if l.ParseArith == nil {
		return nil, true, l.errorf(pos, false, "arithmetic expansion not supported in this context")
	}
	expr, err := l.ParseArith(l)
	if err != nil {
		return nil, true, err
	}
	r1, ok1 := l.read()
	r2, ok2 := l.read()
	if !ok1 || !ok2 || r1.r != ')' || r2.r != ')' {
		return nil, true, l.errorf(pos, true, "unterminated arithmetic expansion")
	}
	return &ArithmeticSubstitution{Position: pos, Expr: expr}, true, nil
}

// scanBracedParam scans ${...} after the opening "${" has been consumed.
func (l *Lexer) scanBracedParam(pos Position) (SimpleWordElement, bool, error) {
	l.pushMode(modeParameter)
	defer l.popMode()
	isLen := false
	if n, ok := l.peek(); ok && n.r == '#' {
		if n2, ok2 := l.peekAt(1); ok2 && (isNameStart(n2.r) || isDigit(n2.r) || isSpecialParam(n2.r)) {
			l.read()
			isLen = true
		} else if !ok2 {
			// "${#}" — length of special param '#'? fall through to name parse.
		}
	}
	name, err := l.scanParamName(pos)
	if err != nil {
		return nil, true, err
	}
	if isLen {
		rp, ok := l.read()
		if !ok || rp.r != '}' {
			return nil, true, l.errorf(pos, true, "unterminated parameter expansion")
		}
		return &ParamLength{Position: pos, Name: name}, true, nil
	}
	n, ok := l.peek()
	if ok && n.r == '}' {
		l.read()
		return &ParamExp{Position: pos, Name: name}, true, nil
	}
	mod, err := l.scanParamModifier()
	if err != nil {
		return nil, true, err
	}
	rp, ok := l.read()
	if !ok || rp.r != '}' {
		return nil, true, l.errorf(pos, true, "unterminated parameter expansion")
	}
	return &ParamExp{Position: pos, Name: name, Mod: mod}, true, nil
}

// peekAt peeks n runes ahead (0-based) without consuming any of them.
func (l *Lexer) peekAt(n int) (runePos, bool) {
	var buf []runePos
	var result runePos
	var found bool
	for i := 0; i <= n; i++ {
		rp, ok := l.read()
		if !ok {
			break
		}
		buf = append(buf, rp)
		if i == n {
			result, found = rp, true
		}
	}
	for i := len(buf) - 1; i >= 0; i-- {
		l.unread(buf[i])
	}
	return result, found
}

func (l *Lexer) scanParamName(pos Position) (ParameterName, error) {
	rp, ok := l.peek()
	if !ok {
		return nil, l.errorf(pos, true, "unterminated parameter expansion")
	}
	switch {
	case isDigit(rp.r) && rp.r != '0':
		var n int
		for {
			rp, ok := l.peek()
			if !ok || !isDigit(rp.r) {
				break
			}
			l.read()
			n = n*10 + int(rp.r-'0')
		}
		return Positional(n), nil
	case isSpecialParam(rp.r):
		l.read()
		return Special(rp.r), nil
	case isNameStart(rp.r):
		var b strings.Builder
		for {
			rp, ok := l.peek()
			if !ok || !isNameCont(rp.r) {
				break
			}
			l.read()
			b.WriteRune(rp.r)
		}
		return VarName(b.String()), nil
	default:
		return nil, l.errorf(pos, false, "bad substitution")
	}
}

func (l *Lexer) scanParamModifier() (*ParamModifier, error) {
	rp, _ := l.read()
	colon := false
	c := rp.r
	if c == ':' {
		colon = true
		r2, ok2 := l.read()
		if !ok2 {
			return nil, l.errorf(l.curPos(), true, "bad substitution")
		}
		c = r2.r
	}
	var kind ParamModKind
	switch c {
	case '-':
		kind = ModUseDefault
	case '=':
		kind = ModAssignDefault
	case '?':
		kind = ModErrorIfUnset
	case '+':
		kind = ModUseAlternative
	case '#':
		kind = ModRemoveSmallestPrefix
		if n, ok := l.peek(); ok && n.r == '#' {
			l.read()
			kind = ModRemoveLargestPrefix
		}
	case '%':
		kind = ModRemoveSmallestSuffix
		if n, ok := l.peek(); ok && n.r == '%' {
			l.read()
			kind = ModRemoveLargestSuffix
		}
	default:
		return nil, l.errorf(l.curPos(), false, "bad substitution")
	}
	w, err := l.scanModifierWord()
	if err != nil {
		return nil, err
	}
	return &ParamModifier{Kind: kind, Colon: colon, Word: w}, nil
}

// scanModifierWord scans the word argument of a ${X...word} modifier, up
// to (but not including) the matching unescaped '}', honoring nested
// braces, quotes, and $ substitutions.
func (l *Lexer) scanModifierWord() (*Word, error) {
	pos := l.curPos()
	w := &Word{Path: l.path, Position: pos}
	depth := 0
	var lit strings.Builder
	flush := func() {
		if lit.Len() > 0 {
			w.Elems = append(w.Elems, &Simple{Position: pos, Elem: &StringLit{Position: pos, Value: lit.String()}})
			lit.Reset()
		}
	}
	for {
		rp, ok := l.peek()
		if !ok {
			break
		}
		if rp.r == '}' && depth == 0 {
			break
		}
		switch rp.r {
		case '{':
			depth++
			l.read()
			lit.WriteRune('{')
		case '}':
			depth--
			l.read()
			lit.WriteRune('}')
		case '\\':
			l.read()
			r2, ok2 := l.read()
			if ok2 {
				lit.WriteRune(r2.r)
			}
		case '\'':
			flush()
			sq, err := l.scanSingleQuoted()
			if err != nil {
				return nil, err
			}
			w.Elems = append(w.Elems, sq)
		case '"':
			flush()
			dq, err := l.scanDoubleQuoted()
			if err != nil {
				return nil, err
			}
			w.Elems = append(w.Elems, dq)
		case '$':
			e, consumed, err := l.scanDollar(false)
			if err != nil {
				return nil, err
			}
			if !consumed {
				l.read()
				lit.WriteByte('$')
				continue
			}
			flush()
			w.Elems = append(w.Elems, &Simple{Position: e.Pos(), Elem: e})
		default:
			l.read()
			lit.WriteRune(rp.r)
		}
	}
	flush()
	if len(w.Elems) == 0 {
		return nil, nil
	}
	return w, nil
}

// ---- here-documents -----------------------------------------------------

// drainHeredocs fills every pending here-doc's Body in FIFO registration
// order.
func (l *Lexer) drainHeredocs() error {
	pending := l.heredocs
	l.heredocs = nil
	for _, hd := range pending {
		if err := l.scanHeredocBody(hd); err != nil {
			return err
		}
		hd.Pending = false
	}
	return nil
}

func (l *Lexer) scanHeredocBody(hd *HereDoc) error {
	for {
		if done, err := l.tryConsumeHeredocTerminator(hd); err != nil {
			return err
		} else if done {
			return nil
		}
		if hd.HasMinus {
			for {
				rp, ok := l.peek()
				if !ok || rp.r != '\t' {
					break
				}
				l.read()
			}
		}
		elems, err := l.scanHeredocLine(hd)
		if err != nil {
			return err
		}
		hd.Body = append(hd.Body, elems...)
	}
}

// tryConsumeHeredocTerminator checks whether the lexer is positioned at
// (optional tab-stripped) delimiter line; if so it consumes it (including
// its trailing newline, if any) and returns true.
func (l *Lexer) tryConsumeHeredocTerminator(hd *HereDoc) (bool, error) {
	var consumed []runePos
	if hd.HasMinus {
		for {
			rp, ok := l.read()
			if !ok {
				break
			}
			if rp.r != '\t' {
				l.unread(rp)
				break
			}
			consumed = append(consumed, rp)
		}
	}
	delim := []rune(hd.Delim)
	var delimRunes []runePos
	matched := true
	for _, want := range delim {
		rp, ok := l.read()
		if !ok || rp.r != want {
			if ok {
				l.unread(rp)
			}
			matched = false
			break
		}
		delimRunes = append(delimRunes, rp)
	}
	if matched {
		n, ok := l.peek()
		if !ok || n.r == '\n' {
			if ok {
				l.read()
			}
			return true, nil
		}
		matched = false
	}
	// roll back everything: delimiter-prefix runes, then stripped tabs.
	for i := len(delimRunes) - 1; i >= 0; i-- {
		l.unread(delimRunes[i])
	}
	for i := len(consumed) - 1; i >= 0; i-- {
		l.unread(consumed[i])
	}
	return false, nil
}

// scanHeredocLine scans one raw input line (through its terminating
// newline, or EOF) into SimpleWordElements. If hd is quoted, the whole
// line is one literal StringLit; otherwise $ forms are recognized.
func (l *Lexer) scanHeredocLine(hd *HereDoc) ([]SimpleWordElement, error) {
	if hd.IsQuoted {
		pos := l.curPos()
		var b strings.Builder
		for {
			rp, ok := l.read()
			if !ok {
				if b.Len() == 0 {
					return nil, l.errorf(pos, true, "unterminated here-document")
				}
				break
			}
			b.WriteRune(rp.r)
			if rp.r == '\n' {
				break
			}
		}
		return []SimpleWordElement{&StringLit{Position: pos, Value: b.String()}}, nil
	}
	if _, ok := l.peek(); !ok {
		return nil, l.errorf(l.curPos(), true, "unterminated here-document")
	}
	parts, err := l.scanQuotedParts(func(r rune) bool { return r == '\n' }, false)
	if err != nil {
		return nil, err
	}
	// consume the line's terminating newline as part of the last literal.
	rp, ok := l.read()
	if ok {
		if rp.r == '\n' {
			if len(parts) > 0 {
				if s, isStr := parts[len(parts)-1].(*StringLit); isStr {
					s.Value += "\n"
				} else {
					parts = append(parts, &StringLit{Value: "\n"})
				}
			} else {
				parts = append(parts, &StringLit{Value: "\n"})
			}
		} else {
			l.unread(rp)
		}
	}
	return parts, nil
}

// ---- arithmetic-mode tokenizing ----------------------------------------
//
// Inside $((...)) the same glyphs mean different things than they do in
// Command mode (< and > are comparisons, not redirections; & and | are
// bitwise, not pipe/background); so arithmetic mode gets its own
// tokenizer entirely rather than reusing the operator switch in Next.

func (l *Lexer) nextArith() (Lexeme, error) {
	for {
		rp, ok := l.peek()
		if !ok {
			return Lexeme{Tok: token.EOF, Pos: l.curPos()}, nil
		}
		if rp.r == ' ' || rp.r == '\t' || rp.r == '\n' {
			l.read()
			continue
		}
		break
	}
	rp, _ := l.peek()
	pos := rp.p
	switch {
	case isDigit(rp.r):
		return l.scanArithNumber(pos)
	case rp.r == '$':
		e, consumed, err := l.scanDollar(false)
		if err != nil {
			return Lexeme{}, err
		}
		if !consumed {
			l.read()
			return Lexeme{}, l.errorf(pos, false, "bad substitution")
		}
		w := &Word{Path: l.path, Position: pos, Elems: []WordElement{&Simple{Position: pos, Elem: e}}}
		return Lexeme{Tok: token.WORD, Pos: pos, Word: w}, nil
	case isNameStart(rp.r):
		var b strings.Builder
		for {
			rp2, ok2 := l.peek()
			if !ok2 || !isNameCont(rp2.r) {
				break
			}
			l.read()
			b.WriteRune(rp2.r)
		}
		w := &Word{Path: l.path, Position: pos, Elems: []WordElement{
			&Simple{Position: pos, Elem: &ParamExp{Position: pos, Name: VarName(b.String())}},
		}}
		return Lexeme{Tok: token.WORD, Pos: pos, Word: w}, nil
	case rp.r == '(':
		l.read()
		l.arithDepth++
		return Lexeme{Tok: token.LPAREN, Pos: pos}, nil
	case rp.r == ')':
		if l.arithDepth == 0 {
			// Left unconsumed: this is the first half of the "))"
			// that scanArithSubst reads back raw once the parser
			// stops here.
			return Lexeme{Tok: token.EOF, Pos: pos, ArithTerm: true}, nil
		}
		l.read()
		l.arithDepth--
		return Lexeme{Tok: token.RPAREN, Pos: pos}, nil
	}
	return l.scanArithOperator(pos)
}

func (l *Lexer) scanArithNumber(pos Position) (Lexeme, error) {
	var digits []rune
	first, _ := l.read()
	digits = append(digits, first.r)
	base := 10
	if first.r == '0' {
		if n, ok := l.peek(); ok && (n.r == 'x' || n.r == 'X') {
			l.read()
			digits = digits[:0]
			base = 16
			for {
				n2, ok2 := l.peek()
				if !ok2 || !isHexDigit(n2.r) {
					break
				}
				l.read()
				digits = append(digits, n2.r)
			}
			return Lexeme{Tok: token.ARITH_NUMBER, Pos: pos, Num: parseIntBase(digits, 16)}, nil
		}
		base = 8
	}
	for {
		n, ok := l.peek()
		if !ok || !isDigit(n.r) {
			break
		}
		l.read()
		digits = append(digits, n.r)
	}
	if base == 8 {
		if allOctal(digits) {
			return Lexeme{Tok: token.ARITH_NUMBER, Pos: pos, Num: parseIntBase(digits, 8)}, nil
		}
		return Lexeme{Tok: token.ARITH_NUMBER, Pos: pos, Num: parseIntBase(digits, 10)}, nil
	}
	return Lexeme{Tok: token.ARITH_NUMBER, Pos: pos, Num: parseIntBase(digits, 10)}, nil
}

func isHexDigit(r rune) bool {
	return isDigit(r) || (r >= 'a' && r <= 'f') || (r >= 'A' && r <= 'F')
}

func allOctal(digits []rune) bool {
	for _, d := range digits {
		if d < '0' || d > '7' {
			return false
		}
	}
	return true
}

func parseIntBase(digits []rune, base int64) int64 {
	var n int64
	for _, d := range digits {
		var v int64
		switch {
		case d >= '0' && d <= '9':
			v = int64(d - '0')
		case d >= 'a' && d <= 'f':
			v = int64(d-'a') + 10
		case d >= 'A' && d <= 'F':
			v = int64(d-'A') + 10
		}
		n = n*base + v
	}
	return n
}

func (l *Lexer) scanArithOperator(pos Position) (Lexeme, error) {
	r1, ok := l.read()
	if !ok {
		return Lexeme{Tok: token.EOF, Pos: pos}, nil
	}
	two := func(want rune, yes, no token.Token) (Lexeme, error) {
		if n, ok := l.peek(); ok && n.r == want {
			l.read()
			return Lexeme{Tok: yes, Pos: pos}, nil
		}
		return Lexeme{Tok: no, Pos: pos}, nil
	}
	switch r1.r {
	case '+':
		if n, ok := l.peek(); ok && n.r == '+' {
			l.read()
			return Lexeme{Tok: token.INCR, Pos: pos}, nil
		}
		return two('=', token.ADDASSIGN, token.PLUS)
	case '-':
		if n, ok := l.peek(); ok && n.r == '-' {
			l.read()
			return Lexeme{Tok: token.DECR, Pos: pos}, nil
		}
		return two('=', token.SUBASSIGN, token.MINUS)
	case '*':
		return two('=', token.MULASSIGN, token.STAR)
	case '/':
		return two('=', token.DIVASSIGN, token.SLASH)
	case '%':
		return two('=', token.MODASSIGN, token.PERCENT)
	case '~':
		return Lexeme{Tok: token.TILDE, Pos: pos}, nil
	case '^':
		return two('=', token.XORASSIGN, token.CARET)
	case '!':
		return two('=', token.NE, token.BANG)
	case '=':
		return two('=', token.EQ, token.ASSIGN)
	case '<':
		if n, ok := l.peek(); ok && n.r == '<' {
			l.read()
			return two('=', token.SHLASSIGN, token.SHL)
		}
		return two('=', token.LE, token.LT)
	case '>':
		if n, ok := l.peek(); ok && n.r == '>' {
			l.read()
			return two('=', token.SHRASSIGN, token.SHR)
		}
		return two('=', token.GE, token.GT)
	case '&':
		if n, ok := l.peek(); ok && n.r == '&' {
			l.read()
			return Lexeme{Tok: token.LAND, Pos: pos}, nil
		}
		return two('=', token.ANDASSIGN, token.AMP)
	case '|':
		if n, ok := l.peek(); ok && n.r == '|' {
			l.read()
			return Lexeme{Tok: token.LOR, Pos: pos}, nil
		}
		return two('=', token.ORASSIGN, token.PIPE)
	case '?':
		return Lexeme{Tok: token.QUESTION, Pos: pos}, nil
	case ':':
		return Lexeme{Tok: token.COLON, Pos: pos}, nil
	case ',':
		return Lexeme{Tok: token.COMMA, Pos: pos}, nil
	}
	return Lexeme{}, l.errorf(pos, false, "unknown operator character %q in arithmetic expression", r1.r)
}
