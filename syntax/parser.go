package syntax

import (
	"strings"

	"github.com/luckboy/rsush-sub000/internal/iterutil"
	"github.com/luckboy/rsush-sub000/internal/reader"
	"github.com/luckboy/rsush-sub000/token"
)

// Parser is a recursive-descent parser. It owns a Lexer and supplies
// its ParseNested/ParseArith hooks so that command substitution and
// arithmetic substitution can recurse back into the same grammar
// mid-word.
type Parser struct {
	lx       *Lexer
	pb       *iterutil.Pushback[Lexeme]
	path     string
	fatalErr error

	// heredocs mirrors the lexer's pending-here-doc queue, owned here
	// purely to preserve left-to-right registration order (a queue of
	// pending here-docs accumulated since the last newline, parallel
	// to the lexer's but owned here for resolution order); the lexer
	// is what actually fills bodies in.
	heredocs []*HereDoc
}

// NewParser creates a Parser reading from rd. path annotates error
// positions and AST node Path fields.
func NewParser(rd *reader.Reader, path string) *Parser {
	lx := NewLexer(rd, path)
	p := &Parser{lx: lx, path: path}
	p.pb = iterutil.New[Lexeme](iterutil.SourceFunc[Lexeme](p.pull))
	lx.ParseNested = p.parseNestedCommands
	lx.ParseArith = p.parseArithNested
	return p
}

func (p *Parser) pull() (Lexeme, bool) {
	if p.fatalErr != nil {
		return Lexeme{}, false
	}
	lx, err := p.lx.Next()
	if err != nil {
		p.fatalErr = err
		return Lexeme{}, false
	}
	return lx, true
}

func (p *Parser) next() (Lexeme, error) {
	lx, ok := p.pb.Next()
	if !ok {
		return Lexeme{Tok: token.EOF}, p.fatalErr
	}
	return lx, nil
}

func (p *Parser) peek() (Lexeme, error) {
	lx, err := p.next()
	if err != nil {
		return lx, err
	}
	p.pb.Undo(lx)
	return lx, nil
}

// peekAt peeks n tokens ahead (0-based) without consuming any of them.
func (p *Parser) peekAt(n int) (Lexeme, error) {
	var buf []Lexeme
	var result Lexeme
	var rerr error
	for i := 0; i <= n; i++ {
		lx, err := p.next()
		if err != nil {
			rerr = err
			break
		}
		buf = append(buf, lx)
		if i == n {
			result = lx
		}
	}
	for i := len(buf) - 1; i >= 0; i-- {
		p.pb.Undo(buf[i])
	}
	return result, rerr
}

func (p *Parser) errf(pos Position, format string, args ...any) *SyntaxError {
	return p.lx.errorf(pos, false, format, args...)
}

func (p *Parser) contErrf(pos Position, format string, args ...any) *SyntaxError {
	return p.lx.errorf(pos, true, format, args...)
}

// expectErr builds the right error (continuation iff lx is a genuine
// end-of-input, not just an unexpected token) when lx wasn't what the
// grammar needed.
func (p *Parser) expectErr(lx Lexeme, want string) error {
	if lx.Tok == token.EOF {
		if lx.ArithTerm {
			return p.errf(lx.Pos, "syntax error, expected %s", want)
		}
		return p.contErrf(lx.Pos, "unexpected end of input, expected %s", want)
	}
	return p.errf(lx.Pos, "syntax error near unexpected token, expected %s", want)
}

func (p *Parser) expectToken(tok token.Token, want string) error {
	lx, err := p.peek()
	if err != nil {
		return err
	}
	if lx.Tok != tok {
		return p.expectErr(lx, want)
	}
	p.next()
	return nil
}

// wordKeyword reports the literal text of lx iff it is an unquoted WORD
// made up only of literal text — the only way a reserved word keeps its
// special meaning.
func (p *Parser) wordKeyword(lx Lexeme) (string, bool) {
	if lx.Tok != token.WORD || lx.Word == nil || lx.Word.IsQuoted() {
		return "", false
	}
	return lx.Word.Lit()
}

func (p *Parser) expectKeyword(kw string) error {
	lx, err := p.peek()
	if err != nil {
		return err
	}
	if lit, ok := p.wordKeyword(lx); ok && lit == kw {
		p.next()
		return nil
	}
	return p.expectErr(lx, "\""+kw+"\"")
}

func (p *Parser) stopAtKeyword(kws ...string) func(Lexeme) bool {
	return func(lx Lexeme) bool {
		lit, ok := p.wordKeyword(lx)
		if !ok {
			return false
		}
		for _, k := range kws {
			if lit == k {
				return true
			}
		}
		return false
	}
}

func (p *Parser) skipNewlines() error {
	for {
		lx, err := p.peek()
		if err != nil {
			return err
		}
		if lx.Tok != token.NEWLINE {
			return nil
		}
		p.next()
	}
}

// ---- entry points -------------------------------------------------------

// ParseLogicalCommands parses until EOF.
func (p *Parser) ParseLogicalCommands() ([]*LogicalCommand, error) {
	return p.parseCommandList(func(Lexeme) bool { return false }, nil)
}

// ParseLogicalCommandsForLine parses one logical line's worth of input
// out of the current buffer. eof reports that the buffer held no input
// at all. A non-nil err with IsContinuation true means the caller
// should read more input and retry a fresh parse of the extended
// buffer; the caller is expected to reconstruct a new Parser over the
// whole accumulated buffer each retry, so that is the caller's
// responsibility, not this method's.
func (p *Parser) ParseLogicalCommandsForLine() (cmds []*LogicalCommand, eof bool, err error) {
	lx, perr := p.peek()
	if perr != nil {
		return nil, false, perr
	}
	if lx.Tok == token.EOF {
		return nil, true, nil
	}
	cmds, err = p.parseCommandList(func(Lexeme) bool { return false }, nil)
	return cmds, false, err
}

// ParseWords parses a sequence of Word tokens until a non-word token,
// used by alias-expansion collaborators.
func (p *Parser) ParseWords() ([]*Word, error) {
	var words []*Word
	for {
		lx, err := p.peek()
		if err != nil {
			return nil, err
		}
		if lx.Tok != token.WORD {
			return words, nil
		}
		p.next()
		words = append(words, lx.Word)
	}
}

// ParseAliasCommand parses one SimpleCommand — the body of an alias.
func (p *Parser) ParseAliasCommand() (*SimpleCommand, error) {
	cmd, err := p.parseSimpleCmd()
	if err != nil {
		return nil, err
	}
	sc, ok := cmd.(*SimpleCmd)
	if !ok {
		return nil, p.errf(cmd.Pos(), "alias body must be a simple command")
	}
	return &sc.Simple, nil
}

// ParseArithExpr parses one arithmetic expression terminated by "))".
// The closing "))" itself is left for the caller (the lexer's
// $((...)) scanner) to consume as raw runes.
func (p *Parser) ParseArithExpr() (ArithExpr, error) {
	expr, err := p.parseArithAssign()
	if err != nil {
		return nil, err
	}
	lx, err := p.peek()
	if err != nil {
		return nil, err
	}
	if lx.Tok != token.EOF {
		return nil, p.errf(lx.Pos, "syntax error in arithmetic expression")
	}
	// Clears the cached sentinel from our own token pushback; it never
	// corresponded to a consumed rune (see nextArith), so this does not
	// disturb the raw stream the lexer reads "))" from next.
	p.next()
	return expr, nil
}

func (p *Parser) parseNestedCommands(lx *Lexer, stopBacktick bool) ([]*LogicalCommand, error) {
	var list []*LogicalCommand
	for {
		if err := p.skipNewlines(); err != nil {
			return nil, err
		}
		if stopBacktick {
			if rp, ok := p.lx.peek(); ok && rp.r == '`' {
				return list, nil
			}
		}
		tlx, err := p.peek()
		if err != nil {
			return nil, err
		}
		if tlx.Tok == token.EOF {
			return nil, p.contErrf(tlx.Pos, "unterminated command substitution")
		}
		if !stopBacktick && tlx.Tok == token.RPAREN {
			// Hand the ')' back to the lexer as a raw rune: the $(...)
			// scanner reads it from there, not from this token pushback.
			p.next()
			p.lx.unread(runePos{r: ')', p: tlx.Pos, ok: true})
			return list, nil
		}
		cmd, err := p.parseLogicalCommand()
		if err != nil {
			return nil, err
		}
		list = append(list, cmd)
	}
}

func (p *Parser) parseArithNested(lx *Lexer) (ArithExpr, error) {
	return p.ParseArithExpr()
}

// ---- command-list / logical-command grammar ----------------------------

// parseCommandList parses LogicalCommands until isStop reports true for
// the next token, or EOF. If eofErr is non-nil it is invoked (instead of
// returning the list successfully) when EOF is reached before isStop
// does, which is how compound constructs left open report a continuable
// syntax error.
func (p *Parser) parseCommandList(isStop func(Lexeme) bool, eofErr func(Position) error) ([]*LogicalCommand, error) {
	var list []*LogicalCommand
	for {
		if err := p.skipNewlines(); err != nil {
			return nil, err
		}
		lx, err := p.peek()
		if err != nil {
			return nil, err
		}
		if lx.Tok == token.EOF {
			if eofErr != nil {
				return nil, eofErr(lx.Pos)
			}
			return list, nil
		}
		if isStop(lx) {
			return list, nil
		}
		cmd, err := p.parseLogicalCommand()
		if err != nil {
			return nil, err
		}
		list = append(list, cmd)
	}
}

func (p *Parser) parseLogicalCommand() (*LogicalCommand, error) {
	start, err := p.peek()
	if err != nil {
		return nil, err
	}
	pos := start.Pos
	first, err := p.parsePipeCommand()
	if err != nil {
		return nil, err
	}
	var pairs []LogicalPair
	for {
		lx, err := p.peek()
		if err != nil {
			return nil, err
		}
		if lx.Tok != token.ANDAND && lx.Tok != token.OROR {
			break
		}
		p.next()
		if err := p.skipNewlines(); err != nil {
			return nil, err
		}
		pipe, err := p.parsePipeCommand()
		if err != nil {
			return nil, err
		}
		op := OpAnd
		if lx.Tok == token.OROR {
			op = OpOr
		}
		pairs = append(pairs, LogicalPair{Op: op, Pipe: pipe})
	}
	background := false
	lx, err := p.peek()
	if err != nil {
		return nil, err
	}
	switch lx.Tok {
	case token.AMP:
		p.next()
		background = true
	case token.SEMICOLON:
		p.next()
	}
	return &LogicalCommand{Path: p.path, Position: pos, First: first, Pairs: pairs, Background: background}, nil
}

func (p *Parser) parsePipeCommand() (*PipeCommand, error) {
	lx, err := p.peek()
	if err != nil {
		return nil, err
	}
	pos := lx.Pos
	negate := false
	if lx.Tok == token.BANG {
		p.next()
		negate = true
	}
	cmd, err := p.parseCommand()
	if err != nil {
		return nil, err
	}
	cmds := []Command{cmd}
	for {
		plx, err := p.peek()
		if err != nil {
			return nil, err
		}
		if plx.Tok != token.PIPE {
			break
		}
		p.next()
		if err := p.skipNewlines(); err != nil {
			return nil, err
		}
		cmd2, err := p.parseCommand()
		if err != nil {
			return nil, err
		}
		cmds = append(cmds, cmd2)
	}
	return &PipeCommand{Path: p.path, Position: pos, Negate: negate, Commands: cmds}, nil
}

var nameCompoundKeywords = map[string]bool{
	"for": true, "case": true, "if": true, "while": true, "until": true,
}

func (p *Parser) parseCommand() (Command, error) {
	lx, err := p.peek()
	if err != nil {
		return nil, err
	}
	switch lx.Tok {
	case token.LBRACE:
		return p.parseCompound(p.parseBraceGroup)
	case token.LPAREN:
		return p.parseCompound(p.parseSubshell)
	case token.WORD:
		if lit, ok := p.wordKeyword(lx); ok {
			switch lit {
			case "for":
				return p.parseCompound(p.parseForClause)
			case "case":
				return p.parseCompound(p.parseCaseClause)
			case "if":
				return p.parseCompound(p.parseIfClause)
			case "while":
				return p.parseCompound(p.parseWhileClause)
			case "until":
				return p.parseCompound(p.parseUntilClause)
			}
			if isName(lit) {
				l1, err := p.peekAt(1)
				if err == nil && l1.Tok == token.LPAREN {
					l2, err := p.peekAt(2)
					if err == nil && l2.Tok == token.RPAREN {
						return p.parseFuncDef(lit, lx.Pos)
					}
				}
			}
		}
	}
	return p.parseSimpleCmd()
}

func (p *Parser) parseCompound(fn func() (CompoundCommand, error)) (Command, error) {
	lx, err := p.peek()
	if err != nil {
		return nil, err
	}
	pos := lx.Pos
	cc, err := fn()
	if err != nil {
		return nil, err
	}
	redirs, err := p.parseRedirects()
	if err != nil {
		return nil, err
	}
	return &CompoundCmd{Path: p.path, Position: pos, Compound: cc, Redirs: redirs}, nil
}

func (p *Parser) parseFuncDef(name string, pos Position) (Command, error) {
	p.next() // name
	p.next() // (
	p.next() // )
	if err := p.skipNewlines(); err != nil {
		return nil, err
	}
	lx, err := p.peek()
	if err != nil {
		return nil, err
	}
	var cc CompoundCommand
	switch lx.Tok {
	case token.LBRACE:
		cc, err = p.parseBraceGroup()
	case token.LPAREN:
		cc, err = p.parseSubshell()
	default:
		if lit, ok := p.wordKeyword(lx); ok && nameCompoundKeywords[lit] {
			switch lit {
			case "for":
				cc, err = p.parseForClause()
			case "case":
				cc, err = p.parseCaseClause()
			case "if":
				cc, err = p.parseIfClause()
			case "while":
				cc, err = p.parseWhileClause()
			case "until":
				cc, err = p.parseUntilClause()
			}
		} else {
			return nil, p.expectErr(lx, "function body")
		}
	}
	if err != nil {
		return nil, err
	}
	redirs, err := p.parseRedirects()
	if err != nil {
		return nil, err
	}
	return &FuncDef{Path: p.path, Position: pos, Name: name, Body: FunctionBody{Compound: cc, Redirs: redirs}}, nil
}

// ---- compound commands --------------------------------------------------

func (p *Parser) parseBraceGroup() (CompoundCommand, error) {
	lx, _ := p.next() // {
	pos := lx.Pos
	list, err := p.parseCommandList(func(lx Lexeme) bool { return lx.Tok == token.RBRACE },
		func(p2 Position) error { return p.contErrf(p2, "unexpected end of input, expected \"}\"") })
	if err != nil {
		return nil, err
	}
	if err := p.expectToken(token.RBRACE, "\"}\""); err != nil {
		return nil, err
	}
	return &BraceGroup{Position: pos, Commands: list}, nil
}

func (p *Parser) parseSubshell() (CompoundCommand, error) {
	lx, _ := p.next() // (
	pos := lx.Pos
	list, err := p.parseCommandList(func(lx Lexeme) bool { return lx.Tok == token.RPAREN },
		func(p2 Position) error { return p.contErrf(p2, "unexpected end of input, expected \")\"") })
	if err != nil {
		return nil, err
	}
	if err := p.expectToken(token.RPAREN, "\")\""); err != nil {
		return nil, err
	}
	return &Subshell{Position: pos, Commands: list}, nil
}

func (p *Parser) parseForClause() (CompoundCommand, error) {
	kw, _ := p.next() // "for"
	pos := kw.Pos
	lx, err := p.peek()
	if err != nil {
		return nil, err
	}
	name, ok := p.wordKeyword(lx)
	if lx.Tok != token.WORD || !ok || !isName(name) {
		return nil, p.expectErr(lx, "name")
	}
	varPos := lx.Pos
	p.next()
	if err := p.skipNewlines(); err != nil {
		return nil, err
	}
	hasWordList := false
	var words []*Word
	lx2, err := p.peek()
	if err != nil {
		return nil, err
	}
	if lit, ok := p.wordKeyword(lx2); ok && lit == "in" {
		p.next()
		hasWordList = true
		for {
			wlx, err := p.peek()
			if err != nil {
				return nil, err
			}
			if wlx.Tok != token.WORD {
				break
			}
			words = append(words, wlx.Word)
			p.next()
		}
		tlx, err := p.peek()
		if err != nil {
			return nil, err
		}
		switch tlx.Tok {
		case token.SEMICOLON, token.NEWLINE:
			p.next()
		default:
			return nil, p.expectErr(tlx, "\";\" or newline")
		}
	} else {
		switch lx2.Tok {
		case token.SEMICOLON, token.NEWLINE:
			p.next()
		}
	}
	if err := p.skipNewlines(); err != nil {
		return nil, err
	}
	if err := p.expectKeyword("do"); err != nil {
		return nil, err
	}
	body, err := p.parseCommandList(p.stopAtKeyword("done"),
		func(p2 Position) error { return p.contErrf(p2, "unexpected end of input, expected \"done\"") })
	if err != nil {
		return nil, err
	}
	if err := p.expectKeyword("done"); err != nil {
		return nil, err
	}
	return &ForClause{Position: pos, VarPos: varPos, Var: name, HasWordList: hasWordList, Words: words, Body: body}, nil
}

func (p *Parser) parseCaseClause() (CompoundCommand, error) {
	kw, _ := p.next() // "case"
	pos := kw.Pos
	wlx, err := p.peek()
	if err != nil {
		return nil, err
	}
	if wlx.Tok != token.WORD {
		return nil, p.expectErr(wlx, "word")
	}
	p.next()
	if err := p.skipNewlines(); err != nil {
		return nil, err
	}
	if err := p.expectKeyword("in"); err != nil {
		return nil, err
	}
	if err := p.skipNewlines(); err != nil {
		return nil, err
	}
	var items []CaseItem
	for {
		lx, err := p.peek()
		if err != nil {
			return nil, err
		}
		if lit, ok := p.wordKeyword(lx); ok && lit == "esac" {
			break
		}
		if lx.Tok == token.EOF {
			return nil, p.contErrf(lx.Pos, "unexpected end of input, expected \"esac\"")
		}
		item, err := p.parseCaseItem()
		if err != nil {
			return nil, err
		}
		items = append(items, item)
		if err := p.skipNewlines(); err != nil {
			return nil, err
		}
	}
	p.next() // esac
	return &CaseClause{Position: pos, Word: wlx.Word, Items: items}, nil
}

func (p *Parser) caseItemStop(lx Lexeme) bool {
	if lx.Tok == token.DSEMI {
		return true
	}
	lit, ok := p.wordKeyword(lx)
	return ok && lit == "esac"
}

func (p *Parser) parseCaseItem() (CaseItem, error) {
	lx, err := p.peek()
	if err != nil {
		return CaseItem{}, err
	}
	if lx.Tok == token.LPAREN {
		p.next()
	}
	var patterns []*Word
	for {
		plx, err := p.peek()
		if err != nil {
			return CaseItem{}, err
		}
		if plx.Tok != token.WORD {
			return CaseItem{}, p.expectErr(plx, "pattern")
		}
		patterns = append(patterns, plx.Word)
		p.next()
		nlx, err := p.peek()
		if err != nil {
			return CaseItem{}, err
		}
		if nlx.Tok == token.PIPE {
			p.next()
			continue
		}
		break
	}
	if err := p.expectToken(token.RPAREN, "\")\""); err != nil {
		return CaseItem{}, err
	}
	if err := p.skipNewlines(); err != nil {
		return CaseItem{}, err
	}
	body, err := p.parseCommandList(p.caseItemStop,
		func(p2 Position) error { return p.contErrf(p2, "unexpected end of input, expected \";;\" or \"esac\"") })
	if err != nil {
		return CaseItem{}, err
	}
	lx2, err := p.peek()
	if err != nil {
		return CaseItem{}, err
	}
	if lx2.Tok == token.DSEMI {
		p.next()
	}
	return CaseItem{Patterns: patterns, Body: body}, nil
}

func (p *Parser) parseIfClause() (CompoundCommand, error) {
	kw, _ := p.next() // "if"
	pos := kw.Pos
	condEOF := func(p2 Position) error { return p.contErrf(p2, "unexpected end of input, expected \"then\"") }
	cond, err := p.parseCommandList(p.stopAtKeyword("then"), condEOF)
	if err != nil {
		return nil, err
	}
	if err := p.expectKeyword("then"); err != nil {
		return nil, err
	}
	thenEOF := func(p2 Position) error { return p.contErrf(p2, "unexpected end of input, expected \"fi\"") }
	thenList, err := p.parseCommandList(p.stopAtKeyword("elif", "else", "fi"), thenEOF)
	if err != nil {
		return nil, err
	}
	var elifs []ElifClause
	for {
		lx, err := p.peek()
		if err != nil {
			return nil, err
		}
		lit, ok := p.wordKeyword(lx)
		if !ok || lit != "elif" {
			break
		}
		p.next()
		econd, err := p.parseCommandList(p.stopAtKeyword("then"), condEOF)
		if err != nil {
			return nil, err
		}
		if err := p.expectKeyword("then"); err != nil {
			return nil, err
		}
		ethen, err := p.parseCommandList(p.stopAtKeyword("elif", "else", "fi"), thenEOF)
		if err != nil {
			return nil, err
		}
		elifs = append(elifs, ElifClause{Cond: econd, Then: ethen})
	}
	hasElse := false
	var elseList []*LogicalCommand
	lx2, err := p.peek()
	if err != nil {
		return nil, err
	}
	if lit, ok := p.wordKeyword(lx2); ok && lit == "else" {
		p.next()
		hasElse = true
		elseList, err = p.parseCommandList(p.stopAtKeyword("fi"),
			func(p2 Position) error { return p.contErrf(p2, "unexpected end of input, expected \"fi\"") })
		if err != nil {
			return nil, err
		}
	}
	if err := p.expectKeyword("fi"); err != nil {
		return nil, err
	}
	return &IfClause{Position: pos, Cond: cond, Then: thenList, Elifs: elifs, Else: elseList, HasElse: hasElse}, nil
}

func (p *Parser) parseWhileUntil(isUntil bool) (CompoundCommand, error) {
	kw, _ := p.next()
	pos := kw.Pos
	cond, err := p.parseCommandList(p.stopAtKeyword("do"),
		func(p2 Position) error { return p.contErrf(p2, "unexpected end of input, expected \"do\"") })
	if err != nil {
		return nil, err
	}
	if err := p.expectKeyword("do"); err != nil {
		return nil, err
	}
	body, err := p.parseCommandList(p.stopAtKeyword("done"),
		func(p2 Position) error { return p.contErrf(p2, "unexpected end of input, expected \"done\"") })
	if err != nil {
		return nil, err
	}
	if err := p.expectKeyword("done"); err != nil {
		return nil, err
	}
	if isUntil {
		return &UntilClause{Position: pos, Cond: cond, Body: body}, nil
	}
	return &WhileClause{Position: pos, Cond: cond, Body: body}, nil
}

func (p *Parser) parseWhileClause() (CompoundCommand, error) { return p.parseWhileUntil(false) }
func (p *Parser) parseUntilClause() (CompoundCommand, error) { return p.parseWhileUntil(true) }

// ---- simple commands, redirections, assignments -------------------------

func isRedirTok(tok token.Token) bool {
	switch tok {
	case token.LESS, token.GREAT, token.GREATGREAT, token.LESSAMP, token.GREATAMP,
		token.LESSGREAT, token.GREATPIPE, token.LESSLESS, token.LESSLESSMINUS:
		return true
	}
	return false
}

func redirKindFor(tok token.Token) RedirKind {
	switch tok {
	case token.LESS:
		return RedirInput
	case token.GREAT, token.GREATPIPE:
		return RedirOutput
	case token.GREATGREAT:
		return RedirAppend
	case token.LESSGREAT:
		return RedirInputOutput
	case token.LESSAMP:
		return RedirInputDup
	case token.GREATAMP:
		return RedirOutputDup
	}
	return RedirOutput
}

func (p *Parser) parseRedirects() ([]*Redirect, error) {
	var redirs []*Redirect
	for {
		lx, err := p.peek()
		if err != nil {
			return nil, err
		}
		if !isRedirTok(lx.Tok) {
			return redirs, nil
		}
		r, err := p.parseRedirect(lx)
		if err != nil {
			return nil, err
		}
		redirs = append(redirs, r)
	}
}

func (p *Parser) parseRedirect(lx Lexeme) (*Redirect, error) {
	pos := lx.Pos
	fd := lx.Fd
	kindTok := lx.Tok
	p.next()
	if kindTok == token.LESSLESS || kindTok == token.LESSLESSMINUS {
		wlx, err := p.peek()
		if err != nil {
			return nil, err
		}
		if wlx.Tok != token.WORD {
			return nil, p.expectErr(wlx, "here-document delimiter")
		}
		p.next()
		delim, ok := wlx.Word.Lit()
		if !ok {
			delim = rawWordText(wlx.Word)
		}
		hd := &HereDoc{Delim: delim, HasMinus: kindTok == token.LESSLESSMINUS, IsQuoted: wlx.Word.IsQuoted()}
		p.lx.RegisterHeredoc(hd)
		p.heredocs = append(p.heredocs, hd)
		return &Redirect{Path: p.path, Position: pos, Kind: RedirHereDoc, Fd: fd, Word: wlx.Word, HereDoc: hd}, nil
	}
	wlx, err := p.peek()
	if err != nil {
		return nil, err
	}
	if wlx.Tok != token.WORD {
		return nil, p.expectErr(wlx, "redirection target")
	}
	p.next()
	return &Redirect{
		Path: p.path, Position: pos, Kind: redirKindFor(kindTok),
		Clobber: kindTok == token.GREATPIPE, Fd: fd, Word: wlx.Word,
	}, nil
}

// rawWordText best-effort reconstructs a word's literal text even when it
// contains an expansion, for the rare case of a here-doc delimiter that
// is not representable as a pure literal (e.g. a stray unescaped `$`
// the lexer parsed as a parameter reference). Real shells treat such
// delimiters literally too; this only affects that corner case.
func rawWordText(w *Word) string {
	var b strings.Builder
	for _, e := range w.Elems {
		switch e := e.(type) {
		case *Simple:
			if s, ok := e.Elem.(*StringLit); ok {
				b.WriteString(s.Value)
			}
		case *SingleQuoted:
			b.WriteString(e.Value)
		case *DoubleQuoted:
			for _, pt := range e.Parts {
				if s, ok := pt.(*StringLit); ok {
					b.WriteString(s.Value)
				}
			}
		}
	}
	return b.String()
}

func isName(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		if i == 0 {
			if !isNameStart(r) {
				return false
			}
			continue
		}
		if !isNameCont(r) {
			return false
		}
	}
	return true
}

// tryAssignment reports whether w starts with an unquoted NAME= prefix,
// splitting it into the assignment name and the remaining word (the text
// after '=' followed by whatever word elements came after it).
func tryAssignment(w *Word) (string, *Word, bool) {
	if len(w.Elems) == 0 {
		return "", nil, false
	}
	first, ok := w.Elems[0].(*Simple)
	if !ok {
		return "", nil, false
	}
	s, ok := first.Elem.(*StringLit)
	if !ok {
		return "", nil, false
	}
	idx := strings.IndexByte(s.Value, '=')
	if idx <= 0 {
		return "", nil, false
	}
	name := s.Value[:idx]
	if !isName(name) {
		return "", nil, false
	}
	rest := s.Value[idx+1:]
	var valElems []WordElement
	if rest != "" {
		valElems = append(valElems, &Simple{Position: first.Position, Elem: &StringLit{Position: s.Position, Value: rest}})
	}
	valElems = append(valElems, w.Elems[1:]...)
	return name, &Word{Path: w.Path, Position: w.Position, Elems: valElems}, true
}

func (p *Parser) parseSimpleCmd() (Command, error) {
	lx, err := p.peek()
	if err != nil {
		return nil, err
	}
	pos := lx.Pos
	var assigns []*Assignment
	var redirs []*Redirect
	var words []*Word
	for {
		l, err := p.peek()
		if err != nil {
			return nil, err
		}
		if isRedirTok(l.Tok) {
			r, err := p.parseRedirect(l)
			if err != nil {
				return nil, err
			}
			redirs = append(redirs, r)
			continue
		}
		if l.Tok == token.WORD && len(words) == 0 {
			if name, val, ok := tryAssignment(l.Word); ok {
				p.next()
				assigns = append(assigns, &Assignment{Position: l.Pos, Name: name, Value: val})
				continue
			}
		}
		break
	}
	for {
		l, err := p.peek()
		if err != nil {
			return nil, err
		}
		if isRedirTok(l.Tok) {
			r, err := p.parseRedirect(l)
			if err != nil {
				return nil, err
			}
			redirs = append(redirs, r)
			continue
		}
		if l.Tok == token.WORD {
			words = append(words, l.Word)
			p.next()
			continue
		}
		break
	}
	if len(words) == 0 && len(assigns) == 0 && len(redirs) == 0 {
		return nil, p.expectErr(lx, "command")
	}
	return &SimpleCmd{Path: p.path, Position: pos, Simple: SimpleCommand{Words: words, Redirs: redirs, Assigns: assigns}}, nil
}
