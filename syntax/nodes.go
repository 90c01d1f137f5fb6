// Package syntax implements the lexer, recursive-descent parser, and AST
// for the POSIX shell grammar: the character reader feeds the lexer,
// the lexer feeds the parser, and the parser produces the
// LogicalCommand tree the evaluation driver hands to the interpreter.
package syntax

import "fmt"

// Position is a 1-based (line, column) pair, produced by the character
// reader and propagated onto every token and AST node.
type Position struct {
	Line   uint64
	Column uint64
}

func (p Position) String() string {
	if p.Line == 0 {
		return "-"
	}
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// IsValid reports whether p was ever set by the reader.
func (p Position) IsValid() bool { return p.Line > 0 }

// Node is implemented by every AST type so callers can ask where a piece
// of syntax started.
type Node interface {
	Pos() Position
}

// ---- Words ----------------------------------------------------------

// WordElement is the outer word-part sum type: either a bare
// SimpleWordElement, or a quoted grouping of them.
type WordElement interface {
	Node
	wordElement()
}

// Simple wraps a SimpleWordElement appearing outside of any quoting.
type Simple struct {
	Position Position
	Elem     SimpleWordElement
}

func (s *Simple) Pos() Position { return s.Position }
func (*Simple) wordElement()    {}

// DoubleQuoted is a double-quoted run of SimpleWordElements; expansions
// are still recognized inside it, only field splitting and globbing are
// suppressed (handled downstream by the expander, not by this AST).
type DoubleQuoted struct {
	Position Position
	Parts    []SimpleWordElement
}

func (d *DoubleQuoted) Pos() Position { return d.Position }
func (*DoubleQuoted) wordElement()    {}

// SingleQuoted is a single-quoted literal: no expansions at all.
type SingleQuoted struct {
	Position Position
	Value    string
}

func (s *SingleQuoted) Pos() Position { return s.Position }
func (*SingleQuoted) wordElement()    {}

// SimpleWordElement is the innermost word-part sum type.
type SimpleWordElement interface {
	Node
	simpleWordElement()
}

// StringLit is raw literal text with no further structure (after
// backslash-escape resolution where applicable).
type StringLit struct {
	Position Position
	Value    string
}

func (s *StringLit) Pos() Position    { return s.Position }
func (*StringLit) simpleWordElement() {}

// ParamExp is a parameter reference, optionally modified by a
// ${X:-word}-family operator.
type ParamExp struct {
	Position Position
	Name     ParameterName
	Mod      *ParamModifier // nil if this is a bare $name / ${name}
}

func (p *ParamExp) Pos() Position    { return p.Position }
func (*ParamExp) simpleWordElement() {}

// ParamLength is ${#name}.
type ParamLength struct {
	Position Position
	Name     ParameterName
}

func (p *ParamLength) Pos() Position    { return p.Position }
func (*ParamLength) simpleWordElement() {}

// CommandSubstitution is $(...) or `...`.
type CommandSubstitution struct {
	Position Position
	Backtick bool
	Commands []*LogicalCommand
}

func (c *CommandSubstitution) Pos() Position    { return c.Position }
func (*CommandSubstitution) simpleWordElement() {}

// ArithmeticSubstitution is $((...)).
type ArithmeticSubstitution struct {
	Position Position
	Expr     ArithExpr
}

func (a *ArithmeticSubstitution) Pos() Position    { return a.Position }
func (*ArithmeticSubstitution) simpleWordElement() {}

// ParameterName is the sum type naming what a parameter expansion refers
// to: a shell variable, a positional parameter, or one of the special
// one-character parameters ($@ $* $# $? $$ $! $- $0).
type ParameterName interface {
	parameterName()
	String() string
}

// VarName is an ordinary named shell variable.
type VarName string

func (VarName) parameterName()  {}
func (v VarName) String() string { return string(v) }

// Positional is a numbered positional parameter ($1, $2, ... or ${10}).
type Positional int

func (Positional) parameterName()  {}
func (p Positional) String() string { return fmt.Sprintf("%d", int(p)) }

// Special is one of the one-character special parameters.
type Special byte

func (Special) parameterName()  {}
func (s Special) String() string { return string(rune(s)) }

// ParamModKind identifies which ${X...} modifier form is in play.
type ParamModKind int

const (
	ModUseDefault          ParamModKind = iota // ${X-word} / ${X:-word}
	ModAssignDefault                           // ${X=word} / ${X:=word}
	ModErrorIfUnset                            // ${X?word} / ${X:?word}
	ModUseAlternative                          // ${X+word} / ${X:+word}
	ModRemoveSmallestPrefix                     // ${X#pat}
	ModRemoveLargestPrefix                      // ${X##pat}
	ModRemoveSmallestSuffix                      // ${X%pat}
	ModRemoveLargestSuffix                      // ${X%%pat}
)

// ParamModifier is the (kind, word) pair captured by a ${X...} modifier.
// Colon distinguishes the ":"-prefixed forms, which additionally treat an
// empty-but-set parameter like an unset one, from the bare forms, which
// only look at whether the parameter is unset.
type ParamModifier struct {
	Kind  ParamModKind
	Colon bool
	Word  *Word // nil for an empty word, e.g. ${X:-}
}

// Word is an ordered sequence of word elements sharing one source
// position.
type Word struct {
	Path     string
	Position Position
	Elems    []WordElement
}

func (w *Word) Pos() Position { return w.Position }

// Lit returns true and the literal text if w is made up of nothing but
// unquoted/quoted string literals (no expansions), which is how the
// parser recognizes keywords, assignment names, and here-doc delimiters.
func (w *Word) Lit() (string, bool) {
	var out []byte
	for _, e := range w.Elems {
		switch e := e.(type) {
		case *Simple:
			s, ok := e.Elem.(*StringLit)
			if !ok {
				return "", false
			}
			out = append(out, s.Value...)
		case *SingleQuoted:
			out = append(out, e.Value...)
		case *DoubleQuoted:
			for _, p := range e.Parts {
				s, ok := p.(*StringLit)
				if !ok {
					return "", false
				}
				out = append(out, s.Value...)
			}
		default:
			return "", false
		}
	}
	return string(out), true
}

// IsQuoted reports whether any part of w came from single or double
// quoting (used to decide whether a here-doc delimiter disables
// expansion inside its body).
func (w *Word) IsQuoted() bool {
	for _, e := range w.Elems {
		switch e.(type) {
		case *SingleQuoted, *DoubleQuoted:
			return true
		}
	}
	return false
}

// ---- Redirections and here-documents --------------------------------

// RedirKind enumerates the shell's redirection operators.
type RedirKind int

const (
	RedirInput RedirKind = iota
	RedirOutput
	RedirAppend
	RedirInputOutput
	RedirInputDup
	RedirOutputDup
	RedirHereDoc
)

// Redirect is one redirection attached to a command.
type Redirect struct {
	Path     string
	Position Position
	Kind     RedirKind
	Clobber  bool // RedirOutput with >| overriding noclobber
	Fd       *int // explicit IO-number prefix, if any
	Word     *Word
	HereDoc  *HereDoc // set iff Kind == RedirHereDoc
}

func (r *Redirect) Pos() Position { return r.Position }

// HereDoc is a pending here-document cell: the parser allocates it when
// it sees << or <<-, registers it with the lexer's pending queue, and the
// lexer fills Body in once it reaches the next safe newline.
type HereDoc struct {
	Delim    string
	HasMinus bool
	IsQuoted bool
	Body     []SimpleWordElement
	Pending  bool
}

// ---- Commands ---------------------------------------------------------

// Assignment is one NAME=word pair recognized in command-prefix position.
type Assignment struct {
	Position Position
	Name     string
	Value    *Word
}

// SimpleCommand is assignments, redirections, and argument words without
// any compound keyword.
type SimpleCommand struct {
	Words     []*Word
	Redirs    []*Redirect
	Assigns   []*Assignment
}

// CompoundCommand is the sum of the seven compound-command shapes.
type CompoundCommand interface {
	Node
	compoundCommand()
}

// BraceGroup is `{ list ; }`.
type BraceGroup struct {
	Position Position
	Commands []*LogicalCommand
}

func (b *BraceGroup) Pos() Position  { return b.Position }
func (*BraceGroup) compoundCommand() {}

// Subshell is `( list )`.
type Subshell struct {
	Position Position
	Commands []*LogicalCommand
}

func (s *Subshell) Pos() Position  { return s.Position }
func (*Subshell) compoundCommand() {}

// ForClause is `for NAME [in words] ; do list done`. HasWordList is false
// when `in ...` was omitted, in which case the loop iterates over "$@" at
// invocation time.
type ForClause struct {
	Position    Position
	VarPos      Position
	Var         string
	HasWordList bool
	Words       []*Word
	Body        []*LogicalCommand
}

func (f *ForClause) Pos() Position  { return f.Position }
func (*ForClause) compoundCommand() {}

// CaseItem is one `(pattern [|pattern]*) list ;;` arm.
type CaseItem struct {
	Patterns []*Word
	Body     []*LogicalCommand
}

// CaseClause is `case W in ... esac`.
type CaseClause struct {
	Position Position
	Word     *Word
	Items    []CaseItem
}

func (c *CaseClause) Pos() Position { return c.Position }
func (*CaseClause) compoundCommand() {}

// ElifClause is one `elif list then list` arm.
type ElifClause struct {
	Cond []*LogicalCommand
	Then []*LogicalCommand
}

// IfClause is `if list then list (elif ...)* [else list] fi`.
type IfClause struct {
	Position Position
	Cond     []*LogicalCommand
	Then     []*LogicalCommand
	Elifs    []ElifClause
	Else     []*LogicalCommand
	HasElse  bool
}

func (i *IfClause) Pos() Position  { return i.Position }
func (*IfClause) compoundCommand() {}

// WhileClause is `while list do list done`.
type WhileClause struct {
	Position Position
	Cond     []*LogicalCommand
	Body     []*LogicalCommand
}

func (w *WhileClause) Pos() Position  { return w.Position }
func (*WhileClause) compoundCommand() {}

// UntilClause is `until list do list done`.
type UntilClause struct {
	Position Position
	Cond     []*LogicalCommand
	Body     []*LogicalCommand
}

func (u *UntilClause) Pos() Position  { return u.Position }
func (*UntilClause) compoundCommand() {}

// Command is the sum of simple commands, compound commands, and function
// definitions — anything that can stand alone in a PipeCommand.
type Command interface {
	Node
	command()
}

// SimpleCmd is a Command wrapping a SimpleCommand.
type SimpleCmd struct {
	Path     string
	Position Position
	Simple   SimpleCommand
}

func (s *SimpleCmd) Pos() Position { return s.Position }
func (*SimpleCmd) command()       {}

// CompoundCmd is a Command wrapping a CompoundCommand plus its own
// redirections.
type CompoundCmd struct {
	Path     string
	Position Position
	Compound CompoundCommand
	Redirs   []*Redirect
}

func (c *CompoundCmd) Pos() Position { return c.Position }
func (*CompoundCmd) command()       {}

// FunctionBody is a CompoundCommand plus its own redirects, shared by
// FuncDef.
type FunctionBody struct {
	Compound CompoundCommand
	Redirs   []*Redirect
}

// FuncDef is `name() compound-command`.
type FuncDef struct {
	Path     string
	Position Position
	Name     string
	Body     FunctionBody
}

func (f *FuncDef) Pos() Position { return f.Position }
func (*FuncDef) command()       {}

// PipeCommand is one or more commands joined by `|`, optionally negated.
type PipeCommand struct {
	Path     string
	Position Position
	Negate   bool
	Commands []Command
}

func (p *PipeCommand) Pos() Position { return p.Position }

// LogicalOp is && or ||.
type LogicalOp int

const (
	OpAnd LogicalOp = iota
	OpOr
)

// LogicalPair is one `&&`/`||` continuation of a LogicalCommand.
type LogicalPair struct {
	Op   LogicalOp
	Pipe *PipeCommand
}

// LogicalCommand is one top-level statement: a pipeline, possibly chained
// with && / || pairs, terminated by ; & newline or EOF.
type LogicalCommand struct {
	Path       string
	Position   Position
	First      *PipeCommand
	Pairs      []LogicalPair
	Background bool
}

func (l *LogicalCommand) Pos() Position { return l.Position }

// ---- Arithmetic expressions --------------------------------------------

// ArithExpr is the sum type for arithmetic expression nodes.
type ArithExpr interface {
	arithExpr()
}

// ArithNumber is an integer literal.
type ArithNumber struct{ Value int64 }

func (ArithNumber) arithExpr() {}

// ArithParam is a bare parameter reference inside an arithmetic context.
type ArithParam struct{ Name ParameterName }

func (ArithParam) arithExpr() {}

// ArithUnaryOp enumerates the unary arithmetic operators.
type ArithUnaryOp int

const (
	ArithNegate ArithUnaryOp = iota
	ArithUnaryPlus
	ArithLogicalNot
	ArithBitwiseNot
	ArithPrefixIncr
	ArithPrefixDecr
	ArithPostfixIncr
	ArithPostfixDecr
)

// ArithUnary is a unary arithmetic operation.
type ArithUnary struct {
	Op ArithUnaryOp
	X  ArithExpr
}

func (ArithUnary) arithExpr() {}

// ArithBinaryOp enumerates the binary arithmetic operators, including
// every compound-assignment variant and plain assignment.
type ArithBinaryOp int

const (
	ArithAdd ArithBinaryOp = iota
	ArithSub
	ArithMul
	ArithDiv
	ArithMod
	ArithBitAnd
	ArithBitOr
	ArithBitXor
	ArithShiftL
	ArithShiftR
	ArithLt
	ArithLe
	ArithGt
	ArithGe
	ArithEq
	ArithNe
	ArithLogicalAnd
	ArithLogicalOr
	ArithAssign
	ArithAddAssign
	ArithSubAssign
	ArithMulAssign
	ArithDivAssign
	ArithModAssign
	ArithAndAssign
	ArithOrAssign
	ArithXorAssign
	ArithShlAssign
	ArithShrAssign
)

// ArithBinary is a binary arithmetic operation; its occurrence covers
// every compound-assignment variant since those are just ArithBinary with
// an *Assign op and the same L/R shape.
type ArithBinary struct {
	Op   ArithBinaryOp
	X, Y ArithExpr
}

func (ArithBinary) arithExpr() {}

// ArithConditional is the ternary `cond ? then : else` operator.
type ArithConditional struct {
	Cond, Then, Else ArithExpr
}

func (ArithConditional) arithExpr() {}
