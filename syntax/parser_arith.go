package syntax

import "github.com/luckboy/rsush-sub000/token"

// Arithmetic expression parsing via a precedence-climbing chain.
// Each parseArith* function handles one precedence level, from lowest
// (assignment) to highest (postfix ++/--), with parseArithPrimary at the
// bottom unwrapping parenthesized sub-expressions, numeric literals,
// parameter references, and nested $((...)) substitutions.
//
// The ArithTerm-tagged EOF lexeme produced by the lexer's arithmetic
// tokenizer (see nextArith) propagates up through every level here
// unexamined; expectErr in parser.go is the only place that
// distinguishes it from a genuine end of input.

func (p *Parser) parseArithAssign() (ArithExpr, error) {
	lhs, err := p.parseArithConditional()
	if err != nil {
		return nil, err
	}
	lx, err := p.peek()
	if err != nil {
		return nil, err
	}
	var op ArithBinaryOp
	switch lx.Tok {
	case token.ASSIGN:
		op = ArithAssign
	case token.ADDASSIGN:
		op = ArithAddAssign
	case token.SUBASSIGN:
		op = ArithSubAssign
	case token.MULASSIGN:
		op = ArithMulAssign
	case token.DIVASSIGN:
		op = ArithDivAssign
	case token.MODASSIGN:
		op = ArithModAssign
	case token.ANDASSIGN:
		op = ArithAndAssign
	case token.ORASSIGN:
		op = ArithOrAssign
	case token.XORASSIGN:
		op = ArithXorAssign
	case token.SHLASSIGN:
		op = ArithShlAssign
	case token.SHRASSIGN:
		op = ArithShrAssign
	default:
		return lhs, nil
	}
	p.next()
	rhs, err := p.parseArithAssign() // right-associative
	if err != nil {
		return nil, err
	}
	return &ArithBinary{Op: op, X: lhs, Y: rhs}, nil
}

// parseArithConditional handles `cond ? then : else`, right-associative
// so that `a ? b : c ? d : e` groups as `a ? b : (c ? d : e)`.
func (p *Parser) parseArithConditional() (ArithExpr, error) {
	cond, err := p.parseArithLogicalOr()
	if err != nil {
		return nil, err
	}
	lx, err := p.peek()
	if err != nil {
		return nil, err
	}
	if lx.Tok != token.QUESTION {
		return cond, nil
	}
	p.next()
	then, err := p.parseArithAssign()
	if err != nil {
		return nil, err
	}
	if err := p.expectToken(token.COLON, "\":\""); err != nil {
		return nil, err
	}
	els, err := p.parseArithConditional()
	if err != nil {
		return nil, err
	}
	return &ArithConditional{Cond: cond, Then: then, Else: els}, nil
}

// binaryLevel parses a left-associative chain at one precedence level:
// next is the next-higher-precedence parser, and toOp maps a matched
// token to its ArithBinaryOp (ok=false means "not part of this level").
func (p *Parser) binaryLevel(next func() (ArithExpr, error), toOp func(token.Token) (ArithBinaryOp, bool)) (ArithExpr, error) {
	lhs, err := next()
	if err != nil {
		return nil, err
	}
	for {
		lx, err := p.peek()
		if err != nil {
			return nil, err
		}
		op, ok := toOp(lx.Tok)
		if !ok {
			return lhs, nil
		}
		p.next()
		rhs, err := next()
		if err != nil {
			return nil, err
		}
		lhs = &ArithBinary{Op: op, X: lhs, Y: rhs}
	}
}

func (p *Parser) parseArithLogicalOr() (ArithExpr, error) {
	return p.binaryLevel(p.parseArithLogicalAnd, func(t token.Token) (ArithBinaryOp, bool) {
		if t == token.LOR {
			return ArithLogicalOr, true
		}
		return 0, false
	})
}

func (p *Parser) parseArithLogicalAnd() (ArithExpr, error) {
	return p.binaryLevel(p.parseArithBitOr, func(t token.Token) (ArithBinaryOp, bool) {
		if t == token.LAND {
			return ArithLogicalAnd, true
		}
		return 0, false
	})
}

func (p *Parser) parseArithBitOr() (ArithExpr, error) {
	return p.binaryLevel(p.parseArithBitXor, func(t token.Token) (ArithBinaryOp, bool) {
		if t == token.PIPE {
			return ArithBitOr, true
		}
		return 0, false
	})
}

func (p *Parser) parseArithBitXor() (ArithExpr, error) {
	return p.binaryLevel(p.parseArithBitAnd, func(t token.Token) (ArithBinaryOp, bool) {
		if t == token.CARET {
			return ArithBitXor, true
		}
		return 0, false
	})
}

func (p *Parser) parseArithBitAnd() (ArithExpr, error) {
	return p.binaryLevel(p.parseArithEquality, func(t token.Token) (ArithBinaryOp, bool) {
		if t == token.AMP {
			return ArithBitAnd, true
		}
		return 0, false
	})
}

func (p *Parser) parseArithEquality() (ArithExpr, error) {
	return p.binaryLevel(p.parseArithRelational, func(t token.Token) (ArithBinaryOp, bool) {
		switch t {
		case token.EQ:
			return ArithEq, true
		case token.NE:
			return ArithNe, true
		}
		return 0, false
	})
}

func (p *Parser) parseArithRelational() (ArithExpr, error) {
	return p.binaryLevel(p.parseArithShift, func(t token.Token) (ArithBinaryOp, bool) {
		switch t {
		case token.LT:
			return ArithLt, true
		case token.LE:
			return ArithLe, true
		case token.GT:
			return ArithGt, true
		case token.GE:
			return ArithGe, true
		}
		return 0, false
	})
}

func (p *Parser) parseArithShift() (ArithExpr, error) {
	return p.binaryLevel(p.parseArithAdditive, func(t token.Token) (ArithBinaryOp, bool) {
		switch t {
		case token.SHL:
			return ArithShiftL, true
		case token.SHR:
			return ArithShiftR, true
		}
		return 0, false
	})
}

func (p *Parser) parseArithAdditive() (ArithExpr, error) {
	return p.binaryLevel(p.parseArithMultiplicative, func(t token.Token) (ArithBinaryOp, bool) {
		switch t {
		case token.PLUS:
			return ArithAdd, true
		case token.MINUS:
			return ArithSub, true
		}
		return 0, false
	})
}

func (p *Parser) parseArithMultiplicative() (ArithExpr, error) {
	return p.binaryLevel(p.parseArithUnary, func(t token.Token) (ArithBinaryOp, bool) {
		switch t {
		case token.STAR:
			return ArithMul, true
		case token.SLASH:
			return ArithDiv, true
		case token.PERCENT:
			return ArithMod, true
		}
		return 0, false
	})
}

func (p *Parser) parseArithUnary() (ArithExpr, error) {
	lx, err := p.peek()
	if err != nil {
		return nil, err
	}
	var op ArithUnaryOp
	switch lx.Tok {
	case token.PLUS:
		op = ArithUnaryPlus
	case token.MINUS:
		op = ArithNegate
	case token.BANG:
		op = ArithLogicalNot
	case token.TILDE:
		op = ArithBitwiseNot
	case token.INCR:
		op = ArithPrefixIncr
	case token.DECR:
		op = ArithPrefixDecr
	default:
		return p.parseArithPostfix()
	}
	p.next()
	x, err := p.parseArithUnary()
	if err != nil {
		return nil, err
	}
	return &ArithUnary{Op: op, X: x}, nil
}

func (p *Parser) parseArithPostfix() (ArithExpr, error) {
	x, err := p.parseArithPrimary()
	if err != nil {
		return nil, err
	}
	for {
		lx, err := p.peek()
		if err != nil {
			return nil, err
		}
		var op ArithUnaryOp
		switch lx.Tok {
		case token.INCR:
			op = ArithPostfixIncr
		case token.DECR:
			op = ArithPostfixDecr
		default:
			return x, nil
		}
		p.next()
		x = &ArithUnary{Op: op, X: x}
	}
}

func (p *Parser) parseArithPrimary() (ArithExpr, error) {
	lx, err := p.peek()
	if err != nil {
		return nil, err
	}
	switch lx.Tok {
	case token.LPAREN:
		p.next()
		inner, err := p.parseArithAssign()
		if err != nil {
			return nil, err
		}
		if err := p.expectToken(token.RPAREN, "\")\""); err != nil {
			return nil, err
		}
		return inner, nil
	case token.ARITH_NUMBER:
		p.next()
		return &ArithNumber{Value: lx.Num}, nil
	case token.WORD:
		p.next()
		return p.arithWordExpr(lx)
	}
	return nil, p.expectErr(lx, "arithmetic operand")
}

// arithWordExpr unwraps the single SimpleWordElement the arithmetic-mode
// lexer ever attaches to a WORD lexeme: a bare parameter reference or a
// nested arithmetic substitution. Anything else (command substitution,
// ${#name} length, multi-element words) cannot occur here because
// nextArith only ever constructs single-element words of those two
// kinds; it is guarded defensively in case that invariant is ever
// loosened.
func (p *Parser) arithWordExpr(lx Lexeme) (ArithExpr, error) {
	if lx.Word == nil || len(lx.Word.Elems) != 1 {
		return nil, p.errf(lx.Pos, "unsupported construct in arithmetic expression")
	}
	simple, ok := lx.Word.Elems[0].(*Simple)
	if !ok {
		return nil, p.errf(lx.Pos, "unsupported construct in arithmetic expression")
	}
	switch elem := simple.Elem.(type) {
	case *ParamExp:
		return &ArithParam{Name: elem.Name}, nil
	case *ArithmeticSubstitution:
		return elem.Expr, nil
	default:
		return nil, p.errf(lx.Pos, "unsupported construct in arithmetic expression")
	}
}
