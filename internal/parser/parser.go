// Package parser builds the syntax tree from the lexer's token stream.
// Statements are separated by newlines; blocks are delimited by
// do/then ... end.
package parser

import (
	"flowlang/internal/ast"
	"flowlang/internal/errs"
	"flowlang/internal/lexer"
)

type Parser struct {
	tokens []lexer.Token
	pos    int
}

func New(tokens []lexer.Token) *Parser {
	return &Parser{tokens: tokens}
}

// Parse tokenizes and parses a complete source text.
func Parse(src string) (*ast.Program, error) {
	tokens, err := lexer.Tokenize(src)
	if err != nil {
		return nil, err
	}
	return New(tokens).Parse()
}

func (p *Parser) Parse() (*ast.Program, error) {
	prog := &ast.Program{}
	for !p.atEnd() {
		if p.check(lexer.NEWLINE) {
			p.advance()
			continue
		}
		stmt, err := p.statement()
		if err != nil {
			return nil, err
		}
		prog.Statements = append(prog.Statements, stmt)
	}
	return prog, nil
}

func (p *Parser) statement() (ast.Statement, error) {
	switch p.peek().Type {
	case lexer.LET:
		return p.letStatement()
	case lexer.DEF:
		return p.defStatement()
	case lexer.IF:
		return p.ifStatement()
	case lexer.WHILE:
		return p.whileStatement()
	case lexer.FOR:
		return p.forStatement()
	case lexer.SHOW:
		return p.showStatement()
	case lexer.RETURN:
		return p.returnStatement()
	case lexer.IMPORT:
		return p.importStatement()
	case lexer.EXPORT:
		return p.exportStatement()
	case lexer.TRY:
		return p.tryStatement()
	default:
		line := p.peek().Line
		expr, err := p.expression()
		if err != nil {
			return nil, err
		}
		if err := p.endOfStatement(); err != nil {
			return nil, err
		}
		return &ast.ExprStmt{Node: ast.At(line), Expr: expr}, nil
	}
}

func (p *Parser) letStatement() (ast.Statement, error) {
	line := p.advance().Line
	name, err := p.identifier("variable name after 'let'")
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.BE); err != nil {
		return nil, err
	}
	expr, err := p.expression()
	if err != nil {
		return nil, err
	}
	if err := p.endOfStatement(); err != nil {
		return nil, err
	}
	return &ast.LetStmt{Node: ast.At(line), Name: name, Value: expr}, nil
}

func (p *Parser) defStatement() (ast.Statement, error) {
	line := p.advance().Line
	name, err := p.identifier("function name after 'def'")
	if err != nil {
		return nil, err
	}
	var params []ast.Parameter
	if p.check(lexer.WITH) {
		p.advance()
		params, err = p.parameters()
		if err != nil {
			return nil, err
		}
	}
	if _, err := p.expect(lexer.DO); err != nil {
		return nil, err
	}
	if err := p.newline(); err != nil {
		return nil, err
	}
	body, err := p.block(lexer.END)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.END); err != nil {
		return nil, err
	}
	if err := p.endOfStatement(); err != nil {
		return nil, err
	}
	return &ast.DefStmt{Node: ast.At(line), Name: name, Params: params, Body: body}, nil
}

// parameters parses a comma-separated list; a parameter may carry a
// default ('= expr') or a leading '...' marking it variadic.
func (p *Parser) parameters() ([]ast.Parameter, error) {
	var params []ast.Parameter
	for {
		variadic := false
		if p.check(lexer.ELLIPSIS) {
			p.advance()
			variadic = true
		}
		name, err := p.identifier("parameter name")
		if err != nil {
			return nil, err
		}
		var def ast.Expression
		if p.check(lexer.ASSIGN) {
			p.advance()
			def, err = p.expression()
			if err != nil {
				return nil, err
			}
		}
		params = append(params, ast.Parameter{Name: name, Default: def, Variadic: variadic})
		if !p.check(lexer.COMMA) {
			break
		}
		p.advance()
		p.skipNewlines()
	}
	return params, nil
}

func (p *Parser) ifStatement() (ast.Statement, error) {
	line := p.advance().Line
	cond, err := p.expression()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.THEN); err != nil {
		return nil, err
	}
	if err := p.newline(); err != nil {
		return nil, err
	}
	then, err := p.block(lexer.ELSE, lexer.END)
	if err != nil {
		return nil, err
	}
	var elseBranch []ast.Statement
	if p.check(lexer.ELSE) {
		p.advance()
		if p.check(lexer.IF) {
			// 'else if' nests as a single-statement else branch; the
			// nested if consumes its own 'end'.
			nested, err := p.ifStatement()
			if err != nil {
				return nil, err
			}
			return &ast.IfStmt{Node: ast.At(line), Condition: cond, Then: then,
				Else: []ast.Statement{nested}}, nil
		}
		if err := p.newline(); err != nil {
			return nil, err
		}
		elseBranch, err = p.block(lexer.END)
		if err != nil {
			return nil, err
		}
	}
	if _, err := p.expect(lexer.END); err != nil {
		return nil, err
	}
	if err := p.endOfStatement(); err != nil {
		return nil, err
	}
	return &ast.IfStmt{Node: ast.At(line), Condition: cond, Then: then, Else: elseBranch}, nil
}

func (p *Parser) whileStatement() (ast.Statement, error) {
	line := p.advance().Line
	cond, err := p.expression()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.DO); err != nil {
		return nil, err
	}
	if err := p.newline(); err != nil {
		return nil, err
	}
	body, err := p.block(lexer.END)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.END); err != nil {
		return nil, err
	}
	if err := p.endOfStatement(); err != nil {
		return nil, err
	}
	return &ast.WhileStmt{Node: ast.At(line), Condition: cond, Body: body}, nil
}

func (p *Parser) forStatement() (ast.Statement, error) {
	line := p.advance().Line
	name, err := p.identifier("loop variable after 'for'")
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.FROM); err != nil {
		return nil, err
	}
	start, err := p.expression()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.TO); err != nil {
		return nil, err
	}
	end, err := p.expression()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.DO); err != nil {
		return nil, err
	}
	if err := p.newline(); err != nil {
		return nil, err
	}
	body, err := p.block(lexer.END)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.END); err != nil {
		return nil, err
	}
	if err := p.endOfStatement(); err != nil {
		return nil, err
	}
	return &ast.ForStmt{Node: ast.At(line), Variable: name, Start: start, End: end, Body: body}, nil
}

func (p *Parser) showStatement() (ast.Statement, error) {
	line := p.advance().Line
	expr, err := p.expression()
	if err != nil {
		return nil, err
	}
	if err := p.endOfStatement(); err != nil {
		return nil, err
	}
	return &ast.ShowStmt{Node: ast.At(line), Value: expr}, nil
}

func (p *Parser) returnStatement() (ast.Statement, error) {
	line := p.advance().Line
	var expr ast.Expression
	if !p.check(lexer.NEWLINE) && !p.atEnd() {
		var err error
		expr, err = p.expression()
		if err != nil {
			return nil, err
		}
	}
	if err := p.endOfStatement(); err != nil {
		return nil, err
	}
	return &ast.ReturnStmt{Node: ast.At(line), Value: expr}, nil
}

func (p *Parser) importStatement() (ast.Statement, error) {
	line := p.advance().Line
	path, err := p.identifier("module name after 'import'")
	if err != nil {
		return nil, err
	}
	if err := p.endOfStatement(); err != nil {
		return nil, err
	}
	return &ast.ImportStmt{Node: ast.At(line), Path: path}, nil
}

func (p *Parser) exportStatement() (ast.Statement, error) {
	line := p.advance().Line
	decl, err := p.statement()
	if err != nil {
		return nil, err
	}
	return &ast.ExportStmt{Node: ast.At(line), Decl: decl}, nil
}

func (p *Parser) tryStatement() (ast.Statement, error) {
	line := p.advance().Line
	if err := p.newline(); err != nil {
		return nil, err
	}
	body, err := p.block(lexer.CATCH)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.CATCH); err != nil {
		return nil, err
	}
	name, err := p.identifier("error variable after 'catch'")
	if err != nil {
		return nil, err
	}
	if err := p.newline(); err != nil {
		return nil, err
	}
	catch, err := p.block(lexer.END)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.END); err != nil {
		return nil, err
	}
	if err := p.endOfStatement(); err != nil {
		return nil, err
	}
	return &ast.TryStmt{Node: ast.At(line), Body: body, CatchVar: name, Catch: catch}, nil
}

// block parses statements until one of the terminators or EOF, leaving
// the terminator unconsumed.
func (p *Parser) block(terminators ...lexer.TokenType) ([]ast.Statement, error) {
	var stmts []ast.Statement
	for !p.atEnd() {
		if p.check(lexer.NEWLINE) {
			p.advance()
			continue
		}
		stop := false
		for _, t := range terminators {
			if p.check(t) {
				stop = true
				break
			}
		}
		if stop {
			break
		}
		stmt, err := p.statement()
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, stmt)
	}
	return stmts, nil
}

// Expressions, by descending precedence.

func (p *Parser) expression() (ast.Expression, error) {
	return p.logicalOr()
}

func (p *Parser) logicalOr() (ast.Expression, error) {
	return p.binaryLevel(p.logicalAnd, map[lexer.TokenType]ast.BinaryOp{
		lexer.OR: ast.OpOr,
	})
}

func (p *Parser) logicalAnd() (ast.Expression, error) {
	return p.binaryLevel(p.equality, map[lexer.TokenType]ast.BinaryOp{
		lexer.AND: ast.OpAnd,
	})
}

func (p *Parser) equality() (ast.Expression, error) {
	return p.binaryLevel(p.comparison, map[lexer.TokenType]ast.BinaryOp{
		lexer.EQ:    ast.OpEqual,
		lexer.NOTEQ: ast.OpNotEqual,
	})
}

func (p *Parser) comparison() (ast.Expression, error) {
	return p.binaryLevel(p.term, map[lexer.TokenType]ast.BinaryOp{
		lexer.LT:   ast.OpLess,
		lexer.LTEQ: ast.OpLessEqual,
		lexer.GT:   ast.OpGreater,
		lexer.GTEQ: ast.OpGreaterEqual,
	})
}

func (p *Parser) term() (ast.Expression, error) {
	return p.binaryLevel(p.factor, map[lexer.TokenType]ast.BinaryOp{
		lexer.PLUS:  ast.OpAdd,
		lexer.MINUS: ast.OpSub,
	})
}

func (p *Parser) factor() (ast.Expression, error) {
	return p.binaryLevel(p.unary, map[lexer.TokenType]ast.BinaryOp{
		lexer.STAR:    ast.OpMul,
		lexer.SLASH:   ast.OpDiv,
		lexer.PERCENT: ast.OpMod,
	})
}

// binaryLevel parses a left-associative run of operators from ops.
func (p *Parser) binaryLevel(next func() (ast.Expression, error), ops map[lexer.TokenType]ast.BinaryOp) (ast.Expression, error) {
	left, err := next()
	if err != nil {
		return nil, err
	}
	for {
		op, ok := ops[p.peek().Type]
		if !ok {
			return left, nil
		}
		line := p.advance().Line
		right, err := next()
		if err != nil {
			return nil, err
		}
		left = &ast.BinaryExpr{Node: ast.At(line), Left: left, Operator: op, Right: right}
	}
}

func (p *Parser) unary() (ast.Expression, error) {
	switch p.peek().Type {
	case lexer.NOT:
		line := p.advance().Line
		operand, err := p.unary()
		if err != nil {
			return nil, err
		}
		return &ast.UnaryExpr{Node: ast.At(line), Operator: ast.OpNot, Operand: operand}, nil
	case lexer.MINUS:
		line := p.advance().Line
		operand, err := p.unary()
		if err != nil {
			return nil, err
		}
		return &ast.UnaryExpr{Node: ast.At(line), Operator: ast.OpNeg, Operand: operand}, nil
	}
	return p.postfix()
}

// postfix parses call, method call, property and index suffixes.
// Only bare names are callable, so f(x)(y) is rejected.
func (p *Parser) postfix() (ast.Expression, error) {
	expr, err := p.primary()
	if err != nil {
		return nil, err
	}
	for {
		switch p.peek().Type {
		case lexer.LPAREN:
			line := p.advance().Line
			args, err := p.arguments()
			if err != nil {
				return nil, err
			}
			ident, ok := expr.(*ast.Identifier)
			if !ok {
				return nil, errs.Syntax(line, "only named functions can be called")
			}
			expr = &ast.CallExpr{Node: ast.At(ident.Line), Name: ident.Name, Args: args}
		case lexer.DOT:
			line := p.advance().Line
			name, err := p.identifier("property name after '.'")
			if err != nil {
				return nil, err
			}
			if p.check(lexer.LPAREN) {
				p.advance()
				args, err := p.arguments()
				if err != nil {
					return nil, err
				}
				expr = &ast.MethodCallExpr{Node: ast.At(line), Object: expr, Method: name, Args: args}
			} else {
				expr = &ast.PropertyExpr{Node: ast.At(line), Object: expr, Property: name}
			}
		case lexer.LBRACKET:
			line := p.advance().Line
			index, err := p.expression()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(lexer.RBRACKET); err != nil {
				return nil, err
			}
			expr = &ast.IndexExpr{Node: ast.At(line), Object: expr, Index: index}
		default:
			return expr, nil
		}
	}
}

// arguments parses a comma-separated list up to ')'. The '(' has
// already been consumed.
func (p *Parser) arguments() ([]ast.Expression, error) {
	var args []ast.Expression
	if !p.check(lexer.RPAREN) {
		for {
			arg, err := p.expression()
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
			if !p.check(lexer.COMMA) {
				break
			}
			p.advance()
		}
	}
	if _, err := p.expect(lexer.RPAREN); err != nil {
		return nil, err
	}
	return args, nil
}

func (p *Parser) primary() (ast.Expression, error) {
	tok := p.peek()
	switch tok.Type {
	case lexer.INTEGER:
		p.advance()
		return &ast.IntegerLit{Node: ast.At(tok.Line), Value: tok.Int}, nil
	case lexer.BIGINTEGER:
		p.advance()
		return &ast.BigIntegerLit{Node: ast.At(tok.Line), Value: tok.Big}, nil
	case lexer.FLOAT:
		p.advance()
		return &ast.FloatLit{Node: ast.At(tok.Line), Value: tok.Float}, nil
	case lexer.STRING:
		p.advance()
		return &ast.StringLit{Node: ast.At(tok.Line), Value: tok.Lexeme}, nil
	case lexer.BOOLEAN:
		p.advance()
		return &ast.BooleanLit{Node: ast.At(tok.Line), Value: tok.Bool}, nil
	case lexer.NULL:
		p.advance()
		return &ast.NullLit{Node: ast.At(tok.Line)}, nil
	case lexer.IDENT:
		p.advance()
		return &ast.Identifier{Node: ast.At(tok.Line), Name: tok.Lexeme}, nil
	case lexer.LPAREN:
		if p.isLambda() {
			return p.lambda()
		}
		p.advance()
		expr, err := p.expression()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.RPAREN); err != nil {
			return nil, err
		}
		return expr, nil
	case lexer.LBRACKET:
		return p.arrayLiteral()
	case lexer.LBRACE:
		return p.objectLiteral()
	default:
		return nil, errs.Syntax(tok.Line, "expected expression, got %s", tok.Type)
	}
}

func (p *Parser) arrayLiteral() (ast.Expression, error) {
	line := p.advance().Line
	var elems []ast.Expression
	for {
		p.skipNewlines()
		if p.check(lexer.RBRACKET) {
			break
		}
		elem, err := p.expression()
		if err != nil {
			return nil, err
		}
		elems = append(elems, elem)
		p.skipNewlines()
		if !p.check(lexer.COMMA) {
			break
		}
		p.advance()
	}
	p.skipNewlines()
	if _, err := p.expect(lexer.RBRACKET); err != nil {
		return nil, err
	}
	return &ast.ArrayLit{Node: ast.At(line), Elements: elems}, nil
}

// objectLiteral parses { key: value, ... }; keys are identifiers or
// strings.
func (p *Parser) objectLiteral() (ast.Expression, error) {
	line := p.advance().Line
	var fields []ast.ObjectField
	for {
		p.skipNewlines()
		if p.check(lexer.RBRACE) {
			break
		}
		tok := p.peek()
		var key string
		switch tok.Type {
		case lexer.STRING, lexer.IDENT:
			key = tok.Lexeme
			p.advance()
		default:
			return nil, errs.Syntax(tok.Line, "expected object key, got %s", tok.Type)
		}
		if _, err := p.expect(lexer.COLON); err != nil {
			return nil, err
		}
		val, err := p.expression()
		if err != nil {
			return nil, err
		}
		fields = append(fields, ast.ObjectField{Key: key, Value: val})
		p.skipNewlines()
		if !p.check(lexer.COMMA) {
			break
		}
		p.advance()
	}
	p.skipNewlines()
	if _, err := p.expect(lexer.RBRACE); err != nil {
		return nil, err
	}
	return &ast.ObjectLit{Node: ast.At(line), Fields: fields}, nil
}

// isLambda looks past the balanced parenthesis group for '=>'.
func (p *Parser) isLambda() bool {
	depth := 0
	for i := p.pos; i < len(p.tokens); i++ {
		switch p.tokens[i].Type {
		case lexer.LPAREN:
			depth++
		case lexer.RPAREN:
			depth--
			if depth == 0 {
				return i+1 < len(p.tokens) && p.tokens[i+1].Type == lexer.ARROW
			}
		case lexer.NEWLINE, lexer.EOF:
			return false
		}
	}
	return false
}

func (p *Parser) lambda() (ast.Expression, error) {
	line := p.advance().Line // '('
	var params []ast.Parameter
	if !p.check(lexer.RPAREN) {
		var err error
		params, err = p.parameters()
		if err != nil {
			return nil, err
		}
	}
	if _, err := p.expect(lexer.RPAREN); err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.ARROW); err != nil {
		return nil, err
	}
	body, err := p.expression()
	if err != nil {
		return nil, err
	}
	return &ast.LambdaExpr{Node: ast.At(line), Params: params, Body: body}, nil
}

// Token plumbing.

func (p *Parser) peek() lexer.Token {
	return p.tokens[p.pos]
}

func (p *Parser) advance() lexer.Token {
	tok := p.tokens[p.pos]
	if !p.atEnd() {
		p.pos++
	}
	return tok
}

func (p *Parser) atEnd() bool {
	return p.tokens[p.pos].Type == lexer.EOF
}

func (p *Parser) check(t lexer.TokenType) bool {
	return p.peek().Type == t
}

func (p *Parser) expect(t lexer.TokenType) (lexer.Token, error) {
	if !p.check(t) {
		tok := p.peek()
		return tok, errs.Syntax(tok.Line, "expected %s, got %s", t, tok.Type)
	}
	return p.advance(), nil
}

func (p *Parser) identifier(what string) (string, error) {
	if !p.check(lexer.IDENT) {
		tok := p.peek()
		return "", errs.Syntax(tok.Line, "expected %s, got %s", what, tok.Type)
	}
	return p.advance().Lexeme, nil
}

func (p *Parser) newline() error {
	if !p.check(lexer.NEWLINE) {
		tok := p.peek()
		return errs.Syntax(tok.Line, "expected newline, got %s", tok.Type)
	}
	p.advance()
	return nil
}

// endOfStatement accepts a newline or end of input after a statement.
func (p *Parser) endOfStatement() error {
	if p.check(lexer.NEWLINE) {
		p.advance()
		return nil
	}
	if p.atEnd() {
		return nil
	}
	tok := p.peek()
	return errs.Syntax(tok.Line, "expected newline, got %s", tok.Type)
}

func (p *Parser) skipNewlines() {
	for p.check(lexer.NEWLINE) {
		p.advance()
	}
}
