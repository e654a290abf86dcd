// Package parser implements the recursive-descent parser that turns a
// token stream into a sequence of declarations (the program), following
// the precedence chain comma -> assignment -> ternary -> logic_or ->
// logic_and -> equality -> comparison -> term -> factor -> unary -> call
// -> primary.
package parser

import (
	"github.com/mihaimaganu17/malis/ast"
	"github.com/mihaimaganu17/malis/diagnostics"
	"github.com/mihaimaganu17/malis/lexer"
	"github.com/mihaimaganu17/malis/token"
)

const maxArgs = 255

type Parser struct {
	tokens   []token.Token
	pos      int
	reporter *diagnostics.Reporter
}

// New scans source with the lexer and prepares a parser over the result.
// Lex errors land on the same reporter as parse errors.
func New(source string, reporter *diagnostics.Reporter) *Parser {
	tokens := lexer.Tokenize(source, reporter)
	return &Parser{tokens: tokens, reporter: reporter}
}

// Parse consumes the whole token stream and returns the program's
// top-level declarations. On a parse error the parser resynchronizes at
// the next statement boundary and keeps going so all errors in a file are
// reported together.
func (p *Parser) Parse() []ast.Stmt {
	var stmts []ast.Stmt
	for !p.isAtEnd() {
		stmt := p.declaration()
		if stmt != nil {
			stmts = append(stmts, stmt)
		}
	}
	return stmts
}

// ---------- token stream helpers ----------

func (p *Parser) peek() token.Token     { return p.tokens[p.pos] }
func (p *Parser) previous() token.Token { return p.tokens[p.pos-1] }
func (p *Parser) isAtEnd() bool         { return p.peek().Type == token.EOF }

func (p *Parser) advance() token.Token {
	tok := p.peek()
	if !p.isAtEnd() {
		p.pos++
	}
	return tok
}

func (p *Parser) check(t token.Type) bool {
	return p.peek().Type == t
}

func (p *Parser) match(types ...token.Type) bool {
	for _, t := range types {
		if p.check(t) {
			p.advance()
			return true
		}
	}
	return false
}

// parseError is a sentinel used to unwind to the nearest recovery point
// (synchronize) without hand-threading error returns through every
// production. It never escapes the parser package.
type parseError struct{}

func (p *Parser) errorAt(tok token.Token, format string, args ...interface{}) parseError {
	p.reporter.Report(diagnostics.Parse, tok.Pos, format, args...)
	return parseError{}
}

func (p *Parser) consume(t token.Type, format string, args ...interface{}) token.Token {
	if p.check(t) {
		return p.advance()
	}
	panic(p.errorAt(p.peek(), format, args...))
}

// synchronize discards tokens until a statement boundary: after a ';' or
// before a keyword that starts a new declaration/statement.
func (p *Parser) synchronize() {
	p.advance()
	for !p.isAtEnd() {
		if p.previous().Type == token.Semicolon {
			return
		}
		switch p.peek().Type {
		case token.Class, token.Fun, token.Var, token.For, token.If, token.While, token.Print, token.Return:
			return
		}
		p.advance()
	}
}

// recover turns a parseError panic into a nil declaration after
// resynchronizing; any other panic propagates.
func (p *Parser) recover(stmt *ast.Stmt) {
	if r := recover(); r != nil {
		if _, ok := r.(parseError); ok {
			p.synchronize()
			*stmt = nil
			return
		}
		panic(r)
	}
}

// ---------- declarations ----------

func (p *Parser) declaration() (stmt ast.Stmt) {
	defer p.recover(&stmt)

	switch {
	case p.match(token.Class):
		return p.classDecl()
	case p.match(token.Fun):
		return p.function(ast.FunctionKindFunction)
	case p.match(token.Var):
		return p.varDecl()
	default:
		return p.statement()
	}
}

func (p *Parser) classDecl() ast.Stmt {
	name := p.consume(token.Identifier, "expected class name")

	var superclass *ast.Variable
	if p.match(token.Less) {
		superName := p.consume(token.Identifier, "expected superclass name")
		superclass = &ast.Variable{Name: superName, ID: ast.NewID()}
	}

	p.consume(token.LeftBrace, "expected '{' before class body")
	var methods []*ast.FunctionStmt
	for !p.check(token.RightBrace) && !p.isAtEnd() {
		kind := ast.FunctionKindMethod
		if p.check(token.Identifier) && p.peek().Lexeme == "init" {
			kind = ast.FunctionKindInitializer
		}
		methods = append(methods, p.function(kind))
	}
	p.consume(token.RightBrace, "expected '}' after class body")

	return &ast.ClassStmt{Name: name, Superclass: superclass, Methods: methods}
}

// function parses `IDENT "(" parameters? ")" block`. It is shared between
// funDecl and method declarations inside a class body; kind distinguishes
// plain functions, methods, and initializers for the resolver/interpreter.
func (p *Parser) function(kind ast.FunctionKind) *ast.FunctionStmt {
	name := p.consume(token.Identifier, "expected function name")
	p.consume(token.LeftParen, "expected '(' after function name")

	var params []token.Token
	if !p.check(token.RightParen) {
		for {
			if len(params) >= maxArgs {
				p.errorAt(p.peek(), "can't have more than %d parameters", maxArgs)
			}
			params = append(params, p.consume(token.Identifier, "expected parameter name"))
			if !p.match(token.Comma) {
				break
			}
		}
	}
	p.consume(token.RightParen, "expected ')' after parameters")

	p.consume(token.LeftBrace, "expected '{' before function body")
	body := p.block()
	return &ast.FunctionStmt{Name: name, Params: params, Body: body, Kind: kind}
}

func (p *Parser) varDecl() ast.Stmt {
	name := p.consume(token.Identifier, "expected variable name")
	var init ast.Expr
	if p.match(token.Equal) {
		init = p.ternary()
	}
	p.consume(token.Semicolon, "expected ';' after variable declaration")
	return &ast.VarStmt{Name: name, Init: init}
}

// ---------- statements ----------

func (p *Parser) statement() ast.Stmt {
	switch {
	case p.match(token.For):
		return p.forStmt()
	case p.match(token.If):
		return p.ifStmt()
	case p.match(token.Print):
		return p.printStmt()
	case p.match(token.While):
		return p.whileStmt()
	case p.match(token.Return):
		return p.returnStmt()
	case p.match(token.LeftBrace):
		return &ast.BlockStmt{Stmts: p.block()}
	default:
		return p.exprStmt()
	}
}

func (p *Parser) block() []ast.Stmt {
	var stmts []ast.Stmt
	for !p.check(token.RightBrace) && !p.isAtEnd() {
		stmts = append(stmts, p.declaration())
	}
	p.consume(token.RightBrace, "expected '}' after block")
	return stmts
}

func (p *Parser) exprStmt() ast.Stmt {
	expr := p.separator()
	p.consume(token.Semicolon, "expected ';' after expression")
	return &ast.ExpressionStmt{Expr: expr}
}

func (p *Parser) printStmt() ast.Stmt {
	tok := p.previous()
	expr := p.separator()
	p.consume(token.Semicolon, "expected ';' after value")
	return &ast.PrintStmt{Token: tok, Expr: expr}
}

func (p *Parser) ifStmt() ast.Stmt {
	p.consume(token.LeftParen, "expected '(' after 'if'")
	cond := p.separator()
	p.consume(token.RightParen, "expected ')' after if condition")

	then := p.statement()
	var elseBranch ast.Stmt
	if p.match(token.Else) {
		elseBranch = p.statement()
	}
	return &ast.IfStmt{Cond: cond, Then: then, Else: elseBranch}
}

func (p *Parser) whileStmt() ast.Stmt {
	p.consume(token.LeftParen, "expected '(' after 'while'")
	cond := p.separator()
	p.consume(token.RightParen, "expected ')' after condition")
	body := p.statement()
	return &ast.WhileStmt{Cond: cond, Body: body}
}

// forStmt desugars `for (init; test; update) body` into
// `{ init while (test) { body update } }`, per spec.
func (p *Parser) forStmt() ast.Stmt {
	p.consume(token.LeftParen, "expected '(' after 'for'")

	var init ast.Stmt
	switch {
	case p.match(token.Semicolon):
		// no initializer
	case p.match(token.Var):
		init = p.varDecl()
	default:
		init = p.exprStmt()
	}

	var cond ast.Expr
	if !p.check(token.Semicolon) {
		cond = p.separator()
	}
	p.consume(token.Semicolon, "expected ';' after loop condition")

	var update ast.Expr
	if !p.check(token.RightParen) {
		update = p.separator()
	}
	p.consume(token.RightParen, "expected ')' after for clauses")

	body := p.statement()

	if update != nil {
		body = &ast.BlockStmt{Stmts: []ast.Stmt{body, &ast.ExpressionStmt{Expr: update}}}
	}
	if cond == nil {
		cond = &ast.Literal{Value: true}
	}
	body = &ast.WhileStmt{Cond: cond, Body: body}

	if init != nil {
		body = &ast.BlockStmt{Stmts: []ast.Stmt{init, body}}
	}
	return body
}

func (p *Parser) returnStmt() ast.Stmt {
	keyword := p.previous()
	var value ast.Expr
	if !p.check(token.Semicolon) {
		value = p.separator()
	}
	p.consume(token.Semicolon, "expected ';' after return value")
	return &ast.ReturnStmt{Keyword: keyword, Value: value}
}

// ---------- expressions ----------

// separator → assignment ( "," assignment )*
func (p *Parser) separator() ast.Expr {
	expr := p.assignment()
	if !p.check(token.Comma) {
		return expr
	}
	exprs := []ast.Expr{expr}
	for p.match(token.Comma) {
		exprs = append(exprs, p.assignment())
	}
	return &ast.Comma{Exprs: exprs}
}

// assignment parses a ternary expression and, if followed by '=',
// re-examines the left-hand side: Variable becomes Assign, Get becomes
// Set, anything else is an invalid assignment target (reported, not
// fatal — parsing continues without consuming further).
func (p *Parser) assignment() ast.Expr {
	expr := p.ternary()

	if !p.match(token.Equal) {
		return expr
	}
	equals := p.previous()
	value := p.assignment()

	switch target := expr.(type) {
	case *ast.Variable:
		return &ast.Assign{Name: target.Name, Value: value, ID: ast.NewID()}
	case *ast.Get:
		return &ast.Set{Object: target.Object, Name: target.Name, Value: value}
	default:
		p.reporter.Report(diagnostics.Parse, equals.Pos, "invalid assignment target")
		return expr
	}
}

// ternary → logic_or ( "?" ternary ":" ternary )?
// Right-associative and chainable, so `a ? b : c ? d : e` parses as
// `a ? b : (c ? d : e)`.
func (p *Parser) ternary() ast.Expr {
	expr := p.logicOr()
	if !p.match(token.Question) {
		return expr
	}
	qtok := p.previous()
	then := p.ternary()
	p.consume(token.Colon, "expected ':' in ternary expression")
	elseExpr := p.ternary()
	return &ast.Ternary{Token: qtok, Cond: expr, Then: then, Else: elseExpr}
}

func (p *Parser) logicOr() ast.Expr {
	expr := p.logicAnd()
	for p.match(token.Or) {
		op := p.previous()
		right := p.logicAnd()
		expr = &ast.Logical{Left: expr, Op: op, Right: right}
	}
	return expr
}

func (p *Parser) logicAnd() ast.Expr {
	expr := p.equality()
	for p.match(token.And) {
		op := p.previous()
		right := p.equality()
		expr = &ast.Logical{Left: expr, Op: op, Right: right}
	}
	return expr
}

func (p *Parser) equality() ast.Expr {
	expr := p.comparison()
	for p.match(token.EqualEqual, token.BangEqual) {
		op := p.previous()
		right := p.comparison()
		expr = &ast.Binary{Left: expr, Op: op, Right: right}
	}
	return expr
}

func (p *Parser) comparison() ast.Expr {
	expr := p.term()
	for p.match(token.Less, token.LessEqual, token.Greater, token.GreaterEqual) {
		op := p.previous()
		right := p.term()
		expr = &ast.Binary{Left: expr, Op: op, Right: right}
	}
	return expr
}

func (p *Parser) term() ast.Expr {
	expr := p.factor()
	for p.match(token.Plus, token.Minus) {
		op := p.previous()
		right := p.factor()
		expr = &ast.Binary{Left: expr, Op: op, Right: right}
	}
	return expr
}

func (p *Parser) factor() ast.Expr {
	expr := p.unary()
	for p.match(token.Star, token.Slash) {
		op := p.previous()
		right := p.unary()
		expr = &ast.Binary{Left: expr, Op: op, Right: right}
	}
	return expr
}

// unary → ( "!" | "-" ) unary | call -- right-associative, so `!!x` nests.
func (p *Parser) unary() ast.Expr {
	if p.match(token.Bang, token.Minus) {
		op := p.previous()
		operand := p.unary()
		return &ast.Unary{Op: op, Operand: operand}
	}
	return p.call()
}

// call → primary ( "(" arguments? ")" | "." IDENT )*
func (p *Parser) call() ast.Expr {
	expr := p.primary()
	for {
		switch {
		case p.match(token.LeftParen):
			expr = p.finishCall(expr)
		case p.match(token.Dot):
			name := p.consume(token.Identifier, "expected property name after '.'")
			expr = &ast.Get{Object: expr, Name: name}
		default:
			return expr
		}
	}
}

func (p *Parser) finishCall(callee ast.Expr) ast.Expr {
	var args []ast.Expr
	if !p.check(token.RightParen) {
		for {
			if len(args) >= maxArgs {
				p.errorAt(p.peek(), "can't have more than %d arguments", maxArgs)
			}
			args = append(args, p.assignment())
			if !p.match(token.Comma) {
				break
			}
		}
	}
	paren := p.consume(token.RightParen, "expected ')' after arguments")
	return &ast.Call{Callee: callee, Paren: paren, Args: args}
}

func (p *Parser) primary() ast.Expr {
	switch {
	case p.match(token.Number, token.String):
		tok := p.previous()
		return &ast.Literal{Token: tok, Value: tok.Literal}
	case p.match(token.True):
		return &ast.Literal{Token: p.previous(), Value: true}
	case p.match(token.False):
		return &ast.Literal{Token: p.previous(), Value: false}
	case p.match(token.Nil):
		return &ast.Literal{Token: p.previous(), Value: nil}
	case p.match(token.This):
		return &ast.This{Keyword: p.previous(), ID: ast.NewID()}
	case p.match(token.Super):
		keyword := p.previous()
		p.consume(token.Dot, "expected '.' after 'super'")
		method := p.consume(token.Identifier, "expected superclass method name")
		return &ast.Super{Keyword: keyword, Method: method, ID: ast.NewID()}
	case p.match(token.Identifier):
		return &ast.Variable{Name: p.previous(), ID: ast.NewID()}
	case p.match(token.LeftParen):
		tok := p.previous()
		expr := p.separator()
		p.consume(token.RightParen, "expected ')' after expression")
		return &ast.Grouping{Token: tok, Expr: expr}
	default:
		panic(p.errorAt(p.peek(), "expected expression"))
	}
}
