// Package grammar implements a hand-written recursive-descent parser
// producing the internal/domain AST directly. Each production returns
// its concrete node type rather than a generic tagged-union value.
package grammar

import (
	"fmt"
	"unicode"

	"github.com/sokoide/oolang/internal/domain"
	"github.com/sokoide/oolang/lexer"
)

// ParseError reports a syntax failure at a source position, kept
// distinct from domain.CompilerError so the CLI can print "Parse
// failed: <msg>" rather than "Semantic error: <msg>".
type ParseError struct {
	Position domain.SourcePosition
	Message  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: %s", e.Position, e.Message)
}

// Parser consumes a token stream and builds a Program.
type Parser struct {
	lex *lexer.Lexer
}

// New creates a Parser over lex.
func New(lex *lexer.Lexer) *Parser { return &Parser{lex: lex} }

// Parse parses one complete Program, reporting the first syntax error.
func Parse(filename, source string) (prog *domain.Program, err error) {
	defer func() {
		if r := recover(); r != nil {
			if pe, ok := r.(*ParseError); ok {
				err = pe
				return
			}
			panic(r)
		}
	}()
	p := New(lexer.New(filename, stringsReader(source)))
	return p.ParseProgram(), nil
}

func (p *Parser) fail(pos domain.SourcePosition, format string, args ...interface{}) {
	panic(&ParseError{Position: pos, Message: fmt.Sprintf(format, args...)})
}

func (p *Parser) expect(tt lexer.TokenType) lexer.Token {
	t := p.lex.Next()
	if t.Type != tt {
		p.fail(t.Position, "expected %s, got %s %q", tt, t.Type, t.Value)
	}
	return t
}

func (p *Parser) at(tt lexer.TokenType) bool { return p.lex.Peek().Type == tt }

func rangeOf(start, end domain.SourcePosition) domain.SourceRange {
	return domain.NewSourceRange(start, end)
}

// ---- top level ---------------------------------------------------------------

// ParseProgram parses a sequence of class declarations until EOF.
func (p *Parser) ParseProgram() *domain.Program {
	start := p.lex.Peek().Position
	var classes []*domain.ClassDecl
	for p.at(lexer.TokenClass) {
		classes = append(classes, p.parseClass())
	}
	end := p.lex.Peek().Position
	if !p.at(lexer.TokenEOF) {
		t := p.lex.Peek()
		p.fail(t.Position, "expected class declaration or end of file, got %s %q", t.Type, t.Value)
	}
	return &domain.Program{Base: domain.Base{Location: rangeOf(start, end)}, Classes: classes}
}

func (p *Parser) parseClass() *domain.ClassDecl {
	start := p.expect(lexer.TokenClass).Position
	name := p.expect(lexer.TokenIdent).Value
	baseName := ""
	if p.at(lexer.TokenExtends) {
		p.lex.Next()
		baseName = p.expect(lexer.TokenIdent).Value
	}
	p.expect(lexer.TokenIs)
	var members []domain.Member
	for !p.at(lexer.TokenEnd) {
		members = append(members, p.parseMember())
	}
	end := p.expect(lexer.TokenEnd).Position
	return &domain.ClassDecl{Base: domain.Base{Location: rangeOf(start, end)}, Name: name, BaseName: baseName, Members: members}
}

func (p *Parser) parseMember() domain.Member {
	switch p.lex.Peek().Type {
	case lexer.TokenVar:
		return p.parseField()
	case lexer.TokenConstructor:
		return p.parseConstructor()
	case lexer.TokenMethod:
		return p.parseMethod()
	default:
		t := p.lex.Peek()
		p.fail(t.Position, "expected a field, constructor or method declaration, got %s %q", t.Type, t.Value)
		return nil
	}
}

func (p *Parser) parseField() *domain.FieldDecl {
	start := p.expect(lexer.TokenVar).Position
	name := p.expect(lexer.TokenIdent).Value
	p.expect(lexer.TokenColon)
	init := p.parseExpr()
	return &domain.FieldDecl{Base: domain.Base{Location: rangeOf(start, init.Pos().End)}, Name: name, Init: init}
}

func (p *Parser) parseParamList() []*domain.Param {
	if !p.at(lexer.TokenLeftParen) {
		return nil
	}
	p.lex.Next()
	var params []*domain.Param
	if !p.at(lexer.TokenRightParen) {
		params = append(params, p.parseParam())
		for p.at(lexer.TokenComma) {
			p.lex.Next()
			params = append(params, p.parseParam())
		}
	}
	p.expect(lexer.TokenRightParen)
	return params
}

func (p *Parser) parseParam() *domain.Param {
	tok := p.expect(lexer.TokenIdent)
	p.expect(lexer.TokenColon)
	typ := p.parseTypeRef()
	return &domain.Param{Base: domain.Base{Location: rangeOf(tok.Position, typ.Pos().End)}, Name: tok.Value, Type: typ}
}

func (p *Parser) parseTypeRef() *domain.TypeRef {
	tok := p.expect(lexer.TokenIdent)
	t := &domain.TypeRef{Base: domain.Base{Location: rangeOf(tok.Position, tok.Position)}, Name: tok.Value}
	if p.at(lexer.TokenLeftBracket) {
		p.lex.Next()
		t.Elem = p.parseTypeRef()
		end := p.expect(lexer.TokenRightBracket).Position
		t.Location = rangeOf(tok.Position, end)
	}
	return t
}

func (p *Parser) parseConstructor() *domain.ConstructorDecl {
	start := p.expect(lexer.TokenConstructor).Position
	params := p.parseParamList()
	p.expect(lexer.TokenIs)
	body := p.parseStmtsUntil(lexer.TokenEnd)
	end := p.expect(lexer.TokenEnd).Position
	return &domain.ConstructorDecl{Base: domain.Base{Location: rangeOf(start, end)}, Params: params, Body: body}
}

func (p *Parser) parseMethod() *domain.MethodDecl {
	start := p.expect(lexer.TokenMethod).Position
	name := p.expect(lexer.TokenIdent).Value
	params := p.parseParamList()

	var retType *domain.TypeRef
	if p.at(lexer.TokenColon) {
		p.lex.Next()
		retType = p.parseTypeRef()
	}

	m := &domain.MethodDecl{Name: name, Params: params, ReturnType: retType}
	end := start
	switch p.lex.Peek().Type {
	case lexer.TokenArrow:
		p.lex.Next()
		expr := p.parseExpr()
		m.IsExprBody = true
		m.Body = []domain.Stmt{&domain.ReturnStmt{Base: domain.Base{Location: expr.Pos()}, Value: expr}}
		end = expr.Pos().End
	case lexer.TokenIs:
		p.lex.Next()
		m.Body = p.parseStmtsUntil(lexer.TokenEnd)
		end = p.expect(lexer.TokenEnd).Position
	default:
		// forward declaration: no body
		end = p.lex.Peek().Position
	}
	m.Location = rangeOf(start, end)
	return m
}

// ---- statements ---------------------------------------------------------------

// parseStmtsUntil always returns a non-nil slice, even when empty, so
// that an empty "is ... end" body is distinguishable from the absent
// body of a forward declaration (domain.MethodDecl.HasBody checks Body
// != nil).
func (p *Parser) parseStmtsUntil(stop lexer.TokenType) []domain.Stmt {
	stmts := []domain.Stmt{}
	for !p.at(stop) && !p.at(lexer.TokenElse) {
		stmts = append(stmts, p.parseStmt())
	}
	return stmts
}

func (p *Parser) parseStmt() domain.Stmt {
	switch p.lex.Peek().Type {
	case lexer.TokenVar:
		return p.parseVarDecl()
	case lexer.TokenWhile:
		return p.parseWhile()
	case lexer.TokenIf:
		return p.parseIf()
	case lexer.TokenReturn:
		return p.parseReturn()
	default:
		return p.parseExprOrAssignStmt()
	}
}

func (p *Parser) parseVarDecl() *domain.VarDeclStmt {
	start := p.expect(lexer.TokenVar).Position
	name := p.expect(lexer.TokenIdent).Value
	p.expect(lexer.TokenColon)
	init := p.parseExpr()
	return &domain.VarDeclStmt{Base: domain.Base{Location: rangeOf(start, init.Pos().End)}, Name: name, Init: init}
}

func (p *Parser) parseWhile() *domain.WhileStmt {
	start := p.expect(lexer.TokenWhile).Position
	cond := p.parseExpr()
	p.expect(lexer.TokenIs)
	body := p.parseStmtsUntil(lexer.TokenEnd)
	end := p.expect(lexer.TokenEnd).Position
	return &domain.WhileStmt{Base: domain.Base{Location: rangeOf(start, end)}, Cond: cond, Body: body}
}

func (p *Parser) parseIf() *domain.IfStmt {
	start := p.expect(lexer.TokenIf).Position
	cond := p.parseExpr()
	p.expect(lexer.TokenIs)
	then := p.parseStmtsUntil(lexer.TokenEnd)
	var elseBody []domain.Stmt
	if p.at(lexer.TokenElse) {
		p.lex.Next()
		elseBody = p.parseStmtsUntil(lexer.TokenEnd)
	}
	end := p.expect(lexer.TokenEnd).Position
	return &domain.IfStmt{Base: domain.Base{Location: rangeOf(start, end)}, Cond: cond, Then: then, Else: elseBody}
}

func (p *Parser) parseReturn() *domain.ReturnStmt {
	start := p.expect(lexer.TokenReturn).Position
	end := start
	var value domain.Expr
	if p.startsExpr() {
		value = p.parseExpr()
		end = value.Pos().End
	}
	return &domain.ReturnStmt{Base: domain.Base{Location: rangeOf(start, end)}, Value: value}
}

func (p *Parser) startsExpr() bool {
	switch p.lex.Peek().Type {
	case lexer.TokenInt, lexer.TokenReal, lexer.TokenTrue, lexer.TokenFalse,
		lexer.TokenThis, lexer.TokenIdent, lexer.TokenLeftParen:
		return true
	default:
		return false
	}
}

func (p *Parser) parseExprOrAssignStmt() domain.Stmt {
	start := p.lex.Peek().Position
	e := p.parseExpr()
	if p.at(lexer.TokenAssign) {
		p.lex.Next()
		value := p.parseExpr()
		return &domain.AssignStmt{Base: domain.Base{Location: rangeOf(start, value.Pos().End)}, Target: e, Value: value}
	}
	return &domain.ExprStmt{Base: domain.Base{Location: e.Pos()}, X: e}
}

// ---- expressions ----------------------------------------------------------

func (p *Parser) parseExpr() domain.Expr {
	return p.parsePostfix(p.parsePrimary())
}

func (p *Parser) parsePrimary() domain.Expr {
	t := p.lex.Peek()
	switch t.Type {
	case lexer.TokenInt:
		p.lex.Next()
		return &domain.IntLit{Base: domain.Base{Location: rangeOf(t.Position, t.Position)}, Value: parseInt(p, t)}
	case lexer.TokenReal:
		p.lex.Next()
		return &domain.RealLit{Base: domain.Base{Location: rangeOf(t.Position, t.Position)}, Value: parseReal(p, t)}
	case lexer.TokenTrue:
		p.lex.Next()
		return &domain.BoolLit{Base: domain.Base{Location: rangeOf(t.Position, t.Position)}, Value: true}
	case lexer.TokenFalse:
		p.lex.Next()
		return &domain.BoolLit{Base: domain.Base{Location: rangeOf(t.Position, t.Position)}, Value: false}
	case lexer.TokenThis:
		p.lex.Next()
		return &domain.ThisExpr{Base: domain.Base{Location: rangeOf(t.Position, t.Position)}}
	case lexer.TokenLeftParen:
		p.lex.Next()
		e := p.parseExpr()
		p.expect(lexer.TokenRightParen)
		return e
	case lexer.TokenIdent:
		if isUpperIdent(t.Value) {
			return p.parseNewExpr()
		}
		p.lex.Next()
		return &domain.Ident{Base: domain.Base{Location: rangeOf(t.Position, t.Position)}, Name: t.Value}
	default:
		p.fail(t.Position, "expected an expression, got %s %q", t.Type, t.Value)
		return nil
	}
}

// isUpperIdent applies the source language's naming convention: an
// identifier starting with an uppercase letter names a class (and so
// starts a construction expression); a lowercase identifier names a
// variable or method.
func isUpperIdent(name string) bool {
	for _, r := range name {
		return unicode.IsUpper(r)
	}
	return false
}

func (p *Parser) parseNewExpr() *domain.NewExpr {
	tok := p.expect(lexer.TokenIdent)
	var generic *domain.TypeRef
	if p.at(lexer.TokenLeftBracket) {
		p.lex.Next()
		generic = p.parseTypeRef()
		p.expect(lexer.TokenRightBracket)
	}
	p.expect(lexer.TokenLeftParen)
	args := p.parseArgList()
	end := p.expect(lexer.TokenRightParen).Position
	return &domain.NewExpr{Base: domain.Base{Location: rangeOf(tok.Position, end)}, ClassName: tok.Value, Generic: generic, Args: args}
}

func (p *Parser) parseArgList() []domain.Expr {
	var args []domain.Expr
	if p.at(lexer.TokenRightParen) {
		return args
	}
	args = append(args, p.parseExpr())
	for p.at(lexer.TokenComma) {
		p.lex.Next()
		args = append(args, p.parseExpr())
	}
	return args
}

func (p *Parser) parsePostfix(e domain.Expr) domain.Expr {
	for {
		switch {
		case p.at(lexer.TokenDot):
			p.lex.Next()
			name := p.expect(lexer.TokenIdent)
			member := &domain.MemberExpr{Base: domain.Base{Location: rangeOf(e.Pos().Start, name.Position)}, Target: e, Name: name.Value}
			if p.at(lexer.TokenLeftParen) {
				p.lex.Next()
				args := p.parseArgList()
				end := p.expect(lexer.TokenRightParen).Position
				e = &domain.CallExpr{Base: domain.Base{Location: rangeOf(member.Pos().Start, end)}, Callee: member, Args: args}
			} else {
				e = member
			}
		case p.at(lexer.TokenLeftParen):
			if _, ok := e.(*domain.Ident); !ok {
				return e
			}
			p.lex.Next()
			args := p.parseArgList()
			end := p.expect(lexer.TokenRightParen).Position
			e = &domain.CallExpr{Base: domain.Base{Location: rangeOf(e.Pos().Start, end)}, Callee: e, Args: args}
		default:
			return e
		}
	}
}
