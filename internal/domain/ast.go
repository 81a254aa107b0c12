// Package domain contains the AST node definitions shared by the parser,
// the semantic analyzer and the code generator.
//
// The tree is a closed sum type: each node kind is a concrete struct, and
// callers switch on concrete type rather than through a visitor interface.
// Node identity (used as map keys by the semantic model) is pointer
// identity; the only mutations the analyzer performs are replacing a
// ClassDecl's Members slice or a method/constructor's Body slice wholesale
// during dead-code cleanup, which never changes the identity of a
// surviving node.
package domain

import "fmt"

// SourcePosition is a single point in a source file.
type SourcePosition struct {
	Filename string
	Line     int
	Column   int
}

func (p SourcePosition) String() string {
	return fmt.Sprintf("%s:%d:%d", p.Filename, p.Line, p.Column)
}

// SourceRange spans from Start to End within one file.
type SourceRange struct {
	Start SourcePosition
	End   SourcePosition
}

func (r SourceRange) String() string {
	if r.Start.Line == r.End.Line {
		return fmt.Sprintf("%s:%d:%d-%d", r.Start.Filename, r.Start.Line, r.Start.Column, r.End.Column)
	}
	return fmt.Sprintf("%s:%d:%d-%d:%d", r.Start.Filename, r.Start.Line, r.Start.Column, r.End.Line, r.End.Column)
}

// Node is implemented by every AST node.
type Node interface {
	Pos() SourceRange
}

// Expr is implemented by every expression node.
type Expr interface {
	Node
	exprNode()
}

// Stmt is implemented by every statement node.
type Stmt interface {
	Node
	stmtNode()
}

// Member is implemented by field, method and constructor declarations.
type Member interface {
	Node
	memberNode()
}

// Base embeds source location tracking into every concrete node.
type Base struct {
	Location SourceRange
}

func (b Base) Pos() SourceRange { return b.Location }

// ---- Program / class shape ----------------------------------------------

// Program is the root of the AST: an ordered list of class declarations.
type Program struct {
	Base
	Classes []*ClassDecl
}

// ClassDecl declares one class. BaseName is "" when the class has no
// explicit superclass. Members preserves declaration order;
// the analyzer's optimizeClassMembers may replace this slice wholesale to drop dead
// fields.
type ClassDecl struct {
	Base
	Name     string
	BaseName string
	Members  []Member
}

// FieldDecl declares one instance field with a mandatory initializer.
type FieldDecl struct {
	Base
	Name string
	Init Expr
}

func (*FieldDecl) memberNode() {}

// Param is a method/constructor parameter: a name plus a type reference.
type Param struct {
	Base
	Name string
	Type *TypeRef
}

// MethodDecl declares a method. ReturnType is nil when omitted (defaults
// to Void). Body is nil for a forward (bodyless) declaration. IsExprBody
// marks a `=> expr` method; the parser desugars the expression into a
// single-statement Body ([]Stmt{&ReturnStmt{Value: expr}}) but keeps the
// flag so the analyzer can raise ExpressionBodyWithoutReturnType when
// ReturnType is nil.
type MethodDecl struct {
	Base
	Name       string
	Params     []*Param
	ReturnType *TypeRef
	Body       []Stmt
	IsExprBody bool
}

func (*MethodDecl) memberNode() {}

// HasBody reports whether this is an implementation rather than a forward
// declaration.
func (m *MethodDecl) HasBody() bool { return m.Body != nil }

// ConstructorDecl declares a constructor; constructors always have a body.
type ConstructorDecl struct {
	Base
	Params []*Param
	Body   []Stmt
}

func (*ConstructorDecl) memberNode() {}

// ---- Type references -----------------------------------------------------

// TypeRef names a type: either a bare name (built-in, class name, or a
// bare "Array"/"List" used without a generic argument) or a generic
// container with Name "Array" or "List" and a non-nil Elem.
type TypeRef struct {
	Base
	Name string // "Integer", "Real", "Boolean", "Void", a class name, "Array", or "List"
	Elem *TypeRef
}

func (t *TypeRef) String() string {
	if t.Elem != nil {
		return t.Name + "[" + t.Elem.String() + "]"
	}
	return t.Name
}

// ---- Expressions -----------------------------------------------------------

type IntLit struct {
	Base
	Value int64
}

func (*IntLit) exprNode() {}

type RealLit struct {
	Base
	Value float64
}

func (*RealLit) exprNode() {}

type BoolLit struct {
	Base
	Value bool
}

func (*BoolLit) exprNode() {}

// Ident references a local, parameter, or field by name.
type Ident struct {
	Base
	Name string
}

func (*Ident) exprNode() {}

// ThisExpr is the `this` receiver reference.
type ThisExpr struct {
	Base
}

func (*ThisExpr) exprNode() {}

// NewExpr is a constructor call `ClassName(args)`, optionally generic
// (`Array[Integer](10)`, `List[Integer]()`).
type NewExpr struct {
	Base
	ClassName string
	Generic   *TypeRef // nil when no [..] was given
	Args      []Expr
}

func (*NewExpr) exprNode() {}

// CallExpr is a unified call `callee(args)`; Callee is either an *Ident
// (a same-class method call) or a *MemberExpr (a qualified call).
type CallExpr struct {
	Base
	Callee Expr
	Args   []Expr
}

func (*CallExpr) exprNode() {}

// MemberExpr is `target.name`, used both as a value (field read) and as
// the callee of a CallExpr (method invocation).
type MemberExpr struct {
	Base
	Target Expr
	Name   string
}

func (*MemberExpr) exprNode() {}

// ---- Statements ------------------------------------------------------------

// VarDeclStmt introduces a local variable; its type is inferred from Init.
type VarDeclStmt struct {
	Base
	Name string
	Init Expr
}

func (*VarDeclStmt) stmtNode() {}

// AssignStmt assigns Value to Target. Target must be an *Ident or a
// *MemberExpr; `this.field` on the left is accepted alongside a bare
// identifier.
type AssignStmt struct {
	Base
	Target Expr
	Value  Expr
}

func (*AssignStmt) stmtNode() {}

type WhileStmt struct {
	Base
	Cond Expr
	Body []Stmt
}

func (*WhileStmt) stmtNode() {}

// IfStmt's Else is nil when there is no else branch.
type IfStmt struct {
	Base
	Cond Expr
	Then []Stmt
	Else []Stmt
}

func (*IfStmt) stmtNode() {}

// ReturnStmt's Value is nil for a bare `return`.
type ReturnStmt struct {
	Base
	Value Expr
}

func (*ReturnStmt) stmtNode() {}

// ExprStmt evaluates an expression for its side effects and discards it.
type ExprStmt struct {
	Base
	X Expr
}

func (*ExprStmt) stmtNode() {}

// NewSourceRange is a small constructor used by the parser so node
// literals stay readable; it is not part of the AST contract.
func NewSourceRange(start, end SourcePosition) SourceRange {
	return SourceRange{Start: start, End: end}
}
