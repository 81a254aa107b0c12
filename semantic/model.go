package semantic

import (
	"github.com/sokoide/oolang/internal/domain"
	"github.com/sokoide/oolang/internal/symtab"
)

// SemanticClass is the analyzer's public view of one registered class,
// exposed through SemanticModel once analysis succeeds.
type SemanticClass struct {
	Name     string
	BaseName string
	ClassId  int
	symbol   *symtab.ClassSymbol
}

// Fields returns the class's own (non-inherited) fields in declaration
// order.
func (c *SemanticClass) Fields() []*symtab.VariableSymbol { return c.symbol.OwnFields() }

// Symbol exposes the underlying class symbol for codegen, which needs
// the full overload/base-chain view SemanticClass does not surface.
func (c *SemanticClass) Symbol() *symtab.ClassSymbol { return c.symbol }

// SemanticModel is the read-only result of a successful analysis: the
// resolved type of every expression and declared variable, keyed by AST
// node pointer identity, plus every registered class.
type SemanticModel struct {
	exprTypes map[domain.Expr]domain.SemanticType
	varTypes  map[domain.Node]domain.SemanticType
	classes   map[string]*SemanticClass
	order     []string
}

// ExprType returns the resolved type of an expression node.
func (m *SemanticModel) ExprType(e domain.Expr) (domain.SemanticType, bool) {
	t, ok := m.exprTypes[e]
	return t, ok
}

// VarType returns the resolved type of a field, parameter or local
// declaration node.
func (m *SemanticModel) VarType(n domain.Node) (domain.SemanticType, bool) {
	t, ok := m.varTypes[n]
	return t, ok
}

// ClassByName looks up a registered class.
func (m *SemanticModel) ClassByName(name string) (*SemanticClass, bool) {
	c, ok := m.classes[name]
	return c, ok
}

// ClassesInOrder returns every registered class in declaration order.
func (m *SemanticModel) ClassesInOrder() []*SemanticClass {
	out := make([]*SemanticClass, 0, len(m.order))
	for _, name := range m.order {
		out = append(out, m.classes[name])
	}
	return out
}

// modelBuilder accumulates the maps above while the analyzer walks the
// tree, and freezes them into a SemanticModel at the end of Analyze.
type modelBuilder struct {
	exprTypes map[domain.Expr]domain.SemanticType
	varTypes  map[domain.Node]domain.SemanticType
}

func newModelBuilder() *modelBuilder {
	return &modelBuilder{
		exprTypes: make(map[domain.Expr]domain.SemanticType),
		varTypes:  make(map[domain.Node]domain.SemanticType),
	}
}

func (b *modelBuilder) setExprType(e domain.Expr, t domain.SemanticType) { b.exprTypes[e] = t }
func (b *modelBuilder) setVarType(n domain.Node, t domain.SemanticType)  { b.varTypes[n] = t }

func (b *modelBuilder) build(classes *symtab.ClassTable) *SemanticModel {
	m := &SemanticModel{
		exprTypes: b.exprTypes,
		varTypes:  b.varTypes,
		classes:   make(map[string]*SemanticClass),
	}
	for _, cs := range classes.InOrder() {
		m.classes[cs.Name] = &SemanticClass{Name: cs.Name, BaseName: cs.BaseName, ClassId: cs.ClassId, symbol: cs}
		m.order = append(m.order, cs.Name)
	}
	return m
}
