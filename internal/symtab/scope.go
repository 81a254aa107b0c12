// Package symtab holds the compile-time symbol tables the semantic
// analyzer builds while walking classes: local/parameter scopes, field
// tables, and method/constructor overload sets. A variable lookup walks
// enclosing block scopes up to the method root, then falls back to the
// owning class's field chain (own fields, then base class fields, and
// so on) rather than to a single global scope.
package symtab

import (
	"fmt"

	"github.com/sokoide/oolang/internal/domain"
)

// VariableKind classifies a VariableSymbol.
type VariableKind int

const (
	KindField VariableKind = iota
	KindLocal
	KindParameter
)

func (k VariableKind) String() string {
	switch k {
	case KindField:
		return "field"
	case KindParameter:
		return "parameter"
	default:
		return "local"
	}
}

// VariableSymbol is one declared field, parameter or local variable.
type VariableSymbol struct {
	Name string
	Type domain.SemanticType
	Kind VariableKind
	Used bool
	Decl domain.Node
}

// Scope is one lexical level of variable visibility: the method root
// (parameters) or a nested block (while/if body). Field lookups that miss
// every enclosing Scope fall back to Class's field chain, so a Scope
// only ever holds parameters and locals, never fields.
type Scope struct {
	parent *Scope
	class  *ClassSymbol
	vars   map[string]*VariableSymbol
	order  []string
}

// NewMethodScope creates the root scope for a method or constructor body,
// owned by class for the field-chain fallback in Lookup.
func NewMethodScope(class *ClassSymbol) *Scope {
	return &Scope{class: class, vars: make(map[string]*VariableSymbol)}
}

// Push creates a nested block scope (while/if body) under s.
func (s *Scope) Push() *Scope {
	return &Scope{parent: s, class: s.class, vars: make(map[string]*VariableSymbol)}
}

// Declare adds sym to this scope. It returns an error if a variable of
// the same name already exists in this exact scope (shadowing an outer
// scope or a field is allowed; redeclaring within the same scope is not).
func (s *Scope) Declare(sym *VariableSymbol) error {
	if _, exists := s.vars[sym.Name]; exists {
		return fmt.Errorf("%s %q already declared in this scope", sym.Kind, sym.Name)
	}
	s.vars[sym.Name] = sym
	s.order = append(s.order, sym.Name)
	return nil
}

// Lookup searches this scope, then each enclosing scope, then (at the
// method root) the owning class's field chain via ClassSymbol.LookupField.
func (s *Scope) Lookup(name string) (*VariableSymbol, bool) {
	for scope := s; scope != nil; scope = scope.parent {
		if sym, ok := scope.vars[name]; ok {
			return sym, true
		}
	}
	if s.class != nil {
		return s.class.LookupField(name)
	}
	return nil, false
}

// LocalsInOrder returns this scope's own variables (not enclosing
// scopes) in declaration order, used by dead-local cleanup.
func (s *Scope) LocalsInOrder() []*VariableSymbol {
	out := make([]*VariableSymbol, 0, len(s.order))
	for _, name := range s.order {
		out = append(out, s.vars[name])
	}
	return out
}
