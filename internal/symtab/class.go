package symtab

import "github.com/sokoide/oolang/internal/domain"

// MethodSymbol is one overload of a method name: its declared signature
// plus links back to the declaring and implementing AST nodes (which may
// be the same node, or different when a forward declaration is later
// implemented).
type MethodSymbol struct {
	Name           string
	Params         []domain.SemanticType
	ParamNodes     []*domain.Param
	ReturnType     domain.SemanticType
	Declaration    *domain.MethodDecl
	Implementation *domain.MethodDecl
}

// ConstructorSymbol is one constructor overload.
type ConstructorSymbol struct {
	Params     []domain.SemanticType
	ParamNodes []*domain.Param
	Decl       *domain.ConstructorDecl
}

// ClassSymbol is the registered shape of one class: its fields in
// declaration order, its method overload sets keyed by name, its
// constructors, and a link to its base class (nil for a root class).
// ClassId is left zero: the layout builder records class ids on
// codegen.ClassLayout, not here.
type ClassSymbol struct {
	Name         string
	BaseName     string
	Base         *ClassSymbol
	Decl         *domain.ClassDecl
	ClassId      int
	fields       map[string]*VariableSymbol
	fieldOrder   []string
	Methods      map[string][]*MethodSymbol
	Constructors []*ConstructorSymbol
}

// NewClassSymbol creates an empty, unregistered class symbol.
func NewClassSymbol(decl *domain.ClassDecl) *ClassSymbol {
	return &ClassSymbol{
		Name:     decl.Name,
		BaseName: decl.BaseName,
		Decl:     decl,
		fields:   make(map[string]*VariableSymbol),
		Methods:  make(map[string][]*MethodSymbol),
	}
}

// DeclareField adds a field in declaration order. Returns false if a
// field of this name is already declared directly on this class (the
// caller raises DuplicateField); shadowing a base field is allowed.
func (c *ClassSymbol) DeclareField(sym *VariableSymbol) bool {
	if _, exists := c.fields[sym.Name]; exists {
		return false
	}
	c.fields[sym.Name] = sym
	c.fieldOrder = append(c.fieldOrder, sym.Name)
	return true
}

// OwnFields returns this class's directly declared fields, in
// declaration order (excludes inherited fields).
func (c *ClassSymbol) OwnFields() []*VariableSymbol {
	out := make([]*VariableSymbol, 0, len(c.fieldOrder))
	for _, name := range c.fieldOrder {
		out = append(out, c.fields[name])
	}
	return out
}

// LookupField walks this class's own fields, then its base chain.
func (c *ClassSymbol) LookupField(name string) (*VariableSymbol, bool) {
	for class := c; class != nil; class = class.Base {
		if sym, ok := class.fields[name]; ok {
			return sym, true
		}
	}
	return nil, false
}

// RemoveUnusedFields drops every own field whose symbol was never marked
// used, returning the set of removed names so the caller can filter the
// matching FieldDecl members out of the class's AST node.
func (c *ClassSymbol) RemoveUnusedFields() map[string]bool {
	removed := make(map[string]bool)
	kept := c.fieldOrder[:0]
	for _, name := range c.fieldOrder {
		if sym := c.fields[name]; !sym.Used {
			removed[name] = true
			delete(c.fields, name)
			continue
		}
		kept = append(kept, name)
	}
	c.fieldOrder = kept
	return removed
}

// AddMethod registers a method overload under its name.
func (c *ClassSymbol) AddMethod(m *MethodSymbol) {
	c.Methods[m.Name] = append(c.Methods[m.Name], m)
}

// Overloads returns every overload of name visible on c, starting with
// c's own overloads and then each base class's in turn, matching the
// override resolution order in the layout builder.
func (c *ClassSymbol) Overloads(name string) []*MethodSymbol {
	var out []*MethodSymbol
	for class := c; class != nil; class = class.Base {
		out = append(out, class.Methods[name]...)
	}
	return out
}

// IsDescendantOf reports whether c is base or a transitive subclass of
// base. Dispatch candidate selection in codegen does not call it; it
// walks ClassLayout.Derived instead.
func (c *ClassSymbol) IsDescendantOf(base *ClassSymbol) bool {
	for class := c; class != nil; class = class.Base {
		if class == base {
			return true
		}
	}
	return false
}

// ClassTable maps declared class names to their symbols, populated by
// the analyzer's registration pass.
type ClassTable struct {
	byName map[string]*ClassSymbol
	order  []string
}

// NewClassTable creates an empty table.
func NewClassTable() *ClassTable {
	return &ClassTable{byName: make(map[string]*ClassSymbol)}
}

// Declare registers sym, returning false if its name is already taken.
func (t *ClassTable) Declare(sym *ClassSymbol) bool {
	if _, exists := t.byName[sym.Name]; exists {
		return false
	}
	t.byName[sym.Name] = sym
	t.order = append(t.order, sym.Name)
	return true
}

// Lookup finds a class by name.
func (t *ClassTable) Lookup(name string) (*ClassSymbol, bool) {
	sym, ok := t.byName[name]
	return sym, ok
}

// InOrder returns every registered class in declaration order.
func (t *ClassTable) InOrder() []*ClassSymbol {
	out := make([]*ClassSymbol, 0, len(t.order))
	for _, name := range t.order {
		out = append(out, t.byName[name])
	}
	return out
}
