// Package codegen computes per-class object layouts from a semantic
// model and lowers a Program to LLVM IR text.
package codegen

import (
	"regexp"
	"sort"

	"github.com/sokoide/oolang/internal/domain"
	"github.com/sokoide/oolang/internal/symtab"
)

// FieldLayout is one field's position within an object: its canonical
// name and LLVM-relevant semantic type, at a fixed, zero-based index.
type FieldLayout struct {
	Name  string
	Type  domain.SemanticType
	Index int
}

// MethodEntry is one resolved (name, signature) -> implementation
// mapping in a class's method table, including which class actually
// declares the implementation (for override bookkeeping).
type MethodEntry struct {
	Declaring *ClassLayout
	Symbol    *symtab.MethodSymbol
}

// methodKey identifies one overload slot: name plus canonical parameter
// type name sequence, joined; see CanonicalTypeName.
type methodKey struct {
	name   string
	params string
}

// ClassLayout is the backend's fixed view of one class: its classId,
// linearized fields (inherited-then-own), resolved method table
// (base-then-override), and subclass back-references for dispatch.
type ClassLayout struct {
	Name     string
	ClassId  int
	Base     *ClassLayout
	Fields   []FieldLayout
	Methods  map[methodKey]MethodEntry
	Derived  []*ClassLayout
	Symbol   *symtab.ClassSymbol
}

// HasClassIdField reports whether this class itself adds the synthetic
// runtime tag at index 0 (true only for root classes; derived classes
// still have the tag at index 0, inherited through their base's layout).
func (l *ClassLayout) HasClassIdField() bool {
	return l.Base == nil
}

// FieldByName looks up a field by name within this class's own layout
// (which already includes inherited fields).
func (l *ClassLayout) FieldByName(name string) (FieldLayout, bool) {
	for _, f := range l.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldLayout{}, false
}

// MethodSignature looks up the resolved implementation for (name, params).
func (l *ClassLayout) MethodSignature(name string, params []domain.SemanticType) (MethodEntry, bool) {
	entry, ok := l.Methods[methodKey{name: name, params: joinParamNames(params)}]
	return entry, ok
}

// BuildClassLayouts assigns classIds in topological base-first order and
// computes field/method linearization for every class symbol in classes
// (already in declaration order; base links must already be resolved by
// the analyzer).
func BuildClassLayouts(classes []*symtab.ClassSymbol) []*ClassLayout {
	byName := make(map[string]*ClassLayout, len(classes))
	order := topoSortByBase(classes)

	nextID := 1
	var result []*ClassLayout
	for _, cs := range order {
		layout := &ClassLayout{Name: cs.Name, Symbol: cs, Methods: make(map[methodKey]MethodEntry)}
		if cs.Base != nil {
			baseLayout := byName[cs.Base.Name]
			layout.Base = baseLayout
			layout.Fields = append(layout.Fields, baseLayout.Fields...)
			for k, v := range baseLayout.Methods {
				layout.Methods[k] = v
			}
			baseLayout.Derived = append(baseLayout.Derived, layout)
		} else {
			layout.Fields = append(layout.Fields, FieldLayout{Name: "__classId", Type: domain.TypeInteger, Index: 0})
		}

		for _, f := range cs.OwnFields() {
			layout.Fields = append(layout.Fields, FieldLayout{Name: f.Name, Type: f.Type, Index: len(layout.Fields)})
		}

		for name, overloads := range cs.Methods {
			for _, ms := range overloads {
				if ms.Implementation == nil {
					continue // forward declaration never implemented: nothing to emit
				}
				key := methodKey{name: name, params: joinParamNames(ms.Params)}
				layout.Methods[key] = MethodEntry{Declaring: layout, Symbol: ms}
			}
		}

		layout.ClassId = nextID
		nextID++
		byName[cs.Name] = layout
		result = append(result, layout)
	}
	return result
}

// topoSortByBase orders classes so every base precedes its subclasses,
// preserving declaration order among siblings (stable sort by
// dependency depth). The analyzer has already rejected cycles, so this
// always terminates.
func topoSortByBase(classes []*symtab.ClassSymbol) []*symtab.ClassSymbol {
	depth := make(map[string]int, len(classes))
	var depthOf func(cs *symtab.ClassSymbol) int
	depthOf = func(cs *symtab.ClassSymbol) int {
		if d, ok := depth[cs.Name]; ok {
			return d
		}
		d := 0
		if cs.Base != nil {
			d = depthOf(cs.Base) + 1
		}
		depth[cs.Name] = d
		return d
	}
	for _, cs := range classes {
		depthOf(cs)
	}
	out := make([]*symtab.ClassSymbol, len(classes))
	copy(out, classes)
	sort.SliceStable(out, func(i, j int) bool { return depth[out[i].Name] < depth[out[j].Name] })
	return out
}

var nonAlnum = regexp.MustCompile(`[^A-Za-z0-9]`)

// CanonicalTypeName returns the mangling-safe name for t: primitives
// keep their short name, everything else has each non-alphanumeric
// character replaced with "_".
func CanonicalTypeName(t domain.SemanticType) string {
	switch t.Kind {
	case domain.Integer:
		return "Integer"
	case domain.Real:
		return "Real"
	case domain.Boolean:
		return "Boolean"
	case domain.Void:
		return "Void"
	}
	return nonAlnum.ReplaceAllString(t.Name, "_")
}

func joinParamNames(params []domain.SemanticType) string {
	s := ""
	for i, p := range params {
		if i > 0 {
			s += ","
		}
		s += p.Name
	}
	return s
}
