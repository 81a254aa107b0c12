// Package semantic resolves names, inheritance, overloading and types
// across a Program, producing a read-only SemanticModel the code
// generator consumes. The analyzer walks the AST by type switch rather
// than through a visitor interface: every node kind the grammar can
// produce is handled by one case in evalExpr/analyzeStmt.
package semantic

import (
	"fmt"
	"strings"

	"github.com/sokoide/oolang/internal/domain"
	"github.com/sokoide/oolang/internal/symtab"
)

// Analyzer runs Analyze once per Program; internal state is reset at
// the start of every call, matching the batch, single-threaded
// execution model (no instance is ever shared across compilations).
type Analyzer struct {
	classes *symtab.ClassTable
	model   *modelBuilder
}

// NewAnalyzer creates an Analyzer ready to run Analyze.
func NewAnalyzer() *Analyzer {
	return &Analyzer{}
}

// Analyze runs RegisterClasses, the topological AnalyzeClasses sweep,
// and BuildSemanticModel in order, returning the first error raised.
func (a *Analyzer) Analyze(program *domain.Program) (*SemanticModel, error) {
	a.classes = symtab.NewClassTable()
	a.model = newModelBuilder()

	if err := a.registerClasses(program); err != nil {
		return nil, err
	}
	if err := a.analyzeClasses(); err != nil {
		return nil, err
	}
	return a.model.build(a.classes), nil
}

func (a *Analyzer) registerClasses(program *domain.Program) error {
	for _, cd := range program.Classes {
		sym := symtab.NewClassSymbol(cd)
		if !a.classes.Declare(sym) {
			return a.errf(domain.DuplicateClass, cd, "class %q is already declared", cd.Name)
		}
	}
	return nil
}

func isBuiltinClassName(name string) bool {
	return name == "Integer" || name == "Real" || name == "Boolean"
}

// analyzeClasses repeatedly sweeps the registered classes, analyzing
// every class whose base is absent, built-in, or already analyzed,
// until a full sweep makes no progress (a cycle) or nothing remains.
func (a *Analyzer) analyzeClasses() error {
	pending := a.classes.InOrder()
	analyzed := make(map[string]bool, len(pending))

	for len(pending) > 0 {
		progressed := false
		var next []*symtab.ClassSymbol

		for _, cs := range pending {
			base := cs.BaseName
			if base != "" && !isBuiltinClassName(base) {
				baseSym, ok := a.classes.Lookup(base)
				if !ok {
					return a.errf(domain.UnknownBase, cs.Decl, "class %q extends unknown class %q", cs.Name, base)
				}
				cs.Base = baseSym
			}
			ready := base == "" || isBuiltinClassName(base) || analyzed[base]
			if !ready {
				next = append(next, cs)
				continue
			}
			if err := a.analyzeClass(cs); err != nil {
				return err
			}
			analyzed[cs.Name] = true
			progressed = true
		}

		if !progressed {
			return a.errf(domain.InheritanceCycleOrUnresolved, pending[0].Decl,
				"inheritance cycle or unresolved base among: %s", pendingNames(pending))
		}
		pending = next
	}
	// Dead fields are dropped only once every class is analyzed, so a
	// base field read only from a subclass still counts as used.
	for _, cs := range a.classes.InOrder() {
		a.optimizeClassMembers(cs)
	}
	return nil
}

func pendingNames(pending []*symtab.ClassSymbol) string {
	names := make([]string, len(pending))
	for i, cs := range pending {
		names[i] = cs.Name
	}
	return strings.Join(names, ", ")
}

func (a *Analyzer) analyzeClass(cs *symtab.ClassSymbol) error {
	if err := a.registerMembers(cs); err != nil {
		return err
	}
	return a.analyzeMembers(cs)
}

// ---- 4.2 member registration ---------------------------------------------

func (a *Analyzer) registerMembers(cs *symtab.ClassSymbol) error {
	for _, m := range cs.Decl.Members {
		switch md := m.(type) {
		case *domain.FieldDecl:
			sym := &symtab.VariableSymbol{Name: md.Name, Kind: symtab.KindField, Decl: md}
			if !cs.DeclareField(sym) {
				return a.errf(domain.DuplicateField, md, "duplicate field %q in class %q", md.Name, cs.Name)
			}
		case *domain.MethodDecl:
			if err := a.registerMethod(cs, md); err != nil {
				return err
			}
		case *domain.ConstructorDecl:
			if err := a.registerConstructor(cs, md); err != nil {
				return err
			}
		}
	}
	return nil
}

func (a *Analyzer) registerMethod(cs *symtab.ClassSymbol, md *domain.MethodDecl) error {
	if md.IsExprBody && md.ReturnType == nil {
		return a.errf(domain.ExpressionBodyWithoutReturnType, md,
			"method %q has an expression body but no declared return type", md.Name)
	}

	paramTypes, err := a.resolveParamTypes(md.Params)
	if err != nil {
		return err
	}

	returnType := domain.TypeVoid
	if md.ReturnType != nil {
		returnType, err = a.resolveType(md.ReturnType, false)
		if err != nil {
			return err
		}
	}

	ms := findOverloadByTypes(cs.Methods[md.Name], paramTypes)
	if ms == nil {
		ms = &symtab.MethodSymbol{Name: md.Name, Params: paramTypes, ReturnType: returnType}
		cs.AddMethod(ms)
	} else if ms.ReturnType.Name != returnType.Name {
		return a.errf(domain.ReturnTypeMismatchBetweenDeclarations, md,
			"method %q redeclared with a different return type (%s vs %s)", md.Name, ms.ReturnType, returnType)
	}

	if md.Body == nil {
		if ms.Declaration != nil && ms.Declaration != md {
			return a.errf(domain.DuplicateForwardDeclaration, md,
				"method %q already has a forward declaration", md.Name)
		}
		ms.Declaration = md
		if ms.ParamNodes == nil {
			ms.ParamNodes = md.Params
		}
		return nil
	}

	if ms.Implementation != nil && ms.Implementation != md {
		return a.errf(domain.DuplicateImplementation, md, "method %q already has an implementation", md.Name)
	}
	ms.Implementation = md
	if ms.Declaration == nil {
		ms.Declaration = md
	}
	ms.ParamNodes = md.Params
	return nil
}

func (a *Analyzer) registerConstructor(cs *symtab.ClassSymbol, cd *domain.ConstructorDecl) error {
	paramTypes, err := a.resolveParamTypes(cd.Params)
	if err != nil {
		return err
	}
	for _, existing := range cs.Constructors {
		if sameTypeNames(existing.Params, paramTypes) {
			return a.errf(domain.DuplicateConstructorSignature, cd,
				"class %q already has a constructor with this parameter signature", cs.Name)
		}
	}
	cs.Constructors = append(cs.Constructors, &symtab.ConstructorSymbol{
		Params: paramTypes, ParamNodes: cd.Params, Decl: cd,
	})
	return nil
}

func findOverloadByTypes(overloads []*symtab.MethodSymbol, types []domain.SemanticType) *symtab.MethodSymbol {
	for _, ms := range overloads {
		if sameTypeNames(ms.Params, types) {
			return ms
		}
	}
	return nil
}

func sameTypeNames(a, b []domain.SemanticType) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Name != b[i].Name {
			return false
		}
	}
	return true
}

func (a *Analyzer) resolveParamTypes(params []*domain.Param) ([]domain.SemanticType, error) {
	out := make([]domain.SemanticType, len(params))
	for i, p := range params {
		t, err := a.resolveType(p.Type, true)
		if err != nil {
			return nil, err
		}
		out[i] = t
	}
	return out, nil
}

// ---- 4.3 type resolution ---------------------------------------------------

// resolveType resolves a type reference to a SemanticType. bareContainer
// permits an un-parameterized "Array"/"List" (legal only at parameter
// declaration sites) to resolve to Standard instead of failing.
func (a *Analyzer) resolveType(ref *domain.TypeRef, bareContainer bool) (domain.SemanticType, error) {
	switch ref.Name {
	case "Integer":
		return domain.TypeInteger, nil
	case "Real":
		return domain.TypeReal, nil
	case "Boolean":
		return domain.TypeBoolean, nil
	}
	if strings.EqualFold(ref.Name, "Void") {
		return domain.TypeVoid, nil
	}
	if ref.Name == "Array" || ref.Name == "List" {
		if ref.Elem == nil {
			if bareContainer {
				return domain.TypeStandard, nil
			}
			return domain.SemanticType{}, a.errf(domain.TypeNotDeclared, ref,
				"%s requires a generic element type here", ref.Name)
		}
		elem, err := a.resolveType(ref.Elem, false)
		if err != nil {
			return domain.SemanticType{}, err
		}
		if ref.Name == "Array" {
			return domain.ArrayType(elem), nil
		}
		return domain.ListType(elem), nil
	}
	if cs, ok := a.classes.Lookup(ref.Name); ok {
		return domain.ClassType(cs.Name), nil
	}
	return domain.SemanticType{}, a.errf(domain.TypeNotDeclared, ref, "unknown type %q", ref.Name)
}

// typeFromName reconstructs a SemanticType from a canonical type name
// (as stored inside an Array[E]/List[E] composite name), since
// SemanticType itself only carries (name, kind).
func (a *Analyzer) typeFromName(name string) domain.SemanticType {
	switch name {
	case "Integer":
		return domain.TypeInteger
	case "Real":
		return domain.TypeReal
	case "Boolean":
		return domain.TypeBoolean
	case "Void":
		return domain.TypeVoid
	case "Standard":
		return domain.TypeStandard
	case "Unknown":
		return domain.TypeUnknown
	}
	if inner, ok := stripWrapper(name, "Array["); ok {
		return domain.ArrayType(a.typeFromName(inner))
	}
	if inner, ok := stripWrapper(name, "List["); ok {
		return domain.ListType(a.typeFromName(inner))
	}
	return domain.ClassType(name)
}

func stripWrapper(name, prefix string) (string, bool) {
	if !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, "]") {
		return "", false
	}
	return name[len(prefix) : len(name)-1], true
}

func typesCompatible(want, got domain.SemanticType) bool {
	return want.Equals(got) || want.IsWildcard() || got.IsWildcard()
}

// ---- analysis context -------------------------------------------------------

type analysisCtx struct {
	class        *symtab.ClassSymbol
	scope        *symtab.Scope
	returnType   domain.SemanticType
	allowsReturn bool
	declSyms     map[domain.Node]*symtab.VariableSymbol
}

func (c *analysisCtx) withScope(s *symtab.Scope) *analysisCtx {
	cp := *c
	cp.scope = s
	return &cp
}

// ---- 4.1/4.6 member bodies --------------------------------------------------

func (a *Analyzer) analyzeMembers(cs *symtab.ClassSymbol) error {
	for _, m := range cs.Decl.Members {
		switch md := m.(type) {
		case *domain.FieldDecl:
			if err := a.analyzeField(cs, md); err != nil {
				return err
			}
		case *domain.MethodDecl:
			if err := a.analyzeMethod(cs, md); err != nil {
				return err
			}
		case *domain.ConstructorDecl:
			if err := a.analyzeConstructor(cs, md); err != nil {
				return err
			}
		}
	}
	return nil
}

func (a *Analyzer) analyzeField(cs *symtab.ClassSymbol, fd *domain.FieldDecl) error {
	fieldCtx := &analysisCtx{class: cs, scope: symtab.NewMethodScope(cs), declSyms: map[domain.Node]*symtab.VariableSymbol{}}
	t, err := a.evalExpr(fd.Init, fieldCtx)
	if err != nil {
		return err
	}
	if t.Kind == domain.Void {
		return a.errf(domain.VoidInitializer, fd, "field %q cannot be initialized with a Void value", fd.Name)
	}
	sym, _ := cs.LookupField(fd.Name)
	sym.Type = t
	a.model.setVarType(fd, t)
	return nil
}

func (a *Analyzer) analyzeMethod(cs *symtab.ClassSymbol, md *domain.MethodDecl) error {
	if md.Body == nil {
		return nil
	}
	var ms *symtab.MethodSymbol
	for _, candidate := range cs.Methods[md.Name] {
		if candidate.Implementation == md {
			ms = candidate
			break
		}
	}
	if ms == nil {
		return a.errf(domain.SignatureNotDeclared, md, "method %q implementation does not match a registered signature", md.Name)
	}

	scope := symtab.NewMethodScope(cs)
	for i, p := range ms.ParamNodes {
		sym := &symtab.VariableSymbol{Name: p.Name, Type: ms.Params[i], Kind: symtab.KindParameter, Decl: p}
		if err := scope.Declare(sym); err != nil {
			return a.errf(domain.DuplicateVariable, p, "%v", err)
		}
		a.model.setVarType(p, ms.Params[i])
	}

	ctx := &analysisCtx{class: cs, scope: scope, returnType: ms.ReturnType, allowsReturn: true, declSyms: map[domain.Node]*symtab.VariableSymbol{}}
	body, err := a.analyzeBody(md.Body, ctx)
	if err != nil {
		return err
	}
	md.Body = body
	return nil
}

func (a *Analyzer) analyzeConstructor(cs *symtab.ClassSymbol, cd *domain.ConstructorDecl) error {
	var ctorSym *symtab.ConstructorSymbol
	for _, candidate := range cs.Constructors {
		if candidate.Decl == cd {
			ctorSym = candidate
			break
		}
	}
	if ctorSym == nil {
		return a.errf(domain.SignatureNotDeclared, cd, "constructor does not match a registered signature")
	}

	scope := symtab.NewMethodScope(cs)
	for i, p := range ctorSym.ParamNodes {
		sym := &symtab.VariableSymbol{Name: p.Name, Type: ctorSym.Params[i], Kind: symtab.KindParameter, Decl: p}
		if err := scope.Declare(sym); err != nil {
			return a.errf(domain.DuplicateVariable, p, "%v", err)
		}
		a.model.setVarType(p, ctorSym.Params[i])
	}

	ctx := &analysisCtx{class: cs, scope: scope, returnType: domain.TypeVoid, allowsReturn: false, declSyms: map[domain.Node]*symtab.VariableSymbol{}}
	body, err := a.analyzeBody(cd.Body, ctx)
	if err != nil {
		return err
	}
	cd.Body = body
	return nil
}

// ---- 4.7 body cleanup --------------------------------------------------------

func (a *Analyzer) analyzeBody(stmts []domain.Stmt, ctx *analysisCtx) ([]domain.Stmt, error) {
	out := []domain.Stmt{}
	for _, st := range stmts {
		if err := a.analyzeStmt(st, ctx); err != nil {
			return nil, err
		}
		out = append(out, st)
		if _, ok := st.(*domain.ReturnStmt); ok {
			break // unreachable elimination: drop everything after the first return
		}
	}
	return eliminateDeadLocals(out, ctx.declSyms), nil
}

func eliminateDeadLocals(stmts []domain.Stmt, declSyms map[domain.Node]*symtab.VariableSymbol) []domain.Stmt {
	kept := stmts[:0]
	for _, st := range stmts {
		if vd, ok := st.(*domain.VarDeclStmt); ok {
			if sym, ok := declSyms[vd]; ok && !sym.Used && !hasSideEffects(vd.Init) {
				continue
			}
		}
		kept = append(kept, st)
	}
	return kept
}

// hasSideEffects implements the glossary's "side-effect-free expression"
// definition: only literals, identifiers, this, built-in constructors,
// and (transitively) primitive member accesses are side-effect free.
func hasSideEffects(e domain.Expr) bool {
	switch x := e.(type) {
	case *domain.IntLit, *domain.RealLit, *domain.BoolLit, *domain.Ident, *domain.ThisExpr:
		return false
	case *domain.NewExpr:
		if !isBuiltinClassName(x.ClassName) && x.ClassName != "Array" && x.ClassName != "List" {
			return true
		}
		for _, arg := range x.Args {
			if hasSideEffects(arg) {
				return true
			}
		}
		return false
	case *domain.MemberExpr:
		return hasSideEffects(x.Target)
	default:
		return true // CallExpr and anything else: conservatively side-effectful
	}
}

func (a *Analyzer) optimizeClassMembers(cs *symtab.ClassSymbol) {
	removed := cs.RemoveUnusedFields()
	if len(removed) == 0 {
		return
	}
	kept := cs.Decl.Members[:0]
	for _, m := range cs.Decl.Members {
		if fd, ok := m.(*domain.FieldDecl); ok && removed[fd.Name] {
			continue
		}
		kept = append(kept, m)
	}
	cs.Decl.Members = kept
}

// ---- 4.6 statement analysis --------------------------------------------------

func (a *Analyzer) analyzeStmt(st domain.Stmt, ctx *analysisCtx) error {
	switch s := st.(type) {
	case *domain.VarDeclStmt:
		return a.analyzeVarDecl(s, ctx)
	case *domain.AssignStmt:
		return a.analyzeAssign(s, ctx)
	case *domain.WhileStmt:
		return a.analyzeWhile(s, ctx)
	case *domain.IfStmt:
		return a.analyzeIf(s, ctx)
	case *domain.ReturnStmt:
		return a.analyzeReturn(s, ctx)
	case *domain.ExprStmt:
		_, err := a.evalExpr(s.X, ctx)
		return err
	default:
		return a.errf(domain.UnsupportedExpressionTarget, st, "unsupported statement type %T", st)
	}
}

func (a *Analyzer) analyzeVarDecl(st *domain.VarDeclStmt, ctx *analysisCtx) error {
	t, err := a.evalExpr(st.Init, ctx)
	if err != nil {
		return err
	}
	if t.Kind == domain.Void {
		return a.errf(domain.VoidInitializer, st, "cannot initialize %q with a Void value", st.Name)
	}
	sym := &symtab.VariableSymbol{Name: st.Name, Type: t, Kind: symtab.KindLocal, Decl: st}
	if err := ctx.scope.Declare(sym); err != nil {
		return a.errf(domain.DuplicateVariable, st, "%v", err)
	}
	ctx.declSyms[st] = sym
	a.model.setVarType(st, t)
	return nil
}

func (a *Analyzer) analyzeAssign(st *domain.AssignStmt, ctx *analysisCtx) error {
	targetType, err := a.resolveAssignTarget(st.Target, ctx)
	if err != nil {
		return err
	}
	valType, err := a.evalExpr(st.Value, ctx)
	if err != nil {
		return err
	}
	if targetType.Kind == domain.Void {
		return a.errf(domain.VoidAssignmentTarget, st, "cannot assign to a Void-typed target")
	}
	if !typesCompatible(targetType, valType) {
		return a.errf(domain.TypeMismatch, st, "cannot assign value of type %s to target of type %s", valType, targetType)
	}
	return nil
}

func (a *Analyzer) resolveAssignTarget(target domain.Expr, ctx *analysisCtx) (domain.SemanticType, error) {
	switch t := target.(type) {
	case *domain.Ident:
		return a.evalExpr(t, ctx)
	case *domain.MemberExpr:
		return a.evalMemberAccessValue(t, ctx)
	default:
		return domain.SemanticType{}, a.errf(domain.UnsupportedExpressionTarget, target,
			"assignment target must be an identifier or member access")
	}
}

func (a *Analyzer) analyzeWhile(st *domain.WhileStmt, ctx *analysisCtx) error {
	condType, err := a.evalExpr(st.Cond, ctx)
	if err != nil {
		return err
	}
	if !condType.Equals(domain.TypeBoolean) && !condType.IsWildcard() {
		return a.errf(domain.TypeMismatch, st, "while condition must be Boolean, got %s", condType)
	}
	body, err := a.analyzeBody(st.Body, ctx.withScope(ctx.scope.Push()))
	if err != nil {
		return err
	}
	st.Body = body
	return nil
}

func (a *Analyzer) analyzeIf(st *domain.IfStmt, ctx *analysisCtx) error {
	condType, err := a.evalExpr(st.Cond, ctx)
	if err != nil {
		return err
	}
	if !condType.Equals(domain.TypeBoolean) && !condType.IsWildcard() {
		return a.errf(domain.TypeMismatch, st, "if condition must be Boolean, got %s", condType)
	}
	then, err := a.analyzeBody(st.Then, ctx.withScope(ctx.scope.Push()))
	if err != nil {
		return err
	}
	st.Then = then
	if st.Else != nil {
		elseBody, err := a.analyzeBody(st.Else, ctx.withScope(ctx.scope.Push()))
		if err != nil {
			return err
		}
		st.Else = elseBody
	}
	return nil
}

func (a *Analyzer) analyzeReturn(st *domain.ReturnStmt, ctx *analysisCtx) error {
	if !ctx.allowsReturn {
		return a.errf(domain.ReturnOutsideMethod, st, "return is only allowed inside a method body")
	}
	if ctx.returnType.Kind == domain.Void {
		if st.Value != nil {
			return a.errf(domain.ReturnValueInVoid, st, "method is declared Void and must not return a value")
		}
		return nil
	}
	if st.Value == nil {
		return a.errf(domain.MissingReturnValue, st, "method must return a value of type %s", ctx.returnType)
	}
	t, err := a.evalExpr(st.Value, ctx)
	if err != nil {
		return err
	}
	if !typesCompatible(ctx.returnType, t) {
		return a.errf(domain.TypeMismatch, st, "return type mismatch: expected %s, got %s", ctx.returnType, t)
	}
	return nil
}

// ---- 4.4 expression evaluation ----------------------------------------------

func (a *Analyzer) evalExpr(e domain.Expr, ctx *analysisCtx) (domain.SemanticType, error) {
	t, err := a.evalExprUncached(e, ctx)
	if err != nil {
		return domain.SemanticType{}, err
	}
	a.model.setExprType(e, t)
	return t, nil
}

func (a *Analyzer) evalExprUncached(e domain.Expr, ctx *analysisCtx) (domain.SemanticType, error) {
	switch x := e.(type) {
	case *domain.IntLit:
		return domain.TypeInteger, nil
	case *domain.RealLit:
		return domain.TypeReal, nil
	case *domain.BoolLit:
		return domain.TypeBoolean, nil
	case *domain.Ident:
		sym, ok := ctx.scope.Lookup(x.Name)
		if !ok {
			return domain.SemanticType{}, a.errf(domain.UndeclaredIdentifier, x, "undeclared identifier %q", x.Name)
		}
		sym.Used = true
		return sym.Type, nil
	case *domain.ThisExpr:
		return domain.ClassType(ctx.class.Name), nil
	case *domain.NewExpr:
		return a.evalNewExpr(x, ctx)
	case *domain.CallExpr:
		return a.evalCallExpr(x, ctx)
	case *domain.MemberExpr:
		return a.evalMemberAccessValue(x, ctx)
	default:
		return domain.SemanticType{}, a.errf(domain.UnsupportedExpressionTarget, e, "unsupported expression type %T", e)
	}
}

func (a *Analyzer) evalArgs(args []domain.Expr, ctx *analysisCtx) ([]domain.SemanticType, error) {
	out := make([]domain.SemanticType, len(args))
	for i, arg := range args {
		t, err := a.evalExpr(arg, ctx)
		if err != nil {
			return nil, err
		}
		out[i] = t
	}
	return out, nil
}

func (a *Analyzer) evalNewExpr(x *domain.NewExpr, ctx *analysisCtx) (domain.SemanticType, error) {
	switch x.ClassName {
	case "Array":
		if x.Generic == nil {
			return domain.SemanticType{}, a.errf(domain.TypeNotDeclared, x, "Array constructor requires a generic element type")
		}
		elem, err := a.resolveType(x.Generic, false)
		if err != nil {
			return domain.SemanticType{}, err
		}
		if len(x.Args) != 1 {
			return domain.SemanticType{}, a.errf(domain.ArgumentCountMismatch, x, "Array constructor expects exactly 1 argument, got %d", len(x.Args))
		}
		argType, err := a.evalExpr(x.Args[0], ctx)
		if err != nil {
			return domain.SemanticType{}, err
		}
		if !typesCompatible(domain.TypeInteger, argType) {
			return domain.SemanticType{}, a.errf(domain.TypeMismatch, x, "Array length argument must be Integer, got %s", argType)
		}
		return domain.ArrayType(elem), nil

	case "List":
		if x.Generic == nil {
			return domain.SemanticType{}, a.errf(domain.TypeNotDeclared, x, "List constructor requires a generic element type")
		}
		elem, err := a.resolveType(x.Generic, false)
		if err != nil {
			return domain.SemanticType{}, err
		}
		switch len(x.Args) {
		case 0:
		case 1:
			t0, err := a.evalExpr(x.Args[0], ctx)
			if err != nil {
				return domain.SemanticType{}, err
			}
			if !typesCompatible(elem, t0) {
				return domain.SemanticType{}, a.errf(domain.TypeMismatch, x, "List element argument must be %s, got %s", elem, t0)
			}
		case 2:
			t0, err := a.evalExpr(x.Args[0], ctx)
			if err != nil {
				return domain.SemanticType{}, err
			}
			if !typesCompatible(elem, t0) {
				return domain.SemanticType{}, a.errf(domain.TypeMismatch, x, "List element argument must be %s, got %s", elem, t0)
			}
			t1, err := a.evalExpr(x.Args[1], ctx)
			if err != nil {
				return domain.SemanticType{}, err
			}
			if !typesCompatible(domain.TypeInteger, t1) {
				return domain.SemanticType{}, a.errf(domain.TypeMismatch, x, "List replicate count must be Integer, got %s", t1)
			}
		default:
			return domain.SemanticType{}, a.errf(domain.ArgumentCountMismatch, x, "List constructor accepts 0, 1 or 2 arguments, got %d", len(x.Args))
		}
		return domain.ListType(elem), nil

	default:
		if isBuiltinClassName(x.ClassName) {
			for _, arg := range x.Args {
				if _, err := a.evalExpr(arg, ctx); err != nil {
					return domain.SemanticType{}, err
				}
			}
			return a.typeFromName(x.ClassName), nil
		}
		cs, ok := a.classes.Lookup(x.ClassName)
		if !ok {
			return domain.SemanticType{}, a.errf(domain.UnknownClass, x, "unknown class %q", x.ClassName)
		}
		argTypes, err := a.evalArgs(x.Args, ctx)
		if err != nil {
			return domain.SemanticType{}, err
		}
		if len(cs.Constructors) == 0 {
			if len(x.Args) != 0 {
				return domain.SemanticType{}, a.errf(domain.ArgumentCountMismatch, x,
					"class %q has no declared constructors, expected 0 arguments, got %d", cs.Name, len(x.Args))
			}
			return domain.ClassType(cs.Name), nil
		}
		if _, err := a.matchConstructor(cs, argTypes, x); err != nil {
			return domain.SemanticType{}, err
		}
		return domain.ClassType(cs.Name), nil
	}
}

func (a *Analyzer) matchConstructor(cs *symtab.ClassSymbol, argTypes []domain.SemanticType, node domain.Node) (*symtab.ConstructorSymbol, error) {
	for _, ctorSym := range cs.Constructors {
		if paramsMatch(ctorSym.Params, argTypes) {
			return ctorSym, nil
		}
	}
	return nil, a.errf(domain.NoMatchingOverload, node, "no matching constructor for class %q", cs.Name)
}

func paramsMatch(params, args []domain.SemanticType) bool {
	if len(params) != len(args) {
		return false
	}
	for i := range params {
		if !typesCompatible(params[i], args[i]) {
			return false
		}
	}
	return true
}

func (a *Analyzer) evalCallExpr(x *domain.CallExpr, ctx *analysisCtx) (domain.SemanticType, error) {
	switch callee := x.Callee.(type) {
	case *domain.Ident:
		argTypes, err := a.evalArgs(x.Args, ctx)
		if err != nil {
			return domain.SemanticType{}, err
		}
		ms, err := a.resolveMethodCall(ctx.class, callee.Name, argTypes, x)
		if err != nil {
			return domain.SemanticType{}, err
		}
		return ms.ReturnType, nil
	case *domain.MemberExpr:
		targetType, err := a.evalExpr(callee.Target, ctx)
		if err != nil {
			return domain.SemanticType{}, err
		}
		return a.evalQualifiedCall(targetType, callee.Name, x.Args, ctx, x)
	default:
		return domain.SemanticType{}, a.errf(domain.UnsupportedExpressionTarget, x, "call target must be an identifier or member access")
	}
}

func (a *Analyzer) resolveMethodCall(cs *symtab.ClassSymbol, name string, argTypes []domain.SemanticType, node domain.Node) (*symtab.MethodSymbol, error) {
	overloads := cs.Overloads(name)
	if len(overloads) == 0 {
		return nil, a.errf(domain.MethodNotDeclared, node, "method %q not declared on class %q", name, cs.Name)
	}
	anyCountMatch := false
	for _, ms := range overloads {
		if len(ms.Params) != len(argTypes) {
			continue
		}
		anyCountMatch = true
		if paramsMatch(ms.Params, argTypes) {
			return ms, nil
		}
	}
	if !anyCountMatch {
		return nil, a.errf(domain.ArgumentCountMismatch, node, "no overload of %q takes %d arguments", name, len(argTypes))
	}
	return nil, a.errf(domain.NoMatchingOverload, node, "no overload of %q matches the given argument types", name)
}

func (a *Analyzer) evalQualifiedCall(targetType domain.SemanticType, name string, args []domain.Expr, ctx *analysisCtx, node domain.Node) (domain.SemanticType, error) {
	switch targetType.Kind {
	case domain.Integer, domain.Real, domain.Boolean:
		if _, err := a.evalArgs(args, ctx); err != nil {
			return domain.SemanticType{}, err
		}
		if name == "Print" && len(args) == 0 {
			return targetType, nil
		}
		// Arithmetic/relational/conversion calls on primitives aren't
		// type-checked here: the emitter's inlined built-in table
		// interprets them directly, so no further checking happens here.
		return domain.TypeStandard, nil

	case domain.Array:
		elem := a.typeFromName(strippedInner(targetType.Name, "Array["))
		argTypes, err := a.evalArgs(args, ctx)
		if err != nil {
			return domain.SemanticType{}, err
		}
		switch name {
		case "Length":
			if len(argTypes) != 0 {
				return domain.SemanticType{}, a.errf(domain.ArgumentCountMismatch, node, "Length takes no arguments")
			}
			return domain.TypeInteger, nil
		case "get":
			if len(argTypes) != 1 || !typesCompatible(domain.TypeInteger, argTypes[0]) {
				return domain.SemanticType{}, a.errf(domain.ArgumentCountMismatch, node, "get expects a single Integer index")
			}
			return elem, nil
		case "set":
			if len(argTypes) != 2 || !typesCompatible(domain.TypeInteger, argTypes[0]) || !typesCompatible(elem, argTypes[1]) {
				return domain.SemanticType{}, a.errf(domain.ArgumentCountMismatch, node, "set expects (Integer, %s)", elem)
			}
			return targetType, nil
		default:
			return domain.SemanticType{}, a.errf(domain.MethodNotDeclared, node, "Array has no method %q", name)
		}

	case domain.List:
		elem := a.typeFromName(strippedInner(targetType.Name, "List["))
		argTypes, err := a.evalArgs(args, ctx)
		if err != nil {
			return domain.SemanticType{}, err
		}
		switch name {
		case "append":
			if len(argTypes) != 1 || !typesCompatible(elem, argTypes[0]) {
				return domain.SemanticType{}, a.errf(domain.ArgumentCountMismatch, node, "append expects a single %s", elem)
			}
			return targetType, nil
		case "head":
			if len(argTypes) != 0 {
				return domain.SemanticType{}, a.errf(domain.ArgumentCountMismatch, node, "head takes no arguments")
			}
			return elem, nil
		case "tail":
			if len(argTypes) != 0 {
				return domain.SemanticType{}, a.errf(domain.ArgumentCountMismatch, node, "tail takes no arguments")
			}
			return targetType, nil
		case "toArray":
			if len(argTypes) != 0 {
				return domain.SemanticType{}, a.errf(domain.ArgumentCountMismatch, node, "toArray takes no arguments")
			}
			return domain.ArrayType(elem), nil
		default:
			return domain.SemanticType{}, a.errf(domain.MethodNotDeclared, node, "List has no method %q", name)
		}

	case domain.Class:
		cs, ok := a.classes.Lookup(targetType.Name)
		if !ok {
			return domain.SemanticType{}, a.errf(domain.UnknownClass, node, "unknown class %q", targetType.Name)
		}
		argTypes, err := a.evalArgs(args, ctx)
		if err != nil {
			return domain.SemanticType{}, err
		}
		ms, err := a.resolveMethodCall(cs, name, argTypes, node)
		if err != nil {
			return domain.SemanticType{}, err
		}
		return ms.ReturnType, nil

	default:
		if _, err := a.evalArgs(args, ctx); err != nil {
			return domain.SemanticType{}, err
		}
		if targetType.IsWildcard() {
			return domain.TypeStandard, nil
		}
		return domain.SemanticType{}, a.errf(domain.TypeNotDeclared, node, "cannot call method %q on type %s", name, targetType)
	}
}

func strippedInner(name, prefix string) string {
	if inner, ok := stripWrapper(name, prefix); ok {
		return inner
	}
	return name
}

// evalMemberAccessValue handles `e.m` used as a value (a field read).
func (a *Analyzer) evalMemberAccessValue(x *domain.MemberExpr, ctx *analysisCtx) (domain.SemanticType, error) {
	targetType, err := a.evalExpr(x.Target, ctx)
	if err != nil {
		return domain.SemanticType{}, err
	}
	switch {
	case targetType.Kind == domain.Class:
		cs, ok := a.classes.Lookup(targetType.Name)
		if !ok {
			return domain.SemanticType{}, a.errf(domain.UnknownClass, x, "unknown class %q", targetType.Name)
		}
		sym, found := cs.LookupField(x.Name)
		if !found {
			return domain.SemanticType{}, a.errf(domain.TypeNotDeclared, x, "class %q has no field %q", targetType.Name, x.Name)
		}
		sym.Used = true
		return sym.Type, nil
	case targetType.Kind == domain.Standard:
		return domain.TypeStandard, nil
	case targetType.Kind == domain.Unknown:
		return domain.TypeUnknown, nil
	case targetType.IsBuiltinPrimitive():
		return domain.TypeUnknown, nil
	default:
		return domain.SemanticType{}, a.errf(domain.TypeNotDeclared, x, "cannot access field %q on type %s", x.Name, targetType)
	}
}

func (a *Analyzer) errf(kind domain.ErrorKind, node domain.Node, format string, args ...interface{}) error {
	return domain.CompilerError{Kind: kind, Message: fmt.Sprintf(format, args...), Location: node.Pos()}
}
