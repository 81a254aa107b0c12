package codegen

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/sokoide/oolang/internal/domain"
	"github.com/sokoide/oolang/internal/symtab"
	"github.com/sokoide/oolang/semantic"
)

const preamble = `; ModuleID = 'languageOcompiler'
; run %s
source_filename = "languageO"
%%Array = type { i32, i8* }
%%List = type { i8* }

declare i8* @malloc(i64)
declare %%Array* @o_array_new(i32)
declare i32    @o_array_length(%%Array*)
declare i8*    @o_array_get(%%Array*, i32)
declare void   @o_array_set(%%Array*, i32, i8*)
declare %%List* @o_list_empty()
declare %%List* @o_list_singleton(i8*)
declare %%List* @o_list_replicate(i8*, i32)
declare %%List* @o_list_append(%%List*, i8*)
declare i8*    @o_list_head(%%List*)
declare %%List* @o_list_tail(%%List*)
declare %%Array* @o_list_to_array(%%List*)
declare i32    @printf(i8*, ...)

@.fmt_int  = private unnamed_addr constant [4 x i8] c"%%d\0A\00"
@.fmt_real = private unnamed_addr constant [4 x i8] c"%%f\0A\00"
`

// Generator lowers a Program plus its resolved class layouts to LLVM IR
// text. All state below is per-invocation; nothing survives between
// calls to Generate, matching the batch single-threaded model.
type Generator struct {
	layouts map[string]*ClassLayout
	order   []*ClassLayout
	model   *semantic.SemanticModel
	runID   string
	out     *strings.Builder
}

// NewGenerator builds a Generator over layouts (already in classId
// order) and the semantic model that resolved them. runID is stamped
// into the module header comment so a .ll file can be correlated with
// the compiler invocation that produced it.
func NewGenerator(layouts []*ClassLayout, model *semantic.SemanticModel, runID string) *Generator {
	byName := make(map[string]*ClassLayout, len(layouts))
	for _, l := range layouts {
		byName[l.Name] = l
	}
	return &Generator{layouts: byName, order: layouts, model: model, runID: runID}
}

// Generate emits the full module: header, class type defs, constructors,
// methods, and @main, in that order.
func (g *Generator) Generate(program *domain.Program) string {
	g.out = &strings.Builder{}
	fmt.Fprintf(g.out, preamble, g.runID)

	for _, layout := range g.order {
		g.emitClassTypeDef(layout)
	}
	for _, layout := range g.order {
		for _, ctorSym := range layout.Symbol.Constructors {
			g.emitConstructor(layout, ctorSym)
		}
	}
	for _, layout := range g.order {
		for _, ms := range ownMethodsSorted(layout.Symbol) {
			if ms.Implementation != nil {
				g.emitMethod(layout, ms)
			}
		}
	}
	g.emitMain(program)
	return g.out.String()
}

func ownMethodsSorted(cs *symtab.ClassSymbol) []*symtab.MethodSymbol {
	names := make([]string, 0, len(cs.Methods))
	for n := range cs.Methods {
		names = append(names, n)
	}
	sort.Strings(names)
	var out []*symtab.MethodSymbol
	for _, n := range names {
		out = append(out, cs.Methods[n]...)
	}
	return out
}

func (g *Generator) emitClassTypeDef(layout *ClassLayout) {
	fieldTypes := make([]string, len(layout.Fields))
	for i, f := range layout.Fields {
		fieldTypes[i] = llvmType(f.Type)
	}
	fmt.Fprintf(g.out, "%%%s = type { %s }\n", layout.Name, strings.Join(fieldTypes, ", "))
}

// ---- name mangling (frozen) -------------------------------------------------

func mangleCtor(className string, params []domain.SemanticType) string {
	s := className + "_ctor"
	for _, p := range params {
		s += "__" + CanonicalTypeName(p)
	}
	return s
}

func mangleMethod(className, methodName string, params []domain.SemanticType) string {
	s := className + "_" + methodName
	for _, p := range params {
		s += "__" + CanonicalTypeName(p)
	}
	return s
}

// ---- LLVM type mapping -------------------------------------------------------

func llvmType(t domain.SemanticType) string {
	switch t.Kind {
	case domain.Integer:
		return "i32"
	case domain.Real:
		return "double"
	case domain.Boolean:
		return "i1"
	case domain.Void:
		return "void"
	case domain.Array:
		return "%Array*"
	case domain.List:
		return "%List*"
	case domain.Class:
		return "%" + t.Name + "*"
	default: // Standard, Unknown: opaque boxed value
		return "i8*"
	}
}

func defaultValue(lt string) string {
	switch lt {
	case "i32", "i1":
		return "0"
	case "double":
		return "0.0"
	default:
		return "null"
	}
}

func formatReal(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}

func isBuiltinClassName(name string) bool {
	return name == "Integer" || name == "Real" || name == "Boolean"
}

// ---- per-function emission state (avoid hidden globals) -------------------

type localVar struct {
	reg string
	sem domain.SemanticType
}

type funcCtx struct {
	g          *Generator
	class      *ClassLayout
	returnType domain.SemanticType
	tempN      int
	labelN     int
	localN     int
	terminated bool
	locals     map[string]localVar
}

func (g *Generator) newFuncCtx(class *ClassLayout) *funcCtx {
	return &funcCtx{g: g, class: class, locals: make(map[string]localVar)}
}

func (f *funcCtx) newTemp() string {
	r := fmt.Sprintf("%%t%d", f.tempN)
	f.tempN++
	return r
}

func (f *funcCtx) newLabel(prefix string) string {
	l := fmt.Sprintf("%s_%d", prefix, f.labelN)
	f.labelN++
	return l
}

func (f *funcCtx) newLocalSlot(name string) string {
	slot := fmt.Sprintf("%%local_%s_%d", sanitizeIdent(name), f.localN)
	f.localN++
	return slot
}

func sanitizeIdent(name string) string {
	return nonAlnum.ReplaceAllString(name, "_")
}

// emitLine appends one IR line unless the current block is already
// terminated, per the per-function termination flag.
func (f *funcCtx) emitLine(format string, args ...interface{}) bool {
	if f.terminated {
		return false
	}
	fmt.Fprintf(f.g.out, format+"\n", args...)
	return true
}

func (f *funcCtx) terminate() { f.terminated = true }

// label opens a new basic block, which is never considered terminated
// until its own terminator is emitted.
func (f *funcCtx) label(name string) {
	fmt.Fprintf(f.g.out, "\n%s:\n", name)
	f.terminated = false
}

func (f *funcCtx) comment(format string, args ...interface{}) {
	fmt.Fprintf(f.g.out, "  ; "+format+"\n", args...)
}

// withLocalsSnapshot runs fn with a private copy of the locals map,
// restoring the outer mapping afterward. This is how if/while branch
// scopes stop a branch-local variable from leaking into sibling or
// following code, without the generator needing a real scope stack.
func (f *funcCtx) withLocalsSnapshot(fn func()) {
	saved := make(map[string]localVar, len(f.locals))
	for k, v := range f.locals {
		saved[k] = v
	}
	fn()
	f.locals = saved
}

// ---- constructors & methods --------------------------------------------------

func (g *Generator) emitConstructor(layout *ClassLayout, ctorSym *symtab.ConstructorSymbol) {
	mangled := mangleCtor(layout.Name, ctorSym.Params)
	params := []string{fmt.Sprintf("%%%s* %%this", layout.Name)}
	for i, p := range ctorSym.ParamNodes {
		params = append(params, fmt.Sprintf("%s %%%s", llvmType(ctorSym.Params[i]), p.Name))
	}
	fmt.Fprintf(g.out, "\ndefine void @%s(%s) {\nentry:\n", mangled, strings.Join(params, ", "))

	fctx := g.newFuncCtx(layout)
	fctx.returnType = domain.TypeVoid
	for i, p := range ctorSym.ParamNodes {
		g.bindParamSlot(fctx, p.Name, ctorSym.Params[i])
	}
	g.emitBody(ctorSym.Decl.Body, fctx)
	if !fctx.terminated {
		fctx.emitLine("  ret void")
	}
	g.out.WriteString("}\n")
}

func (g *Generator) emitMethod(layout *ClassLayout, ms *symtab.MethodSymbol) {
	mangled := mangleMethod(layout.Name, ms.Name, ms.Params)
	retLLVM := llvmType(ms.ReturnType)
	params := []string{fmt.Sprintf("%%%s* %%this", layout.Name)}
	for i, p := range ms.ParamNodes {
		params = append(params, fmt.Sprintf("%s %%%s", llvmType(ms.Params[i]), p.Name))
	}
	fmt.Fprintf(g.out, "\ndefine %s @%s(%s) {\nentry:\n", retLLVM, mangled, strings.Join(params, ", "))

	fctx := g.newFuncCtx(layout)
	fctx.returnType = ms.ReturnType
	for i, p := range ms.ParamNodes {
		g.bindParamSlot(fctx, p.Name, ms.Params[i])
	}
	g.emitBody(ms.Implementation.Body, fctx)
	if !fctx.terminated {
		if ms.ReturnType.Kind == domain.Void {
			fctx.emitLine("  ret void")
		} else {
			fctx.emitLine("  ret %s %s", retLLVM, defaultValue(retLLVM))
		}
	}
	g.out.WriteString("}\n")
}

func (g *Generator) bindParamSlot(fctx *funcCtx, name string, sem domain.SemanticType) {
	lt := llvmType(sem)
	slot := fctx.newLocalSlot(name)
	fctx.emitLine("  %s = alloca %s", slot, lt)
	fctx.emitLine("  store %s %%%s, %s* %s", lt, name, lt, slot)
	fctx.locals[name] = localVar{reg: slot, sem: sem}
}

// ---- statement lowering -----------------------------------------------------

func (g *Generator) emitBody(stmts []domain.Stmt, fctx *funcCtx) {
	for _, st := range stmts {
		g.emitStmt(st, fctx)
	}
}

func (g *Generator) emitStmt(st domain.Stmt, fctx *funcCtx) {
	switch s := st.(type) {
	case *domain.VarDeclStmt:
		reg, sem := g.lowerExpr(s.Init, fctx)
		lt := llvmType(sem)
		slot := fctx.newLocalSlot(s.Name)
		fctx.emitLine("  %s = alloca %s", slot, lt)
		fctx.emitLine("  store %s %s, %s* %s", lt, reg, lt, slot)
		fctx.locals[s.Name] = localVar{reg: slot, sem: sem}

	case *domain.AssignStmt:
		valReg, valSem := g.lowerExpr(s.Value, fctx)
		ptr, ptrSem := g.lowerAssignTargetPtr(s.Target, fctx)
		coerced := g.coerce(fctx, valReg, valSem, ptrSem)
		fctx.emitLine("  store %s %s, %s* %s", llvmType(ptrSem), coerced, llvmType(ptrSem), ptr)

	case *domain.WhileStmt:
		condLabel := fctx.newLabel("while_cond")
		bodyLabel := fctx.newLabel("while_body")
		exitLabel := fctx.newLabel("while_exit")
		fctx.emitLine("  br label %%%s", condLabel)
		fctx.terminate()
		fctx.label(condLabel)
		condReg, _ := g.lowerExpr(s.Cond, fctx)
		fctx.emitLine("  br i1 %s, label %%%s, label %%%s", condReg, bodyLabel, exitLabel)
		fctx.terminate()
		fctx.label(bodyLabel)
		fctx.withLocalsSnapshot(func() { g.emitBody(s.Body, fctx) })
		fctx.emitLine("  br label %%%s", condLabel)
		fctx.terminate()
		fctx.label(exitLabel)

	case *domain.IfStmt:
		condReg, _ := g.lowerExpr(s.Cond, fctx)
		thenLabel := fctx.newLabel("if_then")
		mergeLabel := fctx.newLabel("if_merge")
		elseLabel := mergeLabel
		if s.Else != nil {
			elseLabel = fctx.newLabel("if_else")
		}
		fctx.emitLine("  br i1 %s, label %%%s, label %%%s", condReg, thenLabel, elseLabel)
		fctx.terminate()
		fctx.label(thenLabel)
		fctx.withLocalsSnapshot(func() { g.emitBody(s.Then, fctx) })
		fctx.emitLine("  br label %%%s", mergeLabel)
		fctx.terminate()
		if s.Else != nil {
			fctx.label(elseLabel)
			fctx.withLocalsSnapshot(func() { g.emitBody(s.Else, fctx) })
			fctx.emitLine("  br label %%%s", mergeLabel)
			fctx.terminate()
		}
		fctx.label(mergeLabel)

	case *domain.ReturnStmt:
		if s.Value == nil {
			fctx.emitLine("  ret void")
			fctx.terminate()
			return
		}
		reg, sem := g.lowerExpr(s.Value, fctx)
		coerced := g.coerce(fctx, reg, sem, fctx.returnType)
		fctx.emitLine("  ret %s %s", llvmType(fctx.returnType), coerced)
		fctx.terminate()

	case *domain.ExprStmt:
		g.lowerExpr(s.X, fctx)
	}
}

func (g *Generator) lowerAssignTargetPtr(target domain.Expr, fctx *funcCtx) (string, domain.SemanticType) {
	switch t := target.(type) {
	case *domain.Ident:
		if lv, ok := fctx.locals[t.Name]; ok {
			return lv.reg, lv.sem
		}
		return g.fieldPtr(fctx, "%this", fctx.class, t.Name)
	case *domain.MemberExpr:
		targetReg, targetSem := g.lowerExpr(t.Target, fctx)
		targetLayout := g.layouts[targetSem.Name]
		return g.fieldPtr(fctx, targetReg, targetLayout, t.Name)
	default:
		fctx.comment("unsupported assignment target %T", target)
		return "undef", domain.TypeUnknown
	}
}

func (g *Generator) fieldPtr(fctx *funcCtx, baseReg string, layout *ClassLayout, name string) (string, domain.SemanticType) {
	field, ok := layout.FieldByName(name)
	if !ok {
		fctx.comment("unknown field %s on %s", name, layout.Name)
		return baseReg, domain.TypeUnknown
	}
	ptr := fctx.newTemp()
	fctx.emitLine("  %s = getelementptr %%%s, %%%s* %s, i32 0, i32 %d", ptr, layout.Name, layout.Name, baseReg, field.Index)
	return ptr, field.Type
}

// coerce converts reg (of type from) to type to, applying only the
// built-in numeric widenings the backend supports, with no richer
// user-visible coercion, plus opaque bitcasts for Standard/Unknown
// wildcard slots.
func (g *Generator) coerce(fctx *funcCtx, reg string, from, to domain.SemanticType) string {
	if from.Name == to.Name {
		return reg
	}
	if from.Kind == domain.Integer && to.Kind == domain.Real {
		r := fctx.newTemp()
		fctx.emitLine("  %s = sitofp i32 %s to double", r, reg)
		return r
	}
	if llvmType(from) != llvmType(to) {
		r := fctx.newTemp()
		fctx.emitLine("  %s = bitcast %s %s to %s", r, llvmType(from), reg, llvmType(to))
		return r
	}
	return reg
}

// ---- expression lowering ----------------------------------------------------

func (g *Generator) lowerExpr(e domain.Expr, fctx *funcCtx) (string, domain.SemanticType) {
	sem, ok := g.model.ExprType(e)
	if !ok {
		sem = domain.TypeUnknown
	}
	switch x := e.(type) {
	case *domain.IntLit:
		return fmt.Sprintf("%d", x.Value), sem
	case *domain.RealLit:
		return formatReal(x.Value), sem
	case *domain.BoolLit:
		if x.Value {
			return "1", sem
		}
		return "0", sem
	case *domain.Ident:
		if lv, ok := fctx.locals[x.Name]; ok {
			reg := fctx.newTemp()
			lt := llvmType(lv.sem)
			fctx.emitLine("  %s = load %s, %s* %s", reg, lt, lt, lv.reg)
			return reg, lv.sem
		}
		ptr, ftype := g.fieldPtr(fctx, "%this", fctx.class, x.Name)
		reg := fctx.newTemp()
		lt := llvmType(ftype)
		fctx.emitLine("  %s = load %s, %s* %s", reg, lt, lt, ptr)
		return reg, ftype
	case *domain.ThisExpr:
		return "%this", sem
	case *domain.NewExpr:
		return g.lowerNewExpr(x, fctx, sem)
	case *domain.CallExpr:
		return g.lowerCallExpr(x, fctx, sem)
	case *domain.MemberExpr:
		return g.lowerMemberAccess(x, fctx, sem)
	default:
		fctx.comment("unsupported expression %T", e)
		return defaultValue(llvmType(sem)), sem
	}
}

func (g *Generator) lowerMemberAccess(x *domain.MemberExpr, fctx *funcCtx, sem domain.SemanticType) (string, domain.SemanticType) {
	targetReg, targetSem := g.lowerExpr(x.Target, fctx)
	if targetSem.Kind != domain.Class {
		fctx.comment("member access %s on non-class type %s", x.Name, targetSem)
		return defaultValue(llvmType(sem)), sem
	}
	layout := g.layouts[targetSem.Name]
	ptr, ftype := g.fieldPtr(fctx, targetReg, layout, x.Name)
	reg := fctx.newTemp()
	lt := llvmType(ftype)
	fctx.emitLine("  %s = load %s, %s* %s", reg, lt, lt, ptr)
	return reg, ftype
}

func (g *Generator) lowerNewExpr(x *domain.NewExpr, fctx *funcCtx, sem domain.SemanticType) (string, domain.SemanticType) {
	switch x.ClassName {
	case "Array":
		lenReg, _ := g.lowerExpr(x.Args[0], fctx)
		reg := fctx.newTemp()
		fctx.emitLine("  %s = call %%Array* @o_array_new(i32 %s)", reg, lenReg)
		return reg, sem

	case "List":
		switch len(x.Args) {
		case 0:
			reg := fctx.newTemp()
			fctx.emitLine("  %s = call %%List* @o_list_empty()", reg)
			return reg, sem
		case 1:
			elemSem, _ := g.model.ExprType(x.Args[0])
			valReg, _ := g.lowerExpr(x.Args[0], fctx)
			boxed := g.box(fctx, valReg, elemSem)
			reg := fctx.newTemp()
			fctx.emitLine("  %s = call %%List* @o_list_singleton(i8* %s)", reg, boxed)
			return reg, sem
		default:
			elemSem, _ := g.model.ExprType(x.Args[0])
			valReg, _ := g.lowerExpr(x.Args[0], fctx)
			boxed := g.box(fctx, valReg, elemSem)
			countReg, _ := g.lowerExpr(x.Args[1], fctx)
			reg := fctx.newTemp()
			fctx.emitLine("  %s = call %%List* @o_list_replicate(i8* %s, i32 %s)", reg, boxed, countReg)
			return reg, sem
		}

	default:
		if isBuiltinClassName(x.ClassName) {
			if len(x.Args) == 1 {
				if lit, ok := foldablePrimitiveLiteral(x.Args[0], x.ClassName); ok {
					return lit, sem
				}
				reg, _ := g.lowerExpr(x.Args[0], fctx)
				return reg, sem
			}
			return defaultValue(llvmType(sem)), sem
		}
		return g.lowerObjectAllocation(x, fctx, sem)
	}
}

func foldablePrimitiveLiteral(e domain.Expr, className string) (string, bool) {
	switch className {
	case "Integer":
		if lit, ok := e.(*domain.IntLit); ok {
			return fmt.Sprintf("%d", lit.Value), true
		}
	case "Real":
		if lit, ok := e.(*domain.RealLit); ok {
			return formatReal(lit.Value), true
		}
	case "Boolean":
		if lit, ok := e.(*domain.BoolLit); ok {
			if lit.Value {
				return "1", true
			}
			return "0", true
		}
	}
	return "", false
}

func (g *Generator) lowerObjectAllocation(x *domain.NewExpr, fctx *funcCtx, sem domain.SemanticType) (string, domain.SemanticType) {
	layout := g.layouts[x.ClassName]
	objReg := g.emitObjectAlloc(fctx, layout)

	argRegs := make([]string, len(x.Args))
	argTypes := make([]domain.SemanticType, len(x.Args))
	for i, a := range x.Args {
		argRegs[i], argTypes[i] = g.lowerExpr(a, fctx)
	}

	ctorSym, ok := resolveConstructorForCodegen(layout, argTypes)
	if !ok {
		fctx.comment("no matching constructor for %s", layout.Name)
		return objReg, sem
	}
	mangled := mangleCtor(layout.Name, ctorSym.Params)
	callArgs := []string{fmt.Sprintf("%%%s* %s", layout.Name, objReg)}
	for i, r := range argRegs {
		coerced := g.coerce(fctx, r, argTypes[i], ctorSym.Params[i])
		callArgs = append(callArgs, fmt.Sprintf("%s %s", llvmType(ctorSym.Params[i]), coerced))
	}
	fctx.emitLine("  call void @%s(%s)", mangled, strings.Join(callArgs, ", "))
	return objReg, sem
}

// emitObjectAlloc implements the "getelementptr null trick" size
// computation plus malloc/bitcast/classId-store sequence shared by
// object construction and @main.
func (g *Generator) emitObjectAlloc(fctx *funcCtx, layout *ClassLayout) string {
	sizePtr := fctx.newTemp()
	fctx.emitLine("  %s = getelementptr %%%s, %%%s* null, i32 1", sizePtr, layout.Name, layout.Name)
	sizeInt := fctx.newTemp()
	fctx.emitLine("  %s = ptrtoint %%%s* %s to i64", sizeInt, layout.Name, sizePtr)
	raw := fctx.newTemp()
	fctx.emitLine("  %s = call i8* @malloc(i64 %s)", raw, sizeInt)
	obj := fctx.newTemp()
	fctx.emitLine("  %s = bitcast i8* %s to %%%s*", obj, raw, layout.Name)
	idPtr := fctx.newTemp()
	fctx.emitLine("  %s = getelementptr %%%s, %%%s* %s, i32 0, i32 0", idPtr, layout.Name, layout.Name, obj)
	fctx.emitLine("  store i32 %d, i32* %s", layout.ClassId, idPtr)
	return obj
}

func resolveConstructorForCodegen(layout *ClassLayout, argTypes []domain.SemanticType) (*symtab.ConstructorSymbol, bool) {
	for _, c := range layout.Symbol.Constructors {
		if paramsMatchCodegen(c.Params, argTypes) {
			return c, true
		}
	}
	return nil, false
}

func paramsMatchCodegen(params, args []domain.SemanticType) bool {
	if len(params) != len(args) {
		return false
	}
	for i := range params {
		if params[i].Name != args[i].Name && !params[i].IsWildcard() && !args[i].IsWildcard() {
			return false
		}
	}
	return true
}

// ---- boxing/unboxing for generic containers -----------------------------------

func (g *Generator) box(fctx *funcCtx, reg string, sem domain.SemanticType) string {
	switch sem.Kind {
	case domain.Integer:
		return g.boxPrimitive(fctx, reg, "i32", 4)
	case domain.Real:
		return g.boxPrimitive(fctx, reg, "double", 8)
	case domain.Boolean:
		return g.boxPrimitive(fctx, reg, "i1", 1)
	default:
		ptr := fctx.newTemp()
		fctx.emitLine("  %s = bitcast %s %s to i8*", ptr, llvmType(sem), reg)
		return ptr
	}
}

func (g *Generator) boxPrimitive(fctx *funcCtx, reg, llvmTy string, size int) string {
	raw := fctx.newTemp()
	fctx.emitLine("  %s = call i8* @malloc(i64 %d)", raw, size)
	ptr := fctx.newTemp()
	fctx.emitLine("  %s = bitcast i8* %s to %s*", ptr, raw, llvmTy)
	fctx.emitLine("  store %s %s, %s* %s", llvmTy, reg, llvmTy, ptr)
	return raw
}

func (g *Generator) unbox(fctx *funcCtx, raw string, sem domain.SemanticType) string {
	switch sem.Kind {
	case domain.Integer:
		return g.unboxPrimitive(fctx, raw, "i32")
	case domain.Real:
		return g.unboxPrimitive(fctx, raw, "double")
	case domain.Boolean:
		return g.unboxPrimitive(fctx, raw, "i1")
	default:
		reg := fctx.newTemp()
		fctx.emitLine("  %s = bitcast i8* %s to %s", reg, raw, llvmType(sem))
		return reg
	}
}

func (g *Generator) unboxPrimitive(fctx *funcCtx, raw, llvmTy string) string {
	ptr := fctx.newTemp()
	fctx.emitLine("  %s = bitcast i8* %s to %s*", ptr, raw, llvmTy)
	reg := fctx.newTemp()
	fctx.emitLine("  %s = load %s, %s* %s", reg, llvmTy, llvmTy, ptr)
	return reg
}

// ---- calls: same-class, qualified, and dynamic dispatch --------------------

func (g *Generator) lowerCallExpr(x *domain.CallExpr, fctx *funcCtx, sem domain.SemanticType) (string, domain.SemanticType) {
	switch callee := x.Callee.(type) {
	case *domain.Ident:
		return g.lowerDispatchCall(fctx.class, "%this", callee.Name, x.Args, fctx, sem)
	case *domain.MemberExpr:
		targetReg, targetSem := g.lowerExpr(callee.Target, fctx)
		return g.lowerQualifiedCall(targetSem, targetReg, callee.Name, x.Args, fctx, sem)
	default:
		fctx.comment("unsupported call target %T", x.Callee)
		return defaultValue(llvmType(sem)), sem
	}
}

func (g *Generator) lowerQualifiedCall(targetSem domain.SemanticType, targetReg, name string, args []domain.Expr, fctx *funcCtx, sem domain.SemanticType) (string, domain.SemanticType) {
	switch targetSem.Kind {
	case domain.Integer, domain.Real, domain.Boolean:
		return g.lowerPrimitiveBuiltin(targetSem, targetReg, name, args, fctx, sem)
	case domain.Array:
		return g.lowerArrayBuiltin(targetSem, targetReg, name, args, fctx, sem)
	case domain.List:
		return g.lowerListBuiltin(targetSem, targetReg, name, args, fctx, sem)
	case domain.Class:
		return g.lowerDispatchCall(g.layouts[targetSem.Name], targetReg, name, args, fctx, sem)
	default:
		for _, a := range args {
			g.lowerExpr(a, fctx)
		}
		fctx.comment("call %s on unresolved type %s", name, targetSem)
		return defaultValue(llvmType(sem)), sem
	}
}

func (g *Generator) lowerPrimitiveBuiltin(targetSem domain.SemanticType, targetReg, name string, args []domain.Expr, fctx *funcCtx, sem domain.SemanticType) (string, domain.SemanticType) {
	argRegs := make([]string, len(args))
	for i, a := range args {
		argRegs[i], _ = g.lowerExpr(a, fctx)
	}

	binOp := func(op, ty string) string {
		r := fctx.newTemp()
		fctx.emitLine("  %s = %s %s %s, %s", r, op, ty, targetReg, argRegs[0])
		return r
	}
	cmp := func(instr, pred, ty string) string {
		r := fctx.newTemp()
		fctx.emitLine("  %s = %s %s %s %s, %s", r, instr, pred, ty, targetReg, argRegs[0])
		return r
	}

	switch targetSem.Kind {
	case domain.Integer:
		switch name {
		case "Plus":
			return binOp("add", "i32"), domain.TypeInteger
		case "Minus":
			return binOp("sub", "i32"), domain.TypeInteger
		case "Mult":
			return binOp("mul", "i32"), domain.TypeInteger
		case "Div":
			return binOp("sdiv", "i32"), domain.TypeInteger
		case "Rem":
			return binOp("srem", "i32"), domain.TypeInteger
		case "Less":
			return cmp("icmp", "slt", "i32"), domain.TypeBoolean
		case "Greater":
			return cmp("icmp", "sgt", "i32"), domain.TypeBoolean
		case "Equal":
			return cmp("icmp", "eq", "i32"), domain.TypeBoolean
		case "toReal":
			r := fctx.newTemp()
			fctx.emitLine("  %s = sitofp i32 %s to double", r, targetReg)
			return r, domain.TypeReal
		case "toBoolean":
			r := fctx.newTemp()
			fctx.emitLine("  %s = icmp ne i32 %s, 0", r, targetReg)
			return r, domain.TypeBoolean
		case "Print":
			r := fctx.newTemp()
			fctx.emitLine("  %s = call i32 (i8*, ...) @printf(i8* getelementptr inbounds ([4 x i8], [4 x i8]* @.fmt_int, i32 0, i32 0), i32 %s)", r, targetReg)
			return targetReg, domain.TypeInteger
		}
	case domain.Real:
		switch name {
		case "Plus":
			return binOp("fadd", "double"), domain.TypeReal
		case "Minus":
			return binOp("fsub", "double"), domain.TypeReal
		case "Mult":
			return binOp("fmul", "double"), domain.TypeReal
		case "Div":
			return binOp("fdiv", "double"), domain.TypeReal
		case "Less":
			return cmp("fcmp", "olt", "double"), domain.TypeBoolean
		case "Greater":
			return cmp("fcmp", "ogt", "double"), domain.TypeBoolean
		case "Equal":
			return cmp("fcmp", "oeq", "double"), domain.TypeBoolean
		case "toInteger":
			r := fctx.newTemp()
			fctx.emitLine("  %s = fptosi double %s to i32", r, targetReg)
			return r, domain.TypeInteger
		case "Print":
			r := fctx.newTemp()
			fctx.emitLine("  %s = call i32 (i8*, ...) @printf(i8* getelementptr inbounds ([4 x i8], [4 x i8]* @.fmt_real, i32 0, i32 0), double %s)", r, targetReg)
			return targetReg, domain.TypeReal
		}
	case domain.Boolean:
		switch name {
		case "And":
			return binOp("and", "i1"), domain.TypeBoolean
		case "Or":
			return binOp("or", "i1"), domain.TypeBoolean
		case "Xor":
			return binOp("xor", "i1"), domain.TypeBoolean
		case "Not":
			r := fctx.newTemp()
			fctx.emitLine("  %s = xor i1 %s, 1", r, targetReg)
			return r, domain.TypeBoolean
		case "toInteger":
			r := fctx.newTemp()
			fctx.emitLine("  %s = zext i1 %s to i32", r, targetReg)
			return r, domain.TypeInteger
		case "Print":
			ext := fctx.newTemp()
			fctx.emitLine("  %s = zext i1 %s to i32", ext, targetReg)
			r := fctx.newTemp()
			fctx.emitLine("  %s = call i32 (i8*, ...) @printf(i8* getelementptr inbounds ([4 x i8], [4 x i8]* @.fmt_int, i32 0, i32 0), i32 %s)", r, ext)
			return targetReg, domain.TypeBoolean
		}
	}
	fctx.comment("unrecognized primitive builtin %s on %s", name, targetSem)
	return defaultValue(llvmType(sem)), sem
}

func (g *Generator) lowerArrayBuiltin(targetSem domain.SemanticType, targetReg, name string, args []domain.Expr, fctx *funcCtx, sem domain.SemanticType) (string, domain.SemanticType) {
	elem := elemTypeOf(targetSem, "Array[")
	switch name {
	case "Length":
		r := fctx.newTemp()
		fctx.emitLine("  %s = call i32 @o_array_length(%%Array* %s)", r, targetReg)
		return r, domain.TypeInteger
	case "get":
		idxReg, _ := g.lowerExpr(args[0], fctx)
		raw := fctx.newTemp()
		fctx.emitLine("  %s = call i8* @o_array_get(%%Array* %s, i32 %s)", raw, targetReg, idxReg)
		return g.unbox(fctx, raw, elem), elem
	case "set":
		idxReg, _ := g.lowerExpr(args[0], fctx)
		valReg, valSem := g.lowerExpr(args[1], fctx)
		boxed := g.box(fctx, valReg, valSem)
		fctx.emitLine("  call void @o_array_set(%%Array* %s, i32 %s, i8* %s)", targetReg, idxReg, boxed)
		return targetReg, targetSem
	default:
		fctx.comment("Array has no method %s", name)
		return defaultValue(llvmType(sem)), sem
	}
}

func (g *Generator) lowerListBuiltin(targetSem domain.SemanticType, targetReg, name string, args []domain.Expr, fctx *funcCtx, sem domain.SemanticType) (string, domain.SemanticType) {
	elem := elemTypeOf(targetSem, "List[")
	switch name {
	case "append":
		valReg, valSem := g.lowerExpr(args[0], fctx)
		boxed := g.box(fctx, valReg, valSem)
		r := fctx.newTemp()
		fctx.emitLine("  %s = call %%List* @o_list_append(%%List* %s, i8* %s)", r, targetReg, boxed)
		return r, targetSem
	case "head":
		raw := fctx.newTemp()
		fctx.emitLine("  %s = call i8* @o_list_head(%%List* %s)", raw, targetReg)
		return g.unbox(fctx, raw, elem), elem
	case "tail":
		r := fctx.newTemp()
		fctx.emitLine("  %s = call %%List* @o_list_tail(%%List* %s)", r, targetReg)
		return r, targetSem
	case "toArray":
		r := fctx.newTemp()
		fctx.emitLine("  %s = call %%Array* @o_list_to_array(%%List* %s)", r, targetReg)
		return r, domain.ArrayType(elem)
	default:
		fctx.comment("List has no method %s", name)
		return defaultValue(llvmType(sem)), sem
	}
}

func stripWrapper(name, prefix string) (string, bool) {
	if !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, "]") {
		return "", false
	}
	return name[len(prefix) : len(name)-1], true
}

func elemTypeOf(container domain.SemanticType, prefix string) domain.SemanticType {
	if inner, ok := stripWrapper(container.Name, prefix); ok {
		return typeFromCanonicalName(inner)
	}
	return domain.TypeUnknown
}

func typeFromCanonicalName(name string) domain.SemanticType {
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
		return domain.ArrayType(typeFromCanonicalName(inner))
	}
	if inner, ok := stripWrapper(name, "List["); ok {
		return domain.ListType(typeFromCanonicalName(inner))
	}
	return domain.ClassType(name)
}

// lowerDispatchCall dispatches dynamically: the candidate set is the static
// class plus every descendant that carries an entry for this exact
// (name, parameter-type) signature, visited root-then-depth-first.
func (g *Generator) lowerDispatchCall(static *ClassLayout, receiverReg, name string, args []domain.Expr, fctx *funcCtx, sem domain.SemanticType) (string, domain.SemanticType) {
	argRegs := make([]string, len(args))
	argTypes := make([]domain.SemanticType, len(args))
	for i, a := range args {
		argRegs[i], argTypes[i] = g.lowerExpr(a, fctx)
	}

	ms, ok := resolveOverloadForDispatch(static.Symbol, name, argTypes)
	if !ok {
		fctx.comment("no declared method %s on %s", name, static.Name)
		return defaultValue(llvmType(sem)), sem
	}
	paramsKey := joinParamNames(ms.Params)
	candidates := collectDispatchCandidates(static, name, paramsKey)
	if len(candidates) == 0 {
		fctx.comment("no dispatch candidates for %s on %s", name, static.Name)
		return defaultValue(llvmType(sem)), sem
	}

	var resultSlot string
	if sem.Kind != domain.Void {
		resultSlot = fctx.newLocalSlot("dispatch")
		fctx.emitLine("  %s = alloca %s", resultSlot, llvmType(sem))
	}

	idPtr, _ := g.fieldPtr(fctx, receiverReg, static, "__classId")
	idReg := fctx.newTemp()
	fctx.emitLine("  %s = load i32, i32* %s", idReg, idPtr)

	defaultLabel := fctx.newLabel("dispatch_default")
	mergeLabel := fctx.newLabel("dispatch_merge")
	caseLabels := make([]string, len(candidates))
	for i := range candidates {
		caseLabels[i] = fctx.newLabel("dispatch_case")
	}

	var sw strings.Builder
	fmt.Fprintf(&sw, "  switch i32 %s, label %%%s [", idReg, defaultLabel)
	for i, c := range candidates {
		fmt.Fprintf(&sw, " i32 %d, label %%%s", c.ClassId, caseLabels[i])
	}
	sw.WriteString(" ]")
	fctx.emitLine("%s", sw.String())
	fctx.terminate()

	for i, c := range candidates {
		fctx.label(caseLabels[i])
		entry := c.Methods[methodKey{name: name, params: paramsKey}]
		declaring := entry.Declaring.Name
		castReg := fctx.newTemp()
		fctx.emitLine("  %s = bitcast %%%s* %s to %%%s*", castReg, static.Name, receiverReg, declaring)
		callArgs := []string{fmt.Sprintf("%%%s* %s", declaring, castReg)}
		for j, r := range argRegs {
			coerced := g.coerce(fctx, r, argTypes[j], entry.Symbol.Params[j])
			callArgs = append(callArgs, fmt.Sprintf("%s %s", llvmType(entry.Symbol.Params[j]), coerced))
		}
		mangled := mangleMethod(declaring, name, entry.Symbol.Params)
		if sem.Kind == domain.Void {
			fctx.emitLine("  call void @%s(%s)", mangled, strings.Join(callArgs, ", "))
		} else {
			r := fctx.newTemp()
			fctx.emitLine("  %s = call %s @%s(%s)", r, llvmType(ms.ReturnType), mangled, strings.Join(callArgs, ", "))
			fctx.emitLine("  store %s %s, %s* %s", llvmType(sem), r, llvmType(sem), resultSlot)
		}
		fctx.emitLine("  br label %%%s", mergeLabel)
		fctx.terminate()
	}

	fctx.label(defaultLabel)
	if sem.Kind != domain.Void {
		fctx.emitLine("  store %s %s, %s* %s", llvmType(sem), defaultValue(llvmType(sem)), llvmType(sem), resultSlot)
	}
	fctx.emitLine("  br label %%%s", mergeLabel)
	fctx.terminate()

	fctx.label(mergeLabel)
	if sem.Kind == domain.Void {
		return "", sem
	}
	reg := fctx.newTemp()
	fctx.emitLine("  %s = load %s, %s* %s", reg, llvmType(sem), llvmType(sem), resultSlot)
	return reg, sem
}

func resolveOverloadForDispatch(cs *symtab.ClassSymbol, name string, argTypes []domain.SemanticType) (*symtab.MethodSymbol, bool) {
	for _, ms := range cs.Overloads(name) {
		if paramsMatchCodegen(ms.Params, argTypes) {
			return ms, true
		}
	}
	return nil, false
}

func collectDispatchCandidates(root *ClassLayout, name, paramsKey string) []*ClassLayout {
	var out []*ClassLayout
	var walk func(l *ClassLayout)
	walk = func(l *ClassLayout) {
		if _, ok := l.Methods[methodKey{name: name, params: paramsKey}]; ok {
			out = append(out, l)
		}
		for _, d := range l.Derived {
			walk(d)
		}
	}
	walk(root)
	return out
}

// ---- main generation ----------------------------------------------------------

func (g *Generator) emitMain(program *domain.Program) {
	var start *ClassLayout
	if l, ok := g.layouts["Main"]; ok {
		start = l
	} else {
		for _, cd := range program.Classes {
			if l, ok := g.layouts[cd.Name]; ok {
				start = l
				break
			}
		}
	}

	g.out.WriteString("\ndefine i32 @main() {\nentry:\n")
	if start == nil {
		g.out.WriteString("  ret i32 0\n}\n")
		return
	}

	fctx := g.newFuncCtx(start)
	obj := g.emitObjectAlloc(fctx, start)

	var zeroCtor *symtab.ConstructorSymbol
	for _, c := range start.Symbol.Constructors {
		if len(c.Params) == 0 {
			zeroCtor = c
			break
		}
	}
	if zeroCtor != nil {
		mangled := mangleCtor(start.Name, zeroCtor.Params)
		fctx.emitLine("  call void @%s(%%%s* %s)", mangled, start.Name, obj)
	} else {
		fctx.comment("no zero-argument constructor for start class %s", start.Name)
	}
	fctx.emitLine("  ret i32 0")
	g.out.WriteString("}\n")
}
