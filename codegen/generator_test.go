package codegen

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sokoide/oolang/grammar"
	"github.com/sokoide/oolang/internal/symtab"
	"github.com/sokoide/oolang/semantic"
)

func generate(t *testing.T, src string) string {
	t.Helper()
	prog, err := grammar.Parse("t.oo", src)
	require.NoError(t, err)
	model, err := semantic.NewAnalyzer().Analyze(prog)
	require.NoError(t, err)

	classes := model.ClassesInOrder()
	syms := make([]*symtab.ClassSymbol, len(classes))
	for i, c := range classes {
		syms[i] = c.Symbol()
	}
	layouts := BuildClassLayouts(syms)
	gen := NewGenerator(layouts, model, "test-run-id")
	return gen.Generate(prog)
}

func TestGeneratePreambleIsEmittedOnce(t *testing.T) {
	ir := generate(t, `class Main is
end
`)
	assert.Equal(t, 1, strings.Count(ir, "%Array = type { i32, i8* }"))
	assert.Contains(t, ir, "; run test-run-id")
	assert.Contains(t, ir, "declare i8* @malloc(i64)")
}

func TestGenerateClassTypeDefIncludesClassIdField(t *testing.T) {
	ir := generate(t, `class Counter is
  var total : Integer(0)
  method value : Integer => total
end
`)
	assert.Contains(t, ir, "%Counter = type { i32, i32 }")
}

func TestGenerateConstructorIsMangled(t *testing.T) {
	ir := generate(t, `class Point is
  var x : Integer(0)
  constructor (a : Integer) is
    x = a
  end
end
`)
	assert.Contains(t, ir, "define void @Point_ctor__Integer(%Point* %this, i32 %a)")
}

func TestGenerateMethodIsMangledAndReturnsDefault(t *testing.T) {
	ir := generate(t, `class A is
  method f : Integer
  method f : Integer is
  end
end
`)
	assert.Contains(t, ir, "define i32 @A_f(%A* %this) {")
	assert.Contains(t, ir, "ret i32 0")
}

func TestGenerateExpressionBodiedMethodReturnsComputedValue(t *testing.T) {
	ir := generate(t, `class Main is
  method run : Integer => Integer(1).Plus(Integer(2))
end
`)
	assert.Contains(t, ir, "add i32 1, 2")
	assert.Contains(t, ir, "ret i32")
}

func TestGenerateWhileEmitsThreeLabels(t *testing.T) {
	ir := generate(t, `class A is
  method run is
    var n : Integer(0)
    while n.Less(Integer(10)) is
      n = n.Plus(Integer(1))
    end
  end
end
`)
	assert.Contains(t, ir, "while_cond_0:")
	assert.Contains(t, ir, "while_body_1:")
	assert.Contains(t, ir, "while_exit_2:")
}

func TestGenerateIfWithElseEmitsBothBranches(t *testing.T) {
	ir := generate(t, `class A is
  method run : Integer is
    var n : Integer(0)
    if n.Equal(Integer(0)) is
      return Integer(1)
    else
      return Integer(2)
    end
  end
end
`)
	assert.Contains(t, ir, "if_then_0:")
	assert.Contains(t, ir, "if_else_2:")
	assert.Contains(t, ir, "if_merge_1:")
}

func TestGenerateMainAllocatesAndConstructsStartClass(t *testing.T) {
	ir := generate(t, `class Main is
  constructor () is
  end
end
`)
	assert.Contains(t, ir, "define i32 @main() {")
	assert.Contains(t, ir, "call void @Main_ctor(%Main* ")
	assert.Contains(t, ir, "ret i32 0")
}

func TestGenerateMainWithoutZeroArgConstructorEmitsComment(t *testing.T) {
	ir := generate(t, `class Main is
  constructor (x : Integer) is
  end
end
`)
	assert.Contains(t, ir, "no zero-argument constructor")
}

func TestGenerateMainWithoutAnyClassReturnsZero(t *testing.T) {
	ir := generate(t, ``)
	assert.Contains(t, ir, "define i32 @main() {\nentry:\n  ret i32 0\n}")
}

func TestGenerateDynamicDispatchEmitsSwitchOverDescendantClassIds(t *testing.T) {
	ir := generate(t, `class Shape is
  method area : Integer => Integer(0)
end
class Circle extends Shape is
  method area : Integer => Integer(1)
end
class Square extends Shape is
  method area : Integer => Integer(2)
end
class Main is
  method describe(s : Shape) : Integer => s.area()
end
`)
	assert.Contains(t, ir, "switch i32")
	assert.Contains(t, ir, "dispatch_default")
	assert.Contains(t, ir, "dispatch_merge")
	assert.Contains(t, ir, "call i32 @Shape_area(%Shape*")
	assert.Contains(t, ir, "call i32 @Circle_area(%Circle*")
	assert.Contains(t, ir, "call i32 @Square_area(%Square*")
}

func TestGenerateDynamicDispatchOnInheritedMethodCallsDeclaringClass(t *testing.T) {
	ir := generate(t, `class A is
  method f : Integer => Integer(1)
end
class B extends A is
end
class Main is
  var x : B()
  method g : Integer => x.f()
end
`)
	assert.Contains(t, ir, "bitcast %B* ")
	assert.Contains(t, ir, "to %A*")
	assert.Contains(t, ir, "call i32 @A_f(%A*")
	assert.NotContains(t, ir, "@B_f")
}

func TestGenerateArrayBuiltinsCallRuntimeABI(t *testing.T) {
	ir := generate(t, `class Main is
  method run : Integer is
    var a : Array[Integer](3)
    a.set(0, Integer(9))
    return a.get(0)
  end
end
`)
	assert.Contains(t, ir, "call %Array* @o_array_new(i32 3)")
	assert.Contains(t, ir, "call void @o_array_set(%Array*")
	assert.Contains(t, ir, "call i8* @o_array_get(%Array*")
}

func TestGenerateListBuiltinsCallRuntimeABI(t *testing.T) {
	ir := generate(t, `class Main is
  method run : Integer is
    var xs : List[Integer]()
    xs = xs.append(Integer(1))
    return xs.head()
  end
end
`)
	assert.Contains(t, ir, "call %List* @o_list_empty()")
	assert.Contains(t, ir, "call %List* @o_list_append(%List*")
	assert.Contains(t, ir, "call i8* @o_list_head(%List*")
}

func TestGenerateObjectAllocationUsesGetelementptrNullTrick(t *testing.T) {
	ir := generate(t, `class A is
end
class Main is
  method run is
    var a : A()
  end
end
`)
	assert.Contains(t, ir, "getelementptr %A, %A* null, i32 1")
	assert.Contains(t, ir, "ptrtoint %A* ")
	assert.Contains(t, ir, "call i8* @malloc(i64 ")
}

func TestGenerateIsDeterministicAcrossRuns(t *testing.T) {
	src := `class B is
  method g : Integer => Integer(1)
end
class A is
  method f : Integer => Integer(2)
end
`
	first := generate(t, src)
	second := generate(t, src)
	assert.Equal(t, first, second)
}
