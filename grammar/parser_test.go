package grammar

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sokoide/oolang/internal/domain"
)

func TestParseEmptyProgram(t *testing.T) {
	prog, err := Parse("t.oo", "")
	require.NoError(t, err)
	assert.Empty(t, prog.Classes)
}

func TestParseClassWithFieldConstructorAndMethod(t *testing.T) {
	src := `class Counter is
  var total : Integer(0)

  constructor (start : Integer) is
    total = start
  end

  method increment is
    total = total.Plus(Integer(1))
  end

  method value : Integer => total
end
`
	prog, err := Parse("t.oo", src)
	require.NoError(t, err)
	require.Len(t, prog.Classes, 1)

	class := prog.Classes[0]
	assert.Equal(t, "Counter", class.Name)
	require.Len(t, class.Members, 4)

	field, ok := class.Members[0].(*domain.FieldDecl)
	require.True(t, ok)
	assert.Equal(t, "total", field.Name)

	ctor, ok := class.Members[1].(*domain.ConstructorDecl)
	require.True(t, ok)
	require.Len(t, ctor.Params, 1)
	assert.Equal(t, "start", ctor.Params[0].Name)
	assert.Equal(t, "Integer", ctor.Params[0].Type.Name)

	inc, ok := class.Members[2].(*domain.MethodDecl)
	require.True(t, ok)
	assert.Equal(t, "increment", inc.Name)
	assert.False(t, inc.IsExprBody)
}

func TestParseExpressionBodiedMethod(t *testing.T) {
	src := `class Main is
  method run : Integer => Integer(1).Plus(Integer(2))
end
`
	prog, err := Parse("t.oo", src)
	require.NoError(t, err)
	method := prog.Classes[0].Members[0].(*domain.MethodDecl)
	assert.True(t, method.IsExprBody)
	require.Len(t, method.Body, 1)
	ret, ok := method.Body[0].(*domain.ReturnStmt)
	require.True(t, ok)
	assert.NotNil(t, ret.Value)
}

func TestParseForwardDeclarationHasNoBody(t *testing.T) {
	src := `class Shape is
  method area : Real
end
`
	prog, err := Parse("t.oo", src)
	require.NoError(t, err)
	method := prog.Classes[0].Members[0].(*domain.MethodDecl)
	assert.Nil(t, method.Body)
	assert.False(t, method.IsExprBody)
}

func TestParseClassExtends(t *testing.T) {
	src := `class B extends A is
end
`
	prog, err := Parse("t.oo", src)
	require.NoError(t, err)
	assert.Equal(t, "A", prog.Classes[0].BaseName)
}

func TestParseWhileAndIf(t *testing.T) {
	src := `class A is
  method run is
    var n : Integer(0)
    while n.Less(Integer(10)) is
      if n.Equal(Integer(5)) is
        n = n.Plus(Integer(1))
      else
        n = n.Plus(Integer(2))
      end
    end
  end
end
`
	prog, err := Parse("t.oo", src)
	require.NoError(t, err)
	method := prog.Classes[0].Members[0].(*domain.MethodDecl)
	require.Len(t, method.Body, 2)

	whileStmt, ok := method.Body[1].(*domain.WhileStmt)
	require.True(t, ok)
	require.Len(t, whileStmt.Body, 1)

	ifStmt, ok := whileStmt.Body[0].(*domain.IfStmt)
	require.True(t, ok)
	assert.Len(t, ifStmt.Then, 1)
	assert.Len(t, ifStmt.Else, 1)
}

func TestParseUppercaseIdentIsConstructorCall(t *testing.T) {
	src := `class Main is
  method run is
    var a : Array[Integer](3)
    var x : A()
  end
end
`
	prog, err := Parse("t.oo", src)
	require.NoError(t, err)
	method := prog.Classes[0].Members[0].(*domain.MethodDecl)

	arrayDecl := method.Body[0].(*domain.VarDeclStmt)
	newExpr, ok := arrayDecl.Init.(*domain.NewExpr)
	require.True(t, ok)
	assert.Equal(t, "Array", newExpr.ClassName)
	require.NotNil(t, newExpr.Generic)
	assert.Equal(t, "Integer", newExpr.Generic.Name)

	plainDecl := method.Body[1].(*domain.VarDeclStmt)
	newExpr2, ok := plainDecl.Init.(*domain.NewExpr)
	require.True(t, ok)
	assert.Equal(t, "A", newExpr2.ClassName)
}

func TestParseLowercaseIdentIsMethodCall(t *testing.T) {
	src := `class Main is
  method run is
    var x : this.helper(1)
  end
end
`
	prog, err := Parse("t.oo", src)
	require.NoError(t, err)
	method := prog.Classes[0].Members[0].(*domain.MethodDecl)
	decl := method.Body[0].(*domain.VarDeclStmt)
	call, ok := decl.Init.(*domain.CallExpr)
	require.True(t, ok)
	member, ok := call.Callee.(*domain.MemberExpr)
	require.True(t, ok)
	assert.Equal(t, "helper", member.Name)
	_, ok = member.Target.(*domain.ThisExpr)
	assert.True(t, ok)
}

func TestParseAssignmentStatement(t *testing.T) {
	src := `class A is
  method run is
    x = Integer(5)
  end
end
`
	prog, err := Parse("t.oo", src)
	require.NoError(t, err)
	method := prog.Classes[0].Members[0].(*domain.MethodDecl)
	assign, ok := method.Body[0].(*domain.AssignStmt)
	require.True(t, ok)
	ident, ok := assign.Target.(*domain.Ident)
	require.True(t, ok)
	assert.Equal(t, "x", ident.Name)
}

func TestParseReturnWithoutValue(t *testing.T) {
	src := `class A is
  method run is
    return
  end
end
`
	prog, err := Parse("t.oo", src)
	require.NoError(t, err)
	method := prog.Classes[0].Members[0].(*domain.MethodDecl)
	ret, ok := method.Body[0].(*domain.ReturnStmt)
	require.True(t, ok)
	assert.Nil(t, ret.Value)
}

func TestParseSyntaxErrorReturnsParseError(t *testing.T) {
	_, err := Parse("t.oo", "class A is")
	require.Error(t, err)
	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	assert.Contains(t, pe.Error(), "t.oo")
}

func TestParseNestedGenericTypeRef(t *testing.T) {
	src := `class A is
  method f(xs : List[Array[Integer]]) is
  end
end
`
	prog, err := Parse("t.oo", src)
	require.NoError(t, err)
	method := prog.Classes[0].Members[0].(*domain.MethodDecl)
	require.Len(t, method.Params, 1)
	typ := method.Params[0].Type
	assert.Equal(t, "List", typ.Name)
	require.NotNil(t, typ.Elem)
	assert.Equal(t, "Array", typ.Elem.Name)
	require.NotNil(t, typ.Elem.Elem)
	assert.Equal(t, "Integer", typ.Elem.Elem.Name)
}
