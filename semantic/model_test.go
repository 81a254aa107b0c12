package semantic

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sokoide/oolang/grammar"
	"github.com/sokoide/oolang/internal/domain"
)

func TestModelExprTypeIsRecordedForEveryEvaluatedExpression(t *testing.T) {
	prog, err := grammar.Parse("t.oo", `class Main is
  method run : Integer => Integer(1).Plus(Integer(2))
end
`)
	require.NoError(t, err)

	model, err := NewAnalyzer().Analyze(prog)
	require.NoError(t, err)

	method := prog.Classes[0].Members[0].(*domain.MethodDecl)
	ret := method.Body[0].(*domain.ReturnStmt)
	typ, ok := model.ExprType(ret.Value)
	require.True(t, ok)
	assert.Equal(t, domain.TypeStandard, typ, "primitive builtin calls resolve to Standard in the analyzer")
}

func TestModelVarTypeRecordsFieldAndParamTypes(t *testing.T) {
	prog, err := grammar.Parse("t.oo", `class Counter is
  var total : Integer(0)

  constructor (start : Integer) is
    total = start
  end
end
`)
	require.NoError(t, err)

	model, err := NewAnalyzer().Analyze(prog)
	require.NoError(t, err)

	field := prog.Classes[0].Members[0].(*domain.FieldDecl)
	typ, ok := model.VarType(field)
	require.True(t, ok)
	assert.Equal(t, domain.TypeInteger, typ)

	ctor := prog.Classes[0].Members[1].(*domain.ConstructorDecl)
	paramTyp, ok := model.VarType(ctor.Params[0])
	require.True(t, ok)
	assert.Equal(t, domain.TypeInteger, paramTyp)
}

func TestModelClassesInOrderMatchesDeclarationOrder(t *testing.T) {
	prog, err := grammar.Parse("t.oo", `class B is
end
class A is
end
`)
	require.NoError(t, err)

	model, err := NewAnalyzer().Analyze(prog)
	require.NoError(t, err)

	classes := model.ClassesInOrder()
	require.Len(t, classes, 2)
	assert.Equal(t, "B", classes[0].Name)
	assert.Equal(t, "A", classes[1].Name)
}

func TestModelClassByNameMissReturnsFalse(t *testing.T) {
	prog, err := grammar.Parse("t.oo", `class A is
end
`)
	require.NoError(t, err)

	model, err := NewAnalyzer().Analyze(prog)
	require.NoError(t, err)

	_, ok := model.ClassByName("Ghost")
	assert.False(t, ok)
}
