package semantic

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sokoide/oolang/grammar"
	"github.com/sokoide/oolang/internal/domain"
)

func analyzeSource(t *testing.T, src string) (*SemanticModel, error) {
	t.Helper()
	prog, err := grammar.Parse("t.oo", src)
	require.NoError(t, err)
	return NewAnalyzer().Analyze(prog)
}

func requireErrorKind(t *testing.T, err error, kind domain.ErrorKind) {
	t.Helper()
	require.Error(t, err)
	ce, ok := err.(domain.CompilerError)
	require.True(t, ok, "expected domain.CompilerError, got %T", err)
	assert.Equal(t, kind, ce.Kind)
}

func TestAnalyzeSimpleClassSucceeds(t *testing.T) {
	model, err := analyzeSource(t, `class Main is
  method run : Integer => Integer(1).Plus(Integer(2))
end
`)
	require.NoError(t, err)
	require.NotNil(t, model)
	cls, ok := model.ClassByName("Main")
	require.True(t, ok)
	assert.Equal(t, "Main", cls.Name)
}

func TestAnalyzeDuplicateClassFails(t *testing.T) {
	_, err := analyzeSource(t, `class A is
end
class A is
end
`)
	requireErrorKind(t, err, domain.DuplicateClass)
}

func TestAnalyzeUnknownBaseFails(t *testing.T) {
	_, err := analyzeSource(t, `class B extends Ghost is
end
`)
	requireErrorKind(t, err, domain.UnknownBase)
}

func TestAnalyzeInheritanceCycleFails(t *testing.T) {
	_, err := analyzeSource(t, `class A extends B is
end
class B extends A is
end
`)
	requireErrorKind(t, err, domain.InheritanceCycleOrUnresolved)
}

func TestAnalyzeDuplicateFieldFails(t *testing.T) {
	_, err := analyzeSource(t, `class A is
  var x : Integer(1)
  var x : Integer(2)
end
`)
	requireErrorKind(t, err, domain.DuplicateField)
}

func TestAnalyzeUndeclaredIdentifierFails(t *testing.T) {
	_, err := analyzeSource(t, `class A is
  method run is
    var y : x
  end
end
`)
	requireErrorKind(t, err, domain.UndeclaredIdentifier)
}

func TestAnalyzeVoidInitializerFails(t *testing.T) {
	_, err := analyzeSource(t, `class A is
  method doThing is
  end

  method run is
    var y : this.doThing()
  end
end
`)
	requireErrorKind(t, err, domain.VoidInitializer)
}

func TestAnalyzeReturnTypeMismatchFails(t *testing.T) {
	_, err := analyzeSource(t, `class A is
  method f : Integer
  method f : Real is
    return Real(1.0)
  end
end
`)
	requireErrorKind(t, err, domain.ReturnTypeMismatchBetweenDeclarations)
}

func TestAnalyzeExpressionBodyWithoutReturnTypeFails(t *testing.T) {
	_, err := analyzeSource(t, `class A is
  method f => Integer(1)
end
`)
	requireErrorKind(t, err, domain.ExpressionBodyWithoutReturnType)
}

func TestAnalyzeWhileConditionMustBeBoolean(t *testing.T) {
	_, err := analyzeSource(t, `class A is
  method run is
    while Integer(1) is
    end
  end
end
`)
	requireErrorKind(t, err, domain.TypeMismatch)
}

func TestAnalyzeMethodNotDeclaredFails(t *testing.T) {
	_, err := analyzeSource(t, `class A is
  method run is
    var x : this.missing()
  end
end
`)
	requireErrorKind(t, err, domain.MethodNotDeclared)
}

func TestAnalyzeUnusedFieldIsRemoved(t *testing.T) {
	model, err := analyzeSource(t, `class A is
  var used : Integer(1)
  var unused : Integer(2)

  method run : Integer => used
end
`)
	require.NoError(t, err)
	cls, ok := model.ClassByName("A")
	require.True(t, ok)
	fields := cls.Fields()
	require.Len(t, fields, 1)
	assert.Equal(t, "used", fields[0].Name)
}

func TestAnalyzeFieldInheritedFromBaseIsVisible(t *testing.T) {
	model, err := analyzeSource(t, `class Base is
  var shared : Integer(1)
end
class Derived extends Base is
  method run : Integer => shared
end
`)
	require.NoError(t, err)
	require.NotNil(t, model)
}

func TestAnalyzeDuplicateForwardDeclarationFails(t *testing.T) {
	_, err := analyzeSource(t, `class A is
  method f : Integer
  method f : Integer
end
`)
	requireErrorKind(t, err, domain.DuplicateForwardDeclaration)
}

func TestAnalyzeArrayAndListBuiltins(t *testing.T) {
	model, err := analyzeSource(t, `class Main is
  method run : Integer is
    var a : Array[Integer](3)
    a.set(0, Integer(9))
    var xs : List[Integer]()
    xs = xs.append(Integer(1))
    return a.get(0).Plus(xs.head())
  end
end
`)
	require.NoError(t, err)
	require.NotNil(t, model)
}

func TestAnalyzeNoMatchingOverloadFails(t *testing.T) {
	_, err := analyzeSource(t, `class A is
  constructor (x : Integer) is
  end
end
class Main is
  method run is
    var a : A(Real(1.0))
  end
end
`)
	requireErrorKind(t, err, domain.NoMatchingOverload)
}
