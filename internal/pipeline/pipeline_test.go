package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sokoide/oolang/grammar"
	"github.com/sokoide/oolang/internal/domain"
)

func TestCompileSucceedsAndReturnsStats(t *testing.T) {
	result, err := Compile(`class Main is
  method run : Integer => Integer(1).Plus(Integer(2))
end
`, Options{Filename: "t.oo"})
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.Contains(t, result.IR, "; ModuleID")
	assert.Contains(t, result.IR, "define i32 @main()")
	assert.Equal(t, 1, result.Stats.ClassCount)
	assert.Equal(t, 1, result.Stats.MethodCount)
	assert.NotEmpty(t, result.Stats.RunID)
	assert.Equal(t, len(result.IR), result.Stats.IRBytes)
}

func TestCompileTwoRunsProduceDifferentRunIDs(t *testing.T) {
	src := `class Main is
end
`
	first, err := Compile(src, Options{Filename: "t.oo"})
	require.NoError(t, err)
	second, err := Compile(src, Options{Filename: "t.oo"})
	require.NoError(t, err)
	assert.NotEqual(t, first.Stats.RunID, second.Stats.RunID)
}

func TestCompileReturnsParseErrorOnSyntaxFailure(t *testing.T) {
	_, err := Compile("class A is", Options{Filename: "t.oo"})
	require.Error(t, err)
	var pe *grammar.ParseError
	require.ErrorAs(t, err, &pe)
}

func TestCompileReturnsCompilerErrorOnSemanticFailure(t *testing.T) {
	_, err := Compile(`class A is
end
class A is
end
`, Options{Filename: "t.oo"})
	require.Error(t, err)
	_, ok := err.(domain.CompilerError)
	assert.True(t, ok)
}

func TestFormatParseErrorPrefix(t *testing.T) {
	_, err := Compile("class A is", Options{Filename: "t.oo"})
	require.Error(t, err)
	msg := FormatParseError(err)
	assert.Contains(t, msg, "Parse failed:")
}

func TestFormatSemanticErrorPrefix(t *testing.T) {
	_, err := Compile(`class A extends Ghost is
end
`, Options{Filename: "t.oo"})
	require.Error(t, err)
	msg := FormatSemanticError(err)
	assert.Contains(t, msg, "Semantic error:")
}

func TestCompileCountsFieldsAndMethodsAcrossClasses(t *testing.T) {
	result, err := Compile(`class A is
  var x : Integer(1)
  var y : Integer(2)
  method f : Integer => x.Plus(y)
end
class B is
  method g : Integer => Integer(1)
end
`, Options{Filename: "t.oo"})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Stats.ClassCount)
	assert.Equal(t, 2, result.Stats.MethodCount)
	assert.Equal(t, 2, result.Stats.FieldCount, "both fields are read by f, so the analyzer's dead-field pass keeps them")
}
