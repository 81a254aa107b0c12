package symtab

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sokoide/oolang/internal/domain"
)

func TestScopeDeclareAndLookup(t *testing.T) {
	scope := NewMethodScope(nil)
	sym := &VariableSymbol{Name: "x", Type: domain.TypeInteger, Kind: KindParameter}
	require.NoError(t, scope.Declare(sym))

	got, ok := scope.Lookup("x")
	require.True(t, ok)
	assert.Same(t, sym, got)
}

func TestScopeDeclareDuplicateFails(t *testing.T) {
	scope := NewMethodScope(nil)
	require.NoError(t, scope.Declare(&VariableSymbol{Name: "x", Kind: KindLocal}))

	err := scope.Declare(&VariableSymbol{Name: "x", Kind: KindLocal})
	assert.Error(t, err)
}

func TestScopePushShadowsOuter(t *testing.T) {
	outer := NewMethodScope(nil)
	require.NoError(t, outer.Declare(&VariableSymbol{Name: "x", Kind: KindLocal, Type: domain.TypeInteger}))

	inner := outer.Push()
	require.NoError(t, inner.Declare(&VariableSymbol{Name: "x", Kind: KindLocal, Type: domain.TypeReal}))

	got, ok := inner.Lookup("x")
	require.True(t, ok)
	assert.Equal(t, domain.TypeReal, got.Type)

	got, ok = outer.Lookup("x")
	require.True(t, ok)
	assert.Equal(t, domain.TypeInteger, got.Type)
}

func TestScopeLookupFallsBackToClassFields(t *testing.T) {
	class := NewClassSymbol(&domain.ClassDecl{Name: "A"})
	field := &VariableSymbol{Name: "f", Type: domain.TypeInteger, Kind: KindField}
	require.True(t, class.DeclareField(field))

	scope := NewMethodScope(class)
	got, ok := scope.Lookup("f")
	require.True(t, ok)
	assert.Same(t, field, got)
}

func TestScopeLookupMissReturnsFalse(t *testing.T) {
	scope := NewMethodScope(nil)
	_, ok := scope.Lookup("nope")
	assert.False(t, ok)
}

func TestScopeLocalsInOrder(t *testing.T) {
	scope := NewMethodScope(nil)
	require.NoError(t, scope.Declare(&VariableSymbol{Name: "a", Kind: KindLocal}))
	require.NoError(t, scope.Declare(&VariableSymbol{Name: "b", Kind: KindLocal}))

	locals := scope.LocalsInOrder()
	require.Len(t, locals, 2)
	assert.Equal(t, "a", locals[0].Name)
	assert.Equal(t, "b", locals[1].Name)
}
