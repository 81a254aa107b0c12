package lexer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scanAll(t *testing.T, src string) []Token {
	t.Helper()
	l := New("test.oo", strings.NewReader(src))
	var out []Token
	for {
		tok := l.Next()
		out = append(out, tok)
		if tok.Type == TokenEOF {
			return out
		}
	}
}

func types(toks []Token) []TokenType {
	out := make([]TokenType, len(toks))
	for i, tok := range toks {
		out[i] = tok.Type
	}
	return out
}

func TestLexerKeywordsAndPunctuation(t *testing.T) {
	toks := scanAll(t, "class A extends B is end")
	assert.Equal(t, []TokenType{
		TokenClass, TokenIdent, TokenExtends, TokenIdent, TokenIs, TokenEnd, TokenEOF,
	}, types(toks))
}

func TestLexerIntAndRealLiterals(t *testing.T) {
	toks := scanAll(t, "42 3.14 7")
	require.Len(t, toks, 4)
	assert.Equal(t, TokenInt, toks[0].Type)
	assert.Equal(t, "42", toks[0].Value)
	assert.Equal(t, TokenReal, toks[1].Type)
	assert.Equal(t, "3.14", toks[1].Value)
	assert.Equal(t, TokenInt, toks[2].Type)
}

func TestLexerArrowVsAssign(t *testing.T) {
	toks := scanAll(t, "= =>")
	assert.Equal(t, []TokenType{TokenAssign, TokenArrow, TokenEOF}, types(toks))
}

func TestLexerLineCommentsAreSkipped(t *testing.T) {
	toks := scanAll(t, "var x : 1 // a comment\nvar y : 2")
	assert.Equal(t, []TokenType{
		TokenVar, TokenIdent, TokenColon, TokenInt,
		TokenVar, TokenIdent, TokenColon, TokenInt, TokenEOF,
	}, types(toks))
}

func TestLexerPeekDoesNotConsume(t *testing.T) {
	l := New("test.oo", strings.NewReader("this . x"))
	first := l.Peek()
	second := l.Peek()
	assert.Equal(t, first, second)

	consumed := l.Next()
	assert.Equal(t, TokenThis, consumed.Type)
	assert.Equal(t, TokenDot, l.Next().Type)
}

func TestLexerUnexpectedCharacterProducesErrorToken(t *testing.T) {
	toks := scanAll(t, "@")
	require.Len(t, toks, 2)
	assert.Equal(t, TokenError, toks[0].Type)
}

func TestLexerTracksLineAndColumn(t *testing.T) {
	l := New("test.oo", strings.NewReader("a\nb"))
	first := l.Next()
	assert.Equal(t, 1, first.Position.Line)
	assert.Equal(t, 1, first.Position.Column)
	second := l.Next()
	assert.Equal(t, 2, second.Position.Line)
	assert.Equal(t, 1, second.Position.Column)
}

func TestTokenTypeStringFallsBackToUnknown(t *testing.T) {
	assert.Equal(t, "UNKNOWN", TokenType(9999).String())
	assert.Equal(t, "class", TokenClass.String())
}
