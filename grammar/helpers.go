package grammar

import (
	"io"
	"strconv"
	"strings"

	"github.com/sokoide/oolang/lexer"
)

func stringsReader(s string) io.Reader { return strings.NewReader(s) }

func parseInt(p *Parser, t lexer.Token) int64 {
	v, err := strconv.ParseInt(t.Value, 10, 64)
	if err != nil {
		p.fail(t.Position, "invalid integer literal %q", t.Value)
	}
	return v
}

func parseReal(p *Parser, t lexer.Token) float64 {
	v, err := strconv.ParseFloat(t.Value, 64)
	if err != nil {
		p.fail(t.Position, "invalid real literal %q", t.Value)
	}
	return v
}
