// Package pipeline wires the lexer, parser, semantic analyzer and code
// generator into the single batch Compile entry point the CLI drives.
package pipeline

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/sokoide/oolang/codegen"
	"github.com/sokoide/oolang/grammar"
	"github.com/sokoide/oolang/internal/domain"
	"github.com/sokoide/oolang/internal/symtab"
	"github.com/sokoide/oolang/semantic"
)

// Options configures one compile invocation.
type Options struct {
	// Filename is reported in diagnostic locations; it does not need to
	// be a real path (the CLI passes the sample's virtual name when no
	// input file was given).
	Filename string
}

// Stats summarizes one successful compilation for -v/--verbose output.
type Stats struct {
	ClassCount  int
	MethodCount int
	FieldCount  int
	IRBytes     int
	RunID       string
}

// Result is the outcome of a successful Compile call.
type Result struct {
	IR    string
	Stats Stats
}

// Compile runs the full pipeline over source, returning either a
// *grammar.ParseError, a domain.CompilerError, or a Result.
func Compile(source string, opts Options) (*Result, error) {
	program, err := grammar.Parse(opts.Filename, source)
	if err != nil {
		return nil, err
	}

	analyzer := semantic.NewAnalyzer()
	model, err := analyzer.Analyze(program)
	if err != nil {
		return nil, err
	}

	layouts := codegen.BuildClassLayouts(collectSymbols(model))
	runID := uuid.NewString()
	gen := codegen.NewGenerator(layouts, model, runID)
	ir := gen.Generate(program)

	stats := Stats{RunID: runID, IRBytes: len(ir)}
	for _, cd := range program.Classes {
		stats.ClassCount++
		for _, m := range cd.Members {
			switch m.(type) {
			case *domain.MethodDecl:
				stats.MethodCount++
			case *domain.FieldDecl:
				stats.FieldCount++
			}
		}
	}

	return &Result{IR: ir, Stats: stats}, nil
}

func collectSymbols(model *semantic.SemanticModel) []*symtab.ClassSymbol {
	classes := model.ClassesInOrder()
	out := make([]*symtab.ClassSymbol, len(classes))
	for i, c := range classes {
		out[i] = c.Symbol()
	}
	return out
}

// FormatParseError renders a parse failure the way the CLI prints it.
func FormatParseError(err error) string { return fmt.Sprintf("Parse failed: %s", err) }

// FormatSemanticError renders a semantic failure the way the CLI prints it.
func FormatSemanticError(err error) string { return fmt.Sprintf("Semantic error: %s", err) }
