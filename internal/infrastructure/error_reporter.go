// Package infrastructure holds the outer-ring implementation the
// compiler pipeline wires into the domain's ErrorReporter interface.
package infrastructure

import (
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/sokoide/oolang/internal/domain"
)

// ConsoleErrorReporter prints each diagnostic to an io.Writer as it is
// reported.
type ConsoleErrorReporter struct {
	errors   []domain.CompilerError
	warnings []domain.CompilerError
	output   io.Writer
}

// NewConsoleErrorReporter creates a reporter writing to output (os.Stderr
// if nil).
func NewConsoleErrorReporter(output io.Writer) *ConsoleErrorReporter {
	if output == nil {
		output = os.Stderr
	}
	return &ConsoleErrorReporter{output: output}
}

func (r *ConsoleErrorReporter) ReportError(err domain.CompilerError) {
	r.errors = append(r.errors, err)
	r.print(err, "error")
}

func (r *ConsoleErrorReporter) ReportWarning(warning domain.CompilerError) {
	r.warnings = append(r.warnings, warning)
	r.print(warning, "warning")
}

func (r *ConsoleErrorReporter) HasErrors() bool   { return len(r.errors) > 0 }
func (r *ConsoleErrorReporter) HasWarnings() bool { return len(r.warnings) > 0 }

func (r *ConsoleErrorReporter) GetErrors() []domain.CompilerError {
	out := make([]domain.CompilerError, len(r.errors))
	copy(out, r.errors)
	return out
}

func (r *ConsoleErrorReporter) GetWarnings() []domain.CompilerError {
	out := make([]domain.CompilerError, len(r.warnings))
	copy(out, r.warnings)
	return out
}

func (r *ConsoleErrorReporter) Clear() {
	r.errors = nil
	r.warnings = nil
}

func (r *ConsoleErrorReporter) print(err domain.CompilerError, severity string) {
	fmt.Fprintf(r.output, "%s: %s: %s\n", err.Location, severity, err.Message)
	for _, hint := range err.Hints {
		fmt.Fprintf(r.output, "  hint: %s\n", hint)
	}
}

// SortedErrorReporter batches diagnostics and flushes them to an
// underlying reporter ordered by source location, adapted from the
// teacher's infrastructure.SortedErrorReporter.
type SortedErrorReporter struct {
	underlying domain.ErrorReporter
	errors     []domain.CompilerError
	warnings   []domain.CompilerError
}

func NewSortedErrorReporter(underlying domain.ErrorReporter) *SortedErrorReporter {
	return &SortedErrorReporter{underlying: underlying}
}

func (r *SortedErrorReporter) ReportError(err domain.CompilerError)     { r.errors = append(r.errors, err) }
func (r *SortedErrorReporter) ReportWarning(w domain.CompilerError)     { r.warnings = append(r.warnings, w) }
func (r *SortedErrorReporter) HasErrors() bool                         { return len(r.errors) > 0 }
func (r *SortedErrorReporter) HasWarnings() bool                       { return len(r.warnings) > 0 }

func (r *SortedErrorReporter) GetErrors() []domain.CompilerError {
	out := make([]domain.CompilerError, len(r.errors))
	copy(out, r.errors)
	return out
}

func (r *SortedErrorReporter) GetWarnings() []domain.CompilerError {
	out := make([]domain.CompilerError, len(r.warnings))
	copy(out, r.warnings)
	return out
}

func (r *SortedErrorReporter) Clear() {
	r.errors = nil
	r.warnings = nil
}

// Flush sorts collected diagnostics by location and forwards them to the
// underlying reporter, then clears its own buffers.
func (r *SortedErrorReporter) Flush() {
	sort.Slice(r.errors, func(i, j int) bool { return compareRanges(r.errors[i].Location, r.errors[j].Location) })
	sort.Slice(r.warnings, func(i, j int) bool { return compareRanges(r.warnings[i].Location, r.warnings[j].Location) })

	for _, e := range r.errors {
		r.underlying.ReportError(e)
	}
	for _, w := range r.warnings {
		r.underlying.ReportWarning(w)
	}
	r.Clear()
}

func compareRanges(a, b domain.SourceRange) bool {
	if a.Start.Filename != b.Start.Filename {
		return a.Start.Filename < b.Start.Filename
	}
	if a.Start.Line != b.Start.Line {
		return a.Start.Line < b.Start.Line
	}
	return a.Start.Column < b.Start.Column
}
