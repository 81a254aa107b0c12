// Command oocompile compiles oolang source to LLVM IR text.
package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sokoide/oolang/grammar"
	"github.com/sokoide/oolang/internal/domain"
	"github.com/sokoide/oolang/internal/infrastructure"
	"github.com/sokoide/oolang/internal/pipeline"
)

// sampleProgram is compiled when no input path is given.
const sampleProgram = `class Main is
  method run : Integer => Integer(1).Plus(Integer(2))
end
`

var (
	outputPath string
	verbose    bool
	werror     bool
)

func main() {
	root := newRootCommand()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "oocompile [input]",
		Short: "Compile oolang source to LLVM IR",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runCompile,
	}
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "output .ll path (default: <input-stem>.ll)")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "print pipeline statistics")
	cmd.Flags().BoolVar(&werror, "werror", false, "treat warnings as errors (reserved)")
	return cmd
}

func runCompile(cmd *cobra.Command, args []string) error {
	var (
		source   string
		filename string
		output   string
	)

	if len(args) == 0 {
		source = sampleProgram
		filename = "<sample>"
		output = "output.ll"
	} else {
		inputPath := args[0]
		filename = inputPath
		data, err := os.ReadFile(inputPath)
		if err != nil {
			return fmt.Errorf("reading %s: %w", inputPath, err)
		}
		source = string(data)
		ext := filepath.Ext(inputPath)
		output = strings.TrimSuffix(inputPath, ext) + ".ll"
	}
	if outputPath != "" {
		output = outputPath
	}

	result, err := pipeline.Compile(source, pipeline.Options{Filename: filename})
	if err != nil {
		return reportCompileFailure(cmd.OutOrStdout(), err)
	}

	if err := writeOutput(output, result.IR); err != nil {
		return fmt.Errorf("writing %s: %w", output, err)
	}

	if verbose {
		fmt.Fprintf(cmd.OutOrStdout(), "compiled %s -> %s\n", filename, output)
		fmt.Fprintf(cmd.OutOrStdout(), "  run:     %s\n", result.Stats.RunID)
		fmt.Fprintf(cmd.OutOrStdout(), "  classes: %d\n", result.Stats.ClassCount)
		fmt.Fprintf(cmd.OutOrStdout(), "  methods: %d\n", result.Stats.MethodCount)
		fmt.Fprintf(cmd.OutOrStdout(), "  fields:  %d\n", result.Stats.FieldCount)
		fmt.Fprintf(cmd.OutOrStdout(), "  ir:      %d bytes\n", result.Stats.IRBytes)
	}
	return nil
}

// reportCompileFailure prints a parse or semantic failure to stdout and
// returns nil so the process exits 0: a bad program is not an I/O
// failure. Semantic diagnostics are also sent through the sorted
// console reporter on stderr, so source location and any hints print
// alongside the one-line message.
func reportCompileFailure(out io.Writer, err error) error {
	switch e := err.(type) {
	case *grammar.ParseError:
		fmt.Fprintln(out, pipeline.FormatParseError(err))
	case domain.CompilerError:
		fmt.Fprintln(out, pipeline.FormatSemanticError(err))
		reporter := infrastructure.NewSortedErrorReporter(infrastructure.NewConsoleErrorReporter(os.Stderr))
		reporter.ReportError(e)
		reporter.Flush()
	default:
		fmt.Fprintln(out, pipeline.FormatSemanticError(err))
	}
	return nil
}

func writeOutput(path, ir string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.WriteString(ir)
	return err
}
