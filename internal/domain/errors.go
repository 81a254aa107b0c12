package domain

import "fmt"

// ErrorKind enumerates every semantic failure this compiler can raise.
// Each is fatal: the first one reported aborts analysis (see
// semantic.Analyzer.Analyze).
type ErrorKind int

const (
	DuplicateClass ErrorKind = iota
	UnknownBase
	InheritanceCycleOrUnresolved
	DuplicateField
	DuplicateForwardDeclaration
	DuplicateImplementation
	ReturnTypeMismatchBetweenDeclarations
	DuplicateConstructorSignature
	SignatureNotDeclared
	UndeclaredIdentifier
	TypeNotDeclared
	UnknownClass
	MethodNotDeclared
	NoMatchingOverload
	ArgumentCountMismatch
	TypeMismatch
	VoidInitializer
	VoidAssignmentTarget
	ReturnOutsideMethod
	ReturnValueInVoid
	MissingReturnValue
	ExpressionBodyWithoutReturnType
	DuplicateVariable
	UnsupportedExpressionTarget
)

var errorKindNames = map[ErrorKind]string{
	DuplicateClass:                         "DuplicateClass",
	UnknownBase:                            "UnknownBase",
	InheritanceCycleOrUnresolved:           "InheritanceCycleOrUnresolved",
	DuplicateField:                         "DuplicateField",
	DuplicateForwardDeclaration:            "DuplicateForwardDeclaration",
	DuplicateImplementation:                "DuplicateImplementation",
	ReturnTypeMismatchBetweenDeclarations:  "ReturnTypeMismatchBetweenDeclarations",
	DuplicateConstructorSignature:          "DuplicateConstructorSignature",
	SignatureNotDeclared:                   "SignatureNotDeclared",
	UndeclaredIdentifier:                   "UndeclaredIdentifier",
	TypeNotDeclared:                        "TypeNotDeclared",
	UnknownClass:                           "UnknownClass",
	MethodNotDeclared:                      "MethodNotDeclared",
	NoMatchingOverload:                     "NoMatchingOverload",
	ArgumentCountMismatch:                  "ArgumentCountMismatch",
	TypeMismatch:                           "TypeMismatch",
	VoidInitializer:                        "VoidInitializer",
	VoidAssignmentTarget:                   "VoidAssignmentTarget",
	ReturnOutsideMethod:                    "ReturnOutsideMethod",
	ReturnValueInVoid:                      "ReturnValueInVoid",
	MissingReturnValue:                     "MissingReturnValue",
	ExpressionBodyWithoutReturnType:        "ExpressionBodyWithoutReturnType",
	DuplicateVariable:                      "DuplicateVariable",
	UnsupportedExpressionTarget:            "UnsupportedExpressionTarget",
}

func (k ErrorKind) String() string {
	if name, ok := errorKindNames[k]; ok {
		return name
	}
	return "UnknownErrorKind"
}

// CompilerError carries the offending node's location, the failure kind, a
// human message and optional hints (see internal/infrastructure.ConsoleErrorReporter).
type CompilerError struct {
	Kind     ErrorKind
	Message  string
	Location SourceRange
	Hints    []string
}

func (e CompilerError) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Location, e.Kind, e.Message)
}

// ErrorReporter collects diagnostics raised during compilation.
type ErrorReporter interface {
	ReportError(err CompilerError)
	ReportWarning(warning CompilerError)
	HasErrors() bool
	HasWarnings() bool
	GetErrors() []CompilerError
	GetWarnings() []CompilerError
	Clear()
}
