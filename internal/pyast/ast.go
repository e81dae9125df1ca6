// Package pyast provides a lightweight structural parser for Python source
// produced by the generation pipeline.
//
// The parser recognises the constructs the validator and scorer care about —
// imports, class and function definitions with their headers, annotated and
// plain assignments, compound statements, and string-literal expressions
// (docstrings) — and folds everything else into [Other] nodes that preserve
// the statement text. It is a tagged-variant tree, not a full grammar: each
// structural check is a pure function over the tree, so the checks can be unit
// tested in isolation.
//
// Parsing is tolerant of anything that is lexically well formed. Lexical
// problems (unterminated strings, unbalanced brackets, indentation that
// matches no enclosing block, headers missing their colon) surface as a
// single [*SyntaxError] carrying the first offending line.
package pyast

import "fmt"

// SyntaxError reports the first lexically or structurally invalid construct
// found while parsing.
type SyntaxError struct {
	// Line is the 1-based physical source line of the offending construct.
	Line int

	// Msg describes the problem.
	Msg string
}

// Error implements the error interface.
func (e *SyntaxError) Error() string {
	return fmt.Sprintf("syntax error at line %d: %s", e.Line, e.Msg)
}

// Node is a statement in the parsed tree. Line returns the 1-based physical
// line the statement starts on; Source returns the logical statement text
// with comments stripped and continuations joined.
type Node interface {
	Line() int
	Source() string
}

// stmt carries the position and source text common to every node.
type stmt struct {
	line int
	src  string
}

func (s stmt) Line() int      { return s.line }
func (s stmt) Source() string { return s.src }

// Module is the root of a parsed file.
type Module struct {
	stmt

	// Body holds the top-level statements in source order.
	Body []Node

	// Docstring is the unquoted module docstring, or "" when absent.
	Docstring string
}

// Import is an `import a, b.c as d` statement.
type Import struct {
	stmt

	// Names holds the full dotted module names, ignoring `as` aliases.
	Names []string
}

// ImportFrom is a `from mod import x, y` statement.
type ImportFrom struct {
	stmt

	// Module is the dotted source module ("" for relative `from . import x`).
	Module string

	// Names holds the imported identifiers, ignoring `as` aliases.
	// A star import yields the single name "*".
	Names []string
}

// ClassDef is a class definition with its indented body.
type ClassDef struct {
	stmt

	// Name is the class identifier.
	Name string

	// Bases lists the base-class expressions from the header, in order.
	// Keyword arguments (metaclass=...) are excluded.
	Bases []string

	// Docstring is the unquoted class docstring, or "" when absent.
	Docstring string

	// Body holds the class body statements in source order.
	Body []Node
}

// Param is a single parameter in a function definition header.
type Param struct {
	// Name is the parameter identifier, with any * / ** prefix removed.
	Name string

	// Annotation is the type annotation text, or "" when absent.
	Annotation string

	// Default is the default-value expression text, or "" when absent.
	Default string
}

// FunctionDef is a function or method definition with its indented body.
type FunctionDef struct {
	stmt

	// Name is the function identifier.
	Name string

	// Decorators holds the decorator expressions (without the @), in order.
	Decorators []string

	// Params holds the declared parameters in order, including self/cls.
	Params []Param

	// Returns is the return annotation text, or "" when absent.
	Returns string

	// Docstring is the unquoted function docstring, or "" when absent.
	Docstring string

	// Body holds the function body statements in source order.
	Body []Node
}

// AnnAssign is an annotated assignment such as `name: str = "x"` or a bare
// annotation `name: str`.
type AnnAssign struct {
	stmt

	// Target is the assignment target (identifier or dotted path).
	Target string

	// Annotation is the type annotation text.
	Annotation string

	// Value is the assigned expression text, or "" for a bare annotation.
	Value string
}

// Assign is a plain assignment such as `name = value` (possibly chained).
type Assign struct {
	stmt

	// Targets holds the assignment targets in order.
	Targets []string

	// Value is the assigned expression text.
	Value string
}

// Compound is a compound statement with an indented suite: if/elif/else,
// for, while, with, try/except/finally, match/case. Consecutive clauses of
// one construct (try + its excepts) appear as sibling Compound nodes.
type Compound struct {
	stmt

	// Keyword is the leading keyword of the clause (e.g. "try", "except", "if").
	Keyword string

	// Body holds the suite statements in source order.
	Body []Node
}

// ExprStmt is a bare expression statement. String-literal expressions that
// open a suite are additionally captured as docstrings on their parent.
type ExprStmt struct {
	stmt
}

// Other is any simple statement the parser does not model structurally
// (return, raise, pass, del, augmented assignment, ...). The statement text
// is available via Source.
type Other struct {
	stmt
}
