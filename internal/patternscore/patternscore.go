// Package patternscore rates accepted tool code against a fixed checklist of
// style conventions. The score is advisory: it is reported alongside the
// artifact and never rejects code or triggers a retry.
//
// The scorer parses the code itself instead of reusing the validator's tree,
// keeping the two components decoupled.
package patternscore

import (
	"math"
	"strings"

	"github.com/MrWong99/toolforge/internal/pyast"
)

// DefaultThreshold is the minimum score considered pattern-conformant.
const DefaultThreshold = 70

// FailedCheck names an unsatisfied checklist entry.
type FailedCheck struct {
	// Name is the stable check identifier.
	Name string `json:"name"`

	// Description says what the check expects, phrased as a requirement.
	Description string `json:"description"`
}

// Result is the outcome of scoring one code artifact.
type Result struct {
	// Score is 100 x satisfied/total, rounded to the nearest integer.
	Score int `json:"score"`

	// MatchesPattern is true when Score reaches the scorer's threshold.
	MatchesPattern bool `json:"matches_pattern"`

	// Satisfied lists the names of passed checks in checklist order.
	Satisfied []string `json:"satisfied"`

	// Failed lists the unsatisfied checks in checklist order.
	Failed []FailedCheck `json:"failed"`

	// Suggestions are improvement hints derived from the failed checks.
	Suggestions []string `json:"suggestions"`
}

// check is one checklist entry. Every check carries equal weight.
type check struct {
	name        string
	description string
	suggestion  string
	satisfied   func(*analysis) bool
}

// analysis caches the tree lookups the checks share.
type analysis struct {
	mod    *pyast.Module
	tool   *pyast.ClassDef
	schema *pyast.ClassDef
	run    *pyast.FunctionDef
}

var checklist = []check{
	{
		name:        "base_class_inheritance",
		description: "a class inherits from BaseTool",
		suggestion:  "Derive the tool class from crewai.tools.BaseTool",
		satisfied:   func(a *analysis) bool { return a.tool != nil },
	},
	{
		name:        "input_schema",
		description: "an input schema class inherits from BaseModel",
		suggestion:  "Define a pydantic BaseModel subclass describing the inputs",
		satisfied:   func(a *analysis) bool { return a.schema != nil },
	},
	{
		name:        "execution_method",
		description: "the tool class implements _run",
		suggestion:  "Implement the _run method on the tool class",
		satisfied:   func(a *analysis) bool { return a.run != nil && a.run.Name == "_run" },
	},
	{
		name:        "docstring_coverage",
		description: "the tool class and its execution method carry docstrings",
		suggestion:  "Add docstrings to the tool class and its execution method",
		satisfied: func(a *analysis) bool {
			return a.tool != nil && a.tool.Docstring != "" &&
				a.run != nil && a.run.Docstring != ""
		},
	},
	{
		name:        "exception_handling",
		description: "the execution method handles exceptions",
		suggestion:  "Wrap the execution body in try/except and return error text",
		satisfied: func(a *analysis) bool {
			return a.run != nil && hasTry(a.run)
		},
	},
	{
		name:        "type_hints",
		description: "execution method parameters and return value are annotated",
		suggestion:  "Annotate every _run parameter and the return type",
		satisfied: func(a *analysis) bool {
			if a.run == nil || a.run.Returns == "" {
				return false
			}
			for _, p := range a.run.Params {
				if p.Name == "self" || p.Name == "cls" {
					continue
				}
				if p.Annotation == "" {
					return false
				}
			}
			return true
		},
	},
	{
		name:        "required_attributes",
		description: "the tool class declares name, description and args_schema",
		suggestion:  "Declare the name, description and args_schema class attributes",
		satisfied: func(a *analysis) bool {
			if a.tool == nil {
				return false
			}
			for _, attr := range []string{"name", "description", "args_schema"} {
				if _, ok := pyast.ClassAttr(a.tool, attr); !ok {
					return false
				}
			}
			return true
		},
	},
	{
		name:        "naming_convention",
		description: "the tool class is CamelCase and ends in Tool",
		suggestion:  "Name the tool class in CamelCase with a Tool suffix",
		satisfied: func(a *analysis) bool {
			if a.tool == nil {
				return false
			}
			name := a.tool.Name
			return strings.HasSuffix(name, "Tool") &&
				len(name) > len("Tool") &&
				name[0] >= 'A' && name[0] <= 'Z' &&
				!strings.Contains(name, "_")
		},
	},
}

// Scorer evaluates code against the checklist. It is stateless and safe for
// concurrent use.
type Scorer struct {
	threshold int
}

// Option adjusts a [Scorer].
type Option func(*Scorer)

// WithThreshold overrides the conformance threshold.
func WithThreshold(t int) Option {
	return func(s *Scorer) { s.threshold = t }
}

// New returns a [Scorer] with the given options applied.
func New(opts ...Option) *Scorer {
	s := &Scorer{threshold: DefaultThreshold}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Score parses code and evaluates every checklist entry. Unparseable code
// scores zero with every check reported as failed; the scorer runs after
// validation, so this only happens when callers score unvalidated code.
func (s *Scorer) Score(code string) Result {
	var res Result

	mod, err := pyast.Parse(code)
	if err != nil {
		for _, c := range checklist {
			res.Failed = append(res.Failed, FailedCheck{Name: c.name, Description: c.description})
		}
		res.Suggestions = append(res.Suggestions, "Fix the syntax error before style scoring: "+err.Error())
		return res
	}

	a := analyze(mod)
	for _, c := range checklist {
		if c.satisfied(a) {
			res.Satisfied = append(res.Satisfied, c.name)
		} else {
			res.Failed = append(res.Failed, FailedCheck{Name: c.name, Description: c.description})
			res.Suggestions = append(res.Suggestions, c.suggestion)
		}
	}

	res.Score = int(math.Round(100 * float64(len(res.Satisfied)) / float64(len(checklist))))
	res.MatchesPattern = res.Score >= s.threshold
	return res
}

func analyze(mod *pyast.Module) *analysis {
	a := &analysis{mod: mod}
	for _, c := range pyast.Classes(mod) {
		switch {
		case a.tool == nil && inherits(c, "BaseTool"):
			a.tool = c
		case a.schema == nil && inherits(c, "BaseModel"):
			a.schema = c
		}
	}
	if a.tool != nil {
		if a.run = pyast.Method(a.tool, "_run"); a.run == nil {
			a.run = pyast.Method(a.tool, "run")
		}
	}
	return a
}

func inherits(c *pyast.ClassDef, name string) bool {
	for _, base := range c.Bases {
		if base == name || strings.HasSuffix(base, "."+name) {
			return true
		}
	}
	return false
}

func hasTry(fn *pyast.FunctionDef) bool {
	found := false
	pyast.Walk(fn, func(n pyast.Node) bool {
		if c, ok := n.(*pyast.Compound); ok && c.Keyword == "try" {
			found = true
			return false
		}
		return true
	})
	return found
}
