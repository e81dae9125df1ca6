// Package validate checks generated Python tool code for structural
// conformance: required class shape, input schema coverage, import safety
// and dangerous constructs.
//
// Each check is a pure function over the parsed tree that appends findings
// without short-circuiting the others, so a single pass reports every defect
// at once. Only a parse failure stops early, since no structural check is
// meaningful without a tree.
package validate

import (
	"fmt"
	"strings"

	"github.com/MrWong99/toolforge/internal/depcheck"
	"github.com/MrWong99/toolforge/internal/pyast"
	"github.com/MrWong99/toolforge/pkg/toolspec"
)

// Result is the outcome of one validation pass. Errors block acceptance;
// warnings and suggestions never do.
type Result struct {
	// IsValid is true iff Errors is empty.
	IsValid bool `json:"is_valid"`

	// Errors are fatal findings in discovery order.
	Errors []string `json:"errors"`

	// Warnings are non-fatal findings in discovery order.
	Warnings []string `json:"warnings"`

	// Suggestions are improvement hints in discovery order.
	Suggestions []string `json:"suggestions"`
}

// Defaults for the expected shape of a generated tool.
const (
	defaultBaseClass  = "BaseTool"
	defaultSchemaBase = "BaseModel"
	execMethod        = "_run"
	execMethodAlt     = "run"
)

// requiredAttrs are the class attributes every tool class must declare.
var requiredAttrs = []string{"name", "description", "args_schema"}

// forbiddenCalls are constructs that are never acceptable in generated code:
// dynamic code evaluation and arbitrary process execution.
var forbiddenCalls = []string{
	"os.system", "subprocess.Popen", "eval", "exec", "__import__", "compile",
}

// Validator checks generated code against the expected tool shape. It is
// stateless and safe for concurrent use.
type Validator struct {
	baseClass  string
	schemaBase string
}

// Option adjusts a [Validator].
type Option func(*Validator)

// WithBaseClass overrides the required tool base class name.
func WithBaseClass(name string) Option {
	return func(v *Validator) { v.baseClass = name }
}

// WithSchemaBase overrides the required input-schema base class name.
func WithSchemaBase(name string) Option {
	return func(v *Validator) { v.schemaBase = name }
}

// New returns a [Validator] with the given options applied.
func New(opts ...Option) *Validator {
	v := &Validator{baseClass: defaultBaseClass, schemaBase: defaultSchemaBase}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Validate parses code and runs every structural check. A parse failure
// yields a single fatal error and no further findings. spec supplies the
// declared input parameters for schema coverage; verdict supplies the
// unsupported-dependency set for import safety.
func (v *Validator) Validate(code string, spec *toolspec.Specification, verdict depcheck.Verdict) Result {
	var res Result

	mod, err := pyast.Parse(code)
	if err != nil {
		res.Errors = append(res.Errors, err.Error())
		return res
	}

	tool := v.checkToolClass(mod, &res)
	if tool != nil {
		v.checkRequiredAttrs(tool, &res)
		v.checkExecMethod(tool, &res)
		v.checkInputSchema(mod, tool, spec, &res)
	}
	v.checkImportSafety(mod, verdict, &res)
	v.checkForbiddenCalls(mod, &res)
	v.checkDocstrings(mod, tool, &res)

	res.IsValid = len(res.Errors) == 0
	return res
}

// checkToolClass finds the single top-level class inheriting the base class.
// Zero or multiple matches are fatal; on zero matches nil is returned and
// the class-shape checks are skipped.
func (v *Validator) checkToolClass(mod *pyast.Module, res *Result) *pyast.ClassDef {
	var matches []*pyast.ClassDef
	for _, c := range pyast.Classes(mod) {
		if inheritsFrom(c, v.baseClass) {
			matches = append(matches, c)
		}
	}
	switch len(matches) {
	case 0:
		res.Errors = append(res.Errors,
			fmt.Sprintf("no class inheriting from %s found", v.baseClass))
		return nil
	case 1:
		return matches[0]
	default:
		res.Errors = append(res.Errors,
			fmt.Sprintf("found %d classes inheriting from %s, exactly one is required", len(matches), v.baseClass))
		return matches[0]
	}
}

func (v *Validator) checkRequiredAttrs(tool *pyast.ClassDef, res *Result) {
	for _, attr := range requiredAttrs {
		if _, ok := pyast.ClassAttr(tool, attr); !ok {
			res.Errors = append(res.Errors,
				fmt.Sprintf("tool class %s missing required attribute %q", tool.Name, attr))
		}
	}
}

func (v *Validator) checkExecMethod(tool *pyast.ClassDef, res *Result) {
	if pyast.Method(tool, execMethod) != nil {
		return
	}
	if pyast.Method(tool, execMethodAlt) != nil {
		res.Warnings = append(res.Warnings,
			fmt.Sprintf("tool class %s defines %s; CrewAI tools should implement %s", tool.Name, execMethodAlt, execMethod))
		return
	}
	res.Errors = append(res.Errors,
		fmt.Sprintf("tool class %s missing execution method %s", tool.Name, execMethod))
}

// checkInputSchema verifies that a schema class inheriting the schema base
// exists and declares one annotated field per spec input; required inputs
// must not carry a plain default.
func (v *Validator) checkInputSchema(mod *pyast.Module, tool *pyast.ClassDef, spec *toolspec.Specification, res *Result) {
	schema := v.findSchemaClass(mod, tool)
	if schema == nil {
		res.Errors = append(res.Errors,
			fmt.Sprintf("no input schema class inheriting from %s found", v.schemaBase))
		return
	}
	if spec == nil {
		return
	}

	for _, in := range spec.Inputs {
		node := schemaField(schema, in.Name)
		if node == nil {
			res.Errors = append(res.Errors,
				fmt.Sprintf("input schema %s missing field %q", schema.Name, in.Name))
			continue
		}
		ann, ok := node.(*pyast.AnnAssign)
		if !ok {
			res.Errors = append(res.Errors,
				fmt.Sprintf("input schema field %q has no type annotation", in.Name))
			continue
		}
		if in.Required && hasPlainDefault(ann.Value) {
			res.Errors = append(res.Errors,
				fmt.Sprintf("required input %q must not declare a default value", in.Name))
		}
	}
}

// findSchemaClass resolves the schema class named by the tool's args_schema
// attribute. The identifier must match a schema class name exactly; when it
// names no schema class the first class inheriting the schema base is used.
func (v *Validator) findSchemaClass(mod *pyast.Module, tool *pyast.ClassDef) *pyast.ClassDef {
	want, _ := pyast.ClassAttr(tool, "args_schema")
	target := schemaTarget(want)

	var first *pyast.ClassDef
	for _, c := range pyast.Classes(mod) {
		if !inheritsFrom(c, v.schemaBase) {
			continue
		}
		if c.Name == target {
			return c
		}
		if first == nil {
			first = c
		}
	}
	return first
}

// schemaTarget extracts the class identifier from an args_schema value,
// tolerating qualified names such as mymodule.WeatherInput.
func schemaTarget(value string) string {
	v := strings.TrimSpace(value)
	if i := strings.LastIndexByte(v, '.'); i >= 0 {
		v = v[i+1:]
	}
	return v
}

func (v *Validator) checkImportSafety(mod *pyast.Module, verdict depcheck.Verdict, res *Result) {
	for _, root := range pyast.ImportRoots(mod) {
		for _, unsupported := range verdict.Unsupported {
			if strings.EqualFold(root, unsupported) {
				res.Errors = append(res.Errors,
					fmt.Sprintf("import of unsupported dependency %q", root))
			}
		}
	}
}

func (v *Validator) checkForbiddenCalls(mod *pyast.Module, res *Result) {
	for _, name := range forbiddenCalls {
		if pyast.CallsName(mod, name) {
			res.Errors = append(res.Errors,
				fmt.Sprintf("forbidden construct %s()", name))
		}
	}
}

// checkDocstrings reports missing documentation and missing exception
// handling in the execution method. Both are warnings only.
func (v *Validator) checkDocstrings(mod *pyast.Module, tool *pyast.ClassDef, res *Result) {
	if mod.Docstring == "" && (tool == nil || tool.Docstring == "") {
		res.Warnings = append(res.Warnings, "missing module or class docstring")
	}
	if tool == nil {
		return
	}

	run := pyast.Method(tool, execMethod)
	if run == nil {
		run = pyast.Method(tool, execMethodAlt)
	}
	if run == nil {
		return
	}
	if run.Docstring == "" {
		res.Warnings = append(res.Warnings,
			fmt.Sprintf("method %s missing docstring", run.Name))
	}
	if !hasTryBlock(run) {
		res.Warnings = append(res.Warnings,
			fmt.Sprintf("method %s has no exception handling", run.Name))
	}
	if run.Returns == "" {
		res.Suggestions = append(res.Suggestions,
			fmt.Sprintf("annotate the return type of %s", run.Name))
	}
}

// inheritsFrom reports whether any base expression of c references name,
// allowing qualified forms such as crewai.tools.BaseTool.
func inheritsFrom(c *pyast.ClassDef, name string) bool {
	for _, base := range c.Bases {
		if base == name || strings.HasSuffix(base, "."+name) {
			return true
		}
	}
	return false
}

// schemaField returns the assignment node for the named field directly in
// the schema class body, or nil.
func schemaField(schema *pyast.ClassDef, name string) pyast.Node {
	for _, n := range schema.Body {
		switch v := n.(type) {
		case *pyast.AnnAssign:
			if v.Target == name {
				return v
			}
		case *pyast.Assign:
			for _, t := range v.Targets {
				if t == name {
					return v
				}
			}
		}
	}
	return nil
}

// hasPlainDefault reports whether a schema field value supplies a concrete
// default. Pydantic's Field(...) with an ellipsis marks the field required
// and does not count.
func hasPlainDefault(value string) bool {
	if value == "" {
		return false
	}
	if strings.HasPrefix(value, "Field(") && strings.Contains(value, "...") {
		return false
	}
	return true
}

// hasTryBlock reports whether fn contains a try statement at any depth.
func hasTryBlock(fn *pyast.FunctionDef) bool {
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
