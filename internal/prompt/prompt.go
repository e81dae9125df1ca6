// Package prompt assembles the generation request sent to the LLM backend.
//
// A prompt merges up to five sections in fixed order: the specification
// restated as structured requirements, the dependency rules, manual
// implementation guidance for unsupported dependencies, retrieved exemplars,
// and (on retries) the previous attempt's validation errors. Building is
// deterministic: identical inputs produce byte-identical prompts.
package prompt

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/MrWong99/toolforge/internal/depcheck"
	"github.com/MrWong99/toolforge/pkg/exemplar"
	"github.com/MrWong99/toolforge/pkg/toolspec"
)

// Defaults bounding prompt size.
const (
	// DefaultMaxExemplars caps how many retrieved exemplars are embedded.
	DefaultMaxExemplars = 3

	// DefaultExemplarLength caps the embedded length of each exemplar's code.
	DefaultExemplarLength = 600
)

// Builder assembles prompts. It is stateless and safe for concurrent use.
type Builder struct {
	maxExemplars   int
	exemplarLength int
}

// Option adjusts a [Builder].
type Option func(*Builder)

// WithMaxExemplars caps the number of embedded exemplars.
func WithMaxExemplars(n int) Option {
	return func(b *Builder) { b.maxExemplars = n }
}

// WithExemplarLength caps the embedded code length per exemplar, in bytes.
func WithExemplarLength(n int) Option {
	return func(b *Builder) { b.exemplarLength = n }
}

// New returns a [Builder] with the given options applied.
func New(opts ...Option) *Builder {
	b := &Builder{
		maxExemplars:   DefaultMaxExemplars,
		exemplarLength: DefaultExemplarLength,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build assembles the full prompt. priorErrors is nil on the first attempt;
// on retries it carries the previous attempt's validation errors verbatim.
// The only error condition is a malformed specification.
func (b *Builder) Build(spec *toolspec.Specification, verdict depcheck.Verdict, exemplars []exemplar.Exemplar, priorErrors []string) (string, error) {
	if spec == nil {
		return "", fmt.Errorf("prompt: specification is nil")
	}
	if err := spec.Validate(); err != nil {
		return "", fmt.Errorf("prompt: malformed specification: %w", err)
	}

	var p strings.Builder
	p.WriteString("You are an expert CrewAI tool developer. Generate a complete, production-ready\n")
	p.WriteString("CrewAI tool in Python following the requirements below exactly.\n\n")

	b.writeSpecification(&p, spec)
	b.writeDependencyRules(&p, verdict)
	b.writeGuidance(&p, verdict)
	b.writeExemplars(&p, exemplars)
	b.writeRetryFeedback(&p, priorErrors)

	p.WriteString("## Output Format\n\n")
	p.WriteString("Respond with exactly one ```python code block containing the full tool\n")
	p.WriteString("module, followed by markdown documentation describing usage and setup.\n")
	p.WriteString("The tool class must inherit from crewai.tools.BaseTool, declare name,\n")
	p.WriteString("description and args_schema attributes, and implement _run.\n")

	return p.String(), nil
}

func (b *Builder) writeSpecification(p *strings.Builder, spec *toolspec.Specification) {
	p.WriteString("## Tool Specification\n\n")
	fmt.Fprintf(p, "- Name: %s\n", spec.Name)
	if spec.DisplayName != "" {
		fmt.Fprintf(p, "- Display name: %s\n", spec.DisplayName)
	}
	fmt.Fprintf(p, "- Description: %s\n", spec.Description)
	if spec.Category != "" {
		fmt.Fprintf(p, "- Category: %s\n", spec.Category)
	}
	fmt.Fprintf(p, "- Tool class name: %s\n", spec.ClassName())

	if len(spec.Requirements) > 0 {
		p.WriteString("\n### Requirements\n\n")
		for i, req := range spec.Requirements {
			fmt.Fprintf(p, "%d. %s\n", i+1, req)
		}
	}

	if len(spec.Inputs) > 0 {
		p.WriteString("\n### Input Parameters\n\n")
		for _, in := range spec.Inputs {
			writeParam(p, in)
		}
	}
	if len(spec.Config) > 0 {
		p.WriteString("\n### Config Parameters\n\n")
		for _, c := range spec.Config {
			writeParam(p, c)
		}
	}
	p.WriteString("\n")
}

func writeParam(p *strings.Builder, param toolspec.Parameter) {
	req := "optional"
	if param.Required {
		req = "required"
	}
	fmt.Fprintf(p, "- %s (%s, %s)", param.Name, param.Type, req)
	if param.Description != "" {
		fmt.Fprintf(p, ": %s", param.Description)
	}
	if !param.Required && param.Default != "" {
		fmt.Fprintf(p, " [default: %s]", param.Default)
	}
	p.WriteString("\n")
}

func (b *Builder) writeDependencyRules(p *strings.Builder, verdict depcheck.Verdict) {
	p.WriteString("## Dependency Rules\n\n")

	if len(verdict.Stdlib) > 0 {
		fmt.Fprintf(p, "Standard-library modules you may use: %s\n", strings.Join(verdict.Stdlib, ", "))
	}
	if len(verdict.External) > 0 {
		fmt.Fprintf(p, "External packages you may import: %s\n", strings.Join(verdict.External, ", "))
	}
	if len(verdict.Supported) == 0 {
		p.WriteString("Use only the Python standard library.\n")
	}
	if len(verdict.Unsupported) > 0 {
		fmt.Fprintf(p, "You must NOT import: %s\n", strings.Join(verdict.Unsupported, ", "))
		p.WriteString("These packages are unavailable in the target environment; importing them guarantees a runtime failure.\n")
	}
	for _, w := range verdict.Warnings {
		fmt.Fprintf(p, "- Note: %s\n", w)
	}
	p.WriteString("\n")
}

func (b *Builder) writeGuidance(p *strings.Builder, verdict depcheck.Verdict) {
	if len(verdict.Unsupported) == 0 {
		return
	}
	p.WriteString("## Manual Implementation Guidance\n\n")
	for _, dep := range verdict.Unsupported {
		g := guidanceFor(dep)
		fmt.Fprintf(p, "### Instead of %s (%s)\n\n", dep, g.Category)
		fmt.Fprintf(p, "Recommended modules: %s\n\n", strings.Join(g.Modules, ", "))
		p.WriteString(g.Approach)
		p.WriteString("\n")
		if g.Sketch != "" {
			p.WriteString("\n```python\n")
			p.WriteString(g.Sketch)
			p.WriteString("\n```\n")
		}
		p.WriteString("\n")
	}
}

func (b *Builder) writeExemplars(p *strings.Builder, exemplars []exemplar.Exemplar) {
	if len(exemplars) == 0 {
		return
	}
	if len(exemplars) > b.maxExemplars {
		exemplars = exemplars[:b.maxExemplars]
	}

	p.WriteString("## Reference Exemplars\n\n")
	p.WriteString("Existing tools in the same style, for structural reference only:\n\n")
	for _, ex := range exemplars {
		fmt.Fprintf(p, "### %s (similarity %.2f)\n\n", ex.Name, ex.Similarity)
		p.WriteString("```python\n")
		p.WriteString(truncate(ex.Code, b.exemplarLength))
		p.WriteString("\n```\n\n")
	}
}

func (b *Builder) writeRetryFeedback(p *strings.Builder, priorErrors []string) {
	if len(priorErrors) == 0 {
		return
	}
	p.WriteString("## Previous Attempt Errors\n\n")
	p.WriteString("Your previous attempt failed validation with these errors:\n\n")
	for _, e := range priorErrors {
		fmt.Fprintf(p, "- %s\n", e)
	}
	p.WriteString("\nFix exactly these issues and nothing else. Keep everything that already\n")
	p.WriteString("satisfied the requirements unchanged.\n\n")
}

// truncate bounds s to n bytes, cutting at the last full line when one fits
// and never splitting a multi-byte rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	cut := s[:n]
	if i := strings.LastIndexByte(cut, '\n'); i > 0 {
		cut = cut[:i]
	}
	for len(cut) > 0 {
		r, size := utf8.DecodeLastRuneInString(cut)
		if r != utf8.RuneError || size != 1 {
			break
		}
		cut = cut[:len(cut)-1]
	}
	return cut + "\n# ... truncated ..."
}
