// Package docgen renders the markdown usage document that accompanies every
// generated tool. The output is deterministic: identical spec and verdict
// produce byte-identical markdown.
package docgen

import (
	"fmt"
	"strings"

	"github.com/MrWong99/toolforge/internal/depcheck"
	"github.com/MrWong99/toolforge/pkg/toolspec"
)

// Generate renders the usage document for spec. The verdict decides which
// install command is shown and whether a manual-implementation notice appears.
func Generate(spec *toolspec.Specification, verdict depcheck.Verdict) string {
	var b strings.Builder

	title := spec.DisplayName
	if title == "" {
		title = spec.Name
	}
	fmt.Fprintf(&b, "# %s\n\n", title)
	fmt.Fprintf(&b, "%s\n\n", spec.Description)

	if spec.Version != "" || spec.Author != "" {
		if spec.Version != "" {
			fmt.Fprintf(&b, "- Version: %s\n", spec.Version)
		}
		if spec.Author != "" {
			fmt.Fprintf(&b, "- Author: %s\n", spec.Author)
		}
		if spec.Category != "" {
			fmt.Fprintf(&b, "- Category: %s\n", spec.Category)
		}
		b.WriteString("\n")
	}

	writeInstall(&b, verdict)
	writeParams(&b, "Inputs", spec.Inputs)
	writeParams(&b, "Configuration", spec.Config)
	writeUsage(&b, spec)

	if len(spec.Requirements) > 0 {
		b.WriteString("## Requirements\n\n")
		for i, req := range spec.Requirements {
			fmt.Fprintf(&b, "%d. %s\n", i+1, req)
		}
		b.WriteString("\n")
	}

	if verdict.ManualImplementationNeeded {
		b.WriteString("## Notes\n\n")
		b.WriteString("Some requested dependencies are not in the supported set and were replaced with manual implementations:\n\n")
		for _, dep := range verdict.Unsupported {
			if alts := verdict.Alternatives[dep]; len(alts) > 0 {
				fmt.Fprintf(&b, "- `%s` (alternatives: %s)\n", dep, strings.Join(alts, ", "))
			} else {
				fmt.Fprintf(&b, "- `%s`\n", dep)
			}
		}
		b.WriteString("\n")
	}

	return b.String()
}

// writeInstall renders the pip install command for the external dependencies.
// Stdlib-only tools need no installation beyond crewai itself.
func writeInstall(b *strings.Builder, verdict depcheck.Verdict) {
	// crewai is always installed; listing it again when the code imports it
	// would duplicate it in the command.
	ext := make([]string, 0, len(verdict.External))
	for _, dep := range verdict.External {
		if dep != "crewai" {
			ext = append(ext, dep)
		}
	}

	b.WriteString("## Installation\n\n")
	b.WriteString("```bash\n")
	if len(ext) > 0 {
		fmt.Fprintf(b, "pip install crewai %s\n", strings.Join(ext, " "))
	} else {
		b.WriteString("pip install crewai\n")
	}
	b.WriteString("```\n\n")
}

// writeParams renders a markdown table for a parameter list. Empty lists are
// skipped entirely.
func writeParams(b *strings.Builder, heading string, params []toolspec.Parameter) {
	if len(params) == 0 {
		return
	}
	fmt.Fprintf(b, "## %s\n\n", heading)
	b.WriteString("| Name | Type | Required | Description |\n")
	b.WriteString("|------|------|----------|-------------|\n")
	for _, p := range params {
		required := "no"
		if p.Required {
			required = "yes"
		}
		desc := p.Description
		if !p.Required && p.Default != "" {
			desc = strings.TrimSpace(desc + " (default: " + p.Default + ")")
		}
		fmt.Fprintf(b, "| `%s` | %s | %s | %s |\n", p.Name, p.Type, required, desc)
	}
	b.WriteString("\n")
}

// writeUsage renders a crew wiring snippet instantiating the tool class.
func writeUsage(b *strings.Builder, spec *toolspec.Specification) {
	b.WriteString("## Usage\n\n")
	b.WriteString("```python\n")
	b.WriteString("from crewai import Agent, Crew, Task\n\n")
	fmt.Fprintf(b, "tool = %s()\n\n", spec.ClassName())
	b.WriteString("agent = Agent(\n")
	fmt.Fprintf(b, "    role=%q,\n", title(spec))
	fmt.Fprintf(b, "    goal=%q,\n", spec.Description)
	b.WriteString("    tools=[tool],\n")
	b.WriteString(")\n\n")
	b.WriteString("task = Task(\n")
	fmt.Fprintf(b, "    description=%q,\n", "Use the tool to complete the request.")
	b.WriteString("    agent=agent,\n")
	b.WriteString(")\n\n")
	b.WriteString("crew = Crew(agents=[agent], tasks=[task])\n")
	b.WriteString("result = crew.kickoff()\n")
	b.WriteString("```\n\n")
}

func title(spec *toolspec.Specification) string {
	if spec.DisplayName != "" {
		return spec.DisplayName + " operator"
	}
	return spec.Name + " operator"
}
