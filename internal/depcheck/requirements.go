package depcheck

import (
	"fmt"
	"strings"
)

// RequirementsTxt renders a pip requirements manifest for the supported
// external dependencies in verdict, pinning registry versions where known.
// Unsupported dependencies are appended as comments so operators can see what
// was requested but excluded.
func (v *Validator) RequirementsTxt(verdict Verdict) string {
	var b strings.Builder
	b.WriteString("# Generated requirements for a CrewAI tool\n")
	b.WriteString("# Only supported dependencies are included\n\n")

	for _, dep := range verdict.External {
		if version, ok := v.reg.Version(dep); ok && version != "" {
			fmt.Fprintf(&b, "%s==%s\n", dep, version)
		} else {
			b.WriteString(dep)
			b.WriteByte('\n')
		}
	}

	if len(verdict.Unsupported) > 0 {
		b.WriteString("\n# Unsupported dependencies (manual implementation needed):\n")
		for _, dep := range verdict.Unsupported {
			fmt.Fprintf(&b, "# - %s\n", dep)
			if alts := verdict.Alternatives[dep]; len(alts) > 0 {
				fmt.Fprintf(&b, "#   Alternatives: %s\n", strings.Join(alts, ", "))
			}
		}
	}

	return b.String()
}
