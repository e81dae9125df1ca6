// Package depcheck classifies requested tool dependencies against the
// [registry.Registry] allowlist and produces a structured [Verdict] used by
// the prompt builder and the structural validator.
//
// Validation is a pure function over the immutable registry: it never logs,
// never fails, and yields identical output for identical input. Malformed
// entries (empty strings, names with characters no package index accepts) are
// reported through the verdict rather than through an error return.
package depcheck

import (
	"fmt"
	"sort"
	"strings"

	"github.com/antzucaro/matchr"

	"github.com/MrWong99/toolforge/internal/registry"
)

// Severity classifies the overall outcome of a dependency validation.
type Severity string

const (
	// SeveritySuccess means every requested dependency is supported.
	SeveritySuccess Severity = "success"

	// SeverityWarning means unsupported dependencies exist but generation may
	// proceed with manual-implementation guidance.
	SeverityWarning Severity = "warning"

	// SeverityError means strict mode is active and unsupported dependencies
	// block generation.
	SeverityError Severity = "error"
)

// Verdict is the result of classifying a dependency list. It is computed once
// per generation request, read-only thereafter, and embedded verbatim into the
// final generated artifact for auditability.
type Verdict struct {
	// AllSupported is true when Unsupported is empty.
	AllSupported bool `json:"all_supported"`

	// Supported lists every requested dependency found in the registry,
	// in first-seen request order. It is the union of Stdlib and External.
	Supported []string `json:"supported"`

	// Stdlib is the subset of Supported that are standard-library modules.
	Stdlib []string `json:"stdlib"`

	// External is the subset of Supported that are allowlisted external libraries.
	External []string `json:"external"`

	// Unsupported lists requested dependencies absent from the registry,
	// including malformed entries, in first-seen request order.
	Unsupported []string `json:"unsupported"`

	// Alternatives maps each unsupported dependency to suggested replacements.
	Alternatives map[string][]string `json:"alternatives"`

	// ManualImplementationNeeded is true when any unsupported dependency exists.
	ManualImplementationNeeded bool `json:"manual_implementation_needed"`

	// Warnings are human-readable findings, ordered by discovery.
	Warnings []string `json:"warnings"`

	// Suggestions are human-readable improvement hints, ordered by discovery.
	Suggestions []string `json:"suggestions"`

	// CanProceed is false only when Severity is SeverityError (strict mode with
	// unsupported dependencies).
	CanProceed bool `json:"can_proceed"`

	// Severity summarises the validation outcome.
	Severity Severity `json:"severity"`
}

// specialAttentionNotes flags supported libraries that need caller awareness.
// Keys are canonical registry names.
var specialAttentionNotes = map[string]string{
	"crewai":       "Core CrewAI library - ensure proper usage of BaseTool",
	"crewai-tools": "Official CrewAI tools - check for existing implementations",
	"anthropic":    "Anthropic API - requires API key configuration",
	"openai":       "OpenAI API - requires API key configuration",
	"chromadb":     "Vector database - ensure proper initialization",
	"pandas":       "Data processing - can be heavy, consider stdlib alternatives",
	"numpy":        "Numeric processing - can be heavy, consider math/statistics",
}

// stdlibReplacements maps supported external libraries to stdlib modules that
// cover their simple use cases. Used for performance-tip suggestions only.
var stdlibReplacements = map[string]string{
	"requests":        "urllib.request",
	"httpx":           "urllib.request",
	"beautifulsoup4":  "html.parser",
	"python-dateutil": "datetime (for basic operations)",
}

// nearMissMaxDistance is the Damerau-Levenshtein budget for treating an
// unsupported name as a likely misspelling of a registry entry.
const nearMissMaxDistance = 2

// nearMissMinLength keeps very short names out of fuzzy matching, where a
// 2-edit budget would match nearly anything.
const nearMissMinLength = 4

// Validator classifies dependency lists against a registry. It is stateless
// apart from the read-only registry reference and safe for concurrent use.
type Validator struct {
	reg *registry.Registry
}

// New returns a [Validator] backed by reg.
func New(reg *registry.Registry) *Validator {
	return &Validator{reg: reg}
}

// Validate classifies names against the registry. Duplicates are removed
// before classification, preserving first-seen order in the output lists.
// Malformed entries are classified as unsupported with a specific warning.
//
// When strict is false (the default mode), unsupported dependencies downgrade
// the severity to warning but generation can proceed. When strict is true and
// unsupported dependencies exist, the severity is error and CanProceed is
// false.
func (v *Validator) Validate(names []string, strict bool) Verdict {
	verdict := Verdict{
		Alternatives: map[string][]string{},
		CanProceed:   true,
		Severity:     SeveritySuccess,
	}

	seen := make(map[string]struct{}, len(names))
	for _, raw := range names {
		name := strings.TrimSpace(raw)
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}

		switch {
		case !wellFormed(name):
			verdict.Unsupported = append(verdict.Unsupported, raw)
			verdict.Alternatives[raw] = []string{"Remove or correct this entry"}
			verdict.Warnings = append(verdict.Warnings,
				fmt.Sprintf("%q is not a valid dependency name", raw))

		case v.reg.IsStdlib(name):
			verdict.Supported = append(verdict.Supported, name)
			verdict.Stdlib = append(verdict.Stdlib, name)

		case v.reg.IsExternal(name):
			verdict.Supported = append(verdict.Supported, name)
			verdict.External = append(verdict.External, name)

		default:
			verdict.Unsupported = append(verdict.Unsupported, name)
			verdict.Alternatives[name] = v.alternativesFor(name)
			verdict.Warnings = append(verdict.Warnings,
				fmt.Sprintf("%q is not available in the CrewAI-Studio environment", name))
			verdict.Suggestions = append(verdict.Suggestions,
				fmt.Sprintf("Consider using: %s", strings.Join(verdict.Alternatives[name], ", ")))
			verdict.Suggestions = append(verdict.Suggestions,
				fmt.Sprintf("Manual implementation recommended for %q using Python stdlib", name))
		}
	}

	verdict.AllSupported = len(verdict.Unsupported) == 0
	if !verdict.AllSupported {
		verdict.ManualImplementationNeeded = true
		verdict.Severity = SeverityWarning
		if strict {
			verdict.Severity = SeverityError
			verdict.CanProceed = false
			verdict.Warnings = append(verdict.Warnings,
				"strict mode: cannot proceed with unsupported dependencies")
		}
	}

	// Flag supported libraries that need caller attention.
	for _, dep := range verdict.Supported {
		if note, ok := specialAttentionNotes[strings.ToLower(dep)]; ok {
			verdict.Suggestions = append(verdict.Suggestions,
				fmt.Sprintf("%s: %s", dep, note))
		}
	}

	// Performance tips: external libraries replaceable by stdlib for simple cases.
	for _, dep := range verdict.External {
		if alt, ok := stdlibReplacements[strings.ToLower(dep)]; ok {
			verdict.Suggestions = append(verdict.Suggestions,
				fmt.Sprintf("Performance tip: %q could be replaced with stdlib %q for simpler use cases", dep, alt))
		}
	}

	return verdict
}

// alternativesFor combines near-miss spelling suggestions with the registry's
// alternatives table. Misspelling candidates come first since they are the
// most likely fix.
func (v *Validator) alternativesFor(name string) []string {
	var alts []string
	for _, match := range v.nearMisses(name) {
		alts = append(alts, fmt.Sprintf("%s (did you mean this?)", match))
	}
	for _, a := range v.reg.Alternatives(name) {
		if !containsFold(alts, a) {
			alts = append(alts, a)
		}
	}
	return alts
}

// nearMisses returns registry names within the edit-distance budget of name,
// ordered by ascending distance and then alphabetically for determinism.
func (v *Validator) nearMisses(name string) []string {
	if len(name) < nearMissMinLength {
		return nil
	}
	lower := strings.ToLower(name)

	type candidate struct {
		name string
		dist int
	}
	var found []candidate
	for _, known := range v.reg.ExternalNames() {
		d := matchr.DamerauLevenshtein(lower, strings.ToLower(known))
		if d > 0 && d <= nearMissMaxDistance {
			found = append(found, candidate{name: known, dist: d})
		}
	}
	for _, known := range v.reg.StdlibNames() {
		d := matchr.DamerauLevenshtein(lower, known)
		if d > 0 && d <= nearMissMaxDistance {
			found = append(found, candidate{name: known, dist: d})
		}
	}

	sort.Slice(found, func(i, j int) bool {
		if found[i].dist != found[j].dist {
			return found[i].dist < found[j].dist
		}
		return found[i].name < found[j].name
	})

	names := make([]string, len(found))
	for i, c := range found {
		names[i] = c.name
	}
	return names
}

// wellFormed reports whether name looks like a plausible package name: ASCII
// letters, digits, dots, dashes, underscores, starting with a letter or
// underscore.
func wellFormed(name string) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r == '_':
		case r >= '0' && r <= '9', r == '.', r == '-':
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}

// containsFold reports whether list contains s under case-insensitive compare.
func containsFold(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}
