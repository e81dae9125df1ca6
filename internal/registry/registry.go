// Package registry defines the immutable allowlist of libraries available in
// the CrewAI-Studio runtime that generated tools are deployed into.
//
// The registry partitions importable names into two sets: Python standard
// library modules (always available, no installation required) and external
// libraries pinned in the studio's requirements manifest. Anything outside
// both sets is unsupported and must be implemented manually using permitted
// modules.
//
// A [Registry] is an immutable value built once at process start via [Default]
// (or [New] with custom tables). It holds no mutable state after construction
// and is therefore safe for unlimited concurrent readers.
package registry

import (
	"sort"
	"strings"
)

// Registry is the static library allowlist consulted during dependency
// validation. The zero value is unusable; construct one with [New] or
// [Default].
type Registry struct {
	stdlib       map[string]struct{}
	external     map[string]string // canonical name → pinned version
	externalLow  map[string]string // lowercased name → canonical name
	categories   map[string][]string
	alternatives map[string][]string
}

// New builds a [Registry] from explicit tables. The maps are copied, so the
// caller may reuse or mutate its arguments afterwards.
//
// stdlib holds standard-library module names. external maps library names to
// pinned versions (an empty version means "unpinned"). categories groups
// library names under category labels. alternatives maps lowercased
// unsupported names to suggestion lists.
func New(stdlib []string, external map[string]string, categories map[string][]string, alternatives map[string][]string) *Registry {
	r := &Registry{
		stdlib:       make(map[string]struct{}, len(stdlib)),
		external:     make(map[string]string, len(external)),
		externalLow:  make(map[string]string, len(external)),
		categories:   make(map[string][]string, len(categories)),
		alternatives: make(map[string][]string, len(alternatives)),
	}
	for _, m := range stdlib {
		r.stdlib[m] = struct{}{}
	}
	for name, version := range external {
		r.external[name] = version
		r.externalLow[strings.ToLower(name)] = name
	}
	for cat, libs := range categories {
		r.categories[cat] = append([]string(nil), libs...)
	}
	for name, alts := range alternatives {
		r.alternatives[strings.ToLower(name)] = append([]string(nil), alts...)
	}
	return r
}

// Default returns a [Registry] populated with the built-in tables tracking the
// CrewAI-Studio environment (see data.go). Each call builds a fresh value;
// callers should construct it once at startup and share the reference.
func Default() *Registry {
	return New(stdlibModules, externalLibraries, libraryCategories, alternativesMap)
}

// IsStdlib reports whether name is a Python standard-library module. Submodule
// paths are resolved to their base module, so "urllib.request" matches via
// "urllib".
func (r *Registry) IsStdlib(name string) bool {
	base, _, _ := strings.Cut(name, ".")
	if _, ok := r.stdlib[base]; ok {
		return true
	}
	// Dotted stdlib entries like "os.path" are listed explicitly.
	_, ok := r.stdlib[name]
	return ok
}

// IsExternal reports whether name is a supported external library. Matching is
// case-insensitive because package indexes treat names case-insensitively.
func (r *Registry) IsExternal(name string) bool {
	_, ok := r.externalLow[strings.ToLower(name)]
	return ok
}

// IsSupported reports whether name may be imported by a generated tool, i.e.
// it is either a stdlib module or a supported external library.
func (r *Registry) IsSupported(name string) bool {
	return r.IsStdlib(name) || r.IsExternal(name)
}

// Version returns the pinned version of a supported external library and
// whether the library is known. Stdlib modules have no version.
func (r *Registry) Version(name string) (string, bool) {
	canonical, ok := r.externalLow[strings.ToLower(name)]
	if !ok {
		return "", false
	}
	return r.external[canonical], true
}

// Category returns the category label of a supported library, or "" when the
// library is not categorised.
func (r *Registry) Category(name string) string {
	for cat, libs := range r.categories {
		for _, lib := range libs {
			if lib == name {
				return cat
			}
		}
	}
	return ""
}

// Alternatives suggests replacements for an unsupported library. Exact
// (case-insensitive) table entries win; otherwise a substring heuristic on the
// name picks a category-level suggestion (http/web, json, csv); the final
// fallback is the generic manual-implementation advice.
func (r *Registry) Alternatives(name string) []string {
	lower := strings.ToLower(name)

	// Category heuristics override the table — a name like "urllib3" should
	// receive HTTP-specific advice even if a table entry exists.
	switch {
	case strings.Contains(lower, "http") || strings.Contains(lower, "web"):
		return []string{"requests", "httpx", "urllib.request (stdlib)"}
	case strings.Contains(lower, "json"):
		return []string{"json (stdlib)", "orjson"}
	case strings.Contains(lower, "csv"):
		return []string{"csv (stdlib)", "pandas"}
	}

	if alts, ok := r.alternatives[lower]; ok {
		return append([]string(nil), alts...)
	}
	return []string{genericAlternative}
}

// genericAlternative is the fallback suggestion for unsupported libraries with
// no specific alternatives entry.
const genericAlternative = "Implement manually using Python stdlib"

// ExternalNames returns the canonical names of all supported external
// libraries in sorted order. Used for near-miss spelling suggestions.
func (r *Registry) ExternalNames() []string {
	names := make([]string, 0, len(r.external))
	for name := range r.external {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// StdlibNames returns all standard-library module names in sorted order.
func (r *Registry) StdlibNames() []string {
	names := make([]string, 0, len(r.stdlib))
	for name := range r.stdlib {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
