package registry

import (
	"slices"
	"strings"
	"testing"
)

func TestIsStdlib(t *testing.T) {
	r := Default()

	tests := []struct {
		name string
		want bool
	}{
		{"json", true},
		{"datetime", true},
		{"urllib.request", true}, // dotted submodule
		{"os.path", true},        // explicit dotted entry
		{"requests", false},      // external, not stdlib
		{"fake_module", false},
	}
	for _, tt := range tests {
		if got := r.IsStdlib(tt.name); got != tt.want {
			t.Errorf("IsStdlib(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestIsSupported(t *testing.T) {
	r := Default()

	tests := []struct {
		name string
		want bool
	}{
		{"json", true},
		{"requests", true},
		{"Requests", true}, // case-insensitive for external libs
		{"pandas", true},
		{"crewai", true},
		{"fake_http_library", false},
		{"leftpad", false},
	}
	for _, tt := range tests {
		if got := r.IsSupported(tt.name); got != tt.want {
			t.Errorf("IsSupported(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestVersion(t *testing.T) {
	r := Default()

	v, ok := r.Version("requests")
	if !ok {
		t.Fatal("Version(requests) not found")
	}
	if v == "" {
		t.Error("requests should have a pinned version")
	}

	if _, ok := r.Version("not_a_library"); ok {
		t.Error("Version(not_a_library) should not be found")
	}
}

func TestCategory(t *testing.T) {
	r := Default()

	if got := r.Category("requests"); got != "web_http" {
		t.Errorf("Category(requests) = %q, want web_http", got)
	}
	if got := r.Category("pandas"); got != "data_processing" {
		t.Errorf("Category(pandas) = %q, want data_processing", got)
	}
	if got := r.Category("unknown_lib"); got != "" {
		t.Errorf("Category(unknown_lib) = %q, want empty", got)
	}
}

func TestAlternatives_SubstringHeuristics(t *testing.T) {
	r := Default()

	tests := []struct {
		name     string
		contains string
	}{
		{"fake_http_library", "requests"},
		{"some_web_scraper", "requests"},
		{"hyperjson", "json (stdlib)"},
		{"fastcsv", "csv (stdlib)"},
	}
	for _, tt := range tests {
		alts := r.Alternatives(tt.name)
		found := false
		for _, a := range alts {
			if strings.Contains(a, tt.contains) {
				found = true
			}
		}
		if !found {
			t.Errorf("Alternatives(%q) = %v, want entry containing %q", tt.name, alts, tt.contains)
		}
	}
}

func TestAlternatives_TableAndFallback(t *testing.T) {
	r := Default()

	if alts := r.Alternatives("polars"); !slices.Contains(alts, "pandas") {
		t.Errorf("Alternatives(polars) = %v, want pandas", alts)
	}

	alts := r.Alternatives("completely_unknown_lib")
	if len(alts) != 1 || alts[0] != genericAlternative {
		t.Errorf("Alternatives(unknown) = %v, want generic fallback", alts)
	}
}

func TestExternalNames_Sorted(t *testing.T) {
	r := Default()
	names := r.ExternalNames()
	if len(names) == 0 {
		t.Fatal("no external names")
	}
	if !slices.IsSorted(names) {
		t.Error("ExternalNames is not sorted")
	}
	if !slices.Contains(names, "requests") {
		t.Error("ExternalNames missing requests")
	}
}

func TestNew_CopiesInput(t *testing.T) {
	ext := map[string]string{"foo": "1.0"}
	r := New([]string{"json"}, ext, nil, nil)
	ext["bar"] = "2.0"

	if r.IsExternal("bar") {
		t.Error("Registry should copy the external map, not alias it")
	}
	if !r.IsExternal("foo") || !r.IsStdlib("json") {
		t.Error("Registry lost constructor entries")
	}
}
