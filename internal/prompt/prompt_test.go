package prompt

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/MrWong99/toolforge/internal/depcheck"
	"github.com/MrWong99/toolforge/internal/registry"
	"github.com/MrWong99/toolforge/pkg/exemplar"
	"github.com/MrWong99/toolforge/pkg/toolspec"
)

func testSpec() *toolspec.Specification {
	return &toolspec.Specification{
		Name:        "weather_lookup",
		DisplayName: "Weather Lookup",
		Description: "Fetches current weather",
		Category:    "web_scraping",
		Requirements: []string{
			"Fetch weather data from a public API",
		},
		Inputs: []toolspec.Parameter{
			{Name: "city", Type: toolspec.TypeString, Required: true, Description: "City name"},
		},
		Dependencies: []string{"requests"},
	}
}

func TestBuild_SectionOrder(t *testing.T) {
	verdict := depcheck.New(registry.Default()).Validate([]string{"requests", "fake_http_library"}, false)
	exemplars := []exemplar.Exemplar{{Name: "csv_parser", Code: "class CsvTool: pass", Similarity: 0.91}}

	out, err := New().Build(testSpec(), verdict, exemplars, []string{"missing args_schema"})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	sections := []string{
		"## Tool Specification",
		"## Dependency Rules",
		"## Manual Implementation Guidance",
		"## Reference Exemplars",
		"## Previous Attempt Errors",
		"## Output Format",
	}
	last := -1
	for _, s := range sections {
		i := strings.Index(out, s)
		if i < 0 {
			t.Fatalf("prompt missing section %q", s)
		}
		if i < last {
			t.Errorf("section %q out of order", s)
		}
		last = i
	}
}

func TestBuild_Deterministic(t *testing.T) {
	verdict := depcheck.New(registry.Default()).Validate([]string{"requests", "polars"}, false)
	exemplars := []exemplar.Exemplar{
		{Name: "a", Code: "code a", Similarity: 0.8},
		{Name: "b", Code: "code b", Similarity: 0.7},
	}

	first, err := New().Build(testSpec(), verdict, exemplars, nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	second, err := New().Build(testSpec(), verdict, exemplars, nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if first != second {
		t.Error("identical inputs produced different prompts")
	}
}

func TestBuild_HTTPGuidanceBlock(t *testing.T) {
	verdict := depcheck.New(registry.Default()).Validate([]string{"fake_http_library"}, false)

	out, err := New().Build(testSpec(), verdict, nil, nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if !strings.Contains(out, "http_client") {
		t.Error("prompt missing http_client guidance category")
	}
	if !strings.Contains(out, "urllib.request") {
		t.Error("prompt missing urllib.request recommendation")
	}
	if !strings.Contains(out, "must NOT import: fake_http_library") {
		t.Error("prompt missing the must-not-import list")
	}
}

func TestBuild_GenericGuidanceFallback(t *testing.T) {
	verdict := depcheck.New(registry.Default()).Validate([]string{"quantumlib"}, false)

	out, err := New().Build(testSpec(), verdict, nil, nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if !strings.Contains(out, "stdlib_only") {
		t.Error("prompt missing the generic stdlib-only guidance")
	}
}

func TestBuild_NoRetrySectionOnFirstAttempt(t *testing.T) {
	verdict := depcheck.New(registry.Default()).Validate([]string{"requests"}, false)

	out, err := New().Build(testSpec(), verdict, nil, nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if strings.Contains(out, "Previous Attempt Errors") {
		t.Error("retry section present on first attempt")
	}
	if strings.Contains(out, "Manual Implementation Guidance") {
		t.Error("guidance section present with no unsupported deps")
	}
}

func TestBuild_ExemplarCapAndTruncation(t *testing.T) {
	var exemplars []exemplar.Exemplar
	for _, name := range []string{"a", "b", "c", "d"} {
		exemplars = append(exemplars, exemplar.Exemplar{
			Name: name,
			Code: strings.Repeat("line_of_code()\n", 100),
		})
	}
	verdict := depcheck.New(registry.Default()).Validate(nil, false)

	out, err := New(WithExemplarLength(120)).Build(testSpec(), verdict, exemplars, nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if strings.Contains(out, "### d") {
		t.Error("fourth exemplar should be dropped by the default cap")
	}
	if !strings.Contains(out, "# ... truncated ...") {
		t.Error("long exemplar code should be truncated")
	}
}

func TestTruncate_NeverSplitsRune(t *testing.T) {
	tests := []struct {
		name string
		s    string
		n    int
	}{
		{"multibyte without newlines", strings.Repeat("é", 40), 25},
		{"multibyte comment line", "# température: " + strings.Repeat("°", 30), 19},
		{"cut after last newline", "short()\n" + strings.Repeat("é", 20), 18},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := truncate(tt.s, tt.n)
			if !utf8.ValidString(got) {
				t.Fatalf("truncate(%q, %d) = %q, not valid UTF-8", tt.s, tt.n, got)
			}
			if !strings.HasSuffix(got, "# ... truncated ...") {
				t.Errorf("truncate(%q, %d) = %q, missing marker", tt.s, tt.n, got)
			}
		})
	}

	if got := truncate("tiny()", 120); got != "tiny()" {
		t.Errorf("truncate below the bound = %q, want input unchanged", got)
	}
}

func TestBuild_MalformedSpec(t *testing.T) {
	if _, err := New().Build(nil, depcheck.Verdict{}, nil, nil); err == nil {
		t.Fatal("nil spec should fail")
	}
	bad := &toolspec.Specification{Name: "1bad"}
	if _, err := New().Build(bad, depcheck.Verdict{}, nil, nil); err == nil {
		t.Fatal("invalid spec should fail")
	}
}

func TestGuidanceFor(t *testing.T) {
	tests := []struct {
		dep  string
		want string
	}{
		{"fake_http_library", "http_client"},
		{"requests2", "http_client"},
		{"ujson", "json_processing"},
		{"fastcsv", "csv_processing"},
		{"pendulum", "date_time"},
		{"totally_unknown", "stdlib_only"},
	}
	for _, tt := range tests {
		if got := guidanceFor(tt.dep); got.Category != tt.want {
			t.Errorf("guidanceFor(%q) = %s, want %s", tt.dep, got.Category, tt.want)
		}
	}
}
