package prompt

import "strings"

// guidance describes how to implement a capability with the standard library
// when the requested dependency is unavailable.
type guidance struct {
	// Category is the stable identifier of the guidance block.
	Category string

	// Modules are the recommended stdlib modules.
	Modules []string

	// Approach is a one-paragraph implementation strategy.
	Approach string

	// Sketch is an optional short code fragment illustrating the approach.
	Sketch string
}

// guidanceTable maps capability categories to manual-implementation
// guidance. Entries are matched through triggerTable substrings.
var guidanceTable = map[string]guidance{
	"http_client": {
		Category: "http_client",
		Modules:  []string{"urllib.request", "urllib.parse", "json"},
		Approach: "Use urllib.request.urlopen with an explicit timeout for HTTP calls. " +
			"Build query strings with urllib.parse.urlencode, decode the response body " +
			"as UTF-8 and parse JSON payloads with the json module.",
		Sketch: `import json
import urllib.request

with urllib.request.urlopen(url, timeout=10) as resp:
    data = json.loads(resp.read().decode("utf-8"))`,
	},
	"json_processing": {
		Category: "json_processing",
		Modules:  []string{"json"},
		Approach: "Use json.loads/json.dumps for serialization. For large documents, " +
			"stream with json.JSONDecoder.raw_decode instead of loading everything at once.",
	},
	"csv_processing": {
		Category: "csv_processing",
		Modules:  []string{"csv", "io"},
		Approach: "Use csv.DictReader/csv.DictWriter over file objects or io.StringIO " +
			"buffers. Declare the dialect explicitly rather than sniffing it.",
	},
	"file_operations": {
		Category: "file_operations",
		Modules:  []string{"pathlib", "shutil", "tempfile"},
		Approach: "Use pathlib.Path for all path handling, shutil for copies and moves, " +
			"and tempfile for scratch files. Always open files through context managers.",
	},
	"date_time": {
		Category: "date_time",
		Modules:  []string{"datetime", "zoneinfo", "calendar"},
		Approach: "Use datetime with explicit zoneinfo timezones. Parse with " +
			"datetime.strptime and format with strftime; never rely on the system locale.",
	},
	"text_processing": {
		Category: "text_processing",
		Modules:  []string{"re", "string", "textwrap"},
		Approach: "Use re with compiled patterns for matching and extraction, " +
			"str methods for simple transforms, and textwrap for wrapping output.",
	},
	"data_structures": {
		Category: "data_structures",
		Modules:  []string{"collections", "itertools", "heapq"},
		Approach: "Use collections (Counter, defaultdict, deque) and itertools for " +
			"aggregation and iteration instead of reimplementing them.",
	},
}

// triggerTable maps substrings of dependency names to guidance categories.
// Matching is ordered so more specific triggers win over generic ones.
var triggerTable = []struct {
	substr   string
	category string
}{
	{"http", "http_client"},
	{"request", "http_client"},
	{"urllib", "http_client"},
	{"web", "http_client"},
	{"scrap", "http_client"},
	{"json", "json_processing"},
	{"csv", "csv_processing"},
	{"excel", "csv_processing"},
	{"file", "file_operations"},
	{"path", "file_operations"},
	{"date", "date_time"},
	{"time", "date_time"},
	{"pendulum", "date_time"},
	{"arrow", "date_time"},
	{"text", "text_processing"},
	{"regex", "text_processing"},
	{"string", "text_processing"},
	{"collection", "data_structures"},
	{"struct", "data_structures"},
}

// genericGuidance is used when no category trigger matches an unsupported
// dependency.
var genericGuidance = guidance{
	Category: "stdlib_only",
	Modules:  []string{"Python standard library"},
	Approach: "Implement the capability using only the Python standard library. " +
		"Do not import the unavailable package or any substitute outside the allowlist.",
}

// guidanceFor returns the manual-implementation guidance for an unsupported
// dependency name, falling back to the generic stdlib-only block.
func guidanceFor(dep string) guidance {
	lower := strings.ToLower(dep)
	for _, t := range triggerTable {
		if strings.Contains(lower, t.substr) {
			return guidanceTable[t.category]
		}
	}
	return genericGuidance
}
