package pipeline

import "strings"

// splitResponse separates a completion into the tool code and the surrounding
// documentation. The code is the content of the first ```python fence; every
// other line of the completion becomes documentation. ok is false when no
// closed, non-empty python fence exists, which callers treat as a malformed
// response.
func splitResponse(content string) (code, doc string, ok bool) {
	const fence = "```python"

	start := strings.Index(content, fence)
	if start < 0 {
		return "", "", false
	}
	rest := content[start+len(fence):]
	rest = strings.TrimPrefix(rest, "\r\n")
	rest = strings.TrimPrefix(rest, "\n")

	end := strings.Index(rest, "```")
	if end < 0 {
		return "", "", false
	}

	code = strings.TrimRight(rest[:end], "\n\r")
	if strings.TrimSpace(code) == "" {
		return "", "", false
	}

	doc = strings.TrimSpace(content[:start] + rest[end+len("```"):])
	return code, doc, true
}
