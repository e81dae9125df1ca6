package pyast

import "strings"

// Helpers that scan a single logical line. All of them skip over string
// literals and bracketed regions, so "top level" means depth zero outside any
// string. The lexer already rejected unbalanced input, so scans here never
// fail; they simply stop finding matches.

// firstWord returns the leading run of identifier characters of s.
func firstWord(s string) string {
	for i, r := range s {
		if !isIdentRune(r, i == 0) {
			return s[:i]
		}
	}
	return s
}

// topIndex returns the byte index of the first occurrence of c at depth zero
// outside strings, or -1.
func topIndex(s string, c byte) int {
	i, depth := 0, 0
	rs := []rune(s)
	for i < len(rs) {
		r := rs[i]
		switch {
		case r == '\'' || r == '"':
			_, consumed, err := scanString(rs[i:], 1)
			if err != nil {
				return -1
			}
			i += consumed
			continue
		case r == '(' || r == '[' || r == '{':
			depth++
		case r == ')' || r == ']' || r == '}':
			depth--
		case depth == 0 && r < 128 && byte(r) == c:
			return len(string(rs[:i]))
		}
		i++
	}
	return -1
}

// topIndexNonCmp is topIndex for ':' with walrus assignments (":=") excluded.
func topIndexNonCmp(s string, c byte) int {
	from := 0
	for {
		i := topIndex(s[from:], c)
		if i < 0 {
			return -1
		}
		i += from
		if c == ':' && i+1 < len(s) && s[i+1] == '=' {
			from = i + 2
			continue
		}
		return i
	}
}

// topAssignIndex returns the index of the first plain top-level '=' in s,
// or -1. Comparison, augmented-assignment and walrus operators do not count.
func topAssignIndex(s string) int {
	from := 0
	for {
		i := topIndex(s[from:], '=')
		if i < 0 {
			return -1
		}
		i += from
		if i+1 < len(s) && s[i+1] == '=' {
			from = i + 2
			continue
		}
		if i > 0 && strings.IndexByte("+-*/%&|^@<>!:=~", s[i-1]) >= 0 {
			from = i + 1
			continue
		}
		return i
	}
}

// splitTop splits s on sep at depth zero outside strings.
func splitTop(s string, sep byte) []string {
	var parts []string
	for {
		i := topIndex(s, sep)
		if i < 0 {
			return append(parts, s)
		}
		parts = append(parts, s[:i])
		s = s[i+1:]
	}
}

// matchingParen returns the index of the ')' matching s[0], which must be
// '(', or -1.
func matchingParen(s string) int {
	i, depth := 0, 0
	rs := []rune(s)
	for i < len(rs) {
		switch rs[i] {
		case '\'', '"':
			_, consumed, err := scanString(rs[i:], 1)
			if err != nil {
				return -1
			}
			i += consumed
			continue
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			depth--
			if depth == 0 {
				return len(string(rs[:i]))
			}
		}
		i++
	}
	return -1
}

// stringLiteral reports whether s is exactly one string literal, optionally
// prefixed (r, b, f, u and combinations), and returns its unquoted content.
func stringLiteral(s string) (string, bool) {
	t := s
	skip := 0
	for skip < len(t) && skip < 2 && isStringPrefix(t[skip]) {
		skip++
	}
	t = t[skip:]
	if t == "" || (t[0] != '\'' && t[0] != '"') {
		return "", false
	}

	rs := []rune(t)
	_, consumed, err := scanString(rs, 1)
	if err != nil || consumed != len(rs) {
		return "", false
	}
	q := rs[0]
	if consumed >= 6 && rs[1] == q && rs[2] == q {
		return string(rs[3 : consumed-3]), true
	}
	return string(rs[1 : consumed-1]), true
}

func isStringPrefix(c byte) bool {
	switch c {
	case 'r', 'R', 'b', 'B', 'f', 'F', 'u', 'U':
		return true
	}
	return false
}

// isIdentifier reports whether s is a plain Python identifier.
func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		if !isIdentRune(r, i == 0) {
			return false
		}
	}
	return true
}

// isTarget reports whether s is a plausible simple assignment target: an
// identifier, a dotted path, or either with a trailing subscript.
func isTarget(s string) bool {
	s = strings.TrimSpace(s)
	if open := strings.IndexByte(s, '['); open >= 0 {
		if !strings.HasSuffix(s, "]") {
			return false
		}
		s = s[:open]
	}
	if s == "" {
		return false
	}
	for _, seg := range strings.Split(s, ".") {
		if !isIdentifier(seg) {
			return false
		}
	}
	return true
}

func isIdentRune(r rune, first bool) bool {
	switch {
	case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		return true
	case r >= '0' && r <= '9':
		return !first
	}
	return false
}
