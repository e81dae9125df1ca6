package pyast

import (
	"fmt"
	"strings"
)

// logicalLine is one logical statement after joining continuations and
// stripping comments. Indent is measured in columns with tabs expanded to the
// next multiple of eight, matching CPython's tokenizer.
type logicalLine struct {
	indent int
	text   string
	line   int
}

const tabWidth = 8

// scanLogical splits src into logical lines. It handles single and triple
// quoted strings (including r/b/f prefixes), implicit continuation inside
// (), [] and {}, explicit backslash continuation, and comments. Blank and
// comment-only lines are dropped.
func scanLogical(src string) ([]logicalLine, error) {
	var (
		out      []logicalLine
		buf      strings.Builder
		startPos int
		indent   int
		depth    int
		line     = 1
	)
	runes := []rune(src)
	i := 0

	atLineStart := true
	inStmt := false

	flush := func() {
		text := strings.TrimSpace(buf.String())
		if text != "" {
			out = append(out, logicalLine{indent: indent, text: text, line: startPos})
		}
		buf.Reset()
		inStmt = false
	}

	for i < len(runes) {
		if atLineStart && !inStmt {
			// Measure indentation of a fresh logical line.
			col := 0
			for i < len(runes) {
				if runes[i] == ' ' {
					col++
				} else if runes[i] == '\t' {
					col += tabWidth - col%tabWidth
				} else {
					break
				}
				i++
			}
			if i >= len(runes) {
				break
			}
			if runes[i] == '\n' {
				line++
				i++
				continue
			}
			if runes[i] == '#' {
				for i < len(runes) && runes[i] != '\n' {
					i++
				}
				continue
			}
			indent = col
			startPos = line
			atLineStart = false
			inStmt = true
			continue
		}

		c := runes[i]
		switch c {
		case '\n':
			line++
			i++
			if depth > 0 {
				// Implicit continuation inside brackets.
				buf.WriteByte(' ')
				atLineStart = false
				continue
			}
			flush()
			atLineStart = true

		case '#':
			for i < len(runes) && runes[i] != '\n' {
				i++
			}

		case '\\':
			// Explicit line continuation only when the backslash is the last
			// character before the newline.
			if i+1 < len(runes) && runes[i+1] == '\n' {
				line++
				i += 2
				buf.WriteByte(' ')
				continue
			}
			buf.WriteRune(c)
			i++

		case '(', '[', '{':
			depth++
			buf.WriteRune(c)
			i++

		case ')', ']', '}':
			depth--
			if depth < 0 {
				return nil, &SyntaxError{Line: line, Msg: fmt.Sprintf("unmatched %q", string(c))}
			}
			buf.WriteRune(c)
			i++

		case '\'', '"':
			n, consumed, err := scanString(runes[i:], line)
			if err != nil {
				return nil, err
			}
			buf.WriteString(string(runes[i : i+consumed]))
			line += n
			i += consumed

		default:
			buf.WriteRune(c)
			i++
		}
	}

	if depth > 0 {
		return nil, &SyntaxError{Line: line, Msg: "unexpected end of file inside brackets"}
	}
	flush()
	return out, nil
}

// scanString consumes a string literal starting at rs[0] (a quote character).
// It returns the number of newlines crossed and the number of runes consumed.
// Single-quoted strings may not span lines; triple-quoted strings may.
func scanString(rs []rune, startLine int) (newlines, consumed int, err error) {
	q := rs[0]
	triple := len(rs) >= 3 && rs[1] == q && rs[2] == q
	i := 1
	if triple {
		i = 3
	}

	for i < len(rs) {
		switch rs[i] {
		case '\\':
			if i+1 < len(rs) {
				if rs[i+1] == '\n' {
					newlines++
				}
				i += 2
				continue
			}
			i++

		case '\n':
			if !triple {
				return 0, 0, &SyntaxError{Line: startLine + newlines, Msg: "unterminated string literal"}
			}
			newlines++
			i++

		case q:
			if !triple {
				return newlines, i + 1, nil
			}
			if i+2 < len(rs) && rs[i+1] == q && rs[i+2] == q {
				return newlines, i + 3, nil
			}
			i++

		default:
			i++
		}
	}
	return 0, 0, &SyntaxError{Line: startLine, Msg: "unterminated string literal"}
}
