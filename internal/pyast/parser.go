package pyast

import (
	"strings"
)

// Parse builds a [*Module] from Python source. It returns a [*SyntaxError]
// for the first lexical or structural problem found.
func Parse(src string) (*Module, error) {
	lines, err := scanLogical(src)
	if err != nil {
		return nil, err
	}
	mod := &Module{stmt: stmt{line: 1}}
	if len(lines) == 0 {
		return mod, nil
	}

	p := &parser{lines: lines}
	body, err := p.parseBlock(lines[0].indent)
	if err != nil {
		return nil, err
	}
	if p.pos < len(p.lines) {
		return nil, &SyntaxError{
			Line: p.lines[p.pos].line,
			Msg:  "unindent does not match any outer indentation level",
		}
	}
	mod.Body = body
	mod.Docstring = leadingDocstring(body)
	return mod, nil
}

type parser struct {
	lines []logicalLine
	pos   int
}

// parseBlock consumes statements at exactly indent until a dedent or EOF.
func (p *parser) parseBlock(indent int) ([]Node, error) {
	var body []Node
	for p.pos < len(p.lines) {
		ln := p.lines[p.pos]
		if ln.indent < indent {
			return body, nil
		}
		if ln.indent > indent {
			return nil, &SyntaxError{Line: ln.line, Msg: "unexpected indent"}
		}
		node, err := p.parseStmt(indent)
		if err != nil {
			return nil, err
		}
		body = append(body, node)
	}
	return body, nil
}

// compoundKeywords are clause keywords that open an indented suite and are
// modelled as [Compound] nodes.
var compoundKeywords = map[string]bool{
	"if": true, "elif": true, "else": true,
	"for": true, "while": true, "with": true,
	"try": true, "except": true, "finally": true,
	"match": true, "case": true,
}

// simpleKeywords open statements that never carry a suite and are folded into
// [Other] nodes without further analysis.
var simpleKeywords = map[string]bool{
	"return": true, "raise": true, "pass": true,
	"break": true, "continue": true, "del": true,
	"assert": true, "global": true, "nonlocal": true,
	"yield": true, "await": true, "lambda": true,
}

func (p *parser) parseStmt(indent int) (Node, error) {
	ln := p.lines[p.pos]
	p.pos++
	text := ln.text

	switch word := firstWord(text); {
	case word == "import":
		return parseImport(ln), nil

	case word == "from":
		return parseImportFrom(ln), nil

	case word == "class":
		return p.parseClass(indent, ln)

	case word == "def":
		return p.parseDef(indent, ln, nil)

	case word == "async":
		if strings.HasPrefix(strings.TrimSpace(text[len("async"):]), "def ") {
			return p.parseDef(indent, ln, nil)
		}
		return p.parseCompound(indent, ln)

	case strings.HasPrefix(text, "@"):
		return p.parseDecorated(indent, ln)

	case compoundKeywords[word]:
		return p.parseCompound(indent, ln)

	case simpleKeywords[word]:
		return &Other{stmt{ln.line, text}}, nil
	}

	colon := topIndexNonCmp(text, ':')
	eq := topAssignIndex(text)

	switch {
	case colon > 0 && (eq < 0 || colon < eq) && isTarget(text[:colon]):
		node := &AnnAssign{stmt: stmt{ln.line, text}, Target: strings.TrimSpace(text[:colon])}
		rest := text[colon+1:]
		if restEq := topAssignIndex(rest); restEq >= 0 {
			node.Annotation = strings.TrimSpace(rest[:restEq])
			node.Value = strings.TrimSpace(rest[restEq+1:])
		} else {
			node.Annotation = strings.TrimSpace(rest)
		}
		return node, nil

	case eq > 0:
		if node, ok := parseAssign(ln, eq); ok {
			return node, nil
		}
		return &Other{stmt{ln.line, text}}, nil

	default:
		if _, ok := stringLiteral(text); ok {
			return &ExprStmt{stmt{ln.line, text}}, nil
		}
		return &Other{stmt{ln.line, text}}, nil
	}
}

func parseImport(ln logicalLine) *Import {
	node := &Import{stmt: stmt{ln.line, ln.text}}
	rest := strings.TrimSpace(strings.TrimPrefix(ln.text, "import"))
	for _, part := range splitTop(rest, ',') {
		fields := strings.Fields(part)
		if len(fields) > 0 {
			node.Names = append(node.Names, fields[0])
		}
	}
	return node
}

func parseImportFrom(ln logicalLine) *ImportFrom {
	node := &ImportFrom{stmt: stmt{ln.line, ln.text}}
	rest := strings.TrimSpace(strings.TrimPrefix(ln.text, "from"))

	modEnd := strings.Index(rest, " import ")
	if modEnd < 0 {
		// `from x import` with nothing after, or malformed; keep what we can.
		fields := strings.Fields(rest)
		if len(fields) > 0 {
			node.Module = strings.Trim(fields[0], ".")
		}
		return node
	}
	node.Module = strings.Trim(strings.TrimSpace(rest[:modEnd]), ".")

	names := strings.TrimSpace(rest[modEnd+len(" import "):])
	names = strings.TrimPrefix(names, "(")
	names = strings.TrimSuffix(names, ")")
	for _, part := range splitTop(names, ',') {
		fields := strings.Fields(part)
		if len(fields) > 0 {
			node.Names = append(node.Names, fields[0])
		}
	}
	return node
}

func (p *parser) parseClass(indent int, ln logicalLine) (Node, error) {
	text := ln.text
	node := &ClassDef{stmt: stmt{ln.line, text}}

	header := strings.TrimSpace(strings.TrimPrefix(text, "class"))
	nameEnd := strings.IndexAny(header, "(:")
	if nameEnd < 0 {
		return nil, &SyntaxError{Line: ln.line, Msg: "class header missing ':'"}
	}
	node.Name = strings.TrimSpace(header[:nameEnd])
	if !isIdentifier(node.Name) {
		return nil, &SyntaxError{Line: ln.line, Msg: "invalid class name"}
	}

	rest := header[nameEnd:]
	if rest[0] == '(' {
		close := matchingParen(rest)
		if close < 0 {
			return nil, &SyntaxError{Line: ln.line, Msg: "unbalanced class base list"}
		}
		for _, base := range splitTop(rest[1:close], ',') {
			base = strings.TrimSpace(base)
			if base == "" || topAssignIndex(base) >= 0 {
				continue // keyword argument such as metaclass=...
			}
			node.Bases = append(node.Bases, base)
		}
		rest = strings.TrimSpace(rest[close+1:])
	}
	if !strings.HasPrefix(rest, ":") {
		return nil, &SyntaxError{Line: ln.line, Msg: "class header missing ':'"}
	}

	body, err := p.suite(indent, ln, rest[1:])
	if err != nil {
		return nil, err
	}
	node.Body = body
	node.Docstring = leadingDocstring(body)
	return node, nil
}

func (p *parser) parseDef(indent int, ln logicalLine, decorators []string) (Node, error) {
	text := ln.text
	node := &FunctionDef{stmt: stmt{ln.line, text}, Decorators: decorators}

	header := strings.TrimSpace(text)
	header = strings.TrimSpace(strings.TrimPrefix(header, "async"))
	header = strings.TrimSpace(strings.TrimPrefix(header, "def"))

	open := strings.IndexByte(header, '(')
	if open < 0 {
		return nil, &SyntaxError{Line: ln.line, Msg: "function header missing parameter list"}
	}
	node.Name = strings.TrimSpace(header[:open])
	if !isIdentifier(node.Name) {
		return nil, &SyntaxError{Line: ln.line, Msg: "invalid function name"}
	}

	rest := header[open:]
	close := matchingParen(rest)
	if close < 0 {
		return nil, &SyntaxError{Line: ln.line, Msg: "unbalanced parameter list"}
	}
	node.Params = parseParams(rest[1:close])

	rest = strings.TrimSpace(rest[close+1:])
	if after, ok := strings.CutPrefix(rest, "->"); ok {
		colon := topIndexNonCmp(after, ':')
		if colon < 0 {
			return nil, &SyntaxError{Line: ln.line, Msg: "function header missing ':'"}
		}
		node.Returns = strings.TrimSpace(after[:colon])
		rest = after[colon:]
	}
	if !strings.HasPrefix(rest, ":") {
		return nil, &SyntaxError{Line: ln.line, Msg: "function header missing ':'"}
	}

	body, err := p.suite(indent, ln, rest[1:])
	if err != nil {
		return nil, err
	}
	node.Body = body
	node.Docstring = leadingDocstring(body)
	return node, nil
}

// parseDecorated collects a run of decorator lines and attaches them to the
// def or class that follows. Class decorators are parsed but not retained.
func (p *parser) parseDecorated(indent int, first logicalLine) (Node, error) {
	decorators := []string{strings.TrimSpace(first.text[1:])}
	for p.pos < len(p.lines) &&
		p.lines[p.pos].indent == indent &&
		strings.HasPrefix(p.lines[p.pos].text, "@") {
		decorators = append(decorators, strings.TrimSpace(p.lines[p.pos].text[1:]))
		p.pos++
	}
	if p.pos >= len(p.lines) || p.lines[p.pos].indent != indent {
		return nil, &SyntaxError{Line: first.line, Msg: "decorator not followed by a definition"}
	}

	ln := p.lines[p.pos]
	p.pos++
	switch firstWord(ln.text) {
	case "def", "async":
		return p.parseDef(indent, ln, decorators)
	case "class":
		return p.parseClass(indent, ln)
	default:
		return nil, &SyntaxError{Line: ln.line, Msg: "decorator not followed by a definition"}
	}
}

func (p *parser) parseCompound(indent int, ln logicalLine) (Node, error) {
	text := ln.text
	keyword := firstWord(text)
	if keyword == "async" {
		keyword = firstWord(strings.TrimSpace(text[len("async"):]))
	}
	node := &Compound{stmt: stmt{ln.line, text}, Keyword: keyword}

	colon := topIndexNonCmp(text, ':')
	if colon < 0 {
		return nil, &SyntaxError{Line: ln.line, Msg: keyword + " statement missing ':'"}
	}

	body, err := p.suite(indent, ln, text[colon+1:])
	if err != nil {
		return nil, err
	}
	node.Body = body
	return node, nil
}

// suite parses the indented block following a header line, or the inline
// statement after the header's colon.
func (p *parser) suite(indent int, header logicalLine, rest string) ([]Node, error) {
	if inline := strings.TrimSpace(rest); inline != "" {
		return []Node{&Other{stmt{header.line, inline}}}, nil
	}
	if p.pos >= len(p.lines) || p.lines[p.pos].indent <= indent {
		return nil, &SyntaxError{Line: header.line, Msg: "expected an indented block"}
	}
	return p.parseBlock(p.lines[p.pos].indent)
}

// parseAssign interprets text with a top-level plain '=' at eq as a chained
// assignment. It reports false when the left-hand segments are not plausible
// assignment targets.
func parseAssign(ln logicalLine, eq int) (*Assign, bool) {
	text := ln.text
	node := &Assign{stmt: stmt{ln.line, text}}

	rest := text
	for {
		i := topAssignIndex(rest)
		if i < 0 {
			break
		}
		target := strings.TrimSpace(rest[:i])
		if !isTarget(target) {
			return nil, false
		}
		node.Targets = append(node.Targets, target)
		rest = rest[i+1:]
	}
	node.Value = strings.TrimSpace(rest)
	return node, len(node.Targets) > 0
}

// parseParams splits a parameter list into [Param] values. Bare * and /
// markers are dropped; * and ** prefixes are stripped from names.
func parseParams(list string) []Param {
	var params []Param
	for _, part := range splitTop(list, ',') {
		part = strings.TrimSpace(part)
		if part == "" || part == "*" || part == "/" {
			continue
		}
		part = strings.TrimPrefix(part, "**")
		part = strings.TrimPrefix(part, "*")

		var param Param
		rest := part
		if colon := topIndexNonCmp(rest, ':'); colon >= 0 {
			param.Name = strings.TrimSpace(rest[:colon])
			rest = rest[colon+1:]
			if eq := topAssignIndex(rest); eq >= 0 {
				param.Annotation = strings.TrimSpace(rest[:eq])
				param.Default = strings.TrimSpace(rest[eq+1:])
			} else {
				param.Annotation = strings.TrimSpace(rest)
			}
		} else if eq := topAssignIndex(rest); eq >= 0 {
			param.Name = strings.TrimSpace(rest[:eq])
			param.Default = strings.TrimSpace(rest[eq+1:])
		} else {
			param.Name = strings.TrimSpace(rest)
		}
		if param.Name != "" {
			params = append(params, param)
		}
	}
	return params
}

// leadingDocstring returns the unquoted string literal when body opens with
// one, else "".
func leadingDocstring(body []Node) string {
	if len(body) == 0 {
		return ""
	}
	expr, ok := body[0].(*ExprStmt)
	if !ok {
		return ""
	}
	if doc, ok := stringLiteral(expr.Source()); ok {
		return strings.TrimSpace(doc)
	}
	return ""
}
