package pyast

import "strings"

// Walk traverses the tree rooted at n in source order, calling fn for every
// node. When fn returns false the node's children are skipped.
func Walk(n Node, fn func(Node) bool) {
	if n == nil || !fn(n) {
		return
	}
	switch v := n.(type) {
	case *Module:
		walkAll(v.Body, fn)
	case *ClassDef:
		walkAll(v.Body, fn)
	case *FunctionDef:
		walkAll(v.Body, fn)
	case *Compound:
		walkAll(v.Body, fn)
	}
}

func walkAll(nodes []Node, fn func(Node) bool) {
	for _, n := range nodes {
		Walk(n, fn)
	}
}

// Imports returns every imported module path in source order: the dotted
// names of `import` statements and the source modules of `from` imports.
// Duplicates are preserved.
func Imports(m *Module) []string {
	var names []string
	Walk(m, func(n Node) bool {
		switch v := n.(type) {
		case *Import:
			names = append(names, v.Names...)
		case *ImportFrom:
			if v.Module != "" {
				names = append(names, v.Module)
			}
		}
		return true
	})
	return names
}

// ImportRoots returns the deduplicated base modules of [Imports], preserving
// first-seen order. "urllib.request" contributes "urllib".
func ImportRoots(m *Module) []string {
	var roots []string
	seen := map[string]struct{}{}
	for _, name := range Imports(m) {
		root, _, _ := strings.Cut(name, ".")
		if _, dup := seen[root]; dup {
			continue
		}
		seen[root] = struct{}{}
		roots = append(roots, root)
	}
	return roots
}

// Classes returns the top-level class definitions of m in source order.
func Classes(m *Module) []*ClassDef {
	var classes []*ClassDef
	for _, n := range m.Body {
		if c, ok := n.(*ClassDef); ok {
			classes = append(classes, c)
		}
	}
	return classes
}

// Method returns the named function defined directly in the class body,
// or nil.
func Method(c *ClassDef, name string) *FunctionDef {
	for _, n := range c.Body {
		if f, ok := n.(*FunctionDef); ok && f.Name == name {
			return f
		}
	}
	return nil
}

// ClassAttr returns the annotated or plain assignment to name directly in
// the class body, reporting the assigned value text, or "" and false.
func ClassAttr(c *ClassDef, name string) (string, bool) {
	for _, n := range c.Body {
		switch v := n.(type) {
		case *AnnAssign:
			if v.Target == name {
				return v.Value, true
			}
		case *Assign:
			for _, t := range v.Targets {
				if t == name {
					return v.Value, true
				}
			}
		}
	}
	return "", false
}

// CallsName reports whether any statement under n textually calls the named
// function: the name followed by an opening parenthesis, at an identifier
// boundary. Dotted names such as "os.system" match attribute calls.
func CallsName(n Node, name string) bool {
	found := false
	Walk(n, func(node Node) bool {
		if found {
			return false
		}
		if sourceCalls(node.Source(), name) {
			found = true
			return false
		}
		return true
	})
	return found
}

// sourceCalls scans src for `name(` at an identifier boundary, ignoring
// matches inside string literals.
func sourceCalls(src, name string) bool {
	rs := []rune(src)
	target := []rune(name)
	i := 0
	for i < len(rs) {
		switch rs[i] {
		case '\'', '"':
			_, consumed, err := scanString(rs[i:], 1)
			if err != nil {
				return false
			}
			i += consumed
		default:
			if matchCallAt(rs, i, target) {
				return true
			}
			i++
		}
	}
	return false
}

func matchCallAt(rs []rune, i int, target []rune) bool {
	if i+len(target) >= len(rs) {
		return false
	}
	for j, r := range target {
		if rs[i+j] != r {
			return false
		}
	}
	if i > 0 && (isIdentRune(rs[i-1], false) || rs[i-1] == '.') {
		return false
	}
	j := i + len(target)
	for j < len(rs) && (rs[j] == ' ' || rs[j] == '\t') {
		j++
	}
	return j < len(rs) && rs[j] == '('
}
