package transpile

import "fmt"

// stripTypes removes static type syntax from typed-dialect source: type-only
// declarations, parameter/variable/return annotations, casts, parameter
// modifiers, declaration generics, and non-null assertions. Runtime
// constructs with no JavaScript equivalent (enums, decorators) are not
// lowered; they fail the post-transpile syntax check instead.
func stripTypes(src string) (string, error) {
	toks, err := scanScript(src)
	if err != nil {
		return "", err
	}
	s := &typeStripper{toks: toks, keep: make([]bool, len(toks))}
	for i := range s.keep {
		s.keep[i] = true
	}
	if err := s.removeDeclarations(); err != nil {
		return "", err
	}
	if err := s.removeAnnotations(); err != nil {
		return "", err
	}
	return s.rebuild(), nil
}

type typeStripper struct {
	toks []scriptToken
	keep []bool
}

func (s *typeStripper) rebuild() string {
	var out []byte
	for i, t := range s.toks {
		if s.keep[i] {
			out = append(out, t.text...)
		}
	}
	return string(out)
}

// significant reports whether token i carries syntax (not whitespace or a
// comment) and has not already been removed.
func (s *typeStripper) significant(i int) bool {
	return s.keep[i] && s.toks[i].kind != tkWS && s.toks[i].kind != tkComment
}

func (s *typeStripper) nextSig(i int) int {
	for j := i + 1; j < len(s.toks); j++ {
		if s.significant(j) {
			return j
		}
	}
	return -1
}

func (s *typeStripper) prevSig(i int) int {
	for j := i - 1; j >= 0; j-- {
		if s.significant(j) {
			return j
		}
	}
	return -1
}

func (s *typeStripper) is(i int, kind int, text string) bool {
	return i >= 0 && s.toks[i].kind == kind && s.toks[i].text == text
}

func (s *typeStripper) remove(from, to int) {
	for i := from; i < to && i < len(s.toks); i++ {
		s.keep[i] = false
	}
}

// removeOne drops a single token plus any directly following whitespace, so
// removals do not leave doubled spaces behind.
func (s *typeStripper) removeOne(i int) {
	s.keep[i] = false
	if i+1 < len(s.toks) && s.toks[i+1].kind == tkWS {
		s.keep[i+1] = false
	}
}

// removeDeclarations drops whole type-only declarations: interfaces, type
// aliases, declare statements, and type-only imports, together with a
// leading export keyword.
func (s *typeStripper) removeDeclarations() error {
	for i := 0; i < len(s.toks); i++ {
		if !s.significant(i) || s.toks[i].kind != tkIdent {
			continue
		}
		prev := s.prevSig(i)
		if s.is(prev, tkPunct, ".") {
			continue // property access, not a keyword
		}

		switch s.toks[i].text {
		case "interface":
			next := s.nextSig(i)
			if next < 0 || s.toks[next].kind != tkIdent {
				continue
			}
			end, err := s.blockEnd(i)
			if err != nil {
				return err
			}
			start := i
			if s.is(prev, tkIdent, "export") {
				start = prev
			}
			s.remove(start, end)
			i = end - 1

		case "type":
			next := s.nextSig(i)
			if next < 0 || s.toks[next].kind != tkIdent {
				continue
			}
			after := s.nextSig(next)
			if !s.is(after, tkPunct, "=") && !s.is(after, tkPunct, "<") {
				continue
			}
			end := s.statementEnd(i)
			start := i
			if s.is(prev, tkIdent, "export") {
				start = prev
			}
			s.remove(start, end)
			i = end - 1

		case "declare":
			next := s.nextSig(i)
			if next < 0 || s.toks[next].kind != tkIdent {
				continue
			}
			end := s.statementEnd(i)
			s.remove(i, end)
			i = end - 1

		case "import":
			next := s.nextSig(i)
			if !s.is(next, tkIdent, "type") {
				continue
			}
			end := s.statementEnd(i)
			s.remove(i, end)
			i = end - 1
		}
	}
	return nil
}

// blockEnd returns the index past the balanced {...} block that follows i.
func (s *typeStripper) blockEnd(i int) (int, error) {
	j := i
	for j < len(s.toks) && !s.is(j, tkPunct, "{") {
		j++
	}
	if j == len(s.toks) {
		return 0, fmt.Errorf("missing body after %q", s.toks[i].text)
	}
	depth := 0
	for ; j < len(s.toks); j++ {
		switch {
		case s.is(j, tkPunct, "{"):
			depth++
		case s.is(j, tkPunct, "}"):
			depth--
			if depth == 0 {
				return j + 1, nil
			}
		}
	}
	return 0, fmt.Errorf("unbalanced braces after %q", s.toks[i].text)
}

// statementEnd returns the index past the statement starting at i: through a
// semicolon, or up to a newline at bracket depth zero when the next line
// does not continue a union/intersection.
func (s *typeStripper) statementEnd(i int) int {
	depth := 0
	for j := i; j < len(s.toks); j++ {
		t := s.toks[j]
		if t.kind == tkPunct {
			switch t.text {
			case "(", "{", "[":
				depth++
			case ")", "}", "]":
				depth--
			case ";":
				if depth <= 0 {
					return j + 1
				}
			}
			continue
		}
		if t.kind == tkWS && depth <= 0 && j > i && containsNewline(t.text) {
			next := s.nextSig(j)
			if s.is(next, tkPunct, "|") || s.is(next, tkPunct, "&") {
				continue
			}
			return j
		}
	}
	return len(s.toks)
}

// groupFrame tracks one nesting level of brackets plus pending ternary and
// case colons, which must not be mistaken for annotations.
type groupFrame struct {
	opener  byte // 0 for the top level
	ternary int
	caseLbl int
}

// removeAnnotations strips inline type syntax in a single left-to-right
// pass.
func (s *typeStripper) removeAnnotations() error {
	stack := []groupFrame{{}}
	top := func() *groupFrame { return &stack[len(stack)-1] }

	for i := 0; i < len(s.toks); i++ {
		if !s.significant(i) {
			continue
		}
		t := s.toks[i]

		if t.kind == tkIdent {
			switch t.text {
			case "case":
				top().caseLbl++
			case "default":
				if s.is(s.nextSig(i), tkPunct, ":") {
					top().caseLbl++
				}
			case "public", "private", "protected", "readonly":
				if top().opener == '(' {
					if next := s.nextSig(i); next >= 0 && s.toks[next].kind == tkIdent {
						s.removeOne(i)
					}
				}
			case "as":
				prev := s.prevSig(i)
				if prev >= 0 && (s.toks[prev].kind == tkIdent || s.toks[prev].kind == tkNumber ||
					s.toks[prev].kind == tkString || s.is(prev, tkPunct, ")") || s.is(prev, tkPunct, "]")) {
					end, err := s.parseType(s.nextSig(i))
					if err != nil {
						return err
					}
					s.remove(i, end)
					i = end - 1
				}
			}
			continue
		}

		if t.kind != tkPunct {
			continue
		}
		switch t.text {
		case "(", "{", "[":
			stack = append(stack, groupFrame{opener: t.text[0]})
		case ")", "}", "]":
			if len(stack) > 1 {
				stack = stack[:len(stack)-1]
			}
		case "?":
			if i+1 < len(s.toks) && s.keep[i+1] &&
				(s.is(i+1, tkPunct, ".") || s.is(i+1, tkPunct, "?")) {
				continue // optional chaining / nullish coalescing
			}
			prev := s.prevSig(i)
			if top().opener == '(' && s.is(s.nextSig(i), tkPunct, ":") &&
				prev >= 0 && s.toks[prev].kind == tkIdent {
				s.keep[i] = false // optional parameter marker
				continue
			}
			top().ternary++
		case ":":
			f := top()
			if f.ternary > 0 {
				f.ternary--
				continue
			}
			if f.caseLbl > 0 {
				f.caseLbl--
				continue
			}
			strip := false
			prev := s.prevSig(i)
			switch {
			case f.opener == '(':
				// Parameter list: any colon here that is not a
				// ternary is an annotation.
				strip = true
			case s.is(prev, tkPunct, ")"):
				strip = true // return type
			case prev >= 0 && s.toks[prev].kind == tkIdent:
				decl := s.prevSig(prev)
				if s.is(decl, tkIdent, "let") || s.is(decl, tkIdent, "const") || s.is(decl, tkIdent, "var") {
					strip = true
				}
			}
			if !strip {
				continue
			}
			end, err := s.parseType(s.nextSig(i))
			if err != nil {
				return err
			}
			s.remove(i, end)
			i = end - 1
		case "!":
			if i+1 < len(s.toks) && s.is(i+1, tkPunct, "=") {
				continue // != / !==
			}
			prev := s.prevSig(i)
			next := s.nextSig(i)
			assertable := prev >= 0 && (s.toks[prev].kind == tkIdent ||
				s.is(prev, tkPunct, ")") || s.is(prev, tkPunct, "]"))
			follows := s.is(next, tkPunct, ".") || s.is(next, tkPunct, ")") ||
				s.is(next, tkPunct, ",") || s.is(next, tkPunct, ";")
			if assertable && follows {
				s.keep[i] = false
			}
		case "<":
			// Generic parameter list on a function or class
			// declaration.
			prev := s.prevSig(i)
			if prev >= 0 && s.toks[prev].kind == tkIdent {
				kw := s.prevSig(prev)
				if s.is(kw, tkIdent, "function") || s.is(kw, tkIdent, "class") {
					end, err := s.angleEnd(i)
					if err != nil {
						return err
					}
					s.remove(i, end)
					i = end - 1
				}
			}
		}
	}
	return nil
}

// angleEnd returns the index past the balanced <...> group starting at i.
func (s *typeStripper) angleEnd(i int) (int, error) {
	depth := 0
	for j := i; j < len(s.toks); j++ {
		if !s.significant(j) {
			continue
		}
		switch s.toks[j].text {
		case "<":
			depth++
		case ">":
			depth--
			if depth == 0 {
				return j + 1, nil
			}
		}
	}
	return 0, fmt.Errorf("unbalanced type parameter list")
}

// parseType consumes one type expression starting at significant index i and
// returns the exclusive end index.
func (s *typeStripper) parseType(i int) (int, error) {
	if i < 0 {
		return 0, fmt.Errorf("missing type expression")
	}

	// Prefix operators.
	for s.is(i, tkIdent, "typeof") || s.is(i, tkIdent, "keyof") || s.is(i, tkIdent, "readonly") || s.is(i, tkIdent, "new") {
		i = s.nextSig(i)
		if i < 0 {
			return 0, fmt.Errorf("dangling type operator")
		}
	}

	end, err := s.parseTypeAtom(i)
	if err != nil {
		return 0, err
	}

	for {
		next := s.nextSig(end - 1)
		switch {
		case s.is(next, tkPunct, "["):
			closeIdx, err := s.balancedEnd(next, "[", "]")
			if err != nil {
				return 0, err
			}
			end = closeIdx
		case s.is(next, tkPunct, "|") || s.is(next, tkPunct, "&"):
			atom := s.nextSig(next)
			end, err = s.parseTypeAtom(atom)
			if err != nil {
				return 0, err
			}
		default:
			return end, nil
		}
	}
}

// parseTypeAtom consumes a single type atom: a (possibly dotted, possibly
// generic) name, an object or tuple type, a parenthesized or function type,
// or a literal.
func (s *typeStripper) parseTypeAtom(i int) (int, error) {
	if i < 0 || i >= len(s.toks) {
		return 0, fmt.Errorf("missing type expression")
	}
	t := s.toks[i]
	switch {
	case t.kind == tkIdent:
		end := i + 1
		for {
			next := s.nextSig(end - 1)
			if s.is(next, tkPunct, ".") {
				name := s.nextSig(next)
				if name < 0 || s.toks[name].kind != tkIdent {
					return 0, fmt.Errorf("malformed qualified type name")
				}
				end = name + 1
				continue
			}
			if s.is(next, tkPunct, "<") {
				closeIdx, err := s.angleEnd(next)
				if err != nil {
					return 0, err
				}
				end = closeIdx
			}
			return end, nil
		}
	case t.kind == tkString || t.kind == tkNumber:
		return i + 1, nil
	case s.is(i, tkPunct, "{"):
		return s.balancedEnd(i, "{", "}")
	case s.is(i, tkPunct, "["):
		return s.balancedEnd(i, "[", "]")
	case s.is(i, tkPunct, "("):
		end, err := s.balancedEnd(i, "(", ")")
		if err != nil {
			return 0, err
		}
		if arrow := s.nextSig(end - 1); s.is(arrow, tkPunct, "=>") {
			ret := s.nextSig(arrow)
			return s.parseType(ret)
		}
		return end, nil
	default:
		return 0, fmt.Errorf("unexpected %q in type expression", t.text)
	}
}

func (s *typeStripper) balancedEnd(i int, open, close string) (int, error) {
	depth := 0
	for j := i; j < len(s.toks); j++ {
		if !s.significant(j) || s.toks[j].kind != tkPunct {
			continue
		}
		switch s.toks[j].text {
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				return j + 1, nil
			}
		}
	}
	return 0, fmt.Errorf("unbalanced %s%s in type expression", open, close)
}

func containsNewline(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			return true
		}
	}
	return false
}
