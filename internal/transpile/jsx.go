package transpile

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// lowerComponentTemplates rewrites component-template (JSX) syntax into
// React.createElement calls, leaving all other source text untouched.
// Elements are recognized only in expression position, so comparison
// operators and generics pass through.
func lowerComponentTemplates(src string) (string, error) {
	l := &jsxLowerer{src: src}
	return l.run()
}

type jsxLowerer struct {
	src string
	pos int

	// lastSig is the last significant token seen while copying, used to
	// decide whether a '<' starts an element or an expression operator.
	lastSig string
}

func (l *jsxLowerer) run() (string, error) {
	var out strings.Builder
	for l.pos < len(l.src) {
		ch := l.src[l.pos]
		switch {
		case ch == '"' || ch == '\'':
			start := l.pos
			if err := l.skipString(ch); err != nil {
				return "", err
			}
			out.WriteString(l.src[start:l.pos])
			l.lastSig = "\"\""
		case ch == '`':
			end, err := scanTemplate(l.src, l.pos)
			if err != nil {
				return "", err
			}
			out.WriteString(l.src[l.pos:end])
			l.pos = end
			l.lastSig = "``"
		case ch == '/' && l.pos+1 < len(l.src) && (l.src[l.pos+1] == '/' || l.src[l.pos+1] == '*'):
			start := l.pos
			l.skipComment()
			out.WriteString(l.src[start:l.pos])
		case ch == '<' && l.expressionPosition():
			lowered, err := l.element()
			if err != nil {
				return "", err
			}
			out.WriteString(lowered)
			l.lastSig = ")"
		case isScriptIdentStart(ch):
			start := l.pos
			for l.pos < len(l.src) && isScriptIdentByte(l.src[l.pos]) {
				l.pos++
			}
			l.lastSig = l.src[start:l.pos]
			out.WriteString(l.lastSig)
		case ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r':
			out.WriteByte(ch)
			l.pos++
		default:
			l.lastSig = string(ch)
			out.WriteByte(ch)
			l.pos++
		}
	}
	return out.String(), nil
}

// expressionPosition reports whether a '<' at the current position can begin
// an element: after an operator, opener, keyword, or at the start of input,
// never after a value, which would make '<' a comparison.
func (l *jsxLowerer) expressionPosition() bool {
	next := l.pos + 1
	if next >= len(l.src) {
		return false
	}
	if ch := l.src[next]; ch != '>' && ch != '_' && !unicode.IsLetter(rune(ch)) {
		return false
	}

	switch l.lastSig {
	case "":
		return true
	case "(", ",", "=", "=>", "?", ":", "&", "|", "{", "[", ";", "!", "return", "default", "do", "else", "typeof", "yield", "await":
		return true
	}
	return false
}

// element parses one JSX element or fragment at the current '<' and returns
// the lowered call expression.
func (l *jsxLowerer) element() (string, error) {
	l.pos++ // '<'

	tag, tagExpr, err := l.tagName()
	if err != nil {
		return "", err
	}

	props, selfClosing, err := l.attributes()
	if err != nil {
		return "", err
	}

	var children []string
	if !selfClosing {
		children, err = l.children(tag)
		if err != nil {
			return "", err
		}
	}

	var b strings.Builder
	b.WriteString("React.createElement(")
	b.WriteString(tagExpr)
	b.WriteString(", ")
	b.WriteString(props)
	for _, c := range children {
		b.WriteString(", ")
		b.WriteString(c)
	}
	b.WriteString(")")
	return b.String(), nil
}

// tagName reads the element name. Lowercase names are intrinsic elements
// (string tags); capitalized or dotted names reference component values. An
// empty name is a fragment.
func (l *jsxLowerer) tagName() (tag, expr string, err error) {
	start := l.pos
	for l.pos < len(l.src) && (isScriptIdentByte(l.src[l.pos]) || l.src[l.pos] == '.' || l.src[l.pos] == '-') {
		l.pos++
	}
	tag = l.src[start:l.pos]
	switch {
	case tag == "":
		return "", "React.Fragment", nil
	case tag[0] >= 'a' && tag[0] <= 'z' && !strings.Contains(tag, "."):
		return tag, strconv.Quote(tag), nil
	default:
		return tag, tag, nil
	}
}

// attributes parses the attribute list through '>' or '/>', returning the
// props expression ("null" when empty).
func (l *jsxLowerer) attributes() (props string, selfClosing bool, err error) {
	type prop struct {
		spread bool
		expr   string // spread expression or object fragment "name": value
	}
	var parts []prop

	// With no spreads the props are a single object literal; spreads force
	// an Object.assign merge in source order.
	buildProps := func() string {
		if len(parts) == 0 {
			return "null"
		}
		hasSpread := false
		for _, p := range parts {
			if p.spread {
				hasSpread = true
				break
			}
		}
		if !hasSpread {
			fields := make([]string, len(parts))
			for i, p := range parts {
				fields[i] = p.expr
			}
			return "{ " + strings.Join(fields, ", ") + " }"
		}
		var args []string
		var pending []string
		flush := func() {
			if len(pending) > 0 {
				args = append(args, "{ "+strings.Join(pending, ", ")+" }")
				pending = nil
			}
		}
		for _, p := range parts {
			if p.spread {
				flush()
				args = append(args, p.expr)
			} else {
				pending = append(pending, p.expr)
			}
		}
		flush()
		return "Object.assign({}, " + strings.Join(args, ", ") + ")"
	}

	for {
		l.skipSpace()
		if l.pos >= len(l.src) {
			return "", false, fmt.Errorf("unterminated element")
		}
		switch ch := l.src[l.pos]; {
		case ch == '>':
			l.pos++
			return buildProps(), false, nil
		case ch == '/' && l.pos+1 < len(l.src) && l.src[l.pos+1] == '>':
			l.pos += 2
			return buildProps(), true, nil
		case ch == '{':
			inner, err := l.braceExpression()
			if err != nil {
				return "", false, err
			}
			inner = strings.TrimSpace(inner)
			if !strings.HasPrefix(inner, "...") {
				return "", false, fmt.Errorf("unexpected expression in attribute position")
			}
			parts = append(parts, prop{spread: true, expr: strings.TrimPrefix(inner, "...")})
		case isScriptIdentStart(ch):
			name := l.attrName()
			l.skipSpace()
			value := "true"
			if l.pos < len(l.src) && l.src[l.pos] == '=' {
				l.pos++
				l.skipSpace()
				v, err := l.attrValue()
				if err != nil {
					return "", false, err
				}
				value = v
			}
			parts = append(parts, prop{expr: strconv.Quote(name) + ": " + value})
		default:
			return "", false, fmt.Errorf("unexpected %q in element", string(ch))
		}
	}
}

func (l *jsxLowerer) attrName() string {
	start := l.pos
	for l.pos < len(l.src) && (isScriptIdentByte(l.src[l.pos]) || l.src[l.pos] == '-' || l.src[l.pos] == ':') {
		l.pos++
	}
	return l.src[start:l.pos]
}

func (l *jsxLowerer) attrValue() (string, error) {
	if l.pos >= len(l.src) {
		return "", fmt.Errorf("missing attribute value")
	}
	switch ch := l.src[l.pos]; ch {
	case '"', '\'':
		start := l.pos
		if err := l.skipString(ch); err != nil {
			return "", err
		}
		return l.src[start:l.pos], nil
	case '{':
		inner, err := l.braceExpression()
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(inner), nil
	default:
		return "", fmt.Errorf("unexpected attribute value start %q", string(ch))
	}
}

// children parses element children until the matching close tag, lowering
// nested elements and embedded expressions.
func (l *jsxLowerer) children(tag string) ([]string, error) {
	var children []string
	var text strings.Builder

	flushText := func() {
		if t := collapseText(text.String()); t != "" {
			children = append(children, strconv.Quote(t))
		}
		text.Reset()
	}

	for {
		if l.pos >= len(l.src) {
			return nil, fmt.Errorf("unterminated element <%s>", tag)
		}
		switch ch := l.src[l.pos]; {
		case ch == '<' && strings.HasPrefix(l.src[l.pos:], "</"):
			flushText()
			l.pos += 2
			closing := l.readCloseTag()
			if closing != tag {
				return nil, fmt.Errorf("mismatched closing tag </%s> for <%s>", closing, tag)
			}
			return children, nil
		case ch == '<':
			flushText()
			lowered, err := l.element()
			if err != nil {
				return nil, err
			}
			children = append(children, lowered)
		case ch == '{':
			inner, err := l.braceExpression()
			if err != nil {
				return nil, err
			}
			inner = strings.TrimSpace(inner)
			if inner == "" || strings.HasPrefix(inner, "/*") {
				continue // comment-only container
			}
			flushText()
			children = append(children, inner)
		default:
			text.WriteByte(ch)
			l.pos++
		}
	}
}

func (l *jsxLowerer) readCloseTag() string {
	start := l.pos
	for l.pos < len(l.src) && l.src[l.pos] != '>' {
		l.pos++
	}
	name := strings.TrimSpace(l.src[start:l.pos])
	if l.pos < len(l.src) {
		l.pos++ // '>'
	}
	return name
}

// braceExpression consumes a balanced {...} container and returns its inner
// source with any nested element syntax lowered.
func (l *jsxLowerer) braceExpression() (string, error) {
	depth := 0
	start := l.pos + 1
	for l.pos < len(l.src) {
		switch l.src[l.pos] {
		case '{':
			depth++
			l.pos++
		case '}':
			depth--
			if depth == 0 {
				inner := l.src[start:l.pos]
				l.pos++
				sub := &jsxLowerer{src: inner}
				return sub.run()
			}
			l.pos++
		case '"', '\'':
			if err := l.skipString(l.src[l.pos]); err != nil {
				return "", err
			}
		case '`':
			end, err := scanTemplate(l.src, l.pos)
			if err != nil {
				return "", err
			}
			l.pos = end
		case '/':
			if l.pos+1 < len(l.src) && (l.src[l.pos+1] == '/' || l.src[l.pos+1] == '*') {
				l.skipComment()
			} else {
				l.pos++
			}
		default:
			l.pos++
		}
	}
	return "", fmt.Errorf("unterminated expression container")
}

func (l *jsxLowerer) skipString(quote byte) error {
	l.pos++
	for l.pos < len(l.src) {
		switch l.src[l.pos] {
		case '\\':
			l.pos += 2
		case quote:
			l.pos++
			return nil
		default:
			l.pos++
		}
	}
	return fmt.Errorf("unterminated string")
}

func (l *jsxLowerer) skipComment() {
	if l.src[l.pos+1] == '/' {
		for l.pos < len(l.src) && l.src[l.pos] != '\n' {
			l.pos++
		}
		return
	}
	end := strings.Index(l.src[l.pos+2:], "*/")
	if end < 0 {
		l.pos = len(l.src)
		return
	}
	l.pos += end + 4
}

func (l *jsxLowerer) skipSpace() {
	for l.pos < len(l.src) {
		switch l.src[l.pos] {
		case ' ', '\t', '\n', '\r':
			l.pos++
		default:
			return
		}
	}
}

// collapseText normalizes element text the way template renderers do:
// internal whitespace runs collapse to one space and surrounding whitespace
// is trimmed.
func collapseText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
