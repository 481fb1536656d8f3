package transpile

import (
	"context"
	"fmt"
	"strings"

	"github.com/livepreview/swing"
)

// Stylesheet converts a stylesheet document to flat CSS. Plain CSS passes
// through unchanged. The nested/variable family (braced and indented
// flavors) and the simpler nested syntax are compiled: variables
// substituted, nested rules flattened, parent references resolved. Any
// processing failure is reported as an error so the caller can keep the
// previous layer.
//
// Compilation is synchronous today but takes a context because the
// preprocessor step is an async-capable suspension point in the engine's
// scheduling model.
func Stylesheet(ctx context.Context, doc *swing.Document) (string, error) {
	if doc.Content == "" {
		return "", nil
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	var (
		out string
		err error
	)
	switch doc.Dialect {
	case swing.DialectCSS:
		return doc.Content, nil
	case swing.DialectSCSS:
		out, err = compileNested(doc.Content, '$', false)
	case swing.DialectSass:
		out, err = compileNested(doc.Content, '$', true)
	case swing.DialectLess:
		out, err = compileNested(doc.Content, '@', false)
	default:
		err = fmt.Errorf("unsupported stylesheet dialect")
	}
	if err != nil {
		return "", &Error{Stage: "stylesheet", Dialect: string(doc.Dialect), Err: err}
	}
	return out, nil
}

// compileNested compiles a nested stylesheet dialect to flat CSS. sigil is
// the variable marker ($ for the scss/sass family, @ for less); indented
// selects the indentation-based flavor, which is converted to braced form
// before sharing the compiler.
func compileNested(src string, sigil byte, indented bool) (string, error) {
	if indented {
		var err error
		src, err = indentedToBraced(src)
		if err != nil {
			return "", err
		}
	}
	src = stripComments(src)

	c := &styleCompiler{src: src, sigil: sigil}
	var out strings.Builder
	if err := c.block("", false, map[string]string{}, &out); err != nil {
		return "", err
	}
	return out.String(), nil
}

// styleCompiler walks braced source, resolving variables and flattening
// nested rules as it goes.
type styleCompiler struct {
	src   string
	pos   int
	sigil byte
}

// block compiles one brace-delimited block. sel is the already-combined
// selector ("" at the top level and directly inside conditional groups);
// inBlock marks whether a closing brace is expected. Declarations collected
// here are emitted as one rule before any nested rules, each child scope
// inheriting a copy of the variable table.
func (c *styleCompiler) block(sel string, inBlock bool, vars map[string]string, out *strings.Builder) error {
	var decls []string
	var nested strings.Builder

	flush := func() {
		if len(decls) > 0 {
			out.WriteString(sel + " {\n")
			for _, d := range decls {
				out.WriteString("  " + d + ";\n")
			}
			out.WriteString("}\n")
		}
		out.WriteString(nested.String())
	}

	// Statements are terminated by ; or, for the last one in a block, by
	// the closing brace.
	handleStmt := func(stmt string) error {
		if name, value, ok := c.variableDef(stmt); ok {
			resolved, err := c.substitute(value, vars)
			if err != nil {
				return err
			}
			vars[name] = resolved
			return nil
		}
		if stmt[0] == '@' {
			// Plain at-statement (@import, @charset): pass through.
			nested.WriteString(stmt + ";\n")
			return nil
		}
		if sel == "" {
			return fmt.Errorf("declaration %q outside a rule", stmt)
		}
		if !strings.Contains(stmt, ":") {
			return fmt.Errorf("malformed declaration %q", stmt)
		}
		resolved, err := c.substitute(stmt, vars)
		if err != nil {
			return err
		}
		decls = append(decls, resolved)
		return nil
	}

	for {
		text, delim, err := c.next()
		if err != nil {
			return err
		}
		stmt := strings.TrimSpace(text)

		switch delim {
		case 0: // end of input
			if inBlock {
				return fmt.Errorf("unclosed block for selector %q", sel)
			}
			if stmt != "" {
				return fmt.Errorf("unexpected content %q at end of input", stmt)
			}
			flush()
			return nil

		case '}':
			if !inBlock {
				return fmt.Errorf("unexpected }")
			}
			if stmt != "" {
				if err := handleStmt(stmt); err != nil {
					return err
				}
			}
			flush()
			return nil

		case ';':
			if stmt == "" {
				continue
			}
			if err := handleStmt(stmt); err != nil {
				return err
			}

		case '{':
			if stmt == "" {
				return fmt.Errorf("block without a selector")
			}
			childVars := copyVars(vars)
			if stmt[0] == '@' {
				if !conditionalAtRule(stmt) {
					return fmt.Errorf("unsupported at-rule %q", strings.Fields(stmt)[0])
				}
				// Conditional group: flatten its contents against the
				// same parent, wrapped in the original at-rule.
				var inner strings.Builder
				if err := c.block(sel, true, childVars, &inner); err != nil {
					return err
				}
				nested.WriteString(stmt + " {\n" + inner.String() + "}\n")
				continue
			}
			childSel, err := c.substitute(stmt, vars)
			if err != nil {
				return err
			}
			combined := combineSelectors(sel, childSel)
			if err := c.block(combined, true, childVars, &nested); err != nil {
				return err
			}
		}
	}
}

// variableDef reports whether stmt defines a variable ($name: value or
// @name: value depending on the dialect family) and splits it.
func (c *styleCompiler) variableDef(stmt string) (name, value string, ok bool) {
	if len(stmt) < 2 || stmt[0] != c.sigil {
		return "", "", false
	}
	colon := strings.Index(stmt, ":")
	if colon < 0 {
		return "", "", false
	}
	name = strings.TrimSpace(stmt[1:colon])
	if !identLike(name) {
		return "", "", false
	}
	return name, strings.TrimSpace(stmt[colon+1:]), true
}

// substitute replaces variable references (and #{...} interpolations for the
// $ family) in a value. An undefined variable is a compile failure.
func (c *styleCompiler) substitute(value string, vars map[string]string) (string, error) {
	var out strings.Builder
	for i := 0; i < len(value); {
		ch := value[i]

		// #{$name} interpolation.
		if c.sigil == '$' && ch == '#' && i+2 < len(value) && value[i+1] == '{' {
			end := strings.Index(value[i:], "}")
			if end < 0 {
				return "", fmt.Errorf("unterminated interpolation in %q", value)
			}
			inner := strings.TrimSpace(value[i+2 : i+end])
			resolved, err := c.substitute(inner, vars)
			if err != nil {
				return "", err
			}
			out.WriteString(resolved)
			i += end + 1
			continue
		}

		if ch == c.sigil && i+1 < len(value) && isIdentByte(value[i+1]) {
			j := i + 1
			for j < len(value) && isIdentByte(value[j]) {
				j++
			}
			name := value[i+1 : j]
			resolved, ok := vars[name]
			if !ok {
				return "", fmt.Errorf("undefined variable %c%s", c.sigil, name)
			}
			out.WriteString(resolved)
			i = j
			continue
		}

		out.WriteByte(ch)
		i++
	}
	return out.String(), nil
}

// next scans to the next structural delimiter, respecting quoted strings.
// Returns the text before the delimiter and the delimiter itself (0 at end
// of input).
func (c *styleCompiler) next() (string, byte, error) {
	start := c.pos
	for c.pos < len(c.src) {
		switch ch := c.src[c.pos]; ch {
		case '"', '\'':
			if err := c.skipString(ch); err != nil {
				return "", 0, err
			}
		case ';', '{', '}':
			text := c.src[start:c.pos]
			c.pos++
			return text, ch, nil
		default:
			c.pos++
		}
	}
	return c.src[start:], 0, nil
}

func (c *styleCompiler) skipString(quote byte) error {
	c.pos++ // opening quote
	for c.pos < len(c.src) {
		switch c.src[c.pos] {
		case '\\':
			c.pos += 2
		case quote:
			c.pos++
			return nil
		default:
			c.pos++
		}
	}
	return fmt.Errorf("unterminated string")
}

// combineSelectors joins a parent and child selector list, resolving &
// parent references. Each parent/child pair combines independently.
func combineSelectors(parent, child string) string {
	if parent == "" {
		return strings.TrimSpace(child)
	}
	var parts []string
	for _, p := range strings.Split(parent, ",") {
		p = strings.TrimSpace(p)
		for _, ch := range strings.Split(child, ",") {
			ch = strings.TrimSpace(ch)
			if strings.Contains(ch, "&") {
				parts = append(parts, strings.ReplaceAll(ch, "&", p))
			} else {
				parts = append(parts, p+" "+ch)
			}
		}
	}
	return strings.Join(parts, ", ")
}

// conditionalAtRule reports whether an at-rule introduces a conditional
// group whose body may contain nested rules.
func conditionalAtRule(stmt string) bool {
	for _, prefix := range []string{"@media", "@supports"} {
		if strings.HasPrefix(stmt, prefix) {
			return true
		}
	}
	return false
}

// stripComments removes // line comments and /* */ block comments outside
// quoted strings. A // inside parentheses (protocol-relative URLs in
// url(...)) is preserved.
func stripComments(src string) string {
	var out strings.Builder
	parens := 0
	for i := 0; i < len(src); {
		ch := src[i]
		switch {
		case ch == '"' || ch == '\'':
			j := i + 1
			for j < len(src) {
				if src[j] == '\\' {
					j += 2
					continue
				}
				if src[j] == ch {
					j++
					break
				}
				j++
			}
			if j > len(src) {
				j = len(src)
			}
			out.WriteString(src[i:j])
			i = j
		case ch == '(':
			parens++
			out.WriteByte(ch)
			i++
		case ch == ')':
			if parens > 0 {
				parens--
			}
			out.WriteByte(ch)
			i++
		case ch == '/' && i+1 < len(src) && src[i+1] == '/' && parens == 0:
			for i < len(src) && src[i] != '\n' {
				i++
			}
		case ch == '/' && i+1 < len(src) && src[i+1] == '*':
			end := strings.Index(src[i+2:], "*/")
			if end < 0 {
				i = len(src)
			} else {
				i += end + 4
			}
		default:
			out.WriteByte(ch)
			i++
		}
	}
	return out.String()
}

// indentedToBraced converts the indentation-based flavor to braced form so
// both flavors share one compiler. A line whose next non-blank line is
// deeper opens a block; dedenting closes blocks; other lines become
// semicolon-terminated statements. A dedent that matches no open level is a
// compile failure.
func indentedToBraced(src string) (string, error) {
	lines := strings.Split(src, "\n")
	var out strings.Builder
	var stack []int // indents of open block bodies

	nextIndent := func(from int) (int, bool) {
		for k := from; k < len(lines); k++ {
			t := strings.TrimSpace(lines[k])
			if t == "" || strings.HasPrefix(t, "//") {
				continue
			}
			return indentOf(lines[k]), true
		}
		return 0, false
	}

	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "//") {
			continue
		}
		ind := indentOf(line)

		for len(stack) > 0 && ind < stack[len(stack)-1] {
			out.WriteString("}\n")
			stack = stack[:len(stack)-1]
		}
		if len(stack) > 0 && ind > stack[len(stack)-1] {
			return "", fmt.Errorf("line %d: unexpected indentation", i+1)
		}
		if len(stack) == 0 && ind > 0 {
			return "", fmt.Errorf("line %d: unexpected indentation", i+1)
		}

		if next, ok := nextIndent(i + 1); ok && next > ind {
			out.WriteString(trimmed + " {\n")
			stack = append(stack, next)
		} else {
			out.WriteString(strings.TrimSuffix(trimmed, ";") + ";\n")
		}
	}
	for range stack {
		out.WriteString("}\n")
	}
	return out.String(), nil
}

func indentOf(line string) int {
	n := 0
	for _, ch := range line {
		if ch == ' ' {
			n++
		} else if ch == '\t' {
			n += 4
		} else {
			break
		}
	}
	return n
}

func identLike(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !isIdentByte(s[i]) {
			return false
		}
	}
	return true
}

func isIdentByte(ch byte) bool {
	return ch == '-' || ch == '_' ||
		(ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || (ch >= '0' && ch <= '9')
}

func copyVars(vars map[string]string) map[string]string {
	out := make(map[string]string, len(vars))
	for k, v := range vars {
		out[k] = v
	}
	return out
}
