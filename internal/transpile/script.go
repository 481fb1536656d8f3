package transpile

import (
	"fmt"

	"github.com/dop251/goja"

	"github.com/livepreview/swing"
)

// Script converts a script document to plain executable JavaScript. Plain
// script passes through unchanged. Component-template syntax lowering runs
// when the document's dialect is component-templated or the manifest
// declares the UI-framework runtime; static type syntax is stripped for the
// typed dialects. The target language level is a fixed modern ECMAScript
// baseline: no down-leveling is performed.
//
// Transformed output is syntax-checked before it is accepted; a check
// failure is a transpile failure and the previous layer stays rendered.
func Script(doc *swing.Document, manifest swing.Manifest) (string, error) {
	if doc.Content == "" {
		return "", nil
	}

	lower := swing.ComponentTemplated(doc.Dialect) || manifest.RequiresScriptLowering()
	typed := doc.Dialect == swing.DialectTypeScript || doc.Dialect == swing.DialectTSX

	if !lower && !typed {
		return doc.Content, nil
	}

	out := doc.Content
	var err error

	// Component templates lower first: the JSX scanner tolerates type
	// annotations inside expressions, while the type stripper would trip
	// over raw template syntax.
	if lower {
		out, err = lowerComponentTemplates(out)
		if err != nil {
			return "", &Error{Stage: "script", Dialect: string(doc.Dialect), Err: err}
		}
	}
	if typed {
		out, err = stripTypes(out)
		if err != nil {
			return "", &Error{Stage: "script", Dialect: string(doc.Dialect), Err: err}
		}
	}

	// Module-type playgrounds may use import/export, which the embedded
	// syntax checker does not model; they are trusted as-is.
	if manifest.ScriptType != "module" {
		if _, err := goja.Compile(doc.Name, out, false); err != nil {
			return "", &Error{
				Stage:   "script",
				Dialect: string(doc.Dialect),
				Err:     fmt.Errorf("transpiled output does not parse: %w", err),
			}
		}
	}
	return out, nil
}

// Token kinds for the script scanner.
const (
	tkWS = iota
	tkComment
	tkIdent
	tkNumber
	tkString
	tkPunct
)

type scriptToken struct {
	kind int
	text string
}

// scanScript tokenizes JavaScript-family source just finely enough for type
// stripping: identifiers, literals, comments, whitespace, and punctuation.
// Regular-expression literals are not modeled; damage from one is caught by
// the post-transpile syntax check.
func scanScript(src string) ([]scriptToken, error) {
	var toks []scriptToken
	for i := 0; i < len(src); {
		ch := src[i]
		switch {
		case ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r':
			j := i
			for j < len(src) && (src[j] == ' ' || src[j] == '\t' || src[j] == '\n' || src[j] == '\r') {
				j++
			}
			toks = append(toks, scriptToken{tkWS, src[i:j]})
			i = j
		case ch == '/' && i+1 < len(src) && src[i+1] == '/':
			j := i
			for j < len(src) && src[j] != '\n' {
				j++
			}
			toks = append(toks, scriptToken{tkComment, src[i:j]})
			i = j
		case ch == '/' && i+1 < len(src) && src[i+1] == '*':
			j := i + 2
			for j+1 < len(src) && !(src[j] == '*' && src[j+1] == '/') {
				j++
			}
			if j+1 >= len(src) {
				return nil, fmt.Errorf("unterminated comment")
			}
			toks = append(toks, scriptToken{tkComment, src[i : j+2]})
			i = j + 2
		case ch == '"' || ch == '\'':
			j := i + 1
			for j < len(src) && src[j] != ch {
				if src[j] == '\\' {
					j++
				}
				j++
			}
			if j >= len(src) {
				return nil, fmt.Errorf("unterminated string")
			}
			toks = append(toks, scriptToken{tkString, src[i : j+1]})
			i = j + 1
		case ch == '`':
			j, err := scanTemplate(src, i)
			if err != nil {
				return nil, err
			}
			toks = append(toks, scriptToken{tkString, src[i:j]})
			i = j
		case isScriptIdentStart(ch):
			j := i
			for j < len(src) && isScriptIdentByte(src[j]) {
				j++
			}
			toks = append(toks, scriptToken{tkIdent, src[i:j]})
			i = j
		case ch >= '0' && ch <= '9':
			j := i
			for j < len(src) && (isScriptIdentByte(src[j]) || src[j] == '.') {
				j++
			}
			toks = append(toks, scriptToken{tkNumber, src[i:j]})
			i = j
		case ch == '=' && i+1 < len(src) && src[i+1] == '>':
			toks = append(toks, scriptToken{tkPunct, "=>"})
			i += 2
		default:
			toks = append(toks, scriptToken{tkPunct, src[i : i+1]})
			i++
		}
	}
	return toks, nil
}

// scanTemplate consumes a template literal starting at i, including nested
// ${...} substitutions, and returns the index past the closing backtick.
func scanTemplate(src string, i int) (int, error) {
	j := i + 1
	for j < len(src) {
		switch src[j] {
		case '\\':
			j += 2
		case '`':
			return j + 1, nil
		case '$':
			if j+1 < len(src) && src[j+1] == '{' {
				depth := 1
				j += 2
				for j < len(src) && depth > 0 {
					switch src[j] {
					case '{':
						depth++
					case '}':
						depth--
					case '`':
						end, err := scanTemplate(src, j)
						if err != nil {
							return 0, err
						}
						j = end - 1
					}
					j++
				}
				if depth > 0 {
					return 0, fmt.Errorf("unterminated template substitution")
				}
			} else {
				j++
			}
		default:
			j++
		}
	}
	return 0, fmt.Errorf("unterminated template literal")
}

func isScriptIdentStart(ch byte) bool {
	return ch == '_' || ch == '$' || (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}

func isScriptIdentByte(ch byte) bool {
	return isScriptIdentStart(ch) || (ch >= '0' && ch <= '9')
}
