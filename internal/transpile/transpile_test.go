package transpile

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/livepreview/swing"
)

func doc(name string, dialect swing.Dialect, content string) *swing.Document {
	cls, _ := swing.Classify(name)
	return &swing.Document{Name: name, Role: cls.Role, Dialect: dialect, Content: content}
}

func TestMarkupEmptyInput(t *testing.T) {
	out, err := Markup(doc("index.md", swing.DialectMarkdown, ""))
	if err != nil {
		t.Fatal(err)
	}
	if out != "" {
		t.Errorf("empty input should transpile to empty output, got %q", out)
	}
}

func TestMarkupHTMLPassthrough(t *testing.T) {
	src := "<h1>Hello</h1>\n<p>unclosed<div>"
	out, err := Markup(doc("index.html", swing.DialectHTML, src))
	if err != nil {
		t.Fatal(err)
	}
	if out != src {
		t.Errorf("html should pass through unchanged, got %q", out)
	}
}

func TestMarkupMarkdown(t *testing.T) {
	out, err := Markup(doc("index.md", swing.DialectMarkdown, "# Hello\n\nsome *text*\n"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "<h1") || !strings.Contains(out, "Hello") {
		t.Errorf("expected rendered heading, got %q", out)
	}
	if !strings.Contains(out, "<em>text</em>") {
		t.Errorf("expected rendered emphasis, got %q", out)
	}
}

func TestStylesheetEmptyInput(t *testing.T) {
	for _, d := range []swing.Dialect{swing.DialectCSS, swing.DialectSCSS, swing.DialectSass, swing.DialectLess} {
		out, err := Stylesheet(context.Background(), doc("style.css", d, ""))
		if err != nil {
			t.Fatalf("%s: %v", d, err)
		}
		if out != "" {
			t.Errorf("%s: empty input should yield empty output, got %q", d, out)
		}
	}
}

func TestStylesheetCSSPassthrough(t *testing.T) {
	src := ".a { color: red; }"
	out, err := Stylesheet(context.Background(), doc("style.css", swing.DialectCSS, src))
	if err != nil {
		t.Fatal(err)
	}
	if out != src {
		t.Errorf("css should pass through unchanged, got %q", out)
	}
}

func TestStylesheetSCSS(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{
			name: "variables and nesting",
			src:  "$c: red;\n.a {\n  color: $c;\n  .b { color: blue; }\n}\n",
			want: ".a {\n  color: red;\n}\n.a .b {\n  color: blue;\n}\n",
		},
		{
			name: "parent reference",
			src:  ".a { &:hover { color: red; } }",
			want: ".a:hover {\n  color: red;\n}\n",
		},
		{
			name: "media query wraps flattened rules",
			src:  ".a { @media (min-width: 600px) { color: red; } }",
			want: "@media (min-width: 600px) {\n.a {\n  color: red;\n}\n}\n",
		},
		{
			name: "interpolation",
			src:  "$side: left;\n.a { margin-#{$side}: 4px; }",
			want: ".a {\n  margin-left: 4px;\n}\n",
		},
		{
			name: "comments stripped",
			src:  "// line\n.a { color: red; /* block */ }",
			want: ".a {\n  color: red;\n}\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := Stylesheet(context.Background(), doc("style.scss", swing.DialectSCSS, tt.src))
			if err != nil {
				t.Fatal(err)
			}
			if out != tt.want {
				t.Errorf("got %q, want %q", out, tt.want)
			}
		})
	}
}

func TestStylesheetSass(t *testing.T) {
	src := "$c: red\n.a\n  color: $c\n  .b\n    color: blue\n"
	want := ".a {\n  color: red;\n}\n.a .b {\n  color: blue;\n}\n"
	out, err := Stylesheet(context.Background(), doc("style.sass", swing.DialectSass, src))
	if err != nil {
		t.Fatal(err)
	}
	if out != want {
		t.Errorf("got %q, want %q", out, want)
	}
}

func TestStylesheetLess(t *testing.T) {
	src := "@c: red;\n.a {\n  color: @c;\n  .b { color: blue; }\n}\n"
	want := ".a {\n  color: red;\n}\n.a .b {\n  color: blue;\n}\n"
	out, err := Stylesheet(context.Background(), doc("style.less", swing.DialectLess, src))
	if err != nil {
		t.Fatal(err)
	}
	if out != want {
		t.Errorf("got %q, want %q", out, want)
	}
}

func TestStylesheetErrors(t *testing.T) {
	tests := []struct {
		name    string
		dialect swing.Dialect
		fname   string
		src     string
	}{
		{name: "unclosed block", dialect: swing.DialectSCSS, fname: "style.scss", src: ".a { color: red;"},
		{name: "undefined variable", dialect: swing.DialectSCSS, fname: "style.scss", src: ".a { color: $missing; }"},
		{name: "declaration outside rule", dialect: swing.DialectSCSS, fname: "style.scss", src: "color: red;"},
		{name: "unsupported at-rule", dialect: swing.DialectSCSS, fname: "style.scss", src: "@keyframes spin { from { opacity: 0; } }"},
		{name: "bad indentation", dialect: swing.DialectSass, fname: "style.sass", src: "    color: red\n.a\n  color: blue\n"},
		{name: "less undefined variable", dialect: swing.DialectLess, fname: "style.less", src: ".a { color: @missing; }"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Stylesheet(context.Background(), doc(tt.fname, tt.dialect, tt.src))
			if err == nil {
				t.Fatal("expected a transpile error")
			}
			var te *Error
			if !errors.As(err, &te) {
				t.Errorf("error should be a transpile *Error, got %T", err)
			}
		})
	}
}

func TestScriptEmptyInput(t *testing.T) {
	out, err := Script(doc("script.ts", swing.DialectTypeScript, ""), swing.DefaultManifest())
	if err != nil {
		t.Fatal(err)
	}
	if out != "" {
		t.Errorf("empty input should yield empty output, got %q", out)
	}
}

func TestScriptPlainJavaScriptPassthrough(t *testing.T) {
	// Plain script with no lowering required is never rewritten, even when
	// it would not parse.
	src := "this is not valid javascript {{{"
	out, err := Script(doc("script.js", swing.DialectJavaScript, src), swing.DefaultManifest())
	if err != nil {
		t.Fatal(err)
	}
	if out != src {
		t.Errorf("plain js should pass through unchanged, got %q", out)
	}
}

func TestScriptStripsTypes(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{name: "const annotation", src: "const x: number = 1;", want: "const x = 1;"},
		{name: "function signature", src: "function f(a: string, b?: number): void { return; }", want: "function f(a, b) { return; }"},
		{name: "as cast", src: "const y = input as string;", want: "const y = input ;"},
		{name: "non-null assertion", src: "const z = maybe!;", want: "const z = maybe;"},
		{name: "ternary untouched", src: "const t = a ? 1 : 2;", want: "const t = a ? 1 : 2;"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := Script(doc("script.ts", swing.DialectTypeScript, tt.src), swing.DefaultManifest())
			if err != nil {
				t.Fatal(err)
			}
			if strings.Join(strings.Fields(out), " ") != strings.Join(strings.Fields(tt.want), " ") {
				t.Errorf("got %q, want %q", out, tt.want)
			}
		})
	}
}

func TestScriptRemovesTypeDeclarations(t *testing.T) {
	src := "interface Point { x: number; y: number; }\ntype ID = string;\nconst p = { x: 1, y: 2 };"
	out, err := Script(doc("script.ts", swing.DialectTypeScript, src), swing.DefaultManifest())
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(out, "interface") || strings.Contains(out, "type ID") {
		t.Errorf("type declarations should be removed, got %q", out)
	}
	if !strings.Contains(out, "const p = { x: 1, y: 2 };") {
		t.Errorf("value code should survive, got %q", out)
	}
}

func TestScriptLowersComponentTemplates(t *testing.T) {
	src := `const el = <div className="a">hi</div>;`
	want := `const el = React.createElement("div", { "className": "a" }, "hi");`
	out, err := Script(doc("script.jsx", swing.DialectJSX, src), swing.DefaultManifest())
	if err != nil {
		t.Fatal(err)
	}
	if out != want {
		t.Errorf("got %q, want %q", out, want)
	}
}

func TestScriptLowersFragmentsAndNesting(t *testing.T) {
	src := "const el = <><span>a</span><Widget flag value={n} /></>;"
	out, err := Script(doc("script.jsx", swing.DialectJSX, src), swing.DefaultManifest())
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{
		"React.createElement(React.Fragment, null",
		`React.createElement("span", null, "a")`,
		`React.createElement(Widget, { "flag": true, "value": n })`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output %q missing %q", out, want)
		}
	}
}

func TestScriptLowersSpreadProps(t *testing.T) {
	src := "const el = <div {...rest} id=\"x\" />;"
	out, err := Script(doc("script.jsx", swing.DialectJSX, src), swing.DefaultManifest())
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "Object.assign({}, rest, { \"id\": \"x\" })") {
		t.Errorf("spread props should merge with Object.assign, got %q", out)
	}
}

func TestScriptComparisonNotLowered(t *testing.T) {
	src := "const ok = a<b;"
	out, err := Script(doc("script.jsx", swing.DialectJSX, src), swing.DefaultManifest())
	if err != nil {
		t.Fatal(err)
	}
	if out != src {
		t.Errorf("comparison should pass through, got %q", out)
	}
}

func TestScriptManifestForcesLowering(t *testing.T) {
	// A plain .js document lowers when the manifest declares the runtime.
	src := "const el = <p>hi</p>;"
	m := swing.Manifest{Scripts: []string{"react", "react-dom"}, Styles: []string{}}
	out, err := Script(doc("script.js", swing.DialectJavaScript, src), m)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "React.createElement(\"p\", null, \"hi\")") {
		t.Errorf("manifest-driven lowering missing, got %q", out)
	}
}

func TestScriptMalformedFails(t *testing.T) {
	tests := []struct {
		name    string
		fname   string
		dialect swing.Dialect
		src     string
	}{
		{name: "mismatched closing tag", fname: "script.jsx", dialect: swing.DialectJSX, src: "const el = <div>hi</span>;"},
		{name: "unterminated element", fname: "script.jsx", dialect: swing.DialectJSX, src: "const el = <div"},
		{name: "broken typescript output", fname: "script.ts", dialect: swing.DialectTypeScript, src: "const x: = ;"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Script(doc(tt.fname, tt.dialect, tt.src), swing.DefaultManifest()); err == nil {
				t.Error("expected a transpile error")
			}
		})
	}
}

func TestScriptModuleSkipsSyntaxCheck(t *testing.T) {
	src := "import { x } from \"lib\";\nconsole.log(x);"
	m := swing.Manifest{Scripts: []string{}, Styles: []string{}, ScriptType: "module"}
	out, err := Script(doc("script.js", swing.DialectJavaScript, src), m)
	if err != nil {
		t.Fatal(err)
	}
	if out != src {
		t.Errorf("module script should pass through, got %q", out)
	}
}

func TestErrorUnwrap(t *testing.T) {
	inner := errors.New("boom")
	err := &Error{Stage: "script", Dialect: "tsx", Err: inner}
	if !errors.Is(err, inner) {
		t.Error("Unwrap should expose the inner error")
	}
	if !strings.Contains(err.Error(), "script") || !strings.Contains(err.Error(), "tsx") {
		t.Errorf("error text should name stage and dialect, got %q", err.Error())
	}
}
