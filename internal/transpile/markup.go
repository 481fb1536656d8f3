package transpile

import (
	"bytes"
	"fmt"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"

	"github.com/livepreview/swing"
)

// markdown lowers the extended-markup macro syntax to literal HTML. GFM and
// auto heading IDs match what playground authors expect from hosted previews.
var markdown = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
	goldmark.WithParserOptions(
		parser.WithAutoHeadingID(),
	),
)

// Markup converts a markup document to HTML. Plain HTML passes through
// unchanged; the extended-markup dialect is lowered. Empty input returns
// empty output without invoking the engine.
func Markup(doc *swing.Document) (string, error) {
	if doc.Content == "" {
		return "", nil
	}

	switch doc.Dialect {
	case swing.DialectHTML:
		return doc.Content, nil
	case swing.DialectMarkdown:
		var buf bytes.Buffer
		if err := markdown.Convert([]byte(doc.Content), &buf); err != nil {
			return "", &Error{Stage: "markup", Dialect: string(doc.Dialect), Err: err}
		}
		return buf.String(), nil
	default:
		return "", &Error{
			Stage:   "markup",
			Dialect: string(doc.Dialect),
			Err:     fmt.Errorf("unsupported markup dialect"),
		}
	}
}
