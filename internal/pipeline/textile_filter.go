package pipeline

import (
	"strings"
	"unicode"
)

// Renderer converts Textile source to HTML. textile.Renderer satisfies it.
type Renderer interface {
	ToHTML(src string) (string, error)
}

// TextileFilter renders Textile markup to an HTML fragment. It emits raw,
// unsanitized HTML and must run before a sanitizing filter.
type TextileFilter struct {
	renderer Renderer
}

// NewTextileFilter returns a TextileFilter backed by r.
func NewTextileFilter(r Renderer) *TextileFilter {
	return &TextileFilter{renderer: r}
}

// Call strips carriage returns, renders the text, and trims trailing
// whitespace from the HTML. ctx and res are not used. Renderer errors are
// returned as-is.
func (f *TextileFilter) Call(text string, _ Context, _ Result) (string, error) {
	out, err := f.renderer.ToHTML(NormalizeLineEndings(text))
	if err != nil {
		return "", err
	}
	return strings.TrimRightFunc(out, unicode.IsSpace), nil
}

// EmitsUnsafeHTML marks the filter for pipeline ordering checks.
func (*TextileFilter) EmitsUnsafeHTML() bool { return true }

// NormalizeLineEndings returns text with every carriage return removed.
func NormalizeLineEndings(text string) string {
	if !strings.ContainsRune(text, '\r') {
		return text
	}
	return strings.ReplaceAll(text, "\r", "")
}
