// Package textile converts Textile markup into HTML fragments.
//
// The renderer covers the subset of Textile that forum posts use in practice:
//
//   - block signatures: h1.–h6., p., bq., bc., pre.
//   - bulleted (*) and numbered (#) lists, nested by repeating the marker
//   - phrase modifiers: *strong*, **b**, _em_, __i__, ??cite??, -del-, +ins+,
//     ^sup^, ~sub~, @code@
//   - links ("text":url, "text(title)":url) and images (!src!, !src(alt)!)
//   - line breaks inside a block become <br />
//
// Output is NOT sanitized. Raw HTML in the source passes through untouched,
// so callers must run the result through an HTML sanitizer before display.
package textile

import (
	"errors"
	"html"
	"regexp"
	"strconv"
	"strings"
)

// ErrTooLarge is returned by Renderer.ToHTML when the input exceeds MaxBytes.
var ErrTooLarge = errors.New("textile: input exceeds size limit")

// Renderer renders Textile with an optional input size cap.
type Renderer struct {
	// MaxBytes rejects inputs longer than this many bytes. Zero disables the cap.
	MaxBytes int
}

// New returns a Renderer that rejects inputs larger than maxBytes (0 = no cap).
func New(maxBytes int) Renderer {
	if maxBytes < 0 {
		maxBytes = 0
	}
	return Renderer{MaxBytes: maxBytes}
}

// ToHTML renders src, enforcing the size cap.
func (r Renderer) ToHTML(src string) (string, error) {
	if r.MaxBytes > 0 && len(src) > r.MaxBytes {
		return "", ErrTooLarge
	}
	return Render(src), nil
}

var (
	signatureRe = regexp.MustCompile(`^(h[1-6]|p|bq|bc|pre)\.\s+(.*)$`)
	listItemRe  = regexp.MustCompile(`^([*#]+)\s+(.*)$`)

	codeRe  = regexp.MustCompile(`(^|[\s(\[{>])@([^@\s](?:[^@\n]*[^@\s])?)@`)
	linkRe  = regexp.MustCompile(`"([^"\n]+)":([^\s<>"]+)`)
	imageRe = regexp.MustCompile(`!([^\s!(]+)(?:\(([^)]*)\))?!`)
	titleRe = regexp.MustCompile(`^(.*?)\s*\(([^)]+)\)$`)
	heldRe  = regexp.MustCompile(`\x00([0-9]+)\x00`)
)

// phrase describes one inline modifier. Longer delimiters come first so that
// "**" is not consumed as two "*".
type phrase struct {
	re  *regexp.Regexp
	tag string
}

var phrases = []phrase{
	newPhrase(`**`, "b"),
	newPhrase(`__`, "i"),
	newPhrase(`??`, "cite"),
	newPhrase(`*`, "strong"),
	newPhrase(`_`, "em"),
	newPhrase(`-`, "del"),
	newPhrase(`+`, "ins"),
	newPhrase(`^`, "sup"),
	newPhrase(`~`, "sub"),
}

func newPhrase(delim, tag string) phrase {
	d := regexp.QuoteMeta(delim)
	c := regexp.QuoteMeta(delim[:1])
	// boundary | delim | non-space ... non-space | delim | boundary
	expr := `(^|[\s(\[{>])` + d +
		`([^\s` + c + `](?:[^` + c + `\n]*[^\s` + c + `])?)` +
		d + `($|[\s)\]}<.,;:!?'"])`
	return phrase{re: regexp.MustCompile(expr), tag: tag}
}

// Render converts Textile source into an HTML fragment. Blocks are separated
// by blank lines and joined with a single newline in the output. NUL bytes
// are dropped from src.
func Render(src string) string {
	src = strings.ReplaceAll(src, "\x00", "")
	var out []string
	for _, block := range splitBlocks(src) {
		if s := renderBlock(block); s != "" {
			out = append(out, s)
		}
	}
	return strings.Join(out, "\n")
}

// splitBlocks groups consecutive non-blank lines. Trailing spaces on each line
// are dropped.
func splitBlocks(src string) [][]string {
	var (
		blocks [][]string
		cur    []string
	)
	for _, line := range strings.Split(src, "\n") {
		line = strings.TrimRight(line, " \t")
		if line == "" {
			if len(cur) > 0 {
				blocks = append(blocks, cur)
				cur = nil
			}
			continue
		}
		cur = append(cur, line)
	}
	if len(cur) > 0 {
		blocks = append(blocks, cur)
	}
	return blocks
}

func renderBlock(lines []string) string {
	if m := signatureRe.FindStringSubmatch(lines[0]); m != nil {
		body := append([]string{m[2]}, lines[1:]...)
		switch sig := m[1]; sig {
		case "p":
			return "<p>" + inlineLines(body) + "</p>"
		case "bq":
			return "<blockquote>\n<p>" + inlineLines(body) + "</p>\n</blockquote>"
		case "bc":
			return "<pre><code>" + html.EscapeString(strings.Join(body, "\n")) + "</code></pre>"
		case "pre":
			return "<pre>" + html.EscapeString(strings.Join(body, "\n")) + "</pre>"
		default: // h1..h6
			return "<" + sig + ">" + inlineLines(body) + "</" + sig + ">"
		}
	}
	if listItemRe.MatchString(lines[0]) {
		return renderList(lines)
	}
	return "<p>" + inlineLines(lines) + "</p>"
}

type listItem struct {
	depth int
	tag   string
	text  string
}

// renderList renders a block whose first line is a list item. Lines without a
// marker continue the previous item.
func renderList(lines []string) string {
	var items []listItem
	for _, line := range lines {
		if m := listItemRe.FindStringSubmatch(line); m != nil {
			tag := "ul"
			if m[1][len(m[1])-1] == '#' {
				tag = "ol"
			}
			items = append(items, listItem{depth: len(m[1]), tag: tag, text: m[2]})
			continue
		}
		last := &items[len(items)-1]
		last.text += "\n" + line
	}

	var (
		b      strings.Builder
		stack  []string
		liOpen []bool
	)
	closeTop := func() {
		top := len(stack) - 1
		if liOpen[top] {
			b.WriteString("</li>")
		}
		b.WriteString("\n" + tabs(top) + "</" + stack[top] + ">")
		stack = stack[:top]
		liOpen = liOpen[:top]
	}

	for _, it := range items {
		for len(stack) > it.depth {
			closeTop()
		}
		if len(stack) == it.depth && stack[len(stack)-1] != it.tag {
			closeTop()
		}
		for len(stack) < it.depth {
			if len(stack) > 0 {
				b.WriteString("\n" + tabs(len(stack)))
			} else if b.Len() > 0 {
				b.WriteString("\n")
			}
			b.WriteString("<" + it.tag + ">")
			stack = append(stack, it.tag)
			liOpen = append(liOpen, false)
		}
		top := len(stack) - 1
		if liOpen[top] {
			b.WriteString("</li>")
		}
		b.WriteString("\n" + tabs(it.depth) + "<li>" + inlineLines(strings.Split(it.text, "\n")))
		liOpen[top] = true
	}
	for len(stack) > 0 {
		closeTop()
	}
	return b.String()
}

func tabs(n int) string { return strings.Repeat("\t", n) }

// inlineLines applies inline formatting to lines and joins them with <br />.
func inlineLines(lines []string) string {
	return strings.ReplaceAll(inline(strings.Join(lines, "\n")), "\n", "<br />\n")
}

// inline applies phrase modifiers, links, images and code spans. Code spans,
// images and links are swapped for NUL-delimited placeholders first so their
// contents are not touched by the phrase modifiers.
func inline(s string) string {
	var held []string
	hold := func(h string) string {
		held = append(held, h)
		return "\x00" + strconv.Itoa(len(held)-1) + "\x00"
	}

	s = codeRe.ReplaceAllStringFunc(s, func(m string) string {
		p := codeRe.FindStringSubmatch(m)
		return p[1] + hold("<code>"+html.EscapeString(p[2])+"</code>")
	})

	s = imageRe.ReplaceAllStringFunc(s, func(m string) string {
		p := imageRe.FindStringSubmatch(m)
		return hold(`<img src="` + html.EscapeString(p[1]) + `" alt="` + html.EscapeString(p[2]) + `" />`)
	})

	s = linkRe.ReplaceAllStringFunc(s, func(m string) string {
		p := linkRe.FindStringSubmatch(m)
		text, href := p[1], p[2]
		// Sentence punctuation after a URL belongs to the sentence.
		trimmed := strings.TrimRight(href, ".,;:!?)")
		tail := href[len(trimmed):]
		if trimmed == "" {
			return m
		}
		title := ""
		if t := titleRe.FindStringSubmatch(text); t != nil && t[1] != "" {
			text, title = t[1], t[2]
		}
		a := `<a href="` + html.EscapeString(trimmed) + `"`
		if title != "" {
			a += ` title="` + html.EscapeString(title) + `"`
		}
		return hold(a+">"+phrasesOnly(text)+"</a>") + tail
	})

	s = phrasesOnly(s)

	// Link text may itself hold earlier placeholders.
	var restore func(string) string
	restore = func(s string) string {
		if !strings.Contains(s, "\x00") {
			return s
		}
		return heldRe.ReplaceAllStringFunc(s, func(m string) string {
			i, err := strconv.Atoi(m[1 : len(m)-1])
			if err != nil || i >= len(held) {
				return ""
			}
			return restore(held[i])
		})
	}
	return restore(s)
}

// phrasesOnly applies the phrase modifiers. Each pattern is re-applied until
// stable because adjacent phrases share a boundary character.
func phrasesOnly(s string) string {
	for _, p := range phrases {
		for i := 0; i < 4; i++ {
			next := p.re.ReplaceAllString(s, "${1}<"+p.tag+">${2}</"+p.tag+">${3}")
			if next == s {
				break
			}
			s = next
		}
	}
	return s
}
