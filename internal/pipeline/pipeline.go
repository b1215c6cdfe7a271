// Package pipeline runs user-submitted text through an ordered chain of
// filters before display. A typical chain converts markup to HTML and then
// sanitizes the HTML:
//
//	p, err := pipeline.New(pipeline.Context{"base_url": "/forums"},
//	    pipeline.NewTextileFilter(textile.New(64<<10)),
//	    pipeline.NewSanitizationFilter(nil),
//	)
//	html, err := p.ToHTML(post.Content)
//
// Filters are plain values implementing Filter; there is no base type to
// embed. The Context is shared read-only configuration, the Result is a
// per-call scratch map filters may use to hand data to later stages.
package pipeline

import (
	"errors"
	"fmt"
)

// Context carries configuration shared by every filter in a pipeline.
// Filters must treat it as read-only.
type Context map[string]any

// Result collects per-call output. The pipeline stores the final text under
// OutputKey; filters may add their own keys.
type Result map[string]any

// OutputKey is the Result key holding the final text of a pipeline run.
const OutputKey = "output"

// ErrUnsafeOrder is returned by New when a filter that emits unsanitized HTML
// is placed after a sanitizing filter.
var ErrUnsafeOrder = errors.New("pipeline: unsafe HTML filter placed after sanitizer")

// Filter transforms text. Implementations must not retain ctx or res after
// Call returns and must be safe for concurrent use.
type Filter interface {
	Call(text string, ctx Context, res Result) (string, error)
}

// FilterFunc adapts an ordinary function to the Filter interface.
type FilterFunc func(text string, ctx Context, res Result) (string, error)

// Call implements Filter.
func (f FilterFunc) Call(text string, ctx Context, res Result) (string, error) {
	return f(text, ctx, res)
}

// unsafeEmitter is implemented by filters whose output contains raw,
// user-controlled HTML.
type unsafeEmitter interface {
	EmitsUnsafeHTML() bool
}

// sanitizer is implemented by filters that neutralize unsafe HTML.
type sanitizer interface {
	Sanitizes() bool
}

// Pipeline is an immutable, ordered list of filters. It is safe for
// concurrent use when its filters are.
type Pipeline struct {
	filters []Filter
	ctx     Context
}

// New builds a pipeline running filters in the given order. It rejects chains
// where an unsafe HTML emitter runs after a sanitizer, since its output would
// reach the page unfiltered.
func New(ctx Context, filters ...Filter) (*Pipeline, error) {
	sanitized := false
	for i, f := range filters {
		if f == nil {
			return nil, fmt.Errorf("pipeline: filter %d is nil", i)
		}
		if s, ok := f.(sanitizer); ok && s.Sanitizes() {
			sanitized = true
			continue
		}
		if u, ok := f.(unsafeEmitter); ok && u.EmitsUnsafeHTML() && sanitized {
			return nil, fmt.Errorf("%w: filter %d (%T)", ErrUnsafeOrder, i, f)
		}
	}
	if ctx == nil {
		ctx = Context{}
	}
	return &Pipeline{filters: append([]Filter(nil), filters...), ctx: ctx}, nil
}

// Call runs text through every filter and returns the Result, with the final
// text stored under OutputKey. The first filter error stops the run and is
// returned unwrapped.
func (p *Pipeline) Call(text string) (Result, error) {
	res := Result{}
	out := text
	for _, f := range p.filters {
		var err error
		out, err = f.Call(out, p.ctx, res)
		if err != nil {
			return res, err
		}
	}
	res[OutputKey] = out
	return res, nil
}

// ToHTML is a convenience wrapper around Call returning only the output text.
func (p *Pipeline) ToHTML(text string) (string, error) {
	res, err := p.Call(text)
	if err != nil {
		return "", err
	}
	s, _ := res[OutputKey].(string)
	return s, nil
}
