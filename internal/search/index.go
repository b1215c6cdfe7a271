// Package search keeps an in-memory inverted index over topic titles.
// Queries rank titles by Jaccard similarity of their word sets:
// |Q ∩ T| / |Q ∪ T|. Ties go to the shorter title, then the older topic.
// The index is safe for concurrent use and never logs.
package search

import (
	"slices"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Doc is one indexed topic.
type Doc struct {
	TopicID          uint
	Title            string
	Slug             string
	MessageboardSlug string
}

// Result is a ranked topic with its similarity score.
type Result struct {
	Doc
	Score float64
}

// DefaultStopwords are English words too common to help rank titles.
var DefaultStopwords = []string{
	"a", "an", "and", "are", "at", "be", "by", "for", "from", "in",
	"is", "it", "of", "on", "or", "the", "to", "with",
}

type Option func(*config)

type config struct {
	stopwords map[string]struct{}
	maxDocs   int
}

// WithStopwords drops the given words from titles and queries.
func WithStopwords(words []string) Option {
	return func(c *config) {
		for _, w := range words {
			for t := range terms(w, nil) {
				if c.stopwords == nil {
					c.stopwords = make(map[string]struct{})
				}
				c.stopwords[t] = struct{}{}
			}
		}
	}
}

// WithMaxDocs caps how many topics are indexed. Replacing an indexed topic
// is always allowed.
func WithMaxDocs(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.maxDocs = n
		}
	}
}

type entry struct {
	doc   Doc
	terms map[string]struct{}
	runes int
}

// TopicIndex maps title terms to the topics that contain them.
type TopicIndex struct {
	cfg config

	mu       sync.RWMutex
	docs     map[uint]*entry
	postings map[string]map[uint]struct{}
}

// NewTopicIndex builds an index holding docs.
func NewTopicIndex(docs []Doc, opts ...Option) *TopicIndex {
	idx := &TopicIndex{
		docs:     make(map[uint]*entry, len(docs)),
		postings: make(map[string]map[uint]struct{}),
	}
	for _, o := range opts {
		o(&idx.cfg)
	}
	for _, d := range docs {
		idx.Add(d)
	}
	return idx
}

// Add indexes d, replacing any entry with the same TopicID. Titles without
// a single word are ignored.
func (i *TopicIndex) Add(d Doc) {
	d.Title = strings.Join(strings.Fields(d.Title), " ")
	ts := terms(d.Title, i.cfg.stopwords)
	if len(ts) == 0 {
		return
	}

	i.mu.Lock()
	defer i.mu.Unlock()
	if old, ok := i.docs[d.TopicID]; ok {
		i.unlink(d.TopicID, old)
	} else if i.cfg.maxDocs > 0 && len(i.docs) >= i.cfg.maxDocs {
		return
	}
	e := &entry{doc: d, terms: ts, runes: utf8.RuneCountInString(d.Title)}
	i.docs[d.TopicID] = e
	for t := range ts {
		ids := i.postings[t]
		if ids == nil {
			ids = make(map[uint]struct{})
			i.postings[t] = ids
		}
		ids[d.TopicID] = struct{}{}
	}
}

// unlink drops id from the postings of e. Callers hold mu.
func (i *TopicIndex) unlink(id uint, e *entry) {
	for t := range e.terms {
		delete(i.postings[t], id)
		if len(i.postings[t]) == 0 {
			delete(i.postings, t)
		}
	}
}

// Len returns the number of indexed topics.
func (i *TopicIndex) Len() int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return len(i.docs)
}

// TopK returns up to k topics sharing at least one word with q, best first.
// k <= 0 means 3.
func (i *TopicIndex) TopK(q string, k int) []Result {
	qs := terms(q, i.cfg.stopwords)
	if len(qs) == 0 {
		return nil
	}
	if k <= 0 {
		k = 3
	}

	type hit struct {
		e     *entry
		score float64
	}

	i.mu.RLock()
	shared := make(map[uint]int)
	for t := range qs {
		for id := range i.postings[t] {
			shared[id]++
		}
	}
	hits := make([]hit, 0, len(shared))
	for id, n := range shared {
		e := i.docs[id]
		hits = append(hits, hit{e: e, score: float64(n) / float64(len(qs)+len(e.terms)-n)})
	}
	i.mu.RUnlock()

	slices.SortFunc(hits, func(a, b hit) int {
		switch {
		case a.score != b.score:
			if a.score > b.score {
				return -1
			}
			return 1
		case a.e.runes != b.e.runes:
			return a.e.runes - b.e.runes
		case a.e.doc.TopicID < b.e.doc.TopicID:
			return -1
		case a.e.doc.TopicID > b.e.doc.TopicID:
			return 1
		}
		return 0
	})

	if len(hits) == 0 {
		return nil
	}
	out := make([]Result, 0, min(k, len(hits)))
	for _, h := range hits[:min(k, len(hits))] {
		out = append(out, Result{Doc: h.e.doc, Score: h.score})
	}
	return out
}

// terms splits s into case-folded, NFKC-normalized words of letters and
// digits, minus stop.
func terms(s string, stop map[string]struct{}) map[string]struct{} {
	s = cases.Fold().String(norm.NFKC.String(s))
	words := strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r) && !unicode.Is(unicode.Mn, r)
	})
	var out map[string]struct{}
	for _, w := range words {
		if _, skip := stop[w]; skip {
			continue
		}
		if out == nil {
			out = make(map[string]struct{}, len(words))
		}
		out[w] = struct{}{}
	}
	return out
}
