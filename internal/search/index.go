// Package search provides a small, deterministic, concurrency-safe in-memory
// index over the product catalog. The chat assistant uses it to answer
// "do you have X?" style questions with the closest product.
//
//   - No logging in the library (callers decide how/what to log)
//   - Functional options for stop words and a minimum score
//   - Unicode-aware tokenization, so Indonesian text and digits like "8gb"
//     tokenize as expected
//   - Immutable after construction
//   - Deterministic ordering for ties
//
// Scoring is the Jaccard similarity between the query token set and each
// document's token set, with document name tokens counted twice so a hit on
// the product name outranks a hit buried in the description.
package search

import (
	"regexp"
	"sort"
	"strings"

	"github.com/tbourn/go-storefront-backend/internal/domain"
)

// Document is one indexed entry.
type Document struct {
	ID   string
	Name string
	Body string
}

// Result is a ranked document with its similarity score.
type Result struct {
	ID    string
	Name  string
	Score float64
}

// Index is the minimal interface implemented by all search indices.
type Index interface {
	TopK(query string, k int) []Result
}

// Option configures an index.
type Option func(*config)

type config struct {
	stopwords map[string]struct{}
	minScore  float64
}

func defaultConfig() config {
	return config{stopwords: defaultStopwords()}
}

// WithStopwords replaces the default stop-word list.
func WithStopwords(words []string) Option {
	return func(c *config) {
		m := make(map[string]struct{}, len(words))
		for _, w := range words {
			w = strings.ToLower(strings.TrimSpace(w))
			if w != "" {
				m[w] = struct{}{}
			}
		}
		c.stopwords = m
	}
}

// WithMinScore drops results scoring below s.
func WithMinScore(s float64) Option {
	return func(c *config) {
		if s >= 0 {
			c.minScore = s
		}
	}
}

type doc struct {
	Document
	tokens map[string]int // token -> weight
	weight int
}

type index struct {
	cfg  config
	docs []doc
}

// New builds an index from docs. Documents without any token are skipped.
func New(docs []Document, opts ...Option) Index {
	cfg := defaultConfig()
	for _, o := range opts {
		o(&cfg)
	}
	out := make([]doc, 0, len(docs))
	for _, d := range docs {
		toks := map[string]int{}
		for t := range tokenize(d.Body, cfg.stopwords) {
			toks[t] = 1
		}
		for t := range tokenize(d.Name, cfg.stopwords) {
			toks[t] = 2
		}
		if len(toks) == 0 {
			continue
		}
		w := 0
		for _, v := range toks {
			w += v
		}
		out = append(out, doc{Document: d, tokens: toks, weight: w})
	}
	return &index{cfg: cfg, docs: out}
}

// FromProducts indexes products by name and description.
func FromProducts(products []domain.Product, opts ...Option) Index {
	docs := make([]Document, 0, len(products))
	for _, p := range products {
		docs = append(docs, Document{ID: p.ID, Name: p.Name, Body: string(p.Category) + " " + p.Desc})
	}
	return New(docs, opts...)
}

// TopK returns up to k best-matching documents.
func (i *index) TopK(q string, k int) []Result {
	if len(i.docs) == 0 || strings.TrimSpace(q) == "" {
		return nil
	}
	if k <= 0 {
		k = 3
	}
	qTokens := tokenize(q, i.cfg.stopwords)
	if len(qTokens) == 0 {
		return nil
	}

	buf := make([]Result, 0, len(i.docs))
	for _, d := range i.docs {
		over := 0
		for t := range qTokens {
			over += d.tokens[t]
		}
		if over == 0 {
			continue
		}
		union := float64(len(qTokens) + d.weight - over)
		score := float64(over) / union
		if score < i.cfg.minScore {
			continue
		}
		buf = append(buf, Result{ID: d.ID, Name: d.Name, Score: score})
	}
	if len(buf) == 0 {
		return nil
	}

	sort.SliceStable(buf, func(a, b int) bool {
		if buf[a].Score != buf[b].Score {
			return buf[a].Score > buf[b].Score
		}
		return buf[a].ID < buf[b].ID
	})
	if k > len(buf) {
		k = len(buf)
	}
	return buf[:k]
}

var wordRE = regexp.MustCompile(`[\p{L}\p{N}]+`)

func tokenize(s string, stop map[string]struct{}) map[string]struct{} {
	words := wordRE.FindAllString(strings.ToLower(s), -1)
	if len(words) == 0 {
		return nil
	}
	out := make(map[string]struct{}, len(words))
	for _, w := range words {
		if _, skip := stop[w]; skip {
			continue
		}
		out[w] = struct{}{}
	}
	return out
}

func defaultStopwords() map[string]struct{} {
	words := []string{
		"ada", "apa", "dan", "di", "ini", "itu", "ke", "kak", "min", "saya", "untuk", "yang",
		"mau", "berapa", "dong", "nya", "gan", "bang",
		"the", "a", "an", "is", "for", "do", "you", "have",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}
