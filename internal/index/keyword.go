// Package index implements the four in-process, rebuildable indices that
// back hybrid recall: keyword, type, tag, and semantic (embedding plus
// shallow metadata cache).
package index

import (
	"strings"
	"sync"
	"unicode"
)

var stopWords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "and": {}, "or": {}, "but": {}, "in": {},
	"on": {}, "at": {}, "to": {}, "for": {}, "of": {}, "with": {}, "is": {},
	"are": {}, "was": {}, "were": {}, "be": {}, "been": {}, "being": {},
	"this": {}, "that": {}, "these": {}, "those": {}, "it": {}, "its": {},
	"as": {}, "by": {}, "from": {}, "into": {}, "about": {}, "you": {},
	"your": {}, "i": {}, "me": {}, "my": {}, "we": {}, "our": {}, "they": {},
	"their": {}, "he": {}, "she": {}, "his": {}, "her": {}, "not": {},
	"have": {}, "has": {}, "had": {}, "will": {}, "can": {}, "just": {},
}

// Tokenize lowercases content, replaces non-alphanumerics with spaces,
// splits on whitespace, and discards tokens of length <=2 and stop words.
func Tokenize(content string) []string {
	lower := strings.ToLower(content)
	mapped := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return ' '
	}, lower)
	var tokens []string
	for _, tok := range strings.Fields(mapped) {
		if len(tok) <= 2 {
			continue
		}
		if _, stop := stopWords[tok]; stop {
			continue
		}
		tokens = append(tokens, tok)
	}
	return tokens
}

// KeywordIndex maps a normalized term to the set of ids whose tokenized
// content or tag set contains that term.
type KeywordIndex struct {
	mu    sync.RWMutex
	terms map[string]map[string]struct{}
}

// NewKeywordIndex constructs an empty keyword index.
func NewKeywordIndex() *KeywordIndex {
	return &KeywordIndex{terms: make(map[string]map[string]struct{})}
}

// Add indexes id under every term derived from content and tags.
func (k *KeywordIndex) Add(id, content string, tags []string) {
	terms := termsFor(content, tags)
	if len(terms) == 0 {
		return
	}
	k.mu.Lock()
	defer k.mu.Unlock()
	for t := range terms {
		set, ok := k.terms[t]
		if !ok {
			set = make(map[string]struct{})
			k.terms[t] = set
		}
		set[id] = struct{}{}
	}
}

// Remove removes id from every term derived from content and tags; when a
// term's set becomes empty, the term entry itself is removed.
func (k *KeywordIndex) Remove(id, content string, tags []string) {
	terms := termsFor(content, tags)
	if len(terms) == 0 {
		return
	}
	k.mu.Lock()
	defer k.mu.Unlock()
	for t := range terms {
		set, ok := k.terms[t]
		if !ok {
			continue
		}
		delete(set, id)
		if len(set) == 0 {
			delete(k.terms, t)
		}
	}
}

// Score tokenizes query and returns, for every id that matched at least one
// query term, the fraction of distinct query terms it matched (in [0,1]).
func (k *KeywordIndex) Score(query string) map[string]float64 {
	queryTerms := Tokenize(query)
	if len(queryTerms) == 0 {
		return nil
	}
	unique := make(map[string]struct{}, len(queryTerms))
	for _, t := range queryTerms {
		unique[t] = struct{}{}
	}

	hits := make(map[string]int)
	k.mu.RLock()
	for t := range unique {
		for id := range k.terms[t] {
			hits[id]++
		}
	}
	k.mu.RUnlock()

	if len(hits) == 0 {
		return nil
	}
	scores := make(map[string]float64, len(hits))
	for id, n := range hits {
		scores[id] = float64(n) / float64(len(unique))
	}
	return scores
}

// TermCount returns the number of distinct indexed terms, for stats.
func (k *KeywordIndex) TermCount() int {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return len(k.terms)
}

func termsFor(content string, tags []string) map[string]struct{} {
	result := make(map[string]struct{})
	for _, t := range Tokenize(content) {
		result[t] = struct{}{}
	}
	for _, tag := range tags {
		for _, t := range Tokenize(tag) {
			result[t] = struct{}{}
		}
	}
	return result
}
