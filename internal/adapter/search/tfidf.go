package search

import (
	"math"
	"strings"
	"unicode"
)

// tfidf scores documents against a query the way a smoothed, l2-normalised
// TF-IDF vectoriser does: the query joins the corpus for document frequency
// purposes, and each document's score is the cosine of its weight vector
// against the query's.

var stopwords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {}, "be": {},
	"but": {}, "by": {}, "for": {}, "from": {}, "has": {}, "have": {},
	"he": {}, "her": {}, "his": {}, "if": {}, "in": {}, "into": {}, "is": {},
	"it": {}, "its": {}, "no": {}, "not": {}, "of": {}, "on": {}, "or": {},
	"our": {}, "she": {}, "so": {}, "such": {}, "than": {}, "that": {},
	"the": {}, "their": {}, "them": {}, "then": {}, "there": {}, "these": {},
	"they": {}, "this": {}, "to": {}, "was": {}, "we": {}, "were": {},
	"what": {}, "when": {}, "where": {}, "which": {}, "while": {}, "who": {},
	"will": {}, "with": {}, "you": {}, "your": {},
}

func tokenize(text string) []string {
	var tokens []string
	var b strings.Builder
	flush := func() {
		if b.Len() > 1 {
			word := b.String()
			if _, stop := stopwords[word]; !stop {
				tokens = append(tokens, word)
			}
		}
		b.Reset()
	}
	for _, r := range strings.ToLower(text) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		} else {
			flush()
		}
	}
	flush()
	return tokens
}

func termCounts(tokens []string) map[string]float64 {
	counts := make(map[string]float64, len(tokens))
	for _, tok := range tokens {
		counts[tok]++
	}
	return counts
}

// relevanceScores returns one cosine similarity per document, in document
// order. Scores land in [0, 1].
func relevanceScores(query string, docs []string) []float64 {
	scores := make([]float64, len(docs))
	if len(docs) == 0 {
		return scores
	}

	queryCounts := termCounts(tokenize(query))
	docCounts := make([]map[string]float64, len(docs))
	for i, doc := range docs {
		docCounts[i] = termCounts(tokenize(doc))
	}

	// document frequency over the query plus all documents
	df := make(map[string]float64)
	for term := range queryCounts {
		df[term]++
	}
	for _, counts := range docCounts {
		for term := range counts {
			df[term]++
		}
	}

	n := float64(len(docs) + 1)
	idf := make(map[string]float64, len(df))
	for term, freq := range df {
		idf[term] = math.Log((1+n)/(1+freq)) + 1
	}

	queryVec := weightVector(queryCounts, idf)
	for i, counts := range docCounts {
		scores[i] = cosine(queryVec, weightVector(counts, idf))
	}
	return scores
}

func weightVector(counts map[string]float64, idf map[string]float64) map[string]float64 {
	vec := make(map[string]float64, len(counts))
	var norm float64
	for term, tf := range counts {
		w := tf * idf[term]
		vec[term] = w
		norm += w * w
	}
	if norm > 0 {
		norm = math.Sqrt(norm)
		for term := range vec {
			vec[term] /= norm
		}
	}
	return vec
}

func cosine(a, b map[string]float64) float64 {
	if len(b) < len(a) {
		a, b = b, a
	}
	var dot float64
	for term, wa := range a {
		if wb, ok := b[term]; ok {
			dot += wa * wb
		}
	}
	return dot
}
