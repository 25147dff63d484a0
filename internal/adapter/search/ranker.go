package search

import (
	"sort"

	"github.com/deepsearchstack/deepsearch/internal/core/domain"
)

const (
	relevanceWeight = 0.7
	authorityWeight = 0.3
)

// Rank scores results against the query and orders them by the requested
// method. Confidence is replaced by the blended score; ranks are assigned
// 1..N after sorting. Sorting is stable so equal scores keep arrival order.
func Rank(query string, results []domain.SearchResult, sortBy domain.SortMethod) []domain.SearchResult {
	if len(results) == 0 {
		return results
	}

	docs := make([]string, len(results))
	for i, r := range results {
		docs[i] = r.Title + " " + r.Description
	}
	scores := relevanceScores(query, docs)

	for i := range results {
		authority := domainAuthority(results[i].URL)
		results[i].DomainAuthority = authority
		results[i].Confidence = relevanceWeight*scores[i] + authorityWeight*authority
	}

	switch sortBy {
	case domain.SortMethodDate:
		sort.SliceStable(results, func(i, j int) bool {
			if results[i].PublishedDate != results[j].PublishedDate {
				return results[i].PublishedDate > results[j].PublishedDate
			}
			return results[i].Confidence > results[j].Confidence
		})
	case domain.SortMethodSourceQuality:
		sort.SliceStable(results, func(i, j int) bool {
			if results[i].DomainAuthority != results[j].DomainAuthority {
				return results[i].DomainAuthority > results[j].DomainAuthority
			}
			return results[i].Confidence > results[j].Confidence
		})
	default:
		sort.SliceStable(results, func(i, j int) bool {
			return results[i].Confidence > results[j].Confidence
		})
	}

	for i := range results {
		results[i].Rank = i + 1
	}
	return results
}
