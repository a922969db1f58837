// Package classify assigns configured categories to articles by keyword.
package classify

import (
	"sort"
	"strings"
	"unicode"

	"github.com/matheuskafuri/blogsearch/internal/config"
)

const (
	// MinScore is the score a category needs before it is assigned.
	MinScore = 2
	// MaxCategories caps how many categories one article gets.
	MaxCategories = 3
)

type rule struct {
	id       string
	keywords []string
}

// Classifier scores articles against keyword rules. Title hits weigh 2, description hits 1.
type Classifier struct {
	rules    []rule
	fallback string
}

// New builds a classifier from the configured categories. Rule order breaks score ties.
func New(categories []config.Category, fallback string) *Classifier {
	c := &Classifier{fallback: fallback}
	for _, cat := range categories {
		kws := make([]string, 0, len(cat.Keywords))
		for _, kw := range cat.Keywords {
			kw = strings.ToLower(strings.TrimSpace(kw))
			if kw != "" {
				kws = append(kws, kw)
			}
		}
		c.rules = append(c.rules, rule{id: cat.ID, keywords: kws})
	}
	return c
}

// Classify returns the IDs of every category scoring at least MinScore, best first,
// at most MaxCategories. When nothing matches it returns the fallback category, or
// nil when there is none.
func (c *Classifier) Classify(title, description string) []string {
	titleTokens := tokenize(title)
	descTokens := tokenize(description)
	titleLower := strings.ToLower(title)
	descLower := strings.ToLower(description)

	type scored struct {
		id    string
		score int
		order int
	}
	var hits []scored
	for i, r := range c.rules {
		score := 0
		for _, kw := range r.keywords {
			if !strings.Contains(kw, " ") {
				score += 2 * countToken(titleTokens, kw)
				score += countToken(descTokens, kw)
				continue
			}
			if strings.Contains(titleLower, kw) {
				score += 2
			}
			if strings.Contains(descLower, kw) {
				score++
			}
		}
		if score >= MinScore {
			hits = append(hits, scored{id: r.id, score: score, order: i})
		}
	}

	if len(hits) == 0 {
		if c.fallback == "" {
			return nil
		}
		return []string{c.fallback}
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].score != hits[j].score {
			return hits[i].score > hits[j].score
		}
		return hits[i].order < hits[j].order
	})
	if len(hits) > MaxCategories {
		hits = hits[:MaxCategories]
	}
	ids := make([]string, len(hits))
	for i, h := range hits {
		ids[i] = h.id
	}
	return ids
}

func countToken(tokens []string, kw string) int {
	n := 0
	for _, t := range tokens {
		if t == kw || strings.Contains(t, kw) {
			n++
		}
	}
	return n
}

func tokenize(s string) []string {
	var tokens []string
	for _, word := range strings.Fields(strings.ToLower(s)) {
		word = strings.TrimFunc(word, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		})
		if word != "" {
			tokens = append(tokens, word)
		}
	}
	return tokens
}
