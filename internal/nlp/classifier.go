package nlp

import (
	"context"
	"math"
	"sort"

	"github.com/bbkanego/seerbot/pkg/domain"
)

// NaiveBayes is a multinomial naive Bayes classifier with Laplace smoothing.
// It is immutable once trained and safe for concurrent use.
type NaiveBayes struct {
	name       string
	categories []string
	priors     map[string]float64
	counts     map[string]map[string]int
	totals     map[string]int
	vocab      map[string]struct{}
}

// Train builds a classifier from tokenized samples per category.
func Train(name string, samples map[string][][]string) *NaiveBayes {
	nb := &NaiveBayes{
		name:   name,
		priors: make(map[string]float64),
		counts: make(map[string]map[string]int),
		totals: make(map[string]int),
		vocab:  make(map[string]struct{}),
	}

	docs := 0
	for _, s := range samples {
		docs += len(s)
	}
	for category, utterances := range samples {
		if len(utterances) == 0 {
			continue
		}
		nb.categories = append(nb.categories, category)
		nb.priors[category] = math.Log(float64(len(utterances)) / float64(docs))
		counts := make(map[string]int)
		for _, tokens := range utterances {
			for _, tok := range tokens {
				counts[tok]++
				nb.totals[category]++
				nb.vocab[tok] = struct{}{}
			}
		}
		nb.counts[category] = counts
	}
	sort.Strings(nb.categories)
	return nb
}

// Name returns the model name.
func (nb *NaiveBayes) Name() string { return nb.name }

// Categories returns the trained categories, sorted.
func (nb *NaiveBayes) Categories() []string {
	return append([]string(nil), nb.categories...)
}

// Categorize scores tokens against every category. Scores are posterior
// probabilities summing to one, ordered best first. Tokens never seen in training
// are ignored; when none are known the result is empty.
func (nb *NaiveBayes) Categorize(ctx context.Context, tokens []string) ([]domain.CategoryScore, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var known []string
	for _, tok := range tokens {
		if _, ok := nb.vocab[tok]; ok {
			known = append(known, tok)
		}
	}
	if len(known) == 0 || len(nb.categories) == 0 {
		return nil, nil
	}

	v := float64(len(nb.vocab))
	logs := make([]float64, len(nb.categories))
	best := math.Inf(-1)
	for i, c := range nb.categories {
		lp := nb.priors[c]
		denom := float64(nb.totals[c]) + v
		for _, tok := range known {
			lp += math.Log((float64(nb.counts[c][tok]) + 1) / denom)
		}
		logs[i] = lp
		best = math.Max(best, lp)
	}

	var sum float64
	for i := range logs {
		logs[i] = math.Exp(logs[i] - best)
		sum += logs[i]
	}

	out := make([]domain.CategoryScore, len(nb.categories))
	for i, c := range nb.categories {
		out[i] = domain.CategoryScore{Category: c, Score: logs[i] / sum}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out, nil
}
