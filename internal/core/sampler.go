package core

import (
	"fmt"
	"log/slog"
	"math/rand"

	"promptforge/internal/core/types"
	"promptforge/pkg/api"
)

type SamplingStrategy string

const (
	StrategyNone       SamplingStrategy = "none"
	StrategyStratified SamplingStrategy = "stratified"
)

// SampleFewshots draws k records uniformly without replacement from the
// pool. If k exceeds the pool size it falls back to sampling with
// replacement and reports InsufficientPoolSize. The seed makes identical
// (pool, k, seed) inputs reproduce identical samples.
func SampleFewshots(pool []types.Record, k int, seed int64) ([]types.Record, []api.Issue) {
	r := rand.New(rand.NewSource(seed))

	if k <= len(pool) {
		sample := make([]types.Record, 0, k)
		for _, i := range r.Perm(len(pool))[:k] {
			sample = append(sample, pool[i])
		}
		return sample, nil
	}

	slog.Warn("fewshot pool smaller than requested sample, sampling with replacement", "pool", len(pool), "k", k)
	issues := []api.Issue{{
		Kind:   api.InsufficientPoolSize,
		Detail: fmt.Sprintf("requested %d examples from a pool of %d", k, len(pool)),
	}}

	sample := make([]types.Record, 0, k)
	for i := 0; i < k; i++ {
		sample = append(sample, pool[r.Intn(len(pool))])
	}
	return sample, issues
}

// SampleStratified draws k records per distinct value of labelColumn, so
// every class present in the pool is represented under a bounded call
// budget. Classes are visited in first-seen pool order. A class with fewer
// than k members contributes all of them and is reported as ClassUnderflow.
// The total sample size is k times the number of classes, not k.
func SampleStratified(pool []types.Record, k int, labelColumn string, seed int64) ([]types.Record, []api.Issue, error) {
	if labelColumn == "" {
		return nil, nil, fmt.Errorf("stratified sampling requires a sampling column")
	}

	r := rand.New(rand.NewSource(seed))

	var classes []string
	members := make(map[string][]types.Record)
	for _, record := range pool {
		v, ok := record[labelColumn]
		if !ok {
			continue
		}
		key := v.Render()
		if _, seen := members[key]; !seen {
			classes = append(classes, key)
		}
		members[key] = append(members[key], record)
	}

	var sample []types.Record
	var issues []api.Issue

	for _, class := range classes {
		group := members[class]
		if len(group) < k {
			slog.Warn("class has fewer members than requested per-class quota", "class", class, "available", len(group), "k", k)
			issues = append(issues, api.Issue{
				Kind:   api.ClassUnderflow,
				Label:  class,
				Detail: fmt.Sprintf("only %d of %d requested examples available", len(group), k),
			})
			sample = append(sample, group...)
			continue
		}
		for _, i := range r.Perm(len(group))[:k] {
			sample = append(sample, group[i])
		}
	}

	return sample, issues, nil
}
