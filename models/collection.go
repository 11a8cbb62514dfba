package models

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"

	"github.com/ELVIS-Project/fiddle-tunes/dispatch"
	"github.com/ELVIS-Project/fiddle-tunes/errors"
	"github.com/ELVIS-Project/fiddle-tunes/pkg/memo"
	"github.com/ELVIS-Project/fiddle-tunes/series"
)

// Grouping describes how collection members are partitioned before
// aggregation. Key names the metadata field; a positive Bin buckets a year
// parsed from the field's value into Bin-year spans, so Bin 50 on "date"
// yields labels like "1550-1599". Bin 0 groups by the raw field value.
type Grouping struct {
	Key string `json:"key"`
	Bin int    `json:"bin"`
}

// Exclusion records a piece that could not participate in a grouped
// aggregation and why. Excluded pieces are reported, never silently dropped.
type Exclusion struct {
	PieceID string `json:"piece_id"`
	Reason  string `json:"reason"`
}

// CollectionResult is the outcome of a grouped aggregation: one merged table
// per group label, plus every excluded piece.
type CollectionResult struct {
	Groups   map[string]*series.FeatureTable `json:"groups"`
	Excluded []Exclusion                     `json:"excluded,omitempty"`
}

// CollectionContainer holds many piece containers and runs collection-scoped
// analyses: the same chain on every member, and grouped reductions over the
// per-piece results. Collection-level results are memoized just like piece
// results.
type CollectionContainer struct {
	pieces     []*PieceContainer
	controller *dispatch.Controller

	mu    sync.Mutex
	cache *memo.Store[*CollectionResult]
}

// NewCollectionContainer creates a collection over the given members.
func NewCollectionContainer(controller *dispatch.Controller, pieces ...*PieceContainer) *CollectionContainer {
	return &CollectionContainer{
		pieces:     pieces,
		controller: controller,
		cache:      memo.NewStore[*CollectionResult](),
	}
}

// Add appends a member to the collection. Adding a piece invalidates cached
// collection results, which would otherwise describe a smaller membership.
func (c *CollectionContainer) Add(p *PieceContainer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pieces = append(c.pieces, p)
	c.cache.Clear()
}

// Pieces returns the member containers.
func (c *CollectionContainer) Pieces() []*PieceContainer { return c.pieces }

// RunChain runs the chain on every member concurrently. Per-piece failures
// are isolated: the returned error map holds them, keyed by piece ID, while
// the table map holds every success.
func (c *CollectionContainer) RunChain(ctx context.Context, chain []StageRef) (map[string]*series.FeatureTable, map[string]error) {
	return c.runMembers(ctx, c.pieces, chain)
}

// Aggregate runs the chain on every member, partitions the per-piece tables
// by the grouping, and reduces each group with the aggregation stage. The
// result is memoized under the chain, grouping, and aggregation identities.
func (c *CollectionContainer) Aggregate(ctx context.Context, chain []StageRef, grouping Grouping, agg StageRef) (*CollectionResult, error) {
	if len(c.pieces) == 0 {
		return nil, errors.WrapInvalid(
			fmt.Errorf("%w: collection has no members", errors.ErrEmptyInput),
			"CollectionContainer", "Aggregate", "membership check")
	}

	key := chainKey(chain) + "|" + grouping.Key + ":" + strconv.Itoa(grouping.Bin) + "|" + refKey(agg)
	if cached, ok := c.cache.Get(key); ok {
		return cached, nil
	}

	result := &CollectionResult{Groups: make(map[string]*series.FeatureTable)}

	// Partition members first so pieces without a usable group key are
	// excluded before any analysis runs for them.
	groups := make(map[string][]*PieceContainer)
	for _, p := range c.pieces {
		label, reason := c.groupLabel(p, grouping)
		if reason != "" {
			result.Excluded = append(result.Excluded, Exclusion{PieceID: p.ID(), Reason: reason})
			continue
		}
		groups[label] = append(groups[label], p)
	}

	members := make([]*PieceContainer, 0, len(c.pieces))
	for _, ps := range groups {
		members = append(members, ps...)
	}
	tables, failures := c.runMembers(ctx, members, chain)
	for id, err := range failures {
		result.Excluded = append(result.Excluded, Exclusion{PieceID: id, Reason: err.Error()})
	}

	labels := make([]string, 0, len(groups))
	for label := range groups {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	var jobs []dispatch.Job
	var jobLabels []string
	for _, label := range labels {
		var inputs []*series.FeatureTable
		for _, p := range groups[label] {
			if t, ok := tables[p.ID()]; ok {
				inputs = append(inputs, t)
			}
		}
		if len(inputs) == 0 {
			continue
		}
		jobs = append(jobs, dispatch.NewJob(agg.Name, agg.Settings, inputs...))
		jobLabels = append(jobLabels, label)
	}
	if len(jobs) == 0 {
		return nil, errors.WrapInvalid(
			fmt.Errorf("%w: no group has any analyzable member", errors.ErrEmptyInput),
			"CollectionContainer", "Aggregate", "group reduction")
	}

	sub, err := c.controller.Submit(jobs...)
	if err != nil {
		return nil, err
	}
	results, err := sub.Collect(ctx)
	if err != nil {
		return nil, err
	}
	for i, res := range results {
		if res.Err != nil {
			return nil, errors.Wrap(res.Err, "CollectionContainer", "Aggregate",
				"group "+jobLabels[i])
		}
		result.Groups[jobLabels[i]] = res.Table
	}

	c.cache.Set(key, result)
	return result, nil
}

// runMembers resolves the chain for the given members concurrently. Each
// member's chain runs through its own container, so memoization applies and
// stage execution stays within the controller's worker budget.
func (c *CollectionContainer) runMembers(ctx context.Context, members []*PieceContainer, chain []StageRef) (map[string]*series.FeatureTable, map[string]error) {
	tables := make(map[string]*series.FeatureTable, len(members))
	failures := make(map[string]error)

	var mu sync.Mutex
	var wg sync.WaitGroup
	for _, piece := range members {
		wg.Add(1)
		go func(p *PieceContainer) {
			defer wg.Done()
			table, err := p.GetData(ctx, chain)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failures[p.ID()] = err
				return
			}
			tables[p.ID()] = table
		}(piece)
	}
	wg.Wait()
	return tables, failures
}

// groupLabel computes the group label for one member, or a non-empty
// exclusion reason when the member cannot be grouped.
func (c *CollectionContainer) groupLabel(p *PieceContainer, grouping Grouping) (label, reason string) {
	value, ok := p.Metadata().Get(grouping.Key)
	if !ok || value == "" {
		return "", "metadata field " + strconv.Quote(grouping.Key) + " is missing"
	}
	if grouping.Bin <= 0 {
		return value, ""
	}

	year, ok := yearOf(value)
	if !ok {
		return "", "no year found in " + strconv.Quote(grouping.Key) + " value " + strconv.Quote(value)
	}
	start := year - year%grouping.Bin
	return fmt.Sprintf("%d-%d", start, start+grouping.Bin-1), ""
}

// yearOf extracts the first four-digit run from a date-like string, covering
// forms like "1582", "1582-03-01", and "ca. 1582".
func yearOf(s string) (int, bool) {
	digits := 0
	for i := 0; i <= len(s); i++ {
		if i < len(s) && s[i] >= '0' && s[i] <= '9' {
			digits++
			continue
		}
		if digits == 4 {
			year, err := strconv.Atoi(s[i-4 : i])
			if err == nil {
				return year, true
			}
		}
		digits = 0
	}
	return 0, false
}
