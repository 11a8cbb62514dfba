package models

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/ELVIS-Project/fiddle-tunes/dispatch"
	"github.com/ELVIS-Project/fiddle-tunes/errors"
	"github.com/ELVIS-Project/fiddle-tunes/metric"
	"github.com/ELVIS-Project/fiddle-tunes/pkg/memo"
	"github.com/ELVIS-Project/fiddle-tunes/score"
	"github.com/ELVIS-Project/fiddle-tunes/series"
)

// StageRef names one step of an analysis chain: which stage to run, with
// which settings, and any auxiliary input chains beyond the primary one.
// Auxiliary chains are resolved against the same piece and benefit from the
// same memoization.
type StageRef struct {
	Name     string          `json:"name"`
	Settings series.Settings `json:"settings"`
	Aux      [][]StageRef    `json:"aux,omitempty"`
}

// refKey is the cache identity of one chain step. Two refs with equal names,
// setting fingerprints, and auxiliary chains share results.
func refKey(ref StageRef) string {
	var b strings.Builder
	b.WriteString(ref.Name)
	b.WriteString(ref.Settings.Fingerprint())
	for _, aux := range ref.Aux {
		b.WriteString("[")
		b.WriteString(chainKey(aux))
		b.WriteString("]")
	}
	return b.String()
}

// chainKey is the cache identity of a whole chain prefix.
func chainKey(chain []StageRef) string {
	keys := make([]string, len(chain))
	for i, ref := range chain {
		keys[i] = refKey(ref)
	}
	return strings.Join(keys, "/")
}

// PieceContainer owns one piece and the memoized results of every chain
// prefix ever computed against it. Repeating a request with equal settings
// returns the cached table without recomputation; a chain sharing a prefix
// with an earlier one recomputes only the steps past the shared prefix.
type PieceContainer struct {
	piece      score.Piece
	controller *dispatch.Controller
	registry   *metric.MetricsRegistry

	cache *memo.Store[*series.FeatureTable]

	computations int64
}

// PieceOption configures a PieceContainer.
type PieceOption func(*PieceContainer)

// WithPieceMetrics wires cache hit and miss counters into the shared
// metrics registry.
func WithPieceMetrics(registry *metric.MetricsRegistry) PieceOption {
	return func(p *PieceContainer) { p.registry = registry }
}

// NewPieceContainer wraps a piece for analysis through the given controller.
func NewPieceContainer(piece score.Piece, controller *dispatch.Controller, opts ...PieceOption) *PieceContainer {
	p := &PieceContainer{
		piece:      piece,
		controller: controller,
		cache:      memo.NewStore[*series.FeatureTable](),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ID returns the wrapped piece's identifier.
func (p *PieceContainer) ID() string { return p.piece.ID() }

// Metadata returns the wrapped piece's metadata mapping.
func (p *PieceContainer) Metadata() score.Metadata { return p.piece.Metadata() }

// Computations returns how many stage jobs this container has actually
// executed, as opposed to served from cache.
func (p *PieceContainer) Computations() int64 {
	return atomic.LoadInt64(&p.computations)
}

// GetData runs an analysis chain against the piece and returns the final
// table. Every intermediate result is cached under its chain-prefix
// identity, so later chains reuse shared prefixes.
func (p *PieceContainer) GetData(ctx context.Context, chain []StageRef) (*series.FeatureTable, error) {
	if len(chain) == 0 {
		return nil, errors.WrapInvalid(
			fmt.Errorf("%w: chain has no stages", errors.ErrEmptyInput),
			"PieceContainer", "GetData", "chain validation")
	}

	current, err := score.BaseTable(p.piece)
	if err != nil {
		return nil, err
	}
	for i, ref := range chain {
		key := chainKey(chain[:i+1])

		if cached, ok := p.cache.Get(key); ok {
			if p.registry != nil {
				p.registry.Metrics.RecordCacheHit(ref.Name)
			}
			current = cached
			continue
		}
		if p.registry != nil {
			p.registry.Metrics.RecordCacheMiss(ref.Name)
		}

		inputs := []*series.FeatureTable{current}
		for _, aux := range ref.Aux {
			auxTable, err := p.GetData(ctx, aux)
			if err != nil {
				return nil, errors.Wrap(err, "PieceContainer", "GetData",
					"auxiliary chain for "+ref.Name)
			}
			inputs = append(inputs, auxTable)
		}

		table, err := p.run(ctx, ref, inputs)
		if err != nil {
			return nil, err
		}
		p.cache.Set(key, table)
		current = table
	}
	return current, nil
}

// CacheStats exposes the container's memoization statistics.
func (p *PieceContainer) CacheStats() memo.Summary {
	return p.cache.Stats().Summary()
}

func (p *PieceContainer) run(ctx context.Context, ref StageRef, inputs []*series.FeatureTable) (*series.FeatureTable, error) {
	atomic.AddInt64(&p.computations, 1)

	sub, err := p.controller.Submit(dispatch.NewJob(ref.Name, ref.Settings, inputs...))
	if err != nil {
		return nil, err
	}
	results, err := sub.Collect(ctx)
	if err != nil {
		return nil, err
	}
	res := results[0]
	if res.Err != nil {
		return nil, errors.Wrap(res.Err, "PieceContainer", "GetData",
			"stage "+ref.Name+" for piece "+p.piece.ID())
	}
	return res.Table, nil
}
