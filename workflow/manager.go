// Package workflow provides the high-level driver for the two standard
// experiments: vertical intervals and interval n-grams. It turns analyst
// settings into stage chains, runs them over a collection, and merges the
// per-piece results, mirroring the flow an interactive front-end expects.
package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/ELVIS-Project/fiddle-tunes/analyzers/experimenters"
	"github.com/ELVIS-Project/fiddle-tunes/analyzers/indexers"
	"github.com/ELVIS-Project/fiddle-tunes/dispatch"
	"github.com/ELVIS-Project/fiddle-tunes/errors"
	"github.com/ELVIS-Project/fiddle-tunes/models"
	"github.com/ELVIS-Project/fiddle-tunes/score"
	"github.com/ELVIS-Project/fiddle-tunes/series"
)

// Experiment names accepted by Run.
const (
	ExperimentIntervals      = "intervals"
	ExperimentIntervalNGrams = "interval n-grams"
)

// Analyst-facing setting names. Each can be set for the whole run or
// overridden per piece.
const (
	SettingQuality       = "interval quality"
	SettingSimple        = "simple intervals"
	SettingByTones       = "by tones"
	SettingOffsetGrid    = "offset interval"
	SettingFilterRepeats = "filter repeats"
	SettingIncludeRests  = "include rests"
	SettingN             = "n"
)

// Manager drives experiments over a set of pieces. Shared settings apply to
// every piece; per-piece settings override them. The manager reuses one
// piece container per piece across runs, so repeated experiments hit the
// memoized intermediate results.
type Manager struct {
	controller *dispatch.Controller
	pieces     []*models.PieceContainer
	logger     *slog.Logger

	shared   map[string]any
	perPiece []map[string]any
}

// NewManager wraps the given pieces for experiment runs.
func NewManager(controller *dispatch.Controller, logger *slog.Logger, pieces ...score.Piece) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	m := &Manager{
		controller: controller,
		logger:     logger,
		shared:     make(map[string]any),
		perPiece:   make([]map[string]any, len(pieces)),
	}
	for _, p := range pieces {
		m.pieces = append(m.pieces, models.NewPieceContainer(p, controller))
	}
	return m
}

// SetShared sets a setting for every piece.
func (m *Manager) SetShared(field string, value any) {
	m.shared[field] = value
}

// SetForPiece overrides a setting for one piece, by position.
func (m *Manager) SetForPiece(i int, field string, value any) error {
	if i < 0 || i >= len(m.pieces) {
		return errors.WrapInvalid(
			fmt.Errorf("%w: piece index %d of %d", errors.ErrUnknownPiece, i, len(m.pieces)),
			"Manager", "SetForPiece", "index check")
	}
	if m.perPiece[i] == nil {
		m.perPiece[i] = make(map[string]any)
	}
	m.perPiece[i][field] = value
	return nil
}

// setting resolves a setting for one piece: per-piece value first, then
// shared, then the fallback.
func (m *Manager) setting(i int, field string, fallback any) any {
	if i < len(m.perPiece) && m.perPiece[i] != nil {
		if v, ok := m.perPiece[i][field]; ok {
			return v
		}
	}
	if v, ok := m.shared[field]; ok {
		return v
	}
	return fallback
}

// RunResult is the outcome of one experiment: the merged frequency table and
// any pieces that failed, with reasons.
type RunResult struct {
	Table    *series.FeatureTable
	Excluded []models.Exclusion
}

// Run executes an experiment over all pieces and merges the per-piece
// frequency counts. Per-piece failures are reported in the result; Run
// itself fails only when no piece succeeds or the experiment is unknown.
func (m *Manager) Run(ctx context.Context, experiment string) (*RunResult, error) {
	if experiment != ExperimentIntervals && experiment != ExperimentIntervalNGrams {
		return nil, errors.WrapInvalid(
			fmt.Errorf("%w: unknown experiment %q", errors.ErrInvalidSettings, experiment),
			"Manager", "Run", "experiment lookup")
	}
	if len(m.pieces) == 0 {
		return nil, errors.WrapInvalid(
			fmt.Errorf("%w: no pieces loaded", errors.ErrEmptyInput),
			"Manager", "Run", "piece check")
	}

	type outcome struct {
		idx   int
		table *series.FeatureTable
		err   error
	}
	outcomes := make([]outcome, len(m.pieces))

	var wg sync.WaitGroup
	for i, p := range m.pieces {
		wg.Add(1)
		go func(i int, p *models.PieceContainer) {
			defer wg.Done()
			chain := m.buildChain(i, experiment)
			table, err := p.GetData(ctx, chain)
			outcomes[i] = outcome{idx: i, table: table, err: err}
		}(i, p)
	}
	wg.Wait()

	result := &RunResult{}
	var tables []*series.FeatureTable
	for _, o := range outcomes {
		if o.err != nil {
			id := m.pieces[o.idx].ID()
			m.logger.Warn("piece excluded from experiment",
				"experiment", experiment, "piece", id, "error", o.err)
			result.Excluded = append(result.Excluded, models.Exclusion{PieceID: id, Reason: o.err.Error()})
			continue
		}
		tables = append(tables, o.table)
	}
	if len(tables) == 0 {
		return nil, errors.WrapInvalid(
			fmt.Errorf("%w: every piece failed the %q experiment", errors.ErrEmptyInput, experiment),
			"Manager", "Run", "result check")
	}

	merged, err := m.merge(ctx, tables)
	if err != nil {
		return nil, err
	}
	result.Table = merged
	return result, nil
}

// merge reduces the per-piece frequency tables through the aggregation
// stage, on the controller like any other job.
func (m *Manager) merge(ctx context.Context, tables []*series.FeatureTable) (*series.FeatureTable, error) {
	settings := series.NewSettings(map[string]any{"combine": "frequency"})
	sub, err := m.controller.Submit(dispatch.NewJob(experimenters.AggregatorName, settings, tables...))
	if err != nil {
		return nil, err
	}
	results, err := sub.Collect(ctx)
	if err != nil {
		return nil, err
	}
	if results[0].Err != nil {
		return nil, errors.Wrap(results[0].Err, "Manager", "Run", "merge results")
	}
	return results[0].Table, nil
}

// buildChain assembles the stage chain for one piece from its effective
// settings.
func (m *Manager) buildChain(i int, experiment string) []models.StageRef {
	chain := []models.StageRef{
		{Name: indexers.NoteRestName, Settings: series.NewSettings(nil)},
	}

	if grid, ok := m.setting(i, SettingOffsetGrid, nil).(float64); ok && grid > 0 {
		chain = append(chain, models.StageRef{
			Name:     indexers.OffsetFilterName,
			Settings: series.NewSettings(map[string]any{"quarterLength": grid}),
		})
	}
	if m.setting(i, SettingFilterRepeats, false) == true {
		chain = append(chain, models.StageRef{
			Name:     indexers.RepeatFilterName,
			Settings: series.NewSettings(nil),
		})
	}

	compound := "compound"
	if m.setting(i, SettingSimple, false) == true {
		compound = "simple"
	}
	chain = append(chain, models.StageRef{
		Name: indexers.IntervalName,
		Settings: series.NewSettings(map[string]any{
			"quality":            m.setting(i, SettingQuality, false) == true,
			"simple or compound": compound,
			"byTones":            m.setting(i, SettingByTones, false) == true,
		}),
	})

	// Rests are dropped before windowing and counting unless the analyst
	// asks for them, so a dyad over silence never becomes a count or an
	// n-gram member.
	if m.setting(i, SettingIncludeRests, false) != true {
		chain = append(chain, models.StageRef{
			Name:     indexers.RestFilterName,
			Settings: series.NewSettings(nil),
		})
	}

	if experiment == ExperimentIntervalNGrams {
		// The window size passes through as-is; the indexer's schema
		// rejects out-of-domain values rather than defaulting them.
		chain = append(chain, models.StageRef{
			Name:     indexers.NGramName,
			Settings: series.NewSettings(map[string]any{"n": m.setting(i, SettingN, 2)}),
		})
	}

	chain = append(chain, models.StageRef{
		Name:     experimenters.FrequencyName,
		Settings: series.NewSettings(nil),
	})
	return chain
}
