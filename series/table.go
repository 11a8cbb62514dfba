package series

import (
	"sort"
	"strconv"
)

// Frequencies maps a distinct event value to its occurrence count.
type Frequencies map[string]int

// FeatureTable is the externally visible shape of a computed result: a
// mapping from voice-combination to an event series, a scalar, or a
// frequency count, produced by one stage for one piece (or one group of
// pieces).
type FeatureTable struct {
	Stage   string                 `json:"stage"`
	Piece   string                 `json:"piece,omitempty"`
	Series  map[string]*Series     `json:"series,omitempty"`
	Scalars map[string]float64     `json:"scalars,omitempty"`
	Counts  map[string]Frequencies `json:"counts,omitempty"`
}

// NewTable creates an empty feature table for the given stage and piece.
func NewTable(stage, piece string) *FeatureTable {
	return &FeatureTable{
		Stage:  stage,
		Piece:  piece,
		Series: make(map[string]*Series),
	}
}

// AddSeries stores a series under its voice-combination label.
func (t *FeatureTable) AddSeries(s *Series) {
	if t.Series == nil {
		t.Series = make(map[string]*Series)
	}
	t.Series[s.Combo] = s
}

// SetScalar stores a scalar result for a voice combination.
func (t *FeatureTable) SetScalar(combo string, v float64) {
	if t.Scalars == nil {
		t.Scalars = make(map[string]float64)
	}
	t.Scalars[combo] = v
}

// SetCounts stores frequency counts for a voice combination.
func (t *FeatureTable) SetCounts(combo string, f Frequencies) {
	if t.Counts == nil {
		t.Counts = make(map[string]Frequencies)
	}
	t.Counts[combo] = f
}

// Combos returns the sorted voice-combination labels present in the table,
// across all three result shapes.
func (t *FeatureTable) Combos() []string {
	seen := make(map[string]bool)
	for c := range t.Series {
		seen[c] = true
	}
	for c := range t.Scalars {
		seen[c] = true
	}
	for c := range t.Counts {
		seen[c] = true
	}
	combos := make([]string, 0, len(seen))
	for c := range seen {
		combos = append(combos, c)
	}
	sort.Strings(combos)
	return combos
}

// Empty reports whether the table holds no results at all.
func (t *FeatureTable) Empty() bool {
	if t == nil {
		return true
	}
	for _, s := range t.Series {
		if s.Len() > 0 {
			return false
		}
	}
	return len(t.Scalars) == 0 && len(t.Counts) == 0
}

// Row is one observation in the tabular export shape consumed by plotting
// and statistics front-ends: named columns, no gaps in the group column.
type Row struct {
	Group  string
	Piece  string
	Combo  string
	Offset string
	Value  string
	Count  string
}

// RowHeader names the columns of the tabular export, in Row field order.
func RowHeader() []string {
	return []string{"group", "piece", "combo", "offset", "value", "count"}
}

// Rows flattens the table to one row per observation, ordered by voice
// combination then offset. The group label is repeated on every row so the
// grouping column has no gaps.
func (t *FeatureTable) Rows(group string) []Row {
	var rows []Row
	for _, combo := range t.Combos() {
		if s, ok := t.Series[combo]; ok {
			for _, e := range s.Events {
				rows = append(rows, Row{
					Group:  group,
					Piece:  s.Piece,
					Combo:  combo,
					Offset: strconv.FormatFloat(e.Offset, 'f', -1, 64),
					Value:  e.Value,
				})
			}
		}
		if v, ok := t.Scalars[combo]; ok {
			rows = append(rows, Row{
				Group: group,
				Piece: t.Piece,
				Combo: combo,
				Value: strconv.FormatFloat(v, 'f', -1, 64),
			})
		}
		if f, ok := t.Counts[combo]; ok {
			vals := make([]string, 0, len(f))
			for v := range f {
				vals = append(vals, v)
			}
			sort.Strings(vals)
			for _, v := range vals {
				rows = append(rows, Row{
					Group: group,
					Piece: t.Piece,
					Combo: combo,
					Value: v,
					Count: strconv.Itoa(f[v]),
				})
			}
		}
	}
	return rows
}

// Slice returns the Row fields in RowHeader order, for CSV writers.
func (r Row) Slice() []string {
	return []string{r.Group, r.Piece, r.Combo, r.Offset, r.Value, r.Count}
}
