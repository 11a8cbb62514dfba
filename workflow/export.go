package workflow

import (
	"encoding/csv"
	"io"

	"github.com/ELVIS-Project/fiddle-tunes/errors"
	"github.com/ELVIS-Project/fiddle-tunes/series"
)

// ExportCSV writes a feature table in the tabular shape: a header row, then
// one row per observation with the group label repeated on every row.
func ExportCSV(w io.Writer, table *series.FeatureTable, group string) error {
	if table.Empty() {
		return errors.WrapInvalid(errors.ErrEmptyInput, "workflow", "ExportCSV", "table check")
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(series.RowHeader()); err != nil {
		return errors.Wrap(err, "workflow", "ExportCSV", "write header")
	}
	for _, row := range table.Rows(group) {
		if err := cw.Write(row.Slice()); err != nil {
			return errors.Wrap(err, "workflow", "ExportCSV", "write row")
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return errors.Wrap(err, "workflow", "ExportCSV", "flush")
	}
	return nil
}
