package export

import (
	"errors"
	"strings"

	"github.com/joseph-ayodele/router-ingest/constants"
	"github.com/joseph-ayodele/router-ingest/internal/entity"
)

// ErrNoDocument is returned when there are no DONE items to export.
var ErrNoDocument = errors.New("no document: nothing to export")

// DoneRows selects DONE items in queue order and renders each as a row in
// export column order. Absent fields become "".
func DoneRows(items []entity.QueueItem) [][]string {
	var rows [][]string
	for _, it := range items {
		if it.Status != constants.ItemStatusDone || it.Fields == nil {
			continue
		}
		row := make([]string, len(constants.ExportColumns))
		for i, col := range constants.ExportColumns {
			row[i] = it.Fields.Value(col)
		}
		rows = append(rows, row)
	}
	return rows
}

// ToCSV renders DONE items as a comma-joined document: a header row, then one
// row per item, separated by "\n" with no trailing newline. Values are
// written verbatim; commas or newlines inside a value are not escaped.
func ToCSV(items []entity.QueueItem) (string, error) {
	rows := DoneRows(items)
	if len(rows) == 0 {
		return "", ErrNoDocument
	}
	lines := make([]string, 0, len(rows)+1)
	lines = append(lines, strings.Join(constants.ExportHeader(), ","))
	for _, r := range rows {
		lines = append(lines, strings.Join(r, ","))
	}
	return strings.Join(lines, "\n"), nil
}
