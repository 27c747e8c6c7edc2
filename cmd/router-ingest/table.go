package main

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/joseph-ayodele/router-ingest/constants"
	"github.com/joseph-ayodele/router-ingest/internal/entity"
)

// renderQueueTable prints one row per item: file, status and the extracted fields.
func renderQueueTable(items []entity.QueueItem) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := table.Row{"#", "file", "status"}
	for _, col := range constants.ExportColumns {
		header = append(header, string(col))
	}
	tw.AppendHeader(header)

	for i, it := range items {
		row := table.Row{i + 1, it.Image.Filename, string(it.Status)}
		for _, col := range constants.ExportColumns {
			if it.Fields == nil {
				row = append(row, "")
				continue
			}
			row = append(row, it.Fields.Value(col))
		}
		tw.AppendRow(row)
	}

	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignRight, AlignHeader: text.AlignLeft},
	})
	return tw.Render()
}
