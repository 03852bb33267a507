package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"mirrorvault/internal/ipc"
	"mirrorvault/internal/preflight"
	"mirrorvault/internal/store"
)

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

func renderTable(headers []string, rows [][]string, aligns []columnAlignment) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, columns)
	for i := range columns {
		header[i] = headers[i]
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, columns)
		for i := range columns {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	columnConfigs := make([]table.ColumnConfig, 0, columns)
	for i := range columns {
		align := text.AlignLeft
		if i < len(aligns) && aligns[i] == alignRight {
			align = text.AlignRight
		}
		columnConfigs = append(columnConfigs, table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignHeader: text.AlignLeft,
		})
	}
	tw.SetColumnConfigs(columnConfigs)

	return tw.Render() + "\n"
}

// pairTable renders the main window's list: one row per pair in priority order.
func pairTable(views []ipc.PairView) string {
	rows := make([][]string, 0, len(views))
	for _, view := range views {
		rows = append(rows, []string{
			strconv.Itoa(view.Index+1),
			view.Pair.DisplayName(),
			view.Pair.Source,
			view.Pair.Destination,
			yesNo(view.Pair.Enabled),
			view.Status.State.Label(),
			view.LastRun,
			fmt.Sprintf("%d%%", view.SuccessRate),
			strconv.FormatInt(view.Status.FilesCopiedLast, 10),
			preflight.FormatBytes(uint64(max(view.Status.BytesTransferredLast, 0))),
		})
	}
	return renderTable(
		[]string{"#", "Name", "Source", "Destination", "Enabled", "Status", "Last Run", "Success", "Files", "Bytes"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight},
	)
}

func historyTable(runs []store.Run) string {
	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		rows = append(rows, []string{
			run.FinishedAt.Local().Format(time.DateTime),
			run.Source,
			run.Destination,
			run.Outcome,
			run.Trigger,
			strconv.FormatInt(run.FilesCopied, 10),
			preflight.FormatBytes(uint64(max(run.BytesTransferred, 0))),
			run.Duration.Round(time.Second).String(),
			run.Message,
		})
	}
	return renderTable(
		[]string{"Finished", "Source", "Destination", "Outcome", "Trigger", "Files", "Bytes", "Duration", "Message"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignLeft},
	)
}
