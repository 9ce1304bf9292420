package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"lingocast/internal/session"
	"lingocast/internal/workflow"
)

// writeJSON encodes v as indented JSON to the command's stdout.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

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

	return tw.Render()
}

// colorize wraps s in the given color when w is a terminal.
func colorize(w io.Writer, s string, colors ...text.Color) string {
	if !isTerminal(w) {
		return s
	}
	return text.Colors(colors).Sprint(s)
}

// alertLine renders an error as the single banner line the CLI prints.
// User-facing messages from login, the workflow and form validation are
// shown as-is.
func alertLine(err error) string {
	var loginErr *session.LoginError
	var stageErr *workflow.StageError
	var formErr *workflow.ValidationError
	switch {
	case errors.As(err, &loginErr):
		return "Error: " + loginErr.Message
	case errors.As(err, &stageErr):
		return "Error: " + stageErr.Message
	case errors.As(err, &formErr):
		return "Error: " + strings.Join(formErr.Messages, "; ")
	}
	return "Error: " + strings.TrimSpace(fmt.Sprint(err))
}
