package reconcile

import (
	"fmt"
	"io"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// Render writes a human-readable summary of the report to w.
func (r Report) Render(w io.Writer) error {
	if r.Verified() {
		_, err := fmt.Fprintln(w, "Local folders are an exact replica of Zoom recordings.")
		return err
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"#", "Finding", "Detail"})

	n := 0
	for _, folder := range r.MissingFolders {
		n++
		tw.AppendRow(table.Row{strconv.Itoa(n), "missing folder", folder})
	}
	for _, mismatch := range r.MismatchedFiles {
		n++
		tw.AppendRow(table.Row{strconv.Itoa(n), "mismatched file", mismatch})
	}
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignRight, AlignHeader: text.AlignLeft},
		{Number: 2, Align: text.AlignLeft, AlignHeader: text.AlignLeft},
		{Number: 3, Align: text.AlignLeft, AlignHeader: text.AlignLeft},
	})

	_, err := fmt.Fprintf(w, "%s\n%d missing folder(s), %d mismatched file(s)\n",
		tw.Render(), len(r.MissingFolders), len(r.MismatchedFiles))
	return err
}
