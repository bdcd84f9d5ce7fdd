package main

import (
	"fmt"
	"io"
	"os"

	cs "confschema"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"
)

// useStyledOutput decides whether the table gets box drawing and colors.
func useStyledOutput(mode string, out *os.File) bool {
	switch mode {
	case "always":
		return true
	case "never":
		return false
	}
	return isatty.IsTerminal(out.Fd()) || isatty.IsCygwinTerminal(out.Fd())
}

// renderConfig prints one row per resolved value with its provenance.
func renderConfig(w io.Writer, cfg *cs.Config, styled bool) {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	if styled {
		tw.SetStyle(table.StyleRounded)
		tw.Style().Color.Header = text.Colors{text.Bold}
	} else {
		tw.SetStyle(table.StyleLight)
		tw.Style().Options.DrawBorder = false
		tw.Style().Options.SeparateColumns = false
		tw.Style().Options.SeparateHeader = false
	}
	tw.AppendHeader(table.Row{"Path", "Value", "Source"})
	for _, path := range cfg.Paths() {
		value, _ := cfg.Get(path)
		source, _ := cfg.Source(path)
		row := table.Row{path, fmt.Sprint(value), string(source)}
		if styled && source != cs.SourceDefault {
			row[2] = text.FgGreen.Sprint(source)
		}
		tw.AppendRow(row)
	}
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, AlignHeader: text.AlignLeft},
		{Number: 2, Align: text.AlignLeft, AlignHeader: text.AlignLeft},
		{Number: 3, AlignHeader: text.AlignLeft},
	})
	tw.Render()
}
