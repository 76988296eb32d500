package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"

	"github.com/mesh-intelligence/grocery/internal/offline"
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiDim    = "\x1b[2m"

	ansiClearScreen = "\x1b[H\x1b[2J"
)

const timeLayout = "2006-01-02 15:04"

func shouldColorize(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func paint(s, color string, colorize bool) string {
	if !colorize || color == "" {
		return s
	}
	return color + s + ansiReset
}

// writeView prints v as JSON or as a table followed by a summary line.
func writeView(w io.Writer, v offline.View, jsonMode bool) error {
	if jsonMode {
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal view: %w", err)
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	}
	_, err := fmt.Fprint(w, renderView(v, shouldColorize(w)))
	return err
}

func renderView(v offline.View, colorize bool) string {
	var b strings.Builder
	if len(v.Items) == 0 {
		b.WriteString("No items yet.\n")
	} else {
		b.WriteString(renderItemTable(v.Items, colorize))
		b.WriteString("\n")
	}

	summary := fmt.Sprintf("%d items, %d completed", v.Total, v.Completed)
	if pending := countPending(v.Items); pending > 0 {
		summary += paint(fmt.Sprintf(", %d waiting to sync", pending), ansiYellow, colorize)
	}
	if v.Syncing {
		summary += ", syncing"
	}
	b.WriteString(summary + "\n")
	if v.LastError != "" {
		b.WriteString(paint("! "+v.LastError, ansiRed, colorize) + "\n")
	}
	return b.String()
}

func renderItemTable(items []offline.DisplayItem, colorize bool) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"", "ID", "Item", "Added"})

	for _, item := range items {
		mark, color := "[ ]", ""
		switch {
		case item.Pending:
			mark, color = "[~]", ansiYellow
		case item.Completed:
			mark, color = "[x]", ansiGreen
		}
		added := ""
		if !item.CreatedAt.IsZero() {
			added = item.CreatedAt.Local().Format(timeLayout)
		}
		name := item.Text
		if item.Completed && colorize {
			name = paint(name, ansiDim, true)
		}
		tw.AppendRow(table.Row{paint(mark, color, colorize), item.ID, name, added})
	}

	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignCenter},
		{Number: 2, Align: text.AlignLeft},
		{Number: 3, Align: text.AlignLeft},
		{Number: 4, Align: text.AlignRight, AlignHeader: text.AlignLeft},
	})
	return tw.Render()
}

func countPending(items []offline.DisplayItem) int {
	n := 0
	for _, item := range items {
		if item.Pending {
			n++
		}
	}
	return n
}
