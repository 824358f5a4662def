package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/mpgirro/hemin/internal/document"
	"github.com/mpgirro/hemin/internal/errors"
	"github.com/mpgirro/hemin/internal/index"
)

// Format selects how a result page is printed.
type Format string

const (
	FormatText  Format = "text"
	FormatJSON  Format = "json"
	FormatTable Format = "table"
)

// ParseFormat validates a --format flag value.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatText, FormatJSON, FormatTable:
		return f, nil
	case "":
		return FormatText, nil
	default:
		return "", errors.ValidationError(fmt.Sprintf("unknown output format %q", s), nil).
			WithSuggestion("Use one of: text, json, table")
	}
}

// WritePage prints page to out in the given format.
func WritePage(out io.Writer, page *index.ResultPage, format Format) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(page)
	case FormatTable:
		_, err := fmt.Fprintln(out, ResultTable(page))
		return err
	default:
		return writeText(out, page)
	}
}

func writeText(out io.Writer, page *index.ResultPage) error {
	if page.TotalHits == 0 {
		_, err := fmt.Fprintln(out, "No results.")
		return err
	}
	for _, doc := range page.Results {
		if _, err := fmt.Fprintln(out, document.FormatCLI(doc)); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(out, "Page %d of %d (%d hits)\n", page.CurrentPage, page.MaxPage, page.TotalHits)
	return err
}

const titleWidth = 48

// ResultTable renders page as a rounded table with one row per document,
// numbered within the page.
func ResultTable(page *index.ResultPage) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.Style().Format.Footer = text.FormatDefault
	tw.AppendHeader(table.Row{"#", "Type", "Title", "Published", "Exo"})

	for i, doc := range page.Results {
		b := doc.Common()
		published := ""
		if b.PubDate != nil {
			published = b.PubDate.Format("2006-01-02")
		}
		tw.AppendRow(table.Row{
			i + 1,
			string(doc.Kind()),
			text.Trim(document.Deref(b.Title), titleWidth),
			published,
			b.Exo,
		})
	}

	tw.AppendFooter(table.Row{"", "", fmt.Sprintf("page %d/%d", page.CurrentPage, page.MaxPage), "", fmt.Sprintf("%d hits", page.TotalHits)})
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignRight, AlignHeader: text.AlignLeft},
	})
	return tw.Render()
}
