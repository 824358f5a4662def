package output

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/mpgirro/hemin/internal/catalog"
)

const urlWidth = 64

// FeedTable renders the feed registry with the outcome of each feed's last
// ingestion.
func FeedTable(feeds []catalog.Feed) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.Style().Format.Footer = text.FormatDefault
	tw.AppendHeader(table.Row{"URL", "Status", "Last checked"})

	failed := 0
	for _, f := range feeds {
		checked := "never"
		if f.LastChecked != nil {
			checked = f.LastChecked.Local().Format("2006-01-02 15:04")
		}
		if f.Status.Failed() {
			failed++
		}
		tw.AppendRow(table.Row{text.Trim(f.URL, urlWidth), string(f.Status), checked})
	}

	tw.AppendFooter(table.Row{fmt.Sprintf("%d feeds", len(feeds)), fmt.Sprintf("%d failing", failed), ""})
	return tw.Render()
}
