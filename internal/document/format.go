package document

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
)

// descriptionLimit caps the description in FormatCLI, in runes.
const descriptionLimit = 280

// StripHTML returns the visible text of an HTML fragment with whitespace collapsed.
func StripHTML(fragment string) string {
	if !strings.ContainsAny(fragment, "<&") {
		return strings.Join(strings.Fields(fragment), " ")
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return strings.Join(strings.Fields(fragment), " ")
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}

// FormatCLI renders a document as a short plain-text block for terminals.
func FormatCLI(d Document) string {
	b := d.Common()

	var sb strings.Builder
	sb.WriteString(Deref(b.Title))
	sb.WriteString("\n")

	switch d.(type) {
	case *ShowDocument:
		sb.WriteString("[Show]")
	case *EpisodeDocument:
		sb.WriteString("[Episode]")
	}
	if b.PubDate != nil {
		fmt.Fprintf(&sb, " %s", b.PubDate.Format("2006-01-02"))
	}
	sb.WriteString("\n")

	if desc := truncate(StripHTML(Deref(b.Description)), descriptionLimit); desc != "" {
		sb.WriteString(desc)
		sb.WriteString("\n")
	}
	if b.Link != nil {
		sb.WriteString(*b.Link)
		sb.WriteString("\n")
	}
	return sb.String()
}

func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return strings.TrimSpace(string(runes[:limit])) + "..."
}
