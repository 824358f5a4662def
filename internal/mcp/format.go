package mcp

import (
	"fmt"
	"strings"
)

// FormatSearchResults renders a search page as markdown.
func FormatSearchResults(query string, out SearchOutput) string {
	if out.TotalHits == 0 {
		return fmt.Sprintf("No results found for \"%s\"", query)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "## Search Results for \"%s\"\n\n", query)
	fmt.Fprintf(&sb, "Page %d of %d, %d hit", out.CurrentPage, out.MaxPage, out.TotalHits)
	if out.TotalHits != 1 {
		sb.WriteString("s")
	}
	sb.WriteString("\n\n")

	for i, r := range out.Results {
		formatResult(&sb, i+1, r)
	}
	return sb.String()
}

// FormatLookup renders a lookup result as markdown.
func FormatLookup(exo string, out LookupOutput) string {
	if !out.Found {
		return fmt.Sprintf("No document with exo `%s`", exo)
	}
	var sb strings.Builder
	formatResult(&sb, 1, *out.Document)
	return sb.String()
}

func formatResult(sb *strings.Builder, n int, r ResultOutput) {
	fmt.Fprintf(sb, "### %d. %s [%s]\n", n, r.Title, r.DocType)
	fmt.Fprintf(sb, "- exo: `%s`\n", r.Exo)
	if r.PodcastTitle != "" {
		fmt.Fprintf(sb, "- podcast: %s\n", r.PodcastTitle)
	}
	if r.PubDate != nil {
		fmt.Fprintf(sb, "- published: %s\n", r.PubDate.Format("2006-01-02"))
	}
	if r.Duration != "" {
		fmt.Fprintf(sb, "- duration: %s\n", r.Duration)
	}
	if r.Link != "" {
		fmt.Fprintf(sb, "- link: %s\n", r.Link)
	}
	if r.Description != "" {
		sb.WriteString("\n")
		sb.WriteString(r.Description)
		sb.WriteString("\n")
	}
	sb.WriteString("\n")
}

// FormatEpisodes renders the episode list of a show as markdown.
func FormatEpisodes(exo string, out EpisodesOutput) string {
	if !out.Found {
		return fmt.Sprintf("No show with exo `%s`", exo)
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "## Episodes of %s\n\n", out.Show)
	if len(out.Episodes) == 0 {
		sb.WriteString("No episodes.\n")
		return sb.String()
	}
	for i, r := range out.Episodes {
		formatResult(&sb, i+1, r)
	}
	return sb.String()
}
