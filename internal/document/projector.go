package document

import (
	"strings"
	"time"

	"github.com/mpgirro/hemin/internal/podcast"
)

// ProjectShow maps a show to its index document. It is pure: the same show
// always yields an identical document.
func ProjectShow(s podcast.Show) *ShowDocument {
	return &ShowDocument{
		Base: Base{
			Exo:         s.Exo,
			Title:       Str(s.Title),
			Link:        Str(s.Link),
			Description: Str(s.Description),
			PubDate:     copyTime(s.PubDate),
			Image:       Str(s.Image),
		},
		ItunesAuthor:  Str(s.ItunesAuthor),
		ItunesSummary: Str(s.ItunesSummary),
		WebsiteData:   Str(s.WebsiteData),
	}
}

// ProjectEpisode maps an episode to its index document.
// Chapter titles are newline-joined into ChapterMarks; no chapters leaves it nil.
func ProjectEpisode(e podcast.Episode) *EpisodeDocument {
	return &EpisodeDocument{
		Base: Base{
			Exo:         e.Exo,
			Title:       Str(e.Title),
			Link:        Str(e.Link),
			Description: Str(e.Description),
			PubDate:     copyTime(e.PubDate),
			Image:       Str(e.Image),
		},
		PodcastTitle:   Str(e.ShowTitle),
		ItunesAuthor:   Str(e.ItunesAuthor),
		ItunesSummary:  Str(e.ItunesSummary),
		ItunesDuration: Str(e.ItunesDuration),
		ChapterMarks:   chapterMarks(e.Chapters),
		ContentEncoded: Str(e.ContentEncoded),
	}
}

func chapterMarks(chapters []podcast.Chapter) *string {
	if len(chapters) == 0 {
		return nil
	}
	titles := make([]string, len(chapters))
	for i, c := range chapters {
		titles[i] = c.Title
	}
	marks := strings.Join(titles, "\n")
	return &marks
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}
