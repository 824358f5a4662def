package catalog

import (
	"context"
	"database/sql"

	"github.com/mpgirro/hemin/internal/errors"
	"github.com/mpgirro/hemin/internal/podcast"
)

const showColumns = `exo, feed_url, title, link, description, pub_date, last_build_date,
	language, generator, copyright, docs, managing_editor, image,
	itunes_summary, itunes_author, itunes_keywords, itunes_categories,
	itunes_explicit, itunes_block, itunes_type, itunes_owner_name, itunes_owner_email,
	episode_count, website_data`

// SaveShow inserts s or replaces the stored show with the same exo.
// created reports whether the exo was new.
func (c *Catalog) SaveShow(ctx context.Context, s *podcast.Show) (created bool, err error) {
	if s == nil || s.Exo == "" {
		return false, errors.ValidationError("show must have an exo", nil)
	}

	err = c.withTx(ctx, func(tx *sql.Tx) error {
		var id int64
		switch err := tx.QueryRowContext(ctx, `SELECT id FROM shows WHERE exo = ?`, s.Exo).Scan(&id); err {
		case nil:
		case sql.ErrNoRows:
			created = true
		default:
			return err
		}

		_, err := tx.ExecContext(ctx, `
			INSERT INTO shows (`+showColumns+`, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(exo) DO UPDATE SET
				feed_url = excluded.feed_url,
				title = excluded.title,
				link = excluded.link,
				description = excluded.description,
				pub_date = excluded.pub_date,
				last_build_date = excluded.last_build_date,
				language = excluded.language,
				generator = excluded.generator,
				copyright = excluded.copyright,
				docs = excluded.docs,
				managing_editor = excluded.managing_editor,
				image = excluded.image,
				itunes_summary = excluded.itunes_summary,
				itunes_author = excluded.itunes_author,
				itunes_keywords = excluded.itunes_keywords,
				itunes_categories = excluded.itunes_categories,
				itunes_explicit = excluded.itunes_explicit,
				itunes_block = excluded.itunes_block,
				itunes_type = excluded.itunes_type,
				itunes_owner_name = excluded.itunes_owner_name,
				itunes_owner_email = excluded.itunes_owner_email,
				episode_count = excluded.episode_count,
				website_data = excluded.website_data,
				updated_at = excluded.updated_at`,
			s.Exo,
			nullString(s.FeedURL),
			nullString(s.Title),
			nullString(s.Link),
			nullString(s.Description),
			nullTime(s.PubDate),
			nullTime(s.LastBuildDate),
			nullString(s.Language),
			nullString(s.Generator),
			nullString(s.Copyright),
			nullString(s.Docs),
			nullString(s.ManagingEditor),
			nullString(s.Image),
			nullString(s.ItunesSummary),
			nullString(s.ItunesAuthor),
			nullString(s.ItunesKeywords),
			nullStrings(s.ItunesCategories),
			nullBool(s.ItunesExplicit),
			nullBool(s.ItunesBlock),
			nullString(s.ItunesType),
			nullString(s.ItunesOwnerName),
			nullString(s.ItunesOwnerEmail),
			s.EpisodeCount,
			nullString(s.WebsiteData),
			now(),
		)
		return err
	})
	if err != nil {
		return false, wrapErr("failed to save show", err).WithDetail("exo", s.Exo)
	}
	return created, nil
}

// ShowByExo returns the show with the given exo, or nil.
func (c *Catalog) ShowByExo(ctx context.Context, exo string) (*podcast.Show, error) {
	return c.queryShow(ctx, `SELECT `+showColumns+` FROM shows WHERE exo = ?`, exo)
}

// ShowByFeedURL returns the show last ingested from url, or nil.
func (c *Catalog) ShowByFeedURL(ctx context.Context, url string) (*podcast.Show, error) {
	return c.queryShow(ctx,
		`SELECT `+showColumns+` FROM shows WHERE feed_url = ? ORDER BY id LIMIT 1`, url)
}

func (c *Catalog) queryShow(ctx context.Context, query string, arg string) (*podcast.Show, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if err := c.readable(); err != nil {
		return nil, err
	}

	s, err := scanShow(c.db.QueryRowContext(ctx, query, arg))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, wrapErr("failed to load show", err)
	}
	return s, nil
}

func scanShow(row *sql.Row) (*podcast.Show, error) {
	var (
		s                                                 podcast.Show
		feedURL, title, link, description                 sql.NullString
		pubDate, lastBuild                                sql.NullString
		language, generator, copyright, docs, editor, img sql.NullString
		summary, author, keywords, categories             sql.NullString
		explicit, block                                   sql.NullInt64
		itype, ownerName, ownerEmail, website             sql.NullString
	)
	err := row.Scan(&s.Exo, &feedURL, &title, &link, &description, &pubDate, &lastBuild,
		&language, &generator, &copyright, &docs, &editor, &img,
		&summary, &author, &keywords, &categories,
		&explicit, &block, &itype, &ownerName, &ownerEmail,
		&s.EpisodeCount, &website)
	if err != nil {
		return nil, err
	}

	s.FeedURL = feedURL.String
	s.Title = title.String
	s.Link = link.String
	s.Description = description.String
	s.PubDate = timeFrom(pubDate)
	s.LastBuildDate = timeFrom(lastBuild)
	s.Language = language.String
	s.Generator = generator.String
	s.Copyright = copyright.String
	s.Docs = docs.String
	s.ManagingEditor = editor.String
	s.Image = img.String
	s.ItunesSummary = summary.String
	s.ItunesAuthor = author.String
	s.ItunesKeywords = keywords.String
	s.ItunesCategories = stringsFrom(categories)
	s.ItunesExplicit = boolFrom(explicit)
	s.ItunesBlock = boolFrom(block)
	s.ItunesType = itype.String
	s.ItunesOwnerName = ownerName.String
	s.ItunesOwnerEmail = ownerEmail.String
	s.WebsiteData = website.String
	return &s, nil
}

// wrapErr keeps HeminErrors intact and tags anything else as a catalog
// I/O failure.
func wrapErr(msg string, err error) *errors.HeminError {
	if he, ok := errors.As(err); ok {
		return he
	}
	return errors.IOError(errors.ErrCodeCatalog, msg, err)
}
