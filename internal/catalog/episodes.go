package catalog

import (
	"context"
	"database/sql"

	"github.com/mpgirro/hemin/internal/errors"
	"github.com/mpgirro/hemin/internal/podcast"
)

const episodeColumns = `id, exo, show_exo, show_title, title, link, pub_date, guid, guid_permalink,
	description, image, enclosure_url, enclosure_type, enclosure_length, content_encoded,
	itunes_duration, itunes_subtitle, itunes_author, itunes_summary,
	itunes_season, itunes_episode, itunes_episode_type`

// SaveEpisode inserts e or replaces the stored episode with the same exo,
// including its chapters. created reports whether the exo was new.
func (c *Catalog) SaveEpisode(ctx context.Context, e *podcast.Episode) (created bool, err error) {
	if e == nil || e.Exo == "" {
		return false, errors.ValidationError("episode must have an exo", nil)
	}
	if e.ShowExo == "" {
		return false, errors.ValidationError("episode must reference a show", nil).
			WithDetail("exo", e.Exo)
	}

	var encURL, encType sql.NullString
	var encLength sql.NullInt64
	if e.Enclosure != nil {
		encURL = nullString(e.Enclosure.URL)
		encType = nullString(e.Enclosure.Type)
		encLength = sql.NullInt64{Int64: e.Enclosure.Length, Valid: true}
	}

	err = c.withTx(ctx, func(tx *sql.Tx) error {
		var id int64
		switch err := tx.QueryRowContext(ctx, `SELECT id FROM episodes WHERE exo = ?`, e.Exo).Scan(&id); err {
		case nil:
		case sql.ErrNoRows:
			created = true
		default:
			return err
		}

		err := tx.QueryRowContext(ctx, `
			INSERT INTO episodes (exo, show_exo, show_title, title, link, pub_date, guid,
				guid_permalink, description, image, enclosure_url, enclosure_type,
				enclosure_length, content_encoded, itunes_duration, itunes_subtitle,
				itunes_author, itunes_summary, itunes_season, itunes_episode,
				itunes_episode_type, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(exo) DO UPDATE SET
				show_exo = excluded.show_exo,
				show_title = excluded.show_title,
				title = excluded.title,
				link = excluded.link,
				pub_date = excluded.pub_date,
				guid = excluded.guid,
				guid_permalink = excluded.guid_permalink,
				description = excluded.description,
				image = excluded.image,
				enclosure_url = excluded.enclosure_url,
				enclosure_type = excluded.enclosure_type,
				enclosure_length = excluded.enclosure_length,
				content_encoded = excluded.content_encoded,
				itunes_duration = excluded.itunes_duration,
				itunes_subtitle = excluded.itunes_subtitle,
				itunes_author = excluded.itunes_author,
				itunes_summary = excluded.itunes_summary,
				itunes_season = excluded.itunes_season,
				itunes_episode = excluded.itunes_episode,
				itunes_episode_type = excluded.itunes_episode_type,
				updated_at = excluded.updated_at
			RETURNING id`,
			e.Exo,
			e.ShowExo,
			nullString(e.ShowTitle),
			nullString(e.Title),
			nullString(e.Link),
			nullTime(e.PubDate),
			nullString(e.GUID),
			e.GUIDPermalink,
			nullString(e.Description),
			nullString(e.Image),
			encURL,
			encType,
			encLength,
			nullString(e.ContentEncoded),
			nullString(e.ItunesDuration),
			nullString(e.ItunesSubtitle),
			nullString(e.ItunesAuthor),
			nullString(e.ItunesSummary),
			nullInt(e.ItunesSeason),
			nullInt(e.ItunesEpisode),
			nullString(e.ItunesEpisodeType),
			now(),
		).Scan(&id)
		if err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM chapters WHERE episode_id = ?`, id); err != nil {
			return err
		}
		if len(e.Chapters) == 0 {
			return nil
		}

		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO chapters (episode_id, position, start, title, href, image) VALUES (?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for i, ch := range e.Chapters {
			if _, err := stmt.ExecContext(ctx, id, i,
				nullString(ch.Start), nullString(ch.Title), nullString(ch.Href), nullString(ch.Image)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return false, wrapErr("failed to save episode", err).WithDetail("exo", e.Exo)
	}
	return created, nil
}

// EpisodeByExo returns the episode with the given exo and its chapters, or nil.
func (c *Catalog) EpisodeByExo(ctx context.Context, exo string) (*podcast.Episode, error) {
	eps, err := c.queryEpisodes(ctx, `SELECT `+episodeColumns+` FROM episodes WHERE exo = ?`, exo)
	if err != nil || len(eps) == 0 {
		return nil, err
	}
	return eps[0], nil
}

// EpisodeByGUID returns the episode of showExo with the given guid, or nil.
func (c *Catalog) EpisodeByGUID(ctx context.Context, showExo, guid string) (*podcast.Episode, error) {
	if guid == "" {
		return nil, nil
	}
	eps, err := c.queryEpisodes(ctx,
		`SELECT `+episodeColumns+` FROM episodes WHERE show_exo = ? AND guid = ? ORDER BY id LIMIT 1`,
		showExo, guid)
	if err != nil || len(eps) == 0 {
		return nil, err
	}
	return eps[0], nil
}

// EpisodesByShow returns all episodes of a show, newest first.
func (c *Catalog) EpisodesByShow(ctx context.Context, showExo string) ([]*podcast.Episode, error) {
	return c.queryEpisodes(ctx,
		`SELECT `+episodeColumns+` FROM episodes WHERE show_exo = ?
		 ORDER BY pub_date IS NULL, pub_date DESC, id`, showExo)
}

func (c *Catalog) queryEpisodes(ctx context.Context, query string, args ...any) ([]*podcast.Episode, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if err := c.readable(); err != nil {
		return nil, err
	}

	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrapErr("failed to query episodes", err)
	}

	var (
		eps []*podcast.Episode
		ids []int64
	)
	for rows.Next() {
		id, ep, err := scanEpisode(rows)
		if err != nil {
			_ = rows.Close()
			return nil, wrapErr("failed to scan episode", err)
		}
		ids = append(ids, id)
		eps = append(eps, ep)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, wrapErr("failed to query episodes", err)
	}
	_ = rows.Close()

	// One connection: the episode cursor must be closed before chapters load.
	for i, id := range ids {
		chapters, err := c.chapters(ctx, id)
		if err != nil {
			return nil, wrapErr("failed to load chapters", err)
		}
		eps[i].Chapters = chapters
	}
	return eps, nil
}

func (c *Catalog) chapters(ctx context.Context, episodeID int64) ([]podcast.Chapter, error) {
	rows, err := c.db.QueryContext(ctx,
		`SELECT start, title, href, image FROM chapters WHERE episode_id = ? ORDER BY position`, episodeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []podcast.Chapter
	for rows.Next() {
		var start, title, href, image sql.NullString
		if err := rows.Scan(&start, &title, &href, &image); err != nil {
			return nil, err
		}
		out = append(out, podcast.Chapter{
			Start: start.String,
			Title: title.String,
			Href:  href.String,
			Image: image.String,
		})
	}
	return out, rows.Err()
}

func scanEpisode(rows *sql.Rows) (int64, *podcast.Episode, error) {
	var (
		id                                  int64
		e                                   podcast.Episode
		showTitle, title, link, pubDate     sql.NullString
		guid, description, image            sql.NullString
		encURL, encType                     sql.NullString
		encLength                           sql.NullInt64
		content, duration, subtitle, author sql.NullString
		summary, episodeType                sql.NullString
		season, number                      sql.NullInt64
	)
	err := rows.Scan(&id, &e.Exo, &e.ShowExo, &showTitle, &title, &link, &pubDate, &guid,
		&e.GUIDPermalink, &description, &image, &encURL, &encType, &encLength, &content,
		&duration, &subtitle, &author, &summary, &season, &number, &episodeType)
	if err != nil {
		return 0, nil, err
	}

	e.ShowTitle = showTitle.String
	e.Title = title.String
	e.Link = link.String
	e.PubDate = timeFrom(pubDate)
	e.GUID = guid.String
	e.Description = description.String
	e.Image = image.String
	if encURL.Valid {
		e.Enclosure = &podcast.Enclosure{
			URL:    encURL.String,
			Type:   encType.String,
			Length: encLength.Int64,
		}
	}
	e.ContentEncoded = content.String
	e.ItunesDuration = duration.String
	e.ItunesSubtitle = subtitle.String
	e.ItunesAuthor = author.String
	e.ItunesSummary = summary.String
	e.ItunesSeason = intFrom(season)
	e.ItunesEpisode = intFrom(number)
	e.ItunesEpisodeType = episodeType.String
	return id, &e, nil
}
