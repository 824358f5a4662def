package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/mpgirro/hemin/internal/errors"
	"github.com/mpgirro/hemin/internal/podcast"
)

// Feed is a registered feed URL and the outcome of its last ingestion.
type Feed struct {
	URL         string             `json:"url"`
	Status      podcast.FeedStatus `json:"status"`
	Registered  time.Time          `json:"registered"`
	LastChecked *time.Time         `json:"lastChecked,omitempty"`
}

// RegisterFeed adds url with status never_checked. Registering a known URL
// is a no-op; created reports whether it was new.
func (c *Catalog) RegisterFeed(ctx context.Context, url string) (created bool, err error) {
	if url == "" {
		return false, errors.ValidationError("feed url must not be empty", nil)
	}

	err = c.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO feeds (url, status, registered) VALUES (?, ?, ?)`,
			url, string(podcast.FeedNeverChecked), now())
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		created = n > 0
		return nil
	})
	if err != nil {
		return false, wrapErr("failed to register feed", err).WithDetail("url", url)
	}
	return created, nil
}

// SetFeedStatus records the outcome of an ingestion attempt. Unknown URLs
// are registered on the fly.
func (c *Catalog) SetFeedStatus(ctx context.Context, url string, status podcast.FeedStatus) error {
	if !status.Valid() {
		return errors.ValidationError(fmt.Sprintf("unknown feed status %q", status), nil)
	}

	err := c.withTx(ctx, func(tx *sql.Tx) error {
		ts := now()
		_, err := tx.ExecContext(ctx, `
			INSERT INTO feeds (url, status, registered, last_checked) VALUES (?, ?, ?, ?)
			ON CONFLICT(url) DO UPDATE SET status = excluded.status, last_checked = excluded.last_checked`,
			url, string(status), ts, ts)
		return err
	})
	if err != nil {
		return wrapErr("failed to update feed status", err).WithDetail("url", url)
	}
	return nil
}

// Feeds returns all registered feeds in registration order.
func (c *Catalog) Feeds(ctx context.Context) ([]Feed, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if err := c.readable(); err != nil {
		return nil, err
	}

	rows, err := c.db.QueryContext(ctx,
		`SELECT url, status, registered, last_checked FROM feeds ORDER BY registered, url`)
	if err != nil {
		return nil, wrapErr("failed to list feeds", err)
	}
	defer rows.Close()

	var feeds []Feed
	for rows.Next() {
		var (
			f                  Feed
			status, registered string
			lastChecked        sql.NullString
		)
		if err := rows.Scan(&f.URL, &status, &registered, &lastChecked); err != nil {
			return nil, wrapErr("failed to scan feed", err)
		}
		f.Status = podcast.FeedStatus(status)
		if t := timeFrom(sql.NullString{String: registered, Valid: true}); t != nil {
			f.Registered = *t
		}
		f.LastChecked = timeFrom(lastChecked)
		feeds = append(feeds, f)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr("failed to list feeds", err)
	}
	return feeds, nil
}
