package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/FranksOps/reelscout/internal/store"
	_ "modernc.org/sqlite"
)

// ensure sqliteBackend implements store.Backend
var _ store.Backend = (*sqliteBackend)(nil)

type sqliteBackend struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS accounts (
	run_id TEXT NOT NULL,
	collected_at DATETIME NOT NULL,
	id TEXT NOT NULL,
	username TEXT,
	full_name TEXT,
	surname TEXT,
	biography TEXT,
	external_url TEXT,
	follower_count INTEGER NOT NULL,
	following_count INTEGER NOT NULL,
	media_count INTEGER NOT NULL,
	is_verified BOOLEAN NOT NULL,
	is_private BOOLEAN NOT NULL,
	PRIMARY KEY (run_id, id)
);
CREATE TABLE IF NOT EXISTS reels (
	run_id TEXT NOT NULL,
	collected_at DATETIME NOT NULL,
	account_id TEXT NOT NULL,
	account_username TEXT,
	media_id TEXT NOT NULL,
	code TEXT,
	taken_at INTEGER NOT NULL,
	views INTEGER NOT NULL,
	like_count INTEGER NOT NULL,
	comment_count INTEGER NOT NULL,
	caption_text TEXT,
	permalink TEXT,
	PRIMARY KEY (run_id, media_id)
);
`

// New creates a SQLite-backed store.Backend at the given path.
func New(dsn string) (store.Backend, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply sqlite schema: %w", err)
	}

	return &sqliteBackend{db: db}, nil
}

func (b *sqliteBackend) SaveAccount(ctx context.Context, a *store.Account) error {
	query := `
	INSERT OR REPLACE INTO accounts (
		run_id, collected_at, id, username, full_name, surname, biography,
		external_url, follower_count, following_count, media_count, is_verified, is_private
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := b.db.ExecContext(ctx, query,
		a.RunID, a.CollectedAt, a.ID, a.Username, a.FullName, a.Surname,
		a.Biography, a.ExternalURL, a.FollowerCount, a.FollowingCount,
		a.MediaCount, a.IsVerified, a.IsPrivate,
	)
	if err != nil {
		return fmt.Errorf("save account: %w", err)
	}
	return nil
}

func (b *sqliteBackend) SaveReel(ctx context.Context, r *store.Reel) error {
	query := `
	INSERT OR REPLACE INTO reels (
		run_id, collected_at, account_id, account_username, media_id, code,
		taken_at, views, like_count, comment_count, caption_text, permalink
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := b.db.ExecContext(ctx, query,
		r.RunID, r.CollectedAt, r.AccountID, r.AccountUsername, r.MediaID,
		r.Code, r.TakenAt, r.Views, r.LikeCount, r.CommentCount,
		r.CaptionText, r.Permalink,
	)
	if err != nil {
		return fmt.Errorf("save reel: %w", err)
	}
	return nil
}

func (b *sqliteBackend) QueryReels(ctx context.Context, filter store.Filter) ([]*store.Reel, error) {
	query := `SELECT run_id, collected_at, account_id, account_username, media_id, code,
		taken_at, views, like_count, comment_count, caption_text, permalink
		FROM reels WHERE 1=1`
	args := []any{}

	if filter.RunID != "" {
		query += ` AND run_id = ?`
		args = append(args, filter.RunID)
	}
	if filter.AccountID != "" {
		query += ` AND account_id = ?`
		args = append(args, filter.AccountID)
	}
	if filter.MinViews > 0 {
		query += ` AND views >= ?`
		args = append(args, filter.MinViews)
	}

	query += ` ORDER BY collected_at DESC, views DESC`

	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}
	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := b.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query reels: %w", err)
	}
	defer rows.Close()

	var results []*store.Reel
	for rows.Next() {
		var r store.Reel
		var collectedAt time.Time

		err := rows.Scan(
			&r.RunID, &collectedAt, &r.AccountID, &r.AccountUsername,
			&r.MediaID, &r.Code, &r.TakenAt, &r.Views, &r.LikeCount,
			&r.CommentCount, &r.CaptionText, &r.Permalink,
		)
		if err != nil {
			return nil, fmt.Errorf("scan reel row: %w", err)
		}
		r.CollectedAt = collectedAt
		results = append(results, &r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reel rows: %w", err)
	}

	return results, nil
}

func (b *sqliteBackend) Close() error {
	return b.db.Close()
}
