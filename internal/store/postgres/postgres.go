package postgres

import (
	"context"
	"fmt"

	"github.com/FranksOps/reelscout/internal/store"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ensure postgresBackend implements store.Backend
var _ store.Backend = (*postgresBackend)(nil)

type postgresBackend struct {
	pool *pgxpool.Pool
}

const schema = `
CREATE TABLE IF NOT EXISTS accounts (
	run_id TEXT NOT NULL,
	collected_at TIMESTAMPTZ NOT NULL,
	id TEXT NOT NULL,
	username TEXT,
	full_name TEXT,
	surname TEXT,
	biography TEXT,
	external_url TEXT,
	follower_count BIGINT NOT NULL,
	following_count BIGINT NOT NULL,
	media_count BIGINT NOT NULL,
	is_verified BOOLEAN NOT NULL,
	is_private BOOLEAN NOT NULL,
	PRIMARY KEY (run_id, id)
);
CREATE TABLE IF NOT EXISTS reels (
	run_id TEXT NOT NULL,
	collected_at TIMESTAMPTZ NOT NULL,
	account_id TEXT NOT NULL,
	account_username TEXT,
	media_id TEXT NOT NULL,
	code TEXT,
	taken_at BIGINT NOT NULL,
	views BIGINT NOT NULL,
	like_count BIGINT NOT NULL,
	comment_count BIGINT NOT NULL,
	caption_text TEXT,
	permalink TEXT,
	PRIMARY KEY (run_id, media_id)
);
`

// New creates a Postgres-backed store.Backend.
func New(ctx context.Context, dsn string) (store.Backend, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("create postgres pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("apply postgres schema: %w", err)
	}

	return &postgresBackend{pool: pool}, nil
}

func (b *postgresBackend) SaveAccount(ctx context.Context, a *store.Account) error {
	query := `
	INSERT INTO accounts (
		run_id, collected_at, id, username, full_name, surname, biography,
		external_url, follower_count, following_count, media_count, is_verified, is_private
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	ON CONFLICT (run_id, id) DO UPDATE SET
		collected_at = EXCLUDED.collected_at,
		username = EXCLUDED.username,
		full_name = EXCLUDED.full_name,
		surname = EXCLUDED.surname,
		biography = EXCLUDED.biography,
		external_url = EXCLUDED.external_url,
		follower_count = EXCLUDED.follower_count,
		following_count = EXCLUDED.following_count,
		media_count = EXCLUDED.media_count,
		is_verified = EXCLUDED.is_verified,
		is_private = EXCLUDED.is_private
	`

	_, err := b.pool.Exec(ctx, query,
		a.RunID, a.CollectedAt, a.ID, a.Username, a.FullName, a.Surname,
		a.Biography, a.ExternalURL, a.FollowerCount, a.FollowingCount,
		a.MediaCount, a.IsVerified, a.IsPrivate,
	)
	if err != nil {
		return fmt.Errorf("save account: %w", err)
	}
	return nil
}

func (b *postgresBackend) SaveReel(ctx context.Context, r *store.Reel) error {
	query := `
	INSERT INTO reels (
		run_id, collected_at, account_id, account_username, media_id, code,
		taken_at, views, like_count, comment_count, caption_text, permalink
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	ON CONFLICT (run_id, media_id) DO UPDATE SET
		collected_at = EXCLUDED.collected_at,
		views = EXCLUDED.views,
		like_count = EXCLUDED.like_count,
		comment_count = EXCLUDED.comment_count,
		caption_text = EXCLUDED.caption_text
	`

	_, err := b.pool.Exec(ctx, query,
		r.RunID, r.CollectedAt, r.AccountID, r.AccountUsername, r.MediaID,
		r.Code, r.TakenAt, r.Views, r.LikeCount, r.CommentCount,
		r.CaptionText, r.Permalink,
	)
	if err != nil {
		return fmt.Errorf("save reel: %w", err)
	}
	return nil
}

func (b *postgresBackend) QueryReels(ctx context.Context, filter store.Filter) ([]*store.Reel, error) {
	query := `SELECT run_id, collected_at, account_id, account_username, media_id, code,
		taken_at, views, like_count, comment_count, caption_text, permalink
		FROM reels WHERE 1=1`
	args := []any{}
	param := 1

	if filter.RunID != "" {
		query += fmt.Sprintf(` AND run_id = $%d`, param)
		args = append(args, filter.RunID)
		param++
	}
	if filter.AccountID != "" {
		query += fmt.Sprintf(` AND account_id = $%d`, param)
		args = append(args, filter.AccountID)
		param++
	}
	if filter.MinViews > 0 {
		query += fmt.Sprintf(` AND views >= $%d`, param)
		args = append(args, filter.MinViews)
		param++
	}

	query += ` ORDER BY collected_at DESC, views DESC`

	if filter.Limit > 0 {
		query += fmt.Sprintf(` LIMIT $%d`, param)
		args = append(args, filter.Limit)
		param++
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, param)
		args = append(args, filter.Offset)
		param++
	}

	rows, err := b.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query reels: %w", err)
	}
	defer rows.Close()

	var results []*store.Reel
	for rows.Next() {
		var r store.Reel
		err := rows.Scan(
			&r.RunID, &r.CollectedAt, &r.AccountID, &r.AccountUsername,
			&r.MediaID, &r.Code, &r.TakenAt, &r.Views, &r.LikeCount,
			&r.CommentCount, &r.CaptionText, &r.Permalink,
		)
		if err != nil {
			return nil, fmt.Errorf("scan reel row: %w", err)
		}
		results = append(results, &r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reel rows: %w", err)
	}

	return results, nil
}

func (b *postgresBackend) Close() error {
	b.pool.Close()
	return nil
}
