// Package store defines optional run persistence. Collected accounts and
// reels can be saved to a database for querying across runs; the Backend
// interface has SQLite and Postgres implementations in subpackages.
package store

import (
	"context"
	"time"

	"github.com/FranksOps/reelscout/internal/normalize"
)

// Account is one collected account row, tagged with the run that produced it.
type Account struct {
	RunID       string
	CollectedAt time.Time
	normalize.Account
}

// Reel is one collected reel row.
type Reel struct {
	RunID       string
	CollectedAt time.Time
	normalize.Reel
}

// Filter selects reel rows.
type Filter struct {
	RunID     string
	AccountID string
	MinViews  int64
	Limit     int
	Offset    int
}

// Backend stores and queries collected records.
type Backend interface {
	SaveAccount(ctx context.Context, a *Account) error
	SaveReel(ctx context.Context, r *Reel) error
	QueryReels(ctx context.Context, filter Filter) ([]*Reel, error)
	Close() error
}
