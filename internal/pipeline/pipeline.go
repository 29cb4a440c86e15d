// Package pipeline orchestrates a collection run: account search, bounded
// per-account enrichment, normalization, top-K ranking and optional
// persistence. Everything past the initial search is best-effort with no
// ordering guarantees; accounts failing enrichment are skipped with a
// warning.
package pipeline

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/FranksOps/reelscout/internal/metrics"
	"github.com/FranksOps/reelscout/internal/normalize"
	"github.com/FranksOps/reelscout/internal/probe"
	"github.com/FranksOps/reelscout/internal/rank"
	"github.com/FranksOps/reelscout/internal/relevance"
	"github.com/FranksOps/reelscout/internal/store"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// API is the HikerAPI surface the pipeline consumes.
type API interface {
	SearchAccounts(ctx context.Context, query string, maxAccounts int) ([]map[string]any, error)
	UserByID(ctx context.Context, pk string) (map[string]any, error)
	UserClips(ctx context.Context, userID string, count int) ([]map[string]any, error)
}

// Config provides run parameters.
type Config struct {
	Query       string
	MaxAccounts int
	RecentReels int
	TopK        int
	// Concurrency caps simultaneous per-account enrichments.
	Concurrency int
	// RequireMatch drops accounts whose profile text never mentions the query.
	RequireMatch bool
	// RunID tags persisted records; generated when empty.
	RunID string
	// Store receives collected records when set.
	Store store.Backend
	// Prober checks each account's external_url when set.
	Prober *probe.Prober
	Logger *slog.Logger
}

// Result pairs one account with its ranked top reels.
type Result struct {
	Account  normalize.Account `json:"account"`
	TopReels []normalize.Reel  `json:"top_reels"`
	Link     *probe.Result     `json:"link,omitempty"`
}

// Stats counts what happened during a run.
type Stats struct {
	Candidates       int `json:"candidates"`
	Kept             int `json:"kept"`
	SkippedNoProfile int `json:"skipped_no_profile"`
	SkippedNoMatch   int `json:"skipped_no_match"`
	ReelsCollected   int `json:"reels_collected"`
}

// Outcome is the full product of one run.
type Outcome struct {
	RunID    string    `json:"run_id"`
	Query    string    `json:"query"`
	Results  []Result  `json:"results"`
	Stats    Stats     `json:"stats"`
	Started  time.Time `json:"started"`
	Finished time.Time `json:"finished"`
}

// Pipeline runs collection against an API client.
type Pipeline struct {
	api    API
	cfg    Config
	logger *slog.Logger
}

// New creates a pipeline, applying defaults for zero config values.
func New(api API, cfg Config) *Pipeline {
	if cfg.MaxAccounts <= 0 {
		cfg.MaxAccounts = 200
	}
	if cfg.RecentReels <= 0 {
		cfg.RecentReels = 50
	}
	if cfg.TopK <= 0 {
		cfg.TopK = 10
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 10
	}
	if cfg.RunID == "" {
		cfg.RunID = uuid.New().String()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{api: api, cfg: cfg, logger: logger}
}

// Run executes the full collection. On context cancellation the outcome
// carries whatever was collected so far alongside the error, so partial
// results can still be written.
func (p *Pipeline) Run(ctx context.Context) (*Outcome, error) {
	outcome := &Outcome{
		RunID:   p.cfg.RunID,
		Query:   p.cfg.Query,
		Started: time.Now().UTC(),
	}

	p.logger.Info("searching accounts", "query", p.cfg.Query, "max", p.cfg.MaxAccounts)
	candidates, err := p.api.SearchAccounts(ctx, p.cfg.Query, p.cfg.MaxAccounts)
	if err != nil {
		outcome.Finished = time.Now().UTC()
		return outcome, err
	}
	outcome.Stats.Candidates = len(candidates)
	p.logger.Info("found candidate accounts", "count", len(candidates))

	var mu sync.Mutex
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.Concurrency)

	for _, raw := range candidates {
		g.Go(func() error {
			if gCtx.Err() != nil {
				return gCtx.Err()
			}
			res, outcomeTag := p.processAccount(gCtx, raw)
			metrics.RecordAccount(outcomeTag)

			mu.Lock()
			defer mu.Unlock()
			switch outcomeTag {
			case "kept":
				outcome.Results = append(outcome.Results, *res)
				outcome.Stats.Kept++
				outcome.Stats.ReelsCollected += len(res.TopReels)
			case "no_profile":
				outcome.Stats.SkippedNoProfile++
			case "no_match":
				outcome.Stats.SkippedNoMatch++
			}
			return nil
		})
	}

	err = g.Wait()

	// Final ordering: most-followed accounts first
	sort.SliceStable(outcome.Results, func(i, j int) bool {
		return outcome.Results[i].Account.FollowerCount > outcome.Results[j].Account.FollowerCount
	})

	outcome.Finished = time.Now().UTC()
	return outcome, err
}

// processAccount enriches one raw search hit. Returns the result and an
// outcome tag: "kept", "no_profile" or "no_match".
func (p *Pipeline) processAccount(ctx context.Context, raw map[string]any) (*Result, string) {
	pk := normalize.ID(raw)
	username, _ := raw["username"].(string)
	p.logger.Info("processing account", "username", username, "pk", pk)

	profile, err := p.api.UserByID(ctx, pk)
	if err != nil || profile == nil {
		p.logger.Warn("skipping account: no profile", "username", username, "pk", pk)
		return nil, "no_profile"
	}

	account := normalize.AccountFrom(raw, profile)
	if account.ID == "" {
		p.logger.Warn("skipping account: no usable id", "username", username)
		return nil, "no_profile"
	}

	if p.cfg.RequireMatch && !relevance.MatchesProfile(account, p.cfg.Query) {
		p.logger.Debug("skipping account: profile does not mention query",
			"username", account.Username, "query", p.cfg.Query)
		return nil, "no_match"
	}

	clips, err := p.api.UserClips(ctx, account.ID, p.cfg.RecentReels)
	if err != nil {
		p.logger.Warn("clips fetch failed", "username", account.Username, "err", err)
		clips = nil
	}

	reels := make([]normalize.Reel, 0, len(clips))
	for _, c := range clips {
		reels = append(reels, normalize.ReelFrom(c, account.ID, account.Username))
	}

	res := &Result{
		Account:  account,
		TopReels: rank.TopReels(reels, p.cfg.TopK),
	}

	if p.cfg.Prober != nil && account.ExternalURL != "" {
		res.Link = p.cfg.Prober.Probe(ctx, account.ExternalURL)
	}

	p.persist(ctx, res)
	return res, "kept"
}

// persist saves the result to the configured store backend. Store failures
// are logged, never fatal.
func (p *Pipeline) persist(ctx context.Context, res *Result) {
	if p.cfg.Store == nil {
		return
	}
	now := time.Now().UTC()

	if err := p.cfg.Store.SaveAccount(ctx, &store.Account{
		RunID:       p.cfg.RunID,
		CollectedAt: now,
		Account:     res.Account,
	}); err != nil {
		p.logger.Error("failed to persist account", "id", res.Account.ID, "err", err)
	}

	for _, r := range res.TopReels {
		if err := p.cfg.Store.SaveReel(ctx, &store.Reel{
			RunID:       p.cfg.RunID,
			CollectedAt: now,
			Reel:        r,
		}); err != nil {
			p.logger.Error("failed to persist reel", "media_id", r.MediaID, "err", err)
		}
	}
}
