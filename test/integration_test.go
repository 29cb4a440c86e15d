//go:build integration

package test

import (
	"bufio"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"log/slog"

	"github.com/FranksOps/reelscout/internal/export"
	"github.com/FranksOps/reelscout/internal/hiker"
	"github.com/FranksOps/reelscout/internal/pipeline"
	"github.com/FranksOps/reelscout/internal/store/sqlite"
)

// fakeHikerAPI serves two search pages, per-user profiles and clips in the
// mix of payload shapes the real gateway produces.
func fakeHikerAPI(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()

	mux.HandleFunc("/v2/search/accounts", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-access-key") != "test-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Query().Get("page_token") == "" {
			fmt.Fprint(w, `{
				"users": [
					{"pk": "101", "username": "coach_amy", "full_name": "Amy Stone Fit", "follower_count": 5000},
					{"pk": "102", "username": "coach_bob", "full_name": "Bob", "follower_count": 9000}
				],
				"has_more": true,
				"next_page_token": "p2"
			}`)
			return
		}
		// Second page repeats one account to exercise dedup
		fmt.Fprint(w, `{
			"users": [
				{"pk": "102", "username": "coach_bob"},
				{"id": "103", "username": "coach_cat", "follower_count": 100}
			],
			"has_more": false
		}`)
	})

	mux.HandleFunc("/v2/user/by/id", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Query().Get("id") {
		case "101":
			fmt.Fprint(w, `{"user": {"pk": "101", "username": "coach_amy", "full_name": "Amy Stone Fit",
				"biography": "fitness coaching daily", "follower_count": 5100, "is_verified": true}}`)
		case "102":
			fmt.Fprint(w, `{"data": {"pk": "102", "username": "coach_bob", "full_name": "Bob Lee",
				"biography": "pilates", "follower_count": 9100}}`)
		default:
			// Account with no retrievable profile
			fmt.Fprint(w, `{"state": false, "error": "account not found"}`)
		}
	})

	mux.HandleFunc("/v2/user/clips", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Query().Get("user_id") {
		case "101":
			fmt.Fprint(w, `[
				{"pk": "m1", "code": "AAA", "taken_at": 1700000300, "play_count": 50},
				{"id": "m2", "shortcode": "BBB", "taken_at_timestamp": 1700000100, "view_count": 900},
				{"pk": "m3", "code": "CCC", "timestamp": {"timestamp": 1700000200}, "video_view_count": 900}
			]`)
		default:
			fmt.Fprint(w, `[]`)
		}
	})

	return httptest.NewServer(mux)
}

func TestIntegration_FullRun(t *testing.T) {
	srv := fakeHikerAPI(t)
	defer srv.Close()

	client, err := hiker.New(hiker.Config{
		Token:   "test-token",
		BaseURL: srv.URL,
		Logger:  slog.Default(),
	})
	if err != nil {
		t.Fatalf("create client: %v", err)
	}

	dir := t.TempDir()
	backend, err := sqlite.New(filepath.Join(dir, "run.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	defer backend.Close()

	p := pipeline.New(client, pipeline.Config{
		Query:       "fitness coach",
		MaxAccounts: 10,
		RecentReels: 50,
		TopK:        2,
		Concurrency: 2,
		RunID:       "integration-run",
		Store:       backend,
	})

	outcome, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if outcome.Stats.Candidates != 3 {
		t.Errorf("expected 3 deduped candidates, got %d", outcome.Stats.Candidates)
	}
	if outcome.Stats.Kept != 2 {
		t.Errorf("expected 2 kept accounts, got %d", outcome.Stats.Kept)
	}
	if outcome.Stats.SkippedNoProfile != 1 {
		t.Errorf("expected 1 account skipped for missing profile, got %d", outcome.Stats.SkippedNoProfile)
	}

	// Accounts come back sorted by follower count, profile values winning
	if len(outcome.Results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(outcome.Results))
	}
	if outcome.Results[0].Account.Username != "coach_bob" {
		t.Errorf("expected coach_bob first by followers, got %q", outcome.Results[0].Account.Username)
	}
	amy := outcome.Results[1]
	if amy.Account.FollowerCount != 5100 {
		t.Errorf("expected profile follower_count 5100, got %d", amy.Account.FollowerCount)
	}
	if amy.Account.Surname != "Fit" {
		t.Errorf("expected surname Fit, got %q", amy.Account.Surname)
	}

	// Top-K: views desc, taken_at desc as tiebreak, truncated to k=2
	if len(amy.TopReels) != 2 {
		t.Fatalf("expected 2 top reels, got %d", len(amy.TopReels))
	}
	if amy.TopReels[0].MediaID != "m3" || amy.TopReels[1].MediaID != "m2" {
		t.Errorf("unexpected reel order: %s, %s", amy.TopReels[0].MediaID, amy.TopReels[1].MediaID)
	}
	if amy.TopReels[0].Permalink != "https://www.instagram.com/reel/CCC/" {
		t.Errorf("unexpected permalink: %q", amy.TopReels[0].Permalink)
	}

	writeAndCheckOutputs(t, dir, outcome)
}

func writeAndCheckOutputs(t *testing.T, dir string, outcome *pipeline.Outcome) {
	t.Helper()

	prefix := filepath.Join(dir, "out", "instagram_accounts")
	paths, err := export.WriteAll(prefix, outcome.Results)
	if err != nil {
		t.Fatalf("write outputs: %v", err)
	}
	if len(paths) != 3 {
		t.Fatalf("expected 3 output files, got %d", len(paths))
	}

	f, err := os.Open(prefix + "_accounts.jsonl")
	if err != nil {
		t.Fatalf("open jsonl: %v", err)
	}
	defer f.Close()

	var lines int
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var rec pipeline.Result
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			t.Fatalf("bad jsonl line: %v", err)
		}
		lines++
	}
	if lines != 2 {
		t.Errorf("expected 2 jsonl lines, got %d", lines)
	}

	for _, name := range []string{"_accounts.csv", "_reels.csv"} {
		cf, err := os.Open(prefix + name)
		if err != nil {
			t.Fatalf("open %s: %v", name, err)
		}
		rows, err := csv.NewReader(cf).ReadAll()
		cf.Close()
		if err != nil {
			t.Fatalf("read %s: %v", name, err)
		}
		if len(rows) < 2 {
			t.Errorf("expected header plus data rows in %s, got %d rows", name, len(rows))
		}
	}
}
