// Package export writes run results to the three output files: a JSONL file
// pairing each account with its top reels, and two CSV files with fixed
// column sets for accounts and reels.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/FranksOps/reelscout/internal/pipeline"
)

// accountHeaders defines the accounts CSV column order.
var accountHeaders = []string{
	"id", "username", "full_name", "surname", "biography", "external_url",
	"follower_count", "following_count", "media_count", "is_verified", "is_private",
}

// reelHeaders defines the reels CSV column order.
var reelHeaders = []string{
	"account_id", "account_username", "media_id", "code", "taken_at", "views",
	"like_count", "comment_count", "caption_text", "permalink",
}

// BasePath resolves an output prefix into a base path: parent directories are
// created and a trailing extension is stripped.
func BasePath(prefix string) (string, error) {
	if prefix == "" {
		return "", fmt.Errorf("output prefix is empty")
	}
	if dir := filepath.Dir(prefix); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return "", fmt.Errorf("create output directory: %w", err)
		}
	}
	if ext := filepath.Ext(prefix); ext != "" {
		prefix = strings.TrimSuffix(prefix, ext)
	}
	return prefix, nil
}

// WriteAll writes all three output files under the given prefix and returns
// the paths written.
func WriteAll(prefix string, results []pipeline.Result) ([]string, error) {
	base, err := BasePath(prefix)
	if err != nil {
		return nil, err
	}

	jsonlPath := base + "_accounts.jsonl"
	accountsPath := base + "_accounts.csv"
	reelsPath := base + "_reels.csv"

	if err := WriteJSONL(jsonlPath, results); err != nil {
		return nil, err
	}
	if err := WriteAccountsCSV(accountsPath, results); err != nil {
		return nil, err
	}
	if err := WriteReelsCSV(reelsPath, results); err != nil {
		return nil, err
	}

	return []string{jsonlPath, accountsPath, reelsPath}, nil
}

// WriteJSONL writes one JSON object per line, each pairing an account with
// its top reels.
func WriteJSONL(path string, results []pipeline.Result) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	for i := range results {
		if err := enc.Encode(&results[i]); err != nil {
			return fmt.Errorf("encode record: %w", err)
		}
	}

	return f.Close()
}

// WriteAccountsCSV writes the accounts table with its fixed column set.
func WriteAccountsCSV(path string, results []pipeline.Result) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(accountHeaders); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for _, res := range results {
		a := res.Account
		record := []string{
			a.ID,
			a.Username,
			a.FullName,
			a.Surname,
			a.Biography,
			a.ExternalURL,
			strconv.FormatInt(a.FollowerCount, 10),
			strconv.FormatInt(a.FollowingCount, 10),
			strconv.FormatInt(a.MediaCount, 10),
			strconv.FormatBool(a.IsVerified),
			strconv.FormatBool(a.IsPrivate),
		}
		if err := w.Write(record); err != nil {
			return fmt.Errorf("write account row: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return f.Close()
}

// WriteReelsCSV writes the reels table, one row per top reel, with the
// account foreign keys leading each row.
func WriteReelsCSV(path string, results []pipeline.Result) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(reelHeaders); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for _, res := range results {
		for _, r := range res.TopReels {
			record := []string{
				r.AccountID,
				r.AccountUsername,
				r.MediaID,
				r.Code,
				strconv.FormatInt(r.TakenAt, 10),
				strconv.FormatInt(r.Views, 10),
				strconv.FormatInt(r.LikeCount, 10),
				strconv.FormatInt(r.CommentCount, 10),
				r.CaptionText,
				r.Permalink,
			}
			if err := w.Write(record); err != nil {
				return fmt.Errorf("write reel row: %w", err)
			}
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return f.Close()
}
