// Package relevance scores how strongly an account relates to a search
// keyword by counting case-insensitive occurrences across profile text and
// reel captions.
package relevance

import (
	"strings"

	"github.com/FranksOps/reelscout/internal/normalize"
)

// FieldHit records occurrences of the keyword within one profile field.
type FieldHit struct {
	Field string `json:"field"`
	Count int    `json:"count"`
}

// ProfileHits scans username, full_name and biography for the keyword and
// returns per-field occurrence counts. Fields without a hit are omitted.
func ProfileHits(acc normalize.Account, keyword string) []FieldHit {
	term := strings.ToLower(strings.TrimSpace(keyword))
	if term == "" {
		return nil
	}

	fields := []struct {
		name  string
		value string
	}{
		{"username", acc.Username},
		{"full_name", acc.FullName},
		{"biography", acc.Biography},
	}

	var hits []FieldHit
	for _, f := range fields {
		if f.value == "" {
			continue
		}
		if n := strings.Count(strings.ToLower(f.value), term); n > 0 {
			hits = append(hits, FieldHit{Field: f.name, Count: n})
		}
	}
	return hits
}

// CaptionHits counts keyword occurrences across reel captions.
func CaptionHits(reels []normalize.Reel, keyword string) int {
	term := strings.ToLower(strings.TrimSpace(keyword))
	if term == "" {
		return 0
	}
	total := 0
	for _, r := range reels {
		if r.CaptionText == "" {
			continue
		}
		total += strings.Count(strings.ToLower(r.CaptionText), term)
	}
	return total
}

// MatchesProfile reports whether the keyword occurs anywhere in the profile
// text. Multi-word keywords match on any single word to avoid dropping
// accounts over word order.
func MatchesProfile(acc normalize.Account, keyword string) bool {
	if len(ProfileHits(acc, keyword)) > 0 {
		return true
	}
	words := strings.Fields(keyword)
	if len(words) < 2 {
		return false
	}
	for _, w := range words {
		if len(ProfileHits(acc, w)) > 0 {
			return true
		}
	}
	return false
}
