package normalize

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Account is the stable account schema produced from raw HikerAPI payloads.
type Account struct {
	ID             string `json:"id"`
	Username       string `json:"username"`
	FullName       string `json:"full_name"`
	Surname        string `json:"surname,omitempty"`
	Biography      string `json:"biography,omitempty"`
	ExternalURL    string `json:"external_url,omitempty"`
	FollowerCount  int64  `json:"follower_count"`
	FollowingCount int64  `json:"following_count"`
	MediaCount     int64  `json:"media_count"`
	IsVerified     bool   `json:"is_verified"`
	IsPrivate      bool   `json:"is_private"`
}

// Reel is the stable reel schema. AccountID and AccountUsername link a reel
// back to its owning account.
type Reel struct {
	AccountID       string `json:"account_id"`
	AccountUsername string `json:"account_username"`
	MediaID         string `json:"media_id"`
	Code            string `json:"code,omitempty"`
	TakenAt         int64  `json:"taken_at"`
	Views           int64  `json:"views"`
	LikeCount       int64  `json:"like_count"`
	CommentCount    int64  `json:"comment_count"`
	CaptionText     string `json:"caption_text,omitempty"`
	Permalink       string `json:"permalink,omitempty"`
}

// AccountFrom maps a raw search hit plus an optional enriched profile payload
// to the stable Account schema. The enriched profile wins where both carry a
// value. Missing or malformed fields map to zero values, never errors.
func AccountFrom(raw, profile map[string]any) Account {
	src := profile
	if src == nil {
		src = raw
	}

	id := str(src, "pk")
	if id == "" {
		id = str(raw, "pk")
	}
	if id == "" {
		id = str(src, "id")
	}

	username := str(src, "username")
	if username == "" {
		username = str(raw, "username")
	}

	fullName := str(src, "full_name")
	if fullName == "" {
		fullName = str(raw, "full_name")
	}

	return Account{
		ID:             id,
		Username:       username,
		FullName:       fullName,
		Surname:        surname(fullName),
		Biography:      str(src, "biography"),
		ExternalURL:    str(src, "external_url"),
		FollowerCount:  num(src, "follower_count"),
		FollowingCount: num(src, "following_count"),
		MediaCount:     num(src, "media_count"),
		IsVerified:     boolean(src, "is_verified"),
		IsPrivate:      boolean(src, "is_private"),
	}
}

// ReelFrom maps a raw clip payload to the stable Reel schema. The upstream
// exposes several generations of field names for the same values; every known
// alias maps to the same normalized field.
func ReelFrom(raw map[string]any, accountID, accountUsername string) Reel {
	r := Reel{
		AccountID:       accountID,
		AccountUsername: accountUsername,
	}

	r.MediaID = str(raw, "pk")
	if r.MediaID == "" {
		r.MediaID = str(raw, "id")
	}

	r.Code = str(raw, "code")
	if r.Code == "" {
		r.Code = str(raw, "shortcode")
	}

	r.TakenAt = takenAt(raw)
	r.Views = firstNum(raw, "play_count", "view_count", "video_view_count")

	r.LikeCount = num(raw, "like_count")
	if _, ok := raw["like_count"]; !ok {
		r.LikeCount = edgeCount(raw, "edge_liked_by")
	}

	r.CommentCount = num(raw, "comment_count")
	if _, ok := raw["comment_count"]; !ok {
		r.CommentCount = edgeCount(raw, "edge_media_to_comment")
	}

	r.CaptionText = caption(raw)

	if r.Code != "" && accountUsername != "" {
		r.Permalink = "https://www.instagram.com/reel/" + r.Code + "/"
	}

	return r
}

// ID returns the account or media identifier from a raw payload, preferring
// pk over id and stringifying numeric values.
func ID(m map[string]any) string {
	if s := str(m, "pk"); s != "" {
		return s
	}
	return str(m, "id")
}

// surname returns the last whitespace-separated token of a full name, but
// only when the name has at least two tokens.
func surname(fullName string) string {
	parts := strings.Fields(fullName)
	if len(parts) < 2 {
		return ""
	}
	return parts[len(parts)-1]
}

// takenAt resolves the posting timestamp across the known shapes: a plain
// number under taken_at, taken_at_timestamp or timestamp, or an object with
// a nested timestamp field.
func takenAt(raw map[string]any) int64 {
	for _, key := range []string{"taken_at", "taken_at_timestamp", "timestamp"} {
		v, ok := raw[key]
		if !ok || v == nil {
			continue
		}
		if inner, ok := v.(map[string]any); ok {
			if ts := num(inner, "timestamp"); ts != 0 {
				return ts
			}
			continue
		}
		if n, ok := toInt64(v); ok {
			return n
		}
	}
	return 0
}

// caption resolves caption text: directly under caption_text, or nested in a
// caption object (text or caption_text), or a plain string caption.
func caption(raw map[string]any) string {
	if s := str(raw, "caption_text"); s != "" {
		return s
	}
	switch cap := raw["caption"].(type) {
	case map[string]any:
		if s := str(cap, "text"); s != "" {
			return s
		}
		return str(cap, "caption_text")
	case string:
		return cap
	}
	return ""
}

// str returns the string value under key, stringifying numeric IDs that some
// API versions return as numbers.
func str(m map[string]any, key string) string {
	if m == nil {
		return ""
	}
	switch v := m[key].(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	case float64:
		// IDs above 2^53 lose precision as float64; the decoder is expected
		// to use json.Number, this is a fallback for hand-built maps.
		return strconv.FormatInt(int64(v), 10)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	}
	return ""
}

// num returns the integer value under key, accepting the numeric shapes a
// loosely typed JSON decode can produce.
func num(m map[string]any, key string) int64 {
	if m == nil {
		return 0
	}
	if n, ok := toInt64(m[key]); ok {
		return n
	}
	return 0
}

// firstNum returns the first non-zero numeric value among keys.
func firstNum(m map[string]any, keys ...string) int64 {
	for _, key := range keys {
		if n := num(m, key); n != 0 {
			return n
		}
	}
	return 0
}

// edgeCount reads GraphQL-style {"count": n} wrappers.
func edgeCount(m map[string]any, key string) int64 {
	edge, ok := m[key].(map[string]any)
	if !ok {
		return 0
	}
	return num(edge, "count")
}

func boolean(m map[string]any, key string) bool {
	if m == nil {
		return false
	}
	b, _ := m[key].(bool)
	return b
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return i, true
		}
		if f, err := n.Float64(); err == nil {
			return int64(f), true
		}
	case float64:
		return int64(n), true
	case int:
		return int64(n), true
	case int64:
		return n, true
	case string:
		if i, err := strconv.ParseInt(n, 10, 64); err == nil {
			return i, true
		}
	}
	return 0, false
}
