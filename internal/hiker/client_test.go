package hiker

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	c, err := New(Config{Token: "test-token", BaseURL: baseURL})
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}
	return c
}

func TestNew_RequiresToken(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Fatal("expected error for missing token")
	}
}

func TestSearchAccounts_Pagination(t *testing.T) {
	var gotKey string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("x-access-key")
		switch r.URL.Query().Get("page_token") {
		case "":
			fmt.Fprint(w, `{"users": [{"pk": 1, "username": "one"}, {"pk": 2, "username": "two"}], "has_more": true, "page_token": "p2"}`)
		case "p2":
			fmt.Fprint(w, `{"users": [{"pk": 3, "username": "three"}], "has_more": false}`)
		default:
			t.Errorf("unexpected page token %q", r.URL.Query().Get("page_token"))
		}
	}))
	defer ts.Close()

	accounts, err := newTestClient(t, ts.URL).SearchAccounts(context.Background(), "chess", 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if gotKey != "test-token" {
		t.Errorf("access key header = %q", gotKey)
	}
	if len(accounts) != 3 {
		t.Fatalf("expected 3 accounts, got %d", len(accounts))
	}
	if accounts[2]["username"] != "three" {
		t.Errorf("pagination order broken: %v", accounts[2])
	}
}

func TestSearchAccounts_NextPageTokenAlias(t *testing.T) {
	pages := 0
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		pages++
		if r.URL.Query().Get("page_token") == "" {
			fmt.Fprint(w, `{"users": [{"pk": 1}], "has_more": true, "next_page_token": "n2"}`)
			return
		}
		fmt.Fprint(w, `{"users": [{"pk": 2}], "has_more": false}`)
	}))
	defer ts.Close()

	accounts, err := newTestClient(t, ts.URL).SearchAccounts(context.Background(), "q", 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pages != 2 {
		t.Errorf("expected 2 pages walked, got %d", pages)
	}
	if len(accounts) != 2 {
		t.Errorf("expected 2 accounts, got %d", len(accounts))
	}
}

func TestSearchAccounts_DedupeAndCap(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"users": [
			{"pk": 1}, {"pk": 1}, {"id": "2"}, {"pk": 3}, {"username": "no_id"}
		], "has_more": false}`)
	}))
	defer ts.Close()

	accounts, err := newTestClient(t, ts.URL).SearchAccounts(context.Background(), "q", 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(accounts) != 2 {
		t.Fatalf("expected cap at 2 accounts, got %d", len(accounts))
	}
}

func TestSearchAccounts_ErrorEnvelopeStopsWalk(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"state": false, "error": "InsufficientFunds"}`)
	}))
	defer ts.Close()

	accounts, err := newTestClient(t, ts.URL).SearchAccounts(context.Background(), "q", 10)
	if err != nil {
		t.Fatalf("API error envelopes must not surface as errors, got %v", err)
	}
	if len(accounts) != 0 {
		t.Errorf("expected empty result, got %d", len(accounts))
	}
}

func TestSearchAccounts_HTTPErrorIsBestEffort(t *testing.T) {
	calls := 0
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			fmt.Fprint(w, `{"users": [{"pk": 7}], "has_more": true, "page_token": "p2"}`)
			return
		}
		http.Error(w, "upstream down", http.StatusBadGateway)
	}))
	defer ts.Close()

	accounts, err := newTestClient(t, ts.URL).SearchAccounts(context.Background(), "q", 10)
	if err != nil {
		t.Fatalf("mid-walk failures must not surface as errors, got %v", err)
	}
	// Partial results collected before the failure are kept
	if len(accounts) != 1 {
		t.Errorf("expected 1 account from the first page, got %d", len(accounts))
	}
}

func TestUserByID_UnwrapsEnvelopes(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{"user wrapper", `{"state": true, "user": {"pk": 5, "username": "u"}}`},
		{"data wrapper", `{"data": {"pk": 5, "username": "u"}}`},
		{"flat", `{"pk": 5, "username": "u"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if got := r.URL.Query().Get("id"); got != "5" {
					t.Errorf("id param = %q", got)
				}
				fmt.Fprint(w, tt.payload)
			}))
			defer ts.Close()

			profile, err := newTestClient(t, ts.URL).UserByID(context.Background(), "5")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if profile == nil {
				t.Fatal("expected a profile")
			}
			if profile["username"] != "u" {
				t.Errorf("unwrap failed: %v", profile)
			}
		})
	}
}

func TestUserByID_StateFalseYieldsNil(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"state": false, "exc_type": "UserNotFound"}`)
	}))
	defer ts.Close()

	profile, err := newTestClient(t, ts.URL).UserByID(context.Background(), "404")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if profile != nil {
		t.Errorf("expected nil profile, got %v", profile)
	}
}

func TestUserByID_EmptyPk(t *testing.T) {
	profile, err := newTestClient(t, "http://unused.invalid").UserByID(context.Background(), "")
	if err != nil || profile != nil {
		t.Errorf("expected nil, nil for empty pk, got %v, %v", profile, err)
	}
}

func TestUserClips_CapsAtCount(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[{"pk": 1}, {"pk": 2}, {"pk": 3}, {"pk": 4}]`)
	}))
	defer ts.Close()

	clips, err := newTestClient(t, ts.URL).UserClips(context.Background(), "9", 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(clips) != 2 {
		t.Errorf("expected 2 clips, got %d", len(clips))
	}
}

func TestUserClips_NonListIsEmpty(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"state": false, "error": "nope"}`)
	}))
	defer ts.Close()

	clips, err := newTestClient(t, ts.URL).UserClips(context.Background(), "9", 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(clips) != 0 {
		t.Errorf("expected no clips, got %d", len(clips))
	}
}

func TestUserClips_TransportFailureIsEmpty(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	addr := ts.URL
	ts.Close()

	clips, err := newTestClient(t, addr).UserClips(context.Background(), "9", 5)
	if err != nil {
		t.Fatalf("transport failures must not surface as errors, got %v", err)
	}
	if len(clips) != 0 {
		t.Errorf("expected no clips, got %d", len(clips))
	}
}
