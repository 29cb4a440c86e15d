package errlog

import (
	"bufio"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestLog_Record(t *testing.T) {
	path := filepath.Join(t.TempDir(), "error_log.jsonl")

	l, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	l.Record("search_accounts", errors.New("boom"), map[string]any{"query": "chess"})
	l.Record("user_by_id", nil, map[string]any{"pk": "42"})

	if err := l.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("failed to reopen log: %v", err)
	}
	defer f.Close()

	var records []map[string]any
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var rec map[string]any
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			t.Fatalf("malformed line: %v", err)
		}
		records = append(records, rec)
	}

	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}

	first := records[0]
	if first["context"] != "search_accounts" {
		t.Errorf("context = %v", first["context"])
	}
	if first["query"] != "chess" {
		t.Errorf("query = %v", first["query"])
	}
	if first["error_message"] != "boom" {
		t.Errorf("error_message = %v", first["error_message"])
	}
	if first["ts"] == nil {
		t.Error("missing ts")
	}

	second := records[1]
	if _, ok := second["error_message"]; ok {
		t.Error("nil error should not produce error_message")
	}
	if second["pk"] != "42" {
		t.Errorf("pk = %v", second["pk"])
	}
}

func TestLog_NilIsNoop(t *testing.T) {
	var l *Log
	l.Record("anything", errors.New("x"), nil)
	if err := l.Close(); err != nil {
		t.Errorf("nil Close should succeed, got %v", err)
	}
}

func TestLog_Appends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "error_log.jsonl")

	l1, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	l1.Record("first", nil, nil)
	l1.Close()

	l2, err := Open(path)
	if err != nil {
		t.Fatalf("second Open failed: %v", err)
	}
	l2.Record("second", nil, nil)
	l2.Close()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	lines := 0
	for _, b := range data {
		if b == '\n' {
			lines++
		}
	}
	if lines != 2 {
		t.Errorf("expected 2 lines after reopen, got %d", lines)
	}
}
