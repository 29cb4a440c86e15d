// Package errlog appends structured debug records for failed API calls to a
// JSONL file. It is strictly best-effort: a nil *Log is a valid no-op sink
// and write failures are swallowed, so a broken disk never fails a run.
package errlog

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"
)

type Log struct {
	mu   sync.Mutex
	file *os.File
}

// Open creates or appends to the JSONL file at path.
func Open(path string) (*Log, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("open error log: %w", err)
	}
	return &Log{file: f}, nil
}

// Record appends one debug record tagged with context. fields carry
// call-specific detail (query, pk, payload). If err is non-nil its type and
// message are included.
func (l *Log) Record(context string, err error, fields map[string]any) {
	if l == nil {
		return
	}

	record := map[string]any{
		"ts":      time.Now().UTC().Format(time.RFC3339Nano),
		"context": context,
	}
	for k, v := range fields {
		record[k] = v
	}
	if err != nil {
		record["error_type"] = fmt.Sprintf("%T", err)
		record["error_message"] = err.Error()
	}

	data, merr := json.Marshal(record)
	if merr != nil {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	_, _ = l.file.Write(append(data, '\n'))
}

func (l *Log) Close() error {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.file.Close()
}
