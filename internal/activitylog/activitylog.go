// Package activitylog implements the user-facing activity feed
// (SPEC_FULL's Supplemented Features §4), grounded on
// original_source/src-tauri/src/config.rs's ActivityLogEntry struct
// (timestamp, type, provider, message, details) and
// add_activity_log_command/get_activity_logs_command's read/append
// split. It is deliberately independent of the zerolog-backed
// internal/logging package: zerolog carries operational diagnostics
// for developers, this carries a short, user-legible history of what
// the sync core has done, the same distinction the Rust original draws
// between its `log::info!` calls and its explicit ActivityLogEntry
// pushes.
package activitylog

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"guideai/internal/guideerr"
)

// Entry is one activity-feed record.
type Entry struct {
	Timestamp time.Time       `json:"timestamp"`
	Type      string          `json:"type"`
	Provider  string          `json:"provider"`
	Message   string          `json:"message"`
	Details   json.RawMessage `json:"details,omitempty"`
}

// Entry types mirroring the categories the Rust UI's activity feed
// groups by.
const (
	TypeSessionDiscovered = "session_discovered"
	TypeUploadSucceeded   = "upload_succeeded"
	TypeUploadFailed      = "upload_failed"
	TypeError             = "error"
)

// DefaultCapacity bounds the in-memory ring so a long-running process
// never grows this unboundedly; the JSONL file on disk is the durable
// record, the ring is only a cheap "recent activity" read path for a UI
// that doesn't want to re-read the whole file each poll.
const DefaultCapacity = 500

// Log is a mutex-guarded ring buffer plus an append-only JSONL sink.
type Log struct {
	mu       sync.Mutex
	path     string
	capacity int
	ring     []Entry
	next     int
	filled   bool
}

// Open opens (creating if necessary) the JSONL sink at path and
// constructs a Log with the given ring capacity (DefaultCapacity if
// capacity <= 0). It does not replay the file into the ring: the ring
// only ever reflects entries appended by this process instance.
func Open(path string, capacity int) (*Log, error) {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, guideerr.Wrap(guideerr.KindIO, "create activity log directory", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, guideerr.Wrap(guideerr.KindIO, "open activity log file", err)
	}
	f.Close()
	return &Log{path: path, capacity: capacity, ring: make([]Entry, capacity)}, nil
}

// Append records one entry: pushed into the in-memory ring and
// appended as one JSON line to the on-disk sink. A disk write failure
// is returned but does not roll back the ring update — the feed stays
// usable in-process even if the disk is briefly unwritable.
func (l *Log) Append(entryType, provider, message string, details json.RawMessage) error {
	e := Entry{
		Timestamp: time.Now().UTC(),
		Type:      entryType,
		Provider:  provider,
		Message:   message,
		Details:   details,
	}

	l.mu.Lock()
	l.ring[l.next] = e
	l.next = (l.next + 1) % l.capacity
	if l.next == 0 {
		l.filled = true
	}
	l.mu.Unlock()

	line, err := json.Marshal(e)
	if err != nil {
		return guideerr.Wrap(guideerr.KindJSON, "marshal activity log entry", err)
	}
	line = append(line, '\n')

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return guideerr.Wrap(guideerr.KindIO, "open activity log file for append", err)
	}
	defer f.Close()
	if _, err := f.Write(line); err != nil {
		return guideerr.Wrap(guideerr.KindIO, "append activity log entry", err)
	}
	return nil
}

// Recent returns the in-memory ring's entries in chronological order,
// oldest first.
func (l *Log) Recent() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.filled {
		out := make([]Entry, l.next)
		copy(out, l.ring[:l.next])
		return out
	}
	out := make([]Entry, l.capacity)
	copy(out, l.ring[l.next:])
	copy(out[l.capacity-l.next:], l.ring[:l.next])
	return out
}
