// Package store implements the Canonical Session Store (spec §2 item
// 3 / §4.2): the on-disk layout every provider parser writes to and
// every downstream component (watcher, catalog, upload queue) reads
// from exclusively. Centralized here because all six parsers share
// the identical path-sanitization and write rules; this is shared
// plumbing, not per-provider duplication.
package store

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"guideai/internal/canonical"
	"guideai/internal/guideerr"
)

var invalidProjectChars = regexp.MustCompile(`[/\\:*?"<>|\s]+`)

// SanitizeProjectName replaces path-hostile and whitespace characters
// with `-`, trims leading/trailing `-`, and reports ok=false when
// nothing usable remains — callers must fail the session rather than
// cache it under an "unknown" bucket (spec §4.2).
func SanitizeProjectName(name string) (sanitized string, ok bool) {
	s := invalidProjectChars.ReplaceAllString(name, "-")
	s = strings.Trim(s, "-")
	if s == "" {
		return "", false
	}
	return s, true
}

// Path returns {sessionsRoot}/{provider}/{sanitizedProject}/{sessionID}.jsonl.
func Path(sessionsRoot, provider, projectName, sessionID string) (string, error) {
	sanitized, ok := SanitizeProjectName(projectName)
	if !ok {
		return "", guideerr.New(guideerr.KindValidation, "no usable project name for session "+sessionID)
	}
	return filepath.Join(sessionsRoot, provider, sanitized, sessionID+".jsonl"), nil
}

// Write renders messages as canonical JSONL and writes them to the
// session's canonical path with owner-only permissions (spec §6),
// creating parent directories as needed. Returns the path written.
func Write(sessionsRoot, provider, projectName, sessionID string, messages []canonical.Message) (string, error) {
	path, err := Path(sessionsRoot, provider, projectName, sessionID)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return "", guideerr.Wrap(guideerr.KindIO, "create canonical store directory", err)
	}
	data, err := canonical.ToJSONL(messages)
	if err != nil {
		return "", guideerr.Wrap(guideerr.KindJSON, "serialize canonical messages", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", guideerr.Wrap(guideerr.KindIO, "write canonical file", err)
	}
	return path, nil
}

// Timing holds the derived (start, end, duration) triple the watcher
// extracts from a canonical file's first/last timestamps (spec §4.3).
type Timing struct {
	StartTime  time.Time
	EndTime    time.Time
	DurationMs int64
	HasTiming  bool
}

// ExtractTiming parses every message's RFC-3339 timestamp and returns
// the earliest/latest. Messages need not be in timestamp order.
func ExtractTiming(messages []canonical.Message) Timing {
	var times []time.Time
	for _, m := range messages {
		if t, err := parseTimestamp(m.Timestamp); err == nil {
			times = append(times, t)
		}
	}
	if len(times) == 0 {
		return Timing{}
	}
	sort.Slice(times, func(i, j int) bool { return times[i].Before(times[j]) })
	start, end := times[0], times[len(times)-1]
	return Timing{
		StartTime:  start,
		EndTime:    end,
		DurationMs: end.Sub(start).Milliseconds(),
		HasTiming:  true,
	}
}

func parseTimestamp(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}

// FileHash returns the lowercase hex SHA-256 of a canonical session
// file's contents, the content hash the catalog and upload queue use
// for dedup (spec §3's "content hash (SHA-256 hex)").
func FileHash(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", guideerr.Wrap(guideerr.KindIO, "read canonical file for hashing", err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// HasParseableTimestamp reports whether at least one line of content
// carries a parseable timestamp field, the JSONL timestamp gate
// required before a file may be enqueued for upload (spec §7).
func HasParseableTimestamp(messages []canonical.Message) bool {
	for _, m := range messages {
		if _, err := parseTimestamp(m.Timestamp); err == nil {
			return true
		}
	}
	return false
}
