// Package uploadqueue implements the Upload Queue (spec §4.7): a FIFO
// of UploadItems drained by a bounded pool of concurrent workers, a
// client-side dedup cache, and an exponential-backoff retry state
// machine. Grounded on original_source's upload_queue module — same
// queue/failed-items/uploaded-hashes/semaphore shape, translated from
// an Arc<Mutex<..>>-per-field struct into one mutex-guarded Go struct,
// and on retry.rs's classification and backoff rules verbatim.
package uploadqueue

import (
	"time"

	"guideai/internal/config"
)

// State is an UploadItem's position in spec §4.7's state machine:
// Pending → InFlight → (Success | FailureTransient | FailurePermanent);
// FailureTransient returns to Pending once NextRetryAt has passed;
// FailurePermanent becomes the terminal Failed.
type State string

const (
	StatePending          State = "pending"
	StateInFlight         State = "in_flight"
	StateSuccess          State = "success"
	StateFailureTransient State = "failure_transient"
	StateFailurePermanent State = "failure_permanent"
	StateFailed           State = "failed"
)

// ErrorType classifies an upload failure for the retry decision, per
// spec §4.7's substring table.
type ErrorType int

const (
	NetworkError ErrorType = iota
	ServerError
	ClientError
)

// Defaults mirror original_source's types::{DB_POLL_INTERVAL_SECS,
// MAX_CONCURRENT_UPLOADS, MAX_UPLOADED_HASHES} and retry::RetryStrategy's
// default.
const (
	DefaultMaxConcurrentUploads = 3
	DefaultMaxUploadedHashes    = 10_000
	DefaultPollInterval         = 10 * time.Second
	DefaultMaxRetries           = 3
	DefaultBackoffBaseSeconds   = 2
)

// UploadItem is one queued upload, identified by its UUID. SourcePath
// is set for a file-backed upload; Content holds in-memory content for
// a historical/backfilled session instead.
type UploadItem struct {
	ID          string
	Provider    string
	ProjectName string
	SessionID   string
	SourcePath  string
	Content     string
	Cwd         string
	SyncMode    config.SyncMode

	FileSize int64
	FileHash string

	State       State
	RetryCount  int
	NextRetryAt time.Time
	LastError   string
	QueuedAt    time.Time
}

// readyAt reports whether the item's backoff window has elapsed.
func (u UploadItem) readyAt(now time.Time) bool {
	return u.NextRetryAt.IsZero() || !u.NextRetryAt.After(now)
}
