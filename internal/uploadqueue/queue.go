package uploadqueue

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"guideai/internal/activitylog"
	"guideai/internal/catalog"
	"guideai/internal/config"
	"guideai/internal/gitmeta"
	"guideai/internal/guideerr"
	"guideai/internal/logging"
)

var log = logging.For("upload-queue")

// Queue is the process-wide Upload Queue: a mutex-guarded FIFO, a
// bounded worker pool, and the client-side dedup cache, mirroring
// original_source's UploadQueue struct (queue/failed_items/
// uploaded_hashes/upload_semaphore), collapsed into one Go type since
// Go's zero-cost mutexes make the Rust file's four separate Arc<Mutex<..>>
// fields unnecessary.
type Queue struct {
	mu      sync.Mutex
	pending []*UploadItem
	failed  []*UploadItem

	hashes *hashCache
	sem    *semaphore.Weighted
	client *apiClient
	store  *catalog.Store
	retry  RetryStrategy

	pollInterval time.Duration
	activity     *activitylog.Log
}

// Config configures a new Queue.
type Config struct {
	ServerURL         string
	APIKey            string
	Store             *catalog.Store
	MaxConcurrent     int64
	MaxUploadedHashes int
	PollInterval      time.Duration
	Retry             RetryStrategy
	// Activity, if set, receives a feed entry for every terminal upload
	// outcome (success, permanent failure). Nil disables the feed.
	Activity *activitylog.Log
}

// New constructs a Queue, applying spec §4.7's defaults for any unset
// Config field.
func New(cfg Config) *Queue {
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = DefaultMaxConcurrentUploads
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.Retry == (RetryStrategy{}) {
		cfg.Retry = DefaultRetryStrategy()
	}
	return &Queue{
		hashes:       newHashCache(cfg.MaxUploadedHashes),
		sem:          semaphore.NewWeighted(cfg.MaxConcurrent),
		client:       newAPIClient(cfg.ServerURL, cfg.APIKey),
		store:        cfg.Store,
		retry:        cfg.Retry,
		pollInterval: cfg.PollInterval,
		activity:     cfg.Activity,
	}
}

// Enqueue admits an item per spec §4.7's intake rule: sync_mode
// "Nothing" short-circuits before enqueue; a file hash already seen in
// this process's dedup cache is dropped silently.
func (q *Queue) Enqueue(item UploadItem) bool {
	if item.SyncMode == config.SyncNothing {
		return false
	}
	if item.FileHash != "" && q.hashes.Contains(item.FileHash) {
		log.Debug().Str("session_id", item.SessionID).Msg("dedup: file hash already uploaded this process")
		return false
	}
	item.State = StatePending
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	if item.QueuedAt.IsZero() {
		item.QueuedAt = time.Now()
	}

	q.mu.Lock()
	q.pending = append(q.pending, &item)
	q.mu.Unlock()
	return true
}

// PendingCount reports how many items are queued or awaiting retry,
// part of the status surface spec §4.7 implies the UI reads.
func (q *Queue) PendingCount() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Failed returns a snapshot of items that exhausted their retries.
func (q *Queue) Failed() []UploadItem {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]UploadItem, len(q.failed))
	for i, f := range q.failed {
		out[i] = *f
	}
	return out
}

// Run starts the worker pool and the periodic resync poll, blocking
// until ctx is cancelled. resync is invoked every PollInterval to
// recover sessions whose catalog state advanced without a fresh
// SessionChanged event (spec §4.7's "re-examines its source every
// 10s").
func (q *Queue) Run(ctx context.Context, resync func(context.Context) ([]UploadItem, error)) {
	var wg sync.WaitGroup
	ticker := time.NewTicker(q.pollInterval)
	defer ticker.Stop()

	dispatch := time.NewTicker(200 * time.Millisecond)
	defer dispatch.Stop()

	for {
		select {
		case <-ctx.Done():
			wg.Wait()
			return
		case <-ticker.C:
			if resync == nil {
				continue
			}
			items, err := resync(ctx)
			if err != nil {
				log.Warn().Err(err).Msg("upload queue resync failed")
				continue
			}
			for _, item := range items {
				q.Enqueue(item)
			}
		case <-dispatch.C:
			item := q.nextReady()
			if item == nil {
				continue
			}
			if err := q.sem.Acquire(ctx, 1); err != nil {
				continue
			}
			wg.Add(1)
			go func(it *UploadItem) {
				defer wg.Done()
				defer q.sem.Release(1)
				q.process(ctx, it)
			}(item)
		}
	}
}

// nextReady pops the first pending item whose backoff window has
// elapsed, transitioning it to InFlight under the queue lock.
func (q *Queue) nextReady() *UploadItem {
	q.mu.Lock()
	defer q.mu.Unlock()
	now := time.Now()
	for i, item := range q.pending {
		if item.State != StatePending || !item.readyAt(now) {
			continue
		}
		item.State = StateInFlight
		q.pending = append(q.pending[:i], q.pending[i+1:]...)
		return item
	}
	return nil
}

func (q *Queue) requeue(item *UploadItem) {
	q.mu.Lock()
	defer q.mu.Unlock()
	item.State = StatePending
	q.pending = append(q.pending, item)
}

func (q *Queue) fail(item *UploadItem) {
	q.mu.Lock()
	defer q.mu.Unlock()
	item.State = StateFailed
	q.failed = append(q.failed, item)
}

// process performs one upload attempt and transitions the item per
// spec §4.7's state machine.
func (q *Queue) process(ctx context.Context, item *UploadItem) {
	err := q.upload(ctx, item)
	if err == nil {
		item.State = StateSuccess
		if item.FileHash != "" {
			q.hashes.Add(item.FileHash)
		}
		if q.store != nil {
			if markErr := q.store.MarkUploadStatus(item.Provider, item.SessionID, catalog.UploadSuccess); markErr != nil {
				log.Warn().Err(markErr).Msg("failed to record upload success in catalog")
			}
		}
		log.Info().Str("session_id", item.SessionID).Msg("upload succeeded")
		if q.activity != nil {
			_ = q.activity.Append(activitylog.TypeUploadSucceeded, item.Provider, "uploaded "+item.SessionID, nil)
		}
		return
	}

	item.LastError = err.Error()
	errType := ClassifyError(err.Error())

	if !q.retry.ShouldRetry(item.RetryCount, errType) {
		item.State = StateFailurePermanent
		q.fail(item)
		if q.store != nil {
			if markErr := q.store.MarkSyncFailed(item.Provider, item.SessionID, item.LastError); markErr != nil {
				log.Warn().Err(markErr).Msg("failed to record permanent failure in catalog")
			}
		}
		log.Warn().Str("session_id", item.SessionID).Err(err).Msg("upload permanently failed")
		if q.activity != nil {
			_ = q.activity.Append(activitylog.TypeUploadFailed, item.Provider, item.LastError, nil)
		}
		return
	}

	item.State = StateFailureTransient
	item.NextRetryAt = q.retry.ScheduleRetry(time.Now(), item.RetryCount)
	item.RetryCount++
	q.requeue(item)
	log.Info().Str("session_id", item.SessionID).Int("retry_count", item.RetryCount).
		Time("next_retry_at", item.NextRetryAt).Msg("upload failed transiently, will retry")
}

// upload performs the per-item upload path described in spec §4.7:
// hash, optional check-hash dedup, compression, and the payload POST.
func (q *Queue) upload(ctx context.Context, item *UploadItem) error {
	content, err := readContent(item)
	if err != nil {
		return err
	}
	if item.FileHash == "" {
		item.FileHash = sha256Hex(content)
	}

	sess := sessionFromItem(*item)
	var metrics *catalog.Metrics
	if q.store != nil {
		if stored, err := q.store.GetByProviderAndSessionID(item.Provider, item.SessionID); err == nil && stored != nil {
			sess = *stored
			metrics, _ = q.store.GetMetrics(stored.ID)
		}
	}

	var meta *gitmeta.ProjectMetadata
	if item.Cwd != "" {
		if m, err := gitmeta.ExtractProjectMetadata(item.Cwd); err == nil {
			meta = &m
		}
	}

	includeContent := true
	if item.SyncMode == config.SyncTranscriptAndMetrics {
		needsUpload, err := q.client.CheckHash(ctx, item.SessionID, item.FileHash)
		if err != nil {
			return err
		}
		includeContent = needsUpload
	} else {
		// "Metrics Only" never sends transcript content.
		includeContent = false
	}

	p, err := buildPayload(sess, metrics, meta, content, includeContent)
	if err != nil {
		return err
	}
	return q.client.UploadV2(ctx, p)
}

func readContent(item *UploadItem) ([]byte, error) {
	if item.Content != "" {
		return []byte(item.Content), nil
	}
	data, err := os.ReadFile(item.SourcePath)
	if err != nil {
		return nil, guideerr.Wrap(guideerr.KindIO, "read upload item source file", err)
	}
	return data, nil
}

func sessionFromItem(item UploadItem) catalog.Session {
	return catalog.Session{
		Provider:    item.Provider,
		SessionID:   item.SessionID,
		ProjectName: item.ProjectName,
		FilePath:    item.SourcePath,
		FileSize:    item.FileSize,
		FileHash:    item.FileHash,
		Cwd:         item.Cwd,
	}
}

func sha256Hex(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}
