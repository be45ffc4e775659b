package catalog

import "time"

// Session is one agent_sessions row, identified by (Provider, SessionID).
type Session struct {
	ID               string
	Provider         string
	SessionID        string
	ProjectID        string
	ProjectName      string
	FilePath         string
	FileSize         int64
	FileHash         string
	StartTime        time.Time
	EndTime          time.Time
	DurationMs       int64
	Cwd              string
	GitBranch        string
	FirstCommitHash  string
	LatestCommitHash string
	ProcessingStatus string
	LastError        string
	UploadStatus     string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Processing statuses a session row moves through.
const (
	ProcessingPending = "pending"
	ProcessingOK      = "ok"
	ProcessingFailed  = "failed"
)

// Upload statuses the upload queue writes back onto a session row.
const (
	UploadPending = "pending"
	UploadSuccess = "success"
	UploadFailed  = "failed"
)

// Project is one projects row: the cached ProjectMetadata for a cwd.
type Project struct {
	ID                  string
	Cwd                 string
	Name                string
	GitRemoteURL        string
	DetectedProjectType string
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// Metrics is one session_metrics row: mechanically derived counts, not
// the semantic quality scoring the core explicitly does not perform.
type Metrics struct {
	SessionRowID          string
	MessageCount          int
	UserMessageCount      int
	AssistantMessageCount int
	ToolCallCount         int
	ErrorCount            int
	GitFilesChanged       int
	GitLinesAdded         int
	GitLinesRemoved       int
}
