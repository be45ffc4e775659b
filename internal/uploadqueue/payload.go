package uploadqueue

import (
	"bytes"
	"compress/gzip"
	"encoding/base64"

	"guideai/internal/catalog"
	"guideai/internal/gitmeta"
	"guideai/internal/guideerr"
)

// payload is the wire shape POSTed to /api/agent-sessions/upload-v2,
// field names matching original_source's upload_request verbatim
// (camelCase JSON keys) so the server-side contract is unchanged.
type payload struct {
	Provider         string  `json:"provider"`
	ProjectName      string  `json:"projectName"`
	SessionID        string  `json:"sessionId"`
	FileName         string  `json:"fileName"`
	FilePath         string  `json:"filePath"`
	FileHash         string  `json:"fileHash"`
	FileSize         int64   `json:"fileSize"`
	SessionStartTime string  `json:"sessionStartTime,omitempty"`
	SessionEndTime   string  `json:"sessionEndTime,omitempty"`
	DurationMs       int64   `json:"durationMs"`
	ProcessingStatus string  `json:"processingStatus"`
	GitBranch        string  `json:"gitBranch,omitempty"`
	FirstCommitHash  string  `json:"firstCommitHash,omitempty"`
	LatestCommitHash string  `json:"latestCommitHash,omitempty"`

	ProjectMetadata *projectMetadataPayload `json:"projectMetadata,omitempty"`
	Content         string                  `json:"content,omitempty"`
	ContentEncoding string                  `json:"contentEncoding,omitempty"`
	Metrics         *metricsPayload         `json:"metrics,omitempty"`
}

type projectMetadataPayload struct {
	GitRemoteURL        string `json:"gitRemoteUrl,omitempty"`
	Cwd                 string `json:"cwd"`
	DetectedProjectType string `json:"detectedProjectType,omitempty"`
}

// metricsPayload carries the mechanically-derived counts this module
// computes. original_source's metrics object additionally nests
// performance/usage/error/engagement/quality/git-diff sub-objects
// produced by a semantic scoring engine this core does not implement
// (spec's own Non-goal); only the fields this module actually derives
// are populated.
type metricsPayload struct {
	SessionID             string `json:"sessionId"`
	Provider              string `json:"provider"`
	MessageCount          int    `json:"messageCount"`
	UserMessageCount      int    `json:"userMessageCount"`
	AssistantMessageCount int    `json:"assistantMessageCount"`
	ToolCallCount         int    `json:"toolCallCount"`
	ErrorCount            int    `json:"errorCount"`
	GitTotalFilesChanged  int    `json:"gitTotalFilesChanged"`
	GitLinesAdded         int    `json:"gitLinesAdded"`
	GitLinesRemoved       int    `json:"gitLinesRemoved"`
}

// buildPayload assembles the upload-v2 body. includeContent controls
// whether compressed session content is attached — false for a
// dedup short-circuit (server already has this hash) or for
// "Metrics Only" sync mode, per spec §4.7.
func buildPayload(sess catalog.Session, metrics *catalog.Metrics, meta *gitmeta.ProjectMetadata, content []byte, includeContent bool) (payload, error) {
	p := payload{
		Provider:         sess.Provider,
		ProjectName:      sess.ProjectName,
		SessionID:        sess.SessionID,
		FileName:         sess.SessionID + ".jsonl",
		FilePath:         sess.FilePath,
		FileHash:         sess.FileHash,
		FileSize:         sess.FileSize,
		DurationMs:       sess.DurationMs,
		ProcessingStatus: sess.ProcessingStatus,
		GitBranch:        sess.GitBranch,
		FirstCommitHash:  sess.FirstCommitHash,
		LatestCommitHash: sess.LatestCommitHash,
	}
	if !sess.StartTime.IsZero() {
		p.SessionStartTime = sess.StartTime.UTC().Format("2006-01-02T15:04:05.000Z07:00")
	}
	if !sess.EndTime.IsZero() {
		p.SessionEndTime = sess.EndTime.UTC().Format("2006-01-02T15:04:05.000Z07:00")
	}

	if meta != nil {
		p.ProjectMetadata = &projectMetadataPayload{
			GitRemoteURL:        meta.GitRemoteURL,
			Cwd:                 meta.Cwd,
			DetectedProjectType: meta.DetectedProjectType,
		}
	}

	if metrics != nil {
		p.Metrics = &metricsPayload{
			SessionID:             sess.SessionID,
			Provider:              sess.Provider,
			MessageCount:          metrics.MessageCount,
			UserMessageCount:      metrics.UserMessageCount,
			AssistantMessageCount: metrics.AssistantMessageCount,
			ToolCallCount:         metrics.ToolCallCount,
			ErrorCount:            metrics.ErrorCount,
			GitTotalFilesChanged:  metrics.GitFilesChanged,
			GitLinesAdded:         metrics.GitLinesAdded,
			GitLinesRemoved:       metrics.GitLinesRemoved,
		}
	}

	if includeContent {
		compressed, err := gzipCompress(content)
		if err != nil {
			return payload{}, err
		}
		p.Content = base64.StdEncoding.EncodeToString(compressed)
		p.ContentEncoding = "gzip"
	}

	return p, nil
}

func gzipCompress(content []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	if _, err := w.Write(content); err != nil {
		return nil, guideerr.Wrap(guideerr.KindIO, "gzip compress upload content", err)
	}
	if err := w.Close(); err != nil {
		return nil, guideerr.Wrap(guideerr.KindIO, "finalize gzip compression", err)
	}
	return buf.Bytes(), nil
}
