package cursor

import (
	"crypto/md5"
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"

	"guideai/internal/canonical"
	"guideai/internal/guideerr"
	"guideai/internal/logging"
)

var log = logging.For("cursor")

// SessionResult is one parsed Cursor session: its store.db decoded
// into canonical messages plus the cwd recovered from the project
// folder index.
type SessionResult struct {
	SessionID   string
	Cwd         string
	ProjectName string
	Messages    []canonical.Message
}

// md5Hex hashes s the way Cursor names its per-project directories.
func md5Hex(s string) string {
	sum := md5.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}

// RecoverCwd reconstructs the cwd for a session directory named by
// md5Hash, per spec §4.2.6: Cursor keeps a side index of project
// folders under {homeDirectory}/../projects (folderName =
// replace(strip_leading_slash(cwd), '/', '-')); the parser tries every
// candidate folder name, rebuilds "/" + replace(folderName, '-', '/'),
// and accepts the first one whose md5 matches md5Hash. Grounded in
// original_source/providers/cursor/cwd_recovery.rs's linear-scan
// strategy — there is no reverse index, since the hash is one-way.
func RecoverCwd(projectsDir, md5Hash string) (string, bool) {
	entries, err := os.ReadDir(projectsDir)
	if err != nil {
		return "", false
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		folderName := e.Name()
		candidate := "/" + strings.ReplaceAll(folderName, "-", "/")
		if md5Hex(candidate) == md5Hash {
			return candidate, true
		}
	}
	return "", false
}

// ParseSessionDB decodes every blob in one store.db into canonical
// messages, in blob-insertion order. Tree/reference blobs and blobs
// that fail every decode shape are silently skipped, per spec §4.2.6.
func ParseSessionDB(dbPath, md5Hash, projectsDir string) (SessionResult, error) {
	db, err := openReadOnly(dbPath)
	if err != nil {
		return SessionResult{}, err
	}
	defer db.Close()

	meta, err := readSessionMeta(db)
	if err != nil {
		return SessionResult{}, err
	}

	cwd := meta.Cwd
	if cwd == "" {
		if recovered, ok := RecoverCwd(projectsDir, md5Hash); ok {
			cwd = recovered
		}
	}

	rows, err := readBlobsOrdered(db)
	if err != nil {
		return SessionResult{}, err
	}

	var messages []canonical.Message
	for i, row := range rows {
		decoded := DecodeBlob(row.Data)
		timestamp := meta.CreatedAt
		msg := blobToMessage(row.ID, i, meta.SessionID, cwd, timestamp, decoded)
		if msg == nil {
			continue
		}
		if !msg.Valid() {
			log.Debug().Str("blob_id", row.ID).Msg("dropping invalid cursor message")
			continue
		}
		messages = append(messages, *msg)
	}

	projectName := ""
	if cwd != "" {
		projectName = filepath.Base(cwd)
	}
	if meta.SessionID == "" {
		return SessionResult{}, guideerr.New(guideerr.KindValidation, "cursor session missing session id")
	}

	log.Debug().Str("session_id", meta.SessionID).Int("messages", len(messages)).Msg("parsed cursor session")
	return SessionResult{SessionID: meta.SessionID, Cwd: cwd, ProjectName: projectName, Messages: messages}, nil
}

// sessionDirMD5 extracts the md5-hash path component from a store.db
// path of the form {chatsDir}/{md5}/{sessionUUID}/store.db.
func sessionDirMD5(dbPath string) string {
	sessionDir := filepath.Dir(dbPath)
	hashDir := filepath.Dir(sessionDir)
	return filepath.Base(hashDir)
}
