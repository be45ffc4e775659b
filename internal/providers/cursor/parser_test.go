package cursor

import (
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func createStoreDB(t *testing.T, path string, sessionID, cwd string, blobs [][]byte) {
	t.Helper()
	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()

	if _, err := db.Exec(`CREATE TABLE meta(key TEXT PRIMARY KEY, value TEXT)`); err != nil {
		t.Fatalf("create meta: %v", err)
	}
	if _, err := db.Exec(`CREATE TABLE blobs(id TEXT PRIMARY KEY, data BLOB)`); err != nil {
		t.Fatalf("create blobs: %v", err)
	}

	metaJSON, err := json.Marshal(sessionMeta{SessionID: sessionID, Cwd: cwd, CreatedAt: "2026-01-01T00:00:00Z"})
	if err != nil {
		t.Fatalf("marshal meta: %v", err)
	}
	if _, err := db.Exec(`INSERT INTO meta(key, value) VALUES ('0', ?)`, hex.EncodeToString(metaJSON)); err != nil {
		t.Fatalf("insert meta: %v", err)
	}
	for i, b := range blobs {
		id := "blob-" + string(rune('a'+i))
		if _, err := db.Exec(`INSERT INTO blobs(id, data) VALUES (?, ?)`, id, b); err != nil {
			t.Fatalf("insert blob: %v", err)
		}
	}
}

func TestParseSessionDBWithEmbeddedCwd(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "store.db")
	createStoreDB(t, dbPath, "sess-1", "/home/u/proj", [][]byte{
		{0x0A, 0x05, 'h', 'i', 't', 'h', 'e'}, // user-shape, 5-byte string "hithe"
		{0x0A, 0x03, 0x0A, 0x01, 0x48},        // assistant-shape -> "H"
	})

	res, err := ParseSessionDB(dbPath, "deadbeef", dir)
	if err != nil {
		t.Fatalf("ParseSessionDB: %v", err)
	}
	if res.SessionID != "sess-1" || res.Cwd != "/home/u/proj" || res.ProjectName != "proj" {
		t.Fatalf("unexpected session: %+v", res)
	}
	if len(res.Messages) != 2 {
		t.Fatalf("expected 2 messages, got %d: %+v", len(res.Messages), res.Messages)
	}
	if res.Messages[0].Message.Content.Text != "hithe" {
		t.Fatalf("got %q, want hithe", res.Messages[0].Message.Content.Text)
	}
	if res.Messages[1].Message.Content.Text != "H" {
		t.Fatalf("got %q, want H", res.Messages[1].Message.Content.Text)
	}
}

func TestRecoverCwdFromProjectIndex(t *testing.T) {
	dir := t.TempDir()
	cwd := "/home/user/myproj"
	folderName := "home-user-myproj"
	if err := os.MkdirAll(filepath.Join(dir, folderName), 0o700); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	recovered, ok := RecoverCwd(dir, md5Hex(cwd))
	if !ok {
		t.Fatalf("expected cwd recovery to succeed")
	}
	if recovered != cwd {
		t.Fatalf("recovered = %q, want %q", recovered, cwd)
	}
}

func TestRecoverCwdNoMatch(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "home-user-other"), 0o700); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if _, ok := RecoverCwd(dir, md5Hex("/home/user/myproj")); ok {
		t.Fatalf("expected no match")
	}
}
