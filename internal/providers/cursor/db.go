package cursor

import (
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"guideai/internal/guideerr"
)

// sessionMeta is the hex-encoded JSON blob stored at meta.key='0'.
type sessionMeta struct {
	SessionID string `json:"sessionId"`
	Cwd       string `json:"cwd"`
	CreatedAt string `json:"createdAt"`
}

// blobRow is one row of the content-addressed blobs table.
type blobRow struct {
	ID   string
	Data []byte
}

// openReadOnly opens a Cursor store.db per spec §4.2.6: read-only,
// synchronous=NORMAL, because Cursor itself writes the same file
// concurrently in WAL mode and a writer-mode open would contend with it.
func openReadOnly(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", "file:"+path+"?mode=ro&_pragma=synchronous(NORMAL)")
	if err != nil {
		return nil, guideerr.Wrap(guideerr.KindIO, "open cursor store.db", err)
	}
	return db, nil
}

// readSessionMeta reads and hex-decodes the meta row holding session
// identity and cwd.
func readSessionMeta(db *sql.DB) (sessionMeta, error) {
	var hexValue string
	err := db.QueryRow(`SELECT value FROM meta WHERE key = '0'`).Scan(&hexValue)
	if err != nil {
		return sessionMeta{}, guideerr.Wrap(guideerr.KindDatabase, "read cursor session meta", err)
	}
	raw, err := hex.DecodeString(hexValue)
	if err != nil {
		return sessionMeta{}, guideerr.Wrap(guideerr.KindDatabase, "hex-decode cursor session meta", err)
	}
	var sm sessionMeta
	if err := json.Unmarshal(raw, &sm); err != nil {
		return sessionMeta{}, guideerr.Wrap(guideerr.KindDatabase, "unmarshal cursor session meta", err)
	}
	return sm, nil
}

// readBlobsOrdered reads every row of the blobs table, in rowid order —
// the insertion order, and therefore the conversation order, since
// Cursor never rewrites a blob once written.
func readBlobsOrdered(db *sql.DB) ([]blobRow, error) {
	rows, err := db.Query(`SELECT id, data FROM blobs ORDER BY rowid`)
	if err != nil {
		return nil, guideerr.Wrap(guideerr.KindDatabase, "read cursor blobs", err)
	}
	defer rows.Close()

	var out []blobRow
	for rows.Next() {
		var b blobRow
		if err := rows.Scan(&b.ID, &b.Data); err != nil {
			return nil, guideerr.Wrap(guideerr.KindDatabase, "scan cursor blob row", err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, guideerr.Wrap(guideerr.KindDatabase, "iterate cursor blobs", err)
	}
	return out, nil
}

// DataVersion reads PRAGMA data_version, the monotonic counter the
// watcher polls to detect writes without rescanning blob contents.
func DataVersion(db *sql.DB) (int64, error) {
	var v int64
	if err := db.QueryRow(`PRAGMA data_version`).Scan(&v); err != nil {
		return 0, guideerr.Wrap(guideerr.KindIO, "read cursor data_version", err)
	}
	return v, nil
}

// DataVersionSum walks homeDirectory for every store.db and sums each
// one's data_version. A session database that fails to open (mid-write,
// since Cursor writes it concurrently) is skipped rather than failing
// the whole sum: a missed version bump there is caught on the next
// poll tick once the lock clears.
func DataVersionSum(homeDirectory string) (uint64, error) {
	var dbPaths []string
	err := filepath.WalkDir(homeDirectory, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() && d.Name() == "store.db" {
			dbPaths = append(dbPaths, path)
		}
		return nil
	})
	if err != nil {
		return 0, guideerr.Wrap(guideerr.KindIO, "walk cursor chats directory", err)
	}

	var sum uint64
	for _, path := range dbPaths {
		db, err := openReadOnly(path)
		if err != nil {
			continue
		}
		v, err := DataVersion(db)
		db.Close()
		if err != nil {
			continue
		}
		sum += uint64(v)
	}
	return sum, nil
}
