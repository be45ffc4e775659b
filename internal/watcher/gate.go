package watcher

import (
	"os"
	"path/filepath"
	"strings"
)

// dirAggregate walks root and folds every non-hidden file matching
// suffix into a single (count, totalSize, maxModUnixNano) signature,
// cheap enough to run every poll tick without touching file content.
// Hidden files and directories (leading '.') are skipped, matching
// spec §4.3's "hidden files are skipped" rule; this also keeps partial
// dotfile writes (some editors, some provider temp files) out of the
// signature entirely.
func dirAggregate(root, suffix string) (count int, totalSize int64, maxMod int64, err error) {
	walkErr := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if path != root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		name := d.Name()
		if strings.HasPrefix(name, ".") || (suffix != "" && !strings.HasSuffix(name, suffix)) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		count++
		totalSize += info.Size()
		if mod := info.ModTime().UnixNano(); mod > maxMod {
			maxMod = mod
		}
		return nil
	})
	if walkErr != nil {
		return 0, 0, 0, walkErr
	}
	return count, totalSize, maxMod, nil
}

// signatureFromAggregate folds an aggregate triple into the single
// uint64 Signature compares across ticks. Any change to file count,
// total bytes, or the newest mtime moves the signature; the per-session
// decision ("is this specific session new or changed") is made
// downstream once Scan's results are diffed by content hash
// (watcher.go's observe), so this aggregate only needs to decide
// "maybe something changed on disk", never "what changed".
func signatureFromAggregate(count int, totalSize, maxMod int64) uint64 {
	h := uint64(14695981039346656037) // FNV-1a offset basis
	mix := func(v int64) {
		h ^= uint64(v)
		h *= 1099511628211 // FNV-1a prime
	}
	mix(int64(count))
	mix(totalSize)
	mix(maxMod)
	return h
}
