package gitmeta

import (
	"os"
	"path/filepath"
	"strings"
)

// projectTypeMarkers is the ordered marker-file lookup spec §4.6
// describes. The first marker present in cwd wins, matching
// original_source's own preference order (a Cargo.toml takes priority
// over a package.json in a workspace that happens to carry both, e.g.
// a Rust project with a bundled frontend).
var projectTypeMarkers = []struct {
	file string
	kind string
}{
	{"Cargo.toml", "rust"},
	{"go.mod", "go"},
	{"package.json", "node"},
	{"pyproject.toml", "python"},
	{"requirements.txt", "python"},
	{"pom.xml", "java"},
	{"build.gradle", "java"},
	{"build.gradle.kts", "java"},
	{"Gemfile", "ruby"},
	{"composer.json", "php"},
	{"CMakeLists.txt", "cpp"},
}

func detectProjectType(cwd string) string {
	for _, m := range projectTypeMarkers {
		if fileExists(filepath.Join(cwd, m.file)) {
			return m.kind
		}
	}
	return ""
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// languageByExtension reproduces git_diff.rs's detect_language table.
var languageByExtension = map[string]string{
	"rs":    "rust",
	"ts":    "typescript",
	"tsx":   "typescript",
	"js":    "javascript",
	"jsx":   "javascript",
	"mjs":   "javascript",
	"py":    "python",
	"go":    "go",
	"java":  "java",
	"cpp":   "cpp",
	"cc":    "cpp",
	"cxx":   "cpp",
	"hpp":   "cpp",
	"c":     "c",
	"h":     "c",
	"rb":    "ruby",
	"php":   "php",
	"swift": "swift",
	"kt":    "kotlin",
	"kts":   "kotlin",
	"cs":    "csharp",
	"sh":    "bash",
	"bash":  "bash",
	"sql":   "sql",
	"html":  "html",
	"htm":   "html",
	"css":   "css",
	"scss":  "scss",
	"json":  "json",
	"yaml":  "yaml",
	"yml":   "yaml",
	"toml":  "toml",
	"xml":   "xml",
	"md":    "markdown",
}

func detectLanguage(path string) string {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	return languageByExtension[strings.ToLower(ext)]
}
