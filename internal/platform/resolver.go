package platform

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// EditorTarget describes the resource an activity event refers to,
// resolved to the identities the tracker buckets by.
type EditorTarget struct {
	ProjectName string
	Language    string
	Platform    string
	IDEName     string
}

// TargetResolver maps an edited file path to its project and language
// identities. Implementations must be safe for concurrent use.
type TargetResolver interface {
	Resolve(path string) (*EditorTarget, bool)
}

// FileTargetResolver resolves project identity from the nearest
// ancestor directory carrying a project marker and language identity
// from the file extension.
type FileTargetResolver struct {
	ideName string
}

// NewFileTargetResolver creates a resolver reporting the given host
// application name on every target.
func NewFileTargetResolver(ideName string) *FileTargetResolver {
	return &FileTargetResolver{ideName: ideName}
}

// projectMarkers are the files/directories that mark a project root.
var projectMarkers = []string{".git", "go.mod", "package.json", "Cargo.toml", "pyproject.toml", ".hg", ".svn"}

// Resolve maps path to an EditorTarget. Returns false when no language
// can be determined for the file.
func (r *FileTargetResolver) Resolve(path string) (*EditorTarget, bool) {
	language, ok := LanguageForFile(path)
	if !ok {
		return nil, false
	}

	return &EditorTarget{
		ProjectName: projectNameFor(path),
		Language:    language,
		Platform:    runtime.GOOS,
		IDEName:     r.ideName,
	}, true
}

// projectNameFor walks up from the file looking for a project marker;
// the parent directory name is the fallback identity.
func projectNameFor(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}

	dir := filepath.Dir(abs)
	for current := dir; ; {
		for _, marker := range projectMarkers {
			if _, err := os.Stat(filepath.Join(current, marker)); err == nil {
				return filepath.Base(current)
			}
		}
		parent := filepath.Dir(current)
		if parent == current {
			break
		}
		current = parent
	}

	return filepath.Base(dir)
}

// languagesByExtension maps file extensions to language names.
var languagesByExtension = map[string]string{
	".go":    "Go",
	".kt":    "Kotlin",
	".kts":   "Kotlin",
	".java":  "Java",
	".py":    "Python",
	".rb":    "Ruby",
	".rs":    "Rust",
	".c":     "C",
	".h":     "C",
	".cc":    "C++",
	".cpp":   "C++",
	".hpp":   "C++",
	".cs":    "C#",
	".js":    "JavaScript",
	".jsx":   "JavaScript",
	".mjs":   "JavaScript",
	".ts":    "TypeScript",
	".tsx":   "TypeScript",
	".php":   "PHP",
	".swift": "Swift",
	".scala": "Scala",
	".clj":   "Clojure",
	".ex":    "Elixir",
	".exs":   "Elixir",
	".erl":   "Erlang",
	".hs":    "Haskell",
	".lua":   "Lua",
	".sh":    "Shell",
	".bash":  "Shell",
	".zsh":   "Shell",
	".sql":   "SQL",
	".html":  "HTML",
	".css":   "CSS",
	".scss":  "SCSS",
	".json":  "JSON",
	".yaml":  "YAML",
	".yml":   "YAML",
	".toml":  "TOML",
	".xml":   "XML",
	".md":    "Markdown",
	".dart":  "Dart",
	".zig":   "Zig",
	".vue":   "Vue",
}

// LanguageForFile returns the language for a file path by extension.
func LanguageForFile(path string) (string, bool) {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == "" {
		return "", false
	}
	language, ok := languagesByExtension[ext]
	return language, ok
}
