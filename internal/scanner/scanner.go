package scanner

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-git/v5/plumbing/format/gitignore"

	"github.com/panbanda/knitgraph/internal/fileproc"
	"github.com/panbanda/knitgraph/pkg/config"
	"github.com/panbanda/knitgraph/pkg/models"
	"github.com/panbanda/knitgraph/pkg/parser"
)

// Scanner finds Kotlin source files in a directory tree.
type Scanner struct {
	config   *config.Config
	matchers []gitignore.Matcher
}

// NewScanner creates a new file scanner.
func NewScanner(cfg *config.Config) *Scanner {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	return &Scanner{config: cfg}
}

// findGitRoot finds the root of the git repository by looking for .git directory.
// Returns empty string if not in a git repository.
func findGitRoot(start string) string {
	dir := start
	for {
		gitDir := filepath.Join(dir, ".git")
		if info, err := os.Stat(gitDir); err == nil && info.IsDir() {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// loadExcludePatterns builds matchers from the config's excluded dirs and
// patterns, plus every .gitignore in the enclosing repository when enabled.
// Gitignore patterns are matched against paths relative to the git root.
func (s *Scanner) loadExcludePatterns(root string) {
	s.matchers = nil
	var patterns []gitignore.Pattern

	for _, dir := range s.config.Exclude.Dirs {
		patterns = append(patterns, gitignore.ParsePattern(strings.TrimSuffix(dir, "/")+"/", nil))
	}
	for _, pattern := range s.config.Exclude.Patterns {
		patterns = append(patterns, gitignore.ParsePattern(pattern, nil))
	}
	if len(patterns) > 0 {
		s.matchers = append(s.matchers, gitignore.NewMatcher(patterns))
	}

	if !s.config.Exclude.Gitignore {
		return
	}
	gitRoot := findGitRoot(root)
	if gitRoot == "" {
		return
	}
	gitPatterns, err := gitignore.ReadPatterns(osfs.New(gitRoot), nil)
	if err != nil || len(gitPatterns) == 0 {
		return
	}

	// Re-anchor the repository patterns at the scan root.
	rel, err := filepath.Rel(gitRoot, root)
	if err != nil {
		return
	}
	s.matchers = append(s.matchers, &prefixedMatcher{
		prefix:  splitPath(rel),
		matcher: gitignore.NewMatcher(gitPatterns),
	})
}

// prefixedMatcher matches paths relative to the scan root against patterns
// that are relative to the git root.
type prefixedMatcher struct {
	prefix  []string
	matcher gitignore.Matcher
}

func (m *prefixedMatcher) Match(path []string, isDir bool) bool {
	full := make([]string, 0, len(m.prefix)+len(path))
	full = append(full, m.prefix...)
	full = append(full, path...)
	return m.matcher.Match(full, isDir)
}

func splitPath(rel string) []string {
	if rel == "." || rel == "" {
		return nil
	}
	return strings.Split(filepath.ToSlash(rel), "/")
}

// isExcluded checks if a path relative to the scan root matches any exclusion pattern.
func (s *Scanner) isExcluded(relPath string, isDir bool) bool {
	parts := splitPath(relPath)
	if len(parts) == 0 {
		return false
	}
	for _, m := range s.matchers {
		if m.Match(parts, isDir) {
			return true
		}
	}
	return false
}

// ScanDir recursively scans a directory for Kotlin files and returns their
// paths in sorted order. Symlinks that resolve outside root are skipped.
func (s *Scanner) ScanDir(root string) ([]string, error) {
	files := make([]string, 0, 256)

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	absRoot, err = filepath.EvalSymlinks(absRoot)
	if err != nil {
		return nil, err
	}

	s.loadExcludePatterns(absRoot)

	walkErr := filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}

		relPath, _ := filepath.Rel(absRoot, path)

		if d.Type()&fs.ModeSymlink != 0 {
			resolved, err := filepath.EvalSymlinks(path)
			if err != nil || !isWithinRoot(resolved, absRoot) {
				return nil
			}
		}

		if d.IsDir() {
			if s.isExcluded(relPath, true) {
				return filepath.SkipDir
			}
			return nil
		}

		if s.isExcluded(relPath, false) {
			return nil
		}
		if parser.IsKotlin(path) {
			files = append(files, path)
		}
		return nil
	})

	sort.Strings(files)
	return files, walkErr
}

// isWithinRoot checks if a path is contained within the root directory.
func isWithinRoot(path, root string) bool {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	absPath = filepath.Clean(absPath)
	root = filepath.Clean(root)

	// Add separator to prevent "/root2" matching "/root"
	return absPath == root || strings.HasPrefix(absPath, root+string(filepath.Separator))
}

// ScanFile checks if a single file should be analyzed.
func (s *Scanner) ScanFile(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		return false, err
	}
	if info.IsDir() {
		return false, nil
	}
	if s.config.ShouldExclude(path) {
		return false, nil
	}
	return parser.IsKotlin(path), nil
}

// Source is a set of files read relative to one base directory.
type Source struct {
	Base  string
	Files []string
}

// Collect resolves each argument to a Source: directories are scanned,
// Kotlin files are taken as-is relative to their parent directory.
func (s *Scanner) Collect(paths []string) ([]Source, error) {
	var sources []Source
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("invalid path %s: %w", path, err)
		}

		if !info.IsDir() {
			ok, err := s.ScanFile(path)
			if err != nil {
				return nil, err
			}
			if ok {
				abs, err := filepath.Abs(path)
				if err != nil {
					return nil, err
				}
				sources = append(sources, Source{Base: filepath.Dir(abs), Files: []string{abs}})
			}
			continue
		}

		files, err := s.ScanDir(path)
		if err != nil {
			return nil, fmt.Errorf("failed to scan directory %s: %w", path, err)
		}
		base, err := filepath.Abs(path)
		if err != nil {
			return nil, err
		}
		if resolved, err := filepath.EvalSymlinks(base); err == nil {
			base = resolved
		}
		sources = append(sources, Source{Base: base, Files: files})
	}
	return sources, nil
}

// Count returns the total number of files across sources.
func Count(sources []Source) int {
	n := 0
	for _, src := range sources {
		n += len(src.Files)
	}
	return n
}

// Limit keeps at most maxFiles files across sources, in order.
// It returns the number of files dropped. maxFiles <= 0 keeps everything.
func Limit(sources []Source, maxFiles int) ([]Source, int) {
	if maxFiles <= 0 {
		return sources, 0
	}
	kept := make([]Source, 0, len(sources))
	remaining := maxFiles
	dropped := 0
	for _, src := range sources {
		if remaining <= 0 {
			dropped += len(src.Files)
			continue
		}
		if len(src.Files) > remaining {
			dropped += len(src.Files) - remaining
			src.Files = src.Files[:remaining]
		}
		remaining -= len(src.Files)
		kept = append(kept, src)
	}
	return kept, dropped
}

// Read loads file contents. Paths in the returned SourceFiles are relative
// to each source's base and slash-separated. Unreadable files are reported
// in the errors and left out.
func Read(sources []Source) ([]models.SourceFile, *fileproc.ProcessingErrors) {
	var files []models.SourceFile
	errs := &fileproc.ProcessingErrors{}

	for _, src := range sources {
		for _, path := range src.Files {
			rel, err := filepath.Rel(src.Base, path)
			if err != nil {
				rel = path
			}
			rel = filepath.ToSlash(rel)

			content, err := os.ReadFile(path)
			if err != nil {
				errs.Add(rel, err)
				continue
			}
			files = append(files, models.SourceFile{Path: rel, Content: string(content)})
		}
	}

	if !errs.HasErrors() {
		return files, nil
	}
	return files, errs
}
