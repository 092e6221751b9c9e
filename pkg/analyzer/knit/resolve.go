package knit

import (
	"regexp"
	"strings"
)

var (
	whitespacePattern = regexp.MustCompile(`\s+`)
	// Single non-greedy match: nested generics are only partially stripped.
	genericArgsPattern = regexp.MustCompile(`<.*?>`)
	nullablePattern    = regexp.MustCompile(`\?+$`)
	packagePattern     = regexp.MustCompile(`(?m)^\s*package\s+([A-Za-z_][\w.]*)`)
	importPattern      = regexp.MustCompile(`^\s*import\s+([A-Za-z_]\w*(?:\.[A-Za-z_]\w*)*(?:\.\*)?)(?:\s+as\s+([A-Za-z_]\w*))?`)
)

// Qualify resolves a raw type token to a fully-qualified name using the
// file's package and import map. Unresolvable names fall back to
// pkg-prefixed or bare short names.
func Qualify(raw, pkg string, imports map[string]string) string {
	name := whitespacePattern.ReplaceAllString(raw, "")
	if loc := genericArgsPattern.FindStringIndex(name); loc != nil {
		name = name[:loc[0]] + name[loc[1]:]
	}
	name = nullablePattern.ReplaceAllString(name, "")

	if strings.Contains(name, ".") {
		return name
	}
	if fqn, ok := imports[name]; ok {
		return fqn
	}
	if pkg != "" {
		return pkg + "." + name
	}
	return name
}

// ParsePackage returns the first package declaration in source, or "".
func ParsePackage(source string) string {
	if m := packagePattern.FindStringSubmatch(source); m != nil {
		return m[1]
	}
	return ""
}

// ParseImports maps short names to FQNs from the import lines in source.
// An alias ("import a.B as C") maps the alias. Wildcard imports are ignored.
// When a short name is imported twice the last import wins.
func ParseImports(source string) map[string]string {
	imports := make(map[string]string)
	for _, line := range strings.Split(source, "\n") {
		m := importPattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		path := m[1]
		if strings.HasSuffix(path, ".*") {
			continue
		}
		short := path
		if i := strings.LastIndex(path, "."); i >= 0 {
			short = path[i+1:]
		}
		if m[2] != "" {
			short = m[2]
		}
		imports[short] = path
	}
	return imports
}

// FileContext carries the per-file naming context used during extraction.
type FileContext struct {
	Path    string
	Package string
	Imports map[string]string
}

// NewFileContext builds the naming context for one source file.
func NewFileContext(path, source string) *FileContext {
	return &FileContext{
		Path:    path,
		Package: ParsePackage(source),
		Imports: ParseImports(source),
	}
}

// Qualify resolves raw within this file's context.
func (c *FileContext) Qualify(raw string) string {
	return Qualify(raw, c.Package, c.Imports)
}
