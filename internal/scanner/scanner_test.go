package scanner

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/panbanda/knitgraph/internal/testutil"
	"github.com/panbanda/knitgraph/pkg/config"
)

func relPaths(t *testing.T, root string, files []string) map[string]bool {
	t.Helper()
	absRoot, _ := filepath.EvalSymlinks(root)
	found := make(map[string]bool)
	for _, f := range files {
		rel, err := filepath.Rel(absRoot, f)
		if err != nil {
			t.Fatalf("Rel(%s): %v", f, err)
		}
		found[filepath.ToSlash(rel)] = true
	}
	return found
}

func TestNewScanner(t *testing.T) {
	// With nil config
	s := NewScanner(nil)
	if s == nil {
		t.Fatal("NewScanner(nil) returned nil")
	}
	if s.config == nil {
		t.Error("scanner.config should not be nil when passing nil")
	}

	// With explicit config
	cfg := config.DefaultConfig()
	s = NewScanner(cfg)
	if s.config != cfg {
		t.Error("scanner.config should be the provided config")
	}
}

func TestScanDir(t *testing.T) {
	tmpDir := t.TempDir()
	testutil.CreateFileTree(t, tmpDir, map[string]string{
		"Main.kt":                    "class Main\n",
		"build.gradle.kts":           "plugins {}\n",
		"app/src/main/kotlin/Foo.kt": "class Foo\n",
		"app/src/main/java/Bar.java": "class Bar {}\n",
		"README.md":                  "# readme\n",
	})

	s := NewScanner(nil)
	result, err := s.ScanDir(tmpDir)
	if err != nil {
		t.Fatalf("ScanDir() error: %v", err)
	}

	found := relPaths(t, tmpDir, result)
	for _, want := range []string{"Main.kt", "build.gradle.kts", "app/src/main/kotlin/Foo.kt"} {
		if !found[want] {
			t.Errorf("File %s was not found", want)
		}
	}
	if len(result) != 3 {
		t.Errorf("ScanDir() found %d files, want 3", len(result))
	}

	for i := 1; i < len(result); i++ {
		if result[i-1] > result[i] {
			t.Errorf("ScanDir() results not sorted: %s before %s", result[i-1], result[i])
		}
	}
}

func TestScanDirExcludesDirectories(t *testing.T) {
	tmpDir := t.TempDir()
	testutil.CreateFileTree(t, tmpDir, map[string]string{
		"build/generated/Gen.kt":   "class Gen\n",
		"app/build/tmp/Tmp.kt":     "class Tmp\n",
		".gradle/caches/Cached.kt": "class Cached\n",
		".idea/Ide.kt":             "class Ide\n",
		"app/builder/Builder.kt":   "class Builder\n",
		"Main.kt":                  "class Main\n",
	})

	s := NewScanner(nil)
	result, err := s.ScanDir(tmpDir)
	if err != nil {
		t.Fatalf("ScanDir() error: %v", err)
	}

	found := relPaths(t, tmpDir, result)
	if len(result) != 2 || !found["Main.kt"] || !found["app/builder/Builder.kt"] {
		t.Errorf("ScanDir() = %v, want only Main.kt and app/builder/Builder.kt", found)
	}
}

func TestScanDirExcludesPatterns(t *testing.T) {
	tmpDir := t.TempDir()
	testutil.CreateFileTree(t, tmpDir, map[string]string{
		"Main.kt":          "class Main\n",
		"MainTest.kt":      "class MainTest\n",
		"api/Api.gen.kt":   "class Api\n",
		"api/Real.kt":      "class Real\n",
		"legacy/Old.kt":    "class Old\n",
		"legacy/keep/K.kt": "class K\n",
	})

	cfg := config.DefaultConfig()
	cfg.Exclude.Patterns = []string{"*Test.kt", "*.gen.kt", "/legacy/*.kt"}

	s := NewScanner(cfg)
	result, err := s.ScanDir(tmpDir)
	if err != nil {
		t.Fatalf("ScanDir() error: %v", err)
	}

	found := relPaths(t, tmpDir, result)
	want := []string{"Main.kt", "api/Real.kt", "legacy/keep/K.kt"}
	if len(found) != len(want) {
		t.Errorf("ScanDir() = %v, want %v", found, want)
	}
	for _, w := range want {
		if !found[w] {
			t.Errorf("File %s was not found", w)
		}
	}
}

func TestScanDirRespectsGitignore(t *testing.T) {
	tmpDir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(tmpDir, ".git"), 0755); err != nil {
		t.Fatal(err)
	}
	testutil.CreateFileTree(t, tmpDir, map[string]string{
		".gitignore":            "ignored/\n*.local.kt\n",
		"app/Main.kt":           "class Main\n",
		"app/Dev.local.kt":      "class Dev\n",
		"app/ignored/Skip.kt":   "class Skip\n",
		"ignored/AlsoSkip.kt":   "class AlsoSkip\n",
		"app/nested/.gitignore": "Secret.kt\n",
		"app/nested/Secret.kt":  "class Secret\n",
		"app/nested/Public.kt":  "class Public\n",
	})

	// Scan a subdirectory so patterns have to be re-anchored at the git root.
	appDir := filepath.Join(tmpDir, "app")
	s := NewScanner(nil)
	result, err := s.ScanDir(appDir)
	if err != nil {
		t.Fatalf("ScanDir() error: %v", err)
	}

	found := relPaths(t, appDir, result)
	if len(found) != 2 || !found["Main.kt"] || !found["nested/Public.kt"] {
		t.Errorf("ScanDir() = %v, want Main.kt and nested/Public.kt", found)
	}

	cfg := config.DefaultConfig()
	cfg.Exclude.Gitignore = false
	result, err = NewScanner(cfg).ScanDir(appDir)
	if err != nil {
		t.Fatalf("ScanDir() error: %v", err)
	}
	if len(result) != 5 {
		t.Errorf("ScanDir() without gitignore found %d files, want 5", len(result))
	}
}

func TestScanFile(t *testing.T) {
	tmpDir := t.TempDir()
	testutil.CreateFileTree(t, tmpDir, map[string]string{
		"Foo.kt":     "class Foo\n",
		"Foo.java":   "class Foo {}\n",
		"FooTest.kt": "class FooTest\n",
	})

	cfg := config.DefaultConfig()
	cfg.Exclude.Patterns = []string{"*Test.kt"}
	s := NewScanner(cfg)

	tests := []struct {
		name string
		want bool
	}{
		{"Foo.kt", true},
		{"Foo.java", false},
		{"FooTest.kt", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.ScanFile(filepath.Join(tmpDir, tt.name))
			if err != nil {
				t.Fatalf("ScanFile() error: %v", err)
			}
			if got != tt.want {
				t.Errorf("ScanFile(%s) = %v, want %v", tt.name, got, tt.want)
			}
		})
	}

	if ok, _ := s.ScanFile(tmpDir); ok {
		t.Error("ScanFile() should reject directories")
	}
	if _, err := s.ScanFile(filepath.Join(tmpDir, "Missing.kt")); err == nil {
		t.Error("ScanFile() should fail for a missing file")
	}
}

func TestCollectAndRead(t *testing.T) {
	tmpDir := t.TempDir()
	testutil.CreateFileTree(t, tmpDir, map[string]string{
		"proj/a/A.kt":   "package a\nclass A\n",
		"proj/b/B.kt":   "package b\nclass B\n",
		"single/One.kt": "class One\n",
	})

	s := NewScanner(nil)
	sources, err := s.Collect([]string{
		filepath.Join(tmpDir, "proj"),
		filepath.Join(tmpDir, "single", "One.kt"),
	})
	if err != nil {
		t.Fatalf("Collect() error: %v", err)
	}
	if Count(sources) != 3 {
		t.Fatalf("Count() = %d, want 3", Count(sources))
	}

	files, errs := Read(sources)
	if errs != nil {
		t.Fatalf("Read() errors: %v", errs)
	}
	got := make(map[string]string)
	for _, f := range files {
		got[f.Path] = f.Content
	}
	if got["a/A.kt"] != "package a\nclass A\n" {
		t.Errorf("a/A.kt content = %q", got["a/A.kt"])
	}
	if _, ok := got["b/B.kt"]; !ok {
		t.Error("b/B.kt missing")
	}
	if _, ok := got["One.kt"]; !ok {
		t.Errorf("One.kt missing, got %v", got)
	}

	if _, err := s.Collect([]string{filepath.Join(tmpDir, "nope")}); err == nil {
		t.Error("Collect() should fail for a missing path")
	}
}

func TestReadReportsUnreadableFiles(t *testing.T) {
	tmpDir := t.TempDir()
	testutil.CreateFileTree(t, tmpDir, map[string]string{"Ok.kt": "class Ok\n"})

	files, errs := Read([]Source{{
		Base:  tmpDir,
		Files: []string{filepath.Join(tmpDir, "Ok.kt"), filepath.Join(tmpDir, "Gone.kt")},
	}})
	if len(files) != 1 || files[0].Path != "Ok.kt" {
		t.Errorf("Read() files = %v, want only Ok.kt", files)
	}
	if errs.Len() != 1 || errs.Errors[0].Path != "Gone.kt" {
		t.Errorf("Read() errors = %v, want one for Gone.kt", errs)
	}
}

func TestLimit(t *testing.T) {
	sources := []Source{
		{Base: "/a", Files: []string{"/a/1.kt", "/a/2.kt"}},
		{Base: "/b", Files: []string{"/b/3.kt", "/b/4.kt"}},
		{Base: "/c", Files: []string{"/c/5.kt"}},
	}

	kept, dropped := Limit(sources, 3)
	if Count(kept) != 3 || dropped != 2 {
		t.Errorf("Limit(3) kept %d dropped %d, want 3 and 2", Count(kept), dropped)
	}
	if len(kept) != 2 || kept[1].Files[0] != "/b/3.kt" {
		t.Errorf("Limit(3) = %v", kept)
	}

	kept, dropped = Limit(sources, 0)
	if Count(kept) != 5 || dropped != 0 {
		t.Errorf("Limit(0) should keep everything, kept %d dropped %d", Count(kept), dropped)
	}
}

func TestIsWithinRoot(t *testing.T) {
	tests := []struct {
		path, root string
		want       bool
	}{
		{"/repo/src/A.kt", "/repo", true},
		{"/repo", "/repo", true},
		{"/repo2/A.kt", "/repo", false},
		{"/etc/passwd", "/repo", false},
	}
	for _, tt := range tests {
		if got := isWithinRoot(tt.path, tt.root); got != tt.want {
			t.Errorf("isWithinRoot(%q, %q) = %v, want %v", tt.path, tt.root, got, tt.want)
		}
	}
}
