// Package testutil holds Kotlin project fixtures shared by package tests.
package testutil

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// CycleSources is a three-file project whose bindings form the cycle
// p.A -> p.B -> p.C -> p.A: two "by di" consumers and one provider parameter.
var CycleSources = map[string]string{
	"A.kt": "package p\n\nclass A {\n    val b: B by di\n}\n",
	"B.kt": "package p\n\nclass B {\n    val c: C by di\n}\n",
	"C.kt": "package p\n\n@Provides\nclass C(val a: A)\n",
}

// WriteFile writes content to path, creating parent directories.
func WriteFile(t *testing.T, path, content string) {
	t.Helper()
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("MkdirAll(%s) error: %v", dir, err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile(%s) error: %v", path, err)
	}
}

// CreateFileTree creates multiple files from a map of relative path -> content.
func CreateFileTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		WriteFile(t, filepath.Join(root, name), content)
	}
}

// KotlinProject writes files into a fresh temporary directory and returns it.
func KotlinProject(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	CreateFileTree(t, dir, files)
	return dir
}

// CommitAll initializes a git repository in dir if needed and commits every
// file in the working tree. It returns the commit hash.
func CommitAll(t *testing.T, dir, message string) string {
	t.Helper()
	repo, err := git.PlainOpen(dir)
	if err == git.ErrRepositoryNotExists {
		repo, err = git.PlainInit(dir, false)
	}
	if err != nil {
		t.Fatalf("open repository %s: %v", dir, err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		t.Fatalf("Worktree() error: %v", err)
	}
	if err := wt.AddWithOptions(&git.AddOptions{All: true}); err != nil {
		t.Fatalf("Add() error: %v", err)
	}
	hash, err := wt.Commit(message, &git.CommitOptions{
		Author: &object.Signature{Name: "Test", Email: "test@example.com", When: time.Now()},
	})
	if err != nil {
		t.Fatalf("Commit() error: %v", err)
	}
	return hash.String()
}
