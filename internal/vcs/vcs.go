// Package vcs reads Kotlin sources straight from git history.
package vcs

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/panbanda/knitgraph/pkg/models"
	"github.com/panbanda/knitgraph/pkg/parser"
)

// ErrRefNotFound is returned when a revision cannot be resolved.
var ErrRefNotFound = errors.New("revision not found")

// Revision describes the commit a snapshot was read from.
type Revision struct {
	Ref    string
	Commit string
	Prefix string // repository-relative directory the snapshot is limited to
}

// ShortCommit returns the first seven characters of the commit hash.
func (r Revision) ShortCommit() string {
	if len(r.Commit) > 7 {
		return r.Commit[:7]
	}
	return r.Commit
}

// Filter reports whether a repository-relative path should be skipped.
type Filter func(path string) bool

// open opens the repository containing path and returns it with the
// slash-separated directory of path relative to the worktree root.
func open(path string) (*git.Repository, string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, "", err
	}
	repo, err := git.PlainOpenWithOptions(abs, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, "", fmt.Errorf("failed to open repository at %s: %w", path, err)
	}

	prefix := ""
	if wt, err := repo.Worktree(); err == nil {
		root := wt.Filesystem.Root()
		if resolved, err := filepath.EvalSymlinks(root); err == nil {
			root = resolved
		}
		if resolved, err := filepath.EvalSymlinks(abs); err == nil {
			abs = resolved
		}
		if rel, err := filepath.Rel(root, abs); err == nil && rel != "." && !strings.HasPrefix(rel, "..") {
			prefix = filepath.ToSlash(rel)
		}
	}
	return repo, prefix, nil
}

// ReadRevision loads every Kotlin file in the tree of ref. When path is a
// subdirectory of the worktree only files below it are read, and their paths
// are made relative to it. Files are returned sorted by path.
func ReadRevision(ctx context.Context, path, ref string, skip Filter) ([]models.SourceFile, *Revision, error) {
	repo, prefix, err := open(path)
	if err != nil {
		return nil, nil, err
	}

	if ref == "" {
		ref = "HEAD"
	}
	hash, err := repo.ResolveRevision(plumbing.Revision(ref))
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %s: %v", ErrRefNotFound, ref, err)
	}
	commit, err := repo.CommitObject(*hash)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load commit %s: %w", hash, err)
	}
	tree, err := commit.Tree()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load tree for %s: %w", hash, err)
	}

	var files []models.SourceFile
	err = tree.Files().ForEach(func(f *object.File) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if f.Mode != filemode.Regular && f.Mode != filemode.Executable {
			return nil
		}

		rel, ok := underPrefix(f.Name, prefix)
		if !ok || !parser.IsKotlin(rel) {
			return nil
		}
		if skip != nil && skip(rel) {
			return nil
		}

		content, err := f.Contents()
		if err != nil {
			return fmt.Errorf("failed to read %s at %s: %w", f.Name, ref, err)
		}
		files = append(files, models.SourceFile{Path: rel, Content: content})
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files, &Revision{Ref: ref, Commit: hash.String(), Prefix: prefix}, nil
}

func underPrefix(name, prefix string) (string, bool) {
	if prefix == "" {
		return name, true
	}
	if !strings.HasPrefix(name, prefix+"/") {
		return "", false
	}
	return strings.TrimPrefix(name, prefix+"/"), true
}

// IsDirty returns true if there are uncommitted changes in the working directory.
// Untracked files are not considered dirty.
func IsDirty(path string) (bool, error) {
	repo, _, err := open(path)
	if err != nil {
		return false, err
	}

	wt, err := repo.Worktree()
	if err != nil {
		return false, err
	}

	status, err := wt.Status()
	if err != nil {
		return false, err
	}

	for _, s := range status {
		if s.Staging == git.Untracked && s.Worktree == git.Untracked {
			continue
		}
		if s.Staging != git.Unmodified || s.Worktree != git.Unmodified {
			return true, nil
		}
	}
	return false, nil
}

// CurrentRef returns the current branch name or commit SHA (for detached HEAD).
func CurrentRef(path string) (string, error) {
	repo, _, err := open(path)
	if err != nil {
		return "", err
	}

	head, err := repo.Head()
	if err != nil {
		return "", err
	}
	if head.Name().IsBranch() {
		return head.Name().Short(), nil
	}
	return head.Hash().String(), nil
}
