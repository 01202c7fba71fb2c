// Package project resolves source text and prior incremental reports from
// a git worktree, the way the teacher's internal/github package resolves
// repository content for test generation.
package project

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/rs/zerolog/log"

	"github.com/mutaplan/mutaplan/pkg/plan"
)

// reportFileName is the sidecar file, relative to the repository root,
// where GitProject looks for a prior run's incremental report.
const reportFileName = ".mutaplan/incremental-report.json"

// GitProject implements plan.Project by reading blobs from a git
// worktree's HEAD commit and loading a previously serialized
// IncrementalReport from a sidecar JSON file.
type GitProject struct {
	repo *git.Repository
	root string

	commit *object.Commit
	tree   *object.Tree
}

// Open opens the git repository rooted at repoPath.
func Open(repoPath string) (*GitProject, error) {
	repo, err := git.PlainOpen(repoPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open repo at %s: %w", repoPath, err)
	}

	head, err := repo.Head()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve HEAD: %w", err)
	}

	commit, err := repo.CommitObject(head.Hash())
	if err != nil {
		return nil, fmt.Errorf("failed to load HEAD commit: %w", err)
	}

	tree, err := commit.Tree()
	if err != nil {
		return nil, fmt.Errorf("failed to load HEAD tree: %w", err)
	}

	return &GitProject{repo: repo, root: repoPath, commit: commit, tree: tree}, nil
}

// SourceFor returns the HEAD blob content for fileName, a path relative
// to the repository root.
func (p *GitProject) SourceFor(fileName string) (string, error) {
	file, err := p.tree.File(fileName)
	if err != nil {
		return "", fmt.Errorf("failed to find %s in HEAD tree: %w", fileName, err)
	}

	contents, err := file.Contents()
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", fileName, err)
	}

	return contents, nil
}

// IncrementalReport loads the sidecar report written by a prior planning
// run, or (nil, nil) when none exists — the differ treats that as "no
// prior run to reuse from".
func (p *GitProject) IncrementalReport() (*plan.IncrementalReport, error) {
	path := filepath.Join(p.root, reportFileName)

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read incremental report %s: %w", path, err)
	}

	var report plan.IncrementalReport
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("failed to decode incremental report %s: %w", path, err)
	}

	return &report, nil
}

// SaveIncrementalReport writes report to the sidecar path so the next
// planning run can reuse verdicts from it.
func SaveIncrementalReport(repoPath string, report *plan.IncrementalReport) error {
	path := filepath.Join(repoPath, reportFileName)

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Dir(path), err)
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode incremental report: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	log.Debug().Str("path", path).Msg("saved incremental report")
	return nil
}

var _ plan.Project = (*GitProject)(nil)
