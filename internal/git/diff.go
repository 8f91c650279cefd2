package git

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"sort"
	"strings"
)

// emptyTreeID is the id Git assigns to a tree with no entries.
const emptyTreeID = "4b825dc642cb6eb9a060e54bf8d69288fbee4904"

// diffStatusEntry represents one record of `git diff-tree --name-status -z`.
type diffStatusEntry struct {
	Status  byte
	Path    string
	OldPath string // non-empty for renames and copies
}

// CLIRenameDetector delegates rename detection to the git executable, so the
// pairing follows git's own default similarity policy.
type CLIRenameDetector struct {
	RepoPath string
	GitPath  string
}

// NewCLIRenameDetector creates a detector for the repository at repoPath.
func NewCLIRenameDetector(repoPath string) *CLIRenameDetector {
	return &CLIRenameDetector{RepoPath: repoPath, GitPath: "git"}
}

// Renames runs `git diff-tree` between the two subtree trees and returns the
// rename pairs it reports.
func (d *CLIRenameDetector) Renames(ctx context.Context, older, newer PathSnapshot) ([]RenamePair, error) {
	from, to := older.TreeID, newer.TreeID
	if from == "" {
		from = emptyTreeID
	}
	if to == "" {
		to = emptyTreeID
	}
	if from == to {
		return nil, nil
	}

	args := []string{
		"-C", d.RepoPath,
		"diff-tree",
		"-r",
		"-M",
		"--name-status",
		"-z",
		from, to,
	}
	out, err := exec.CommandContext(ctx, d.GitPath, args...).Output()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, accessorIO("git diff-tree", fmt.Errorf("%w: %s", err, strings.TrimSpace(string(out))))
	}

	entries, err := parseDiffNameStatus(out)
	if err != nil {
		return nil, accessorIO("parse git diff-tree output", err)
	}

	var pairs []RenamePair
	for _, e := range entries {
		if e.Status != 'R' {
			continue
		}
		pairs = append(pairs, RenamePair{
			From: JoinPath(older.Root, e.OldPath),
			To:   JoinPath(newer.Root, e.Path),
		})
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].To != pairs[j].To {
			return pairs[i].To < pairs[j].To
		}
		return pairs[i].From < pairs[j].From
	})
	return pairs, nil
}

// parseDiffNameStatus parses NUL-delimited `--name-status -z` output.
// Format: STATUS\0PATH\0 (or STATUS\0OLDPATH\0NEWPATH\0 for renames/copies)
func parseDiffNameStatus(data []byte) ([]diffStatusEntry, error) {
	parts := bytes.Split(data, []byte{0x00})
	entries := make([]diffStatusEntry, 0, len(parts)/2)

	i := 0
	for i < len(parts) {
		status := strings.TrimSpace(string(parts[i]))
		if status == "" {
			i++
			continue
		}
		if i+1 >= len(parts) {
			break
		}

		if status[0] == 'R' || status[0] == 'C' {
			// Rename/Copy: STATUS\0OLDPATH\0NEWPATH
			if i+2 >= len(parts) {
				return nil, fmt.Errorf("unexpected diff output: %s entry missing new path", status)
			}
			entries = append(entries, diffStatusEntry{
				Status:  status[0],
				Path:    string(parts[i+2]),
				OldPath: string(parts[i+1]),
			})
			i += 3
			continue
		}

		entries = append(entries, diffStatusEntry{
			Status: status[0],
			Path:   string(parts[i+1]),
		})
		i += 2
	}

	return entries, nil
}
