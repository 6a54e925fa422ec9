// Package gitdiff shells out to `git diff --unified=0` and converts its
// output into (path, line-range) pairs, the input format the Impact Engine
// (C10) needs to map a changed range onto enclosing symbols. This is the
// one place in the module that invokes an external process; SPEC_FULL §1
// treats CLI/environment plumbing as a collaborator, not core, so the
// Impact Engine itself never shells out directly.
//
// Grounded on standardbeagle-lci's internal/git/provider.go (repo-root
// resolution via `git rev-parse --show-toplevel`, exec.CommandContext with
// cmd.Dir set, name-status/diff parsing style).
package gitdiff

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/standardbeagle/pui/internal/engineerr"
)

// Hunk is one changed line range within one file, as produced by a unified
// diff with zero context lines.
type Hunk struct {
	Path      string
	StartLine int
	EndLine   int
}

// Range runs `git diff --unified=0 <revRange>` in repoRoot and returns the
// changed hunks from the "+" side (the post-change file), since the Impact
// Engine reasons about symbols as they exist in the working tree/target
// ref, not the pre-image.
func Range(ctx context.Context, repoRoot, revRange string) ([]Hunk, error) {
	args := []string{"diff", "--unified=0", "--no-color"}
	if revRange != "" {
		args = append(args, revRange)
	}
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = repoRoot

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, engineerr.New(engineerr.KindInternal, "gitdiff.range", fmt.Errorf("git diff failed: %w: %s", err, stderr.String()))
	}
	return parseUnifiedHunks(stdout.Bytes())
}

// WorkingTree returns hunks for the uncommitted diff (staged + unstaged
// against HEAD), used when the caller passes the range "working-tree".
func WorkingTree(ctx context.Context, repoRoot string) ([]Hunk, error) {
	return Range(ctx, repoRoot, "HEAD")
}

// hunkHeaderPrefix is the prefix of a unified diff hunk header, e.g. "@@ -12,3 +12,0 @@".
const hunkHeaderPrefix = "@@ -"

func parseUnifiedHunks(out []byte) ([]Hunk, error) {
	var hunks []Hunk
	var currentPath string

	scanner := bufio.NewScanner(bytes.NewReader(out))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "+++ "):
			currentPath = parseDiffPath(line[4:])
		case strings.HasPrefix(line, hunkHeaderPrefix):
			start, count, ok := parseHunkNewRange(line)
			if !ok || currentPath == "" {
				continue
			}
			if count == 0 {
				// A pure-deletion hunk has no "+" lines; anchor it at the
				// line where the deletion occurred so it still maps to an
				// enclosing symbol.
				count = 1
			}
			hunks = append(hunks, Hunk{Path: currentPath, StartLine: start, EndLine: start + count - 1})
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, engineerr.New(engineerr.KindInternal, "gitdiff.parse", err)
	}
	return hunks, nil
}

// parseDiffPath strips the "a/"/"b/" prefix git diff headers use, and
// reports "/dev/null" (a deleted file) as an empty path so its hunks are
// skipped by the caller.
func parseDiffPath(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "/dev/null" {
		return ""
	}
	if i := strings.IndexByte(raw, '\t'); i >= 0 {
		raw = raw[:i] // a tab separates the path from a rename similarity comment
	}
	if strings.HasPrefix(raw, "b/") {
		return raw[2:]
	}
	if strings.HasPrefix(raw, "a/") {
		return raw[2:]
	}
	return raw
}

// parseHunkNewRange extracts the "+start,count" side of a hunk header. A
// bare "+start" (no comma) implies count=1.
func parseHunkNewRange(line string) (start, count int, ok bool) {
	plus := strings.IndexByte(line, '+')
	if plus < 0 {
		return 0, 0, false
	}
	rest := line[plus+1:]
	if space := strings.IndexByte(rest, ' '); space >= 0 {
		rest = rest[:space]
	}
	parts := strings.SplitN(rest, ",", 2)
	n, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, false
	}
	if len(parts) == 1 {
		return n, 1, true
	}
	c, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, false
	}
	return n, c, true
}
