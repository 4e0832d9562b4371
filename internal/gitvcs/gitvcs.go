// Package gitvcs is cartgo's git subprocess facade. It wraps
// github.com/Masterminds/vcs's GitRepo by embedding *vcs.GitRepo and adding
// its own Clone/Fetch/tag/export methods for tool-specific fetch semantics.
package gitvcs

import (
	"context"
	"os/exec"
	"strings"

	"github.com/Masterminds/vcs"
	"github.com/cartgo/cartgo/internal/cgerrors"
)

// Repo is a local git mirror or checkout of one remote URL.
type Repo struct {
	*vcs.GitRepo
}

// Open returns a Repo bound to the given remote and local mirror directory.
// It does not touch disk; call Clone or Fetch to materialize it.
func Open(remote, local string) (*Repo, error) {
	r, err := vcs.NewGitRepo(remote, local)
	if err != nil {
		return nil, cgerrors.GitFailed(err)
	}
	return &Repo{GitRepo: r}, nil
}

// Clone performs a full clone into the local path. Mirrors are bare-ish
// working copies used only for object storage and checkout export, so
// submodules are intentionally NOT recursively cloned here: submodule
// handling is the concern of the checkout step, not the mirror.
func (r *Repo) Clone(ctx context.Context) error {
	out, err := runGit(ctx, "", "clone", "--mirror", r.Remote(), r.LocalPath())
	if err != nil {
		return cgerrors.GitFailed(wrapOutput(err, out))
	}
	return nil
}

// Fetch brings an existing mirror up to date with --tags.
func (r *Repo) Fetch(ctx context.Context) error {
	out, err := runGit(ctx, r.LocalPath(), "fetch", "--tags", "--prune", r.Remote())
	if err != nil {
		return cgerrors.GitFailed(wrapOutput(err, out))
	}
	return nil
}

// Tags lists tags reachable in the mirror.
func (r *Repo) Tags(ctx context.Context) ([]string, error) {
	out, err := runGit(ctx, r.LocalPath(), "tag", "--list")
	if err != nil {
		return nil, cgerrors.GitFailed(wrapOutput(err, out))
	}
	var tags []string
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		if line != "" {
			tags = append(tags, line)
		}
	}
	return tags, nil
}

// ResolveRef resolves ref (a branch, tag, or partial commit id) to a full
// commit id.
func (r *Repo) ResolveRef(ctx context.Context, ref string) (string, error) {
	out, err := runGit(ctx, r.LocalPath(), "rev-parse", "--verify", ref+"^{commit}")
	if err != nil {
		return "", cgerrors.GitFailed(wrapOutput(err, out))
	}
	return strings.TrimSpace(out), nil
}

// IsReference reports whether commitish already resolves inside the local
// mirror, without fetching. Used to decide whether a CloneOrFetch caller's
// requested commit-ish needs a network fetch at all.
func (r *Repo) IsReference(commitish string) bool {
	cmd := exec.Command("git", "rev-parse", "--verify", "--quiet", commitish+"^{commit}")
	cmd.Dir = r.LocalPath()
	return cmd.Run() == nil
}

// TagsAt lists tags pointing at the given commit id.
func (r *Repo) TagsAt(ctx context.Context, commit string) ([]string, error) {
	out, err := runGit(ctx, r.LocalPath(), "tag", "--points-at", commit)
	if err != nil {
		return nil, cgerrors.GitFailed(wrapOutput(err, out))
	}
	var tags []string
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		if line != "" {
			tags = append(tags, line)
		}
	}
	return tags, nil
}

// ExportTree extracts the given commit-ish into dir (created if needed) via
// "git archive" from the mirror. Files at the same paths are overwritten;
// other files already in dir are left in place.
func (r *Repo) ExportTree(ctx context.Context, commitish, dir string) error {
	cmd := exec.CommandContext(ctx, "sh", "-c",
		"git archive --format=tar "+shellQuote(commitish)+" | (mkdir -p "+shellQuote(dir)+" && tar -x -C "+shellQuote(dir)+")")
	cmd.Dir = r.LocalPath()
	out, err := cmd.CombinedOutput()
	if err != nil {
		return cgerrors.GitFailed(wrapOutput(err, string(out)))
	}
	return nil
}

func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

func runGit(ctx context.Context, dir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	return string(out), err
}

func wrapOutput(err error, out string) error {
	if strings.TrimSpace(out) == "" {
		return err
	}
	return &gitCommandError{cause: err, output: out}
}

type gitCommandError struct {
	cause  error
	output string
}

func (e *gitCommandError) Error() string { return e.cause.Error() + ": " + strings.TrimSpace(e.output) }
func (e *gitCommandError) Unwrap() error { return e.cause }
