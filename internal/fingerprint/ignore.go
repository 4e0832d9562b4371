package fingerprint

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	gitignore "github.com/sabhiram/go-gitignore"
)

// DefaultIgnores is the default top-level ignore set: editor
// and IDE cruft plus cartgo's own Build/Checkouts output directories.
var DefaultIgnores = []string{
	".DS_Store",
	"**/xcuserdata/**",
	"*.xcscheme",
	"IDEWorkspaceChecks.plist",
	"WorkspaceSettings.xcsettings",
	".*",
	"Pods",
	"Build",
	"Checkouts",
}

// ignoreStack holds the raw pattern lines accumulated root-to-here: parent
// lines first, then each descended directory's own .gitignore lines
// appended in turn, so a child's "!pattern" negation can override an
// inherited exclusion exactly as it would within a single real .gitignore
// file.
type ignoreStack struct {
	lines   []string
	compile *gitignore.GitIgnore
}

// newIgnoreStack seeds the stack with the default top-level ignore set plus
// any caller-supplied extra patterns.
func newIgnoreStack(extra []string) ignoreStack {
	lines := append(append([]string{}, DefaultIgnores...), extra...)
	return ignoreStack{lines: lines, compile: gitignore.CompileIgnoreLines(lines...)}
}

// push returns a new stack with dir's .gitignore lines appended after the
// inherited lines.
func (s ignoreStack) push(dir string, onErr func(error)) ignoreStack {
	b, err := os.ReadFile(filepath.Join(dir, ".gitignore"))
	if err != nil {
		if !os.IsNotExist(err) && onErr != nil {
			onErr(err)
		}
		return s
	}
	next := append(append([]string{}, s.lines...), strings.Split(string(b), "\n")...)
	return ignoreStack{lines: next, compile: gitignore.CompileIgnoreLines(next...)}
}

// matches reports whether relPath (slash-separated, relative to the hash
// root) is ignored under the accumulated pattern set.
func (s ignoreStack) matches(relPath string) bool {
	return s.compile.MatchesPath(relPath)
}

// sortedNames sorts names in raw byte order ascending.
func sortedNames(names []string) []string {
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}
