// Package cartctx resolves the supporting context of a tool invocation: the
// project root, the cache home, and optional tool-level settings.
package cartctx

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml"
	pkgerrors "github.com/pkg/errors"
)

const (
	manifestFileName     = "Cartfile"
	privateManifestName  = "Cartfile.private"
	resolvedManifestName = "Cartfile.resolved"
	projectManifestName  = "Cartfile.project"
	toolSettingsName     = "cartgo.toml"
	checkoutsDirName     = "Checkouts"
	buildDirName         = "Build"
	cartgoDirName        = "Carthage"
)

var errProjectNotFound = errors.New("no Cartfile found in this directory or any parent")

// Settings is the optional cartgo.toml tool-level configuration.
type Settings struct {
	CacheRoot          string   `toml:"cache_root"`
	CustomFetchCommand []string `toml:"custom_fetch_command"`
	ReleasesHostAllow  []string `toml:"releases_host_allow"`
}

// Ctx is the resolved supporting context for one invocation: the project's
// absolute root directory and its tool settings.
type Ctx struct {
	AbsRoot  string
	Settings Settings
}

// NewContext locates the project root starting from dir ("" means the
// current working directory) by walking upward looking for a Cartfile,
// then loads an optional cartgo.toml from that root.
func NewContext(dir string) (*Ctx, error) {
	var err error
	if dir == "" {
		dir, err = os.Getwd()
		if err != nil {
			return nil, pkgerrors.Wrap(err, "getting working directory")
		}
	}
	root, err := findProjectRoot(dir)
	if err != nil {
		return nil, err
	}

	settings, err := loadSettings(filepath.Join(root, toolSettingsName))
	if err != nil {
		return nil, err
	}

	return &Ctx{AbsRoot: root, Settings: settings}, nil
}

// findProjectRoot searches upward from from looking for a Cartfile.
func findProjectRoot(from string) (string, error) {
	from, err := filepath.Abs(from)
	if err != nil {
		return "", pkgerrors.Wrap(err, "resolving absolute path")
	}
	for {
		mp := filepath.Join(from, manifestFileName)
		if _, err := os.Stat(mp); err == nil {
			return from, nil
		} else if !os.IsNotExist(err) {
			return "", err
		}

		parent := filepath.Dir(from)
		if parent == from {
			return "", errProjectNotFound
		}
		from = parent
	}
}

func loadSettings(path string) (Settings, error) {
	var s Settings
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return s, pkgerrors.Wrapf(err, "reading %s", path)
	}
	if err := toml.Unmarshal(b, &s); err != nil {
		return s, pkgerrors.Wrapf(err, "parsing %s", path)
	}
	return s, nil
}

// ManifestPath, PrivateManifestPath, ResolvedManifestPath, and
// ProjectManifestPath return the absolute paths of the Cartfile family.
func (c *Ctx) ManifestPath() string        { return filepath.Join(c.AbsRoot, manifestFileName) }
func (c *Ctx) PrivateManifestPath() string { return filepath.Join(c.AbsRoot, privateManifestName) }
func (c *Ctx) ResolvedManifestPath() string { return filepath.Join(c.AbsRoot, resolvedManifestName) }
func (c *Ctx) ProjectManifestPath() string  { return filepath.Join(c.AbsRoot, projectManifestName) }

// CheckoutsDir and BuildDir return the working-tree and build-product
// directories under Carthage/.
func (c *Ctx) CheckoutsDir() string {
	return filepath.Join(c.AbsRoot, cartgoDirName, checkoutsDirName)
}
func (c *Ctx) BuildDir() string { return filepath.Join(c.AbsRoot, cartgoDirName, buildDirName) }

// CacheRoot returns the resolved binary/git cache home: the Settings
// override when set, else an OS-appropriate user cache directory.
func (c *Ctx) CacheRoot() (string, error) {
	if c.Settings.CacheRoot != "" {
		return c.Settings.CacheRoot, nil
	}
	base, err := os.UserCacheDir()
	if err != nil {
		return "", pkgerrors.Wrap(err, "resolving user cache directory")
	}
	return filepath.Join(base, "cartgo"), nil
}
