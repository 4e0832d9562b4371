package retriever

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/cartgo/cartgo/internal/cgerrors"
	"github.com/cartgo/cartgo/internal/depmodel"
	"github.com/termie/go-shutil"
)

// Asset is one candidate binary archive found by a ReleasesAPI query.
type Asset struct {
	Name        string
	ContentType string
	DownloadURL string
}

// ReleasesAPI is the external collaborator for tier 2 of the binary cache.
// The native compiler toolchain and HTTP downloading are external
// collaborators; cartgo only needs the narrow surface of listing a
// release's assets for a given tag.
type ReleasesAPI interface {
	ListAssets(ctx context.Context, dep depmodel.Dependency, tag string) ([]Asset, error)
}

// binaryAssetName is the filename tier 2 assets must match
// (<name>.framework.zip).
func binaryAssetName(depName string) string { return depName + ".framework.zip" }

// BinaryCache implements the three-tier binary cache lookup.
type BinaryCache struct {
	root               string // <home>/<cache-root>
	releases           ReleasesAPI
	customFetchCommand []string
	allowedTypes       map[string]bool
	httpClient         *http.Client
}

// NewBinaryCache constructs a tiered binary cache rooted at cacheRoot.
func NewBinaryCache(cacheRoot string, releases ReleasesAPI, customCmd []string, allowedTypes map[string]bool) *BinaryCache {
	if allowedTypes == nil {
		allowedTypes = map[string]bool{
			"application/zip":              true,
			"application/octet-stream":     true,
			"application/x-zip-compressed": true,
		}
	}
	return &BinaryCache{
		root:               cacheRoot,
		releases:           releases,
		customFetchCommand: customCmd,
		allowedTypes:       allowedTypes,
		httpClient:         &http.Client{},
	}
}

// localArtifactPath is tier 1: <home>/<cache-root>/<toolchain>/<dep>/<version>/<config>/<dep>.framework.zip
func (c *BinaryCache) localArtifactPath(toolchain, dep, version, config string) string {
	return filepath.Join(c.root, toolchain, dep, version, config, dep+".framework.zip")
}

// InstallBinary consults the binary cache tiers in priority order; on hit,
// unarchives into the Build tree and rewrites debug-symbol source-path
// mappings via rewriteSymbols (nil-able, since that rewrite is an
// OS-toolchain-specific post-process that the caller — the Orchestrator,
// which knows the buildtask facade's conventions — supplies). It does not
// write a version file; only what the archive contains is placed in
// buildDir.
func (c *BinaryCache) InstallBinary(ctx context.Context, dep depmodel.Dependency, version depmodel.PinnedVersion, config, toolchainVersion string, platforms []string, buildDir string, rewriteSymbols func(path string) error) (bool, error) {
	name := dep.CanonicalName()

	if path := c.localArtifactPath(toolchainVersion, name, string(version), config); fileExists(path) {
		return true, c.unarchiveAndRecord(path, buildDir, rewriteSymbols)
	}

	if dep.Kind == depmodel.KindBinary {
		if ok, err := c.installFromManifest(ctx, dep, version, config, toolchainVersion, buildDir, rewriteSymbols); ok || err != nil {
			return ok, err
		}
	}

	if c.releases != nil && dep.Kind == depmodel.KindGitHub {
		asset, err := c.findReleaseAsset(ctx, dep, string(version))
		if err == nil && asset != nil {
			tmp, err := c.download(ctx, asset.DownloadURL)
			if err == nil {
				defer os.Remove(tmp)
				if err := c.promoteToTier1(tmp, toolchainVersion, name, string(version), config); err == nil {
					path := c.localArtifactPath(toolchainVersion, name, string(version), config)
					return true, c.unarchiveAndRecord(path, buildDir, rewriteSymbols)
				}
			}
		}
	}

	if len(c.customFetchCommand) > 0 {
		target := c.localArtifactPath(toolchainVersion, name, string(version), config)
		if err := c.runCustomFetchCommand(ctx, dep, version, config, toolchainVersion, target); err == nil && fileExists(target) {
			return true, c.unarchiveAndRecord(target, buildDir, rewriteSymbols)
		}
	}

	return false, nil
}

// installFromManifest is the binary-dependency-specific tier: the
// dependency's own manifest, rather than a host releases API, is
// the authority for its archive URL.
func (c *BinaryCache) installFromManifest(ctx context.Context, dep depmodel.Dependency, version depmodel.PinnedVersion, config, toolchainVersion, buildDir string, rewriteSymbols func(path string) error) (bool, error) {
	m, err := fetchBinaryManifest(ctx, dep.URL)
	if err != nil {
		return false, err
	}
	url, ok := binaryDownloadURL(m, string(version), config)
	if !ok {
		return false, nil
	}
	tmp, err := c.download(ctx, url)
	if err != nil {
		return false, err
	}
	defer os.Remove(tmp)

	name := dep.CanonicalName()
	if err := c.promoteToTier1(tmp, toolchainVersion, name, string(version), config); err != nil {
		return false, err
	}
	path := c.localArtifactPath(toolchainVersion, name, string(version), config)
	return true, c.unarchiveAndRecord(path, buildDir, rewriteSymbols)
}

func (c *BinaryCache) findReleaseAsset(ctx context.Context, dep depmodel.Dependency, tag string) (*Asset, error) {
	assets, err := c.releases.ListAssets(ctx, dep, tag)
	if err != nil {
		return nil, err
	}
	want := binaryAssetName(dep.CanonicalName())
	for _, a := range assets {
		if a.Name == want && c.allowedTypes[a.ContentType] {
			a := a
			return &a, nil
		}
	}
	return nil, nil
}

// download copies url (http(s):// or file://) into a fresh temp file and
// returns its path; the caller owns and removes the returned path.
func (c *BinaryCache) download(ctx context.Context, url string) (string, error) {
	var src io.ReadCloser
	if strings.HasPrefix(url, "file://") {
		f, err := os.Open(strings.TrimPrefix(url, "file://"))
		if err != nil {
			return "", cgerrors.ReadFailed(url, err)
		}
		src = f
	} else {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return "", err
		}
		resp, err := c.httpClient.Do(req)
		if err != nil {
			return "", cgerrors.GitFailed(err)
		}
		if resp.StatusCode/100 != 2 {
			resp.Body.Close()
			return "", cgerrors.HTTPError(resp.StatusCode)
		}
		src = resp.Body
	}
	defer src.Close()

	f, err := os.CreateTemp("", "cartgo-binary-*.zip")
	if err != nil {
		return "", err
	}
	defer f.Close()
	if _, err := io.Copy(f, src); err != nil {
		return "", err
	}
	return f.Name(), nil
}

// promoteToTier1 copies a tier-2/tier-3 artifact into the local on-disk
// cache so the next InstallBinary call hits tier 1 directly.
func (c *BinaryCache) promoteToTier1(srcPath, toolchain, dep, version, config string) error {
	dst := c.localArtifactPath(toolchain, dep, version, config)
	if err := os.MkdirAll(filepath.Dir(dst), 0o777); err != nil {
		return cgerrors.WriteFailed(dst, err)
	}
	if _, err := shutil.Copy(srcPath, dst, false); err != nil {
		return cgerrors.WriteFailed(dst, err)
	}
	return nil
}

// runCustomFetchCommand invokes the caller-configured fetch command as a
// subprocess with the environment variables of tier 3. The
// command must move the asset to CACHE_TARGET_FILE_PATH and exit 0.
func (c *BinaryCache) runCustomFetchCommand(ctx context.Context, dep depmodel.Dependency, version depmodel.PinnedVersion, config, toolchainVersion, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o777); err != nil {
		return cgerrors.WriteFailed(target, err)
	}
	cmd := exec.CommandContext(ctx, c.customFetchCommand[0], c.customFetchCommand[1:]...)
	cmd.Env = append(os.Environ(),
		"CACHE_DEPENDENCY_NAME="+dep.CanonicalName(),
		"CACHE_DEPENDENCY_VERSION="+string(version),
		"CACHE_DEPENDENCY_HASH="+string(version),
		"CACHE_BUILD_CONFIGURATION="+config,
		"CACHE_TOOLCHAIN_VERSION="+toolchainVersion,
		"CACHE_TARGET_FILE_PATH="+target,
	)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("custom fetch command failed: %w (%s)", err, out)
	}
	return nil
}

func (c *BinaryCache) unarchiveAndRecord(archivePath, buildDir string, rewriteSymbols func(path string) error) error {
	if err := unzip(archivePath, buildDir); err != nil {
		return err
	}
	if rewriteSymbols != nil {
		return rewriteSymbols(buildDir)
	}
	return nil
}

// StoreBinary archives freshly built outputs into the local binary cache
// (tier 1), returning the archive's path as a file:// URL.
func (c *BinaryCache) StoreBinary(dep depmodel.Dependency, version depmodel.PinnedVersion, frameworkPaths []string, config, toolchainVersion string) (string, error) {
	name := dep.CanonicalName()
	dst := c.localArtifactPath(toolchainVersion, name, string(version), config)
	if err := os.MkdirAll(filepath.Dir(dst), 0o777); err != nil {
		return "", cgerrors.WriteFailed(dst, err)
	}
	if err := zipPaths(frameworkPaths, dst); err != nil {
		return "", err
	}
	return "file://" + dst, nil
}

// InstallBinary delegates to the Retriever's BinaryCache.
func (r *Retriever) InstallBinary(ctx context.Context, dep depmodel.Dependency, version depmodel.PinnedVersion, config, toolchainVersion string, platforms []string, buildDir string, rewriteSymbols func(path string) error) (bool, error) {
	return r.binary.InstallBinary(ctx, dep, version, config, toolchainVersion, platforms, buildDir, rewriteSymbols)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// unzip extracts a zip archive into dir. Archive (un)zipping is an external
// collaborator; this is the thin stdlib-backed glue that calls
// out to it.
func unzip(archivePath, dir string) error {
	r, err := zip.OpenReader(archivePath)
	if err != nil {
		return cgerrors.ReadFailed(archivePath, err)
	}
	defer r.Close()

	if err := os.MkdirAll(dir, 0o777); err != nil {
		return cgerrors.WriteFailed(dir, err)
	}
	for _, f := range r.File {
		dst := filepath.Join(dir, f.Name)
		if f.FileInfo().IsDir() {
			os.MkdirAll(dst, f.Mode())
			continue
		}
		if err := os.MkdirAll(filepath.Dir(dst), 0o777); err != nil {
			return err
		}
		rc, err := f.Open()
		if err != nil {
			return err
		}
		out, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, f.Mode())
		if err != nil {
			rc.Close()
			return err
		}
		_, err = io.Copy(out, rc)
		rc.Close()
		out.Close()
		if err != nil {
			return err
		}
	}
	return nil
}

func zipPaths(paths []string, dst string) error {
	out, err := os.Create(dst)
	if err != nil {
		return cgerrors.WriteFailed(dst, err)
	}
	defer out.Close()

	zw := zip.NewWriter(out)
	defer zw.Close()

	for _, p := range paths {
		if err := addToZip(zw, p, filepath.Base(p)); err != nil {
			return err
		}
	}
	return nil
}

func addToZip(zw *zip.Writer, path, nameInZip string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.IsDir() {
		entries, err := os.ReadDir(path)
		if err != nil {
			return err
		}
		for _, e := range entries {
			if err := addToZip(zw, filepath.Join(path, e.Name()), nameInZip+"/"+e.Name()); err != nil {
				return err
			}
		}
		return nil
	}
	w, err := zw.Create(nameInZip)
	if err != nil {
		return err
	}
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = io.Copy(w, f)
	return err
}
