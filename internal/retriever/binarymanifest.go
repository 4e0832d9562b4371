package retriever

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"sort"
	"strings"

	"github.com/cartgo/cartgo/internal/cgerrors"
	"github.com/cartgo/cartgo/internal/depmodel"
)

// binaryManifest is the on-disk shape of a binary dependency's manifest: a
// flat map from version (or "<version>+<configuration>") tag to the
// archive's download URL.
type binaryManifest map[string]string

func fetchBinaryManifest(ctx context.Context, url string) (binaryManifest, error) {
	var body io.ReadCloser
	switch {
	case strings.HasPrefix(url, "file://"):
		f, err := os.Open(strings.TrimPrefix(url, "file://"))
		if err != nil {
			return nil, cgerrors.ReadFailed(url, err)
		}
		body = f
	default:
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			return nil, cgerrors.GitFailed(err)
		}
		if resp.StatusCode/100 != 2 {
			resp.Body.Close()
			return nil, cgerrors.HTTPError(resp.StatusCode)
		}
		body = resp.Body
	}
	defer body.Close()

	var m binaryManifest
	if err := json.NewDecoder(body).Decode(&m); err != nil {
		return nil, cgerrors.InvalidBinaryJSON(url, err)
	}
	return m, nil
}

// binaryManifestVersions enumerates the versions a binary dependency's
// manifest advertises. A manifest key may carry a "<version>+<config>"
// suffix; only the version portion is reported here, deduplicated.
func (r *Retriever) binaryManifestVersions(ctx context.Context, dep depmodel.Dependency) ([]depmodel.PinnedVersion, error) {
	m, err := fetchBinaryManifest(ctx, dep.URL)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var out []string
	for key := range m {
		version, _ := splitConfigSuffix(key)
		if _, ok := depmodel.PinnedVersion(version).Semantic(); !ok {
			continue
		}
		if seen[version] {
			continue
		}
		seen[version] = true
		out = append(out, version)
	}
	if len(out) == 0 {
		return nil, cgerrors.TaggedVersionNotFound(dep.CanonicalName())
	}
	sort.Strings(out)
	return toPinned(out), nil
}

// splitConfigSuffix splits a manifest key of the form "<version>+<config>"
// into its version and (possibly empty) configuration parts.
func splitConfigSuffix(key string) (version, config string) {
	if i := strings.IndexByte(key, '+'); i >= 0 {
		return key[:i], key[i+1:]
	}
	return key, ""
}

// binaryDownloadURL resolves the archive URL for version/config out of a
// binary dependency's manifest, preferring an exact "version+config" key
// over the bare version key.
func binaryDownloadURL(m binaryManifest, version, config string) (string, bool) {
	if config != "" {
		if u, ok := m[version+"+"+config]; ok {
			return u, true
		}
	}
	u, ok := m[version]
	return u, ok
}
