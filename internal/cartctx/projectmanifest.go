package cartctx

import (
	"os"

	pkgerrors "github.com/pkg/errors"
	"gopkg.in/yaml.v2"
)

// SchemeEntry is one scheme's build-unit override: which project or
// workspace file to build it from, and which SDKs to target. Letting the
// Orchestrator skip its own auto-discovery of build units for schemes
// listed here.
type SchemeEntry struct {
	Project   string   `yaml:"project,omitempty"`
	Workspace string   `yaml:"workspace,omitempty"`
	SDKs      []string `yaml:"sdks,omitempty"`
}

// ProjectManifest maps scheme name to its build-unit override.
type ProjectManifest map[string]SchemeEntry

// LoadProjectManifest reads the optional Cartfile.project at path. A
// missing file, or one that is empty or "{}", yields an empty manifest:
// every scheme falls back to auto-discovery.
func LoadProjectManifest(path string) (ProjectManifest, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return ProjectManifest{}, nil
		}
		return nil, pkgerrors.Wrapf(err, "reading %s", path)
	}

	var m ProjectManifest
	if err := yaml.Unmarshal(b, &m); err != nil {
		return nil, pkgerrors.Wrapf(err, "parsing %s", path)
	}
	if m == nil {
		m = ProjectManifest{}
	}
	return m, nil
}
