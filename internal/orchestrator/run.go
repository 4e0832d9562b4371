package orchestrator

import (
	"context"
	"crypto/sha256"
	"fmt"
	"io"
	"os"
	"runtime"
	"sort"
	"sync"

	"github.com/cartgo/cartgo/internal/buildtask"
	"github.com/cartgo/cartgo/internal/cgerrors"
	"github.com/cartgo/cartgo/internal/depmodel"
	"github.com/cartgo/cartgo/internal/fingerprint"
	"github.com/cartgo/cartgo/internal/versionfile"
	"golang.org/x/sync/semaphore"
)

// NodeStatus is the outcome of driving one node through the per-node flow.
type NodeStatus int

const (
	Built NodeStatus = iota
	SkippedBuildingCached
	SkippedDependencyFailed
	Failed
)

func (s NodeStatus) String() string {
	switch s {
	case Built:
		return "built"
	case SkippedBuildingCached:
		return "skippedBuildingCached"
	case SkippedDependencyFailed:
		return "skippedDependencyFailed"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// NodeResult is one node's final state after Run.
type NodeResult struct {
	Status NodeStatus
	Err    error
}

// SchemeOverride is one scheme's project-manifest build-unit override,
// read from the optional Cartfile.project: which project or workspace file
// to build it from, and which SDKs to target, bypassing auto-discovery.
type SchemeOverride struct {
	Project   string
	Workspace string
	SDKs      []string
}

// Options configures one Run invocation.
type Options struct {
	Layout           Layout
	Platforms        []string
	SDKs             map[string][]string // platform -> sdks; nil means one default sdk per platform
	Configuration    string
	ToolchainVersion string
	UseBinaries      bool
	CacheBuilds      bool
	Parallelism      int // <=0 means runtime.NumCPU()
	ExtraIgnores     []string
	Schemes          map[string]SchemeOverride // canonical name -> project-manifest override

	Fingerprints        *fingerprint.Session
	Facade              buildtask.Facade
	ToolchainCompatible func(local, artifact string) bool
	LogSink             io.Writer
}

// Run drives every node of graph through the per-node flow,
// processing levels in order and nodes within a level concurrently, bounded
// by Options.Parallelism. A node whose dependency failed is skipped without
// attempting a build; independent subtrees keep going regardless.
func Run(ctx context.Context, graph *Graph, provider Provider, opts Options) map[string]NodeResult {
	cpus := runtime.NumCPU()
	parallelism := opts.Parallelism
	if parallelism <= 0 || parallelism > cpus {
		parallelism = cpus
	}
	sem := semaphore.NewWeighted(int64(parallelism))

	var mu sync.Mutex
	results := make(map[string]NodeResult, len(graph.Nodes))
	forceRebuild := make(map[string]bool)

	for _, names := range graph.ByLevel {
		var wg sync.WaitGroup
		for _, name := range names {
			name := name
			if err := sem.Acquire(ctx, 1); err != nil {
				mu.Lock()
				results[name] = NodeResult{Status: Failed, Err: err}
				mu.Unlock()
				continue
			}
			wg.Add(1)
			go func() {
				defer wg.Done()
				defer sem.Release(1)

				mu.Lock()
				depFailed := false
				for _, c := range graph.Nodes[name].Children {
					if results[c].Status == Failed || results[c].Status == SkippedDependencyFailed {
						depFailed = true
						break
					}
				}
				mu.Unlock()

				if depFailed {
					mu.Lock()
					results[name] = NodeResult{Status: SkippedDependencyFailed, Err: fmt.Errorf("dependency of %s failed", name)}
					mu.Unlock()
					return
				}

				mu.Lock()
				force := forceRebuild[name]
				mu.Unlock()

				status, err := runNode(ctx, graph, name, provider, opts, force)

				mu.Lock()
				results[name] = NodeResult{Status: status, Err: err}
				if status == Built {
					for _, ancestor := range graph.Ancestors[name] {
						forceRebuild[ancestor] = true
					}
				}
				mu.Unlock()
			}()
		}
		wg.Wait()
	}

	return results
}

// runNode implements per-node flow steps 1-5 for one dependency. A binary
// dependency has no source tree to check out or build: it goes straight to
// the binary-install tier and never touches git.
func runNode(ctx context.Context, graph *Graph, name string, provider Provider, opts Options, forceRebuild bool) (NodeStatus, error) {
	node := graph.Nodes[name]

	if node.Dependency.Kind == depmodel.KindBinary {
		return runBinaryNode(ctx, node, name, provider, opts)
	}

	checkoutDir := opts.Layout.CheckoutDir(name)

	if err := checkoutWithRetry(ctx, provider, node, checkoutDir); err != nil {
		return Failed, err
	}

	if !forceRebuild && opts.UseBinaries && opts.ToolchainVersion != "" && opts.Configuration != "" {
		installed, err := provider.InstallBinary(ctx, node.Dependency, node.Pinned, opts.Configuration, opts.ToolchainVersion, opts.Platforms, opts.Layout.BuildDir(), nil)
		if err != nil {
			return Failed, err
		}
		if installed {
			res, err := matchVersionFile(opts, name, node, checkoutDir, graph)
			if err != nil {
				return Failed, err
			}
			if res.Status == versionfile.Matching {
				return SkippedBuildingCached, nil
			}
			os.Remove(opts.Layout.VersionFilePath(name))
		}
	}

	if !forceRebuild && opts.CacheBuilds {
		res, err := matchVersionFile(opts, name, node, checkoutDir, graph)
		if err != nil {
			return Failed, err
		}
		if res.Status == versionfile.Matching {
			return SkippedBuildingCached, nil
		}
	}

	if err := buildNode(ctx, node, name, checkoutDir, opts); err != nil {
		return Failed, err
	}

	if err := writeVersionFile(opts, name, node, checkoutDir, graph); err != nil {
		return Failed, err
	}
	return Built, nil
}

// runBinaryNode implements step 2 of the per-node flow for a binary
// dependency: the only admissible source of its artifact is the binary
// cache (the local artifact store, its own manifest, or a custom fetch
// command; the releases API is consulted only for GitHub dependencies), so
// a miss here is a hard failure rather than a fallback to a source build.
func runBinaryNode(ctx context.Context, node *Node, name string, provider Provider, opts Options) (NodeStatus, error) {
	installed, err := provider.InstallBinary(ctx, node.Dependency, node.Pinned, opts.Configuration, opts.ToolchainVersion, opts.Platforms, opts.Layout.BuildDir(), nil)
	if err != nil {
		return Failed, err
	}
	if !installed {
		return Failed, cgerrors.BinaryArtifactUnavailable(name)
	}
	return Built, nil
}

// checkoutWithRetry retries a Checkout that failed with a transient error
// once, after removing checkoutDir. The mirror is not re-cloned here: the
// retry goes through the same Checkout path as the first attempt.
func checkoutWithRetry(ctx context.Context, provider Provider, node *Node, checkoutDir string) error {
	err := provider.Checkout(ctx, node.Dependency, node.Pinned, checkoutDir)
	if err == nil {
		return nil
	}
	if !cgerrors.IsTransient(err) {
		return err
	}
	os.RemoveAll(checkoutDir)
	return provider.Checkout(ctx, node.Dependency, node.Pinned, checkoutDir)
}

// buildNode invokes the external build-task facade once per
// (platform, sdk) pair for node's scheme, running the pairs concurrently,
// at most runtime.NumCPU() at a time.
func buildNode(ctx context.Context, node *Node, name, checkoutDir string, opts Options) error {
	if opts.Facade == nil {
		return cgerrors.InternalError("orchestrator: no build-task facade configured")
	}

	override, hasOverride := opts.Schemes[name]

	type job struct{ platform, sdk string }
	var jobs []job
	for _, platform := range opts.Platforms {
		sdks := opts.SDKs[platform]
		if hasOverride && len(override.SDKs) > 0 {
			sdks = override.SDKs
		}
		if len(sdks) == 0 {
			sdks = []string{platform}
		}
		for _, sdk := range sdks {
			jobs = append(jobs, job{platform, sdk})
		}
	}

	projectDescriptor := ""
	if hasOverride {
		if override.Workspace != "" {
			projectDescriptor = override.Workspace
		} else {
			projectDescriptor = override.Project
		}
	}

	var wg sync.WaitGroup
	errs := make([]error, len(jobs))
	slots := make(chan struct{}, runtime.NumCPU())
	for i, j := range jobs {
		i, j := i, j
		wg.Add(1)
		go func() {
			defer wg.Done()
			slots <- struct{}{}
			defer func() { <-slots }()
			req := buildtask.Request{
				ProjectDescriptor: projectDescriptor,
				Scheme:            name,
				Platform:          j.platform,
				SDK:               j.sdk,
				Configuration:     opts.Configuration,
				ToolchainVersion:  opts.ToolchainVersion,
				DerivedDataDir:    opts.Layout.DerivedDataDir(name, j.platform, j.sdk),
				CheckoutDir:       checkoutDir,
			}
			sink := opts.LogSink
			if sink == nil {
				sink = io.Discard
			}
			_, err := opts.Facade.Build(ctx, req, sink)
			errs[i] = err
		}()
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

func matchVersionFile(opts Options, name string, node *Node, checkoutDir string, graph *Graph) (versionfile.Result, error) {
	sourceHash, err := opts.Fingerprints.HashDirectory(checkoutDir, string(node.Pinned), opts.ExtraIgnores)
	if err != nil {
		return versionfile.Result{}, err
	}
	depsHash := dependenciesHash(graph, name)

	req := versionfile.Request{
		Commitish:                string(node.Pinned),
		SourceHash:               sourceHash.String(),
		ResolvedDependenciesHash: depsHash,
		Configuration:            opts.Configuration,
		Platforms:                opts.Platforms,
		FrameworkPath: func(platform, framework string) string {
			return opts.Layout.FrameworkPath(platform, framework)
		},
		LocalToolchainVersion: opts.ToolchainVersion,
		ToolchainCompatible:   opts.ToolchainCompatible,
	}
	return versionfile.Match(opts.Layout.VersionFilePath(name), req)
}

func writeVersionFile(opts Options, name string, node *Node, checkoutDir string, graph *Graph) error {
	sourceHash, err := opts.Fingerprints.HashDirectory(checkoutDir, string(node.Pinned), opts.ExtraIgnores)
	if err != nil {
		return err
	}

	platforms := make(map[string][]versionfile.FrameworkRecord, len(opts.Platforms))
	for _, platform := range opts.Platforms {
		frameworkPath := opts.Layout.FrameworkPath(platform, name)
		digest, err := fingerprint.HashFile(frameworkPath)
		hash := ""
		if err == nil {
			hash = digest.String()
		}
		platforms[platform] = []versionfile.FrameworkRecord{{
			Name:             name,
			Hash:             hash,
			ToolchainVersion: opts.ToolchainVersion,
		}}
	}

	f := &versionfile.File{
		Commitish:                string(node.Pinned),
		SourceHash:               sourceHash.String(),
		ResolvedDependenciesHash: dependenciesHash(graph, name),
		Configuration:            opts.Configuration,
		Platforms:                platforms,
	}
	return versionfile.Write(opts.Layout.VersionFilePath(name), f)
}

// dependenciesHash hashes the sorted "name@pinned" pairs of name's full
// transitive closure, so a change anywhere in a dependency's own subtree
// invalidates every ancestor's cache entry.
func dependenciesHash(graph *Graph, name string) string {
	seen := map[string]bool{}
	var collect func(string)
	collect = func(n string) {
		if seen[n] {
			return
		}
		seen[n] = true
		for _, c := range graph.Nodes[n].Children {
			collect(c)
		}
	}
	for _, c := range graph.Nodes[name].Children {
		collect(c)
	}

	names := make([]string, 0, len(seen))
	for n := range seen {
		names = append(names, n)
	}
	sort.Strings(names)

	h := sha256.New()
	for _, n := range names {
		fmt.Fprintf(h, "%s@%s\n", n, graph.Nodes[n].Pinned)
	}
	return fmt.Sprintf("%x", h.Sum(nil))
}
