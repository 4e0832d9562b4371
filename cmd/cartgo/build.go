package main

import (
	"context"
	"flag"
	"os"
	"strings"

	"github.com/cartgo/cartgo/internal/cartctx"
	"github.com/cartgo/cartgo/internal/fingerprint"
	"github.com/cartgo/cartgo/internal/manifest"
	"github.com/cartgo/cartgo/internal/orchestrator"
)

const buildShortHelp = `Build every resolved dependency into a framework`
const buildLongHelp = `
Reads Cartfile.resolved, checks out each dependency, and drives the
external build-task facade in topological order, reusing a
cached artifact or prebuilt binary where the version file says it's safe.
`

type buildCommand struct {
	platforms     string
	configuration string
	toolchain     string
	useBinaries   bool
	cacheBuilds   bool
	jobs          int
}

func (cmd *buildCommand) Name() string      { return "build" }
func (cmd *buildCommand) Args() string      { return "" }
func (cmd *buildCommand) ShortHelp() string { return buildShortHelp }
func (cmd *buildCommand) LongHelp() string  { return buildLongHelp }

func (cmd *buildCommand) Register(fs *flag.FlagSet) {
	fs.StringVar(&cmd.platforms, "platform", "iOS", "comma-separated platform list")
	fs.StringVar(&cmd.configuration, "configuration", "Release", "build configuration")
	fs.StringVar(&cmd.toolchain, "toolchain-version", "", "local toolchain version identifier")
	fs.BoolVar(&cmd.useBinaries, "use-binaries", true, "try prebuilt binaries before building from source")
	fs.BoolVar(&cmd.cacheBuilds, "cache-builds", true, "skip rebuilding when the version file matches")
	fs.IntVar(&cmd.jobs, "jobs", 0, "maximum concurrent compilations (0 means CPU count)")
}

func (cmd *buildCommand) Run(env *Env, args []string) error {
	ctx, retr, err := buildEnv(env)
	if err != nil {
		return err
	}
	defer retr.Close()

	f, err := os.Open(ctx.ResolvedManifestPath())
	if err != nil {
		return err
	}
	resolved, err := manifest.ParseResolved(f)
	f.Close()
	if err != nil {
		return err
	}

	background := context.Background()
	graph, err := orchestrator.BuildGraph(background, resolved, retr)
	if err != nil {
		return err
	}

	projectManifest, err := cartctx.LoadProjectManifest(ctx.ProjectManifestPath())
	if err != nil {
		return err
	}
	schemes := make(map[string]orchestrator.SchemeOverride, len(projectManifest))
	for scheme, entry := range projectManifest {
		schemes[scheme] = orchestrator.SchemeOverride{Project: entry.Project, Workspace: entry.Workspace, SDKs: entry.SDKs}
	}

	layout := orchestrator.Layout{Root: ctx.AbsRoot}
	opts := orchestrator.Options{
		Layout:           layout,
		Platforms:        strings.Split(cmd.platforms, ","),
		Configuration:    cmd.configuration,
		ToolchainVersion: cmd.toolchain,
		UseBinaries:      cmd.useBinaries,
		CacheBuilds:      cmd.cacheBuilds,
		Parallelism:      cmd.jobs,
		Schemes:          schemes,
		Fingerprints:     fingerprint.NewSession(func(warnErr error) { env.Out.Verbosef("fingerprint warning: %v", warnErr) }),
		Facade:           defaultFacade(),
		ToolchainCompatible: func(local, artifact string) bool {
			return local == artifact
		},
	}

	results := orchestrator.Run(background, graph, retr, opts)

	failed := false
	for _, name := range sortedNodeNames(graph) {
		res := results[name]
		switch res.Status {
		case orchestrator.Built:
			env.Out.Logf("%s: built", name)
		case orchestrator.SkippedBuildingCached:
			env.Out.Logf("%s: cached, skipped", name)
		case orchestrator.SkippedDependencyFailed:
			env.Out.Errorf("%s: skipped, a dependency failed", name)
			failed = true
		case orchestrator.Failed:
			env.Out.Errorf("%s: failed: %v", name, res.Err)
			failed = true
		}
	}
	if failed {
		return errBuildHadFailures
	}
	return nil
}

func sortedNodeNames(g *orchestrator.Graph) []string {
	var names []string
	for _, level := range g.ByLevel {
		names = append(names, level...)
	}
	return names
}

var errBuildHadFailures = errBuild{}

type errBuild struct{}

func (errBuild) Error() string { return "one or more dependencies failed to build" }
