// Package buildtask is the external build-task facade: the native compiler
// toolchain itself is out of scope, but cartgo needs a narrow interface to
// invoke it and collect what it produced.
package buildtask

import (
	"context"
	"fmt"
	"io"
	"os/exec"

	"github.com/cartgo/cartgo/internal/cgerrors"
)

// Request describes one build-task invocation: a scheme within a project
// descriptor, targeting one platform/sdk/configuration combination, using
// one toolchain, with its own derived-data directory to avoid
// cross-contamination with concurrent siblings.
type Request struct {
	ProjectDescriptor string // path to the project/workspace file, or "" for auto-discovery
	Scheme            string
	Platform          string
	SDK               string
	Configuration     string
	ToolchainVersion  string
	DerivedDataDir    string
	CheckoutDir       string
}

// Result is what a successful build-task invocation produced.
type Result struct {
	// FrameworkPaths are the build products placed under Build/<Platform>/.
	FrameworkPaths []string
}

// Facade invokes the external compiler toolchain for one Request. A Facade
// implementation is expected to stream its subprocess's combined output
// into the io.Writer given to each call as it runs.
type Facade interface {
	Build(ctx context.Context, req Request, output io.Writer) (Result, error)
}

// CommandFacade is the default Facade: it shells out to a configured
// command line, substituting Request fields as environment variables,
// the same subprocess-invocation idiom the orchestrator uses elsewhere
// for external toolchain calls.
type CommandFacade struct {
	// Command is argv for the build tool, e.g. []string{"xcodebuild"} or a
	// wrapper script. Request fields are passed through the environment
	// (BUILDTASK_SCHEME, BUILDTASK_PLATFORM, ...), not as argv, so the
	// command's own flag conventions are untouched.
	Command []string
	// ResultGlob, given req.DerivedDataDir after a successful run, lists the
	// framework paths the run produced.
	ResultGlob func(req Request) ([]string, error)
}

// Build runs the configured command with req's fields exported as
// environment variables, streaming combined stdout/stderr into output.
func (f *CommandFacade) Build(ctx context.Context, req Request, output io.Writer) (Result, error) {
	if len(f.Command) == 0 {
		return Result{}, cgerrors.InternalError("buildtask: no command configured")
	}

	cmd := exec.CommandContext(ctx, f.Command[0], f.Command[1:]...)
	cmd.Dir = req.CheckoutDir
	cmd.Stdout = output
	cmd.Stderr = output
	cmd.Env = append(cmd.Environ(),
		"BUILDTASK_PROJECT_DESCRIPTOR="+req.ProjectDescriptor,
		"BUILDTASK_SCHEME="+req.Scheme,
		"BUILDTASK_PLATFORM="+req.Platform,
		"BUILDTASK_SDK="+req.SDK,
		"BUILDTASK_CONFIGURATION="+req.Configuration,
		"BUILDTASK_TOOLCHAIN_VERSION="+req.ToolchainVersion,
		"BUILDTASK_DERIVED_DATA_DIR="+req.DerivedDataDir,
	)

	if err := cmd.Run(); err != nil {
		return Result{}, cgerrors.BuildFailed(fmt.Errorf("build task for scheme %s: %w", req.Scheme, err), "")
	}

	if f.ResultGlob == nil {
		return Result{}, nil
	}
	paths, err := f.ResultGlob(req)
	if err != nil {
		return Result{}, err
	}
	return Result{FrameworkPaths: paths}, nil
}
