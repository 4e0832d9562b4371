package main

import (
	"runtime"

	"github.com/cartgo/cartgo/internal/buildtask"
	"github.com/cartgo/cartgo/internal/cartctx"
	"github.com/cartgo/cartgo/internal/cgerrors"
	"github.com/cartgo/cartgo/internal/logg"
	"github.com/cartgo/cartgo/internal/retriever"
)

// Env is the per-invocation environment threaded into every command.
type Env struct {
	WorkingDir string
	Out        *logg.Logger
	Verbose    bool
}

// exitCodeFor maps a returned error to cartgo's exit codes: 1 on
// user error (manifest/resolution), 2 on I/O error, 3 on subprocess
// failure.
func exitCodeFor(err error) int {
	switch err.(type) {
	case *cgerrors.ManifestError, *cgerrors.ResolutionError:
		return exitUserError
	case *cgerrors.RetrievalError, *cgerrors.ToolchainError:
		return exitIOError
	case *cgerrors.BuildError, errBuild:
		return exitSubprocess
	default:
		return exitUserError
	}
}

// buildEnv resolves the project context and constructs the Retriever
// shared by every subcommand.
func buildEnv(env *Env) (*cartctx.Ctx, *retriever.Retriever, error) {
	ctx, err := cartctx.NewContext(env.WorkingDir)
	if err != nil {
		return nil, nil, err
	}
	cacheRoot, err := ctx.CacheRoot()
	if err != nil {
		return nil, nil, err
	}
	r, err := retriever.New(retriever.Options{
		CacheRoot:          cacheRoot,
		Concurrency:        runtime.NumCPU(),
		CustomFetchCommand: ctx.Settings.CustomFetchCommand,
	})
	if err != nil {
		return nil, nil, err
	}
	return ctx, r, nil
}

// defaultFacade is the build-task facade used when no project-specific one
// is configured: a single external command, BUILDTASK_* env vars carrying
// the request.
func defaultFacade() buildtask.Facade {
	return &buildtask.CommandFacade{Command: []string{"cartgo-buildtask"}}
}
