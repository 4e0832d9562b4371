package main

import (
	"context"
	"flag"
	"os"
	"path/filepath"

	"github.com/cartgo/cartgo/internal/manifest"
)

const checkoutShortHelp = `Materialize working trees for every resolved dependency`
const checkoutLongHelp = `
Reads Cartfile.resolved and checks out each dependency's pinned revision
into Carthage/Checkouts/<name>.
`

type checkoutCommand struct{}

func (cmd *checkoutCommand) Name() string      { return "checkout" }
func (cmd *checkoutCommand) Args() string      { return "" }
func (cmd *checkoutCommand) ShortHelp() string { return checkoutShortHelp }
func (cmd *checkoutCommand) LongHelp() string  { return checkoutLongHelp }
func (cmd *checkoutCommand) Register(fs *flag.FlagSet) {}

func (cmd *checkoutCommand) Run(env *Env, args []string) error {
	ctx, retr, err := buildEnv(env)
	if err != nil {
		return err
	}
	defer retr.Close()

	f, err := os.Open(ctx.ResolvedManifestPath())
	if err != nil {
		return err
	}
	defer f.Close()
	resolved, err := manifest.ParseResolved(f)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(ctx.CheckoutsDir(), 0o755); err != nil {
		return err
	}

	background := context.Background()
	for _, e := range resolved.Entries {
		dir := filepath.Join(ctx.CheckoutsDir(), e.Dependency.CanonicalName())
		if err := retr.Checkout(background, e.Dependency, e.Pinned, dir); err != nil {
			return err
		}
		env.Out.Logf("checked out %s at %s", e.Dependency.CanonicalName(), e.Pinned)
	}
	return nil
}
