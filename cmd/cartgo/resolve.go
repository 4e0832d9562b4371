package main

import (
	"context"
	"flag"
	"os"
	"strings"

	"github.com/cartgo/cartgo/internal/manifest"
	"github.com/cartgo/cartgo/internal/resolve"
)

const resolveShortHelp = `Resolve dependency versions and write Cartfile.resolved`
const resolveLongHelp = `
Reads Cartfile (and Cartfile.private, if present), resolves a pinned
version for every dependency, and writes Cartfile.resolved.

With no flags or arguments, every dependency already in Cartfile.resolved
is held at its previous pin and only newly added dependencies are free to
move. Name dependencies as arguments, or pass them to -update as a
comma-separated list, to allow those to move to a newer version;
-update "*" lets every dependency move.
`

type resolveCommand struct {
	update string // comma-separated names, or "" for "none", or "*" for "all"
}

func (cmd *resolveCommand) Name() string      { return "resolve" }
func (cmd *resolveCommand) Args() string      { return "[dependency...]" }
func (cmd *resolveCommand) ShortHelp() string { return resolveShortHelp }
func (cmd *resolveCommand) LongHelp() string  { return resolveLongHelp }

func (cmd *resolveCommand) Register(fs *flag.FlagSet) {
	fs.StringVar(&cmd.update, "update", "", "comma-separated dependency names to update, or \"*\" for all")
}

func (cmd *resolveCommand) Run(env *Env, args []string) error {
	ctx, retr, err := buildEnv(env)
	if err != nil {
		return err
	}
	defer retr.Close()

	m, err := readManifest(ctx.ManifestPath(), ctx.PrivateManifestPath())
	if err != nil {
		return err
	}

	var previous *manifest.Resolved
	if f, err := os.Open(ctx.ResolvedManifestPath()); err == nil {
		previous, err = manifest.ParseResolved(f)
		f.Close()
		if err != nil {
			return err
		}
	}

	names := args
	if cmd.update != "" && cmd.update != "*" {
		names = strings.Split(cmd.update, ",")
	}

	req := resolve.Request{Root: m.Entries, Previous: previous}
	if cmd.update != "*" {
		updatable := make(map[string]bool, len(names))
		for _, n := range names {
			updatable[strings.TrimSpace(n)] = true
		}
		req.UpdatableNames = updatable
	}

	r := resolve.New(retr)
	resolved, err := r.Resolve(context.Background(), req)
	if err != nil {
		return err
	}

	out, err := os.Create(ctx.ResolvedManifestPath())
	if err != nil {
		return err
	}
	defer out.Close()
	if err := manifest.WriteResolved(out, resolved); err != nil {
		return err
	}

	env.Out.Logf("resolved %d dependencies", len(resolved.Entries))
	return nil
}

func readManifest(publicPath, privatePath string) (*manifest.Manifest, error) {
	pub, err := parseManifestFile(publicPath)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(privatePath); err != nil {
		return pub, nil
	}
	priv, err := parseManifestFile(privatePath)
	if err != nil {
		return nil, err
	}
	return manifest.Merge(pub, priv)
}

func parseManifestFile(path string) (*manifest.Manifest, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return manifest.Parse(f)
}
