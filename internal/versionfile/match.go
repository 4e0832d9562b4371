package versionfile

import (
	"github.com/cartgo/cartgo/internal/fingerprint"
)

// Status is the typed outcome of Match, so callers can explain a rebuild
// rather than just seeing a bool.
type Status int

const (
	Matching Status = iota
	VersionFileNotFound
	SourceHashMismatch
	DependenciesHashMismatch
	ConfigurationMismatch
	CommitishMismatch
	PlatformMissing
	ToolchainMismatch
	BinaryHashMismatch
	BinaryHashUnavailable
	SymbolsMismatch
)

func (s Status) String() string {
	switch s {
	case Matching:
		return "matching"
	case VersionFileNotFound:
		return "versionFileNotFound"
	case SourceHashMismatch:
		return "sourceHashMismatch"
	case DependenciesHashMismatch:
		return "dependenciesHashMismatch"
	case ConfigurationMismatch:
		return "configurationMismatch"
	case CommitishMismatch:
		return "commitishMismatch"
	case PlatformMissing:
		return "platformMissing"
	case ToolchainMismatch:
		return "toolchainMismatch"
	case BinaryHashMismatch:
		return "binaryHashMismatch"
	case BinaryHashUnavailable:
		return "binaryHashUnavailable"
	case SymbolsMismatch:
		return "symbolsMismatch"
	default:
		return "unknown"
	}
}

// Request bundles the inputs a Match call checks the on-disk File against.
type Request struct {
	Commitish                string
	SourceHash               string   // "" means: caller does not want this compared
	ResolvedDependenciesHash string   // "" means: caller does not want this compared
	Configuration            string
	Platforms                []string
	// FrameworkPath resolves a platform+framework name to its file path on
	// disk, so Match can recompute its binary digest.
	FrameworkPath func(platform, framework string) string
	// LocalToolchainVersion is this machine's compiler front-end identifier.
	LocalToolchainVersion string
	// ToolchainCompatible reports whether an artifact built with `artifact`
	// is ABI-compatible with the local toolchain `local`.
	ToolchainCompatible func(local, artifact string) bool
	// Symbols, if non-nil, maps a platform+framework pair to the set of
	// undefined symbols referenced by its binary that belong to a known
	// sibling framework, and siblingDefined is that sibling's defined-symbol
	// set.
	// When nil, step 4 (symbol cross-referencing) is skipped.
	Symbols func(platform, framework string) (needed []string, siblingDefined map[string]bool)
}

// Result carries the Status plus, for SymbolsMismatch, the missing symbol
// set.
type Result struct {
	Status  Status
	Missing []string // populated only for SymbolsMismatch
}

// Match checks req against the version file at path, short-circuiting on
// the first mismatch.
func Match(path string, req Request) (Result, error) {
	f, err := Load(path)
	if err != nil {
		return Result{}, err
	}
	if f == nil {
		return Result{Status: VersionFileNotFound}, nil
	}

	if f.Commitish != req.Commitish {
		return Result{Status: CommitishMismatch}, nil
	}
	if f.Configuration != req.Configuration {
		return Result{Status: ConfigurationMismatch}, nil
	}
	if req.SourceHash != "" && f.SourceHash != req.SourceHash {
		return Result{Status: SourceHashMismatch}, nil
	}
	if req.ResolvedDependenciesHash != "" && f.ResolvedDependenciesHash != req.ResolvedDependenciesHash {
		return Result{Status: DependenciesHashMismatch}, nil
	}

	for _, platform := range req.Platforms {
		recs, ok := f.Platforms[platform]
		if !ok {
			return Result{Status: PlatformMissing}, nil
		}
		for _, rec := range recs {
			if req.FrameworkPath != nil {
				p := req.FrameworkPath(platform, rec.Name)
				d, err := fingerprint.HashFile(p)
				if err != nil {
					return Result{Status: BinaryHashUnavailable}, nil
				}
				if d.String() != rec.Hash {
					return Result{Status: BinaryHashMismatch}, nil
				}
			}
			if rec.ToolchainVersion != "" && req.ToolchainCompatible != nil {
				if rec.ToolchainVersion != req.LocalToolchainVersion &&
					!req.ToolchainCompatible(req.LocalToolchainVersion, rec.ToolchainVersion) {
					return Result{Status: ToolchainMismatch}, nil
				}
			}
		}
	}

	if req.Symbols != nil {
		var missing []string
		for platform, recs := range f.Platforms {
			for _, rec := range recs {
				needed, defined := req.Symbols(platform, rec.Name)
				for _, sym := range needed {
					if !defined[sym] {
						missing = append(missing, sym)
					}
				}
			}
		}
		if len(missing) > 0 {
			return Result{Status: SymbolsMismatch, Missing: missing}, nil
		}
	}

	return Result{Status: Matching}, nil
}
