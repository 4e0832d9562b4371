// Package cgerrors holds the typed error taxonomy shared by cartgo's core
// components. Each error is a concrete struct so callers can
// type-switch on it rather than matching strings.
package cgerrors

import (
	"fmt"
	"strings"
)

// ManifestError covers malformed or contradictory manifest input.
type ManifestError struct {
	Reason string // "parse failed", "duplicate dependency", "invalid specifier"
	Detail string
}

func (e *ManifestError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("manifest error: %s", e.Reason)
	}
	return fmt.Sprintf("manifest error: %s: %s", e.Reason, e.Detail)
}

// ResolutionError is the base of every resolver failure variant.
type ResolutionError struct {
	Kind string
	Msg  string
}

func (e *ResolutionError) Error() string { return e.Msg }

// UnsatisfiableDependencyList reports that the named dependencies could not
// be resolved together.
func UnsatisfiableDependencyList(names []string) *ResolutionError {
	return &ResolutionError{
		Kind: "unsatisfiableDependencyList",
		Msg:  fmt.Sprintf("unable to find a resolution satisfying: %s", strings.Join(names, ", ")),
	}
}

// IncompatibleRequirements reports that dep's existing constraint and a
// newly discovered constraint admit no common version.
func IncompatibleRequirements(dep, oldReq, newReq string) *ResolutionError {
	return &ResolutionError{
		Kind: "incompatibleRequirements",
		Msg:  fmt.Sprintf("%s: existing requirement %q is incompatible with new requirement %q", dep, oldReq, newReq),
	}
}

// RequiredVersionNotFound reports that no version of dep satisfies spec.
func RequiredVersionNotFound(dep, spec string) *ResolutionError {
	return &ResolutionError{
		Kind: "requiredVersionNotFound",
		Msg:  fmt.Sprintf("no version of %s matches %s", dep, spec),
	}
}

// TaggedVersionNotFound reports that dep has no tags parseable as semantic
// versions.
func TaggedVersionNotFound(dep string) *ResolutionError {
	return &ResolutionError{Kind: "taggedVersionNotFound", Msg: fmt.Sprintf("no tagged versions found for %s", dep)}
}

// DependencyCycle reports a cycle discovered in the resolved graph.
func DependencyCycle(path []string) *ResolutionError {
	return &ResolutionError{
		Kind: "dependencyCycle",
		Msg:  fmt.Sprintf("dependency cycle: %s", strings.Join(path, " -> ")),
	}
}

// IncompatibleDependencies reports that two same-named duplicates could not
// be reconciled (e.g. two gitReference specifiers to different commits).
func IncompatibleDependencies(deps []string) *ResolutionError {
	return &ResolutionError{
		Kind: "incompatibleDependencies",
		Msg:  fmt.Sprintf("incompatible duplicate dependencies: %s", strings.Join(deps, ", ")),
	}
}

// RetrievalError covers failures from the Retriever's git/HTTP/disk work.
type RetrievalError struct {
	Kind  string
	Cause error
	Msg   string
}

func (e *RetrievalError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s", e.Msg, e.Cause)
	}
	return e.Msg
}

func (e *RetrievalError) Unwrap() error { return e.Cause }

func GitFailed(cause error) *RetrievalError {
	return &RetrievalError{Kind: "gitFailed", Cause: cause, Msg: "git command failed"}
}

func HTTPError(status int) *RetrievalError {
	return &RetrievalError{Kind: "httpError", Msg: fmt.Sprintf("http request failed with status %d", status)}
}

func InvalidBinaryJSON(url string, cause error) *RetrievalError {
	return &RetrievalError{Kind: "invalidBinaryJSON", Cause: cause, Msg: fmt.Sprintf("invalid binary manifest JSON at %s", url)}
}

func ReadFailed(path string, cause error) *RetrievalError {
	return &RetrievalError{Kind: "readFailed", Cause: cause, Msg: fmt.Sprintf("failed reading %s", path)}
}

func WriteFailed(path string, cause error) *RetrievalError {
	return &RetrievalError{Kind: "writeFailed", Cause: cause, Msg: fmt.Sprintf("failed writing %s", path)}
}

// BinaryArtifactUnavailable reports that a binary dependency has no
// installable artifact for the requested version/configuration/toolchain in
// any cache tier. Unlike a git dependency, there is no source build to fall
// back to.
func BinaryArtifactUnavailable(dep string) *RetrievalError {
	return &RetrievalError{Kind: "binaryArtifactUnavailable", Msg: fmt.Sprintf("no binary artifact available for %s", dep)}
}

// ToolchainError covers local/artifact toolchain identification problems.
type ToolchainError struct {
	Kind  string
	Local string
	Other string
}

func (e *ToolchainError) Error() string {
	if e.Kind == "unknownLocalToolchainVersion" {
		return "unable to determine local toolchain version"
	}
	return fmt.Sprintf("toolchain %s is not ABI-compatible with %s", e.Other, e.Local)
}

func UnknownLocalToolchainVersion() *ToolchainError {
	return &ToolchainError{Kind: "unknownLocalToolchainVersion"}
}

func IncompatibleToolchainVersions(local, artifact string) *ToolchainError {
	return &ToolchainError{Kind: "incompatibleToolchainVersions", Local: local, Other: artifact}
}

// BuildError covers failures from the external build-task facade.
type BuildError struct {
	Kind    string
	LogPath string
	Symbols []string
	Cause   error
}

func (e *BuildError) Error() string {
	if e.Kind == "incompatibleArtifacts" {
		return fmt.Sprintf("incompatible artifacts, missing symbols: %s", strings.Join(e.Symbols, ", "))
	}
	if e.LogPath != "" {
		return fmt.Sprintf("build failed, see %s: %s", e.LogPath, e.Cause)
	}
	return fmt.Sprintf("build failed: %s", e.Cause)
}

func (e *BuildError) Unwrap() error { return e.Cause }

func BuildFailed(cause error, logPath string) *BuildError {
	return &BuildError{Kind: "buildFailed", Cause: cause, LogPath: logPath}
}

func IncompatibleArtifacts(symbols []string) *BuildError {
	return &BuildError{Kind: "incompatibleArtifacts", Symbols: symbols}
}

// Internal wraps conditions that should never surface to a user; seeing one
// indicates a cartgo bug.
type Internal struct {
	Desc string
}

func (e *Internal) Error() string { return "internal error: " + e.Desc }

func InternalError(desc string) *Internal { return &Internal{Desc: desc} }

// IsTransient reports whether err represents a transient failure eligible
// for the Retriever's single retry: a
// RetrievalError of kind gitFailed or httpError.
func IsTransient(err error) bool {
	re, ok := err.(*RetrievalError)
	if !ok {
		return false
	}
	return re.Kind == "gitFailed" || re.Kind == "httpError"
}
