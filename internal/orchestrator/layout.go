package orchestrator

import "path/filepath"

// Layout computes the persisted-state paths for one project root.
type Layout struct {
	Root string
}

func (l Layout) CheckoutDir(canonicalName string) string {
	return filepath.Join(l.Root, "Carthage", "Checkouts", canonicalName)
}

func (l Layout) BuildDir() string {
	return filepath.Join(l.Root, "Carthage", "Build")
}

func (l Layout) FrameworkPath(platform, canonicalName string) string {
	return filepath.Join(l.BuildDir(), platform, canonicalName+".framework")
}

func (l Layout) VersionFilePath(canonicalName string) string {
	return filepath.Join(l.BuildDir(), "."+canonicalName+".version")
}

func (l Layout) DerivedDataDir(canonicalName, platform, sdk string) string {
	return filepath.Join(l.Root, "Carthage", ".derivedData", canonicalName, platform, sdk)
}
