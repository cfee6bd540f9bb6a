//go:build !linux

package renderer

// NewOSPlatformHooks returns NoopPlatformHooks on platforms without a wired
// affinity/priority implementation (spec.md §9: PlatformHooks is an
// OS-specific collaborator the core only calls through an interface).
func NewOSPlatformHooks() PlatformHooks {
	return NoopPlatformHooks{}
}
