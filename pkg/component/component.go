// Package component holds the lifecycle contract shared by every part of the
// console process and the registry that drives it.
package component

import "context"

// Component is anything the registry can own and sequence through
// Create, Start, Kill and Cleanup.
type Component interface {
	Name() string
	Create(ctx context.Context) error
	Start(ctx context.Context) error
	Kill(ctx context.Context) error
	Cleanup() error
}

// Attachable components are told which registry they were added to. The
// console uses it to look up arms, the bridge to know it was registered.
type Attachable interface {
	Attached(registry *Registry)
}
