package plugin

import "errors"

// Plugin system errors.
var (
	// ErrPluginNotFound is returned when a plugin id has no factory.
	ErrPluginNotFound = errors.New("plugin not found")

	// ErrAlreadyLoaded is returned when registering a plugin id that
	// is already in the registry.
	ErrAlreadyLoaded = errors.New("plugin is already loaded")

	// ErrNotLoaded is returned when operating on an unloaded plugin.
	ErrNotLoaded = errors.New("plugin is not loaded")

	// ErrNilManifest is returned when a plugin reports a nil manifest.
	ErrNilManifest = errors.New("manifest is nil")

	// ErrDependencyNotFound is returned when a declared dependency
	// has no factory.
	ErrDependencyNotFound = errors.New("plugin dependency not found")

	// ErrCyclicDependency is returned when plugins have circular
	// dependencies.
	ErrCyclicDependency = errors.New("cyclic plugin dependency detected")

	// ErrDependencyFailed is returned when a declared dependency
	// failed to load.
	ErrDependencyFailed = errors.New("plugin dependency failed to load")

	// ErrDuplicateFactory is returned when two factories declare the
	// same plugin id.
	ErrDuplicateFactory = errors.New("duplicate plugin factory id")

	// ErrStorageUnavailable is returned when a plugin declares a
	// storage need but no storage manager is configured.
	ErrStorageUnavailable = errors.New("plugin requires storage but storage is disabled")
)
