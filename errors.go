package eliza

import "errors"

var (
	// ErrDatabaseAdapterRequired is returned when a runtime is constructed without a store.
	ErrDatabaseAdapterRequired = errors.New("database adapter is required")
	// ErrModelProviderRequired is returned when a runtime is constructed without a model provider.
	ErrModelProviderRequired = errors.New("model provider is required")
	// ErrCharacterRequired is returned when a runtime is constructed without a character.
	ErrCharacterRequired = errors.New("character is required")
	// ErrServiceInit is returned when a registered service fails to initialize.
	ErrServiceInit = errors.New("service initialization failed")
	// ErrUnknownManager is returned when a memory manager lookup names an unregistered partition.
	ErrUnknownManager = errors.New("unknown memory manager")
)
