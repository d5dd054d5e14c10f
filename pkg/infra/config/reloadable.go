package config

// Reloadable is implemented by components that can apply a new
// configuration section without a restart. Implementations validate the
// value first and leave their current state untouched on error.
type Reloadable interface {
	OnConfigChange(newConfig any) error
}
