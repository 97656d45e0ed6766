package handlers

import "github.com/mohitkumar/tokenflow/dispatch"

// RegisterBuiltins adds the handlers every node provides.
func RegisterBuiltins(registry *dispatch.Registry) error {
	if err := registry.Register(SCRIPT, Script); err != nil {
		return err
	}
	return registry.Register(LOG, Log)
}
