package actions

import (
	"fmt"

	"gitmove.dev/gitmove/internal/config"
	"gitmove.dev/gitmove/internal/runtime"
)

// ConfigGetAction prints the effective value of key
func ConfigGetAction(ctx *runtime.Context, key string) error {
	value, ok := ctx.Settings.Value(key)
	if !ok {
		return fmt.Errorf("unknown configuration key: %s", key)
	}
	ctx.Splog.Info("%s", value)
	return nil
}

// ConfigListAction prints every key with its effective value
func ConfigListAction(ctx *runtime.Context) error {
	for _, key := range config.Keys {
		value, _ := ctx.Settings.Value(key)
		ctx.Splog.Info("%s=%s", key, value)
	}
	return nil
}
