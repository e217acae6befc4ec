// Package ledger implements a registry of ledger types,
// so that a ledger can be instantiated from configuration alone.
package ledger

import (
	"context"
	"fmt"

	"github.com/bobg/strand"
)

// Factory instantiates a ledger from a configuration map.
type Factory func(context.Context, map[string]interface{}) (strand.Ledger, error)

var registry = make(map[string]Factory)

// Register associates a factory with a type key.
// Ledger implementations call it from their init functions.
func Register(key string, f Factory) {
	registry[key] = f
}

// Create instantiates a ledger of the given type key.
func Create(ctx context.Context, key string, conf map[string]interface{}) (strand.Ledger, error) {
	f, ok := registry[key]
	if !ok {
		return nil, fmt.Errorf("key %s not found in registry", key)
	}
	return f(ctx, conf)
}
