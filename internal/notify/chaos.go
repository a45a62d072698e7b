package notify

import (
	"context"
	"strings"

	"github.com/campusbites/orderline/pkg/cache"
)

// ChaosGate checks and toggles the operator-controlled fault-injection
// flag (spec.md §4.I, §6 GLOSSARY "Chaos flag"): a single named key in
// the shared cache that forces the notification service to behave as if
// unavailable.
type ChaosGate struct {
	cache   cache.Cache
	flagKey string
}

// NewChaosGate creates a ChaosGate bound to the given flag key.
func NewChaosGate(c cache.Cache, flagKey string) *ChaosGate {
	return &ChaosGate{cache: c, flagKey: flagKey}
}

// Enabled reports whether chaos mode is currently active.
func (g *ChaosGate) Enabled(ctx context.Context) bool {
	value, err := g.cache.Get(ctx, g.flagKey)
	if err != nil || value == "" {
		return false
	}
	switch strings.ToLower(value) {
	case "1", "true", "enabled":
		return true
	default:
		return false
	}
}

// Enable activates chaos mode.
func (g *ChaosGate) Enable(ctx context.Context) error {
	return g.cache.Set(ctx, g.flagKey, "true", 0)
}

// Disable deactivates chaos mode.
func (g *ChaosGate) Disable(ctx context.Context) error {
	return g.cache.Del(ctx, g.flagKey)
}
