// File: control/control.go
// Package control implements api.Control over the config store, the
// metrics registry, and registered debug probes.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package control

import (
	"sync"

	"github.com/momentics/hioload-http/api"
)

// Control bundles dynamic config, runtime metrics, and debug probes.
type Control struct {
	cfg     *ConfigStore
	metrics *MetricsRegistry

	mu     sync.RWMutex
	probes map[string]func() any
}

// New creates an empty Control.
func New() *Control {
	return &Control{
		cfg:     NewConfigStore(),
		metrics: NewMetricsRegistry(),
		probes:  make(map[string]func() any),
	}
}

// Metrics exposes the counter registry for in-process publishers.
func (c *Control) Metrics() *MetricsRegistry { return c.metrics }

// GetConfig returns a snapshot of the dynamic config.
func (c *Control) GetConfig() map[string]any { return c.cfg.GetSnapshot() }

// SetConfig merges values into the dynamic config.
func (c *Control) SetConfig(cfg map[string]any) error {
	c.cfg.SetConfig(cfg)
	return nil
}

// Stats merges metric values and probe results into one snapshot.
func (c *Control) Stats() map[string]any {
	out := c.metrics.GetSnapshot()
	c.mu.RLock()
	defer c.mu.RUnlock()
	for name, fn := range c.probes {
		out[name] = fn()
	}
	return out
}

// OnReload registers a hook called on config changes.
func (c *Control) OnReload(fn func()) { c.cfg.OnReload(fn) }

// RegisterDebugProbe attaches a named probe evaluated on each Stats call.
func (c *Control) RegisterDebugProbe(name string, fn func() any) {
	c.mu.Lock()
	c.probes[name] = fn
	c.mu.Unlock()
}

var _ api.Control = (*Control)(nil)
