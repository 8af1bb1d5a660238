package engine

import "fmt"

// Plugin registers resources, systems and services into an Engine
type Plugin interface {
	Name() string
	Build(e *Engine) error
}

// DependentPlugin names plugins that must already be registered
type DependentPlugin interface {
	Dependencies() []string
}

// ModeFilter restricts a plugin to some engine modes
type ModeFilter interface {
	SupportsMode(m Mode) bool
}

// PluginState tracks a plugin through registration
type PluginState uint8

const (
	PluginBuilding PluginState = iota
	PluginBuilt
	PluginFailed
	// PluginSkipped marks a plugin filtered out by mode; it still satisfies dependencies
	PluginSkipped
)

func (s PluginState) String() string {
	switch s {
	case PluginBuilding:
		return "building"
	case PluginBuilt:
		return "built"
	case PluginFailed:
		return "failed"
	case PluginSkipped:
		return "skipped"
	}
	return fmt.Sprintf("PluginState(%d)", uint8(s))
}

type pluginEntry struct {
	plugin Plugin
	state  PluginState
}

// AddPlugin builds and registers p
// A second registration of the same name is a no-op with a warning; a missing dependency fails
func (e *Engine) AddPlugin(p Plugin) error {
	name := p.Name()
	if _, dup := e.pluginIndex[name]; dup {
		e.logger.Printf("engine: plugin %q already registered, skipping", name)
		return nil
	}

	if dp, ok := p.(DependentPlugin); ok {
		for _, dep := range dp.Dependencies() {
			entry, ok := e.pluginIndex[dep]
			if !ok || (entry.state != PluginBuilt && entry.state != PluginSkipped) {
				return fmt.Errorf("%w: plugin %q requires %q", ErrMissingDependency, name, dep)
			}
		}
	}

	entry := &pluginEntry{plugin: p, state: PluginBuilding}
	e.pluginIndex[name] = entry
	e.plugins = append(e.plugins, entry)

	if mf, ok := p.(ModeFilter); ok && !mf.SupportsMode(e.mode) {
		entry.state = PluginSkipped
		e.logger.Printf("engine: plugin %q not used in %s mode", name, e.mode)
		return nil
	}

	if err := p.Build(e); err != nil {
		entry.state = PluginFailed
		return fmt.Errorf("plugin %q build failed: %w", name, err)
	}
	entry.state = PluginBuilt
	return nil
}

// AddPlugins registers plugins in order, stopping at the first failure
func (e *Engine) AddPlugins(plugins ...Plugin) error {
	for _, p := range plugins {
		if err := e.AddPlugin(p); err != nil {
			return err
		}
	}
	return nil
}

// HasPlugin reports whether a plugin name is registered in any state
func (e *Engine) HasPlugin(name string) bool {
	_, ok := e.pluginIndex[name]
	return ok
}

// PluginState returns the registration state of a plugin
func (e *Engine) PluginState(name string) (PluginState, bool) {
	entry, ok := e.pluginIndex[name]
	if !ok {
		return 0, false
	}
	return entry.state, true
}

// PluginNames returns registered plugin names in registration order
func (e *Engine) PluginNames() []string {
	out := make([]string, len(e.plugins))
	for i, p := range e.plugins {
		out[i] = p.plugin.Name()
	}
	return out
}
