package recognition

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

var (
	registryMu sync.RWMutex
	registry   = map[string]Engine{}
)

func init() {
	Register(TextEngine{})
}

// Register makes an engine available under its name, replacing any engine
// registered earlier with the same name.
func Register(engine Engine) {
	if engine == nil {
		return
	}
	name := strings.ToLower(engine.Name())
	registryMu.Lock()
	registry[name] = engine
	registryMu.Unlock()
}

// Lookup returns the engine registered under name.
func Lookup(name string) (Engine, error) {
	registryMu.RLock()
	engine, ok := registry[strings.ToLower(strings.TrimSpace(name))]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q (available: %s)", ErrUnknownEngine, name, strings.Join(Names(), ", "))
	}
	return engine, nil
}

// Names lists registered engines in sorted order.
func Names() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
