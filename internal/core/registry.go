package core

import (
	"fmt"
	"sort"
	"sync"
)

var (
	registry   = make(map[EntityType]EntityDefinition)
	registryMu sync.RWMutex
)

// Register adds an entity definition to the registry.
// Panics if the entity type is already registered.
func Register(def EntityDefinition) {
	registryMu.Lock()
	defer registryMu.Unlock()

	if _, exists := registry[def.Type]; exists {
		panic(fmt.Sprintf("entity already registered: %s", def.Type))
	}
	if len(def.ExportColumns) == 0 {
		def.ExportColumns = make([]string, len(def.Fields))
		for i, f := range def.Fields {
			def.ExportColumns[i] = f.Name
		}
	}

	registry[def.Type] = def
}

// Get returns an entity definition by type.
func Get(et EntityType) (EntityDefinition, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	def, ok := registry[et]
	return def, ok
}

// MustGet returns an entity definition or a validation error naming the type.
func MustGet(et EntityType) (EntityDefinition, error) {
	def, ok := Get(et)
	if !ok {
		return EntityDefinition{}, Validationf("unknown entity type %q", et)
	}
	return def, nil
}

// All returns all registered definitions sorted by type.
func All() []EntityDefinition {
	registryMu.RLock()
	defer registryMu.RUnlock()

	result := make([]EntityDefinition, 0, len(registry))
	for _, def := range registry {
		result = append(result, def)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Type < result[j].Type
	})
	return result
}
