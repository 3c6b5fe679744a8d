// Package entities registers the people, companies and schools definitions
// with the core registry. Import it for side effects wherever the registry
// is used.
package entities

// Each entity file uses init() to register its definition.
