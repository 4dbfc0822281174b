// Package types defines the entity kind registry, entity and relation
// records, the Store interface, and standard errors for the Sietch data
// core. See docs/ARCHITECTURE.md § Main Interface.
package types
