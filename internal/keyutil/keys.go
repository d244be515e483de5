package keyutil

import "strings"

// DefaultNamespace is applied when a caller passes an empty namespace.
const DefaultNamespace = "cache"

// Join builds the storage key "<ns>:<key>". An empty ns falls back to
// DefaultNamespace so that every stored key carries a namespace.
func Join(ns, key string) string {
	if ns == "" {
		ns = DefaultNamespace
	}
	return ns + ":" + key
}

// Prefix builds the storage-side prefix for pattern invalidation.
// An empty pattern invalidates the whole namespace.
func Prefix(ns, pattern string) string {
	if pattern == "" {
		if ns == "" {
			ns = DefaultNamespace
		}
		return ns + ":"
	}
	return Join(ns, pattern)
}

// HasPrefix reports whether storageKey falls under prefix.
func HasPrefix(storageKey, prefix string) bool {
	return strings.HasPrefix(storageKey, prefix)
}
