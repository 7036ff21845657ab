package domain

import "strings"

// DatabasePrefix prefixes every record store database name.
const DatabasePrefix = "wire-store"

// DatabaseName returns the durable database name for a store and namespace.
// The default namespace is the empty string.
func DatabaseName(storeName, namespace string) string {
	return strings.Join([]string{DatabasePrefix, storeName, namespace}, ":")
}

// CursorKey returns the key of the persisted sync cursor slot.
func CursorKey(storeName, namespace string) string {
	return storeName + ":" + namespace + ":sync-cursor"
}
