// Package types defines the grocery item and queue entity types, the
// ItemStore interface, the wire envelope, and the standard errors shared by
// the store, the HTTP API, and the offline client.
package types
