// Package server exposes an ItemStore over the grocery REST API rooted at
// /api/items.
//
// Every response uses the types.Response envelope. Handlers translate store
// sentinel errors into status codes: ErrNotFound is 404, missing text on
// create is 400, and everything else is 500 with the error text as message.
// Middleware adds permissive CORS headers, request logging, and panic
// recovery.
package server
