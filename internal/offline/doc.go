// Package offline implements the grocery client that keeps working while the
// item store is unreachable.
//
// Items added through the client are shown immediately under a temporary id
// and recorded in a queue that is mirrored to a local slot. Sync passes flush
// the queue to the store in insertion order, one create per entry, and replace
// each pending item with the stored one. Failed entries stay queued and are
// retried on the next scheduler tick or connectivity-restored event, without
// backoff or a retry limit.
//
// Each queued entry moves through Pending, Syncing, and then Reconciled or
// back to Pending. An entry deleted while its create is in flight becomes
// Abandoned and the item the store created for it is removed again.
package offline
