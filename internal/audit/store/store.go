// Package store persists the audit outbox. The OutboxStore interface itself
// lives in the parent package next to the relay that drains it.
package store

import "carteret/internal/audit"

var (
	_ audit.OutboxStore = (*MemoryStore)(nil)
	_ audit.OutboxStore = (*PostgresStore)(nil)
)
