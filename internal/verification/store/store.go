// Package store persists verification requests. The VerificationStore
// interface itself lives in the parent package next to its consumers.
package store

import "carteret/internal/verification"

var (
	_ verification.VerificationStore = (*MemoryStore)(nil)
	_ verification.VerificationStore = (*PostgresStore)(nil)
)
