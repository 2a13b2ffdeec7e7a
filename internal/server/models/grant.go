package models

import "time"

// DownloadGrant is a single-use, expiring authorization record binding one
// file to one consumer. Grants are never deleted; consumed rows are retained
// for audit.
type DownloadGrant struct {
	// ID is the grant identifier: 64 random bytes, base64url encoded.
	ID         string
	FileID     int64
	ConsumerID int64
	ExpiresAt  time.Time
	Consumed   bool
	CreatedAt  time.Time
}
