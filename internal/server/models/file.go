package models

import "time"

// File describes server-side metadata for an uploaded blob. The content
// itself lives in blob storage under StorageKey; rows here never hold bytes.
type File struct {
	ID int64
	// StorageKey is the blob-store key (path) of the stored content.
	StorageKey string
	// OriginalName is the filename as uploaded, used for Content-Disposition.
	OriginalName string
	Size         int64
	ContentType  string
	UploadedBy   int64
	UploadedAt   time.Time
}
