// Package storage archives uploaded import files to S3-compatible object
// storage for later audit.
package storage

import "context"

// Archiver stores the original uploaded file of a successful import
type Archiver interface {
	ArchiveImportFile(ctx context.Context, runID, filename string, content []byte) (string, error)
}

// NoopArchiver is used when object storage is disabled
type NoopArchiver struct{}

// ArchiveImportFile discards the file and returns an empty key
func (NoopArchiver) ArchiveImportFile(context.Context, string, string, []byte) (string, error) {
	return "", nil
}
