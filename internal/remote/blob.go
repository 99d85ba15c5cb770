// Package remote moves archives to and from external destinations: a blob
// store service, or a peer environment reachable over ssh.
package remote

import "context"

// BlobStore is the narrow surface the engine needs from an object storage
// service.
type BlobStore interface {
	// PutBlob uploads the local file under key. Success means the store
	// acknowledges the object exists after the write, not merely that the
	// upload call returned.
	PutBlob(ctx context.Context, key, localPath string) error
	// GetBlob downloads the object to localPath. The caller is responsible
	// for choosing a non-clobbering localPath.
	GetBlob(ctx context.Context, key, localPath string) error
}
