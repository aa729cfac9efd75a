package biomisc

import (
	"context"
	"io"

	"cloud.google.com/go/storage"
	"github.com/carbocation/pfx"
)

// Open opens a local or gs:// path and transparently decompresses it.
func Open(ctx context.Context, path string, client *storage.Client) (io.ReadCloser, error) {
	raw, _, err := MaybeOpenSeekerFromGoogleStorage(ctx, path, client)
	if err != nil {
		return nil, pfx.Err(err)
	}

	rc, err := MaybeDecompressReadCloser(raw)
	if err != nil {
		raw.Close()
		return nil, pfx.Err(err)
	}

	return rc, nil
}

// NeedsStorageClient reports whether any of the paths live in Google Storage.
func NeedsStorageClient(paths ...string) bool {
	for _, path := range paths {
		if IsGoogleStoragePath(path) {
			return true
		}
	}

	return false
}
