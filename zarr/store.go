package zarr

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"gocloud.dev/blob"
	"gocloud.dev/gcerrors"
)

// ErrNotFound marks a missing key or node.
var ErrNotFound = errors.New("zarr: not found")

// JoinPath joins node path segments with "/", dropping empty segments so the
// bucket root can be addressed as "".
func JoinPath(elems ...string) string {
	parts := make([]string, 0, len(elems))
	for _, e := range elems {
		e = strings.Trim(e, "/")
		if e != "" {
			parts = append(parts, e)
		}
	}
	return strings.Join(parts, "/")
}

// nodeKey resolves a key within a node path.
func nodeKey(path, key string) string {
	if path == "" {
		return key
	}
	return path + "/" + key
}

func readKey(ctx context.Context, bucket *blob.Bucket, key string) ([]byte, error) {
	reader, err := bucket.NewReader(ctx, key, nil)
	if err != nil {
		if gcerrors.Code(err) == gcerrors.NotFound {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return nil, fmt.Errorf("failed to open %s: %w", key, err)
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return data, nil
}

func writeKey(ctx context.Context, bucket *blob.Bucket, key string, data []byte) error {
	w, err := bucket.NewWriter(ctx, key, nil)
	if err != nil {
		return fmt.Errorf("failed to create writer for %s: %w", key, err)
	}
	if _, err := w.Write(data); err != nil {
		w.Close()
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}

func keyExists(ctx context.Context, bucket *blob.Bucket, key string) (bool, error) {
	ok, err := bucket.Exists(ctx, key)
	if err != nil {
		return false, fmt.Errorf("failed to stat %s: %w", key, err)
	}
	return ok, nil
}

// deletePrefix removes every key under the given node path.
func deletePrefix(ctx context.Context, bucket *blob.Bucket, path string) error {
	prefix := path
	if prefix != "" {
		prefix += "/"
	}
	iter := bucket.List(&blob.ListOptions{Prefix: prefix})
	for {
		obj, err := iter.Next(ctx)
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to list %s: %w", prefix, err)
		}
		if err := bucket.Delete(ctx, obj.Key); err != nil {
			return fmt.Errorf("failed to delete %s: %w", obj.Key, err)
		}
	}
}
