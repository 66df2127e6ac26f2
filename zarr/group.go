package zarr

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"gocloud.dev/blob"
)

// RequireGroup marks the node at path as a group, creating the .zgroup key
// if it is missing. Existing group markers are left untouched.
func RequireGroup(ctx context.Context, bucket *blob.Bucket, path string) error {
	key := nodeKey(path, GroupMetaKey)
	ok, err := keyExists(ctx, bucket, key)
	if err != nil {
		return err
	}
	if ok {
		return nil
	}
	data, err := json.Marshal(GroupMetadata{ZarrFormat: Format})
	if err != nil {
		return fmt.Errorf("failed to encode group metadata: %w", err)
	}
	return writeKey(ctx, bucket, key, data)
}

// DeleteNode removes a dataset or group node and everything beneath it.
// Deleting a missing node is not an error.
func DeleteNode(ctx context.Context, bucket *blob.Bucket, path string) error {
	return deletePrefix(ctx, bucket, path)
}

// WriteAttrs merges attrs into the node's .zattrs, replacing values for
// existing keys.
func WriteAttrs(ctx context.Context, bucket *blob.Bucket, path string, attrs Attributes) error {
	existing, err := ReadAttrs(ctx, bucket, path)
	if err != nil {
		return err
	}
	for k, v := range attrs {
		existing[k] = v
	}
	data, err := json.Marshal(existing)
	if err != nil {
		return fmt.Errorf("failed to encode attributes: %w", err)
	}
	return writeKey(ctx, bucket, nodeKey(path, AttrsKey), data)
}

// ReadAttrs returns the node's .zattrs, or an empty map if none exist.
func ReadAttrs(ctx context.Context, bucket *blob.Bucket, path string) (Attributes, error) {
	data, err := readKey(ctx, bucket, nodeKey(path, AttrsKey))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Attributes{}, nil
		}
		return nil, err
	}
	attrs := Attributes{}
	if err := json.Unmarshal(data, &attrs); err != nil {
		return nil, fmt.Errorf("failed to decode attributes: %w", err)
	}
	return attrs, nil
}
