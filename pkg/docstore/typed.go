package docstore

import (
	"encoding/json"
	"fmt"
)

// ReadTyped reads a whole partition into a slice of T. Documents that fail to
// decode are skipped and reported in the returned count of malformed entries;
// a malformed document is a local parse failure, never fatal to the stage.
func ReadTyped[T any](store *Store, partition string) ([]T, int, error) {
	var out []T
	malformed := 0
	err := store.ReadAll(partition, func(raw json.RawMessage) error {
		var doc T
		if err := json.Unmarshal(raw, &doc); err != nil {
			malformed++
			return nil
		}
		out = append(out, doc)
		return nil
	})
	if err != nil {
		return nil, malformed, err
	}
	return out, malformed, nil
}

// ReplaceTyped replaces a partition with a typed slice.
func ReplaceTyped[T any](store *Store, partition string, docs []T) error {
	anyDocs := make([]any, len(docs))
	for i := range docs {
		anyDocs[i] = docs[i]
	}
	if err := store.Replace(partition, anyDocs); err != nil {
		return fmt.Errorf("failed to replace %s: %w", partition, err)
	}
	return nil
}
