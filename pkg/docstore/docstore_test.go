package docstore

import (
	"errors"
	"testing"
)

type testDoc struct {
	Name string `json:"name"`
	Year int    `json:"year"`
}

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestReplaceAndReadBack(t *testing.T) {
	store := openTestStore(t)

	docs := []testDoc{
		{Name: "Stamp Act", Year: 1899},
		{Name: "Penal Code", Year: 1860},
	}
	if err := ReplaceTyped(store, "records:raw", docs); err != nil {
		t.Fatalf("ReplaceTyped failed: %v", err)
	}

	got, malformed, err := ReadTyped[testDoc](store, "records:raw")
	if err != nil {
		t.Fatalf("ReadTyped failed: %v", err)
	}
	if malformed != 0 {
		t.Errorf("Expected 0 malformed, got %d", malformed)
	}
	if len(got) != 2 {
		t.Fatalf("Expected 2 docs, got %d", len(got))
	}
	if got[0].Name != "Stamp Act" || got[1].Name != "Penal Code" {
		t.Errorf("Expected write order preserved, got %v", got)
	}
}

func TestReplaceOverwritesFully(t *testing.T) {
	store := openTestStore(t)

	if err := ReplaceTyped(store, "records:raw", []testDoc{{Name: "a"}, {Name: "b"}, {Name: "c"}}); err != nil {
		t.Fatalf("ReplaceTyped failed: %v", err)
	}
	if err := ReplaceTyped(store, "records:raw", []testDoc{{Name: "only"}}); err != nil {
		t.Fatalf("ReplaceTyped failed: %v", err)
	}

	count, err := store.Count("records:raw")
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 1 {
		t.Errorf("Expected clear-then-write to leave 1 doc, got %d", count)
	}
}

func TestListPartitionsByPrefix(t *testing.T) {
	store := openTestStore(t)

	for _, name := range []string{"records:raw", "records:deduped", "groups:base"} {
		if err := ReplaceTyped(store, name, []testDoc{{Name: "x"}}); err != nil {
			t.Fatalf("ReplaceTyped failed: %v", err)
		}
	}

	names, err := store.ListPartitions("records:")
	if err != nil {
		t.Fatalf("ListPartitions failed: %v", err)
	}
	if len(names) != 2 {
		t.Fatalf("Expected 2 record partitions, got %d: %v", len(names), names)
	}
	if names[0] != "records:deduped" || names[1] != "records:raw" {
		t.Errorf("Expected lexical order, got %v", names)
	}
}

func TestReadMissingPartition(t *testing.T) {
	store := openTestStore(t)

	_, _, err := ReadTyped[testDoc](store, "records:missing")
	if !errors.Is(err, ErrPartitionNotFound) {
		t.Errorf("Expected ErrPartitionNotFound, got %v", err)
	}
}

func TestMalformedDocumentsSkipped(t *testing.T) {
	store := openTestStore(t)

	// Raw strings are valid JSON but not objects; decoding into testDoc fails.
	if err := store.Replace("records:raw", []any{testDoc{Name: "ok"}, "not an object"}); err != nil {
		t.Fatalf("Replace failed: %v", err)
	}

	got, malformed, err := ReadTyped[testDoc](store, "records:raw")
	if err != nil {
		t.Fatalf("ReadTyped failed: %v", err)
	}
	if malformed != 1 {
		t.Errorf("Expected 1 malformed doc, got %d", malformed)
	}
	if len(got) != 1 || got[0].Name != "ok" {
		t.Errorf("Expected the valid doc to survive, got %v", got)
	}
}
