// Package docstore implements the document-store collaborator: named
// partitions of free-form JSON documents backed by SQLite. Each pipeline
// stage reads one partition and replaces another; a replace is a single
// clear-then-write transaction so an interrupted run never leaves a
// partition half-written.
package docstore

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"
)

// ErrPartitionNotFound is returned when reading a partition that has never
// been written.
var ErrPartitionNotFound = errors.New("docstore: partition not found")

// Store is a partitioned document store. All methods are safe for concurrent
// use by batch workers writing disjoint partitions.
type Store struct {
	conn *sql.DB
	path string
}

// Open opens or creates the store at the given path. Use ":memory:" for an
// ephemeral store in tests.
func Open(path string) (*Store, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open document store: %w", err)
	}
	// A single connection keeps ":memory:" stores coherent; every pooled
	// connection would otherwise see its own empty database.
	conn.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := conn.Exec(pragma); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	schema := `
		CREATE TABLE IF NOT EXISTS documents (
			partition TEXT NOT NULL,
			seq       INTEGER NOT NULL,
			doc       TEXT NOT NULL,
			PRIMARY KEY (partition, seq)
		);
		CREATE INDEX IF NOT EXISTS idx_documents_partition
			ON documents(partition);`
	if _, err := conn.Exec(schema); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &Store{conn: conn, path: path}, nil
}

// Close releases the underlying database handle.
func (store *Store) Close() error {
	return store.conn.Close()
}

// ListPartitions enumerates partition names matching the given prefix, in
// lexical order. An empty prefix lists every partition.
func (store *Store) ListPartitions(prefix string) ([]string, error) {
	rows, err := store.conn.Query(
		`SELECT DISTINCT partition FROM documents
		 WHERE partition LIKE ? || '%' ORDER BY partition`, prefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list partitions: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan partition name: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// ReadAll streams every document in a partition, in write order, decoding
// each into out's element type via the visit callback.
func (store *Store) ReadAll(partition string, visit func(raw json.RawMessage) error) error {
	rows, err := store.conn.Query(
		`SELECT doc FROM documents WHERE partition = ? ORDER BY seq`, partition)
	if err != nil {
		return fmt.Errorf("failed to read partition %s: %w", partition, err)
	}
	defer rows.Close()

	found := false
	for rows.Next() {
		found = true
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return fmt.Errorf("failed to scan document: %w", err)
		}
		if err := visit(json.RawMessage(doc)); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}
	if !found {
		exists, err := store.partitionExists(partition)
		if err != nil {
			return err
		}
		if !exists {
			return fmt.Errorf("%w: %s", ErrPartitionNotFound, partition)
		}
	}
	return nil
}

// Replace overwrites a partition's full contents in one transaction:
// delete everything, then insert the new documents in order. Write-once-per-
// run semantics: a failed replace rolls back and leaves the prior contents
// intact.
func (store *Store) Replace(partition string, docs []any) error {
	tx, err := store.conn.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin replace of %s: %w", partition, err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`DELETE FROM documents WHERE partition = ?`, partition); err != nil {
		return fmt.Errorf("failed to clear partition %s: %w", partition, err)
	}

	stmt, err := tx.Prepare(`INSERT INTO documents (partition, seq, doc) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, doc := range docs {
		data, err := json.Marshal(doc)
		if err != nil {
			return fmt.Errorf("failed to encode document %d for %s: %w", i, partition, err)
		}
		if _, err := stmt.Exec(partition, i, string(data)); err != nil {
			return fmt.Errorf("failed to write document %d to %s: %w", i, partition, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit replace of %s: %w", partition, err)
	}
	return nil
}

// Count returns the number of documents in a partition.
func (store *Store) Count(partition string) (int, error) {
	var n int
	err := store.conn.QueryRow(
		`SELECT COUNT(*) FROM documents WHERE partition = ?`, partition).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count partition %s: %w", partition, err)
	}
	return n, nil
}

func (store *Store) partitionExists(partition string) (bool, error) {
	var n int
	err := store.conn.QueryRow(
		`SELECT COUNT(*) FROM documents WHERE partition = ?`, partition).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to probe partition %s: %w", partition, err)
	}
	return n > 0, nil
}
