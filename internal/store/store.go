// Memberhub - Member Portal, Content and Chat Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/memberhub

// Package store is the document database behind the backend API.
//
// Documents are JSON values kept in BadgerDB under per-collection key
// prefixes. Each collection may declare secondary indexes; unique indexes
// back constraints such as one account per email or one block per
// blocker/blocked pair. Index entries are written in the same transaction as
// the document they point to.
//
// Key layout (parts separated by 0x00):
//
//	doc  <collection> <id>                  -> JSON document
//	idx  <collection> <index> <value>       -> id   (unique)
//	idx  <collection> <index> <value> <id>  -> id   (non-unique)
package store

import (
	"errors"
	"fmt"
	"os"

	"github.com/dgraph-io/badger/v4"

	"github.com/tomtom215/memberhub/internal/logging"
)

var (
	// ErrNotFound is returned when a document does not exist.
	ErrNotFound = errors.New("document not found")

	// ErrConflict is returned when a write would violate a unique constraint
	// or insert a document whose ID already exists.
	ErrConflict = errors.New("document conflict")

	// ErrUnknownIndex is returned when querying an index the collection does not declare.
	ErrUnknownIndex = errors.New("unknown index")
)

// maxTxnRetries bounds retries on badger.ErrConflict from concurrent writers.
const maxTxnRetries = 5

// Config configures the document store.
type Config struct {
	// Path is the Badger data directory. Ignored when InMemory is set.
	Path string

	// InMemory keeps all data in RAM. Used by tests and throwaway dev runs.
	InMemory bool
}

// Store wraps a Badger database.
type Store struct {
	db *badger.DB
}

// Open opens (or creates) the document store.
func Open(cfg Config) (*Store, error) {
	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if cfg.Path == "" {
			return nil, fmt.Errorf("store path is required")
		}
		if err := os.MkdirAll(cfg.Path, 0o750); err != nil {
			return nil, fmt.Errorf("create store dir: %w", err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}

	logging.Info().
		Bool("in_memory", cfg.InMemory).
		Str("path", cfg.Path).
		Msg("Document store opened")

	return &Store{db: db}, nil
}

// OpenInMemory is a shorthand for tests.
func OpenInMemory() (*Store, error) {
	return Open(Config{InMemory: true})
}

// Close flushes and closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping verifies the database is open and readable.
func (s *Store) Ping() error {
	if s.db.IsClosed() {
		return errors.New("store is closed")
	}
	return s.db.View(func(*badger.Txn) error { return nil })
}

// update runs fn in a read-write transaction, retrying on transaction conflicts.
func (s *Store) update(fn func(txn *badger.Txn) error) error {
	var err error
	for attempt := 0; attempt < maxTxnRetries; attempt++ {
		err = s.db.Update(fn)
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
	}
	return fmt.Errorf("transaction retries exhausted: %w", err)
}
