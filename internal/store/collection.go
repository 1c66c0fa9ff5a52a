// Memberhub - Member Portal, Content and Chat Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/memberhub

package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/tomtom215/memberhub/internal/metrics"
)

// ErrInvalidID is returned when a document has an empty ID.
var ErrInvalidID = errors.New("document id is empty")

const keySep = "\x00"

// Document is implemented by every stored model.
type Document interface {
	DocumentID() string
	DocumentCreatedAt() time.Time
}

// Index declares a secondary index on a collection. Key returns the indexed
// value for a document; an empty value leaves the document out of the index.
type Index[T any] struct {
	Name   string
	Unique bool
	Key    func(*T) string
}

// ListOptions pages through list results.
type ListOptions struct {
	Offset int
	Limit  int // 0 means no limit
}

// Collection is a typed set of JSON documents with secondary indexes.
//
// T is the model struct; P is inferred as *T.
type Collection[T any, P interface {
	*T
	Document
}] struct {
	store   *Store
	name    string
	indexes map[string]Index[T]
}

// NewCollection declares a collection. Index names must be unique per collection.
func NewCollection[T any, P interface {
	*T
	Document
}](s *Store, name string, indexes ...Index[T]) *Collection[T, P] {
	idx := make(map[string]Index[T], len(indexes))
	for _, i := range indexes {
		idx[i.Name] = i
	}
	return &Collection[T, P]{store: s, name: name, indexes: idx}
}

// Name returns the collection name.
func (c *Collection[T, P]) Name() string {
	return c.name
}

// write runs fn in an update transaction and records its duration.
func (c *Collection[T, P]) write(operation string, fn func(txn *badger.Txn) error) error {
	start := time.Now()
	err := c.store.update(fn)
	metrics.RecordStoreOperation(operation, c.name, time.Since(start), err)
	return err
}

func joinKey(parts ...string) []byte {
	return []byte(strings.Join(parts, keySep))
}

func (c *Collection[T, P]) docPrefix() []byte {
	return joinKey("doc", c.name, "")
}

func (c *Collection[T, P]) docKey(id string) []byte {
	return joinKey("doc", c.name, id)
}

func (c *Collection[T, P]) indexKey(idx Index[T], value, id string) []byte {
	if idx.Unique {
		return joinKey("idx", c.name, idx.Name, value)
	}
	return joinKey("idx", c.name, idx.Name, value, id)
}

func (c *Collection[T, P]) indexPrefix(idx Index[T], value string) []byte {
	if idx.Unique {
		return joinKey("idx", c.name, idx.Name, value)
	}
	return joinKey("idx", c.name, idx.Name, value, "")
}

// Insert stores a new document. It fails with ErrConflict if the ID exists
// or a unique index value is taken.
func (c *Collection[T, P]) Insert(ctx context.Context, doc *T) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return c.write("insert", func(txn *badger.Txn) error {
		return c.put(txn, doc, putInsert)
	})
}

// Update replaces an existing document. It fails with ErrNotFound if the ID
// does not exist.
func (c *Collection[T, P]) Update(ctx context.Context, doc *T) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return c.write("update", func(txn *badger.Txn) error {
		return c.put(txn, doc, putUpdate)
	})
}

// Upsert inserts or replaces a document.
func (c *Collection[T, P]) Upsert(ctx context.Context, doc *T) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return c.write("upsert", func(txn *badger.Txn) error {
		return c.put(txn, doc, putUpsert)
	})
}

// Modify loads a document, applies fn and writes the result in one
// transaction. Returning an error from fn aborts the write.
func (c *Collection[T, P]) Modify(ctx context.Context, id string, fn func(*T) error) (*T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out *T
	err := c.write("modify", func(txn *badger.Txn) error {
		doc, err := c.load(txn, id)
		if err != nil {
			return err
		}
		if err := fn(doc); err != nil {
			return err
		}
		if P(doc).DocumentID() != id {
			return fmt.Errorf("modify must not change document id")
		}
		out = doc
		return c.put(txn, doc, putUpdate)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Delete removes a document and its index entries.
func (c *Collection[T, P]) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return c.write("delete", func(txn *badger.Txn) error {
		old, err := c.load(txn, id)
		if err != nil {
			return err
		}
		if err := c.deleteIndexes(txn, old, id); err != nil {
			return err
		}
		return txn.Delete(c.docKey(id))
	})
}

// Get returns a document by ID.
func (c *Collection[T, P]) Get(ctx context.Context, id string) (*T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var doc *T
	err := c.store.db.View(func(txn *badger.Txn) error {
		var err error
		doc, err = c.load(txn, id)
		return err
	})
	return doc, err
}

// List scans the collection, keeps documents accepted by filter (nil keeps
// all), sorts newest first and applies paging. The second return value is
// the number of matching documents before paging.
func (c *Collection[T, P]) List(ctx context.Context, filter func(*T) bool, opts ListOptions) ([]*T, int, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}

	var docs []*T
	err := c.store.db.View(func(txn *badger.Txn) error {
		prefix := c.docPrefix()
		itOpts := badger.DefaultIteratorOptions
		itOpts.Prefix = prefix
		it := txn.NewIterator(itOpts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			val, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			doc := new(T)
			if err := json.Unmarshal(val, doc); err != nil {
				return fmt.Errorf("decode %s document: %w", c.name, err)
			}
			if filter == nil || filter(doc) {
				docs = append(docs, doc)
			}
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}

	sortNewestFirst[T, P](docs)
	total := len(docs)
	return page(docs, opts), total, nil
}

// Count returns the number of documents accepted by filter.
func (c *Collection[T, P]) Count(ctx context.Context, filter func(*T) bool) (int, error) {
	_, total, err := c.List(ctx, filter, ListOptions{Limit: 1})
	return total, err
}

// FindOne returns the document holding value in a unique index.
func (c *Collection[T, P]) FindOne(ctx context.Context, index, value string) (*T, error) {
	docs, err := c.FindByIndex(ctx, index, value)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, ErrNotFound
	}
	return docs[0], nil
}

// FindByIndex returns every document with the given index value, newest first.
func (c *Collection[T, P]) FindByIndex(ctx context.Context, index, value string) ([]*T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	idx, ok := c.indexes[index]
	if !ok {
		return nil, fmt.Errorf("%w: %s.%s", ErrUnknownIndex, c.name, index)
	}

	var docs []*T
	err := c.store.db.View(func(txn *badger.Txn) error {
		ids, err := c.indexIDs(txn, idx, value)
		if err != nil {
			return err
		}
		for _, id := range ids {
			doc, err := c.load(txn, id)
			if errors.Is(err, ErrNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			docs = append(docs, doc)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sortNewestFirst[T, P](docs)
	return docs, nil
}

func (c *Collection[T, P]) indexIDs(txn *badger.Txn, idx Index[T], value string) ([]string, error) {
	if idx.Unique {
		item, err := txn.Get(c.indexPrefix(idx, value))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		id, err := item.ValueCopy(nil)
		if err != nil {
			return nil, err
		}
		return []string{string(id)}, nil
	}

	prefix := c.indexPrefix(idx, value)
	itOpts := badger.DefaultIteratorOptions
	itOpts.Prefix = prefix
	it := txn.NewIterator(itOpts)
	defer it.Close()

	var ids []string
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		id, err := it.Item().ValueCopy(nil)
		if err != nil {
			return nil, err
		}
		ids = append(ids, string(id))
	}
	return ids, nil
}

type putMode int

const (
	putInsert putMode = iota
	putUpdate
	putUpsert
)

func (c *Collection[T, P]) put(txn *badger.Txn, doc *T, mode putMode) error {
	id := P(doc).DocumentID()
	if id == "" {
		return ErrInvalidID
	}

	old, err := c.load(txn, id)
	switch {
	case err == nil && mode == putInsert:
		return fmt.Errorf("%w: %s %s already exists", ErrConflict, c.name, id)
	case errors.Is(err, ErrNotFound) && mode == putUpdate:
		return err
	case err != nil && !errors.Is(err, ErrNotFound):
		return err
	}

	if err := c.checkUnique(txn, doc, id); err != nil {
		return err
	}
	if old != nil {
		if err := c.deleteIndexes(txn, old, id); err != nil {
			return err
		}
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode %s document: %w", c.name, err)
	}
	if err := txn.Set(c.docKey(id), data); err != nil {
		return err
	}
	for _, idx := range c.indexes {
		value := idx.Key(doc)
		if value == "" {
			continue
		}
		if err := txn.Set(c.indexKey(idx, value, id), []byte(id)); err != nil {
			return err
		}
	}
	return nil
}

func (c *Collection[T, P]) checkUnique(txn *badger.Txn, doc *T, id string) error {
	for _, idx := range c.indexes {
		if !idx.Unique {
			continue
		}
		value := idx.Key(doc)
		if value == "" {
			continue
		}
		item, err := txn.Get(c.indexKey(idx, value, id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			continue
		}
		if err != nil {
			return err
		}
		owner, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		if string(owner) != id {
			return fmt.Errorf("%w: %s.%s value already taken", ErrConflict, c.name, idx.Name)
		}
	}
	return nil
}

func (c *Collection[T, P]) deleteIndexes(txn *badger.Txn, doc *T, id string) error {
	for _, idx := range c.indexes {
		value := idx.Key(doc)
		if value == "" {
			continue
		}
		if err := txn.Delete(c.indexKey(idx, value, id)); err != nil {
			return err
		}
	}
	return nil
}

func (c *Collection[T, P]) load(txn *badger.Txn, id string) (*T, error) {
	if id == "" {
		return nil, ErrNotFound
	}
	item, err := txn.Get(c.docKey(id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	val, err := item.ValueCopy(nil)
	if err != nil {
		return nil, err
	}
	doc := new(T)
	if err := json.Unmarshal(val, doc); err != nil {
		return nil, fmt.Errorf("decode %s document: %w", c.name, err)
	}
	return doc, nil
}

func sortNewestFirst[T any, P interface {
	*T
	Document
}](docs []*T) {
	sort.SliceStable(docs, func(i, j int) bool {
		a, b := P(docs[i]), P(docs[j])
		ta, tb := a.DocumentCreatedAt(), b.DocumentCreatedAt()
		if !ta.Equal(tb) {
			return ta.After(tb)
		}
		return a.DocumentID() > b.DocumentID()
	})
}

func page[T any](docs []*T, opts ListOptions) []*T {
	if opts.Offset < 0 {
		opts.Offset = 0
	}
	if opts.Offset >= len(docs) {
		return []*T{}
	}
	docs = docs[opts.Offset:]
	if opts.Limit > 0 && opts.Limit < len(docs) {
		docs = docs[:opts.Limit]
	}
	return docs
}
