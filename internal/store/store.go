// Package store provides the document store: flat collections of JSON
// documents addressed by collection name and string ID, with exact-match
// field search. No foreign keys exist at this layer.
package store

import (
	"context"
	"encoding/json"
	"errors"
)

var (
	// ErrNotFound is returned when a document with the given ID is absent.
	ErrNotFound = errors.New("document not found")
	// ErrConflict is returned by Create when the ID already exists.
	ErrConflict = errors.New("document already exists")
)

// Store is the document store contract. Get and GetAll decode stored JSON;
// Update merges the given fields into the stored document rather than
// replacing it. Search filters are ANDed exact matches on top-level fields,
// and an empty filter set behaves like GetAll.
type Store interface {
	Get(ctx context.Context, collection, id string, out any) error
	GetAll(ctx context.Context, collection string) (map[string]json.RawMessage, error)
	Create(ctx context.Context, collection, id string, doc any) error
	Update(ctx context.Context, collection, id string, fields map[string]any) error
	Delete(ctx context.Context, collection, id string) error
	Search(ctx context.Context, collection string, filters map[string]any) (map[string]json.RawMessage, error)

	// Transaction runs fn with a Store whose operations all commit or roll
	// back together. Entity operations that touch multiple documents
	// (cascaded deletes, counter bumps) run inside one transaction.
	Transaction(ctx context.Context, fn func(tx Store) error) error
}
