// gorm_store.go
//
// GORM-backed document store. Documents live in a single table keyed by
// (collection, doc_id) with the body in a JSON column. String equality
// filters push down to the database through JSON path queries; other filter
// types apply in memory after decode.

package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Document is the storage row for one JSON document.
type Document struct {
	ID         uint64         `gorm:"primaryKey;autoIncrement"`
	Collection string         `gorm:"size:64;not null;index:idx_collection_doc,unique"`
	DocID      string         `gorm:"size:255;not null;index:idx_collection_doc,unique"`
	Payload    datatypes.JSON `gorm:"type:json"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// TableName overrides the table name for Document
func (Document) TableName() string {
	return "documents"
}

// DocumentStore implements Store on a GORM connection.
type DocumentStore struct {
	db *gorm.DB
}

// New creates a DocumentStore over db.
func New(db *gorm.DB) *DocumentStore {
	return &DocumentStore{db: db}
}

// Get retrieves a document by ID and decodes it into out.
func (s *DocumentStore) Get(ctx context.Context, collection, id string, out any) error {
	var doc Document
	err := s.db.WithContext(ctx).
		Where("collection = ? AND doc_id = ?", collection, id).
		First(&doc).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return ErrNotFound
		}
		return fmt.Errorf("get %s/%s: %w", collection, id, err)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(doc.Payload, out); err != nil {
		return fmt.Errorf("decode %s/%s: %w", collection, id, err)
	}
	return nil
}

// GetAll returns every document in the collection keyed by ID.
func (s *DocumentStore) GetAll(ctx context.Context, collection string) (map[string]json.RawMessage, error) {
	var docs []Document
	err := s.db.WithContext(ctx).
		Where("collection = ?", collection).
		Find(&docs).Error
	if err != nil {
		return nil, fmt.Errorf("get all %s: %w", collection, err)
	}
	result := make(map[string]json.RawMessage, len(docs))
	for _, doc := range docs {
		result[doc.DocID] = json.RawMessage(doc.Payload)
	}
	return result, nil
}

// Create stores a new document under id. Fails with ErrConflict when the ID
// is already taken; the unique index backstops the check under concurrent
// creates.
func (s *DocumentStore) Create(ctx context.Context, collection, id string, doc any) error {
	payload, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode %s/%s: %w", collection, id, err)
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&Document{}).
		Where("collection = ? AND doc_id = ?", collection, id).
		Count(&count).Error; err != nil {
		return fmt.Errorf("create %s/%s: %w", collection, id, err)
	}
	if count > 0 {
		return ErrConflict
	}

	row := Document{
		Collection: collection,
		DocID:      id,
		Payload:    datatypes.JSON(payload),
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isDuplicateError(err) {
			return ErrConflict
		}
		return fmt.Errorf("create %s/%s: %w", collection, id, err)
	}
	return nil
}

// Update merges fields into the stored document. A field set to nil is
// written as JSON null, not removed.
func (s *DocumentStore) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	var doc Document
	err := s.db.WithContext(ctx).
		Where("collection = ? AND doc_id = ?", collection, id).
		First(&doc).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return ErrNotFound
		}
		return fmt.Errorf("update %s/%s: %w", collection, id, err)
	}

	merged := make(map[string]any)
	if len(doc.Payload) > 0 {
		if err := json.Unmarshal(doc.Payload, &merged); err != nil {
			return fmt.Errorf("decode %s/%s: %w", collection, id, err)
		}
	}
	for k, v := range fields {
		merged[k] = v
	}

	payload, err := json.Marshal(merged)
	if err != nil {
		return fmt.Errorf("encode %s/%s: %w", collection, id, err)
	}
	if err := s.db.WithContext(ctx).Model(&doc).
		Update("payload", datatypes.JSON(payload)).Error; err != nil {
		return fmt.Errorf("update %s/%s: %w", collection, id, err)
	}
	return nil
}

// Delete removes a document by ID.
func (s *DocumentStore) Delete(ctx context.Context, collection, id string) error {
	result := s.db.WithContext(ctx).
		Where("collection = ? AND doc_id = ?", collection, id).
		Delete(&Document{})
	if result.Error != nil {
		return fmt.Errorf("delete %s/%s: %w", collection, id, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Search returns documents matching all filters exactly. String filters run
// as JSON path queries in the database; remaining filters are checked in Go
// because JSON boolean and number comparison differs across dialects.
func (s *DocumentStore) Search(ctx context.Context, collection string, filters map[string]any) (map[string]json.RawMessage, error) {
	if len(filters) == 0 {
		return s.GetAll(ctx, collection)
	}

	query := s.db.WithContext(ctx).Where("collection = ?", collection)
	residual := make(map[string]any)
	for field, value := range filters {
		if str, ok := value.(string); ok {
			query = query.Where(datatypes.JSONQuery("payload").Equals(str, field))
		} else {
			residual[field] = value
		}
	}

	var docs []Document
	if err := query.Find(&docs).Error; err != nil {
		return nil, fmt.Errorf("search %s: %w", collection, err)
	}

	result := make(map[string]json.RawMessage, len(docs))
	for _, doc := range docs {
		if len(residual) > 0 {
			var fields map[string]any
			if err := json.Unmarshal(doc.Payload, &fields); err != nil {
				return nil, fmt.Errorf("decode %s/%s: %w", collection, doc.DocID, err)
			}
			if !matchesAll(fields, residual) {
				continue
			}
		}
		result[doc.DocID] = json.RawMessage(doc.Payload)
	}
	return result, nil
}

// Transaction runs fn against a store bound to one database transaction.
func (s *DocumentStore) Transaction(ctx context.Context, fn func(tx Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&DocumentStore{db: tx})
	})
}

func matchesAll(fields, filters map[string]any) bool {
	for field, want := range filters {
		got, ok := fields[field]
		if !ok || !jsonValueEqual(got, want) {
			return false
		}
	}
	return true
}

// jsonValueEqual compares a decoded JSON value with a filter value supplied
// as a Go type. Decoded numbers are always float64.
func jsonValueEqual(got, want any) bool {
	switch w := want.(type) {
	case nil:
		return got == nil
	case bool:
		g, ok := got.(bool)
		return ok && g == w
	case int:
		g, ok := got.(float64)
		return ok && g == float64(w)
	case float64:
		g, ok := got.(float64)
		return ok && g == w
	case string:
		g, ok := got.(string)
		return ok && g == w
	default:
		return false
	}
}

// isDuplicateError detects unique-constraint violations across the
// supported dialects.
func isDuplicateError(err error) bool {
	if err == nil {
		return false
	}
	if err == gorm.ErrDuplicatedKey {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "Duplicate entry") ||
		strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "violates unique constraint")
}
