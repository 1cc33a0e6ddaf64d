// Package services implements the entity lifecycle layer: per-entity
// operations over the document store enforcing referential integrity,
// cascaded deletes, ownership checks, and counter-based child IDs.
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/taskpilot/taskpilot/internal/apperrors"
	"github.com/taskpilot/taskpilot/internal/models"
	"github.com/taskpilot/taskpilot/internal/store"
)

// normalizeUsername applies the canonical casing policy: usernames are
// lower-cased on every write path, including members and assignee fields.
func normalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

func normalizeUsernames(usernames []string) []string {
	out := make([]string, 0, len(usernames))
	for _, u := range usernames {
		out = append(out, normalizeUsername(u))
	}
	return out
}

// lookupUser fetches a user document, returning (nil, nil) when absent.
func lookupUser(ctx context.Context, st store.Store, username string) (*models.User, error) {
	var user models.User
	err := st.Get(ctx, models.CollectionUsers, normalizeUsername(username), &user)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil
		}
		return nil, storageFailure(err)
	}
	return &user, nil
}

// requireUser rejects with a validation failure when the referenced user
// does not exist. Used on every created_by/modified_by/assignee/member check.
func requireUser(ctx context.Context, st store.Store, username string) error {
	user, err := lookupUser(ctx, st, username)
	if err != nil {
		return err
	}
	if user == nil {
		return apperrors.NewValidation("User with id '%s' does not exist", normalizeUsername(username))
	}
	return nil
}

// decodeAll decodes a search/get-all result set into typed entities.
func decodeAll[T any](raw map[string]json.RawMessage) ([]T, error) {
	items := make([]T, 0, len(raw))
	for id, doc := range raw {
		var item T
		if err := json.Unmarshal(doc, &item); err != nil {
			return nil, storageFailure(fmt.Errorf("decode document %s: %w", id, err))
		}
		items = append(items, item)
	}
	return items, nil
}

// storageFailure converts an adapter error into the typed storage failure,
// passing through errors that already carry an application type.
func storageFailure(err error) error {
	if appErr := apperrors.Get(err); appErr != nil {
		return appErr
	}
	return apperrors.NewStorage("Storage unavailable: %v", err)
}
