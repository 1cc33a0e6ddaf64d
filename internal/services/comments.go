// comments.go
//
// Comment lifecycle operations. Comment IDs are minted from the parent
// ticket's counter, bumped in the same transaction as the create.

package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/taskpilot/taskpilot/internal/apperrors"
	"github.com/taskpilot/taskpilot/internal/models"
	"github.com/taskpilot/taskpilot/internal/store"
)

// CommentService implements comment entity operations
type CommentService struct {
	Store store.Store
	Log   *slog.Logger
}

// CreateCommentRequest is the payload for comment creation. CommentID is
// optional; when absent the ID is minted as {ticket_id}-{counter}.
type CreateCommentRequest struct {
	CommentID string `json:"comment_id"`
	TicketID  string `json:"ticket_id" validate:"required"`
	Text      string `json:"text" validate:"required"`
	CreatedBy string `json:"created_by" validate:"required"`
}

// SearchCommentsRequest filters comments by the intersection of supplied
// fields.
type SearchCommentsRequest struct {
	TicketID  *string `json:"ticket_id"`
	CreatedBy *string `json:"created_by"`
}

// Get retrieves a comment by id.
func (s *CommentService) Get(ctx context.Context, id string) (*models.Comment, error) {
	var comment models.Comment
	if err := s.Store.Get(ctx, models.CollectionComments, id, &comment); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperrors.NewNotFound("Comment with id '%s' not found", id)
		}
		return nil, storageFailure(err)
	}
	return &comment, nil
}

// Create validates the author and ticket, then writes the comment and bumps
// the ticket's next_comment_id inside one transaction.
func (s *CommentService) Create(ctx context.Context, req *CreateCommentRequest) (*models.Comment, error) {
	createdBy := normalizeUsername(req.CreatedBy)
	if err := requireUser(ctx, s.Store, createdBy); err != nil {
		return nil, err
	}

	var comment models.Comment
	err := s.Store.Transaction(ctx, func(tx store.Store) error {
		var ticket models.Ticket
		if err := tx.Get(ctx, models.CollectionTickets, req.TicketID, &ticket); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return apperrors.NewValidation("Ticket with id '%s' does not exist", req.TicketID)
			}
			return storageFailure(err)
		}

		id := req.CommentID
		if id == "" {
			id = fmt.Sprintf("%s-%d", ticket.TicketID, ticket.NextCommentID)
		}

		comment = models.Comment{
			CommentID: id,
			TicketID:  ticket.TicketID,
			Text:      req.Text,
			CreatedBy: createdBy,
			CreatedAt: models.Now(),
		}
		if err := tx.Create(ctx, models.CollectionComments, id, &comment); err != nil {
			if errors.Is(err, store.ErrConflict) {
				return apperrors.NewConflict("Comment with id '%s' already exists", id)
			}
			return storageFailure(err)
		}

		fields := map[string]any{"next_comment_id": ticket.NextCommentID + 1}
		if err := tx.Update(ctx, models.CollectionTickets, ticket.TicketID, fields); err != nil {
			return storageFailure(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.Log.Info("comment created", "comment_id", comment.CommentID, "ticket_id", comment.TicketID)
	return &comment, nil
}

// Delete removes a comment unconditionally; there is no further cascade.
func (s *CommentService) Delete(ctx context.Context, id string) error {
	if err := s.Store.Delete(ctx, models.CollectionComments, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return apperrors.NewNotFound("Comment with id '%s' not found", id)
		}
		return storageFailure(err)
	}
	s.Log.Info("comment deleted", "comment_id", id)
	return nil
}

// List returns all comments, oldest first. Comment listings sort the
// opposite way from tickets and projects.
func (s *CommentService) List(ctx context.Context) ([]models.Comment, error) {
	raw, err := s.Store.GetAll(ctx, models.CollectionComments)
	if err != nil {
		return nil, storageFailure(err)
	}
	return sortedComments(raw)
}

// ByTicket lists the comments on a ticket, oldest first.
func (s *CommentService) ByTicket(ctx context.Context, ticketID string) ([]models.Comment, error) {
	raw, err := s.Store.Search(ctx, models.CollectionComments, map[string]any{"ticket_id": ticketID})
	if err != nil {
		return nil, storageFailure(err)
	}
	return sortedComments(raw)
}

// Search returns comments matching every supplied filter, oldest first; an
// empty filter set returns all comments.
func (s *CommentService) Search(ctx context.Context, req *SearchCommentsRequest) ([]models.Comment, error) {
	filters := make(map[string]any)
	if req.TicketID != nil {
		filters["ticket_id"] = *req.TicketID
	}
	if req.CreatedBy != nil {
		filters["created_by"] = normalizeUsername(*req.CreatedBy)
	}

	raw, err := s.Store.Search(ctx, models.CollectionComments, filters)
	if err != nil {
		return nil, storageFailure(err)
	}
	return sortedComments(raw)
}

// IsOwner reports whether the user owns the comment: its creator, an admin,
// or an owner of the comment's ticket.
func (s *CommentService) IsOwner(ctx context.Context, commentID, username string) (bool, error) {
	comment, err := s.Get(ctx, commentID)
	if err != nil {
		return false, err
	}
	username = normalizeUsername(username)
	if username == comment.CreatedBy {
		return true, nil
	}

	var ticket models.Ticket
	if err := s.Store.Get(ctx, models.CollectionTickets, comment.TicketID, &ticket); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Dangling ticket reference: fall back to the admin check alone.
			user, lerr := lookupUser(ctx, s.Store, username)
			if lerr != nil {
				return false, lerr
			}
			return user != nil && user.IsAdmin, nil
		}
		return false, storageFailure(err)
	}
	return isTicketOwner(ctx, s.Store, &ticket, username)
}

func sortedComments(raw map[string]json.RawMessage) ([]models.Comment, error) {
	comments, err := decodeAll[models.Comment](raw)
	if err != nil {
		return nil, err
	}
	sort.Slice(comments, func(i, j int) bool {
		return models.TimestampBefore(comments[i].CreatedAt, comments[j].CreatedAt)
	})
	return comments, nil
}
