// tickets.go
//
// Ticket lifecycle operations. Ticket creation mints the child ID from the
// parent project's counter and bumps it in the same transaction; deletion
// removes the ticket's comments and re-parents its children to null before
// the ticket itself goes away.

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

// TicketService implements ticket entity operations
type TicketService struct {
	Store store.Store
	Log   *slog.Logger
}

// CreateTicketRequest is the payload for ticket creation. TicketID is
// optional; when absent the ID is minted as {parent_project}-{counter}.
type CreateTicketRequest struct {
	TicketID      string  `json:"ticket_id"`
	Title         string  `json:"title" validate:"required"`
	Description   string  `json:"description"`
	Type          string  `json:"type" validate:"required,oneof=Epic Story Task Bug"`
	Priority      string  `json:"priority" validate:"required,oneof=Low Normal High Critical"`
	Status        string  `json:"status" validate:"omitempty,oneof='Not Started' 'In Progress' Closed"`
	Assignee      *string `json:"assignee"`
	CreatedBy     string  `json:"created_by" validate:"required"`
	ParentProject string  `json:"parent_project" validate:"required"`
	ParentTicket  *string `json:"parent_ticket"`
}

// UpdateTicketRequest replaces every mutable ticket field, re-validating the
// same references as creation.
type UpdateTicketRequest struct {
	Title         string  `json:"title" validate:"required"`
	Description   string  `json:"description"`
	Type          string  `json:"type" validate:"required,oneof=Epic Story Task Bug"`
	Priority      string  `json:"priority" validate:"required,oneof=Low Normal High Critical"`
	Status        string  `json:"status" validate:"required,oneof='Not Started' 'In Progress' Closed"`
	Assignee      *string `json:"assignee"`
	ModifiedBy    string  `json:"modified_by" validate:"required"`
	ParentProject string  `json:"parent_project" validate:"required"`
	ParentTicket  *string `json:"parent_ticket"`
}

// ChangeTicketStatusRequest carries the single-field status change.
type ChangeTicketStatusRequest struct {
	Status string `json:"status" validate:"required,oneof='Not Started' 'In Progress' Closed"`
}

// SearchTicketsRequest filters tickets by the intersection of supplied
// fields.
type SearchTicketsRequest struct {
	Title         *string `json:"title"`
	Type          *string `json:"type"`
	Priority      *string `json:"priority"`
	Status        *string `json:"status"`
	Assignee      *string `json:"assignee"`
	CreatedBy     *string `json:"created_by"`
	ParentProject *string `json:"parent_project"`
	ParentTicket  *string `json:"parent_ticket"`
}

// Get retrieves a ticket by id.
func (s *TicketService) Get(ctx context.Context, id string) (*models.Ticket, error) {
	var ticket models.Ticket
	if err := s.Store.Get(ctx, models.CollectionTickets, id, &ticket); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperrors.NewNotFound("Ticket with id '%s' not found", id)
		}
		return nil, storageFailure(err)
	}
	return &ticket, nil
}

// Create validates every reference, then writes the ticket and bumps the
// parent project's next_ticket_id inside one transaction.
func (s *TicketService) Create(ctx context.Context, req *CreateTicketRequest) (*models.Ticket, error) {
	createdBy := normalizeUsername(req.CreatedBy)
	if err := requireUser(ctx, s.Store, createdBy); err != nil {
		return nil, err
	}
	assignee, err := s.resolveAssignee(ctx, req.Assignee)
	if err != nil {
		return nil, err
	}
	if err := s.requireProject(ctx, req.ParentProject); err != nil {
		return nil, err
	}
	parentTicket, err := s.resolveParentTicket(ctx, req.ParentTicket)
	if err != nil {
		return nil, err
	}

	status := req.Status
	if status == "" {
		status = models.StatusNotStarted
	}

	var ticket models.Ticket
	err = s.Store.Transaction(ctx, func(tx store.Store) error {
		// The counter read happens inside the transaction so concurrent
		// creations under the same project cannot mint the same ID.
		var project models.Project
		if err := tx.Get(ctx, models.CollectionProjects, req.ParentProject, &project); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return apperrors.NewValidation("Project with id '%s' does not exist", req.ParentProject)
			}
			return storageFailure(err)
		}

		id := req.TicketID
		if id == "" {
			id = fmt.Sprintf("%s-%d", project.ProjectID, project.NextTicketID)
		}

		now := models.Now()
		ticket = models.Ticket{
			TicketID:      id,
			Title:         req.Title,
			Description:   req.Description,
			Type:          req.Type,
			Priority:      req.Priority,
			Status:        status,
			Assignee:      assignee,
			CreatedBy:     createdBy,
			CreatedAt:     now,
			ModifiedBy:    createdBy,
			ModifiedAt:    now,
			ParentProject: project.ProjectID,
			ParentTicket:  parentTicket,
			NextCommentID: 0,
		}
		if err := tx.Create(ctx, models.CollectionTickets, id, &ticket); err != nil {
			if errors.Is(err, store.ErrConflict) {
				return apperrors.NewConflict("Ticket with id '%s' already exists", id)
			}
			return storageFailure(err)
		}

		fields := map[string]any{"next_ticket_id": project.NextTicketID + 1}
		if err := tx.Update(ctx, models.CollectionProjects, project.ProjectID, fields); err != nil {
			return storageFailure(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.Log.Info("ticket created", "ticket_id", ticket.TicketID, "project", ticket.ParentProject)
	return &ticket, nil
}

// Update replaces every mutable field, mirroring creation's referential
// checks, and stamps modified_by/modified_at.
func (s *TicketService) Update(ctx context.Context, id string, req *UpdateTicketRequest) (*models.Ticket, error) {
	modifiedBy := normalizeUsername(req.ModifiedBy)
	if err := requireUser(ctx, s.Store, modifiedBy); err != nil {
		return nil, err
	}
	assignee, err := s.resolveAssignee(ctx, req.Assignee)
	if err != nil {
		return nil, err
	}
	if err := s.requireProject(ctx, req.ParentProject); err != nil {
		return nil, err
	}
	parentTicket, err := s.resolveParentTicket(ctx, req.ParentTicket)
	if err != nil {
		return nil, err
	}

	fields := map[string]any{
		"title":          req.Title,
		"description":    req.Description,
		"type":           req.Type,
		"priority":       req.Priority,
		"status":         req.Status,
		"assignee":       assignee,
		"modified_by":    modifiedBy,
		"modified_at":    models.Now(),
		"parent_project": req.ParentProject,
		"parent_ticket":  parentTicket,
	}
	if err := s.Store.Update(ctx, models.CollectionTickets, id, fields); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperrors.NewNotFound("Ticket with id '%s' not found", id)
		}
		return nil, storageFailure(err)
	}

	s.Log.Info("ticket updated", "ticket_id", id, "modified_by", modifiedBy)
	return s.Get(ctx, id)
}

// Delete removes a ticket, its comments, and the parent link of its child
// tickets, all in one transaction.
func (s *TicketService) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}

	err := s.Store.Transaction(ctx, func(tx store.Store) error {
		return deleteTicketCascade(ctx, tx, id)
	})
	if err != nil {
		return err
	}

	s.Log.Info("ticket deleted", "ticket_id", id)
	return nil
}

// ChangeStatus updates the status field alone. Status values are vetted by
// the request schema; no transition graph is enforced here.
func (s *TicketService) ChangeStatus(ctx context.Context, id, status string) (*models.Ticket, error) {
	fields := map[string]any{"status": status}
	if err := s.Store.Update(ctx, models.CollectionTickets, id, fields); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperrors.NewNotFound("Ticket with id '%s' not found", id)
		}
		return nil, storageFailure(err)
	}
	return s.Get(ctx, id)
}

// Assign sets the ticket's assignee. The user must exist.
func (s *TicketService) Assign(ctx context.Context, id, username string) (*models.Ticket, error) {
	username = normalizeUsername(username)
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	if err := requireUser(ctx, s.Store, username); err != nil {
		return nil, err
	}

	fields := map[string]any{"assignee": username}
	if err := s.Store.Update(ctx, models.CollectionTickets, id, fields); err != nil {
		return nil, storageFailure(err)
	}
	return s.Get(ctx, id)
}

// Unassign clears the ticket's assignee.
func (s *TicketService) Unassign(ctx context.Context, id string) (*models.Ticket, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}

	fields := map[string]any{"assignee": nil}
	if err := s.Store.Update(ctx, models.CollectionTickets, id, fields); err != nil {
		return nil, storageFailure(err)
	}
	return s.Get(ctx, id)
}

// List returns all tickets, most recently modified first.
func (s *TicketService) List(ctx context.Context) ([]models.Ticket, error) {
	raw, err := s.Store.GetAll(ctx, models.CollectionTickets)
	if err != nil {
		return nil, storageFailure(err)
	}
	return sortedTickets(raw)
}

// Search returns tickets matching every supplied filter, most recently
// modified first; an empty filter set returns all tickets.
func (s *TicketService) Search(ctx context.Context, req *SearchTicketsRequest) ([]models.Ticket, error) {
	filters := make(map[string]any)
	if req.Title != nil {
		filters["title"] = *req.Title
	}
	if req.Type != nil {
		filters["type"] = *req.Type
	}
	if req.Priority != nil {
		filters["priority"] = *req.Priority
	}
	if req.Status != nil {
		filters["status"] = *req.Status
	}
	if req.Assignee != nil {
		filters["assignee"] = normalizeUsername(*req.Assignee)
	}
	if req.CreatedBy != nil {
		filters["created_by"] = normalizeUsername(*req.CreatedBy)
	}
	if req.ParentProject != nil {
		filters["parent_project"] = *req.ParentProject
	}
	if req.ParentTicket != nil {
		filters["parent_ticket"] = *req.ParentTicket
	}

	raw, err := s.Store.Search(ctx, models.CollectionTickets, filters)
	if err != nil {
		return nil, storageFailure(err)
	}
	return sortedTickets(raw)
}

// ByProject lists the tickets under a project, most recently modified first.
func (s *TicketService) ByProject(ctx context.Context, projectID string) ([]models.Ticket, error) {
	raw, err := s.Store.Search(ctx, models.CollectionTickets, map[string]any{"parent_project": projectID})
	if err != nil {
		return nil, storageFailure(err)
	}
	return sortedTickets(raw)
}

// ByAssignee lists the tickets assigned to a user, most recently modified
// first.
func (s *TicketService) ByAssignee(ctx context.Context, username string) ([]models.Ticket, error) {
	raw, err := s.Store.Search(ctx, models.CollectionTickets, map[string]any{"assignee": normalizeUsername(username)})
	if err != nil {
		return nil, storageFailure(err)
	}
	return sortedTickets(raw)
}

// Children lists the tickets whose parent_ticket is this ticket, most
// recently modified first.
func (s *TicketService) Children(ctx context.Context, id string) ([]models.Ticket, error) {
	raw, err := s.Store.Search(ctx, models.CollectionTickets, map[string]any{"parent_ticket": id})
	if err != nil {
		return nil, storageFailure(err)
	}
	return sortedTickets(raw)
}

// IsOwner reports whether the user owns the ticket: its creator, the parent
// project's creator, an admin, or the owner of any ancestor ticket.
func (s *TicketService) IsOwner(ctx context.Context, ticketID, username string) (bool, error) {
	ticket, err := s.Get(ctx, ticketID)
	if err != nil {
		return false, err
	}
	return isTicketOwner(ctx, s.Store, ticket, normalizeUsername(username))
}

// isTicketOwner walks the parent_ticket chain iteratively. The visited set
// guards against an accidental cycle in stored data; a cycle or dangling
// parent reference ends the walk as non-owner.
func isTicketOwner(ctx context.Context, st store.Store, ticket *models.Ticket, username string) (bool, error) {
	user, err := lookupUser(ctx, st, username)
	if err != nil {
		return false, err
	}
	if user != nil && user.IsAdmin {
		return true, nil
	}

	visited := map[string]bool{}
	current := ticket
	for current != nil {
		if visited[current.TicketID] {
			return false, nil
		}
		visited[current.TicketID] = true

		if username == current.CreatedBy {
			return true, nil
		}

		var project models.Project
		err := st.Get(ctx, models.CollectionProjects, current.ParentProject, &project)
		if err == nil && username == project.CreatedBy {
			return true, nil
		}
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return false, storageFailure(err)
		}

		if current.ParentTicket == nil {
			return false, nil
		}
		var parent models.Ticket
		if err := st.Get(ctx, models.CollectionTickets, *current.ParentTicket, &parent); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return false, nil
			}
			return false, storageFailure(err)
		}
		current = &parent
	}
	return false, nil
}

// deleteTicketCascade removes a ticket within tx: comments first, then the
// parent link of child tickets, then the ticket document. Any failure
// aborts the enclosing transaction.
func deleteTicketCascade(ctx context.Context, tx store.Store, id string) error {
	comments, err := tx.Search(ctx, models.CollectionComments, map[string]any{"ticket_id": id})
	if err != nil {
		return storageFailure(err)
	}
	for commentID := range comments {
		if err := tx.Delete(ctx, models.CollectionComments, commentID); err != nil {
			return storageFailure(err)
		}
	}

	children, err := tx.Search(ctx, models.CollectionTickets, map[string]any{"parent_ticket": id})
	if err != nil {
		return storageFailure(err)
	}
	for childID := range children {
		fields := map[string]any{"parent_ticket": nil}
		if err := tx.Update(ctx, models.CollectionTickets, childID, fields); err != nil {
			return storageFailure(err)
		}
	}

	if err := tx.Delete(ctx, models.CollectionTickets, id); err != nil {
		return storageFailure(err)
	}
	return nil
}

func (s *TicketService) resolveAssignee(ctx context.Context, assignee *string) (*string, error) {
	if assignee == nil || *assignee == "" {
		return nil, nil
	}
	normalized := normalizeUsername(*assignee)
	if err := requireUser(ctx, s.Store, normalized); err != nil {
		return nil, err
	}
	return &normalized, nil
}

func (s *TicketService) requireProject(ctx context.Context, projectID string) error {
	if err := s.Store.Get(ctx, models.CollectionProjects, projectID, nil); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return apperrors.NewValidation("Project with id '%s' does not exist", projectID)
		}
		return storageFailure(err)
	}
	return nil
}

func (s *TicketService) resolveParentTicket(ctx context.Context, parent *string) (*string, error) {
	if parent == nil || *parent == "" {
		return nil, nil
	}
	if err := s.Store.Get(ctx, models.CollectionTickets, *parent, nil); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperrors.NewValidation("Ticket with id '%s' does not exist", *parent)
		}
		return nil, storageFailure(err)
	}
	return parent, nil
}

func sortedTickets(raw map[string]json.RawMessage) ([]models.Ticket, error) {
	tickets, err := decodeAll[models.Ticket](raw)
	if err != nil {
		return nil, err
	}
	sort.Slice(tickets, func(i, j int) bool {
		return models.TimestampAfter(tickets[i].ModifiedAt, tickets[j].ModifiedAt)
	})
	return tickets, nil
}
