// projects.go
//
// Project lifecycle operations. Deleting a project cascades through its
// tickets inside one store transaction, so a failed child delete leaves the
// project intact.

package services

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sort"

	"github.com/google/uuid"

	"github.com/taskpilot/taskpilot/internal/apperrors"
	"github.com/taskpilot/taskpilot/internal/models"
	"github.com/taskpilot/taskpilot/internal/store"
)

// ProjectService implements project entity operations
type ProjectService struct {
	Store store.Store
	Log   *slog.Logger
}

// CreateProjectRequest is the payload for project creation. ProjectID is
// optional; a UUID is generated when absent.
type CreateProjectRequest struct {
	ProjectID   string   `json:"project_id"`
	Title       string   `json:"title" validate:"required"`
	Description string   `json:"description"`
	CreatedBy   string   `json:"created_by" validate:"required"`
	Members     []string `json:"members"`
}

// UpdateProjectRequest replaces title, description, and members.
type UpdateProjectRequest struct {
	Title       string   `json:"title" validate:"required"`
	Description string   `json:"description"`
	ModifiedBy  string   `json:"modified_by" validate:"required"`
	Members     []string `json:"members"`
}

// SearchProjectsRequest filters projects by the intersection of supplied
// fields.
type SearchProjectsRequest struct {
	Title      *string `json:"title"`
	CreatedBy  *string `json:"created_by"`
	ModifiedBy *string `json:"modified_by"`
}

// Get retrieves a project by id.
func (s *ProjectService) Get(ctx context.Context, id string) (*models.Project, error) {
	var project models.Project
	if err := s.Store.Get(ctx, models.CollectionProjects, id, &project); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperrors.NewNotFound("Project with id '%s' not found", id)
		}
		return nil, storageFailure(err)
	}
	return &project, nil
}

// Create makes a new project after resolving created_by and every member.
// All referenced users are validated before anything is written.
func (s *ProjectService) Create(ctx context.Context, req *CreateProjectRequest) (*models.Project, error) {
	createdBy := normalizeUsername(req.CreatedBy)
	if err := requireUser(ctx, s.Store, createdBy); err != nil {
		return nil, err
	}
	members := normalizeUsernames(req.Members)
	for _, member := range members {
		if err := requireUser(ctx, s.Store, member); err != nil {
			return nil, err
		}
	}

	id := req.ProjectID
	if id == "" {
		id = uuid.NewString()
	}

	now := models.Now()
	project := models.Project{
		ProjectID:    id,
		Title:        req.Title,
		Description:  req.Description,
		CreatedBy:    createdBy,
		CreatedAt:    now,
		ModifiedBy:   createdBy,
		ModifiedAt:   now,
		Members:      members,
		NextTicketID: 0,
	}
	if err := s.Store.Create(ctx, models.CollectionProjects, id, &project); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return nil, apperrors.NewConflict("Project with id '%s' already exists", id)
		}
		return nil, storageFailure(err)
	}

	s.Log.Info("project created", "project_id", id, "created_by", createdBy)
	return &project, nil
}

// Update replaces title, description, and members, stamping modified_by and
// modified_at. The modifier and every new member must exist.
func (s *ProjectService) Update(ctx context.Context, id string, req *UpdateProjectRequest) (*models.Project, error) {
	modifiedBy := normalizeUsername(req.ModifiedBy)
	if err := requireUser(ctx, s.Store, modifiedBy); err != nil {
		return nil, err
	}
	members := normalizeUsernames(req.Members)
	for _, member := range members {
		if err := requireUser(ctx, s.Store, member); err != nil {
			return nil, err
		}
	}

	fields := map[string]any{
		"title":       req.Title,
		"description": req.Description,
		"members":     members,
		"modified_by": modifiedBy,
		"modified_at": models.Now(),
	}
	if err := s.Store.Update(ctx, models.CollectionProjects, id, fields); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperrors.NewNotFound("Project with id '%s' not found", id)
		}
		return nil, storageFailure(err)
	}

	s.Log.Info("project updated", "project_id", id, "modified_by", modifiedBy)
	return s.Get(ctx, id)
}

// Delete removes a project after cascading through every ticket under it.
// The whole cascade runs in one transaction: if any ticket (or comment, or
// child re-parent) fails, the project survives untouched.
func (s *ProjectService) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}

	err := s.Store.Transaction(ctx, func(tx store.Store) error {
		raw, err := tx.Search(ctx, models.CollectionTickets, map[string]any{"parent_project": id})
		if err != nil {
			return storageFailure(err)
		}
		for ticketID := range raw {
			if err := deleteTicketCascade(ctx, tx, ticketID); err != nil {
				return err
			}
		}
		if err := tx.Delete(ctx, models.CollectionProjects, id); err != nil {
			return storageFailure(err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.Log.Info("project deleted", "project_id", id)
	return nil
}

// List returns all projects, most recently modified first.
func (s *ProjectService) List(ctx context.Context) ([]models.Project, error) {
	raw, err := s.Store.GetAll(ctx, models.CollectionProjects)
	if err != nil {
		return nil, storageFailure(err)
	}
	return sortedProjects(raw)
}

// Search returns projects matching every supplied filter, most recently
// modified first; an empty filter set returns all projects.
func (s *ProjectService) Search(ctx context.Context, req *SearchProjectsRequest) ([]models.Project, error) {
	filters := make(map[string]any)
	if req.Title != nil {
		filters["title"] = *req.Title
	}
	if req.CreatedBy != nil {
		filters["created_by"] = normalizeUsername(*req.CreatedBy)
	}
	if req.ModifiedBy != nil {
		filters["modified_by"] = normalizeUsername(*req.ModifiedBy)
	}

	raw, err := s.Store.Search(ctx, models.CollectionProjects, filters)
	if err != nil {
		return nil, storageFailure(err)
	}
	return sortedProjects(raw)
}

// IsOwner reports whether the user created the project or is an admin. A
// username with no backing user document can still own by creator match but
// never by admin.
func (s *ProjectService) IsOwner(ctx context.Context, projectID, username string) (bool, error) {
	project, err := s.Get(ctx, projectID)
	if err != nil {
		return false, err
	}
	return isProjectOwner(ctx, s.Store, project, normalizeUsername(username))
}

// IsMember reports whether the user is in the member list or owns the
// project.
func (s *ProjectService) IsMember(ctx context.Context, projectID, username string) (bool, error) {
	project, err := s.Get(ctx, projectID)
	if err != nil {
		return false, err
	}
	username = normalizeUsername(username)
	for _, member := range project.Members {
		if member == username {
			return true, nil
		}
	}
	return isProjectOwner(ctx, s.Store, project, username)
}

// AddMember adds a user to the project's member list. The user must exist.
func (s *ProjectService) AddMember(ctx context.Context, projectID, username string) (*models.Project, error) {
	project, err := s.Get(ctx, projectID)
	if err != nil {
		return nil, err
	}
	username = normalizeUsername(username)
	if err := requireUser(ctx, s.Store, username); err != nil {
		return nil, err
	}

	for _, member := range project.Members {
		if member == username {
			return project, nil
		}
	}
	project.Members = append(project.Members, username)

	fields := map[string]any{"members": project.Members}
	if err := s.Store.Update(ctx, models.CollectionProjects, projectID, fields); err != nil {
		return nil, storageFailure(err)
	}
	return project, nil
}

// RemoveMember removes a user from the project's member list.
func (s *ProjectService) RemoveMember(ctx context.Context, projectID, username string) (*models.Project, error) {
	project, err := s.Get(ctx, projectID)
	if err != nil {
		return nil, err
	}
	username = normalizeUsername(username)

	members := make([]string, 0, len(project.Members))
	for _, member := range project.Members {
		if member != username {
			members = append(members, member)
		}
	}
	project.Members = members

	fields := map[string]any{"members": project.Members}
	if err := s.Store.Update(ctx, models.CollectionProjects, projectID, fields); err != nil {
		return nil, storageFailure(err)
	}
	return project, nil
}

// isProjectOwner is the shared owner predicate used by project and ticket
// ownership checks.
func isProjectOwner(ctx context.Context, st store.Store, project *models.Project, username string) (bool, error) {
	if username == project.CreatedBy {
		return true, nil
	}
	user, err := lookupUser(ctx, st, username)
	if err != nil {
		return false, err
	}
	return user != nil && user.IsAdmin, nil
}

func sortedProjects(raw map[string]json.RawMessage) ([]models.Project, error) {
	projects, err := decodeAll[models.Project](raw)
	if err != nil {
		return nil, err
	}
	sort.Slice(projects, func(i, j int) bool {
		return models.TimestampAfter(projects[i].ModifiedAt, projects[j].ModifiedAt)
	})
	return projects, nil
}
