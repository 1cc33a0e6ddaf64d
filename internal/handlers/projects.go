// projects.go
//
// HTTP facade for project operations, including membership and ownership
// queries.

package handlers

import (
	"fmt"

	"github.com/gofiber/fiber/v2"

	"github.com/taskpilot/taskpilot/internal/services"
	"github.com/taskpilot/taskpilot/internal/utils"
)

// ProjectHandler handles project routes
type ProjectHandler struct {
	Projects *services.ProjectService
	Tickets  *services.TicketService
}

// GetProject handles GET /api/projects/:project_id
// @Summary Get a project by id
// @Tags Projects
// @Produce json
// @Param project_id path string true "Project ID"
// @Success 200 {object} utils.Envelope
// @Failure 404 {object} utils.Envelope
// @Router /projects/{project_id} [get]
func (h *ProjectHandler) GetProject(c *fiber.Ctx) error {
	projectID := c.Params("project_id")
	project, err := h.Projects.Get(c.Context(), projectID)
	if err != nil {
		return utils.Error(c, err)
	}
	return utils.Success(c,
		fmt.Sprintf("Project with id '%s' retrieved successfully", project.ProjectID),
		fiber.Map{"project": project})
}

// CreateProject handles POST /api/projects
// @Summary Create a project
// @Tags Projects
// @Accept json
// @Produce json
// @Param request body services.CreateProjectRequest true "Project"
// @Success 200 {object} utils.Envelope
// @Failure 424 {object} utils.Envelope
// @Router /projects [post]
func (h *ProjectHandler) CreateProject(c *fiber.Ctx) error {
	var req services.CreateProjectRequest
	if err := parseBody(c, &req); err != nil {
		return utils.Error(c, err)
	}
	project, err := h.Projects.Create(c.Context(), &req)
	if err != nil {
		return utils.Error(c, err)
	}
	return utils.Success(c,
		fmt.Sprintf("Project with id '%s' created successfully", project.ProjectID),
		fiber.Map{"project": project})
}

// UpdateProject handles PUT /api/projects/:project_id
// @Summary Update a project
// @Tags Projects
// @Accept json
// @Produce json
// @Param project_id path string true "Project ID"
// @Param request body services.UpdateProjectRequest true "Project"
// @Success 200 {object} utils.Envelope
// @Failure 404 {object} utils.Envelope
// @Router /projects/{project_id} [put]
func (h *ProjectHandler) UpdateProject(c *fiber.Ctx) error {
	projectID := c.Params("project_id")
	var req services.UpdateProjectRequest
	if err := parseBody(c, &req); err != nil {
		return utils.Error(c, err)
	}
	project, err := h.Projects.Update(c.Context(), projectID, &req)
	if err != nil {
		return utils.Error(c, err)
	}
	return utils.Success(c,
		fmt.Sprintf("Project with id '%s' updated successfully", project.ProjectID),
		fiber.Map{"project": project})
}

// DeleteProject handles DELETE /api/projects/:project_id
// @Summary Delete a project and its tickets
// @Tags Projects
// @Produce json
// @Param project_id path string true "Project ID"
// @Success 200 {object} utils.Envelope
// @Failure 404 {object} utils.Envelope
// @Router /projects/{project_id} [delete]
func (h *ProjectHandler) DeleteProject(c *fiber.Ctx) error {
	projectID := c.Params("project_id")
	if err := h.Projects.Delete(c.Context(), projectID); err != nil {
		return utils.Error(c, err)
	}
	return utils.Success(c,
		fmt.Sprintf("Project with id '%s' deleted successfully", projectID),
		nil)
}

// ListProjects handles GET /api/projects
// @Summary List all projects
// @Tags Projects
// @Produce json
// @Success 200 {object} utils.Envelope
// @Router /projects [get]
func (h *ProjectHandler) ListProjects(c *fiber.Ctx) error {
	projects, err := h.Projects.List(c.Context())
	if err != nil {
		return utils.Error(c, err)
	}
	return utils.Success(c, "All projects retrieved successfully",
		fiber.Map{"projects": projects})
}

// SearchProjects handles POST /api/projects/search
// @Summary Search projects
// @Tags Projects
// @Accept json
// @Produce json
// @Param request body services.SearchProjectsRequest true "Filters"
// @Success 200 {object} utils.Envelope
// @Router /projects/search [post]
func (h *ProjectHandler) SearchProjects(c *fiber.Ctx) error {
	var req services.SearchProjectsRequest
	if err := parseBody(c, &req); err != nil {
		return utils.Error(c, err)
	}
	projects, err := h.Projects.Search(c.Context(), &req)
	if err != nil {
		return utils.Error(c, err)
	}
	return utils.Success(c, "Projects retrieved successfully",
		fiber.Map{"projects": projects})
}

// ProjectTickets handles GET /api/projects/:project_id/tickets
// @Summary List the tickets belonging to a project
// @Tags Projects
// @Produce json
// @Param project_id path string true "Project ID"
// @Success 200 {object} utils.Envelope
// @Failure 404 {object} utils.Envelope
// @Router /projects/{project_id}/tickets [get]
func (h *ProjectHandler) ProjectTickets(c *fiber.Ctx) error {
	projectID := c.Params("project_id")
	if _, err := h.Projects.Get(c.Context(), projectID); err != nil {
		return utils.Error(c, err)
	}
	tickets, err := h.Tickets.ByProject(c.Context(), projectID)
	if err != nil {
		return utils.Error(c, err)
	}
	return utils.Success(c,
		fmt.Sprintf("Tickets for project '%s' retrieved successfully", projectID),
		fiber.Map{"tickets": tickets})
}

// AddMember handles PUT /api/projects/:project_id/members/:user_id
// @Summary Add a member to a project
// @Tags Projects
// @Produce json
// @Param project_id path string true "Project ID"
// @Param user_id path string true "Username"
// @Success 200 {object} utils.Envelope
// @Failure 424 {object} utils.Envelope
// @Router /projects/{project_id}/members/{user_id} [put]
func (h *ProjectHandler) AddMember(c *fiber.Ctx) error {
	projectID := c.Params("project_id")
	userID := c.Params("user_id")
	project, err := h.Projects.AddMember(c.Context(), projectID, userID)
	if err != nil {
		return utils.Error(c, err)
	}
	return utils.Success(c,
		fmt.Sprintf("User with id '%s' added to project '%s'", userID, projectID),
		fiber.Map{"project": project})
}

// RemoveMember handles DELETE /api/projects/:project_id/members/:user_id
// @Summary Remove a member from a project
// @Tags Projects
// @Produce json
// @Param project_id path string true "Project ID"
// @Param user_id path string true "Username"
// @Success 200 {object} utils.Envelope
// @Failure 404 {object} utils.Envelope
// @Router /projects/{project_id}/members/{user_id} [delete]
func (h *ProjectHandler) RemoveMember(c *fiber.Ctx) error {
	projectID := c.Params("project_id")
	userID := c.Params("user_id")
	project, err := h.Projects.RemoveMember(c.Context(), projectID, userID)
	if err != nil {
		return utils.Error(c, err)
	}
	return utils.Success(c,
		fmt.Sprintf("User with id '%s' removed from project '%s'", userID, projectID),
		fiber.Map{"project": project})
}

// IsOwner handles GET /api/projects/:project_id/is-owner/:user_id
// @Summary Check whether a user owns a project
// @Tags Projects
// @Produce json
// @Param project_id path string true "Project ID"
// @Param user_id path string true "Username"
// @Success 200 {object} utils.Envelope
// @Failure 404 {object} utils.Envelope
// @Router /projects/{project_id}/is-owner/{user_id} [get]
func (h *ProjectHandler) IsOwner(c *fiber.Ctx) error {
	projectID := c.Params("project_id")
	userID := c.Params("user_id")
	owner, err := h.Projects.IsOwner(c.Context(), projectID, userID)
	if err != nil {
		return utils.Error(c, err)
	}
	return utils.Success(c, "Ownership check completed successfully",
		fiber.Map{"owner": owner})
}

// IsMember handles GET /api/projects/:project_id/is-member/:user_id
// @Summary Check whether a user is a member of a project
// @Tags Projects
// @Produce json
// @Param project_id path string true "Project ID"
// @Param user_id path string true "Username"
// @Success 200 {object} utils.Envelope
// @Failure 404 {object} utils.Envelope
// @Router /projects/{project_id}/is-member/{user_id} [get]
func (h *ProjectHandler) IsMember(c *fiber.Ctx) error {
	projectID := c.Params("project_id")
	userID := c.Params("user_id")
	member, err := h.Projects.IsMember(c.Context(), projectID, userID)
	if err != nil {
		return utils.Error(c, err)
	}
	return utils.Success(c, "Membership check completed successfully",
		fiber.Map{"member": member})
}
