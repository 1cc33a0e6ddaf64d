// tickets.go
//
// HTTP facade for ticket operations, including status, assignment,
// hierarchy, and ownership queries.

package handlers

import (
	"fmt"

	"github.com/gofiber/fiber/v2"

	"github.com/taskpilot/taskpilot/internal/services"
	"github.com/taskpilot/taskpilot/internal/utils"
)

// TicketHandler handles ticket routes
type TicketHandler struct {
	Tickets  *services.TicketService
	Comments *services.CommentService
}

// GetTicket handles GET /api/tickets/:ticket_id
// @Summary Get a ticket by id
// @Tags Tickets
// @Produce json
// @Param ticket_id path string true "Ticket ID"
// @Success 200 {object} utils.Envelope
// @Failure 404 {object} utils.Envelope
// @Router /tickets/{ticket_id} [get]
func (h *TicketHandler) GetTicket(c *fiber.Ctx) error {
	ticketID := c.Params("ticket_id")
	ticket, err := h.Tickets.Get(c.Context(), ticketID)
	if err != nil {
		return utils.Error(c, err)
	}
	return utils.Success(c,
		fmt.Sprintf("Ticket with id '%s' retrieved successfully", ticket.TicketID),
		fiber.Map{"ticket": ticket})
}

// CreateTicket handles POST /api/tickets
// @Summary Create a ticket
// @Tags Tickets
// @Accept json
// @Produce json
// @Param request body services.CreateTicketRequest true "Ticket"
// @Success 200 {object} utils.Envelope
// @Failure 424 {object} utils.Envelope
// @Router /tickets [post]
func (h *TicketHandler) CreateTicket(c *fiber.Ctx) error {
	var req services.CreateTicketRequest
	if err := parseBody(c, &req); err != nil {
		return utils.Error(c, err)
	}
	ticket, err := h.Tickets.Create(c.Context(), &req)
	if err != nil {
		return utils.Error(c, err)
	}
	return utils.Success(c,
		fmt.Sprintf("Ticket with id '%s' created successfully", ticket.TicketID),
		fiber.Map{"ticket": ticket})
}

// UpdateTicket handles PUT /api/tickets/:ticket_id
// @Summary Update a ticket
// @Tags Tickets
// @Accept json
// @Produce json
// @Param ticket_id path string true "Ticket ID"
// @Param request body services.UpdateTicketRequest true "Ticket"
// @Success 200 {object} utils.Envelope
// @Failure 404 {object} utils.Envelope
// @Router /tickets/{ticket_id} [put]
func (h *TicketHandler) UpdateTicket(c *fiber.Ctx) error {
	ticketID := c.Params("ticket_id")
	var req services.UpdateTicketRequest
	if err := parseBody(c, &req); err != nil {
		return utils.Error(c, err)
	}
	ticket, err := h.Tickets.Update(c.Context(), ticketID, &req)
	if err != nil {
		return utils.Error(c, err)
	}
	return utils.Success(c,
		fmt.Sprintf("Ticket with id '%s' updated successfully", ticket.TicketID),
		fiber.Map{"ticket": ticket})
}

// DeleteTicket handles DELETE /api/tickets/:ticket_id
// @Summary Delete a ticket, detaching children and removing comments
// @Tags Tickets
// @Produce json
// @Param ticket_id path string true "Ticket ID"
// @Success 200 {object} utils.Envelope
// @Failure 404 {object} utils.Envelope
// @Router /tickets/{ticket_id} [delete]
func (h *TicketHandler) DeleteTicket(c *fiber.Ctx) error {
	ticketID := c.Params("ticket_id")
	if err := h.Tickets.Delete(c.Context(), ticketID); err != nil {
		return utils.Error(c, err)
	}
	return utils.Success(c,
		fmt.Sprintf("Ticket with id '%s' deleted successfully", ticketID),
		nil)
}

// ListTickets handles GET /api/tickets
// @Summary List all tickets
// @Tags Tickets
// @Produce json
// @Success 200 {object} utils.Envelope
// @Router /tickets [get]
func (h *TicketHandler) ListTickets(c *fiber.Ctx) error {
	tickets, err := h.Tickets.List(c.Context())
	if err != nil {
		return utils.Error(c, err)
	}
	return utils.Success(c, "All tickets retrieved successfully",
		fiber.Map{"tickets": tickets})
}

// SearchTickets handles POST /api/tickets/search
// @Summary Search tickets
// @Tags Tickets
// @Accept json
// @Produce json
// @Param request body services.SearchTicketsRequest true "Filters"
// @Success 200 {object} utils.Envelope
// @Router /tickets/search [post]
func (h *TicketHandler) SearchTickets(c *fiber.Ctx) error {
	var req services.SearchTicketsRequest
	if err := parseBody(c, &req); err != nil {
		return utils.Error(c, err)
	}
	tickets, err := h.Tickets.Search(c.Context(), &req)
	if err != nil {
		return utils.Error(c, err)
	}
	return utils.Success(c, "Tickets retrieved successfully",
		fiber.Map{"tickets": tickets})
}

// ChangeStatus handles PUT /api/tickets/:ticket_id/status
// @Summary Change a ticket's status
// @Tags Tickets
// @Accept json
// @Produce json
// @Param ticket_id path string true "Ticket ID"
// @Param request body services.ChangeTicketStatusRequest true "Status"
// @Success 200 {object} utils.Envelope
// @Failure 404 {object} utils.Envelope
// @Router /tickets/{ticket_id}/status [put]
func (h *TicketHandler) ChangeStatus(c *fiber.Ctx) error {
	ticketID := c.Params("ticket_id")
	var req services.ChangeTicketStatusRequest
	if err := parseBody(c, &req); err != nil {
		return utils.Error(c, err)
	}
	ticket, err := h.Tickets.ChangeStatus(c.Context(), ticketID, req.Status)
	if err != nil {
		return utils.Error(c, err)
	}
	return utils.Success(c,
		fmt.Sprintf("Ticket with id '%s' moved to '%s'", ticket.TicketID, ticket.Status),
		fiber.Map{"ticket": ticket})
}

// Assign handles PUT /api/tickets/:ticket_id/assignee/:user_id
// @Summary Assign a ticket to a user
// @Tags Tickets
// @Produce json
// @Param ticket_id path string true "Ticket ID"
// @Param user_id path string true "Username"
// @Success 200 {object} utils.Envelope
// @Failure 424 {object} utils.Envelope
// @Router /tickets/{ticket_id}/assignee/{user_id} [put]
func (h *TicketHandler) Assign(c *fiber.Ctx) error {
	ticketID := c.Params("ticket_id")
	userID := c.Params("user_id")
	ticket, err := h.Tickets.Assign(c.Context(), ticketID, userID)
	if err != nil {
		return utils.Error(c, err)
	}
	return utils.Success(c,
		fmt.Sprintf("Ticket with id '%s' assigned to '%s'", ticket.TicketID, userID),
		fiber.Map{"ticket": ticket})
}

// Unassign handles DELETE /api/tickets/:ticket_id/assignee
// @Summary Clear a ticket's assignee
// @Tags Tickets
// @Produce json
// @Param ticket_id path string true "Ticket ID"
// @Success 200 {object} utils.Envelope
// @Failure 404 {object} utils.Envelope
// @Router /tickets/{ticket_id}/assignee [delete]
func (h *TicketHandler) Unassign(c *fiber.Ctx) error {
	ticketID := c.Params("ticket_id")
	ticket, err := h.Tickets.Unassign(c.Context(), ticketID)
	if err != nil {
		return utils.Error(c, err)
	}
	return utils.Success(c,
		fmt.Sprintf("Ticket with id '%s' unassigned", ticket.TicketID),
		fiber.Map{"ticket": ticket})
}

// Children handles GET /api/tickets/:ticket_id/children
// @Summary List a ticket's direct children
// @Tags Tickets
// @Produce json
// @Param ticket_id path string true "Ticket ID"
// @Success 200 {object} utils.Envelope
// @Failure 404 {object} utils.Envelope
// @Router /tickets/{ticket_id}/children [get]
func (h *TicketHandler) Children(c *fiber.Ctx) error {
	ticketID := c.Params("ticket_id")
	tickets, err := h.Tickets.Children(c.Context(), ticketID)
	if err != nil {
		return utils.Error(c, err)
	}
	return utils.Success(c,
		fmt.Sprintf("Children of ticket '%s' retrieved successfully", ticketID),
		fiber.Map{"tickets": tickets})
}

// TicketComments handles GET /api/tickets/:ticket_id/comments
// @Summary List the comments on a ticket
// @Tags Tickets
// @Produce json
// @Param ticket_id path string true "Ticket ID"
// @Success 200 {object} utils.Envelope
// @Failure 404 {object} utils.Envelope
// @Router /tickets/{ticket_id}/comments [get]
func (h *TicketHandler) TicketComments(c *fiber.Ctx) error {
	ticketID := c.Params("ticket_id")
	if _, err := h.Tickets.Get(c.Context(), ticketID); err != nil {
		return utils.Error(c, err)
	}
	comments, err := h.Comments.ByTicket(c.Context(), ticketID)
	if err != nil {
		return utils.Error(c, err)
	}
	return utils.Success(c,
		fmt.Sprintf("Comments for ticket '%s' retrieved successfully", ticketID),
		fiber.Map{"comments": comments})
}

// IsOwner handles GET /api/tickets/:ticket_id/is-owner/:user_id
// @Summary Check whether a user owns a ticket
// @Tags Tickets
// @Produce json
// @Param ticket_id path string true "Ticket ID"
// @Param user_id path string true "Username"
// @Success 200 {object} utils.Envelope
// @Failure 404 {object} utils.Envelope
// @Router /tickets/{ticket_id}/is-owner/{user_id} [get]
func (h *TicketHandler) IsOwner(c *fiber.Ctx) error {
	ticketID := c.Params("ticket_id")
	userID := c.Params("user_id")
	owner, err := h.Tickets.IsOwner(c.Context(), ticketID, userID)
	if err != nil {
		return utils.Error(c, err)
	}
	return utils.Success(c, "Ownership check completed successfully",
		fiber.Map{"owner": owner})
}

// UserTickets handles GET /api/users/:user_id/tickets
// @Summary List the tickets assigned to a user
// @Tags Users
// @Produce json
// @Param user_id path string true "Username"
// @Success 200 {object} utils.Envelope
// @Router /users/{user_id}/tickets [get]
func (h *TicketHandler) UserTickets(c *fiber.Ctx) error {
	userID := c.Params("user_id")
	tickets, err := h.Tickets.ByAssignee(c.Context(), userID)
	if err != nil {
		return utils.Error(c, err)
	}
	return utils.Success(c,
		fmt.Sprintf("Tickets assigned to '%s' retrieved successfully", userID),
		fiber.Map{"tickets": tickets})
}
