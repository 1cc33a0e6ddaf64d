// users.go
//
// HTTP facade for user operations.

package handlers

import (
	"fmt"

	"github.com/gofiber/fiber/v2"

	"github.com/taskpilot/taskpilot/internal/services"
	"github.com/taskpilot/taskpilot/internal/utils"
)

// UserHandler handles user routes
type UserHandler struct {
	Users *services.UserService
}

// GetUser handles GET /api/users/:user_id
// @Summary Get a user by id
// @Tags Users
// @Produce json
// @Param user_id path string true "Username"
// @Success 200 {object} utils.Envelope
// @Failure 404 {object} utils.Envelope
// @Router /users/{user_id} [get]
func (h *UserHandler) GetUser(c *fiber.Ctx) error {
	userID := c.Params("user_id")
	user, err := h.Users.Get(c.Context(), userID)
	if err != nil {
		return utils.Error(c, err)
	}
	return utils.Success(c,
		fmt.Sprintf("User with id '%s' retrieved successfully", user.Username),
		fiber.Map{"user": user})
}

// CreateUser handles POST /api/users
// @Summary Register a user
// @Tags Users
// @Accept json
// @Produce json
// @Param request body services.CreateUserRequest true "User"
// @Success 200 {object} utils.Envelope
// @Failure 409 {object} utils.Envelope
// @Router /users [post]
func (h *UserHandler) CreateUser(c *fiber.Ctx) error {
	var req services.CreateUserRequest
	if err := parseBody(c, &req); err != nil {
		return utils.Error(c, err)
	}
	user, err := h.Users.Create(c.Context(), &req)
	if err != nil {
		return utils.Error(c, err)
	}
	return utils.Success(c,
		fmt.Sprintf("User with id '%s' created successfully", user.Username),
		fiber.Map{"user": user})
}

// UpdateUser handles PUT /api/users/:user_id
// @Summary Update a user
// @Tags Users
// @Accept json
// @Produce json
// @Param user_id path string true "Username"
// @Param request body services.UpdateUserRequest true "User"
// @Success 200 {object} utils.Envelope
// @Failure 404 {object} utils.Envelope
// @Router /users/{user_id} [put]
func (h *UserHandler) UpdateUser(c *fiber.Ctx) error {
	userID := c.Params("user_id")
	var req services.UpdateUserRequest
	if err := parseBody(c, &req); err != nil {
		return utils.Error(c, err)
	}
	user, err := h.Users.Update(c.Context(), userID, &req)
	if err != nil {
		return utils.Error(c, err)
	}
	return utils.Success(c,
		fmt.Sprintf("User with id '%s' updated successfully", user.Username),
		fiber.Map{"user": user})
}

// DeleteUser handles DELETE /api/users/:user_id
// @Summary Delete a user
// @Tags Users
// @Produce json
// @Param user_id path string true "Username"
// @Success 200 {object} utils.Envelope
// @Failure 404 {object} utils.Envelope
// @Router /users/{user_id} [delete]
func (h *UserHandler) DeleteUser(c *fiber.Ctx) error {
	userID := c.Params("user_id")
	if err := h.Users.Delete(c.Context(), userID); err != nil {
		return utils.Error(c, err)
	}
	return utils.Success(c,
		fmt.Sprintf("User with id '%s' deleted successfully", userID),
		nil)
}

// ListUsers handles GET /api/users
// @Summary List all users
// @Tags Users
// @Produce json
// @Success 200 {object} utils.Envelope
// @Router /users [get]
func (h *UserHandler) ListUsers(c *fiber.Ctx) error {
	users, err := h.Users.List(c.Context())
	if err != nil {
		return utils.Error(c, err)
	}
	return utils.Success(c, "All users retrieved successfully",
		fiber.Map{"users": users})
}

// SearchUsers handles POST /api/users/search
// @Summary Search users
// @Tags Users
// @Accept json
// @Produce json
// @Param request body services.SearchUsersRequest true "Filters"
// @Success 200 {object} utils.Envelope
// @Router /users/search [post]
func (h *UserHandler) SearchUsers(c *fiber.Ctx) error {
	var req services.SearchUsersRequest
	if err := parseBody(c, &req); err != nil {
		return utils.Error(c, err)
	}
	users, err := h.Users.Search(c.Context(), &req)
	if err != nil {
		return utils.Error(c, err)
	}
	return utils.Success(c, "Users retrieved successfully",
		fiber.Map{"users": users})
}

// Login handles POST /api/users/login
// @Summary Verify login credentials
// @Tags Users
// @Accept json
// @Produce json
// @Param request body services.LoginRequest true "Credentials"
// @Success 200 {object} utils.Envelope
// @Failure 401 {object} utils.Envelope
// @Router /users/login [post]
func (h *UserHandler) Login(c *fiber.Ctx) error {
	var req services.LoginRequest
	if err := parseBody(c, &req); err != nil {
		return utils.Error(c, err)
	}
	user, err := h.Users.Login(c.Context(), &req)
	if err != nil {
		return utils.Error(c, err)
	}
	return utils.Success(c,
		fmt.Sprintf("User with id '%s' logged in successfully", user.Username),
		fiber.Map{"user": user})
}

// FavoriteTicket handles PUT /api/users/:user_id/favorite-tickets/:ticket_id
// @Summary Add a ticket to a user's favorites
// @Tags Users
// @Produce json
// @Param user_id path string true "Username"
// @Param ticket_id path string true "Ticket ID"
// @Success 200 {object} utils.Envelope
// @Failure 424 {object} utils.Envelope
// @Router /users/{user_id}/favorite-tickets/{ticket_id} [put]
func (h *UserHandler) FavoriteTicket(c *fiber.Ctx) error {
	userID := c.Params("user_id")
	ticketID := c.Params("ticket_id")
	user, err := h.Users.FavoriteTicket(c.Context(), userID, ticketID)
	if err != nil {
		return utils.Error(c, err)
	}
	return utils.Success(c,
		fmt.Sprintf("Ticket with id '%s' added to favorites", ticketID),
		fiber.Map{"user": user})
}

// UnfavoriteTicket handles DELETE /api/users/:user_id/favorite-tickets/:ticket_id
// @Summary Remove a ticket from a user's favorites
// @Tags Users
// @Produce json
// @Param user_id path string true "Username"
// @Param ticket_id path string true "Ticket ID"
// @Success 200 {object} utils.Envelope
// @Failure 404 {object} utils.Envelope
// @Router /users/{user_id}/favorite-tickets/{ticket_id} [delete]
func (h *UserHandler) UnfavoriteTicket(c *fiber.Ctx) error {
	userID := c.Params("user_id")
	ticketID := c.Params("ticket_id")
	user, err := h.Users.UnfavoriteTicket(c.Context(), userID, ticketID)
	if err != nil {
		return utils.Error(c, err)
	}
	return utils.Success(c,
		fmt.Sprintf("Ticket with id '%s' removed from favorites", ticketID),
		fiber.Map{"user": user})
}
