// routes.go
//
// Single route table shared by the server and the handler tests, so the
// tested surface cannot drift from the served one.

package handlers

import (
	"github.com/gofiber/fiber/v2"
)

// Handlers groups the per-entity handlers behind one route table.
type Handlers struct {
	Users    *UserHandler
	Projects *ProjectHandler
	Tickets  *TicketHandler
	Comments *CommentHandler
	Chat     *ChatHandler
}

// Register mounts every API route on the router.
func (h *Handlers) Register(api fiber.Router) {
	// User routes
	api.Get("/users", h.Users.ListUsers)
	api.Post("/users", h.Users.CreateUser)
	api.Post("/users/search", h.Users.SearchUsers)
	api.Post("/users/login", h.Users.Login)
	api.Get("/users/:user_id", h.Users.GetUser)
	api.Put("/users/:user_id", h.Users.UpdateUser)
	api.Delete("/users/:user_id", h.Users.DeleteUser)
	api.Get("/users/:user_id/tickets", h.Tickets.UserTickets)
	api.Put("/users/:user_id/favorite-tickets/:ticket_id", h.Users.FavoriteTicket)
	api.Delete("/users/:user_id/favorite-tickets/:ticket_id", h.Users.UnfavoriteTicket)

	// Project routes
	api.Get("/projects", h.Projects.ListProjects)
	api.Post("/projects", h.Projects.CreateProject)
	api.Post("/projects/search", h.Projects.SearchProjects)
	api.Get("/projects/:project_id", h.Projects.GetProject)
	api.Put("/projects/:project_id", h.Projects.UpdateProject)
	api.Delete("/projects/:project_id", h.Projects.DeleteProject)
	api.Get("/projects/:project_id/tickets", h.Projects.ProjectTickets)
	api.Put("/projects/:project_id/members/:user_id", h.Projects.AddMember)
	api.Delete("/projects/:project_id/members/:user_id", h.Projects.RemoveMember)
	api.Get("/projects/:project_id/is-owner/:user_id", h.Projects.IsOwner)
	api.Get("/projects/:project_id/is-member/:user_id", h.Projects.IsMember)

	// Ticket routes
	api.Get("/tickets", h.Tickets.ListTickets)
	api.Post("/tickets", h.Tickets.CreateTicket)
	api.Post("/tickets/search", h.Tickets.SearchTickets)
	api.Get("/tickets/:ticket_id", h.Tickets.GetTicket)
	api.Put("/tickets/:ticket_id", h.Tickets.UpdateTicket)
	api.Delete("/tickets/:ticket_id", h.Tickets.DeleteTicket)
	api.Put("/tickets/:ticket_id/status", h.Tickets.ChangeStatus)
	api.Put("/tickets/:ticket_id/assignee/:user_id", h.Tickets.Assign)
	api.Delete("/tickets/:ticket_id/assignee", h.Tickets.Unassign)
	api.Get("/tickets/:ticket_id/children", h.Tickets.Children)
	api.Get("/tickets/:ticket_id/comments", h.Tickets.TicketComments)
	api.Get("/tickets/:ticket_id/is-owner/:user_id", h.Tickets.IsOwner)

	// Comment routes
	api.Get("/comments", h.Comments.ListComments)
	api.Post("/comments", h.Comments.CreateComment)
	api.Post("/comments/search", h.Comments.SearchComments)
	api.Get("/comments/:comment_id", h.Comments.GetComment)
	api.Delete("/comments/:comment_id", h.Comments.DeleteComment)
	api.Get("/comments/:comment_id/is-owner/:user_id", h.Comments.IsOwner)

	// Assistant route
	api.Post("/chat", h.Chat.Complete)
}
