// chat.go
//
// HTTP facade for the assistant pass-through.

package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/taskpilot/taskpilot/internal/services"
	"github.com/taskpilot/taskpilot/internal/utils"
)

// ChatHandler handles the assistant route
type ChatHandler struct {
	Chat *services.ChatService
}

// Complete handles POST /api/chat
// @Summary Send a prompt to the assistant
// @Tags Chat
// @Accept json
// @Produce json
// @Param request body services.ChatRequest true "Prompt and history"
// @Success 200 {object} utils.Envelope
// @Failure 424 {object} utils.Envelope
// @Router /chat [post]
func (h *ChatHandler) Complete(c *fiber.Ctx) error {
	var req services.ChatRequest
	if err := parseBody(c, &req); err != nil {
		return utils.Error(c, err)
	}
	reply, history, err := h.Chat.Complete(c.Context(), &req)
	if err != nil {
		return utils.Error(c, err)
	}
	return utils.Success(c, "Response generated successfully", fiber.Map{
		"response": reply,
		"history":  history,
	})
}
