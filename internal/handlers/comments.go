// comments.go
//
// HTTP facade for comment operations.

package handlers

import (
	"fmt"

	"github.com/gofiber/fiber/v2"

	"github.com/taskpilot/taskpilot/internal/services"
	"github.com/taskpilot/taskpilot/internal/utils"
)

// CommentHandler handles comment routes
type CommentHandler struct {
	Comments *services.CommentService
}

// GetComment handles GET /api/comments/:comment_id
// @Summary Get a comment by id
// @Tags Comments
// @Produce json
// @Param comment_id path string true "Comment ID"
// @Success 200 {object} utils.Envelope
// @Failure 404 {object} utils.Envelope
// @Router /comments/{comment_id} [get]
func (h *CommentHandler) GetComment(c *fiber.Ctx) error {
	commentID := c.Params("comment_id")
	comment, err := h.Comments.Get(c.Context(), commentID)
	if err != nil {
		return utils.Error(c, err)
	}
	return utils.Success(c,
		fmt.Sprintf("Comment with id '%s' retrieved successfully", comment.CommentID),
		fiber.Map{"comment": comment})
}

// CreateComment handles POST /api/comments
// @Summary Create a comment on a ticket
// @Tags Comments
// @Accept json
// @Produce json
// @Param request body services.CreateCommentRequest true "Comment"
// @Success 200 {object} utils.Envelope
// @Failure 424 {object} utils.Envelope
// @Router /comments [post]
func (h *CommentHandler) CreateComment(c *fiber.Ctx) error {
	var req services.CreateCommentRequest
	if err := parseBody(c, &req); err != nil {
		return utils.Error(c, err)
	}
	comment, err := h.Comments.Create(c.Context(), &req)
	if err != nil {
		return utils.Error(c, err)
	}
	return utils.Success(c,
		fmt.Sprintf("Comment with id '%s' created successfully", comment.CommentID),
		fiber.Map{"comment": comment})
}

// DeleteComment handles DELETE /api/comments/:comment_id
// @Summary Delete a comment
// @Tags Comments
// @Produce json
// @Param comment_id path string true "Comment ID"
// @Success 200 {object} utils.Envelope
// @Router /comments/{comment_id} [delete]
func (h *CommentHandler) DeleteComment(c *fiber.Ctx) error {
	commentID := c.Params("comment_id")
	if err := h.Comments.Delete(c.Context(), commentID); err != nil {
		return utils.Error(c, err)
	}
	return utils.Success(c,
		fmt.Sprintf("Comment with id '%s' deleted successfully", commentID),
		nil)
}

// ListComments handles GET /api/comments
// @Summary List all comments
// @Tags Comments
// @Produce json
// @Success 200 {object} utils.Envelope
// @Router /comments [get]
func (h *CommentHandler) ListComments(c *fiber.Ctx) error {
	comments, err := h.Comments.List(c.Context())
	if err != nil {
		return utils.Error(c, err)
	}
	return utils.Success(c, "All comments retrieved successfully",
		fiber.Map{"comments": comments})
}

// SearchComments handles POST /api/comments/search
// @Summary Search comments
// @Tags Comments
// @Accept json
// @Produce json
// @Param request body services.SearchCommentsRequest true "Filters"
// @Success 200 {object} utils.Envelope
// @Router /comments/search [post]
func (h *CommentHandler) SearchComments(c *fiber.Ctx) error {
	var req services.SearchCommentsRequest
	if err := parseBody(c, &req); err != nil {
		return utils.Error(c, err)
	}
	comments, err := h.Comments.Search(c.Context(), &req)
	if err != nil {
		return utils.Error(c, err)
	}
	return utils.Success(c, "Comments retrieved successfully",
		fiber.Map{"comments": comments})
}

// IsOwner handles GET /api/comments/:comment_id/is-owner/:user_id
// @Summary Check whether a user owns a comment
// @Tags Comments
// @Produce json
// @Param comment_id path string true "Comment ID"
// @Param user_id path string true "Username"
// @Success 200 {object} utils.Envelope
// @Failure 404 {object} utils.Envelope
// @Router /comments/{comment_id}/is-owner/{user_id} [get]
func (h *CommentHandler) IsOwner(c *fiber.Ctx) error {
	commentID := c.Params("comment_id")
	userID := c.Params("user_id")
	owner, err := h.Comments.IsOwner(c.Context(), commentID, userID)
	if err != nil {
		return utils.Error(c, err)
	}
	return utils.Success(c, "Ownership check completed successfully",
		fiber.Map{"owner": owner})
}
