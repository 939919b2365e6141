package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/procurekit/procurement-service/internal/api/dto"
	"github.com/procurekit/procurement-service/internal/service"
	apperrors "github.com/procurekit/procurement-service/pkg/util/errorutil"
)

// CommentsHandler serves the discussion thread of a ticket.
type CommentsHandler struct {
	comments *service.CommentService
}

// NewCommentsHandler constructs handler.
func NewCommentsHandler(comments *service.CommentService) *CommentsHandler {
	return &CommentsHandler{comments: comments}
}

// ListComments GET /tickets/:id/comments.
func (h *CommentsHandler) ListComments(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	comments, err := h.comments.ListComments(c.UserContext(), principal.User, c.Params("id"))
	if err != nil {
		return err
	}
	items := make([]dto.CommentResponse, 0, len(comments))
	for i := range comments {
		items = append(items, commentResponse(&comments[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// AddComment POST /tickets/:id/comments.
func (h *CommentsHandler) AddComment(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	var req dto.CreateCommentRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(&req); err != nil {
		return err
	}
	comment, err := h.comments.AddComment(c.UserContext(), principal.User, c.Params("id"), req.Body)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": commentResponse(comment)})
}

// MentionUsers GET /tickets/:id/mention-users.
func (h *CommentsHandler) MentionUsers(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	users, err := h.comments.MentionCandidates(c.UserContext(), principal.User, c.Params("id"))
	if err != nil {
		return err
	}
	items := make([]fiber.Map, 0, len(users))
	for _, u := range users {
		items = append(items, fiber.Map{"id": u.ID, "email": u.Email, "name": u.DisplayName()})
	}
	return c.JSON(fiber.Map{"data": items})
}
