package server

import (
	"collectorhub/internal/middleware"
	"collectorhub/internal/models"
	"collectorhub/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetComments returns the post's comment tree (public)
func (s *Server) GetComments(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	tree, err := s.commentService.GetCommentTree(c.UserContext(), postID, middleware.UserID(c))
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(tree)
}

// CreateComment creates a comment or reply on a post (protected)
func (s *Server) CreateComment(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var req struct {
		Content  string `json:"content"`
		ParentID *uint  `json:"parent_id"`
	}
	if err := bindJSON(c, &req); err != nil {
		return nil
	}

	node, err := s.commentService.CreateComment(c.UserContext(), service.CreateCommentInput{
		UserID:   middleware.UserID(c),
		PostID:   postID,
		ParentID: req.ParentID,
		Content:  req.Content,
	})
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(node)
}

// UpdateComment edits a comment (author only)
func (s *Server) UpdateComment(c *fiber.Ctx) error {
	commentID, err := s.parseID(c, "commentId")
	if err != nil {
		return nil
	}

	var req struct {
		Content string `json:"content"`
	}
	if err := bindJSON(c, &req); err != nil {
		return nil
	}

	updated, err := s.commentService.UpdateComment(c.UserContext(), service.UpdateCommentInput{
		UserID:    middleware.UserID(c),
		CommentID: commentID,
		Content:   req.Content,
	})
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(updated)
}

// DeleteComment removes a comment and its replies (author or admin)
func (s *Server) DeleteComment(c *fiber.Ctx) error {
	commentID, err := s.parseID(c, "commentId")
	if err != nil {
		return nil
	}

	deleted, err := s.commentService.DeleteComment(c.UserContext(), service.DeleteCommentInput{
		UserID:    middleware.UserID(c),
		CommentID: commentID,
	})
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(fiber.Map{"deleted_count": deleted})
}
