package server

import (
	"collectorhub/internal/middleware"
	"collectorhub/internal/models"
	"collectorhub/internal/service"

	"github.com/gofiber/fiber/v2"
)

// CreatePost creates a new post (protected)
func (s *Server) CreatePost(c *fiber.Ctx) error {
	var req struct {
		CategoryID uint   `json:"category_id"`
		GroupID    *uint  `json:"group_id"`
		PostType   string `json:"post_type"`
		Title      string `json:"title"`
		Content    string `json:"content"`
	}
	if err := bindJSON(c, &req); err != nil {
		return nil
	}

	post, err := s.postService.CreatePost(c.UserContext(), service.CreatePostInput{
		UserID:     middleware.UserID(c),
		CategoryID: req.CategoryID,
		GroupID:    req.GroupID,
		PostType:   req.PostType,
		Title:      req.Title,
		Content:    req.Content,
	})
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(post)
}

// GetPost returns a single post decorated for the caller (public)
func (s *Server) GetPost(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	post, err := s.postService.GetPost(c.UserContext(), postID, middleware.UserID(c))
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(post)
}

// DeletePost deletes a post with its comments, votes and saves (author or admin)
func (s *Server) DeletePost(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	if err := s.postService.DeletePost(c.UserContext(), service.DeletePostInput{
		UserID: middleware.UserID(c),
		PostID: postID,
	}); err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// SavePost bookmarks a post for the caller (protected)
func (s *Server) SavePost(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	if err := s.postService.SavePost(c.UserContext(), middleware.UserID(c), postID); err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(fiber.Map{"post_id": postID, "is_saved": true})
}

// UnsavePost removes the caller's bookmark (protected)
func (s *Server) UnsavePost(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	if err := s.postService.UnsavePost(c.UserContext(), middleware.UserID(c), postID); err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(fiber.Map{"post_id": postID, "is_saved": false})
}
