package server

import (
	"collectorhub/internal/middleware"
	"collectorhub/internal/models"
	"collectorhub/internal/service"

	"github.com/gofiber/fiber/v2"
)

type voteRequest struct {
	PostID    *uint `json:"post_id"`
	CommentID *uint `json:"comment_id"`
	Value     int   `json:"value"`
}

// CastVote records or changes the caller's vote on a post or comment (protected)
func (s *Server) CastVote(c *fiber.Ctx) error {
	var req voteRequest
	if err := bindJSON(c, &req); err != nil {
		return nil
	}

	result, err := s.voteService.CastVote(c.UserContext(), service.CastVoteInput{
		UserID:    middleware.UserID(c),
		PostID:    req.PostID,
		CommentID: req.CommentID,
		Value:     req.Value,
	})
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(result)
}

// RemoveVote withdraws the caller's vote. Removing a vote that does not exist
// succeeds and reports the current counts (protected)
func (s *Server) RemoveVote(c *fiber.Ctx) error {
	var req voteRequest
	if err := bindJSON(c, &req); err != nil {
		return nil
	}

	result, err := s.voteService.RemoveVote(c.UserContext(), service.RemoveVoteInput{
		UserID:    middleware.UserID(c),
		PostID:    req.PostID,
		CommentID: req.CommentID,
	})
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(result)
}
