package server

import (
	"collectorhub/internal/middleware"
	"collectorhub/internal/models"
	"collectorhub/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetFeed returns one page of the ranked feed. Without a category or group
// filter the feed follows the caller's memberships (public)
func (s *Server) GetFeed(c *fiber.Ctx) error {
	categoryID, err := s.parseOptionalID(c, "category_id")
	if err != nil {
		return nil
	}
	groupID, err := s.parseOptionalID(c, "group_id")
	if err != nil {
		return nil
	}

	page, err := s.feedService.GetFeed(c.UserContext(), service.FeedInput{
		ViewerID:   middleware.UserID(c),
		Sort:       c.Query("sort"),
		CategoryID: categoryID,
		GroupID:    groupID,
		PostType:   c.Query("post_type"),
		Cursor:     c.Query("cursor"),
		Limit:      c.QueryInt("limit", 0),
	})
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(page)
}
