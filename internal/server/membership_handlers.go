package server

import (
	"context"

	"collectorhub/internal/middleware"
	"collectorhub/internal/models"

	"github.com/gofiber/fiber/v2"
)

// GetCategories lists every category with its interest groups (public)
func (s *Server) GetCategories(c *fiber.Ctx) error {
	categories, err := s.membershipService.ListCategories(c.UserContext())
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(categories)
}

func (s *Server) JoinCategory(c *fiber.Ctx) error {
	return s.changeMembership(c, "category_id", true, s.membershipService.JoinCategory)
}

func (s *Server) LeaveCategory(c *fiber.Ctx) error {
	return s.changeMembership(c, "category_id", false, s.membershipService.LeaveCategory)
}

func (s *Server) JoinGroup(c *fiber.Ctx) error {
	return s.changeMembership(c, "group_id", true, s.membershipService.JoinGroup)
}

func (s *Server) LeaveGroup(c *fiber.Ctx) error {
	return s.changeMembership(c, "group_id", false, s.membershipService.LeaveGroup)
}

func (s *Server) changeMembership(
	c *fiber.Ctx,
	field string,
	member bool,
	apply func(ctx context.Context, userID, id uint) error,
) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := apply(c.UserContext(), middleware.UserID(c), id); err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(fiber.Map{field: id, "is_member": member})
}
