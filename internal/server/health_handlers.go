package server

import (
	"context"
	"time"

	"collectorhub/internal/database"

	"github.com/gofiber/fiber/v2"
)

// LivenessCheck reports that the process is serving requests.
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status": "up",
		"time":   time.Now().UTC(),
	})
}

// ReadinessCheck fails when the database is unreachable. Redis is optional:
// the cache and limiter degrade without it, so a missing client is reported
// but does not fail the probe.
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	checks := s.runChecks(c.UserContext())
	status := fiber.StatusOK
	overall := "healthy"
	if checks["database"] != "healthy" || checks["redis"] == "unhealthy" {
		status = fiber.StatusServiceUnavailable
		overall = "unhealthy"
	}
	return c.Status(status).JSON(fiber.Map{
		"status": overall,
		"checks": checks,
		"time":   time.Now().UTC(),
	})
}

// HealthCheck combines liveness and readiness for simple monitors.
func (s *Server) HealthCheck(c *fiber.Ctx) error {
	return s.ReadinessCheck(c)
}

func (s *Server) runChecks(parent context.Context) map[string]string {
	ctx, cancel := context.WithTimeout(parent, 5*time.Second)
	defer cancel()

	checks := map[string]string{"database": "healthy", "redis": "healthy"}
	if s.db == nil || database.Ping(ctx, s.db) != nil {
		checks["database"] = "unhealthy"
	}
	switch {
	case s.redis == nil:
		checks["redis"] = "unavailable"
	case s.redis.Ping(ctx).Err() != nil:
		checks["redis"] = "unhealthy"
	}
	return checks
}
