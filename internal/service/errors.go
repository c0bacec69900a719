// Package service holds the business rules behind the HTTP handlers.
package service

import (
	"errors"

	"collectorhub/internal/models"

	"gorm.io/gorm"
)

// storeError converts a repository error into an AppError. Errors that are
// already typed pass through unchanged.
func storeError(err error, resource string, id any) error {
	if err == nil {
		return nil
	}
	var appErr *models.AppError
	if errors.As(err, &appErr) {
		return err
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.NewNotFoundError(resource, id)
	}
	return models.NewUnavailableError(err)
}

