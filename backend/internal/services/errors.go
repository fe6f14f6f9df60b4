package services

import (
	"errors"
	"log"

	"hrmspro/backend/internal/apperr"
	"hrmspro/backend/internal/repositories"
)

// storeErr translates a repository failure into the error taxonomy. what
// names the entity for NOT_FOUND and CONFLICT messages.
func storeErr(err error, what string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repositories.ErrNotFound):
		return apperr.NotFound(what)
	case errors.Is(err, repositories.ErrDuplicate):
		return apperr.Conflict(apperr.CodeDuplicate, what+" already exists")
	}
	if _, ok := apperr.As(err); ok {
		return err
	}
	log.Printf("❌ %s storage failure: %v", what, err)
	return apperr.Upstream("storage operation failed", err)
}

func fileErr(err error) error {
	log.Printf("❌ file upload failed: %v", err)
	return apperr.Upstream("file upload failed", err)
}
