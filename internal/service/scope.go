package service

import (
	"github.com/evalio/evalio-api/internal/models"
	appErrors "github.com/evalio/evalio-api/pkg/errors"
)

// resolveSchoolID decides which school a request operates on. Directors are
// pinned to their own school; admins pick one explicitly.
func resolveSchoolID(actor *models.JWTClaims, requested *string) (string, error) {
	if actor == nil {
		return "", appErrors.ErrUnauthorized
	}
	if actor.Role == models.RoleAdmin {
		if requested == nil || *requested == "" {
			return "", appErrors.Clone(appErrors.ErrValidation, "school_id is required")
		}
		return *requested, nil
	}
	if actor.SchoolID == nil || *actor.SchoolID == "" {
		return "", appErrors.Clone(appErrors.ErrForbidden, "account is not bound to a school")
	}
	if requested != nil && *requested != "" && *requested != *actor.SchoolID {
		return "", appErrors.Clone(appErrors.ErrForbidden, "no access to this school")
	}
	return *actor.SchoolID, nil
}

// ensureSchoolScope rejects directors reaching into another school. The
// resource exists, so the failure is a 403, not a 404.
func ensureSchoolScope(actor *models.JWTClaims, schoolID string) error {
	if actor == nil {
		return appErrors.ErrUnauthorized
	}
	if actor.Role == models.RoleAdmin {
		return nil
	}
	if actor.SchoolID == nil || *actor.SchoolID != schoolID {
		return appErrors.Clone(appErrors.ErrForbidden, "no access to this school")
	}
	return nil
}
