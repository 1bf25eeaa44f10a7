package handlers

import (
	"net/http"

	"erpcore/internal/apperrors"
	"erpcore/internal/auth"
	"erpcore/internal/models"
	"erpcore/internal/services/address"

	"github.com/google/uuid"
)

// selfOrAdmin allows a write on userID's data only to that user or an administrator.
func selfOrAdmin(r *http.Request, userID uuid.UUID) error {
	if auth.FromContext(r.Context()).HasRole(models.RoleAdministrator) {
		return nil
	}
	if caller, ok := auth.SubjectID(r.Context()); ok && caller == userID {
		return nil
	}
	return apperrors.Forbidden("you can only change your own account")
}

// addressOwnerGuard loads the address behind the id URL parameter and checks
// that the caller may change it.
func addressOwnerGuard(r *http.Request, addresses *address.Service) (uuid.UUID, error) {
	id, err := uuidParam(r, "id")
	if err != nil {
		return uuid.Nil, err
	}
	a, err := addresses.Get(r.Context(), id)
	if err != nil {
		return uuid.Nil, err
	}
	return id, selfOrAdmin(r, a.UserID)
}
