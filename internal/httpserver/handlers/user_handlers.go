package handlers

import (
	"net/http"

	"erpcore/internal/auth"
	"erpcore/internal/services/address"
	"erpcore/internal/services/user"
	"erpcore/internal/validation"

	"go.uber.org/zap"
)

func ListUsers(users *user.Directory, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, err := pageParams(r)
		if err != nil {
			writeError(w, r, lg, err)
			return
		}
		res, err := users.List(r.Context(), page)
		if err != nil {
			writeError(w, r, lg, err)
			return
		}
		respondJSON(w, http.StatusOK, "users retrieved", res)
	}
}

func GetUser(users *user.Directory, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuidParam(r, "id")
		if err != nil {
			writeError(w, r, lg, err)
			return
		}
		u, err := users.Get(r.Context(), id)
		if err != nil {
			writeError(w, r, lg, err)
			return
		}
		respondJSON(w, http.StatusOK, "user retrieved", u)
	}
}

func CreateUser(users *user.Directory, v *validation.Validator, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createUserRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, r, lg, err)
			return
		}
		req.trim()
		if err := v.Struct(req); err != nil {
			writeError(w, r, lg, err)
			return
		}
		u, err := users.Create(r.Context(), req.input())
		if err != nil {
			writeError(w, r, lg, err)
			return
		}
		respondJSON(w, http.StatusCreated, "user created", u)
	}
}

func UpdateUser(users *user.Directory, v *validation.Validator, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuidParam(r, "id")
		if err != nil {
			writeError(w, r, lg, err)
			return
		}
		if err := selfOrAdmin(r, id); err != nil {
			writeError(w, r, lg, err)
			return
		}
		var req updateUserRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, r, lg, err)
			return
		}
		req.trim()
		if err := v.Struct(req); err != nil {
			writeError(w, r, lg, err)
			return
		}
		u, err := users.Update(r.Context(), id, req.input())
		if err != nil {
			writeError(w, r, lg, err)
			return
		}
		respondJSON(w, http.StatusOK, "user updated", u)
	}
}

// DeleteUser hard-deletes a user. The router restricts it to administrators.
func DeleteUser(users *user.Directory, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuidParam(r, "id")
		if err != nil {
			writeError(w, r, lg, err)
			return
		}
		caller, _ := auth.SubjectID(r.Context())
		if err := users.Delete(r.Context(), id, caller); err != nil {
			writeError(w, r, lg, err)
			return
		}
		respondJSON(w, http.StatusOK, "user deleted", nil)
	}
}

func DeactivateUser(users *user.Directory, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuidParam(r, "id")
		if err != nil {
			writeError(w, r, lg, err)
			return
		}
		if err := selfOrAdmin(r, id); err != nil {
			writeError(w, r, lg, err)
			return
		}
		u, err := users.Deactivate(r.Context(), id)
		if err != nil {
			writeError(w, r, lg, err)
			return
		}
		respondJSON(w, http.StatusOK, "user deactivated", u)
	}
}

func ActivateUser(users *user.Directory, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuidParam(r, "id")
		if err != nil {
			writeError(w, r, lg, err)
			return
		}
		if err := selfOrAdmin(r, id); err != nil {
			writeError(w, r, lg, err)
			return
		}
		u, err := users.Activate(r.Context(), id)
		if err != nil {
			writeError(w, r, lg, err)
			return
		}
		respondJSON(w, http.StatusOK, "user activated", u)
	}
}

// UserAddresses lists a user's addresses, primary first. param names the
// URL parameter carrying the user id.
func UserAddresses(addresses *address.Service, param string, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuidParam(r, param)
		if err != nil {
			writeError(w, r, lg, err)
			return
		}
		page, err := pageParams(r)
		if err != nil {
			writeError(w, r, lg, err)
			return
		}
		res, err := addresses.ListByUser(r.Context(), id, page)
		if err != nil {
			writeError(w, r, lg, err)
			return
		}
		respondJSON(w, http.StatusOK, "addresses retrieved", res)
	}
}
