package handlers

import (
	"net/http"

	"erpcore/internal/services/address"
	"erpcore/internal/validation"

	"go.uber.org/zap"
)

func GetAddress(addresses *address.Service, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuidParam(r, "id")
		if err != nil {
			writeError(w, r, lg, err)
			return
		}
		a, err := addresses.Get(r.Context(), id)
		if err != nil {
			writeError(w, r, lg, err)
			return
		}
		respondJSON(w, http.StatusOK, "address retrieved", a)
	}
}

func CreateAddress(addresses *address.Service, v *validation.Validator, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := uuidParam(r, "userId")
		if err == nil {
			err = selfOrAdmin(r, userID)
		}
		if err != nil {
			writeError(w, r, lg, err)
			return
		}
		var req addressRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, r, lg, err)
			return
		}
		if err := v.Struct(req); err != nil {
			writeError(w, r, lg, err)
			return
		}
		a, err := addresses.Create(r.Context(), userID, req.input())
		if err != nil {
			writeError(w, r, lg, err)
			return
		}
		respondJSON(w, http.StatusCreated, "address created", a)
	}
}

func UpdateAddress(addresses *address.Service, v *validation.Validator, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := addressOwnerGuard(r, addresses)
		if err != nil {
			writeError(w, r, lg, err)
			return
		}
		var req updateAddressRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, r, lg, err)
			return
		}
		if err := v.Struct(req); err != nil {
			writeError(w, r, lg, err)
			return
		}
		a, err := addresses.Update(r.Context(), id, req.patch())
		if err != nil {
			writeError(w, r, lg, err)
			return
		}
		respondJSON(w, http.StatusOK, "address updated", a)
	}
}

func DeleteAddress(addresses *address.Service, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := addressOwnerGuard(r, addresses)
		if err != nil {
			writeError(w, r, lg, err)
			return
		}
		if err := addresses.Delete(r.Context(), id); err != nil {
			writeError(w, r, lg, err)
			return
		}
		respondJSON(w, http.StatusOK, "address deleted", nil)
	}
}

func SetPrimaryAddress(addresses *address.Service, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := addressOwnerGuard(r, addresses)
		if err != nil {
			writeError(w, r, lg, err)
			return
		}
		a, err := addresses.MakePrimary(r.Context(), id)
		if err != nil {
			writeError(w, r, lg, err)
			return
		}
		respondJSON(w, http.StatusOK, "primary address updated", a)
	}
}
