package handlers

import (
	"net/http"
	"strings"

	"erpcore/internal/auth"
	"erpcore/internal/services/authn"
	"erpcore/internal/validation"

	"go.uber.org/zap"
)

func Register(gw *authn.Gateway, v *validation.Validator, lg *zap.SugaredLogger) http.HandlerFunc {
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
		res, err := gw.Register(r.Context(), req.input())
		if err != nil {
			writeError(w, r, lg, err)
			return
		}
		respondJSON(w, http.StatusCreated, "user registered", res)
	}
}

func Login(gw *authn.Gateway, v *validation.Validator, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, r, lg, err)
			return
		}
		if err := v.Struct(req); err != nil {
			writeError(w, r, lg, err)
			return
		}
		res, err := gw.Login(r.Context(), req.Email, req.Password)
		if err != nil {
			writeError(w, r, lg, err)
			return
		}
		respondJSON(w, http.StatusOK, "login successful", res)
	}
}

func Refresh(gw *authn.Gateway, v *validation.Validator, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req refreshRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, r, lg, err)
			return
		}
		if err := v.Struct(req); err != nil {
			writeError(w, r, lg, err)
			return
		}
		res, err := gw.Refresh(r.Context(), req.RefreshToken)
		if err != nil {
			writeError(w, r, lg, err)
			return
		}
		respondJSON(w, http.StatusOK, "token refreshed", res)
	}
}

// ValidateToken accepts the token in the body or as a bearer header. An
// invalid token is a successful call reporting valid=false.
func ValidateToken(gw *authn.Gateway, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req validateRequest
		if r.ContentLength != 0 {
			if err := decodeJSON(r, &req); err != nil {
				writeError(w, r, lg, err)
				return
			}
		}
		token := strings.TrimSpace(req.Token)
		if token == "" {
			token, _ = auth.BearerToken(r)
		}
		info := gw.Validate(r.Context(), token)
		msg := "token is valid"
		if !info.Valid {
			msg = "token is invalid"
		}
		respondJSON(w, http.StatusOK, msg, info)
	}
}

func Me(gw *authn.Gateway, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		u, err := gw.Me(r.Context())
		if err != nil {
			writeError(w, r, lg, err)
			return
		}
		respondJSON(w, http.StatusOK, "current user", u)
	}
}
