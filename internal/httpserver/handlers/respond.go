package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"erpcore/internal/apperrors"
	"erpcore/internal/models"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// envelope wraps every response body.
type envelope struct {
	Success   bool      `json:"success"`
	Message   string    `json:"message"`
	Data      any       `json:"data"`
	Errors    []string  `json:"errors"`
	Timestamp time.Time `json:"timestamp"`
}

func respondJSON(w http.ResponseWriter, status int, msg string, data any) {
	writeEnvelope(w, status, envelope{Success: true, Message: msg, Data: data, Errors: []string{}})
}

func writeEnvelope(w http.ResponseWriter, status int, env envelope) {
	env.Timestamp = time.Now().UTC()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(env)
}

// Fail writes an error envelope. It satisfies auth.FailFunc.
func Fail(w http.ResponseWriter, status int, msg string) {
	failWith(w, status, msg, nil)
}

func failWith(w http.ResponseWriter, status int, msg string, details []string) {
	if details == nil {
		details = []string{}
	}
	writeEnvelope(w, status, envelope{Message: msg, Errors: details})
}

var statusByCode = map[apperrors.Code]int{
	apperrors.CodeValidation:   http.StatusBadRequest,
	apperrors.CodeNotFound:     http.StatusNotFound,
	apperrors.CodeConflict:     http.StatusConflict,
	apperrors.CodeUnauthorized: http.StatusUnauthorized,
	apperrors.CodeForbidden:    http.StatusForbidden,
}

// writeError maps a service error to its HTTP status. Internal errors are
// logged and answered with a generic message.
func writeError(w http.ResponseWriter, r *http.Request, lg *zap.SugaredLogger, err error) {
	if e, ok := apperrors.As(err); ok {
		if status, known := statusByCode[e.Code]; known {
			failWith(w, status, e.Message, e.Details)
			return
		}
	}
	lg.Errorw("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	Fail(w, http.StatusInternalServerError, "internal server error")
}

func decodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apperrors.Validation("malformed JSON body", err.Error())
	}
	return nil
}

func uuidParam(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		return uuid.Nil, apperrors.Validation("invalid " + name)
	}
	return id, nil
}

// pageParams reads page and limit (or pageSize). Bounds are applied by
// models.Page.Normalize.
func pageParams(r *http.Request) (models.Page, error) {
	q := r.URL.Query()
	var p models.Page
	var errs []string
	readInt := func(dst *int, keys ...string) {
		for _, k := range keys {
			raw := strings.TrimSpace(q.Get(k))
			if raw == "" {
				continue
			}
			n, err := strconv.Atoi(raw)
			if err != nil {
				errs = append(errs, k+" must be an integer")
				return
			}
			*dst = n
			return
		}
	}
	readInt(&p.Number, "page")
	readInt(&p.Size, "limit", "pageSize")
	if len(errs) > 0 {
		return p, apperrors.Validation("invalid pagination", errs...)
	}
	return p.Normalize(), nil
}
