package handlers

import (
	"net/http"
	"strings"
	"time"

	"erpcore/internal/apperrors"
	"erpcore/internal/models"
	"erpcore/internal/services/audit"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type auditQuery func(r *http.Request, page models.Page) (audit.Page, error)

// auditHandler parses pagination and writes the page returned by q.
func auditHandler(lg *zap.SugaredLogger, q auditQuery) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, err := pageParams(r)
		if err != nil {
			writeError(w, r, lg, err)
			return
		}
		res, err := q(r, page)
		if err != nil {
			writeError(w, r, lg, err)
			return
		}
		respondJSON(w, http.StatusOK, "audit logs retrieved", res)
	}
}

func AuditByCPF(rec *audit.Recorder, lg *zap.SugaredLogger) http.HandlerFunc {
	return auditHandler(lg, func(r *http.Request, page models.Page) (audit.Page, error) {
		return rec.ByCPF(r.Context(), chi.URLParam(r, "cpf"), page)
	})
}

func AuditByUser(rec *audit.Recorder, lg *zap.SugaredLogger) http.HandlerFunc {
	return auditHandler(lg, func(r *http.Request, page models.Page) (audit.Page, error) {
		id, err := uuidParam(r, "userId")
		if err != nil {
			return audit.Page{}, err
		}
		return rec.ByUser(r.Context(), id, page)
	})
}

func AuditByEntity(rec *audit.Recorder, lg *zap.SugaredLogger) http.HandlerFunc {
	return auditHandler(lg, func(r *http.Request, page models.Page) (audit.Page, error) {
		return rec.ByEntity(r.Context(), chi.URLParam(r, "entityType"), chi.URLParam(r, "entityId"), page)
	})
}

// AuditByPeriod reads from and to (startDate/endDate are accepted too). A
// date without a time covers the whole day.
func AuditByPeriod(rec *audit.Recorder, lg *zap.SugaredLogger) http.HandlerFunc {
	return auditHandler(lg, func(r *http.Request, page models.Page) (audit.Page, error) {
		q := r.URL.Query()
		from, err := parseInstant(first(q.Get("from"), q.Get("startDate")), false)
		if err != nil {
			return audit.Page{}, apperrors.Validation("invalid from", err.Error())
		}
		to, err := parseInstant(first(q.Get("to"), q.Get("endDate")), true)
		if err != nil {
			return audit.Page{}, apperrors.Validation("invalid to", err.Error())
		}
		return rec.ByPeriod(r.Context(), from, to, page)
	})
}

func AuditByAction(rec *audit.Recorder, lg *zap.SugaredLogger) http.HandlerFunc {
	return auditHandler(lg, func(r *http.Request, page models.Page) (audit.Page, error) {
		return rec.ByAction(r.Context(), chi.URLParam(r, "fieldName"), page)
	})
}

func first(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

// parseInstant returns the zero time for an empty value; the service
// rejects missing bounds.
func parseInstant(s string, endOfDay bool) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	d, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, err
	}
	if endOfDay {
		d = d.Add(24*time.Hour - time.Nanosecond)
	}
	return d, nil
}
