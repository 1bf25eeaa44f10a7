package audit

import (
	"context"
	"errors"
	"strings"
	"time"

	"erpcore/internal/apperrors"
	"erpcore/internal/models"
	"erpcore/internal/store"
	"erpcore/internal/validation"

	"github.com/google/uuid"
)

type Page = models.PageResult[models.AuditLog]

func (r *Recorder) ByUser(ctx context.Context, userID uuid.UUID, page models.Page) (Page, error) {
	return r.query(ctx, store.AuditFilter{UserID: &userID}, page)
}

func (r *Recorder) ByEntity(ctx context.Context, entityType, entityID string, page models.Page) (Page, error) {
	entityType, entityID = strings.TrimSpace(entityType), strings.TrimSpace(entityID)
	if entityType == "" || entityID == "" {
		return Page{}, apperrors.Validation("entity type and id are required")
	}
	return r.query(ctx, store.AuditFilter{EntityType: entityType, EntityID: entityID}, page)
}

// ByPeriod returns rows changed within [from, to].
func (r *Recorder) ByPeriod(ctx context.Context, from, to time.Time, page models.Page) (Page, error) {
	if from.IsZero() || to.IsZero() {
		return Page{}, apperrors.Validation("start and end dates are required")
	}
	if to.Before(from) {
		return Page{}, apperrors.Validation("end date must not be before start date")
	}
	return r.query(ctx, store.AuditFilter{From: &from, To: &to}, page)
}

// ByAction returns every change of one field name.
func (r *Recorder) ByAction(ctx context.Context, fieldName string, page models.Page) (Page, error) {
	fieldName = strings.TrimSpace(fieldName)
	if fieldName == "" {
		return Page{}, apperrors.Validation("field name is required")
	}
	return r.query(ctx, store.AuditFilter{FieldName: fieldName}, page)
}

// ByCPF resolves the tax id to its user and returns that user's history.
func (r *Recorder) ByCPF(ctx context.Context, cpf string, page models.Page) (Page, error) {
	if !validation.IsValidCPF(cpf) {
		return Page{}, apperrors.Validation("invalid CPF", "cpf must be a valid CPF")
	}
	u, err := r.store.Users().FindByCPF(ctx, validation.CleanCPF(cpf))
	if errors.Is(err, store.ErrNotFound) {
		return Page{}, apperrors.NotFound("user not found")
	}
	if err != nil {
		return Page{}, apperrors.Internal(err, "find user by cpf")
	}
	return r.ByUser(ctx, u.ID, page)
}

func (r *Recorder) query(ctx context.Context, f store.AuditFilter, page models.Page) (Page, error) {
	page = page.Normalize()
	logs, total, err := r.store.Audit().Query(ctx, f, page)
	if err != nil {
		return Page{}, apperrors.Internal(err, "query audit logs")
	}
	return models.NewPageResult(logs, total, page), nil
}
