// Package audit records and queries field-level change history.
//
// A change is suppressed when its old and new values are equal, comparing
// nullable text: nil equals nil, nil differs from any string. Creation events
// therefore pass with a nil old value, and so do removals with a nil new value.
package audit

import (
	"context"
	"net"
	"time"
	"unicode/utf8"

	"erpcore/internal/auth"
	"erpcore/internal/metrics"
	"erpcore/internal/models"
	"erpcore/internal/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// maxUserAgent matches the audit_logs.user_agent column.
const maxUserAgent = 500

const (
	EntityUser    = "User"
	EntityAddress = "Address"

	// FieldCreated and FieldDeleted tag whole-entity lifecycle events.
	FieldCreated = "Created"
	FieldDeleted = "Deleted"
)

// Recorder writes audit rows. Writes never fail the caller: persistence
// errors are logged and counted, then dropped.
type Recorder struct {
	store   store.Store
	lg      *zap.SugaredLogger
	metrics *metrics.Metrics
	now     func() time.Time
}

func NewRecorder(s store.Store, lg *zap.SugaredLogger, m *metrics.Metrics) *Recorder {
	return &Recorder{store: s, lg: lg, metrics: m, now: func() time.Time { return time.Now().UTC() }}
}

// LogChange records one field change of entityType/entityID belonging to
// userID (uuid.Nil when the user no longer exists). The actor, client IP and
// user agent come from ctx.
func (r *Recorder) LogChange(ctx context.Context, userID uuid.UUID, entityType, entityID, field string, oldValue, newValue *string) {
	if Equal(oldValue, newValue) {
		return
	}
	r.LogChanges(ctx, userID, entityType, entityID, Changes{field: {Old: oldValue, New: newValue}})
}

// LogChanges records a batch with one shared timestamp. No-op entries are dropped.
func (r *Recorder) LogChanges(ctx context.Context, userID uuid.UUID, entityType, entityID string, changes Changes) {
	if len(changes) == 0 {
		return
	}
	at := r.now()
	actor := userID
	if sub, ok := auth.SubjectID(ctx); ok {
		actor = sub
	}
	ip := clientIP(ctx)
	ua := userAgent(ctx)

	var owner *uuid.UUID
	if userID != uuid.Nil {
		owner = &userID
	}

	logs := make([]models.AuditLog, 0, len(changes))
	for _, field := range changes.Fields() {
		c := changes[field]
		if Equal(c.Old, c.New) {
			continue
		}
		logs = append(logs, models.AuditLog{
			ID:         uuid.New(),
			UserID:     owner,
			EntityType: entityType,
			EntityID:   entityID,
			FieldName:  field,
			OldValue:   c.Old,
			NewValue:   c.New,
			ChangedAt:  at,
			ChangedBy:  actor,
			IPAddress:  ip,
			UserAgent:  ua,
		})
	}
	if len(logs) == 0 {
		return
	}

	// The business change is already committed; a canceled request must not drop its trail.
	if err := r.store.Audit().CreateBatch(context.WithoutCancel(ctx), logs); err != nil {
		r.metrics.AddAuditWrites("error", len(logs))
		r.lg.Errorw("audit write failed",
			"error", err,
			"entity_type", entityType,
			"entity_id", entityID,
			"fields", len(logs),
		)
		return
	}
	r.metrics.AddAuditWrites("ok", len(logs))
}

// clientIP keeps the caller address only when it parses. The value comes
// from request headers and an oversized one would fail the whole batch.
func clientIP(ctx context.Context) *string {
	ip := net.ParseIP(auth.ClientIP(ctx))
	if ip == nil {
		return nil
	}
	return optional(ip.String())
}

func userAgent(ctx context.Context) *string {
	ua := auth.UserAgent(ctx)
	if utf8.RuneCountInString(ua) > maxUserAgent {
		ua = string([]rune(ua)[:maxUserAgent])
	}
	return optional(ua)
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Pending collects changes made inside a transaction so they can be recorded
// once it commits.
type Pending struct {
	entries []pendingEntry
}

type pendingEntry struct {
	userID     uuid.UUID
	entityType string
	entityID   string
	changes    Changes
}

func (p *Pending) Add(userID uuid.UUID, entityType, entityID string, c Changes) {
	if len(c) == 0 {
		return
	}
	p.entries = append(p.entries, pendingEntry{userID: userID, entityType: entityType, entityID: entityID, changes: c})
}

func (p *Pending) Len() int { return len(p.entries) }

// Record writes every pending entry. Call it after the transaction commits.
func (r *Recorder) Record(ctx context.Context, p *Pending) {
	for _, e := range p.entries {
		r.LogChanges(ctx, e.userID, e.entityType, e.entityID, e.changes)
	}
}
