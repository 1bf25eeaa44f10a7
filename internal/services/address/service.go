// Package address manages user addresses: no two identical addresses per
// user, at most one primary per user, and never zero addresses after a delete.
package address

import (
	"context"
	"errors"
	"time"

	"erpcore/internal/apperrors"
	"erpcore/internal/metrics"
	"erpcore/internal/models"
	"erpcore/internal/services/audit"
	"erpcore/internal/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Service struct {
	store          store.Store
	audit          *audit.Recorder
	lg             *zap.SugaredLogger
	metrics        *metrics.Metrics
	defaultCountry string
	now            func() time.Time
}

func NewService(s store.Store, rec *audit.Recorder, lg *zap.SugaredLogger, m *metrics.Metrics, defaultCountry string) *Service {
	return &Service{
		store:          s,
		audit:          rec,
		lg:             lg,
		metrics:        m,
		defaultCountry: defaultCountry,
		now:            func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.Address, error) {
	a, err := s.store.Addresses().FindByID(ctx, id)
	if err != nil {
		return nil, mapStoreErr(err, "address not found")
	}
	return a, nil
}

// ListByUser pages the user's addresses, primary first.
func (s *Service) ListByUser(ctx context.Context, userID uuid.UUID, page models.Page) (models.PageResult[models.Address], error) {
	page = page.Normalize()
	items, total, err := s.store.Addresses().PageByUser(ctx, userID, page)
	if err != nil {
		return models.PageResult[models.Address]{}, apperrors.Internal(err, "list addresses")
	}
	if total == 0 {
		if _, err := s.store.Users().FindByID(ctx, userID); err != nil {
			return models.PageResult[models.Address]{}, mapStoreErr(err, "user not found")
		}
	}
	return models.NewPageResult(items, total, page), nil
}

func (s *Service) Create(ctx context.Context, userID uuid.UUID, in Input) (*models.Address, error) {
	var (
		created *models.Address
		pending audit.Pending
	)
	err := s.store.RunInTx(ctx, func(tx store.Store) error {
		if err := tx.Users().Lock(ctx, userID); err != nil {
			return mapStoreErr(err, "user not found")
		}
		a, err := s.AddInTx(ctx, tx, userID, in, &pending)
		created = a
		return err
	})
	if err != nil {
		return nil, err
	}
	s.audit.Record(ctx, &pending)
	return created, nil
}

// AddInTx validates in and inserts it for userID inside tx, applying the
// duplicate guard and, for a primary address, demoting the previous primary.
// The caller owns the transaction and must record p after it commits.
func (s *Service) AddInTx(ctx context.Context, tx store.Store, userID uuid.UUID, in Input, p *audit.Pending) (*models.Address, error) {
	now := s.now()
	a, err := in.toModel(userID, now, s.defaultCountry)
	if err != nil {
		return nil, err
	}
	existing, err := tx.Addresses().ListByUser(ctx, userID)
	if err != nil {
		return nil, apperrors.Internal(err, "load addresses")
	}
	if WouldDuplicate(a, existing, nil) {
		return nil, apperrors.Conflict("address already registered for this user")
	}
	if a.IsPrimary {
		if err := demoteOthers(ctx, tx, userID, a.ID, p); err != nil {
			return nil, apperrors.Internal(err, "demote primary address")
		}
	}
	if err := tx.Addresses().Create(ctx, &a); err != nil {
		return nil, mapStoreErr(err, "user not found")
	}
	s.metrics.IncAddressesCreated()
	p.Add(userID, audit.EntityAddress, a.ID.String(), audit.Changes{
		audit.FieldCreated: {New: audit.Text(OneLine(a))},
	})
	return &a, nil
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, patch Patch) (*models.Address, error) {
	var (
		updated *models.Address
		pending audit.Pending
	)
	err := s.store.RunInTx(ctx, func(tx store.Store) error {
		cur, err := tx.Addresses().FindByID(ctx, id)
		if err != nil {
			return mapStoreErr(err, "address not found")
		}
		if err := tx.Users().Lock(ctx, cur.UserID); err != nil {
			return mapStoreErr(err, "user not found")
		}
		next, changed, err := patch.apply(*cur)
		if err != nil {
			return err
		}
		if !changed {
			updated = cur
			return nil
		}
		existing, err := tx.Addresses().ListByUser(ctx, cur.UserID)
		if err != nil {
			return apperrors.Internal(err, "load addresses")
		}
		if WouldDuplicate(next, existing, &id) {
			return apperrors.Conflict("address already registered for this user")
		}
		if next.IsPrimary {
			if err := demoteOthers(ctx, tx, next.UserID, next.ID, &pending); err != nil {
				return apperrors.Internal(err, "demote primary address")
			}
		}
		now := s.now()
		next.UpdatedAt = &now
		if err := tx.Addresses().Update(ctx, &next); err != nil {
			return mapStoreErr(err, "address not found")
		}
		pending.Add(next.UserID, audit.EntityAddress, id.String(), diff(*cur, next))
		updated = &next
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.audit.Record(ctx, &pending)
	return updated, nil
}

// Delete removes an address unless it is the user's last one. Deleting the
// primary address promotes the oldest remaining one.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	var pending audit.Pending
	err := s.store.RunInTx(ctx, func(tx store.Store) error {
		a, err := tx.Addresses().FindByID(ctx, id)
		if err != nil {
			return mapStoreErr(err, "address not found")
		}
		if err := tx.Users().Lock(ctx, a.UserID); err != nil {
			return mapStoreErr(err, "user not found")
		}
		n, err := tx.Addresses().CountByUser(ctx, a.UserID)
		if err != nil {
			return apperrors.Internal(err, "count addresses")
		}
		if n <= 1 {
			return apperrors.Validation("cannot delete the only address of a user")
		}
		if err := tx.Addresses().Delete(ctx, id); err != nil {
			return mapStoreErr(err, "address not found")
		}
		pending.Add(a.UserID, audit.EntityAddress, id.String(), audit.Changes{
			audit.FieldDeleted: {Old: audit.Text(OneLine(*a))},
		})
		if !a.IsPrimary {
			return nil
		}
		// The oldest remaining address inherits the primary flag.
		rest, err := tx.Addresses().ListByUser(ctx, a.UserID)
		if err != nil {
			return apperrors.Internal(err, "load addresses")
		}
		if len(rest) == 0 {
			return nil
		}
		if err := promote(ctx, tx, &rest[0], s.now(), &pending); err != nil {
			return mapStoreErr(err, "address not found")
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.audit.Record(ctx, &pending)
	return nil
}

// SetPrimary makes addressID the only primary address of userID.
func (s *Service) SetPrimary(ctx context.Context, userID, addressID uuid.UUID) (*models.Address, error) {
	var (
		out     *models.Address
		pending audit.Pending
	)
	err := s.store.RunInTx(ctx, func(tx store.Store) error {
		if err := tx.Users().Lock(ctx, userID); err != nil {
			return mapStoreErr(err, "user not found")
		}
		a, err := tx.Addresses().FindByID(ctx, addressID)
		if err != nil {
			return mapStoreErr(err, "address not found")
		}
		if a.UserID != userID {
			return apperrors.NotFound("address not found")
		}
		if err := promote(ctx, tx, a, s.now(), &pending); err != nil {
			return mapStoreErr(err, "address not found")
		}
		out = a
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.audit.Record(ctx, &pending)
	return out, nil
}

// MakePrimary is SetPrimary for callers that only know the address id.
func (s *Service) MakePrimary(ctx context.Context, addressID uuid.UUID) (*models.Address, error) {
	a, err := s.Get(ctx, addressID)
	if err != nil {
		return nil, err
	}
	return s.SetPrimary(ctx, a.UserID, addressID)
}

func diff(cur, next models.Address) audit.Changes {
	c := audit.Changes{}
	c.TrackString("Street", cur.Street, next.Street)
	c.Track("Number", cur.Number, next.Number)
	c.Track("Neighborhood", cur.Neighborhood, next.Neighborhood)
	c.Track("Complement", cur.Complement, next.Complement)
	c.TrackString("City", cur.City, next.City)
	c.TrackString("State", cur.State, next.State)
	c.TrackString("ZipCode", cur.ZipCode, next.ZipCode)
	c.TrackString("Country", cur.Country, next.Country)
	c.TrackBool("IsPrimary", cur.IsPrimary, next.IsPrimary)
	return c
}

func mapStoreErr(err error, notFound string) error {
	if _, ok := apperrors.As(err); ok {
		return err
	}
	switch {
	case errors.Is(err, store.ErrNotFound):
		return apperrors.NotFound(notFound)
	case errors.Is(err, store.ErrConflict):
		return apperrors.Wrap(err, apperrors.CodeConflict, "address conflicts with an existing one")
	default:
		return apperrors.Internal(err, "address store")
	}
}
