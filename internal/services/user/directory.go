// Package user orchestrates the user lifecycle. Email and CPF are unique
// across active and inactive users: the pre-checks here produce friendly
// conflicts and the store's unique indexes remain the final word.
package user

import (
	"context"
	"errors"
	"strings"
	"time"

	"erpcore/internal/apperrors"
	"erpcore/internal/metrics"
	"erpcore/internal/models"
	"erpcore/internal/services/address"
	"erpcore/internal/services/audit"
	"erpcore/internal/store"
	"erpcore/internal/validation"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const redacted = "[REDACTED]"

type PasswordHasher interface {
	Hash(pw string) (string, error)
	Verify(hash, pw string) error
}

type CreateInput struct {
	FirstName string
	LastName  string
	CPF       string
	Email     string
	Phone     string
	Password  string
	// Role defaults to models.RoleUser.
	Role      string
	Addresses []address.Input
}

// UpdateInput is a partial update: nil or blank fields are left untouched.
type UpdateInput struct {
	FirstName *string
	LastName  *string
	Email     *string
	Phone     *string
	Password  *string
}

type Directory struct {
	store     store.Store
	addresses *address.Service
	audit     *audit.Recorder
	hasher    PasswordHasher
	lg        *zap.SugaredLogger
	metrics   *metrics.Metrics
	now       func() time.Time
}

func NewDirectory(s store.Store, addresses *address.Service, rec *audit.Recorder, hasher PasswordHasher,
	lg *zap.SugaredLogger, m *metrics.Metrics) *Directory {
	return &Directory{
		store:     s,
		addresses: addresses,
		audit:     rec,
		hasher:    hasher,
		lg:        lg,
		metrics:   m,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func NormalizeEmail(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

// IsAdmin reports whether u is an administrative account. The role is set
// when the account is seeded and no update path changes it.
func (d *Directory) IsAdmin(u *models.User) bool {
	return u != nil && u.Role == models.RoleAdministrator
}

func (d *Directory) Create(ctx context.Context, in CreateInput) (*models.User, error) {
	u := models.User{
		ID:        uuid.New(),
		FirstName: strings.TrimSpace(in.FirstName),
		LastName:  strings.TrimSpace(in.LastName),
		CPF:       validation.CleanCPF(in.CPF),
		Email:     NormalizeEmail(in.Email),
		Phone:     strings.TrimSpace(in.Phone),
		Role:      in.Role,
		IsActive:  true,
		CreatedAt: d.now(),
	}
	if u.Role == "" {
		u.Role = models.RoleUser
	}
	if err := checkNew(u, in.Password); err != nil {
		return nil, err
	}
	hash, err := d.hasher.Hash(in.Password)
	if err != nil {
		return nil, apperrors.Internal(err, "hash password")
	}
	u.PasswordHash = hash

	var pending audit.Pending
	err = d.store.RunInTx(ctx, func(tx store.Store) error {
		if err := d.checkUnique(ctx, tx, u.CPF, u.Email, nil); err != nil {
			return err
		}
		if err := tx.Users().Create(ctx, &u); err != nil {
			return mapStoreErr(err)
		}
		pending.Add(u.ID, audit.EntityUser, u.ID.String(), creationChanges(u))
		for _, a := range in.Addresses {
			if _, err := d.addresses.AddInTx(ctx, tx, u.ID, a, &pending); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	d.metrics.IncUsersCreated()
	d.audit.Record(ctx, &pending)
	d.lg.Infow("user created", "user_id", u.ID, "addresses", len(in.Addresses))
	return d.Get(ctx, u.ID)
}

func checkNew(u models.User, password string) error {
	var details []string
	if u.FirstName == "" {
		details = append(details, "firstName is required")
	}
	if u.LastName == "" {
		details = append(details, "lastName is required")
	}
	if !validation.IsValidCPF(u.CPF) {
		details = append(details, "cpf must be a valid CPF")
	}
	if !validation.IsEmail(u.Email) {
		details = append(details, "email must be a valid email address")
	}
	details = append(details, validation.PasswordErrors(password)...)
	if len(details) > 0 {
		return apperrors.Validation("invalid user", details...)
	}
	return nil
}

func (d *Directory) checkUnique(ctx context.Context, tx store.Store, cpf, email string, exclude *uuid.UUID) error {
	if cpf != "" {
		taken, err := tx.Users().ExistsByCPF(ctx, cpf, exclude)
		if err != nil {
			return apperrors.Internal(err, "check cpf")
		}
		if taken {
			return apperrors.Conflict("CPF already registered")
		}
	}
	if email != "" {
		taken, err := tx.Users().ExistsByEmail(ctx, email, exclude)
		if err != nil {
			return apperrors.Internal(err, "check email")
		}
		if taken {
			return apperrors.Conflict("email already registered")
		}
	}
	return nil
}

func (d *Directory) Get(ctx context.Context, id uuid.UUID) (*models.User, error) {
	u, err := d.store.Users().FindByID(ctx, id)
	if err != nil {
		return nil, mapStoreErr(err)
	}
	return u, nil
}

// FindByEmail returns the user including its password hash.
func (d *Directory) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	u, err := d.store.Users().FindByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		return nil, mapStoreErr(err)
	}
	return u, nil
}

func (d *Directory) List(ctx context.Context, page models.Page) (models.PageResult[models.User], error) {
	page = page.Normalize()
	users, total, err := d.store.Users().List(ctx, page)
	if err != nil {
		return models.PageResult[models.User]{}, apperrors.Internal(err, "list users")
	}
	return models.NewPageResult(users, total, page), nil
}

func (d *Directory) CPFExists(ctx context.Context, cpf string, exclude *uuid.UUID) (bool, error) {
	ok, err := d.store.Users().ExistsByCPF(ctx, validation.CleanCPF(cpf), exclude)
	if err != nil {
		return false, apperrors.Internal(err, "check cpf")
	}
	return ok, nil
}

func (d *Directory) EmailExists(ctx context.Context, email string, exclude *uuid.UUID) (bool, error) {
	ok, err := d.store.Users().ExistsByEmail(ctx, NormalizeEmail(email), exclude)
	if err != nil {
		return false, apperrors.Internal(err, "check email")
	}
	return ok, nil
}

func (d *Directory) Update(ctx context.Context, id uuid.UUID, in UpdateInput) (*models.User, error) {
	var hash string
	if in.Password != nil && *in.Password != "" {
		if errs := validation.PasswordErrors(*in.Password); len(errs) > 0 {
			return nil, apperrors.Validation("invalid password", errs...)
		}
		h, err := d.hasher.Hash(*in.Password)
		if err != nil {
			return nil, apperrors.Internal(err, "hash password")
		}
		hash = h
	}
	if in.Email != nil && strings.TrimSpace(*in.Email) != "" && !validation.IsEmail(NormalizeEmail(*in.Email)) {
		return nil, apperrors.Validation("invalid user", "email must be a valid email address")
	}

	var (
		out     *models.User
		pending audit.Pending
	)
	err := d.store.RunInTx(ctx, func(tx store.Store) error {
		cur, err := tx.Users().FindByID(ctx, id)
		if err != nil {
			return mapStoreErr(err)
		}
		next := *cur
		setTrimmed(&next.FirstName, in.FirstName)
		setTrimmed(&next.LastName, in.LastName)
		setTrimmed(&next.Phone, in.Phone)
		if in.Email != nil {
			if e := NormalizeEmail(*in.Email); e != "" && e != cur.Email {
				if err := d.checkUnique(ctx, tx, "", e, &id); err != nil {
					return err
				}
				next.Email = e
			}
		}
		changes := diff(*cur, next)
		if hash != "" {
			next.PasswordHash = hash
			changes["Password"] = audit.Change{New: audit.Text(redacted)}
		}
		if len(changes) == 0 {
			out = cur
			return nil
		}
		now := d.now()
		next.UpdatedAt = &now
		if err := tx.Users().Update(ctx, &next); err != nil {
			return mapStoreErr(err)
		}
		pending.Add(id, audit.EntityUser, id.String(), changes)
		out = &next
		return nil
	})
	if err != nil {
		return nil, err
	}
	d.audit.Record(ctx, &pending)
	return out, nil
}

func (d *Directory) Deactivate(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return d.setActive(ctx, id, false)
}

func (d *Directory) Activate(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return d.setActive(ctx, id, true)
}

// setActive is idempotent: asking for the current state changes nothing.
func (d *Directory) setActive(ctx context.Context, id uuid.UUID, active bool) (*models.User, error) {
	var (
		out     *models.User
		pending audit.Pending
	)
	err := d.store.RunInTx(ctx, func(tx store.Store) error {
		cur, err := tx.Users().FindByID(ctx, id)
		if err != nil {
			return mapStoreErr(err)
		}
		if cur.IsActive == active {
			out = cur
			return nil
		}
		next := *cur
		next.IsActive = active
		now := d.now()
		next.UpdatedAt = &now
		if err := tx.Users().Update(ctx, &next); err != nil {
			return mapStoreErr(err)
		}
		c := audit.Changes{}
		c.TrackBool("IsActive", cur.IsActive, active)
		pending.Add(id, audit.EntityUser, id.String(), c)
		out = &next
		return nil
	})
	if err != nil {
		return nil, err
	}
	d.audit.Record(ctx, &pending)
	return out, nil
}

// Delete permanently removes a user and its addresses. The audit history is
// kept but detached from the user row. The administrative account and the
// caller's own account cannot be deleted.
func (d *Directory) Delete(ctx context.Context, id, callerID uuid.UUID) error {
	if id == callerID {
		return apperrors.Forbidden("you cannot delete your own account")
	}
	var deleted *models.User
	err := d.store.RunInTx(ctx, func(tx store.Store) error {
		u, err := tx.Users().FindByID(ctx, id)
		if err != nil {
			return mapStoreErr(err)
		}
		if d.IsAdmin(u) {
			return apperrors.Forbidden("the administrative account cannot be deleted")
		}
		if err := tx.Users().Lock(ctx, id); err != nil {
			return mapStoreErr(err)
		}
		if _, err := tx.Addresses().DeleteByUser(ctx, id); err != nil {
			return apperrors.Internal(err, "delete addresses")
		}
		if _, err := tx.Audit().DetachUser(ctx, id); err != nil {
			return apperrors.Internal(err, "detach audit logs")
		}
		if err := tx.Users().Delete(ctx, id); err != nil {
			return mapStoreErr(err)
		}
		deleted = u
		return nil
	})
	if err != nil {
		return err
	}
	d.audit.LogChange(ctx, uuid.Nil, audit.EntityUser, id.String(), audit.FieldDeleted, audit.Text(deleted.Email), nil)
	d.lg.Infow("user deleted", "user_id", id, "by", callerID)
	return nil
}

func creationChanges(u models.User) audit.Changes {
	c := audit.Changes{}
	c.Track("FirstName", nil, audit.Text(u.FirstName))
	c.Track("LastName", nil, audit.Text(u.LastName))
	c.Track("CPF", nil, audit.Text(u.CPF))
	c.Track("Email", nil, audit.Text(u.Email))
	if u.Phone != "" {
		c.Track("Phone", nil, audit.Text(u.Phone))
	}
	c.Track("Role", nil, audit.Text(u.Role))
	c.Track("IsActive", nil, audit.Text(u.IsActive))
	return c
}

func diff(cur, next models.User) audit.Changes {
	c := audit.Changes{}
	c.TrackString("FirstName", cur.FirstName, next.FirstName)
	c.TrackString("LastName", cur.LastName, next.LastName)
	c.TrackString("Email", cur.Email, next.Email)
	c.TrackString("Phone", cur.Phone, next.Phone)
	return c
}

func setTrimmed(dst *string, v *string) {
	if v == nil {
		return
	}
	if t := strings.TrimSpace(*v); t != "" {
		*dst = t
	}
}

func mapStoreErr(err error) error {
	if _, ok := apperrors.As(err); ok {
		return err
	}
	switch {
	case errors.Is(err, store.ErrNotFound):
		return apperrors.NotFound("user not found")
	case errors.Is(err, store.ErrConflict):
		return apperrors.Wrap(err, apperrors.CodeConflict, "email or CPF already registered")
	default:
		return apperrors.Internal(err, "user store")
	}
}
