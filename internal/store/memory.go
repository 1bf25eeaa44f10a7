package store

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"erpcore/internal/models"

	"github.com/google/uuid"
)

// Memory is a map-backed Store for development and tests. Transactions are
// serialised by a single lock and journal an undo step per write, so a
// rollback reverts only the transaction's own changes. It enforces the same
// unique and referential rules as the SQL schema.
type Memory struct {
	mu   *sync.RWMutex
	txMu *sync.Mutex
	data *memData
	// undo is non-nil inside a transaction.
	undo *[]func(*memData)
}

type memData struct {
	users     map[uuid.UUID]models.User
	addresses map[uuid.UUID]models.Address
	audit     []models.AuditLog
}

func NewMemory() *Memory {
	return &Memory{
		mu:   &sync.RWMutex{},
		txMu: &sync.Mutex{},
		data: &memData{
			users:     map[uuid.UUID]models.User{},
			addresses: map[uuid.UUID]models.Address{},
		},
	}
}

func (m *Memory) Users() UserStore        { return memUsers{m} }
func (m *Memory) Addresses() AddressStore { return memAddresses{m} }
func (m *Memory) Audit() AuditStore       { return memAudit{m} }

func (m *Memory) RunInTx(ctx context.Context, fn func(tx Store) error) error {
	if m.undo != nil {
		return fn(m)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	m.txMu.Lock()
	defer m.txMu.Unlock()

	var undo []func(*memData)
	err := fn(&Memory{mu: m.mu, txMu: m.txMu, data: m.data, undo: &undo})
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		m.mu.Lock()
		for i := len(undo) - 1; i >= 0; i-- {
			undo[i](m.data)
		}
		m.mu.Unlock()
	}
	return err
}

// journal queues an undo step when m is a transaction. Expects m.mu held.
func (m *Memory) journal(step func(*memData)) {
	if m.undo != nil {
		*m.undo = append(*m.undo, step)
	}
}

func (m *Memory) Ping(ctx context.Context) error { return ctx.Err() }

func (m *Memory) Migrate(context.Context) error { return nil }

type memUsers struct{ m *Memory }

func (r memUsers) conflict(u *models.User) error {
	for _, o := range r.m.data.users {
		if o.ID == u.ID {
			continue
		}
		if o.CPF == u.CPF {
			return fmt.Errorf("%w: users.cpf", ErrConflict)
		}
		if strings.EqualFold(o.Email, u.Email) {
			return fmt.Errorf("%w: users.email", ErrConflict)
		}
	}
	return nil
}

func (r memUsers) Create(_ context.Context, u *models.User) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if _, ok := r.m.data.users[u.ID]; ok {
		return fmt.Errorf("%w: users.id", ErrConflict)
	}
	if err := r.conflict(u); err != nil {
		return err
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	c := *u
	c.Addresses, c.AuditLogs = nil, nil
	r.m.data.users[u.ID] = c
	id := u.ID
	r.m.journal(func(d *memData) { delete(d.users, id) })
	return nil
}

func (r memUsers) Update(_ context.Context, u *models.User) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	old, ok := r.m.data.users[u.ID]
	if !ok {
		return ErrNotFound
	}
	if err := r.conflict(u); err != nil {
		return err
	}
	c := *u
	c.CreatedAt = old.CreatedAt
	c.Addresses, c.AuditLogs = nil, nil
	r.m.data.users[u.ID] = c
	r.m.journal(func(d *memData) { d.users[old.ID] = old })
	return nil
}

func (r memUsers) FindByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	u, ok := r.m.data.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	u.Addresses = r.m.addressesOf(id)
	return &u, nil
}

func (r memUsers) find(pred func(models.User) bool) (*models.User, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	for _, u := range r.m.data.users {
		if pred(u) {
			return &u, nil
		}
	}
	return nil, ErrNotFound
}

func (r memUsers) FindByEmail(_ context.Context, email string) (*models.User, error) {
	return r.find(func(u models.User) bool { return strings.EqualFold(u.Email, email) })
}

func (r memUsers) FindByCPF(_ context.Context, cpf string) (*models.User, error) {
	return r.find(func(u models.User) bool { return u.CPF == cpf })
}

func (r memUsers) ExistsByCPF(ctx context.Context, cpf string, exclude *uuid.UUID) (bool, error) {
	u, err := r.find(func(u models.User) bool {
		return u.CPF == cpf && (exclude == nil || u.ID != *exclude)
	})
	return u != nil, ignoreNotFound(err)
}

func (r memUsers) ExistsByEmail(ctx context.Context, email string, exclude *uuid.UUID) (bool, error) {
	u, err := r.find(func(u models.User) bool {
		return strings.EqualFold(u.Email, email) && (exclude == nil || u.ID != *exclude)
	})
	return u != nil, ignoreNotFound(err)
}

func (r memUsers) List(_ context.Context, page models.Page) ([]models.User, int64, error) {
	r.m.mu.RLock()
	all := make([]models.User, 0, len(r.m.data.users))
	for _, u := range r.m.data.users {
		all = append(all, u)
	}
	r.m.mu.RUnlock()
	slices.SortFunc(all, func(a, b models.User) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID.String(), b.ID.String())
	})
	return paginate(all, page), int64(len(all)), nil
}

func (r memUsers) Lock(_ context.Context, id uuid.UUID) error {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	if _, ok := r.m.data.users[id]; !ok {
		return ErrNotFound
	}
	return nil
}

func (r memUsers) Delete(_ context.Context, id uuid.UUID) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	old, ok := r.m.data.users[id]
	if !ok {
		return ErrNotFound
	}
	for _, l := range r.m.data.audit {
		if l.UserID != nil && *l.UserID == id {
			return fmt.Errorf("user %s is still referenced by audit_logs", id)
		}
	}
	var removed []models.Address
	for aid, a := range r.m.data.addresses {
		if a.UserID == id {
			removed = append(removed, a)
			delete(r.m.data.addresses, aid)
		}
	}
	delete(r.m.data.users, id)
	r.m.journal(func(d *memData) {
		d.users[id] = old
		restoreAddresses(d, removed)
	})
	return nil
}

// addressesOf expects m.mu to be held.
func (m *Memory) addressesOf(userID uuid.UUID) []models.Address {
	var out []models.Address
	for _, a := range m.data.addresses {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	slices.SortFunc(out, func(a, b models.Address) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID.String(), b.ID.String())
	})
	return out
}

type memAddresses struct{ m *Memory }

// checkPrimary mirrors idx_addresses_one_primary.
func (r memAddresses) checkPrimary(a *models.Address) error {
	if !a.IsPrimary {
		return nil
	}
	for _, o := range r.m.data.addresses {
		if o.UserID == a.UserID && o.ID != a.ID && o.IsPrimary {
			return fmt.Errorf("%w: idx_addresses_one_primary", ErrConflict)
		}
	}
	return nil
}

func (r memAddresses) Create(_ context.Context, a *models.Address) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if _, ok := r.m.data.users[a.UserID]; !ok {
		return fmt.Errorf("address owner %s does not exist", a.UserID)
	}
	if _, ok := r.m.data.addresses[a.ID]; ok {
		return fmt.Errorf("%w: addresses.id", ErrConflict)
	}
	if err := r.checkPrimary(a); err != nil {
		return err
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	r.m.data.addresses[a.ID] = *a
	id := a.ID
	r.m.journal(func(d *memData) { delete(d.addresses, id) })
	return nil
}

func (r memAddresses) Update(_ context.Context, a *models.Address) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	old, ok := r.m.data.addresses[a.ID]
	if !ok {
		return ErrNotFound
	}
	c := *a
	c.UserID, c.CreatedAt = old.UserID, old.CreatedAt
	if err := r.checkPrimary(&c); err != nil {
		return err
	}
	r.m.data.addresses[a.ID] = c
	r.m.journal(func(d *memData) { d.addresses[old.ID] = old })
	return nil
}

func (r memAddresses) FindByID(_ context.Context, id uuid.UUID) (*models.Address, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	a, ok := r.m.data.addresses[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &a, nil
}

func (r memAddresses) ListByUser(_ context.Context, userID uuid.UUID) ([]models.Address, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	return r.m.addressesOf(userID), nil
}

func (r memAddresses) PageByUser(_ context.Context, userID uuid.UUID, page models.Page) ([]models.Address, int64, error) {
	r.m.mu.RLock()
	all := r.m.addressesOf(userID)
	r.m.mu.RUnlock()
	slices.SortStableFunc(all, func(a, b models.Address) int {
		switch {
		case a.IsPrimary == b.IsPrimary:
			return 0
		case a.IsPrimary:
			return -1
		default:
			return 1
		}
	})
	return paginate(all, page), int64(len(all)), nil
}

func (r memAddresses) CountByUser(_ context.Context, userID uuid.UUID) (int64, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	var n int64
	for _, a := range r.m.data.addresses {
		if a.UserID == userID {
			n++
		}
	}
	return n, nil
}

func (r memAddresses) ClearPrimary(_ context.Context, userID uuid.UUID, exceptID uuid.UUID) ([]uuid.UUID, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var (
		ids  []uuid.UUID
		prev []models.Address
	)
	now := time.Now().UTC()
	for id, a := range r.m.data.addresses {
		if a.UserID != userID || !a.IsPrimary || id == exceptID {
			continue
		}
		prev = append(prev, a)
		a.IsPrimary = false
		a.UpdatedAt = &now
		r.m.data.addresses[id] = a
		ids = append(ids, id)
	}
	r.m.journal(func(d *memData) { restoreAddresses(d, prev) })
	return ids, nil
}

func (r memAddresses) Delete(_ context.Context, id uuid.UUID) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	old, ok := r.m.data.addresses[id]
	if !ok {
		return ErrNotFound
	}
	delete(r.m.data.addresses, id)
	r.m.journal(func(d *memData) { d.addresses[id] = old })
	return nil
}

func (r memAddresses) DeleteByUser(_ context.Context, userID uuid.UUID) (int64, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var removed []models.Address
	for id, a := range r.m.data.addresses {
		if a.UserID == userID {
			removed = append(removed, a)
			delete(r.m.data.addresses, id)
		}
	}
	r.m.journal(func(d *memData) { restoreAddresses(d, removed) })
	return int64(len(removed)), nil
}

func restoreAddresses(d *memData, as []models.Address) {
	for _, a := range as {
		d.addresses[a.ID] = a
	}
}

type memAudit struct{ m *Memory }

func (r memAudit) CreateBatch(_ context.Context, logs []models.AuditLog) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, l := range logs {
		if err := checkAuditWidths(l); err != nil {
			return err
		}
	}
	ids := make(map[uuid.UUID]bool, len(logs))
	for _, l := range logs {
		if l.ID == uuid.Nil {
			l.ID = uuid.New()
		}
		ids[l.ID] = true
		r.m.data.audit = append(r.m.data.audit, l)
	}
	r.m.journal(func(d *memData) {
		d.audit = slices.DeleteFunc(d.audit, func(l models.AuditLog) bool { return ids[l.ID] })
	})
	return nil
}

func (r memAudit) Query(_ context.Context, f AuditFilter, page models.Page) ([]models.AuditLog, int64, error) {
	r.m.mu.RLock()
	var out []models.AuditLog
	for _, l := range r.m.data.audit {
		if matchAudit(l, f) {
			out = append(out, l)
		}
	}
	r.m.mu.RUnlock()
	slices.SortStableFunc(out, func(a, b models.AuditLog) int {
		if c := b.ChangedAt.Compare(a.ChangedAt); c != 0 {
			return c
		}
		return strings.Compare(a.FieldName, b.FieldName)
	})
	return paginate(out, page), int64(len(out)), nil
}

// checkAuditWidths mirrors the varchar limits of audit_logs.
func checkAuditWidths(l models.AuditLog) error {
	limits := []struct {
		column string
		value  *string
		max    int
	}{
		{"entity_type", &l.EntityType, 50},
		{"entity_id", &l.EntityID, 64},
		{"field_name", &l.FieldName, 100},
		{"ip_address", l.IPAddress, 45},
		{"user_agent", l.UserAgent, 500},
	}
	for _, c := range limits {
		if c.value != nil && utf8.RuneCountInString(*c.value) > c.max {
			return fmt.Errorf("audit_logs.%s: value too long for varchar(%d)", c.column, c.max)
		}
	}
	return nil
}

func matchAudit(l models.AuditLog, f AuditFilter) bool {
	if f.UserID != nil && (l.UserID == nil || *l.UserID != *f.UserID) {
		return false
	}
	if f.EntityType != "" && !strings.EqualFold(l.EntityType, f.EntityType) {
		return false
	}
	if f.EntityID != "" && l.EntityID != f.EntityID {
		return false
	}
	if f.FieldName != "" && !strings.EqualFold(l.FieldName, f.FieldName) {
		return false
	}
	if f.From != nil && l.ChangedAt.Before(*f.From) {
		return false
	}
	if f.To != nil && l.ChangedAt.After(*f.To) {
		return false
	}
	return true
}

func (r memAudit) DetachUser(_ context.Context, userID uuid.UUID) (int64, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	detached := map[uuid.UUID]bool{}
	for i, l := range r.m.data.audit {
		if l.UserID != nil && *l.UserID == userID {
			r.m.data.audit[i].UserID = nil
			detached[l.ID] = true
		}
	}
	r.m.journal(func(d *memData) {
		for i, l := range d.audit {
			if detached[l.ID] {
				uid := userID
				d.audit[i].UserID = &uid
			}
		}
	})
	return int64(len(detached)), nil
}

func (r memAudit) DeleteBefore(_ context.Context, cutoff time.Time) (int64, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var kept, purged []models.AuditLog
	for _, l := range r.m.data.audit {
		if l.ChangedAt.Before(cutoff) {
			purged = append(purged, l)
			continue
		}
		kept = append(kept, l)
	}
	r.m.data.audit = kept
	r.m.journal(func(d *memData) { d.audit = append(d.audit, purged...) })
	return int64(len(purged)), nil
}

func paginate[T any](all []T, page models.Page) []T {
	start := page.Offset()
	if start >= len(all) {
		return []T{}
	}
	end := start + page.Size
	if end > len(all) {
		end = len(all)
	}
	return slices.Clone(all[start:end])
}

func ignoreNotFound(err error) error {
	if err == ErrNotFound {
		return nil
	}
	return err
}
