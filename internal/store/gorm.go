package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"erpcore/internal/models"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStore is the PostgreSQL-backed Store.
type GormStore struct {
	db *gorm.DB
}

// OpenPostgres connects with error translation enabled so unique violations
// come back as gorm.ErrDuplicatedKey.
func OpenPostgres(dsn string) (*gorm.DB, error) {
	return gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
}

func NewGorm(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) Users() UserStore        { return gormUsers{db: s.db} }
func (s *GormStore) Addresses() AddressStore { return gormAddresses{db: s.db} }
func (s *GormStore) Audit() AuditStore       { return gormAudit{db: s.db} }

func (s *GormStore) RunInTx(ctx context.Context, fn func(tx Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormStore{db: tx})
	})
}

func (s *GormStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Migrate creates the tables plus the partial index that keeps a single
// primary address per user at the storage level.
func (s *GormStore) Migrate(ctx context.Context) error {
	db := s.db.WithContext(ctx)
	if err := db.AutoMigrate(&models.User{}, &models.Address{}, &models.AuditLog{}); err != nil {
		return fmt.Errorf("automigrate: %w", err)
	}
	if err := db.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS idx_addresses_one_primary ON addresses (user_id) WHERE is_primary`).Error; err != nil {
		return fmt.Errorf("primary address index: %w", err)
	}
	return nil
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%w: %s", ErrConflict, err.Error())
	default:
		return err
	}
}

type gormUsers struct{ db *gorm.DB }

func (r gormUsers) Create(ctx context.Context, u *models.User) error {
	return translate(r.db.WithContext(ctx).Omit(clause.Associations).Create(u).Error)
}

func (r gormUsers) Update(ctx context.Context, u *models.User) error {
	res := r.db.WithContext(ctx).Model(u).Select("*").Omit("ID", "CreatedAt", clause.Associations).Updates(u)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r gormUsers) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var u models.User
	err := r.db.WithContext(ctx).
		Preload("Addresses", func(db *gorm.DB) *gorm.DB { return db.Order("created_at asc, id asc") }).
		First(&u, "id = ?", id).Error
	if err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

func (r gormUsers) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	if err := r.db.WithContext(ctx).First(&u, "LOWER(email) = ?", strings.ToLower(email)).Error; err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

func (r gormUsers) FindByCPF(ctx context.Context, cpf string) (*models.User, error) {
	var u models.User
	if err := r.db.WithContext(ctx).First(&u, "cpf = ?", cpf).Error; err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

func (r gormUsers) ExistsByCPF(ctx context.Context, cpf string, exclude *uuid.UUID) (bool, error) {
	return r.exists(r.db.WithContext(ctx).Model(&models.User{}).Where("cpf = ?", cpf), exclude)
}

func (r gormUsers) ExistsByEmail(ctx context.Context, email string, exclude *uuid.UUID) (bool, error) {
	return r.exists(r.db.WithContext(ctx).Model(&models.User{}).Where("LOWER(email) = ?", strings.ToLower(email)), exclude)
}

func (r gormUsers) exists(q *gorm.DB, exclude *uuid.UUID) (bool, error) {
	if exclude != nil {
		q = q.Where("id <> ?", *exclude)
	}
	var n int64
	if err := q.Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r gormUsers) List(ctx context.Context, page models.Page) ([]models.User, int64, error) {
	var (
		users []models.User
		total int64
	)
	q := r.db.WithContext(ctx).Model(&models.User{})
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := q.Order("created_at desc, id asc").Limit(page.Size).Offset(page.Offset()).Find(&users).Error
	if err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

func (r gormUsers) Lock(ctx context.Context, id uuid.UUID) error {
	var u models.User
	err := r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).Select("id").First(&u, "id = ?", id).Error
	return translate(err)
}

func (r gormUsers) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Delete(&models.User{}, "id = ?", id)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

type gormAddresses struct{ db *gorm.DB }

func (r gormAddresses) Create(ctx context.Context, a *models.Address) error {
	return translate(r.db.WithContext(ctx).Create(a).Error)
}

func (r gormAddresses) Update(ctx context.Context, a *models.Address) error {
	res := r.db.WithContext(ctx).Model(a).Select("*").Omit("ID", "UserID", "CreatedAt").Updates(a)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r gormAddresses) FindByID(ctx context.Context, id uuid.UUID) (*models.Address, error) {
	var a models.Address
	if err := r.db.WithContext(ctx).First(&a, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &a, nil
}

func (r gormAddresses) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Address, error) {
	var out []models.Address
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at asc, id asc").Find(&out).Error
	return out, err
}

func (r gormAddresses) PageByUser(ctx context.Context, userID uuid.UUID, page models.Page) ([]models.Address, int64, error) {
	var (
		out   []models.Address
		total int64
	)
	q := r.db.WithContext(ctx).Model(&models.Address{}).Where("user_id = ?", userID)
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := q.Order("is_primary desc, created_at asc, id asc").Limit(page.Size).Offset(page.Offset()).Find(&out).Error
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (r gormAddresses) CountByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Address{}).Where("user_id = ?", userID).Count(&n).Error
	return n, err
}

func (r gormAddresses) ClearPrimary(ctx context.Context, userID uuid.UUID, exceptID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	q := r.db.WithContext(ctx).Model(&models.Address{}).Where("user_id = ? AND is_primary = ?", userID, true)
	if exceptID != uuid.Nil {
		q = q.Where("id <> ?", exceptID)
	}
	if err := q.Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}
	err := r.db.WithContext(ctx).Model(&models.Address{}).Where("id IN ?", ids).
		Updates(map[string]any{"is_primary": false, "updated_at": time.Now().UTC()}).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (r gormAddresses) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Delete(&models.Address{}, "id = ?", id)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r gormAddresses) DeleteByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).Delete(&models.Address{}, "user_id = ?", userID)
	return res.RowsAffected, translate(res.Error)
}

type gormAudit struct{ db *gorm.DB }

func (r gormAudit) CreateBatch(ctx context.Context, logs []models.AuditLog) error {
	if len(logs) == 0 {
		return nil
	}
	return translate(r.db.WithContext(ctx).CreateInBatches(&logs, 100).Error)
}

func (r gormAudit) Query(ctx context.Context, f AuditFilter, page models.Page) ([]models.AuditLog, int64, error) {
	var (
		logs  []models.AuditLog
		total int64
	)
	q := applyAuditFilter(r.db.WithContext(ctx).Model(&models.AuditLog{}), f)
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := q.Order("changed_at DESC, field_name ASC").Limit(page.Size).Offset(page.Offset()).Find(&logs).Error
	if err != nil {
		return nil, 0, err
	}
	return logs, total, nil
}

func applyAuditFilter(q *gorm.DB, f AuditFilter) *gorm.DB {
	if f.UserID != nil {
		q = q.Where("user_id = ?", *f.UserID)
	}
	if f.EntityType != "" {
		q = q.Where("LOWER(entity_type) = ?", strings.ToLower(f.EntityType))
	}
	if f.EntityID != "" {
		q = q.Where("entity_id = ?", f.EntityID)
	}
	if f.FieldName != "" {
		q = q.Where("LOWER(field_name) = ?", strings.ToLower(f.FieldName))
	}
	if f.From != nil {
		q = q.Where("changed_at >= ?", *f.From)
	}
	if f.To != nil {
		q = q.Where("changed_at <= ?", *f.To)
	}
	return q
}

func (r gormAudit) DetachUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).Model(&models.AuditLog{}).Where("user_id = ?", userID).Update("user_id", nil)
	return res.RowsAffected, translate(res.Error)
}

func (r gormAudit) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Where("changed_at < ?", cutoff).Delete(&models.AuditLog{})
	return res.RowsAffected, translate(res.Error)
}
