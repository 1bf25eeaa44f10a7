// Package startup bootstraps the database and the administrative account.
package startup

import (
	"context"
	"time"

	"erpcore/internal/apperrors"
	"erpcore/internal/config"
	"erpcore/internal/models"
	"erpcore/internal/services/user"
	"erpcore/internal/validation"

	"go.uber.org/zap"
)

type Migrator interface {
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
}

type Report struct {
	Migrated     bool   `json:"migrated"`
	AdminCreated bool   `json:"adminCreated"`
	AdminEmail   string `json:"adminEmail"`
}

type Health struct {
	Status    string    `json:"status"`
	Database  string    `json:"database"`
	Timestamp time.Time `json:"timestamp"`
}

type Bootstrapper struct {
	db    Migrator
	users *user.Directory
	admin config.AdminConfig
	lg    *zap.SugaredLogger
}

func NewBootstrapper(db Migrator, users *user.Directory, admin config.AdminConfig, lg *zap.SugaredLogger) *Bootstrapper {
	return &Bootstrapper{db: db, users: users, admin: admin, lg: lg}
}

// Init migrates the schema and seeds the admin account. Running it again
// changes nothing.
func (b *Bootstrapper) Init(ctx context.Context) (Report, error) {
	if err := b.db.Migrate(ctx); err != nil {
		return Report{}, apperrors.Internal(err, "migrate")
	}
	rep := Report{Migrated: true, AdminEmail: user.NormalizeEmail(b.admin.Email)}
	exists, err := b.users.EmailExists(ctx, rep.AdminEmail, nil)
	if err != nil {
		return rep, err
	}
	if exists {
		return rep, nil
	}
	if b.admin.Password == "" {
		return rep, apperrors.Validation("ADMIN_PASSWORD is not configured")
	}
	cpf := validation.CleanCPF(b.admin.CPF)
	if cpf == "" {
		cpf = validation.GenerateCPF()
	}
	u, err := b.users.Create(ctx, user.CreateInput{
		FirstName: "System",
		LastName:  "Administrator",
		CPF:       cpf,
		Email:     rep.AdminEmail,
		Password:  b.admin.Password,
		Role:      models.RoleAdministrator,
	})
	if apperrors.HasCode(err, apperrors.CodeConflict) {
		// Another instance seeded it first.
		return rep, nil
	}
	if err != nil {
		return rep, err
	}
	rep.AdminCreated = true
	b.lg.Infow("seeded default admin", "email", u.Email, "user_id", u.ID)
	return rep, nil
}

func (b *Bootstrapper) Health(ctx context.Context) Health {
	h := Health{Status: "healthy", Database: "up", Timestamp: time.Now().UTC()}
	if err := b.db.Ping(ctx); err != nil {
		b.lg.Warnw("health check: database unreachable", "error", err)
		h.Status, h.Database = "unhealthy", "down"
	}
	return h
}
