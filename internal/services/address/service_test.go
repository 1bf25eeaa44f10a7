package address

import (
	"context"
	"testing"
	"time"

	"erpcore/internal/apperrors"
	"erpcore/internal/metrics"
	"erpcore/internal/models"
	"erpcore/internal/services/audit"
	"erpcore/internal/store"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fixture struct {
	ctx    context.Context
	store  *store.Memory
	svc    *Service
	userID uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mem := store.NewMemory()
	lg := zap.NewNop().Sugar()
	rec := audit.NewRecorder(mem, lg, metrics.Nop())
	u := &models.User{ID: uuid.New(), FirstName: "Ana", LastName: "Lima", CPF: "11144477735", Email: "ana@example.com", IsActive: true}
	require.NoError(t, mem.Users().Create(context.Background(), u))
	return &fixture{ctx: context.Background(), store: mem, svc: NewService(mem, rec, lg, metrics.Nop(), "Brasil"), userID: u.ID}
}

func sample(street string, primary bool) Input {
	return Input{Street: street, Number: ptr("10"), City: "Recife", State: "pe", ZipCode: "50000-000", IsPrimary: primary}
}

func (f *fixture) primaries(t *testing.T) []uuid.UUID {
	t.Helper()
	all, err := f.store.Addresses().ListByUser(f.ctx, f.userID)
	require.NoError(t, err)
	var out []uuid.UUID
	for _, a := range all {
		if a.IsPrimary {
			out = append(out, a.ID)
		}
	}
	return out
}

func (f *fixture) auditFor(t *testing.T, entityID uuid.UUID) []models.AuditLog {
	t.Helper()
	logs, _, err := f.store.Audit().Query(f.ctx, store.AuditFilter{EntityType: audit.EntityAddress, EntityID: entityID.String()}, models.Page{Number: 1, Size: 100})
	require.NoError(t, err)
	return logs
}

func TestCreateNormalisesAndDefaultsCountry(t *testing.T) {
	f := newFixture(t)
	a, err := f.svc.Create(f.ctx, f.userID, sample(" Rua do Sol ", false))
	require.NoError(t, err)
	assert.Equal(t, "Rua do Sol", a.Street)
	assert.Equal(t, "PE", a.State)
	assert.Equal(t, "Brasil", a.Country)

	logs := f.auditFor(t, a.ID)
	require.Len(t, logs, 1)
	assert.Equal(t, audit.FieldCreated, logs[0].FieldName)
	assert.Nil(t, logs[0].OldValue)
}

func TestNewPrimaryDemotesPrevious(t *testing.T) {
	f := newFixture(t)
	first, err := f.svc.Create(f.ctx, f.userID, sample("Rua A", true))
	require.NoError(t, err)
	second, err := f.svc.Create(f.ctx, f.userID, sample("Rua B", true))
	require.NoError(t, err)

	assert.Equal(t, []uuid.UUID{second.ID}, f.primaries(t))

	var demoted bool
	for _, l := range f.auditFor(t, first.ID) {
		if l.FieldName == "IsPrimary" && *l.OldValue == "true" && *l.NewValue == "false" {
			demoted = true
		}
	}
	assert.True(t, demoted, "demotion is audited")
}

func TestDuplicateRejected(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Create(f.ctx, f.userID, sample("Rua A", false))
	require.NoError(t, err)

	dup := sample("  RUA  a ", true)
	_, err = f.svc.Create(f.ctx, f.userID, dup)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeConflict))
	assert.Empty(t, f.primaries(t), "a rejected create changes nothing")

	dup.Complement = ptr("fundos")
	_, err = f.svc.Create(f.ctx, f.userID, dup)
	assert.NoError(t, err)
}

func TestCreateValidation(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Create(f.ctx, f.userID, Input{Street: "Rua A", City: "", State: "Pernambuco", ZipCode: "50000-000-0000"})
	require.True(t, apperrors.HasCode(err, apperrors.CodeValidation))
	e, _ := apperrors.As(err)
	assert.ElementsMatch(t, []string{
		"city is required",
		"state must be a two-letter state code",
		"zipCode must have at most 10 characters",
	}, e.Details)

	_, err = f.svc.Create(f.ctx, uuid.New(), sample("Rua A", false))
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))
}

func TestUpdate(t *testing.T) {
	f := newFixture(t)
	a, err := f.svc.Create(f.ctx, f.userID, sample("Rua A", true))
	require.NoError(t, err)
	b, err := f.svc.Create(f.ctx, f.userID, sample("Rua B", false))
	require.NoError(t, err)

	t.Run("no change writes nothing", func(t *testing.T) {
		before := len(f.auditFor(t, a.ID))
		got, err := f.svc.Update(f.ctx, a.ID, Patch{Street: ptr("Rua A")})
		require.NoError(t, err)
		assert.Nil(t, got.UpdatedAt)
		assert.Len(t, f.auditFor(t, a.ID), before)
	})

	t.Run("collision with a sibling", func(t *testing.T) {
		_, err := f.svc.Update(f.ctx, b.ID, Patch{Street: ptr("rua a")})
		assert.True(t, apperrors.HasCode(err, apperrors.CodeConflict))
	})

	t.Run("field change is audited", func(t *testing.T) {
		got, err := f.svc.Update(f.ctx, b.ID, Patch{City: ptr("Olinda")})
		require.NoError(t, err)
		assert.Equal(t, "Olinda", got.City)
		assert.NotNil(t, got.UpdatedAt)

		var found bool
		for _, l := range f.auditFor(t, b.ID) {
			if l.FieldName == "City" {
				found = true
				assert.Equal(t, "Recife", *l.OldValue)
				assert.Equal(t, "Olinda", *l.NewValue)
			}
		}
		assert.True(t, found)
	})

	t.Run("promote via update", func(t *testing.T) {
		yes := true
		_, err := f.svc.Update(f.ctx, b.ID, Patch{IsPrimary: &yes})
		require.NoError(t, err)
		assert.Equal(t, []uuid.UUID{b.ID}, f.primaries(t))
	})
}

func TestDeleteKeepsLastAddress(t *testing.T) {
	f := newFixture(t)
	a, err := f.svc.Create(f.ctx, f.userID, sample("Rua A", true))
	require.NoError(t, err)

	err = f.svc.Delete(f.ctx, a.ID)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))

	b, err := f.svc.Create(f.ctx, f.userID, sample("Rua B", false))
	require.NoError(t, err)
	require.NoError(t, f.svc.Delete(f.ctx, b.ID))

	_, err = f.svc.Get(f.ctx, b.ID)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))
	var deleted *models.AuditLog
	for _, l := range f.auditFor(t, b.ID) {
		if l.FieldName == audit.FieldDeleted {
			deleted = &l
		}
	}
	require.NotNil(t, deleted)
	assert.Nil(t, deleted.NewValue)
	assert.NotNil(t, deleted.OldValue)
}

func TestDeletePrimaryPromotesOldest(t *testing.T) {
	f := newFixture(t)
	clock := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	f.svc.now = func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	}
	a, err := f.svc.Create(f.ctx, f.userID, sample("Rua A", false))
	require.NoError(t, err)
	_, err = f.svc.Create(f.ctx, f.userID, sample("Rua B", false))
	require.NoError(t, err)
	c, err := f.svc.Create(f.ctx, f.userID, sample("Rua C", true))
	require.NoError(t, err)

	require.NoError(t, f.svc.Delete(f.ctx, c.ID))
	assert.Equal(t, []uuid.UUID{a.ID}, f.primaries(t))

	var promoted bool
	for _, l := range f.auditFor(t, a.ID) {
		if l.FieldName == "IsPrimary" && *l.NewValue == "true" {
			promoted = true
		}
	}
	assert.True(t, promoted, "promotion is audited")
}

func TestSetPrimary(t *testing.T) {
	f := newFixture(t)
	a, err := f.svc.Create(f.ctx, f.userID, sample("Rua A", true))
	require.NoError(t, err)
	b, err := f.svc.Create(f.ctx, f.userID, sample("Rua B", false))
	require.NoError(t, err)

	got, err := f.svc.MakePrimary(f.ctx, b.ID)
	require.NoError(t, err)
	assert.True(t, got.IsPrimary)
	assert.Equal(t, []uuid.UUID{b.ID}, f.primaries(t))

	_, err = f.svc.SetPrimary(f.ctx, uuid.New(), a.ID)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))
}

func TestListByUser(t *testing.T) {
	f := newFixture(t)
	res, err := f.svc.ListByUser(f.ctx, f.userID, models.Page{})
	require.NoError(t, err)
	assert.Zero(t, res.Total)
	assert.Equal(t, 20, res.PageSize)

	_, err = f.svc.ListByUser(f.ctx, uuid.New(), models.Page{})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))

	_, err = f.svc.Create(f.ctx, f.userID, sample("Rua A", false))
	require.NoError(t, err)
	p, err := f.svc.Create(f.ctx, f.userID, sample("Rua B", true))
	require.NoError(t, err)
	res, err = f.svc.ListByUser(f.ctx, f.userID, models.Page{Number: 1, Size: 10})
	require.NoError(t, err)
	assert.EqualValues(t, 2, res.Total)
	assert.Equal(t, p.ID, res.Items[0].ID)
}
